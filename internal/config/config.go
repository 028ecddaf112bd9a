package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"     validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database"   validate:"required"`
	Auth       AuthConfig       `mapstructure:"auth"       validate:"required"`
	Encryption EncryptionConfig `mapstructure:"encryption" validate:"required"`
	LLM        LLMConfig        `mapstructure:"llm"        validate:"required"`
	Queue      QueueConfig      `mapstructure:"queue"      validate:"required"`
	Task       TaskConfig       `mapstructure:"task"       validate:"required"`
	Providers  ProvidersConfig  `mapstructure:"providers"`
	OAuth      OAuthConfig      `mapstructure:"oauth"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret"             validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
}

// EncryptionConfig holds the vault key protecting stored provider tokens.
// The key length is the cipher's exact requirement; a misconfigured key is
// startup-fatal.
type EncryptionConfig struct {
	Key string `mapstructure:"key" validate:"required,len=32"`
}

// LLMConfig contains all model-invocation settings.
type LLMConfig struct {
	GeminiAPIKey      string  `mapstructure:"gemini_api_key" validate:"required"`
	ModelName         string  `mapstructure:"model_name"     validate:"required"`
	Temperature       float32 `mapstructure:"temperature"    validate:"gte=0,lte=2"`
	MaxRetries        int     `mapstructure:"max_retries"        validate:"gte=0"`
	RetryDelaySeconds int     `mapstructure:"retry_delay_seconds" validate:"gte=0"`
}

// QueueConfig selects and configures the durable task queue.
type QueueConfig struct {
	Driver       string   `mapstructure:"driver" validate:"required,oneof=memory kafka"`
	KafkaBrokers []string `mapstructure:"kafka_brokers"`
	KafkaTopic   string   `mapstructure:"kafka_topic"`
	KafkaGroupID string   `mapstructure:"kafka_group_id"`
}

// TaskConfig tunes the worker runner.
type TaskConfig struct {
	WorkerCount          int `mapstructure:"worker_count"           validate:"required,gt=0"`
	QueueSize            int `mapstructure:"queue_size"             validate:"required,gt=0"`
	StuckTaskAgeMinutes  int `mapstructure:"stuck_task_age_minutes" validate:"required,gt=0"`
	SweepIntervalMinutes int `mapstructure:"sweep_interval_minutes" validate:"required,gt=0"`
}

// ProvidersConfig bounds third-party context fetching.
type ProvidersConfig struct {
	// MaxItems caps how many items a provider may pull per task
	// (e.g. most recent emails).
	MaxItems int `mapstructure:"max_items" validate:"gte=1"`
}

// OAuthClientConfig holds one provider's OAuth application settings.
type OAuthClientConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURI  string `mapstructure:"redirect_uri"`
}

// OAuthConfig groups the supported third-party providers.
type OAuthConfig struct {
	Google OAuthClientConfig `mapstructure:"google"`
	Notion OAuthClientConfig `mapstructure:"notion"`
	Zoom   OAuthClientConfig `mapstructure:"zoom"`
}
