package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and an optional
// config file. Environment variables (prefixed CLEO_, dots replaced by
// underscores, e.g. CLEO_DATABASE_URL) take precedence over file values.
// Returns a populated Config struct or an error if loading or validation
// fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CLEO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicitly bind keys that have no default: AutomaticEnv alone does
	// not surface them to Unmarshal when no config file mentions them.
	bindEnvs := []string{
		"database.url",
		"auth.jwt_secret",
		"encryption.key",
		"llm.gemini_api_key",
		"queue.kafka_brokers",
		"oauth.google.client_id",
		"oauth.google.client_secret",
		"oauth.google.redirect_uri",
		"oauth.notion.client_id",
		"oauth.notion.client_secret",
		"oauth.notion.redirect_uri",
		"oauth.zoom.client_id",
		"oauth.zoom.client_secret",
		"oauth.zoom.redirect_uri",
	}
	for _, key := range bindEnvs {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind environment variable for %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; environment variables may carry
		// everything required.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers default values for optional settings.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 4000)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("auth.token_lifetime_minutes", 60)

	v.SetDefault("llm.model_name", "gemini-2.0-flash")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.retry_delay_seconds", 2)

	v.SetDefault("queue.driver", "memory")
	v.SetDefault("queue.kafka_topic", "ai-tasks")
	v.SetDefault("queue.kafka_group_id", "cleo-task-workers")

	v.SetDefault("task.worker_count", 2)
	v.SetDefault("task.queue_size", 100)
	v.SetDefault("task.stuck_task_age_minutes", 30)
	v.SetDefault("task.sweep_interval_minutes", 5)

	v.SetDefault("providers.max_items", 5)
}
