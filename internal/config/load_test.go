package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setRequiredEnv sets the minimum environment required for Load to succeed.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CLEO_DATABASE_URL", "postgres://localhost:5432/cleo_test")
	t.Setenv("CLEO_AUTH_JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("CLEO_ENCRYPTION_KEY", "0123456789abcdef0123456789abcdef")
	t.Setenv("CLEO_LLM_GEMINI_API_KEY", "test-api-key")
}

func TestLoadFromEnvironment(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	// Keys with no registered default must still resolve from the
	// environment alone, without a config file present.
	assert.Equal(t, "postgres://localhost:5432/cleo_test", cfg.Database.URL)
	assert.Equal(t, "0123456789abcdef0123456789abcdef", cfg.Auth.JWTSecret)
	assert.Equal(t, "0123456789abcdef0123456789abcdef", cfg.Encryption.Key)
	assert.Equal(t, "test-api-key", cfg.LLM.GeminiAPIKey)
	assert.Equal(t, 4000, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, "memory", cfg.Queue.Driver)
	assert.Equal(t, 2, cfg.Task.WorkerCount)
	assert.Equal(t, 5, cfg.Providers.MaxItems)
	assert.Equal(t, float32(0.2), cfg.LLM.Temperature)
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CLEO_SERVER_PORT", "8080")
	t.Setenv("CLEO_SERVER_LOG_LEVEL", "debug")
	t.Setenv("CLEO_QUEUE_DRIVER", "kafka")
	t.Setenv("CLEO_PROVIDERS_MAX_ITEMS", "10")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, "kafka", cfg.Queue.Driver)
	assert.Equal(t, 10, cfg.Providers.MaxItems)
}

func TestLoadOAuthClientFromEnvironment(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CLEO_OAUTH_GOOGLE_CLIENT_ID", "google-client")
	t.Setenv("CLEO_OAUTH_GOOGLE_CLIENT_SECRET", "google-secret")
	t.Setenv("CLEO_OAUTH_GOOGLE_REDIRECT_URI", "https://cleo.example.com/api/oauth/google/callback")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "google-client", cfg.OAuth.Google.ClientID)
	assert.Equal(t, "google-secret", cfg.OAuth.Google.ClientSecret)
	assert.Equal(t, "https://cleo.example.com/api/oauth/google/callback", cfg.OAuth.Google.RedirectURI)
}

func TestLoadRejectsBadEncryptionKey(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CLEO_ENCRYPTION_KEY", "short key")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation")
}

func TestLoadRejectsShortJWTSecret(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CLEO_AUTH_JWT_SECRET", "short")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsMissingDatabaseURL(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CLEO_DATABASE_URL", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsUnknownQueueDriver(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CLEO_QUEUE_DRIVER", "rabbitmq")

	_, err := Load()
	require.Error(t, err)
}
