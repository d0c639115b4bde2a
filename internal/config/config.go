// Package config loads process configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config carries everything the entrypoints need to wire the service.
type Config struct {
	Port        string
	DatabaseURL string
	Env         string

	// MonoAPIURL overrides the upstream endpoint, mainly for tests and
	// staging.
	MonoAPIURL string

	// WebhookBaseURL is the public base URL registered with the upstream,
	// e.g. "https://example.com/webhook/". Empty disables registration.
	WebhookBaseURL string

	TelegramToken  string
	TelegramChatID int64

	// GCSBucket enables raw webhook payload archiving when set.
	GCSBucket string

	// BigQueryProject/Dataset enable the reporting export when both set.
	BigQueryProject string
	BigQueryDataset string

	SyncWorkers  int
	QueueSize    int
	SyncInterval int // minutes between scheduled full syncs
}

// Load reads the .env file (if present) and the environment.
func Load(log zerolog.Logger) *Config {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, relying on environment variables")
	}

	return &Config{
		Port:            getEnv("PORT", "8080"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		Env:             getEnv("ENV", "development"),
		MonoAPIURL:      getEnv("MONO_API_URL", ""),
		WebhookBaseURL:  getEnv("WEBHOOK_BASE_URL", ""),
		TelegramToken:   getEnv("LOGS_BOT_TOKEN", ""),
		TelegramChatID:  getEnvInt64(log, "ADMIN_TG_ID", 0),
		GCSBucket:       getEnv("GCS_BUCKET", ""),
		BigQueryProject: getEnv("BIGQUERY_PROJECT", ""),
		BigQueryDataset: getEnv("BIGQUERY_DATASET", "finance"),
		SyncWorkers:     getEnvInt(log, "SYNC_WORKERS", 5),
		QueueSize:       getEnvInt(log, "QUEUE_SIZE", 100),
		SyncInterval:    getEnvInt(log, "SYNC_INTERVAL_MINUTES", 60),
	}
}

// getEnv returns the env value or a fallback.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(log zerolog.Logger, key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		log.Warn().Str("key", key).Str("value", value).Msg("Invalid integer env value, using fallback")
		return fallback
	}
	return parsed
}

func getEnvInt64(log zerolog.Logger, key string, fallback int64) int64 {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		log.Warn().Str("key", key).Str("value", value).Msg("Invalid integer env value, using fallback")
		return fallback
	}
	return parsed
}
