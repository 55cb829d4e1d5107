package config

import (
	"os"
	"strconv"
)

// Config is the process configuration, read once at startup.
type Config struct {
	Port        string
	Environment string

	GatewayURL    string
	GatewayAPIKey string
	GatewayModel  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RulesWorkbook string

	Workers   int
	QueueSize int

	MaxUploadBytes int64
}

func Load() Config {
	return Config{
		Port:        envOr("PORT", "8080"),
		Environment: envOr("ENVIRONMENT", "development"),

		GatewayURL:    envOr("GATEWAY_URL", ""),
		GatewayAPIKey: envOr("GATEWAY_API_KEY", ""),
		GatewayModel:  envOr("GATEWAY_MODEL", "gpt-4o-transcribe"),

		RedisAddr:     envOr("REDIS_ADDR", ""),
		RedisPassword: envOr("REDIS_PASSWORD", ""),
		RedisDB:       envIntOr("REDIS_DB", 0),

		RulesWorkbook: envOr("RULES_WORKBOOK", ""),

		Workers:   envIntOr("PIPELINE_WORKERS", 4),
		QueueSize: envIntOr("PIPELINE_QUEUE_SIZE", 64),

		MaxUploadBytes: int64(envIntOr("MAX_UPLOAD_MB", 100)) * 1024 * 1024,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
