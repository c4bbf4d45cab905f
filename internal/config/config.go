package config

import (
	"os"
	"time"
)

type Config struct {
	HTTPAddr      string
	GracePeriod   time.Duration
	LogLevel      string
	AllowedOrigin string
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// Load reads configuration from the environment, falling back to defaults
// suitable for local development.
func Load() Config {
	return Config{
		HTTPAddr:      getenv("HTTP_ADDR", ":3000"),
		GracePeriod:   getenvDuration("GRACE_PERIOD", 60*time.Second),
		LogLevel:      getenv("LOG_LEVEL", "info"),
		AllowedOrigin: getenv("ALLOWED_ORIGIN", "*"),
	}
}
