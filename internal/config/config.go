// Package config loads server settings from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the settings of the hosting server.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string

	// ScriptPath is an optional YAML script file. Empty means the built-in
	// lead-capture script.
	ScriptPath string

	// LeadURL is the endpoint leads are posted to. Empty disables submission
	// (leads are logged and dropped), which is useful in development.
	LeadURL string

	// LogLevel is one of debug, info, warn, error.
	LogLevel string

	// LogJSON switches the logger to JSON output.
	LogJSON bool

	// SessionTTL is the idle window before abandoned sessions are evicted.
	SessionTTL time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged in first if present; real environment variables win.
func Load() (Config, error) {
	// Ignore a missing .env; it is a development convenience only.
	_ = godotenv.Load()

	cfg := Config{
		Addr:       getEnv("LEADCHAT_ADDR", ":8080"),
		ScriptPath: os.Getenv("LEADCHAT_SCRIPT"),
		LeadURL:    os.Getenv("LEADCHAT_LEAD_URL"),
		LogLevel:   getEnv("LEADCHAT_LOG_LEVEL", "info"),
		LogJSON:    os.Getenv("LEADCHAT_LOG_JSON") == "true",
		SessionTTL: 30 * time.Minute,
	}

	if raw := os.Getenv("LEADCHAT_SESSION_TTL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("config: invalid LEADCHAT_SESSION_TTL %q: %w", raw, err)
		}
		cfg.SessionTTL = d
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
