package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	DBDSN        string `env:"POSTDESK_DB_DSN"`        // sqlite file path
	ConfigFile   string `env:"POSTDESK_CONFIG"`        // path to postdesk.yaml
	LogLevel     string `env:"POSTDESK_LOG_LEVEL" envDefault:"info"`
	OTelEndpoint string `env:"POSTDESK_OTEL_ENDPOINT"` // OTLP/HTTP collector URL
	OTelEnabled  bool   `env:"POSTDESK_OTEL_ENABLED" envDefault:"true"`
}

// defaultDataPath returns ~/.postdesk/<filename>, falling back to
// a CWD-relative path if the home directory can't be resolved.
func defaultDataPath(filename string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filename
	}
	return filepath.Join(home, ".postdesk", filename)
}

func loadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.DBDSN == "" {
		cfg.DBDSN = defaultDataPath("postdesk.db")
	}
	if cfg.ConfigFile == "" {
		cfg.ConfigFile = defaultDataPath("postdesk.yaml")
	}
	return cfg, nil
}

func parseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
