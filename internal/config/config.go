// Package config loads service configuration from the environment,
// with an optional .env file for local development.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevelRaw string `env:"LOG_LEVEL" envDefault:"info"`

	// RedisURL enables persistence of memory records and session
	// summaries. Empty disables persistence entirely.
	RedisURL string `env:"REDIS_URL"`

	// EventSweepSeconds is the interval between spontaneous-event
	// sweeps over active sessions.
	EventSweepSeconds int `env:"EVENT_SWEEP_SECONDS" envDefault:"30"`

	// RandomSeed pins the engine's rand source; 0 seeds from the
	// clock.
	RandomSeed int64 `env:"RANDOM_SEED"`

	// DataDir holds character definition files loaded at startup.
	DataDir string `env:"DATA_DIR" envDefault:"./data"`
}

// Load reads .env if present, then the process environment.
func Load() (*Config, error) {
	// Missing .env is fine; the environment may be fully set already.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

// LogLevel maps the configured level string onto slog's levels,
// defaulting to info.
func (c *Config) LogLevel() slog.Level {
	switch strings.ToLower(c.LogLevelRaw) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}
