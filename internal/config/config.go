// Package config loads the process configuration once at startup. The
// resulting struct is passed explicitly to the components that need it; there
// is no lazily-validated global environment state.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is the full server configuration.
type Config struct {
	Env      string `envconfig:"APP_ENV" default:"development"`
	Port     int    `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// StreamSecret keys the HMAC envelope signatures. Required in
	// production; development falls back to an ephemeral secret.
	StreamSecret string `envconfig:"STREAM_SIGNING_SECRET"`

	JWTSecret string        `envconfig:"JWT_SECRET" default:"dev-only-not-for-production"`
	JWTExpiry time.Duration `envconfig:"JWT_EXPIRY" default:"24h"`

	CandleInterval    time.Duration `envconfig:"CANDLE_INTERVAL" default:"1s"`
	HeartbeatInterval time.Duration `envconfig:"HEARTBEAT_INTERVAL" default:"10s"`
	RetryMillis       uint          `envconfig:"SSE_RETRY_MS" default:"5000"`

	// Requests per second admitted per route category.
	HistoryRate int `envconfig:"HISTORY_RATE_LIMIT" default:"20"`
	StreamRate  int `envconfig:"STREAM_RATE_LIMIT" default:"10"`
}

// Load fills the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: process environment: %w", err)
	}
	if cfg.IsProduction() && cfg.JWTSecret == "dev-only-not-for-production" {
		return Config{}, fmt.Errorf("config: JWT_SECRET must be set in production")
	}
	return cfg, nil
}

// IsProduction reports whether the process runs in production mode.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}
