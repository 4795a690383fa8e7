// Package config loads server configuration from the environment.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/critfumble/encounter-api/internal/errors"
)

// Config holds runtime settings for the encounter API server.
type Config struct {
	// Address the HTTP server binds to.
	HTTPAddress string `env:"ENCOUNTER_API_HTTP_ADDRESS" envDefault:":8080"`

	// Redis endpoint. Leave empty to run against in-memory storage.
	RedisAddress string `env:"ENCOUNTER_API_REDIS_ADDRESS"`

	// Secret for verifying bearer tokens. Required.
	JWTSecret string `env:"ENCOUNTER_API_JWT_SECRET"`

	// Interval between keep-alive events on stream connections.
	HeartbeatInterval time.Duration `env:"ENCOUNTER_API_HEARTBEAT_INTERVAL" envDefault:"30s"`

	// Per-subscriber event buffer. Slow consumers past this drop events.
	SubscriberBuffer int `env:"ENCOUNTER_API_SUBSCRIBER_BUFFER" envDefault:"16"`

	// Window allowed for in-flight requests during shutdown.
	ShutdownTimeout time.Duration `env:"ENCOUNTER_API_SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// Load parses configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse environment")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that required settings are present and sane.
func (c *Config) Validate() error {
	vb := errors.NewValidationBuilder()

	if c.JWTSecret == "" {
		vb.RequiredField("JWTSecret")
	}
	if c.HeartbeatInterval <= 0 {
		vb.InvalidField("HeartbeatInterval", "must be positive")
	}
	if c.SubscriberBuffer <= 0 {
		vb.InvalidField("SubscriberBuffer", "must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		vb.InvalidField("ShutdownTimeout", "must be positive")
	}

	return vb.Build()
}
