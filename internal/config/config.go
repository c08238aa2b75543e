// Package config loads server configuration from the environment
package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/KirkDiggler/gamemaster-api/internal/errors"
)

// Config holds all server configuration
type Config struct {
	// HTTP server
	Port     int    `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Redis
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// Narrator model. Leaving the key empty disables model-driven
	// narration; every other operation still works.
	OpenAIKey     string        `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL string        `envconfig:"OPENAI_BASE_URL"`
	NarratorModel string        `envconfig:"NARRATOR_MODEL" default:"gpt-4o-mini"`
	NarratorWait  time.Duration `envconfig:"NARRATOR_TIMEOUT" default:"120s"`
	NarratorRetry int           `envconfig:"NARRATOR_RETRIES" default:"2"`
}

// Load reads configuration from the environment
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to load configuration")
	}
	return &cfg, nil
}

// NarratorEnabled reports whether a narrator client can be constructed
func (c *Config) NarratorEnabled() bool {
	return c.OpenAIKey != ""
}
