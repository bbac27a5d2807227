// Package config loads service configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the dirtywatch configuration.
type Config struct {
	SpannerDB  string `env:"SPANNER_DATABASE" envDefault:"projects/test-project/instances/dev-instance/databases/dirtycheck-db"`
	Collection string `env:"DIRTYCHECK_COLLECTION" envDefault:"default"`

	// TrackedIDs restricts tracking to these entity IDs; empty tracks all.
	TrackedIDs []string `env:"DIRTYCHECK_TRACKED_IDS" envSeparator:","`

	// CommitInterval enables periodic commits of dirty entities when > 0.
	CommitInterval time.Duration `env:"DIRTYCHECK_COMMIT_INTERVAL" envDefault:"0s"`

	HTTPAddr  string `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Collection == "" {
		return Config{}, fmt.Errorf("DIRTYCHECK_COLLECTION must not be empty")
	}
	if cfg.CommitInterval < 0 {
		return Config{}, fmt.Errorf("DIRTYCHECK_COMMIT_INTERVAL must not be negative")
	}
	return cfg, nil
}
