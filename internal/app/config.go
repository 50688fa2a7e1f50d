package app

import (
	"errors"
	"time"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ConfigPath string // .hcl / .yaml file or directory; empty uses defaults
	Endpoint   string // overrides the configured endpoint when set

	ConnectTimeout time.Duration // overrides the configured timeout when > 0
	HTTPPort       int           // host surface port; 0 disables it
	Print          bool          // write region changes to the output writer

	LogFormat string
	LogLevel  string
}

// NewConfig validates cfg and returns a copy.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.HTTPPort < 0 || cfg.HTTPPort > 65535 {
		return nil, errors.New("HTTPPort must be between 0 and 65535")
	}
	if cfg.ConnectTimeout < 0 {
		return nil, errors.New("ConnectTimeout must not be negative")
	}
	return &cfg, nil
}
