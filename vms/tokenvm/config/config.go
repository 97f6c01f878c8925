// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config defines configuration types for the token VM.
package config

import (
	"encoding/json"
	"errors"
)

var (
	ErrInvalidCacheSize  = errors.New("invalid balance cache size")
	ErrInvalidQueryLimit = errors.New("invalid query limit")
)

// Config contains the node-local, non-consensus settings of the token VM.
type Config struct {
	// BalanceCacheSize is the number of balances kept in memory
	BalanceCacheSize int `json:"balanceCacheSize"`

	// API configuration
	APIEnabled bool `json:"apiEnabled"`
	// MaxQueryLimit caps the page size of event and holder queries
	MaxQueryLimit int `json:"maxQueryLimit"`
	// AllowAPIRelease exposes token.release over the API
	AllowAPIRelease bool `json:"allowApiRelease"`

	// MetricsNamespace prefixes every metric of the VM
	MetricsNamespace string `json:"metricsNamespace"`
}

// DefaultConfig returns the default configuration for the token VM.
func DefaultConfig() Config {
	return Config{
		BalanceCacheSize: 4096,
		APIEnabled:       true,
		MaxQueryLimit:    1024,
		AllowAPIRelease:  true,
		MetricsNamespace: "tokenvm",
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.BalanceCacheSize <= 0 {
		return ErrInvalidCacheSize
	}
	if c.MaxQueryLimit <= 0 {
		return ErrInvalidQueryLimit
	}
	return nil
}

// ParseConfig parses configuration from JSON bytes. Missing fields keep their
// defaults.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if len(data) == 0 {
		return cfg, nil
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}

	return cfg, cfg.Validate()
}
