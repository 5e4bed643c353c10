// Package config provides configuration loading and validation for the price aggregator.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultCanonicalDecimals is the canonical precision used when none is configured.
	DefaultCanonicalDecimals = 18
	// DefaultMinimumResponses is the quorum used when none is configured.
	DefaultMinimumResponses = 1
	// DefaultHeartbeat is the staleness threshold used when none is configured.
	DefaultHeartbeat = 60 * time.Second
)

// Load loads configuration from YAML file and environment variables.
func Load(path string) (*Config, error) {
	// Validate and sanitize path
	cleanPath := filepath.Clean(path)
	absPath, err := filepath.Abs(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	// Read config file
	data, err := os.ReadFile(absPath) // #nosec G304 -- Path sanitized with filepath.Clean and filepath.Abs
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in YAML
	expanded := os.ExpandEnv(string(data))

	// Parse YAML
	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Apply defaults
	applyDefaults(&cfg)

	return &cfg, nil
}

// applyDefaults sets default values for optional fields.
func applyDefaults(cfg *Config) {
	// Oracle defaults
	if cfg.Oracle.CanonicalDecimals == 0 {
		cfg.Oracle.CanonicalDecimals = DefaultCanonicalDecimals
	}
	if cfg.Oracle.MinimumResponses == 0 {
		cfg.Oracle.MinimumResponses = DefaultMinimumResponses
	}
	if cfg.Oracle.DefaultHeartbeat.ToDuration() == 0 {
		cfg.Oracle.DefaultHeartbeat = Duration(DefaultHeartbeat)
	}

	// Server defaults
	if cfg.Server.HTTP.Addr == "" {
		cfg.Server.HTTP.Addr = ":8080"
	}
	if cfg.Server.RefreshInterval.ToDuration() == 0 {
		cfg.Server.RefreshInterval = Duration(5 * time.Second)
	}

	// Metrics defaults
	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9091"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

// GetString retrieves a string value from the source configuration.
func (sc *SourceConfig) GetString(key, defaultValue string) string {
	if val, ok := sc.Config[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return defaultValue
}

// GetInt retrieves an integer from source config.
func (sc *SourceConfig) GetInt(key string, defaultValue int) int {
	if val, ok := sc.Config[key]; ok {
		if i, ok := val.(int); ok {
			return i
		}
	}
	return defaultValue
}
