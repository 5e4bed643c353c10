package config

import "time"

// Config is the root configuration structure
type Config struct {
	Oracle  OracleConfig   `yaml:"oracle"`
	Server  ServerConfig   `yaml:"server"`
	Sources []SourceConfig `yaml:"sources"`
	Pairs   []PairConfig   `yaml:"pairs"`
	Metrics MetricsConfig  `yaml:"metrics"`
	Logging LoggingConfig  `yaml:"logging"`
}

// OracleConfig configures the aggregation engine
type OracleConfig struct {
	Admin             string   `yaml:"admin"`              // Administrator principal for registry mutations
	CanonicalDecimals int      `yaml:"canonical_decimals"` // Fractional digits of the canonical price representation
	MinimumResponses  int      `yaml:"minimum_responses"`  // Quorum of valid sources per aggregation
	DefaultHeartbeat  Duration `yaml:"default_heartbeat"`  // Staleness threshold for sources without their own
}

// ServerConfig configures the API server component
type ServerConfig struct {
	HTTP            HTTPConfig `yaml:"http"`
	WebSocket       WSConfig   `yaml:"websocket"`
	RefreshInterval Duration   `yaml:"refresh_interval"` // Cadence of WebSocket price pushes
}

// HTTPConfig configures the HTTP server
type HTTPConfig struct {
	Addr string    `yaml:"addr"`
	TLS  TLSConfig `yaml:"tls"`
}

// WSConfig configures the WebSocket server
type WSConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// TLSConfig holds TLS certificate configuration
type TLSConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cert    string `yaml:"cert"`
	Key     string `yaml:"key"`
}

// SourceConfig configures a price source
type SourceConfig struct {
	Handle      string                 `yaml:"handle"`
	Type        string                 `yaml:"type"`
	Weight      string                 `yaml:"weight"`
	Heartbeat   Duration               `yaml:"heartbeat"`
	Decimals    int                    `yaml:"decimals"`
	Description string                 `yaml:"description"`
	Config      map[string]interface{} `yaml:"config"`
}

// PairConfig configures an asset pair
type PairConfig struct {
	Symbol  string   `yaml:"symbol"`
	Base    string   `yaml:"base"`
	Quote   string   `yaml:"quote"`
	Sources []string `yaml:"sources"`
	Active  *bool    `yaml:"active"` // nil means active
}

// MetricsConfig configures Prometheus metrics
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
}

// LoggingConfig configures logging
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Duration is a wrapper around time.Duration for YAML parsing
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	td, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(td)
	return nil
}

// ToDuration converts Duration to time.Duration
func (d Duration) ToDuration() time.Duration {
	return time.Duration(d)
}

// IsActive reports whether the pair should be created active.
func (p *PairConfig) IsActive() bool {
	return p.Active == nil || *p.Active
}
