package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigYAML = `
oracle:
  admin: ops
  canonical_decimals: 18
  minimum_responses: 2
  default_heartbeat: 90s
server:
  http:
    addr: ":8085"
  websocket:
    enabled: true
    addr: ":8086"
  refresh_interval: 2s
sources:
  - handle: round-main
    type: round
    weight: "2"
    heartbeat: 60s
    decimals: 8
    description: Main round feed
    config:
      url: https://example.com/round
  - handle: twap-pool
    type: twap
    weight: "1.5"
    decimals: 18
    config:
      url: https://example.com/twap
      window: 300
pairs:
  - symbol: ETH/USD
    base: ETH
    quote: USD
    sources: [round-main, twap-pool]
  - symbol: BTC/USD
    base: BTC
    quote: USD
    sources: [round-main]
    active: false
metrics:
  enabled: true
logging:
  level: debug
  format: text
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, testConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, "ops", cfg.Oracle.Admin)
	assert.Equal(t, 18, cfg.Oracle.CanonicalDecimals)
	assert.Equal(t, 2, cfg.Oracle.MinimumResponses)
	assert.Equal(t, 90*time.Second, cfg.Oracle.DefaultHeartbeat.ToDuration())

	require.Len(t, cfg.Sources, 2)
	assert.Equal(t, "round-main", cfg.Sources[0].Handle)
	assert.Equal(t, 60*time.Second, cfg.Sources[0].Heartbeat.ToDuration())
	assert.Equal(t, "https://example.com/round", cfg.Sources[0].GetString("url", ""))
	assert.Equal(t, 300, cfg.Sources[1].GetInt("window", 0))

	require.Len(t, cfg.Pairs, 2)
	assert.True(t, cfg.Pairs[0].IsActive())
	assert.False(t, cfg.Pairs[1].IsActive())

	assert.True(t, cfg.Server.WebSocket.Enabled)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
oracle:
  admin: ops
sources:
  - handle: proxy-main
    type: proxy
    weight: "1"
    decimals: 18
pairs:
  - symbol: ETH/USD
    base: ETH
    quote: USD
    sources: [proxy-main]
metrics:
  enabled: true
`))
	require.NoError(t, err)

	assert.Equal(t, DefaultCanonicalDecimals, cfg.Oracle.CanonicalDecimals)
	assert.Equal(t, DefaultMinimumResponses, cfg.Oracle.MinimumResponses)
	assert.Equal(t, DefaultHeartbeat, cfg.Oracle.DefaultHeartbeat.ToDuration())
	assert.Equal(t, ":8080", cfg.Server.HTTP.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.RefreshInterval.ToDuration())
	assert.Equal(t, ":9091", cfg.Metrics.Addr)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	require.NoError(t, Validate(cfg))
}

func TestLoad_ExpandsEnvironment(t *testing.T) {
	t.Setenv("ORACLE_ADMIN", "ops-from-env")

	cfg, err := Load(writeConfig(t, `
oracle:
  admin: ${ORACLE_ADMIN}
sources:
  - handle: proxy-main
    type: proxy
    weight: "1"
    decimals: 18
pairs:
  - symbol: ETH/USD
    base: ETH
    quote: USD
    sources: [proxy-main]
`))
	require.NoError(t, err)
	assert.Equal(t, "ops-from-env", cfg.Oracle.Admin)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoad_BadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "oracle: [not a map"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load(writeConfig(t, testConfigYAML))
		require.NoError(t, err)
		return cfg
	}

	require.NoError(t, Validate(base()))

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "missing admin",
			mutate:  func(c *Config) { c.Oracle.Admin = "" },
			wantErr: ErrAdminRequired,
		},
		{
			name:    "canonical decimals too large",
			mutate:  func(c *Config) { c.Oracle.CanonicalDecimals = 39 },
			wantErr: ErrInvalidCanonicalDecimals,
		},
		{
			name:    "minimum responses below one",
			mutate:  func(c *Config) { c.Oracle.MinimumResponses = 0 },
			wantErr: ErrInvalidMinimumResponses,
		},
		{
			name:    "no sources",
			mutate:  func(c *Config) { c.Sources = nil },
			wantErr: ErrNoSourcesConfigured,
		},
		{
			name:    "empty source handle",
			mutate:  func(c *Config) { c.Sources[0].Handle = "" },
			wantErr: ErrSourceHandleRequired,
		},
		{
			name:    "unknown source type",
			mutate:  func(c *Config) { c.Sources[0].Type = "chainlink" },
			wantErr: ErrUnknownSourceType,
		},
		{
			name:    "non-numeric weight",
			mutate:  func(c *Config) { c.Sources[0].Weight = "heavy" },
			wantErr: ErrInvalidSourceWeight,
		},
		{
			name:    "zero weight",
			mutate:  func(c *Config) { c.Sources[0].Weight = "0" },
			wantErr: ErrInvalidSourceWeight,
		},
		{
			name:    "zero decimals",
			mutate:  func(c *Config) { c.Sources[0].Decimals = 0 },
			wantErr: ErrInvalidSourceDecimals,
		},
		{
			name: "duplicate source handle",
			mutate: func(c *Config) {
				c.Sources[1].Handle = c.Sources[0].Handle
			},
			wantErr: ErrDuplicateSourceHandle,
		},
		{
			name:    "pair without symbol",
			mutate:  func(c *Config) { c.Pairs[0].Symbol = "" },
			wantErr: ErrPairSymbolRequired,
		},
		{
			name:    "pair without sources",
			mutate:  func(c *Config) { c.Pairs[0].Sources = nil },
			wantErr: ErrPairNoSources,
		},
		{
			name: "pair references unknown source",
			mutate: func(c *Config) {
				c.Pairs[0].Sources = []string{"missing"}
			},
			wantErr: ErrPairUnknownSource,
		},
		{
			name: "duplicate pair symbol",
			mutate: func(c *Config) {
				c.Pairs[1].Symbol = c.Pairs[0].Symbol
			},
			wantErr: ErrDuplicatePairSymbol,
		},
		{
			name: "tls without key material",
			mutate: func(c *Config) {
				c.Server.HTTP.TLS.Enabled = true
			},
			wantErr: ErrTLSConfigIncomplete,
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: ErrInvalidLogLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			require.ErrorIs(t, Validate(cfg), tt.wantErr)
		})
	}
}
