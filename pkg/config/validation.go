package config

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// validSourceTypes mirrors the feed capability families supported by the engine.
var validSourceTypes = map[string]bool{
	"round":   true,
	"twap":    true,
	"dispute": true,
	"proxy":   true,
}

// Validate checks configuration for errors
func Validate(cfg *Config) error {
	if cfg.Oracle.Admin == "" {
		return ErrAdminRequired
	}
	if cfg.Oracle.CanonicalDecimals < 1 || cfg.Oracle.CanonicalDecimals > 38 {
		return fmt.Errorf("%w: got %d", ErrInvalidCanonicalDecimals, cfg.Oracle.CanonicalDecimals)
	}
	if cfg.Oracle.MinimumResponses < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidMinimumResponses, cfg.Oracle.MinimumResponses)
	}

	if len(cfg.Sources) == 0 {
		return ErrNoSourcesConfigured
	}

	handles := make(map[string]bool, len(cfg.Sources))
	for i, source := range cfg.Sources {
		if err := validateSourceConfig(&source); err != nil {
			return fmt.Errorf("source %d (%s): %w", i, source.Handle, err)
		}
		if handles[source.Handle] {
			return fmt.Errorf("%w: %s", ErrDuplicateSourceHandle, source.Handle)
		}
		handles[source.Handle] = true
	}

	symbols := make(map[string]bool, len(cfg.Pairs))
	for i, pair := range cfg.Pairs {
		if err := validatePairConfig(&pair, handles); err != nil {
			return fmt.Errorf("pair %d (%s): %w", i, pair.Symbol, err)
		}
		if symbols[pair.Symbol] {
			return fmt.Errorf("%w: %s", ErrDuplicatePairSymbol, pair.Symbol)
		}
		symbols[pair.Symbol] = true
	}

	if cfg.Server.HTTP.TLS.Enabled {
		if cfg.Server.HTTP.TLS.Cert == "" || cfg.Server.HTTP.TLS.Key == "" {
			return ErrTLSConfigIncomplete
		}
	}

	if err := validateLoggingConfig(&cfg.Logging); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

func validateSourceConfig(cfg *SourceConfig) error {
	if cfg.Handle == "" {
		return ErrSourceHandleRequired
	}
	if cfg.Type == "" {
		return ErrSourceTypeRequired
	}
	if !validSourceTypes[strings.ToLower(cfg.Type)] {
		return fmt.Errorf("%w: %s", ErrUnknownSourceType, cfg.Type)
	}
	weight, err := decimal.NewFromString(cfg.Weight)
	if err != nil || weight.Sign() <= 0 {
		return fmt.Errorf("%w: %q", ErrInvalidSourceWeight, cfg.Weight)
	}
	if cfg.Decimals <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidSourceDecimals, cfg.Decimals)
	}
	return nil
}

func validatePairConfig(cfg *PairConfig, handles map[string]bool) error {
	if cfg.Symbol == "" {
		return ErrPairSymbolRequired
	}
	if cfg.Base == "" || cfg.Quote == "" {
		return ErrPairCurrencyRequired
	}
	if len(cfg.Sources) == 0 {
		return ErrPairNoSources
	}
	for _, handle := range cfg.Sources {
		if !handles[handle] {
			return fmt.Errorf("%w: %s", ErrPairUnknownSource, handle)
		}
	}
	return nil
}

func validateLoggingConfig(cfg *LoggingConfig) error {
	switch strings.ToLower(cfg.Level) {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return fmt.Errorf("%w: %s", ErrInvalidLogLevel, cfg.Level)
	}
	switch strings.ToLower(cfg.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("%w: %s", ErrInvalidLogFormat, cfg.Format)
	}
	return nil
}
