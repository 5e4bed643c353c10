// Package config provides configuration loading and validation for the price aggregator.
package config

import "errors"

var (
	// ErrAdminRequired indicates that an administrator principal must be configured.
	ErrAdminRequired = errors.New("oracle.admin must be specified")
	// ErrInvalidCanonicalDecimals indicates an out-of-range canonical precision.
	ErrInvalidCanonicalDecimals = errors.New("canonical_decimals must be between 1 and 38")
	// ErrInvalidMinimumResponses indicates an invalid quorum setting.
	ErrInvalidMinimumResponses = errors.New("minimum_responses must be at least 1")
	// ErrNoSourcesConfigured indicates that no price sources are configured.
	ErrNoSourcesConfigured = errors.New("at least one price source must be configured")
	// ErrSourceHandleRequired indicates that a source handle is missing.
	ErrSourceHandleRequired = errors.New("source handle is required")
	// ErrSourceTypeRequired indicates that a source type is missing.
	ErrSourceTypeRequired = errors.New("source type is required")
	// ErrUnknownSourceType indicates that the source type is unknown.
	ErrUnknownSourceType = errors.New("unknown source type")
	// ErrInvalidSourceWeight indicates a missing or non-positive source weight.
	ErrInvalidSourceWeight = errors.New("source weight must be a positive decimal")
	// ErrInvalidSourceDecimals indicates a non-positive native precision.
	ErrInvalidSourceDecimals = errors.New("source decimals must be positive")
	// ErrDuplicateSourceHandle indicates that a handle appears twice.
	ErrDuplicateSourceHandle = errors.New("duplicate source handle")
	// ErrPairSymbolRequired indicates that a pair symbol is missing.
	ErrPairSymbolRequired = errors.New("pair symbol is required")
	// ErrPairCurrencyRequired indicates that a pair base or quote is missing.
	ErrPairCurrencyRequired = errors.New("pair base and quote are required")
	// ErrPairNoSources indicates that a pair references no sources.
	ErrPairNoSources = errors.New("pair must reference at least one source")
	// ErrPairUnknownSource indicates that a pair references an unconfigured source.
	ErrPairUnknownSource = errors.New("pair references unknown source handle")
	// ErrDuplicatePairSymbol indicates that a pair symbol appears twice.
	ErrDuplicatePairSymbol = errors.New("duplicate pair symbol")
	// ErrTLSConfigIncomplete indicates that TLS config is incomplete.
	ErrTLSConfigIncomplete = errors.New("TLS cert and key must be specified when TLS is enabled")
	// ErrInvalidLogLevel indicates that the log level is invalid.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidLogFormat indicates that the log format is invalid.
	ErrInvalidLogFormat = errors.New("invalid log format")
)
