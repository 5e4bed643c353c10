// Package feed provides the adapters for the external price feed families.
package feed

import "errors"

var (
	// ErrNoData indicates that the feed has no reading to return.
	ErrNoData = errors.New("no data available")
	// ErrStaleData indicates that the latest reading exceeds the feed's heartbeat.
	ErrStaleData = errors.New("stale data")
	// ErrDisputed indicates that the latest reading is flagged as disputed.
	ErrDisputed = errors.New("reading is disputed")
	// ErrMalformed indicates that the reading decoded but failed validation.
	ErrMalformed = errors.New("malformed reading")
	// ErrUnknownFeedType indicates that no factory is registered for the type.
	ErrUnknownFeedType = errors.New("unknown feed type")
)
