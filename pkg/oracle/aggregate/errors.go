// Package aggregate orchestrates pair resolution, parallel feed reads,
// normalization and combination.
package aggregate

import "errors"

var (
	// ErrInsufficientResponses indicates that fewer sources produced a
	// valid reading than the configured quorum requires.
	ErrInsufficientResponses = errors.New("insufficient valid responses")
	// ErrAssetPairInactive indicates that the pair exists but has been
	// deactivated.
	ErrAssetPairInactive = errors.New("asset pair inactive")
)
