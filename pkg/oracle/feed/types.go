// Package feed provides the adapters for the external price feed families.
//
// Every adapter implements the same Read contract: return the latest raw
// value in the feed's native fixed-point precision together with the time
// it was observed. Adapters never reach the network themselves; each one
// is constructed over a small client interface that the embedding
// application binds to a concrete provider.
package feed

import (
	"context"
	"math/big"
	"time"
)

// Type identifies the capability family of a price feed.
type Type string

const (
	// TypeRound reads completed rounds from a round-based feed.
	TypeRound Type = "round"
	// TypeTwap derives a time-weighted average price from cumulative tick observations.
	TypeTwap Type = "twap"
	// TypeDispute reads crowd-reported values that carry a dispute flag.
	TypeDispute Type = "dispute"
	// TypeProxy reads a plain (value, timestamp) pair.
	TypeProxy Type = "proxy"
)

// Reading is one raw observation taken from a feed. Value is in the
// feed's native fixed-point precision.
type Reading struct {
	Value     *big.Int
	Timestamp time.Time
}

// Feed is the uniform read interface implemented by all feed adapters.
type Feed interface {
	// Read returns the latest raw value and the time it was observed.
	Read(ctx context.Context) (Reading, error)

	// Type returns the capability family of this feed.
	Type() Type
}

// DisputeAware is implemented by feeds whose readings carry a dispute flag.
type DisputeAware interface {
	// Disputed reports whether the most recent reading is flagged as disputed.
	Disputed(ctx context.Context) (bool, error)
}
