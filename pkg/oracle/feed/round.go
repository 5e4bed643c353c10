package feed

import (
	"context"
	"fmt"
	"math/big"
	"time"
)

// RoundData is one round reported by a round-based feed provider.
type RoundData struct {
	RoundID         uint64
	Answer          *big.Int
	UpdatedAt       time.Time
	AnsweredInRound uint64
}

// RoundClient is the round-based provider API consumed by RoundFeed.
type RoundClient interface {
	LatestRound(ctx context.Context) (RoundData, error)
}

// RoundFeed reads the latest completed round from a round-based provider.
// A round whose answer was computed in an earlier round is rejected, as
// are non-positive answers and zero timestamps. Readings older than the
// configured heartbeat fail with ErrStaleData.
type RoundFeed struct {
	client    RoundClient
	heartbeat time.Duration
}

// Ensure RoundFeed implements the Feed interface.
var _ Feed = (*RoundFeed)(nil)

// NewRoundFeed creates a round feed adapter over the given client.
func NewRoundFeed(client RoundClient, heartbeat time.Duration) *RoundFeed {
	return &RoundFeed{
		client:    client,
		heartbeat: heartbeat,
	}
}

// Type returns the capability family of this feed.
func (f *RoundFeed) Type() Type {
	return TypeRound
}

// Read returns the latest completed round as a raw reading.
func (f *RoundFeed) Read(ctx context.Context) (Reading, error) {
	round, err := f.client.LatestRound(ctx)
	if err != nil {
		return Reading{}, fmt.Errorf("%w: %v", ErrNoData, err)
	}

	// The answer must come from the round being reported; an older
	// answer carried forward means the current round is not complete.
	if round.AnsweredInRound < round.RoundID {
		return Reading{}, fmt.Errorf("%w: answer from round %d, current round %d",
			ErrNoData, round.AnsweredInRound, round.RoundID)
	}
	if round.Answer == nil || round.Answer.Sign() <= 0 {
		return Reading{}, fmt.Errorf("%w: non-positive answer", ErrMalformed)
	}
	if round.UpdatedAt.IsZero() || round.UpdatedAt.Unix() <= 0 {
		return Reading{}, fmt.Errorf("%w: zero timestamp", ErrMalformed)
	}
	if f.heartbeat > 0 {
		if age := time.Since(round.UpdatedAt); age > f.heartbeat {
			return Reading{}, fmt.Errorf("%w: last update %s ago exceeds heartbeat %s",
				ErrStaleData, age.Round(time.Second), f.heartbeat)
		}
	}

	return Reading{Value: round.Answer, Timestamp: round.UpdatedAt}, nil
}
