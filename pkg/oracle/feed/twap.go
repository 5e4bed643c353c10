package feed

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// twapPrecision bounds the fractional digits carried through the tick
// exponentiation so intermediate values stay small and deterministic.
const twapPrecision = 40

// MaxTick is the largest average tick a pool can legitimately report;
// 1.0001^887272 spans the full representable price range of the
// reference tick math. Anything beyond it is a corrupt or hostile
// observation, and evaluating the power there would be unboundedly
// expensive.
const MaxTick = 887272

// TwapObservation is a pair of cumulative tick samples spaced one window apart.
type TwapObservation struct {
	// TickCumulative holds the older sample at index 0 and the newer at index 1.
	TickCumulative [2]int64
	// Timestamp is the time of the newer sample.
	Timestamp time.Time
}

// TwapClient is the liquidity-pool observation API consumed by TwapFeed.
type TwapClient interface {
	Observe(ctx context.Context, window time.Duration) (TwapObservation, error)
}

// TwapFeed derives a time-weighted average price from two cumulative
// tick observations: avgTick = (tick[1] - tick[0]) / windowSeconds,
// converted with price = 1.0001^avgTick and emitted at the feed's
// native precision. The adapter performs no freshness check of its own;
// callers apply their heartbeat to the returned timestamp.
type TwapFeed struct {
	client   TwapClient
	window   time.Duration
	decimals int32
}

// Ensure TwapFeed implements the Feed interface.
var _ Feed = (*TwapFeed)(nil)

// NewTwapFeed creates a TWAP feed adapter over the given client. The
// emitted raw values carry the given number of fractional decimals.
func NewTwapFeed(client TwapClient, window time.Duration, decimals uint8) *TwapFeed {
	return &TwapFeed{
		client:   client,
		window:   window,
		decimals: int32(decimals),
	}
}

// Type returns the capability family of this feed.
func (f *TwapFeed) Type() Type {
	return TypeTwap
}

// Read returns the time-weighted average price over the configured window.
func (f *TwapFeed) Read(ctx context.Context) (Reading, error) {
	secs := int64(f.window / time.Second)
	if secs <= 0 {
		return Reading{}, fmt.Errorf("%w: observation window below one second", ErrMalformed)
	}

	obs, err := f.client.Observe(ctx, f.window)
	if err != nil {
		return Reading{}, fmt.Errorf("%w: %v", ErrNoData, err)
	}
	if obs.Timestamp.IsZero() || obs.Timestamp.Unix() <= 0 {
		return Reading{}, fmt.Errorf("%w: zero timestamp", ErrMalformed)
	}

	avgTick := (obs.TickCumulative[1] - obs.TickCumulative[0]) / secs
	if avgTick > MaxTick || avgTick < -MaxTick {
		return Reading{}, fmt.Errorf("%w: average tick %d outside [-%d, %d]",
			ErrMalformed, avgTick, MaxTick, MaxTick)
	}
	price := TickToPrice(avgTick, f.decimals)
	if price.Sign() <= 0 {
		return Reading{}, fmt.Errorf("%w: tick %d converts to non-positive price", ErrMalformed, avgTick)
	}

	return Reading{Value: price, Timestamp: obs.Timestamp}, nil
}

// TickToPrice converts an average tick to a fixed-point price with the
// given number of fractional decimals: price = 1.0001^tick. The
// conversion is deterministic and strictly increasing in tick;
// fractional digits beyond twapPrecision are rounded away at each step.
// Callers must keep tick within [-MaxTick, MaxTick]; Read rejects
// anything outside that domain before converting.
func TickToPrice(tick int64, decimals int32) *big.Int {
	exp := tick
	neg := exp < 0
	if neg {
		exp = -exp
	}

	// Square-and-multiply over the decimal base.
	result := decimal.New(1, 0)
	square := decimal.NewFromFloat(1.0001)
	for e := exp; e > 0; e >>= 1 {
		if e&1 == 1 {
			result = result.Mul(square).Round(twapPrecision)
		}
		square = square.Mul(square).Round(twapPrecision)
	}

	if neg {
		result = decimal.New(1, 0).DivRound(result, twapPrecision)
	}

	return result.Shift(decimals).Truncate(0).BigInt()
}
