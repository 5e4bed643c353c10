package feed

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTwapClient struct {
	obs TwapObservation
	err error
}

func (c *fakeTwapClient) Observe(_ context.Context, _ time.Duration) (TwapObservation, error) {
	return c.obs, c.err
}

func TestTickToPrice_ZeroTick(t *testing.T) {
	// 1.0001^0 = 1
	result := TickToPrice(0, 18)
	expected := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	assert.Zero(t, result.Cmp(expected))
}

func TestTickToPrice_Deterministic(t *testing.T) {
	a := TickToPrice(12345, 18)
	b := TickToPrice(12345, 18)
	assert.Zero(t, a.Cmp(b))
}

func TestTickToPrice_Monotonic(t *testing.T) {
	ticks := []int64{-10000, -100, -1, 0, 1, 100, 10000}
	for i := 1; i < len(ticks); i++ {
		lower := TickToPrice(ticks[i-1], 18)
		higher := TickToPrice(ticks[i], 18)
		assert.Negative(t, lower.Cmp(higher),
			"expected price(%d) < price(%d)", ticks[i-1], ticks[i])
	}
}

func TestTickToPrice_KnownValue(t *testing.T) {
	// 1.0001^1000 = 1.105165... so the price at 6 decimals is 1105165.
	result := TickToPrice(1000, 6)
	assert.Equal(t, int64(1105165), result.Int64())
}

func TestTickToPrice_NegativeTick(t *testing.T) {
	// 1.0001^-1000 = 0.904841... so the price at 6 decimals is 904841.
	result := TickToPrice(-1000, 6)
	assert.Equal(t, int64(904841), result.Int64())
}

func TestTwapFeed_Read(t *testing.T) {
	now := time.Now()
	// (1800000 - 0) / 1800s = avgTick 1000
	f := NewTwapFeed(&fakeTwapClient{
		obs: TwapObservation{
			TickCumulative: [2]int64{0, 1800000},
			Timestamp:      now,
		},
	}, 1800*time.Second, 6)

	reading, err := f.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1105165), reading.Value.Int64())
	assert.Equal(t, now, reading.Timestamp)
	assert.Equal(t, TypeTwap, f.Type())
}

func TestTwapFeed_TickOutOfRange(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name  string
		ticks [2]int64
	}{
		// A delta of 2e18 over 1800s yields an average tick near 1.1e15;
		// evaluating the power there would take effectively forever, so
		// the read must be rejected before conversion.
		{name: "huge positive delta", ticks: [2]int64{0, 2_000_000_000_000_000_000}},
		{name: "huge negative delta", ticks: [2]int64{2_000_000_000_000_000_000, 0}},
		{name: "just above max", ticks: [2]int64{0, (MaxTick + 1) * 1800}},
		{name: "just below min", ticks: [2]int64{0, -(MaxTick + 1) * 1800}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewTwapFeed(&fakeTwapClient{
				obs: TwapObservation{TickCumulative: tt.ticks, Timestamp: now},
			}, 1800*time.Second, 18)

			start := time.Now()
			_, err := f.Read(context.Background())
			require.ErrorIs(t, err, ErrMalformed)
			assert.Less(t, time.Since(start), time.Second)
		})
	}
}

func TestTwapFeed_TickAtDomainEdge(t *testing.T) {
	now := time.Now()
	f := NewTwapFeed(&fakeTwapClient{
		obs: TwapObservation{TickCumulative: [2]int64{0, MaxTick * 1800}, Timestamp: now},
	}, 1800*time.Second, 18)

	reading, err := f.Read(context.Background())
	require.NoError(t, err)
	assert.Positive(t, reading.Value.Sign())
}

func TestTwapFeed_ClientError(t *testing.T) {
	f := NewTwapFeed(&fakeTwapClient{err: errors.New("pool unavailable")}, 1800*time.Second, 18)

	_, err := f.Read(context.Background())
	require.ErrorIs(t, err, ErrNoData)
}

func TestTwapFeed_ZeroWindow(t *testing.T) {
	f := NewTwapFeed(&fakeTwapClient{}, 0, 18)

	_, err := f.Read(context.Background())
	require.ErrorIs(t, err, ErrMalformed)
}

func TestTwapFeed_ZeroTimestamp(t *testing.T) {
	f := NewTwapFeed(&fakeTwapClient{
		obs: TwapObservation{TickCumulative: [2]int64{0, 1800000}},
	}, 1800*time.Second, 18)

	_, err := f.Read(context.Background())
	require.ErrorIs(t, err, ErrMalformed)
}
