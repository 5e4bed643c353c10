package aggregate

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tc.com/price-aggregator/pkg/logging"
	"tc.com/price-aggregator/pkg/oracle/feed"
	"tc.com/price-aggregator/pkg/oracle/registry"
)

const admin = "admin"

// stubFeed answers every read with a fixed value and timestamp, or with
// a fixed error.
type stubFeed struct {
	feedType  feed.Type
	value     *big.Int
	timestamp time.Time
	err       error
}

func (f *stubFeed) Read(_ context.Context) (feed.Reading, error) {
	if f.err != nil {
		return feed.Reading{}, f.err
	}
	return feed.Reading{Value: new(big.Int).Set(f.value), Timestamp: f.timestamp}, nil
}

func (f *stubFeed) Type() feed.Type {
	return f.feedType
}

// disputedFeed is a dispute-capable stub whose latest record is flagged.
type disputedFeed struct {
	stubFeed
}

func (f *disputedFeed) Disputed(_ context.Context) (bool, error) {
	return true, nil
}

var _ feed.DisputeAware = (*disputedFeed)(nil)

// bigE returns coeff * 10^exp.
func bigE(coeff int64, exp uint) *big.Int {
	pow := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(exp)), nil)
	return pow.Mul(pow, big.NewInt(coeff))
}

// weight returns w in the registry's fixed-point representation.
func weight(w int64) *big.Int {
	return big.NewInt(w * 10000)
}

type fixtureSource struct {
	handle   string
	decimals uint8
	weight   *big.Int
	feed     feed.Feed
}

// newTestService wires a service over the given sources and one active
// ETH/USD pair referencing all of them.
func newTestService(t *testing.T, opts Options, srcs ...fixtureSource) *Service {
	t.Helper()

	auth := registry.NewSingleAdmin(admin)
	logger := logging.NewNoopLogger()
	sources := registry.NewSourceRegistry(auth, logger)
	pairs := registry.NewPairRegistry(auth, sources, logger)

	handles := make([]string, 0, len(srcs))
	for _, s := range srcs {
		require.NoError(t, sources.AddSource(admin, registry.Source{
			Handle:    s.handle,
			Type:      s.feed.Type(),
			Weight:    s.weight,
			Heartbeat: time.Minute,
			Decimals:  s.decimals,
			Feed:      s.feed,
		}))
		handles = append(handles, s.handle)
	}
	require.NoError(t, pairs.AddPair(admin, registry.Pair{
		Symbol:  "ETH/USD",
		Base:    "ETH",
		Quote:   "USD",
		Sources: handles,
	}))

	return NewService(sources, pairs, auth, logger, opts)
}

// threeSources is the canonical fixture: 3100 at 8 native decimals with
// weight 2, and 2900 and 3000 at 18 native decimals with weight 1 each.
func threeSources(now time.Time) []fixtureSource {
	return []fixtureSource{
		{handle: "round-8dec", decimals: 8, weight: weight(2),
			feed: &stubFeed{feedType: feed.TypeRound, value: bigE(3100, 8), timestamp: now}},
		{handle: "proxy-low", decimals: 18, weight: weight(1),
			feed: &stubFeed{feedType: feed.TypeProxy, value: bigE(2900, 18), timestamp: now}},
		{handle: "proxy-high", decimals: 18, weight: weight(1),
			feed: &stubFeed{feedType: feed.TypeProxy, value: bigE(3000, 18), timestamp: now}},
	}
}

func TestService_MedianPrice(t *testing.T) {
	svc := newTestService(t, Options{}, threeSources(time.Now())...)

	got, err := svc.MedianPrice(context.Background(), "ETH/USD")
	require.NoError(t, err)
	assert.Zero(t, got.Cmp(bigE(3000, 18)))
}

func TestService_WeightedPrice(t *testing.T) {
	svc := newTestService(t, Options{}, threeSources(time.Now())...)

	// (3100*2 + 2900*1 + 3000*1) / 4 = 3025, in canonical precision.
	got, err := svc.WeightedPrice(context.Background(), "ETH/USD")
	require.NoError(t, err)
	assert.Zero(t, got.Cmp(bigE(3025, 18)))
}

func TestService_AggregatedPrice(t *testing.T) {
	svc := newTestService(t, Options{}, threeSources(time.Now())...)

	got, err := svc.AggregatedPrice(context.Background(), "ETH/USD")
	require.NoError(t, err)
	assert.Zero(t, got.Median.Cmp(bigE(3000, 18)))
	assert.Zero(t, got.WeightedMean.Cmp(bigE(3025, 18)))
}

func TestService_Deterministic(t *testing.T) {
	svc := newTestService(t, Options{}, threeSources(time.Now())...)

	first, err := svc.MedianPrice(context.Background(), "ETH/USD")
	require.NoError(t, err)
	second, err := svc.MedianPrice(context.Background(), "ETH/USD")
	require.NoError(t, err)
	assert.Zero(t, first.Cmp(second))
}

func TestService_UnknownPair(t *testing.T) {
	svc := newTestService(t, Options{}, threeSources(time.Now())...)

	_, err := svc.MedianPrice(context.Background(), "DOGE/USD")
	require.ErrorIs(t, err, registry.ErrNotFound)
}

func TestService_InactivePair(t *testing.T) {
	auth := registry.NewSingleAdmin(admin)
	logger := logging.NewNoopLogger()
	sources := registry.NewSourceRegistry(auth, logger)
	pairs := registry.NewPairRegistry(auth, sources, logger)

	require.NoError(t, sources.AddSource(admin, registry.Source{
		Handle:    "proxy-a",
		Type:      feed.TypeProxy,
		Weight:    weight(1),
		Heartbeat: time.Minute,
		Decimals:  18,
		Feed:      &stubFeed{feedType: feed.TypeProxy, value: bigE(3000, 18), timestamp: time.Now()},
	}))
	require.NoError(t, pairs.AddPair(admin, registry.Pair{
		Symbol: "ETH/USD", Base: "ETH", Quote: "USD", Sources: []string{"proxy-a"},
	}))
	require.NoError(t, pairs.SetActive(admin, "ETH/USD", false))

	svc := NewService(sources, pairs, auth, logger, Options{})
	_, err := svc.MedianPrice(context.Background(), "ETH/USD")
	require.ErrorIs(t, err, ErrAssetPairInactive)

	// Reactivation restores service without re-registration.
	require.NoError(t, pairs.SetActive(admin, "ETH/USD", true))
	_, err = svc.MedianPrice(context.Background(), "ETH/USD")
	require.NoError(t, err)
}

func TestService_StaleSourceExcluded(t *testing.T) {
	now := time.Now()
	srcs := threeSources(now)
	srcs[1].feed = &stubFeed{
		feedType:  feed.TypeProxy,
		value:     bigE(1, 18),
		timestamp: now.Add(-2 * time.Hour),
	}
	svc := newTestService(t, Options{}, srcs...)

	// The stale outlier at 1 drops out; the median of the two survivors
	// is their truncated average.
	got, err := svc.MedianPrice(context.Background(), "ETH/USD")
	require.NoError(t, err)
	assert.Zero(t, got.Cmp(bigE(3050, 18)))
}

func TestService_FailedSourceExcluded(t *testing.T) {
	now := time.Now()
	srcs := threeSources(now)
	srcs[0].feed = &stubFeed{feedType: feed.TypeRound, err: feed.ErrMalformed}
	svc := newTestService(t, Options{}, srcs...)

	got, err := svc.MedianPrice(context.Background(), "ETH/USD")
	require.NoError(t, err)
	assert.Zero(t, got.Cmp(bigE(2950, 18)))
}

func TestService_DisputedSourceExcluded(t *testing.T) {
	now := time.Now()
	srcs := threeSources(now)
	srcs[2].feed = &disputedFeed{stubFeed{feedType: feed.TypeDispute, err: feed.ErrDisputed}}
	svc := newTestService(t, Options{}, srcs...)

	got, err := svc.WeightedPrice(context.Background(), "ETH/USD")
	require.NoError(t, err)
	// (3100*2 + 2900*1) / 3 = 3033.33..., truncated.
	want, ok := new(big.Int).SetString("3033333333333333333333", 10)
	require.True(t, ok)
	assert.Zero(t, got.Cmp(want))
}

func TestService_Quorum(t *testing.T) {
	now := time.Now()
	srcs := threeSources(now)
	srcs[0].feed = &stubFeed{feedType: feed.TypeRound, err: feed.ErrStaleData}
	srcs[1].feed = &stubFeed{feedType: feed.TypeProxy, err: feed.ErrNoData}
	svc := newTestService(t, Options{MinimumResponses: 2}, srcs...)

	_, err := svc.MedianPrice(context.Background(), "ETH/USD")
	require.ErrorIs(t, err, ErrInsufficientResponses)

	// Default quorum of one would have accepted the same round.
	require.NoError(t, svc.SetMinimumResponses(admin, 1))
	got, err := svc.MedianPrice(context.Background(), "ETH/USD")
	require.NoError(t, err)
	assert.Zero(t, got.Cmp(bigE(3000, 18)))
}

func TestService_AllSourcesFail(t *testing.T) {
	svc := newTestService(t, Options{}, fixtureSource{
		handle: "proxy-a", decimals: 18, weight: weight(1),
		feed: &stubFeed{feedType: feed.TypeProxy, err: feed.ErrNoData},
	})

	_, err := svc.MedianPrice(context.Background(), "ETH/USD")
	require.ErrorIs(t, err, ErrInsufficientResponses)
}

func TestService_SetMinimumResponses(t *testing.T) {
	svc := newTestService(t, Options{}, threeSources(time.Now())...)

	require.ErrorIs(t, svc.SetMinimumResponses("mallory", 2), registry.ErrUnauthorized)
	require.ErrorIs(t, svc.SetMinimumResponses(admin, 0), registry.ErrInvalidConfig)
	require.NoError(t, svc.SetMinimumResponses(admin, 2))
	assert.Equal(t, 2, svc.MinimumResponses())
}

func TestService_SetStalenessThreshold(t *testing.T) {
	svc := newTestService(t, Options{}, threeSources(time.Now())...)

	require.ErrorIs(t, svc.SetStalenessThreshold("mallory", time.Minute), registry.ErrUnauthorized)
	require.ErrorIs(t, svc.SetStalenessThreshold(admin, 0), registry.ErrInvalidConfig)
	require.NoError(t, svc.SetStalenessThreshold(admin, 5*time.Minute))
}

func TestService_StalenessThresholdAppliesDynamically(t *testing.T) {
	auth := registry.NewSingleAdmin(admin)
	logger := logging.NewNoopLogger()
	sources := registry.NewSourceRegistry(auth, logger)
	pairs := registry.NewPairRegistry(auth, sources, logger)

	// No per-source heartbeat: the source follows the service default.
	require.NoError(t, sources.AddSource(admin, registry.Source{
		Handle:   "proxy-a",
		Type:     feed.TypeProxy,
		Weight:   weight(1),
		Decimals: 18,
		Feed: &stubFeed{
			feedType:  feed.TypeProxy,
			value:     bigE(3000, 18),
			timestamp: time.Now().Add(-30 * time.Minute),
		},
	}))
	require.NoError(t, pairs.AddPair(admin, registry.Pair{
		Symbol: "ETH/USD", Base: "ETH", Quote: "USD", Sources: []string{"proxy-a"},
	}))

	svc := NewService(sources, pairs, auth, logger, Options{DefaultHeartbeat: time.Minute})

	// Under the one minute default the half hour old reading is stale.
	_, err := svc.MedianPrice(context.Background(), "ETH/USD")
	require.ErrorIs(t, err, ErrInsufficientResponses)

	// Raising the threshold on the live service changes the cutoff.
	require.NoError(t, svc.SetStalenessThreshold(admin, time.Hour))
	got, err := svc.MedianPrice(context.Background(), "ETH/USD")
	require.NoError(t, err)
	assert.Zero(t, got.Cmp(bigE(3000, 18)))
}

func TestService_AllPrices(t *testing.T) {
	now := time.Now()
	srcs := threeSources(now)
	srcs[1].feed = &stubFeed{feedType: feed.TypeProxy, err: feed.ErrNoData}
	svc := newTestService(t, Options{}, srcs...)

	views, err := svc.AllPrices(context.Background(), "ETH/USD")
	require.NoError(t, err)
	require.Len(t, views, 3)

	// Successful reads carry their normalized price; the failed read
	// reports zero rather than dropping out of the view.
	assert.Equal(t, "round-8dec", views[0].Handle)
	assert.Zero(t, views[0].Price.Cmp(bigE(3100, 18)))
	assert.Equal(t, "proxy-low", views[1].Handle)
	assert.Zero(t, views[1].Price.Sign())
	assert.Zero(t, views[2].Price.Cmp(bigE(3000, 18)))
}

func TestService_AllPrices_StaleKeepsTimestamp(t *testing.T) {
	now := time.Now()
	staleAt := now.Add(-2 * time.Hour)
	srcs := threeSources(now)
	srcs[1].feed = &stubFeed{
		feedType:  feed.TypeProxy,
		value:     bigE(2900, 18),
		timestamp: staleAt,
	}
	svc := newTestService(t, Options{}, srcs...)

	views, err := svc.AllPrices(context.Background(), "ETH/USD")
	require.NoError(t, err)
	require.Len(t, views, 3)

	// The stale source reports zero but keeps its reading's timestamp,
	// so operators can see how old the excluded data is.
	assert.Zero(t, views[1].Price.Sign())
	assert.True(t, views[1].Timestamp.Equal(staleAt))
}

func TestService_AllPricesWithStatus(t *testing.T) {
	now := time.Now()
	srcs := threeSources(now)
	srcs[2].feed = &disputedFeed{stubFeed{
		feedType:  feed.TypeDispute,
		value:     bigE(3000, 18),
		timestamp: now,
	}}
	svc := newTestService(t, Options{}, srcs...)

	views, err := svc.AllPricesWithStatus(context.Background(), "ETH/USD")
	require.NoError(t, err)
	require.Len(t, views, 3)

	assert.False(t, views[0].DisputeCapable)
	assert.False(t, views[1].DisputeCapable)
	assert.True(t, views[2].DisputeCapable)
	assert.True(t, views[2].Disputed)
}

func TestService_RemovedSourceSkipped(t *testing.T) {
	auth := registry.NewSingleAdmin(admin)
	logger := logging.NewNoopLogger()
	sources := registry.NewSourceRegistry(auth, logger)
	pairs := registry.NewPairRegistry(auth, sources, logger)

	now := time.Now()
	for _, s := range threeSources(now) {
		require.NoError(t, sources.AddSource(admin, registry.Source{
			Handle:    s.handle,
			Type:      s.feed.Type(),
			Weight:    s.weight,
			Heartbeat: time.Minute,
			Decimals:  s.decimals,
			Feed:      s.feed,
		}))
	}
	require.NoError(t, pairs.AddPair(admin, registry.Pair{
		Symbol: "ETH/USD", Base: "ETH", Quote: "USD",
		Sources: []string{"round-8dec", "proxy-low", "proxy-high"},
	}))

	// A pair may outlive one of its sources; the dangling handle is
	// skipped and the rest still aggregate.
	require.NoError(t, sources.RemoveSource(admin, "proxy-low"))

	svc := NewService(sources, pairs, auth, logger, Options{})
	got, err := svc.MedianPrice(context.Background(), "ETH/USD")
	require.NoError(t, err)
	assert.Zero(t, got.Cmp(bigE(3050, 18)))
}
