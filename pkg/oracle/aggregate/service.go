package aggregate

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"tc.com/price-aggregator/pkg/logging"
	"tc.com/price-aggregator/pkg/metrics"
	"tc.com/price-aggregator/pkg/oracle/combine"
	"tc.com/price-aggregator/pkg/oracle/feed"
	"tc.com/price-aggregator/pkg/oracle/price"
	"tc.com/price-aggregator/pkg/oracle/registry"
)

// Options configure the aggregation service.
type Options struct {
	CanonicalDecimals uint8
	MinimumResponses  int
	DefaultHeartbeat  time.Duration
}

// Service is the aggregation facade. Every query resolves the pair,
// fans out one read per registered source, excludes failed sources,
// normalizes the survivors and combines them. Queries never cache;
// each one recomputes from current reads.
type Service struct {
	sources *registry.SourceRegistry
	pairs   *registry.PairRegistry
	auth    registry.Authorizer
	logger  *logging.Logger

	mu                sync.RWMutex
	canonicalDecimals uint8
	minResponses      int
	defaultHeartbeat  time.Duration
}

// Aggregate holds both combination statistics in canonical precision.
type Aggregate struct {
	Median       *big.Int
	WeightedMean *big.Int
}

// NewService creates the aggregation facade over the given registries.
func NewService(sources *registry.SourceRegistry, pairs *registry.PairRegistry, auth registry.Authorizer, logger *logging.Logger, opts Options) *Service {
	decimals := opts.CanonicalDecimals
	if decimals == 0 {
		decimals = 18
	}
	minResponses := opts.MinimumResponses
	if minResponses < 1 {
		minResponses = 1
	}
	heartbeat := opts.DefaultHeartbeat
	if heartbeat <= 0 {
		heartbeat = 60 * time.Second
	}

	return &Service{
		sources:           sources,
		pairs:             pairs,
		auth:              auth,
		logger:            logger,
		canonicalDecimals: decimals,
		minResponses:      minResponses,
		defaultHeartbeat:  heartbeat,
	}
}

// CanonicalDecimals returns the canonical precision of all results.
func (s *Service) CanonicalDecimals() uint8 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.canonicalDecimals
}

// MinimumResponses returns the current quorum.
func (s *Service) MinimumResponses() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.minResponses
}

// SetMinimumResponses sets the quorum of valid sources required per
// aggregation. Administrator gated.
func (s *Service) SetMinimumResponses(principal string, n int) error {
	if err := s.auth.Authorize(principal); err != nil {
		return err
	}
	if n < 1 {
		return fmt.Errorf("%w: minimum responses must be at least 1", registry.ErrInvalidConfig)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.minResponses = n

	s.logger.Info("Set minimum responses", "value", n)
	return nil
}

// SetStalenessThreshold sets the heartbeat applied to sources that were
// registered without their own. Administrator gated.
func (s *Service) SetStalenessThreshold(principal string, d time.Duration) error {
	if err := s.auth.Authorize(principal); err != nil {
		return err
	}
	if d <= 0 {
		return fmt.Errorf("%w: staleness threshold must be positive", registry.ErrInvalidConfig)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaultHeartbeat = d

	s.logger.Info("Set staleness threshold", "value", d.String())
	return nil
}

// MedianPrice returns the median of all valid source prices for the
// pair, in canonical precision.
func (s *Service) MedianPrice(ctx context.Context, symbol string) (*big.Int, error) {
	start := time.Now()
	defer func() {
		metrics.RecordAggregation("median", time.Since(start))
	}()

	obs, err := s.fetchPair(ctx, symbol)
	if err != nil {
		return nil, err
	}

	values := make([]*big.Int, 0, len(obs))
	for _, o := range obs {
		if o.err != nil {
			continue
		}
		values = append(values, o.normalized)
	}
	if err := s.checkQuorum(symbol, len(values), len(obs)); err != nil {
		return nil, err
	}

	return combine.Median(values)
}

// WeightedPrice returns the weight-weighted mean of all valid source
// prices for the pair, in canonical precision.
func (s *Service) WeightedPrice(ctx context.Context, symbol string) (*big.Int, error) {
	start := time.Now()
	defer func() {
		metrics.RecordAggregation("weighted", time.Since(start))
	}()

	obs, err := s.fetchPair(ctx, symbol)
	if err != nil {
		return nil, err
	}

	pairs := make([]combine.Weighted, 0, len(obs))
	for _, o := range obs {
		if o.err != nil {
			continue
		}
		pairs = append(pairs, combine.Weighted{
			Value:  o.normalized,
			Weight: o.source.Weight,
		})
	}
	if err := s.checkQuorum(symbol, len(pairs), len(obs)); err != nil {
		return nil, err
	}

	return combine.WeightedMean(pairs)
}

// AggregatedPrice returns both statistics. The median and the weighted
// mean come from two independent fetch rounds and may observe different
// readings; the pair of results is not atomic.
func (s *Service) AggregatedPrice(ctx context.Context, symbol string) (Aggregate, error) {
	median, err := s.MedianPrice(ctx, symbol)
	if err != nil {
		return Aggregate{}, err
	}
	weighted, err := s.WeightedPrice(ctx, symbol)
	if err != nil {
		return Aggregate{}, err
	}
	return Aggregate{Median: median, WeightedMean: weighted}, nil
}

// observation is the outcome of one per-source read.
type observation struct {
	source     registry.Source
	reading    feed.Reading
	normalized *big.Int
	err        error
}

// fetchPair resolves the pair and fans out one read per registered
// source. Any subset of reads may fail without affecting the rest;
// failed observations carry their error.
func (s *Service) fetchPair(ctx context.Context, symbol string) ([]observation, error) {
	pair, err := s.pairs.Get(symbol)
	if err != nil {
		return nil, err
	}
	if !pair.Active {
		return nil, fmt.Errorf("%w: %s", ErrAssetPairInactive, symbol)
	}

	srcs := make([]registry.Source, 0, len(pair.Sources))
	for _, handle := range pair.Sources {
		src, err := s.sources.Get(handle)
		if err != nil {
			// Source removed since the pair was created.
			s.logger.Debug("Pair references removed source", "symbol", symbol, "handle", handle)
			continue
		}
		srcs = append(srcs, src)
	}

	return s.fetchAll(ctx, srcs), nil
}

// fetchAll executes one read per source in parallel, each bounded by
// the source's own heartbeat. A source that cannot answer within its
// freshness budget is excluded without blocking the rest.
func (s *Service) fetchAll(ctx context.Context, srcs []registry.Source) []observation {
	s.mu.RLock()
	decimals := s.canonicalDecimals
	fallbackHeartbeat := s.defaultHeartbeat
	s.mu.RUnlock()

	obs := make([]observation, len(srcs))

	g := new(errgroup.Group)
	for i := range srcs {
		i := i
		src := srcs[i]
		g.Go(func() error {
			heartbeat := src.Heartbeat
			if heartbeat <= 0 {
				heartbeat = fallbackHeartbeat
			}

			readCtx, cancel := context.WithTimeout(ctx, heartbeat)
			defer cancel()

			reading, err := src.Feed.Read(readCtx)
			if err == nil {
				err = checkFresh(reading, heartbeat)
			}

			o := observation{source: src, reading: reading, err: err}
			if err == nil {
				o.normalized = price.Normalize(reading.Value, src.Decimals, decimals)
				metrics.RecordFeedRead(src.Handle, string(src.Type), "ok")
			} else {
				reason := failureReason(err)
				metrics.RecordFeedRead(src.Handle, string(src.Type), reason)
				metrics.RecordSourceExclusion(src.Handle, reason)
				s.logger.Debug("Excluding source from round",
					"handle", src.Handle,
					"type", string(src.Type),
					"error", err.Error())
			}
			obs[i] = o
			return nil
		})
	}
	_ = g.Wait()

	return obs
}

// checkFresh applies the standard heartbeat check to a reading.
func checkFresh(reading feed.Reading, heartbeat time.Duration) error {
	if reading.Value == nil {
		return feed.ErrNoData
	}
	if age := time.Since(reading.Timestamp); age > heartbeat {
		return fmt.Errorf("%w: reading %s old exceeds heartbeat %s",
			feed.ErrStaleData, age.Round(time.Second), heartbeat)
	}
	return nil
}

// checkQuorum enforces the minimum-responses requirement.
func (s *Service) checkQuorum(symbol string, valid, total int) error {
	minResponses := s.MinimumResponses()
	if valid >= minResponses {
		return nil
	}
	metrics.RecordQuorumFailure(symbol)
	return fmt.Errorf("%w: %d of %d sources valid, need %d",
		ErrInsufficientResponses, valid, total, minResponses)
}

// failureReason maps a per-source error to its taxonomy bucket.
func failureReason(err error) string {
	switch {
	case errors.Is(err, feed.ErrStaleData):
		return "stale"
	case errors.Is(err, feed.ErrDisputed):
		return "disputed"
	case errors.Is(err, feed.ErrMalformed):
		return "malformed"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "no_data"
	}
}
