package registry

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"tc.com/price-aggregator/pkg/logging"
	"tc.com/price-aggregator/pkg/metrics"
	"tc.com/price-aggregator/pkg/oracle/feed"
)

// Source is one registered price source. Weight is a positive
// fixed-point value (see price.WeightDecimals); Decimals is the native
// precision of the feed's raw values. The Weight pointer is treated as
// immutable once stored so snapshots stay consistent.
type Source struct {
	Handle      string
	Type        feed.Type
	Weight      *big.Int
	Heartbeat   time.Duration
	Decimals    uint8
	Description string
	Feed        feed.Feed
}

// SourceRegistry holds the registered sources. Mutations are gated by
// the injected Authorizer and serialized under the write lock; reads
// operate on copied snapshots so a racing mutation yields either the
// pre- or post-mutation state.
type SourceRegistry struct {
	mu      sync.RWMutex
	auth    Authorizer
	sources []Source
	logger  *logging.Logger
}

// NewSourceRegistry creates an empty source registry.
func NewSourceRegistry(auth Authorizer, logger *logging.Logger) *SourceRegistry {
	return &SourceRegistry{
		auth:   auth,
		logger: logger,
	}
}

// AddSource appends a new source. It rejects empty handles, missing or
// non-positive weights, zero decimals, nil feeds and duplicate handles.
func (r *SourceRegistry) AddSource(principal string, src Source) error {
	if err := r.auth.Authorize(principal); err != nil {
		return err
	}
	if src.Handle == "" {
		return fmt.Errorf("%w: empty handle", ErrInvalidConfig)
	}
	if src.Weight == nil || src.Weight.Sign() <= 0 {
		return fmt.Errorf("%w: weight must be positive", ErrInvalidConfig)
	}
	if src.Decimals == 0 {
		return fmt.Errorf("%w: decimals must be positive", ErrInvalidConfig)
	}
	if src.Feed == nil {
		return fmt.Errorf("%w: nil feed", ErrInvalidConfig)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexOf(src.Handle) >= 0 {
		return fmt.Errorf("%w: handle %q already registered", ErrInvalidConfig, src.Handle)
	}

	src.Weight = new(big.Int).Set(src.Weight)
	r.sources = append(r.sources, src)
	metrics.SetRegisteredSources(len(r.sources))

	r.logger.Info("Registered source",
		"handle", src.Handle,
		"type", string(src.Type),
		"decimals", src.Decimals)
	return nil
}

// RemoveSource removes a source by swapping the last entry into its
// place and truncating; ordering is not stable across removals.
func (r *SourceRegistry) RemoveSource(principal, handle string) error {
	if err := r.auth.Authorize(principal); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(handle)
	if i < 0 {
		return fmt.Errorf("%w: source %q", ErrNotFound, handle)
	}

	last := len(r.sources) - 1
	r.sources[i] = r.sources[last]
	r.sources = r.sources[:last]
	metrics.SetRegisteredSources(len(r.sources))

	r.logger.Info("Removed source", "handle", handle)
	return nil
}

// UpdateWeight replaces the weight of an existing source.
func (r *SourceRegistry) UpdateWeight(principal, handle string, weight *big.Int) error {
	if err := r.auth.Authorize(principal); err != nil {
		return err
	}
	if weight == nil || weight.Sign() <= 0 {
		return fmt.Errorf("%w: weight must be positive", ErrInvalidConfig)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(handle)
	if i < 0 {
		return fmt.Errorf("%w: source %q", ErrNotFound, handle)
	}

	// A fresh pointer rather than mutating in place, so snapshots taken
	// before the update keep the old weight.
	r.sources[i].Weight = new(big.Int).Set(weight)

	r.logger.Info("Updated source weight", "handle", handle, "weight", weight.String())
	return nil
}

// FindIndex returns the position of a handle in the collection. The
// scan is linear; registry sizes are expected to stay in the low
// hundreds.
func (r *SourceRegistry) FindIndex(handle string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.indexOf(handle)
	if i < 0 {
		return 0, fmt.Errorf("%w: source %q", ErrNotFound, handle)
	}
	return i, nil
}

// Get returns a copy of the source registered under handle.
func (r *SourceRegistry) Get(handle string) (Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.indexOf(handle)
	if i < 0 {
		return Source{}, fmt.Errorf("%w: source %q", ErrNotFound, handle)
	}
	return r.sources[i], nil
}

// Snapshot returns a copy of the current collection.
func (r *SourceRegistry) Snapshot() []Source {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Source, len(r.sources))
	copy(out, r.sources)
	return out
}

// Len returns the number of registered sources.
func (r *SourceRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sources)
}

// indexOf must be called with at least the read lock held.
func (r *SourceRegistry) indexOf(handle string) int {
	for i := range r.sources {
		if r.sources[i].Handle == handle {
			return i
		}
	}
	return -1
}
