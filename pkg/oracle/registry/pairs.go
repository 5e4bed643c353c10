package registry

import (
	"fmt"
	"sort"
	"sync"

	"tc.com/price-aggregator/pkg/logging"
	"tc.com/price-aggregator/pkg/metrics"
)

// Pair maps a symbol to its ordered source handles. Pairs are
// deactivated rather than deleted, so an unknown symbol stays
// distinguishable from a known-but-inactive one.
type Pair struct {
	Symbol  string
	Base    string
	Quote   string
	Sources []string
	Active  bool
}

// PairRegistry holds the registered asset pairs. Mutations are gated by
// the injected Authorizer; creation validates every referenced handle
// against the source registry.
type PairRegistry struct {
	mu      sync.RWMutex
	auth    Authorizer
	sources *SourceRegistry
	pairs   map[string]Pair
	logger  *logging.Logger
}

// NewPairRegistry creates an empty pair registry bound to a source registry.
func NewPairRegistry(auth Authorizer, sources *SourceRegistry, logger *logging.Logger) *PairRegistry {
	return &PairRegistry{
		auth:    auth,
		sources: sources,
		pairs:   make(map[string]Pair),
		logger:  logger,
	}
}

// AddPair registers a new pair, active by default. Symbol, base and
// quote must be non-empty, at least one source handle must be given and
// every handle must already be registered.
func (r *PairRegistry) AddPair(principal string, pair Pair) error {
	if err := r.auth.Authorize(principal); err != nil {
		return err
	}
	if pair.Symbol == "" || pair.Base == "" || pair.Quote == "" {
		return fmt.Errorf("%w: symbol, base and quote must be non-empty", ErrInvalidConfig)
	}
	if len(pair.Sources) == 0 {
		return fmt.Errorf("%w: pair %q needs at least one source", ErrInvalidConfig, pair.Symbol)
	}
	for _, handle := range pair.Sources {
		if _, err := r.sources.FindIndex(handle); err != nil {
			return fmt.Errorf("%w: pair %q references unknown source %q", ErrInvalidConfig, pair.Symbol, handle)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.pairs[pair.Symbol]; ok {
		return fmt.Errorf("%w: pair %q already registered", ErrInvalidConfig, pair.Symbol)
	}

	pair.Sources = append([]string(nil), pair.Sources...)
	pair.Active = true
	r.pairs[pair.Symbol] = pair
	metrics.SetRegisteredPairs(len(r.pairs))

	r.logger.Info("Registered pair",
		"symbol", pair.Symbol,
		"base", pair.Base,
		"quote", pair.Quote,
		"sources", len(pair.Sources))
	return nil
}

// SetActive flips the active flag of a known pair.
func (r *PairRegistry) SetActive(principal, symbol string, active bool) error {
	if err := r.auth.Authorize(principal); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	pair, ok := r.pairs[symbol]
	if !ok {
		return fmt.Errorf("%w: pair %q", ErrNotFound, symbol)
	}
	pair.Active = active
	r.pairs[symbol] = pair

	r.logger.Info("Set pair active flag", "symbol", symbol, "active", active)
	return nil
}

// Get returns a copy of the pair registered under symbol, whether or
// not it is active. Unknown symbols fail ErrNotFound.
func (r *PairRegistry) Get(symbol string) (Pair, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pair, ok := r.pairs[symbol]
	if !ok {
		return Pair{}, fmt.Errorf("%w: pair %q", ErrNotFound, symbol)
	}
	pair.Sources = append([]string(nil), pair.Sources...)
	return pair, nil
}

// Symbols returns the symbols of all registered pairs, sorted.
func (r *PairRegistry) Symbols() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	symbols := make([]string, 0, len(r.pairs))
	for symbol := range r.pairs {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

// ActiveSymbols returns the symbols of all active pairs, sorted.
func (r *PairRegistry) ActiveSymbols() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	symbols := make([]string, 0, len(r.pairs))
	for symbol, pair := range r.pairs {
		if pair.Active {
			symbols = append(symbols, symbol)
		}
	}
	sort.Strings(symbols)
	return symbols
}

// Len returns the number of registered pairs.
func (r *PairRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pairs)
}
