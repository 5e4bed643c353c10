package aggregate

import (
	"context"
	"errors"
	"math/big"
	"time"

	"tc.com/price-aggregator/pkg/oracle/feed"
)

// SourcePrice is one entry of the diagnostic all-prices view. Price is
// the normalized reading in canonical precision, or zero if the read
// failed. Timestamp is the reading's observation time whenever one was
// decoded, so an excluded stale source still shows how old its data is.
// Disputed is only meaningful when DisputeCapable is true.
type SourcePrice struct {
	Handle         string
	Type           feed.Type
	Description    string
	Price          *big.Int
	Timestamp      time.Time
	DisputeCapable bool
	Disputed       bool
}

// AllPrices returns one entry per registered source of the pair,
// unfiltered by validity. It fails only if the pair itself is unknown
// or inactive.
func (s *Service) AllPrices(ctx context.Context, symbol string) ([]SourcePrice, error) {
	return s.allPrices(ctx, symbol, false)
}

// AllPricesWithStatus behaves like AllPrices and additionally reports,
// for dispute-capable sources, whether the most recent reading was
// flagged as disputed.
func (s *Service) AllPricesWithStatus(ctx context.Context, symbol string) ([]SourcePrice, error) {
	return s.allPrices(ctx, symbol, true)
}

func (s *Service) allPrices(ctx context.Context, symbol string, withStatus bool) ([]SourcePrice, error) {
	obs, err := s.fetchPair(ctx, symbol)
	if err != nil {
		return nil, err
	}

	views := make([]SourcePrice, 0, len(obs))
	for _, o := range obs {
		view := SourcePrice{
			Handle:      o.source.Handle,
			Type:        o.source.Type,
			Description: o.source.Description,
			Price:       new(big.Int),
			Timestamp:   o.reading.Timestamp,
		}
		if o.err == nil {
			view.Price = o.normalized
		}

		if aware, ok := o.source.Feed.(feed.DisputeAware); ok {
			view.DisputeCapable = true
			if withStatus {
				view.Disputed = s.disputeStatus(ctx, o, aware)
			}
		}

		views = append(views, view)
	}
	return views, nil
}

// disputeStatus resolves the dispute flag of the latest reading. A read
// that already failed with ErrDisputed answers without a second query.
func (s *Service) disputeStatus(ctx context.Context, o observation, aware feed.DisputeAware) bool {
	if o.err != nil && errors.Is(o.err, feed.ErrDisputed) {
		return true
	}
	disputed, err := aware.Disputed(ctx)
	if err != nil {
		s.logger.Debug("Dispute status lookup failed",
			"handle", o.source.Handle,
			"error", err.Error())
		return false
	}
	return disputed
}
