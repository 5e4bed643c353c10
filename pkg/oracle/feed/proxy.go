package feed

import (
	"context"
	"fmt"
	"math/big"
	"time"
)

// ProxyClient is the simple read API consumed by ProxyFeed.
type ProxyClient interface {
	LatestValue(ctx context.Context) (*big.Int, time.Time, error)
}

// ProxyFeed reads a plain (value, timestamp) pair. Freshness is the
// caller's concern; the facade applies the standard heartbeat check.
type ProxyFeed struct {
	client ProxyClient
}

// Ensure ProxyFeed implements the Feed interface.
var _ Feed = (*ProxyFeed)(nil)

// NewProxyFeed creates a proxy feed adapter over the given client.
func NewProxyFeed(client ProxyClient) *ProxyFeed {
	return &ProxyFeed{client: client}
}

// Type returns the capability family of this feed.
func (f *ProxyFeed) Type() Type {
	return TypeProxy
}

// Read returns the latest value reported by the proxy.
func (f *ProxyFeed) Read(ctx context.Context) (Reading, error) {
	value, ts, err := f.client.LatestValue(ctx)
	if err != nil {
		return Reading{}, fmt.Errorf("%w: %v", ErrNoData, err)
	}
	if value == nil {
		return Reading{}, fmt.Errorf("%w: empty value", ErrNoData)
	}
	if value.Sign() <= 0 {
		return Reading{}, fmt.Errorf("%w: non-positive value", ErrMalformed)
	}
	if ts.IsZero() || ts.Unix() <= 0 {
		return Reading{}, fmt.Errorf("%w: zero timestamp", ErrMalformed)
	}
	return Reading{Value: value, Timestamp: ts}, nil
}
