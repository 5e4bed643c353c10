package feed

import (
	"context"
	"fmt"
	"math/big"
	"time"
)

// DisputeRecord is one crowd-reported value together with its dispute flag.
type DisputeRecord struct {
	Value     *big.Int
	Timestamp time.Time
	Disputed  bool
}

// DisputeClient is the crowd-reported value store consumed by DisputeFeed.
type DisputeClient interface {
	// Latest returns the most recent record.
	Latest(ctx context.Context) (DisputeRecord, error)
	// Before returns the newest record observed strictly before ts.
	Before(ctx context.Context, ts time.Time) (DisputeRecord, error)
	// After returns the oldest record observed strictly after ts.
	After(ctx context.Context, ts time.Time) (DisputeRecord, error)
	// Between returns all records observed in [from, to].
	Between(ctx context.Context, from, to time.Time) ([]DisputeRecord, error)
}

// DisputeFeed reads crowd-reported values. A disputed record is treated
// as invalid regardless of whether it decoded; every query variant
// pre-filters disputed entries.
type DisputeFeed struct {
	client DisputeClient
}

// Ensure DisputeFeed implements the Feed and DisputeAware interfaces.
var (
	_ Feed         = (*DisputeFeed)(nil)
	_ DisputeAware = (*DisputeFeed)(nil)
)

// NewDisputeFeed creates a dispute feed adapter over the given client.
func NewDisputeFeed(client DisputeClient) *DisputeFeed {
	return &DisputeFeed{client: client}
}

// Type returns the capability family of this feed.
func (f *DisputeFeed) Type() Type {
	return TypeDispute
}

// Read returns the most recent undisputed record.
func (f *DisputeFeed) Read(ctx context.Context) (Reading, error) {
	record, err := f.client.Latest(ctx)
	if err != nil {
		return Reading{}, fmt.Errorf("%w: %v", ErrNoData, err)
	}
	return checkRecord(record)
}

// ReadBefore returns the newest undisputed record observed strictly before ts.
func (f *DisputeFeed) ReadBefore(ctx context.Context, ts time.Time) (Reading, error) {
	record, err := f.client.Before(ctx, ts)
	if err != nil {
		return Reading{}, fmt.Errorf("%w: %v", ErrNoData, err)
	}
	return checkRecord(record)
}

// ReadAfter returns the oldest undisputed record observed strictly after ts.
func (f *DisputeFeed) ReadAfter(ctx context.Context, ts time.Time) (Reading, error) {
	record, err := f.client.After(ctx, ts)
	if err != nil {
		return Reading{}, fmt.Errorf("%w: %v", ErrNoData, err)
	}
	return checkRecord(record)
}

// ReadRange returns all valid readings observed in [from, to], with
// disputed and malformed records filtered out.
func (f *DisputeFeed) ReadRange(ctx context.Context, from, to time.Time) ([]Reading, error) {
	records, err := f.client.Between(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoData, err)
	}

	readings := make([]Reading, 0, len(records))
	for _, record := range records {
		reading, err := checkRecord(record)
		if err != nil {
			continue
		}
		readings = append(readings, reading)
	}
	return readings, nil
}

// Disputed reports whether the most recent record is flagged as disputed.
func (f *DisputeFeed) Disputed(ctx context.Context) (bool, error) {
	record, err := f.client.Latest(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrNoData, err)
	}
	return record.Disputed, nil
}

// checkRecord validates a record and converts it into a reading. The
// dispute check runs first: a disputed record is invalid even if its
// value decoded cleanly.
func checkRecord(record DisputeRecord) (Reading, error) {
	if record.Disputed {
		return Reading{}, fmt.Errorf("%w: record at %s", ErrDisputed, record.Timestamp.UTC().Format(time.RFC3339))
	}
	if record.Value == nil {
		return Reading{}, fmt.Errorf("%w: empty record", ErrNoData)
	}
	if record.Value.Sign() <= 0 {
		return Reading{}, fmt.Errorf("%w: non-positive value", ErrMalformed)
	}
	if record.Timestamp.IsZero() || record.Timestamp.Unix() <= 0 {
		return Reading{}, fmt.Errorf("%w: zero timestamp", ErrMalformed)
	}
	return Reading{Value: record.Value, Timestamp: record.Timestamp}, nil
}
