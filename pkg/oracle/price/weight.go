package price

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// WeightDecimals is the fixed-point precision of source weights. Weights
// only ever appear as ratios, so the scale cancels out of the weighted mean.
const WeightDecimals = 4

// ErrInvalidWeight indicates that a weight string is not a positive decimal.
var ErrInvalidWeight = errors.New("weight must be a positive decimal")

// ParseWeight parses a positive decimal weight string (e.g. "2", "0.5")
// into fixed-point weight units.
func ParseWeight(s string) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidWeight, s)
	}
	if d.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidWeight, s)
	}
	return d.Shift(WeightDecimals).Truncate(0).BigInt(), nil
}
