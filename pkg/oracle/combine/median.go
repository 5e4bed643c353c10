// Package combine implements the order-independent price combination statistics.
//
// The median tolerates one extreme outlier among n >= 3 values: the
// result moves by at most one sorted-rank position. The weighted mean
// does not; an outlier pulls it toward itself in proportion to its
// weight share. Both are exposed so callers can pick the statistic
// matching their manipulation model.
package combine

import (
	"math/big"
	"sort"
)

// Median returns the median of values: the middle element for odd
// counts, the truncated average of the two middle elements for even
// counts. The input slice is not modified.
func Median(values []*big.Int) (*big.Int, error) {
	if len(values) == 0 {
		return nil, ErrNoValues
	}

	sorted := make([]*big.Int, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Cmp(sorted[j]) < 0
	})

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return new(big.Int).Set(sorted[mid]), nil
	}

	sum := new(big.Int).Add(sorted[mid-1], sorted[mid])
	return sum.Quo(sum, big.NewInt(2)), nil
}
