// Package combine implements the order-independent price combination statistics.
package combine

import "errors"

var (
	// ErrNoValues indicates that no values were provided.
	ErrNoValues = errors.New("no values provided")
	// ErrZeroWeight indicates that the total weight of the provided values is zero.
	ErrZeroWeight = errors.New("total weight is zero")
)
