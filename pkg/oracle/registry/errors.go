// Package registry holds the mutable source and asset pair collections.
package registry

import "errors"

var (
	// ErrNotFound indicates an unknown source handle or pair symbol.
	ErrNotFound = errors.New("not found")
	// ErrInvalidConfig indicates bad registration arguments. This is a
	// caller bug and is never worth retrying.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrUnauthorized indicates that the principal may not perform
	// administrative mutations.
	ErrUnauthorized = errors.New("unauthorized")
)
