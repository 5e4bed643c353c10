// Package httpfeed binds the feed client interfaces to JSON-over-HTTP provider endpoints.
package httpfeed

import "errors"

var (
	// ErrURLRequired indicates that the endpoint url is missing from config.
	ErrURLRequired = errors.New("url is required")
	// ErrUnexpectedStatus indicates an unexpected HTTP status code.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status code")
	// ErrBadPayload indicates that the provider response could not be decoded.
	ErrBadPayload = errors.New("bad provider payload")
)
