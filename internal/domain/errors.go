package domain

import "errors"

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrDuplicateName     = errors.New("duplicate name")
	// ErrRequestInFlight reports an idempotency key whose first request has
	// not finished yet.
	ErrRequestInFlight = errors.New("request already in flight")
)
