package domain

import "errors"

// Domain errors represent error conditions in the orderly domain.
// They can be checked with errors.Is.
var (
	// ErrEmptyCollection is returned when a collection of size zero is requested.
	ErrEmptyCollection = errors.New("orderly: empty collection")

	// ErrKeySpaceExhausted is returned when no order key fits between two
	// neighbours and a rebalance is required.
	ErrKeySpaceExhausted = errors.New("orderly: order key space exhausted")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("orderly: invalid configuration")

	// ErrAlreadyRunning is returned when Start() is called on a running server.
	ErrAlreadyRunning = errors.New("orderly: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped server.
	ErrNotRunning = errors.New("orderly: not running")
)
