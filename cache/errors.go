package cache

import "errors"

// Sentinel errors for cache operations.
var (
	// ErrNilFetch is returned through a flight when a fetch was requested
	// with no fetch function configured.
	ErrNilFetch = errors.New("cache: nil fetch function")
)
