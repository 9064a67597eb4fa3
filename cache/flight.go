package cache

import (
	"context"
	"sync"
)

// Flight represents one fetch in progress (or already settled). Concurrent
// requests for the same key share a single flight, so at most one fetch
// runs per key at any time. A flight settles exactly once; its outcome is
// immutable afterwards.
type Flight struct {
	once sync.Once
	done chan struct{}
	data any
	err  error
}

// NewFlight creates an unsettled flight. Store implementations resolve it
// when the underlying fetch returns.
func NewFlight() *Flight {
	return &Flight{done: make(chan struct{})}
}

// ResolvedFlight returns a flight already settled with data. Used when a
// fresh cache entry satisfies the request without fetching.
func ResolvedFlight(data any) *Flight {
	f := NewFlight()
	f.Resolve(data, nil)
	return f
}

// FailedFlight returns a flight already settled with an error.
func FailedFlight(err error) *Flight {
	f := NewFlight()
	f.Resolve(nil, err)
	return f
}

// Resolve settles the flight. Only the first call has any effect.
func (f *Flight) Resolve(data any, err error) {
	f.once.Do(func() {
		f.data = data
		f.err = err
		close(f.done)
	})
}

// Done returns a channel closed when the flight settles.
func (f *Flight) Done() <-chan struct{} {
	return f.done
}

// Settled reports whether the flight has an outcome without blocking.
func (f *Flight) Settled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the flight settles or the context is canceled. An
// abandoned flight keeps running; its cache write still applies when the
// fetch eventually settles.
func (f *Flight) Wait(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.data, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
