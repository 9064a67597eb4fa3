package querycache

import (
	"context"
	"errors"
	"sync"

	"github.com/goliatone/go-reactive-cache/reactive"
)

// ErrNilMutation is returned by Execute when no mutation function is
// configured.
var ErrNilMutation = errors.New("querycache: nil mutation function")

// MutationConfig describes one write operation. Like QueryConfig it is
// produced fresh each time it is needed: on every execution and on every
// status read.
type MutationConfig[T, V any] struct {
	// Mutate performs the write against the source of truth.
	Mutate func(ctx context.Context, vars V) (T, error)

	// OnSuccess runs exactly once per successful execution, synchronously
	// after the write resolves and before Execute returns. This is where
	// cache entries are rewritten or marked stale.
	OnSuccess func(ctx context.Context, result T, vars V)

	// OnError runs after a failed execution, before Execute returns the
	// original error.
	OnError func(ctx context.Context, err error, vars V)
}

// Status is the observable state of the most recently settled execution.
type Status[T any] struct {
	Data      T
	Err       error
	IsIdle    bool
	IsPending bool
	IsError   bool
	IsSuccess bool
}

// Mutation presents a reactively observable view of one write operation's
// in-flight and settled state. It retains no history: each execution
// overwrites the last-attempt state.
//
// Overlapping Execute calls each run an independent write; status reflects
// the most recently settled call. Callers that need exactly-once delivery
// must serialize executions themselves.
//
// Unlike Query, the backing atom carries no lifecycle hooks: a mutation
// pins no cache entry, so there is nothing to activate when the first
// observer arrives or release when the last one leaves.
type Mutation[T, V any] struct {
	atom   *reactive.Atom
	config func() MutationConfig[T, V]

	mu       sync.Mutex
	inFlight int
	settled  bool
	data     T
	err      error
}

// NewMutation constructs a mutation adapter. Nothing runs until Execute is
// called.
func NewMutation[T, V any](rt *reactive.Runtime, name string, config func() MutationConfig[T, V]) *Mutation[T, V] {
	return &Mutation[T, V]{
		atom:   rt.NewAtom(name),
		config: config,
	}
}

// Status returns the current execution state and registers the calling
// reactive context as a dependent. The config producer runs on every
// status read: producers that derive from observable state register
// those dependencies too, so observers rerun when the configuration
// changes. Producers must therefore be cheap and side-effect free.
// Status never blocks and never returns errors as Go errors; failure is
// state.
func (m *Mutation[T, V]) Status() Status[T] {
	m.atom.ReportObserved()
	if m.config != nil {
		m.config()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Status[T]{
		IsPending: m.inFlight > 0,
	}
	if m.settled {
		s.Data = m.data
		s.Err = m.err
		s.IsError = m.err != nil
		s.IsSuccess = m.err == nil
	}
	s.IsIdle = !m.settled && m.inFlight == 0
	return s
}

// Execute invokes the configured mutation with vars and blocks until it
// settles. On success the OnSuccess callback runs before Execute returns,
// so a caller chaining work after Execute always observes post-mutation
// cache state. Errors are returned unchanged, never swallowed.
func (m *Mutation[T, V]) Execute(ctx context.Context, vars V) (T, error) {
	var zero T
	cfg := m.config()
	if cfg.Mutate == nil {
		return zero, ErrNilMutation
	}

	m.mu.Lock()
	m.inFlight++
	m.mu.Unlock()
	m.atom.ReportChanged()

	result, err := cfg.Mutate(ctx, vars)

	m.mu.Lock()
	m.inFlight--
	m.settled = true
	if err != nil {
		m.data = zero
		m.err = err
	} else {
		m.data = result
		m.err = nil
	}
	m.mu.Unlock()

	if err != nil {
		if cfg.OnError != nil {
			cfg.OnError(ctx, err, vars)
		}
		m.atom.ReportChanged()
		return zero, err
	}

	if cfg.OnSuccess != nil {
		cfg.OnSuccess(ctx, result, vars)
	}
	m.atom.ReportChanged()
	return result, nil
}

// Reset clears the status back to idle without touching the cache.
func (m *Mutation[T, V]) Reset() {
	var zero T
	m.mu.Lock()
	m.settled = false
	m.data = zero
	m.err = nil
	m.mu.Unlock()
	m.atom.ReportChanged()
}
