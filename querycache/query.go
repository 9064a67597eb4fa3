package querycache

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-reactive-cache/cache"
	"github.com/goliatone/go-reactive-cache/reactive"
)

// QueryConfig describes one logical query. The config producer passed to
// NewQuery is re-evaluated on every access, so Key and Fetch may depend on
// reactive state such as a currently selected id.
type QueryConfig[T any] struct {
	// Key addresses the cache entry this query reads.
	Key cache.Key

	// Fetch loads the result from the source of truth on a miss.
	Fetch func(ctx context.Context) (T, error)

	// StaleWindow overrides the store's default freshness window when
	// greater than zero.
	StaleWindow time.Duration

	// Disabled suspends fetching while true; reads still return the
	// entry's last-known state.
	Disabled bool
}

// Result is the synchronous result descriptor a read returns. Reads never
// fail; fetch errors surface here as state.
type Result[T any] struct {
	Data       T
	Err        error
	IsLoading  bool
	IsFetching bool
	IsError    bool
	IsSuccess  bool
}

// SuspendResult is the discriminated outcome of DataOrSuspend. Either
// Ready is true and Data is usable, or Pending carries the in-flight fetch
// the caller should wait on.
type SuspendResult[T any] struct {
	Ready   bool
	Data    T
	Pending *cache.Flight
}

// Query presents a single always-current, reactively observable view of
// one cached query's result. It holds no data itself; it is a view onto
// the cache entry plus a bridge atom.
//
// The adapter is lazy: while nothing observes it, it holds no cache
// subscription and performs no fetches on its own. The first reactive
// observer activates it; when the last observer's reaction is disposed it
// deactivates again.
type Query[T any] struct {
	rt     *reactive.Runtime
	store  cache.Store
	name   string
	config func() QueryConfig[T]
	atom   *reactive.Atom

	mu        sync.Mutex
	active    bool
	key       cache.Key
	cancelSub func()
	stopWatch func()
}

// NewQuery constructs a query adapter. No I/O happens at construction;
// config is not even evaluated until the first access.
func NewQuery[T any](rt *reactive.Runtime, store cache.Store, name string, config func() QueryConfig[T]) *Query[T] {
	q := &Query[T]{
		rt:     rt,
		store:  store,
		name:   name,
		config: config,
	}
	q.atom = rt.NewAtom(name,
		reactive.WithOnBecomeObserved(q.activate),
		reactive.WithOnBecomeUnobserved(q.deactivate),
	)
	return q
}

// Read returns the cache's best-known synchronous result for the query and
// registers the calling reactive context, if any, as a dependent. Reading
// an unfetched or stale key triggers exactly one fetch; a fresh entry
// triggers none.
func (q *Query[T]) Read(ctx context.Context) Result[T] {
	cfg := q.config()
	q.atom.ReportObserved()
	q.adopt(cfg.Key)

	if !cfg.Disabled {
		if cfg.Fetch == nil {
			return Result[T]{Err: cache.ErrNilFetch, IsError: true}
		}
		q.store.EnsureFresh(ctx, cfg.Key, wrapFetch(cfg.Fetch), cfg.StaleWindow)
	}
	view, _ := q.store.Read(cfg.Key)
	return resultFromView[T](view)
}

// DataOrSuspend behaves like Read but, when no data is available yet,
// surfaces the in-flight fetch itself so a caller in a suspending
// execution model can pause until it settles. Callers in a plain
// imperative context branch on Ready and Wait on Pending.
func (q *Query[T]) DataOrSuspend(ctx context.Context) SuspendResult[T] {
	cfg := q.config()
	q.atom.ReportObserved()
	q.adopt(cfg.Key)

	if cfg.Fetch == nil && !cfg.Disabled {
		return SuspendResult[T]{Pending: cache.FailedFlight(cache.ErrNilFetch)}
	}

	var flight *cache.Flight
	if !cfg.Disabled {
		flight = q.store.EnsureFresh(ctx, cfg.Key, wrapFetch(cfg.Fetch), cfg.StaleWindow)
	}
	view, _ := q.store.Read(cfg.Key)
	if view.Exists {
		data, _ := view.Data.(T)
		return SuspendResult[T]{Ready: true, Data: data}
	}
	if flight == nil {
		flight = cache.ResolvedFlight(nil)
	}
	return SuspendResult[T]{Pending: flight}
}

// Refetch forces a fetch regardless of freshness and blocks until it
// settles. It needs no active observer; the cache write it produces is
// visible to every adapter sharing the key.
func (q *Query[T]) Refetch(ctx context.Context) (T, error) {
	var zero T
	cfg := q.config()
	if cfg.Fetch == nil {
		return zero, cache.ErrNilFetch
	}
	flight := q.store.Refetch(ctx, cfg.Key, wrapFetch(cfg.Fetch), cfg.StaleWindow)
	data, err := flight.Wait(ctx)
	if err != nil {
		return zero, err
	}
	result, _ := data.(T)
	return result, nil
}

// Active reports whether the adapter currently holds a cache
// subscription, which is true exactly while at least one reaction
// observes it.
func (q *Query[T]) Active() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.active
}

// activate is the first-observer hook: it subscribes the adapter's atom to
// cache entry changes and starts forwarding configuration changes into the
// cache entry, so a reactively recomputed key switches the observed entry
// transparently.
func (q *Query[T]) activate() {
	q.mu.Lock()
	if q.active {
		q.mu.Unlock()
		return
	}
	q.active = true
	q.mu.Unlock()

	initial := true
	stop := q.rt.Autorun(q.name+":config", func() {
		cfg := q.config()
		switched := q.adopt(cfg.Key)
		if !initial && switched {
			if !cfg.Disabled && cfg.Fetch != nil {
				q.store.EnsureFresh(context.Background(), cfg.Key, wrapFetch(cfg.Fetch), cfg.StaleWindow)
			}
			q.atom.ReportChanged()
		}
		initial = false
	})

	q.mu.Lock()
	if q.active {
		q.stopWatch = stop
		q.mu.Unlock()
		return
	}
	q.mu.Unlock()
	stop()
}

// deactivate is the last-observer-gone hook: it releases the cache
// subscription and the config watcher. The adapter goes quiet until the
// next observer appears.
func (q *Query[T]) deactivate() {
	q.mu.Lock()
	if !q.active {
		q.mu.Unlock()
		return
	}
	q.active = false
	cancel := q.cancelSub
	stop := q.stopWatch
	q.cancelSub = nil
	q.stopWatch = nil
	q.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if stop != nil {
		stop()
	}
}

// adopt reconciles the subscription with the query's current key. Returns
// true when the observed entry switched to a different key. No-op while
// inactive.
func (q *Query[T]) adopt(key cache.Key) bool {
	q.mu.Lock()
	if !q.active {
		q.mu.Unlock()
		return false
	}
	if q.cancelSub != nil && q.key.Equal(key) {
		q.mu.Unlock()
		return false
	}
	prev := q.cancelSub
	q.key = key
	q.cancelSub = q.store.Subscribe(key, func(cache.EntryView) {
		q.atom.ReportChanged()
	})
	q.mu.Unlock()

	if prev != nil {
		prev()
		return true
	}
	return false
}

func wrapFetch[T any](fetch func(ctx context.Context) (T, error)) cache.FetchFn {
	return func(ctx context.Context) (any, error) {
		return fetch(ctx)
	}
}

func resultFromView[T any](view cache.EntryView) Result[T] {
	r := Result[T]{
		IsFetching: view.InFlight,
		Err:        view.Err,
	}
	if view.Exists {
		if data, ok := view.Data.(T); ok {
			r.Data = data
		}
	}
	r.IsError = view.Err != nil
	r.IsSuccess = view.Exists && view.Err == nil
	r.IsLoading = view.InFlight && !view.Exists
	return r
}
