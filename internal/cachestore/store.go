package cachestore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sync/singleflight"

	"github.com/goliatone/go-reactive-cache/cache"
)

// Store is the keyed cache implementation behind cache.Store. Entries live
// in a concurrent map addressed by flattened keys; fetch deduplication is
// delegated to singleflight groups keyed the same way. Freshness-driven
// fetches collapse into one execution per key; forced refetches collapse
// separately, so a forced flight can never settle off a freshness
// short-circuit that skipped the fetch.
type Store struct {
	cfg     cache.Config
	now     func() time.Time
	entries *xsync.MapOf[string, *entry]
	group   singleflight.Group
	forced  singleflight.Group
	metrics *storeMetrics
}

// entry holds one cached result plus its bookkeeping. All fields are
// guarded by mu; subscriber callbacks always run with mu released.
type entry struct {
	mu        sync.Mutex
	key       cache.Key
	data      any
	exists    bool
	updatedAt time.Time
	staleAt   time.Time
	fetching  bool
	lastErr   error
	subs      map[string]cache.SubscribeFn
	gc        *time.Timer
}

var _ cache.Store = (*Store)(nil)

// New creates a store from the given configuration. The configuration is
// validated up front; an invalid configuration fails construction rather
// than surfacing later as odd cache behavior.
func New(cfg cache.Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	metrics, err := newStoreMetrics(cfg.Meter)
	if err != nil {
		return nil, err
	}
	return &Store{
		cfg:     cfg,
		now:     time.Now,
		entries: xsync.NewMapOf[string, *entry](),
		metrics: metrics,
	}, nil
}

// SetClock overrides the store's time source. Intended for tests that need
// deterministic freshness windows.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Store) getOrCreate(key cache.Key) *entry {
	e, _ := s.entries.LoadOrCompute(key.String(), func() *entry {
		return &entry{
			key:  key,
			subs: make(map[string]cache.SubscribeFn),
		}
	})
	return e
}

// snapshotLocked captures a view plus the current subscriber callbacks.
// Caller must hold e.mu.
func (e *entry) snapshotLocked() (cache.EntryView, []cache.SubscribeFn) {
	view := cache.EntryView{
		Key:         e.key,
		Data:        e.data,
		Exists:      e.exists,
		UpdatedAt:   e.updatedAt,
		StaleAt:     e.staleAt,
		InFlight:    e.fetching,
		Err:         e.lastErr,
		Subscribers: len(e.subs),
	}
	if len(e.subs) == 0 {
		return view, nil
	}
	subs := make([]cache.SubscribeFn, 0, len(e.subs))
	for _, fn := range e.subs {
		subs = append(subs, fn)
	}
	return view, subs
}

func notify(subs []cache.SubscribeFn, view cache.EntryView) {
	for _, fn := range subs {
		fn(view)
	}
}

// Read implements cache.Store.
func (s *Store) Read(key cache.Key) (cache.EntryView, bool) {
	e, ok := s.entries.Load(key.String())
	if !ok {
		return cache.EntryView{Key: key}, false
	}
	e.mu.Lock()
	view, _ := e.snapshotLocked()
	e.mu.Unlock()
	return view, true
}

// Write implements cache.Store. The updated entry is fresh for the store's
// default TTL and any previous fetch error is cleared.
func (s *Store) Write(key cache.Key, update cache.UpdateFn) {
	e := s.getOrCreate(key)
	e.mu.Lock()
	e.data = update(e.data, e.exists)
	e.exists = true
	now := s.now()
	e.updatedAt = now
	e.staleAt = now.Add(s.cfg.DefaultTTL)
	e.lastErr = nil
	s.armGCLocked(e)
	view, subs := e.snapshotLocked()
	e.mu.Unlock()
	notify(subs, view)
}

// Rewrite implements cache.Store. The entry lock is held across fn, so
// the read-compute-write sequence is atomic with respect to concurrent
// writes.
func (s *Store) Rewrite(key cache.Key, fn cache.RewriteFn) bool {
	e, ok := s.entries.Load(key.String())
	if !ok {
		return false
	}
	e.mu.Lock()
	if !e.exists {
		e.mu.Unlock()
		return false
	}
	next, ok := fn(e.data)
	if !ok {
		e.mu.Unlock()
		return false
	}
	e.data = next
	now := s.now()
	e.updatedAt = now
	e.staleAt = now.Add(s.cfg.DefaultTTL)
	e.lastErr = nil
	s.armGCLocked(e)
	view, subs := e.snapshotLocked()
	e.mu.Unlock()
	notify(subs, view)
	return true
}

// Invalidate implements cache.Store. Entries that are already stale, or
// that have never been populated, are left untouched, which makes repeated
// invalidation idempotent.
func (s *Store) Invalidate(prefix cache.Key) int {
	count := 0
	type pending struct {
		view cache.EntryView
		subs []cache.SubscribeFn
	}
	var notifies []pending
	s.entries.Range(func(_ string, e *entry) bool {
		e.mu.Lock()
		if e.key.HasPrefix(prefix) {
			now := s.now()
			if e.exists && now.Before(e.staleAt) {
				e.staleAt = now
				count++
				view, subs := e.snapshotLocked()
				if len(subs) > 0 {
					notifies = append(notifies, pending{view: view, subs: subs})
				}
			}
		}
		e.mu.Unlock()
		return true
	})
	s.metrics.invalidated(context.Background(), prefix, count)
	for _, p := range notifies {
		notify(p.subs, p.view)
	}
	return count
}

// EnsureFresh implements cache.Store.
func (s *Store) EnsureFresh(ctx context.Context, key cache.Key, fetch cache.FetchFn, staleWindow time.Duration) *cache.Flight {
	if fetch == nil {
		return cache.FailedFlight(cache.ErrNilFetch)
	}
	e := s.getOrCreate(key)
	e.mu.Lock()
	if e.exists && s.now().Before(e.staleAt) {
		data := e.data
		e.mu.Unlock()
		s.metrics.hit(ctx, key)
		return cache.ResolvedFlight(data)
	}
	e.mu.Unlock()
	s.metrics.miss(ctx, key)
	return s.launch(ctx, e, fetch, staleWindow, false)
}

// Refetch implements cache.Store. It bypasses the freshness check;
// concurrent refetches for the same key collapse into one fetch.
func (s *Store) Refetch(ctx context.Context, key cache.Key, fetch cache.FetchFn, staleWindow time.Duration) *cache.Flight {
	if fetch == nil {
		return cache.FailedFlight(cache.ErrNilFetch)
	}
	e := s.getOrCreate(key)
	return s.launch(ctx, e, fetch, staleWindow, true)
}

// launch runs the fetch under a singleflight group. Concurrent launches of
// the same kind for the same key collapse into one execution whose result
// every flight shares. A non-forced launch re-checks freshness inside the
// group in case an earlier launch completed while this one was queued;
// forced launches run in their own group precisely so they can never be
// settled by that short-circuit.
func (s *Store) launch(ctx context.Context, e *entry, fetch cache.FetchFn, staleWindow time.Duration, force bool) *cache.Flight {
	ttl := staleWindow
	if ttl <= 0 {
		ttl = s.cfg.DefaultTTL
	}
	group := &s.group
	if force {
		group = &s.forced
	}
	f := cache.NewFlight()
	go func() {
		data, err, _ := group.Do(e.key.String(), func() (any, error) {
			if !force {
				e.mu.Lock()
				if e.exists && s.now().Before(e.staleAt) {
					data := e.data
					e.mu.Unlock()
					return data, nil
				}
				e.mu.Unlock()
			}
			s.beginFetch(e)
			data, err := fetch(ctx)
			s.completeFetch(e, data, err, ttl)
			s.metrics.fetchDone(ctx, e.key, err)
			return data, err
		})
		f.Resolve(data, err)
	}()
	return f
}

// beginFetch flips the in-flight flag and tells subscribers, so observers
// can surface an isFetching state.
func (s *Store) beginFetch(e *entry) {
	e.mu.Lock()
	e.fetching = true
	view, subs := e.snapshotLocked()
	e.mu.Unlock()
	notify(subs, view)
}

// completeFetch records the outcome and wakes subscribers. A failed fetch
// keeps the previous data; only the error slot changes.
func (s *Store) completeFetch(e *entry, data any, err error, ttl time.Duration) {
	e.mu.Lock()
	e.fetching = false
	now := s.now()
	if err != nil {
		e.lastErr = err
	} else {
		e.data = data
		e.exists = true
		e.lastErr = nil
		e.updatedAt = now
		e.staleAt = now.Add(ttl)
	}
	s.armGCLocked(e)
	view, subs := e.snapshotLocked()
	e.mu.Unlock()
	notify(subs, view)
}

// Subscribe implements cache.Store.
func (s *Store) Subscribe(key cache.Key, fn cache.SubscribeFn) func() {
	e := s.getOrCreate(key)
	id := uuid.NewString()
	e.mu.Lock()
	if e.gc != nil {
		e.gc.Stop()
		e.gc = nil
	}
	e.subs[id] = fn
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.subs, id)
			if len(e.subs) == 0 {
				s.scheduleGCLocked(e)
			}
			e.mu.Unlock()
		})
	}
}

// scheduleGCLocked runs when the last subscriber cancels. A zero or
// negative window drops the entry immediately; otherwise the collection
// timer is armed. Caller must hold e.mu.
func (s *Store) scheduleGCLocked(e *entry) {
	if s.cfg.GCWindow <= 0 {
		s.entries.Delete(e.key.String())
		return
	}
	s.armGCLocked(e)
}

// armGCLocked (re)arms the zero-subscriber collection timer, so entries
// that never gain a subscriber are still collected GCWindow after their
// last write or fetch. Caller must hold e.mu. A subscriber arriving
// before the window elapses disarms the timer, and the timer checks its
// own identity before deleting so a newer write orphans it.
func (s *Store) armGCLocked(e *entry) {
	if s.cfg.GCWindow <= 0 || len(e.subs) > 0 {
		return
	}
	if e.gc != nil {
		e.gc.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(s.cfg.GCWindow, func() {
		e.mu.Lock()
		if e.gc == t && len(e.subs) == 0 && !e.fetching {
			s.entries.Delete(e.key.String())
			e.gc = nil
		}
		e.mu.Unlock()
	})
	e.gc = t
}

// Len reports how many entries the store currently holds.
func (s *Store) Len() int {
	return s.entries.Size()
}
