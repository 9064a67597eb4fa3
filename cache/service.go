package cache

import (
	"context"
	"time"
)

// FetchFn is the function signature the store expects when fetching from
// the source of truth.
type FetchFn func(ctx context.Context) (any, error)

// UpdateFn rewrites an entry's data in place of a refetch. It receives the
// previous value (and whether one existed) and must return a new value
// rather than mutating the old one, so identity-based change detection in
// observers fires correctly.
type UpdateFn func(old any, exists bool) any

// RewriteFn inspects an existing entry's data under the entry lock and
// returns the replacement value, or reports false to leave the entry
// untouched. Like UpdateFn it must return a new value rather than
// mutating the old one.
type RewriteFn func(old any) (any, bool)

// EntryView is a point-in-time snapshot of one cache entry. Views are
// values; holding one does not pin the entry.
type EntryView struct {
	// Key addresses the entry this view was taken from.
	Key Key

	// Data is the last-known value. Only meaningful when Exists is true.
	Data any

	// Exists reports whether a fetch or direct write ever populated the
	// entry.
	Exists bool

	// UpdatedAt is when Data was last written.
	UpdatedAt time.Time

	// StaleAt is the end of the freshness window. At or after this
	// instant the entry is stale and the next observation refetches.
	StaleAt time.Time

	// InFlight reports whether a fetch for this key is currently running.
	InFlight bool

	// Err holds the most recent fetch failure, cleared by the next
	// successful fetch or direct write.
	Err error

	// Subscribers is the current subscriber count.
	Subscribers int
}

// Fresh reports whether the view's data exists and is inside its freshness
// window at the given instant.
func (v EntryView) Fresh(now time.Time) bool {
	return v.Exists && now.Before(v.StaleAt)
}

// SubscribeFn receives entry snapshots after every write, invalidation, or
// fetch settlement for the subscribed key.
type SubscribeFn func(view EntryView)

// Store is the keyed cache the adapters are built on. Entries are
// addressed by token keys, track freshness and fetch status, and notify
// subscribers on every change. Implementations must be safe for concurrent
// use and must guarantee at most one in-flight fetch per key.
type Store interface {
	// Read returns a snapshot of the entry, and whether one exists at all
	// (an entry may exist with no data yet while its first fetch runs).
	Read(key Key) (EntryView, bool)

	// Write replaces the entry's data through update, marks it fresh, and
	// notifies subscribers. Creates the entry if absent.
	Write(key Key, update UpdateFn)

	// Rewrite conditionally replaces an existing entry's data, atomically
	// with respect to concurrent writes. Entries that have never been
	// populated are not rewritten. Reports whether a write happened.
	Rewrite(key Key, fn RewriteFn) bool

	// Invalidate marks every entry whose key has the given prefix as
	// stale without deleting its data, and returns how many entries
	// transitioned. Marking an already-stale entry again is a no-op.
	// Stale entries refetch on their next observation; nothing happens
	// until an observer appears.
	Invalidate(prefix Key) int

	// EnsureFresh returns a flight for the key's current data, fetching
	// only when the entry is missing or stale. Concurrent calls for the
	// same key share one fetch.
	EnsureFresh(ctx context.Context, key Key, fetch FetchFn, staleWindow time.Duration) *Flight

	// Refetch always fetches, regardless of freshness. Concurrent
	// refetches for the same key collapse into one fetch.
	Refetch(ctx context.Context, key Key, fetch FetchFn, staleWindow time.Duration) *Flight

	// Subscribe registers fn for change notifications on the key and pins
	// the entry against garbage collection. The returned cancel function
	// releases both; after the last subscriber cancels, the entry is
	// dropped once the store's GC window elapses.
	Subscribe(key Key, fn SubscribeFn) (cancel func())
}
