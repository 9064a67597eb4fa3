package querycache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goliatone/go-reactive-cache/cache"
	"github.com/goliatone/go-reactive-cache/internal/cachestore"
	"github.com/goliatone/go-reactive-cache/reactive"
)

func newTestStore(t *testing.T) cache.Store {
	t.Helper()
	store, err := cachestore.New(cache.Config{DefaultTTL: time.Minute})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return store
}

// eventually polls cond until it holds or the deadline passes. Fetches
// settle on background goroutines, so observer-visible state is polled.
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestQuery_LazyActivation(t *testing.T) {
	rt := reactive.NewRuntime()
	store := newTestStore(t)

	var calls atomic.Int64
	q := NewQuery(rt, store, "users", func() QueryConfig[string] {
		return QueryConfig[string]{
			Key: cache.NewKey("users", "http"),
			Fetch: func(ctx context.Context) (string, error) {
				calls.Add(1)
				return "alice", nil
			},
		}
	})

	// Construction alone performs no fetch.
	time.Sleep(20 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Fatalf("fetch calls before observation = %d, want 0", got)
	}
	if q.Active() {
		t.Fatal("query should be inactive before observation")
	}

	var mu sync.Mutex
	var latest Result[string]
	dispose := rt.Autorun("observer", func() {
		r := q.Read(context.Background())
		mu.Lock()
		latest = r
		mu.Unlock()
	})

	if !q.Active() {
		t.Error("query should be active while observed")
	}
	eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return latest.IsSuccess && latest.Data == "alice"
	}, "observer never saw the fetched result")
	if got := calls.Load(); got != 1 {
		t.Errorf("fetch calls = %d, want 1", got)
	}

	dispose()
	if q.Active() {
		t.Error("query should deactivate when the last observer is disposed")
	}

	// Staleness while inactive triggers nothing.
	store.Invalidate(cache.NewKey("users"))
	time.Sleep(20 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("fetch calls after invalidate with no observers = %d, want 1", got)
	}
}

func TestQuery_FreshReadsDoNotRefetch(t *testing.T) {
	rt := reactive.NewRuntime()
	store := newTestStore(t)

	var calls atomic.Int64
	q := NewQuery(rt, store, "users", func() QueryConfig[string] {
		return QueryConfig[string]{
			Key: cache.NewKey("users", "http"),
			Fetch: func(ctx context.Context) (string, error) {
				calls.Add(1)
				return "alice", nil
			},
		}
	})

	eventually(t, func() bool {
		return q.Read(context.Background()).IsSuccess
	}, "query never became successful")

	for i := 0; i < 5; i++ {
		q.Read(context.Background())
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("fetch calls = %d, want 1 for repeated fresh reads", got)
	}
}

func TestQuery_RerunsOnCacheWrite(t *testing.T) {
	rt := reactive.NewRuntime()
	store := newTestStore(t)
	key := cache.NewKey("users", "http")

	q := NewQuery(rt, store, "users", func() QueryConfig[[]string] {
		return QueryConfig[[]string]{
			Key: key,
			Fetch: func(ctx context.Context) ([]string, error) {
				return []string{"alice"}, nil
			},
		}
	})

	var mu sync.Mutex
	var latest []string
	dispose := rt.Autorun("observer", func() {
		r := q.Read(context.Background())
		mu.Lock()
		latest = r.Data
		mu.Unlock()
	})
	defer dispose()

	eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(latest) == 1
	}, "observer never saw the fetched list")

	// A direct cache write reruns the observer without any fetch.
	AppendRecord(store, key, "bob")

	mu.Lock()
	got := append([]string(nil), latest...)
	mu.Unlock()
	if len(got) != 2 || got[1] != "bob" {
		t.Errorf("observer data after write = %v, want [alice bob]", got)
	}
}

func TestQuery_KeySwitchFollowsReactiveConfig(t *testing.T) {
	rt := reactive.NewRuntime()
	store := newTestStore(t)

	selAtom := rt.NewAtom("selected")
	var selMu sync.Mutex
	selected := "1"

	var calls atomic.Int64
	q := NewQuery(rt, store, "user-detail", func() QueryConfig[string] {
		selAtom.ReportObserved()
		selMu.Lock()
		id := selected
		selMu.Unlock()
		return QueryConfig[string]{
			Key: cache.NewKey("users", "http", id),
			Fetch: func(ctx context.Context) (string, error) {
				calls.Add(1)
				return "user-" + id, nil
			},
		}
	})

	var mu sync.Mutex
	var latest Result[string]
	dispose := rt.Autorun("observer", func() {
		r := q.Read(context.Background())
		mu.Lock()
		latest = r
		mu.Unlock()
	})
	defer dispose()

	eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return latest.Data == "user-1"
	}, "observer never saw user-1")

	// Selecting a different id switches the observed cache entry.
	selMu.Lock()
	selected = "2"
	selMu.Unlock()
	selAtom.ReportChanged()

	eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return latest.Data == "user-2"
	}, "observer never saw user-2 after key switch")

	if got := calls.Load(); got != 2 {
		t.Errorf("fetch calls = %d, want 2 (one per key)", got)
	}
}

func TestQuery_Disabled(t *testing.T) {
	rt := reactive.NewRuntime()
	store := newTestStore(t)

	var calls atomic.Int64
	q := NewQuery(rt, store, "users", func() QueryConfig[string] {
		return QueryConfig[string]{
			Key:      cache.NewKey("users", "http"),
			Disabled: true,
			Fetch: func(ctx context.Context) (string, error) {
				calls.Add(1)
				return "alice", nil
			},
		}
	})

	r := q.Read(context.Background())
	if r.IsSuccess || r.IsError {
		t.Errorf("disabled query should report neither success nor error, got %+v", r)
	}
	time.Sleep(20 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Errorf("fetch calls for disabled query = %d, want 0", got)
	}
}

func TestQuery_NilFetch(t *testing.T) {
	rt := reactive.NewRuntime()
	store := newTestStore(t)

	q := NewQuery(rt, store, "users", func() QueryConfig[string] {
		return QueryConfig[string]{Key: cache.NewKey("users", "http")}
	})

	r := q.Read(context.Background())
	if !r.IsError || !errors.Is(r.Err, cache.ErrNilFetch) {
		t.Errorf("Read() with nil fetch = %+v, want ErrNilFetch state", r)
	}
}

func TestQuery_Refetch(t *testing.T) {
	rt := reactive.NewRuntime()
	store := newTestStore(t)

	var calls atomic.Int64
	q := NewQuery(rt, store, "users", func() QueryConfig[string] {
		return QueryConfig[string]{
			Key: cache.NewKey("users", "http"),
			Fetch: func(ctx context.Context) (string, error) {
				n := calls.Add(1)
				return fmt.Sprintf("result-%d", n), nil
			},
		}
	})

	data, err := q.Refetch(context.Background())
	if err != nil {
		t.Fatalf("Refetch() error = %v", err)
	}
	if data != "result-1" {
		t.Errorf("Refetch() = %v, want result-1", data)
	}

	// Refetch bypasses freshness.
	data, err = q.Refetch(context.Background())
	if err != nil {
		t.Fatalf("Refetch() error = %v", err)
	}
	if data != "result-2" {
		t.Errorf("Refetch() = %v, want result-2", data)
	}
}

func TestQuery_DataOrSuspend(t *testing.T) {
	rt := reactive.NewRuntime()
	store := newTestStore(t)

	q := NewQuery(rt, store, "users", func() QueryConfig[string] {
		return QueryConfig[string]{
			Key: cache.NewKey("users", "http"),
			Fetch: func(ctx context.Context) (string, error) {
				return "alice", nil
			},
		}
	})

	ctx := context.Background()
	first := q.DataOrSuspend(ctx)
	if first.Ready {
		t.Fatal("first access should suspend, not return data")
	}
	data, err := first.Pending.Wait(ctx)
	if err != nil {
		t.Fatalf("Pending.Wait() error = %v", err)
	}
	if data != "alice" {
		t.Errorf("Pending.Wait() = %v, want alice", data)
	}

	second := q.DataOrSuspend(ctx)
	if !second.Ready || second.Data != "alice" {
		t.Errorf("second access = %+v, want ready alice", second)
	}
}
