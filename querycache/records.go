package querycache

import (
	"fmt"
	"reflect"

	"github.com/goliatone/go-reactive-cache/cache"
)

// RecordID attempts to extract an ID field from a record using reflection.
// It checks the common field names ID and Id, dereferencing pointers
// first.
func RecordID(record any) (string, error) {
	v := reflect.ValueOf(record)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return "", fmt.Errorf("nil record")
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return "", fmt.Errorf("record of kind %s has no ID field", v.Kind())
	}
	for _, fieldName := range []string{"ID", "Id"} {
		field := v.FieldByName(fieldName)
		if field.IsValid() && field.CanInterface() {
			return fmt.Sprintf("%v", field.Interface()), nil
		}
	}
	return "", fmt.Errorf("no ID field found in record")
}

// cachedList returns the list currently held by the entry at key, if any.
func cachedList[T any](store cache.Store, key cache.Key) ([]T, bool) {
	view, ok := store.Read(key)
	if !ok || !view.Exists {
		return nil, false
	}
	list, ok := view.Data.([]T)
	return list, ok
}

// AppendRecord appends record to the list-shaped cache entry at key.
// The write is by value: a new slice is produced so identity-based change
// detection fires; the previously cached slice is never mutated.
func AppendRecord[T any](store cache.Store, key cache.Key, record T) {
	store.Write(key, func(old any, exists bool) any {
		var prev []T
		if exists {
			prev, _ = old.([]T)
		}
		next := make([]T, 0, len(prev)+1)
		next = append(next, prev...)
		return append(next, record)
	})
}

// AppendRecordIfCached appends record to the list-shaped entry at key
// only when the entry already holds data, atomically under the entry
// lock. Returns false when there is no populated entry to append to;
// callers then invalidate instead, so the next observation fetches the
// authoritative list rather than serving a fabricated one-element one.
func AppendRecordIfCached[T any](store cache.Store, key cache.Key, record T) bool {
	return store.Rewrite(key, func(old any) (any, bool) {
		prev, ok := old.([]T)
		if old != nil && !ok {
			return nil, false
		}
		next := make([]T, 0, len(prev)+1)
		next = append(next, prev...)
		return append(next, record), true
	})
}

// ReplaceRecord replaces the record with the same ID in the list-shaped
// cache entry at key, by value and atomically under the entry lock.
// Returns false when no cached record matched; the entry is left
// completely untouched in that case, including when it does not exist.
func ReplaceRecord[T any](store cache.Store, key cache.Key, record T) bool {
	id, err := RecordID(record)
	if err != nil {
		return false
	}
	return store.Rewrite(key, func(old any) (any, bool) {
		prev, ok := old.([]T)
		if !ok {
			return nil, false
		}
		replaced := false
		next := make([]T, len(prev))
		copy(next, prev)
		for i := range next {
			if rid, err := RecordID(next[i]); err == nil && rid == id {
				next[i] = record
				replaced = true
			}
		}
		return next, replaced
	})
}

// RemoveRecord removes the record with the given ID from the list-shaped
// cache entry at key, by value and atomically under the entry lock.
// Returns false when nothing matched.
func RemoveRecord[T any](store cache.Store, key cache.Key, id string) bool {
	return store.Rewrite(key, func(old any) (any, bool) {
		prev, ok := old.([]T)
		if !ok {
			return nil, false
		}
		removed := false
		next := make([]T, 0, len(prev))
		for _, rec := range prev {
			if rid, err := RecordID(rec); err == nil && rid == id {
				removed = true
				continue
			}
			next = append(next, rec)
		}
		return next, removed
	})
}

// LookupRecord inspects the already-cached list entry at key for a record
// matching id. This is the cache-first read helper: best effort only, it
// consults whatever the entry last held regardless of freshness, and
// callers fall back to a dedicated fetch on a miss.
func LookupRecord[T any](store cache.Store, key cache.Key, id string) (T, bool) {
	var zero T
	list, ok := cachedList[T](store, key)
	if !ok {
		return zero, false
	}
	for _, rec := range list {
		if rid, err := RecordID(rec); err == nil && rid == id {
			return rec, true
		}
	}
	return zero, false
}
