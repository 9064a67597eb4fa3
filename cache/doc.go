// Package cache provides the keyed cache contract and key serialization
// the reactive adapters are built on.
//
// # Overview
//
// This package exports the contract only; the default store
// implementation lives in internal/cachestore and is wired through
// pkg/di:
//
//   - Store: a keyed cache with freshness tracking, prefix invalidation,
//     single-flight fetching, and change subscriptions
//   - KeySerializer: builds stable token keys from an entity name, a
//     scope, and arbitrary query arguments
//   - Flight: a shareable handle on one fetch in progress
//
// Entries are addressed by Key values, ordered token sequences such as
// [users, http] or [groups, websocket, 5]. Prefix matching on those tokens
// is the only grouping mechanism: invalidating [groups] marks every
// groups entry stale regardless of transport or sub-resource.
//
// # Basic Usage
//
//	container, err := di.NewContainer(cache.DefaultConfig(), nil)
//	if err != nil {
//		return err
//	}
//	store := container.Store()
//
//	key := cache.NewKey("users", "http")
//	flight := store.EnsureFresh(ctx, key, fetchUsers, time.Minute)
//	data, err := flight.Wait(ctx)
//
// Concurrent EnsureFresh calls for the same key share a single fetch; a
// fresh entry resolves immediately without touching the source of truth.
//
// # Invalidation Semantics
//
// Invalidate marks entries stale, it never deletes data. A stale entry
// keeps serving its last-known value to Read until the next observation
// triggers a refetch, so readers never see data disappear mid-flight.
//
// # Key Serialization Strategy
//
// The default key serializer uses reflection to handle various Go types:
//
//   - Basic types: direct string representation
//   - Slices/arrays: recursive serialization of elements
//   - Maps: sorted key-value pairs for deterministic output
//   - Structs: exported fields with name:value pairs
//   - Complex types: JSON fallback with error handling
//   - Function pointers: %p formatting, stable within a process
//
// Tokens longer than MaxTokenLength are replaced by an xxhash digest so
// arbitrarily large arguments cannot produce unbounded keys.
//
// # See Also
//
// For the reactive adapters that consume this store, see the querycache
// package. For entity-level wiring, see the entitystore package.
package cache
