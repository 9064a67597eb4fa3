// Package entitystore provides a generic, per-entity facade over the query
// and mutation adapters. One Store serves one record type on one transport
// scope; the same entity reached over a second transport gets a second
// store with its own cache keys.
//
// A store bundles a cached list query, create/update/delete mutations that
// reconcile the cached list directly on success, a cache-first GetByID
// helper, and an optional pub/sub subscription that converges the cache
// after remote mutations. Cross-entity staleness is declared as edges in
// the configuration and applied after every successful mutation.
package entitystore
