// Package querycache bridges the keyed cache store to the reactive
// runtime through two adapter types, and carries the helpers the
// invalidation protocol is written with.
//
// # Overview
//
//   - Query[T]: read-side adapter. Reading it inside a tracked reactive
//     context subscribes the caller; cache entry changes wake every
//     subscribed caller. Activation is lazy: with zero observers the
//     adapter holds no subscription and does nothing on its own.
//   - Mutation[T, V]: write-side adapter. Its pending/success/error state
//     is observable the same way, and its OnSuccess callback is the
//     designated place for direct cache writes and staleness marks.
//   - AppendRecord/ReplaceRecord/RemoveRecord/LookupRecord: by-value list
//     entry rewrites and the cache-first read helper.
//   - Edges/Invalidator: the statically declared cross-entity staleness
//     graph and its application after mutations.
//
// # Invalidation Protocol
//
// A mutation's OnSuccess follows three rules:
//
//  1. When the mutation result fully determines the new entry, rewrite
//     the list entry directly (append on create, replace on update,
//     remove on delete) instead of refetching. Rewrites are by value and
//     apply only to entries that already hold data; a create with no
//     cached list falls back to invalidation, since one record does not
//     determine the full list.
//  2. Propagate staleness across declared edges: after mutating entity X,
//     mark every key prefixed by a dependent entity Y stale. Stale is not
//     deleted; data stays readable until the next observation refetches.
//  3. Pub/sub notifications about an entity, regardless of origin, are
//     answered with a coarse invalidation of that entity's own keys: the
//     payload carries only an identifier, so a direct write is not
//     possible, and the notification may come from another process that
//     this process's direct writes never covered.
//
// Rule application lives in the entitystore package; this package only
// provides the vocabulary.
package querycache
