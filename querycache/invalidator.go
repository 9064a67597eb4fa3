package querycache

import "github.com/goliatone/go-reactive-cache/cache"

// Edges declares the cross-entity invalidation graph: mutating entity X
// marks the caches of every entity in Edges[X] stale. Edges are static and
// declared per deployment, never inferred.
//
// The graph must stay acyclic in practice. Nothing here enforces that; a
// cycle produces unbounded refetch cascades once both sides are observed.
type Edges map[string][]string

// Dependents returns the entities whose caches go stale when entity
// mutates. The returned slice is a copy.
func (e Edges) Dependents(entity string) []string {
	deps := e[entity]
	if len(deps) == 0 {
		return nil
	}
	return append([]string(nil), deps...)
}

// Invalidator applies the staleness-propagation rule of the invalidation
// protocol: after a successful mutation on entity X, every cache key
// prefixed by a dependent entity's name is marked stale. Stale entries
// refetch on their next observation, so an unobserved dependent costs
// nothing until someone looks at it.
type Invalidator struct {
	store cache.Store
	edges Edges
}

// NewInvalidator binds the declared edges to a cache store.
func NewInvalidator(store cache.Store, edges Edges) *Invalidator {
	return &Invalidator{store: store, edges: edges}
}

// AfterMutation marks every dependent entity's entries stale and returns
// how many entries transitioned. Marks are idempotent: propagating twice
// converges to the same stale state with no extra fetches.
func (i *Invalidator) AfterMutation(entity string) int {
	total := 0
	for _, dep := range i.edges.Dependents(entity) {
		total += i.store.Invalidate(cache.NewKey(dep))
	}
	return total
}

// InvalidateEntity marks every entry for one entity and scope stale. Used
// by remote-origin convergence, where a pub/sub notification carries only
// an identifier and a coarse invalidate-and-refetch is the only safe
// response.
func (i *Invalidator) InvalidateEntity(entity, scope string) int {
	return i.store.Invalidate(cache.NewKey(entity, scope))
}
