package di

import (
	"github.com/goliatone/go-reactive-cache/cache"
	"github.com/goliatone/go-reactive-cache/entitystore"
	"github.com/goliatone/go-reactive-cache/internal/cachestore"
	"github.com/goliatone/go-reactive-cache/querycache"
	"github.com/goliatone/go-reactive-cache/reactive"
	"github.com/goliatone/go-reactive-cache/transport"
)

// Container provides dependency injection for the reactive cache components.
// It manages singleton instances of the reactive runtime, cache store, and
// key serializer, and provides factory functions for creating entity stores
// that share them.
type Container struct {
	runtime       *reactive.Runtime
	store         cache.Store
	keySerializer cache.KeySerializer
	config        cache.Config
	edges         querycache.Edges
}

// NewContainer creates a new DI container with the provided cache
// configuration and invalidation edges. All entity stores created through
// the container share one runtime and one cache store, which is what makes
// cross-entity invalidation work.
func NewContainer(config cache.Config, edges querycache.Edges) (*Container, error) {
	store, err := cachestore.New(config)
	if err != nil {
		return nil, err
	}

	return &Container{
		runtime:       reactive.NewRuntime(),
		store:         store,
		keySerializer: cache.NewDefaultKeySerializer(),
		config:        config,
		edges:         edges,
	}, nil
}

// NewContainerWithDefaults creates a new DI container using default
// configuration and no invalidation edges. This is a convenience
// constructor for typical use cases where custom configuration is not
// required.
func NewContainerWithDefaults() (*Container, error) {
	return NewContainer(cache.DefaultConfig(), nil)
}

// Runtime returns the singleton reactive runtime instance.
func (c *Container) Runtime() *reactive.Runtime {
	return c.runtime
}

// Store returns the singleton cache store instance.
// This allows access to the underlying cache for advanced use cases.
func (c *Container) Store() cache.Store {
	return c.store
}

// KeySerializer returns the singleton key serializer instance.
// This allows access to the key serializer for custom caching implementations.
func (c *Container) KeySerializer() cache.KeySerializer {
	return c.keySerializer
}

// Config returns a copy of the cache configuration used by this container.
// This is useful for debugging and monitoring purposes.
func (c *Container) Config() cache.Config {
	return c.config
}

// Edges returns the invalidation edges shared by stores created through
// this container.
func (c *Container) Edges() querycache.Edges {
	return c.edges
}

// NewEntityStore creates an entity store backed by the container's shared
// runtime, cache store, and invalidation edges.
//
// Since Go methods cannot have type parameters, this is provided as a
// package-level function.
// Example: NewEntityStore[User](container, "users", "http", caller)
func NewEntityStore[T any](container *Container, entity, scope string, caller transport.Caller) (*entitystore.Store[T], error) {
	return entitystore.New(entitystore.Config[T]{
		Entity:  entity,
		Scope:   scope,
		Runtime: container.runtime,
		Cache:   container.store,
		Caller:  caller,
		Edges:   container.edges,
		Keys:    container.keySerializer,
	})
}
