package entitystore

import (
	"context"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/goliatone/go-reactive-cache/cache"
	"github.com/goliatone/go-reactive-cache/querycache"
	"github.com/goliatone/go-reactive-cache/reactive"
	"github.com/goliatone/go-reactive-cache/transport"
)

// Endpoints names the request/response endpoints one entity is served by.
type Endpoints struct {
	List   string
	Get    string
	Create string
	Update string
	Delete string
}

// DefaultEndpoints derives the conventional "<entity>.<op>" endpoint ids.
func DefaultEndpoints(entity string) Endpoints {
	return Endpoints{
		List:   entity + ".list",
		Get:    entity + ".get",
		Create: entity + ".create",
		Update: entity + ".update",
		Delete: entity + ".delete",
	}
}

// Config wires one entity store. Entity and Scope become the leading cache
// key tokens, so [Entity, Scope] prefixes every key the store touches and
// prefix invalidation reaches all of them at once.
type Config[T any] struct {
	// Entity names the record kind, e.g. "users".
	Entity string

	// Scope names the transport variant, e.g. "http" or "websocket".
	// Stores for the same entity on different scopes cache independently.
	Scope string

	Runtime *reactive.Runtime
	Cache   cache.Store
	Caller  transport.Caller

	// Edges declares which other entities' caches go stale after this
	// store's mutations succeed.
	Edges querycache.Edges

	// Keys builds the store's cache keys. Defaults to the reflection
	// based serializer, which normalizes tokens and digests oversized
	// ones.
	Keys cache.KeySerializer

	// StaleWindow overrides the cache store's default freshness window
	// when greater than zero.
	StaleWindow time.Duration

	// Endpoints overrides the conventional endpoint ids.
	Endpoints Endpoints

	// Decode converts a transport payload into a record. Defaults to a
	// type assertion.
	Decode func(any) (T, error)

	// DecodeList converts a transport payload into a record list.
	// Defaults to a type assertion.
	DecodeList func(any) ([]T, error)
}

// Validate checks the required wiring is present.
func (c Config[T]) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Entity, validation.Required),
		validation.Field(&c.Scope, validation.Required),
		validation.Field(&c.Runtime, validation.Required),
		validation.Field(&c.Cache, validation.Required),
		validation.Field(&c.Caller, validation.Required),
	)
}

// Store exposes one entity's cached reads and cache-updating writes over
// one transport. It is thin by design: every operation delegates to a
// query or mutation adapter, plus the invalidation-protocol bookkeeping
// declared in its configuration.
type Store[T any] struct {
	entity      string
	scope       string
	rt          *reactive.Runtime
	cache       cache.Store
	caller      transport.Caller
	inv         *querycache.Invalidator
	keys        cache.KeySerializer
	endpoints   Endpoints
	staleWindow time.Duration
	decode      func(any) (T, error)
	decodeList  func(any) ([]T, error)

	listKey cache.Key
	list    *querycache.Query[[]T]
	create  *querycache.Mutation[T, T]
	update  *querycache.Mutation[T, T]
	remove  *querycache.Mutation[string, string]
}

// New constructs an entity store. Construction performs no I/O; the list
// query stays inactive until something observes it.
func New[T any](cfg Config[T]) (*Store[T], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	entity := cache.NormalizeToken(cfg.Entity)
	scope := cache.NormalizeToken(cfg.Scope)

	keys := cfg.Keys
	if keys == nil {
		keys = cache.NewDefaultKeySerializer()
	}

	endpoints := cfg.Endpoints
	if endpoints == (Endpoints{}) {
		endpoints = DefaultEndpoints(entity)
	}

	decode := cfg.Decode
	if decode == nil {
		decode = func(v any) (T, error) {
			if rec, ok := v.(T); ok {
				return rec, nil
			}
			var zero T
			return zero, fmt.Errorf("entitystore: unexpected %s payload type %T", entity, v)
		}
	}
	decodeList := cfg.DecodeList
	if decodeList == nil {
		decodeList = func(v any) ([]T, error) {
			if list, ok := v.([]T); ok {
				return list, nil
			}
			return nil, fmt.Errorf("entitystore: unexpected %s list payload type %T", entity, v)
		}
	}

	s := &Store[T]{
		entity:      entity,
		scope:       scope,
		rt:          cfg.Runtime,
		cache:       cfg.Cache,
		caller:      cfg.Caller,
		inv:         querycache.NewInvalidator(cfg.Cache, cfg.Edges),
		keys:        keys,
		endpoints:   endpoints,
		staleWindow: cfg.StaleWindow,
		decode:      decode,
		decodeList:  decodeList,
		listKey:     keys.SerializeKey(cfg.Entity, cfg.Scope),
	}

	name := entity + "." + scope
	s.list = querycache.NewQuery(cfg.Runtime, cfg.Cache, name+".list", func() querycache.QueryConfig[[]T] {
		return querycache.QueryConfig[[]T]{
			Key:         s.listKey,
			Fetch:       s.fetchList,
			StaleWindow: s.staleWindow,
		}
	})

	s.create = querycache.NewMutation(cfg.Runtime, name+".create", func() querycache.MutationConfig[T, T] {
		return querycache.MutationConfig[T, T]{
			Mutate: func(ctx context.Context, rec T) (T, error) {
				return s.callRecord(ctx, s.endpoints.Create, rec)
			},
			OnSuccess: func(_ context.Context, created T, _ T) {
				if !querycache.AppendRecordIfCached(s.cache, s.listKey, created) {
					// No cached list to extend; the next observation
					// fetches the authoritative one.
					s.cache.Invalidate(s.listKey)
				}
				s.inv.AfterMutation(s.entity)
			},
		}
	})

	s.update = querycache.NewMutation(cfg.Runtime, name+".update", func() querycache.MutationConfig[T, T] {
		return querycache.MutationConfig[T, T]{
			Mutate: func(ctx context.Context, rec T) (T, error) {
				return s.callRecord(ctx, s.endpoints.Update, rec)
			},
			OnSuccess: func(_ context.Context, updated T, _ T) {
				if !querycache.ReplaceRecord(s.cache, s.listKey, updated) {
					// Record not cached here; fall back to a refetch.
					s.cache.Invalidate(s.listKey)
				}
				s.invalidateDetail(updated)
				s.inv.AfterMutation(s.entity)
			},
		}
	})

	s.remove = querycache.NewMutation(cfg.Runtime, name+".delete", func() querycache.MutationConfig[string, string] {
		return querycache.MutationConfig[string, string]{
			Mutate: func(ctx context.Context, id string) (string, error) {
				if _, err := s.caller.Call(ctx, s.endpoints.Delete, id); err != nil {
					return "", err
				}
				return id, nil
			},
			OnSuccess: func(_ context.Context, id string, _ string) {
				querycache.RemoveRecord[T](s.cache, s.listKey, id)
				s.cache.Invalidate(s.detailKey(id))
				s.inv.AfterMutation(s.entity)
			},
		}
	})

	return s, nil
}

// Entity returns the normalized entity token.
func (s *Store[T]) Entity() string { return s.entity }

// Scope returns the normalized transport scope token.
func (s *Store[T]) Scope() string { return s.scope }

// ListKey returns the cache key the list query lives under.
func (s *Store[T]) ListKey() cache.Key { return s.listKey }

// List reads the cached record list, registering the calling reactive
// context as a dependent.
func (s *Store[T]) List(ctx context.Context) querycache.Result[[]T] {
	return s.list.Read(ctx)
}

// ListQuery exposes the underlying query adapter for suspending reads and
// refetch control.
func (s *Store[T]) ListQuery() *querycache.Query[[]T] {
	return s.list
}

// RefetchList forces a list fetch regardless of freshness.
func (s *Store[T]) RefetchList(ctx context.Context) ([]T, error) {
	return s.list.Refetch(ctx)
}

// GetByID returns one record, cache first: when the cached list already
// holds the id no transport call happens at all. Otherwise a dedicated
// single-record fetch runs (deduplicated per key) and its result is
// cached under [entity, scope, id].
func (s *Store[T]) GetByID(ctx context.Context, id string) (T, error) {
	var zero T
	if rec, ok := querycache.LookupRecord[T](s.cache, s.listKey, id); ok {
		return rec, nil
	}

	key := s.detailKey(id)
	flight := s.cache.EnsureFresh(ctx, key, func(ctx context.Context) (any, error) {
		out, err := s.caller.Call(ctx, s.endpoints.Get, id)
		if err != nil {
			return nil, err
		}
		return s.decode(out)
	}, s.staleWindow)

	data, err := flight.Wait(ctx)
	if err != nil {
		return zero, err
	}
	rec, ok := data.(T)
	if !ok {
		return zero, fmt.Errorf("entitystore: unexpected %s payload type %T", s.entity, data)
	}
	return rec, nil
}

// Create writes a new record and, on success, appends it to the cached
// list and propagates staleness across the declared edges before
// returning.
func (s *Store[T]) Create(ctx context.Context, record T) (T, error) {
	return s.create.Execute(ctx, record)
}

// Update rewrites a record and reconciles the cached list on success.
func (s *Store[T]) Update(ctx context.Context, record T) (T, error) {
	return s.update.Execute(ctx, record)
}

// Delete removes a record by id and prunes it from the cached list on
// success.
func (s *Store[T]) Delete(ctx context.Context, id string) error {
	_, err := s.remove.Execute(ctx, id)
	return err
}

// CreateMutation exposes the create adapter for status observation.
func (s *Store[T]) CreateMutation() *querycache.Mutation[T, T] { return s.create }

// UpdateMutation exposes the update adapter for status observation.
func (s *Store[T]) UpdateMutation() *querycache.Mutation[T, T] { return s.update }

// DeleteMutation exposes the delete adapter for status observation.
func (s *Store[T]) DeleteMutation() *querycache.Mutation[string, string] { return s.remove }

// callRecord performs a request/response call and decodes a single record
// from its payload.
func (s *Store[T]) callRecord(ctx context.Context, endpoint string, payload any) (T, error) {
	var zero T
	out, err := s.caller.Call(ctx, endpoint, payload)
	if err != nil {
		return zero, err
	}
	return s.decode(out)
}

// detailKey addresses the single-record entry for id, built through the
// key serializer so ids are tokenized the same way query arguments are.
func (s *Store[T]) detailKey(id string) cache.Key {
	return s.keys.SerializeKey(s.entity, s.scope, id)
}

// invalidateDetail marks the record's dedicated detail entry stale, when
// one was cached by GetByID.
func (s *Store[T]) invalidateDetail(record T) {
	if id, err := querycache.RecordID(record); err == nil {
		s.cache.Invalidate(s.detailKey(id))
	}
}

// fetchList loads the full record list over the transport.
func (s *Store[T]) fetchList(ctx context.Context) ([]T, error) {
	out, err := s.caller.Call(ctx, s.endpoints.List, nil)
	if err != nil {
		return nil, err
	}
	return s.decodeList(out)
}
