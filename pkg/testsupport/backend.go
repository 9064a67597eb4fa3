package testsupport

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/goliatone/go-reactive-cache/querycache"
	"github.com/goliatone/go-reactive-cache/transport"
)

// MemoryBackend holds one entity's records in memory and serves CRUD
// operations against them. Pair it with a BackendCaller to stand in for a
// real server in tests.
type MemoryBackend[T any] struct {
	mu      sync.Mutex
	records []T
}

// NewMemoryBackend creates a backend seeded with the given records.
func NewMemoryBackend[T any](seed ...T) *MemoryBackend[T] {
	return &MemoryBackend[T]{records: append([]T(nil), seed...)}
}

// List returns a copy of all records.
func (b *MemoryBackend[T]) List() []T {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]T(nil), b.records...)
}

// Get returns the record with the given id.
func (b *MemoryBackend[T]) Get(id string) (T, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, rec := range b.records {
		if recID, err := querycache.RecordID(rec); err == nil && recID == id {
			return rec, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("testsupport: record %q not found", id)
}

// Create stores a new record, assigning a fresh id when the record has
// none, and returns the stored record.
func (b *MemoryBackend[T]) Create(record T) T {
	if id, err := querycache.RecordID(record); err != nil || id == "" {
		record = assignID(record, uuid.NewString())
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records = append(b.records, record)
	return record
}

// Update replaces the record with the same id and returns the stored
// record.
func (b *MemoryBackend[T]) Update(record T) (T, error) {
	id, err := querycache.RecordID(record)
	if err != nil {
		var zero T
		return zero, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, rec := range b.records {
		if recID, err := querycache.RecordID(rec); err == nil && recID == id {
			b.records[i] = record
			return record, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("testsupport: record %q not found", id)
}

// Delete removes the record with the given id.
func (b *MemoryBackend[T]) Delete(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, rec := range b.records {
		if recID, err := querycache.RecordID(rec); err == nil && recID == id {
			b.records = append(b.records[:i], b.records[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("testsupport: record %q not found", id)
}

// assignID sets the record's ID field when it is a settable string.
func assignID[T any](record T, id string) T {
	v := reflect.ValueOf(&record).Elem()
	if v.Kind() == reflect.Pointer && !v.IsNil() {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return record
	}
	for _, name := range []string{"ID", "Id"} {
		field := v.FieldByName(name)
		if field.IsValid() && field.CanSet() && field.Kind() == reflect.String {
			field.SetString(id)
			break
		}
	}
	return record
}

// BackendCaller adapts a MemoryBackend to the transport.Caller interface,
// routing conventional "<entity>.<op>" endpoints to backend operations and
// counting calls per endpoint.
type BackendCaller[T any] struct {
	Backend *MemoryBackend[T]

	mu    sync.Mutex
	calls map[string]int
	fail  map[string]error
}

// NewBackendCaller wraps a backend in a caller.
func NewBackendCaller[T any](backend *MemoryBackend[T]) *BackendCaller[T] {
	return &BackendCaller[T]{
		Backend: backend,
		calls:   map[string]int{},
		fail:    map[string]error{},
	}
}

// FailWith makes subsequent calls to the endpoint return err. Pass nil to
// clear the failure.
func (c *BackendCaller[T]) FailWith(endpoint string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.fail, endpoint)
		return
	}
	c.fail[endpoint] = err
}

// Calls returns how often the endpoint has been invoked.
func (c *BackendCaller[T]) Calls(endpoint string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[endpoint]
}

// Call implements transport.Caller.
func (c *BackendCaller[T]) Call(_ context.Context, endpoint string, payload any) (any, error) {
	c.mu.Lock()
	c.calls[endpoint]++
	failure := c.fail[endpoint]
	c.mu.Unlock()

	if failure != nil {
		env := transport.Envelope{Error: failure.Error()}
		return env.Result()
	}

	data, err := c.dispatch(endpoint, payload)
	if err != nil {
		env := transport.Envelope{Error: err.Error()}
		return env.Result()
	}
	env := transport.Envelope{OK: true, Data: data}
	return env.Result()
}

func (c *BackendCaller[T]) dispatch(endpoint string, payload any) (any, error) {
	op := endpoint
	if i := strings.LastIndex(endpoint, "."); i >= 0 {
		op = endpoint[i+1:]
	}
	switch op {
	case "list":
		return c.Backend.List(), nil
	case "get":
		id, ok := payload.(string)
		if !ok {
			return nil, fmt.Errorf("testsupport: get expects a string id, got %T", payload)
		}
		return c.Backend.Get(id)
	case "create":
		record, ok := payload.(T)
		if !ok {
			return nil, fmt.Errorf("testsupport: create expects a record, got %T", payload)
		}
		return c.Backend.Create(record), nil
	case "update":
		record, ok := payload.(T)
		if !ok {
			return nil, fmt.Errorf("testsupport: update expects a record, got %T", payload)
		}
		return c.Backend.Update(record)
	case "delete":
		id, ok := payload.(string)
		if !ok {
			return nil, fmt.Errorf("testsupport: delete expects a string id, got %T", payload)
		}
		if err := c.Backend.Delete(id); err != nil {
			return nil, err
		}
		return id, nil
	default:
		return nil, fmt.Errorf("testsupport: unknown endpoint %q", endpoint)
	}
}

// ScriptedCaller serves canned responses per endpoint and counts calls.
// Responses are consumed in order; the last response repeats.
type ScriptedCaller struct {
	mu        sync.Mutex
	responses map[string][]scriptedResponse
	calls     map[string]int
}

type scriptedResponse struct {
	data any
	err  error
}

// NewScriptedCaller creates an empty scripted caller. Calls to endpoints
// with no script fail.
func NewScriptedCaller() *ScriptedCaller {
	return &ScriptedCaller{
		responses: map[string][]scriptedResponse{},
		calls:     map[string]int{},
	}
}

// On appends a response for the endpoint.
func (c *ScriptedCaller) On(endpoint string, data any, err error) *ScriptedCaller {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses[endpoint] = append(c.responses[endpoint], scriptedResponse{data: data, err: err})
	return c
}

// Calls returns how often the endpoint has been invoked.
func (c *ScriptedCaller) Calls(endpoint string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[endpoint]
}

// Call implements transport.Caller.
func (c *ScriptedCaller) Call(_ context.Context, endpoint string, _ any) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[endpoint]++
	queue := c.responses[endpoint]
	if len(queue) == 0 {
		return nil, fmt.Errorf("testsupport: no scripted response for %q", endpoint)
	}
	resp := queue[0]
	if len(queue) > 1 {
		c.responses[endpoint] = queue[1:]
	}
	return resp.data, resp.err
}
