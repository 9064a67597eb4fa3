// Package transport defines the two collaborator boundaries the cache
// adapters fetch and converge through: a request/response caller and a
// publish/subscribe relay.
package transport

import (
	"context"
	"fmt"
)

// Caller is the request/response transport boundary. Implementations
// resolve an endpoint id to a backend operation and return its decoded
// payload. A failed call returns a non-nil error; the result is then
// meaningless.
type Caller interface {
	Call(ctx context.Context, endpoint string, payload any) (any, error)
}

// Envelope is the tagged-union wire shape request/response results arrive
// in: either OK with data, or a failure with a message.
type Envelope struct {
	OK    bool   `json:"ok" msgpack:"ok"`
	Data  any    `json:"data,omitempty" msgpack:"data,omitempty"`
	Error string `json:"error,omitempty" msgpack:"error,omitempty"`
}

// Result unwraps the envelope into Go conventions: data on success, a
// CallError carrying the remote message otherwise.
func (e Envelope) Result() (any, error) {
	if e.OK {
		return e.Data, nil
	}
	return nil, &CallError{Message: e.Error}
}

// CallError is the error a failed envelope unwraps to.
type CallError struct {
	Endpoint string
	Message  string
}

// Error implements the error interface.
func (e *CallError) Error() string {
	if e.Endpoint == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Endpoint, e.Message)
}

// Handler receives pub/sub events for a subscribed topic.
type Handler func(ev Event)

// Relay is the publish/subscribe transport boundary. Subscribe registers
// a handler for a topic and returns an unsubscribe function. Delivery
// order across publishers is not guaranteed; handlers must be idempotent.
type Relay interface {
	Subscribe(topic string, h Handler) (unsubscribe func())
}
