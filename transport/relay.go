package transport

import (
	"sync"

	"github.com/google/uuid"
)

// LocalRelay is an in-process Relay for single-process deployments and
// tests. Events still pass through the wire codec on publish, so handler
// behavior matches what a networked relay would deliver.
//
// Delivery is synchronous: Publish returns after every subscribed handler
// ran. Handlers subscribed while a publish is in progress do not receive
// that event.
type LocalRelay struct {
	mu     sync.Mutex
	topics map[string]map[string]Handler
}

var _ Relay = (*LocalRelay)(nil)

// NewLocalRelay creates an empty relay.
func NewLocalRelay() *LocalRelay {
	return &LocalRelay{topics: make(map[string]map[string]Handler)}
}

// Subscribe implements Relay.
func (r *LocalRelay) Subscribe(topic string, h Handler) func() {
	id := uuid.NewString()
	r.mu.Lock()
	subs := r.topics[topic]
	if subs == nil {
		subs = make(map[string]Handler)
		r.topics[topic] = subs
	}
	subs[id] = h
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			if subs := r.topics[topic]; subs != nil {
				delete(subs, id)
				if len(subs) == 0 {
					delete(r.topics, topic)
				}
			}
			r.mu.Unlock()
		})
	}
}

// Publish delivers an event for topic to every subscribed handler. The
// event is assigned a fresh ID and round-trips through the wire codec
// before delivery.
func (r *LocalRelay) Publish(topic, recordID string) error {
	data, err := EncodeEvent(Event{
		ID:       uuid.NewString(),
		Topic:    topic,
		RecordID: recordID,
	})
	if err != nil {
		return err
	}
	ev, err := DecodeEvent(data)
	if err != nil {
		return err
	}

	r.mu.Lock()
	handlers := make([]Handler, 0, len(r.topics[topic]))
	for _, h := range r.topics[topic] {
		handlers = append(handlers, h)
	}
	r.mu.Unlock()

	for _, h := range handlers {
		h(ev)
	}
	return nil
}
