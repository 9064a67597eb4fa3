package entitystore

import (
	"github.com/goliatone/go-reactive-cache/transport"
)

// Event topic suffixes published after remote mutations.
const (
	TopicCreated = "created"
	TopicUpdated = "updated"
	TopicDeleted = "deleted"
)

// Topics returns the pub/sub topics an entity's mutation events arrive on.
func Topics(entity string) []string {
	return []string{
		entity + ":" + TopicCreated,
		entity + ":" + TopicUpdated,
		entity + ":" + TopicDeleted,
	}
}

// ListenEvents subscribes this store to the entity's mutation topics on the
// relay. Events carry only a record identifier, so convergence is by
// invalidation: the store's own list goes stale, as do the caches of every
// dependent entity, and the next observed read refetches. Handling the
// same event twice is harmless for the same reason.
//
// The returned function cancels all subscriptions.
func (s *Store[T]) ListenEvents(relay transport.Relay) func() {
	handler := func(ev transport.Event) {
		s.inv.InvalidateEntity(s.entity, s.scope)
		if ev.RecordID != "" {
			s.cache.Invalidate(s.detailKey(ev.RecordID))
		}
		s.inv.AfterMutation(s.entity)
	}

	topics := Topics(s.entity)
	unsubs := make([]func(), 0, len(topics))
	for _, topic := range topics {
		unsubs = append(unsubs, relay.Subscribe(topic, handler))
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}
