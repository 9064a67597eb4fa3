package transport

import "github.com/vmihailenco/msgpack/v5"

// Event is the minimal pub/sub notification payload. It deliberately
// carries only the affected record's identifier, never the record itself:
// the receiving side answers with an invalidate-and-refetch, so shipping
// the full record would only invite direct writes from payloads that may
// be stale by the time they arrive.
type Event struct {
	// ID uniquely identifies this notification.
	ID string `msgpack:"id"`

	// Topic is the channel the event was published on, conventionally
	// "<entity>:<verb>" such as "roles:deleted".
	Topic string `msgpack:"topic"`

	// RecordID identifies the affected record, when the verb has one.
	RecordID string `msgpack:"record_id,omitempty"`
}

// EncodeEvent serializes an event for the wire.
func EncodeEvent(ev Event) ([]byte, error) {
	return msgpack.Marshal(ev)
}

// DecodeEvent deserializes an event off the wire.
func DecodeEvent(data []byte) (Event, error) {
	var ev Event
	if err := msgpack.Unmarshal(data, &ev); err != nil {
		return Event{}, err
	}
	return ev, nil
}
