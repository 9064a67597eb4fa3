package transport

import (
	"errors"
	"testing"
)

func TestEventCodecRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		ev   Event
	}{
		{
			name: "full event",
			ev:   Event{ID: "evt-1", Topic: "users:updated", RecordID: "42"},
		},
		{
			name: "no record id",
			ev:   Event{ID: "evt-2", Topic: "users:created"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeEvent(tt.ev)
			if err != nil {
				t.Fatalf("EncodeEvent() error = %v", err)
			}
			got, err := DecodeEvent(data)
			if err != nil {
				t.Fatalf("DecodeEvent() error = %v", err)
			}
			if got != tt.ev {
				t.Errorf("round trip = %+v, want %+v", got, tt.ev)
			}
		})
	}
}

func TestDecodeEvent_Garbage(t *testing.T) {
	if _, err := DecodeEvent([]byte{0xc1, 0xff}); err == nil {
		t.Error("DecodeEvent() on garbage should fail")
	}
}

func TestEnvelope_Result(t *testing.T) {
	ok := Envelope{OK: true, Data: "payload"}
	data, err := ok.Result()
	if err != nil || data != "payload" {
		t.Errorf("Result() = (%v, %v), want (payload, nil)", data, err)
	}

	failed := Envelope{Error: "record not found"}
	if _, err := failed.Result(); err == nil {
		t.Fatal("Result() on failed envelope should error")
	} else {
		var callErr *CallError
		if !errors.As(err, &callErr) {
			t.Fatalf("Result() error type = %T, want *CallError", err)
		}
		if callErr.Message != "record not found" {
			t.Errorf("CallError message = %q", callErr.Message)
		}
	}
}

func TestCallError_Error(t *testing.T) {
	bare := &CallError{Message: "boom"}
	if bare.Error() != "boom" {
		t.Errorf("Error() = %q, want boom", bare.Error())
	}
	scoped := &CallError{Endpoint: "users.get", Message: "boom"}
	if scoped.Error() != "users.get: boom" {
		t.Errorf("Error() = %q, want users.get: boom", scoped.Error())
	}
}

func TestLocalRelay_PublishDeliversToTopic(t *testing.T) {
	relay := NewLocalRelay()

	var usersEvents, rolesEvents []Event
	unsubUsers := relay.Subscribe("users:updated", func(ev Event) {
		usersEvents = append(usersEvents, ev)
	})
	defer unsubUsers()
	unsubRoles := relay.Subscribe("roles:updated", func(ev Event) {
		rolesEvents = append(rolesEvents, ev)
	})
	defer unsubRoles()

	if err := relay.Publish("users:updated", "42"); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if len(usersEvents) != 1 {
		t.Fatalf("users handler events = %d, want 1", len(usersEvents))
	}
	ev := usersEvents[0]
	if ev.Topic != "users:updated" || ev.RecordID != "42" {
		t.Errorf("delivered event = %+v", ev)
	}
	if ev.ID == "" {
		t.Error("delivered event should carry a generated id")
	}
	if len(rolesEvents) != 0 {
		t.Errorf("roles handler events = %d, want 0", len(rolesEvents))
	}
}

func TestLocalRelay_Unsubscribe(t *testing.T) {
	relay := NewLocalRelay()

	delivered := 0
	unsub := relay.Subscribe("users:deleted", func(Event) { delivered++ })

	if err := relay.Publish("users:deleted", "1"); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	unsub()
	unsub() // repeated unsubscribe is a no-op

	if err := relay.Publish("users:deleted", "2"); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if delivered != 1 {
		t.Errorf("delivered = %d, want 1", delivered)
	}
}

func TestLocalRelay_PublishWithoutSubscribers(t *testing.T) {
	relay := NewLocalRelay()
	if err := relay.Publish("nobody:listening", ""); err != nil {
		t.Errorf("Publish() with no subscribers error = %v", err)
	}
}
