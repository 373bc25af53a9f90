package amqp

import "testing"

func TestLedgerEventRoundTrip(t *testing.T) {
	for _, event := range []*LedgerEvent{NewCreatedEvent(42), NewDeletedEvent(7)} {
		body, err := event.ToJSON()
		if err != nil {
			t.Fatalf("marshal %s: %v", event.Kind, err)
		}
		got, err := LedgerEventFromJSON(body)
		if err != nil {
			t.Fatalf("unmarshal %s: %v", event.Kind, err)
		}
		if got.Kind != event.Kind || got.ID != event.ID {
			t.Fatalf("round trip changed event: got %+v, want %+v", got, event)
		}
	}
}

func TestLedgerEventFromJSONInvalid(t *testing.T) {
	if _, err := LedgerEventFromJSON([]byte("not json")); err == nil {
		t.Fatal("expected error for malformed body")
	}
}
