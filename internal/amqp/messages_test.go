package amqp

import (
	"testing"
	"time"
)

func TestExpenseEventRoundTrip(t *testing.T) {
	ev := NewExpenseCreated(42)
	if ev.Kind != KindExpenseCreated {
		t.Fatalf("kind = %q, want %q", ev.Kind, KindExpenseCreated)
	}
	if ev.Timestamp.IsZero() {
		t.Fatal("timestamp not set")
	}

	body, err := ev.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	got, err := ExpenseEventFromJSON(body)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ID != 42 || got.Kind != KindExpenseCreated {
		t.Errorf("round trip = %+v", got)
	}
	if !got.Timestamp.Truncate(time.Millisecond).Equal(ev.Timestamp.Truncate(time.Millisecond)) {
		t.Errorf("timestamp round trip: got %v, want %v", got.Timestamp, ev.Timestamp)
	}
}

func TestExpenseEventFromJSONInvalid(t *testing.T) {
	if _, err := ExpenseEventFromJSON([]byte("not json")); err == nil {
		t.Error("expected error for invalid payload")
	}
}

func TestNewExpenseDeleted(t *testing.T) {
	ev := NewExpenseDeleted(7)
	if ev.Kind != KindExpenseDeleted || ev.ID != 7 {
		t.Errorf("event = %+v", ev)
	}
}
