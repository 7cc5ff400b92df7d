package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewBaseEvent(t *testing.T) {
	aggregateID := uuid.New()

	before := time.Now().UTC()
	event := NewBaseEvent("payment.transaction.created", aggregateID, "PaymentTransaction", []byte(`{"status":"pending"}`))
	after := time.Now().UTC()

	if event.EventID() == uuid.Nil {
		t.Error("expected non-nil event ID")
	}
	if event.EventType() != "payment.transaction.created" {
		t.Errorf("expected event type %q, got %q", "payment.transaction.created", event.EventType())
	}
	if event.AggregateID() != aggregateID {
		t.Errorf("expected aggregate ID %v, got %v", aggregateID, event.AggregateID())
	}
	if event.AggregateType() != "PaymentTransaction" {
		t.Errorf("expected aggregate type %q, got %q", "PaymentTransaction", event.AggregateType())
	}
	if event.OccurredAt().Before(before) || event.OccurredAt().After(after) {
		t.Errorf("expected occurredAt between %v and %v, got %v", before, after, event.OccurredAt())
	}
}

func TestBaseEventImplementsDomainEvent(t *testing.T) {
	var _ DomainEvent = BaseEvent{}
}

func TestNewOutboxEntry(t *testing.T) {
	aggregateID := uuid.New()
	event := NewBaseEvent("payment.transaction.completed", aggregateID, "PaymentTransaction", []byte(`{"amount":"25"}`))

	entry, err := NewOutboxEntry(event)
	if err != nil {
		t.Fatalf("NewOutboxEntry() error = %v", err)
	}

	if entry.ID != event.EventID() {
		t.Errorf("expected outbox ID %v, got %v", event.EventID(), entry.ID)
	}
	if entry.AggregateID != aggregateID {
		t.Errorf("expected aggregate ID %v, got %v", aggregateID, entry.AggregateID)
	}
	if entry.EventType != "payment.transaction.completed" {
		t.Errorf("expected event type %q, got %q", "payment.transaction.completed", entry.EventType)
	}
	if !entry.CreatedAt.Equal(event.OccurredAt()) {
		t.Errorf("expected created at %v, got %v", event.OccurredAt(), entry.CreatedAt)
	}
	if entry.PublishedAt != nil {
		t.Error("expected published at to be nil")
	}

	env, err := ParseEnvelope(entry.Payload)
	if err != nil {
		t.Fatalf("ParseEnvelope() error = %v", err)
	}
	if env.EventID != event.EventID() || env.AggregateID != aggregateID {
		t.Errorf("envelope ids = %v/%v, want %v/%v", env.EventID, env.AggregateID, event.EventID(), aggregateID)
	}

	var data map[string]string
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("envelope data is not JSON: %v", err)
	}
	if data["amount"] != "25" {
		t.Errorf("data.amount = %q, want 25", data["amount"])
	}
}

func TestNewBaseEvent_EncodesData(t *testing.T) {
	event := NewBaseEvent("payment.transaction.failed", uuid.New(), "PaymentTransaction", struct {
		Status string `json:"status"`
	}{"failed"})
	if string(event.Payload()) != `{"status":"failed"}` {
		t.Errorf("payload = %s, want {\"status\":\"failed\"}", event.Payload())
	}

	if NewBaseEvent("x", uuid.New(), "Agg", nil).Payload() != nil {
		t.Error("expected nil payload for nil data")
	}
}

func TestNewBaseEvent_PanicsOnUnencodableData(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for channel data")
		}
	}()
	NewBaseEvent("x", uuid.New(), "Agg", make(chan int))
}

func TestNewOutboxEntry_InvalidPayload(t *testing.T) {
	event := NewBaseEvent("x", uuid.New(), "Agg", []byte("{not json"))
	if _, err := NewOutboxEntry(event); err == nil {
		t.Fatal("expected error for non-JSON payload, got nil")
	}
}

func TestParseEnvelope_RequiresType(t *testing.T) {
	if _, err := ParseEnvelope([]byte(`{"aggregate_id":"` + uuid.NewString() + `"}`)); err == nil {
		t.Fatal("expected error for envelope without event_type")
	}
	if _, err := ParseEnvelope([]byte(`nope`)); err == nil {
		t.Fatal("expected error for malformed envelope")
	}
}
