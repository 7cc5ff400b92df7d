package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Envelope is the wire format of an event on the bus.
type Envelope struct {
	EventID       uuid.UUID       `json:"event_id"`
	EventType     string          `json:"event_type"`
	AggregateID   uuid.UUID       `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Data          json.RawMessage `json:"data,omitempty"`
}

// ParseEnvelope decodes an event envelope received from the bus.
func ParseEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("decoding event envelope: %w", err)
	}
	if env.EventType == "" {
		return Envelope{}, fmt.Errorf("event envelope has no event_type")
	}
	return env, nil
}

// OutboxEntry represents a domain event stored in the outbox table.
type OutboxEntry struct {
	ID            uuid.UUID
	AggregateID   uuid.UUID
	AggregateType string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
	PublishedAt   *time.Time
}

// NewOutboxEntry creates an OutboxEntry from a DomainEvent.
// The stored payload is the full Envelope so the relay can publish it verbatim.
func NewOutboxEntry(event DomainEvent) (OutboxEntry, error) {
	env := Envelope{
		EventID:       event.EventID(),
		EventType:     event.EventType(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		OccurredAt:    event.OccurredAt(),
		Data:          event.Payload(),
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return OutboxEntry{}, fmt.Errorf("marshaling %s event: %w", event.EventType(), err)
	}
	return OutboxEntry{
		ID:            event.EventID(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		EventType:     event.EventType(),
		Payload:       payload,
		CreatedAt:     event.OccurredAt(),
	}, nil
}

// OutboxRepository is the port the relay uses to drain the outbox. Entries
// are written by the aggregate repositories inside their own transactions.
type OutboxRepository interface {
	FetchUnpublished(ctx context.Context, batchSize int) ([]OutboxEntry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID) error
}

// EntryPublisher publishes outbox entries to a message broker.
type EntryPublisher interface {
	Publish(ctx context.Context, topic string, entries ...OutboxEntry) error
}
