package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DomainEvent is anything an aggregate repository can write to the outbox.
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	AggregateID() uuid.UUID
	AggregateType() string
	OccurredAt() time.Time
	Payload() []byte
}

// BaseEvent is the envelope half of a DomainEvent. Aggregate events embed it
// and keep their typed data alongside.
type BaseEvent struct {
	id            uuid.UUID
	eventType     string
	aggregateID   uuid.UUID
	aggregateType string
	occurredAt    time.Time
	payload       []byte
}

// NewBaseEvent stamps a new event id and the current UTC time. data becomes
// the envelope's data section: []byte and json.RawMessage are taken as
// already-encoded JSON, anything else is marshaled. Event data is always a
// plain struct, so a marshal failure is a programming error and panics.
func NewBaseEvent(eventType string, aggregateID uuid.UUID, aggregateType string, data any) BaseEvent {
	var payload []byte
	switch d := data.(type) {
	case nil:
	case []byte:
		payload = d
	case json.RawMessage:
		payload = d
	default:
		b, err := json.Marshal(d)
		if err != nil {
			panic(fmt.Sprintf("events: encoding %s data: %v", eventType, err))
		}
		payload = b
	}

	return BaseEvent{
		id:            uuid.New(),
		eventType:     eventType,
		aggregateID:   aggregateID,
		aggregateType: aggregateType,
		occurredAt:    time.Now().UTC(),
		payload:       payload,
	}
}

func (e BaseEvent) EventID() uuid.UUID     { return e.id }
func (e BaseEvent) EventType() string      { return e.eventType }
func (e BaseEvent) AggregateID() uuid.UUID { return e.aggregateID }
func (e BaseEvent) AggregateType() string  { return e.aggregateType }
func (e BaseEvent) OccurredAt() time.Time  { return e.occurredAt }

// Payload returns the JSON data section, or nil for events without data.
func (e BaseEvent) Payload() []byte { return e.payload }
