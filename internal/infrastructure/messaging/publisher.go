package messaging

import (
	"context"
	"fmt"

	"github.com/hunters2410/zimaio-sub004/pkg/events"
	pkgkafka "github.com/hunters2410/zimaio-sub004/pkg/kafka"
)

var _ events.EntryPublisher = (*Publisher)(nil)

// MessageProducer is satisfied by *pkgkafka.Producer.
type MessageProducer interface {
	Publish(ctx context.Context, topic string, messages ...pkgkafka.Message) error
}

// Publisher implements EntryPublisher using Kafka. Entries are keyed by
// aggregate id so one transaction's events stay ordered on a partition.
type Publisher struct {
	producer MessageProducer
}

func NewPublisher(producer MessageProducer) *Publisher {
	return &Publisher{producer: producer}
}

func (p *Publisher) Publish(ctx context.Context, topic string, entries ...events.OutboxEntry) error {
	messages := make([]pkgkafka.Message, 0, len(entries))
	for _, e := range entries {
		messages = append(messages, pkgkafka.Message{
			Key:   []byte(e.AggregateID.String()),
			Value: e.Payload,
			Headers: map[string]string{
				"event_type":     e.EventType,
				"aggregate_type": e.AggregateType,
				"event_id":       e.ID.String(),
			},
		})
	}
	if err := p.producer.Publish(ctx, topic, messages...); err != nil {
		return fmt.Errorf("kafka publish: %w", err)
	}
	return nil
}
