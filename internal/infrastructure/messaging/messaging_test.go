package messaging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hunters2410/zimaio-sub004/pkg/events"
	pkgkafka "github.com/hunters2410/zimaio-sub004/pkg/kafka"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockProducer struct {
	publishFunc func(ctx context.Context, topic string, messages ...pkgkafka.Message) error
	topic       string
	messages    []pkgkafka.Message
}

func (m *mockProducer) Publish(ctx context.Context, topic string, messages ...pkgkafka.Message) error {
	if m.publishFunc != nil {
		return m.publishFunc(ctx, topic, messages...)
	}
	m.topic = topic
	m.messages = append(m.messages, messages...)
	return nil
}

type mockOutbox struct {
	pending   []events.OutboxEntry
	published []uuid.UUID
	fetchErr  error
}

func (m *mockOutbox) FetchUnpublished(_ context.Context, batchSize int) ([]events.OutboxEntry, error) {
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	if len(m.pending) > batchSize {
		return m.pending[:batchSize], nil
	}
	return m.pending, nil
}

func (m *mockOutbox) MarkPublished(_ context.Context, ids []uuid.UUID) error {
	m.published = append(m.published, ids...)
	done := map[uuid.UUID]bool{}
	for _, id := range ids {
		done[id] = true
	}
	var rest []events.OutboxEntry
	for _, e := range m.pending {
		if !done[e.ID] {
			rest = append(rest, e)
		}
	}
	m.pending = rest
	return nil
}

func testEntry(t *testing.T, eventType string) events.OutboxEntry {
	t.Helper()
	entry, err := events.NewOutboxEntry(events.NewBaseEvent(eventType, uuid.New(), "PaymentTransaction", []byte(`{"status":"pending"}`)))
	require.NoError(t, err)
	return entry
}

func TestPublisher_MapsEntries(t *testing.T) {
	producer := &mockProducer{}
	entry := testEntry(t, "payment.transaction.created")

	require.NoError(t, NewPublisher(producer).Publish(context.Background(), "zimaio.payment.transactions", entry))

	assert.Equal(t, "zimaio.payment.transactions", producer.topic)
	require.Len(t, producer.messages, 1)
	msg := producer.messages[0]
	assert.Equal(t, entry.AggregateID.String(), string(msg.Key))
	assert.Equal(t, entry.Payload, msg.Value)
	assert.Equal(t, "payment.transaction.created", msg.Headers["event_type"])
	assert.Equal(t, entry.ID.String(), msg.Headers["event_id"])
}

func TestOutboxRelay_RelayOnce(t *testing.T) {
	outbox := &mockOutbox{pending: []events.OutboxEntry{
		testEntry(t, "payment.transaction.created"),
		testEntry(t, "payment.transaction.pending"),
		testEntry(t, "payment.transaction.completed"),
	}}
	producer := &mockProducer{}
	relay := NewOutboxRelay(outbox, NewPublisher(producer), "topic", time.Second, 2, discardLogger())

	n, err := relay.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, outbox.published, 2)

	n, err = relay.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = relay.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, producer.messages, 3)
}

func TestOutboxRelay_PublishFailureLeavesEntries(t *testing.T) {
	outbox := &mockOutbox{pending: []events.OutboxEntry{testEntry(t, "payment.transaction.created")}}
	producer := &mockProducer{publishFunc: func(context.Context, string, ...pkgkafka.Message) error {
		return errors.New("broker down")
	}}
	relay := NewOutboxRelay(outbox, NewPublisher(producer), "topic", time.Second, 10, discardLogger())

	_, err := relay.RelayOnce(context.Background())
	require.Error(t, err)
	assert.Empty(t, outbox.published)
	assert.Len(t, outbox.pending, 1)
}

func TestOutboxRelay_RunStopsOnCancel(t *testing.T) {
	outbox := &mockOutbox{pending: []events.OutboxEntry{testEntry(t, "payment.transaction.created")}}
	relay := NewOutboxRelay(outbox, NewPublisher(&mockProducer{}), "topic", 10*time.Millisecond, 10, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	require.Eventually(t, func() bool { return len(outbox.pending) == 0 }, time.Second, 10*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}

type mockCanceller struct {
	orderIDs []uuid.UUID
	err      error
}

func (m *mockCanceller) Execute(_ context.Context, orderID uuid.UUID) (int, error) {
	m.orderIDs = append(m.orderIDs, orderID)
	return 1, m.err
}

func TestOrderEventHandler(t *testing.T) {
	canceller := &mockCanceller{}
	h := NewOrderEventHandler(canceller, discardLogger())
	orderID := uuid.New()

	cancelled := `{"event_id":"` + uuid.NewString() + `","event_type":"order.cancelled","aggregate_id":"` + uuid.NewString() +
		`","aggregate_type":"Order","data":{"order_id":"` + orderID.String() + `"}}`
	require.NoError(t, h.Handle(context.Background(), pkgkafka.Message{Value: []byte(cancelled)}))
	assert.Equal(t, []uuid.UUID{orderID}, canceller.orderIDs)

	other := `{"event_type":"order.shipped","aggregate_id":"` + orderID.String() + `"}`
	require.NoError(t, h.Handle(context.Background(), pkgkafka.Message{Value: []byte(other)}))
	assert.Len(t, canceller.orderIDs, 1, "other events ignored")

	require.NoError(t, h.Handle(context.Background(), pkgkafka.Message{Value: []byte("not json")}), "poison messages dropped")

	canceller.err = errors.New("db down")
	byAggregate := `{"event_type":"order.cancelled","aggregate_id":"` + orderID.String() + `"}`
	assert.Error(t, h.Handle(context.Background(), pkgkafka.Message{Value: []byte(byAggregate)}))
}
