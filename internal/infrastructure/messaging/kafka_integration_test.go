//go:build integration

package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hunters2410/zimaio-sub004/pkg/events"
	pkgkafka "github.com/hunters2410/zimaio-sub004/pkg/kafka"
	"github.com/hunters2410/zimaio-sub004/pkg/testutil"
)

const (
	transactionsTopic = "zimaio.payment.transactions"
	ordersTopic       = "zimaio.orders"
)

type chanCanceller chan uuid.UUID

func (c chanCanceller) Execute(_ context.Context, orderID uuid.UUID) (int, error) {
	c <- orderID
	return 1, nil
}

func TestKafka_RelayToConsumer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	kc := testutil.NewKafkaContainer(ctx, t)
	defer kc.Cleanup(t)
	kc.CreateTopics(t, transactionsTopic, ordersTopic)

	producer, err := pkgkafka.NewProducer(kc.ClientConfig(""))
	require.NoError(t, err)
	defer producer.Close()

	t.Run("outbox entries reach the topic", func(t *testing.T) {
		outbox := &mockOutbox{pending: []events.OutboxEntry{
			testEntry(t, "payment.transaction.created"),
			testEntry(t, "payment.transaction.completed"),
		}}
		want := outbox.pending[0]

		relay := NewOutboxRelay(outbox, NewPublisher(producer), transactionsTopic, time.Second, 10, discardLogger())
		n, err := relay.RelayOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Empty(t, outbox.pending)

		received := make(chan pkgkafka.Message, 2)
		consumer, err := pkgkafka.NewConsumer(kc.ClientConfig("relay-test"), transactionsTopic,
			func(_ context.Context, msg pkgkafka.Message) error {
				received <- msg
				return nil
			}, discardLogger())
		require.NoError(t, err)
		defer consumer.Close()

		consumeCtx, stop := context.WithCancel(ctx)
		defer stop()
		go func() { _ = consumer.Start(consumeCtx) }()

		select {
		case msg := <-received:
			assert.Equal(t, want.AggregateID.String(), string(msg.Key))
			assert.Equal(t, "payment.transaction.created", msg.Headers["event_type"])
			env, err := events.ParseEnvelope(msg.Value)
			require.NoError(t, err)
			assert.Equal(t, want.ID, env.EventID)
		case <-ctx.Done():
			t.Fatal("timed out waiting for relayed event")
		}
	})

	t.Run("order cancellation reaches the canceller", func(t *testing.T) {
		cancelled := make(chanCanceller, 1)
		handler := NewOrderEventHandler(cancelled, discardLogger())

		consumer, err := pkgkafka.NewConsumer(kc.ClientConfig("orders-test"), ordersTopic, handler.Handle, discardLogger())
		require.NoError(t, err)
		defer consumer.Close()

		consumeCtx, stop := context.WithCancel(ctx)
		defer stop()
		go func() { _ = consumer.Start(consumeCtx) }()

		orderID := uuid.New()
		entry, err := events.NewOutboxEntry(events.NewBaseEvent(EventOrderCancelled, orderID, "Order", nil))
		require.NoError(t, err)
		require.NoError(t, producer.Publish(ctx, ordersTopic, pkgkafka.Message{Key: []byte(orderID.String()), Value: entry.Payload}))

		select {
		case got := <-cancelled:
			assert.Equal(t, orderID, got)
		case <-ctx.Done():
			t.Fatal("timed out waiting for order cancellation")
		}
	})
}
