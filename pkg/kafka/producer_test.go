package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducer(t *testing.T) {
	p, err := NewProducer(Config{
		Brokers:  []string{"localhost:9092", "localhost:9093"},
		ClientID: "paymentd",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"localhost:9092", "localhost:9093"}, p.brokers)
	assert.Empty(t, p.writers)
	assert.Equal(t, "paymentd", p.transport.ClientID)
	assert.Nil(t, p.transport.TLS)
	assert.Nil(t, p.transport.SASL)
}

func TestNewProducer_SecurityOptions(t *testing.T) {
	p, err := NewProducer(Config{
		Brokers:       []string{"kafka:9093"},
		TLS:           true,
		SASLEnabled:   true,
		SASLMechanism: "SCRAM-SHA-512",
		SASLUsername:  "svc",
		SASLPassword:  "secret",
	})
	require.NoError(t, err)
	assert.NotNil(t, p.transport.TLS)
	require.NotNil(t, p.transport.SASL)
	assert.Equal(t, "SCRAM-SHA-512", p.transport.SASL.Name())
}

func TestNewProducer_UnknownMechanism(t *testing.T) {
	_, err := NewProducer(Config{SASLEnabled: true, SASLMechanism: "GSSAPI"})
	assert.Error(t, err)
}

func TestGetOrCreateWriter(t *testing.T) {
	p, err := NewProducer(Config{Brokers: []string{"localhost:9092"}})
	require.NoError(t, err)

	w1 := p.getOrCreateWriter("zimaio.payment.transactions")
	w2 := p.getOrCreateWriter("zimaio.payment.transactions")
	w3 := p.getOrCreateWriter("zimaio.orders")

	assert.Same(t, w1, w2)
	assert.NotSame(t, w1, w3)
	assert.Len(t, p.writers, 2)
	assert.Same(t, p.transport, w1.Transport)
}

func TestProducerClose(t *testing.T) {
	p, err := NewProducer(Config{Brokers: []string{"localhost:9092"}})
	require.NoError(t, err)

	_ = p.getOrCreateWriter("topic-a")
	_ = p.getOrCreateWriter("topic-b")

	require.NoError(t, p.Close())
	assert.Empty(t, p.writers)
}
