package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

const (
	defaultHandlerAttempts = 3
	defaultRetryBackoff    = 500 * time.Millisecond
)

// Handler processes a consumed Kafka message.
type Handler func(ctx context.Context, msg Message) error

// reader is the subset of *kafkago.Reader the consumer loop needs.
type reader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Consumer wraps kafka-go reader for consuming messages.
type Consumer struct {
	reader   reader
	topic    string
	group    string
	handler  Handler
	attempts int
	backoff  time.Duration
	logger   *slog.Logger
}

// NewConsumer creates a new Consumer for the given topic with the provided handler.
func NewConsumer(cfg Config, topic string, handler Handler, logger *slog.Logger) (*Consumer, error) {
	readerCfg := kafkago.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    topic,
		GroupID:  cfg.ConsumerGroup,
		MinBytes: 1,
		MaxBytes: 10 * 1024 * 1024, // 10 MB
	}

	if cfg.TLS || cfg.SASLEnabled {
		mechanism, err := cfg.saslMechanism()
		if err != nil {
			return nil, fmt.Errorf("kafka consumer: %w", err)
		}
		readerCfg.Dialer = &kafkago.Dialer{
			ClientID:      cfg.ClientID,
			TLS:           cfg.tlsConfig(),
			SASLMechanism: mechanism,
			DualStack:     true,
		}
	}

	c := newConsumer(kafkago.NewReader(readerCfg), topic, cfg.ConsumerGroup, handler, logger)
	if cfg.HandlerAttempts > 0 {
		c.attempts = cfg.HandlerAttempts
	}
	if cfg.RetryBackoff > 0 {
		c.backoff = cfg.RetryBackoff
	}
	return c, nil
}

func newConsumer(r reader, topic, group string, handler Handler, logger *slog.Logger) *Consumer {
	return &Consumer{
		reader:   r,
		topic:    topic,
		group:    group,
		handler:  handler,
		attempts: defaultHandlerAttempts,
		backoff:  defaultRetryBackoff,
		logger:   logger,
	}
}

// Start consumes until the context is canceled. A failing handler is retried
// with backoff; a message that still fails is logged and committed so one bad
// message cannot stall the partition.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer starting", "topic", c.topic, "group", c.group)

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				c.logger.Info("consumer stopping due to context cancellation", "topic", c.topic)
				return nil
			}
			return fmt.Errorf("fetching message: %w", err)
		}

		msg := Message{
			Key:     m.Key,
			Value:   m.Value,
			Headers: make(map[string]string, len(m.Headers)),
		}
		for _, h := range m.Headers {
			msg.Headers[h.Key] = string(h.Value)
		}

		if err := c.handle(ctx, msg); err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping due to context cancellation", "topic", c.topic)
				return nil
			}
			c.logger.Error("handler failed, skipping message",
				"topic", m.Topic,
				"partition", m.Partition,
				"offset", m.Offset,
				"attempts", c.attempts,
				"error", err,
			)
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			c.logger.Error("commit error",
				"topic", m.Topic,
				"partition", m.Partition,
				"offset", m.Offset,
				"error", err,
			)
		}
	}
}

// handle runs the handler up to c.attempts times, doubling the pause
// between attempts.
func (c *Consumer) handle(ctx context.Context, msg Message) error {
	wait := c.backoff
	var err error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		if err = c.handler(ctx, msg); err == nil {
			return nil
		}
		if attempt == c.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
	return err
}

// Close closes the reader.
func (c *Consumer) Close() error {
	if err := c.reader.Close(); err != nil {
		return fmt.Errorf("closing kafka reader: %w", err)
	}
	return nil
}
