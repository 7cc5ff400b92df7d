package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hunters2410/zimaio-sub004/pkg/events"
)

// OutboxRelay publishes outbox entries written alongside ledger changes.
// Delivery is at least once: entries are marked only after a successful
// publish.
type OutboxRelay struct {
	outbox    events.OutboxRepository
	publisher events.EntryPublisher
	topic     string
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

func NewOutboxRelay(outbox events.OutboxRepository, publisher events.EntryPublisher, topic string, interval time.Duration, batchSize int, logger *slog.Logger) *OutboxRelay {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &OutboxRelay{
		outbox:    outbox,
		publisher: publisher,
		topic:     topic,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Run drains the outbox every interval until ctx is canceled.
func (r *OutboxRelay) Run(ctx context.Context) error {
	r.logger.Info("outbox relay starting", "topic", r.topic, "interval", r.interval.String())

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("outbox relay stopped")
			return nil
		case <-ticker.C:
			for {
				n, err := r.RelayOnce(ctx)
				if err != nil {
					r.logger.Error("outbox relay failed", "error", err)
					break
				}
				if n < r.batchSize {
					break
				}
			}
		}
	}
}

// RelayOnce publishes one batch and returns how many entries were sent.
func (r *OutboxRelay) RelayOnce(ctx context.Context) (int, error) {
	entries, err := r.outbox.FetchUnpublished(ctx, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("fetch outbox: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	if err := r.publisher.Publish(ctx, r.topic, entries...); err != nil {
		return 0, fmt.Errorf("publish outbox batch: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	if err := r.outbox.MarkPublished(ctx, ids); err != nil {
		return 0, fmt.Errorf("mark outbox published: %w", err)
	}

	r.logger.Debug("outbox batch relayed", "count", len(entries))
	return len(entries), nil
}
