package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/hunters2410/zimaio-sub004/pkg/events"
	pkgkafka "github.com/hunters2410/zimaio-sub004/pkg/kafka"
)

// EventOrderCancelled is published by order management when an order is
// cancelled before settlement.
const EventOrderCancelled = "order.cancelled"

// OrderCanceller closes the open payment attempts of a cancelled order.
type OrderCanceller interface {
	Execute(ctx context.Context, orderID uuid.UUID) (int, error)
}

// OrderEventHandler reacts to order-management events.
type OrderEventHandler struct {
	canceller OrderCanceller
	logger    *slog.Logger
}

func NewOrderEventHandler(canceller OrderCanceller, logger *slog.Logger) *OrderEventHandler {
	return &OrderEventHandler{canceller: canceller, logger: logger}
}

type orderEventData struct {
	OrderID uuid.UUID `json:"order_id"`
}

// Handle is a pkgkafka.Handler. Malformed messages are logged and dropped;
// cancellation failures are returned so the consumer retries them.
func (h *OrderEventHandler) Handle(ctx context.Context, msg pkgkafka.Message) error {
	env, err := events.ParseEnvelope(msg.Value)
	if err != nil {
		h.logger.Warn("dropping malformed order event", "error", err)
		return nil
	}
	if env.EventType != EventOrderCancelled {
		return nil
	}

	orderID := env.AggregateID
	if len(env.Data) > 0 {
		var data orderEventData
		if err := json.Unmarshal(env.Data, &data); err == nil && data.OrderID != uuid.Nil {
			orderID = data.OrderID
		}
	}
	if orderID == uuid.Nil {
		h.logger.Warn("dropping order event without order id", "event_id", env.EventID)
		return nil
	}

	n, err := h.canceller.Execute(ctx, orderID)
	if err != nil {
		return fmt.Errorf("cancelling attempts for order %s: %w", orderID, err)
	}
	h.logger.Info("order cancelled", "order_id", orderID, "attempts_failed", n)
	return nil
}
