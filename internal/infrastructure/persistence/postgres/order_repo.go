package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/hunters2410/zimaio-sub004/internal/domain/model"
	"github.com/hunters2410/zimaio-sub004/internal/domain/port"
	"github.com/hunters2410/zimaio-sub004/pkg/money"
)

var _ port.OrderRepository = (*OrderRepo)(nil)

// OrderRepo reads the orders table owned by order management.
type OrderRepo struct {
	pool *pgxpool.Pool
}

func NewOrderRepo(pool *pgxpool.Pool) *OrderRepo {
	return &OrderRepo{pool: pool}
}

func (r *OrderRepo) FindForCustomer(ctx context.Context, orderID, customerID uuid.UUID) (model.Order, error) {
	var (
		id, ownerID   uuid.UUID
		orderNumber   string
		total         decimal.Decimal
		currencyCode  string
		status        string
		paymentStatus string
		createdAt     time.Time
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, customer_id, order_number, total_amount, currency, status, payment_status, created_at
		FROM orders
		WHERE id = $1 AND customer_id = $2
	`, orderID, customerID).Scan(&id, &ownerID, &orderNumber, &total, &currencyCode, &status, &paymentStatus, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Order{}, fmt.Errorf("order %s: %w", orderID, model.ErrOrderNotFound)
		}
		return model.Order{}, fmt.Errorf("query order: %w", err)
	}

	currency, err := money.NewCurrency(currencyCode)
	if err != nil {
		return model.Order{}, fmt.Errorf("order %s: %w", id, err)
	}
	return model.ReconstructOrder(id, ownerID, orderNumber, money.New(total, currency), status, paymentStatus, createdAt), nil
}

func (r *OrderRepo) MarkPaid(ctx context.Context, orderID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE orders SET status = $2, payment_status = $3, updated_at = now()
		WHERE id = $1
	`, orderID, model.OrderStatusProcessing, model.OrderPaymentPaid)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %s: %w", orderID, model.ErrOrderNotFound)
	}
	return nil
}
