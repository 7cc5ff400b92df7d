package port

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hunters2410/zimaio-sub004/internal/domain/model"
	"github.com/hunters2410/zimaio-sub004/internal/domain/valueobject"
)

// TransactionRepository is the ledger. Every write stores the aggregate's
// pending domain events in the outbox within the same database transaction.
type TransactionRepository interface {
	// Create inserts a new pending transaction.
	Create(ctx context.Context, txn model.Transaction) error
	// Update persists an applied change: scalar fields are overwritten, the
	// metadata delta is merged, and the write fails with ErrConcurrentUpdate
	// when the stored version moved on.
	Update(ctx context.Context, txn model.Transaction) error
	// FindByID returns ErrTransactionNotFound when no row exists.
	FindByID(ctx context.Context, id uuid.UUID) (model.Transaction, error)
	// ListByOrder returns all attempts for an order, newest first.
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]model.Transaction, error)
	// ListStale returns non-terminal attempts last touched before cutoff, oldest first.
	ListStale(ctx context.Context, cutoff time.Time, limit int) ([]model.Transaction, error)
}

// OrderRepository reads orders owned by order management.
type OrderRepository interface {
	// FindForCustomer returns ErrOrderNotFound when the order does not exist
	// or belongs to another customer.
	FindForCustomer(ctx context.Context, orderID, customerID uuid.UUID) (model.Order, error)
	// MarkPaid sets status=processing and payment_status=paid.
	MarkPaid(ctx context.Context, orderID uuid.UUID) error
}

// GatewayRepository reads configured payment gateways.
type GatewayRepository interface {
	// FindActiveByType returns ErrGatewayUnavailable when no active row exists.
	FindActiveByType(ctx context.Context, gatewayType valueobject.GatewayType) (model.Gateway, error)
	// FindByID loads a gateway regardless of its active flag.
	FindByID(ctx context.Context, id uuid.UUID) (model.Gateway, error)
}

// InstructionRepository reads manual payment instructions.
type InstructionRepository interface {
	// ListActiveByGateway returns active steps ordered by step number.
	ListActiveByGateway(ctx context.Context, gatewayID uuid.UUID) ([]model.PaymentInstruction, error)
}

// AttemptLock serialises payment attempts per order.
type AttemptLock interface {
	// Acquire returns ErrAttemptInProgress when another attempt holds the lock.
	Acquire(ctx context.Context, orderID uuid.UUID) (release func(context.Context) error, err error)
}
