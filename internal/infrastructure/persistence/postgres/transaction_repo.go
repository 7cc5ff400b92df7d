package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/hunters2410/zimaio-sub004/internal/domain/model"
	"github.com/hunters2410/zimaio-sub004/internal/domain/port"
	"github.com/hunters2410/zimaio-sub004/internal/domain/valueobject"
	"github.com/hunters2410/zimaio-sub004/pkg/events"
	"github.com/hunters2410/zimaio-sub004/pkg/money"
	pgpkg "github.com/hunters2410/zimaio-sub004/pkg/postgres"
)

// Compile-time interface check.
var _ port.TransactionRepository = (*TransactionRepo)(nil)

const transactionColumns = `
	id, order_id, user_id, gateway_id, gateway_type,
	amount, currency, status,
	gateway_transaction_id, transaction_reference, error_message,
	metadata, version, created_at, updated_at`

// TransactionRepo implements TransactionRepository using PostgreSQL.
type TransactionRepo struct {
	pool *pgxpool.Pool
}

func NewTransactionRepo(pool *pgxpool.Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

func (r *TransactionRepo) Create(ctx context.Context, txn model.Transaction) error {
	metadata, err := json.Marshal(txn.Metadata())
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	return pgpkg.WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO payment_transactions (
				id, order_id, user_id, gateway_id, gateway_type,
				amount, currency, status,
				gateway_transaction_id, transaction_reference, error_message,
				metadata, version, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), NULLIF($10, ''), NULLIF($11, ''), $12::jsonb, $13, $14, $15)
		`,
			txn.ID(), txn.OrderID(), txn.UserID(), txn.GatewayID(), txn.GatewayType().String(),
			txn.Amount().Amount(), txn.Amount().Currency().Code(), txn.Status().String(),
			txn.GatewayTransactionID(), txn.TransactionReference(), txn.ErrorMessage(),
			metadata, txn.Version(), txn.CreatedAt(), txn.UpdatedAt(),
		)
		if pgpkg.IsUniqueViolation(err) {
			return fmt.Errorf("transaction %s: %w", txn.ID(), model.ErrDuplicateTransaction)
		}
		if err != nil {
			return fmt.Errorf("insert payment transaction: %w", err)
		}
		return writeOutbox(ctx, tx, txn.DomainEvents())
	})
}

// Update overwrites the scalar fields, merges the metadata delta into the
// stored document, and checks the version the change was applied to.
func (r *TransactionRepo) Update(ctx context.Context, txn model.Transaction) error {
	delta, err := json.Marshal(txn.MetadataDelta())
	if err != nil {
		return fmt.Errorf("marshal metadata delta: %w", err)
	}

	return pgpkg.WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE payment_transactions SET
				status = $2,
				gateway_transaction_id = COALESCE(NULLIF($3, ''), gateway_transaction_id),
				transaction_reference = COALESCE(NULLIF($4, ''), transaction_reference),
				error_message = COALESCE(NULLIF($5, ''), error_message),
				metadata = metadata || $6::jsonb,
				version = $7,
				updated_at = $8
			WHERE id = $1 AND version = $9
		`,
			txn.ID(), txn.Status().String(),
			txn.GatewayTransactionID(), txn.TransactionReference(), txn.ErrorMessage(),
			delta, txn.Version(), txn.UpdatedAt(), txn.Version()-1,
		)
		if err != nil {
			return fmt.Errorf("update payment transaction: %w", err)
		}
		if tag.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM payment_transactions WHERE id = $1)`, txn.ID()).Scan(&exists); err != nil {
				return fmt.Errorf("check payment transaction: %w", err)
			}
			if !exists {
				return fmt.Errorf("transaction %s: %w", txn.ID(), model.ErrTransactionNotFound)
			}
			return fmt.Errorf("transaction %s: %w", txn.ID(), model.ErrConcurrentUpdate)
		}
		return writeOutbox(ctx, tx, txn.DomainEvents())
	})
}

func (r *TransactionRepo) FindByID(ctx context.Context, id uuid.UUID) (model.Transaction, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+transactionColumns+` FROM payment_transactions WHERE id = $1`, id)
	txn, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Transaction{}, fmt.Errorf("transaction %s: %w", id, model.ErrTransactionNotFound)
		}
		return model.Transaction{}, fmt.Errorf("query payment transaction: %w", err)
	}
	return txn, nil
}

func (r *TransactionRepo) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]model.Transaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+transactionColumns+`
		FROM payment_transactions
		WHERE order_id = $1
		ORDER BY created_at DESC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query payment transactions: %w", err)
	}
	return collectTransactions(rows)
}

func (r *TransactionRepo) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]model.Transaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+transactionColumns+`
		FROM payment_transactions
		WHERE status IN ('pending', 'processing') AND updated_at < $1
		ORDER BY updated_at ASC
		LIMIT $2
	`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("query stale payment transactions: %w", err)
	}
	return collectTransactions(rows)
}

func collectTransactions(rows pgx.Rows) ([]model.Transaction, error) {
	defer rows.Close()

	var txns []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment transaction: %w", err)
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment transactions: %w", err)
	}
	return txns, nil
}

func scanTransaction(row pgx.Row) (model.Transaction, error) {
	var (
		id, orderID, userID, gatewayID uuid.UUID
		gatewayTypeStr                 string
		amount                         decimal.Decimal
		currencyCode                   string
		statusStr                      string
		gatewayTxnID                   *string
		reference                      *string
		errorMessage                   *string
		metadataRaw                    []byte
		version                        int
		createdAt, updatedAt           time.Time
	)
	if err := row.Scan(
		&id, &orderID, &userID, &gatewayID, &gatewayTypeStr,
		&amount, &currencyCode, &statusStr,
		&gatewayTxnID, &reference, &errorMessage,
		&metadataRaw, &version, &createdAt, &updatedAt,
	); err != nil {
		return model.Transaction{}, err
	}

	gatewayType, err := valueobject.NewGatewayType(gatewayTypeStr)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("transaction %s: %w", id, err)
	}
	status, err := valueobject.NewTransactionStatus(statusStr)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("transaction %s: %w", id, err)
	}
	currency, err := money.NewCurrency(currencyCode)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("transaction %s: %w", id, err)
	}

	metadata := map[string]any{}
	if len(metadataRaw) > 0 {
		if err := json.Unmarshal(metadataRaw, &metadata); err != nil {
			return model.Transaction{}, fmt.Errorf("transaction %s metadata: %w", id, err)
		}
	}

	return model.ReconstructTransaction(
		id, orderID, userID, gatewayID,
		gatewayType,
		money.New(amount, currency),
		status,
		deref(gatewayTxnID), deref(reference), deref(errorMessage),
		metadata, version, createdAt, updatedAt,
	), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// writeOutbox stores domain events in the same database transaction as the
// aggregate write.
func writeOutbox(ctx context.Context, tx pgx.Tx, evts []events.DomainEvent) error {
	for _, evt := range evts {
		entry, err := events.NewOutboxEntry(evt)
		if err != nil {
			return fmt.Errorf("build outbox entry: %w", err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO outbox (id, aggregate_id, aggregate_type, event_type, payload, created_at)
			VALUES ($1, $2, $3, $4, $5::jsonb, $6)
		`, entry.ID, entry.AggregateID, entry.AggregateType, entry.EventType, entry.Payload, entry.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert outbox event: %w", err)
		}
	}
	return nil
}
