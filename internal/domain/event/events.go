package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/hunters2410/zimaio-sub004/pkg/events"
)

const AggregateTypeTransaction = "PaymentTransaction"

// Event types published to zimaio.payment.transactions.
const (
	TypeTransactionCreated       = "payment.transaction.created"
	TypeTransactionPending       = "payment.transaction.pending"
	TypeTransactionProcessing    = "payment.transaction.processing"
	TypeTransactionCompleted     = "payment.transaction.completed"
	TypeTransactionFailed        = "payment.transaction.failed"
	TypeTransactionIndeterminate = "payment.transaction.indeterminate"
	TypeTransactionConflict      = "payment.transaction.conflict"
)

// TransactionSnapshot is the payload every transaction event carries, so
// consumers never need to read the ledger to act on one.
type TransactionSnapshot struct {
	TransactionID        uuid.UUID `json:"transaction_id"`
	OrderID              uuid.UUID `json:"order_id"`
	UserID               uuid.UUID `json:"user_id"`
	GatewayType          string    `json:"gateway_type"`
	Amount               string    `json:"amount"`
	Currency             string    `json:"currency"`
	Status               string    `json:"status"`
	GatewayTransactionID string    `json:"gateway_transaction_id,omitempty"`
	TransactionReference string    `json:"transaction_reference,omitempty"`
	ErrorMessage         string    `json:"error_message,omitempty"`
}

// TransactionEvent is emitted on every ledger write of a payment transaction.
type TransactionEvent struct {
	events.BaseEvent
	Snapshot TransactionSnapshot `json:"snapshot"`
}

func newTransactionEvent(eventType string, s TransactionSnapshot) TransactionEvent {
	return TransactionEvent{
		BaseEvent: events.NewBaseEvent(eventType, s.TransactionID, AggregateTypeTransaction, s),
		Snapshot:  s,
	}
}

// NewTransactionCreated is emitted when a pending attempt is recorded.
func NewTransactionCreated(s TransactionSnapshot) TransactionEvent {
	return newTransactionEvent(TypeTransactionCreated, s)
}

// NewTransactionStatusChanged is emitted for the adapter's ledger update. Its
// type follows the resulting status, including pending when the row stays pending.
func NewTransactionStatusChanged(s TransactionSnapshot) TransactionEvent {
	return newTransactionEvent("payment.transaction."+s.Status, s)
}

// TransactionIndeterminate is emitted by reconciliation for an attempt whose
// outcome cannot be determined from here.
type TransactionIndeterminate struct {
	TransactionEvent
	PendingSince time.Time `json:"pending_since"`
}

func NewTransactionIndeterminate(s TransactionSnapshot, pendingSince time.Time) TransactionIndeterminate {
	data := struct {
		TransactionSnapshot
		PendingSince time.Time `json:"pending_since"`
	}{s, pendingSince}

	return TransactionIndeterminate{
		TransactionEvent: TransactionEvent{
			BaseEvent: events.NewBaseEvent(TypeTransactionIndeterminate, s.TransactionID, AggregateTypeTransaction, data),
			Snapshot:  s,
		},
		PendingSince: pendingSince,
	}
}

// TransactionConflict is emitted when a processor reports a terminal result
// that the ledger cannot take because the row already settled otherwise.
type TransactionConflict struct {
	TransactionEvent
	ReportedStatus string `json:"reported_status"`
}

func NewTransactionConflict(s TransactionSnapshot, reportedStatus string) TransactionConflict {
	data := struct {
		TransactionSnapshot
		ReportedStatus string `json:"reported_status"`
	}{s, reportedStatus}

	return TransactionConflict{
		TransactionEvent: TransactionEvent{
			BaseEvent: events.NewBaseEvent(TypeTransactionConflict, s.TransactionID, AggregateTypeTransaction, data),
			Snapshot:  s,
		},
		ReportedStatus: reportedStatus,
	}
}
