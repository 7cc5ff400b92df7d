package model

import (
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/hunters2410/zimaio-sub004/internal/domain/event"
	"github.com/hunters2410/zimaio-sub004/internal/domain/valueobject"
	"github.com/hunters2410/zimaio-sub004/pkg/events"
	"github.com/hunters2410/zimaio-sub004/pkg/money"
)

// Transaction is the ledger entry for one payment attempt and the root
// aggregate of the settlement context. Transitions return a modified copy.
type Transaction struct {
	id                   uuid.UUID
	orderID              uuid.UUID
	userID               uuid.UUID
	gatewayID            uuid.UUID
	gatewayType          valueobject.GatewayType
	amount               money.Money
	status               valueobject.TransactionStatus
	gatewayTransactionID string
	transactionReference string
	errorMessage         string
	metadata             map[string]any
	metadataDelta        map[string]any
	version              int
	createdAt            time.Time
	updatedAt            time.Time
	domainEvents         []events.DomainEvent
}

// TransactionUpdate is the partial, additive change an adapter outcome or a
// gateway notification applies to a transaction. Empty string fields are left
// untouched; Metadata is merged.
type TransactionUpdate struct {
	Status               valueobject.TransactionStatus
	GatewayTransactionID string
	TransactionReference string
	ErrorMessage         string
	Metadata             map[string]any
}

// NewTransaction records a new attempt in pending status.
func NewTransaction(
	orderID, userID, gatewayID uuid.UUID,
	gatewayType valueobject.GatewayType,
	amount money.Money,
	metadata map[string]any,
) (Transaction, error) {
	if orderID == uuid.Nil {
		return Transaction{}, fmt.Errorf("order ID is required")
	}
	if userID == uuid.Nil {
		return Transaction{}, fmt.Errorf("user ID is required")
	}
	if gatewayID == uuid.Nil {
		return Transaction{}, fmt.Errorf("gateway ID is required")
	}
	if gatewayType.IsZero() {
		return Transaction{}, fmt.Errorf("gateway type is required")
	}
	if !amount.IsPositive() {
		return Transaction{}, fmt.Errorf("amount must be positive, got: %s", amount.Amount().String())
	}
	if amount.Currency().IsZero() {
		return Transaction{}, fmt.Errorf("currency is required")
	}

	now := time.Now().UTC()
	txn := Transaction{
		id:          uuid.New(),
		orderID:     orderID,
		userID:      userID,
		gatewayID:   gatewayID,
		gatewayType: gatewayType,
		amount:      amount,
		status:      valueobject.TransactionStatusPending,
		metadata:    copyMetadata(metadata),
		version:     1,
		createdAt:   now,
		updatedAt:   now,
	}
	txn.domainEvents = []events.DomainEvent{event.NewTransactionCreated(txn.snapshot())}

	return txn, nil
}

// ReconstructTransaction recreates a Transaction from persistence (no validation, no events).
func ReconstructTransaction(
	id, orderID, userID, gatewayID uuid.UUID,
	gatewayType valueobject.GatewayType,
	amount money.Money,
	status valueobject.TransactionStatus,
	gatewayTransactionID, transactionReference, errorMessage string,
	metadata map[string]any,
	version int,
	createdAt, updatedAt time.Time,
) Transaction {
	return Transaction{
		id:                   id,
		orderID:              orderID,
		userID:               userID,
		gatewayID:            gatewayID,
		gatewayType:          gatewayType,
		amount:               amount,
		status:               status,
		gatewayTransactionID: gatewayTransactionID,
		transactionReference: transactionReference,
		errorMessage:         errorMessage,
		metadata:             metadata,
		version:              version,
		createdAt:            createdAt,
		updatedAt:            updatedAt,
	}
}

// Apply records an outcome. Forward moves follow the status state machine.
// A freshly created pending row may be confirmed as pending once, which is how
// the redirect, cash, and manual flows leave it. Re-applying the current
// status otherwise returns ErrAlreadyInState so notification replays are
// harmless; anything else is ErrInvalidStatusTransition.
func (t Transaction) Apply(u TransactionUpdate, now time.Time) (Transaction, error) {
	if u.Status.IsZero() {
		return Transaction{}, fmt.Errorf("update status is required")
	}

	switch {
	case u.Status == t.status && t.status == valueobject.TransactionStatusPending && t.version == 1:
		// first confirmation of a pending attempt
	case u.Status == t.status:
		return Transaction{}, fmt.Errorf("%w: %s", ErrAlreadyInState, t.status)
	case !t.status.CanTransitionTo(u.Status):
		return Transaction{}, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, t.status, u.Status)
	}

	if u.Status == valueobject.TransactionStatusFailed && u.ErrorMessage == "" {
		return Transaction{}, fmt.Errorf("failed update requires an error message")
	}

	updated := t.withMetadata(u.Metadata, now)
	updated.status = u.Status
	if u.GatewayTransactionID != "" {
		updated.gatewayTransactionID = u.GatewayTransactionID
	}
	if u.TransactionReference != "" {
		updated.transactionReference = u.TransactionReference
	}
	if u.ErrorMessage != "" {
		updated.errorMessage = u.ErrorMessage
	}
	updated.domainEvents = append(updated.domainEvents, event.NewTransactionStatusChanged(updated.snapshot()))

	return updated, nil
}

// FlagIndeterminate marks a stale non-terminal attempt whose outcome cannot be
// polled. Only metadata changes.
func (t Transaction) FlagIndeterminate(now time.Time) (Transaction, error) {
	if t.status.IsTerminal() {
		return Transaction{}, fmt.Errorf("%w: %s is terminal", ErrInvalidStatusTransition, t.status)
	}
	if _, flagged := t.metadata["indeterminate_at"]; flagged {
		return Transaction{}, fmt.Errorf("%w: already flagged indeterminate", ErrAlreadyInState)
	}

	updated := t.withMetadata(map[string]any{"indeterminate_at": now.UTC().Format(time.RFC3339)}, now)
	updated.domainEvents = append(updated.domainEvents,
		event.NewTransactionIndeterminate(updated.snapshot(), t.updatedAt),
	)
	return updated, nil
}

// FlagConflict records a processor result that contradicts a settled row.
// The status stays as it is; the reported status lands in metadata and a
// conflict event is raised for manual review. Repeating the same report
// returns ErrAlreadyInState.
func (t Transaction) FlagConflict(reported valueobject.TransactionStatus, now time.Time) (Transaction, error) {
	if !t.status.IsTerminal() {
		return Transaction{}, fmt.Errorf("%w: %s is not settled", ErrInvalidStatusTransition, t.status)
	}
	if reported == t.status {
		return Transaction{}, fmt.Errorf("%w: %s", ErrAlreadyInState, t.status)
	}
	if prev, ok := t.metadata["processor_conflict_status"]; ok && prev == reported.String() {
		return Transaction{}, fmt.Errorf("%w: conflict already recorded", ErrAlreadyInState)
	}

	updated := t.withMetadata(map[string]any{
		"processor_conflict_status": reported.String(),
		"processor_conflict_at":     now.UTC().Format(time.RFC3339),
	}, now)
	updated.domainEvents = append(updated.domainEvents,
		event.NewTransactionConflict(updated.snapshot(), reported.String()),
	)
	return updated, nil
}

// withMetadata returns a copy with delta merged into both the full metadata
// and the pending delta, the version bumped, and events copied.
func (t Transaction) withMetadata(delta map[string]any, now time.Time) Transaction {
	updated := t
	updated.metadata = copyMetadata(t.metadata)
	updated.metadataDelta = copyMetadata(t.metadataDelta)
	for k, v := range delta {
		updated.metadata[k] = v
		updated.metadataDelta[k] = v
	}
	updated.updatedAt = now
	updated.version++
	updated.domainEvents = append([]events.DomainEvent{}, t.domainEvents...)
	return updated
}

func (t Transaction) snapshot() event.TransactionSnapshot {
	return event.TransactionSnapshot{
		TransactionID:        t.id,
		OrderID:              t.orderID,
		UserID:               t.userID,
		GatewayType:          t.gatewayType.String(),
		Amount:               t.amount.Amount().StringFixed(t.amount.Currency().Exponent()),
		Currency:             t.amount.Currency().Code(),
		Status:               t.status.String(),
		GatewayTransactionID: t.gatewayTransactionID,
		TransactionReference: t.transactionReference,
		ErrorMessage:         t.errorMessage,
	}
}

func copyMetadata(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	maps.Copy(out, m)
	return out
}

// Accessors

func (t Transaction) ID() uuid.UUID { return t.id }
func (t Transaction) OrderID() uuid.UUID { return t.orderID }
func (t Transaction) UserID() uuid.UUID { return t.userID }
func (t Transaction) GatewayID() uuid.UUID { return t.gatewayID }
func (t Transaction) GatewayType() valueobject.GatewayType { return t.gatewayType }
func (t Transaction) Amount() money.Money { return t.amount }
func (t Transaction) Status() valueobject.TransactionStatus { return t.status }
func (t Transaction) GatewayTransactionID() string { return t.gatewayTransactionID }
func (t Transaction) TransactionReference() string { return t.transactionReference }
func (t Transaction) ErrorMessage() string { return t.errorMessage }
func (t Transaction) Version() int { return t.version }
func (t Transaction) CreatedAt() time.Time { return t.createdAt }
func (t Transaction) UpdatedAt() time.Time { return t.updatedAt }
func (t Transaction) DomainEvents() []events.DomainEvent { return t.domainEvents }

// Metadata returns a copy of the accumulated metadata.
func (t Transaction) Metadata() map[string]any { return copyMetadata(t.metadata) }

// MetadataDelta returns the keys added since the transaction was loaded or
// created. The ledger merges exactly this into the stored document.
func (t Transaction) MetadataDelta() map[string]any { return copyMetadata(t.metadataDelta) }

// ClearDomainEvents returns the collected domain events and a new Transaction with events and the metadata delta cleared.
func (t Transaction) ClearDomainEvents() ([]events.DomainEvent, Transaction) {
	evts := t.domainEvents
	t.domainEvents = nil
	t.metadataDelta = nil
	return evts, t
}
