package port

import (
	"context"

	"github.com/google/uuid"

	"github.com/hunters2410/zimaio-sub004/internal/domain/model"
	"github.com/hunters2410/zimaio-sub004/internal/domain/valueobject"
	"github.com/hunters2410/zimaio-sub004/pkg/money"
)

// PaymentRequest is a checkout request after the order has been resolved.
type PaymentRequest struct {
	Order         model.Order
	CustomerID    uuid.UUID
	CustomerEmail string
	Amount        money.Money
	ReturnURL     string
	Details       map[string]any
}

// Attempt is an adapter's validated, ready-to-run form of a request. Each
// adapter only receives attempts it prepared itself.
type Attempt interface {
	// LedgerMetadata is stored on the pending transaction. It never holds
	// card numbers or security codes.
	LedgerMetadata() map[string]any
}

// OutcomeKind classifies how an attempt ended for the caller.
type OutcomeKind int

const (
	// OutcomeRedirect: the customer continues on the processor's page.
	OutcomeRedirect OutcomeKind = iota + 1
	// OutcomeApproved: the processor settled synchronously.
	OutcomeApproved
	// OutcomeDeclined: the processor answered and refused the payment.
	OutcomeDeclined
	// OutcomeAwaitingPayment: payment happens out of band (cash, bank transfer).
	OutcomeAwaitingPayment
	// OutcomeInitFailed: the processor would not start a hosted payment.
	OutcomeInitFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeRedirect:
		return "redirect"
	case OutcomeApproved:
		return "approved"
	case OutcomeDeclined:
		return "declined"
	case OutcomeAwaitingPayment:
		return "awaiting_payment"
	case OutcomeInitFailed:
		return "init_failed"
	default:
		return "unknown"
	}
}

// Outcome is the normalized result of one adapter run. Update is applied to
// the ledger exactly once.
type Outcome struct {
	Kind          OutcomeKind
	Update        model.TransactionUpdate
	MarkOrderPaid bool
	RedirectURL   string
	PollURL       string
	Message       string
	Error         string
	Instructions  []model.PaymentInstruction
}

// GatewayAdapter speaks one processor protocol.
type GatewayAdapter interface {
	Type() valueobject.GatewayType
	// Prepare validates the gateway configuration and the request details
	// without side effects. It returns *model.ConfigurationError or
	// *model.ValidationError.
	Prepare(gateway model.Gateway, req PaymentRequest) (Attempt, error)
	// Execute runs the protocol for a transaction already recorded as pending.
	// A non-nil error means no outcome is known: *model.UpstreamError,
	// model.ErrGatewayCircuitOpen, or an unexpected failure.
	Execute(ctx context.Context, attempt Attempt, txn model.Transaction) (Outcome, error)
}

// GatewayResult is a processor's later report about an attempt, from a
// notification or a status poll.
type GatewayResult struct {
	TransactionID        uuid.UUID
	Status               valueobject.TransactionStatus
	GatewayTransactionID string
	TransactionReference string
	ErrorMessage         string
	Metadata             map[string]any
}

// StatusPoller is implemented by adapters whose processor can be asked for
// the current state of an attempt.
type StatusPoller interface {
	PollStatus(ctx context.Context, gateway model.Gateway, txn model.Transaction) (GatewayResult, error)
}

// AdapterRegistry resolves adapters by gateway type.
type AdapterRegistry interface {
	Lookup(gatewayType valueobject.GatewayType) (GatewayAdapter, bool)
}

// NotificationParser is implemented by adapters whose processor reports
// results by calling back. ParseNotification verifies the message against
// the gateway's credentials; a bad signature is a *model.ValidationError.
type NotificationParser interface {
	// NotificationReference reads the transaction id a callback refers to,
	// before any verification, so the attempt's gateway can be loaded.
	NotificationReference(body []byte) (uuid.UUID, error)
	ParseNotification(gateway model.Gateway, body []byte) (GatewayResult, error)
}
