package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hunters2410/zimaio-sub004/internal/domain/model"
	"github.com/hunters2410/zimaio-sub004/internal/domain/port"
)

// ProcessPaymentRequest is the checkout request body plus the authenticated
// customer.
type ProcessPaymentRequest struct {
	OrderID     string          `json:"order_id" validate:"required,uuid"`
	GatewayType string          `json:"gateway_type" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency" validate:"required,len=3"`
	ReturnURL   string          `json:"return_url,omitempty" validate:"omitempty,url"`
	Metadata    map[string]any  `json:"metadata,omitempty"`

	CustomerID    uuid.UUID `json:"-"`
	CustomerEmail string    `json:"-"`
}

// ProcessPaymentResponse is the outcome of one checkout attempt. Success is
// false only for a processor decline or a failed hosted-page initialisation.
type ProcessPaymentResponse struct {
	TransactionID uuid.UUID
	Kind          port.OutcomeKind
	Success       bool
	RedirectURL   string
	PollURL       string
	Message       string
	Error         string
	Instructions  []model.PaymentInstruction
}

// GetTransactionRequest reads one transaction on behalf of ActorID. Service
// callers may read any transaction.
type GetTransactionRequest struct {
	TransactionID uuid.UUID
	ActorID       uuid.UUID
	IsService     bool
}

// TransactionResponse is the read model of a ledger entry.
type TransactionResponse struct {
	ID                   uuid.UUID      `json:"id"`
	OrderID              uuid.UUID      `json:"order_id"`
	UserID               uuid.UUID      `json:"user_id"`
	GatewayID            uuid.UUID      `json:"gateway_id"`
	GatewayType          string         `json:"gateway_type"`
	Amount               string         `json:"amount"`
	Currency             string         `json:"currency"`
	Status               string         `json:"status"`
	GatewayTransactionID string         `json:"gateway_transaction_id,omitempty"`
	TransactionReference string         `json:"transaction_reference,omitempty"`
	ErrorMessage         string         `json:"error_message,omitempty"`
	Metadata             map[string]any `json:"metadata"`
	Version              int            `json:"version"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
}

// ReconcileReport summarises one reconciliation sweep.
type ReconcileReport struct {
	Scanned int `json:"scanned"`
	Settled int `json:"settled"`
	Flagged int `json:"flagged"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

// ToTransactionResponse maps the aggregate to its read model.
func ToTransactionResponse(t model.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:                   t.ID(),
		OrderID:              t.OrderID(),
		UserID:               t.UserID(),
		GatewayID:            t.GatewayID(),
		GatewayType:          t.GatewayType().String(),
		Amount:               t.Amount().Amount().StringFixed(t.Amount().Currency().Exponent()),
		Currency:             t.Amount().Currency().Code(),
		Status:               t.Status().String(),
		GatewayTransactionID: t.GatewayTransactionID(),
		TransactionReference: t.TransactionReference(),
		ErrorMessage:         t.ErrorMessage(),
		Metadata:             t.Metadata(),
		Version:              t.Version(),
		CreatedAt:            t.CreatedAt(),
		UpdatedAt:            t.UpdatedAt(),
	}
}
