package adapters

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/hunters2410/zimaio-sub004/internal/domain/model"
	"github.com/hunters2410/zimaio-sub004/internal/domain/port"
	"github.com/hunters2410/zimaio-sub004/internal/domain/valueobject"
)

const (
	defaultPaynowInitiateURL = "https://www.paynow.co.zw/interface/initiatetransaction"

	paynowInitFailedMessage = "Failed to initialize Paynow payment"
)

var (
	_ port.GatewayAdapter     = (*PaynowAdapter)(nil)
	_ port.StatusPoller       = (*PaynowAdapter)(nil)
	_ port.NotificationParser = (*PaynowAdapter)(nil)
)

// paynowConfig is the gateway config blob for paynow.
type paynowConfig struct {
	IntegrationID  string `json:"integration_id" validate:"required"`
	IntegrationKey string `json:"integration_key" validate:"required"`
	ResultURL      string `json:"result_url" validate:"required,url"`
	ReturnURL      string `json:"return_url" validate:"omitempty,url"`
	InitiateURL    string `json:"initiate_url" validate:"omitempty,url"`
}

type paynowAttempt struct {
	cfg       paynowConfig
	req       port.PaymentRequest
	returnURL string
}

func (a paynowAttempt) LedgerMetadata() map[string]any {
	return map[string]any{"return_url": a.returnURL}
}

// PaynowAdapter drives the Paynow hosted checkout: the customer is redirected
// to Paynow and the result arrives later by notification or poll.
type PaynowAdapter struct {
	client   *ProcessorClient
	validate *validator.Validate
	logger   *slog.Logger
}

func NewPaynowAdapter(client *ProcessorClient, validate *validator.Validate, logger *slog.Logger) *PaynowAdapter {
	return &PaynowAdapter{client: client, validate: validate, logger: logger}
}

func (a *PaynowAdapter) Type() valueobject.GatewayType { return valueobject.GatewayPaynow }

func (a *PaynowAdapter) config(gateway model.Gateway) (paynowConfig, error) {
	var cfg paynowConfig
	if err := gateway.DecodeConfig(&cfg); err != nil {
		return paynowConfig{}, err
	}
	if err := a.validate.Struct(cfg); err != nil {
		return paynowConfig{}, configError(valueobject.GatewayPaynow, err)
	}
	if cfg.InitiateURL == "" {
		cfg.InitiateURL = defaultPaynowInitiateURL
	}
	return cfg, nil
}

func (a *PaynowAdapter) Prepare(gateway model.Gateway, req port.PaymentRequest) (port.Attempt, error) {
	cfg, err := a.config(gateway)
	if err != nil {
		return nil, err
	}

	returnURL := req.ReturnURL
	if returnURL == "" {
		returnURL = cfg.ReturnURL
	}
	if returnURL == "" {
		return nil, model.NewValidationError("return_url", "return_url is required")
	}

	return paynowAttempt{cfg: cfg, req: req, returnURL: returnURL}, nil
}

func (a *PaynowAdapter) Execute(ctx context.Context, attempt port.Attempt, txn model.Transaction) (port.Outcome, error) {
	pa, ok := attempt.(paynowAttempt)
	if !ok {
		return port.Outcome{}, fmt.Errorf("paynow: unexpected attempt type %T", attempt)
	}

	authEmail := pa.req.CustomerEmail
	if authEmail == "" {
		authEmail = pa.req.CustomerID.String()
	}

	msg := paynowMessage{
		{Key: "resulturl", Value: pa.cfg.ResultURL},
		{Key: "returnurl", Value: pa.returnURL},
		{Key: "reference", Value: txn.ID().String()},
		{Key: "amount", Value: pa.req.Amount.Amount().StringFixed(2)},
		{Key: "id", Value: pa.cfg.IntegrationID},
		{Key: "additionalinfo", Value: "Order #" + pa.req.Order.OrderNumber()},
		{Key: "authemail", Value: authEmail},
		{Key: "status", Value: "Message"},
	}.signed(pa.cfg.IntegrationKey)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, pa.cfg.InitiateURL, strings.NewReader(msg.Encode()))
	if err != nil {
		return port.Outcome{}, fmt.Errorf("paynow: building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := a.client.do(ctx, valueobject.GatewayPaynow.String(), httpReq)
	if err != nil {
		return port.Outcome{}, err
	}

	reply, err := parsePaynowMessage(string(res.Body))
	if err != nil {
		a.logger.Error("paynow: unreadable initiate response", "transaction_id", txn.ID(), "body", string(res.Body), "error", err)
		return initFailed(map[string]any{"paynow_error": "unreadable response"}), nil
	}

	if !strings.EqualFold(reply.Get("status"), "ok") {
		a.logger.Warn("paynow: initiate rejected", "transaction_id", txn.ID(), "error", reply.Get("error"))
		return initFailed(map[string]any{"paynow_status": reply.Get("status"), "paynow_error": reply.Get("error")}), nil
	}

	if err := verifyPaynowHash(reply, pa.cfg.IntegrationKey); err != nil {
		a.logger.Error("paynow: initiate response failed verification", "transaction_id", txn.ID(), "error", err)
		return initFailed(map[string]any{"paynow_error": err.Error()}), nil
	}

	browserURL := reply.Get("browserurl")
	pollURL := reply.Get("pollurl")

	return port.Outcome{
		Kind: port.OutcomeRedirect,
		Update: model.TransactionUpdate{
			Status:               valueobject.TransactionStatusProcessing,
			GatewayTransactionID: pollURL,
			TransactionReference: txn.ID().String(),
			Metadata: map[string]any{
				"browser_url": browserURL,
				"poll_url":    pollURL,
			},
		},
		RedirectURL: browserURL,
		PollURL:     pollURL,
	}, nil
}

func initFailed(metadata map[string]any) port.Outcome {
	return port.Outcome{
		Kind: port.OutcomeInitFailed,
		Update: model.TransactionUpdate{
			Status:       valueobject.TransactionStatusFailed,
			ErrorMessage: paynowInitFailedMessage,
			Metadata:     metadata,
		},
		Error: "Payment initialization failed",
	}
}

// PollStatus asks Paynow for the state of txn through its stored poll URL.
func (a *PaynowAdapter) PollStatus(ctx context.Context, gateway model.Gateway, txn model.Transaction) (port.GatewayResult, error) {
	cfg, err := a.config(gateway)
	if err != nil {
		return port.GatewayResult{}, err
	}
	pollURL := txn.GatewayTransactionID()
	if pollURL == "" {
		return port.GatewayResult{}, fmt.Errorf("paynow: transaction %s has no poll url", txn.ID())
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, pollURL, nil)
	if err != nil {
		return port.GatewayResult{}, fmt.Errorf("paynow: building poll request: %w", err)
	}

	res, err := a.client.do(ctx, valueobject.GatewayPaynow.String(), httpReq)
	if err != nil {
		return port.GatewayResult{}, err
	}

	result, err := a.parseStatus(string(res.Body), cfg.IntegrationKey)
	if err != nil {
		return port.GatewayResult{}, err
	}
	if result.TransactionID != txn.ID() {
		return port.GatewayResult{}, fmt.Errorf("paynow: poll for %s answered for %s", txn.ID(), result.TransactionID)
	}
	return result, nil
}

// NotificationReference returns the merchant reference of a result URL
// callback. The hash is not checked here.
func (a *PaynowAdapter) NotificationReference(body []byte) (uuid.UUID, error) {
	msg, err := parsePaynowMessage(string(body))
	if err != nil {
		return uuid.Nil, &model.ValidationError{Message: err.Error()}
	}
	id, err := uuid.Parse(msg.Get("reference"))
	if err != nil {
		return uuid.Nil, model.NewValidationError("reference", "reference must be a transaction id")
	}
	return id, nil
}

// ParseNotification verifies and decodes a Paynow result URL callback.
func (a *PaynowAdapter) ParseNotification(gateway model.Gateway, body []byte) (port.GatewayResult, error) {
	cfg, err := a.config(gateway)
	if err != nil {
		return port.GatewayResult{}, err
	}
	return a.parseStatus(string(body), cfg.IntegrationKey)
}

func (a *PaynowAdapter) parseStatus(body, integrationKey string) (port.GatewayResult, error) {
	msg, err := parsePaynowMessage(body)
	if err != nil {
		return port.GatewayResult{}, &model.ValidationError{Message: err.Error()}
	}
	if err := verifyPaynowHash(msg, integrationKey); err != nil {
		return port.GatewayResult{}, &model.ValidationError{Message: err.Error()}
	}

	txnID, err := uuid.Parse(msg.Get("reference"))
	if err != nil {
		return port.GatewayResult{}, model.NewValidationError("reference", "reference must be a transaction id")
	}

	paynowStatus := msg.Get("status")
	result := port.GatewayResult{
		TransactionID: txnID,
		Status:        mapPaynowStatus(paynowStatus),
		Metadata: map[string]any{
			"paynow_status":    paynowStatus,
			"paynow_reference": msg.Get("paynowreference"),
		},
	}
	if result.Status == valueobject.TransactionStatusFailed {
		result.ErrorMessage = "Paynow status: " + paynowStatus
	}
	return result, nil
}

// mapPaynowStatus maps Paynow transaction statuses to ledger statuses.
func mapPaynowStatus(status string) valueobject.TransactionStatus {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "paid", "awaiting delivery", "delivered":
		return valueobject.TransactionStatusCompleted
	case "cancelled", "failed", "disputed", "refunded":
		return valueobject.TransactionStatusFailed
	default:
		// created, sent
		return valueobject.TransactionStatusProcessing
	}
}
