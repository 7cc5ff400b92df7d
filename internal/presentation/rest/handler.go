package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hunters2410/zimaio-sub004/internal/application/dto"
	"github.com/hunters2410/zimaio-sub004/internal/domain/port"
	"github.com/hunters2410/zimaio-sub004/internal/domain/valueobject"
	"github.com/hunters2410/zimaio-sub004/pkg/auth"
)

const maxBodyBytes = 1 << 20

// PaymentProcessor runs one checkout attempt.
type PaymentProcessor interface {
	Execute(ctx context.Context, req dto.ProcessPaymentRequest) (dto.ProcessPaymentResponse, error)
}

// TransactionReader reads a single ledger entry.
type TransactionReader interface {
	Execute(ctx context.Context, req dto.GetTransactionRequest) (dto.TransactionResponse, error)
}

// NotificationHandler applies a processor callback.
type NotificationHandler interface {
	Execute(ctx context.Context, gatewayType valueobject.GatewayType, body []byte) error
}

// PaymentHandler serves the payment HTTP API.
type PaymentHandler struct {
	process       PaymentProcessor
	transactions  TransactionReader
	notifications NotificationHandler
	logger        *slog.Logger
}

func NewPaymentHandler(process PaymentProcessor, transactions TransactionReader, notifications NotificationHandler, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{
		process:       process,
		transactions:  transactions,
		notifications: notifications,
		logger:        logger,
	}
}

// ProcessPayment handles POST /process-payment and POST /v1/payments.
func (h *PaymentHandler) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	claims, userID, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req dto.ProcessPaymentRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	req.CustomerID = userID
	req.CustomerEmail = claims.Email

	resp, err := h.process.Execute(r.Context(), req)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	status, body := paymentResponseBody(resp)
	writeJSON(w, status, body)
}

// GetTransaction handles GET /v1/payments/transactions/{id}.
func (h *PaymentHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	claims, userID, ok := h.caller(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, msgTransactionNotFound)
		return
	}

	resp, err := h.transactions.Execute(r.Context(), dto.GetTransactionRequest{
		TransactionID: id,
		ActorID:       userID,
		IsService:     claims.HasRole(auth.RoleServiceRole),
	})
	if err != nil {
		handleError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// PaynowNotification handles POST /webhooks/paynow. The body is the
// urlencoded status update Paynow posts to the result URL.
func (h *PaymentHandler) PaynowNotification(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil || len(body) == 0 {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	if err := h.notifications.Execute(r.Context(), valueobject.GatewayPaynow, body); err != nil {
		handleError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *PaymentHandler) caller(w http.ResponseWriter, r *http.Request) (*auth.Claims, uuid.UUID, bool) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return nil, uuid.Nil, false
	}
	userID, err := claims.UserID()
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return nil, uuid.Nil, false
	}
	return claims, userID, true
}

// paymentResponseBody renders an attempt outcome. A decline is still a 200:
// the request succeeded even though the payment did not.
func paymentResponseBody(resp dto.ProcessPaymentResponse) (int, map[string]any) {
	switch resp.Kind {
	case port.OutcomeRedirect:
		body := map[string]any{
			"success":        true,
			"transaction_id": resp.TransactionID,
			"redirect_url":   resp.RedirectURL,
		}
		if resp.PollURL != "" {
			body["poll_url"] = resp.PollURL
		}
		return http.StatusOK, body
	case port.OutcomeApproved:
		return http.StatusOK, map[string]any{
			"success":        true,
			"transaction_id": resp.TransactionID,
			"redirect_url":   nil,
			"message":        resp.Message,
		}
	case port.OutcomeDeclined:
		return http.StatusOK, map[string]any{
			"success":        false,
			"transaction_id": resp.TransactionID,
			"error":          resp.Error,
		}
	case port.OutcomeAwaitingPayment:
		body := map[string]any{
			"success":        true,
			"transaction_id": resp.TransactionID,
		}
		if resp.Message != "" {
			body["message"] = resp.Message
		}
		if resp.Instructions != nil {
			body["instructions"] = resp.Instructions
		}
		return http.StatusOK, body
	default:
		msg := resp.Error
		if msg == "" {
			msg = msgInitFailed
		}
		return http.StatusBadRequest, map[string]any{"error": msg}
	}
}

// readJSON reads and unmarshals a JSON request body into the provided value.
func readJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return fmt.Errorf("request body is empty")
	}
	defer r.Body.Close()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if len(body) == 0 {
		return fmt.Errorf("request body is empty")
	}
	return json.Unmarshal(body, v)
}
