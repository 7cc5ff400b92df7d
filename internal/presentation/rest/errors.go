package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hunters2410/zimaio-sub004/internal/domain/model"
)

const (
	msgInternal            = "Internal server error"
	msgInvalidBody         = "Invalid request body"
	msgOrderNotFound       = "Order not found"
	msgGatewayUnavailable  = "Payment gateway not available"
	msgNotImplemented      = "Payment method not yet implemented"
	msgOrderAlreadyPaid    = "Order already paid"
	msgAttemptInProgress   = "Payment already in progress"
	msgAmountMismatch      = "Amount does not match order total"
	msgMisconfigured       = "Payment gateway misconfigured"
	msgUpstream            = "Payment gateway error"
	msgCircuitOpen         = "Payment gateway temporarily unavailable"
	msgTransactionNotFound = "Transaction not found"
	msgInitFailed          = "Payment initialization failed"
)

// writeJSON marshals the value as JSON and writes it to the response.
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, msg string) {
	writeJSON(w, statusCode, map[string]string{"error": msg})
}

// handleError maps domain errors onto HTTP responses. Anything unrecognised is
// answered with 500 and the error text.
func handleError(w http.ResponseWriter, err error, logger *slog.Logger) {
	var validationErr *model.ValidationError
	var configErr *model.ConfigurationError
	var upstreamErr *model.UpstreamError

	switch {
	case errors.As(err, &validationErr):
		body := map[string]any{"error": validationErr.Message}
		if len(validationErr.Fields) > 0 {
			body["fields"] = validationErr.Fields
		}
		writeJSON(w, http.StatusBadRequest, body)
	case errors.Is(err, model.ErrUnsupportedGateway):
		writeError(w, http.StatusNotImplemented, msgNotImplemented)
	case errors.Is(err, model.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, msgOrderNotFound)
	case errors.Is(err, model.ErrTransactionNotFound):
		writeError(w, http.StatusNotFound, msgTransactionNotFound)
	case errors.Is(err, model.ErrGatewayUnavailable):
		writeError(w, http.StatusBadRequest, msgGatewayUnavailable)
	case errors.Is(err, model.ErrAmountMismatch):
		writeError(w, http.StatusBadRequest, msgAmountMismatch)
	case errors.Is(err, model.ErrOrderAlreadyPaid):
		writeError(w, http.StatusConflict, msgOrderAlreadyPaid)
	case errors.Is(err, model.ErrAttemptInProgress):
		writeError(w, http.StatusConflict, msgAttemptInProgress)
	case errors.Is(err, model.ErrGatewayCircuitOpen):
		writeError(w, http.StatusServiceUnavailable, msgCircuitOpen)
	case errors.As(err, &configErr):
		logger.Error("gateway configuration error", "error", err)
		writeError(w, http.StatusInternalServerError, msgMisconfigured)
	case errors.As(err, &upstreamErr):
		logger.Warn("gateway upstream error", "error", err)
		writeError(w, http.StatusBadGateway, msgUpstream)
	default:
		logger.Error("unhandled error", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
