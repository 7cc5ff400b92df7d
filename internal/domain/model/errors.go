package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrOrderNotFound           = errors.New("order not found")
	ErrGatewayUnavailable      = errors.New("payment gateway not available")
	ErrUnsupportedGateway      = errors.New("payment method not yet implemented")
	ErrOrderAlreadyPaid        = errors.New("order already paid")
	ErrAttemptInProgress       = errors.New("payment already in progress")
	ErrAmountMismatch          = errors.New("amount does not match order total")
	ErrTransactionNotFound     = errors.New("transaction not found")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrAlreadyInState          = errors.New("transaction already in requested state")
	ErrConcurrentUpdate        = errors.New("transaction was modified concurrently")
	ErrDuplicateTransaction    = errors.New("transaction already recorded")
	ErrGatewayCircuitOpen      = errors.New("payment gateway temporarily unavailable")
)

// ConfigurationError means a gateway row lacks a credential or setting the
// adapter needs. It is raised before any processor call.
type ConfigurationError struct {
	Gateway string
	Field   string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s gateway misconfigured: %s is required", e.Gateway, e.Field)
	}
	return fmt.Sprintf("%s gateway misconfigured: %s %s", e.Gateway, e.Field, e.Reason)
}

// ValidationError reports a malformed request. Fields maps a JSON field name
// to the rule it failed.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return e.Message + " (" + strings.Join(parts, ", ") + ")"
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, rule string) *ValidationError {
	return &ValidationError{Message: "invalid request", Fields: map[string]string{field: rule}}
}

// UpstreamError is a processor failure that is not a clean decline.
// Rejected is true when the processor answered with a non-2xx status; false
// means the call failed in transport and the outcome is unknown.
type UpstreamError struct {
	Gateway    string
	StatusCode int
	Body       string
	Rejected   bool
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Rejected {
		return fmt.Sprintf("%s gateway returned HTTP %d", e.Gateway, e.StatusCode)
	}
	return fmt.Sprintf("%s gateway unreachable: %v", e.Gateway, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
