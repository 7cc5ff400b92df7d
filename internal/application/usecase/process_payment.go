package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/hunters2410/zimaio-sub004/internal/application/dto"
	"github.com/hunters2410/zimaio-sub004/internal/domain/model"
	"github.com/hunters2410/zimaio-sub004/internal/domain/port"
	"github.com/hunters2410/zimaio-sub004/internal/domain/valueobject"
	"github.com/hunters2410/zimaio-sub004/pkg/money"
	"github.com/hunters2410/zimaio-sub004/pkg/observability"
	"github.com/hunters2410/zimaio-sub004/pkg/validate"
)

const (
	misconfiguredMessage = "Payment gateway misconfigured"
	unavailableMessage   = "Payment gateway temporarily unavailable"
)

// ProcessPaymentOptions tunes the checkout flow.
type ProcessPaymentOptions struct {
	// EnforceOrderTotal rejects requests whose amount differs from the stored
	// order total instead of recording the mismatch.
	EnforceOrderTotal bool
}

// ProcessPayment settles one checkout attempt: resolve the order and gateway,
// record a pending ledger row, run the gateway adapter, and apply its outcome.
type ProcessPayment struct {
	txns     port.TransactionRepository
	orders   port.OrderRepository
	gateways port.GatewayRepository
	adapters port.AdapterRegistry
	lock     port.AttemptLock // optional, may be nil
	metrics  *observability.PaymentMetrics
	validate *validator.Validate
	opts     ProcessPaymentOptions
	logger   *slog.Logger
}

func NewProcessPayment(
	txns port.TransactionRepository,
	orders port.OrderRepository,
	gateways port.GatewayRepository,
	adapters port.AdapterRegistry,
	lock port.AttemptLock,
	metrics *observability.PaymentMetrics,
	validate *validator.Validate,
	opts ProcessPaymentOptions,
	logger *slog.Logger,
) *ProcessPayment {
	return &ProcessPayment{
		txns:     txns,
		orders:   orders,
		gateways: gateways,
		adapters: adapters,
		lock:     lock,
		metrics:  metrics,
		validate: validate,
		opts:     opts,
		logger:   logger,
	}
}

func (uc *ProcessPayment) Execute(ctx context.Context, req dto.ProcessPaymentRequest) (dto.ProcessPaymentResponse, error) {
	ctx, span := observability.Tracer("zimaio/payment/usecase").Start(ctx, "ProcessPayment")
	defer span.End()
	span.SetAttributes(attribute.String("gateway_type", req.GatewayType), attribute.String("order_id", req.OrderID))

	resp, err := uc.execute(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return resp, err
}

func (uc *ProcessPayment) execute(ctx context.Context, req dto.ProcessPaymentRequest) (dto.ProcessPaymentResponse, error) {
	orderID, amount, err := uc.validateRequest(req)
	if err != nil {
		return dto.ProcessPaymentResponse{}, err
	}

	// Ownership is checked before anything about the gateway so a foreign
	// order id always reads as not found.
	order, err := uc.orders.FindForCustomer(ctx, orderID, req.CustomerID)
	if err != nil {
		return dto.ProcessPaymentResponse{}, fmt.Errorf("resolving order: %w", err)
	}
	if order.IsPaid() {
		return dto.ProcessPaymentResponse{}, fmt.Errorf("order %s: %w", order.ID(), model.ErrOrderAlreadyPaid)
	}

	gatewayType, err := valueobject.NewGatewayType(req.GatewayType)
	if err != nil {
		return dto.ProcessPaymentResponse{}, fmt.Errorf("%w: %s", model.ErrUnsupportedGateway, req.GatewayType)
	}
	adapter, ok := uc.adapters.Lookup(gatewayType)
	if !ok {
		return dto.ProcessPaymentResponse{}, fmt.Errorf("%w: %s", model.ErrUnsupportedGateway, gatewayType)
	}

	gateway, err := uc.gateways.FindActiveByType(ctx, gatewayType)
	if err != nil {
		return dto.ProcessPaymentResponse{}, fmt.Errorf("resolving gateway: %w", err)
	}

	ledgerMeta := map[string]any{}
	if !amount.Equal(order.Total()) {
		if uc.opts.EnforceOrderTotal {
			return dto.ProcessPaymentResponse{}, fmt.Errorf("%w: requested %s, order total %s", model.ErrAmountMismatch, amount, order.Total())
		}
		uc.logger.Warn("payment amount differs from order total",
			"order_id", order.ID(),
			"requested", amount.String(),
			"order_total", order.Total().String(),
		)
		ledgerMeta["order_total"] = order.Total().String()
		ledgerMeta["amount_mismatch"] = true
	}

	attempt, err := adapter.Prepare(gateway, port.PaymentRequest{
		Order:         order,
		CustomerID:    req.CustomerID,
		CustomerEmail: req.CustomerEmail,
		Amount:        amount,
		ReturnURL:     req.ReturnURL,
		Details:       req.Metadata,
	})
	if err != nil {
		return dto.ProcessPaymentResponse{}, fmt.Errorf("preparing %s payment: %w", gatewayType, err)
	}
	for k, v := range attempt.LedgerMetadata() {
		ledgerMeta[k] = v
	}

	if uc.lock != nil {
		release, err := uc.lock.Acquire(ctx, order.ID())
		if err != nil {
			return dto.ProcessPaymentResponse{}, fmt.Errorf("locking order %s: %w", order.ID(), err)
		}
		defer func() {
			relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			defer cancel()
			if err := release(relCtx); err != nil {
				uc.logger.Warn("failed to release payment attempt lock", "order_id", order.ID(), "error", err)
			}
		}()
	}

	txn, err := model.NewTransaction(order.ID(), req.CustomerID, gateway.ID(), gatewayType, amount, ledgerMeta)
	if err != nil {
		return dto.ProcessPaymentResponse{}, fmt.Errorf("creating transaction: %w", err)
	}
	if err := uc.txns.Create(ctx, txn); err != nil {
		return dto.ProcessPaymentResponse{}, fmt.Errorf("recording transaction: %w", err)
	}
	_, txn = txn.ClearDomainEvents()

	logger := uc.logger.With("transaction_id", txn.ID(), "order_id", order.ID(), "gateway", gatewayType.String())

	outcome, err := adapter.Execute(ctx, attempt, txn)
	if err != nil {
		return dto.ProcessPaymentResponse{}, uc.handleExecuteError(ctx, logger, txn, err)
	}

	updated, err := txn.Apply(outcome.Update, time.Now().UTC())
	if err != nil {
		return dto.ProcessPaymentResponse{}, fmt.Errorf("applying %s outcome: %w", outcome.Kind, err)
	}
	if err := uc.txns.Update(ctx, updated); err != nil {
		return dto.ProcessPaymentResponse{}, fmt.Errorf("updating transaction: %w", err)
	}

	if outcome.MarkOrderPaid {
		if err := uc.orders.MarkPaid(ctx, order.ID()); err != nil {
			// The ledger already shows the capture; order management can
			// recover the order state from the completed event.
			logger.Error("failed to mark order paid after approved payment", "error", err)
		}
	}

	uc.metrics.RecordAttempt(ctx, gatewayType.String(), outcome.Kind.String())
	logger.Info("payment attempt processed", "outcome", outcome.Kind.String(), "status", updated.Status().String())

	return dto.ProcessPaymentResponse{
		TransactionID: txn.ID(),
		Kind:          outcome.Kind,
		Success:       outcome.Kind != port.OutcomeDeclined && outcome.Kind != port.OutcomeInitFailed,
		RedirectURL:   outcome.RedirectURL,
		PollURL:       outcome.PollURL,
		Message:       outcome.Message,
		Error:         outcome.Error,
		Instructions:  outcome.Instructions,
	}, nil
}

func (uc *ProcessPayment) validateRequest(req dto.ProcessPaymentRequest) (uuid.UUID, money.Money, error) {
	if req.CustomerID == uuid.Nil {
		return uuid.Nil, money.Money{}, fmt.Errorf("customer is required")
	}

	fields := map[string]string{}
	if err := uc.validate.Struct(req); err != nil {
		if f := validate.Fields(err); f != nil {
			fields = f
		} else {
			return uuid.Nil, money.Money{}, fmt.Errorf("validating request: %w", err)
		}
	}
	if !req.Amount.IsPositive() {
		fields["amount"] = "amount must be greater than 0"
	}
	currency, err := money.NewCurrency(req.Currency)
	if err != nil && fields["currency"] == "" {
		fields["currency"] = "currency must be a 3-letter code"
	}
	if len(fields) > 0 {
		return uuid.Nil, money.Money{}, &model.ValidationError{Message: "invalid request", Fields: fields}
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		return uuid.Nil, money.Money{}, model.NewValidationError("order_id", "order_id must be a valid UUID")
	}
	return orderID, money.New(req.Amount.Round(currency.Exponent()), currency), nil
}

// handleExecuteError settles the ledger row for an adapter failure. A known
// rejection fails the attempt; an unknown outcome leaves it pending for the
// reconciler.
func (uc *ProcessPayment) handleExecuteError(ctx context.Context, logger *slog.Logger, txn model.Transaction, execErr error) error {
	var (
		cfgErr *model.ConfigurationError
		upErr  *model.UpstreamError
		update model.TransactionUpdate
	)
	switch {
	case errors.As(execErr, &cfgErr):
		update = model.TransactionUpdate{Status: valueobject.TransactionStatusFailed, ErrorMessage: misconfiguredMessage}
	case errors.Is(execErr, model.ErrGatewayCircuitOpen):
		update = model.TransactionUpdate{Status: valueobject.TransactionStatusFailed, ErrorMessage: unavailableMessage}
	case errors.As(execErr, &upErr) && upErr.Rejected:
		update = model.TransactionUpdate{
			Status:       valueobject.TransactionStatusFailed,
			ErrorMessage: fmt.Sprintf("Payment gateway error (HTTP %d)", upErr.StatusCode),
			Metadata:     map[string]any{"http_status": upErr.StatusCode},
		}
	default:
		uc.metrics.RecordAttempt(ctx, txn.GatewayType().String(), "indeterminate")
		logger.Error("payment outcome unknown, transaction left pending", "error", execErr)
		return fmt.Errorf("executing payment: %w", execErr)
	}

	uc.metrics.RecordAttempt(ctx, txn.GatewayType().String(), "error")
	logger.Error("payment attempt failed", "error", execErr)

	failed, err := txn.Apply(update, time.Now().UTC())
	if err != nil {
		logger.Error("failed to apply failure to transaction", "error", err)
		return fmt.Errorf("executing payment: %w", execErr)
	}
	if err := uc.txns.Update(ctx, failed); err != nil {
		logger.Error("failed to record failed transaction", "error", err)
	}
	return fmt.Errorf("executing payment: %w", execErr)
}
