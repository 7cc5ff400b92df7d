package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hunters2410/zimaio-sub004/internal/domain/model"
	"github.com/hunters2410/zimaio-sub004/internal/domain/port"
	"github.com/hunters2410/zimaio-sub004/internal/domain/valueobject"
)

// ApplyGatewayResult records a processor's later report on an attempt.
// Replays of an already applied status are accepted silently.
type ApplyGatewayResult struct {
	txns   port.TransactionRepository
	logger *slog.Logger
}

func NewApplyGatewayResult(txns port.TransactionRepository, logger *slog.Logger) *ApplyGatewayResult {
	return &ApplyGatewayResult{txns: txns, logger: logger}
}

func (uc *ApplyGatewayResult) Execute(ctx context.Context, result port.GatewayResult) error {
	txn, err := uc.txns.FindByID(ctx, result.TransactionID)
	if err != nil {
		return fmt.Errorf("failed to find transaction: %w", err)
	}
	_, err = applyResult(ctx, uc.txns, uc.logger, txn, result)
	return err
}

// applyResult moves txn to the reported status. It returns false when
// nothing changed.
func applyResult(ctx context.Context, txns port.TransactionRepository, logger *slog.Logger, txn model.Transaction, result port.GatewayResult) (bool, error) {
	update := model.TransactionUpdate{
		Status:               result.Status,
		GatewayTransactionID: result.GatewayTransactionID,
		TransactionReference: result.TransactionReference,
		ErrorMessage:         result.ErrorMessage,
		Metadata:             result.Metadata,
	}
	if update.Status == valueobject.TransactionStatusFailed && update.ErrorMessage == "" {
		update.ErrorMessage = "Payment failed at gateway"
	}

	updated, err := txn.Apply(update, time.Now().UTC())
	switch {
	case errors.Is(err, model.ErrAlreadyInState):
		logger.Debug("gateway result already applied", "transaction_id", txn.ID(), "status", txn.Status().String())
		return false, nil
	case errors.Is(err, model.ErrInvalidStatusTransition) && txn.Status().IsTerminal() && result.Status.IsTerminal():
		return false, recordConflict(ctx, txns, logger, txn, result)
	case errors.Is(err, model.ErrInvalidStatusTransition):
		logger.Warn("ignoring stale gateway result",
			"transaction_id", txn.ID(),
			"current", txn.Status().String(),
			"reported", result.Status.String(),
		)
		return false, nil
	case err != nil:
		return false, fmt.Errorf("applying gateway result: %w", err)
	}

	if err := txns.Update(ctx, updated); err != nil {
		return false, fmt.Errorf("failed to update transaction: %w", err)
	}
	logger.Info("gateway result applied",
		"transaction_id", txn.ID(),
		"from", txn.Status().String(),
		"to", updated.Status().String(),
	)
	return true, nil
}

// recordConflict keeps the settled status but stores the processor's
// contradicting report and raises a conflict event through the outbox.
func recordConflict(ctx context.Context, txns port.TransactionRepository, logger *slog.Logger, txn model.Transaction, result port.GatewayResult) error {
	flagged, err := txn.FlagConflict(result.Status, time.Now().UTC())
	if errors.Is(err, model.ErrAlreadyInState) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("recording gateway conflict: %w", err)
	}
	if err := txns.Update(ctx, flagged); err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	logger.Error("gateway result contradicts settled ledger entry",
		"transaction_id", txn.ID(),
		"current", txn.Status().String(),
		"reported", result.Status.String(),
	)
	return nil
}

// HandleGatewayNotification verifies a processor callback against the
// credentials of the gateway the referenced attempt was made on, and applies it.
type HandleGatewayNotification struct {
	gateways port.GatewayRepository
	adapters port.AdapterRegistry
	apply    *ApplyGatewayResult
}

func NewHandleGatewayNotification(gateways port.GatewayRepository, adapters port.AdapterRegistry, apply *ApplyGatewayResult) *HandleGatewayNotification {
	return &HandleGatewayNotification{gateways: gateways, adapters: adapters, apply: apply}
}

func (uc *HandleGatewayNotification) Execute(ctx context.Context, gatewayType valueobject.GatewayType, body []byte) error {
	adapter, ok := uc.adapters.Lookup(gatewayType)
	if !ok {
		return fmt.Errorf("%w: %s", model.ErrUnsupportedGateway, gatewayType)
	}
	parser, ok := adapter.(port.NotificationParser)
	if !ok {
		return fmt.Errorf("%w: %s does not accept notifications", model.ErrUnsupportedGateway, gatewayType)
	}

	txnID, err := parser.NotificationReference(body)
	if err != nil {
		return fmt.Errorf("parsing %s notification: %w", gatewayType, err)
	}
	txn, err := uc.apply.txns.FindByID(ctx, txnID)
	if err != nil {
		return fmt.Errorf("failed to find transaction: %w", err)
	}
	if txn.GatewayType() != gatewayType {
		return &model.ValidationError{
			Message: fmt.Sprintf("transaction %s was not made through %s", txn.ID(), gatewayType),
		}
	}

	// Verify with the attempt's own gateway row so rotating or deactivating
	// the config does not orphan attempts already in flight.
	gateway, err := uc.gateways.FindByID(ctx, txn.GatewayID())
	if err != nil {
		return fmt.Errorf("loading gateway: %w", err)
	}

	result, err := parser.ParseNotification(gateway, body)
	if err != nil {
		return fmt.Errorf("parsing %s notification: %w", gatewayType, err)
	}
	_, err = applyResult(ctx, uc.apply.txns, uc.apply.logger, txn, result)
	return err
}
