package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hunters2410/zimaio-sub004/internal/domain/model"
	"github.com/hunters2410/zimaio-sub004/internal/domain/port"
	"github.com/hunters2410/zimaio-sub004/internal/domain/valueobject"
)

const orderCancelledMessage = "Order cancelled"

// CancelOrderAttempts closes the open attempts of an order that order
// management cancelled. Attempts no processor has seen are failed. Attempts
// a processor may already hold are polled when the gateway allows it and
// otherwise flagged indeterminate, so a capture is never overwritten.
type CancelOrderAttempts struct {
	txns     port.TransactionRepository
	gateways port.GatewayRepository
	adapters port.AdapterRegistry
	logger   *slog.Logger
}

func NewCancelOrderAttempts(
	txns port.TransactionRepository,
	gateways port.GatewayRepository,
	adapters port.AdapterRegistry,
	logger *slog.Logger,
) *CancelOrderAttempts {
	return &CancelOrderAttempts{txns: txns, gateways: gateways, adapters: adapters, logger: logger}
}

// Execute returns the number of attempts failed.
func (uc *CancelOrderAttempts) Execute(ctx context.Context, orderID uuid.UUID) (int, error) {
	txns, err := uc.txns.ListByOrder(ctx, orderID)
	if err != nil {
		return 0, fmt.Errorf("failed to list transactions: %w", err)
	}

	cancelled, deferred := 0, 0
	for _, txn := range txns {
		if txn.Status().IsTerminal() {
			continue
		}

		logger := uc.logger.With("transaction_id", txn.ID(), "order_id", orderID, "gateway", txn.GatewayType().String())
		var err error
		if seenByProcessor(txn) {
			deferred++
			err = uc.settleFromProcessor(ctx, logger, txn)
		} else {
			var failed bool
			failed, err = uc.fail(ctx, txn)
			if failed {
				cancelled++
			}
		}

		if errors.Is(err, model.ErrConcurrentUpdate) {
			logger.Warn("transaction changed while cancelling, skipped")
			continue
		}
		if err != nil {
			return cancelled, err
		}
	}

	if cancelled > 0 || deferred > 0 {
		uc.logger.Info("closed open payment attempts of cancelled order",
			"order_id", orderID,
			"failed", cancelled,
			"left_to_processor", deferred,
		)
	}
	return cancelled, nil
}

// seenByProcessor reports whether a processor may hold the attempt. Local
// gateways never do; a remote attempt counts once it is processing or
// carries a processor reference.
func seenByProcessor(txn model.Transaction) bool {
	if txn.GatewayType().IsLocal() {
		return false
	}
	return txn.Status() == valueobject.TransactionStatusProcessing || txn.GatewayTransactionID() != ""
}

func (uc *CancelOrderAttempts) fail(ctx context.Context, txn model.Transaction) (bool, error) {
	failed, err := txn.Apply(model.TransactionUpdate{
		Status:       valueobject.TransactionStatusFailed,
		ErrorMessage: orderCancelledMessage,
		Metadata:     map[string]any{"cancelled_with_order": true},
	}, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("cancelling transaction %s: %w", txn.ID(), err)
	}
	if err := uc.txns.Update(ctx, failed); err != nil {
		return false, fmt.Errorf("failed to update transaction: %w", err)
	}
	return true, nil
}

// settleFromProcessor applies the processor's terminal answer when one is
// available and flags the attempt indeterminate otherwise.
func (uc *CancelOrderAttempts) settleFromProcessor(ctx context.Context, logger *slog.Logger, txn model.Transaction) error {
	if result, ok := uc.poll(ctx, logger, txn); ok && result.Status.IsTerminal() {
		_, err := applyResult(ctx, uc.txns, logger, txn, result)
		return err
	}

	flagged, err := txn.FlagIndeterminate(time.Now().UTC())
	if errors.Is(err, model.ErrAlreadyInState) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("flagging transaction %s: %w", txn.ID(), err)
	}
	if err := uc.txns.Update(ctx, flagged); err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	logger.Warn("order cancelled while processor holds the attempt, flagged indeterminate", "status", txn.Status().String())
	return nil
}

func (uc *CancelOrderAttempts) poll(ctx context.Context, logger *slog.Logger, txn model.Transaction) (port.GatewayResult, bool) {
	if txn.GatewayTransactionID() == "" {
		return port.GatewayResult{}, false
	}
	adapter, ok := uc.adapters.Lookup(txn.GatewayType())
	if !ok {
		return port.GatewayResult{}, false
	}
	poller, ok := adapter.(port.StatusPoller)
	if !ok {
		return port.GatewayResult{}, false
	}

	gateway, err := uc.gateways.FindByID(ctx, txn.GatewayID())
	if err != nil {
		logger.Warn("cannot load gateway to poll cancelled attempt", "error", err)
		return port.GatewayResult{}, false
	}
	result, err := poller.PollStatus(ctx, gateway, txn)
	if err != nil {
		logger.Warn("polling cancelled attempt failed", "error", err)
		return port.GatewayResult{}, false
	}
	return result, true
}
