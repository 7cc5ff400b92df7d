package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hunters2410/zimaio-sub004/internal/application/dto"
	"github.com/hunters2410/zimaio-sub004/internal/domain/model"
	"github.com/hunters2410/zimaio-sub004/internal/domain/port"
)

// ReconcilePending sweeps attempts that have been pending or processing for
// longer than MaxAge. Pollable gateways are asked for the outcome; the rest
// are flagged indeterminate. Cash and manual attempts are pending by design
// and are left alone.
type ReconcilePending struct {
	txns      port.TransactionRepository
	gateways  port.GatewayRepository
	adapters  port.AdapterRegistry
	maxAge    time.Duration
	batchSize int
	logger    *slog.Logger
}

func NewReconcilePending(
	txns port.TransactionRepository,
	gateways port.GatewayRepository,
	adapters port.AdapterRegistry,
	maxAge time.Duration,
	batchSize int,
	logger *slog.Logger,
) *ReconcilePending {
	if maxAge <= 0 {
		maxAge = 30 * time.Minute
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &ReconcilePending{
		txns:      txns,
		gateways:  gateways,
		adapters:  adapters,
		maxAge:    maxAge,
		batchSize: batchSize,
		logger:    logger,
	}
}

func (uc *ReconcilePending) Execute(ctx context.Context) (dto.ReconcileReport, error) {
	var report dto.ReconcileReport

	stale, err := uc.txns.ListStale(ctx, time.Now().UTC().Add(-uc.maxAge), uc.batchSize)
	if err != nil {
		return report, fmt.Errorf("failed to list stale transactions: %w", err)
	}
	report.Scanned = len(stale)

	for _, txn := range stale {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		logger := uc.logger.With("transaction_id", txn.ID(), "gateway", txn.GatewayType().String())
		outcome, err := uc.reconcile(ctx, txn)
		if err != nil {
			report.Errors++
			logger.Error("reconciliation failed", "error", err)
			continue
		}
		switch outcome {
		case reconcileSettled:
			report.Settled++
		case reconcileFlagged:
			report.Flagged++
		default:
			report.Skipped++
		}
	}

	uc.logger.Info("reconciliation sweep finished",
		"scanned", report.Scanned,
		"settled", report.Settled,
		"flagged", report.Flagged,
		"skipped", report.Skipped,
		"errors", report.Errors,
	)
	return report, nil
}

type reconcileOutcome int

const (
	reconcileSkipped reconcileOutcome = iota
	reconcileSettled
	reconcileFlagged
)

func (uc *ReconcilePending) reconcile(ctx context.Context, txn model.Transaction) (reconcileOutcome, error) {
	if txn.GatewayType().IsLocal() {
		return reconcileSkipped, nil
	}

	if adapter, ok := uc.adapters.Lookup(txn.GatewayType()); ok {
		if poller, ok := adapter.(port.StatusPoller); ok && txn.GatewayTransactionID() != "" {
			return uc.poll(ctx, poller, txn)
		}
	}
	return uc.flag(ctx, txn)
}

func (uc *ReconcilePending) poll(ctx context.Context, poller port.StatusPoller, txn model.Transaction) (reconcileOutcome, error) {
	gateway, err := uc.gateways.FindByID(ctx, txn.GatewayID())
	if err != nil {
		return reconcileSkipped, fmt.Errorf("loading gateway: %w", err)
	}

	result, err := poller.PollStatus(ctx, gateway, txn)
	if err != nil {
		return reconcileSkipped, fmt.Errorf("polling status: %w", err)
	}

	changed, err := applyResult(ctx, uc.txns, uc.logger, txn, result)
	if err != nil {
		return reconcileSkipped, err
	}
	if changed && result.Status.IsTerminal() {
		return reconcileSettled, nil
	}
	return reconcileSkipped, nil
}

func (uc *ReconcilePending) flag(ctx context.Context, txn model.Transaction) (reconcileOutcome, error) {
	flagged, err := txn.FlagIndeterminate(time.Now().UTC())
	if errors.Is(err, model.ErrAlreadyInState) {
		return reconcileSkipped, nil
	}
	if err != nil {
		return reconcileSkipped, err
	}
	if err := uc.txns.Update(ctx, flagged); err != nil {
		return reconcileSkipped, fmt.Errorf("failed to update transaction: %w", err)
	}
	uc.logger.Warn("payment outcome indeterminate", "transaction_id", txn.ID(), "status", txn.Status().String())
	return reconcileFlagged, nil
}

