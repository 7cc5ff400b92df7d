package adapters

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hunters2410/zimaio-sub004/internal/domain/model"
	"github.com/hunters2410/zimaio-sub004/internal/domain/port"
	"github.com/hunters2410/zimaio-sub004/internal/domain/valueobject"
)

const cashMessage = "Order placed. Payment will be collected on delivery."

var (
	_ port.GatewayAdapter = (*CashAdapter)(nil)
	_ port.GatewayAdapter = (*ManualAdapter)(nil)
)

type localAttempt struct {
	method string
}

func (a localAttempt) LedgerMetadata() map[string]any {
	return map[string]any{"payment_method": a.method}
}

// CashAdapter records cash on delivery. Nothing is called; the attempt
// stays pending until the courier collects.
type CashAdapter struct{}

func NewCashAdapter() *CashAdapter { return &CashAdapter{} }

func (a *CashAdapter) Type() valueobject.GatewayType { return valueobject.GatewayCash }

func (a *CashAdapter) Prepare(model.Gateway, port.PaymentRequest) (port.Attempt, error) {
	return localAttempt{method: "cash_on_delivery"}, nil
}

func (a *CashAdapter) Execute(_ context.Context, _ port.Attempt, _ model.Transaction) (port.Outcome, error) {
	return port.Outcome{
		Kind: port.OutcomeAwaitingPayment,
		Update: model.TransactionUpdate{
			Status:   valueobject.TransactionStatusPending,
			Metadata: map[string]any{"collection": "on_delivery"},
		},
		Message: cashMessage,
	}, nil
}

// ManualAdapter records a bank transfer and hands the customer the gateway's
// payment instructions.
type ManualAdapter struct {
	instructions port.InstructionRepository
}

func NewManualAdapter(instructions port.InstructionRepository) *ManualAdapter {
	return &ManualAdapter{instructions: instructions}
}

func (a *ManualAdapter) Type() valueobject.GatewayType { return valueobject.GatewayManual }

func (a *ManualAdapter) Prepare(gateway model.Gateway, _ port.PaymentRequest) (port.Attempt, error) {
	return manualAttempt{localAttempt: localAttempt{method: "manual_transfer"}, gatewayID: gateway.ID()}, nil
}

type manualAttempt struct {
	localAttempt
	gatewayID uuid.UUID
}

func (a *ManualAdapter) Execute(ctx context.Context, attempt port.Attempt, _ model.Transaction) (port.Outcome, error) {
	ma, ok := attempt.(manualAttempt)
	if !ok {
		return port.Outcome{}, fmt.Errorf("manual: unexpected attempt type %T", attempt)
	}

	steps, err := a.instructions.ListActiveByGateway(ctx, ma.gatewayID)
	if err != nil {
		return port.Outcome{}, fmt.Errorf("manual: loading instructions: %w", err)
	}
	if steps == nil {
		steps = []model.PaymentInstruction{}
	}

	return port.Outcome{
		Kind: port.OutcomeAwaitingPayment,
		Update: model.TransactionUpdate{
			Status:   valueobject.TransactionStatusPending,
			Metadata: map[string]any{"instruction_steps": len(steps)},
		},
		Instructions: steps,
	}, nil
}
