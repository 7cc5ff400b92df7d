package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hunters2410/zimaio-sub004/internal/application/dto"
	"github.com/hunters2410/zimaio-sub004/internal/domain/model"
	"github.com/hunters2410/zimaio-sub004/internal/domain/port"
)

// GetTransaction reads one ledger entry. Customers only see their own.
type GetTransaction struct {
	txns port.TransactionRepository
}

func NewGetTransaction(txns port.TransactionRepository) *GetTransaction {
	return &GetTransaction{txns: txns}
}

func (uc *GetTransaction) Execute(ctx context.Context, req dto.GetTransactionRequest) (dto.TransactionResponse, error) {
	txn, err := uc.txns.FindByID(ctx, req.TransactionID)
	if err != nil {
		return dto.TransactionResponse{}, fmt.Errorf("failed to find transaction: %w", err)
	}
	if !req.IsService && txn.UserID() != req.ActorID {
		return dto.TransactionResponse{}, fmt.Errorf("failed to find transaction: %w", model.ErrTransactionNotFound)
	}
	return dto.ToTransactionResponse(txn), nil
}

// ListOrderTransactions returns every attempt recorded for an order.
type ListOrderTransactions struct {
	txns port.TransactionRepository
}

func NewListOrderTransactions(txns port.TransactionRepository) *ListOrderTransactions {
	return &ListOrderTransactions{txns: txns}
}

func (uc *ListOrderTransactions) Execute(ctx context.Context, orderID uuid.UUID) ([]dto.TransactionResponse, error) {
	txns, err := uc.txns.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	out := make([]dto.TransactionResponse, 0, len(txns))
	for _, t := range txns {
		out = append(out, dto.ToTransactionResponse(t))
	}
	return out, nil
}
