package grpc

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hunters2410/zimaio-sub004/internal/application/dto"
	"github.com/hunters2410/zimaio-sub004/internal/domain/model"
)

// TransactionReader reads a single ledger entry.
type TransactionReader interface {
	Execute(ctx context.Context, req dto.GetTransactionRequest) (dto.TransactionResponse, error)
}

// OrderTransactionLister lists all attempts for an order.
type OrderTransactionLister interface {
	Execute(ctx context.Context, orderID uuid.UUID) ([]dto.TransactionResponse, error)
}

// Compile-time assertion that Handler implements TransactionServiceServer.
var _ TransactionServiceServer = (*Handler)(nil)

// Handler implements the gRPC TransactionService server used by order
// management.
type Handler struct {
	UnimplementedTransactionServiceServer
	getTransaction   TransactionReader
	listTransactions OrderTransactionLister

	logger *slog.Logger
}

func NewHandler(getTransaction TransactionReader, listTransactions OrderTransactionLister, logger *slog.Logger) *Handler {
	return &Handler{
		getTransaction:   getTransaction,
		listTransactions: listTransactions,
		logger:           logger,
	}
}

func (h *Handler) GetTransaction(ctx context.Context, req *GetTransactionRequest) (*GetTransactionResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	txnID, err := uuid.Parse(req.TransactionID)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid transaction_id: %v", err)
	}

	result, err := h.getTransaction.Execute(ctx, dto.GetTransactionRequest{
		TransactionID: txnID,
		IsService:     true,
	})
	if err != nil {
		return nil, h.toStatus(err)
	}

	return &GetTransactionResponse{Transaction: toTransactionMsg(result)}, nil
}

func (h *Handler) ListOrderTransactions(ctx context.Context, req *ListOrderTransactionsRequest) (*ListOrderTransactionsResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid order_id: %v", err)
	}

	results, err := h.listTransactions.Execute(ctx, orderID)
	if err != nil {
		return nil, h.toStatus(err)
	}

	msgs := make([]*TransactionMsg, 0, len(results))
	for _, r := range results {
		msgs = append(msgs, toTransactionMsg(r))
	}
	return &ListOrderTransactionsResponse{Transactions: msgs}, nil
}

func (h *Handler) toStatus(err error) error {
	if errors.Is(err, model.ErrTransactionNotFound) {
		return status.Error(codes.NotFound, "transaction not found")
	}
	h.logger.Error("handler error", "error", err)
	return status.Error(codes.Internal, "internal error")
}

func toTransactionMsg(r dto.TransactionResponse) *TransactionMsg {
	return &TransactionMsg{
		ID:                   r.ID.String(),
		OrderID:              r.OrderID.String(),
		UserID:               r.UserID.String(),
		GatewayID:            r.GatewayID.String(),
		GatewayType:          r.GatewayType,
		Amount:               r.Amount,
		Currency:             r.Currency,
		Status:               r.Status,
		GatewayTransactionID: r.GatewayTransactionID,
		TransactionReference: r.TransactionReference,
		ErrorMessage:         r.ErrorMessage,
		Metadata:             r.Metadata,
		Version:              int32(r.Version), //nolint:gosec // bounded
		CreatedAt:            r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:            r.UpdatedAt.Format(time.RFC3339),
	}
}
