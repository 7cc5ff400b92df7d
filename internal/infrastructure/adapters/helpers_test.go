package adapters

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/hunters2410/zimaio-sub004/internal/domain/model"
	"github.com/hunters2410/zimaio-sub004/internal/domain/port"
	"github.com/hunters2410/zimaio-sub004/internal/domain/valueobject"
	"github.com/hunters2410/zimaio-sub004/pkg/money"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient() *ProcessorClient {
	logger := discardLogger()
	return NewProcessorClient(5*time.Second, NewBreakers(BreakerSettings{ConsecutiveFailures: 2, Timeout: time.Minute}, logger), nil, logger)
}

func newTestGateway(t *testing.T, gatewayType valueobject.GatewayType, cfg map[string]any) model.Gateway {
	t.Helper()
	raw, err := json.Marshal(cfg)
	require.NoError(t, err)
	return model.ReconstructGateway(uuid.New(), gatewayType, gatewayType.String(), true, raw)
}

func newTestRequest(t *testing.T, amount string, details map[string]any) port.PaymentRequest {
	t.Helper()
	total, err := money.NewFromString(amount, "USD")
	require.NoError(t, err)
	customerID := uuid.New()
	order := model.ReconstructOrder(uuid.New(), customerID, "1042", total, "pending", model.OrderPaymentUnpaid, time.Now())
	return port.PaymentRequest{
		Order:         order,
		CustomerID:    customerID,
		CustomerEmail: "buyer@example.com",
		Amount:        total,
		Details:       details,
	}
}

func newPendingTransaction(t *testing.T, req port.PaymentRequest, gateway model.Gateway, attempt port.Attempt) model.Transaction {
	t.Helper()
	txn, err := model.NewTransaction(req.Order.ID(), req.CustomerID, gateway.ID(), gateway.Type(), req.Amount, attempt.LedgerMetadata())
	require.NoError(t, err)
	return txn
}
