//go:build integration

package e2e

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hunters2410/zimaio-sub004/internal/application/usecase"
	"github.com/hunters2410/zimaio-sub004/internal/infrastructure/adapters"
	"github.com/hunters2410/zimaio-sub004/internal/infrastructure/lock"
	infraPG "github.com/hunters2410/zimaio-sub004/internal/infrastructure/persistence/postgres"
	"github.com/hunters2410/zimaio-sub004/internal/presentation/rest"
	"github.com/hunters2410/zimaio-sub004/pkg/auth"
	"github.com/hunters2410/zimaio-sub004/pkg/testutil"
	"github.com/hunters2410/zimaio-sub004/pkg/validate"
)

type stack struct {
	pool   *pgxpool.Pool
	router http.Handler
	jwt    *auth.JWTService
}

func newStack(t *testing.T) *stack {
	t.Helper()
	ctx := context.Background()

	pg := testutil.NewPostgresContainer(ctx, t)
	t.Cleanup(func() { pg.Cleanup(t) })
	pg.RunMigrations(t, infraPG.Migrations, infraPG.MigrationsDir)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	jwtSvc, err := auth.NewJWTService(auth.JWTConfig{Secret: "e2e-secret", Expiration: time.Hour})
	require.NoError(t, err)

	txns := infraPG.NewTransactionRepo(pg.Pool)
	gateways := infraPG.NewGatewayRepo(pg.Pool)
	client := adapters.NewProcessorClient(5*time.Second, adapters.NewBreakers(adapters.BreakerSettings{}, logger), nil, logger)
	v := validate.New()
	registry := adapters.NewDefaultRegistry(client, v, infraPG.NewInstructionRepo(pg.Pool), logger)

	process := usecase.NewProcessPayment(
		txns, infraPG.NewOrderRepo(pg.Pool), gateways, registry, lock.NewLocalLock(), nil, v,
		usecase.ProcessPaymentOptions{}, logger,
	)
	notifications := usecase.NewHandleGatewayNotification(gateways, registry, usecase.NewApplyGatewayResult(txns, logger))

	return &stack{
		pool: pg.Pool,
		jwt:  jwtSvc,
		router: rest.NewRouter(rest.RouterConfig{
			Handler:        rest.NewPaymentHandler(process, usecase.NewGetTransaction(txns), notifications, logger),
			TokenValidator: jwtSvc,
			DB:             pg.Pool,
			Logger:         logger,
		}),
	}
}

func (s *stack) seedOrder(t *testing.T, customerID uuid.UUID, total string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := s.pool.Exec(context.Background(), `
		INSERT INTO orders (id, customer_id, order_number, total_amount, currency)
		VALUES ($1, $2, '1042', $3::numeric, 'USD')
	`, id, customerID, total)
	require.NoError(t, err)
	return id
}

func (s *stack) seedGateway(t *testing.T, gatewayType string, active bool, config string) {
	t.Helper()
	_, err := s.pool.Exec(context.Background(), `
		INSERT INTO payment_gateways (id, gateway_type, name, is_active, config)
		VALUES ($1, $2, $2, $3, $4::jsonb)
	`, uuid.New(), gatewayType, active, config)
	require.NoError(t, err)
}

func (s *stack) transactionCount(t *testing.T, orderID uuid.UUID) int {
	t.Helper()
	var n int
	require.NoError(t, s.pool.QueryRow(context.Background(),
		`SELECT count(*) FROM payment_transactions WHERE order_id = $1`, orderID).Scan(&n))
	return n
}

func (s *stack) call(t *testing.T, method, path string, userID uuid.UUID, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	token, err := s.jwt.GenerateToken(userID, "buyer@example.com", auth.RoleAuthenticated)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec.Code, out
}

func TestCashRoundTrip(t *testing.T) {
	s := newStack(t)
	customer := uuid.New()
	orderID := s.seedOrder(t, customer, "10.00")
	s.seedGateway(t, "cash", true, `{}`)

	status, body := s.call(t, http.MethodPost, "/process-payment", customer, map[string]any{
		"order_id": orderID, "gateway_type": "cash", "amount": 10, "currency": "USD",
	})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, true, body["success"])
	txnID, _ := body["transaction_id"].(string)
	require.NotEmpty(t, txnID)

	status, txn := s.call(t, http.MethodGet, "/v1/payments/transactions/"+txnID, customer, nil)
	require.Equal(t, http.StatusOK, status, txn)
	assert.Equal(t, "pending", txn["status"])
	assert.Equal(t, "cash", txn["gateway_type"])

	status, _ = s.call(t, http.MethodGet, "/v1/payments/transactions/"+txnID, uuid.New(), nil)
	assert.Equal(t, http.StatusNotFound, status, "other customers cannot read the transaction")
}

func TestRejectionsCreateNoRows(t *testing.T) {
	s := newStack(t)
	customer := uuid.New()
	orderID := s.seedOrder(t, customer, "10.00")
	s.seedGateway(t, "iveri", false, `{"application_id":"APP-1"}`)

	status, body := s.call(t, http.MethodPost, "/process-payment", customer, map[string]any{
		"order_id": orderID, "gateway_type": "bogus", "amount": 10, "currency": "USD",
	})
	assert.Equal(t, http.StatusNotImplemented, status)
	assert.Equal(t, "Payment method not yet implemented", body["error"])

	status, body = s.call(t, http.MethodPost, "/process-payment", uuid.New(), map[string]any{
		"order_id": orderID, "gateway_type": "cash", "amount": 10, "currency": "USD",
	})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Order not found", body["error"])

	status, body = s.call(t, http.MethodPost, "/process-payment", customer, map[string]any{
		"order_id": orderID, "gateway_type": "iveri", "amount": 10, "currency": "USD",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Payment gateway not available", body["error"])

	assert.Zero(t, s.transactionCount(t, orderID))
}

func TestIveriCardDebitSettlesOrder(t *testing.T) {
	var gotAmount string
	processor := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Transaction struct {
				Amount string `json:"Amount"`
			} `json:"Transaction"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotAmount = req.Transaction.Amount
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"Transaction":{"RequestID":"REQ-9","Result":{"Status":"0","Source":"SRC-1"}}}`))
	}))
	defer processor.Close()

	s := newStack(t)
	customer := uuid.New()
	orderID := s.seedOrder(t, customer, "25.00")
	s.seedGateway(t, "iveri", true, `{"application_id":"APP-1","base_url":"`+processor.URL+`"}`)

	status, body := s.call(t, http.MethodPost, "/process-payment", customer, map[string]any{
		"order_id": orderID, "gateway_type": "iveri", "amount": "25.00", "currency": "USD",
		"metadata": map[string]any{"payment_method": "card", "card_number": "4111111111111111", "expiry_date": "1230"},
	})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, true, body["success"])
	assert.Nil(t, body["redirect_url"])
	assert.Equal(t, "2500", gotAmount)

	var paymentStatus, orderStatus string
	require.NoError(t, s.pool.QueryRow(context.Background(),
		`SELECT payment_status, status FROM orders WHERE id = $1`, orderID).Scan(&paymentStatus, &orderStatus))
	assert.Equal(t, "paid", paymentStatus)
	assert.Equal(t, "processing", orderStatus)
	assert.Equal(t, 1, s.transactionCount(t, orderID))
}
