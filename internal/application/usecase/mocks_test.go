package usecase_test

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hunters2410/zimaio-sub004/internal/domain/model"
	"github.com/hunters2410/zimaio-sub004/internal/domain/port"
	"github.com/hunters2410/zimaio-sub004/internal/domain/valueobject"
	"github.com/hunters2410/zimaio-sub004/pkg/money"
)

// --- Mock implementations ---

type mockTransactionRepository struct {
	mu         sync.Mutex
	createFunc func(ctx context.Context, txn model.Transaction) error
	updateFunc func(ctx context.Context, txn model.Transaction) error
	created    []model.Transaction
	updated    []model.Transaction
	rows       map[uuid.UUID]model.Transaction
	stale      []model.Transaction
}

func newMockTransactionRepository() *mockTransactionRepository {
	return &mockTransactionRepository{rows: map[uuid.UUID]model.Transaction{}}
}

func (m *mockTransactionRepository) Create(ctx context.Context, txn model.Transaction) error {
	if m.createFunc != nil {
		if err := m.createFunc(ctx, txn); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, txn)
	_, m.rows[txn.ID()] = txn.ClearDomainEvents()
	return nil
}

func (m *mockTransactionRepository) Update(ctx context.Context, txn model.Transaction) error {
	if m.updateFunc != nil {
		if err := m.updateFunc(ctx, txn); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updated = append(m.updated, txn)
	_, m.rows[txn.ID()] = txn.ClearDomainEvents()
	return nil
}

func (m *mockTransactionRepository) FindByID(_ context.Context, id uuid.UUID) (model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	txn, ok := m.rows[id]
	if !ok {
		return model.Transaction{}, model.ErrTransactionNotFound
	}
	return txn, nil
}

func (m *mockTransactionRepository) ListByOrder(_ context.Context, orderID uuid.UUID) ([]model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Transaction
	for _, t := range m.rows {
		if t.OrderID() == orderID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt().After(out[j].CreatedAt()) })
	return out, nil
}

func (m *mockTransactionRepository) ListStale(_ context.Context, _ time.Time, _ int) ([]model.Transaction, error) {
	return m.stale, nil
}

func (m *mockTransactionRepository) put(txn model.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[txn.ID()] = txn
}

type mockOrderRepository struct {
	orders       map[uuid.UUID]model.Order
	markPaidFunc func(ctx context.Context, orderID uuid.UUID) error
	markedPaid   []uuid.UUID
}

func (m *mockOrderRepository) FindForCustomer(_ context.Context, orderID, customerID uuid.UUID) (model.Order, error) {
	o, ok := m.orders[orderID]
	if !ok || o.CustomerID() != customerID {
		return model.Order{}, model.ErrOrderNotFound
	}
	return o, nil
}

func (m *mockOrderRepository) MarkPaid(ctx context.Context, orderID uuid.UUID) error {
	if m.markPaidFunc != nil {
		return m.markPaidFunc(ctx, orderID)
	}
	m.markedPaid = append(m.markedPaid, orderID)
	return nil
}

type mockGatewayRepository struct {
	gateways map[valueobject.GatewayType]model.Gateway
}

func (m *mockGatewayRepository) FindActiveByType(_ context.Context, gatewayType valueobject.GatewayType) (model.Gateway, error) {
	g, ok := m.gateways[gatewayType]
	if !ok || !g.IsActive() {
		return model.Gateway{}, model.ErrGatewayUnavailable
	}
	return g, nil
}

func (m *mockGatewayRepository) FindByID(_ context.Context, id uuid.UUID) (model.Gateway, error) {
	for _, g := range m.gateways {
		if g.ID() == id {
			return g, nil
		}
	}
	return model.Gateway{}, model.ErrGatewayUnavailable
}

type mockAttempt struct {
	meta map[string]any
}

func (a mockAttempt) LedgerMetadata() map[string]any { return a.meta }

type mockAdapter struct {
	gatewayType   valueobject.GatewayType
	prepareFunc   func(gateway model.Gateway, req port.PaymentRequest) (port.Attempt, error)
	executeFunc   func(ctx context.Context, attempt port.Attempt, txn model.Transaction) (port.Outcome, error)
	pollFunc      func(ctx context.Context, gateway model.Gateway, txn model.Transaction) (port.GatewayResult, error)
	parseFunc     func(gateway model.Gateway, body []byte) (port.GatewayResult, error)
	referenceFunc func(body []byte) (uuid.UUID, error)
	executed      int
	lastRequest   port.PaymentRequest
}

func (m *mockAdapter) Type() valueobject.GatewayType { return m.gatewayType }

func (m *mockAdapter) Prepare(gateway model.Gateway, req port.PaymentRequest) (port.Attempt, error) {
	m.lastRequest = req
	if m.prepareFunc != nil {
		return m.prepareFunc(gateway, req)
	}
	return mockAttempt{}, nil
}

func (m *mockAdapter) Execute(ctx context.Context, attempt port.Attempt, txn model.Transaction) (port.Outcome, error) {
	m.executed++
	if m.executeFunc != nil {
		return m.executeFunc(ctx, attempt, txn)
	}
	return port.Outcome{
		Kind:   port.OutcomeAwaitingPayment,
		Update: model.TransactionUpdate{Status: valueobject.TransactionStatusPending},
	}, nil
}

// mockPollingAdapter also implements port.StatusPoller and port.NotificationParser.
type mockPollingAdapter struct {
	*mockAdapter
}

func (m mockPollingAdapter) PollStatus(ctx context.Context, gateway model.Gateway, txn model.Transaction) (port.GatewayResult, error) {
	return m.pollFunc(ctx, gateway, txn)
}

func (m mockPollingAdapter) NotificationReference(body []byte) (uuid.UUID, error) {
	return m.referenceFunc(body)
}

func (m mockPollingAdapter) ParseNotification(gateway model.Gateway, body []byte) (port.GatewayResult, error) {
	return m.parseFunc(gateway, body)
}

type mockRegistry map[valueobject.GatewayType]port.GatewayAdapter

func (m mockRegistry) Lookup(gatewayType valueobject.GatewayType) (port.GatewayAdapter, bool) {
	a, ok := m[gatewayType]
	return a, ok
}

type mockLock struct {
	acquireFunc func(ctx context.Context, orderID uuid.UUID) (func(context.Context) error, error)
	released    int
}

func (m *mockLock) Acquire(ctx context.Context, orderID uuid.UUID) (func(context.Context) error, error) {
	if m.acquireFunc != nil {
		return m.acquireFunc(ctx, orderID)
	}
	return func(context.Context) error {
		m.released++
		return nil
	}, nil
}

// --- Fixtures ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOrder(customerID uuid.UUID, total string) model.Order {
	amount, err := money.NewFromString(total, "USD")
	if err != nil {
		panic(err)
	}
	return model.ReconstructOrder(uuid.New(), customerID, "1042", amount, "pending", model.OrderPaymentUnpaid, time.Now())
}

func testGateway(gatewayType valueobject.GatewayType, active bool) model.Gateway {
	return model.ReconstructGateway(uuid.New(), gatewayType, gatewayType.String(), active, nil)
}

func testTransaction(gatewayType valueobject.GatewayType) model.Transaction {
	return testTransactionOn(uuid.New(), gatewayType)
}

func testTransactionOn(gatewayID uuid.UUID, gatewayType valueobject.GatewayType) model.Transaction {
	amount, _ := money.NewFromString("25.00", "USD")
	txn, err := model.NewTransaction(uuid.New(), uuid.New(), gatewayID, gatewayType, amount, nil)
	if err != nil {
		panic(err)
	}
	_, txn = txn.ClearDomainEvents()
	return txn
}
