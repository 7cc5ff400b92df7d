package grpc

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/hunters2410/zimaio-sub004/internal/application/dto"
	"github.com/hunters2410/zimaio-sub004/internal/domain/model"
	"github.com/hunters2410/zimaio-sub004/pkg/auth"
	"github.com/hunters2410/zimaio-sub004/pkg/tlsutil"
)

type mockReader struct {
	executeFunc func(ctx context.Context, req dto.GetTransactionRequest) (dto.TransactionResponse, error)
}

func (m *mockReader) Execute(ctx context.Context, req dto.GetTransactionRequest) (dto.TransactionResponse, error) {
	return m.executeFunc(ctx, req)
}

type mockLister struct {
	executeFunc func(ctx context.Context, orderID uuid.UUID) ([]dto.TransactionResponse, error)
}

func (m *mockLister) Execute(ctx context.Context, orderID uuid.UUID) ([]dto.TransactionResponse, error) {
	return m.executeFunc(ctx, orderID)
}

type testEnv struct {
	conn   *grpclib.ClientConn
	jwt    *auth.JWTService
	reader *mockReader
	lister *mockLister
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	jwtSvc, err := auth.NewJWTService(auth.JWTConfig{Secret: "test-secret", Expiration: time.Hour})
	require.NoError(t, err)

	env := &testEnv{jwt: jwtSvc, reader: &mockReader{}, lister: &mockLister{}}
	srv, err := NewServer(NewHandler(env.reader, env.lister, logger), ServerConfig{}, jwtSvc, logger)
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpclib.NewClient("passthrough:///bufnet",
		grpclib.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpclib.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	env.conn = conn
	return env
}

func (e *testEnv) ctx(t *testing.T, role string) context.Context {
	t.Helper()
	tok, err := e.jwt.GenerateToken(uuid.New(), "orders@zimaio.example", role)
	require.NoError(t, err)
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+tok)
}

func (e *testEnv) invoke(ctx context.Context, method string, req, resp interface{}) error {
	return e.conn.Invoke(ctx, "/"+transactionServiceName+"/"+method, req, resp, grpclib.CallContentSubtype(JSONCodecName))
}

func TestGetTransaction_ServiceRole(t *testing.T) {
	env := newTestEnv(t)
	txnID := uuid.New()
	env.reader.executeFunc = func(_ context.Context, req dto.GetTransactionRequest) (dto.TransactionResponse, error) {
		assert.True(t, req.IsService)
		if req.TransactionID != txnID {
			return dto.TransactionResponse{}, model.ErrTransactionNotFound
		}
		return dto.TransactionResponse{ID: txnID, Status: "completed", Amount: "25.00", Currency: "USD", Version: 2}, nil
	}

	var resp GetTransactionResponse
	err := env.invoke(env.ctx(t, auth.RoleServiceRole), "GetTransaction", &GetTransactionRequest{TransactionID: txnID.String()}, &resp)
	require.NoError(t, err)
	require.NotNil(t, resp.Transaction)
	assert.Equal(t, txnID.String(), resp.Transaction.ID)
	assert.Equal(t, "completed", resp.Transaction.Status)
	assert.Equal(t, "25.00", resp.Transaction.Amount)
	assert.Equal(t, int32(2), resp.Transaction.Version)

	err = env.invoke(env.ctx(t, auth.RoleServiceRole), "GetTransaction", &GetTransactionRequest{TransactionID: uuid.NewString()}, &resp)
	assert.Equal(t, codes.NotFound, status.Code(err))

	err = env.invoke(env.ctx(t, auth.RoleServiceRole), "GetTransaction", &GetTransactionRequest{TransactionID: "nope"}, &resp)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGetTransaction_RequiresServiceRole(t *testing.T) {
	env := newTestEnv(t)
	env.reader.executeFunc = func(context.Context, dto.GetTransactionRequest) (dto.TransactionResponse, error) {
		t.Fatal("handler must not run")
		return dto.TransactionResponse{}, nil
	}

	var resp GetTransactionResponse
	err := env.invoke(env.ctx(t, auth.RoleAuthenticated), "GetTransaction", &GetTransactionRequest{TransactionID: uuid.NewString()}, &resp)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	err = env.invoke(context.Background(), "GetTransaction", &GetTransactionRequest{TransactionID: uuid.NewString()}, &resp)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestListOrderTransactions(t *testing.T) {
	env := newTestEnv(t)
	orderID := uuid.New()
	env.lister.executeFunc = func(_ context.Context, id uuid.UUID) ([]dto.TransactionResponse, error) {
		if id != orderID {
			return nil, errors.New("db down")
		}
		return []dto.TransactionResponse{
			{ID: uuid.New(), OrderID: orderID, Status: "failed", ErrorMessage: "Insufficient funds"},
			{ID: uuid.New(), OrderID: orderID, Status: "completed"},
		}, nil
	}

	client := NewTransactionServiceClient(env.conn)
	resp, err := client.ListOrderTransactions(env.ctx(t, auth.RoleServiceRole), &ListOrderTransactionsRequest{OrderID: orderID.String()})
	require.NoError(t, err)
	require.Len(t, resp.Transactions, 2)
	assert.Equal(t, "Insufficient funds", resp.Transactions[0].ErrorMessage)

	_, err = client.ListOrderTransactions(env.ctx(t, auth.RoleServiceRole), &ListOrderTransactionsRequest{OrderID: uuid.NewString()})
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestHealthCheck_NoAuth(t *testing.T) {
	env := newTestEnv(t)

	resp, err := healthpb.NewHealthClient(env.conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: healthServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}

func TestNewServer_BadTLSFiles(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	jwtSvc, err := auth.NewJWTService(auth.JWTConfig{Secret: "test-secret"})
	require.NoError(t, err)

	_, err = NewServer(NewHandler(&mockReader{}, &mockLister{}, logger), ServerConfig{
		TLSCertFile: "/nonexistent/cert.pem",
		TLSKeyFile:  "/nonexistent/key.pem",
	}, jwtSvc, logger)
	assert.Error(t, err)
}

func TestServer_MutualTLS(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, tlsutil.GenerateSelfSignedCert([]string{"127.0.0.1"}, dir))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	jwtSvc, err := auth.NewJWTService(auth.JWTConfig{Secret: "test-secret"})
	require.NoError(t, err)

	txnID := uuid.New()
	reader := &mockReader{executeFunc: func(context.Context, dto.GetTransactionRequest) (dto.TransactionResponse, error) {
		return dto.TransactionResponse{ID: txnID, Status: "pending"}, nil
	}}
	srv, err := NewServer(NewHandler(reader, &mockLister{}, logger), ServerConfig{
		TLSCertFile:     filepath.Join(dir, "server.pem"),
		TLSKeyFile:      filepath.Join(dir, "server-key.pem"),
		TLSClientCAFile: filepath.Join(dir, "ca.pem"),
	}, jwtSvc, logger)
	require.NoError(t, err)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	creds, err := tlsutil.ClientTLSConfig(filepath.Join(dir, "ca.pem"), filepath.Join(dir, "client.pem"), filepath.Join(dir, "client-key.pem"), false)
	require.NoError(t, err)
	conn, err := grpclib.NewClient(lis.Addr().String(), grpclib.WithTransportCredentials(creds))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	tok, err := jwtSvc.GenerateToken(uuid.New(), "", auth.RoleServiceRole)
	require.NoError(t, err)
	ctx := metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+tok)

	resp, err := NewTransactionServiceClient(conn).GetTransaction(ctx, &GetTransactionRequest{TransactionID: txnID.String()})
	require.NoError(t, err)
	assert.Equal(t, "pending", resp.Transaction.Status)
}
