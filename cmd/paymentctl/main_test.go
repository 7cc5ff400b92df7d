package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hunters2410/zimaio-sub004/internal/application/dto"
	grpcapi "github.com/hunters2410/zimaio-sub004/internal/presentation/grpc"
	"github.com/hunters2410/zimaio-sub004/pkg/auth"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTokenCmd(t *testing.T) {
	t.Setenv("ENV_FILE", "/nonexistent/.env")
	t.Setenv("SUPABASE_JWT_SECRET", "dev-secret")
	userID := uuid.New()

	out, err := runCmd(t, "token", "--user", userID.String(), "--email", "ops@zimaio.example", "--role", auth.RoleServiceRole)
	require.NoError(t, err)

	svc, err := auth.NewJWTService(auth.JWTConfig{Secret: "dev-secret"})
	require.NoError(t, err)
	claims, err := svc.ValidateToken(strings.TrimSpace(out))
	require.NoError(t, err)

	got, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, userID, got)
	assert.Equal(t, "ops@zimaio.example", claims.Email)
	assert.True(t, claims.HasRole(auth.RoleServiceRole))
}

func TestTokenCmd_Errors(t *testing.T) {
	t.Setenv("ENV_FILE", "/nonexistent/.env")
	t.Setenv("SUPABASE_JWT_SECRET", "")
	t.Setenv("JWT_SECRET", "")

	_, err := runCmd(t, "token")
	assert.ErrorContains(t, err, "no signing key")

	t.Setenv("JWT_SECRET", "dev-secret")
	_, err = runCmd(t, "token", "--user", "not-a-uuid")
	assert.ErrorContains(t, err, "invalid --user")
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"migrate", "reconcile", "token", "certs", "transaction"})

	migrate, _, err := root.Find([]string{"migrate", "up"})
	require.NoError(t, err)
	assert.Equal(t, "up", migrate.Name())
}

func TestCertsCmd(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "certs")

	out, err := runCmd(t, "certs", "--out", dir, "--host", "payments.internal")
	require.NoError(t, err)
	assert.Contains(t, out, dir)

	for _, name := range []string{"ca.pem", "server.pem", "server-key.pem", "client.pem", "client-key.pem"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
}

type stubReader struct{ resp dto.TransactionResponse }

func (s stubReader) Execute(context.Context, dto.GetTransactionRequest) (dto.TransactionResponse, error) {
	return s.resp, nil
}

type stubLister struct{ resp []dto.TransactionResponse }

func (s stubLister) Execute(context.Context, uuid.UUID) ([]dto.TransactionResponse, error) {
	return s.resp, nil
}

func TestTransactionCmd(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	jwtSvc, err := auth.NewJWTService(auth.JWTConfig{Secret: "dev-secret"})
	require.NoError(t, err)

	txnID, orderID := uuid.New(), uuid.New()
	handler := grpcapi.NewHandler(
		stubReader{resp: dto.TransactionResponse{ID: txnID, OrderID: orderID, Status: "completed", Amount: "25.00"}},
		stubLister{resp: []dto.TransactionResponse{{ID: txnID, OrderID: orderID, Status: "completed"}}},
		logger,
	)
	srv, err := grpcapi.NewServer(handler, grpcapi.ServerConfig{}, jwtSvc, logger)
	require.NoError(t, err)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	token, err := jwtSvc.GenerateToken(uuid.New(), "", auth.RoleServiceRole)
	require.NoError(t, err)

	out, err := runCmd(t, "transaction", "get", txnID.String(), "--addr", lis.Addr().String(), "--token", token)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, txnID.String(), got["id"])
	assert.Equal(t, "completed", got["status"])

	out, err = runCmd(t, "transaction", "list", orderID.String(), "--addr", lis.Addr().String(), "--token", token)
	require.NoError(t, err)
	var list []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	assert.Len(t, list, 1)
}

func TestTransactionCmd_RequiresToken(t *testing.T) {
	t.Setenv("PAYMENT_SERVICE_TOKEN", "")
	_, err := runCmd(t, "transaction", "get", uuid.NewString())
	assert.ErrorContains(t, err, "no token")
}
