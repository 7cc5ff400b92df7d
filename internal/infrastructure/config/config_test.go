package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	cfg := Load()
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, ":9090", cfg.GRPCAddr())
	assert.Equal(t, "zimaio.payment.transactions", cfg.Kafka.TransactionsTopic)
	assert.Equal(t, 30*time.Second, cfg.Payment.ProcessorTimeout)
	assert.False(t, cfg.Payment.EnforceOrderTotal)
	assert.Empty(t, cfg.Redis.URL)
}

func TestLoad_FromEnvAndDotenv(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("SUPABASE_JWT_SECRET=from-dotenv\nHTTP_PORT=7000\n"), 0o600))
	t.Setenv("ENV_FILE", envFile)
	t.Setenv("HTTP_PORT", "8181")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("PAYMENT_ENFORCE_ORDER_TOTAL", "true")
	t.Setenv("RECONCILE_MAX_AGE", "10m")

	cfg := Load()
	t.Cleanup(func() { os.Unsetenv("SUPABASE_JWT_SECRET") })

	assert.Equal(t, 8181, cfg.HTTPPort, "process environment wins over .env")
	assert.Equal(t, "from-dotenv", cfg.Auth.JWTSecret)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Payment.EnforceOrderTotal)
	assert.Equal(t, 10*time.Minute, cfg.Payment.ReconcileMaxAge)
}

func TestValidate(t *testing.T) {
	cfg := Config{}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "JWT")

	cfg.DB.URL = "postgres://localhost/zimaio"
	cfg.Auth.JWTSecret = "secret"
	assert.NoError(t, cfg.Validate())

	cfg.GRPC.TLSCertFile = "cert.pem"
	assert.Error(t, cfg.Validate())
}

func TestDBConfig_Postgres(t *testing.T) {
	db := DBConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "zimaio", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/zimaio?sslmode=disable", db.Postgres().DSN())
}
