package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	kafkapkg "github.com/hunters2410/zimaio-sub004/pkg/kafka"
	pgpkg "github.com/hunters2410/zimaio-sub004/pkg/postgres"
)

// Config holds all service configuration loaded from environment variables.
type Config struct {
	HTTPPort  int
	GRPCPort  int
	DB        DBConfig
	Kafka     KafkaConfig
	Redis     RedisConfig
	Auth      AuthConfig
	GRPC      GRPCConfig
	Payment   PaymentConfig
	Telemetry TelemetryConfig
	LogLevel  string
	LogFormat string
}

type DBConfig struct {
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

// Postgres converts to the shared pool config.
func (c DBConfig) Postgres() pgpkg.Config {
	return pgpkg.Config{
		URL:      c.URL,
		Host:     c.Host,
		Port:     c.Port,
		User:     c.User,
		Password: c.Password,
		Database: c.Name,
		SSLMode:  c.SSLMode,
		MaxConns: c.MaxConns,
		MinConns: c.MinConns,
	}
}

type KafkaConfig struct {
	Enabled           bool
	Brokers           []string
	ConsumerGroup     string
	TransactionsTopic string
	OrdersTopic       string
	TLS               bool
	SASLEnabled       bool
	SASLMechanism     string
	SASLUsername      string
	SASLPassword      string
}

// Client converts to the shared Kafka client config.
func (c KafkaConfig) Client() kafkapkg.Config {
	return kafkapkg.Config{
		ClientID:      "payment-service",
		ConsumerGroup: c.ConsumerGroup,
		Brokers:       c.Brokers,
		TLS:           c.TLS,
		SASLEnabled:   c.SASLEnabled,
		SASLMechanism: c.SASLMechanism,
		SASLUsername:  c.SASLUsername,
		SASLPassword:  c.SASLPassword,
	}
}

// RedisConfig enables the per-order attempt lock when URL is set.
type RedisConfig struct {
	URL     string
	LockTTL time.Duration
}

type AuthConfig struct {
	JWTSecret        string
	JWTPublicKeyFile string
	JWTIssuer        string
	JWTAudience      string
	JWTLeeway        time.Duration
}

type GRPCConfig struct {
	TLSCertFile      string
	TLSKeyFile       string
	TLSClientCAFile  string
	EnableReflection bool
}

type PaymentConfig struct {
	EnforceOrderTotal  bool
	ProcessorTimeout   time.Duration
	BreakerFailures    int
	BreakerTimeout     time.Duration
	ReconcileInterval  time.Duration
	ReconcileMaxAge    time.Duration
	ReconcileBatchSize int
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
}

type TelemetryConfig struct {
	OTLPEndpoint string
	ServiceName  string
	SampleRatio  float64
}

// Validate checks required configuration values.
func (c Config) Validate() error {
	var errs []error
	if c.DB.URL == "" && c.DB.Password == "" {
		errs = append(errs, errors.New("DATABASE_URL or DB_PASSWORD environment variable is required"))
	}
	if c.Auth.JWTSecret == "" && c.Auth.JWTPublicKeyFile == "" {
		errs = append(errs, errors.New("SUPABASE_JWT_SECRET (or JWT_SECRET) or JWT_PUBLIC_KEY_FILE is required"))
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("KAFKA_BROKERS is required when Kafka is enabled"))
	}
	if (c.GRPC.TLSCertFile == "") != (c.GRPC.TLSKeyFile == "") {
		errs = append(errs, errors.New("GRPC_TLS_CERT_FILE and GRPC_TLS_KEY_FILE must be set together"))
	}
	return errors.Join(errs...)
}

// Load reads an optional .env file, then configuration from environment
// variables with defaults. Variables already set in the environment win.
func Load() Config {
	_ = godotenv.Load(getEnv("ENV_FILE", ".env"))

	return Config{
		HTTPPort: getEnvInt("HTTP_PORT", 8080),
		GRPCPort: getEnvInt("GRPC_PORT", 9090),
		DB: DBConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "zimaio"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "zimaio"),
			SSLMode:  getEnv("DB_SSLMODE", "require"),
			MaxConns: int32(getEnvInt("DB_MAX_CONNS", 20)),
			MinConns: int32(getEnvInt("DB_MIN_CONNS", 2)),
		},
		Kafka: KafkaConfig{
			Enabled:           getEnvBool("KAFKA_ENABLED", false),
			Brokers:           getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			ConsumerGroup:     getEnv("KAFKA_CONSUMER_GROUP", "payment-service"),
			TransactionsTopic: getEnv("KAFKA_TRANSACTIONS_TOPIC", "zimaio.payment.transactions"),
			OrdersTopic:       getEnv("KAFKA_ORDERS_TOPIC", "zimaio.orders"),
			TLS:               getEnvBool("KAFKA_TLS", false),
			SASLEnabled:       getEnvBool("KAFKA_SASL_ENABLED", false),
			SASLMechanism:     getEnv("KAFKA_SASL_MECHANISM", "PLAIN"),
			SASLUsername:      getEnv("KAFKA_SASL_USERNAME", ""),
			SASLPassword:      getEnv("KAFKA_SASL_PASSWORD", ""),
		},
		Redis: RedisConfig{
			URL:     getEnv("REDIS_URL", ""),
			LockTTL: getEnvDuration("PAYMENT_LOCK_TTL", 2*time.Minute),
		},
		Auth: AuthConfig{
			JWTSecret:        getEnv("SUPABASE_JWT_SECRET", getEnv("JWT_SECRET", "")),
			JWTPublicKeyFile: getEnv("JWT_PUBLIC_KEY_FILE", ""),
			JWTIssuer:        getEnv("JWT_ISSUER", ""),
			JWTAudience:      getEnv("JWT_AUDIENCE", ""),
			JWTLeeway:        getEnvDuration("JWT_LEEWAY", 30*time.Second),
		},
		GRPC: GRPCConfig{
			TLSCertFile:      getEnv("GRPC_TLS_CERT_FILE", ""),
			TLSKeyFile:       getEnv("GRPC_TLS_KEY_FILE", ""),
			TLSClientCAFile:  getEnv("GRPC_TLS_CLIENT_CA_FILE", ""),
			EnableReflection: getEnvBool("GRPC_REFLECTION", false),
		},
		Payment: PaymentConfig{
			EnforceOrderTotal:  getEnvBool("PAYMENT_ENFORCE_ORDER_TOTAL", false),
			ProcessorTimeout:   getEnvDuration("PAYMENT_PROCESSOR_TIMEOUT", 30*time.Second),
			BreakerFailures:    getEnvInt("PAYMENT_BREAKER_FAILURES", 5),
			BreakerTimeout:     getEnvDuration("PAYMENT_BREAKER_TIMEOUT", 30*time.Second),
			ReconcileInterval:  getEnvDuration("RECONCILE_INTERVAL", 5*time.Minute),
			ReconcileMaxAge:    getEnvDuration("RECONCILE_MAX_AGE", 30*time.Minute),
			ReconcileBatchSize: getEnvInt("RECONCILE_BATCH_SIZE", 100),
			OutboxPollInterval: getEnvDuration("OUTBOX_POLL_INTERVAL", 2*time.Second),
			OutboxBatchSize:    getEnvInt("OUTBOX_BATCH_SIZE", 100),
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "payment-service"),
			SampleRatio:  getEnvFloat("OTEL_TRACES_SAMPLE_RATIO", 1.0),
		},
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}
}

// HTTPAddr is the listen address for the REST server.
func (c Config) HTTPAddr() string { return fmt.Sprintf(":%d", c.HTTPPort) }

// GRPCAddr is the listen address for the gRPC server.
func (c Config) GRPCAddr() string { return fmt.Sprintf(":%d", c.GRPCPort) }

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func getEnvList(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
