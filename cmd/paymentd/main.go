package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hunters2410/zimaio-sub004/internal/application/usecase"
	"github.com/hunters2410/zimaio-sub004/internal/domain/port"
	"github.com/hunters2410/zimaio-sub004/internal/infrastructure/adapters"
	"github.com/hunters2410/zimaio-sub004/internal/infrastructure/config"
	"github.com/hunters2410/zimaio-sub004/internal/infrastructure/lock"
	"github.com/hunters2410/zimaio-sub004/internal/infrastructure/messaging"
	infraPG "github.com/hunters2410/zimaio-sub004/internal/infrastructure/persistence/postgres"
	grpcPresentation "github.com/hunters2410/zimaio-sub004/internal/presentation/grpc"
	"github.com/hunters2410/zimaio-sub004/internal/presentation/rest"
	"github.com/hunters2410/zimaio-sub004/pkg/auth"
	kafkapkg "github.com/hunters2410/zimaio-sub004/pkg/kafka"
	"github.com/hunters2410/zimaio-sub004/pkg/observability"
	pgpkg "github.com/hunters2410/zimaio-sub004/pkg/postgres"
	"github.com/hunters2410/zimaio-sub004/pkg/validate"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Load configuration.
	cfg := config.Load()

	// Initialize logger.
	logger := observability.InitLogger(observability.LogConfig{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: cfg.Telemetry.ServiceName,
	})
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger.Info("starting payment-service",
		"http_port", cfg.HTTPPort,
		"grpc_port", cfg.GRPCPort,
	)

	// Initialize tracing.
	if cfg.Telemetry.OTLPEndpoint != "" {
		shutdown, err := observability.InitTracer(ctx, observability.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Endpoint:    cfg.Telemetry.OTLPEndpoint,
			Insecure:    true,
			SampleRatio: cfg.Telemetry.SampleRatio,
		})
		if err != nil {
			logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
		} else {
			defer func() { _ = shutdown(context.Background()) }()
		}
	}

	// Initialize metrics.
	meterProvider, metricsHandler, err := observability.InitMetrics(observability.MetricsConfig{
		ServiceName: cfg.Telemetry.ServiceName,
	})
	if err != nil {
		logger.Error("failed to initialize metrics", "error", err)
		os.Exit(1)
	}
	defer func() { _ = meterProvider.Shutdown(context.Background()) }()

	paymentMetrics, err := observability.NewPaymentMetrics(meterProvider)
	if err != nil {
		logger.Error("failed to register payment metrics", "error", err)
		os.Exit(1)
	}

	// Initialize database.
	pgCfg := cfg.DB.Postgres()
	pool, err := pgpkg.NewPool(ctx, pgCfg)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Run migrations.
	if err := pgpkg.RunMigrationsFS(pgCfg.DSN(), infraPG.Migrations, infraPG.MigrationsDir); err != nil {
		logger.Warn("migration warning", "error", err)
	}

	jwtService, err := newJWTService(cfg.Auth)
	if err != nil {
		logger.Error("failed to initialize JWT service", "error", err)
		os.Exit(1)
	}

	// Wire dependencies (DI via constructors).
	txnRepo := infraPG.NewTransactionRepo(pool)
	orderRepo := infraPG.NewOrderRepo(pool)
	gatewayRepo := infraPG.NewGatewayRepo(pool)
	instructionRepo := infraPG.NewInstructionRepo(pool)

	attemptLock, closeLock := newAttemptLock(ctx, cfg.Redis, logger)
	defer closeLock()

	breakers := adapters.NewBreakers(adapters.BreakerSettings{
		ConsecutiveFailures: uint32(cfg.Payment.BreakerFailures), //nolint:gosec // config bounded
		Timeout:             cfg.Payment.BreakerTimeout,
	}, logger)
	processorClient := adapters.NewProcessorClient(cfg.Payment.ProcessorTimeout, breakers, paymentMetrics, logger)
	validator := validate.New()
	registry := adapters.NewDefaultRegistry(processorClient, validator, instructionRepo, logger)

	// Use cases.
	processPaymentUC := usecase.NewProcessPayment(
		txnRepo, orderRepo, gatewayRepo, registry, attemptLock, paymentMetrics, validator,
		usecase.ProcessPaymentOptions{EnforceOrderTotal: cfg.Payment.EnforceOrderTotal},
		logger,
	)
	getTransactionUC := usecase.NewGetTransaction(txnRepo)
	listTransactionsUC := usecase.NewListOrderTransactions(txnRepo)
	applyResultUC := usecase.NewApplyGatewayResult(txnRepo, logger)
	notificationUC := usecase.NewHandleGatewayNotification(gatewayRepo, registry, applyResultUC)
	reconcileUC := usecase.NewReconcilePending(
		txnRepo, gatewayRepo, registry,
		cfg.Payment.ReconcileMaxAge, cfg.Payment.ReconcileBatchSize, logger,
	)
	cancelAttemptsUC := usecase.NewCancelOrderAttempts(txnRepo, gatewayRepo, registry, logger)

	// HTTP server.
	router := rest.NewRouter(rest.RouterConfig{
		Handler:        rest.NewPaymentHandler(processPaymentUC, getTransactionUC, notificationUC, logger),
		TokenValidator: jwtService,
		DB:             pool,
		Metrics:        metricsHandler,
		Logger:         logger,
	})
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// gRPC server.
	grpcServer, err := grpcPresentation.NewServer(
		grpcPresentation.NewHandler(getTransactionUC, listTransactionsUC, logger),
		grpcPresentation.ServerConfig{
			Port:             cfg.GRPCPort,
			TLSCertFile:      cfg.GRPC.TLSCertFile,
			TLSKeyFile:       cfg.GRPC.TLSKeyFile,
			TLSClientCAFile:  cfg.GRPC.TLSClientCAFile,
			EnableReflection: cfg.GRPC.EnableReflection,
		},
		jwtService, logger,
	)
	if err != nil {
		logger.Error("failed to create gRPC server", "error", err)
		os.Exit(1)
	}

	// Start servers and background workers.
	errCh := make(chan error, 4)

	go func() {
		if err := grpcServer.Start(); err != nil {
			errCh <- err
		}
	}()

	go func() {
		logger.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	go runReconciler(ctx, reconcileUC, cfg.Payment.ReconcileInterval, logger)

	if cfg.Kafka.Enabled {
		closeKafka, err := startKafka(ctx, cfg, infraPG.NewOutboxRepo(pool), cancelAttemptsUC, errCh, logger)
		if err != nil {
			logger.Error("failed to start kafka workers", "error", err)
			os.Exit(1)
		}
		defer closeKafka()
	} else {
		logger.Info("kafka disabled, outbox entries accumulate until a relay runs")
	}

	// Wait for shutdown.
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Error("server error", "error", err)
		cancel()
	}

	// Graceful shutdown.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "error", err)
	}
	grpcServer.Stop()
	logger.Info("payment-service stopped")
}

func newJWTService(cfg config.AuthConfig) (*auth.JWTService, error) {
	jwtCfg := auth.JWTConfig{
		Secret:   cfg.JWTSecret,
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		Leeway:   cfg.JWTLeeway,
	}
	// Prefer an RSA public key; fall back to the provider's HMAC secret.
	if cfg.JWTPublicKeyFile != "" {
		keyData, err := auth.LoadKeyFromFile(cfg.JWTPublicKeyFile)
		if err != nil {
			return nil, err
		}
		jwtCfg.PublicKeyPEM = string(keyData)
	}
	return auth.NewJWTService(jwtCfg)
}

// newAttemptLock prefers Redis so duplicate protection spans replicas.
func newAttemptLock(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (port.AttemptLock, func()) {
	if cfg.URL == "" {
		logger.Warn("REDIS_URL not set, cross-replica duplicate payment protection is disabled")
		return lock.NewLocalLock(), func() {}
	}

	client, err := lock.NewClient(ctx, cfg.URL)
	if err != nil {
		logger.Error("failed to connect to redis, falling back to in-process attempt lock", "error", err)
		return lock.NewLocalLock(), func() {}
	}
	logger.Info("redis attempt lock enabled", "ttl", cfg.LockTTL.String())
	return lock.NewRedisLock(client, cfg.LockTTL), func() { _ = client.Close() }
}

func runReconciler(ctx context.Context, uc *usecase.ReconcilePending, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		logger.Info("reconciler disabled")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report, err := uc.Execute(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("reconciliation sweep failed", "error", err)
				continue
			}
			if report.Scanned > 0 {
				logger.Info("reconciliation sweep",
					"scanned", report.Scanned,
					"settled", report.Settled,
					"flagged", report.Flagged,
					"skipped", report.Skipped,
					"errors", report.Errors,
				)
			}
		}
	}
}

func startKafka(
	ctx context.Context,
	cfg config.Config,
	outbox *infraPG.OutboxRepo,
	cancelAttempts *usecase.CancelOrderAttempts,
	errCh chan<- error,
	logger *slog.Logger,
) (func(), error) {
	producer, err := kafkapkg.NewProducer(cfg.Kafka.Client())
	if err != nil {
		return nil, err
	}

	relay := messaging.NewOutboxRelay(
		outbox, messaging.NewPublisher(producer), cfg.Kafka.TransactionsTopic,
		cfg.Payment.OutboxPollInterval, cfg.Payment.OutboxBatchSize, logger,
	)
	go func() {
		if err := relay.Run(ctx); err != nil {
			errCh <- err
		}
	}()

	orderEvents := messaging.NewOrderEventHandler(cancelAttempts, logger)
	consumer, err := kafkapkg.NewConsumer(cfg.Kafka.Client(), cfg.Kafka.OrdersTopic, orderEvents.Handle, logger)
	if err != nil {
		_ = producer.Close()
		return nil, err
	}
	go func() {
		if err := consumer.Start(ctx); err != nil {
			errCh <- err
		}
	}()

	return func() {
		_ = consumer.Close()
		_ = producer.Close()
	}, nil
}
