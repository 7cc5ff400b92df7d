package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hunters2410/zimaio-sub004/internal/application/usecase"
	"github.com/hunters2410/zimaio-sub004/internal/infrastructure/adapters"
	"github.com/hunters2410/zimaio-sub004/internal/infrastructure/config"
	infraPG "github.com/hunters2410/zimaio-sub004/internal/infrastructure/persistence/postgres"
	"github.com/hunters2410/zimaio-sub004/pkg/observability"
	pgpkg "github.com/hunters2410/zimaio-sub004/pkg/postgres"
	"github.com/hunters2410/zimaio-sub004/pkg/validate"
)

func reconcileCmd() *cobra.Command {
	var (
		maxAge    time.Duration
		batchSize int
	)

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Run one reconciliation sweep over stale pending transactions",
		Long: `Polls hosted-checkout processors for transactions that have been pending
longer than --max-age and flags the rest as indeterminate. Cash and manual
transactions are left untouched. Prints the sweep report as JSON.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := config.Load()
			logger := observability.InitLogger(observability.LogConfig{
				Level:   cfg.LogLevel,
				Format:  cfg.LogFormat,
				Service: "paymentctl",
				Output:  cmd.ErrOrStderr(),
			})

			pool, err := pgpkg.NewPool(ctx, cfg.DB.Postgres())
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer pool.Close()

			if !cmd.Flags().Changed("max-age") {
				maxAge = cfg.Payment.ReconcileMaxAge
			}
			if !cmd.Flags().Changed("batch") {
				batchSize = cfg.Payment.ReconcileBatchSize
			}

			breakers := adapters.NewBreakers(adapters.BreakerSettings{}, logger)
			client := adapters.NewProcessorClient(cfg.Payment.ProcessorTimeout, breakers, nil, logger)
			registry := adapters.NewDefaultRegistry(client, validate.New(), infraPG.NewInstructionRepo(pool), logger)

			uc := usecase.NewReconcilePending(
				infraPG.NewTransactionRepo(pool), infraPG.NewGatewayRepo(pool), registry,
				maxAge, batchSize, logger,
			)
			report, err := uc.Execute(ctx)
			if err != nil {
				return fmt.Errorf("reconcile: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}

	cmd.Flags().DurationVar(&maxAge, "max-age", 30*time.Minute, "minimum age of a pending transaction to reconcile")
	cmd.Flags().IntVar(&batchSize, "batch", 100, "maximum transactions per sweep")

	return cmd
}
