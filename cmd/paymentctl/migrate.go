package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hunters2410/zimaio-sub004/internal/infrastructure/config"
	infraPG "github.com/hunters2410/zimaio-sub004/internal/infrastructure/persistence/postgres"
	pgpkg "github.com/hunters2410/zimaio-sub004/pkg/postgres"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the payment schema migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dsn := config.Load().DB.Postgres().DSN()
			if err := pgpkg.RunMigrationsFS(dsn, infraPG.Migrations, infraPG.MigrationsDir); err != nil {
				return fmt.Errorf("migrate up: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dsn := config.Load().DB.Postgres().DSN()
			if err := pgpkg.RunMigrationsDownFS(dsn, infraPG.Migrations, infraPG.MigrationsDir); err != nil {
				return fmt.Errorf("migrate down: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations rolled back")
			return nil
		},
	})

	return cmd
}
