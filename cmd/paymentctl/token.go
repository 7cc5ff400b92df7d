package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/hunters2410/zimaio-sub004/internal/infrastructure/config"
	"github.com/hunters2410/zimaio-sub004/pkg/auth"
)

func tokenCmd() *cobra.Command {
	var (
		userID         string
		email          string
		role           string
		ttl            time.Duration
		privateKeyFile string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for local development",
		Long: `Signs a token with the configured JWT secret (SUPABASE_JWT_SECRET or
JWT_SECRET) or with an RSA private key. Use --role service_role for the gRPC
TransactionService.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()

			jwtCfg := auth.JWTConfig{
				Secret:     cfg.Auth.JWTSecret,
				Issuer:     cfg.Auth.JWTIssuer,
				Audience:   cfg.Auth.JWTAudience,
				Expiration: ttl,
			}
			if privateKeyFile != "" {
				keyData, err := auth.LoadKeyFromFile(privateKeyFile)
				if err != nil {
					return err
				}
				jwtCfg.PrivateKeyPEM = string(keyData)
			} else if jwtCfg.Secret == "" {
				return errors.New("no signing key: set SUPABASE_JWT_SECRET or pass --private-key")
			}

			svc, err := auth.NewJWTService(jwtCfg)
			if err != nil {
				return err
			}

			subject := uuid.New()
			if userID != "" {
				subject, err = uuid.Parse(userID)
				if err != nil {
					return fmt.Errorf("invalid --user: %w", err)
				}
			}

			token, err := svc.GenerateToken(subject, email, role)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "subject user id (random when empty)")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().StringVar(&role, "role", auth.RoleAuthenticated, "role claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	cmd.Flags().StringVar(&privateKeyFile, "private-key", "", "PEM RSA private key file")

	return cmd
}
