package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	grpcapi "github.com/hunters2410/zimaio-sub004/internal/presentation/grpc"
	"github.com/hunters2410/zimaio-sub004/pkg/tlsutil"
)

type grpcFlags struct {
	addr     string
	token    string
	caFile   string
	certFile string
	keyFile  string
	timeout  time.Duration
}

func transactionCmd() *cobra.Command {
	var f grpcFlags

	cmd := &cobra.Command{
		Use:   "transaction",
		Short: "Query payment transactions over the internal gRPC API",
	}

	cmd.PersistentFlags().StringVar(&f.addr, "addr", "localhost:9090", "TransactionService address")
	cmd.PersistentFlags().StringVar(&f.token, "token", os.Getenv("PAYMENT_SERVICE_TOKEN"), "service_role bearer token")
	cmd.PersistentFlags().StringVar(&f.caFile, "ca", "", "CA certificate; enables TLS")
	cmd.PersistentFlags().StringVar(&f.certFile, "cert", "", "client certificate for mutual TLS")
	cmd.PersistentFlags().StringVar(&f.keyFile, "key", "", "client key for mutual TLS")
	cmd.PersistentFlags().DurationVar(&f.timeout, "timeout", 10*time.Second, "request timeout")

	cmd.AddCommand(&cobra.Command{
		Use:   "get <transaction-id>",
		Short: "Show one transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTransactionClient(cmd, f, func(ctx context.Context, c grpcapi.TransactionServiceClient) (any, error) {
				resp, err := c.GetTransaction(ctx, &grpcapi.GetTransactionRequest{TransactionID: args[0]})
				if err != nil {
					return nil, err
				}
				return resp.Transaction, nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list <order-id>",
		Short: "List every attempt recorded for an order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTransactionClient(cmd, f, func(ctx context.Context, c grpcapi.TransactionServiceClient) (any, error) {
				resp, err := c.ListOrderTransactions(ctx, &grpcapi.ListOrderTransactionsRequest{OrderID: args[0]})
				if err != nil {
					return nil, err
				}
				return resp.Transactions, nil
			})
		},
	})

	return cmd
}

func withTransactionClient(cmd *cobra.Command, f grpcFlags, call func(context.Context, grpcapi.TransactionServiceClient) (any, error)) error {
	if f.token == "" {
		return errors.New("no token: pass --token or set PAYMENT_SERVICE_TOKEN (mint one with 'paymentctl token --role service_role')")
	}

	creds := insecure.NewCredentials()
	if f.caFile != "" {
		tlsCreds, err := tlsutil.ClientTLSConfig(f.caFile, f.certFile, f.keyFile, false)
		if err != nil {
			return err
		}
		creds = tlsCreds
	}

	conn, err := grpclib.NewClient(f.addr, grpclib.WithTransportCredentials(creds))
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", f.addr, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), f.timeout)
	defer cancel()
	ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+f.token)

	out, err := call(ctx, grpcapi.NewTransactionServiceClient(conn))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
