package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hunters2410/zimaio-sub004/pkg/tlsutil"
)

func certsCmd() *cobra.Command {
	var (
		hosts  []string
		outDir string
	)

	cmd := &cobra.Command{
		Use:   "certs",
		Short: "Write a development CA with server and client certificates",
		Long: `Writes ca.pem, server.pem and client.pem (each with a -key.pem) for
running the internal gRPC API with mutual TLS. Point GRPC_TLS_CERT_FILE,
GRPC_TLS_KEY_FILE and GRPC_TLS_CLIENT_CA_FILE at the server files and CA.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := tlsutil.GenerateSelfSignedCert(hosts, outDir); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "certificates written to %s\n", outDir)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&hosts, "host", []string{"localhost", "127.0.0.1"}, "server certificate DNS names or IPs")
	cmd.Flags().StringVar(&outDir, "out", "certs", "output directory")

	return cmd
}
