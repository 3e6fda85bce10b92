// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	"uidb/gateway/internal/bridge"
	"uidb/gateway/internal/logging"
)

var serveOpts struct {
	certFile string
	keyFile  string
}

// serveCmd exposes the gateway over gRPC for an upstream dispatcher.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the gateway over gRPC",
	Long: `Run the gateway as the uidb.Gateway gRPC service. The upstream dispatcher
authenticates callers and passes the principal in the x-uidb-principal metadata
entry. Without --tls-cert the listener is plaintext and should stay on loopback.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var opts []grpc.ServerOption
		if serveOpts.certFile != "" {
			creds, err := credentials.NewServerTLSFromFile(serveOpts.certFile, serveOpts.keyFile)
			if err != nil {
				return fmt.Errorf("load TLS key pair: %w", err)
			}
			opts = append(opts, grpc.Creds(creds))
		}

		local, err := openLocal(ctx)
		if err != nil {
			return err
		}
		defer local.Close()

		lis, err := net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", cfg.GRPC.Addr, err)
		}

		srvLog := logging.Component(log, "bridge")
		srvLog.Info().Bool("tls", serveOpts.certFile != "").Bool("pool", cfg.Gateway.Pool.Enabled).Str("store", cfg.Store.Driver).Msg("starting gateway")
		srv := bridge.NewServer(local, srvLog, opts...)

		eg, egctx := errgroup.WithContext(ctx)
		eg.Go(func() error {
			return srv.Serve(egctx, lis)
		})
		eg.Go(func() error {
			<-egctx.Done()
			srvLog.Info().Msg("shutting down")
			return nil
		})
		return eg.Wait()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	f := serveCmd.Flags()
	f.String("grpc-addr", "127.0.0.1:7420", "listen address")
	f.StringVar(&serveOpts.certFile, "tls-cert", "", "TLS certificate file")
	f.StringVar(&serveOpts.keyFile, "tls-key", "", "TLS private key file")
	serveCmd.MarkFlagsRequiredTogether("tls-cert", "tls-key")
}

// compile-time check that the in-process gateway can back the server
var _ bridge.Backend = (*localGateway)(nil)
