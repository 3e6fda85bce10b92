// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"uidb/gateway/internal/bridge"
	"uidb/gateway/internal/gateway"
	"uidb/gateway/internal/keychain"
	"uidb/gateway/internal/logging"
	"uidb/gateway/internal/profile"
	"uidb/gateway/internal/sqlexec"
)

// loadDotEnv reads .env then .env.local from the working directory so the vault
// passphrase and store DSN can be kept out of shell history. Existing variables
// win over .env; .env.local overrides both.
func loadDotEnv() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}
	if _, err := os.Stat(".env.local"); err == nil {
		_ = godotenv.Overload(".env.local")
	}
}

// localGateway is the in-process gateway with everything it owns.
type localGateway struct {
	*gateway.Gateway
	store profile.Store
	conns *sqlexec.Manager
}

func (l *localGateway) Close() error {
	err := l.conns.Close()
	if cerr := l.store.Close(); err == nil {
		err = cerr
	}
	return err
}

func openStore(ctx context.Context) (profile.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return profile.OpenPostgresStore(ctx, cfg.Store.DSN)
	default:
		return profile.OpenSQLiteStore(cfg.Store.DSN)
	}
}

// openLocal wires store, vault, resolver and connection manager into a gateway.
func openLocal(ctx context.Context) (*localGateway, error) {
	store, err := openStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("open profile store: %w", err)
	}
	vault, err := keychain.NewManager(keychain.Config{
		Backend:    cfg.Vault.Backend,
		Dir:        cfg.Vault.Dir,
		Passphrase: cfg.Vault.Passphrase,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("open password vault: %w", err)
	}

	resolver := profile.NewResolver(store, vault, logging.Component(log, "profile"))
	conns := sqlexec.NewManager(sqlexec.Options{
		ConnectTimeout:   cfg.Gateway.ConnectTimeout,
		StatementTimeout: cfg.Gateway.StatementTimeout,
		Pool: sqlexec.PoolOptions{
			Enabled:     cfg.Gateway.Pool.Enabled,
			MaxOpen:     cfg.Gateway.Pool.MaxOpen,
			MaxIdle:     cfg.Gateway.Pool.MaxIdle,
			IdleTimeout: cfg.Gateway.Pool.IdleTimeout,
		},
		Logger: log,
	})
	gw := gateway.New(resolver, conns, gateway.Options{
		PageSize: cfg.Gateway.PageSize,
		Logger:   logging.Component(log, "gateway"),
	})
	return &localGateway{Gateway: gw, store: store, conns: conns}, nil
}

// withBackend runs fn against the remote bridge when --remote is set and against
// an in-process gateway otherwise.
func withBackend(cmd *cobra.Command, fn func(ctx context.Context, be bridge.Backend) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if remoteAddr != "" {
		client, err := bridge.Remote(ctx, remoteAddr, insecure)
		if err != nil {
			return err
		}
		defer client.Close()
		return fn(ctx, client)
	}

	local, err := openLocal(ctx)
	if err != nil {
		return err
	}
	defer local.Close()
	return fn(ctx, local)
}

// dispatch sends one request on behalf of the acting principal and renders the result.
func dispatch(cmd *cobra.Command, req gateway.Request) error {
	return withBackend(cmd, func(ctx context.Context, be bridge.Backend) error {
		res, err := be.Dispatch(ctx, principal(), req)
		if err != nil {
			return err
		}
		return renderResult(cmd.OutOrStdout(), res)
	})
}
