// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface for uidb, a gateway that runs
// SQL operations against the MySQL database each principal has registered. The
// commands run the gateway in-process, or talk to a running 'uidb serve' through
// the gRPC bridge when --remote is set.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/user"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"uidb/gateway/internal/config"
	gwerrors "uidb/gateway/internal/errors"
	"uidb/gateway/internal/logging"
)

var (
	cfgFile     string
	showVersion bool
	cfg         *config.Config
	log         = zerolog.Nop()
	logCloser   io.Closer
)

// Flags read by the commands themselves rather than through config.
var (
	remoteAddr string
	insecure   bool
	outputMode string
	showSQL    bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "uidb",
	Short: "Run SQL operations against your registered MySQL database",
	Long: `uidb is a multi-tenant SQL gateway. Each principal registers one MySQL
connection with 'uidb connect'; every other command runs against that database.

Connection passwords are kept in an encrypted vault and never printed.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loadDotEnv()
		loaded, err := config.Load(cfgFile, cmd.Flags())
		if err != nil {
			return err
		}
		cfg = loaded

		l, closer, err := logging.New(cfg.Log, os.Stderr)
		if err != nil {
			return fmt.Errorf("open log: %w", err)
		}
		log, logCloser = l, closer
		log.Debug().Str("config_file", cfg.File).Str("store", cfg.Store.Driver).Msg("configuration loaded")
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			_ = logCloser.Close()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Printf("uidb %s\n", Version)
			return nil
		}
		// If no flag is set, show help
		return cmd.Help()
	},
}

// Execute runs the CLI application and exits with a code derived from the
// error kind.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var e *gwerrors.E
		if errors.As(err, &e) {
			fmt.Fprintln(os.Stderr, logging.FormatError(err))
		} else {
			fmt.Fprintln(os.Stderr, logging.Mask(err.Error()))
		}
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch gwerrors.KindOf(err) {
	case gwerrors.ValidationError:
		return 2
	case gwerrors.NotFound, gwerrors.NoMatch:
		return 3
	case gwerrors.ConnectionError:
		return 4
	case gwerrors.DuplicateTable, gwerrors.ExecutionError:
		return 5
	default:
		return 1
	}
}

// principal returns the acting principal: --principal, then config, then the OS
// user name.
func principal() string {
	if cfg != nil && cfg.Principal != "" {
		return cfg.Principal
	}
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return os.Getenv("USER")
}

func init() {
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "Show version information")

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default $XDG_CONFIG_HOME/uidb/config.yaml)")
	pf.StringP("principal", "p", "", "principal to act as (default: OS user)")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("log-format", "console", "log format: console or json")
	pf.String("log-file", "", "also append JSON logs to this file")
	pf.String("store-driver", "sqlite", "profile store: sqlite or postgres")
	pf.String("store-dsn", "", "profile store location (sqlite path or postgres URL)")
	pf.String("vault-backend", "file", "password vault: file or system")
	pf.String("vault-dir", "", "directory of the file vault")
	pf.Duration("connect-timeout", 10*time.Second, "deadline for opening a database connection")
	pf.Duration("statement-timeout", 30*time.Second, "deadline for each statement")
	pf.Bool("pool", false, "keep a connection pool per profile")
	pf.StringVar(&remoteAddr, "remote", "", "send operations to a 'uidb serve' instance at this address")
	pf.BoolVar(&insecure, "insecure", false, "use plaintext gRPC with --remote")
	pf.StringVarP(&outputMode, "output", "o", "table", "output format: table or json")
	pf.BoolVar(&showSQL, "show-sql", false, "print the SQL that was executed")
}
