// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"uidb/gateway/internal/bridge"
	gwerrors "uidb/gateway/internal/errors"
)

var (
	// Version holds the CLI version information.
	// This value is typically set at build time using -ldflags.
	Version = "0.0.0-dev"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "uidb %s\n", Version)
		if remoteAddr == "" {
			return nil
		}
		// reachability only: the bridge has no version method
		return withBackend(cmd, func(ctx context.Context, be bridge.Backend) error {
			_, err := be.Profile(ctx, principal())
			fmt.Fprintf(cmd.OutOrStdout(), "remote %s: %s\n", remoteAddr, remoteState(err))
			return nil
		})
	},
}

func remoteState(err error) string {
	if err == nil {
		return "reachable"
	}
	if gwerrors.Is(err, gwerrors.NotFound) {
		return "reachable (no database registered)"
	}
	return "unreachable"
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
