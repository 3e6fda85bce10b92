// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"uidb/gateway/internal/bridge"
)

// disconnectCmd removes the registered connection and its stored password.
var disconnectCmd = &cobra.Command{
	Use:   "disconnect",
	Short: "Remove your registered database connection",
	Long: `The disconnect command removes the connection profile of the current principal
together with its password from the vault, and closes any pooled connections to it.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackend(cmd, func(ctx context.Context, be bridge.Backend) error {
			who := principal()
			if err := be.Disconnect(ctx, who); err != nil {
				return err
			}
			fmt.Printf("✅ Database connection for %s has been removed\n", who)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(disconnectCmd)
}
