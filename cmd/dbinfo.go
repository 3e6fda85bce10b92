// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"uidb/gateway/internal/bridge"
)

// dbinfoCmd shows the registered connection with the password masked.
var dbinfoCmd = &cobra.Command{
	Use:   "dbinfo",
	Short: "Show your registered database connection",
	Long: `The dbinfo command displays the database connection registered for the current
principal. The password is never shown.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackend(cmd, func(ctx context.Context, be bridge.Backend) error {
			p, err := be.Profile(ctx, principal())
			if err != nil {
				return err
			}
			p = p.Masked()

			if outputMode == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(p)
			}

			body := fmt.Sprintf("Principal: %s\nHost:      %s\nPort:      %d\nUser:      %s\nDatabase:  %s",
				p.Principal, p.Host, p.Port, p.User, p.Database)
			if !p.CreatedAt.IsZero() {
				body += "\nSince:     " + p.CreatedAt.Local().Format(time.DateTime)
			}
			pterm.DefaultBox.
				WithTitle(pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint("Database Connection")).
				WithPadding(1).
				Println(body)
			pterm.Println()
			pterm.Println("To change this connection, run: uidb disconnect && uidb connect")
			pterm.Println()
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(dbinfoCmd)
}
