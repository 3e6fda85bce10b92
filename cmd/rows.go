// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"github.com/spf13/cobra"

	"uidb/gateway/internal/gateway"
)

var rowOpts struct {
	data  string
	set   string
	where string
}

var insertCmd = &cobra.Command{
	Use:   "insert TABLE",
	Short: "Insert one row",
	Long: `Insert one row given as a JSON object. Columns are written in the order they
appear in the object.

Example:
  uidb insert people --data '{"name": "Ada", "age": 36}'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readPayload(rowOpts.data)
		if err != nil {
			return err
		}
		row, err := parseFields("data", raw)
		if err != nil {
			return err
		}
		return dispatch(cmd, gateway.Insert{Table: args[0], Row: row})
	},
}

var bulkInsertCmd = &cobra.Command{
	Use:   "bulk-insert TABLE",
	Short: "Insert several rows in one transaction",
	Long: `Insert a JSON array of objects. Either every row is written or, when one fails,
none of them are.

Example:
  uidb bulk-insert people --data @people.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readPayload(rowOpts.data)
		if err != nil {
			return err
		}
		rows, err := parseRows("data", raw)
		if err != nil {
			return err
		}
		return dispatch(cmd, gateway.BulkInsert{Table: args[0], Rows: rows})
	},
}

var updateCmd = &cobra.Command{
	Use:   "update TABLE",
	Short: "Update rows matching every condition",
	Long: `Set columns on the rows matching every --where pair. A condition value of null
matches NULL columns.

Example:
  uidb update people --set '{"age": 37}' --where '{"name": "Ada"}'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		set, err := parseFields("set", rowOpts.set)
		if err != nil {
			return err
		}
		where, err := parseFields("where", rowOpts.where)
		if err != nil {
			return err
		}
		return dispatch(cmd, gateway.Update{Table: args[0], Set: set, Where: where})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete TABLE",
	Short: "Delete rows matching every condition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		where, err := parseFields("where", rowOpts.where)
		if err != nil {
			return err
		}
		return dispatch(cmd, gateway.Delete{Table: args[0], Where: where})
	},
}

func init() {
	rootCmd.AddCommand(insertCmd, bulkInsertCmd, updateCmd, deleteCmd)

	for _, c := range []*cobra.Command{insertCmd, bulkInsertCmd} {
		c.Flags().StringVar(&rowOpts.data, "data", "", "row payload as JSON, or @file (@- for stdin)")
		_ = c.MarkFlagRequired("data")
	}
	updateCmd.Flags().StringVar(&rowOpts.set, "set", "", "columns to set as a JSON object")
	_ = updateCmd.MarkFlagRequired("set")
	for _, c := range []*cobra.Command{updateCmd, deleteCmd} {
		c.Flags().StringVar(&rowOpts.where, "where", "", "conditions as a JSON object")
		_ = c.MarkFlagRequired("where")
	}
}
