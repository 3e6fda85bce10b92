// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"github.com/spf13/cobra"

	"uidb/gateway/internal/gateway"
)

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List the tables of your database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return dispatch(cmd, gateway.ListTables{})
	},
}

var createTableColumns string

var createTableCmd = &cobra.Command{
	Use:   "create-table TABLE",
	Short: "Create a table",
	Long: `Create a table with the given columns, in order. Columns are a JSON object of
name to type, or a JSON array of {"name", "type"} objects.

Example:
  uidb create-table people --columns '{"id": "INT PRIMARY KEY", "name": "VARCHAR(255)"}'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readPayload(createTableColumns)
		if err != nil {
			return err
		}
		cols, err := parseColumns(raw)
		if err != nil {
			return err
		}
		return dispatch(cmd, gateway.CreateTable{Table: args[0], Columns: cols})
	},
}

var describeOpts struct {
	page     int
	pageSize int
}

var describeCmd = &cobra.Command{
	Use:   "describe TABLE",
	Short: "Show a table's columns and one page of its rows",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return dispatch(cmd, gateway.DescribeAndPage{
			Table:    args[0],
			Page:     describeOpts.page,
			PageSize: describeOpts.pageSize,
		})
	},
}

var chartCmd = &cobra.Command{
	Use:   "chart TABLE",
	Short: "Count rows per day of created_at",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return dispatch(cmd, gateway.ChartSeries{Table: args[0]})
	},
}

func init() {
	rootCmd.AddCommand(tablesCmd, createTableCmd, describeCmd, chartCmd)

	createTableCmd.Flags().StringVar(&createTableColumns, "columns", "", "column definitions as JSON, or @file")
	_ = createTableCmd.MarkFlagRequired("columns")

	describeCmd.Flags().IntVar(&describeOpts.page, "page", 1, "page number, starting at 1")
	describeCmd.Flags().IntVar(&describeOpts.pageSize, "page-size", 0, "rows per page (default from config)")
}
