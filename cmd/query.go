// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"uidb/gateway/internal/gateway"
	"uidb/gateway/internal/statement"
)

var aggregateOpts struct {
	op     string
	column string
	where  string
}

var aggregateCmd = &cobra.Command{
	Use:   "aggregate TABLE",
	Short: "Compute SUM, AVG, MIN, MAX or COUNT over a column",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		op, err := statement.ParseAggregateOp(aggregateOpts.op)
		if err != nil {
			return err
		}
		var where statement.Fields
		if strings.TrimSpace(aggregateOpts.where) != "" {
			if where, err = parseFields("where", aggregateOpts.where); err != nil {
				return err
			}
		}
		return dispatch(cmd, gateway.Aggregate{Table: args[0], Op: op, Column: aggregateOpts.column, Where: where})
	},
}

var fulltextIndexColumns string

var fulltextIndexCmd = &cobra.Command{
	Use:   "fulltext-index TABLE",
	Short: "Add a FULLTEXT index over columns",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return dispatch(cmd, gateway.BuildFulltextIndex{Table: args[0], Columns: splitList(fulltextIndexColumns)})
	},
}

var searchOpts struct {
	columns string
	term    string
	mode    string
}

var searchCmd = &cobra.Command{
	Use:   "search TABLE",
	Short: "Full-text search over indexed columns",
	Long: `Run MATCH ... AGAINST over columns that carry a FULLTEXT index. --mode selects
natural, boolean or query_expansion; the server default applies when omitted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := statement.ParseSearchMode(searchOpts.mode)
		if err != nil {
			return err
		}
		return dispatch(cmd, gateway.FulltextSearch{
			Table:   args[0],
			Columns: splitList(searchOpts.columns),
			Term:    searchOpts.term,
			Mode:    mode,
		})
	},
}

var orderOpts struct {
	order  []string
	limit  int
	offset int
}

var orderByCmd = &cobra.Command{
	Use:   "order-by TABLE",
	Short: "Read rows sorted by one or more columns",
	Long: `Read rows sorted by --order terms such as "age:desc" or "name". --offset only
applies together with --limit.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := gateway.OrderedSelect{Table: args[0], Order: parseOrder(orderOpts.order)}
		if cmd.Flags().Changed("limit") {
			req.Limit = &orderOpts.limit
		}
		if cmd.Flags().Changed("offset") {
			req.Offset = &orderOpts.offset
		}
		return dispatch(cmd, req)
	},
}

var queryParams string

var queryCmd = &cobra.Command{
	Use:   "query SQL",
	Short: "Run a SQL query with optional bound parameters",
	Long: `Run one SQL statement. Placeholders (?) are bound from --params, a JSON array.

Example:
  uidb query 'SELECT * FROM people WHERE age > ?' --params '[30]'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := parseParams(queryParams)
		if err != nil {
			return err
		}
		return dispatch(cmd, gateway.AdHocQuery{SQL: args[0], Params: params})
	},
}

var execCmd = &cobra.Command{
	Use:   "exec SQL",
	Short: "Run a SQL statement and report affected rows",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return dispatch(cmd, gateway.CustomQuery{SQL: args[0]})
	},
}

var estimateCmd = &cobra.Command{
	Use:   "estimate SQL",
	Short: "Count the rows a DELETE statement would remove",
	Long: `Rewrite a DELETE statement into a COUNT(*) over the same table and condition
and run that instead. Nothing is deleted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return dispatch(cmd, gateway.EstimateAffectedRows{SQL: args[0]})
	},
}

func init() {
	rootCmd.AddCommand(aggregateCmd, fulltextIndexCmd, searchCmd, orderByCmd, queryCmd, execCmd, estimateCmd)

	af := aggregateCmd.Flags()
	af.StringVar(&aggregateOpts.op, "op", "", "SUM, AVG, MIN, MAX or COUNT")
	af.StringVar(&aggregateOpts.column, "column", "", "column to aggregate (* for COUNT)")
	af.StringVar(&aggregateOpts.where, "where", "", "optional conditions as a JSON object")
	_ = aggregateCmd.MarkFlagRequired("op")
	_ = aggregateCmd.MarkFlagRequired("column")

	fulltextIndexCmd.Flags().StringVar(&fulltextIndexColumns, "columns", "", "comma separated columns")
	_ = fulltextIndexCmd.MarkFlagRequired("columns")

	sf := searchCmd.Flags()
	sf.StringVar(&searchOpts.columns, "columns", "", "comma separated indexed columns")
	sf.StringVar(&searchOpts.term, "term", "", "search term")
	sf.StringVar(&searchOpts.mode, "mode", "", "natural, boolean or query_expansion")
	_ = searchCmd.MarkFlagRequired("columns")
	_ = searchCmd.MarkFlagRequired("term")

	of := orderByCmd.Flags()
	of.StringSliceVar(&orderOpts.order, "order", nil, "sort terms, e.g. age:desc,name")
	of.IntVar(&orderOpts.limit, "limit", 0, "maximum number of rows")
	of.IntVar(&orderOpts.offset, "offset", 0, "rows to skip (requires --limit)")
	_ = orderByCmd.MarkFlagRequired("order")

	queryCmd.Flags().StringVar(&queryParams, "params", "", "bound parameters as a JSON array")
}
