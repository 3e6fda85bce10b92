// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package gateway

import (
	"uidb/gateway/internal/statement"
)

// Kind names an operation. The values double as wire names on the gRPC bridge.
type Kind string

const (
	KindCreateTable          Kind = "create_table"
	KindListTables           Kind = "list_tables"
	KindDescribeAndPage      Kind = "describe_and_page"
	KindInsert               Kind = "insert"
	KindBulkInsert           Kind = "bulk_insert"
	KindUpdate               Kind = "update"
	KindDelete               Kind = "delete"
	KindAggregate            Kind = "aggregate"
	KindBuildFulltextIndex   Kind = "build_fulltext_index"
	KindFulltextSearch       Kind = "fulltext_search"
	KindOrderedSelect        Kind = "ordered_select"
	KindAdHocQuery           Kind = "adhoc_query"
	KindShell                Kind = "shell"
	KindEstimateAffectedRows Kind = "estimate_affected_rows"
	KindChartSeries          Kind = "chart_series"
	KindCustomQuery          Kind = "custom_query"
)

// Kinds lists every dispatchable operation.
var Kinds = []Kind{
	KindCreateTable, KindListTables, KindDescribeAndPage, KindInsert, KindBulkInsert,
	KindUpdate, KindDelete, KindAggregate, KindBuildFulltextIndex, KindFulltextSearch,
	KindOrderedSelect, KindAdHocQuery, KindShell, KindEstimateAffectedRows, KindChartSeries,
	KindCustomQuery,
}

// Request is one operation request. The concrete type determines the operation.
type Request interface {
	Kind() Kind
}

// CreateTable creates a table with columns in the given order.
type CreateTable struct {
	Table   string
	Columns []statement.ColumnDef
}

// ListTables lists the tables of the principal's database.
type ListTables struct{}

// DescribeAndPage returns a table's layout, one page of rows and the total row
// count. Zero Page and PageSize select the defaults.
type DescribeAndPage struct {
	Table    string
	Page     int
	PageSize int
}

// Insert writes one row.
type Insert struct {
	Table string
	Row   statement.Fields
}

// BulkInsert writes every row or none of them.
type BulkInsert struct {
	Table string
	Rows  []statement.Fields
}

// Update sets columns on rows matching every Where pair.
type Update struct {
	Table string
	Set   statement.Fields
	Where statement.Fields
}

// Delete removes rows matching every Where pair.
type Delete struct {
	Table string
	Where statement.Fields
}

// Aggregate computes one aggregate function over a column.
type Aggregate struct {
	Table  string
	Op     statement.AggregateOp
	Column string
	Where  statement.Fields
}

// BuildFulltextIndex adds a FULLTEXT index.
type BuildFulltextIndex struct {
	Table   string
	Columns []string
}

// FulltextSearch runs MATCH … AGAINST.
type FulltextSearch struct {
	Table   string
	Columns []string
	Term    string
	Mode    statement.SearchMode
}

// OrderedSelect reads rows sorted by Order. Offset is ignored without Limit.
type OrderedSelect struct {
	Table  string
	Order  []statement.OrderTerm
	Limit  *int
	Offset *int
}

// AdHocQuery runs caller-supplied SQL with optional bound parameters.
type AdHocQuery struct {
	SQL    string
	Params []statement.Value
}

// Shell runs caller-supplied SQL over the text protocol. Several statements
// separated by semicolons are allowed.
type Shell struct {
	SQL string
}

// EstimateAffectedRows counts the rows a DELETE statement would remove.
type EstimateAffectedRows struct {
	SQL string
}

// ChartSeries counts rows per day of the created_at column.
type ChartSeries struct {
	Table string
}

// CustomQuery runs caller-supplied SQL and reports affected rows only.
type CustomQuery struct {
	SQL string
}

func (CreateTable) Kind() Kind          { return KindCreateTable }
func (ListTables) Kind() Kind           { return KindListTables }
func (DescribeAndPage) Kind() Kind      { return KindDescribeAndPage }
func (Insert) Kind() Kind               { return KindInsert }
func (BulkInsert) Kind() Kind           { return KindBulkInsert }
func (Update) Kind() Kind               { return KindUpdate }
func (Delete) Kind() Kind               { return KindDelete }
func (Aggregate) Kind() Kind            { return KindAggregate }
func (BuildFulltextIndex) Kind() Kind   { return KindBuildFulltextIndex }
func (FulltextSearch) Kind() Kind       { return KindFulltextSearch }
func (OrderedSelect) Kind() Kind        { return KindOrderedSelect }
func (AdHocQuery) Kind() Kind           { return KindAdHocQuery }
func (Shell) Kind() Kind                { return KindShell }
func (EstimateAffectedRows) Kind() Kind { return KindEstimateAffectedRows }
func (ChartSeries) Kind() Kind          { return KindChartSeries }
func (CustomQuery) Kind() Kind          { return KindCustomQuery }
