// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package gateway

import (
	"uidb/gateway/internal/sqlexec"
)

// Outcome is the logical result of an operation that did not fail.
type Outcome string

const (
	OutcomeOK Outcome = "ok"
	// OutcomeNoMatch marks an update or delete whose condition matched zero rows.
	OutcomeNoMatch Outcome = "no_match"
)

// Result is the success envelope. Only the fields relevant to the operation are set.
type Result struct {
	Kind    Kind    `json:"kind"`
	Message string  `json:"message"`
	Outcome Outcome `json:"outcome"`
	// SQL is the statement text sent to the server, placeholders included. Several
	// statements are separated by ";\n".
	SQL    string `json:"sql,omitempty"`
	Params []any  `json:"params,omitempty"`

	Columns      []sqlexec.ColumnMeta `json:"columns,omitempty"`
	Rows         []sqlexec.Row        `json:"rows,omitempty"`
	AffectedRows int64                `json:"affected_rows"`
	LastInsertID int64                `json:"last_insert_id,omitempty"`
	Scalar       any                  `json:"scalar,omitempty"`

	Schema     []sqlexec.FieldDescriptor `json:"schema,omitempty"`
	TotalItems int64                     `json:"total_items,omitempty"`
	Page       int                       `json:"page,omitempty"`
	PageSize   int                       `json:"page_size,omitempty"`
	TotalPages int64                     `json:"total_pages,omitempty"`

	Tables []string `json:"tables,omitempty"`
	Labels []string `json:"labels,omitempty"`
	Series []int64  `json:"series,omitempty"`

	Summary string          `json:"summary,omitempty"`
	Raw     *sqlexec.Result `json:"raw,omitempty"`
}

// NoMatch reports whether the operation matched no rows.
func (r *Result) NoMatch() bool { return r != nil && r.Outcome == OutcomeNoMatch }

func (r *Result) withRows(res *sqlexec.Result) *Result {
	r.Columns = res.Columns
	r.Rows = res.Rows
	return r
}
