// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package sqlexec

import (
	"context"
	"fmt"

	gwerrors "uidb/gateway/internal/errors"
	"uidb/gateway/internal/statement"
)

// FieldDescriptor is one row of DESCRIBE output.
type FieldDescriptor struct {
	Field   string  `json:"Field"`
	Type    string  `json:"Type"`
	Null    string  `json:"Null"`
	Key     string  `json:"Key"`
	Default *string `json:"Default"`
	Extra   string  `json:"Extra"`
}

// Inspector lists tables and describes their columns.
type Inspector struct {
	exec *Executor
}

// NewInspector creates an Inspector running statements through exec.
func NewInspector(exec *Executor) *Inspector {
	return &Inspector{exec: exec}
}

// Tables returns the table names of the connected database in server order.
func (in *Inspector) Tables(ctx context.Context, r Runner) ([]string, error) {
	res, err := in.exec.Query(ctx, r, statement.ListTables())
	if err != nil {
		return nil, err
	}
	tables := make([]string, 0, len(res.Rows))
	for _, row := range res.Rows {
		if len(row.Values) == 0 {
			continue
		}
		tables = append(tables, text(row.Values[0]))
	}
	return tables, nil
}

// Describe returns the column layout of table together with the statement used.
func (in *Inspector) Describe(ctx context.Context, r Runner, table string) ([]FieldDescriptor, statement.Statement, error) {
	st, err := statement.Describe(table)
	if err != nil {
		return nil, st, err
	}
	res, err := in.exec.Query(ctx, r, st)
	if err != nil {
		return nil, st, err
	}
	fields, err := DescriptorsFromResult(res)
	return fields, st, err
}

// DescriptorsFromResult shapes DESCRIBE rows.
func DescriptorsFromResult(res *Result) ([]FieldDescriptor, error) {
	out := make([]FieldDescriptor, 0, len(res.Rows))
	for _, row := range res.Rows {
		name, ok := row.Get("Field")
		if !ok {
			return nil, gwerrors.New(gwerrors.ExecutionError, "unexpected DESCRIBE output: no Field column")
		}
		fd := FieldDescriptor{Field: text(name)}
		if v, ok := row.Get("Type"); ok {
			fd.Type = text(v)
		}
		if v, ok := row.Get("Null"); ok {
			fd.Null = text(v)
		}
		if v, ok := row.Get("Key"); ok {
			fd.Key = text(v)
		}
		if v, ok := row.Get("Default"); ok && v != nil {
			d := text(v)
			fd.Default = &d
		}
		if v, ok := row.Get("Extra"); ok {
			fd.Extra = text(v)
		}
		out = append(out, fd)
	}
	return out, nil
}

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}
