// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package sqlexec

import (
	"bytes"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
)

// Row is one result row. Column order is the order the driver reported.
type Row struct {
	Columns []string
	Values  []any
}

// Get returns the value of the named column.
func (r Row) Get(name string) (any, bool) {
	for i, c := range r.Columns {
		if c == name {
			return r.Values[i], true
		}
	}
	return nil, false
}

// MarshalJSON renders the row as a JSON object keeping column order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r.Columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(r.Values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ColumnMeta describes one result column.
type ColumnMeta struct {
	Name         string `json:"name"`
	DatabaseType string `json:"type"`
	Nullable     bool   `json:"nullable"`
}

// Result represents a normalized SQL result for JSON marshaling.
type Result struct {
	Columns      []ColumnMeta `json:"columns"`
	Rows         []Row        `json:"rows"`
	RowsAffected int64        `json:"rows_affected"`
	LastInsertID int64        `json:"last_insert_id,omitempty"`
	// Sets holds every result set of a multi-statement shell run.
	Sets []Result `json:"result_sets,omitempty"`
}

// Scalar returns column of the first row.
func (r *Result) Scalar(column string) (any, bool) {
	if len(r.Rows) == 0 {
		return nil, false
	}
	return r.Rows[0].Get(column)
}

// collect reads every row of the current result set.
func collect(rows *sql.Rows) (Result, error) {
	res := Result{Columns: []ColumnMeta{}, Rows: []Row{}}
	types, err := rows.ColumnTypes()
	if err != nil {
		return res, err
	}
	names := make([]string, len(types))
	for i, ct := range types {
		names[i] = ct.Name()
		nullable, _ := ct.Nullable()
		res.Columns = append(res.Columns, ColumnMeta{
			Name:         ct.Name(),
			DatabaseType: ct.DatabaseTypeName(),
			Nullable:     nullable,
		})
	}

	for rows.Next() {
		vals := make([]any, len(types))
		ptrs := make([]any, len(types))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return res, err
		}
		for i := range vals {
			vals[i] = normalize(vals[i], res.Columns[i].DatabaseType)
		}
		res.Rows = append(res.Rows, Row{Columns: names, Values: vals})
	}
	return res, rows.Err()
}

// normalize converts raw driver values into JSON-friendly Go values. The text
// protocol hands every column over as []byte, so the declared column type decides
// how the bytes are read.
func normalize(v any, dbType string) any {
	b, ok := v.([]byte)
	if !ok {
		return v
	}
	typ := strings.ToUpper(dbType)
	unsigned := strings.HasPrefix(typ, "UNSIGNED ")
	typ = strings.TrimPrefix(typ, "UNSIGNED ")

	switch typ {
	case "TINYINT", "SMALLINT", "MEDIUMINT", "INT", "INTEGER", "BIGINT", "YEAR":
		if unsigned {
			if n, err := strconv.ParseUint(string(b), 10, 64); err == nil {
				return n
			}
		} else if n, err := strconv.ParseInt(string(b), 10, 64); err == nil {
			return n
		}
	case "FLOAT", "DOUBLE", "REAL":
		if f, err := strconv.ParseFloat(string(b), 64); err == nil {
			return f
		}
	case "DECIMAL", "NUMERIC":
		// kept as text so no precision is lost
		return string(b)
	case "JSON":
		if json.Valid(b) {
			return json.RawMessage(b)
		}
	case "BIT", "BINARY", "VARBINARY", "TINYBLOB", "BLOB", "MEDIUMBLOB", "LONGBLOB", "GEOMETRY":
		return "0x" + hex.EncodeToString(b)
	}
	return string(b)
}
