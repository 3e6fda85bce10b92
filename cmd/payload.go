// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tidwall/gjson"

	gwerrors "uidb/gateway/internal/errors"
	"uidb/gateway/internal/statement"
)

// Payloads are parsed with gjson because it walks object members in document
// order, which is the column order of INSERT and UPDATE statements.

// readPayload returns arg unchanged, or the contents of a file when arg starts
// with '@'. "@-" reads standard input.
func readPayload(arg string) (string, error) {
	if !strings.HasPrefix(arg, "@") {
		return arg, nil
	}
	path := strings.TrimPrefix(arg, "@")
	var (
		b   []byte
		err error
	)
	if path == "-" {
		b, err = io.ReadAll(os.Stdin)
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read payload %s: %w", path, err)
	}
	return string(b), nil
}

func parseJSON(what, raw string) (gjson.Result, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return gjson.Result{}, gwerrors.Newf(gwerrors.ValidationError, "%s is required", what)
	}
	if !gjson.Valid(raw) {
		return gjson.Result{}, gwerrors.Newf(gwerrors.ValidationError, "%s is not valid JSON", what)
	}
	return gjson.Parse(raw), nil
}

// parseFields reads a JSON object into ordered fields.
func parseFields(what, raw string) (statement.Fields, error) {
	doc, err := parseJSON(what, raw)
	if err != nil {
		return nil, err
	}
	return fieldsOf(what, doc)
}

func fieldsOf(what string, doc gjson.Result) (statement.Fields, error) {
	if !doc.IsObject() {
		return nil, gwerrors.Newf(gwerrors.ValidationError, "%s must be a JSON object", what)
	}
	var (
		out  statement.Fields
		bad  error
		seen = map[string]bool{}
	)
	doc.ForEach(func(key, val gjson.Result) bool {
		if seen[key.String()] {
			bad = gwerrors.Newf(gwerrors.ValidationError, "%s repeats key %q", what, key.String())
			return false
		}
		seen[key.String()] = true
		v, err := valueOf(val)
		if err != nil {
			bad = fmt.Errorf("%s key %q: %w", what, key.String(), err)
			return false
		}
		out = append(out, statement.Field{Name: key.String(), Value: v})
		return true
	})
	if bad != nil {
		return nil, bad
	}
	return out, nil
}

func valueOf(val gjson.Result) (statement.Value, error) {
	switch val.Type {
	case gjson.Null:
		return statement.Null(), nil
	case gjson.True:
		return statement.Bool(true), nil
	case gjson.False:
		return statement.Bool(false), nil
	case gjson.Number:
		return statement.Number(val.Raw)
	case gjson.String:
		return statement.String(val.String()), nil
	default:
		return statement.Value{}, gwerrors.New(gwerrors.ValidationError, "nested objects and arrays are not supported")
	}
}

// parseRows reads a JSON array of objects.
func parseRows(what, raw string) ([]statement.Fields, error) {
	doc, err := parseJSON(what, raw)
	if err != nil {
		return nil, err
	}
	if !doc.IsArray() {
		return nil, gwerrors.Newf(gwerrors.ValidationError, "%s must be a JSON array of objects", what)
	}
	items := doc.Array()
	rows := make([]statement.Fields, 0, len(items))
	for i, item := range items {
		row, err := fieldsOf(fmt.Sprintf("row %d", i+1), item)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// parseParams reads a JSON array of scalar values.
func parseParams(raw string) ([]statement.Value, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	doc, err := parseJSON("params", raw)
	if err != nil {
		return nil, err
	}
	if !doc.IsArray() {
		return nil, gwerrors.New(gwerrors.ValidationError, "params must be a JSON array")
	}
	var out []statement.Value
	for i, item := range doc.Array() {
		v, err := valueOf(item)
		if err != nil {
			return nil, fmt.Errorf("param %d: %w", i+1, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// parseColumns accepts either {"id": "INT", "name": "VARCHAR(255)"} or
// [{"name": "id", "type": "INT"}, ...].
func parseColumns(raw string) ([]statement.ColumnDef, error) {
	doc, err := parseJSON("columns", raw)
	if err != nil {
		return nil, err
	}
	var cols []statement.ColumnDef
	switch {
	case doc.IsObject():
		doc.ForEach(func(key, val gjson.Result) bool {
			cols = append(cols, statement.ColumnDef{Name: key.String(), Type: val.String()})
			return true
		})
	case doc.IsArray():
		for i, item := range doc.Array() {
			name, typ := item.Get("name"), item.Get("type")
			if !item.IsObject() || name.Type != gjson.String || typ.Type != gjson.String {
				return nil, gwerrors.Newf(gwerrors.ValidationError, "column %d needs string name and type", i+1)
			}
			cols = append(cols, statement.ColumnDef{Name: name.String(), Type: typ.String()})
		}
	default:
		return nil, gwerrors.New(gwerrors.ValidationError, "columns must be a JSON object or array")
	}
	return cols, nil
}

// parseOrder reads terms such as "age:desc" or "name".
func parseOrder(terms []string) []statement.OrderTerm {
	var out []statement.OrderTerm
	for _, t := range terms {
		for _, part := range strings.Split(t, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			col, dir, _ := strings.Cut(part, ":")
			out = append(out, statement.OrderTerm{Column: strings.TrimSpace(col), Direction: strings.TrimSpace(dir)})
		}
	}
	return out
}

// splitList splits a comma separated flag value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
