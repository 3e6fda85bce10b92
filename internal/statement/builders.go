// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package statement

import (
	"fmt"
	"regexp"
	"strings"

	gwerrors "uidb/gateway/internal/errors"
)

// ColumnDef is one column of a CREATE TABLE request.
type ColumnDef struct {
	Name string
	Type string
}

// Type names cannot be escaped, so they are checked against a small grammar instead:
// one or more words, an optional length/precision, then optional modifier words
// such as UNSIGNED, NOT NULL or AUTO_INCREMENT.
var columnTypeRe = regexp.MustCompile(`^(?i)[a-z][a-z0-9_]*( [a-z][a-z0-9_]*)*( ?\(\s*\d+\s*(,\s*\d+\s*)?\))?( [a-z][a-z0-9_]*)*$`)

// ValidColumnType reports whether typ is an acceptable column type spelling.
func ValidColumnType(typ string) bool {
	return columnTypeRe.MatchString(strings.Join(strings.Fields(typ), " "))
}

// CreateTable builds CREATE TABLE with columns in the given order.
func CreateTable(table string, cols []ColumnDef) (Statement, error) {
	t, err := QuoteIdent(table)
	if err != nil {
		return Statement{}, err
	}
	if len(cols) == 0 {
		return Statement{}, gwerrors.New(gwerrors.ValidationError, "at least one column is required")
	}
	seen := make(map[string]bool, len(cols))
	defs := make([]string, len(cols))
	for i, c := range cols {
		name, err := QuoteIdent(c.Name)
		if err != nil {
			return Statement{}, err
		}
		if seen[c.Name] {
			return Statement{}, gwerrors.Newf(gwerrors.ValidationError, "column %q is declared twice", c.Name)
		}
		seen[c.Name] = true
		typ := strings.Join(strings.Fields(c.Type), " ")
		if !ValidColumnType(typ) {
			return Statement{}, gwerrors.Newf(gwerrors.ValidationError, "column %q has invalid type %q", c.Name, c.Type)
		}
		defs[i] = name + " " + typ
	}
	return Statement{SQL: fmt.Sprintf("CREATE TABLE %s (%s)", t, strings.Join(defs, ", "))}, nil
}

// ListTables lists the tables of the connected database.
func ListTables() Statement { return Statement{SQL: "SHOW TABLES"} }

// Describe returns the column layout of table.
func Describe(table string) (Statement, error) {
	t, err := QuoteIdent(table)
	if err != nil {
		return Statement{}, err
	}
	return Statement{SQL: "DESCRIBE " + t}, nil
}

// Page reads one 1-based page of table.
func Page(table string, page, size int) (Statement, error) {
	t, err := QuoteIdent(table)
	if err != nil {
		return Statement{}, err
	}
	if page < 1 {
		return Statement{}, gwerrors.Newf(gwerrors.ValidationError, "page must be at least 1, got %d", page)
	}
	if size < 1 {
		return Statement{}, gwerrors.Newf(gwerrors.ValidationError, "page size must be positive, got %d", size)
	}
	return Statement{
		SQL:  "SELECT * FROM " + t + " LIMIT ? OFFSET ?",
		Args: []any{int64(size), int64(page-1) * int64(size)},
	}, nil
}

// Count counts every row of table.
func Count(table string) (Statement, error) {
	t, err := QuoteIdent(table)
	if err != nil {
		return Statement{}, err
	}
	return Statement{SQL: "SELECT COUNT(*) AS total FROM " + t}, nil
}

// Insert builds a single-row INSERT with every value escaped inline.
func Insert(table string, row Fields) (Statement, error) {
	t, err := QuoteIdent(table)
	if err != nil {
		return Statement{}, err
	}
	if len(row) == 0 {
		return Statement{}, gwerrors.New(gwerrors.ValidationError, "row has no fields")
	}
	if err := row.Validate("row"); err != nil {
		return Statement{}, err
	}
	cols, err := quoteIdents(row.Names())
	if err != nil {
		return Statement{}, err
	}
	vals := make([]string, len(row))
	for i, f := range row {
		vals[i] = EscapeValue(f.Value)
	}
	return Statement{SQL: fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", t, cols, strings.Join(vals, ", "))}, nil
}

// assignments renders "`k` = v" pairs with inline escaped values.
func assignments(fs Fields) ([]string, error) {
	out := make([]string, len(fs))
	for i, f := range fs {
		k, err := QuoteIdent(f.Name)
		if err != nil {
			return nil, err
		}
		out[i] = k + " = " + EscapeValue(f.Value)
	}
	return out, nil
}

// conditions renders a WHERE clause. A NULL value compares with IS NULL.
func conditions(fs Fields, bind bool) (string, []any, error) {
	if len(fs) == 0 {
		return "", nil, nil
	}
	if err := fs.Validate("condition"); err != nil {
		return "", nil, err
	}
	parts := make([]string, len(fs))
	var args []any
	for i, f := range fs {
		k, err := QuoteIdent(f.Name)
		if err != nil {
			return "", nil, err
		}
		switch {
		case f.Value.IsNull():
			parts[i] = k + " IS NULL"
		case bind:
			parts[i] = k + " = ?"
			args = append(args, f.Value.Arg())
		default:
			parts[i] = k + " = " + EscapeValue(f.Value)
		}
	}
	return " WHERE " + strings.Join(parts, " AND "), args, nil
}

// Update builds UPDATE … SET … WHERE …. An empty condition is rejected so a request
// can never rewrite the whole table by omission.
func Update(table string, set, where Fields) (Statement, error) {
	t, err := QuoteIdent(table)
	if err != nil {
		return Statement{}, err
	}
	if len(set) == 0 {
		return Statement{}, gwerrors.New(gwerrors.ValidationError, "update has no fields to set")
	}
	if len(where) == 0 {
		return Statement{}, gwerrors.New(gwerrors.ValidationError, "update requires a condition")
	}
	if err := set.Validate("update"); err != nil {
		return Statement{}, err
	}
	sets, err := assignments(set)
	if err != nil {
		return Statement{}, err
	}
	cond, _, err := conditions(where, false)
	if err != nil {
		return Statement{}, err
	}
	return Statement{SQL: "UPDATE " + t + " SET " + strings.Join(sets, ", ") + cond}, nil
}

// Delete builds DELETE FROM … WHERE …; an empty condition is rejected.
func Delete(table string, where Fields) (Statement, error) {
	t, err := QuoteIdent(table)
	if err != nil {
		return Statement{}, err
	}
	if len(where) == 0 {
		return Statement{}, gwerrors.New(gwerrors.ValidationError, "delete requires a condition")
	}
	cond, _, err := conditions(where, false)
	if err != nil {
		return Statement{}, err
	}
	return Statement{SQL: "DELETE FROM " + t + cond}, nil
}

// AggregateOp is one of the supported aggregate functions.
type AggregateOp string

const (
	OpCount AggregateOp = "COUNT"
	OpSum   AggregateOp = "SUM"
	OpAvg   AggregateOp = "AVG"
	OpMax   AggregateOp = "MAX"
	OpMin   AggregateOp = "MIN"
)

// ParseAggregateOp maps a case-insensitive name onto the fixed set of functions.
func ParseAggregateOp(name string) (AggregateOp, error) {
	switch op := AggregateOp(strings.ToUpper(strings.TrimSpace(name))); op {
	case OpCount, OpSum, OpAvg, OpMax, OpMin:
		return op, nil
	default:
		return "", gwerrors.Newf(gwerrors.ValidationError, "unsupported aggregate operation %q", name)
	}
}

// Aggregate builds SELECT OP(col) AS result with condition values bound. COUNT also
// accepts "*" as the column.
func Aggregate(op AggregateOp, table, column string, where Fields) (Statement, error) {
	op, err := ParseAggregateOp(string(op))
	if err != nil {
		return Statement{}, err
	}
	t, err := QuoteIdent(table)
	if err != nil {
		return Statement{}, err
	}
	col := "*"
	if column != "*" {
		if col, err = QuoteIdent(column); err != nil {
			return Statement{}, err
		}
	} else if op != OpCount {
		return Statement{}, gwerrors.Newf(gwerrors.ValidationError, "%s needs a column, not *", op)
	}
	cond, args, err := conditions(where, true)
	if err != nil {
		return Statement{}, err
	}
	return Statement{
		SQL:  fmt.Sprintf("SELECT %s(%s) AS result FROM %s%s", op, col, t, cond),
		Args: args,
	}, nil
}

// FulltextIndex adds a FULLTEXT index over cols.
func FulltextIndex(table string, cols []string) (Statement, error) {
	t, err := QuoteIdent(table)
	if err != nil {
		return Statement{}, err
	}
	if len(cols) == 0 {
		return Statement{}, gwerrors.New(gwerrors.ValidationError, "fulltext index needs at least one column")
	}
	list, err := quoteIdents(cols)
	if err != nil {
		return Statement{}, err
	}
	return Statement{SQL: fmt.Sprintf("ALTER TABLE %s ADD FULLTEXT(%s)", t, list)}, nil
}

// SearchMode selects the MATCH … AGAINST modifier.
type SearchMode string

const (
	ModeDefault        SearchMode = ""
	ModeNatural        SearchMode = "NATURAL"
	ModeBoolean        SearchMode = "BOOLEAN"
	ModeQueryExpansion SearchMode = "QUERY_EXPANSION"
)

var modeClauses = map[SearchMode]string{
	ModeDefault:        "",
	ModeNatural:        " IN NATURAL LANGUAGE MODE",
	ModeBoolean:        " IN BOOLEAN MODE",
	ModeQueryExpansion: " WITH QUERY EXPANSION",
}

// ParseSearchMode accepts the mode names case-insensitively; "" and "default" mean
// no modifier.
func ParseSearchMode(name string) (SearchMode, error) {
	m := SearchMode(strings.ToUpper(strings.TrimSpace(name)))
	if m == "DEFAULT" {
		m = ModeDefault
	}
	if _, ok := modeClauses[m]; !ok {
		return "", gwerrors.Newf(gwerrors.ValidationError, "unsupported search mode %q", name)
	}
	return m, nil
}

// FulltextSearch builds a MATCH … AGAINST query with the term bound.
func FulltextSearch(table string, cols []string, term string, mode SearchMode) (Statement, error) {
	t, err := QuoteIdent(table)
	if err != nil {
		return Statement{}, err
	}
	if len(cols) == 0 {
		return Statement{}, gwerrors.New(gwerrors.ValidationError, "search needs at least one column")
	}
	if strings.TrimSpace(term) == "" {
		return Statement{}, gwerrors.New(gwerrors.ValidationError, "search term must not be empty")
	}
	mode, err = ParseSearchMode(string(mode))
	if err != nil {
		return Statement{}, err
	}
	clause := modeClauses[mode]
	list, err := quoteIdents(cols)
	if err != nil {
		return Statement{}, err
	}
	return Statement{
		SQL:  fmt.Sprintf("SELECT * FROM %s WHERE MATCH(%s) AGAINST (?%s)", t, list, clause),
		Args: []any{term},
	}, nil
}

// OrderTerm is one ORDER BY key.
type OrderTerm struct {
	Column    string
	Direction string
}

func direction(d string) (string, error) {
	switch strings.ToUpper(strings.TrimSpace(d)) {
	case "", "ASC":
		return "ASC", nil
	case "DESC":
		return "DESC", nil
	default:
		return "", gwerrors.Newf(gwerrors.ValidationError, "invalid sort direction %q", d)
	}
}

// OrderedSelect builds SELECT * … ORDER BY with an optional bound LIMIT/OFFSET. The
// offset is dropped when no limit is given.
func OrderedSelect(table string, terms []OrderTerm, limit, offset *int) (Statement, error) {
	t, err := QuoteIdent(table)
	if err != nil {
		return Statement{}, err
	}
	if len(terms) == 0 {
		return Statement{}, gwerrors.New(gwerrors.ValidationError, "at least one ordering column is required")
	}
	keys := make([]string, len(terms))
	for i, term := range terms {
		c, err := QuoteIdent(term.Column)
		if err != nil {
			return Statement{}, err
		}
		dir, err := direction(term.Direction)
		if err != nil {
			return Statement{}, err
		}
		keys[i] = c + " " + dir
	}
	st := Statement{SQL: "SELECT * FROM " + t + " ORDER BY " + strings.Join(keys, ", ")}
	if limit == nil {
		return st, nil
	}
	if *limit < 0 {
		return Statement{}, gwerrors.Newf(gwerrors.ValidationError, "limit must not be negative, got %d", *limit)
	}
	st.SQL += " LIMIT ?"
	st.Args = append(st.Args, int64(*limit))
	if offset != nil {
		if *offset < 0 {
			return Statement{}, gwerrors.Newf(gwerrors.ValidationError, "offset must not be negative, got %d", *offset)
		}
		st.SQL += " OFFSET ?"
		st.Args = append(st.Args, int64(*offset))
	}
	return st, nil
}

// ChartColumn is the timestamp column every charted table is expected to carry.
const ChartColumn = "created_at"

// ChartSeries counts rows per calendar day of ChartColumn.
func ChartSeries(table string) (Statement, error) {
	t, err := QuoteIdent(table)
	if err != nil {
		return Statement{}, err
	}
	col, _ := QuoteIdent(ChartColumn)
	return Statement{SQL: fmt.Sprintf("SELECT DATE(%s) AS d, COUNT(*) AS c FROM %s GROUP BY d ORDER BY d", col, t)}, nil
}
