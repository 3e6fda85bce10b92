// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package model

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	gwerrors "uidb/gateway/internal/errors"
	"uidb/gateway/internal/gateway"
	"uidb/gateway/internal/profile"
	"uidb/gateway/internal/sqlexec"
	"uidb/gateway/internal/statement"
)

// EncodeRequest converts req into a Struct. Field sets travel as lists of
// {"name", "value"} objects so column order survives; Struct maps are unordered.
func EncodeRequest(req gateway.Request) (*structpb.Struct, error) {
	if req == nil {
		return nil, gwerrors.New(gwerrors.ValidationError, "request is required")
	}
	m := map[string]any{"kind": string(req.Kind())}
	switch r := req.(type) {
	case gateway.CreateTable:
		cols := make([]any, len(r.Columns))
		for i, c := range r.Columns {
			cols[i] = map[string]any{"name": c.Name, "type": c.Type}
		}
		m["table"], m["columns"] = r.Table, cols
	case gateway.ListTables:
	case gateway.DescribeAndPage:
		m["table"], m["page"], m["page_size"] = r.Table, r.Page, r.PageSize
	case gateway.Insert:
		m["table"], m["row"] = r.Table, encodeFields(r.Row)
	case gateway.BulkInsert:
		rows := make([]any, len(r.Rows))
		for i, row := range r.Rows {
			rows[i] = encodeFields(row)
		}
		m["table"], m["rows"] = r.Table, rows
	case gateway.Update:
		m["table"], m["set"], m["where"] = r.Table, encodeFields(r.Set), encodeFields(r.Where)
	case gateway.Delete:
		m["table"], m["where"] = r.Table, encodeFields(r.Where)
	case gateway.Aggregate:
		m["table"], m["op"], m["column"], m["where"] = r.Table, string(r.Op), r.Column, encodeFields(r.Where)
	case gateway.BuildFulltextIndex:
		m["table"], m["columns"] = r.Table, stringList(r.Columns)
	case gateway.FulltextSearch:
		m["table"], m["columns"], m["term"], m["mode"] = r.Table, stringList(r.Columns), r.Term, string(r.Mode)
	case gateway.OrderedSelect:
		order := make([]any, len(r.Order))
		for i, o := range r.Order {
			order[i] = map[string]any{"column": o.Column, "direction": o.Direction}
		}
		m["table"], m["order"] = r.Table, order
		if r.Limit != nil {
			m["limit"] = *r.Limit
		}
		if r.Offset != nil {
			m["offset"] = *r.Offset
		}
	case gateway.AdHocQuery:
		params := make([]any, len(r.Params))
		for i, p := range r.Params {
			params[i] = encodeValue(p)
		}
		m["sql"], m["params"] = r.SQL, params
	case gateway.Shell:
		m["sql"] = r.SQL
	case gateway.EstimateAffectedRows:
		m["sql"] = r.SQL
	case gateway.CustomQuery:
		m["sql"] = r.SQL
	case gateway.ChartSeries:
		m["table"] = r.Table
	default:
		return nil, gwerrors.Newf(gwerrors.ValidationError, "unsupported request type %T", req)
	}
	return structpb.NewStruct(m)
}

// DecodeRequest is the inverse of EncodeRequest. Field sets may also be plain
// objects; their columns are then taken in key order.
func DecodeRequest(s *structpb.Struct) (gateway.Request, error) {
	d := &decoder{m: s.AsMap()}
	var req gateway.Request
	switch kind := gateway.Kind(d.str("kind")); kind {
	case gateway.KindCreateTable:
		r := gateway.CreateTable{Table: d.str("table")}
		for _, c := range d.objects("columns") {
			cd := &decoder{m: c}
			r.Columns = append(r.Columns, statement.ColumnDef{Name: cd.str("name"), Type: cd.str("type")})
			d.keep(cd.err)
		}
		req = r
	case gateway.KindListTables:
		req = gateway.ListTables{}
	case gateway.KindDescribeAndPage:
		req = gateway.DescribeAndPage{Table: d.str("table"), Page: d.integer("page"), PageSize: d.integer("page_size")}
	case gateway.KindInsert:
		req = gateway.Insert{Table: d.str("table"), Row: d.fields("row")}
	case gateway.KindBulkInsert:
		r := gateway.BulkInsert{Table: d.str("table")}
		for _, x := range d.list("rows") {
			r.Rows = append(r.Rows, d.fieldsOf("rows", x))
		}
		req = r
	case gateway.KindUpdate:
		req = gateway.Update{Table: d.str("table"), Set: d.fields("set"), Where: d.fields("where")}
	case gateway.KindDelete:
		req = gateway.Delete{Table: d.str("table"), Where: d.fields("where")}
	case gateway.KindAggregate:
		req = gateway.Aggregate{
			Table:  d.str("table"),
			Op:     d.aggregateOp("op"),
			Column: d.str("column"),
			Where:  d.fields("where"),
		}
	case gateway.KindBuildFulltextIndex:
		req = gateway.BuildFulltextIndex{Table: d.str("table"), Columns: d.strs("columns")}
	case gateway.KindFulltextSearch:
		req = gateway.FulltextSearch{
			Table:   d.str("table"),
			Columns: d.strs("columns"),
			Term:    d.str("term"),
			Mode:    d.searchMode("mode"),
		}
	case gateway.KindOrderedSelect:
		r := gateway.OrderedSelect{Table: d.str("table"), Limit: d.intPtr("limit"), Offset: d.intPtr("offset")}
		for _, o := range d.objects("order") {
			od := &decoder{m: o}
			r.Order = append(r.Order, statement.OrderTerm{Column: od.str("column"), Direction: od.str("direction")})
			d.keep(od.err)
		}
		req = r
	case gateway.KindAdHocQuery:
		r := gateway.AdHocQuery{SQL: d.str("sql")}
		for _, x := range d.list("params") {
			v, err := statement.FromAny(x)
			d.keep(err)
			r.Params = append(r.Params, v)
		}
		req = r
	case gateway.KindShell:
		req = gateway.Shell{SQL: d.str("sql")}
	case gateway.KindEstimateAffectedRows:
		req = gateway.EstimateAffectedRows{SQL: d.str("sql")}
	case gateway.KindCustomQuery:
		req = gateway.CustomQuery{SQL: d.str("sql")}
	case gateway.KindChartSeries:
		req = gateway.ChartSeries{Table: d.str("table")}
	default:
		return nil, gwerrors.Newf(gwerrors.ValidationError, "unknown operation kind %q", kind)
	}
	if d.err != nil {
		return nil, d.err
	}
	return req, nil
}

// EncodeProfile converts p into a Struct. The password is only included when set.
func EncodeProfile(p profile.ConnectionProfile) (*structpb.Struct, error) {
	m := map[string]any{
		"principal": p.Principal,
		"host":      p.Host,
		"port":      p.Port,
		"user":      p.User,
		"database":  p.Database,
	}
	if p.Password != "" {
		m["password"] = p.Password
	}
	if len(p.Params) > 0 {
		params := make(map[string]any, len(p.Params))
		for k, v := range p.Params {
			params[k] = v
		}
		m["params"] = params
	}
	if !p.CreatedAt.IsZero() {
		m["created_at"] = p.CreatedAt.UTC().Format(time.RFC3339)
	}
	return structpb.NewStruct(m)
}

// DecodeProfile is the inverse of EncodeProfile.
func DecodeProfile(s *structpb.Struct) (profile.ConnectionProfile, error) {
	d := &decoder{m: s.AsMap()}
	p := profile.ConnectionProfile{
		Principal: d.str("principal"),
		Host:      d.str("host"),
		Port:      d.integer("port"),
		User:      d.str("user"),
		Password:  d.str("password"),
		Database:  d.str("database"),
		Params:    d.strMap("params"),
	}
	if ts := d.str("created_at"); ts != "" {
		t, err := time.Parse(time.RFC3339, ts)
		d.keep(err)
		p.CreatedAt = t
	}
	return p, d.err
}

// EncodeResult converts res into a Struct. Rows travel as value arrays next to
// their column list.
func EncodeResult(res *gateway.Result) (*structpb.Struct, error) {
	m := map[string]any{
		"kind":          string(res.Kind),
		"message":       res.Message,
		"outcome":       string(res.Outcome),
		"sql":           res.SQL,
		"affected_rows": res.AffectedRows,
	}
	if len(res.Params) > 0 {
		m["params"] = wireList(res.Params)
	}
	if res.LastInsertID != 0 {
		m["last_insert_id"] = res.LastInsertID
	}
	if res.Scalar != nil {
		m["scalar"] = wire(res.Scalar)
	}
	if res.Columns != nil {
		m["columns"], m["rows"] = encodeColumns(res.Columns), encodeRows(res.Rows)
	}
	if res.Schema != nil {
		schema := make([]any, len(res.Schema))
		for i, f := range res.Schema {
			fm := map[string]any{"Field": f.Field, "Type": f.Type, "Null": f.Null, "Key": f.Key, "Extra": f.Extra, "Default": nil}
			if f.Default != nil {
				fm["Default"] = *f.Default
			}
			schema[i] = fm
		}
		m["schema"] = schema
		m["total_items"], m["page"], m["page_size"], m["total_pages"] = res.TotalItems, res.Page, res.PageSize, res.TotalPages
	}
	if res.Tables != nil {
		m["tables"] = stringList(res.Tables)
	}
	if res.Labels != nil {
		series := make([]any, len(res.Series))
		for i, n := range res.Series {
			series[i] = n
		}
		m["labels"], m["series"] = stringList(res.Labels), series
	}
	if res.Summary != "" {
		m["summary"] = res.Summary
	}
	if res.Raw != nil {
		m["raw"] = encodeRaw(res.Raw)
	}
	return structpb.NewStruct(m)
}

// DecodeResult is the inverse of EncodeResult. Numbers come back as int64 when
// they are integral, float64 otherwise.
func DecodeResult(s *structpb.Struct) (*gateway.Result, error) {
	d := &decoder{m: s.AsMap()}
	res := &gateway.Result{
		Kind:         gateway.Kind(d.str("kind")),
		Message:      d.str("message"),
		Outcome:      gateway.Outcome(d.str("outcome")),
		SQL:          d.str("sql"),
		AffectedRows: d.count("affected_rows"),
		LastInsertID: d.count("last_insert_id"),
		Scalar:       unwire(d.m["scalar"]),
		TotalItems:   d.count("total_items"),
		Page:         d.integer("page"),
		PageSize:     d.integer("page_size"),
		TotalPages:   d.count("total_pages"),
		Summary:      d.str("summary"),
	}
	for _, p := range d.list("params") {
		res.Params = append(res.Params, unwire(p))
	}
	if _, ok := d.m["columns"]; ok {
		res.Columns, res.Rows = d.rowSet(d.m)
	}
	for _, f := range d.objects("schema") {
		fd := &decoder{m: f}
		desc := sqlexec.FieldDescriptor{Field: fd.str("Field"), Type: fd.str("Type"), Null: fd.str("Null"), Key: fd.str("Key"), Extra: fd.str("Extra")}
		if v, ok := f["Default"].(string); ok {
			desc.Default = &v
		}
		res.Schema = append(res.Schema, desc)
		d.keep(fd.err)
	}
	if _, ok := d.m["tables"]; ok {
		res.Tables = d.strs("tables")
	}
	if _, ok := d.m["labels"]; ok {
		res.Labels = d.strs("labels")
		res.Series = make([]int64, 0, len(res.Labels))
		for _, x := range d.list("series") {
			n, _ := unwire(x).(int64)
			res.Series = append(res.Series, n)
		}
	}
	if raw, ok := d.m["raw"].(map[string]any); ok {
		res.Raw = d.raw(raw)
	}
	if d.err != nil {
		return nil, d.err
	}
	return res, nil
}

func encodeFields(fs statement.Fields) []any {
	out := make([]any, len(fs))
	for i, f := range fs {
		out[i] = map[string]any{"name": f.Name, "value": encodeValue(f.Value)}
	}
	return out
}

func encodeValue(v statement.Value) any {
	switch v.Kind() {
	case statement.KindDate:
		return v.Arg().(time.Time).Format("2006-01-02 15:04:05.999999")
	case statement.KindNumber:
		if lit, ok := v.Arg().(string); ok {
			if f, err := strconv.ParseFloat(lit, 64); err == nil {
				return f
			}
		}
		return v.Arg()
	default:
		return v.Arg()
	}
}

func encodeColumns(cols []sqlexec.ColumnMeta) []any {
	out := make([]any, len(cols))
	for i, c := range cols {
		out[i] = map[string]any{"name": c.Name, "type": c.DatabaseType, "nullable": c.Nullable}
	}
	return out
}

func encodeRows(rows []sqlexec.Row) []any {
	out := make([]any, len(rows))
	for i, r := range rows {
		out[i] = wireList(r.Values)
	}
	return out
}

func encodeRaw(r *sqlexec.Result) map[string]any {
	m := map[string]any{
		"columns":       encodeColumns(r.Columns),
		"rows":          encodeRows(r.Rows),
		"rows_affected": r.RowsAffected,
	}
	if r.LastInsertID != 0 {
		m["last_insert_id"] = r.LastInsertID
	}
	if len(r.Sets) > 0 {
		sets := make([]any, len(r.Sets))
		for i := range r.Sets {
			sets[i] = encodeRaw(&r.Sets[i])
		}
		m["result_sets"] = sets
	}
	return m
}

func stringList(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func wireList(vs []any) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = wire(v)
	}
	return out
}

// wire converts a shaped cell into a value structpb accepts.
func wire(v any) any {
	switch t := v.(type) {
	case nil, string, bool, int, int32, int64, uint32, uint64, float32, float64:
		return t
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case json.RawMessage:
		var x any
		if err := json.Unmarshal(t, &x); err != nil {
			return string(t)
		}
		return x
	case time.Time:
		return t.Format(time.RFC3339Nano)
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

// unwire turns integral float64 values back into int64.
func unwire(v any) any {
	switch t := v.(type) {
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1<<53 {
			return int64(t)
		}
		return t
	case []any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = unwire(x)
		}
		return out
	default:
		return v
	}
}

// decoder reads typed values out of a decoded Struct and keeps the first error.
type decoder struct {
	m   map[string]any
	err error
}

func (d *decoder) keep(err error) {
	if d.err == nil && err != nil {
		d.err = err
	}
}

func (d *decoder) fail(format string, args ...any) {
	d.keep(gwerrors.Newf(gwerrors.ValidationError, format, args...))
}

func (d *decoder) str(key string) string {
	switch v := d.m[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		d.fail("%s must be a string", key)
		return ""
	}
}

// integer accepts whole numbers that fit in 32 bits. Larger page sizes, limits and
// ports are never meaningful.
func (d *decoder) integer(key string) int {
	switch v := d.m[key].(type) {
	case nil:
		return 0
	case float64:
		if v != math.Trunc(v) {
			d.fail("%s must be an integer", key)
			return 0
		}
		if v < math.MinInt32 || v > math.MaxInt32 {
			d.fail("%s is out of range", key)
			return 0
		}
		return int(v)
	default:
		d.fail("%s must be a number", key)
		return 0
	}
}

// count reads a row count or insert id. float64 holds those exactly up to 2^53.
func (d *decoder) count(key string) int64 {
	switch v := d.m[key].(type) {
	case nil:
		return 0
	case float64:
		if v != math.Trunc(v) || math.Abs(v) > 1<<53 {
			d.fail("%s must be a whole number", key)
			return 0
		}
		return int64(v)
	default:
		d.fail("%s must be a number", key)
		return 0
	}
}

func (d *decoder) aggregateOp(key string) statement.AggregateOp {
	op, err := statement.ParseAggregateOp(d.str(key))
	d.keep(err)
	return op
}

func (d *decoder) searchMode(key string) statement.SearchMode {
	m, err := statement.ParseSearchMode(d.str(key))
	d.keep(err)
	return m
}

func (d *decoder) intPtr(key string) *int {
	if d.m[key] == nil {
		return nil
	}
	n := d.integer(key)
	return &n
}

func (d *decoder) strMap(key string) map[string]string {
	switch v := d.m[key].(type) {
	case nil:
		return nil
	case map[string]any:
		out := make(map[string]string, len(v))
		for k, x := range v {
			s, ok := x.(string)
			if !ok {
				d.fail("%s.%s must be a string", key, k)
				return nil
			}
			out[k] = s
		}
		return out
	default:
		d.fail("%s must be an object", key)
		return nil
	}
}

func (d *decoder) list(key string) []any {
	switch v := d.m[key].(type) {
	case nil:
		return nil
	case []any:
		return v
	default:
		d.fail("%s must be a list", key)
		return nil
	}
}

func (d *decoder) strs(key string) []string {
	var out []string
	for _, x := range d.list(key) {
		s, ok := x.(string)
		if !ok {
			d.fail("%s must contain strings", key)
			return nil
		}
		out = append(out, s)
	}
	return out
}

func (d *decoder) objects(key string) []map[string]any {
	var out []map[string]any
	for _, x := range d.list(key) {
		o, ok := x.(map[string]any)
		if !ok {
			d.fail("%s must contain objects", key)
			return nil
		}
		out = append(out, o)
	}
	return out
}

func (d *decoder) fields(key string) statement.Fields {
	return d.fieldsOf(key, d.m[key])
}

func (d *decoder) fieldsOf(key string, x any) statement.Fields {
	switch v := x.(type) {
	case nil:
		return nil
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fs, err := statement.FieldsFromMap(v, keys)
		d.keep(err)
		return fs
	case []any:
		fs := make(statement.Fields, 0, len(v))
		for _, e := range v {
			o, ok := e.(map[string]any)
			if !ok {
				d.fail("%s must contain {name, value} objects", key)
				return nil
			}
			name, _ := o["name"].(string)
			val, err := statement.FromAny(o["value"])
			if err != nil {
				d.keep(fmt.Errorf("%s.%s: %w", key, name, err))
				return nil
			}
			fs = append(fs, statement.Field{Name: name, Value: val})
		}
		return fs
	default:
		d.fail("%s must be an object or a list", key)
		return nil
	}
}

func (d *decoder) rowSet(m map[string]any) ([]sqlexec.ColumnMeta, []sqlexec.Row) {
	sub := &decoder{m: m}
	cols := []sqlexec.ColumnMeta{}
	for _, c := range sub.objects("columns") {
		cd := &decoder{m: c}
		nullable, _ := c["nullable"].(bool)
		cols = append(cols, sqlexec.ColumnMeta{Name: cd.str("name"), DatabaseType: cd.str("type"), Nullable: nullable})
		sub.keep(cd.err)
	}
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	rows := []sqlexec.Row{}
	for _, r := range sub.list("rows") {
		vals, ok := unwire(r).([]any)
		if !ok || len(vals) != len(names) {
			sub.fail("row does not match its columns")
			break
		}
		rows = append(rows, sqlexec.Row{Columns: names, Values: vals})
	}
	d.keep(sub.err)
	return cols, rows
}

func (d *decoder) raw(m map[string]any) *sqlexec.Result {
	sub := &decoder{m: m}
	r := &sqlexec.Result{
		RowsAffected: sub.count("rows_affected"),
		LastInsertID: sub.count("last_insert_id"),
	}
	r.Columns, r.Rows = sub.rowSet(m)
	for _, s := range sub.objects("result_sets") {
		r.Sets = append(r.Sets, *sub.raw(s))
	}
	d.keep(sub.err)
	return r
}
