package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/protobuf/types/known/structpb"

	gwerrors "uidb/gateway/internal/errors"
	"uidb/gateway/internal/gateway"
	"uidb/gateway/internal/profile"
	"uidb/gateway/internal/sqlexec"
	"uidb/gateway/internal/statement"
)

func TestDecodeRequest_ObjectFieldsAreSortedByKey(t *testing.T) {
	s, err := structpb.NewStruct(map[string]any{
		"kind":  "update",
		"table": "users",
		"set":   map[string]any{"status": "active", "score": 9.0},
		"where": []any{map[string]any{"name": "id", "value": 4.0}},
	})
	require.NoError(t, err)

	req, err := DecodeRequest(s)
	require.NoError(t, err)
	up := req.(gateway.Update)
	assert.Equal(t, []string{"score", "status"}, up.Set.Names())
	v, _ := up.Where.Get("id")
	assert.Equal(t, statement.Int(4), v)
}

func TestDecodeRequest_Rejects(t *testing.T) {
	for name, m := range map[string]map[string]any{
		"unknown kind":  {"kind": "drop_everything"},
		"table type":    {"kind": "describe_and_page", "table": 3.0},
		"nested value":  {"kind": "insert", "table": "t", "row": map[string]any{"a": map[string]any{"b": 1.0}}},
		"fraction page": {"kind": "describe_and_page", "table": "t", "page": 1.5},
		"huge page":     {"kind": "describe_and_page", "table": "t", "page": 1e20},
		"negative huge": {"kind": "ordered_select", "table": "t", "limit": -1e12},
		"unknown mode":  {"kind": "fulltext_search", "table": "t", "columns": []any{"body"}, "term": "x", "mode": "fuzzy"},
		"unknown op":    {"kind": "aggregate", "table": "t", "op": "median", "column": "x"},
	} {
		t.Run(name, func(t *testing.T) {
			s, err := structpb.NewStruct(m)
			require.NoError(t, err)
			_, err = DecodeRequest(s)
			assert.True(t, gwerrors.Is(err, gwerrors.ValidationError), "%v", err)
		})
	}
}

func TestDecodeRequest_EnumsAreCaseInsensitive(t *testing.T) {
	s, err := structpb.NewStruct(map[string]any{
		"kind": "fulltext_search", "table": "docs", "columns": []any{"body"}, "term": "go", "mode": "boolean",
	})
	require.NoError(t, err)
	req, err := DecodeRequest(s)
	require.NoError(t, err)
	assert.Equal(t, statement.ModeBoolean, req.(gateway.FulltextSearch).Mode)

	s, err = structpb.NewStruct(map[string]any{"kind": "aggregate", "table": "orders", "op": "sum", "column": "total"})
	require.NoError(t, err)
	req, err = DecodeRequest(s)
	require.NoError(t, err)
	assert.Equal(t, statement.OpSum, req.(gateway.Aggregate).Op)
}

func TestDecodeResult_RejectsOversizedCounts(t *testing.T) {
	s, err := structpb.NewStruct(map[string]any{"kind": "insert", "outcome": "success", "affected_rows": 1e300})
	require.NoError(t, err)
	_, err = DecodeResult(s)
	assert.True(t, gwerrors.Is(err, gwerrors.ValidationError), "%v", err)
}

func TestProfileKeepsParams(t *testing.T) {
	p := profile.ConnectionProfile{Principal: "alice", Host: "db", Port: 3306, User: "app", Database: "shop", Params: map[string]string{"tls": "true"}}
	s, err := EncodeProfile(p)
	require.NoError(t, err)
	got, err := DecodeProfile(s)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	s, err = structpb.NewStruct(map[string]any{"principal": "alice", "port": 1e10})
	require.NoError(t, err)
	_, err = DecodeProfile(s)
	assert.True(t, gwerrors.Is(err, gwerrors.ValidationError), "%v", err)
}

func TestOrderedSelectKeepsNilLimit(t *testing.T) {
	offset := 3
	s, err := EncodeRequest(gateway.OrderedSelect{Table: "t", Order: []statement.OrderTerm{{Column: "age", Direction: "DESC"}}, Offset: &offset})
	require.NoError(t, err)
	req, err := DecodeRequest(s)
	require.NoError(t, err)
	os := req.(gateway.OrderedSelect)
	assert.Nil(t, os.Limit)
	require.NotNil(t, os.Offset)
	assert.Equal(t, 3, *os.Offset)
}

func TestResultShellSets(t *testing.T) {
	def := "0"
	set := func(col string, v any) sqlexec.Result {
		return sqlexec.Result{
			Columns: []sqlexec.ColumnMeta{{Name: col, DatabaseType: "BIGINT"}},
			Rows:    []sqlexec.Row{{Columns: []string{col}, Values: []any{v}}},
		}
	}
	first, second := set("a", int64(1)), set("b", 2.5)
	raw := first
	raw.Sets = []sqlexec.Result{first, second}

	in := &gateway.Result{
		Kind:    gateway.KindShell,
		Outcome: gateway.OutcomeOK,
		Summary: "Query executed successfully. 2 result sets returned",
		Raw:     &raw,
		Schema:  []sqlexec.FieldDescriptor{{Field: "id", Default: &def}, {Field: "name"}},
	}
	s, err := EncodeResult(in)
	require.NoError(t, err)
	out, err := DecodeResult(s)
	require.NoError(t, err)

	require.NotNil(t, out.Raw)
	require.Len(t, out.Raw.Sets, 2)
	assert.Equal(t, []any{2.5}, out.Raw.Sets[1].Rows[0].Values)
	assert.Equal(t, []any{int64(1)}, out.Raw.Rows[0].Values)
	assert.Equal(t, in.Summary, out.Summary)
	require.Len(t, out.Schema, 2)
	assert.Equal(t, "0", *out.Schema[0].Default)
	assert.Nil(t, out.Schema[1].Default)
}

func TestCodeMapping(t *testing.T) {
	for _, kind := range []gwerrors.Kind{
		gwerrors.NotFound, gwerrors.DuplicateTable, gwerrors.ValidationError,
		gwerrors.ConnectionError, gwerrors.ExecutionError, gwerrors.NoMatch, gwerrors.Internal,
	} {
		assert.Equal(t, kind, KindFor(CodeFor(kind)))
	}
	assert.Equal(t, codes.AlreadyExists, CodeFor(gwerrors.DuplicateTable))
}
