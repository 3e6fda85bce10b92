package sqlexec

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gwerrors "uidb/gateway/internal/errors"
	"uidb/gateway/internal/statement"
)

func TestExecutor_QueryShapesRows(t *testing.T) {
	db, mock := newMock(t)
	defer db.Close()

	rows := sqlmock.NewRowsWithColumnDefinition(
		sqlmock.NewColumn("id").OfType("BIGINT", int64(0)),
		sqlmock.NewColumn("name").OfType("VARCHAR", "").Nullable(true),
		sqlmock.NewColumn("price").OfType("DECIMAL", ""),
	).
		AddRow([]byte("2"), []byte("bob"), []byte("9.90")).
		AddRow([]byte("1"), nil, []byte("0.10"))

	st, err := statement.Page("items", 1, 2)
	require.NoError(t, err)
	mock.ExpectQuery(st.SQL).WithArgs(int64(2), int64(0)).WillReturnRows(rows)

	res, err := NewExecutor(time.Second).Query(context.Background(), db, st)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, []string{"id", "name", "price"}, columnNames(res))
	assert.Equal(t, "BIGINT", res.Columns[0].DatabaseType)
	assert.True(t, res.Columns[1].Nullable)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, []any{int64(2), "bob", "9.90"}, res.Rows[0].Values)
	assert.Nil(t, res.Rows[1].Values[1])

	out, err := json.Marshal(res.Rows[0])
	require.NoError(t, err)
	assert.Equal(t, `{"id":2,"name":"bob","price":"9.90"}`, string(out))

	v, ok := res.Scalar("price")
	assert.True(t, ok)
	assert.Equal(t, "9.90", v)
}

func TestExecutor_ExecReportsAffectedRows(t *testing.T) {
	db, mock := newMock(t)
	defer db.Close()

	st := statement.Statement{SQL: "UPDATE `t` SET `a` = 1 WHERE `id` = 3"}
	mock.ExpectExec(st.SQL).WillReturnResult(sqlmock.NewResult(0, 0))

	res, err := NewExecutor(time.Second).Exec(context.Background(), db, st)
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.RowsAffected)
	assert.Empty(t, res.Rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecutor_ErrorClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want gwerrors.Kind
	}{
		{name: "table exists", err: &mysql.MySQLError{Number: 1050, Message: "Table 'users' already exists"}, want: gwerrors.DuplicateTable},
		{name: "missing table", err: &mysql.MySQLError{Number: 1146, Message: "Table 'shop.nope' doesn't exist"}, want: gwerrors.ExecutionError},
		{name: "access denied", err: &mysql.MySQLError{Number: 1045, Message: "Access denied"}, want: gwerrors.ConnectionError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMock(t)
			defer db.Close()
			mock.ExpectExec("CREATE TABLE `users` (`id` INT)").WillReturnError(tt.err)

			_, err := NewExecutor(time.Second).Exec(context.Background(), db, statement.Statement{SQL: "CREATE TABLE `users` (`id` INT)"})
			require.Error(t, err)
			assert.Equal(t, tt.want, gwerrors.KindOf(err))

			var e *gwerrors.E
			require.True(t, gwerrors.As(err, &e))
			assert.Equal(t, tt.err.Error(), e.Detail)
		})
	}
}

func TestExecutor_StatementTimeout(t *testing.T) {
	db, mock := newMock(t)
	defer db.Close()

	mock.ExpectQuery("SELECT SLEEP(10)").WillDelayFor(time.Second).WillReturnRows(sqlmock.NewRows([]string{"x"}))

	_, err := NewExecutor(20*time.Millisecond).Query(context.Background(), db, statement.Statement{SQL: "SELECT SLEEP(10)"})
	require.Error(t, err)
	assert.True(t, gwerrors.Is(err, gwerrors.ExecutionError))
	assert.Contains(t, err.Error(), "timed out")
}

func TestExecutor_Shell(t *testing.T) {
	ctx := context.Background()

	t.Run("multiple result sets", func(t *testing.T) {
		db, mock := newMock(t)
		defer db.Close()

		first := sqlmock.NewRows([]string{"a"}).AddRow(int64(1))
		second := sqlmock.NewRows([]string{"b", "c"}).AddRow("x", "y").AddRow("z", "w")
		mock.ExpectQuery("SELECT 1 AS a; SELECT b, c FROM t").WillReturnRows(first, second)

		res, err := NewExecutor(time.Second).Shell(ctx, db, "SELECT 1 AS a; SELECT b, c FROM t")
		require.NoError(t, err)
		require.Len(t, res.Sets, 2)
		assert.Equal(t, []string{"a"}, columnNames(res))
		assert.Len(t, res.Sets[1].Rows, 2)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("single result set has no Sets", func(t *testing.T) {
		db, mock := newMock(t)
		defer db.Close()
		mock.ExpectQuery("SHOW TABLES").WillReturnRows(sqlmock.NewRows([]string{"Tables_in_shop"}).AddRow("users"))

		res, err := NewExecutor(time.Second).Shell(ctx, db, "SHOW TABLES")
		require.NoError(t, err)
		assert.Nil(t, res.Sets)
		assert.Len(t, res.Rows, 1)
	})

	t.Run("write statements report affected rows", func(t *testing.T) {
		db, mock := newMock(t)
		defer db.Close()
		mock.ExpectExec("DELETE FROM t WHERE id > 3").WillReturnResult(sqlmock.NewResult(0, 4))

		res, err := NewExecutor(time.Second).Shell(ctx, db, "DELETE FROM t WHERE id > 3")
		require.NoError(t, err)
		assert.Equal(t, int64(4), res.RowsAffected)
	})

	t.Run("rows after a write in the same batch", func(t *testing.T) {
		db, mock := newMock(t)
		defer db.Close()
		batch := "INSERT INTO t VALUES (1); SELECT id FROM t"
		mock.ExpectQuery(batch).WillReturnRows(sqlmock.NewRows(nil), sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

		res, err := NewExecutor(time.Second).Shell(ctx, db, batch)
		require.NoError(t, err)
		assert.Nil(t, res.Sets)
		assert.Equal(t, []string{"id"}, columnNames(res))
		assert.Len(t, res.Rows, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("procedure calls and commented selects are queried", func(t *testing.T) {
		for _, sqlText := range []string{"CALL report()", "/* audit */ SELECT 1", "-- x\nSELECT 1"} {
			db, mock := newMock(t)
			mock.ExpectQuery(sqlText).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(int64(1)))

			res, err := NewExecutor(time.Second).Shell(ctx, db, sqlText)
			require.NoError(t, err, sqlText)
			assert.Len(t, res.Rows, 1, sqlText)
			assert.NoError(t, mock.ExpectationsWereMet())
			db.Close()
		}
	})

	t.Run("empty text", func(t *testing.T) {
		_, err := NewExecutor(time.Second).Shell(ctx, nil, "  \n")
		assert.True(t, gwerrors.Is(err, gwerrors.ValidationError))
	})
}

func TestReturnsRows(t *testing.T) {
	for sqlText, want := range map[string]bool{
		"select 1":                             true,
		"  SHOW DATABASES":                     true,
		"(SELECT 1) UNION SELECT 2":            true,
		"with x as (select 1) select * from x": true,
		"CALL report()":                        true,
		"/* audit */ SELECT 1":                 true,
		"-- x\nSELECT 1":                       true,
		"# note\nSHOW TABLES":                  true,
		"INSERT INTO t VALUES (1); SELECT 1":   true,
		"INSERT INTO t VALUES (';select 1')":   false,
		"UPDATE t SET a = 1 /* ; select */":    false,
		"INSERT INTO t VALUES (1)":             false,
		"update t set a=1":                     false,
		"-- only a comment":                    false,
		"":                                     false,
	} {
		assert.Equal(t, want, ReturnsRows(sqlText), sqlText)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in     any
		dbType string
		want   any
	}{
		{in: []byte("42"), dbType: "INT", want: int64(42)},
		{in: []byte("18446744073709551615"), dbType: "UNSIGNED BIGINT", want: uint64(18446744073709551615)},
		{in: []byte("1.5"), dbType: "DOUBLE", want: 1.5},
		{in: []byte("12.3400"), dbType: "DECIMAL", want: "12.3400"},
		{in: []byte(`{"a":1}`), dbType: "JSON", want: json.RawMessage(`{"a":1}`)},
		{in: []byte{0xde, 0xad}, dbType: "VARBINARY", want: "0xdead"},
		{in: []byte("2024-01-02"), dbType: "DATE", want: "2024-01-02"},
		{in: int64(7), dbType: "INT", want: int64(7)},
		{in: nil, dbType: "VARCHAR", want: nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalize(tt.in, tt.dbType), tt.dbType)
	}
}

func columnNames(res *Result) []string {
	out := make([]string, len(res.Columns))
	for i, c := range res.Columns {
		out[i] = c.Name
	}
	return out
}
