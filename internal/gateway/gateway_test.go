package gateway

import (
	"context"
	"database/sql"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gwerrors "uidb/gateway/internal/errors"
	"uidb/gateway/internal/profile"
	"uidb/gateway/internal/sqlexec"
	"uidb/gateway/internal/statement"
)

type fakeCreds struct {
	profiles map[string]profile.ConnectionProfile
	resolves int
}

func newFakeCreds(ps ...profile.ConnectionProfile) *fakeCreds {
	c := &fakeCreds{profiles: map[string]profile.ConnectionProfile{}}
	for _, p := range ps {
		c.profiles[p.Principal] = p
	}
	return c
}

func (c *fakeCreds) Resolve(_ context.Context, principal string) (profile.ConnectionProfile, error) {
	c.resolves++
	p, ok := c.profiles[principal]
	if !ok {
		return profile.ConnectionProfile{}, gwerrors.New(gwerrors.NotFound, "no database connection registered")
	}
	return p, nil
}

func (c *fakeCreds) Lookup(ctx context.Context, principal string) (profile.ConnectionProfile, error) {
	p, err := c.Resolve(ctx, principal)
	p.Password = ""
	return p, err
}

func (c *fakeCreds) Exists(_ context.Context, principal string) (bool, error) {
	_, ok := c.profiles[principal]
	return ok, nil
}

func (c *fakeCreds) Register(_ context.Context, p profile.ConnectionProfile) error {
	if _, ok := c.profiles[p.Principal]; ok {
		return gwerrors.New(gwerrors.DuplicateTable, "already registered")
	}
	c.profiles[p.Principal] = p
	return nil
}

func (c *fakeCreds) Remove(_ context.Context, principal string) error {
	if _, ok := c.profiles[principal]; !ok {
		return gwerrors.New(gwerrors.NotFound, "no database connection registered")
	}
	delete(c.profiles, principal)
	return nil
}

func alice() profile.ConnectionProfile {
	return profile.ConnectionProfile{Principal: "alice", Host: "db", Port: 3306, User: "app", Password: "s3cret", Database: "shop"}
}

type harness struct {
	gw    *Gateway
	creds *fakeCreds
	mock  sqlmock.Sqlmock
	opens *atomic.Int32
}

// newHarness wires a Gateway whose every connection comes from one sqlmock handle.
// Pooling keeps that handle open across operations.
func newHarness(t *testing.T, creds *fakeCreds) *harness {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)

	opens := &atomic.Int32{}
	conns := sqlexec.NewManager(sqlexec.Options{
		ConnectTimeout:   time.Second,
		StatementTimeout: time.Second,
		Pool:             sqlexec.PoolOptions{Enabled: true, MaxOpen: 1, MaxIdle: 1, IdleTimeout: time.Minute},
		Logger:           zerolog.Nop(),
		Open: func(*mysql.Config) (*sql.DB, error) {
			opens.Add(1)
			return db, nil
		},
	})
	t.Cleanup(func() { conns.Close() })

	return &harness{
		gw:    New(creds, conns, Options{PageSize: 10, Logger: zerolog.Nop()}),
		creds: creds,
		mock:  mock,
		opens: opens,
	}
}

func validRequests() []Request {
	limit := 5
	return []Request{
		CreateTable{Table: "t", Columns: []statement.ColumnDef{{Name: "id", Type: "INT"}}},
		ListTables{},
		DescribeAndPage{Table: "t"},
		Insert{Table: "t", Row: statement.Fields{{Name: "id", Value: statement.Int(1)}}},
		BulkInsert{Table: "t", Rows: []statement.Fields{{{Name: "id", Value: statement.Int(1)}}}},
		Update{Table: "t", Set: statement.Fields{{Name: "a", Value: statement.Int(1)}}, Where: statement.Fields{{Name: "id", Value: statement.Int(1)}}},
		Delete{Table: "t", Where: statement.Fields{{Name: "id", Value: statement.Int(1)}}},
		Aggregate{Table: "t", Op: statement.OpCount, Column: "*"},
		BuildFulltextIndex{Table: "t", Columns: []string{"body"}},
		FulltextSearch{Table: "t", Columns: []string{"body"}, Term: "go"},
		OrderedSelect{Table: "t", Order: []statement.OrderTerm{{Column: "id"}}, Limit: &limit},
		AdHocQuery{SQL: "SELECT 1"},
		Shell{SQL: "SELECT 1"},
		EstimateAffectedRows{SQL: "DELETE FROM t"},
		ChartSeries{Table: "t"},
		CustomQuery{SQL: "DO 1"},
	}
}

func TestGateway_NoProfileIsNotFoundWithoutConnecting(t *testing.T) {
	h := newHarness(t, newFakeCreds())
	reqs := validRequests()
	require.Len(t, reqs, len(Kinds))

	for _, req := range reqs {
		t.Run(string(req.Kind()), func(t *testing.T) {
			res, err := h.gw.Dispatch(context.Background(), "nobody", req)
			assert.Nil(t, res)
			assert.True(t, gwerrors.Is(err, gwerrors.NotFound), "got %v", err)
		})
	}
	assert.Zero(t, h.opens.Load())
}

func TestGateway_ValidationHappensBeforeResolve(t *testing.T) {
	h := newHarness(t, newFakeCreds(alice()))

	bad := []Request{
		CreateTable{Table: "t"},
		Update{Table: "t", Set: statement.Fields{{Name: "a", Value: statement.Int(1)}}},
		OrderedSelect{Table: "t"},
		Aggregate{Table: "t", Op: "MEDIAN", Column: "x"},
		BulkInsert{Table: "t"},
		EstimateAffectedRows{SQL: "DELETE FROM a JOIN b"},
		Shell{SQL: "   "},
		DescribeAndPage{Table: "t", Page: -1},
	}
	for _, req := range bad {
		_, err := h.gw.Dispatch(context.Background(), "alice", req)
		assert.True(t, gwerrors.Is(err, gwerrors.ValidationError), "%s: %v", req.Kind(), err)
	}
	assert.Zero(t, h.creds.resolves)
	assert.Zero(t, h.opens.Load())

	_, err := h.gw.Dispatch(context.Background(), "alice", nil)
	assert.True(t, gwerrors.Is(err, gwerrors.ValidationError))
}

func TestGateway_BulkInsertRollsBackOnFailingRow(t *testing.T) {
	h := newHarness(t, newFakeCreds(alice()))
	h.mock.ExpectBegin()
	h.mock.ExpectExec("INSERT INTO `users` (`name`) VALUES ('a')").WillReturnResult(sqlmock.NewResult(1, 1))
	h.mock.ExpectExec("INSERT INTO `users` (`name`) VALUES ('b')").
		WillReturnError(&mysql.MySQLError{Number: 1406, Message: "Data too long for column 'name'"})
	h.mock.ExpectRollback()

	res, err := h.gw.BulkInsert(context.Background(), "alice", BulkInsert{
		Table: "users",
		Rows: []statement.Fields{
			{{Name: "name", Value: statement.String("a")}},
			{{Name: "name", Value: statement.String("b")}},
			{{Name: "name", Value: statement.String("c")}},
		},
	})
	assert.Nil(t, res)
	require.Error(t, err)
	assert.True(t, gwerrors.Is(err, gwerrors.ExecutionError))
	assert.Contains(t, err.Error(), "row 2")

	var e *gwerrors.E
	require.True(t, gwerrors.As(err, &e))
	assert.Contains(t, e.Detail, "Data too long")
	assert.NoError(t, h.mock.ExpectationsWereMet())
}

func TestGateway_BulkInsertCommits(t *testing.T) {
	h := newHarness(t, newFakeCreds(alice()))
	h.mock.ExpectBegin()
	h.mock.ExpectExec("INSERT INTO `users` (`name`) VALUES ('a')").WillReturnResult(sqlmock.NewResult(1, 1))
	h.mock.ExpectExec("INSERT INTO `users` (`name`) VALUES ('b')").WillReturnResult(sqlmock.NewResult(2, 1))
	h.mock.ExpectCommit()

	res, err := h.gw.BulkInsert(context.Background(), "alice", BulkInsert{
		Table: "users",
		Rows: []statement.Fields{
			{{Name: "name", Value: statement.String("a")}},
			{{Name: "name", Value: statement.String("b")}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.AffectedRows)
	assert.Equal(t, "2 rows inserted successfully", res.Message)
	assert.NoError(t, h.mock.ExpectationsWereMet())
}

func TestGateway_ZeroMatchIsNoMatchOutcome(t *testing.T) {
	h := newHarness(t, newFakeCreds(alice()))
	ctx := context.Background()

	h.mock.ExpectExec("UPDATE `users` SET `status` = 'x' WHERE `id` = 999").WillReturnResult(sqlmock.NewResult(0, 0))
	res, err := h.gw.Update(ctx, "alice", Update{
		Table: "users",
		Set:   statement.Fields{{Name: "status", Value: statement.String("x")}},
		Where: statement.Fields{{Name: "id", Value: statement.Int(999)}},
	})
	require.NoError(t, err)
	assert.True(t, res.NoMatch())
	assert.Zero(t, res.AffectedRows)
	assert.Equal(t, "UPDATE `users` SET `status` = 'x' WHERE `id` = 999", res.SQL)

	h.mock.ExpectExec("DELETE FROM `users` WHERE `id` = 999").WillReturnResult(sqlmock.NewResult(0, 0))
	res, err = h.gw.Delete(ctx, "alice", Delete{Table: "users", Where: statement.Fields{{Name: "id", Value: statement.Int(999)}}})
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoMatch, res.Outcome)

	h.mock.ExpectExec("DELETE FROM `users` WHERE `id` = 1").WillReturnResult(sqlmock.NewResult(0, 1))
	res, err = h.gw.Delete(ctx, "alice", Delete{Table: "users", Where: statement.Fields{{Name: "id", Value: statement.Int(1)}}})
	require.NoError(t, err)
	assert.Equal(t, OutcomeOK, res.Outcome)
	assert.Equal(t, int64(1), res.AffectedRows)
	assert.NoError(t, h.mock.ExpectationsWereMet())
}

func expectDescribe(mock sqlmock.Sqlmock, table string, fields ...string) {
	rows := sqlmock.NewRows([]string{"Field", "Type", "Null", "Key", "Default", "Extra"})
	for _, f := range fields {
		rows.AddRow(f, "int", "YES", "", nil, "")
	}
	mock.ExpectQuery("DESCRIBE `" + table + "`").WillReturnRows(rows)
}

func TestGateway_DescribeAndPageOffsets(t *testing.T) {
	h := newHarness(t, newFakeCreds(alice()))

	for _, tc := range []struct {
		page   int
		offset int64
	}{{page: 2, offset: 10}, {page: 3, offset: 20}} {
		expectDescribe(h.mock, "items", "id")
		rows := sqlmock.NewRows([]string{"id"})
		for i := int64(0); i < 10 && tc.offset+i < 25; i++ {
			rows.AddRow(tc.offset + i + 1)
		}
		h.mock.ExpectQuery("SELECT * FROM `items` LIMIT ? OFFSET ?").WithArgs(int64(10), tc.offset).WillReturnRows(rows)
		h.mock.ExpectQuery("SELECT COUNT(*) AS total FROM `items`").WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(int64(25)))

		res, err := h.gw.DescribeAndPage(context.Background(), "alice", DescribeAndPage{Table: "items", Page: tc.page})
		require.NoError(t, err)
		assert.Equal(t, int64(25), res.TotalItems)
		assert.Equal(t, int64(3), res.TotalPages)
		assert.Equal(t, 10, res.PageSize)
		assert.Equal(t, []any{int64(10), tc.offset}, res.Params)
		assert.Equal(t, "id", res.Schema[0].Field)
	}
	assert.NoError(t, h.mock.ExpectationsWereMet())
}

func TestGateway_OrderedSelectBindsLimit(t *testing.T) {
	h := newHarness(t, newFakeCreds(alice()))
	limit := 5
	h.mock.ExpectQuery("SELECT * FROM `people` ORDER BY `age` DESC LIMIT ?").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"name", "age"}).AddRow("ann", int64(70)))

	res, err := h.gw.OrderedSelect(context.Background(), "alice", OrderedSelect{
		Table: "people",
		Order: []statement.OrderTerm{{Column: "age", Direction: "desc"}},
		Limit: &limit,
	})
	require.NoError(t, err)
	assert.Contains(t, res.SQL, "ORDER BY `age` DESC LIMIT ?")
	st := statement.Statement{SQL: res.SQL, Args: res.Params}
	assert.Contains(t, st.Interpolate(), "ORDER BY `age` DESC LIMIT 5")
	assert.Len(t, res.Rows, 1)
	assert.NoError(t, h.mock.ExpectationsWereMet())
}

func TestGateway_AggregateBindsConditionValue(t *testing.T) {
	h := newHarness(t, newFakeCreds(alice()))
	h.mock.ExpectQuery("SELECT SUM(`amount`) AS result FROM `orders` WHERE `status` = ?").
		WithArgs("paid").
		WillReturnRows(sqlmock.NewRows([]string{"result"}).AddRow("120.50"))

	res, err := h.gw.Aggregate(context.Background(), "alice", Aggregate{
		Table: "orders", Op: "sum", Column: "amount",
		Where: statement.Fields{{Name: "status", Value: statement.String("paid")}},
	})
	require.NoError(t, err)
	assert.NotContains(t, res.SQL, "paid")
	assert.Equal(t, []any{"paid"}, res.Params)
	assert.Equal(t, "120.50", res.Scalar)
	assert.NoError(t, h.mock.ExpectationsWereMet())
}

func TestGateway_CreateTableThenDescribe(t *testing.T) {
	h := newHarness(t, newFakeCreds(alice()))
	ctx := context.Background()

	h.mock.ExpectExec("CREATE TABLE `people` (`id` INT, `name` VARCHAR(255))").WillReturnResult(sqlmock.NewResult(0, 0))
	_, err := h.gw.CreateTable(ctx, "alice", CreateTable{
		Table:   "people",
		Columns: []statement.ColumnDef{{Name: "id", Type: "INT"}, {Name: "name", Type: "VARCHAR(255)"}},
	})
	require.NoError(t, err)

	expectDescribe(h.mock, "people", "id", "name")
	h.mock.ExpectQuery("SELECT * FROM `people` LIMIT ? OFFSET ?").WithArgs(int64(10), int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))
	h.mock.ExpectQuery("SELECT COUNT(*) AS total FROM `people`").WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(int64(0)))

	res, err := h.gw.DescribeAndPage(ctx, "alice", DescribeAndPage{Table: "people"})
	require.NoError(t, err)
	require.Len(t, res.Schema, 2)
	assert.Equal(t, "id", res.Schema[0].Field)
	assert.Equal(t, "name", res.Schema[1].Field)
	assert.Zero(t, res.TotalPages)

	h.mock.ExpectExec("CREATE TABLE `people` (`id` INT)").
		WillReturnError(&mysql.MySQLError{Number: 1050, Message: "Table 'people' already exists"})
	_, err = h.gw.CreateTable(ctx, "alice", CreateTable{Table: "people", Columns: []statement.ColumnDef{{Name: "id", Type: "INT"}}})
	assert.True(t, gwerrors.Is(err, gwerrors.DuplicateTable))
	assert.NoError(t, h.mock.ExpectationsWereMet())
}

func TestGateway_EstimateAffectedRows(t *testing.T) {
	h := newHarness(t, newFakeCreds(alice()))
	h.mock.ExpectQuery("SELECT COUNT(*) AS estimated FROM `orders` WHERE status = 'void'").
		WillReturnRows(sqlmock.NewRows([]string{"estimated"}).AddRow(int64(3)))

	res, err := h.gw.EstimateAffectedRows(context.Background(), "alice", EstimateAffectedRows{SQL: "DELETE FROM orders WHERE status = 'void'"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Scalar)
	assert.NoError(t, h.mock.ExpectationsWereMet())
}

func TestGateway_ChartSeries(t *testing.T) {
	h := newHarness(t, newFakeCreds(alice()))
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	h.mock.ExpectQuery("SELECT DATE(`created_at`) AS d, COUNT(*) AS c FROM `orders` GROUP BY d ORDER BY d").
		WillReturnRows(sqlmock.NewRows([]string{"d", "c"}).AddRow(day, int64(4)).AddRow(day.AddDate(0, 0, 1), int64(2)))

	res, err := h.gw.ChartSeries(context.Background(), "alice", ChartSeries{Table: "orders"})
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-03-01", "2024-03-02"}, res.Labels)
	assert.Equal(t, []int64{4, 2}, res.Series)
}

func TestGateway_ShellAndQueries(t *testing.T) {
	h := newHarness(t, newFakeCreds(alice()))
	ctx := context.Background()

	h.mock.ExpectQuery("SELECT 1 AS a; SELECT 2 AS b").
		WillReturnRows(sqlmock.NewRows([]string{"a"}).AddRow(int64(1)), sqlmock.NewRows([]string{"b"}).AddRow(int64(2)))
	res, err := h.gw.Shell(ctx, "alice", Shell{SQL: "SELECT 1 AS a; SELECT 2 AS b"})
	require.NoError(t, err)
	require.NotNil(t, res.Raw)
	assert.Len(t, res.Raw.Sets, 2)
	assert.Contains(t, res.Summary, "2 result sets")

	h.mock.ExpectExec("DROP TABLE old").WillReturnResult(sqlmock.NewResult(0, 0))
	res, err = h.gw.Shell(ctx, "alice", Shell{SQL: "DROP TABLE old"})
	require.NoError(t, err)
	assert.Equal(t, "Query executed successfully. Affected rows: 0", res.Summary)

	h.mock.ExpectQuery("SELECT * FROM users WHERE id = ?").WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	res, err = h.gw.AdHocQuery(ctx, "alice", AdHocQuery{SQL: "SELECT * FROM users WHERE id = ?", Params: []statement.Value{statement.Int(7)}})
	require.NoError(t, err)
	assert.Equal(t, "id", res.Columns[0].Name)

	h.mock.ExpectExec("UPDATE users SET a = 1").WillReturnResult(sqlmock.NewResult(0, 12))
	res, err = h.gw.CustomQuery(ctx, "alice", CustomQuery{SQL: "UPDATE users SET a = 1"})
	require.NoError(t, err)
	assert.Equal(t, int64(12), res.AffectedRows)
	assert.NoError(t, h.mock.ExpectationsWereMet())
}

func TestGateway_ConnectionFailureIsConnectionError(t *testing.T) {
	conns := sqlexec.NewManager(sqlexec.Options{
		Open: func(*mysql.Config) (*sql.DB, error) { return nil, errors.New("dial tcp: connection refused") },
	})
	gw := New(newFakeCreds(alice()), conns, Options{Logger: zerolog.Nop()})

	_, err := gw.ListTables(context.Background(), "alice")
	assert.True(t, gwerrors.Is(err, gwerrors.ConnectionError))
}

func TestGateway_ConnectProfileDisconnect(t *testing.T) {
	h := newHarness(t, newFakeCreds())
	ctx := context.Background()

	require.NoError(t, h.gw.Connect(ctx, alice()))
	assert.Equal(t, int32(1), h.opens.Load())

	err := h.gw.Connect(ctx, alice())
	assert.True(t, gwerrors.Is(err, gwerrors.DuplicateTable))
	assert.Equal(t, int32(1), h.opens.Load())

	p, err := h.gw.Profile(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, p.Password)
	assert.Equal(t, "shop", p.Database)

	require.NoError(t, h.gw.Disconnect(ctx, "alice"))
	_, err = h.gw.Profile(ctx, "alice")
	assert.True(t, gwerrors.Is(err, gwerrors.NotFound))

	err = h.gw.Connect(ctx, profile.ConnectionProfile{Principal: "alice"})
	assert.True(t, gwerrors.Is(err, gwerrors.ValidationError))
}

func TestGateway_InsertIndexAndSearch(t *testing.T) {
	h := newHarness(t, newFakeCreds(alice()))
	ctx := context.Background()

	h.mock.ExpectQuery("SHOW TABLES").WillReturnRows(sqlmock.NewRows([]string{"Tables_in_shop"}).AddRow("posts"))
	res, err := h.gw.ListTables(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"posts"}, res.Tables)

	h.mock.ExpectExec("INSERT INTO `posts` (`title`, `body`) VALUES ('Go', 'it\\'s fast')").
		WillReturnResult(sqlmock.NewResult(9, 1))
	res, err = h.gw.Insert(ctx, "alice", Insert{Table: "posts", Row: statement.Fields{
		{Name: "title", Value: statement.String("Go")},
		{Name: "body", Value: statement.String("it's fast")},
	}})
	require.NoError(t, err)
	assert.Equal(t, "Data inserted successfully", res.Message)
	assert.Equal(t, int64(9), res.LastInsertID)
	assert.Equal(t, "INSERT INTO `posts` (`title`, `body`) VALUES ('Go', 'it\\'s fast')", res.SQL)

	h.mock.ExpectExec("ALTER TABLE `posts` ADD FULLTEXT(`title`, `body`)").WillReturnResult(sqlmock.NewResult(0, 0))
	res, err = h.gw.BuildFulltextIndex(ctx, "alice", BuildFulltextIndex{Table: "posts", Columns: []string{"title", "body"}})
	require.NoError(t, err)
	assert.Equal(t, "FULLTEXT index created successfully", res.Message)

	h.mock.ExpectQuery("SELECT * FROM `posts` WHERE MATCH(`title`, `body`) AGAINST (? IN BOOLEAN MODE)").
		WithArgs("+go").
		WillReturnRows(sqlmock.NewRows([]string{"title"}))
	res, err = h.gw.FulltextSearch(ctx, "alice", FulltextSearch{
		Table: "posts", Columns: []string{"title", "body"}, Term: "+go", Mode: statement.ModeBoolean,
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeOK, res.Outcome)
	assert.Equal(t, "No results found", res.Message)
	assert.Empty(t, res.Rows)
	assert.Equal(t, []any{"+go"}, res.Params)

	assert.NoError(t, h.mock.ExpectationsWereMet())
}

func TestGateway_UnpooledHandlesAreClosedOnFailure(t *testing.T) {
	var mocks []sqlmock.Sqlmock
	conns := sqlexec.NewManager(sqlexec.Options{
		ConnectTimeout:   time.Second,
		StatementTimeout: time.Second,
		Pool:             sqlexec.PoolOptions{Enabled: false},
		Logger:           zerolog.Nop(),
		Open: func(*mysql.Config) (*sql.DB, error) {
			db, mock, err := sqlmock.New()
			if err != nil {
				return nil, err
			}
			switch len(mocks) {
			case 0:
				mock.ExpectExec("INSERT INTO `users`").
					WillReturnError(&mysql.MySQLError{Number: 1054, Message: "Unknown column 'nme' in 'field list'"})
			default:
				mock.ExpectQuery("SELECT MAX").WillReturnError(&mysql.MySQLError{Number: 1064, Message: "syntax error"})
			}
			mock.ExpectClose()
			mocks = append(mocks, mock)
			return db, nil
		},
	})
	t.Cleanup(func() { conns.Close() })
	gw := New(newFakeCreds(alice()), conns, Options{PageSize: 10, Logger: zerolog.Nop()})
	ctx := context.Background()

	_, err := gw.Insert(ctx, "alice", Insert{Table: "users", Row: statement.Fields{{Name: "nme", Value: statement.String("a")}}})
	assert.True(t, gwerrors.Is(err, gwerrors.ExecutionError), "%v", err)

	_, err = gw.Aggregate(ctx, "alice", Aggregate{Table: "users", Op: statement.OpMax, Column: "age"})
	assert.True(t, gwerrors.Is(err, gwerrors.ExecutionError), "%v", err)

	// rejected before a handle is opened
	_, err = gw.Insert(ctx, "alice", Insert{Table: "users"})
	assert.True(t, gwerrors.Is(err, gwerrors.ValidationError), "%v", err)
	_, err = gw.Aggregate(ctx, "alice", Aggregate{Table: "users", Op: "median", Column: "age"})
	assert.True(t, gwerrors.Is(err, gwerrors.ValidationError), "%v", err)

	require.Len(t, mocks, 2)
	for i, mock := range mocks {
		assert.NoError(t, mock.ExpectationsWereMet(), "handle %d", i)
	}
}
