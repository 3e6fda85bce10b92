// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package gateway

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	gwerrors "uidb/gateway/internal/errors"
	"uidb/gateway/internal/sqlexec"
	"uidb/gateway/internal/statement"
)

// single wraps the common case of one statement executed through fn.
func (g *Gateway) single(kind Kind, build func() (statement.Statement, error),
	fn func(ctx context.Context, c *sqlexec.Conn, st statement.Statement) (*Result, error)) operation {
	var st statement.Statement
	return operation{
		kind: kind,
		mode: sqlexec.ModeStandard,
		prepare: func() (err error) {
			st, err = build()
			return err
		},
		exec: func(ctx context.Context, c *sqlexec.Conn) (*Result, error) {
			res, err := fn(ctx, c, st)
			if err != nil {
				return nil, err
			}
			res.SQL, res.Params = st.SQL, st.Args
			return res, nil
		},
	}
}

// CreateTable creates a table. An existing table yields DuplicateTable.
func (g *Gateway) CreateTable(ctx context.Context, principal string, req CreateTable) (*Result, error) {
	return g.run(ctx, principal, g.single(KindCreateTable,
		func() (statement.Statement, error) { return statement.CreateTable(req.Table, req.Columns) },
		func(ctx context.Context, c *sqlexec.Conn, st statement.Statement) (*Result, error) {
			if _, err := g.exec.Exec(ctx, c.Raw(), st); err != nil {
				return nil, err
			}
			return &Result{Message: fmt.Sprintf("Table %s created successfully", req.Table)}, nil
		}))
}

// ListTables lists the tables of the principal's database.
func (g *Gateway) ListTables(ctx context.Context, principal string) (*Result, error) {
	return g.run(ctx, principal, g.single(KindListTables,
		func() (statement.Statement, error) { return statement.ListTables(), nil },
		func(ctx context.Context, c *sqlexec.Conn, _ statement.Statement) (*Result, error) {
			tables, err := g.inspector.Tables(ctx, c.Raw())
			if err != nil {
				return nil, err
			}
			return &Result{Message: fmt.Sprintf("%d tables", len(tables)), Tables: tables}, nil
		}))
}

// DescribeAndPage returns the table layout, one page of rows and the row total.
func (g *Gateway) DescribeAndPage(ctx context.Context, principal string, req DescribeAndPage) (*Result, error) {
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = g.pageSize
	}
	var page, count statement.Statement
	return g.run(ctx, principal, operation{
		kind: KindDescribeAndPage,
		mode: sqlexec.ModeStandard,
		prepare: func() (err error) {
			if _, err = statement.Describe(req.Table); err != nil {
				return err
			}
			if page, err = statement.Page(req.Table, req.Page, req.PageSize); err != nil {
				return err
			}
			count, err = statement.Count(req.Table)
			return err
		},
		exec: func(ctx context.Context, c *sqlexec.Conn) (*Result, error) {
			schema, describe, err := g.inspector.Describe(ctx, c.Raw(), req.Table)
			if err != nil {
				return nil, err
			}
			rows, err := g.exec.Query(ctx, c.Raw(), page)
			if err != nil {
				return nil, err
			}
			counted, err := g.exec.Query(ctx, c.Raw(), count)
			if err != nil {
				return nil, err
			}
			v, _ := counted.Scalar("total")
			total, ok := toInt64(v)
			if !ok {
				return nil, gwerrors.Newf(gwerrors.ExecutionError, "unexpected row count %v", v)
			}

			res := (&Result{
				Message:    fmt.Sprintf("Page %d of %s", req.Page, req.Table),
				SQL:        strings.Join([]string{describe.SQL, page.SQL, count.SQL}, ";\n"),
				Params:     page.Args,
				Schema:     schema,
				TotalItems: total,
				Page:       req.Page,
				PageSize:   req.PageSize,
				TotalPages: (total + int64(req.PageSize) - 1) / int64(req.PageSize),
			}).withRows(rows)
			return res, nil
		},
	})
}

// Insert writes one row.
func (g *Gateway) Insert(ctx context.Context, principal string, req Insert) (*Result, error) {
	return g.run(ctx, principal, g.single(KindInsert,
		func() (statement.Statement, error) { return statement.Insert(req.Table, req.Row) },
		func(ctx context.Context, c *sqlexec.Conn, st statement.Statement) (*Result, error) {
			out, err := g.exec.Exec(ctx, c.Raw(), st)
			if err != nil {
				return nil, err
			}
			return &Result{
				Message:      "Data inserted successfully",
				AffectedRows: out.RowsAffected,
				LastInsertID: out.LastInsertID,
			}, nil
		}))
}

// BulkInsert writes every row inside one transaction. A failing row rolls the
// whole batch back and its error is returned.
func (g *Gateway) BulkInsert(ctx context.Context, principal string, req BulkInsert) (*Result, error) {
	var stmts []statement.Statement
	return g.run(ctx, principal, operation{
		kind: KindBulkInsert,
		mode: sqlexec.ModeStandard,
		prepare: func() error {
			if len(req.Rows) == 0 {
				return gwerrors.New(gwerrors.ValidationError, "at least one row is required")
			}
			stmts = make([]statement.Statement, len(req.Rows))
			for i, row := range req.Rows {
				st, err := statement.Insert(req.Table, row)
				if err != nil {
					return fmt.Errorf("row %d: %w", i+1, err)
				}
				stmts[i] = st
			}
			return nil
		},
		exec: func(ctx context.Context, c *sqlexec.Conn) (*Result, error) {
			var affected int64
			err := g.conns.WithTransaction(ctx, c, func(tx *sql.Tx) error {
				for i, st := range stmts {
					out, err := g.exec.Exec(ctx, tx, st)
					if err != nil {
						var e *gwerrors.E
						if gwerrors.As(err, &e) {
							e.Message = fmt.Sprintf("row %d: %s", i+1, e.Message)
						}
						return err
					}
					affected += out.RowsAffected
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
			sqls := make([]string, len(stmts))
			for i, st := range stmts {
				sqls[i] = st.SQL
			}
			return &Result{
				Message:      fmt.Sprintf("%s inserted successfully", pluralRows(int64(len(stmts)))),
				SQL:          strings.Join(sqls, ";\n"),
				AffectedRows: affected,
			}, nil
		},
	})
}

// Update sets columns on matching rows. Zero matches is OutcomeNoMatch, not an error.
func (g *Gateway) Update(ctx context.Context, principal string, req Update) (*Result, error) {
	return g.run(ctx, principal, g.single(KindUpdate,
		func() (statement.Statement, error) { return statement.Update(req.Table, req.Set, req.Where) },
		func(ctx context.Context, c *sqlexec.Conn, st statement.Statement) (*Result, error) {
			return g.write(ctx, c, st, "update", "updated")
		}))
}

// Delete removes matching rows. Zero matches is OutcomeNoMatch, not an error.
func (g *Gateway) Delete(ctx context.Context, principal string, req Delete) (*Result, error) {
	return g.run(ctx, principal, g.single(KindDelete,
		func() (statement.Statement, error) { return statement.Delete(req.Table, req.Where) },
		func(ctx context.Context, c *sqlexec.Conn, st statement.Statement) (*Result, error) {
			return g.write(ctx, c, st, "delete", "deleted")
		}))
}

func (g *Gateway) write(ctx context.Context, c *sqlexec.Conn, st statement.Statement, verb, past string) (*Result, error) {
	out, err := g.exec.Exec(ctx, c.Raw(), st)
	if err != nil {
		return nil, err
	}
	if out.RowsAffected == 0 {
		return &Result{
			Message: fmt.Sprintf("No matching records found to %s", verb),
			Outcome: OutcomeNoMatch,
		}, nil
	}
	return &Result{
		Message:      fmt.Sprintf("Data %s successfully", past),
		AffectedRows: out.RowsAffected,
	}, nil
}

// Aggregate computes COUNT, SUM, AVG, MAX or MIN. The value is in Result.Scalar.
func (g *Gateway) Aggregate(ctx context.Context, principal string, req Aggregate) (*Result, error) {
	return g.run(ctx, principal, g.single(KindAggregate,
		func() (statement.Statement, error) {
			return statement.Aggregate(req.Op, req.Table, req.Column, req.Where)
		},
		func(ctx context.Context, c *sqlexec.Conn, st statement.Statement) (*Result, error) {
			out, err := g.exec.Query(ctx, c.Raw(), st)
			if err != nil {
				return nil, err
			}
			v, _ := out.Scalar("result")
			return (&Result{
				Message: fmt.Sprintf("%s(%s) computed", strings.ToUpper(string(req.Op)), req.Column),
				Scalar:  v,
			}).withRows(out), nil
		}))
}

// BuildFulltextIndex adds a FULLTEXT index over the columns.
func (g *Gateway) BuildFulltextIndex(ctx context.Context, principal string, req BuildFulltextIndex) (*Result, error) {
	return g.run(ctx, principal, g.single(KindBuildFulltextIndex,
		func() (statement.Statement, error) { return statement.FulltextIndex(req.Table, req.Columns) },
		func(ctx context.Context, c *sqlexec.Conn, st statement.Statement) (*Result, error) {
			if _, err := g.exec.Exec(ctx, c.Raw(), st); err != nil {
				return nil, err
			}
			return &Result{Message: "FULLTEXT index created successfully"}, nil
		}))
}

// FulltextSearch runs MATCH … AGAINST with the term bound.
func (g *Gateway) FulltextSearch(ctx context.Context, principal string, req FulltextSearch) (*Result, error) {
	return g.run(ctx, principal, g.single(KindFulltextSearch,
		func() (statement.Statement, error) {
			return statement.FulltextSearch(req.Table, req.Columns, req.Term, req.Mode)
		},
		func(ctx context.Context, c *sqlexec.Conn, st statement.Statement) (*Result, error) {
			out, err := g.exec.Query(ctx, c.Raw(), st)
			if err != nil {
				return nil, err
			}
			return (&Result{Message: found(len(out.Rows))}).withRows(out), nil
		}))
}

// OrderedSelect reads rows in the requested order.
func (g *Gateway) OrderedSelect(ctx context.Context, principal string, req OrderedSelect) (*Result, error) {
	return g.run(ctx, principal, g.single(KindOrderedSelect,
		func() (statement.Statement, error) {
			return statement.OrderedSelect(req.Table, req.Order, req.Limit, req.Offset)
		},
		func(ctx context.Context, c *sqlexec.Conn, st statement.Statement) (*Result, error) {
			out, err := g.exec.Query(ctx, c.Raw(), st)
			if err != nil {
				return nil, err
			}
			return (&Result{Message: found(len(out.Rows))}).withRows(out), nil
		}))
}

// AdHocQuery runs caller SQL with bound parameters and returns rows with column
// metadata.
func (g *Gateway) AdHocQuery(ctx context.Context, principal string, req AdHocQuery) (*Result, error) {
	return g.run(ctx, principal, g.single(KindAdHocQuery,
		func() (statement.Statement, error) {
			if strings.TrimSpace(req.SQL) == "" {
				return statement.Statement{}, gwerrors.New(gwerrors.ValidationError, "query is required")
			}
			st := statement.Statement{SQL: req.SQL}
			for _, p := range req.Params {
				st.Args = append(st.Args, p.Arg())
			}
			return st, nil
		},
		func(ctx context.Context, c *sqlexec.Conn, st statement.Statement) (*Result, error) {
			out, err := g.exec.Query(ctx, c.Raw(), st)
			if err != nil {
				return nil, err
			}
			return (&Result{Message: found(len(out.Rows))}).withRows(out), nil
		}))
}

// Shell runs caller SQL over the text protocol on a multi-statement connection.
// The raw result, every result set included, is returned alongside a summary.
func (g *Gateway) Shell(ctx context.Context, principal string, req Shell) (*Result, error) {
	return g.run(ctx, principal, operation{
		kind: KindShell,
		mode: sqlexec.ModeShell,
		prepare: func() error {
			if strings.TrimSpace(req.SQL) == "" {
				return gwerrors.New(gwerrors.ValidationError, "statement is required")
			}
			return nil
		},
		exec: func(ctx context.Context, c *sqlexec.Conn) (*Result, error) {
			out, err := g.exec.Shell(ctx, c.Raw(), req.SQL)
			if err != nil {
				return nil, err
			}
			res := (&Result{SQL: req.SQL, Raw: out, AffectedRows: out.RowsAffected}).withRows(out)
			switch {
			case len(out.Sets) > 1:
				res.Summary = fmt.Sprintf("Query executed successfully. %d result sets returned", len(out.Sets))
			case len(out.Columns) > 0:
				res.Summary = fmt.Sprintf("Query executed successfully. %s returned", pluralRows(int64(len(out.Rows))))
			default:
				res.Summary = fmt.Sprintf("Query executed successfully. Affected rows: %d", out.RowsAffected)
			}
			res.Message = res.Summary
			return res, nil
		},
	})
}

// EstimateAffectedRows counts the rows a DELETE would remove by running the same
// WHERE clause under SELECT COUNT(*).
func (g *Gateway) EstimateAffectedRows(ctx context.Context, principal string, req EstimateAffectedRows) (*Result, error) {
	return g.run(ctx, principal, g.single(KindEstimateAffectedRows,
		func() (statement.Statement, error) { return statement.EstimateDelete(req.SQL) },
		func(ctx context.Context, c *sqlexec.Conn, st statement.Statement) (*Result, error) {
			out, err := g.exec.Query(ctx, c.Raw(), st)
			if err != nil {
				return nil, err
			}
			v, _ := out.Scalar("estimated")
			n, ok := toInt64(v)
			if !ok {
				return nil, gwerrors.Newf(gwerrors.ExecutionError, "unexpected row count %v", v)
			}
			return &Result{
				Message: fmt.Sprintf("The statement would delete %s", pluralRows(n)),
				Scalar:  n,
			}, nil
		}))
}

// ChartSeries counts rows per day of created_at as parallel label and count slices.
func (g *Gateway) ChartSeries(ctx context.Context, principal string, req ChartSeries) (*Result, error) {
	return g.run(ctx, principal, g.single(KindChartSeries,
		func() (statement.Statement, error) { return statement.ChartSeries(req.Table) },
		func(ctx context.Context, c *sqlexec.Conn, st statement.Statement) (*Result, error) {
			out, err := g.exec.Query(ctx, c.Raw(), st)
			if err != nil {
				return nil, err
			}
			res := &Result{
				Message: fmt.Sprintf("%s Records", req.Table),
				Labels:  make([]string, 0, len(out.Rows)),
				Series:  make([]int64, 0, len(out.Rows)),
			}
			for _, row := range out.Rows {
				d, _ := row.Get("d")
				cv, _ := row.Get("c")
				n, ok := toInt64(cv)
				if !ok {
					return nil, gwerrors.Newf(gwerrors.ExecutionError, "unexpected count %v", cv)
				}
				res.Labels = append(res.Labels, dayLabel(d))
				res.Series = append(res.Series, n)
			}
			return res, nil
		}))
}

// CustomQuery runs caller SQL and reports affected rows only.
func (g *Gateway) CustomQuery(ctx context.Context, principal string, req CustomQuery) (*Result, error) {
	return g.run(ctx, principal, g.single(KindCustomQuery,
		func() (statement.Statement, error) {
			if strings.TrimSpace(req.SQL) == "" {
				return statement.Statement{}, gwerrors.New(gwerrors.ValidationError, "query is required")
			}
			return statement.Statement{SQL: req.SQL}, nil
		},
		func(ctx context.Context, c *sqlexec.Conn, st statement.Statement) (*Result, error) {
			out, err := g.exec.Exec(ctx, c.Raw(), st)
			if err != nil {
				return nil, err
			}
			return &Result{Message: "Query executed successfully", AffectedRows: out.RowsAffected}, nil
		}))
}

func found(n int) string {
	if n == 0 {
		return "No results found"
	}
	return fmt.Sprintf("%d results", n)
}

func toInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case int:
		return int64(t), true
	case uint64:
		return int64(t), true
	case float64:
		return int64(t), true
	case json.Number:
		n, err := t.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		return n, err == nil
	case []byte:
		n, err := strconv.ParseInt(string(t), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// dayLabel renders a DATE value. With parseTime the driver returns time.Time.
func dayLabel(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case time.Time:
		return t.Format(time.DateOnly)
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}
