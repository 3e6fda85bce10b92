// Package sqlexec executes gateway statements against a principal's external MySQL
// database and shapes what comes back.
//
// Key pieces:
//   - Manager: the connection lifecycle (acquire, release, transactions, optional pooling)
//   - Executor: statement execution under a per-statement deadline
//   - Result: ordered rows with column metadata, affected-row counts and multi-set shell output
//   - Inspector: table listing and DESCRIBE shaping
//
// Driver failures are classified into the gateway error kinds here, so callers
// only ever see ConnectionError, ExecutionError or DuplicateTable from this package.
package sqlexec

import (
	"context"
	"database/sql"
	"strings"
	"time"

	gwerrors "uidb/gateway/internal/errors"
	"uidb/gateway/internal/statement"
)

// Runner is satisfied by *sql.Conn and *sql.Tx.
type Runner interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Executor runs statements with a deadline.
type Executor struct {
	timeout time.Duration
}

// NewExecutor creates an Executor. A non-positive timeout disables the deadline.
func NewExecutor(timeout time.Duration) *Executor {
	return &Executor{timeout: timeout}
}

func (e *Executor) deadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.timeout)
}

// Query runs a row-returning statement.
func (e *Executor) Query(ctx context.Context, r Runner, st statement.Statement) (*Result, error) {
	sctx, cancel := e.deadline(ctx)
	defer cancel()

	rows, err := r.QueryContext(sctx, st.SQL, st.Args...)
	if err != nil {
		return nil, classifyExec(sctx, err, "query failed")
	}
	defer rows.Close()

	res, err := collect(rows)
	if err != nil {
		return nil, classifyExec(sctx, err, "reading rows failed")
	}
	return &res, nil
}

// Exec runs a statement that returns no rows.
func (e *Executor) Exec(ctx context.Context, r Runner, st statement.Statement) (*Result, error) {
	sctx, cancel := e.deadline(ctx)
	defer cancel()

	out, err := r.ExecContext(sctx, st.SQL, st.Args...)
	if err != nil {
		return nil, classifyExec(sctx, err, "statement failed")
	}
	res := &Result{Columns: []ColumnMeta{}, Rows: []Row{}}
	if res.RowsAffected, err = out.RowsAffected(); err != nil {
		return nil, classifyExec(sctx, err, "reading affected rows failed")
	}
	// not every statement produces an id; the error is expected then
	res.LastInsertID, _ = out.LastInsertId()
	return res, nil
}

// Shell runs free-form SQL over the text protocol. Statements that produce rows
// have every result set collected; anything else reports affected rows.
func (e *Executor) Shell(ctx context.Context, r Runner, sqlText string) (*Result, error) {
	if strings.TrimSpace(sqlText) == "" {
		return nil, gwerrors.New(gwerrors.ValidationError, "statement is empty")
	}
	if !ReturnsRows(sqlText) {
		return e.Exec(ctx, r, statement.Statement{SQL: sqlText})
	}

	sctx, cancel := e.deadline(ctx)
	defer cancel()

	rows, err := r.QueryContext(sctx, sqlText)
	if err != nil {
		return nil, classifyExec(sctx, err, "query failed")
	}
	defer rows.Close()

	var sets []Result
	for {
		set, err := collect(rows)
		if err != nil {
			return nil, classifyExec(sctx, err, "reading rows failed")
		}
		// write statements in a batch leave column-less sets behind
		if len(set.Columns) > 0 {
			sets = append(sets, set)
		}
		if !rows.NextResultSet() {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, classifyExec(sctx, err, "reading rows failed")
	}

	if len(sets) == 0 {
		return &Result{Columns: []ColumnMeta{}, Rows: []Row{}}, nil
	}
	res := sets[0]
	if len(sets) > 1 {
		res.Sets = sets
	}
	return &res, nil
}

var rowKeywords = map[string]bool{
	"SELECT": true, "SHOW": true, "DESCRIBE": true, "DESC": true,
	"EXPLAIN": true, "WITH": true, "TABLE": true, "VALUES": true,
	"CALL": true,
}

// ReturnsRows reports whether any statement in sqlText may yield a result set,
// judged by its leading keyword. Comments and quoted text are skipped.
func ReturnsRows(sqlText string) bool {
	for _, lead := range leadingWords(sqlText) {
		if lead == "(" || rowKeywords[lead] {
			return true
		}
	}
	return false
}

// leadingWords returns the upper-cased first word of every statement in sqlText.
// A statement opening with a parenthesis is reported as "(".
func leadingWords(sqlText string) []string {
	var (
		out   []string
		fresh = true
	)
	s := sqlText
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '#' || c == '-' && strings.HasPrefix(s[i:], "--") && (i+2 == len(s) || strings.ContainsRune(" \t\r\n", rune(s[i+2]))):
			if j := strings.IndexByte(s[i:], '\n'); j >= 0 {
				i += j + 1
			} else {
				i = len(s)
			}
		case c == '/' && strings.HasPrefix(s[i:], "/*"):
			if j := strings.Index(s[i+2:], "*/"); j >= 0 {
				i += j + 4
			} else {
				i = len(s)
			}
		case c == ';':
			fresh = true
			i++
		case c == '\'' || c == '"' || c == '`':
			i = skipQuoted(s, i)
			fresh = false
		default:
			if fresh {
				if c == '(' {
					out = append(out, "(")
				} else {
					end := strings.IndexFunc(s[i:], func(r rune) bool {
						return !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z')
					})
					if end == -1 {
						end = len(s) - i
					}
					out = append(out, strings.ToUpper(s[i:i+end]))
				}
				fresh = false
			}
			i++
		}
	}
	return out
}

// skipQuoted returns the index just past the quoted run starting at i.
func skipQuoted(s string, i int) int {
	q := s[i]
	for j := i + 1; j < len(s); j++ {
		switch {
		case s[j] == '\\' && q != '`':
			j++
		case s[j] == q:
			if j+1 < len(s) && s[j+1] == q {
				j++
				continue
			}
			return j + 1
		}
	}
	return len(s)
}
