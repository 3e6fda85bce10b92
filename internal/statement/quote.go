// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package statement

import (
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	gwerrors "uidb/gateway/internal/errors"
)

const dateLayout = "2006-01-02 15:04:05.999999"

// QuoteIdent quotes a table or column name with backticks. Embedded backticks are
// doubled, and a dotted name such as "shop.orders" is quoted per segment.
func QuoteIdent(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", gwerrors.New(gwerrors.ValidationError, "identifier must not be empty")
	}
	if strings.ContainsRune(name, 0) {
		return "", gwerrors.Newf(gwerrors.ValidationError, "identifier %q contains a NUL byte", name)
	}
	parts := strings.Split(name, ".")
	for i, p := range parts {
		if p == "" {
			return "", gwerrors.Newf(gwerrors.ValidationError, "identifier %q has an empty segment", name)
		}
		parts[i] = "`" + strings.ReplaceAll(p, "`", "``") + "`"
	}
	return strings.Join(parts, "."), nil
}

// quoteIdents quotes every name and joins them with ", ".
func quoteIdents(names []string) (string, error) {
	out := make([]string, len(names))
	for i, n := range names {
		q, err := QuoteIdent(n)
		if err != nil {
			return "", err
		}
		out[i] = q
	}
	return strings.Join(out, ", "), nil
}

// EscapeValue renders v as a MySQL literal.
func EscapeValue(v Value) string {
	switch v.kind {
	case KindString:
		return quoteString(v.str)
	case KindNumber:
		return v.str
	case KindBool:
		if v.b {
			return "TRUE"
		}
		return "FALSE"
	case KindDate:
		return "'" + v.t.Format(dateLayout) + "'"
	default:
		return "NULL"
	}
}

var stringEscaper = strings.NewReplacer(
	"\x00", `\0`,
	"\n", `\n`,
	"\r", `\r`,
	"\x1a", `\Z`,
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
)

func quoteString(s string) string {
	return "'" + stringEscaper.Replace(s) + "'"
}

// escapeArg renders a bound driver argument as a literal.
func escapeArg(a any) string {
	switch t := a.(type) {
	case nil:
		return "NULL"
	case string:
		return quoteString(t)
	case []byte:
		return "X'" + hex.EncodeToString(t) + "'"
	case bool:
		return EscapeValue(Bool(t))
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case time.Time:
		return EscapeValue(Date(t))
	case Value:
		return EscapeValue(t)
	default:
		v, err := FromAny(a)
		if err != nil {
			return "NULL"
		}
		return EscapeValue(v)
	}
}

// Statement is generated SQL text plus the parameters bound to its placeholders.
type Statement struct {
	SQL  string
	Args []any
}

// Interpolate renders the statement with every placeholder replaced by its escaped
// argument. The result is for display and logging; execution always binds Args.
func (s Statement) Interpolate() string {
	if len(s.Args) == 0 {
		return s.SQL
	}
	var b strings.Builder
	b.Grow(len(s.SQL) + 16*len(s.Args))
	next := 0
	var quote byte
	for i := 0; i < len(s.SQL); i++ {
		c := s.SQL[i]
		switch {
		case quote != 0:
			b.WriteByte(c)
			if c == '\\' && quote != '`' && i+1 < len(s.SQL) {
				i++
				b.WriteByte(s.SQL[i])
			} else if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
			b.WriteByte(c)
		case c == '?' && next < len(s.Args):
			b.WriteString(escapeArg(s.Args[next]))
			next++
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func (s Statement) String() string { return s.Interpolate() }
