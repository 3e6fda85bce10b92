// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package statement

import (
	"strings"
	"unicode"

	gwerrors "uidb/gateway/internal/errors"
)

type tokenKind int

const (
	tokWord   tokenKind = iota // bare keyword or identifier
	tokIdent                   // `quoted identifier`
	tokString                  // 'string' or "string"
	tokPunct                   // any other single character
)

type token struct {
	kind       tokenKind
	text       string // raw text for words/punct, unquoted name for identifiers
	start, end int    // byte range in the source
	depth      int    // parenthesis depth at the token
}

// tokenize splits a statement into coarse tokens. It understands quoting and
// parenthesis nesting, which is all the DELETE rewrite needs. Comments are left
// as punctuation and rejected by the caller.
func tokenize(sql string) ([]token, error) {
	var toks []token
	depth := 0
	for i := 0; i < len(sql); {
		c := sql[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '`':
			var name strings.Builder
			j := i + 1
			for {
				if j >= len(sql) {
					return nil, gwerrors.New(gwerrors.ValidationError, "unterminated quoted identifier")
				}
				if sql[j] == '`' {
					if j+1 < len(sql) && sql[j+1] == '`' {
						name.WriteByte('`')
						j += 2
						continue
					}
					break
				}
				name.WriteByte(sql[j])
				j++
			}
			toks = append(toks, token{kind: tokIdent, text: name.String(), start: i, end: j + 1, depth: depth})
			i = j + 1
		case c == '\'' || c == '"':
			j := i + 1
			for {
				if j >= len(sql) {
					return nil, gwerrors.New(gwerrors.ValidationError, "unterminated string literal")
				}
				if sql[j] == '\\' {
					j += 2
					continue
				}
				if sql[j] == c {
					if j+1 < len(sql) && sql[j+1] == c {
						j += 2
						continue
					}
					break
				}
				j++
			}
			toks = append(toks, token{kind: tokString, text: sql[i : j+1], start: i, end: j + 1, depth: depth})
			i = j + 1
		case isWordByte(c):
			j := i
			for j < len(sql) && isWordByte(sql[j]) {
				j++
			}
			toks = append(toks, token{kind: tokWord, text: sql[i:j], start: i, end: j, depth: depth})
			i = j
		default:
			if c == ')' {
				depth--
				if depth < 0 {
					return nil, gwerrors.New(gwerrors.ValidationError, "unbalanced parentheses")
				}
			}
			toks = append(toks, token{kind: tokPunct, text: string(c), start: i, end: i + 1, depth: depth})
			if c == '(' {
				depth++
			}
			i++
		}
	}
	if depth != 0 {
		return nil, gwerrors.New(gwerrors.ValidationError, "unbalanced parentheses")
	}
	return toks, nil
}

func isWordByte(c byte) bool {
	return c == '_' || c == '$' || c >= 0x80 || unicode.IsLetter(rune(c)) || unicode.IsDigit(rune(c))
}

func (t token) is(word string) bool {
	return t.kind == tokWord && strings.EqualFold(t.text, word)
}

func (t token) isIdent() bool { return t.kind == tokWord || t.kind == tokIdent }

// EstimateDelete turns a single-table DELETE into the COUNT(*) query that selects
// the same rows. Accepted form:
//
//	DELETE [LOW_PRIORITY] [QUICK] [IGNORE] FROM tbl [WHERE condition] [;]
//
// Aliases, joins, USING, multi-table deletes, PARTITION, ORDER BY and LIMIT change
// which rows are removed and are rejected instead of guessed at.
func EstimateDelete(sql string) (Statement, error) {
	toks, err := tokenize(sql)
	if err != nil {
		return Statement{}, err
	}
	for len(toks) > 0 && toks[len(toks)-1].kind == tokPunct && toks[len(toks)-1].text == ";" {
		toks = toks[:len(toks)-1]
	}
	if len(toks) == 0 || !toks[0].is("DELETE") {
		return Statement{}, gwerrors.New(gwerrors.ValidationError, "statement is not a DELETE")
	}
	i := 1
	for i < len(toks) && (toks[i].is("LOW_PRIORITY") || toks[i].is("QUICK") || toks[i].is("IGNORE")) {
		i++
	}
	if i >= len(toks) || !toks[i].is("FROM") {
		return Statement{}, gwerrors.New(gwerrors.ValidationError, "multi-table DELETE is not supported")
	}
	i++

	// table reference: ident ('.' ident)?
	var parts []string
	for {
		if i >= len(toks) || !toks[i].isIdent() || (toks[i].kind == tokWord && isReserved(toks[i].text)) {
			return Statement{}, gwerrors.New(gwerrors.ValidationError, "DELETE is missing a table name")
		}
		parts = append(parts, toks[i].text)
		i++
		if i < len(toks) && toks[i].kind == tokPunct && toks[i].text == "." && toks[i].start == toks[i-1].end {
			i++
			continue
		}
		break
	}
	if len(parts) > 2 {
		return Statement{}, gwerrors.Newf(gwerrors.ValidationError, "table reference %q is not supported", strings.Join(parts, "."))
	}
	for _, p := range parts {
		if strings.Contains(p, ".") {
			return Statement{}, gwerrors.Newf(gwerrors.ValidationError, "table reference %q is not supported", p)
		}
	}
	table, err := QuoteIdent(strings.Join(parts, "."))
	if err != nil {
		return Statement{}, err
	}

	st := Statement{SQL: "SELECT COUNT(*) AS estimated FROM " + table}
	if i == len(toks) {
		return st, nil
	}
	if !toks[i].is("WHERE") {
		return Statement{}, gwerrors.Newf(gwerrors.ValidationError, "unsupported DELETE clause near %q", toks[i].text)
	}
	where := toks[i+1:]
	if len(where) == 0 {
		return Statement{}, gwerrors.New(gwerrors.ValidationError, "WHERE clause is empty")
	}
	for n, t := range where {
		if t.kind != tokPunct && t.kind != tokWord {
			continue
		}
		if t.depth == 0 && (t.is("ORDER") || t.is("LIMIT")) {
			return Statement{}, gwerrors.Newf(gwerrors.ValidationError, "DELETE with %s is not supported", strings.ToUpper(t.text))
		}
		if t.kind != tokPunct {
			continue
		}
		if t.text == ";" {
			return Statement{}, gwerrors.New(gwerrors.ValidationError, "only a single statement can be estimated")
		}
		if t.text == "#" || (n+1 < len(where) && where[n+1].start == t.end &&
			((t.text == "-" && where[n+1].text == "-") || (t.text == "/" && where[n+1].text == "*"))) {
			return Statement{}, gwerrors.New(gwerrors.ValidationError, "comments are not supported in the WHERE clause")
		}
	}
	st.SQL += " WHERE " + sql[where[0].start:where[len(where)-1].end]
	return st, nil
}

// isReserved lists the words that can follow FROM in forms we reject.
func isReserved(w string) bool {
	switch strings.ToUpper(w) {
	case "WHERE", "USING", "JOIN", "ORDER", "LIMIT", "PARTITION", "AS":
		return true
	}
	return false
}
