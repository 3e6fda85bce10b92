// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package statement builds the SQL text (and bound parameters) for every gateway
// operation. Builders are pure functions: they never touch a connection.
//
// Two escaping disciplines exist and every builder routes through exactly one of them
// per slot: identifiers (table, column and key names) go through QuoteIdent, literal
// data goes through EscapeValue or is appended to Statement.Args as a bound parameter.
package statement

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	gwerrors "uidb/gateway/internal/errors"
)

// ValueKind tags the dynamic type held by a Value.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindString
	KindNumber
	KindBool
	KindDate
)

func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	case KindDate:
		return "date"
	default:
		return "null"
	}
}

// Value is a literal payload value: string, number, boolean, null or date.
type Value struct {
	kind ValueKind
	str  string // string payload or canonical numeric literal
	b    bool
	t    time.Time
}

// Null returns the SQL NULL value.
func Null() Value { return Value{kind: KindNull} }

// String wraps a string literal.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Bool wraps a boolean literal.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Date wraps a timestamp literal.
func Date(t time.Time) Value { return Value{kind: KindDate, t: t} }

// Int wraps an integer literal.
func Int(n int64) Value { return Value{kind: KindNumber, str: strconv.FormatInt(n, 10)} }

// Float wraps a floating point literal. NaN and infinities have no SQL spelling.
func Float(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, gwerrors.Newf(gwerrors.ValidationError, "number %v cannot be stored", f)
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return Int(int64(f)), nil
	}
	return Value{kind: KindNumber, str: strconv.FormatFloat(f, 'g', -1, 64)}, nil
}

// numberLiteral is the JSON number grammar without the leading-zero rule. Number
// values are inlined into SQL text, so nothing else is accepted.
var numberLiteral = regexp.MustCompile(`^-?\d+(\.\d+)?([eE][+-]?\d+)?$`)

// Number parses a numeric literal such as "42", "-3.5" or "1e10". Hex floats,
// digit separators and the NaN/Inf spellings are rejected.
func Number(lit string) (Value, error) {
	lit = strings.TrimSpace(lit)
	if !numberLiteral.MatchString(lit) {
		return Value{}, gwerrors.Newf(gwerrors.ValidationError, "%q is not a number", lit)
	}
	if _, err := strconv.ParseFloat(lit, 64); err != nil {
		return Value{}, gwerrors.Newf(gwerrors.ValidationError, "%q is not a number", lit)
	}
	return Value{kind: KindNumber, str: lit}, nil
}

// Kind returns the tag of v.
func (v Value) Kind() ValueKind { return v.kind }

// IsNull reports whether v is NULL.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Arg converts v to a database/sql driver argument.
func (v Value) Arg() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindBool:
		return v.b
	case KindDate:
		return v.t
	case KindNumber:
		if n, err := strconv.ParseInt(v.str, 10, 64); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(v.str, 64); err == nil && strconv.FormatFloat(f, 'g', -1, 64) == v.str {
			return f
		}
		// keep the exact literal, the server converts it
		return v.str
	default:
		return nil
	}
}

func (v Value) String() string { return EscapeValue(v) }

// FromAny converts a decoded JSON/protobuf value into a Value. Nested objects and
// arrays are rejected: a payload cell is always a scalar.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		return Number(t.String())
	case float64:
		return Float(t)
	case float32:
		return Float(float64(t))
	case int:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint32:
		return Int(int64(t)), nil
	case time.Time:
		return Date(t), nil
	case map[string]any, []any:
		return Value{}, gwerrors.Newf(gwerrors.ValidationError, "nested %T values are not supported", x)
	default:
		return Value{}, gwerrors.Newf(gwerrors.ValidationError, "unsupported value type %T", x)
	}
}

// Field is one name/value pair of a row payload or condition.
type Field struct {
	Name  string
	Value Value
}

// Fields is an ordered mapping from column names to values.
type Fields []Field

// Names returns the column names in order.
func (fs Fields) Names() []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.Name
	}
	return out
}

// Get returns the value stored under name.
func (fs Fields) Get(name string) (Value, bool) {
	for _, f := range fs {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Validate rejects empty and repeated names.
func (fs Fields) Validate(what string) error {
	seen := make(map[string]struct{}, len(fs))
	for _, f := range fs {
		if strings.TrimSpace(f.Name) == "" {
			return gwerrors.Newf(gwerrors.ValidationError, "%s contains an empty column name", what)
		}
		if _, dup := seen[f.Name]; dup {
			return gwerrors.Newf(gwerrors.ValidationError, "%s repeats column %q", what, f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}

// FieldsFromMap converts a decoded object into Fields following keyOrder. Every key
// of m must appear in keyOrder.
func FieldsFromMap(m map[string]any, keyOrder []string) (Fields, error) {
	out := make(Fields, 0, len(m))
	used := make(map[string]bool, len(m))
	for _, k := range keyOrder {
		x, ok := m[k]
		if !ok || used[k] {
			continue
		}
		v, err := FromAny(x)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		out = append(out, Field{Name: k, Value: v})
		used[k] = true
	}
	if len(out) != len(m) {
		return nil, gwerrors.New(gwerrors.ValidationError, "field order does not cover every key")
	}
	return out, nil
}
