// Package errors defines typed errors with categories for user-friendly reporting.
// Every failure that leaves the gateway core carries one of the Kinds below so
// callers can tell "cannot reach database" apart from "query failed" and from
// input problems that never touched the database.
//
// The package supports wrapping underlying errors while maintaining error kind information,
// and keeps the driver's own message in Detail so it can be rendered separately.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// NotFound indicates no connection profile is on record for the principal.
	NotFound Kind = "not_found"
	// DuplicateTable indicates a table or profile/database already exists.
	DuplicateTable Kind = "duplicate_table"
	// ConnectionError indicates the external database could not be reached or authenticated.
	ConnectionError Kind = "connection_error"
	// ExecutionError indicates the database rejected or failed the statement.
	ExecutionError Kind = "execution_error"
	// NoMatch indicates a write matched zero rows. It is a logical outcome.
	NoMatch Kind = "no_match"
	// ValidationError indicates missing or malformed input.
	ValidationError Kind = "validation_error"
	// Internal is used for failures that fit none of the above.
	Internal Kind = "internal"
)

// E wraps an error with kind and human-friendly message.
type E struct {
	Kind    Kind
	Message string
	// Detail is the underlying database error text, when there is one.
	Detail string
	Err    error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *E) Unwrap() error { return e.Err }

func Wrap(kind Kind, msg string, err error) *E {
	e := &E{Kind: kind, Message: msg, Err: err}
	if err != nil {
		e.Detail = err.Error()
	}
	return e
}

func New(kind Kind, msg string) *E { return &E{Kind: kind, Message: msg} }

// Newf is New with a format string.
func Newf(kind Kind, format string, args ...any) *E {
	return New(kind, fmt.Sprintf(format, args...))
}

// KindOf returns the Kind of the first *E in err's chain, or Internal.
func KindOf(err error) Kind {
	var e *E
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}

// As is re-exported so callers importing this package need not alias the stdlib one.
func As(err error, target any) bool { return stderrors.As(err, target) }
