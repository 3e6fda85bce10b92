// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package dsn parses the connection strings users hand to `uidb connect` and turns
// stored connection details back into driver configuration.
package dsn

import "fmt"

// DBType represents the type of database
type DBType string

const (
	DBTypeMySQL   DBType = "mysql"
	DBTypeUnknown DBType = "unknown"
)

// DefaultMySQLPort is assumed when a DSN omits the port.
const DefaultMySQLPort = "3306"

// DSNInfo contains parsed information from a DSN string
type DSNInfo struct {
	Type     DBType
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Params   map[string]string
	Original string
}

// String returns the DSN with credentials hidden.
func (d *DSNInfo) String() string {
	return fmt.Sprintf("%s://%s:***@%s:%s/%s", d.Type, d.User, d.Host, d.Port, d.Database)
}

// Resolver is an interface for database-specific DSN resolution
type Resolver interface {
	// Parse parses a DSN string and returns normalized DSN info
	Parse(dsn string) (*DSNInfo, error)
}

// ParseError represents an error that occurred during DSN parsing
type ParseError struct {
	DSN    string
	Reason string
	Hint   string
}

func (e *ParseError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("invalid DSN format: %s\nHint: %s", e.Reason, e.Hint)
	}
	return fmt.Sprintf("invalid DSN format: %s", e.Reason)
}

// NewParseError creates a new ParseError
func NewParseError(dsn, reason, hint string) *ParseError {
	return &ParseError{
		DSN:    dsn,
		Reason: reason,
		Hint:   hint,
	}
}
