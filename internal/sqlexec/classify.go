// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package sqlexec

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/go-sql-driver/mysql"

	gwerrors "uidb/gateway/internal/errors"
)

// MySQL server error numbers the gateway distinguishes.
const (
	erTableExists    = 1050
	erAccessDenied   = 1045
	erDBAccessDenied = 1044
	erBadDB          = 1049
)

// classifyConnect maps an acquire failure onto ConnectionError.
func classifyConnect(err error) error {
	var myErr *mysql.MySQLError
	switch {
	case errors.As(err, &myErr) && (myErr.Number == erAccessDenied || myErr.Number == erDBAccessDenied):
		return gwerrors.Wrap(gwerrors.ConnectionError, "database rejected the credentials", err)
	case errors.As(err, &myErr) && myErr.Number == erBadDB:
		return gwerrors.Wrap(gwerrors.ConnectionError, "database does not exist", err)
	case errors.Is(err, context.DeadlineExceeded):
		return gwerrors.Wrap(gwerrors.ConnectionError, "timed out connecting to database", err)
	case isDNSError(err):
		return gwerrors.Wrap(gwerrors.ConnectionError, "database host name could not be resolved", err)
	case isConnectionRefused(err):
		return gwerrors.Wrap(gwerrors.ConnectionError, "database refused the connection", err)
	default:
		var netErr net.Error
		if errors.As(err, &netErr) {
			if netErr.Timeout() {
				return gwerrors.Wrap(gwerrors.ConnectionError, "timed out connecting to database", err)
			}
			return gwerrors.Wrap(gwerrors.ConnectionError, "database host is unreachable", err)
		}
		return gwerrors.Wrap(gwerrors.ConnectionError, "cannot connect to database", err)
	}
}

func isDNSError(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

func isConnectionRefused(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errors.Is(opErr.Err, syscall.ECONNREFUSED)
	}
	return strings.Contains(strings.ToLower(err.Error()), "connection refused")
}

// classifyExec maps a failure while running a statement. ctx is the statement
// context, so a deadline there means the statement itself timed out.
func classifyExec(ctx context.Context, err error, msg string) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case erTableExists:
			return gwerrors.Wrap(gwerrors.DuplicateTable, "table already exists", err)
		case erAccessDenied, erDBAccessDenied, erBadDB:
			return gwerrors.Wrap(gwerrors.ConnectionError, "database rejected the credentials", err)
		}
		return gwerrors.Wrap(gwerrors.ExecutionError, msg, err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return gwerrors.Wrap(gwerrors.ExecutionError, "statement timed out", err)
	}
	var e *gwerrors.E
	if errors.As(err, &e) {
		return err
	}
	return gwerrors.Wrap(gwerrors.ExecutionError, msg, err)
}
