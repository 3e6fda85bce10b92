// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package gateway is the dispatcher every outer surface calls into. A request
// flows through validation, credential resolution, connection acquire, statement
// building, execution (inside a transaction for bulk writes), result shaping and
// release, in that order.
//
// Validation and NotFound failures happen before any connection is opened. Once a
// connection is held it is released before the error or result is returned.
// Nothing is retried.
package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	gwerrors "uidb/gateway/internal/errors"
	"uidb/gateway/internal/logging"
	"uidb/gateway/internal/profile"
	"uidb/gateway/internal/sqlexec"
)

// Credentials resolves and maintains connection profiles. *profile.Resolver
// implements it.
type Credentials interface {
	Resolve(ctx context.Context, principal string) (profile.ConnectionProfile, error)
	Lookup(ctx context.Context, principal string) (profile.ConnectionProfile, error)
	Exists(ctx context.Context, principal string) (bool, error)
	Register(ctx context.Context, p profile.ConnectionProfile) error
	Remove(ctx context.Context, principal string) error
}

// Options configures a Gateway.
type Options struct {
	// PageSize is used when a DescribeAndPage request leaves it at zero.
	PageSize int
	Logger   zerolog.Logger
}

// DefaultPageSize matches the page size of the table browser.
const DefaultPageSize = 50

// Gateway executes operations on behalf of principals.
type Gateway struct {
	creds     Credentials
	conns     *sqlexec.Manager
	exec      *sqlexec.Executor
	inspector *sqlexec.Inspector
	pageSize  int
	log       zerolog.Logger
}

// New creates a Gateway.
func New(creds Credentials, conns *sqlexec.Manager, opts Options) *Gateway {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	exec := sqlexec.NewExecutor(conns.StatementTimeout())
	return &Gateway{
		creds:     creds,
		conns:     conns,
		exec:      exec,
		inspector: sqlexec.NewInspector(exec),
		pageSize:  opts.PageSize,
		log:       logging.Component(opts.Logger, "gateway"),
	}
}

// operation is one request after validation. prepare builds and checks the
// statements; exec runs them on an acquired connection.
type operation struct {
	kind    Kind
	mode    sqlexec.Mode
	prepare func() error
	exec    func(ctx context.Context, c *sqlexec.Conn) (*Result, error)
}

// run drives op through the request lifecycle and logs one event for it.
func (g *Gateway) run(ctx context.Context, principal string, op operation) (res *Result, err error) {
	start := time.Now()
	reqID := uuid.NewString()
	defer func() { g.logOutcome(reqID, principal, op.kind, start, res, err) }()

	if op.prepare != nil {
		if err := op.prepare(); err != nil {
			return nil, asValidation(err)
		}
	}

	p, err := g.creds.Resolve(ctx, principal)
	if err != nil {
		return nil, err
	}

	conn, err := g.conns.Acquire(ctx, p, op.mode)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	res, err = op.exec(ctx, conn)
	if err != nil {
		return nil, err
	}
	res.Kind = op.kind
	if res.Outcome == "" {
		res.Outcome = OutcomeOK
	}
	return res, nil
}

func (g *Gateway) logOutcome(reqID, principal string, kind Kind, start time.Time, res *Result, err error) {
	ev := g.log.Info()
	outcome := "error"
	if err != nil {
		ev = g.log.Warn().Str("error_kind", string(gwerrors.KindOf(err))).Str("error", logging.Mask(err.Error()))
	} else if res != nil {
		outcome = string(res.Outcome)
		ev = ev.Int64("affected_rows", res.AffectedRows)
	}
	ev.Str("request_id", reqID).
		Str("kind", string(kind)).
		Str("principal", principal).
		Dur("duration", time.Since(start)).
		Str("outcome", outcome).
		Msg("operation finished")
}

// asValidation makes sure a build failure is reported as ValidationError.
func asValidation(err error) error {
	if gwerrors.Is(err, gwerrors.ValidationError) {
		return err
	}
	return gwerrors.Wrap(gwerrors.ValidationError, "invalid request", err)
}

// Dispatch routes req to the matching operation.
func (g *Gateway) Dispatch(ctx context.Context, principal string, req Request) (*Result, error) {
	switch r := req.(type) {
	case CreateTable:
		return g.CreateTable(ctx, principal, r)
	case ListTables:
		return g.ListTables(ctx, principal)
	case DescribeAndPage:
		return g.DescribeAndPage(ctx, principal, r)
	case Insert:
		return g.Insert(ctx, principal, r)
	case BulkInsert:
		return g.BulkInsert(ctx, principal, r)
	case Update:
		return g.Update(ctx, principal, r)
	case Delete:
		return g.Delete(ctx, principal, r)
	case Aggregate:
		return g.Aggregate(ctx, principal, r)
	case BuildFulltextIndex:
		return g.BuildFulltextIndex(ctx, principal, r)
	case FulltextSearch:
		return g.FulltextSearch(ctx, principal, r)
	case OrderedSelect:
		return g.OrderedSelect(ctx, principal, r)
	case AdHocQuery:
		return g.AdHocQuery(ctx, principal, r)
	case Shell:
		return g.Shell(ctx, principal, r)
	case EstimateAffectedRows:
		return g.EstimateAffectedRows(ctx, principal, r)
	case ChartSeries:
		return g.ChartSeries(ctx, principal, r)
	case CustomQuery:
		return g.CustomQuery(ctx, principal, r)
	case nil:
		return nil, gwerrors.New(gwerrors.ValidationError, "request is required")
	default:
		return nil, gwerrors.Newf(gwerrors.ValidationError, "unsupported request type %T", req)
	}
}

// Connect registers p after verifying that its credentials open a connection. A
// principal that already has a profile gets DuplicateTable and no connection is
// attempted.
func (g *Gateway) Connect(ctx context.Context, p profile.ConnectionProfile) (err error) {
	start := time.Now()
	defer func() {
		ev := g.log.Info()
		if err != nil {
			ev = g.log.Warn().Str("error_kind", string(gwerrors.KindOf(err))).Str("error", logging.MaskSecret(logging.Mask(err.Error()), p.Password))
		}
		ev.Str("principal", p.Principal).Str("host", p.Host).Str("database", p.Database).
			Dur("duration", time.Since(start)).Msg("connect")
	}()

	if err := p.Validate(); err != nil {
		return err
	}
	exists, err := g.creds.Exists(ctx, p.Principal)
	if err != nil {
		return err
	}
	if exists {
		return gwerrors.Newf(gwerrors.DuplicateTable, "a database connection already exists for %s", p.Principal)
	}

	conn, err := g.conns.Acquire(ctx, p, sqlexec.ModeStandard)
	if err != nil {
		return err
	}
	conn.Release()

	return g.creds.Register(ctx, p)
}

// Profile returns the principal's stored connection profile without its password.
func (g *Gateway) Profile(ctx context.Context, principal string) (profile.ConnectionProfile, error) {
	return g.creds.Lookup(ctx, principal)
}

// Disconnect removes the principal's profile and closes any pooled connections
// opened with it.
func (g *Gateway) Disconnect(ctx context.Context, principal string) error {
	p, err := g.creds.Lookup(ctx, principal)
	if err != nil {
		return err
	}
	if err := g.creds.Remove(ctx, principal); err != nil {
		return err
	}
	g.conns.Evict(p.Key())
	g.log.Info().Str("principal", principal).Msg("disconnect")
	return nil
}

func pluralRows(n int64) string {
	if n == 1 {
		return "1 row"
	}
	return fmt.Sprintf("%d rows", n)
}
