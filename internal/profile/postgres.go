// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

// pgUniqueViolation is the SQLSTATE for a duplicate key.
const pgUniqueViolation = "23505"

// pgxQuerier is the subset of *pgxpool.Pool the store uses.
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps profiles in a shared PostgreSQL database, for deployments
// where several gateway instances serve the same principals.
type PostgresStore struct {
	q     pgxQuerier
	close func()
}

// OpenPostgresStore connects with pgxpool, verifies the connection and migrates.
func OpenPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres store DSN: %w", err)
	}
	cfg.MaxConns = 4

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach postgres store: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	err = migrate(db, "postgres")
	db.Close()
	if err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{q: pool, close: pool.Close}, nil
}

// Get returns the stored profile for principal, without password.
func (s *PostgresStore) Get(ctx context.Context, principal string) (ConnectionProfile, error) {
	p := ConnectionProfile{Principal: principal}
	var params string
	err := s.q.QueryRow(ctx,
		`SELECT host, port, db_user, db_name, params, created_at FROM connection_profiles WHERE principal = $1`,
		principal,
	).Scan(&p.Host, &p.Port, &p.User, &p.Database, &params, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ConnectionProfile{}, ErrNotFound
	}
	if err != nil {
		return ConnectionProfile{}, fmt.Errorf("failed to load profile: %w", err)
	}
	if p.Params, err = decodeParams(params); err != nil {
		return ConnectionProfile{}, err
	}
	return p, nil
}

// Put inserts a new profile. It fails with ErrExists if principal already has one.
func (s *PostgresStore) Put(ctx context.Context, p ConnectionProfile) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	params, err := encodeParams(p.Params)
	if err != nil {
		return err
	}
	_, err = s.q.Exec(ctx,
		`INSERT INTO connection_profiles (principal, host, port, db_user, db_name, params, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.Principal, p.Host, p.Port, p.User, p.Database, params, p.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrExists
	}
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// Delete removes the profile for principal.
func (s *PostgresStore) Delete(ctx context.Context, principal string) error {
	tag, err := s.q.Exec(ctx, `DELETE FROM connection_profiles WHERE principal = $1`, principal)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	if s.close != nil {
		s.close()
	}
	return nil
}
