// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps profiles in a local SQLite file.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLiteStore opens (creating if needed) the store at path and migrates it.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// a single writer avoids SQLITE_BUSY between gateway workers
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	if err := migrate(db, "sqlite3"); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// Get returns the stored profile for principal, without password.
func (s *SQLiteStore) Get(ctx context.Context, principal string) (ConnectionProfile, error) {
	p := ConnectionProfile{Principal: principal}
	var params string
	err := s.db.QueryRowContext(ctx,
		`SELECT host, port, db_user, db_name, params, created_at FROM connection_profiles WHERE principal = ?`,
		principal,
	).Scan(&p.Host, &p.Port, &p.User, &p.Database, &params, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
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
func (s *SQLiteStore) Put(ctx context.Context, p ConnectionProfile) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	params, err := encodeParams(p.Params)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO connection_profiles (principal, host, port, db_user, db_name, params, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.Principal, p.Host, p.Port, p.User, p.Database, params, p.CreatedAt,
	)
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return ErrExists
	}
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// Delete removes the profile for principal.
func (s *SQLiteStore) Delete(ctx context.Context, principal string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM connection_profiles WHERE principal = ?`, principal)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
