// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package profile

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/pressly/goose/v3"
)

var (
	// ErrNotFound is returned by Store.Get and Store.Delete for unknown principals.
	ErrNotFound = errors.New("connection profile not found")
	// ErrExists is returned by Store.Put when the principal already has a profile.
	ErrExists = errors.New("connection profile already exists")
)

// Store persists profile metadata. Implementations never see the password.
type Store interface {
	Get(ctx context.Context, principal string) (ConnectionProfile, error)
	Put(ctx context.Context, p ConnectionProfile) error
	Delete(ctx context.Context, principal string) error
	Close() error
}

//go:embed migrations/*.sql
var migrations embed.FS

// migrate applies the embedded migrations with the given goose dialect.
func migrate(db *sql.DB, dialect string) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
