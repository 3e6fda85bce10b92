// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package profile

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	gwerrors "uidb/gateway/internal/errors"
	"uidb/gateway/internal/keychain"
)

// Vault stores the literal password per principal.
type Vault interface {
	SavePassword(principal, password string) error
	LoadPassword(principal string) (string, error)
	DeletePassword(principal string) error
}

// Resolver joins profile metadata with the vaulted password.
type Resolver struct {
	store Store
	vault Vault
	log   zerolog.Logger
}

// NewResolver creates a Resolver over store and vault.
func NewResolver(store Store, vault Vault, log zerolog.Logger) *Resolver {
	return &Resolver{store: store, vault: vault, log: log.With().Str("component", "profile").Logger()}
}

// Resolve returns the full profile, password included, for principal. A principal
// without a profile yields a NotFound error.
func (r *Resolver) Resolve(ctx context.Context, principal string) (ConnectionProfile, error) {
	if principal == "" {
		return ConnectionProfile{}, gwerrors.New(gwerrors.ValidationError, "principal is required")
	}
	p, err := r.store.Get(ctx, principal)
	if errors.Is(err, ErrNotFound) {
		return ConnectionProfile{}, gwerrors.New(gwerrors.NotFound, "no database connection registered; connect a database first")
	}
	if err != nil {
		return ConnectionProfile{}, gwerrors.Wrap(gwerrors.Internal, "failed to read connection profile", err)
	}

	pw, err := r.vault.LoadPassword(principal)
	if errors.Is(err, keychain.ErrNotFound) {
		r.log.Warn().Str("principal", principal).Msg("profile has no vaulted password")
		return ConnectionProfile{}, gwerrors.New(gwerrors.NotFound, "stored credentials are incomplete; reconnect the database")
	}
	if err != nil {
		return ConnectionProfile{}, gwerrors.Wrap(gwerrors.Internal, "failed to unlock password vault", err)
	}
	p.Password = pw
	return p, nil
}

// Lookup returns the stored profile without touching the vault. Password is empty.
func (r *Resolver) Lookup(ctx context.Context, principal string) (ConnectionProfile, error) {
	if principal == "" {
		return ConnectionProfile{}, gwerrors.New(gwerrors.ValidationError, "principal is required")
	}
	p, err := r.store.Get(ctx, principal)
	if errors.Is(err, ErrNotFound) {
		return ConnectionProfile{}, gwerrors.New(gwerrors.NotFound, "no database connection registered")
	}
	if err != nil {
		return ConnectionProfile{}, gwerrors.Wrap(gwerrors.Internal, "failed to read connection profile", err)
	}
	p.Password = ""
	return p, nil
}

// Exists reports whether principal has a profile.
func (r *Resolver) Exists(ctx context.Context, principal string) (bool, error) {
	_, err := r.store.Get(ctx, principal)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, gwerrors.Wrap(gwerrors.Internal, "failed to read connection profile", err)
	}
	return true, nil
}

// Register persists a new profile. The caller is expected to have verified that the
// credentials work. A principal may hold a single profile; a second registration
// fails with DuplicateTable.
func (r *Resolver) Register(ctx context.Context, p ConnectionProfile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	err := r.store.Put(ctx, p)
	if errors.Is(err, ErrExists) {
		return gwerrors.Newf(gwerrors.DuplicateTable, "a database connection is already registered for %s", p.Principal)
	}
	if err != nil {
		return gwerrors.Wrap(gwerrors.Internal, "failed to save connection profile", err)
	}
	if err := r.vault.SavePassword(p.Principal, p.Password); err != nil {
		if derr := r.store.Delete(ctx, p.Principal); derr != nil {
			r.log.Error().Err(derr).Str("principal", p.Principal).Msg("failed to roll back profile after vault error")
		}
		return gwerrors.Wrap(gwerrors.Internal, "failed to store password", err)
	}
	r.log.Info().Str("principal", p.Principal).Str("host", p.Host).Str("database", p.Database).Msg("connection profile registered")
	return nil
}

// Remove deletes the profile and its password.
func (r *Resolver) Remove(ctx context.Context, principal string) error {
	err := r.store.Delete(ctx, principal)
	if errors.Is(err, ErrNotFound) {
		return gwerrors.New(gwerrors.NotFound, "no database connection registered")
	}
	if err != nil {
		return gwerrors.Wrap(gwerrors.Internal, "failed to delete connection profile", err)
	}
	if err := r.vault.DeletePassword(principal); err != nil {
		r.log.Warn().Err(err).Str("principal", principal).Msg("failed to delete vaulted password")
	}
	r.log.Info().Str("principal", principal).Msg("connection profile removed")
	return nil
}
