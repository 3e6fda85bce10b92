// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package keychain is the password vault for connection profiles.
// Profile metadata lives in the profile store; the literal database password is
// kept here, encrypted at rest, keyed by principal. Passwords are never hashed
// because they have to be replayed to the external database.
//
// Two backends are supported: an encrypted file vault (the default, suitable for
// servers) and the operating system credential store. Operations are thread-safe.
package keychain

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/99designs/keyring"
)

// ServiceName identifies our keychain/credential store namespace.
const ServiceName = "uidb"

const keyPrefix = "profile/"

// ErrNotFound is returned when no password is stored for a principal.
var ErrNotFound = errors.New("no password stored for principal")

// Config selects and unlocks the vault backend.
type Config struct {
	Backend    string // "file" (default) or "system"
	Dir        string
	Passphrase string
}

// Manager provides thread-safe password storage.
type Manager struct {
	mu   sync.RWMutex
	ring keyring.Keyring
}

// NewManager opens the configured vault.
func NewManager(cfg Config) (*Manager, error) {
	ring, err := openRing(cfg)
	if err != nil {
		return nil, err
	}
	return NewManagerWithRing(ring), nil
}

// NewManagerWithRing wraps an already opened keyring.
func NewManagerWithRing(ring keyring.Keyring) *Manager {
	return &Manager{ring: ring}
}

func openRing(cfg Config) (keyring.Keyring, error) {
	switch cfg.Backend {
	case "", "file":
		if cfg.Dir == "" {
			return nil, errors.New("vault directory is not configured")
		}
		if cfg.Passphrase == "" {
			return nil, errors.New("vault passphrase is required for the file backend (set UIDB_VAULT__PASSPHRASE)")
		}
		return keyring.Open(keyring.Config{
			ServiceName:      ServiceName,
			AllowedBackends:  []keyring.BackendType{keyring.FileBackend},
			FileDir:          cfg.Dir,
			FilePasswordFunc: keyring.FixedStringPrompt(cfg.Passphrase),
		})
	case "system":
		var allowed []keyring.BackendType
		switch runtime.GOOS {
		case "darwin":
			allowed = []keyring.BackendType{keyring.KeychainBackend, keyring.PassBackend}
		case "windows":
			allowed = []keyring.BackendType{keyring.WinCredBackend}
		default:
			allowed = []keyring.BackendType{keyring.SecretServiceBackend, keyring.KWalletBackend, keyring.PassBackend}
		}
		ring, err := keyring.Open(keyring.Config{
			ServiceName:     ServiceName,
			AllowedBackends: allowed,
			PassPrefix:      ServiceName,
			WinCredPrefix:   ServiceName,
		})
		if err != nil {
			return nil, fmt.Errorf("system credential store unavailable, use the file vault instead: %w", err)
		}
		return ring, nil
	default:
		return nil, fmt.Errorf("unknown vault backend %q", cfg.Backend)
	}
}

func keyFor(principal string) string { return keyPrefix + principal }

// SavePassword stores the password for principal, replacing any previous one.
func (m *Manager) SavePassword(principal, password string) error {
	if principal == "" {
		return errors.New("principal must not be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.ring.Set(keyring.Item{
		Key:   keyFor(principal),
		Data:  []byte(password),
		Label: "uidb connection password",
	})
}

// LoadPassword retrieves the password for principal.
func (m *Manager) LoadPassword(principal string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	it, err := m.ring.Get(keyFor(principal))
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	return string(it.Data), nil
}

// DeletePassword removes the password for principal. Missing entries are not an error.
func (m *Manager) DeletePassword(principal string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ring.Remove(keyFor(principal)); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return err
	}
	return nil
}
