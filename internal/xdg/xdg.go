// Package xdg provides helpers to resolve XDG Base Directory paths for uidb.
// It implements the XDG Base Directory specification for determining appropriate
// locations for configuration files, profile data, and the password vault on
// Unix-like systems.
//
// The package handles fallback to traditional locations when XDG environment
// variables are not set and ensures proper permissions for security-sensitive
// directories like the vault.
package xdg

import (
	"os"
	"path/filepath"
)

const appDir = "uidb"

// ConfigDir returns the XDG config directory for uidb.
// The directory is created with private permissions (0700) if missing.
// It falls back to ~/.config/uidb when XDG_CONFIG_HOME is unset.
func ConfigDir() (string, error) {
	return resolve("XDG_CONFIG_HOME", ".config")
}

// DataDir returns the XDG data directory holding the profile store and vault.
// It falls back to ~/.local/share/uidb when XDG_DATA_HOME is unset.
func DataDir() (string, error) {
	return resolve("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

// StateDir returns the XDG state directory for uidb logs.
// It falls back to ~/.local/state/uidb when XDG_STATE_HOME is unset.
func StateDir() (string, error) {
	return resolve("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

func resolve(envVar, homeRel string) (string, error) {
	base := os.Getenv(envVar)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, homeRel)
	}
	dir := filepath.Join(base, appDir)
	if err := os.MkdirAll(dir, 0o700); err != nil { // private dir
		return "", err
	}
	return dir, nil
}
