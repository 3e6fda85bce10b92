// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package profile owns connection profiles: which external database a principal
// talks to and with which credentials. Metadata is persisted in a Store, the
// password in the keychain vault; Resolver joins the two.
package profile

import (
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
	"strings"
	"time"

	"uidb/gateway/internal/dsn"
	gwerrors "uidb/gateway/internal/errors"
)

// ConnectionProfile is the external database a principal is bound to.
type ConnectionProfile struct {
	Principal string `json:"principal"`
	Host      string `json:"host"`
	Port      int    `json:"port"`
	User      string `json:"user"`
	Password  string `json:"password,omitempty"`
	Database  string `json:"database"`
	// Params are the driver options from the DSN query string, such as tls or loc.
	Params    map[string]string `json:"params,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

const maskedPassword = "********"

// Validate checks the fields needed to open a connection.
func (p ConnectionProfile) Validate() error {
	var missing []string
	if strings.TrimSpace(p.Principal) == "" {
		missing = append(missing, "principal")
	}
	if strings.TrimSpace(p.Host) == "" {
		missing = append(missing, "host")
	}
	if strings.TrimSpace(p.User) == "" {
		missing = append(missing, "user")
	}
	if strings.TrimSpace(p.Database) == "" {
		missing = append(missing, "database")
	}
	if len(missing) > 0 {
		return gwerrors.Newf(gwerrors.ValidationError, "connection profile is missing %s", strings.Join(missing, ", "))
	}
	if p.Port < 1 || p.Port > 65535 {
		return gwerrors.Newf(gwerrors.ValidationError, "port %d is out of range", p.Port)
	}
	return nil
}

// DSNInfo converts the profile into driver connection details.
func (p ConnectionProfile) DSNInfo() *dsn.DSNInfo {
	return &dsn.DSNInfo{
		Type:     dsn.DBTypeMySQL,
		Host:     p.Host,
		Port:     strconv.Itoa(p.Port),
		User:     p.User,
		Password: p.Password,
		Database: p.Database,
		Params:   maps.Clone(p.Params),
	}
}

// Key identifies the profile for connection pooling. It never includes the password.
func (p ConnectionProfile) Key() string {
	return fmt.Sprintf("%s|%s@%s:%d/%s", p.Principal, p.User, p.Host, p.Port, p.Database)
}

// Masked returns a copy safe to display: the password is replaced when present.
func (p ConnectionProfile) Masked() ConnectionProfile {
	if p.Password != "" {
		p.Password = maskedPassword
	}
	return p
}

// FromDSN builds a profile for principal from a mysql:// or driver-form DSN.
func FromDSN(principal, raw string) (ConnectionProfile, error) {
	info, err := dsn.ParseInfo(raw)
	if err != nil {
		return ConnectionProfile{}, gwerrors.Wrap(gwerrors.ValidationError, "invalid connection string", err)
	}
	port, err := strconv.Atoi(info.Port)
	if err != nil {
		return ConnectionProfile{}, gwerrors.Newf(gwerrors.ValidationError, "invalid port %q", info.Port)
	}
	// a bad tls or loc value has to fail here, not on first use
	if _, err := dsn.Config(info, dsn.Options{}); err != nil {
		return ConnectionProfile{}, gwerrors.Wrap(gwerrors.ValidationError, "invalid connection string", err)
	}
	p := ConnectionProfile{
		Principal: principal,
		Host:      info.Host,
		Port:      port,
		User:      info.User,
		Password:  info.Password,
		Database:  info.Database,
	}
	if len(info.Params) > 0 {
		p.Params = info.Params
	}
	return p, p.Validate()
}

// encodeParams renders params for the params column.
func encodeParams(params map[string]string) (string, error) {
	if len(params) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("failed to encode profile params: %w", err)
	}
	return string(b), nil
}

func decodeParams(raw string) (map[string]string, error) {
	var params map[string]string
	if raw == "" {
		return nil, nil
	}
	if err := json.Unmarshal([]byte(raw), &params); err != nil {
		return nil, fmt.Errorf("failed to decode profile params: %w", err)
	}
	if len(params) == 0 {
		return nil, nil
	}
	return params, nil
}
