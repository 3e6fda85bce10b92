// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package sqlexec

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"

	"uidb/gateway/internal/dsn"
	gwerrors "uidb/gateway/internal/errors"
	"uidb/gateway/internal/profile"
)

// Opener turns a driver configuration into a database handle. Tests substitute one
// returning a sqlmock handle.
type Opener func(cfg *mysql.Config) (*sql.DB, error)

// OpenMySQL is the production Opener.
func OpenMySQL(cfg *mysql.Config) (*sql.DB, error) {
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, err
	}
	return sql.OpenDB(connector), nil
}

// Mode selects the connection flavour.
type Mode int

const (
	// ModeStandard is used by every builder-backed operation.
	ModeStandard Mode = iota
	// ModeShell enables multi-statement text-protocol execution.
	ModeShell
)

// PoolOptions configures the optional per-profile pool.
type PoolOptions struct {
	Enabled     bool
	MaxOpen     int
	MaxIdle     int
	IdleTimeout time.Duration
}

// Options configures a Manager.
type Options struct {
	ConnectTimeout   time.Duration
	StatementTimeout time.Duration
	Pool             PoolOptions
	Open             Opener
	Logger           zerolog.Logger
}

// Manager is the connection lifecycle manager. Without pooling every Acquire opens
// a fresh handle that Release closes again. With pooling one bounded *sql.DB is
// kept per profile, and each Acquire still checks out a dedicated connection, so
// concurrent requests never share one.
type Manager struct {
	opts Options
	log  zerolog.Logger

	mu     sync.Mutex
	pools  map[string]*sql.DB
	closed bool
}

// NewManager creates a Manager. Zero timeouts fall back to 10s connect and 30s
// statement deadlines.
func NewManager(opts Options) *Manager {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	if opts.StatementTimeout <= 0 {
		opts.StatementTimeout = 30 * time.Second
	}
	if opts.Open == nil {
		opts.Open = OpenMySQL
	}
	return &Manager{
		opts:  opts,
		log:   opts.Logger.With().Str("component", "sqlexec").Logger(),
		pools: make(map[string]*sql.DB),
	}
}

// StatementTimeout is the per-statement deadline.
func (m *Manager) StatementTimeout() time.Duration { return m.opts.StatementTimeout }

// Conn is one acquired connection. It must be released exactly once; extra
// Release calls are no-ops.
type Conn struct {
	conn  *sql.Conn
	db    *sql.DB
	owned bool
	once  sync.Once
	m     *Manager
}

// Raw exposes the dedicated connection.
func (c *Conn) Raw() *sql.Conn { return c.conn }

// Acquire opens a connection for p within the connect deadline. Any failure,
// including bad credentials, is reported as ConnectionError.
func (m *Manager) Acquire(ctx context.Context, p profile.ConnectionProfile, mode Mode) (*Conn, error) {
	cfg, err := dsn.Config(p.DSNInfo(), dsn.Options{
		ConnectTimeout:  m.opts.ConnectTimeout,
		MultiStatements: mode == ModeShell,
	})
	if err != nil {
		return nil, gwerrors.Wrap(gwerrors.ValidationError, "invalid connection profile", err)
	}

	db, owned, err := m.handle(p.Key(), mode, cfg)
	if err != nil {
		return nil, gwerrors.Wrap(gwerrors.ConnectionError, "cannot open database handle", err)
	}

	actx, cancel := context.WithTimeout(ctx, m.opts.ConnectTimeout)
	defer cancel()

	conn, err := db.Conn(actx)
	if err == nil {
		err = conn.PingContext(actx)
		if err != nil {
			conn.Close()
		}
	}
	if err != nil {
		if owned {
			db.Close()
		}
		m.log.Debug().Str("host", p.Host).Str("database", p.Database).Err(err).Msg("acquire failed")
		return nil, classifyConnect(err)
	}
	return &Conn{conn: conn, db: db, owned: owned, m: m}, nil
}

// handle returns the database handle to check a connection out of.
func (m *Manager) handle(key string, mode Mode, cfg *mysql.Config) (*sql.DB, bool, error) {
	if !m.opts.Pool.Enabled {
		db, err := m.opts.Open(cfg)
		if err != nil {
			return nil, false, err
		}
		db.SetMaxOpenConns(1)
		return db, true, nil
	}
	if mode == ModeShell {
		key += "|shell"
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, false, errors.New("connection manager is closed")
	}
	if db, ok := m.pools[key]; ok {
		return db, false, nil
	}
	db, err := m.opts.Open(cfg)
	if err != nil {
		return nil, false, err
	}
	db.SetMaxOpenConns(m.opts.Pool.MaxOpen)
	db.SetMaxIdleConns(m.opts.Pool.MaxIdle)
	db.SetConnMaxIdleTime(m.opts.Pool.IdleTimeout)
	m.pools[key] = db
	return db, false, nil
}

// Release returns the connection; when not pooled the handle is closed as well.
func (m *Manager) Release(c *Conn) {
	if c == nil {
		return
	}
	c.once.Do(func() {
		if err := c.conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
			m.log.Debug().Err(err).Msg("close connection")
		}
		if c.owned {
			if err := c.db.Close(); err != nil {
				m.log.Debug().Err(err).Msg("close handle")
			}
		}
	})
}

// Release is shorthand for c.m.Release(c).
func (c *Conn) Release() { c.m.Release(c) }

// WithTransaction runs body inside BEGIN/COMMIT on c. Any error from body, or from
// COMMIT, rolls the transaction back and is returned.
func (m *Manager) WithTransaction(ctx context.Context, c *Conn, body func(tx *sql.Tx) error) error {
	tx, err := c.conn.BeginTx(ctx, nil)
	if err != nil {
		return classifyExec(ctx, err, "begin transaction failed")
	}
	if err := body(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			m.log.Warn().Err(rbErr).Msg("rollback failed")
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return classifyExec(ctx, err, "commit failed")
	}
	return nil
}

// Evict closes pooled handles belonging to profile key.
func (m *Manager) Evict(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range []string{key, key + "|shell"} {
		if db, ok := m.pools[k]; ok {
			db.Close()
			delete(m.pools, k)
		}
	}
}

// Close shuts every pooled handle down. Acquire fails afterwards when pooling is on.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	var errs []error
	for k, db := range m.pools {
		if err := db.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(m.pools, k)
	}
	return errors.Join(errs...)
}

// pooled reports how many pooled handles exist.
func (m *Manager) pooled() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pools)
}
