// Package sqldb adapts database/sql pools to database.Pool for the engines
// whose drivers plug into database/sql (MySQL, SQL Server, SQLite).
//
// Each scan gets a dedicated *sql.Conn so session settings such as the
// isolation level stay on the connection that runs the catalog queries.
package sqldb

import (
	"context"
	"database/sql"
	"time"

	"github.com/koustreak/tablescan/internal/database"
	"github.com/koustreak/tablescan/internal/errs"
)

const (
	defaultMaxOpenConns    = 4
	defaultConnMaxLifetime = 30 * time.Minute
	defaultConnMaxIdleTime = 5 * time.Minute
	defaultConnectTimeout  = 10 * time.Second
)

// ErrorMapper translates a native driver error into an *errs.Error. It must
// return nil for a nil err.
type ErrorMapper func(err error, msg string) error

// Pool implements database.Pool over *sql.DB.
type Pool struct {
	db     *sql.DB
	mapErr ErrorMapper
}

// Open opens a pool for the registered database/sql driverName and verifies
// it with a ping bounded by cfg.ConnectTimeout.
func Open(ctx context.Context, driverName string, cfg *database.Config, mapErr ErrorMapper) (*Pool, error) {
	db, err := sql.Open(driverName, cfg.DSN)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid DSN", err)
	}

	db.SetMaxOpenConns(int(withDefault(cfg.MaxConns, defaultMaxOpenConns)))
	db.SetMaxIdleConns(int(cfg.MinConns))
	db.SetConnMaxLifetime(durationOr(cfg.MaxConnLifetime, defaultConnMaxLifetime))
	db.SetConnMaxIdleTime(durationOr(cfg.MaxConnIdleTime, defaultConnMaxIdleTime))

	p := New(db, mapErr)

	pingCtx, cancel := context.WithTimeout(ctx, durationOr(cfg.ConnectTimeout, defaultConnectTimeout))
	defer cancel()

	if err := p.Ping(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return p, nil
}

// New wraps an already opened *sql.DB.
func New(db *sql.DB, mapErr ErrorMapper) *Pool {
	return &Pool{db: db, mapErr: mapErr}
}

// Acquire checks out a dedicated connection.
func (p *Pool) Acquire(ctx context.Context) (database.Conn, error) {
	c, err := p.db.Conn(ctx)
	if err != nil {
		return nil, p.mapErr(err, "acquire connection")
	}
	return &conn{c: c, mapErr: p.mapErr}, nil
}

func (p *Pool) Ping(ctx context.Context) error {
	return p.mapErr(p.db.PingContext(ctx), "ping failed")
}

func (p *Pool) Close() {
	_ = p.db.Close()
}

// DB returns the underlying *sql.DB (for advanced use)
func (p *Pool) DB() *sql.DB {
	return p.db
}

// --- conn wraps *sql.Conn ---

type conn struct {
	c      *sql.Conn
	mapErr ErrorMapper
}

func (c *conn) Query(ctx context.Context, query string, args ...any) (database.Rows, error) {
	rows, err := c.c.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, c.mapErr(err, "query failed")
	}
	return &sqlRows{rows: rows, mapErr: c.mapErr}, nil
}

func (c *conn) Exec(ctx context.Context, query string, args ...any) error {
	_, err := c.c.ExecContext(ctx, query, args...)
	return c.mapErr(err, "exec failed")
}

func (c *conn) Release() {
	_ = c.c.Close()
}

// --- sqlRows wraps *sql.Rows ---

type sqlRows struct {
	rows     *sql.Rows
	mapErr   ErrorMapper
	closeErr error
}

func (r *sqlRows) Next() bool             { return r.rows.Next() }
func (r *sqlRows) Scan(dest ...any) error { return r.mapErr(r.rows.Scan(dest...), "scan failed") }
func (r *sqlRows) Close()                 { r.closeErr = r.rows.Close() }

func (r *sqlRows) Err() error {
	if err := r.rows.Err(); err != nil {
		return r.mapErr(err, "read rows")
	}
	return r.mapErr(r.closeErr, "close rows")
}

// --- helpers ---

func withDefault(val, def int32) int32 {
	if val == 0 {
		return def
	}
	return val
}

func durationOr(val, def time.Duration) time.Duration {
	if val == 0 {
		return def
	}
	return val
}
