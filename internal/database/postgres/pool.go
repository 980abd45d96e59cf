package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/koustreak/tablescan/internal/database"
	"github.com/koustreak/tablescan/internal/errs"
)

const (
	defaultMaxConns    = 4
	defaultConnTimeout = 10 * time.Second
)

// Pool implements database.Pool for PostgreSQL using pgxpool.
// It is safe for concurrent use by multiple goroutines.
type Pool struct {
	pool *pgxpool.Pool
}

// Open connects to PostgreSQL using cfg and verifies the pool with a ping.
func Open(ctx context.Context, cfg *database.Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid DSN", err)
	}

	poolCfg.MaxConns = withDefault(cfg.MaxConns, defaultMaxConns)
	poolCfg.MinConns = cfg.MinConns
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	poolCfg.ConnConfig.ConnectTimeout = defaultConnTimeout
	if cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, mapError(err, "failed to create connection pool")
	}

	p := &Pool{pool: pool}
	if err := p.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

// Acquire checks out one connection from the pool.
func (p *Pool) Acquire(ctx context.Context) (database.Conn, error) {
	c, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, mapError(err, "acquire connection")
	}
	return &conn{c: c}, nil
}

// Ping verifies the database is reachable by acquiring and releasing a connection.
func (p *Pool) Ping(ctx context.Context) error {
	return mapError(p.pool.Ping(ctx), "ping failed")
}

// Close drains the connection pool. Call when the application shuts down.
func (p *Pool) Close() {
	p.pool.Close()
}

// --- conn wraps *pgxpool.Conn ---

type conn struct {
	c *pgxpool.Conn
}

func (c *conn) Query(ctx context.Context, sql string, args ...any) (database.Rows, error) {
	rows, err := c.c.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapError(err, "query failed")
	}
	return &pgRows{rows: rows}, nil
}

func (c *conn) Exec(ctx context.Context, sql string, args ...any) error {
	_, err := c.c.Exec(ctx, sql, args...)
	return mapError(err, "exec failed")
}

func (c *conn) Release() {
	c.c.Release()
}

// --- pgRows wraps pgx.Rows ---

type pgRows struct{ rows pgx.Rows }

func (r *pgRows) Next() bool             { return r.rows.Next() }
func (r *pgRows) Scan(dest ...any) error { return mapError(r.rows.Scan(dest...), "scan failed") }
func (r *pgRows) Close()                 { r.rows.Close() }
func (r *pgRows) Err() error             { return mapError(r.rows.Err(), "read rows") }

// withDefault returns val if non-zero, otherwise returns def
func withDefault(val, def int32) int32 {
	if val == 0 {
		return def
	}
	return val
}
