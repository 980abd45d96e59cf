package database

import "context"

// Pool is the connection source a scan draws from. Engine packages provide
// the implementations; the discovery core only talks to this interface.
type Pool interface {
	// Acquire checks out one connection. The caller must Release it.
	Acquire(ctx context.Context) (Conn, error)

	// Ping verifies the database is reachable.
	Ping(ctx context.Context) error

	// Close releases all resources held by the connection pool.
	Close()
}

// Conn is a single connection checked out of a Pool. Session settings
// applied through Exec stay in effect until Release.
type Conn interface {
	// Query executes a SQL statement that returns rows.
	Query(ctx context.Context, sql string, args ...any) (Rows, error)

	// Exec executes a SQL statement that returns no rows.
	Exec(ctx context.Context, sql string, args ...any) error

	// Release hands the connection back to its pool.
	Release()
}

// Rows is an abstraction over a database result set.
// Callers must always call Close() when done, even on error.
type Rows interface {
	// Next advances to the next row.
	// Returns false when no more rows exist or on error.
	Next() bool

	// Scan copies the current row's columns into the provided destinations.
	Scan(dest ...any) error

	// Close releases resources held by the result set.
	Close()

	// Err returns any error encountered during iteration or on Close.
	Err() error
}
