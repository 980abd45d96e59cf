package discovery

import (
	"context"

	"github.com/koustreak/tablescan/internal/database"
)

// Driver is the per-engine capability set a scan relies on.
type Driver interface {
	// Name is the engine name used in the registry and in logs.
	Name() string

	// Strategy is the enumeration strategy the engine needs.
	Strategy() Strategy

	// ExcludedSchemas are system schemas never reported.
	ExcludedSchemas() SchemaSet

	// EscapeEntityNameForMetadata escapes name so it matches itself
	// literally when used as a catalog LIKE pattern.
	EscapeEntityNameForMetadata(name string) string

	// SimpleSelectProbeQuery returns a statement that succeeds, returning
	// no rows, only if the table can be read.
	SimpleSelectProbeQuery(schema, table string) (string, []any)

	// PrepareStatement runs query on conn.
	PrepareStatement(ctx context.Context, conn database.Conn, query string, params []any) (database.Rows, error)

	// SetBestTransactionLevel lowers the session isolation level so
	// catalog reads and probes take as few locks as possible.
	SetBestTransactionLevel(ctx context.Context, conn database.Conn) error

	// Catalog reads the engine's metadata pages.
	Catalog() Catalog
}

// Base supplies the defaults shared by most engines. Engine drivers embed
// it and add SimpleSelectProbeQuery and Catalog.
type Base struct {
	Engine       string
	Excluded     SchemaSet
	ScanStrategy Strategy

	// Isolation is executed by SetBestTransactionLevel. Empty means the
	// engine has nothing to tune.
	Isolation string
}

func (b Base) Name() string {
	return b.Engine
}

func (b Base) Strategy() Strategy {
	return b.ScanStrategy
}

func (b Base) ExcludedSchemas() SchemaSet {
	return b.Excluded
}

// EscapeEntityNameForMetadata escapes backslash, percent and underscore.
func (b Base) EscapeEntityNameForMetadata(name string) string {
	return database.EscapeLike(name)
}

func (b Base) PrepareStatement(ctx context.Context, conn database.Conn, query string, params []any) (database.Rows, error) {
	return conn.Query(ctx, query, params...)
}

func (b Base) SetBestTransactionLevel(ctx context.Context, conn database.Conn) error {
	if b.Isolation == "" {
		return nil
	}
	return conn.Exec(ctx, b.Isolation)
}
