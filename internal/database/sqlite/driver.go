package sqlite

import (
	"github.com/koustreak/tablescan/internal/database"
	"github.com/koustreak/tablescan/internal/discovery"
)

// Driver is the SQLite discovery driver. SQLite has no schemas, so tables
// are listed in one pass and reported with an empty schema.
type Driver struct {
	discovery.Base
}

// NewDriver returns the SQLite driver.
func NewDriver() *Driver {
	return &Driver{Base: discovery.Base{
		Engine:       string(database.EngineSQLite),
		Excluded:     discovery.NewSchemaSet(),
		ScanStrategy: discovery.ScanThenFilter,
		Isolation:    "PRAGMA read_uncommitted = true",
	}}
}

// SimpleSelectProbeQuery returns SELECT 1 AS "_" FROM "t" WHERE 1 <> 1 LIMIT ?.
// The schema is empty for SQLite and leaves the name unqualified.
func (d *Driver) SimpleSelectProbeQuery(schema, table string) (string, []any) {
	return database.Select(database.DialectSQLite).
		Expr("1", "_").
		From(schema, table).
		Never().
		Limit(0).
		Build()
}

func (d *Driver) Catalog() discovery.Catalog {
	return catalog{}
}
