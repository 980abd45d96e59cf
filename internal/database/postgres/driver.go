package postgres

import (
	"github.com/koustreak/tablescan/internal/database"
	"github.com/koustreak/tablescan/internal/discovery"
)

// Driver is the PostgreSQL discovery driver.
type Driver struct {
	discovery.Base
}

// NewDriver returns the PostgreSQL driver. Schemas are listed first and
// system schemas are skipped; temporary schemas never reach the listing.
func NewDriver() *Driver {
	return &Driver{Base: discovery.Base{
		Engine:       string(database.EnginePostgres),
		Excluded:     discovery.NewSchemaSet("information_schema", "pg_catalog", "pg_toast"),
		ScanStrategy: discovery.SchemaFirst,
		Isolation:    "SET SESSION CHARACTERISTICS AS TRANSACTION ISOLATION LEVEL READ UNCOMMITTED",
	}}
}

// SimpleSelectProbeQuery returns SELECT TRUE AS "_" FROM "s"."t" WHERE 1 <> 1 LIMIT $1.
func (d *Driver) SimpleSelectProbeQuery(schema, table string) (string, []any) {
	return database.Select(database.DialectPostgres).
		Expr("TRUE", "_").
		From(schema, table).
		Never().
		Limit(0).
		Build()
}

func (d *Driver) Catalog() discovery.Catalog {
	return catalog{}
}
