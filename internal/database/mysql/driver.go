package mysql

import (
	"github.com/koustreak/tablescan/internal/database"
	"github.com/koustreak/tablescan/internal/discovery"
)

// Driver is the MySQL discovery driver. MySQL has no schema level below the
// database, so schemas are databases; when the DSN names a default database
// the listings are restricted to it.
type Driver struct {
	discovery.Base
}

// NewDriver returns the MySQL driver.
func NewDriver() *Driver {
	return &Driver{Base: discovery.Base{
		Engine:       string(database.EngineMySQL),
		Excluded:     discovery.NewSchemaSet("information_schema", "mysql", "performance_schema", "sys"),
		ScanStrategy: discovery.SchemaFirst,
		Isolation:    "SET SESSION TRANSACTION ISOLATION LEVEL READ UNCOMMITTED",
	}}
}

// likeEscape is named in every ESCAPE clause. Unlike backslash it means
// the same with and without NO_BACKSLASH_ESCAPES.
const likeEscape = "!"

// EscapeEntityNameForMetadata escapes with likeEscape.
func (d *Driver) EscapeEntityNameForMetadata(name string) string {
	return database.EscapeLikeWith(name, likeEscape)
}

// SimpleSelectProbeQuery returns SELECT TRUE AS `_` FROM `s`.`t` WHERE 1 <> 1 LIMIT 0.
func (d *Driver) SimpleSelectProbeQuery(schema, table string) (string, []any) {
	return database.Select(database.DialectMySQL).
		Expr("TRUE", "_").
		From(schema, table).
		Never().
		Limit(0).
		Build()
}

func (d *Driver) Catalog() discovery.Catalog {
	return catalog{}
}
