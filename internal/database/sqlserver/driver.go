package sqlserver

import (
	"strings"

	"github.com/koustreak/tablescan/internal/database"
	"github.com/koustreak/tablescan/internal/discovery"
)

// Driver is the SQL Server discovery driver.
type Driver struct {
	discovery.Base
}

// NewDriver returns the SQL Server driver. Fixed database roles own schemas
// of their own; they hold no user tables and are skipped with the system
// schemas.
func NewDriver() *Driver {
	return &Driver{Base: discovery.Base{
		Engine: string(database.EngineSQLServer),
		Excluded: discovery.NewSchemaSet(
			"sys", "INFORMATION_SCHEMA", "guest",
			"db_owner", "db_accessadmin", "db_securityadmin", "db_ddladmin",
			"db_backupoperator", "db_datareader", "db_datawriter",
			"db_denydatareader", "db_denydatawriter",
		),
		ScanStrategy: discovery.SchemaFirst,
		Isolation:    "SET TRANSACTION ISOLATION LEVEL READ UNCOMMITTED",
	}}
}

// EscapeEntityNameForMetadata also escapes '[', which starts a character
// class in SQL Server LIKE patterns.
func (d *Driver) EscapeEntityNameForMetadata(name string) string {
	return strings.ReplaceAll(database.EscapeLike(name), "[", `\[`)
}

// SimpleSelectProbeQuery returns SELECT TOP (@p1) 1 AS [_] FROM [s].[t] WHERE 1 <> 1.
func (d *Driver) SimpleSelectProbeQuery(schema, table string) (string, []any) {
	return database.Select(database.DialectSQLServer).
		Expr("1", "_").
		From(schema, table).
		Never().
		Limit(0).
		Build()
}

func (d *Driver) Catalog() discovery.Catalog {
	return catalog{}
}
