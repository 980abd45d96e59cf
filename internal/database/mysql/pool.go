package mysql

import (
	"context"

	_ "github.com/go-sql-driver/mysql" // register "mysql" driver

	"github.com/koustreak/tablescan/internal/database"
	"github.com/koustreak/tablescan/internal/database/sqldb"
)

// Open opens a MySQL connection pool using cfg and verifies it with a ping.
// The DSN uses the go-sql-driver format, e.g.
// "user:pass@tcp(localhost:3306)/shop".
func Open(ctx context.Context, cfg *database.Config) (*sqldb.Pool, error) {
	return sqldb.Open(ctx, "mysql", cfg, mapError)
}
