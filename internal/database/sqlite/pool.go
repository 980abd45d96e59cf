package sqlite

import (
	"context"

	_ "github.com/mattn/go-sqlite3" // register "sqlite3" driver

	"github.com/koustreak/tablescan/internal/database"
	"github.com/koustreak/tablescan/internal/database/sqldb"
)

// Open opens a SQLite database file using cfg and verifies it with a ping.
// The DSN is a file path or a file: URI, e.g. "file:catalog.db?mode=ro".
func Open(ctx context.Context, cfg *database.Config) (*sqldb.Pool, error) {
	return sqldb.Open(ctx, "sqlite3", cfg, mapError)
}
