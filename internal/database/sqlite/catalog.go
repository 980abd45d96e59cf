package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/koustreak/tablescan/internal/database"
	"github.com/koustreak/tablescan/internal/discovery"
)

// masterTypes maps each table kind to its sqlite_master.type.
var masterTypes = map[discovery.TableKind]string{
	discovery.KindTable: "table",
	discovery.KindView:  "view",
}

type catalog struct{}

// SchemaPage returns no schemas; SQLite has none.
func (catalog) SchemaPage(context.Context, database.Conn, string, int) ([]string, error) {
	return nil, nil
}

// TablePage ignores the schema pattern. Internal sqlite_ tables are skipped.
func (catalog) TablePage(ctx context.Context, conn database.Conn, tq discovery.TableQuery, after discovery.TableKey, limit int) ([]discovery.TableCandidate, error) {
	var types []any
	for _, k := range tq.Kinds {
		if t, ok := masterTypes[k]; ok {
			types = append(types, t)
		}
	}
	if len(types) == 0 {
		return nil, nil
	}

	q := `
		SELECT name, type
		FROM sqlite_master
		WHERE type IN (` + strings.TrimSuffix(strings.Repeat("?, ", len(types)), ", ") + `)
		  AND name NOT LIKE 'sqlite\_%' ESCAPE '\'
		  AND name LIKE ? ESCAPE '\'
		  AND name > ?
		ORDER BY name
		LIMIT ?`

	args := append(types, tq.NamePattern, after.Name, limit)
	rows, err := conn.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var tables []discovery.TableCandidate
	for rows.Next() {
		var (
			c   discovery.TableCandidate
			typ string
		)
		if err := rows.Scan(&c.Name, &typ); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		c.Kind = discovery.KindTable
		if typ == "view" {
			c.Kind = discovery.KindView
		}
		tables = append(tables, c)
	}
	return tables, rows.Err()
}
