package mysql

import (
	"context"
	"fmt"
	"strings"

	"github.com/koustreak/tablescan/internal/database"
	"github.com/koustreak/tablescan/internal/discovery"
)

// tableTypes maps each table kind to its information_schema.tables.table_type.
var tableTypes = map[discovery.TableKind]string{
	discovery.KindTable: "BASE TABLE",
	discovery.KindView:  "VIEW",
}

type catalog struct{}

func (catalog) SchemaPage(ctx context.Context, conn database.Conn, after string, limit int) ([]string, error) {
	const q = `
		SELECT schema_name
		FROM information_schema.schemata
		WHERE BINARY schema_name > ?
		  AND (DATABASE() IS NULL OR schema_name = DATABASE())
		ORDER BY BINARY schema_name
		LIMIT ?`

	rows, err := conn.Query(ctx, q, after, limit)
	if err != nil {
		return nil, fmt.Errorf("list schemas: %w", err)
	}
	defer rows.Close()

	var schemas []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan schema name: %w", err)
		}
		schemas = append(schemas, name)
	}
	return schemas, rows.Err()
}

func (catalog) TablePage(ctx context.Context, conn database.Conn, tq discovery.TableQuery, after discovery.TableKey, limit int) ([]discovery.TableCandidate, error) {
	types := typesFor(tq.Kinds)
	if len(types) == 0 {
		return nil, nil
	}

	args := make([]any, 0, len(types)+7)
	for _, t := range types {
		args = append(args, t)
	}
	args = append(args, tq.SchemaPattern, tq.SchemaPattern, tq.NamePattern,
		after.Schema, after.Schema, after.Name, limit)

	rows, err := conn.Query(ctx, tablesQuery(len(types)), args...)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var tables []discovery.TableCandidate
	for rows.Next() {
		var (
			c         discovery.TableCandidate
			tableType string
		)
		if err := rows.Scan(&c.Schema, &c.Name, &tableType, &c.Remarks); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		c.Kind = discovery.KindTable
		if tableType == "VIEW" {
			c.Kind = discovery.KindView
		}
		tables = append(tables, c)
	}
	return tables, rows.Err()
}

// tablesQuery builds the table listing for n table types. Patterns are
// escaped with likeEscape.
func tablesQuery(n int) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
	return `
		SELECT table_schema,
		       table_name,
		       table_type,
		       CASE WHEN table_type = 'VIEW' THEN NULL ELSE NULLIF(table_comment, '') END
		FROM information_schema.tables
		WHERE table_type IN (` + placeholders + `)
		  AND (? IS NULL OR table_schema LIKE ? ESCAPE '!')
		  AND table_name LIKE ? ESCAPE '!'
		  AND (BINARY table_schema > ? OR (BINARY table_schema = ? AND BINARY table_name > ?))
		  AND (DATABASE() IS NULL OR table_schema = DATABASE())
		ORDER BY BINARY table_schema, BINARY table_name
		LIMIT ?`
}

func typesFor(kinds []discovery.TableKind) []string {
	var out []string
	for _, k := range kinds {
		if t, ok := tableTypes[k]; ok {
			out = append(out, t)
		}
	}
	return out
}
