package postgres

import (
	"context"
	"fmt"

	"github.com/koustreak/tablescan/internal/database"
	"github.com/koustreak/tablescan/internal/discovery"
)

// relkinds maps each table kind to the pg_class.relkind values it covers.
var relkinds = map[discovery.TableKind][]string{
	discovery.KindTable:            {"r", "p"},
	discovery.KindView:             {"v"},
	discovery.KindMaterializedView: {"m"},
	discovery.KindForeignTable:     {"f"},
}

// kindOf is the reverse of relkinds.
var kindOf = map[string]discovery.TableKind{
	"r": discovery.KindTable,
	"p": discovery.KindTable,
	"v": discovery.KindView,
	"m": discovery.KindMaterializedView,
	"f": discovery.KindForeignTable,
}

// catalog reads pg_catalog directly; information_schema hides relations
// the session has no privilege on, which would make probing pointless.
type catalog struct{}

func (catalog) SchemaPage(ctx context.Context, conn database.Conn, after string, limit int) ([]string, error) {
	const q = `
		SELECT nspname
		FROM pg_catalog.pg_namespace
		WHERE nspname > $1::name
		  AND nspname NOT LIKE 'pg\_temp\_%'
		  AND nspname NOT LIKE 'pg\_toast\_temp\_%'
		ORDER BY nspname
		LIMIT $2`

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
	const q = `
		SELECT n.nspname,
		       c.relname,
		       c.relkind::text,
		       obj_description(c.oid, 'pg_class')
		FROM pg_catalog.pg_class c
		JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		WHERE c.relkind::text = ANY($1::text[])
		  AND ($2::text IS NULL OR n.nspname LIKE $2::text)
		  AND c.relname LIKE $3::text
		  AND (n.nspname > $4::name OR (n.nspname = $4::name AND c.relname > $5::name))
		ORDER BY n.nspname, c.relname
		LIMIT $6`

	kinds := relkindsFor(tq.Kinds)
	if len(kinds) == 0 {
		return nil, nil
	}

	rows, err := conn.Query(ctx, q, kinds, tq.SchemaPattern, tq.NamePattern, after.Schema, after.Name, limit)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var tables []discovery.TableCandidate
	for rows.Next() {
		var (
			c       discovery.TableCandidate
			relkind string
		)
		if err := rows.Scan(&c.Schema, &c.Name, &relkind, &c.Remarks); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		c.Kind = kindOf[relkind]
		tables = append(tables, c)
	}
	return tables, rows.Err()
}

// relkindsFor expands kinds into relkind codes. Kinds PostgreSQL has no
// equivalent for are ignored.
func relkindsFor(kinds []discovery.TableKind) []string {
	var out []string
	for _, k := range kinds {
		out = append(out, relkinds[k]...)
	}
	return out
}
