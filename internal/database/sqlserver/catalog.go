package sqlserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/koustreak/tablescan/internal/database"
	"github.com/koustreak/tablescan/internal/discovery"
)

// objectTypes maps each table kind to its sys.objects.type code.
var objectTypes = map[discovery.TableKind]string{
	discovery.KindTable: "U",
	discovery.KindView:  "V",
}

type catalog struct{}

// Names are compared with a binary collation so keyset paging agrees with
// the ORDER BY regardless of the database's default collation.
func (catalog) SchemaPage(ctx context.Context, conn database.Conn, after string, limit int) ([]string, error) {
	const q = `
		SELECT TOP (@p2) s.name
		FROM sys.schemas s
		WHERE s.name COLLATE Latin1_General_BIN2 > @p1
		ORDER BY s.name COLLATE Latin1_General_BIN2`

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

	rows, err := conn.Query(ctx, tablesQuery(types),
		tq.SchemaPattern, tq.NamePattern, after.Schema, after.Name, limit)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var tables []discovery.TableCandidate
	for rows.Next() {
		var (
			c       discovery.TableCandidate
			objType string
		)
		if err := rows.Scan(&c.Schema, &c.Name, &objType, &c.Remarks); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		c.Kind = discovery.KindTable
		if objType == "V" {
			c.Kind = discovery.KindView
		}
		tables = append(tables, c)
	}
	return tables, rows.Err()
}

// tablesQuery builds the listing for the given object type codes. The codes
// come from objectTypes only, never from callers.
func tablesQuery(types []string) string {
	quoted := make([]string, len(types))
	for i, t := range types {
		quoted[i] = "'" + t + "'"
	}
	return `
		SELECT TOP (@p5)
		       s.name,
		       o.name,
		       RTRIM(o.type),
		       CAST(ep.value AS nvarchar(4000))
		FROM sys.objects o
		JOIN sys.schemas s ON s.schema_id = o.schema_id
		LEFT JOIN sys.extended_properties ep
		       ON ep.class = 1
		      AND ep.major_id = o.object_id
		      AND ep.minor_id = 0
		      AND ep.name = 'MS_Description'
		WHERE o.type IN (` + strings.Join(quoted, ", ") + `)
		  AND o.is_ms_shipped = 0
		  AND (@p1 IS NULL OR s.name LIKE @p1 ESCAPE '\')
		  AND o.name LIKE @p2 ESCAPE '\'
		  AND (s.name COLLATE Latin1_General_BIN2 > @p3
		       OR (s.name COLLATE Latin1_General_BIN2 = @p3 AND o.name COLLATE Latin1_General_BIN2 > @p4))
		ORDER BY s.name COLLATE Latin1_General_BIN2, o.name COLLATE Latin1_General_BIN2`
}

func typesFor(kinds []discovery.TableKind) []string {
	var out []string
	for _, k := range kinds {
		if t, ok := objectTypes[k]; ok {
			out = append(out, t)
		}
	}
	return out
}
