package discovery

import (
	"context"
	"iter"

	"github.com/koustreak/tablescan/internal/database"
)

// DefaultPageSize is the number of catalog rows fetched per query.
const DefaultPageSize = 500

// TableQuery narrows a table listing. A nil SchemaPattern matches every
// schema. Patterns are LIKE patterns escaped by the driver's
// EscapeEntityNameForMetadata.
type TableQuery struct {
	SchemaPattern *string
	NamePattern   string
	Kinds         []TableKind
}

// Catalog reads one page of an engine's catalog. Implementations must
// fully read and close their cursor before returning, and return rows in
// ascending key order so the last row can serve as the next page's start.
type Catalog interface {
	// SchemaPage returns up to limit schema names greater than after.
	SchemaPage(ctx context.Context, conn database.Conn, after string, limit int) ([]string, error)

	// TablePage returns up to limit candidates matching q whose key is
	// greater than after.
	TablePage(ctx context.Context, conn database.Conn, q TableQuery, after TableKey, limit int) ([]TableCandidate, error)
}

// MetadataSource exposes an engine catalog as lazy sequences over a single
// connection. No cursor stays open while a sequence is suspended, so the
// connection can run probes and nested listings between elements.
type MetadataSource struct {
	conn     database.Conn
	catalog  Catalog
	pageSize int
}

// NewMetadataSource wraps conn and catalog. A non-positive pageSize selects
// DefaultPageSize.
func NewMetadataSource(conn database.Conn, catalog Catalog, pageSize int) *MetadataSource {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &MetadataSource{conn: conn, catalog: catalog, pageSize: pageSize}
}

// ListSchemas yields every schema name the session can see. A read failure
// is yielded once and ends the sequence.
func (m *MetadataSource) ListSchemas(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		after := ""
		for {
			page, err := m.catalog.SchemaPage(ctx, m.conn, after, m.pageSize)
			if err != nil {
				yield("", err)
				return
			}
			for _, name := range page {
				if !yield(name, nil) {
					return
				}
			}
			if len(page) < m.pageSize {
				return
			}
			after = page[len(page)-1]
		}
	}
}

// ListTables yields the relations matching the patterns and kinds. A read
// failure is yielded once and ends the sequence.
func (m *MetadataSource) ListTables(ctx context.Context, schemaPattern *string, namePattern string, kinds []TableKind) iter.Seq2[TableCandidate, error] {
	q := TableQuery{SchemaPattern: schemaPattern, NamePattern: namePattern, Kinds: kinds}
	return func(yield func(TableCandidate, error) bool) {
		var after TableKey
		for {
			page, err := m.catalog.TablePage(ctx, m.conn, q, after, m.pageSize)
			if err != nil {
				yield(TableCandidate{}, err)
				return
			}
			for _, c := range page {
				if !yield(c, nil) {
					return
				}
			}
			if len(page) < m.pageSize {
				return
			}
			after = page[len(page)-1].Key()
		}
	}
}
