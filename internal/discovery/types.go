// Package discovery determines which schemas and tables of a live database
// are visible and readable, and collects them into an Inventory.
//
// A scan holds one connection for its whole duration. Catalog listings are
// lazy sequences read in small pages; every candidate table is checked with
// a zero-row probe before it is admitted, so objects the session cannot
// read are silently left out instead of failing the scan.
//
// Usage:
//
//	drv := postgres.NewDriver()
//	inv, err := discovery.Describe(ctx, drv, pool)
//	if err != nil {
//	    return err
//	}
//	for _, t := range inv.Tables() {
//	    fmt.Println(t.Schema, t.Name)
//	}
package discovery

import "strings"

// TableKind is the relation type reported by the catalog.
type TableKind string

const (
	KindTable            TableKind = "TABLE"
	KindView             TableKind = "VIEW"
	KindForeignTable     TableKind = "FOREIGN_TABLE"
	KindMaterializedView TableKind = "MATERIALIZED_VIEW"
	KindExternalTable    TableKind = "EXTERNAL_TABLE"
)

// DefaultKinds is the set of relation types a scan asks for.
var DefaultKinds = []TableKind{
	KindTable,
	KindView,
	KindForeignTable,
	KindMaterializedView,
	KindExternalTable,
}

// TableCandidate is a relation reported by the catalog that has not yet
// been access-checked. Remarks is nil when the catalog has no comment.
type TableCandidate struct {
	Schema  string
	Name    string
	Kind    TableKind
	Remarks *string
}

// Key returns the candidate's (schema, name) identity.
func (c TableCandidate) Key() TableKey {
	return TableKey{Schema: c.Schema, Name: c.Name}
}

// TableKey identifies a table within an inventory. Schema is empty for
// engines without schemas.
type TableKey struct {
	Schema string
	Name   string
}

func (k TableKey) String() string {
	if k.Schema == "" {
		return k.Name
	}
	return k.Schema + "." + k.Name
}

// Table is one entry of an inventory.
type Table struct {
	Name        string  `json:"name"`
	Schema      string  `json:"schema,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Key returns the table's (schema, name) identity.
func (t Table) Key() TableKey {
	return TableKey{Schema: t.Schema, Name: t.Name}
}

// NewTable normalizes a candidate into an inventory entry. Blank or
// whitespace-only remarks become a nil description; anything else is kept
// verbatim.
func NewTable(c TableCandidate) Table {
	t := Table{Name: c.Name, Schema: c.Schema}
	if c.Remarks != nil && strings.TrimSpace(*c.Remarks) != "" {
		desc := *c.Remarks
		t.Description = &desc
	}
	return t
}
