package discovery

import (
	"cmp"
	"encoding/json"
	"slices"
)

// Inventory is the set of readable tables found by a scan, keyed by
// (schema, name). The first entry added for a key wins.
type Inventory struct {
	tables map[TableKey]Table
}

// NewInventory returns an empty inventory.
func NewInventory() *Inventory {
	return &Inventory{tables: make(map[TableKey]Table)}
}

// Add inserts t unless its key is already present. It reports whether t
// was inserted.
func (inv *Inventory) Add(t Table) bool {
	if _, ok := inv.tables[t.Key()]; ok {
		return false
	}
	inv.tables[t.Key()] = t
	return true
}

// Len returns the number of tables.
func (inv *Inventory) Len() int {
	return len(inv.tables)
}

// Contains reports whether the table is present.
func (inv *Inventory) Contains(schema, name string) bool {
	_, ok := inv.tables[TableKey{Schema: schema, Name: name}]
	return ok
}

// Get returns the table with the given key.
func (inv *Inventory) Get(schema, name string) (Table, bool) {
	t, ok := inv.tables[TableKey{Schema: schema, Name: name}]
	return t, ok
}

// Tables returns all entries ordered by schema, then name.
func (inv *Inventory) Tables() []Table {
	out := make([]Table, 0, len(inv.tables))
	for _, t := range inv.tables {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b Table) int {
		if c := cmp.Compare(a.Schema, b.Schema); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}

// Equal reports whether both inventories hold the same keys with the same
// descriptions.
func (inv *Inventory) Equal(other *Inventory) bool {
	if inv.Len() != other.Len() {
		return false
	}
	for k, t := range inv.tables {
		o, ok := other.tables[k]
		if !ok {
			return false
		}
		if (t.Description == nil) != (o.Description == nil) {
			return false
		}
		if t.Description != nil && *t.Description != *o.Description {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the inventory as an array ordered like Tables.
func (inv *Inventory) MarshalJSON() ([]byte, error) {
	return json.Marshal(inv.Tables())
}

// UnmarshalJSON decodes an array of tables. Duplicate keys keep the first.
func (inv *Inventory) UnmarshalJSON(data []byte) error {
	var tables []Table
	if err := json.Unmarshal(data, &tables); err != nil {
		return err
	}
	inv.tables = make(map[TableKey]Table, len(tables))
	for _, t := range tables {
		inv.Add(t)
	}
	return nil
}
