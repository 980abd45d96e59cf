// Package catalog publishes scan inventories as JSON snapshots to an
// object store and reads them back.
package catalog

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/koustreak/tablescan/internal/discovery"
)

// keyTime formats CollectedAt in object keys. The fixed-width fraction
// keeps keys of scans within the same second in time order.
const keyTime = "20060102T150405.000000000Z"

// Snapshot is one published inventory.
type Snapshot struct {
	Database    string               `json:"database"`
	Engine      string               `json:"engine"`
	ScanID      string               `json:"scan_id"`
	CollectedAt time.Time            `json:"collected_at"`
	Count       int                  `json:"count"`
	Tables      *discovery.Inventory `json:"tables"`
}

// NewSnapshot stamps inv with the current UTC time.
func NewSnapshot(database, engine, scanID string, inv *discovery.Inventory) *Snapshot {
	return &Snapshot{
		Database:    database,
		Engine:      engine,
		ScanID:      scanID,
		CollectedAt: time.Now().UTC(),
		Count:       inv.Len(),
		Tables:      inv,
	}
}

// Key returns prefix/<database>/<collected_at>-<scan_id>.json.
func (s *Snapshot) Key(prefix string) string {
	name := fmt.Sprintf("%s-%s.json", s.CollectedAt.UTC().Format(keyTime), s.ScanID)
	return path.Join(strings.Trim(prefix, "/"), s.Database, name)
}

// databasePrefix is the listing prefix for all snapshots of database.
func databasePrefix(prefix, database string) string {
	return path.Join(strings.Trim(prefix, "/"), database) + "/"
}
