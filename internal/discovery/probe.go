package discovery

import (
	"context"

	"github.com/koustreak/tablescan/internal/database"
	"github.com/koustreak/tablescan/internal/logger"
)

// Probe reports whether the session can read the table. It runs the
// driver's zero-row probe statement and always closes the result. Every
// kind of failure, including permission errors, missing relations and
// timeouts, yields false; the cause is only logged at debug level.
func Probe(ctx context.Context, drv Driver, conn database.Conn, schema, table string) bool {
	if err := probe(ctx, drv, conn, schema, table); err != nil {
		logger.FromContext(ctx).DebugWith("probe failed", map[string]interface{}{
			"table": TableKey{Schema: schema, Name: table}.String(),
			"error": err.Error(),
		})
		return false
	}
	return true
}

func probe(ctx context.Context, drv Driver, conn database.Conn, schema, table string) error {
	query, params := drv.SimpleSelectProbeQuery(schema, table)
	rows, err := drv.PrepareStatement(ctx, conn, query, params)
	if err != nil {
		return err
	}
	rows.Close()
	return rows.Err()
}
