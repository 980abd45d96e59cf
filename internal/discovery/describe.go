package discovery

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/koustreak/tablescan/internal/database"
	"github.com/koustreak/tablescan/internal/errs"
	"github.com/koustreak/tablescan/internal/logger"
)

// Describer runs scans for one engine driver. It holds no per-scan state
// and may be reused, including concurrently against different pools.
type Describer struct {
	drv           Driver
	log           *logger.Logger
	pageSize      int
	strategy      Strategy
	strategySet   bool
	kinds         []TableKind
	extraExcluded SchemaSet
	limiter       *rate.Limiter
	scanID        string
}

// New returns a Describer for drv.
func New(drv Driver, opts ...Option) *Describer {
	d := &Describer{drv: drv, pageSize: DefaultPageSize}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Describe runs a complete scan with default options.
func Describe(ctx context.Context, drv Driver, pool database.Pool) (*Inventory, error) {
	return New(drv).Describe(ctx, pool)
}

// Describe acquires one connection from pool, enumerates the readable
// tables and returns them deduplicated by (schema, name). The connection
// is released on every path. Tables that fail their probe are left out;
// a catalog read failure aborts the scan.
func (d *Describer) Describe(ctx context.Context, pool database.Pool) (*Inventory, error) {
	scanID := d.scanID
	if scanID == "" {
		scanID = uuid.NewString()
	}
	base := d.log
	if base == nil {
		base = logger.FromContext(ctx)
	}
	log := base.With().
		Str("engine", d.drv.Name()).
		Str("scan_id", scanID).
		Logger()
	ctx = log.WithContext(ctx)
	start := time.Now()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "acquire connection", err)
	}
	defer conn.Release()

	if err := d.drv.SetBestTransactionLevel(ctx, conn); err != nil {
		log.DebugWith("isolation level not applied", map[string]interface{}{
			"error": err.Error(),
		})
	}

	strategy := d.drv.Strategy()
	if d.strategySet {
		strategy = d.strategy
	}
	kinds := d.kinds
	if len(kinds) == 0 {
		kinds = DefaultKinds
	}

	sc := &scan{
		drv:      d.drv,
		conn:     conn,
		md:       NewMetadataSource(conn, d.drv.Catalog(), d.pageSize),
		excluded: d.drv.ExcludedSchemas().Union(d.extraExcluded),
		kinds:    kinds,
		limiter:  d.limiter,
	}

	inv := NewInventory()
	for c, err := range strategy.candidates(ctx, sc) {
		if err != nil {
			log.ErrorWith("scan aborted", err, map[string]interface{}{
				"strategy": strategy.String(),
				"tables":   inv.Len(),
			})
			return nil, err
		}
		if !inv.Add(NewTable(c)) {
			sc.stats.duplicates++
		}
	}

	log.InfoWith("scan complete", map[string]interface{}{
		"strategy":   strategy.String(),
		"schemas":    sc.stats.schemas,
		"candidates": sc.stats.candidates,
		"denied":     sc.stats.denied,
		"duplicates": sc.stats.duplicates,
		"tables":     inv.Len(),
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return inv, nil
}
