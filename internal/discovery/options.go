package discovery

import (
	"golang.org/x/time/rate"

	"github.com/koustreak/tablescan/internal/logger"
)

// Option configures a Describer.
type Option func(*Describer)

// WithLogger sets the logger. Without it the logger from the scan context
// is used.
func WithLogger(l *logger.Logger) Option {
	return func(d *Describer) { d.log = l }
}

// WithPageSize sets the number of catalog rows fetched per query.
func WithPageSize(n int) Option {
	return func(d *Describer) { d.pageSize = n }
}

// WithStrategy overrides the driver's enumeration strategy.
func WithStrategy(s Strategy) Option {
	return func(d *Describer) {
		d.strategy = s
		d.strategySet = true
	}
}

// WithKinds restricts the relation types listed. An empty list falls back
// to DefaultKinds.
func WithKinds(kinds ...TableKind) Option {
	return func(d *Describer) { d.kinds = kinds }
}

// WithExcludedSchemas adds schemas to the driver's exclusion set.
func WithExcludedSchemas(names ...string) Option {
	return func(d *Describer) { d.extraExcluded = d.extraExcluded.Union(NewSchemaSet(names...)) }
}

// WithProbeLimiter throttles probes. A nil limiter disables throttling.
func WithProbeLimiter(l *rate.Limiter) Option {
	return func(d *Describer) { d.limiter = l }
}

// WithScanID sets the identifier attached to the scan's log lines. Without
// it every Describe call generates a fresh one.
func WithScanID(id string) Option {
	return func(d *Describer) { d.scanID = id }
}
