package discovery

import (
	"context"
	"fmt"
	"iter"

	"golang.org/x/time/rate"

	"github.com/koustreak/tablescan/internal/database"
	"github.com/koustreak/tablescan/internal/errs"
)

// Strategy selects how candidates are enumerated.
type Strategy int

const (
	// SchemaFirst lists schemas, drops excluded ones, then lists tables
	// one schema at a time.
	SchemaFirst Strategy = iota

	// ScanThenFilter lists all tables in one pass and drops those in
	// excluded schemas. Used by engines whose schema listing is
	// unreliable or absent.
	ScanThenFilter
)

func (s Strategy) String() string {
	switch s {
	case ScanThenFilter:
		return "scan-then-filter"
	default:
		return "schema-first"
	}
}

// ParseStrategy accepts "schema-first" and "scan-then-filter".
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "schema-first":
		return SchemaFirst, nil
	case "scan-then-filter":
		return ScanThenFilter, nil
	default:
		return SchemaFirst, errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("unknown strategy %q", s))
	}
}

// MarshalText encodes the strategy by name.
func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// scanStats is tallied during one scan and logged at the end.
type scanStats struct {
	schemas    int
	candidates int
	denied     int
	duplicates int
}

// scan is the per-invocation state a strategy enumerates with.
type scan struct {
	drv      Driver
	conn     database.Conn
	md       *MetadataSource
	excluded SchemaSet
	kinds    []TableKind
	limiter  *rate.Limiter
	stats    scanStats
}

// candidates yields the readable candidates. The first error ends the
// sequence and aborts the scan.
func (s Strategy) candidates(ctx context.Context, sc *scan) iter.Seq2[TableCandidate, error] {
	if s == ScanThenFilter {
		return sc.scanThenFilter(ctx)
	}
	return sc.schemaFirst(ctx)
}

func (sc *scan) schemaFirst(ctx context.Context) iter.Seq2[TableCandidate, error] {
	return func(yield func(TableCandidate, error) bool) {
		for schema, err := range FilterSchemas(sc.md.ListSchemas(ctx), sc.excluded) {
			if err != nil {
				yield(TableCandidate{}, errs.Wrap(errs.ErrKindMetadata, "list schemas", err))
				return
			}
			sc.stats.schemas++

			pattern := sc.drv.EscapeEntityNameForMetadata(schema)
			for c, err := range sc.md.ListTables(ctx, &pattern, "%", sc.kinds) {
				if err != nil {
					yield(TableCandidate{}, errs.Wrap(errs.ErrKindMetadata, fmt.Sprintf("list tables in schema %q", schema), err))
					return
				}
				ok, err := sc.check(ctx, c)
				if err != nil {
					yield(TableCandidate{}, err)
					return
				}
				if ok && !yield(c, nil) {
					return
				}
			}
		}
	}
}

func (sc *scan) scanThenFilter(ctx context.Context) iter.Seq2[TableCandidate, error] {
	return func(yield func(TableCandidate, error) bool) {
		seen := make(map[string]struct{})
		for c, err := range sc.md.ListTables(ctx, nil, "%", sc.kinds) {
			if err != nil {
				yield(TableCandidate{}, errs.Wrap(errs.ErrKindMetadata, "list tables", err))
				return
			}
			if sc.excluded.Contains(c.Schema) {
				continue
			}
			if _, ok := seen[c.Schema]; !ok {
				seen[c.Schema] = struct{}{}
				sc.stats.schemas++
			}
			ok, err := sc.check(ctx, c)
			if err != nil {
				yield(TableCandidate{}, err)
				return
			}
			if ok && !yield(c, nil) {
				return
			}
		}
	}
}

// check probes c, waiting on the limiter first. Only a cancelled wait is
// an error; probe failures just report false.
func (sc *scan) check(ctx context.Context, c TableCandidate) (bool, error) {
	sc.stats.candidates++
	if sc.limiter != nil {
		if err := sc.limiter.Wait(ctx); err != nil {
			return false, errs.Wrap(errs.ErrKindTimeout, "wait for probe slot", err)
		}
	}
	if !Probe(ctx, sc.drv, sc.conn, c.Schema, c.Name) {
		sc.stats.denied++
		return false, nil
	}
	return true, nil
}
