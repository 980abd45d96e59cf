// Package scanner runs scans against the databases named in the
// configuration. It keeps one pool per database for the life of the
// process and optionally publishes each result.
package scanner

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/koustreak/tablescan/internal/catalog"
	"github.com/koustreak/tablescan/internal/config"
	"github.com/koustreak/tablescan/internal/database"
	"github.com/koustreak/tablescan/internal/discovery"
	"github.com/koustreak/tablescan/internal/errs"
	"github.com/koustreak/tablescan/internal/filestore"
	"github.com/koustreak/tablescan/internal/logger"
)

// DatabaseInfo describes a configured database for listings.
type DatabaseInfo struct {
	Name     string `json:"name"`
	Engine   string `json:"engine"`
	Strategy string `json:"strategy,omitempty"`
}

// Result is the outcome of one scan. Object is set when the snapshot was
// exported.
type Result struct {
	Snapshot *catalog.Snapshot
	Object   *filestore.ObjectInfo
}

// Scanner is safe for concurrent use.
type Scanner struct {
	cfg       *config.Config
	publisher *catalog.Publisher
	log       *logger.Logger

	mu    sync.Mutex
	pools map[string]database.Pool
}

// New returns a Scanner for cfg. publisher may be nil, in which case
// export requests fail.
func New(cfg *config.Config, publisher *catalog.Publisher, log *logger.Logger) *Scanner {
	if log == nil {
		log = logger.Nop()
	}
	return &Scanner{
		cfg:       cfg,
		publisher: publisher,
		log:       log,
		pools:     make(map[string]database.Pool),
	}
}

// limiter returns a fresh limiter for one scan, or nil when throttling is
// off. Scans never share a budget.
func (s *Scanner) limiter() *rate.Limiter {
	if s.cfg.Scan.ProbeRate <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(s.cfg.Scan.ProbeRate), 1)
}

// Publisher returns the configured publisher, or nil.
func (s *Scanner) Publisher() *catalog.Publisher {
	return s.publisher
}

// Databases lists the configured databases in file order. Strategy is the
// effective one: the configured override or the engine's default.
func (s *Scanner) Databases() []DatabaseInfo {
	out := make([]DatabaseInfo, 0, len(s.cfg.Databases))
	for _, db := range s.cfg.Databases {
		info := DatabaseInfo{Name: db.Name, Engine: db.Engine, Strategy: db.Strategy}
		if info.Strategy == "" {
			if reg, err := discovery.Lookup(db.Engine); err == nil {
				info.Strategy = reg.Info.Strategy
			}
		}
		out = append(out, info)
	}
	return out
}

// pool returns the cached pool for db, opening it on first use. The open
// runs outside the lock so a slow database does not hold up the others;
// when two scans race, the first pool stored wins and the other is closed.
func (s *Scanner) pool(ctx context.Context, db config.DatabaseConfig, reg discovery.Registration) (database.Pool, error) {
	s.mu.Lock()
	p, ok := s.pools[db.Name]
	s.mu.Unlock()
	if ok {
		return p, nil
	}

	p, err := reg.Open(ctx, db.Pool())
	if err != nil {
		s.log.WarnWith("open database failed", err, map[string]interface{}{
			"database": db.Name,
			"dsn":      logger.RedactDSN(db.DSN),
		})
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.pools[db.Name]; ok {
		p.Close()
		return existing, nil
	}
	s.pools[db.Name] = p
	return p, nil
}

// Scan describes the database called name. With export set the snapshot
// is also published.
func (s *Scanner) Scan(ctx context.Context, name string, export bool) (*Result, error) {
	db, ok := s.cfg.Database(name)
	if !ok {
		return nil, errs.New(errs.ErrKindNotFound, fmt.Sprintf("database %q is not configured", name))
	}
	if export && s.publisher == nil {
		return nil, errs.New(errs.ErrKindInvalidInput, "export is not configured")
	}
	reg, err := discovery.Lookup(db.Engine)
	if err != nil {
		return nil, err
	}
	pool, err := s.pool(ctx, db, reg)
	if err != nil {
		return nil, err
	}

	scanID := uuid.NewString()
	log := s.log.With().Str("database", db.Name).Logger()
	opts := append([]discovery.Option{
		discovery.WithLogger(log),
		discovery.WithPageSize(s.cfg.Scan.PageSize),
		discovery.WithProbeLimiter(s.limiter()),
		discovery.WithScanID(scanID),
	}, db.Options()...)

	inv, err := discovery.New(reg.Driver, opts...).Describe(ctx, pool)
	if err != nil {
		return nil, err
	}

	res := &Result{Snapshot: catalog.NewSnapshot(db.Name, db.Engine, scanID, inv)}
	if export {
		obj, err := s.publisher.Publish(ctx, res.Snapshot)
		if err != nil {
			return nil, err
		}
		res.Object = obj
	}
	return res, nil
}

// Close closes every pool opened so far.
func (s *Scanner) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, p := range s.pools {
		p.Close()
		delete(s.pools, name)
	}
}
