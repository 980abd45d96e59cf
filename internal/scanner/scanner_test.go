package scanner

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/tablescan/internal/catalog"
	"github.com/koustreak/tablescan/internal/config"
	"github.com/koustreak/tablescan/internal/database"
	_ "github.com/koustreak/tablescan/internal/database/sqlite"
	"github.com/koustreak/tablescan/internal/discovery"
	"github.com/koustreak/tablescan/internal/discovery/discoverytest"
	"github.com/koustreak/tablescan/internal/errs"
	"github.com/koustreak/tablescan/internal/filestore/filestoretest"
)

func newSQLite(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	for _, s := range []string{
		`CREATE TABLE accounts (id INTEGER PRIMARY KEY)`,
		`CREATE TABLE invoices (id INTEGER PRIMARY KEY)`,
		`CREATE VIEW open_invoices AS SELECT id FROM invoices`,
	} {
		_, err := db.Exec(s)
		require.NoError(t, err)
	}
	return path
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Scan: config.ScanConfig{PageSize: 2, ProbeRate: 1000},
		Databases: []config.DatabaseConfig{
			{Name: "app", Engine: "sqlite", DSN: newSQLite(t)},
			{Name: "legacy", Engine: "sqlite", DSN: newSQLite(t), Strategy: "schema-first"},
		},
	}
}

func TestScanner_Scan(t *testing.T) {
	s := New(testConfig(t), nil, nil)
	defer s.Close()

	res, err := s.Scan(context.Background(), "app", false)
	require.NoError(t, err)

	assert.Nil(t, res.Object)
	assert.Equal(t, "app", res.Snapshot.Database)
	assert.Equal(t, "sqlite", res.Snapshot.Engine)
	assert.NotEmpty(t, res.Snapshot.ScanID)
	assert.Equal(t, 3, res.Snapshot.Count)
	assert.True(t, res.Snapshot.Tables.Contains("", "open_invoices"))

	again, err := s.Scan(context.Background(), "app", false)
	require.NoError(t, err)
	assert.NotEqual(t, res.Snapshot.ScanID, again.Snapshot.ScanID)
	assert.True(t, res.Snapshot.Tables.Equal(again.Snapshot.Tables))
}

func TestScanner_Export(t *testing.T) {
	store := filestoretest.New()
	pub := catalog.NewPublisher(store, "catalogs", "inv", nil)
	s := New(testConfig(t), pub, nil)
	defer s.Close()

	res, err := s.Scan(context.Background(), "app", true)
	require.NoError(t, err)
	require.NotNil(t, res.Object)
	assert.Equal(t, res.Snapshot.Key("inv"), res.Object.Key)

	latest, err := pub.Latest(context.Background(), "app")
	require.NoError(t, err)
	assert.Equal(t, res.Snapshot.ScanID, latest.ScanID)
}

func TestScanner_Errors(t *testing.T) {
	s := New(testConfig(t), nil, nil)
	defer s.Close()
	ctx := context.Background()

	_, err := s.Scan(ctx, "nope", false)
	assert.True(t, errs.IsNotFound(err))

	_, err = s.Scan(ctx, "app", true)
	assert.True(t, errs.IsInvalidInput(err))
}

func TestScanner_Databases(t *testing.T) {
	s := New(testConfig(t), nil, nil)

	dbs := s.Databases()

	assert.Equal(t, []DatabaseInfo{
		{Name: "app", Engine: "sqlite", Strategy: "scan-then-filter"},
		{Name: "legacy", Engine: "sqlite", Strategy: "schema-first"},
	}, dbs)
}

func TestScanner_LimiterPerScan(t *testing.T) {
	cfg := testConfig(t)
	s := New(cfg, nil, nil)

	a, b := s.limiter(), s.limiter()
	require.NotNil(t, a)
	assert.NotSame(t, a, b)

	cfg.Scan.ProbeRate = 0
	assert.Nil(t, s.limiter())
}

func TestScanner_ConcurrentScansDoNotShareRate(t *testing.T) {
	cfg := testConfig(t)
	// Three relations at two per second take about a second per scan; a
	// shared budget would need two and a half for both.
	cfg.Scan.ProbeRate = 2
	s := New(cfg, nil, nil)
	defer s.Close()

	start := time.Now()
	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.Scan(context.Background(), "app", false)
			assert.NoError(t, err)
			if err == nil {
				assert.Equal(t, 3, res.Snapshot.Count)
			}
		}()
	}
	wg.Wait()

	assert.Less(t, time.Since(start), 2*time.Second)
}

// closeCountingPool records Close calls on an in-memory pool.
type closeCountingPool struct {
	*discoverytest.Pool
	closed *atomic.Int32
}

func (p closeCountingPool) Close() { p.closed.Add(1) }

func TestScanner_SlowOpenDoesNotBlockOtherDatabases(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	discovery.Register(discovery.Registration{
		Info:   discovery.EngineInfo{Name: "slowopen"},
		Driver: discoverytest.NewDriver(discovery.ScanThenFilter),
		Open: func(ctx context.Context, _ *database.Config) (database.Pool, error) {
			close(entered)
			select {
			case <-release:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			return discoverytest.NewPool(&discoverytest.Database{}), nil
		},
	})

	cfg := testConfig(t)
	cfg.Databases = append(cfg.Databases, config.DatabaseConfig{Name: "slow", Engine: "slowopen", DSN: "x"})
	s := New(cfg, nil, nil)
	defer s.Close()
	ctx := context.Background()

	slowDone := make(chan error, 1)
	go func() {
		_, err := s.Scan(ctx, "slow", false)
		slowDone <- err
	}()
	<-entered

	appDone := make(chan error, 1)
	go func() {
		_, err := s.Scan(ctx, "app", false)
		appDone <- err
	}()

	select {
	case err := <-appDone:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		close(release)
		t.Fatal("scan of app waited for the slow open")
	}

	close(release)
	assert.NoError(t, <-slowDone)
}

func TestScanner_RacingOpensKeepOnePool(t *testing.T) {
	var (
		opened  atomic.Int32
		closed  atomic.Int32
		arrived sync.WaitGroup
	)
	arrived.Add(2)
	discovery.Register(discovery.Registration{
		Info:   discovery.EngineInfo{Name: "racingopen"},
		Driver: discoverytest.NewDriver(discovery.ScanThenFilter),
		Open: func(ctx context.Context, _ *database.Config) (database.Pool, error) {
			opened.Add(1)
			arrived.Done()
			arrived.Wait()
			return closeCountingPool{Pool: discoverytest.NewPool(&discoverytest.Database{}), closed: &closed}, nil
		},
	})

	cfg := testConfig(t)
	cfg.Databases = append(cfg.Databases, config.DatabaseConfig{Name: "shared", Engine: "racingopen", DSN: "x"})
	s := New(cfg, nil, nil)

	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Scan(context.Background(), "shared", false)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(2), opened.Load())
	assert.Equal(t, int32(1), closed.Load(), "the losing pool is closed")
	assert.Len(t, s.pools, 1)

	s.Close()
	assert.Equal(t, int32(2), closed.Load())
}
