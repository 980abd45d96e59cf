package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/tablescan/internal/discovery"
	"github.com/koustreak/tablescan/internal/errs"
	"github.com/koustreak/tablescan/internal/filestore/filestoretest"
)

func inventory(names ...string) *discovery.Inventory {
	inv := discovery.NewInventory()
	for _, n := range names {
		inv.Add(discovery.Table{Schema: "public", Name: n})
	}
	return inv
}

func TestSnapshot_Key(t *testing.T) {
	s := &Snapshot{
		Database:    "warehouse",
		ScanID:      "abc",
		CollectedAt: time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC),
	}

	assert.Equal(t, "inventories/warehouse/20260304T050607.000000000Z-abc.json", s.Key("inventories"))
	assert.Equal(t, "a/b/warehouse/20260304T050607.000000000Z-abc.json", s.Key("/a/b/"))
	assert.Equal(t, "warehouse/20260304T050607.000000000Z-abc.json", s.Key(""))
}

func TestNewSnapshot(t *testing.T) {
	s := NewSnapshot("wh", "postgres", "id", inventory("a", "b"))

	assert.Equal(t, 2, s.Count)
	assert.Equal(t, time.UTC, s.CollectedAt.Location())
	assert.WithinDuration(t, time.Now(), s.CollectedAt, time.Minute)
}

func TestPublisher_PublishAndRead(t *testing.T) {
	ctx := context.Background()
	store := filestoretest.New()
	p := NewPublisher(store, "catalogs", "inventories", nil)

	snap := NewSnapshot("wh", "postgres", "scan-1", inventory("orders", "users"))
	info, err := p.Publish(ctx, snap)
	require.NoError(t, err)

	assert.True(t, store.HasBucket("catalogs"))
	assert.Equal(t, snap.Key("inventories"), info.Key)

	stat, err := store.StatObject(ctx, "catalogs", info.Key)
	require.NoError(t, err)
	assert.Equal(t, "application/json", stat.ContentType)

	got, err := p.Get(ctx, info.Key)
	require.NoError(t, err)
	assert.Equal(t, "wh", got.Database)
	assert.Equal(t, "postgres", got.Engine)
	assert.Equal(t, "scan-1", got.ScanID)
	assert.Equal(t, 2, got.Count)
	assert.True(t, snap.Tables.Equal(got.Tables))
}

func TestPublisher_Latest(t *testing.T) {
	ctx := context.Background()
	p := NewPublisher(filestoretest.New(), "catalogs", "inv", nil)

	older := NewSnapshot("wh", "mysql", "one", inventory("a"))
	older.CollectedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := NewSnapshot("wh", "mysql", "two", inventory("a", "b"))
	newer.CollectedAt = time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	other := NewSnapshot("whx", "mysql", "three", inventory("z"))

	for _, s := range []*Snapshot{newer, older, other} {
		_, err := p.Publish(ctx, s)
		require.NoError(t, err)
	}

	objs, err := p.List(ctx, "wh")
	require.NoError(t, err)
	require.Len(t, objs, 2)
	assert.Equal(t, older.Key("inv"), objs[0].Key)

	latest, err := p.Latest(ctx, "wh")
	require.NoError(t, err)
	assert.Equal(t, "two", latest.ScanID)
	assert.Equal(t, 2, latest.Tables.Len())
}

func TestPublisher_LatestWithinOneSecond(t *testing.T) {
	ctx := context.Background()
	p := NewPublisher(filestoretest.New(), "catalogs", "inv", nil)

	// Scan IDs sort opposite to collection time.
	older := NewSnapshot("wh", "mysql", "zzz", inventory("a"))
	older.CollectedAt = time.Date(2026, 1, 1, 0, 0, 0, 900, time.UTC)
	newer := NewSnapshot("wh", "mysql", "aaa", inventory("a", "b"))
	newer.CollectedAt = time.Date(2026, 1, 1, 0, 0, 0, 5000, time.UTC)

	for _, s := range []*Snapshot{newer, older} {
		_, err := p.Publish(ctx, s)
		require.NoError(t, err)
	}

	assert.Less(t, older.Key("inv"), newer.Key("inv"))

	latest, err := p.Latest(ctx, "wh")
	require.NoError(t, err)
	assert.Equal(t, "aaa", latest.ScanID)
}

func TestPublisher_LatestMissing(t *testing.T) {
	p := NewPublisher(filestoretest.New(), "catalogs", "inv", nil)

	_, err := p.Latest(context.Background(), "wh")

	assert.True(t, errs.IsNotFound(err))
}

func TestPublisher_Invalid(t *testing.T) {
	p := NewPublisher(filestoretest.New(), "catalogs", "inv", nil)
	ctx := context.Background()

	_, err := p.Publish(ctx, nil)
	assert.True(t, errs.IsInvalidInput(err))

	_, err = p.Publish(ctx, &Snapshot{Database: "wh", Tables: inventory()})
	assert.True(t, errs.IsInvalidInput(err))
}

func TestPublisher_PutError(t *testing.T) {
	store := filestoretest.New()
	store.PutErr = errs.Wrap(errs.ErrKindPermissionDenied, "put", errors.New("denied"))
	p := NewPublisher(store, "catalogs", "inv", nil)

	_, err := p.Publish(context.Background(), NewSnapshot("wh", "sqlite", "id", inventory("a")))

	assert.True(t, errs.IsPermissionDenied(err))
}
