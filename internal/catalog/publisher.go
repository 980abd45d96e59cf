package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/koustreak/tablescan/internal/errs"
	"github.com/koustreak/tablescan/internal/filestore"
	"github.com/koustreak/tablescan/internal/logger"
)

const contentType = "application/json"

// Publisher writes snapshots under a fixed bucket and key prefix.
// It is safe for concurrent use.
type Publisher struct {
	store  filestore.Store
	bucket string
	prefix string
	log    *logger.Logger

	mu      sync.Mutex
	ensured bool
}

// NewPublisher returns a Publisher writing to bucket under prefix.
func NewPublisher(store filestore.Store, bucket, prefix string, log *logger.Logger) *Publisher {
	if log == nil {
		log = logger.Nop()
	}
	return &Publisher{store: store, bucket: bucket, prefix: prefix, log: log}
}

// ensureBucket creates the bucket on first use. A failure is retried on
// the next publish.
func (p *Publisher) ensureBucket(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ensured {
		return nil
	}
	if err := p.store.EnsureBucket(ctx, p.bucket); err != nil {
		return err
	}
	p.ensured = true
	return nil
}

// Publish uploads snap and returns the stored object's metadata.
func (p *Publisher) Publish(ctx context.Context, snap *Snapshot) (*filestore.ObjectInfo, error) {
	if snap == nil || snap.Tables == nil {
		return nil, errs.New(errs.ErrKindInvalidInput, "snapshot has no inventory")
	}
	if snap.Database == "" || snap.ScanID == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "snapshot needs a database and a scan id")
	}

	body, err := json.Marshal(snap)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "encode snapshot", err)
	}
	if err := p.ensureBucket(ctx); err != nil {
		return nil, err
	}

	key := snap.Key(p.prefix)
	info, err := p.store.PutObject(ctx, p.bucket, key, bytes.NewReader(body), int64(len(body)), contentType)
	if err != nil {
		return nil, err
	}

	p.log.InfoWith("snapshot published", map[string]interface{}{
		"database": snap.Database,
		"scan_id":  snap.ScanID,
		"bucket":   p.bucket,
		"key":      info.Key,
		"size":     info.Size,
	})
	return info, nil
}

// List returns the stored snapshots of database, oldest first.
func (p *Publisher) List(ctx context.Context, database string) ([]filestore.ObjectInfo, error) {
	objs, err := p.store.ListObjects(ctx, p.bucket, filestore.ListOptions{
		Prefix: databasePrefix(p.prefix, database),
	})
	if err != nil {
		if errs.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return objs, nil
}

// Get reads the snapshot stored at key.
func (p *Publisher) Get(ctx context.Context, key string) (*Snapshot, error) {
	obj, err := p.store.GetObject(ctx, p.bucket, key)
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	var snap Snapshot
	if err := json.NewDecoder(obj).Decode(&snap); err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, fmt.Sprintf("decode snapshot %s", key), err)
	}
	return &snap, nil
}

// Latest returns the most recent snapshot of database.
func (p *Publisher) Latest(ctx context.Context, database string) (*Snapshot, error) {
	objs, err := p.List(ctx, database)
	if err != nil {
		return nil, err
	}
	if len(objs) == 0 {
		return nil, errs.New(errs.ErrKindNotFound, fmt.Sprintf("no snapshots for database %q", database))
	}
	return p.Get(ctx, objs[len(objs)-1].Key)
}
