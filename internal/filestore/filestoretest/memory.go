// Package filestoretest provides an in-memory filestore.Store for tests.
package filestoretest

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/koustreak/tablescan/internal/errs"
	"github.com/koustreak/tablescan/internal/filestore"
)

type entry struct {
	data []byte
	info filestore.ObjectInfo
}

// Store keeps buckets and objects in maps. PutErr, when set, is returned
// by every PutObject call.
type Store struct {
	mu      sync.Mutex
	buckets map[string]map[string]entry
	PutErr  error
}

// New returns an empty store.
func New() *Store {
	return &Store{buckets: make(map[string]map[string]entry)}
}

func (s *Store) Ping(context.Context) error {
	return nil
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) EnsureBucket(_ context.Context, bucket string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.buckets[bucket]; !ok {
		s.buckets[bucket] = make(map[string]entry)
	}
	return nil
}

// HasBucket reports whether bucket was created.
func (s *Store) HasBucket(bucket string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.buckets[bucket]
	return ok
}

func (s *Store) PutObject(_ context.Context, bucket, key string, r io.Reader, size int64, contentType string) (*filestore.ObjectInfo, error) {
	if s.PutErr != nil {
		return nil, s.PutErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if size >= 0 && int64(len(data)) != size {
		return nil, errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("size mismatch: got %d bytes, want %d", len(data), size))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	objs, ok := s.buckets[bucket]
	if !ok {
		return nil, errs.New(errs.ErrKindNotFound, "no such bucket "+bucket)
	}
	sum := md5.Sum(data)
	info := filestore.ObjectInfo{
		Key:          key,
		Size:         int64(len(data)),
		ContentType:  contentType,
		ETag:         hex.EncodeToString(sum[:]),
		LastModified: time.Now().UTC(),
	}
	objs[key] = entry{data: data, info: info}
	return &info, nil
}

func (s *Store) lookup(bucket, key string) (entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	objs, ok := s.buckets[bucket]
	if !ok {
		return entry{}, errs.New(errs.ErrKindNotFound, "no such bucket "+bucket)
	}
	e, ok := objs[key]
	if !ok {
		return entry{}, errs.New(errs.ErrKindNotFound, "no such key "+key)
	}
	return e, nil
}

func (s *Store) GetObject(_ context.Context, bucket, key string) (filestore.Object, error) {
	e, err := s.lookup(bucket, key)
	if err != nil {
		return nil, err
	}
	info := e.info
	return &object{Reader: bytes.NewReader(e.data), info: &info}, nil
}

func (s *Store) StatObject(_ context.Context, bucket, key string) (*filestore.ObjectInfo, error) {
	e, err := s.lookup(bucket, key)
	if err != nil {
		return nil, err
	}
	info := e.info
	return &info, nil
}

func (s *Store) ListObjects(_ context.Context, bucket string, opts filestore.ListOptions) ([]filestore.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	objs, ok := s.buckets[bucket]
	if !ok {
		return nil, errs.New(errs.ErrKindNotFound, "no such bucket "+bucket)
	}

	var out []filestore.ObjectInfo
	for key, e := range objs {
		if strings.HasPrefix(key, opts.Prefix) {
			out = append(out, e.info)
		}
	}
	slices.SortFunc(out, func(a, b filestore.ObjectInfo) int {
		return strings.Compare(a.Key, b.Key)
	})
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

type object struct {
	*bytes.Reader
	info *filestore.ObjectInfo
}

func (o *object) Close() error {
	return nil
}

func (o *object) Info() *filestore.ObjectInfo {
	return o.info
}

var _ filestore.Store = (*Store)(nil)
