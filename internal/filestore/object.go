package filestore

import (
	"io"
	"time"
)

// ObjectInfo describes a single object stored in a bucket.
type ObjectInfo struct {
	// Key is the full object path within the bucket
	// (e.g. "inventories/warehouse/20260101T000000Z-<id>.json").
	Key string `json:"key"`

	// Size is the byte size of the object. -1 if unknown.
	Size int64 `json:"size"`

	ContentType  string    `json:"content_type,omitempty"`
	ETag         string    `json:"etag,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// Object is a streaming handle to an object's content.
// The caller MUST call Close() after reading to avoid resource leaks.
type Object interface {
	io.ReadCloser

	// Info returns the metadata for this object.
	Info() *ObjectInfo
}

// ListOptions controls how ListObjects filters results.
type ListOptions struct {
	// Prefix restricts results to objects whose key starts with this string.
	Prefix string

	// Limit caps the number of results returned. 0 means no cap.
	Limit int
}
