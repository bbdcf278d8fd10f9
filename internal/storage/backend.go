package storage

import (
	"context"
	"errors"
	"io"
	"iter"
	"net/url"
	"time"
)

// ErrNotExist must be wrapped by backends when an object or bucket is missing.
// Every other backend error is treated as a storage fault.
var ErrNotExist = errors.New("object or bucket does not exist")

// ObjectInfo is what a backend reports about a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
	ETag         string
	Metadata     map[string]string
}

// PutOptions carries the headers stored with an object.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// Backend is the narrow object-store contract the gateway depends on.
// Implementations must be safe for concurrent use.
type Backend interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string) error
	// PutObject streams r into bucket/key. size may be -1 when unknown.
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts PutOptions) (ObjectInfo, error)
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	StatObject(ctx context.Context, bucket, key string) (ObjectInfo, error)
	// ListObjects walks the backend's paginated listing lazily. Breaking out
	// of the loop stops pagination.
	ListObjects(ctx context.Context, bucket, prefix string) iter.Seq2[ObjectInfo, error]
	RemoveObject(ctx context.Context, bucket, key string) error
	PresignObject(ctx context.Context, method, bucket, key string, expiry time.Duration) (*url.URL, error)
}
