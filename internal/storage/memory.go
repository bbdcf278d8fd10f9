package storage

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/md5"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"iter"
	"maps"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MemoryBackend keeps objects in process memory. It follows S3 semantics for
// missing keys and is meant for local runs and tests.
type MemoryBackend struct {
	mu       sync.RWMutex
	buckets  map[string]map[string]memoryObject
	secret   []byte
	endpoint string
	now      func() time.Time
	pageSize int
}

type memoryObject struct {
	data []byte
	info ObjectInfo
}

// NewMemoryBackend returns an empty in-memory store whose presigned URLs are
// rooted at endpoint.
func NewMemoryBackend(endpoint string) *MemoryBackend {
	secret := make([]byte, 32)
	_, _ = rand.Read(secret)
	if endpoint == "" {
		endpoint = "memory://local"
	}
	return &MemoryBackend{
		buckets:  make(map[string]map[string]memoryObject),
		secret:   secret,
		endpoint: strings.TrimSuffix(endpoint, "/"),
		now:      time.Now,
		pageSize: 100,
	}
}

func (m *MemoryBackend) BucketExists(ctx context.Context, bucket string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.buckets[bucket]
	return ok, nil
}

func (m *MemoryBackend) MakeBucket(ctx context.Context, bucket string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.buckets[bucket]; ok {
		return fmt.Errorf("bucket %q already exists", bucket)
	}
	m.buckets[bucket] = make(map[string]memoryObject)
	return nil
}

func (m *MemoryBackend) PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts PutOptions) (ObjectInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return ObjectInfo{}, err
	}
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, err
	}
	if size >= 0 && int64(len(data)) != size {
		return ObjectInfo{}, fmt.Errorf("short write: declared %d bytes, got %d", size, len(data))
	}
	sum := md5.Sum(data)
	contentType := opts.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	info := ObjectInfo{
		Key:          key,
		Size:         int64(len(data)),
		ContentType:  contentType,
		LastModified: m.now().UTC(),
		ETag:         hex.EncodeToString(sum[:]),
		Metadata:     maps.Clone(opts.Metadata),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	objects, ok := m.buckets[bucket]
	if !ok {
		return ObjectInfo{}, fmt.Errorf("bucket %q: %w", bucket, ErrNotExist)
	}
	objects[key] = memoryObject{data: data, info: info}
	return info, nil
}

func (m *MemoryBackend) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	obj, err := m.lookup(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (m *MemoryBackend) StatObject(ctx context.Context, bucket, key string) (ObjectInfo, error) {
	obj, err := m.lookup(ctx, bucket, key)
	if err != nil {
		return ObjectInfo{}, err
	}
	info := obj.info
	info.Metadata = maps.Clone(info.Metadata)
	return info, nil
}

func (m *MemoryBackend) lookup(ctx context.Context, bucket, key string) (memoryObject, error) {
	if err := ctx.Err(); err != nil {
		return memoryObject{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	objects, ok := m.buckets[bucket]
	if !ok {
		return memoryObject{}, fmt.Errorf("bucket %q: %w", bucket, ErrNotExist)
	}
	obj, ok := objects[key]
	if !ok {
		return memoryObject{}, fmt.Errorf("key %q: %w", key, ErrNotExist)
	}
	return obj, nil
}

// ListObjects pages through a key snapshot in lexical order, pageSize keys at a time.
func (m *MemoryBackend) ListObjects(ctx context.Context, bucket, prefix string) iter.Seq2[ObjectInfo, error] {
	return func(yield func(ObjectInfo, error) bool) {
		after := ""
		for {
			page, more, err := m.page(ctx, bucket, prefix, after)
			if err != nil {
				yield(ObjectInfo{}, err)
				return
			}
			for _, info := range page {
				if !yield(info, nil) {
					return
				}
				after = info.Key
			}
			if !more {
				return
			}
		}
	}
}

func (m *MemoryBackend) page(ctx context.Context, bucket, prefix, after string) ([]ObjectInfo, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	objects, ok := m.buckets[bucket]
	if !ok {
		return nil, false, fmt.Errorf("bucket %q: %w", bucket, ErrNotExist)
	}
	keys := make([]string, 0, len(objects))
	for k := range objects {
		if strings.HasPrefix(k, prefix) && k > after {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	more := len(keys) > m.pageSize
	if more {
		keys = keys[:m.pageSize]
	}
	out := make([]ObjectInfo, 0, len(keys))
	for _, k := range keys {
		out = append(out, objects[k].info)
	}
	return out, more, nil
}

// RemoveObject succeeds for missing keys, like S3; a missing bucket is an error.
func (m *MemoryBackend) RemoveObject(ctx context.Context, bucket, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	objects, ok := m.buckets[bucket]
	if !ok {
		return fmt.Errorf("bucket %q: %w", bucket, ErrNotExist)
	}
	delete(objects, key)
	return nil
}

// PresignObject returns an HMAC-signed URL carrying X-Amz style query parameters.
func (m *MemoryBackend) PresignObject(ctx context.Context, method, bucket, key string, expiry time.Duration) (*url.URL, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u, err := url.Parse(fmt.Sprintf("%s/%s/%s", m.endpoint, bucket, url.PathEscape(key)))
	if err != nil {
		return nil, err
	}
	date := m.now().UTC().Format("20060102T150405Z")
	seconds := strconv.FormatInt(int64(expiry/time.Second), 10)

	mac := hmac.New(sha256.New, m.secret)
	fmt.Fprintf(mac, "%s\n%s\n%s\n%s\n%s", method, bucket, key, date, seconds)

	q := url.Values{}
	q.Set("X-Amz-Algorithm", "AWS4-HMAC-SHA256")
	q.Set("X-Amz-Date", date)
	q.Set("X-Amz-Expires", seconds)
	q.Set("X-Amz-SignedHeaders", "host")
	q.Set("X-Amz-Signature", hex.EncodeToString(mac.Sum(nil)))
	u.RawQuery = q.Encode()
	return u, nil
}
