package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/url"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/abduss/filegate/internal/config"
)

// GCSBackend implements Backend on Google Cloud Storage.
type GCSBackend struct {
	client    *storage.Client
	projectID string
	location  string
}

// NewGCSClient opens a GCS client, optionally from a credentials file or a custom endpoint.
func NewGCSClient(ctx context.Context, cfg config.GCSConfig) (*storage.Client, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return client, nil
}

// NewGCSBackend wraps client. projectID and location are used when creating buckets.
func NewGCSBackend(client *storage.Client, projectID, location string) *GCSBackend {
	return &GCSBackend{client: client, projectID: projectID, location: location}
}

func (g *GCSBackend) BucketExists(ctx context.Context, bucket string) (bool, error) {
	_, err := g.client.Bucket(bucket).Attrs(ctx)
	if errors.Is(err, storage.ErrBucketNotExist) {
		return false, nil
	}
	if err != nil {
		return false, classifyGCSError(err)
	}
	return true, nil
}

func (g *GCSBackend) MakeBucket(ctx context.Context, bucket string) error {
	if g.projectID == "" {
		return fmt.Errorf("create bucket %q: gcs project id required", bucket)
	}
	attrs := &storage.BucketAttrs{Location: g.location}
	return classifyGCSError(g.client.Bucket(bucket).Create(ctx, g.projectID, attrs))
}

func (g *GCSBackend) PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts PutOptions) (ObjectInfo, error) {
	// Close commits the object; cancelling the writer's context first abandons it.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := g.client.Bucket(bucket).Object(key).NewWriter(ctx)
	w.ContentType = opts.ContentType
	w.Metadata = opts.Metadata

	written, err := io.Copy(w, r)
	if err == nil && size >= 0 && written != size {
		err = fmt.Errorf("short write: declared %d bytes, got %d", size, written)
	}
	if err != nil {
		cancel()
		_ = w.Close()
		return ObjectInfo{}, classifyGCSError(err)
	}
	if err := w.Close(); err != nil {
		return ObjectInfo{}, classifyGCSError(err)
	}
	return fromGCSAttrs(w.Attrs()), nil
}

func (g *GCSBackend) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	rc, err := g.client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, classifyGCSError(err)
	}
	return rc, nil
}

func (g *GCSBackend) StatObject(ctx context.Context, bucket, key string) (ObjectInfo, error) {
	attrs, err := g.client.Bucket(bucket).Object(key).Attrs(ctx)
	if err != nil {
		return ObjectInfo{}, classifyGCSError(err)
	}
	return fromGCSAttrs(attrs), nil
}

func (g *GCSBackend) ListObjects(ctx context.Context, bucket, prefix string) iter.Seq2[ObjectInfo, error] {
	return func(yield func(ObjectInfo, error) bool) {
		it := g.client.Bucket(bucket).Objects(ctx, &storage.Query{Prefix: prefix})
		for {
			attrs, err := it.Next()
			if errors.Is(err, iterator.Done) {
				return
			}
			if err != nil {
				yield(ObjectInfo{}, classifyGCSError(err))
				return
			}
			if !yield(fromGCSAttrs(attrs), nil) {
				return
			}
		}
	}
}

// RemoveObject treats a missing object as already removed.
func (g *GCSBackend) RemoveObject(ctx context.Context, bucket, key string) error {
	err := g.client.Bucket(bucket).Object(key).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return classifyGCSError(err)
}

func (g *GCSBackend) PresignObject(_ context.Context, method, bucket, key string, expiry time.Duration) (*url.URL, error) {
	signed, err := g.client.Bucket(bucket).SignedURL(key, &storage.SignedURLOptions{
		Method:  method,
		Expires: time.Now().Add(expiry),
		Scheme:  storage.SigningSchemeV4,
	})
	if err != nil {
		return nil, fmt.Errorf("sign url: %w", err)
	}
	return url.Parse(signed)
}

func fromGCSAttrs(attrs *storage.ObjectAttrs) ObjectInfo {
	if attrs == nil {
		return ObjectInfo{}
	}
	return ObjectInfo{
		Key:          attrs.Name,
		Size:         attrs.Size,
		ContentType:  attrs.ContentType,
		LastModified: attrs.Updated,
		ETag:         attrs.Etag,
		Metadata:     attrs.Metadata,
	}
}

func classifyGCSError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return fmt.Errorf("%w: %w", ErrNotExist, err)
	}
	return err
}
