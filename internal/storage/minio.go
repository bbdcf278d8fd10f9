package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/abduss/filegate/internal/config"
)

const defaultObjectStoreTimeout = 5 * time.Second

// NewMinIOClient establishes a MinIO client using the provided configuration.
func NewMinIOClient(cfg config.MinIOConfig) (*minio.Client, error) {
	endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "https://"), "http://")
	if !strings.Contains(endpoint, ":") {
		// default to MinIO API port when not supplied explicitly
		endpoint = fmt.Sprintf("%s:9000", endpoint)
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return client, nil
}

// minioAPI is the subset of *minio.Client used by MinIOBackend.
type minioAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	Presign(ctx context.Context, method, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
}

// MinIOBackend adapts minio.Client to the Backend interface.
type MinIOBackend struct {
	client minioAPI
	region string
}

// NewMinIOBackend constructs an adapter. region is used when creating buckets.
func NewMinIOBackend(client *minio.Client, region string) *MinIOBackend {
	return &MinIOBackend{client: client, region: region}
}

func (s *MinIOBackend) BucketExists(ctx context.Context, bucket string) (bool, error) {
	ok, err := s.client.BucketExists(ctx, bucket)
	return ok, classifyMinIOError(err)
}

func (s *MinIOBackend) MakeBucket(ctx context.Context, bucket string) error {
	return classifyMinIOError(s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: s.region}))
}

func (s *MinIOBackend) PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts PutOptions) (ObjectInfo, error) {
	info, err := s.client.PutObject(ctx, bucket, key, r, size, minio.PutObjectOptions{
		ContentType:  opts.ContentType,
		UserMetadata: opts.Metadata,
	})
	if err != nil {
		return ObjectInfo{}, classifyMinIOError(err)
	}
	return ObjectInfo{
		Key:          info.Key,
		Size:         info.Size,
		ContentType:  opts.ContentType,
		LastModified: info.LastModified,
		ETag:         info.ETag,
		Metadata:     opts.Metadata,
	}, nil
}

// GetObject forces the first request with Stat so a missing key surfaces
// here rather than on the first Read.
func (s *MinIOBackend) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, classifyMinIOError(err)
	}
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, classifyMinIOError(err)
	}
	return obj, nil
}

func (s *MinIOBackend) StatObject(ctx context.Context, bucket, key string) (ObjectInfo, error) {
	info, err := s.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return ObjectInfo{}, classifyMinIOError(err)
	}
	return fromMinIOInfo(info), nil
}

func (s *MinIOBackend) ListObjects(ctx context.Context, bucket, prefix string) iter.Seq2[ObjectInfo, error] {
	return func(yield func(ObjectInfo, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		for info := range s.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
			if info.Err != nil {
				yield(ObjectInfo{}, classifyMinIOError(info.Err))
				return
			}
			if !yield(fromMinIOInfo(info), nil) {
				return
			}
		}
	}
}

func (s *MinIOBackend) RemoveObject(ctx context.Context, bucket, key string) error {
	return classifyMinIOError(s.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}))
}

func (s *MinIOBackend) PresignObject(ctx context.Context, method, bucket, key string, expiry time.Duration) (*url.URL, error) {
	u, err := s.client.Presign(ctx, method, bucket, key, expiry, url.Values{})
	return u, classifyMinIOError(err)
}

func fromMinIOInfo(info minio.ObjectInfo) ObjectInfo {
	meta := make(map[string]string, len(info.UserMetadata))
	for k, v := range info.UserMetadata {
		meta[strings.ToLower(strings.TrimPrefix(http.CanonicalHeaderKey(k), "X-Amz-Meta-"))] = v
	}
	return ObjectInfo{
		Key:          info.Key,
		Size:         info.Size,
		ContentType:  info.ContentType,
		LastModified: info.LastModified,
		ETag:         info.ETag,
		Metadata:     meta,
	}
}

// classifyMinIOError wraps missing-key and missing-bucket responses with ErrNotExist.
func classifyMinIOError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NoSuchBucket", "NoSuchObject", "NotFound":
		return fmt.Errorf("%w: %w", ErrNotExist, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %w", ErrNotExist, err)
	}
	return err
}

// EnsureBucket ensures the target bucket exists, creating it if necessary.
func EnsureBucket(ctx context.Context, backend Backend, bucket string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultObjectStoreTimeout)
	defer cancel()

	exists, err := backend.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("check bucket existence: %w", err)
	}

	if exists {
		return nil
	}

	if err := backend.MakeBucket(ctx, bucket); err != nil {
		return fmt.Errorf("create bucket %q: %w", bucket, err)
	}

	return nil
}
