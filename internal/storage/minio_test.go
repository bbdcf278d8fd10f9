package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMinIO struct {
	buckets map[string]bool
	objects map[string]minio.ObjectInfo
	listErr error
	removed []string
}

func (f *fakeMinIO) BucketExists(_ context.Context, bucket string) (bool, error) {
	return f.buckets[bucket], nil
}

func (f *fakeMinIO) MakeBucket(_ context.Context, bucket string, _ minio.MakeBucketOptions) error {
	if f.buckets == nil {
		f.buckets = map[string]bool{}
	}
	f.buckets[bucket] = true
	return nil
}

func (f *fakeMinIO) PutObject(_ context.Context, _, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	n, err := io.Copy(io.Discard, r)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	return minio.UploadInfo{Key: key, Size: n, ETag: "etag"}, nil
}

func (f *fakeMinIO) GetObject(context.Context, string, string, minio.GetObjectOptions) (*minio.Object, error) {
	return nil, minio.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound}
}

func (f *fakeMinIO) StatObject(_ context.Context, _, key string, _ minio.StatObjectOptions) (minio.ObjectInfo, error) {
	info, ok := f.objects[key]
	if !ok {
		return minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound}
	}
	return info, nil
}

func (f *fakeMinIO) ListObjects(_ context.Context, _ string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	ch := make(chan minio.ObjectInfo, len(f.objects)+1)
	for _, info := range f.objects {
		ch <- info
	}
	if f.listErr != nil {
		ch <- minio.ObjectInfo{Err: f.listErr}
	}
	close(ch)
	return ch
}

func (f *fakeMinIO) RemoveObject(_ context.Context, _, key string, _ minio.RemoveObjectOptions) error {
	f.removed = append(f.removed, key)
	return nil
}

func (f *fakeMinIO) Presign(_ context.Context, method, bucket, key string, expires time.Duration, _ url.Values) (*url.URL, error) {
	return url.Parse("http://localhost:9000/" + bucket + "/" + key + "?X-Amz-Expires=" + strconv.FormatInt(int64(expires/time.Second), 10))
}

func TestClassifyMinIOError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		notExist bool
	}{
		{name: "no such key", err: minio.ErrorResponse{Code: "NoSuchKey"}, notExist: true},
		{name: "no such bucket", err: minio.ErrorResponse{Code: "NoSuchBucket"}, notExist: true},
		{name: "status 404", err: minio.ErrorResponse{StatusCode: http.StatusNotFound}, notExist: true},
		{name: "access denied", err: minio.ErrorResponse{Code: "AccessDenied", StatusCode: http.StatusForbidden}},
		{name: "network", err: errors.New("dial tcp: connection refused")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.notExist, errors.Is(classifyMinIOError(tt.err), ErrNotExist))
		})
	}

	assert.NoError(t, classifyMinIOError(nil))
	assert.ErrorIs(t, classifyMinIOError(context.Canceled), context.Canceled)
}

func TestMinIOBackendStatNormalizesMetadata(t *testing.T) {
	fake := &fakeMinIO{objects: map[string]minio.ObjectInfo{
		"k.pdf": {
			Key:          "k.pdf",
			Size:         10,
			ContentType:  "application/pdf",
			UserMetadata: minio.StringMap{"Original-Name": "report.pdf"},
		},
	}}
	backend := &MinIOBackend{client: fake}

	info, err := backend.StatObject(context.Background(), "b", "k.pdf")
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", info.Metadata["original-name"])
	assert.Equal(t, int64(10), info.Size)

	_, err = backend.StatObject(context.Background(), "b", "missing")
	assert.ErrorIs(t, err, ErrNotExist)

	_, err = backend.GetObject(context.Background(), "b", "missing")
	assert.ErrorIs(t, err, ErrNotExist)
}

func TestMinIOBackendListStopsOnError(t *testing.T) {
	fake := &fakeMinIO{
		objects: map[string]minio.ObjectInfo{"a": {Key: "a"}},
		listErr: minio.ErrorResponse{Code: "NoSuchBucket"},
	}
	backend := &MinIOBackend{client: fake}

	var keys []string
	var failure error
	for info, err := range backend.ListObjects(context.Background(), "b", "") {
		if err != nil {
			failure = err
			break
		}
		keys = append(keys, info.Key)
	}

	assert.Equal(t, []string{"a"}, keys)
	assert.ErrorIs(t, failure, ErrNotExist)
}

func TestEnsureBucketCreatesMissing(t *testing.T) {
	fake := &fakeMinIO{}
	backend := &MinIOBackend{client: fake}

	require.NoError(t, EnsureBucket(context.Background(), backend, "file-service-images"))
	assert.True(t, fake.buckets["file-service-images"])

	require.NoError(t, EnsureBucket(context.Background(), backend, "file-service-images"))
}
