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

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/abduss/filegate/internal/apperr"
)

// DefaultPresignExpiry applies when the caller gives no expiry.
const DefaultPresignExpiry = 60 * time.Minute

const tracerName = "filegate.storage"

// Observer receives per-operation telemetry.
type Observer interface {
	ObserveOperation(op string, duration time.Duration, err error)
	ObserveUpload(sizeBytes int64)
}

// GatewayConfig is fixed at construction.
type GatewayConfig struct {
	// PublicEndpoint is the base for PublicURL, e.g. http://localhost:9000.
	PublicEndpoint string
	// DefaultExpiry overrides DefaultPresignExpiry when positive.
	DefaultExpiry time.Duration
	Observer      Observer
}

// Gateway runs object operations against a Backend and maps its failures
// onto the apperr taxonomy. It keeps no per-request state.
type Gateway struct {
	backend       Backend
	endpoint      string
	defaultExpiry time.Duration
	observer      Observer
}

// NewGateway constructs a gateway around backend.
func NewGateway(backend Backend, cfg GatewayConfig) *Gateway {
	expiry := cfg.DefaultExpiry
	if expiry <= 0 {
		expiry = DefaultPresignExpiry
	}
	return &Gateway{
		backend:       backend,
		endpoint:      strings.TrimSuffix(cfg.PublicEndpoint, "/"),
		defaultExpiry: expiry,
		observer:      cfg.Observer,
	}
}

// Put ensures the bucket exists and streams r into it, returning the integrity tag.
func (g *Gateway) Put(ctx context.Context, bucket, key string, r io.Reader, size int64, opts PutOptions) (ObjectInfo, error) {
	ctx, span := startSpan(ctx, "put", bucket, key)
	start := time.Now()
	info, err := g.put(ctx, bucket, key, r, size, opts)
	g.finish(span, "put", start, err)
	if err == nil {
		g.observeUpload(info.Size)
	}
	return info, err
}

func (g *Gateway) put(ctx context.Context, bucket, key string, r io.Reader, size int64, opts PutOptions) (ObjectInfo, error) {
	if err := g.ensureBucket(ctx, bucket); err != nil {
		return ObjectInfo{}, err
	}
	info, err := g.backend.PutObject(ctx, bucket, key, r, size, opts)
	if err != nil {
		return ObjectInfo{}, g.mapError(ctx, "put", bucket, key, err)
	}
	if info.Key == "" {
		info.Key = key
	}
	return info, nil
}

func (g *Gateway) ensureBucket(ctx context.Context, bucket string) error {
	exists, err := g.backend.BucketExists(ctx, bucket)
	if err != nil {
		return g.mapError(ctx, "bucket exists", bucket, "", err)
	}
	if exists {
		return nil
	}
	if err := g.backend.MakeBucket(ctx, bucket); err != nil {
		// A concurrent writer may have created it first.
		if ok, checkErr := g.backend.BucketExists(ctx, bucket); checkErr == nil && ok {
			return nil
		}
		return g.mapError(ctx, "make bucket", bucket, "", err)
	}
	return nil
}

// Stat reports size, content type, modification time and etag of an object.
func (g *Gateway) Stat(ctx context.Context, bucket, key string) (ObjectInfo, error) {
	ctx, span := startSpan(ctx, "stat", bucket, key)
	start := time.Now()
	info, err := g.backend.StatObject(ctx, bucket, key)
	if err != nil {
		err = g.mapError(ctx, "stat", bucket, key, err)
	}
	g.finish(span, "stat", start, err)
	return info, err
}

// Get opens the object for streaming. The caller closes the reader.
func (g *Gateway) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	ctx, span := startSpan(ctx, "get", bucket, key)
	start := time.Now()
	rc, err := g.backend.GetObject(ctx, bucket, key)
	if err != nil {
		err = g.mapError(ctx, "get", bucket, key, err)
	}
	g.finish(span, "get", start, err)
	return rc, err
}

// List yields the objects under prefix in backend order. The sequence is
// lazy and restartable: each range starts a fresh listing.
func (g *Gateway) List(ctx context.Context, bucket, prefix string) iter.Seq2[ObjectInfo, error] {
	return func(yield func(ObjectInfo, error) bool) {
		ctx, span := startSpan(ctx, "list", bucket, prefix)
		start := time.Now()
		var failure error
		defer func() { g.finish(span, "list", start, failure) }()

		for info, err := range g.backend.ListObjects(ctx, bucket, prefix) {
			if err != nil {
				failure = g.mapError(ctx, "list", bucket, "", err)
				yield(ObjectInfo{}, failure)
				return
			}
			if !yield(info, nil) {
				return
			}
		}
	}
}

// Remove deletes an object. Any failure, including a missing bucket, yields false.
func (g *Gateway) Remove(ctx context.Context, bucket, key string) bool {
	ctx, span := startSpan(ctx, "remove", bucket, key)
	start := time.Now()
	err := g.backend.RemoveObject(ctx, bucket, key)
	if err != nil {
		err = g.mapError(ctx, "remove", bucket, key, err)
	}
	g.finish(span, "remove", start, err)
	return err == nil
}

// Presign confirms the object exists and mints a time-limited GET URL.
// A non-positive expiry uses the default.
func (g *Gateway) Presign(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
	return g.PresignMethod(ctx, http.MethodGet, bucket, key, expiry)
}

// PresignMethod is Presign for an explicit HTTP method.
func (g *Gateway) PresignMethod(ctx context.Context, method, bucket, key string, expiry time.Duration) (string, error) {
	if _, err := g.Stat(ctx, bucket, key); err != nil {
		return "", err
	}
	if expiry <= 0 {
		expiry = g.defaultExpiry
	}

	ctx, span := startSpan(ctx, "presign", bucket, key)
	start := time.Now()
	u, err := g.backend.PresignObject(ctx, method, bucket, key, expiry)
	if err != nil {
		err = g.mapError(ctx, "presign", bucket, key, err)
	}
	g.finish(span, "presign", start, err)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// PublicURL composes endpoint/bucket/key. It never calls the backend and so
// says nothing about existence.
func (g *Gateway) PublicURL(bucket, key string) string {
	return fmt.Sprintf("%s/%s/%s", g.endpoint, bucket, url.PathEscape(key))
}

// Ping checks backend reachability through a bucket existence probe.
func (g *Gateway) Ping(ctx context.Context, bucket string) error {
	if _, err := g.backend.BucketExists(ctx, bucket); err != nil {
		return g.mapError(ctx, "ping", bucket, "", err)
	}
	return nil
}

func (g *Gateway) mapError(ctx context.Context, op, bucket, key string, err error) error {
	if apperr.IsValidation(err) {
		return err
	}
	if errors.Is(err, ErrNotExist) {
		return &apperr.NotFoundError{Bucket: bucket, Object: key, Err: err}
	}
	timeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || ctx.Err() != nil
	return &apperr.StorageError{Op: op, Timeout: timeout, Err: err}
}

func (g *Gateway) finish(span trace.Span, op string, start time.Time, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
	if g.observer != nil {
		g.observer.ObserveOperation(op, time.Since(start), err)
	}
}

func (g *Gateway) observeUpload(size int64) {
	if g.observer != nil && size > 0 {
		g.observer.ObserveUpload(size)
	}
}

func startSpan(ctx context.Context, op, bucket, key string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "storage."+op, trace.WithAttributes(
		attribute.String("storage.bucket", bucket),
		attribute.String("storage.key", key),
	))
}
