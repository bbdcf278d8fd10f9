package file

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"iter"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/abduss/filegate/internal/apperr"
	"github.com/abduss/filegate/internal/document"
	"github.com/abduss/filegate/internal/filetype"
	"github.com/abduss/filegate/internal/logger"
	"github.com/abduss/filegate/internal/storage"
	"github.com/abduss/filegate/internal/validation"
)

const pdfMIMEType = "application/pdf"

type objectStore interface {
	Put(ctx context.Context, bucket, key string, r io.Reader, size int64, opts storage.PutOptions) (storage.ObjectInfo, error)
	Stat(ctx context.Context, bucket, key string) (storage.ObjectInfo, error)
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	List(ctx context.Context, bucket, prefix string) iter.Seq2[storage.ObjectInfo, error]
	Remove(ctx context.Context, bucket, key string) bool
	Presign(ctx context.Context, bucket, key string, expiry time.Duration) (string, error)
	PublicURL(bucket, key string) string
}

type uploadObserver interface {
	ObserveOutcome(category, outcome string)
}

// Options tune a Service. Zero values fall back to defaults.
type Options struct {
	// BucketName maps a category bucket suffix to a bucket.
	BucketName func(suffix string) string
	// ThumbnailWidth and ThumbnailHeight are used when a request omits them.
	ThumbnailWidth  int
	ThumbnailHeight int
	// VerifyDocuments renders PDF uploads before storing them.
	VerifyDocuments bool
	Observer        uploadObserver
}

// Service validates, stores and reads back files by category.
type Service struct {
	registry   *filetype.Registry
	store      objectStore
	extractor  document.Extractor
	bucketName func(string) string
	thumbW     int
	thumbH     int
	verify     bool
	observer   uploadObserver
	now        func() time.Time
}

// NewService constructs a file service.
func NewService(registry *filetype.Registry, store objectStore, extractor document.Extractor, opts Options) *Service {
	s := &Service{
		registry:   registry,
		store:      store,
		extractor:  extractor,
		bucketName: opts.BucketName,
		thumbW:     opts.ThumbnailWidth,
		thumbH:     opts.ThumbnailHeight,
		verify:     opts.VerifyDocuments,
		observer:   opts.Observer,
		now:        time.Now,
	}
	if s.bucketName == nil {
		s.bucketName = func(suffix string) string { return "file-service-" + suffix }
	}
	if s.thumbW <= 0 {
		s.thumbW = document.DefaultThumbnailWidth
	}
	if s.thumbH <= 0 {
		s.thumbH = document.DefaultThumbnailHeight
	}
	return s
}

// Registry exposes the category table the service validates against.
func (s *Service) Registry() *filetype.Registry {
	return s.registry
}

func (s *Service) resolve(category string) (filetype.Descriptor, string, error) {
	d, ok := s.registry.Lookup(category)
	if !ok {
		return filetype.Descriptor{}, "", apperr.UnknownCategory(category)
	}
	return d, s.bucketName(d.BucketSuffix), nil
}

// Upload validates sub against category and streams it into the category bucket.
func (s *Service) Upload(ctx context.Context, category string, sub validation.Submission) (UploadResult, error) {
	log := logger.FromContext(ctx)

	d, bucket, err := s.resolve(category)
	if err != nil {
		return UploadResult{}, err
	}

	acc, err := validation.Validate(sub, d)
	if err != nil {
		s.outcome(d, "rejected")
		log.Info("upload rejected",
			zap.String("category", string(d.Category)),
			zap.String("filename", sub.Filename),
			zap.Error(err))
		return UploadResult{}, err
	}

	key := objectKey(sub.Name, acc.Name)
	hasher := sha256.New()
	var body io.Reader = io.TeeReader(acc.Body, hasher)
	size := acc.Size

	if s.verify && acc.MIMEType == pdfMIMEType {
		data, err := io.ReadAll(body)
		if err != nil {
			s.outcome(d, "rejected")
			return UploadResult{}, err
		}
		if !s.extractor.ValidateIntegrity(data) {
			s.outcome(d, "rejected")
			log.Info("upload rejected", zap.String("category", string(d.Category)), zap.String("reason", "document integrity"))
			return UploadResult{}, apperr.Processing("validate integrity", nil)
		}
		body = bytes.NewReader(data)
		size = int64(len(data))
	}

	uploadedAt := s.now().UTC()
	info, err := s.store.Put(ctx, bucket, key, body, size, storage.PutOptions{
		ContentType: acc.MIMEType,
		Metadata: map[string]string{
			metaOriginalName: url.PathEscape(acc.OriginalName),
			metaUploadedAt:   uploadedAt.Format(time.RFC3339Nano),
		},
	})
	if err != nil {
		if acc.Body.Exceeded() {
			err = apperr.SizeExceeded(acc.Body.BytesRead(), acc.Body.Limit())
		}
		s.outcome(d, "failed")
		log.Warn("upload failed", zap.String("bucket", bucket), zap.String("object", key), zap.Error(err))
		return UploadResult{}, err
	}

	stored := info.Size
	if stored <= 0 {
		stored = acc.Body.BytesRead()
	}

	s.outcome(d, "accepted")
	log.Info("upload accepted",
		zap.String("bucket", bucket),
		zap.String("object", key),
		zap.String("content_type", acc.MIMEType),
		zap.Int64("size", stored))

	return UploadResult{
		ObjectName:   key,
		OriginalName: acc.OriginalName,
		URL:          s.store.PublicURL(bucket, key),
		Bucket:       bucket,
		Category:     string(d.Category),
		Size:         stored,
		ContentType:  acc.MIMEType,
		UploadedAt:   uploadedAt,
		ETag:         info.ETag,
		Checksum:     hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// UploadMany uploads every submission concurrently and returns results in
// input order. The first failure cancels the remaining uploads.
func (s *Service) UploadMany(ctx context.Context, category string, subs []validation.Submission) ([]UploadResult, error) {
	if len(subs) == 0 {
		return nil, &apperr.ValidationError{Kind: apperr.ErrEmptyBatch}
	}
	if _, _, err := s.resolve(category); err != nil {
		return nil, err
	}

	results := make([]UploadResult, len(subs))
	g, gctx := errgroup.WithContext(ctx)
	for i, sub := range subs {
		g.Go(func() error {
			res, err := s.Upload(gctx, category, sub)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Download opens the object for streaming. The caller closes the reader.
func (s *Service) Download(ctx context.Context, name, category string) (io.ReadCloser, Record, error) {
	d, bucket, err := s.resolve(category)
	if err != nil {
		return nil, Record{}, err
	}
	info, err := s.store.Stat(ctx, bucket, name)
	if err != nil {
		return nil, Record{}, err
	}
	rc, err := s.store.Get(ctx, bucket, name)
	if err != nil {
		return nil, Record{}, err
	}
	return rc, newRecord(d, bucket, info), nil
}

// Content reads the whole object into memory.
func (s *Service) Content(ctx context.Context, name, category string) ([]byte, error) {
	_, bucket, err := s.resolve(category)
	if err != nil {
		return nil, err
	}
	return s.read(ctx, bucket, name)
}

func (s *Service) read(ctx context.Context, bucket, name string) ([]byte, error) {
	rc, err := s.store.Get(ctx, bucket, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, &apperr.StorageError{Op: "read", Timeout: ctx.Err() != nil, Err: err}
	}
	return data, nil
}

// Metadata stats the object and, for PDFs and raster images, enriches the
// record from the object's bytes. Enrichment failures are logged and leave
// the optional fields unset.
func (s *Service) Metadata(ctx context.Context, name, category string) (Record, error) {
	d, bucket, err := s.resolve(category)
	if err != nil {
		return Record{}, err
	}
	info, err := s.store.Stat(ctx, bucket, name)
	if err != nil {
		return Record{}, err
	}
	rec := newRecord(d, bucket, info)

	switch {
	case rec.ContentType == pdfMIMEType:
		s.enrichDocument(ctx, &rec)
	case strings.HasPrefix(rec.ContentType, "image/"):
		s.enrichImage(ctx, &rec)
	}
	return rec, nil
}

func (s *Service) enrichDocument(ctx context.Context, rec *Record) {
	log := logger.FromContext(ctx)

	data, err := s.read(ctx, rec.Bucket, rec.ObjectName)
	if err != nil {
		log.Warn("document enrichment skipped", zap.String("object", rec.ObjectName), zap.Error(err))
		return
	}
	md, err := s.extractor.ExtractMetadata(data)
	if err != nil {
		log.Warn("document enrichment skipped", zap.String("object", rec.ObjectName), zap.Error(err))
		return
	}

	pages := md.PageCount
	encrypted := md.Encrypted
	rec.PageCount = &pages
	rec.Encrypted = &encrypted
	rec.Title = md.Title
	rec.Author = md.Author
	rec.Subject = md.Subject
	rec.Creator = md.Creator
	rec.Producer = md.Producer
	rec.Keywords = md.Keywords
	if rec.CreatedAt == nil {
		rec.CreatedAt = md.CreatedAt
	}
}

func (s *Service) enrichImage(ctx context.Context, rec *Record) {
	log := logger.FromContext(ctx)

	rc, err := s.store.Get(ctx, rec.Bucket, rec.ObjectName)
	if err != nil {
		log.Warn("image enrichment skipped", zap.String("object", rec.ObjectName), zap.Error(err))
		return
	}
	defer rc.Close()

	img, err := document.ReadImageInfo(rc)
	if err != nil {
		log.Warn("image enrichment skipped", zap.String("object", rec.ObjectName), zap.Error(err))
		return
	}
	rec.Width = &img.Width
	rec.Height = &img.Height
	rec.ColorSpace = &img.ColorSpace
}

// List yields a record per object in the category bucket, in backend order.
// Records come from the listing alone and are not enriched.
func (s *Service) List(ctx context.Context, category string) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		d, bucket, err := s.resolve(category)
		if err != nil {
			yield(Record{}, err)
			return
		}
		for info, err := range s.store.List(ctx, bucket, "") {
			if err != nil {
				yield(Record{}, err)
				return
			}
			if !yield(newRecord(d, bucket, info), nil) {
				return
			}
		}
	}
}

// Exists reports whether the object can be stat'ed. Failures other than a
// missing object are logged and reported as absent.
func (s *Service) Exists(ctx context.Context, name, category string) bool {
	_, bucket, err := s.resolve(category)
	if err != nil {
		return false
	}
	if _, err := s.store.Stat(ctx, bucket, name); err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			logger.FromContext(ctx).Warn("exists check failed", zap.String("object", name), zap.Error(err))
		}
		return false
	}
	return true
}

// Delete removes the object. It reports false on any failure and never errors.
func (s *Service) Delete(ctx context.Context, name, category string) bool {
	_, bucket, err := s.resolve(category)
	if err != nil {
		return false
	}
	ok := s.store.Remove(ctx, bucket, name)
	logger.FromContext(ctx).Info("delete",
		zap.String("bucket", bucket),
		zap.String("object", name),
		zap.Bool("removed", ok))
	return ok
}

// PresignedURL mints a time-limited GET URL for an existing object. A
// non-positive expiry uses the configured default.
func (s *Service) PresignedURL(ctx context.Context, name, category string, expiry time.Duration) (string, error) {
	_, bucket, err := s.resolve(category)
	if err != nil {
		return "", err
	}
	return s.store.Presign(ctx, bucket, name, expiry)
}

// FileURL composes the public URL of an object without checking that it exists.
func (s *Service) FileURL(name, category string) (string, error) {
	_, bucket, err := s.resolve(category)
	if err != nil {
		return "", err
	}
	return s.store.PublicURL(bucket, name), nil
}

// PDFThumbnail renders the first page of a stored PDF as PNG. Non-positive
// dimensions use the configured defaults.
func (s *Service) PDFThumbnail(ctx context.Context, name string, width, height int) ([]byte, error) {
	data, err := s.Content(ctx, name, string(filetype.PDF))
	if err != nil {
		return nil, err
	}
	if width <= 0 {
		width = s.thumbW
	}
	if height <= 0 {
		height = s.thumbH
	}
	return s.extractor.RenderThumbnail(data, width, height)
}

// PDFText extracts the text of a stored PDF.
func (s *Service) PDFText(ctx context.Context, name string) (string, error) {
	data, err := s.Content(ctx, name, string(filetype.PDF))
	if err != nil {
		return "", err
	}
	return s.extractor.ExtractText(data)
}

// ObjectNameFromURL returns the last path segment of raw.
func ObjectNameFromURL(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	p := raw
	if u, err := url.Parse(raw); err == nil {
		p = u.Path
	}
	p = strings.TrimRight(p, "/")
	name := path.Base(p)
	if name == "." || name == "/" || name == "" {
		return "", false
	}
	return name, true
}

func (s *Service) outcome(d filetype.Descriptor, outcome string) {
	if s.observer != nil {
		s.observer.ObserveOutcome(string(d.Category), outcome)
	}
}

// objectKey keeps a caller-chosen name and otherwise generates one that
// keeps the original extension.
func objectKey(custom, resolved string) string {
	if strings.TrimSpace(custom) != "" {
		return resolved
	}
	ext := strings.ToLower(path.Ext(resolved))
	if ext == "." {
		ext = ""
	}
	return uuid.NewString() + ext
}

func newRecord(d filetype.Descriptor, bucket string, info storage.ObjectInfo) Record {
	rec := Record{
		ObjectName:   info.Key,
		Bucket:       bucket,
		Category:     string(d.Category),
		Size:         info.Size,
		ContentType:  info.ContentType,
		LastModified: info.LastModified,
		ETag:         info.ETag,
	}
	if raw, ok := info.Metadata[metaOriginalName]; ok && raw != "" {
		name, err := url.PathUnescape(raw)
		if err != nil {
			name = raw
		}
		rec.OriginalName = &name
	}
	if raw, ok := info.Metadata[metaUploadedAt]; ok {
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			rec.CreatedAt = &t
		}
	}
	return rec
}
