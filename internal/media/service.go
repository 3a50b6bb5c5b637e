package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/gathr/service/internal/storage"
)

// folderContentType marks zero-length folder placeholder objects.
const folderContentType = "application/x-directory"

// Service uploads and deletes entity profile images in one bucket.
// It holds no mutable state and is safe for concurrent use.
type Service struct {
	store    storage.Store
	mapper   *KeyMapper
	bucket   string
	logger   *slog.Logger
	observer Observer
}

// Option customizes a Service.
type Option func(*Service)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithObserver sets the telemetry sink. Defaults to a no-op.
func WithObserver(o Observer) Option {
	return func(s *Service) { s.observer = o }
}

// NewService creates a Service writing to the mapper's bucket through store.
// The store is owned by the caller.
func NewService(store storage.Store, mapper *KeyMapper, opts ...Option) *Service {
	s := &Service{
		store:    store,
		mapper:   mapper,
		bucket:   mapper.Bucket(),
		logger:   slog.Default(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UploadImage stores the image read from r as the profile picture of the
// entity id and returns its URL. Any existing picture is overwritten.
//
// The whole image is buffered in memory so the object length can be sent
// up front.
func (s *Service) UploadImage(ctx context.Context, r io.Reader, mimeType, id string) (string, error) {
	start := time.Now()
	url, size, err := s.upload(ctx, r, mimeType, id)
	s.observer.RecordUpload(time.Since(start), size, err)
	if err != nil {
		s.logger.Error("media: upload failed", "entity_id", id, "mime_type", mimeType, "error", err)
		return "", err
	}
	s.logger.Info("media: uploaded profile image", "entity_id", id, "url", url, "bytes", size)
	return url, nil
}

func (s *Service) upload(ctx context.Context, r io.Reader, mimeType, id string) (string, int, error) {
	if _, err := ValidateImage(mimeType, id); err != nil {
		return "", 0, err
	}
	key, err := ProfileKey(id)
	if err != nil {
		return "", 0, err
	}

	contents, err := io.ReadAll(r)
	if err != nil {
		return "", 0, fmt.Errorf("%w: read image for %q: %w", ErrProcessing, id, err)
	}

	if err := s.store.Put(ctx, s.bucket, key, bytes.NewReader(contents), int64(len(contents)), mimeType); err != nil {
		return "", 0, fmt.Errorf("upload profile image %q: %w", id, err)
	}
	return s.store.URL(s.bucket, key), len(contents), nil
}

// DeleteImage removes the profile image addressed by a URL previously
// returned by UploadImage. Deleting an image that no longer exists succeeds.
func (s *Service) DeleteImage(ctx context.Context, url string) error {
	start := time.Now()
	key, err := s.delete(ctx, url)
	s.observer.RecordDelete(time.Since(start), err)
	if err != nil {
		s.logger.Error("media: delete failed", "url", url, "error", err)
		return err
	}
	s.logger.Info("media: deleted profile image", "key", key)
	return nil
}

func (s *Service) delete(ctx context.Context, url string) (string, error) {
	key, err := s.mapper.KeyFromURL(url)
	if err != nil {
		return "", err
	}
	if _, err := ParseProfileKey(key); err != nil {
		return "", err
	}
	if err := s.store.Delete(ctx, s.bucket, key); err != nil {
		return "", fmt.Errorf("delete profile image: %w", err)
	}
	return key, nil
}

// KeyFromURL exposes the URL to key mapping used by DeleteImage.
func (s *Service) KeyFromURL(url string) (string, error) {
	return s.mapper.KeyFromURL(url)
}

// ListBucket enumerates the objects of bucket. Diagnostic only.
func (s *Service) ListBucket(ctx context.Context, bucket string) storage.ObjectIterator {
	return s.store.List(ctx, bucket)
}

// ListBuckets lists the buckets visible to the store credentials.
func (s *Service) ListBuckets(ctx context.Context) ([]storage.BucketInfo, error) {
	return s.store.Buckets(ctx)
}

// CreateFolder writes an empty "<folder>/" marker object so consoles show
// the folder before anything is stored in it.
func (s *Service) CreateFolder(ctx context.Context, bucket, folder string) error {
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return fmt.Errorf("%w: empty folder name", ErrMalformedInput)
	}
	if err := s.store.Put(ctx, bucket, folder+"/", bytes.NewReader(nil), 0, folderContentType); err != nil {
		return fmt.Errorf("create folder %q: %w", folder, err)
	}
	return nil
}
