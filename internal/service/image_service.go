package service

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/khdiyz/image-gateway/internal/pkg/logger"
	"github.com/khdiyz/image-gateway/internal/storage"
)

const (
	DefaultBucket       = "user-uploads"
	DefaultCacheControl = "max-age=3600"
)

var errEmptyKey = errors.New("empty storage key")

// ImageService validates images and stores them in object storage
type ImageService struct {
	storage storage.Storage
	log     *logger.Logger

	bucket       string
	maxSizeMB    float64
	cacheControl string
	timeout      time.Duration

	now   func() time.Time
	token func() string
}

// Option configures an ImageService
type Option func(*ImageService)

// WithBucket sets the bucket used when a call passes an empty bucket name
func WithBucket(bucket string) Option {
	return func(s *ImageService) {
		if bucket != "" {
			s.bucket = bucket
		}
	}
}

// WithMaxSizeMB sets the limit used by Validate when the caller passes zero
func WithMaxSizeMB(mb float64) Option {
	return func(s *ImageService) {
		if mb > 0 {
			s.maxSizeMB = mb
		}
	}
}

// WithCacheControl sets the Cache-Control directive stored with every object
func WithCacheControl(cc string) Option {
	return func(s *ImageService) {
		if cc != "" {
			s.cacheControl = cc
		}
	}
}

// WithTimeout bounds every provider call. Zero leaves the caller's context as is.
func WithTimeout(d time.Duration) Option {
	return func(s *ImageService) {
		s.timeout = d
	}
}

// WithClock replaces the time source used for storage keys
func WithClock(now func() time.Time) Option {
	return func(s *ImageService) {
		s.now = now
	}
}

// WithTokenSource replaces the random token generator used for storage keys
func WithTokenSource(token func() string) Option {
	return func(s *ImageService) {
		s.token = token
	}
}

// NewImageService creates a new ImageService
func NewImageService(storage storage.Storage, log *logger.Logger, opts ...Option) *ImageService {
	s := &ImageService{
		storage:      storage,
		log:          log,
		bucket:       DefaultBucket,
		maxSizeMB:    DefaultMaxSizeMB,
		cacheControl: DefaultCacheControl,
		now:          time.Now,
		token:        RandomToken,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Bucket returns the default bucket
func (s *ImageService) Bucket() string {
	return s.bucket
}

// MaxSizeMB returns the default size limit
func (s *ImageService) MaxSizeMB() float64 {
	return s.maxSizeMB
}

// Validate checks file against the allow-list and maxSizeMB. Zero selects the
// configured limit; a negative limit rejects every file.
func (s *ImageService) Validate(file File, maxSizeMB float64) ValidationResult {
	if maxSizeMB == 0 {
		maxSizeMB = s.maxSizeMB
	}
	return ValidateImage(file, maxSizeMB)
}

// Upload stores file under a freshly generated key and returns its public URL.
// It does not validate; callers are expected to run Validate first.
func (s *ImageService) Upload(ctx context.Context, file File, bucket string) (string, error) {
	url, _, err := s.UploadWithKey(ctx, file, bucket)
	return url, err
}

// UploadWithKey is Upload that also returns the generated storage key
func (s *ImageService) UploadWithKey(ctx context.Context, file File, bucket string) (string, string, error) {
	bucket = s.bucketOrDefault(bucket)
	key := NewKey(s.now(), s.token(), file.Name)

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	path, err := s.storage.Upload(ctx, bucket, key, bytes.NewReader(file.Content), int64(len(file.Content)), storage.UploadOptions{
		ContentType:  file.ContentType,
		CacheControl: s.cacheControl,
		Overwrite:    false,
	})
	if err != nil {
		s.log.Errorw("Upload error", "bucket", bucket, "key", key, "error", err)
		return "", "", newUploadError(key, err)
	}

	url, err := s.storage.PublicURL(bucket, path)
	if err != nil {
		s.log.Errorw("Failed to resolve public url", "bucket", bucket, "path", path, "error", err)
		return "", "", newUploadError(key, err)
	}

	s.log.Infow("Image uploaded",
		"bucket", bucket,
		"key", key,
		"original_name", file.Name,
		"size", humanize.IBytes(uint64(len(file.Content))),
	)
	return url, key, nil
}

// DeleteByURL removes the object whose key is the last path segment of url
func (s *ImageService) DeleteByURL(ctx context.Context, url, bucket string) error {
	return s.DeleteByKey(ctx, KeyFromURL(url), bucket)
}

// DeleteByKey removes the object stored under key
func (s *ImageService) DeleteByKey(ctx context.Context, key, bucket string) error {
	bucket = s.bucketOrDefault(bucket)
	if key == "" {
		return newDeleteError(key, errEmptyKey)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.storage.Delete(ctx, bucket, key); err != nil {
		s.log.Errorw("Delete error", "bucket", bucket, "key", key, "error", err)
		return newDeleteError(key, err)
	}

	s.log.Infow("Image deleted", "bucket", bucket, "key", key)
	return nil
}

// GetURL resolves the public URL of an already stored key
func (s *ImageService) GetURL(key, bucket string) (string, error) {
	return s.storage.PublicURL(s.bucketOrDefault(bucket), key)
}

func (s *ImageService) bucketOrDefault(bucket string) string {
	if bucket == "" {
		return s.bucket
	}
	return bucket
}

func (s *ImageService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}
