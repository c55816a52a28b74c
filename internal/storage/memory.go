package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/khdiyz/image-gateway/internal/pkg/logger"
)

// Object is an entry held by MemoryStorage
type Object struct {
	Data         []byte
	ContentType  string
	CacheControl string
}

// MemoryStorage keeps objects in process memory. Used for local runs and tests.
type MemoryStorage struct {
	mu      sync.RWMutex
	buckets map[string]map[string]Object
	baseURL string
	log     *logger.Logger
}

// NewMemoryStorage creates an empty in-memory store whose public URLs start with baseURL
func NewMemoryStorage(baseURL string, log *logger.Logger) *MemoryStorage {
	return &MemoryStorage{
		buckets: make(map[string]map[string]Object),
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log,
	}
}

// Upload reads the payload fully and stores it under key
func (s *MemoryStorage) Upload(ctx context.Context, bucket, key string, reader io.Reader, size int64, opts UploadOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return "", fmt.Errorf("failed to read payload: %w", err)
	}
	if size >= 0 && int64(buf.Len()) != size {
		return "", fmt.Errorf("size mismatch: declared %d, read %d", size, buf.Len())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	objects, ok := s.buckets[bucket]
	if !ok {
		objects = make(map[string]Object)
		s.buckets[bucket] = objects
	}
	if _, exists := objects[key]; exists && !opts.Overwrite {
		return "", fmt.Errorf("%w: %s", ErrObjectExists, key)
	}

	objects[key] = Object{
		Data:         buf.Bytes(),
		ContentType:  opts.ContentType,
		CacheControl: opts.CacheControl,
	}

	s.log.Debugw("Stored object in memory",
		"bucket", bucket,
		"key", key,
		"size", humanize.IBytes(uint64(buf.Len())),
	)
	return key, nil
}

// PublicURL returns baseURL/bucket/path
func (s *MemoryStorage) PublicURL(bucket, path string) (string, error) {
	u, err := url.JoinPath(s.baseURL, bucket, path)
	if err != nil {
		return "", fmt.Errorf("failed to build public url: %w", err)
	}
	return u, nil
}

// Delete removes keys from bucket. Missing keys are ignored, as S3 does.
func (s *MemoryStorage) Delete(ctx context.Context, bucket string, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	objects := s.buckets[bucket]
	for _, key := range keys {
		delete(objects, key)
	}
	return nil
}

// Get returns a stored object
func (s *MemoryStorage) Get(bucket, key string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.buckets[bucket][key]
	return obj, ok
}

// Len returns the number of objects in bucket
func (s *MemoryStorage) Len(bucket string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.buckets[bucket])
}
