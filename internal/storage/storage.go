package storage

import (
	"context"
	"errors"
	"io"
)

// ErrObjectExists is returned by Upload when the key is taken and overwrite is disabled
var ErrObjectExists = errors.New("object already exists")

// UploadOptions controls how an object is written
type UploadOptions struct {
	ContentType  string
	CacheControl string
	// Overwrite allows replacing an existing object under the same key
	Overwrite bool
}

// Storage defines the object storage operations the image gateway relies on
type Storage interface {
	// Upload stores the payload under key in bucket and returns the stored path
	Upload(ctx context.Context, bucket, key string, reader io.Reader, size int64, opts UploadOptions) (string, error)

	// PublicURL resolves the publicly reachable URL for a stored path
	PublicURL(bucket, path string) (string, error)

	// Delete removes the given keys from bucket
	Delete(ctx context.Context, bucket string, keys ...string) error
}
