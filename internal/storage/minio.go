package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/khdiyz/image-gateway/internal/config"
	"github.com/khdiyz/image-gateway/internal/pkg/logger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStorage implements the Storage interface using MinIO
type MinioStorage struct {
	client  *minio.Client
	region  string
	fileURL string
	log     *logger.Logger
}

// NewMinioStorage creates a new MinIO storage client
func NewMinioStorage(cfg *config.Config, log *logger.Logger) (*MinioStorage, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinioStorage{
		client:  client,
		region:  cfg.MinioRegion,
		fileURL: strings.TrimRight(cfg.MinioFileUrl, "/"),
		log:     log,
	}, nil
}

// EnsureBucket checks if bucket exists and creates it if it doesn't.
// With publicRead set, anonymous GET is granted on every object so resolved URLs are fetchable.
func (m *MinioStorage) EnsureBucket(ctx context.Context, bucket string, publicRead bool) error {
	exists, err := m.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		err = m.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: m.region})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
		m.log.Infow("Created new bucket", "bucket", bucket)
	}

	if publicRead {
		if err := m.client.SetBucketPolicy(ctx, bucket, publicReadPolicy(bucket)); err != nil {
			return fmt.Errorf("failed to set bucket policy: %w", err)
		}
	}

	return nil
}

// Upload uploads an object to MinIO storage
func (m *MinioStorage) Upload(ctx context.Context, bucket, key string, reader io.Reader, size int64, opts UploadOptions) (string, error) {
	putOpts := minio.PutObjectOptions{
		ContentType:  opts.ContentType,
		CacheControl: opts.CacheControl,
	}
	if !opts.Overwrite {
		// If-None-Match: * makes the server refuse to replace an existing key
		putOpts.SetMatchETagExcept("*")
	}

	_, err := m.client.PutObject(ctx, bucket, key, reader, size, putOpts)
	if err != nil {
		m.log.Errorw("Failed to upload file to MinIO",
			"bucket", bucket,
			"key", key,
			"error", err,
		)
		if isPreconditionFailed(err) {
			return "", fmt.Errorf("%w: %w", ErrObjectExists, err)
		}
		return "", err
	}

	m.log.Infow("File uploaded successfully",
		"bucket", bucket,
		"key", key,
		"size", humanize.IBytes(uint64(max(size, 0))),
	)

	return key, nil
}

// PublicURL returns the public URL for accessing an object.
// MINIO_FILE_URL is used as the base when set, the client endpoint otherwise.
func (m *MinioStorage) PublicURL(bucket, path string) (string, error) {
	base := m.fileURL
	if base == "" {
		base = m.client.EndpointURL().String()
	}

	u, err := url.JoinPath(base, bucket, path)
	if err != nil {
		return "", fmt.Errorf("failed to build public url: %w", err)
	}
	return u, nil
}

// Delete removes objects from MinIO storage
func (m *MinioStorage) Delete(ctx context.Context, bucket string, keys ...string) error {
	for _, key := range keys {
		err := m.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{})
		if err != nil {
			m.log.Errorw("Failed to delete file from MinIO",
				"bucket", bucket,
				"key", key,
				"error", err,
			)
			return err
		}

		m.log.Infow("File deleted successfully", "bucket", bucket, "key", key)
	}
	return nil
}

func isPreconditionFailed(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "PreconditionFailed" || resp.StatusCode == 412
}

// publicReadPolicy returns an S3 bucket policy that allows anonymous GET on all objects
func publicReadPolicy(bucket string) string {
	policy := map[string]any{
		"Version": "2012-10-17",
		"Statement": []map[string]any{
			{
				"Effect":    "Allow",
				"Principal": map[string]any{"AWS": []string{"*"}},
				"Action":    []string{"s3:GetObject"},
				"Resource":  []string{fmt.Sprintf("arn:aws:s3:::%s/*", bucket)},
			},
		},
	}
	b, _ := json.Marshal(policy)
	return string(b)
}
