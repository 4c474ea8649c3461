package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"cloud.google.com/go/storage"
	"github.com/erp/pdfonsubmit/internal/application/attachment"
	"github.com/erp/pdfonsubmit/internal/domain/shared"
	infraconfig "github.com/erp/pdfonsubmit/internal/infrastructure/config"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Ensure GCSStore implements FileStore
var _ attachment.FileStore = (*GCSStore)(nil)

// GCSStore implements FileStore on a Google Cloud Storage bucket
type GCSStore struct {
	client *storage.Client
	bucket *storage.BucketHandle
	name   string
	logger *zap.Logger
}

// NewGCSStore creates a GCS client. Without a credentials file the
// application default credentials are used.
func NewGCSStore(ctx context.Context, cfg *infraconfig.StorageConfig, logger *zap.Logger) (*GCSStore, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &GCSStore{
		client: client,
		bucket: client.Bucket(cfg.Bucket),
		name:   cfg.Bucket,
		logger: logger,
	}, nil
}

// Upload writes the object only if it does not already exist. An existing
// object under the same key is left untouched.
func (s *GCSStore) Upload(ctx context.Context, storageKey string, data []byte, contentType string) error {
	if storageKey == "" {
		return ErrInvalidKey
	}

	writer := s.bucket.Object(storageKey).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	writer.ContentType = contentType

	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write to GCS: %w", err)
	}
	if err := writer.Close(); err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
			s.logger.Info("object already exists, skipping upload", zap.String("key", storageKey))
			return nil
		}
		return fmt.Errorf("failed to finalize GCS write: %w", err)
	}

	s.logger.Debug("object uploaded",
		zap.String("bucket", s.name),
		zap.String("key", storageKey),
		zap.Int("size", len(data)))
	return nil
}

// Download opens a reader on the object
func (s *GCSStore) Download(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	if storageKey == "" {
		return nil, ErrInvalidKey
	}
	reader, err := s.bucket.Object(storageKey).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("object %s: %w", storageKey, shared.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read GCS object: %w", err)
	}
	return reader, nil
}

// Delete removes the object; a missing object is not an error
func (s *GCSStore) Delete(ctx context.Context, storageKey string) error {
	if storageKey == "" {
		return ErrInvalidKey
	}
	if err := s.bucket.Object(storageKey).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete GCS object: %w", err)
	}
	return nil
}

// Close releases the client
func (s *GCSStore) Close() error {
	return s.client.Close()
}
