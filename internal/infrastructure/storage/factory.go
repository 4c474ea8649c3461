package storage

import (
	"context"
	"fmt"

	"github.com/erp/pdfonsubmit/internal/application/attachment"
	infraconfig "github.com/erp/pdfonsubmit/internal/infrastructure/config"
	"go.uber.org/zap"
)

// NewFileStore builds the file store selected by storage.backend
func NewFileStore(ctx context.Context, cfg *infraconfig.StorageConfig, logger *zap.Logger) (attachment.FileStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Backend {
	case "", "filesystem":
		return NewFileSystemStore(FileSystemStoreConfig{BasePath: cfg.BasePath, Logger: logger})
	case "s3":
		store, err := NewS3Store(cfg, WithLogger(logger))
		if err != nil {
			return nil, err
		}
		if cfg.CreateBucket {
			if err := store.EnsureBucket(ctx); err != nil {
				return nil, err
			}
		}
		return store, nil
	case "gcs":
		return NewGCSStore(ctx, cfg, logger)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
