package storage

import (
	"context"
	"testing"

	"github.com/erp/pdfonsubmit/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFileStore(t *testing.T) {
	ctx := context.Background()

	t.Run("filesystem", func(t *testing.T) {
		store, err := NewFileStore(ctx, &config.StorageConfig{Backend: "filesystem", BasePath: t.TempDir()}, nil)
		require.NoError(t, err)
		assert.IsType(t, &FileSystemStore{}, store)
	})

	t.Run("memory", func(t *testing.T) {
		store, err := NewFileStore(ctx, &config.StorageConfig{Backend: "memory"}, nil)
		require.NoError(t, err)
		assert.IsType(t, &MemoryStore{}, store)
	})

	t.Run("s3 without credentials", func(t *testing.T) {
		_, err := NewFileStore(ctx, &config.StorageConfig{Backend: "s3", Bucket: "b"}, nil)
		require.Error(t, err)
	})

	t.Run("gcs without bucket", func(t *testing.T) {
		_, err := NewFileStore(ctx, &config.StorageConfig{Backend: "gcs"}, nil)
		require.Error(t, err)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := NewFileStore(ctx, &config.StorageConfig{Backend: "ftp"}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown storage backend")
	})
}
