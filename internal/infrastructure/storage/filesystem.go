package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/erp/pdfonsubmit/internal/application/attachment"
	"github.com/erp/pdfonsubmit/internal/domain/shared"
	"go.uber.org/zap"
)

// Ensure FileSystemStore implements FileStore
var _ attachment.FileStore = (*FileSystemStore)(nil)

// ErrInvalidKey is returned for storage keys that are empty or escape the base directory
var ErrInvalidKey = errors.New("invalid storage key")

// FileSystemStoreConfig contains configuration for file system storage
type FileSystemStoreConfig struct {
	// BasePath is the root directory for stored files
	BasePath string
	Logger   *zap.Logger
}

// FileSystemStore stores files on the local file system. Private files live
// under {base}/private/..., mirroring the storage key.
type FileSystemStore struct {
	basePath string
	logger   *zap.Logger
}

// NewFileSystemStore creates a file system store, creating the base directory if needed
func NewFileSystemStore(cfg FileSystemStoreConfig) (*FileSystemStore, error) {
	if cfg.BasePath == "" {
		return nil, errors.New("storage base path is required")
	}
	if err := os.MkdirAll(cfg.BasePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", cfg.BasePath, err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileSystemStore{
		basePath: cfg.BasePath,
		logger:   logger,
	}, nil
}

// Upload writes data to the path derived from the storage key
func (s *FileSystemStore) Upload(ctx context.Context, storageKey string, data []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("upload cancelled: %w", err)
	}

	fullPath, err := s.resolve(storageKey)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Write to a temp file first so readers never see a partial PDF.
	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmpName, fullPath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move file into place: %w", err)
	}

	s.logger.Debug("file stored",
		zap.String("key", storageKey),
		zap.String("content_type", contentType),
		zap.Int("size", len(data)))
	return nil
}

// Download opens the file stored under the key
func (s *FileSystemStore) Download(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("download cancelled: %w", err)
	}

	fullPath, err := s.resolve(storageKey)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("object %s: %w", storageKey, shared.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// Delete removes the file stored under the key. Missing files are not an error.
func (s *FileSystemStore) Delete(ctx context.Context, storageKey string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delete cancelled: %w", err)
	}

	fullPath, err := s.resolve(storageKey)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	s.logger.Debug("file deleted", zap.String("key", storageKey))
	return nil
}

// resolve maps a storage key to an absolute path under the base directory
func (s *FileSystemStore) resolve(storageKey string) (string, error) {
	if storageKey == "" {
		return "", ErrInvalidKey
	}

	cleanPath := filepath.Clean(filepath.FromSlash(storageKey))
	if filepath.IsAbs(cleanPath) || containsDotDot(storageKey) {
		s.logger.Warn("blocked potentially malicious storage key", zap.String("key", storageKey))
		return "", ErrInvalidKey
	}

	absBase, err := filepath.Abs(s.basePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base path: %w", err)
	}
	absPath, err := filepath.Abs(filepath.Join(s.basePath, cleanPath))
	if err != nil {
		return "", fmt.Errorf("failed to resolve file path: %w", err)
	}
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		s.logger.Warn("path escape attempt blocked",
			zap.String("key", storageKey),
			zap.String("absPath", absPath),
			zap.String("absBase", absBase))
		return "", ErrInvalidKey
	}
	return absPath, nil
}

// containsDotDot checks if a path contains ".." components
func containsDotDot(path string) bool {
	parts := strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == '\\'
	})
	return slices.Contains(parts, "..")
}
