package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/erp/pdfonsubmit/internal/application/attachment"
	"github.com/erp/pdfonsubmit/internal/domain/shared"
)

// Ensure MemoryStore implements FileStore
var _ attachment.FileStore = (*MemoryStore)(nil)

// MemoryStore keeps objects in process memory. Use it for development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

// Upload stores a copy of data under the key
func (s *MemoryStore) Upload(ctx context.Context, storageKey string, data []byte, contentType string) error {
	if storageKey == "" {
		return ErrInvalidKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[storageKey] = bytes.Clone(data)
	return nil
}

// Download returns a reader over the stored bytes
func (s *MemoryStore) Download(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[storageKey]
	if !ok {
		return nil, fmt.Errorf("object %s: %w", storageKey, shared.ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Delete removes the key
func (s *MemoryStore) Delete(ctx context.Context, storageKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, storageKey)
	return nil
}

// Len returns the number of stored objects
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
