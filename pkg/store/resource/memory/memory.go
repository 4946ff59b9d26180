// Package memory implements an in-memory resource store. It backs
// tests and the demo configuration where no site directory exists.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/staticd-io/staticd/pkg/store/resource"
)

// MemoryStore keeps resources in a map. Safe for concurrent use.
type MemoryStore struct {
	mu        sync.RWMutex
	resources map[string][]byte
	capacity  int
}

// NewMemoryStore creates an empty in-memory store. capacity bounds
// every read; zero or negative selects resource.DefaultReadCapacity.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = resource.DefaultReadCapacity
	}
	return &MemoryStore{
		resources: make(map[string][]byte),
		capacity:  capacity,
	}
}

// Put stores a resource under path, replacing any previous bytes.
func (s *MemoryStore) Put(path string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resources[path] = append([]byte(nil), data...)
}

// Delete removes the resource at path, if present.
func (s *MemoryStore) Delete(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.resources, path)
}

// Read implements resource.Store. The returned slice is a copy,
// truncated to the store capacity.
func (s *MemoryStore) Read(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", resource.ErrIO, err)
	}

	s.mu.RLock()
	data, ok := s.resources[path]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", resource.ErrNotFound, path)
	}
	if len(data) > s.capacity {
		data = data[:s.capacity]
	}
	return append([]byte(nil), data...), nil
}

// Close implements resource.Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resources = make(map[string][]byte)
	return nil
}
