package memory

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/r3form/internal/core/domain"
	"github.com/custodia-labs/r3form/internal/core/ports/driven"
)

// Ensure CacheStore implements the interface.
var _ driven.CacheStore = (*CacheStore)(nil)

// CacheStore is an in-memory implementation of driven.CacheStore.
type CacheStore struct {
	mu      sync.RWMutex
	entries map[string]domain.CacheEntry
}

// NewCacheStore creates a new in-memory cache store.
func NewCacheStore() *CacheStore {
	return &CacheStore{
		entries: make(map[string]domain.CacheEntry),
	}
}

// Get retrieves an entry.
func (s *CacheStore) Get(_ context.Context, key string) (*domain.CacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	entry.Payload = append([]byte(nil), entry.Payload...)
	return &entry, nil
}

// Put stores or replaces an entry.
func (s *CacheStore) Put(_ context.Context, key string, payload []byte, storedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = domain.CacheEntry{
		Key:      domain.CacheKey(key),
		Payload:  append([]byte(nil), payload...),
		StoredAt: storedAt,
	}
	return nil
}

// Delete removes entries.
func (s *CacheStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.entries, k)
	}
	return nil
}

// Len returns the number of stored entries.
func (s *CacheStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
