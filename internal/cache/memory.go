package cache

import (
	"sync"
	"time"

	"interview-insights-go/internal/types"
)

type memoryEntry struct {
	record    *types.ProcessingRequest
	expiresAt time.Time
}

// MemoryStore is a map-backed Store for development and tests. Expiry is
// checked lazily on read.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Get(requestID string) (*types.ProcessingRequest, error) {
	s.mu.RLock()
	entry, ok := s.entries[requestID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.entries, requestID)
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	copied := *entry.record
	return &copied, nil
}

func (s *MemoryStore) Set(requestID string, req *types.ProcessingRequest, ttl time.Duration) error {
	copied := *req
	entry := memoryEntry{record: &copied}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	s.mu.Lock()
	s.entries[requestID] = entry
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(requestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[requestID]; !ok {
		return ErrNotFound
	}
	delete(s.entries, requestID)
	return nil
}

func (s *MemoryStore) Ping() error { return nil }

// Len reports the number of stored records, including not-yet-expired ones.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
