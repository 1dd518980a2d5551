package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithClock(time.Now)
}

func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	return &MemoryStore{entries: map[string]entry{}, now: now}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	item, exists := s.entries[key]
	s.mu.RUnlock()

	if !exists || !s.now().Before(item.expiresAt) {
		return nil, false, nil
	}

	out := make([]byte, len(item.value))
	copy(out, item.value)
	return out, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	s.mu.Lock()
	s.entries[key] = entry{value: stored, expiresAt: s.now().Add(ttl)}
	s.mu.Unlock()

	return nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// PurgeExpired drops every entry whose ttl has elapsed and reports how many.
func (s *MemoryStore) PurgeExpired() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, item := range s.entries {
		if !now.Before(item.expiresAt) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

func (s *MemoryStore) StartJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.PurgeExpired()
		}
	}
}
