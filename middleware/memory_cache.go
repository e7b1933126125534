package middleware

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps entries in process memory. Expired entries are removed
// lazily on Get and by a cleanup loop every minute.
type MemoryStore struct {
	items     map[string]memoryCacheEntry
	mu        sync.RWMutex
	stopClean chan struct{}
	closeOnce sync.Once
}

type memoryCacheEntry struct {
	Data      []byte
	ExpiresAt time.Time
}

func (e memoryCacheEntry) expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// NewMemoryStore starts the cleanup loop; Close stops it.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		items:     make(map[string]memoryCacheEntry),
		stopClean: make(chan struct{}),
	}
	go s.cleanupLoop()
	return s
}

func (s *MemoryStore) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopClean:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *MemoryStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for k, v := range s.items {
		if v.expired(now) {
			delete(s.items, k)
		}
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	entry, found := s.items[key]
	s.mu.RUnlock()
	if !found {
		return nil, false, nil
	}
	if entry.expired(time.Now()) {
		s.mu.Lock()
		delete(s.items, key)
		s.mu.Unlock()
		return nil, false, nil
	}
	return entry.Data, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	entry := memoryCacheEntry{Data: value}
	if ttl > 0 {
		entry.ExpiresAt = time.Now().Add(ttl)
	}
	s.mu.Lock()
	s.items[key] = entry
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Flush(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.items {
		if strings.HasPrefix(k, CacheKeyPrefix) {
			delete(s.items, k)
		}
	}
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() { close(s.stopClean) })
	return nil
}
