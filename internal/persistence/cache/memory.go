package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
)

// MemoryStore is a process local Store with a TTL and an entry bound.
type MemoryStore struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]memoryEntry
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryStore creates a MemoryStore. Non-positive ttl and maxEntries fall
// back to defaults and a nil clock uses time.Now.
func NewMemoryStore(ttl time.Duration, maxEntries int, now func() time.Time) *MemoryStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]memoryEntry),
	}
}

// Get implements Store. Values are stored encoded so callers always receive
// an independent copy.
func (s *MemoryStore) Get(_ context.Context, key string, dest any) (bool, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if s.now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return false, nil
	}
	if err := json.Unmarshal(entry.value, dest); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

// Set implements Store.
func (s *MemoryStore) Set(_ context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cached %s: %w", key, err)
	}
	expiry := s.now().Add(s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cleanupLocked()
	if _, exists := s.entries[key]; !exists && len(s.entries) >= s.maxEntries {
		s.evictOneLocked()
	}
	s.entries[key] = memoryEntry{value: raw, expiresAt: expiry}
	return nil
}

// InvalidatePrefix implements Store.
func (s *MemoryStore) InvalidatePrefix(_ context.Context, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			delete(s.entries, key)
		}
	}
	return nil
}

// Len returns the number of live and expired entries held.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *MemoryStore) cleanupLocked() {
	now := s.now()
	for key, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, key)
		}
	}
}

func (s *MemoryStore) evictOneLocked() {
	var (
		oldestKey string
		oldest    time.Time
	)
	for key, entry := range s.entries {
		if oldestKey == "" || entry.expiresAt.Before(oldest) {
			oldestKey, oldest = key, entry.expiresAt
		}
	}
	delete(s.entries, oldestKey)
}
