package cache

import (
	"context"
	"strconv"
	"sync"
	"time"
)

type memoryEntry struct {
	value    string
	members  map[string]bool
	expireAt time.Time
}

// MemoryStore is an in-process Store used by tests and when no Redis is
// configured. Not a shared cache: entries live and die with the process.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

// SetClock overrides the time source, for TTL tests.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) getLocked(key string) *memoryEntry {
	entry, ok := s.entries[key]
	if !ok {
		return nil
	}
	if !entry.expireAt.IsZero() && !s.now().Before(entry.expireAt) {
		delete(s.entries, key)
		return nil
	}
	return entry
}

func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.getLocked(key)
	if entry == nil || entry.members != nil {
		return "", false, nil
	}
	return entry.value, true, nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := &memoryEntry{value: value}
	if ttl > 0 {
		entry.expireAt = s.now().Add(ttl)
	}
	s.entries[key] = entry
	return nil
}

func (s *MemoryStore) Del(ctx context.Context, keys ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for _, key := range keys {
		if s.getLocked(key) != nil {
			delete(s.entries, key)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) SAdd(ctx context.Context, key string, ttl time.Duration, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.getLocked(key)
	if entry == nil || entry.members == nil {
		entry = &memoryEntry{members: make(map[string]bool)}
		s.entries[key] = entry
	}
	for _, m := range members {
		entry.members[m] = true
	}
	if ttl > 0 {
		entry.expireAt = s.now().Add(ttl)
	}
	return nil
}

func (s *MemoryStore) SMembers(ctx context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.getLocked(key)
	if entry == nil || entry.members == nil {
		return nil, nil
	}
	out := make([]string, 0, len(entry.members))
	for m := range entry.members {
		out = append(out, m)
	}
	return out, nil
}

func (s *MemoryStore) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.getLocked(key)
	if entry == nil {
		entry = &memoryEntry{value: "0"}
		if window > 0 {
			entry.expireAt = s.now().Add(window)
		}
		s.entries[key] = entry
	}
	count, _ := strconv.ParseInt(entry.value, 10, 64)
	count++
	entry.value = strconv.FormatInt(count, 10)
	return count, nil
}
