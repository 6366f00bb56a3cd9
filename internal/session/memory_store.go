package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	values    map[string]string
	expiresAt time.Time
}

// MemoryStore keeps sessions in an in-process map. Single node only and
// lost on restart; meant for development.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]memoryEntry

	// now is swappable for expiry tests.
	now func() time.Time
}

// NewMemoryStore constructs an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]memoryEntry), now: time.Now}
}

// Load returns the stored values, treating expired entries as misses.
func (s *MemoryStore) Load(_ context.Context, token string) (map[string]string, error) {
	s.mu.RLock()
	entry, ok := s.data[token]
	s.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	if s.now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.data, token)
		s.mu.Unlock()
		return nil, nil
	}

	out := make(map[string]string, len(entry.values))
	for k, v := range entry.values {
		out[k] = v
	}
	return out, nil
}

// Save stores the values and restarts the expiry window.
func (s *MemoryStore) Save(_ context.Context, token string, values map[string]string, ttl time.Duration) error {
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[token] = memoryEntry{values: copied, expiresAt: s.now().Add(ttl)}
	return nil
}

// Delete removes the session, if present.
func (s *MemoryStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, token)
	return nil
}

// Cleanup removes all expired sessions and returns how many were dropped.
func (s *MemoryStore) Cleanup() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	dropped := 0
	for token, entry := range s.data {
		if now.After(entry.expiresAt) {
			delete(s.data, token)
			dropped++
		}
	}
	return dropped
}
