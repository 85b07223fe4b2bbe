package settings

import (
	"context"
	"sync"

	"skyline-hq/anarchy/pkg/errorcheck"
)

// MemoryStore keeps entries in process memory. It is used in tests and when
// settings should not outlive the process.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []errorcheck.PolicyEntry
	saves   int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns a copy of the stored entries.
func (s *MemoryStore) Load(_ context.Context) ([]errorcheck.PolicyEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneEntries(s.entries), nil
}

// Save replaces the stored entries.
func (s *MemoryStore) Save(ctx context.Context, entries []errorcheck.PolicyEntry) error {
	if err := ctx.Err(); err != nil {
		return newStoreError(BackendMemory, "save", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = cloneEntries(entries)
	s.saves++
	return nil
}

// Saves returns how many times Save succeeded.
func (s *MemoryStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

// Backend returns "memory".
func (s *MemoryStore) Backend() string { return BackendMemory }

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
