package memory

import (
	"context"
	"sync"
)

// FlagStore implements ports.FlagStore in memory.
// Safe for concurrent use.
type FlagStore struct {
	data map[string]bool
	mu   sync.RWMutex
}

// NewFlagStore creates a new in-memory flag store.
func NewFlagStore() *FlagStore {
	return &FlagStore{
		data: make(map[string]bool),
	}
}

// GetFlag returns the stored value, false when unset.
func (s *FlagStore) GetFlag(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data[key], nil
}

// SetFlag stores the value.
func (s *FlagStore) SetFlag(ctx context.Context, key string, value bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}
