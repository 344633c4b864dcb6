package syncqueue

import (
	"context"
	"sync"
)

// InMemoryStore is an append-only slice for development and tests.
type InMemoryStore struct {
	mu      sync.RWMutex
	records []FailureRecord
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, rec FailureRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

// All returns a snapshot of the logged records, oldest first.
func (s *InMemoryStore) All() []FailureRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]FailureRecord{}, s.records...)
}
