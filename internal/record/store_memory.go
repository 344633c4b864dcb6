package record

import (
	"context"
	"sync"

	"attesto/pkg/platform/sentinel"
)

// InMemoryStore keeps records in a map for development and tests.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]Record)}
}

// Put seeds or replaces a record. Tests and the dev seeder use this; the
// engine itself never writes records.
func (s *InMemoryStore) Put(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = rec
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, recordID string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.records[recordID]; ok {
		return rec, nil
	}
	return Record{}, sentinel.ErrNotFound
}
