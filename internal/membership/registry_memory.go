package membership

import (
	"context"
	"slices"
	"sync"
)

// InMemoryRegistry keeps membership in maps for development and tests.
type InMemoryRegistry struct {
	mu       sync.RWMutex
	subjects map[string]map[string]struct{} // recordID -> set of subjectIDs
}

func NewInMemoryRegistry() *InMemoryRegistry {
	return &InMemoryRegistry{subjects: make(map[string]map[string]struct{})}
}

func (r *InMemoryRegistry) IsMember(_ context.Context, recordID, subjectID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.subjects[recordID][subjectID]
	return ok, nil
}

func (r *InMemoryRegistry) Add(_ context.Context, recordID, subjectID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.subjects[recordID]
	if !ok {
		set = make(map[string]struct{})
		r.subjects[recordID] = set
	}
	set[subjectID] = struct{}{}
	return nil
}

func (r *InMemoryRegistry) Remove(_ context.Context, recordID, subjectID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subjects[recordID], subjectID)
	return nil
}

func (r *InMemoryRegistry) List(_ context.Context, recordID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.subjects[recordID]))
	for subjectID := range r.subjects[recordID] {
		out = append(out, subjectID)
	}
	slices.Sort(out)
	return out, nil
}
