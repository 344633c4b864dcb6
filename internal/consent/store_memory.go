package consent

import (
	"context"
	"sort"
	"sync"
	"time"

	"attesto/pkg/platform/sentinel"
)

type key struct {
	recordID  string
	subjectID string
}

// InMemoryStore keeps the latest request per (record, subject) key. All
// transition preconditions are checked under the write lock, which gives the
// in-memory build the same exactly-one-winner behavior the Postgres store
// gets from conditional UPDATEs.
type InMemoryStore struct {
	mu       sync.RWMutex
	requests map[key]Request
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{requests: make(map[key]Request)}
}

func (s *InMemoryStore) Create(_ context.Context, req Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{req.RecordID, req.SubjectID}
	if existing, ok := s.requests[k]; ok && existing.Pending() {
		return sentinel.ErrConflict
	}
	s.requests[k] = req
	return nil
}

func (s *InMemoryStore) Find(_ context.Context, recordID, subjectID string) (Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if req, ok := s.requests[key{recordID, subjectID}]; ok {
		return req, nil
	}
	return Request{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) Resolve(_ context.Context, recordID, subjectID string, to Status, respondedAt time.Time, rejection *RejectionRecord) (Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{recordID, subjectID}
	req, ok := s.requests[k]
	if !ok {
		return Request{}, sentinel.ErrNotFound
	}
	if !req.Pending() {
		return Request{}, sentinel.ErrInvalidState
	}
	req.Status = to
	req.RespondedAt = &respondedAt
	req.Rejection = rejection
	s.requests[k] = req
	return req, nil
}

func (s *InMemoryStore) DeletePending(_ context.Context, recordID, subjectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{recordID, subjectID}
	req, ok := s.requests[k]
	if !ok {
		return sentinel.ErrNotFound
	}
	if !req.Pending() {
		return sentinel.ErrInvalidState
	}
	delete(s.requests, k)
	return nil
}

func (s *InMemoryStore) AttachWithdrawal(_ context.Context, recordID, subjectID string, rejection RejectionRecord) (Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{recordID, subjectID}
	req, ok := s.requests[k]
	if !ok {
		return Request{}, sentinel.ErrNotFound
	}
	if req.Status != StatusAccepted || req.Rejection != nil {
		return Request{}, sentinel.ErrInvalidState
	}
	req.Rejection = &rejection
	s.requests[k] = req
	return req, nil
}

func (s *InMemoryStore) ResolveRejection(_ context.Context, recordID, subjectID string, decision CreatorDecision, respondedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{recordID, subjectID}
	req, ok := s.requests[k]
	if !ok {
		return sentinel.ErrNotFound
	}
	if req.Rejection == nil || req.Rejection.CreatorResponse.Status != DecisionPending {
		return sentinel.ErrInvalidState
	}
	rej := *req.Rejection
	rej.CreatorResponse = CreatorResponse{Status: decision, RespondedAt: &respondedAt}
	req.Rejection = &rej
	s.requests[k] = req
	return nil
}

func (s *InMemoryStore) ListByRecord(_ context.Context, recordID string) ([]Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Request
	for k, req := range s.requests {
		if k.recordID == recordID {
			out = append(out, req)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *InMemoryStore) ListBySubject(_ context.Context, subjectID string) ([]Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Request
	for k, req := range s.requests {
		if k.subjectID == subjectID {
			out = append(out, req)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func sortNewestFirst(reqs []Request) {
	sort.Slice(reqs, func(i, j int) bool {
		return reqs[i].CreatedAt.After(reqs[j].CreatedAt)
	})
}
