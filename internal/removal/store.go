package removal

import (
	"context"
	"time"
)

// Store persists removal requests with the same conditional-transition
// contract as the consent store: preconditions that no longer hold surface as
// sentinel.ErrInvalidState, missing requests as sentinel.ErrNotFound, and a
// second pending request for a key as sentinel.ErrConflict.
type Store interface {
	Create(ctx context.Context, req Request) error
	Find(ctx context.Context, recordID, subjectID string) (Request, error)

	// Resolve moves a pending request to accepted or rejected, recording the
	// subject's free-text response.
	Resolve(ctx context.Context, recordID, subjectID string, to Status, response string, respondedAt time.Time) (Request, error)

	// DeletePending hard-deletes a pending request (manager cancellation).
	DeletePending(ctx context.Context, recordID, subjectID string) error

	ListByRecord(ctx context.Context, recordID string) ([]Request, error)
	ListBySubject(ctx context.Context, subjectID string) ([]Request, error)
}
