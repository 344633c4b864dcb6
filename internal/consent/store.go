package consent

import (
	"context"
	"time"
)

// Store persists consent requests. Every transition is a conditional write
// predicated on the expected prior state, so two racing writers cannot both
// win: implementations must reject a transition whose precondition no longer
// holds with sentinel.ErrInvalidState, and report a missing request as
// sentinel.ErrNotFound.
type Store interface {
	// Create writes a new pending request. A pending request already active
	// for the (recordID, subjectID) key fails with sentinel.ErrConflict.
	Create(ctx context.Context, req Request) error

	// Find returns the most recent request for the key.
	Find(ctx context.Context, recordID, subjectID string) (Request, error)

	// Resolve moves a pending request to accepted or rejected. A rejection
	// carries its RejectionRecord; acceptance passes nil.
	Resolve(ctx context.Context, recordID, subjectID string, to Status, respondedAt time.Time, rejection *RejectionRecord) (Request, error)

	// DeletePending hard-deletes a pending request. Cancelled requests leave
	// no audit trail.
	DeletePending(ctx context.Context, recordID, subjectID string) error

	// AttachWithdrawal adds a removed_after_acceptance rejection to an
	// accepted request.
	AttachWithdrawal(ctx context.Context, recordID, subjectID string, rejection RejectionRecord) (Request, error)

	// ResolveRejection sets the creator's terminal decision on a rejection
	// whose creator response is still pending.
	ResolveRejection(ctx context.Context, recordID, subjectID string, decision CreatorDecision, respondedAt time.Time) error

	// ListByRecord returns all requests for a record, newest first.
	ListByRecord(ctx context.Context, recordID string) ([]Request, error)

	// ListBySubject returns all requests naming subjectID, newest first.
	ListBySubject(ctx context.Context, subjectID string) ([]Request, error)
}
