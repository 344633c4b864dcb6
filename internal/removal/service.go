package removal

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	pkgerrors "attesto/pkg/domain-errors"
	"attesto/pkg/platform/sentinel"
	"attesto/pkg/requestcontext"
)

// MembershipChecker is the read slice of the membership registry; a removal
// request cannot exist for a subject who is not currently a member.
type MembershipChecker interface {
	IsMember(ctx context.Context, recordID, subjectID string) (bool, error)
}

// Service owns the removal request lifecycle. The permission gate has already
// run in the orchestrator; this service enforces the invariants that belong
// to the request itself. It never mutates membership and never calls the
// ledger: accepting a removal only records the subject's agreement, and the
// orchestrator performs the membership removal and the subject's own
// unanchor.
type Service struct {
	store   Store
	members MembershipChecker
	logger  *slog.Logger
}

func NewService(store Store, members MembershipChecker, logger *slog.Logger) *Service {
	return &Service{store: store, members: members, logger: logger}
}

// Request opens a pending removal request against a current member.
func (s *Service) Request(ctx context.Context, recordID, subjectID, requestedBy, reason string) (Request, error) {
	member, err := s.members.IsMember(ctx, recordID, subjectID)
	if err != nil {
		return Request{}, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "check membership")
	}
	if !member {
		return Request{}, pkgerrors.New(pkgerrors.CodeNotFound, "subject is not a member of this record")
	}

	req := Request{
		ID:          uuid.NewString(),
		RecordID:    recordID,
		SubjectID:   subjectID,
		RequestedBy: requestedBy,
		Reason:      reason,
		Status:      StatusPending,
		CreatedAt:   requestcontext.Now(ctx),
	}
	if err := s.store.Create(ctx, req); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return Request{}, pkgerrors.New(pkgerrors.CodeAlreadyActive, "a pending removal request already exists for this subject")
		}
		return Request{}, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "create removal request")
	}

	s.logger.InfoContext(ctx, "removal request created",
		"record_id", recordID,
		"subject_id", subjectID,
		"requested_by", requestedBy,
	)
	return req, nil
}

// Accept records the subject's agreement to be removed and returns the
// request so the orchestrator can perform the removal and unanchor.
func (s *Service) Accept(ctx context.Context, recordID, subjectID, actorID, response string) (Request, error) {
	if actorID != subjectID {
		return Request{}, pkgerrors.New(pkgerrors.CodeForbidden, "only the named subject can accept a removal request")
	}

	req, err := s.store.Resolve(ctx, recordID, subjectID, StatusAccepted, response, requestcontext.Now(ctx))
	if err != nil {
		return Request{}, translate(err)
	}

	s.logger.InfoContext(ctx, "removal request accepted",
		"record_id", recordID,
		"subject_id", subjectID,
		"device", requestcontext.DeviceLabel(ctx),
	)
	return req, nil
}

// Reject records the subject's refusal; membership is untouched.
func (s *Service) Reject(ctx context.Context, recordID, subjectID, actorID, response string) (Request, error) {
	if actorID != subjectID {
		return Request{}, pkgerrors.New(pkgerrors.CodeForbidden, "only the named subject can reject a removal request")
	}

	req, err := s.store.Resolve(ctx, recordID, subjectID, StatusRejected, response, requestcontext.Now(ctx))
	if err != nil {
		return Request{}, translate(err)
	}

	s.logger.InfoContext(ctx, "removal request rejected",
		"record_id", recordID,
		"subject_id", subjectID,
	)
	return req, nil
}

// Cancel hard-deletes a pending removal request.
func (s *Service) Cancel(ctx context.Context, recordID, subjectID string) error {
	if err := s.store.DeletePending(ctx, recordID, subjectID); err != nil {
		return translate(err)
	}
	s.logger.InfoContext(ctx, "removal request cancelled",
		"record_id", recordID,
		"subject_id", subjectID,
	)
	return nil
}

// Get returns the most recent removal request for the key.
func (s *Service) Get(ctx context.Context, recordID, subjectID string) (Request, error) {
	req, err := s.store.Find(ctx, recordID, subjectID)
	if err != nil {
		return Request{}, translate(err)
	}
	return req, nil
}

// ListByRecord returns all removal requests for a record, newest first.
func (s *Service) ListByRecord(ctx context.Context, recordID string) ([]Request, error) {
	return s.store.ListByRecord(ctx, recordID)
}

// ListBySubject returns all removal requests naming the subject, newest first.
func (s *Service) ListBySubject(ctx context.Context, subjectID string) ([]Request, error) {
	return s.store.ListBySubject(ctx, subjectID)
}

func translate(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return pkgerrors.Wrap(err, pkgerrors.CodeNotFound, "removal request not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return pkgerrors.Wrap(err, pkgerrors.CodeInvalidState, "removal request already responded")
	default:
		return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "removal request store failure")
	}
}
