package consent

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"attesto/internal/record"
	pkgerrors "attesto/pkg/domain-errors"
	"attesto/pkg/platform/sentinel"
	"attesto/pkg/requestcontext"
)

// MembershipChecker is the slice of the membership registry this service
// needs: Create must refuse candidates who are already members.
type MembershipChecker interface {
	IsMember(ctx context.Context, recordID, subjectID string) (bool, error)
}

// Service owns the consent request lifecycle. It validates preconditions,
// translates store sentinels into domain errors, and never touches membership
// itself; the orchestrator sequences membership mutation after acceptance.
type Service struct {
	store   Store
	members MembershipChecker
	logger  *slog.Logger
}

func NewService(store Store, members MembershipChecker, logger *slog.Logger) *Service {
	return &Service{store: store, members: members, logger: logger}
}

// Create opens a pending consent request proposing subjectID as the record's
// subject with the given role.
func (s *Service) Create(ctx context.Context, recordID, subjectID, requestedBy string, role record.Role, title string, grantedAccess bool) (Request, error) {
	if !role.Valid() {
		return Request{}, pkgerrors.New(pkgerrors.CodeBadRequest, "invalid requested role: "+string(role))
	}

	member, err := s.members.IsMember(ctx, recordID, subjectID)
	if err != nil {
		return Request{}, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "check membership")
	}
	if member {
		return Request{}, pkgerrors.New(pkgerrors.CodeAlreadyMember, "subject is already linked to this record")
	}

	req := Request{
		ID:                     uuid.NewString(),
		RecordID:               recordID,
		SubjectID:              subjectID,
		RequestedBy:            requestedBy,
		RequestedRole:          role,
		Title:                  title,
		Status:                 StatusPending,
		GrantedAccessOnRequest: grantedAccess,
		CreatedAt:              requestcontext.Now(ctx),
	}
	if err := s.store.Create(ctx, req); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return Request{}, pkgerrors.New(pkgerrors.CodeAlreadyActive, "a pending consent request already exists for this subject")
		}
		return Request{}, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "create consent request")
	}

	s.logger.InfoContext(ctx, "consent request created",
		"record_id", recordID,
		"subject_id", subjectID,
		"requested_by", requestedBy,
		"role", string(role),
	)
	return req, nil
}

// Accept marks the pending request accepted. Only the named subject may
// accept. Membership is not mutated here.
func (s *Service) Accept(ctx context.Context, recordID, subjectID, actorID string) (Request, error) {
	if actorID != subjectID {
		return Request{}, pkgerrors.New(pkgerrors.CodeForbidden, "only the named subject can accept a consent request")
	}

	req, err := s.store.Resolve(ctx, recordID, subjectID, StatusAccepted, requestcontext.Now(ctx), nil)
	if err != nil {
		return Request{}, translate(err, "consent request")
	}

	s.logger.InfoContext(ctx, "consent request accepted",
		"record_id", recordID,
		"subject_id", subjectID,
		"device", requestcontext.DeviceLabel(ctx),
	)
	return req, nil
}

// Reject marks the pending request rejected and opens the creator's decision.
func (s *Service) Reject(ctx context.Context, recordID, subjectID, actorID string, reason RejectionReason) (Request, error) {
	if actorID != subjectID {
		return Request{}, pkgerrors.New(pkgerrors.CodeForbidden, "only the named subject can reject a consent request")
	}
	if !reason.Valid() {
		return Request{}, pkgerrors.New(pkgerrors.CodeBadRequest, "invalid rejection reason: "+string(reason))
	}

	now := requestcontext.Now(ctx)
	rejection := &RejectionRecord{
		Type:            RejectionTypeRequestRejected,
		Reason:          reason,
		RejectedAt:      now,
		CreatorResponse: CreatorResponse{Status: DecisionPending},
	}
	req, err := s.store.Resolve(ctx, recordID, subjectID, StatusRejected, now, rejection)
	if err != nil {
		return Request{}, translate(err, "consent request")
	}

	s.logger.InfoContext(ctx, "consent request rejected",
		"record_id", recordID,
		"subject_id", subjectID,
		"reason", string(reason),
		"device", requestcontext.DeviceLabel(ctx),
	)
	return req, nil
}

// Cancel hard-deletes a pending request. The caller has already passed the
// cancel permission gate. No audit row is retained; revisit if retention
// rules change.
func (s *Service) Cancel(ctx context.Context, recordID, subjectID string) error {
	if err := s.store.DeletePending(ctx, recordID, subjectID); err != nil {
		return translate(err, "consent request")
	}
	s.logger.InfoContext(ctx, "consent request cancelled",
		"record_id", recordID,
		"subject_id", subjectID,
	)
	return nil
}

// WithdrawAfterAcceptance records the subject's withdrawal from an accepted
// request and opens the creator's decision.
func (s *Service) WithdrawAfterAcceptance(ctx context.Context, recordID, subjectID, actorID string, reason RejectionReason) (Request, error) {
	if actorID != subjectID {
		return Request{}, pkgerrors.New(pkgerrors.CodeForbidden, "only the named subject can withdraw their consent")
	}
	if !reason.Valid() {
		return Request{}, pkgerrors.New(pkgerrors.CodeBadRequest, "invalid rejection reason: "+string(reason))
	}

	rejection := RejectionRecord{
		Type:            RejectionTypeRemovedAfterAccepted,
		Reason:          reason,
		RejectedAt:      requestcontext.Now(ctx),
		CreatorResponse: CreatorResponse{Status: DecisionPending},
	}
	req, err := s.store.AttachWithdrawal(ctx, recordID, subjectID, rejection)
	if err != nil {
		return Request{}, translate(err, "accepted consent request")
	}

	s.logger.InfoContext(ctx, "consent withdrawn after acceptance",
		"record_id", recordID,
		"subject_id", subjectID,
		"reason", string(reason),
		"device", requestcontext.DeviceLabel(ctx),
	)
	return req, nil
}

// ResolveRejection records the creator's terminal decision on a rejection.
// Callable at most once per rejection.
func (s *Service) ResolveRejection(ctx context.Context, recordID, subjectID string, decision CreatorDecision) error {
	if !decision.Terminal() {
		return pkgerrors.New(pkgerrors.CodeBadRequest, "resolution must be dropped or escalated")
	}
	if err := s.store.ResolveRejection(ctx, recordID, subjectID, decision, requestcontext.Now(ctx)); err != nil {
		return translate(err, "rejection")
	}
	s.logger.InfoContext(ctx, "rejection resolved",
		"record_id", recordID,
		"subject_id", subjectID,
		"decision", string(decision),
	)
	return nil
}

// Get returns the most recent request for the key.
func (s *Service) Get(ctx context.Context, recordID, subjectID string) (Request, error) {
	req, err := s.store.Find(ctx, recordID, subjectID)
	if err != nil {
		return Request{}, translate(err, "consent request")
	}
	return req, nil
}

// ListByRecord returns all consent requests for a record, newest first.
func (s *Service) ListByRecord(ctx context.Context, recordID string) ([]Request, error) {
	return s.store.ListByRecord(ctx, recordID)
}

// ListBySubject returns all consent requests naming the subject, newest first.
func (s *Service) ListBySubject(ctx context.Context, subjectID string) ([]Request, error) {
	return s.store.ListBySubject(ctx, subjectID)
}

func translate(err error, what string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return pkgerrors.Wrap(err, pkgerrors.CodeNotFound, what+" not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return pkgerrors.Wrap(err, pkgerrors.CodeInvalidState, what+" already responded")
	default:
		return pkgerrors.Wrap(err, pkgerrors.CodeInternal, what+" store failure")
	}
}
