package subject

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"attesto/internal/consent"
	"attesto/internal/ledger"
	"attesto/internal/membership"
	"attesto/internal/platform/metrics"
	"attesto/internal/policy"
	"attesto/internal/record"
	"attesto/internal/removal"
	pkgerrors "attesto/pkg/domain-errors"
	"attesto/pkg/platform/sentinel"
)

// Result is what a completed operation reports back to the caller. Anchored
// is false either because the operation never touches the ledger or because
// the ledger was unreachable; SyncPending distinguishes the latter.
type Result struct {
	Operation   string
	Anchored    bool
	SyncPending bool
	Consent     *consent.Request
	Removal     *removal.Request
}

// Orchestrator sequences every subject lifecycle operation: permission gate,
// request-store transition, membership mutation, anchor call, in that order.
// It holds no entity state across calls; each step re-reads through its
// store.
type Orchestrator struct {
	records     record.Store
	consents    *consent.Service
	removals    *removal.Service
	members     membership.Registry
	coordinator *ledger.Coordinator
	directory   ledger.Directory
	provisioner ledger.Provisioner
	metrics     *metrics.Metrics
	logger      *slog.Logger
	tracer      trace.Tracer
}

func NewOrchestrator(
	records record.Store,
	consents *consent.Service,
	removals *removal.Service,
	members membership.Registry,
	coordinator *ledger.Coordinator,
	directory ledger.Directory,
	provisioner ledger.Provisioner,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		records:     records,
		consents:    consents,
		removals:    removals,
		members:     members,
		coordinator: coordinator,
		directory:   directory,
		provisioner: provisioner,
		metrics:     m,
		logger:      logger,
		tracer:      otel.Tracer("attesto/subject"),
	}
}

// Execute runs one operation on behalf of actorID. Ledger unavailability
// never fails an operation whose store effects already succeeded; the result
// reports SyncPending instead.
func (o *Orchestrator) Execute(ctx context.Context, actorID string, op Operation) (Result, error) {
	ctx, span := o.tracer.Start(ctx, "subject.execute",
		trace.WithAttributes(
			attribute.String("operation", op.Name()),
		))
	defer span.End()

	result, err := o.execute(ctx, actorID, op)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	o.metrics.OperationsTotal.WithLabelValues(op.Name(), outcome).Inc()
	return result, err
}

func (o *Orchestrator) execute(ctx context.Context, actorID string, op Operation) (Result, error) {
	switch op := op.(type) {
	case AddSelf:
		return o.addSelf(ctx, actorID, op)
	case InviteOther:
		return o.inviteOther(ctx, actorID, op)
	case AcceptRequest:
		return o.acceptRequest(ctx, actorID, op)
	case RejectRequest:
		return o.rejectRequest(ctx, actorID, op)
	case RemoveSelf:
		return o.removeSelf(ctx, actorID, op)
	case RemoveByOwner:
		return o.removeByOwner(ctx, actorID, op)
	case RespondToRejection:
		return o.respondToRejection(ctx, actorID, op)
	default:
		// Unreachable: Operation is a sealed interface.
		return Result{}, pkgerrors.New(pkgerrors.CodeInternal, "unknown operation")
	}
}

// addSelf declares the actor as subject: an auto-accepted consent request,
// membership, and the actor's own anchor.
func (o *Orchestrator) addSelf(ctx context.Context, actorID string, op AddSelf) (Result, error) {
	rec, err := o.findRecord(ctx, op.RecordID)
	if err != nil {
		return Result{}, err
	}
	if !policy.CanManage(rec, actorID) {
		return Result{}, forbidden("you cannot manage this record")
	}

	// No silent downgrade: self-targeting keeps at least the current role.
	role := op.Role.AtLeast(rec.RoleOf(actorID))

	if _, err := o.consents.Create(ctx, op.RecordID, actorID, actorID, role, rec.Title, true); err != nil {
		return Result{}, err
	}
	req, err := o.consents.Accept(ctx, op.RecordID, actorID, actorID)
	if err != nil {
		return Result{}, err
	}

	if err := o.members.Add(ctx, op.RecordID, actorID); err != nil {
		return Result{}, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "add membership")
	}

	outcome, err := o.anchorWithRetry(ctx, op.RecordID, anchorHash(op.RecordID, op.RecordHash), actorID)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Operation:   op.Name(),
		Anchored:    outcome.Anchored,
		SyncPending: !outcome.Anchored,
		Consent:     &req,
	}, nil
}

// anchorHash prefers the caller's content digest; without one the anchor
// still carries a stable digest derived from the record id.
func anchorHash(recordID, supplied string) string {
	if supplied != "" {
		return supplied
	}
	return ledger.HashRecord([]byte(recordID))
}

func (o *Orchestrator) inviteOther(ctx context.Context, actorID string, op InviteOther) (Result, error) {
	rec, err := o.findRecord(ctx, op.RecordID)
	if err != nil {
		return Result{}, err
	}
	if !policy.CanManage(rec, actorID) {
		return Result{}, forbidden("you cannot manage this record")
	}

	title := op.Title
	if title == "" {
		title = rec.Title
	}
	req, err := o.consents.Create(ctx, op.RecordID, op.SubjectID, actorID, op.Role, title, op.GrantAccess)
	if err != nil {
		return Result{}, err
	}
	return Result{Operation: op.Name(), Consent: &req}, nil
}

// acceptRequest: the subject agrees, becomes a member, and their link is
// anchored with their own identity key.
func (o *Orchestrator) acceptRequest(ctx context.Context, actorID string, op AcceptRequest) (Result, error) {
	req, err := o.consents.Accept(ctx, op.RecordID, actorID, actorID)
	if err != nil {
		return Result{}, err
	}

	if err := o.members.Add(ctx, op.RecordID, actorID); err != nil {
		return Result{}, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "add membership")
	}

	outcome, err := o.anchorWithRetry(ctx, op.RecordID, anchorHash(op.RecordID, op.RecordHash), actorID)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Operation:   op.Name(),
		Anchored:    outcome.Anchored,
		SyncPending: !outcome.Anchored,
		Consent:     &req,
	}, nil
}

func (o *Orchestrator) rejectRequest(ctx context.Context, actorID string, op RejectRequest) (Result, error) {
	req, err := o.consents.Reject(ctx, op.RecordID, actorID, actorID, op.Reason)
	if err != nil {
		return Result{}, err
	}
	return Result{Operation: op.Name(), Consent: &req}, nil
}

// removeSelf: the subject leaves. A pending removal request naming them is
// resolved accepted; an accepted consent request gets its withdrawal record;
// membership is removed; the subject's own link is unanchored.
func (o *Orchestrator) removeSelf(ctx context.Context, actorID string, op RemoveSelf) (Result, error) {
	member, err := o.members.IsMember(ctx, op.RecordID, actorID)
	if err != nil {
		return Result{}, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "check membership")
	}
	if !member {
		return Result{}, pkgerrors.New(pkgerrors.CodeNotFound, "you are not a subject of this record")
	}

	var removalReq *removal.Request
	if pending, err := o.removals.Get(ctx, op.RecordID, actorID); err == nil && pending.Pending() {
		accepted, err := o.removals.Accept(ctx, op.RecordID, actorID, actorID, string(op.Reason))
		if err != nil {
			return Result{}, err
		}
		removalReq = &accepted
	}

	var consentReq *consent.Request
	withdrawn, err := o.consents.WithdrawAfterAcceptance(ctx, op.RecordID, actorID, actorID, op.Reason)
	switch {
	case err == nil:
		consentReq = &withdrawn
	case pkgerrors.CodeOf(err) == pkgerrors.CodeNotFound:
		// Membership without an accepted request (legacy link); nothing to
		// attach the withdrawal to.
	default:
		return Result{}, err
	}

	if err := o.members.Remove(ctx, op.RecordID, actorID); err != nil {
		return Result{}, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "remove membership")
	}

	outcome, uErr := o.unanchorWithRetry(ctx, op.RecordID, actorID)
	if uErr != nil {
		return Result{}, uErr
	}
	return Result{
		Operation:   op.Name(),
		Anchored:    outcome.Anchored,
		SyncPending: !outcome.Anchored,
		Consent:     consentReq,
		Removal:     removalReq,
	}, nil
}

// removeByOwner only opens a removal request. Membership and the anchor are
// untouched until the subject responds: an owner can ask, but cannot
// unanchor on the subject's behalf.
func (o *Orchestrator) removeByOwner(ctx context.Context, actorID string, op RemoveByOwner) (Result, error) {
	rec, err := o.findRecord(ctx, op.RecordID)
	if err != nil {
		return Result{}, err
	}
	if !policy.CanRemoveSubject(rec, actorID) {
		return Result{}, forbidden("only an owner can request a subject's removal")
	}

	req, err := o.removals.Request(ctx, op.RecordID, op.SubjectID, actorID, op.Reason)
	if err != nil {
		return Result{}, err
	}
	return Result{Operation: op.Name(), Removal: &req}, nil
}

func (o *Orchestrator) respondToRejection(ctx context.Context, actorID string, op RespondToRejection) (Result, error) {
	rec, err := o.findRecord(ctx, op.RecordID)
	if err != nil {
		return Result{}, err
	}
	if !policy.CanManage(rec, actorID) {
		return Result{}, forbidden("you cannot manage this record")
	}

	if err := o.consents.ResolveRejection(ctx, op.RecordID, op.SubjectID, op.Decision); err != nil {
		return Result{}, err
	}
	return Result{Operation: op.Name()}, nil
}

// CancelConsentRequest withdraws a pending invitation. Hard delete, no audit
// trail.
func (o *Orchestrator) CancelConsentRequest(ctx context.Context, actorID, recordID, subjectID string) error {
	rec, err := o.findRecord(ctx, recordID)
	if err != nil {
		return err
	}
	if !policy.CanCancelRequest(rec, actorID) {
		return forbidden("you cannot cancel requests on this record")
	}
	return o.consents.Cancel(ctx, recordID, subjectID)
}

// CancelRemovalRequest withdraws a pending removal request.
func (o *Orchestrator) CancelRemovalRequest(ctx context.Context, actorID, recordID, subjectID string) error {
	rec, err := o.findRecord(ctx, recordID)
	if err != nil {
		return err
	}
	if !policy.CanCancelRequest(rec, actorID) {
		return forbidden("you cannot cancel requests on this record")
	}
	return o.removals.Cancel(ctx, recordID, subjectID)
}

// EnsureLedgerIdentity backs the preparing phase: verify the actor's ledger
// identity exists, provisioning it when absent, then re-verify.
func (o *Orchestrator) EnsureLedgerIdentity(ctx context.Context, actorID string) error {
	if _, err := o.directory.LedgerKey(ctx, actorID); err == nil {
		return nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "resolve ledger key")
	}

	if _, err := o.provisioner.EnsureIdentity(ctx, actorID); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.CodeNoLedgerKey, "ledger identity provisioning failed")
	}
	if _, err := o.directory.LedgerKey(ctx, actorID); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.CodeNoLedgerKey, "ledger identity still missing after provisioning")
	}
	return nil
}

// anchorWithRetry anchors, provisioning the actor's identity and retrying
// once when the key is missing.
func (o *Orchestrator) anchorWithRetry(ctx context.Context, recordID, recordHash, actorID string) (ledger.Outcome, error) {
	outcome, err := o.coordinator.Anchor(ctx, recordID, recordHash, actorID)
	if err != nil && pkgerrors.CodeOf(err) == pkgerrors.CodeNoLedgerKey {
		if pErr := o.EnsureLedgerIdentity(ctx, actorID); pErr != nil {
			return ledger.Outcome{}, pErr
		}
		return o.coordinator.Anchor(ctx, recordID, recordHash, actorID)
	}
	return outcome, err
}

func (o *Orchestrator) unanchorWithRetry(ctx context.Context, recordID, actorID string) (ledger.Outcome, error) {
	outcome, err := o.coordinator.Unanchor(ctx, recordID, actorID)
	if err != nil && pkgerrors.CodeOf(err) == pkgerrors.CodeNoLedgerKey {
		if pErr := o.EnsureLedgerIdentity(ctx, actorID); pErr != nil {
			return ledger.Outcome{}, pErr
		}
		return o.coordinator.Unanchor(ctx, recordID, actorID)
	}
	return outcome, err
}

func (o *Orchestrator) findRecord(ctx context.Context, recordID string) (record.Record, error) {
	rec, err := o.records.FindByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return record.Record{}, pkgerrors.New(pkgerrors.CodeNotFound, "record not found")
		}
		return record.Record{}, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "find record")
	}
	return rec, nil
}

func forbidden(msg string) error {
	return pkgerrors.New(pkgerrors.CodeForbidden, msg)
}
