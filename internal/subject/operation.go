package subject

import (
	"attesto/internal/consent"
	"attesto/internal/record"
)

// Operation is the closed set of subject lifecycle actions. Execute switches
// over the concrete types exhaustively; there is no string-keyed dispatch, so
// an unknown operation is unrepresentable.
type Operation interface {
	isOperation()
	// Name labels the operation in logs and metrics.
	Name() string
}

// AddSelf declares the actor as the record's subject. The requested role is
// clamped to be no lower than the actor's current role on the record.
type AddSelf struct {
	RecordID   string
	Role       record.Role
	RecordHash string
}

// InviteOther opens a consent request proposing another identity as the
// record's subject. Nothing is anchored until they accept.
type InviteOther struct {
	RecordID    string
	SubjectID   string
	Role        record.Role
	Title       string
	GrantAccess bool
}

// AcceptRequest is the subject's agreement to a pending consent request.
type AcceptRequest struct {
	RecordID   string
	RecordHash string
}

// RejectRequest is the subject's refusal of a pending consent request.
type RejectRequest struct {
	RecordID string
	Reason   consent.RejectionReason
}

// RemoveSelf is the subject leaving the record: voluntarily, or accepting a
// pending removal request if one names them.
type RemoveSelf struct {
	RecordID string
	Reason   consent.RejectionReason
}

// RemoveByOwner is a record manager proposing that a current subject remove
// themselves. It only opens a removal request: membership and the anchor
// stay untouched until the subject responds, because only the subject's own
// identity key may unanchor their link.
type RemoveByOwner struct {
	RecordID  string
	SubjectID string
	Reason    string
}

// RespondToRejection records the creator's terminal decision on a subject's
// rejection or withdrawal.
type RespondToRejection struct {
	RecordID  string
	SubjectID string
	Decision  consent.CreatorDecision
}

func (AddSelf) isOperation()            {}
func (InviteOther) isOperation()        {}
func (AcceptRequest) isOperation()      {}
func (RejectRequest) isOperation()      {}
func (RemoveSelf) isOperation()         {}
func (RemoveByOwner) isOperation()      {}
func (RespondToRejection) isOperation() {}

func (AddSelf) Name() string            { return "add_self" }
func (InviteOther) Name() string        { return "invite_other" }
func (AcceptRequest) Name() string      { return "accept_request" }
func (RejectRequest) Name() string      { return "reject_request" }
func (RemoveSelf) Name() string         { return "remove_self" }
func (RemoveByOwner) Name() string      { return "remove_by_owner" }
func (RespondToRejection) Name() string { return "respond_to_rejection" }

// touchesLedger reports whether the operation anchors or unanchors the
// acting subject's own link, and therefore needs a ledger identity.
func touchesLedger(op Operation) bool {
	switch op.(type) {
	case AddSelf, AcceptRequest, RemoveSelf:
		return true
	}
	return false
}
