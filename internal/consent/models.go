package consent

import (
	"time"

	"attesto/internal/record"
)

// Status tracks a consent request through its monotonic lifecycle:
// pending -> accepted or rejected, never back.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// RejectionType distinguishes a straight rejection from a withdrawal after
// the subject had already accepted.
type RejectionType string

const (
	RejectionTypeRequestRejected      RejectionType = "request_rejected"
	RejectionTypeRemovedAfterAccepted RejectionType = "removed_after_acceptance"
)

// RejectionReason is the closed set of reasons a subject can give.
type RejectionReason string

const (
	ReasonNotAboutMe       RejectionReason = "not_about_me"
	ReasonPrivacyConcern   RejectionReason = "privacy_concern"
	ReasonIncorrectContent RejectionReason = "incorrect_content"
	ReasonOther            RejectionReason = "other"
)

// Valid reports whether r is a known rejection reason.
func (r RejectionReason) Valid() bool {
	switch r {
	case ReasonNotAboutMe, ReasonPrivacyConcern, ReasonIncorrectContent, ReasonOther:
		return true
	}
	return false
}

// CreatorDecision is the record creator's resolution of a rejection.
type CreatorDecision string

const (
	DecisionPending   CreatorDecision = "pending_creator_decision"
	DecisionDropped   CreatorDecision = "dropped"
	DecisionEscalated CreatorDecision = "escalated"
)

// Terminal reports whether the decision can no longer change.
func (d CreatorDecision) Terminal() bool {
	return d == DecisionDropped || d == DecisionEscalated
}

// CreatorResponse records how and when the creator resolved a rejection.
// Status moves from pending_creator_decision to a terminal value exactly once.
type CreatorResponse struct {
	Status      CreatorDecision
	RespondedAt *time.Time
}

// RejectionRecord captures a subject's refusal or post-acceptance withdrawal,
// nested under the request it resolves.
type RejectionRecord struct {
	Type            RejectionType
	Reason          RejectionReason
	RejectedAt      time.Time
	CreatorResponse CreatorResponse
}

// Request is a proposal that subjectID become the subject of recordID. At
// most one pending request exists per (recordID, subjectID) key.
type Request struct {
	ID                     string
	RecordID               string
	SubjectID              string
	RequestedBy            string
	RequestedRole          record.Role
	Title                  string
	Status                 Status
	GrantedAccessOnRequest bool
	CreatedAt              time.Time
	RespondedAt            *time.Time
	Rejection              *RejectionRecord
}

// Pending reports whether the request still awaits the subject's answer.
func (r Request) Pending() bool {
	return r.Status == StatusPending
}
