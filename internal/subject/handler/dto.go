package handler

import (
	"time"

	"attesto/internal/consent"
	"attesto/internal/record"
	"attesto/internal/removal"
	"attesto/internal/subject"
)

// AddSelfRequest is the body of POST /records/{recordID}/subjects/self.
type AddSelfRequest struct {
	Role       string `json:"role"`
	RecordHash string `json:"record_hash"`
}

// InviteRequest is the body of POST /records/{recordID}/subjects/invitations.
type InviteRequest struct {
	SubjectID   string `json:"subject_id"`
	Role        string `json:"role"`
	Title       string `json:"title,omitempty"`
	GrantAccess bool   `json:"grant_access"`
}

// AcceptRequestBody is the body of POST .../requests/accept.
type AcceptRequestBody struct {
	RecordHash string `json:"record_hash"`
}

// RejectRequestBody is the body of POST .../requests/reject.
type RejectRequestBody struct {
	Reason string `json:"reason"`
}

// RemoveSelfRequest is the body of DELETE .../subjects/self.
type RemoveSelfRequest struct {
	Reason string `json:"reason,omitempty"`
}

// RemovalRequestBody is the body of POST .../subjects/{subjectID}/removal-requests.
type RemovalRequestBody struct {
	Reason string `json:"reason"`
}

// RejectionResponseBody is the body of POST .../subjects/{subjectID}/rejection-response.
type RejectionResponseBody struct {
	Decision string `json:"decision"`
}

// SelectFlowRequest is the body of POST /me/subject-flow/select.
type SelectFlowRequest struct {
	Operation  string `json:"operation"`
	RecordID   string `json:"record_id"`
	SubjectID  string `json:"subject_id,omitempty"`
	Role       string `json:"role,omitempty"`
	Title      string `json:"title,omitempty"`
	RecordHash string `json:"record_hash,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Decision   string `json:"decision,omitempty"`
	GrantAcc   bool   `json:"grant_access,omitempty"`
}

// ConsentRequestResponse is the wire form of a consent request.
type ConsentRequestResponse struct {
	ID            string     `json:"id"`
	RecordID      string     `json:"record_id"`
	SubjectID     string     `json:"subject_id"`
	RequestedBy   string     `json:"requested_by"`
	RequestedRole string     `json:"requested_role"`
	Title         string     `json:"title,omitempty"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	RespondedAt   *time.Time `json:"responded_at,omitempty"`

	RejectionType   string `json:"rejection_type,omitempty"`
	RejectionReason string `json:"rejection_reason,omitempty"`
	CreatorDecision string `json:"creator_decision,omitempty"`
}

// RemovalRequestResponse is the wire form of a removal request.
type RemovalRequestResponse struct {
	ID          string     `json:"id"`
	RecordID    string     `json:"record_id"`
	SubjectID   string     `json:"subject_id"`
	RequestedBy string     `json:"requested_by"`
	Reason      string     `json:"reason,omitempty"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`
}

// OperationResponse reports the outcome of an executed operation.
type OperationResponse struct {
	Operation   string                  `json:"operation"`
	Anchored    bool                    `json:"anchored"`
	SyncPending bool                    `json:"sync_pending"`
	Consent     *ConsentRequestResponse `json:"consent_request,omitempty"`
	Removal     *RemovalRequestResponse `json:"removal_request,omitempty"`
}

// RecordViewResponse is the body of GET /records/{recordID}/subjects.
type RecordViewResponse struct {
	RecordID        string                   `json:"record_id"`
	Members         []string                 `json:"members"`
	ConsentRequests []ConsentRequestResponse `json:"consent_requests"`
	RemovalRequests []RemovalRequestResponse `json:"removal_requests"`
}

// InboxResponse is the body of GET /me/requests.
type InboxResponse struct {
	ConsentRequests []ConsentRequestResponse `json:"consent_requests"`
	RemovalRequests []RemovalRequestResponse `json:"removal_requests"`
}

// FlowResponse reports where the actor's flow stands.
type FlowResponse struct {
	Phase  string             `json:"phase"`
	Error  string             `json:"error,omitempty"`
	Result *OperationResponse `json:"result,omitempty"`
}

func fromConsent(r consent.Request) ConsentRequestResponse {
	resp := ConsentRequestResponse{
		ID:            r.ID,
		RecordID:      r.RecordID,
		SubjectID:     r.SubjectID,
		RequestedBy:   r.RequestedBy,
		RequestedRole: string(r.RequestedRole),
		Title:         r.Title,
		Status:        string(r.Status),
		CreatedAt:     r.CreatedAt,
		RespondedAt:   r.RespondedAt,
	}
	if r.Rejection != nil {
		resp.RejectionType = string(r.Rejection.Type)
		resp.RejectionReason = string(r.Rejection.Reason)
		resp.CreatorDecision = string(r.Rejection.CreatorResponse.Status)
	}
	return resp
}

func fromRemoval(r removal.Request) RemovalRequestResponse {
	return RemovalRequestResponse{
		ID:          r.ID,
		RecordID:    r.RecordID,
		SubjectID:   r.SubjectID,
		RequestedBy: r.RequestedBy,
		Reason:      r.Reason,
		Status:      string(r.Status),
		CreatedAt:   r.CreatedAt,
		RespondedAt: r.RespondedAt,
	}
}

func fromResult(res subject.Result) OperationResponse {
	resp := OperationResponse{
		Operation:   res.Operation,
		Anchored:    res.Anchored,
		SyncPending: res.SyncPending,
	}
	if res.Consent != nil {
		c := fromConsent(*res.Consent)
		resp.Consent = &c
	}
	if res.Removal != nil {
		r := fromRemoval(*res.Removal)
		resp.Removal = &r
	}
	return resp
}

func fromRecordView(v subject.RecordView) RecordViewResponse {
	resp := RecordViewResponse{
		RecordID:        v.RecordID,
		Members:         v.Members,
		ConsentRequests: make([]ConsentRequestResponse, 0, len(v.ConsentRequests)),
		RemovalRequests: make([]RemovalRequestResponse, 0, len(v.RemovalRequests)),
	}
	for _, r := range v.ConsentRequests {
		resp.ConsentRequests = append(resp.ConsentRequests, fromConsent(r))
	}
	for _, r := range v.RemovalRequests {
		resp.RemovalRequests = append(resp.RemovalRequests, fromRemoval(r))
	}
	return resp
}

func fromInbox(in subject.Inbox) InboxResponse {
	resp := InboxResponse{
		ConsentRequests: make([]ConsentRequestResponse, 0, len(in.ConsentRequests)),
		RemovalRequests: make([]RemovalRequestResponse, 0, len(in.RemovalRequests)),
	}
	for _, r := range in.ConsentRequests {
		resp.ConsentRequests = append(resp.ConsentRequests, fromConsent(r))
	}
	for _, r := range in.RemovalRequests {
		resp.RemovalRequests = append(resp.RemovalRequests, fromRemoval(r))
	}
	return resp
}

// toOperation builds the selected operation from a flow select body.
func (r SelectFlowRequest) toOperation() (subject.Operation, bool) {
	switch r.Operation {
	case "add_self":
		return subject.AddSelf{
			RecordID:   r.RecordID,
			Role:       record.Role(r.Role),
			RecordHash: r.RecordHash,
		}, true
	case "invite_other":
		return subject.InviteOther{
			RecordID:    r.RecordID,
			SubjectID:   r.SubjectID,
			Role:        record.Role(r.Role),
			Title:       r.Title,
			GrantAccess: r.GrantAcc,
		}, true
	case "accept_request":
		return subject.AcceptRequest{RecordID: r.RecordID, RecordHash: r.RecordHash}, true
	case "reject_request":
		return subject.RejectRequest{
			RecordID: r.RecordID,
			Reason:   consent.RejectionReason(r.Reason),
		}, true
	case "remove_self":
		return subject.RemoveSelf{
			RecordID: r.RecordID,
			Reason:   consent.RejectionReason(r.Reason),
		}, true
	case "remove_by_owner":
		return subject.RemoveByOwner{
			RecordID:  r.RecordID,
			SubjectID: r.SubjectID,
			Reason:    r.Reason,
		}, true
	case "respond_to_rejection":
		return subject.RespondToRejection{
			RecordID:  r.RecordID,
			SubjectID: r.SubjectID,
			Decision:  consent.CreatorDecision(r.Decision),
		}, true
	}
	return nil, false
}
