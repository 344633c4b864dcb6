package removal

import "time"

// Status tracks a removal request: pending -> accepted or rejected, never
// back.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// Request is a manager-initiated proposal that a current subject remove
// themselves from a record. Unlike a consent request it is keyed off an
// existing member, and accepting it never mutates membership here: the
// orchestrator performs the removal and the subject's own unanchor.
type Request struct {
	ID              string
	RecordID        string
	SubjectID       string
	RequestedBy     string
	Reason          string
	Status          Status
	SubjectResponse string
	CreatedAt       time.Time
	RespondedAt     *time.Time
}

// Pending reports whether the request still awaits the subject's answer.
func (r Request) Pending() bool {
	return r.Status == StatusPending
}
