package syncqueue

import "time"

// Action names the ledger command that failed.
type Action string

const (
	ActionAnchor   Action = "anchor"
	ActionUnanchor Action = "unanchor"
)

// FailureRecord is the durable intent to replay a failed ledger command. The
// external retry worker consumes these; this engine only appends.
type FailureRecord struct {
	ID             string
	Contract       string
	Action         Action
	ActorID        string
	ActorLedgerKey string
	RecordID       string
	RecordHash     string
	Error          string
	RetryCount     int
	CreatedAt      time.Time
}
