// Package syncqueue is the durable backlog of ledger commands that failed and
// must be replayed. Writes are best-effort telemetry: a failure to log never
// propagates to the caller, because the membership and request-store effects
// of the operation have already succeeded.
package syncqueue

import (
	"context"
	"log/slog"
)

// Store is the append-side port for failure records.
type Store interface {
	Append(ctx context.Context, rec FailureRecord) error
}

// Queue wraps a Store with the fire-and-forget contract: LogFailure swallows
// store errors after logging them.
type Queue struct {
	store  Store
	logger *slog.Logger
}

func New(store Store, logger *slog.Logger) *Queue {
	return &Queue{store: store, logger: logger}
}

// LogFailure appends a failure record. Errors are logged and swallowed.
func (q *Queue) LogFailure(ctx context.Context, rec FailureRecord) {
	if err := q.store.Append(ctx, rec); err != nil {
		q.logger.ErrorContext(ctx, "failed to log sync failure",
			"record_id", rec.RecordID,
			"action", string(rec.Action),
			"error", err.Error(),
		)
	}
}
