// Package membership owns the authoritative per-record subject set. Nothing
// else may mutate it; request stores record intent and the orchestrator
// sequences the actual add/remove.
package membership

import "context"

// Registry is the membership port. Add and Remove are idempotent: adding an
// existing member or removing a non-member is a no-op success.
type Registry interface {
	IsMember(ctx context.Context, recordID, subjectID string) (bool, error)
	Add(ctx context.Context, recordID, subjectID string) error
	Remove(ctx context.Context, recordID, subjectID string) error
	List(ctx context.Context, recordID string) ([]string, error)
}
