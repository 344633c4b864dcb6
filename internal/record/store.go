package record

import "context"

// Store is the read-side port for record role assignments. Record creation
// and versioning belong to the upload service; this engine only needs lookups
// for permission checks.
type Store interface {
	FindByID(ctx context.Context, recordID string) (Record, error)
}
