// Package ledger issues anchor and unanchor commands against the external
// append-only ledger and owns the degrade-to-queue behavior when the ledger
// is unreachable. It does not implement the ledger and does not sign
// anything; commands are authored with the actor's ledger identity key
// resolved from the identity directory.
package ledger

import (
	"context"
	"time"
)

// Receipt is the ledger's acknowledgement of a committed command.
type Receipt struct {
	TxID        string
	CommittedAt time.Time
}

// Client is the port to the external ledger gateway. Implementations own
// their timeouts and surface unreachability as sentinel.ErrUnavailable
// (optionally wrapped).
type Client interface {
	Anchor(ctx context.Context, identityKey, recordID, recordHash string) (Receipt, error)
	Unanchor(ctx context.Context, identityKey, recordID string) (Receipt, error)
}

// Directory resolves an actor to their ledger identity key. Absence is a
// normal, handleable condition surfaced as sentinel.ErrNotFound.
type Directory interface {
	LedgerKey(ctx context.Context, actorID string) (string, error)
}

// Provisioner creates a ledger identity for an actor who has none yet. The
// wallet/key provisioning flow itself is an external collaborator; this port
// only triggers it and reports the resulting key.
type Provisioner interface {
	EnsureIdentity(ctx context.Context, actorID string) (string, error)
}
