package record

import (
	"slices"
	"time"
)

// Role names the level of access a subject is granted on a record.
type Role string

const (
	RoleViewer        Role = "viewer"
	RoleAdministrator Role = "administrator"
	RoleOwner         Role = "owner"
)

// Valid reports whether r is one of the closed set of roles.
func (r Role) Valid() bool {
	switch r {
	case RoleViewer, RoleAdministrator, RoleOwner:
		return true
	}
	return false
}

// rank orders roles for clamping; higher rank means more access.
func (r Role) rank() int {
	switch r {
	case RoleOwner:
		return 3
	case RoleAdministrator:
		return 2
	case RoleViewer:
		return 1
	}
	return 0
}

// AtLeast clamps r to be no lower than floor. Self-targeting consent requests
// must not silently downgrade the actor's existing access.
func (r Role) AtLeast(floor Role) Role {
	if r.rank() < floor.rank() {
		return floor
	}
	return r
}

// Record is the read model of a document's role assignments. The subject set
// is authoritative in the membership registry, not here.
type Record struct {
	ID             string
	Title          string
	UploaderID     string
	Owners         []string
	Administrators []string
	CreatedAt      time.Time
}

// IsOwner reports whether actorID holds the owner role.
func (r Record) IsOwner(actorID string) bool {
	return slices.Contains(r.Owners, actorID)
}

// IsAdministrator reports whether actorID holds the administrator role.
func (r Record) IsAdministrator(actorID string) bool {
	return slices.Contains(r.Administrators, actorID)
}

// IsUploader reports whether actorID uploaded the record.
func (r Record) IsUploader(actorID string) bool {
	return r.UploaderID == actorID
}

// RoleOf returns the highest role actorID currently holds on the record,
// defaulting to viewer for everyone else.
func (r Record) RoleOf(actorID string) Role {
	switch {
	case r.IsOwner(actorID):
		return RoleOwner
	case r.IsAdministrator(actorID):
		return RoleAdministrator
	default:
		return RoleViewer
	}
}
