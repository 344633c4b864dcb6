// Package policy holds the pure authorization predicates for subject
// lifecycle operations. Absence of permission is expressed as false; callers
// translate false into a forbidden domain error.
package policy

import "attesto/internal/record"

// CanManage reports whether actorID may manage subject requests on the
// record: uploader, owner, or administrator.
func CanManage(rec record.Record, actorID string) bool {
	return rec.IsUploader(actorID) || rec.IsOwner(actorID) || rec.IsAdministrator(actorID)
}

// CanRemoveSubject reports whether actorID may initiate removal of a subject:
// an owner always can; an administrator only when the record has no owners.
func CanRemoveSubject(rec record.Record, actorID string) bool {
	if rec.IsOwner(actorID) {
		return true
	}
	return rec.IsAdministrator(actorID) && len(rec.Owners) == 0
}

// CanCancelRequest reports whether actorID may cancel a pending request.
// Currently an alias of CanManage; kept distinct so the two can diverge
// without touching call sites.
func CanCancelRequest(rec record.Record, actorID string) bool {
	return CanManage(rec, actorID)
}
