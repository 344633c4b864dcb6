package subject

import (
	"context"

	"golang.org/x/sync/errgroup"

	"attesto/internal/consent"
	"attesto/internal/policy"
	"attesto/internal/removal"
	pkgerrors "attesto/pkg/domain-errors"
)

// RecordView is everything a record's management page needs: current
// subjects plus the open and recently resolved requests.
type RecordView struct {
	RecordID        string
	Members         []string
	ConsentRequests []consent.Request
	RemovalRequests []removal.Request
}

// Inbox is the requests awaiting a given identity's response.
type Inbox struct {
	ConsentRequests []consent.Request
	RemovalRequests []removal.Request
}

// RecordView assembles the management view. The three reads are independent
// and run concurrently.
func (o *Orchestrator) RecordView(ctx context.Context, actorID, recordID string) (RecordView, error) {
	rec, err := o.findRecord(ctx, recordID)
	if err != nil {
		return RecordView{}, err
	}
	if !policy.CanManage(rec, actorID) {
		return RecordView{}, forbidden("you cannot view this record's subjects")
	}

	view := RecordView{RecordID: recordID}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		members, err := o.members.List(gctx, recordID)
		if err != nil {
			return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "list members")
		}
		view.Members = members
		return nil
	})
	g.Go(func() error {
		reqs, err := o.consents.ListByRecord(gctx, recordID)
		if err != nil {
			return err
		}
		view.ConsentRequests = reqs
		return nil
	})
	g.Go(func() error {
		reqs, err := o.removals.ListByRecord(gctx, recordID)
		if err != nil {
			return err
		}
		view.RemovalRequests = reqs
		return nil
	})
	if err := g.Wait(); err != nil {
		return RecordView{}, err
	}
	return view, nil
}

// Inbox lists the pending requests addressed to actorID.
func (o *Orchestrator) Inbox(ctx context.Context, actorID string) (Inbox, error) {
	var inbox Inbox
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		reqs, err := o.consents.ListBySubject(gctx, actorID)
		if err != nil {
			return err
		}
		inbox.ConsentRequests = pendingConsent(reqs)
		return nil
	})
	g.Go(func() error {
		reqs, err := o.removals.ListBySubject(gctx, actorID)
		if err != nil {
			return err
		}
		inbox.RemovalRequests = pendingRemoval(reqs)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Inbox{}, err
	}
	return inbox, nil
}

// IsSubject reports whether subjectID is currently linked to the record.
func (o *Orchestrator) IsSubject(ctx context.Context, recordID, subjectID string) (bool, error) {
	member, err := o.members.IsMember(ctx, recordID, subjectID)
	if err != nil {
		return false, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "check membership")
	}
	return member, nil
}

func pendingConsent(reqs []consent.Request) []consent.Request {
	out := reqs[:0]
	for _, r := range reqs {
		if r.Pending() {
			out = append(out, r)
		}
	}
	return out
}

func pendingRemoval(reqs []removal.Request) []removal.Request {
	out := reqs[:0]
	for _, r := range reqs {
		if r.Pending() {
			out = append(out, r)
		}
	}
	return out
}
