//go:build integration

package consent_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"attesto/internal/consent"
	"attesto/internal/platform/postgres"
	"attesto/pkg/platform/sentinel"
	"attesto/pkg/platform/tx"
	"attesto/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *consent.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.Require().NoError(postgres.Migrate(context.Background(), s.postgres.DB))
	s.store = consent.NewPostgresStore(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateAll(context.Background(), "consent_requests"))
}

func (s *PostgresStoreSuite) pendingRequest(recordID, subjectID string) consent.Request {
	return consent.Request{
		ID:            uuid.NewString(),
		RecordID:      recordID,
		SubjectID:     subjectID,
		RequestedBy:   "uploader",
		RequestedRole: "viewer",
		Title:         "Discharge summary",
		Status:        consent.StatusPending,
		CreatedAt:     time.Now().UTC().Truncate(time.Microsecond),
	}
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	req := s.pendingRequest("rec-1", "alice")
	s.Require().NoError(s.store.Create(ctx, req))

	found, err := s.store.Find(ctx, "rec-1", "alice")
	s.Require().NoError(err)
	s.Equal(req.ID, found.ID)
	s.Equal(consent.StatusPending, found.Status)
	s.Nil(found.Rejection)
}

func (s *PostgresStoreSuite) TestPendingKeyIsUnique() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, s.pendingRequest("rec-1", "alice")))

	err := s.store.Create(ctx, s.pendingRequest("rec-1", "alice"))
	s.Require().ErrorIs(err, sentinel.ErrConflict)

	s.Run("a resolved request frees the key", func() {
		_, err := s.store.Resolve(ctx, "rec-1", "alice", consent.StatusAccepted, time.Now().UTC(), nil)
		s.Require().NoError(err)
		s.Require().NoError(s.store.Create(ctx, s.pendingRequest("rec-1", "alice")))
	})
}

// TestConcurrentResolve verifies that racing resolutions of the same pending
// request let exactly one writer through; the conditional update makes the
// losers observe an already-resolved row.
func (s *PostgresStoreSuite) TestConcurrentResolve() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, s.pendingRequest("rec-1", "alice")))

	const writers = 16
	var wg sync.WaitGroup
	var wins atomic.Int32

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			status := consent.StatusAccepted
			if n%2 == 0 {
				status = consent.StatusRejected
			}
			var rejection *consent.RejectionRecord
			if status == consent.StatusRejected {
				rejection = &consent.RejectionRecord{
					Type:            consent.RejectionTypeRequestRejected,
					Reason:          consent.ReasonOther,
					RejectedAt:      time.Now().UTC(),
					CreatorResponse: consent.CreatorResponse{Status: consent.DecisionPending},
				}
			}
			if _, err := s.store.Resolve(ctx, "rec-1", "alice", status, time.Now().UTC(), rejection); err == nil {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load())

	found, err := s.store.Find(context.Background(), "rec-1", "alice")
	s.Require().NoError(err)
	s.NotEqual(consent.StatusPending, found.Status)
}

func (s *PostgresStoreSuite) TestRejectionRoundTrip() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, s.pendingRequest("rec-1", "alice")))

	now := time.Now().UTC().Truncate(time.Microsecond)
	rejection := &consent.RejectionRecord{
		Type:       consent.RejectionTypeRequestRejected,
		Reason:     consent.ReasonNotAboutMe,
		RejectedAt: now,
		CreatorResponse: consent.CreatorResponse{
			Status: consent.DecisionPending,
		},
	}
	_, err := s.store.Resolve(ctx, "rec-1", "alice", consent.StatusRejected, now, rejection)
	s.Require().NoError(err)

	found, err := s.store.Find(ctx, "rec-1", "alice")
	s.Require().NoError(err)
	s.Equal(consent.StatusRejected, found.Status)
	s.Require().NotNil(found.Rejection)
	s.Equal(consent.ReasonNotAboutMe, found.Rejection.Reason)
	s.Equal(consent.DecisionPending, found.Rejection.CreatorResponse.Status)

	s.Run("creator resolves exactly once", func() {
		err := s.store.ResolveRejection(ctx, "rec-1", "alice", consent.DecisionDropped, now)
		s.Require().NoError(err)

		err = s.store.ResolveRejection(ctx, "rec-1", "alice", consent.DecisionEscalated, now)
		s.Require().ErrorIs(err, sentinel.ErrInvalidState)
	})
}

func (s *PostgresStoreSuite) TestTransactionScope() {
	ctx := context.Background()

	dbtx, err := s.postgres.DB.BeginTx(ctx, nil)
	s.Require().NoError(err)
	txCtx := tx.WithTx(ctx, dbtx)

	s.Require().NoError(s.store.Create(txCtx, s.pendingRequest("rec-tx", "alice")))

	s.Run("uncommitted writes are invisible outside the transaction", func() {
		_, err := s.store.Find(ctx, "rec-tx", "alice")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Require().NoError(dbtx.Rollback())

	s.Run("rollback discards the write", func() {
		_, err := s.store.Find(ctx, "rec-tx", "alice")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *PostgresStoreSuite) TestAttachWithdrawal() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, s.pendingRequest("rec-1", "alice")))
	_, err := s.store.Resolve(ctx, "rec-1", "alice", consent.StatusAccepted, time.Now().UTC(), nil)
	s.Require().NoError(err)

	now := time.Now().UTC().Truncate(time.Microsecond)
	withdrawn, err := s.store.AttachWithdrawal(ctx, "rec-1", "alice", consent.RejectionRecord{
		Type:            consent.RejectionTypeRemovedAfterAccepted,
		Reason:          consent.ReasonPrivacyConcern,
		RejectedAt:      now,
		CreatorResponse: consent.CreatorResponse{Status: consent.DecisionPending},
	})
	s.Require().NoError(err)
	s.Equal(consent.StatusAccepted, withdrawn.Status)
	s.Require().NotNil(withdrawn.Rejection)
	s.Equal(consent.RejectionTypeRemovedAfterAccepted, withdrawn.Rejection.Type)

	s.Run("a second withdrawal is rejected", func() {
		_, err := s.store.AttachWithdrawal(ctx, "rec-1", "alice", consent.RejectionRecord{
			Type:   consent.RejectionTypeRemovedAfterAccepted,
			Reason: consent.ReasonOther,
		})
		s.Require().ErrorIs(err, sentinel.ErrInvalidState)
	})
}

func (s *PostgresStoreSuite) TestDeletePending() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, s.pendingRequest("rec-1", "alice")))
	s.Require().NoError(s.store.DeletePending(ctx, "rec-1", "alice"))

	_, err := s.store.Find(ctx, "rec-1", "alice")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	s.Run("deleting an absent request is not found", func() {
		err := s.store.DeletePending(ctx, "rec-1", "alice")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}
