//go:build integration

package syncqueue_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"attesto/internal/platform/postgres"
	"attesto/internal/syncqueue"
	"attesto/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *syncqueue.PostgresStore
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
	s.store = syncqueue.NewPostgresStore(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateAll(context.Background(), "sync_failures"))
}

func (s *PostgresStoreSuite) failure(createdAt time.Time) syncqueue.FailureRecord {
	return syncqueue.FailureRecord{
		ID:             uuid.NewString(),
		Contract:       "record-subject-link",
		Action:         syncqueue.ActionAnchor,
		ActorID:        "alice",
		ActorLedgerKey: "key-alice",
		RecordID:       "rec-1",
		RecordHash:     "hash-1",
		Error:          "ledger unreachable",
		CreatedAt:      createdAt,
	}
}

func (s *PostgresStoreSuite) TestUnpublishedOrdering() {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	newest := s.failure(base.Add(2 * time.Minute))
	oldest := s.failure(base)
	middle := s.failure(base.Add(time.Minute))
	for _, rec := range []syncqueue.FailureRecord{newest, oldest, middle} {
		s.Require().NoError(s.store.Append(ctx, rec))
	}

	got, err := s.store.Unpublished(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(got, 3)
	s.Equal(oldest.ID, got[0].ID)
	s.Equal(middle.ID, got[1].ID)
	s.Equal(newest.ID, got[2].ID)

	s.Run("limit caps the batch", func() {
		got, err := s.store.Unpublished(ctx, 2)
		s.Require().NoError(err)
		s.Len(got, 2)
	})
}

func (s *PostgresStoreSuite) TestMarkPublished() {
	ctx := context.Background()
	rec := s.failure(time.Now().UTC())
	s.Require().NoError(s.store.Append(ctx, rec))

	s.Require().NoError(s.store.MarkPublished(ctx, rec.ID))

	got, err := s.store.Unpublished(ctx, 10)
	s.Require().NoError(err)
	s.Empty(got)
}
