package subject

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"attesto/internal/consent"
	"attesto/internal/ledger"
	"attesto/internal/membership"
	"attesto/internal/platform/metrics"
	"attesto/internal/record"
	"attesto/internal/removal"
	"attesto/internal/syncqueue"
	pkgerrors "attesto/pkg/domain-errors"
)

type FlowSuite struct {
	suite.Suite
	directory *ledger.InMemoryDirectory
	flow      *Flow
	ctx       context.Context
}

func (s *FlowSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	records := record.NewInMemoryStore()
	registry := membership.NewInMemoryRegistry()
	s.directory = ledger.NewInMemoryDirectory()
	queue := syncqueue.New(syncqueue.NewInMemoryStore(), logger)
	m := metrics.NewWith(prometheus.NewRegistry())
	coord := ledger.NewCoordinator(ledger.NewInMemoryClient(), s.directory, queue, m, logger)

	orch := NewOrchestrator(
		records,
		consent.NewService(consent.NewInMemoryStore(), registry, logger),
		removal.NewService(removal.NewInMemoryStore(), registry, logger),
		registry,
		coord,
		s.directory,
		s.directory,
		m,
		logger,
	)
	s.flow = NewFlow(orch)
	s.ctx = context.Background()

	s.Require().NoError(records.Put(s.ctx, record.Record{
		ID:         "rec-1",
		UploaderID: "owen",
		Owners:     []string{"owen"},
	}))
	s.directory.SetKey("owen", "key-owen")
}

func TestFlowSuite(t *testing.T) {
	suite.Run(t, new(FlowSuite))
}

func (s *FlowSuite) TestHappyPath() {
	s.Equal(PhaseIdle, s.flow.Phase())

	s.Require().NoError(s.flow.Begin())
	s.Equal(PhaseSelecting, s.flow.Phase())

	op := AddSelf{RecordID: "rec-1", Role: record.RoleOwner, RecordHash: "hash-1"}
	s.Require().NoError(s.flow.Select(s.ctx, "owen", op))
	s.Equal(PhaseConfirming, s.flow.Phase())

	result, err := s.flow.Confirm(s.ctx, "owen")
	s.Require().NoError(err)
	s.True(result.Anchored)
	s.Equal(PhaseSuccess, s.flow.Phase())

	s.Require().NoError(s.flow.Reset())
	s.Equal(PhaseIdle, s.flow.Phase())
}

func (s *FlowSuite) TestSearchFork() {
	s.Require().NoError(s.flow.Begin())
	s.Require().NoError(s.flow.Search())
	s.Equal(PhaseSearching, s.flow.Phase())

	op := InviteOther{RecordID: "rec-1", SubjectID: "alice", Role: record.RoleViewer}
	s.Require().NoError(s.flow.Select(s.ctx, "owen", op))
	s.Equal(PhaseConfirming, s.flow.Phase())

	_, err := s.flow.Confirm(s.ctx, "owen")
	s.Require().NoError(err)
	s.Equal(PhaseSuccess, s.flow.Phase())
}

func (s *FlowSuite) TestSelectProvisionsLedgerIdentity() {
	s.Require().NoError(s.flow.Begin())

	op := AddSelf{RecordID: "rec-1", Role: record.RoleOwner}
	s.Require().NoError(s.flow.Select(s.ctx, "newcomer", op))
	s.Equal(PhaseConfirming, s.flow.Phase())

	key, err := s.directory.LedgerKey(s.ctx, "newcomer")
	s.Require().NoError(err)
	s.NotEmpty(key)
}

func (s *FlowSuite) TestFailedOperationEndsInError() {
	s.Require().NoError(s.flow.Begin())
	op := InviteOther{RecordID: "rec-1", SubjectID: "alice", Role: record.RoleViewer}
	s.Require().NoError(s.flow.Select(s.ctx, "mallory", op))

	_, err := s.flow.Confirm(s.ctx, "mallory")
	s.Require().Error(err)
	s.Equal(PhaseError, s.flow.Phase())
	s.Equal(pkgerrors.CodeForbidden, pkgerrors.CodeOf(s.flow.Err()))

	s.Run("an errored flow can restart", func() {
		s.Require().NoError(s.flow.Reset())
		s.Equal(PhaseIdle, s.flow.Phase())
	})
}

func (s *FlowSuite) TestCancel() {
	s.Run("cancel while idle is a no-op", func() {
		s.Require().NoError(s.flow.Cancel())
	})

	s.Run("cancel while selecting returns to idle", func() {
		s.Require().NoError(s.flow.Begin())
		s.Require().NoError(s.flow.Cancel())
		s.Equal(PhaseIdle, s.flow.Phase())
	})

	s.Run("cancel while confirming returns to idle", func() {
		s.Require().NoError(s.flow.Begin())
		op := InviteOther{RecordID: "rec-1", SubjectID: "alice", Role: record.RoleViewer}
		s.Require().NoError(s.flow.Select(s.ctx, "owen", op))
		s.Require().NoError(s.flow.Cancel())
		s.Equal(PhaseIdle, s.flow.Phase())
	})
}

func (s *FlowSuite) TestInvalidTransitions() {
	s.Run("cannot confirm from idle", func() {
		_, err := s.flow.Confirm(s.ctx, "owen")
		s.Require().Error(err)
		s.Equal(pkgerrors.CodeInvalidState, pkgerrors.CodeOf(err))
	})

	s.Run("cannot select before beginning", func() {
		err := s.flow.Select(s.ctx, "owen", AddSelf{RecordID: "rec-1"})
		s.Require().Error(err)
		s.Equal(pkgerrors.CodeInvalidState, pkgerrors.CodeOf(err))
	})

	s.Run("cannot reset mid-selection", func() {
		s.Require().NoError(s.flow.Begin())
		err := s.flow.Reset()
		s.Require().Error(err)
		s.Equal(pkgerrors.CodeInvalidState, pkgerrors.CodeOf(err))
	})
}
