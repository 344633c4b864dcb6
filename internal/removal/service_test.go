package removal

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"attesto/internal/membership"
	pkgerrors "attesto/pkg/domain-errors"
)

type RemovalServiceSuite struct {
	suite.Suite
	store    *InMemoryStore
	registry *membership.InMemoryRegistry
	svc      *Service
	ctx      context.Context
}

func (s *RemovalServiceSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.registry = membership.NewInMemoryRegistry()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.svc = NewService(s.store, s.registry, logger)
	s.ctx = context.Background()

	s.Require().NoError(s.registry.Add(s.ctx, "rec-1", "alice"))
}

func TestRemovalServiceSuite(t *testing.T) {
	suite.Run(t, new(RemovalServiceSuite))
}

func (s *RemovalServiceSuite) TestRequest() {
	s.Run("request against a current member succeeds", func() {
		req, err := s.svc.Request(s.ctx, "rec-1", "alice", "owner", "record superseded")
		s.Require().NoError(err)
		s.Equal(StatusPending, req.Status)
		s.Equal("owner", req.RequestedBy)
	})

	s.Run("second pending request fails as already active", func() {
		_, err := s.svc.Request(s.ctx, "rec-1", "alice", "owner", "")
		s.Require().Error(err)
		s.Equal(pkgerrors.CodeAlreadyActive, pkgerrors.CodeOf(err))
	})

	s.Run("request against a non-member fails", func() {
		_, err := s.svc.Request(s.ctx, "rec-1", "bob", "owner", "")
		s.Require().Error(err)
		s.Equal(pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
	})
}

func (s *RemovalServiceSuite) TestAccept() {
	_, err := s.svc.Request(s.ctx, "rec-1", "alice", "owner", "")
	s.Require().NoError(err)

	s.Run("only the named subject can accept", func() {
		_, err := s.svc.Accept(s.ctx, "rec-1", "alice", "owner", "")
		s.Require().Error(err)
		s.Equal(pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))
	})

	s.Run("subject accepts and membership is untouched here", func() {
		req, err := s.svc.Accept(s.ctx, "rec-1", "alice", "alice", "fine by me")
		s.Require().NoError(err)
		s.Equal(StatusAccepted, req.Status)
		s.Equal("fine by me", req.SubjectResponse)

		// The registry mutation belongs to the orchestrator.
		member, err := s.registry.IsMember(s.ctx, "rec-1", "alice")
		s.Require().NoError(err)
		s.True(member)
	})

	s.Run("second accept fails with invalid state", func() {
		_, err := s.svc.Accept(s.ctx, "rec-1", "alice", "alice", "")
		s.Require().Error(err)
		s.Equal(pkgerrors.CodeInvalidState, pkgerrors.CodeOf(err))
	})
}

func (s *RemovalServiceSuite) TestReject() {
	_, err := s.svc.Request(s.ctx, "rec-1", "alice", "owner", "")
	s.Require().NoError(err)

	req, err := s.svc.Reject(s.ctx, "rec-1", "alice", "alice", "I am the subject")
	s.Require().NoError(err)
	s.Equal(StatusRejected, req.Status)

	s.Run("transition is monotonic", func() {
		_, err := s.svc.Accept(s.ctx, "rec-1", "alice", "alice", "")
		s.Require().Error(err)
		s.Equal(pkgerrors.CodeInvalidState, pkgerrors.CodeOf(err))
	})
}

func (s *RemovalServiceSuite) TestCancel() {
	_, err := s.svc.Request(s.ctx, "rec-1", "alice", "owner", "")
	s.Require().NoError(err)

	s.Require().NoError(s.svc.Cancel(s.ctx, "rec-1", "alice"))

	_, err = s.svc.Get(s.ctx, "rec-1", "alice")
	s.Require().Error(err)
	s.Equal(pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}
