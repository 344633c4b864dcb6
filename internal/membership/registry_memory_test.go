package membership

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
)

type RegistrySuite struct {
	suite.Suite
	registry *InMemoryRegistry
	ctx      context.Context
}

func (s *RegistrySuite) SetupTest() {
	s.registry = NewInMemoryRegistry()
	s.ctx = context.Background()
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) TestAddAndLookup() {
	s.Run("new subject becomes a member", func() {
		s.Require().NoError(s.registry.Add(s.ctx, "rec-1", "alice"))
		ok, err := s.registry.IsMember(s.ctx, "rec-1", "alice")
		s.Require().NoError(err)
		s.True(ok)
	})

	s.Run("membership is scoped per record", func() {
		ok, err := s.registry.IsMember(s.ctx, "rec-2", "alice")
		s.Require().NoError(err)
		s.False(ok)
	})
}

func (s *RegistrySuite) TestIdempotence() {
	s.Run("double add yields the same state as one", func() {
		s.Require().NoError(s.registry.Add(s.ctx, "rec-1", "alice"))
		s.Require().NoError(s.registry.Add(s.ctx, "rec-1", "alice"))
		members, err := s.registry.List(s.ctx, "rec-1")
		s.Require().NoError(err)
		s.Equal([]string{"alice"}, members)
	})

	s.Run("removing a non-member is a no-op success", func() {
		s.Require().NoError(s.registry.Remove(s.ctx, "rec-1", "ghost"))
	})

	s.Run("double remove yields the same state as one", func() {
		s.Require().NoError(s.registry.Add(s.ctx, "rec-1", "bob"))
		s.Require().NoError(s.registry.Remove(s.ctx, "rec-1", "bob"))
		s.Require().NoError(s.registry.Remove(s.ctx, "rec-1", "bob"))
		ok, err := s.registry.IsMember(s.ctx, "rec-1", "bob")
		s.Require().NoError(err)
		s.False(ok)
	})
}

func (s *RegistrySuite) TestListIsSorted() {
	s.Require().NoError(s.registry.Add(s.ctx, "rec-1", "carol"))
	s.Require().NoError(s.registry.Add(s.ctx, "rec-1", "alice"))
	s.Require().NoError(s.registry.Add(s.ctx, "rec-1", "bob"))

	members, err := s.registry.List(s.ctx, "rec-1")
	s.Require().NoError(err)
	s.Equal([]string{"alice", "bob", "carol"}, members)
}
