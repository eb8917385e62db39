package modlog

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	id "hometrust/pkg/domain"
)

type InMemoryLogSuite struct {
	suite.Suite
	ctx   context.Context
	store *InMemory
	now   time.Time
}

func (s *InMemoryLogSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewInMemory()
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func TestInMemoryLogSuite(t *testing.T) {
	suite.Run(t, new(InMemoryLogSuite))
}

func (s *InMemoryLogSuite) TestAppendAndListByTarget() {
	admin := id.NewAccountID()
	accountTarget := uuid.New()
	listingTarget := uuid.New()

	s.Require().NoError(s.store.Append(s.ctx, NewEntry(admin, TargetAccount, accountTarget, ActionBanned, "fraud", s.now)))
	s.Require().NoError(s.store.Append(s.ctx, NewEntry(admin, TargetListing, listingTarget, ActionFlagged, "account banned", s.now)))
	s.Require().NoError(s.store.Append(s.ctx, NewEntry(admin, TargetAccount, accountTarget, ActionActivated, "appeal accepted", s.now.Add(time.Hour))))

	s.Run("filters by target", func() {
		entries, err := s.store.ListByTarget(s.ctx, TargetAccount, accountTarget)
		s.Require().NoError(err)
		s.Require().Len(entries, 2)
		s.Equal(ActionBanned, entries[0].Action)
		s.Equal(ActionActivated, entries[1].Action)
	})

	s.Run("target type disambiguates shared ids", func() {
		entries, err := s.store.ListByTarget(s.ctx, TargetListing, accountTarget)
		s.Require().NoError(err)
		s.Empty(entries)
	})

	s.Run("unknown target is empty, not an error", func() {
		entries, err := s.store.ListByTarget(s.ctx, TargetClaim, uuid.New())
		s.Require().NoError(err)
		s.Empty(entries)
	})
}

func (s *InMemoryLogSuite) TestListRecent() {
	admin := id.NewAccountID()
	for i, action := range []string{ActionSuspended, ActionActivated, ActionBanned} {
		entry := NewEntry(admin, TargetAccount, uuid.New(), action, "", s.now.Add(time.Duration(i)*time.Minute))
		s.Require().NoError(s.store.Append(s.ctx, entry))
	}

	s.Run("newest first", func() {
		entries, err := s.store.ListRecent(s.ctx, 10)
		s.Require().NoError(err)
		s.Require().Len(entries, 3)
		s.Equal(ActionBanned, entries[0].Action)
		s.Equal(ActionSuspended, entries[2].Action)
	})

	s.Run("limit caps the result", func() {
		entries, err := s.store.ListRecent(s.ctx, 2)
		s.Require().NoError(err)
		s.Require().Len(entries, 2)
		s.Equal(ActionBanned, entries[0].Action)
		s.Equal(ActionActivated, entries[1].Action)
	})
}
