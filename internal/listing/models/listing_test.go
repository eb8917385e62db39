package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	accountmodels "hometrust/internal/account/models"
	id "hometrust/pkg/domain"
	dErrors "hometrust/pkg/domain-errors"
)

type ListingModelSuite struct {
	suite.Suite
	now time.Time
}

func (s *ListingModelSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func TestListingModelSuite(t *testing.T) {
	suite.Run(t, new(ListingModelSuite))
}

func (s *ListingModelSuite) newListing() *Listing {
	listing, err := NewListing(id.NewListingID(), id.NewAccountID(), "Sunny 2BR near the park", s.now)
	s.Require().NoError(err)
	return listing
}

func (s *ListingModelSuite) TestNewListing() {
	s.Run("trims the title", func() {
		listing, err := NewListing(id.NewListingID(), id.NewAccountID(), "  Loft  ", s.now)
		s.Require().NoError(err)
		s.Equal("Loft", listing.Title)
		s.False(listing.Flagged)
		s.False(listing.AddressVerified)
	})

	s.Run("rejects empty title", func() {
		_, err := NewListing(id.NewListingID(), id.NewAccountID(), "   ", s.now)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func (s *ListingModelSuite) TestVisibility() {
	listing := s.newListing()

	s.Run("visible when clean and owner active", func() {
		s.True(listing.Visible(accountmodels.StatusActive))
	})

	s.Run("hidden while owner suspended, without mutation", func() {
		s.False(listing.Visible(accountmodels.StatusSuspended))
		s.False(listing.Flagged)
	})

	s.Run("hidden when flagged", func() {
		flagged := s.newListing()
		flagged.ApplyFlag(FlagSourceContent, "misleading photos", s.now)
		s.False(flagged.Visible(accountmodels.StatusActive))
	})

	s.Run("hidden when deleted", func() {
		deleted := s.newListing()
		deleted.ApplyDelete(s.now)
		s.False(deleted.Visible(accountmodels.StatusActive))
	})
}

func (s *ListingModelSuite) TestUnflagGuards() {
	s.Run("content flag can be cleared", func() {
		listing := s.newListing()
		listing.ApplyFlag(FlagSourceContent, "misleading photos", s.now)

		s.Require().NoError(listing.CanUnflag())
		listing.ApplyUnflag(s.now)
		s.False(listing.Flagged)
		s.Empty(listing.FlagSource)
		s.Empty(listing.FlagReason)
	})

	s.Run("cascade flag refuses per-listing unflag", func() {
		listing := s.newListing()
		listing.ApplyFlag(FlagSourceAccountStatus, ReasonAccountBanned, s.now)

		err := listing.CanUnflag()
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("unflagged listing cannot be unflagged", func() {
		err := s.newListing().CanUnflag()
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func (s *ListingModelSuite) TestDeleteIsTerminal() {
	listing := s.newListing()
	listing.ApplyDelete(s.now)

	s.Require().Error(listing.CanDelete())
	s.Require().Error(listing.CanFlag())
	s.Require().Error(listing.CanUnflag())
	s.Require().Error(listing.CanVerifyAddress())
}

func (s *ListingModelSuite) TestAddressVerificationIsMonotonic() {
	listing := s.newListing()

	s.Require().NoError(listing.CanVerifyAddress())
	listing.ApplyVerifyAddress(s.now)
	s.True(listing.AddressVerified)

	err := listing.CanVerifyAddress()
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}
