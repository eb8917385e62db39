package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	accountmodels "hometrust/internal/account/models"
	accountstore "hometrust/internal/account/store"
	"hometrust/internal/artifact"
	"hometrust/internal/listing/models"
	listingstore "hometrust/internal/listing/store"
	id "hometrust/pkg/domain"
	dErrors "hometrust/pkg/domain-errors"
	"hometrust/pkg/requestcontext"
)

type ListingServiceSuite struct {
	suite.Suite
	ctx       context.Context
	now       time.Time
	listings  *listingstore.InMemory
	accounts  *accountstore.InMemory
	artifacts *artifact.InMemoryStore
	service   *Service
}

func (s *ListingServiceSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.listings = listingstore.NewInMemory()
	s.accounts = accountstore.NewInMemory()
	s.artifacts = artifact.NewInMemoryStore()
	s.service = New(s.listings, s.accounts, s.artifacts)
}

func TestListingServiceSuite(t *testing.T) {
	suite.Run(t, new(ListingServiceSuite))
}

func (s *ListingServiceSuite) seedOwner(verified bool) *accountmodels.Account {
	account, err := accountmodels.NewAccount(id.NewAccountID(), id.NewAccountID().String()+"@realty.example", accountmodels.RoleLandlord, s.now)
	s.Require().NoError(err)
	if verified {
		account.ApplyVerificationApproved(s.now)
	}
	s.Require().NoError(s.accounts.Create(s.ctx, account))
	return account
}

func (s *ListingServiceSuite) TestCreate() {
	s.Run("verified owner creates a listing", func() {
		owner := s.seedOwner(true)

		listing, err := s.service.Create(s.ctx, CreateInput{
			OwnerID: owner.ID,
			Title:   "Sea view studio",
		})
		s.Require().NoError(err)
		s.Equal("Sea view studio", listing.Title)
		s.False(listing.Flagged)
		s.Nil(listing.ProofOfAddress)
	})

	s.Run("unverified owner is forbidden", func() {
		owner := s.seedOwner(false)

		_, err := s.service.Create(s.ctx, CreateInput{OwnerID: owner.ID, Title: "Garage"})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("suspended owner is forbidden even when verified", func() {
		owner := s.seedOwner(true)
		_, err := s.accounts.Execute(s.ctx, owner.ID,
			func(a *accountmodels.Account) error { return a.CanSuspend() },
			func(a *accountmodels.Account) { a.ApplySuspension("spam", nil, s.now) },
		)
		s.Require().NoError(err)

		_, err = s.service.Create(s.ctx, CreateInput{OwnerID: owner.ID, Title: "Garage"})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("empty title fails validation", func() {
		owner := s.seedOwner(true)

		_, err := s.service.Create(s.ctx, CreateInput{OwnerID: owner.ID, Title: "   "})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown owner", func() {
		_, err := s.service.Create(s.ctx, CreateInput{OwnerID: id.NewAccountID(), Title: "Flat"})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ListingServiceSuite) TestCreateWithProofOfAddress() {
	owner := s.seedOwner(true)

	s.Run("attaches stored proof", func() {
		listing, err := s.service.Create(s.ctx, CreateInput{
			OwnerID:        owner.ID,
			Title:          "Row house",
			ProofOfAddress: &artifact.Upload{Content: bytes.Repeat([]byte{1}, 64*1024), Mime: "application/pdf"},
		})
		s.Require().NoError(err)
		s.Require().NotNil(listing.ProofOfAddress)
		s.Equal(int64(64*1024), listing.ProofOfAddress.Size)
		s.Equal(1, s.artifacts.Len())
	})

	s.Run("rejects oversized proof", func() {
		_, err := s.service.Create(s.ctx, CreateInput{
			OwnerID:        owner.ID,
			Title:          "Row house",
			ProofOfAddress: &artifact.Upload{Content: bytes.Repeat([]byte{1}, 1<<20+1), Mime: "application/pdf"},
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects unsupported proof type", func() {
		_, err := s.service.Create(s.ctx, CreateInput{
			OwnerID:        owner.ID,
			Title:          "Row house",
			ProofOfAddress: &artifact.Upload{Content: []byte("GIF89a"), Mime: "image/gif"},
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ListingServiceSuite) TestQueries() {
	owner := s.seedOwner(true)
	first, err := s.service.Create(s.ctx, CreateInput{OwnerID: owner.ID, Title: "One"})
	s.Require().NoError(err)
	second, err := s.service.Create(s.ctx, CreateInput{OwnerID: owner.ID, Title: "Two"})
	s.Require().NoError(err)

	_, err = s.listings.Execute(s.ctx, second.ID,
		func(l *models.Listing) error { return l.CanFlag() },
		func(l *models.Listing) { l.ApplyFlag(models.FlagSourceContent, "misleading photos", s.now) },
	)
	s.Require().NoError(err)

	s.Run("get by id", func() {
		found, err := s.service.Get(s.ctx, first.ID)
		s.Require().NoError(err)
		s.Equal(first.ID, found.ID)
	})

	s.Run("deleted listing is not found", func() {
		gone, err := s.service.Create(s.ctx, CreateInput{OwnerID: owner.ID, Title: "Ephemeral"})
		s.Require().NoError(err)

		_, err = s.listings.Execute(s.ctx, gone.ID,
			func(l *models.Listing) error { return l.CanDelete() },
			func(l *models.Listing) { l.ApplyDelete(s.now) },
		)
		s.Require().NoError(err)

		_, err = s.service.Get(s.ctx, gone.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("flagged filter", func() {
		flagged, err := s.service.List(s.ctx, "true")
		s.Require().NoError(err)
		s.Require().Len(flagged, 1)
		s.Equal(second.ID, flagged[0].ID)

		clean, err := s.service.List(s.ctx, "false")
		s.Require().NoError(err)
		s.Len(clean, 1)

		_, err = s.service.List(s.ctx, "maybe")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("list by owner", func() {
		listings, err := s.service.ListByOwner(s.ctx, owner.ID)
		s.Require().NoError(err)
		s.Len(listings, 2)
	})
}
