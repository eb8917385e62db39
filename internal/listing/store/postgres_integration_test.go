//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	accountmodels "hometrust/internal/account/models"
	accountstore "hometrust/internal/account/store"
	"hometrust/internal/artifact"
	"hometrust/internal/listing/models"
	"hometrust/internal/listing/store"
	id "hometrust/pkg/domain"
	"hometrust/pkg/platform/sentinel"
	"hometrust/pkg/testutil/containers"
)

type PostgresListingSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	accounts *accountstore.Postgres
	store    *store.Postgres
	ownerID  id.AccountID
}

func TestPostgresListingSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresListingSuite))
}

func (s *PostgresListingSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.accounts = accountstore.NewPostgres(s.postgres.DB)
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresListingSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx,
		"notification_outbox", "moderation_log", "trust_claims", "listings", "accounts")
	s.Require().NoError(err)

	account, err := accountmodels.NewAccount(id.NewAccountID(),
		id.NewAccountID().String()+"@realty.example", accountmodels.RoleLandlord, time.Now().UTC())
	s.Require().NoError(err)
	s.Require().NoError(s.accounts.Create(ctx, account))
	s.ownerID = account.ID
}

func (s *PostgresListingSuite) newListing(title string) *models.Listing {
	listing, err := models.NewListing(id.NewListingID(), s.ownerID, title, time.Now().UTC())
	s.Require().NoError(err)
	return listing
}

func (s *PostgresListingSuite) TestCreateAndFind() {
	ctx := context.Background()
	listing := s.newListing("Sunny 2BR")
	listing.ProofOfAddress = &artifact.Ref{URL: "https://files.example/proof", Size: 4096, Mime: "application/pdf"}
	s.Require().NoError(s.store.Create(ctx, listing))

	found, err := s.store.FindByID(ctx, listing.ID)
	s.Require().NoError(err)
	s.Equal("Sunny 2BR", found.Title)
	s.Require().NotNil(found.ProofOfAddress)
	s.Equal(int64(4096), found.ProofOfAddress.Size)
	s.False(found.AddressVerified)
}

func (s *PostgresListingSuite) TestTombstoneExcludedEverywhere() {
	ctx := context.Background()
	listing := s.newListing("Ephemeral")
	s.Require().NoError(s.store.Create(ctx, listing))

	_, err := s.store.Execute(ctx, listing.ID,
		func(l *models.Listing) error { return l.CanDelete() },
		func(l *models.Listing) { l.ApplyDelete(time.Now().UTC()) },
	)
	s.Require().NoError(err)

	s.Run("find by id", func() {
		_, err := s.store.FindByID(ctx, listing.ID)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("list by owner", func() {
		listings, err := s.store.ListByOwner(ctx, s.ownerID)
		s.Require().NoError(err)
		s.Empty(listings)
	})

	s.Run("execute on tombstone", func() {
		_, err := s.store.Execute(ctx, listing.ID,
			func(l *models.Listing) error { return l.CanFlag() },
			func(l *models.Listing) { l.ApplyFlag(models.FlagSourceContent, "late", time.Now().UTC()) },
		)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *PostgresListingSuite) TestFlagRoundTrip() {
	ctx := context.Background()
	listing := s.newListing("Moderated")
	s.Require().NoError(s.store.Create(ctx, listing))

	flagged, err := s.store.Execute(ctx, listing.ID,
		func(l *models.Listing) error { return l.CanFlag() },
		func(l *models.Listing) {
			l.ApplyFlag(models.FlagSourceAccountStatus, models.ReasonAccountBanned, time.Now().UTC())
		},
	)
	s.Require().NoError(err)
	s.Equal(listing.Version+1, flagged.Version)

	stored, err := s.store.FindByID(ctx, listing.ID)
	s.Require().NoError(err)
	s.True(stored.Flagged)
	s.Equal(models.FlagSourceAccountStatus, stored.FlagSource)
	s.Equal(models.ReasonAccountBanned, stored.FlagReason)

	flaggedOnly := true
	listings, err := s.store.ListByFlagged(ctx, &flaggedOnly)
	s.Require().NoError(err)
	s.Require().Len(listings, 1)
	s.Equal(listing.ID, listings[0].ID)
}

func (s *PostgresListingSuite) TestDeleteByOwner() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, s.newListing("One")))
	s.Require().NoError(s.store.Create(ctx, s.newListing("Two")))

	s.Require().NoError(s.store.DeleteByOwner(ctx, s.ownerID))

	listings, err := s.store.ListByOwner(ctx, s.ownerID)
	s.Require().NoError(err)
	s.Empty(listings)
}
