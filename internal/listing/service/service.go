// Package service implements listing creation and queries. Listing moderation
// (flag/unflag/delete/verify-address) lives in the moderation orchestrator.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	accountmodels "hometrust/internal/account/models"
	"hometrust/internal/artifact"
	"hometrust/internal/listing/models"
	id "hometrust/pkg/domain"
	dErrors "hometrust/pkg/domain-errors"
	"hometrust/pkg/platform/sentinel"
	"hometrust/pkg/requestcontext"
)

const (
	maxProofSize = 1 << 20
)

var proofMimes = map[string]bool{"image/jpeg": true, "image/png": true, "application/pdf": true}

// ListingStore is the listing persistence the service depends on.
type ListingStore interface {
	Create(ctx context.Context, listing *models.Listing) error
	FindByID(ctx context.Context, listingID id.ListingID) (*models.Listing, error)
	ListByOwner(ctx context.Context, ownerID id.AccountID) ([]*models.Listing, error)
	ListByFlagged(ctx context.Context, flagged *bool) ([]*models.Listing, error)
}

// AccountStore is the slice of the account store used to check owner
// eligibility.
type AccountStore interface {
	FindByID(ctx context.Context, accountID id.AccountID) (*accountmodels.Account, error)
}

// Service orchestrates listing creation and queries.
type Service struct {
	listings  ListingStore
	accounts  AccountStore
	artifacts artifact.Store
	logger    *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(listings ListingStore, accounts AccountStore, artifacts artifact.Store, opts ...Option) *Service {
	s := &Service{
		listings:  listings,
		accounts:  accounts,
		artifacts: artifacts,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateInput is a listing creation request. ProofOfAddress is optional; when
// present it is stored and attached for later address verification.
type CreateInput struct {
	OwnerID        id.AccountID
	Title          string
	ProofOfAddress *artifact.Upload
}

// Create adds a listing for a verified, active owner. Verification is the
// gate that trust claims unlock: an owner whose claim was never approved
// cannot list.
func (s *Service) Create(ctx context.Context, input CreateInput) (*models.Listing, error) {
	owner, err := s.accounts.FindByID(ctx, input.OwnerID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "account not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}
	if !owner.IsActive() {
		return nil, dErrors.New(dErrors.CodeForbidden, "account is not active")
	}
	if owner.VerificationStatus != accountmodels.VerificationApproved {
		return nil, dErrors.New(dErrors.CodeForbidden, "account must be verified before listing")
	}

	now := requestcontext.Now(ctx)
	listing, err := models.NewListing(id.NewListingID(), input.OwnerID, input.Title, now)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
		}
		return nil, err
	}

	if input.ProofOfAddress != nil {
		ref, err := s.storeProof(ctx, *input.ProofOfAddress)
		if err != nil {
			return nil, err
		}
		listing.ProofOfAddress = &ref
	}

	if err := s.listings.Create(ctx, listing); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create listing")
	}

	s.logger.InfoContext(ctx, "listing created",
		"listing_id", listing.ID.String(),
		"owner_id", listing.OwnerID.String(),
	)
	return listing, nil
}

func (s *Service) storeProof(ctx context.Context, upload artifact.Upload) (artifact.Ref, error) {
	if len(upload.Content) == 0 {
		return artifact.Ref{}, dErrors.New(dErrors.CodeValidation, "proof of address upload is empty")
	}
	ref, err := s.artifacts.Store(ctx, upload)
	if err != nil {
		return artifact.Ref{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "artifact store is unavailable")
	}
	if ref.Size <= 0 || ref.Size > maxProofSize {
		return artifact.Ref{}, dErrors.New(dErrors.CodeValidation, "proof of address exceeds the size limit")
	}
	if !proofMimes[ref.Mime] {
		return artifact.Ref{}, dErrors.New(dErrors.CodeValidation, "proof of address has an unsupported type")
	}
	return ref, nil
}

// Get returns a listing by ID.
func (s *Service) Get(ctx context.Context, listingID id.ListingID) (*models.Listing, error) {
	if listingID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "listing ID required")
	}
	listing, err := s.listings.FindByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "listing not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load listing")
	}
	return listing, nil
}

// List returns listings, optionally filtered by the flagged bit. The filter
// value is the query-string form: "true", "false", or empty for all.
func (s *Service) List(ctx context.Context, flaggedFilter string) ([]*models.Listing, error) {
	var flagged *bool
	if flaggedFilter != "" {
		parsed, err := strconv.ParseBool(flaggedFilter)
		if err != nil {
			return nil, dErrors.New(dErrors.CodeValidation, "flagged filter must be a boolean")
		}
		flagged = &parsed
	}
	listings, err := s.listings.ListByFlagged(ctx, flagged)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list listings")
	}
	return listings, nil
}

// ListByOwner returns the non-deleted listings owned by the account.
func (s *Service) ListByOwner(ctx context.Context, ownerID id.AccountID) ([]*models.Listing, error) {
	if ownerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "account ID required")
	}
	listings, err := s.listings.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list listings")
	}
	return listings, nil
}
