// Package service implements trust claim submission and queries. Claim review
// lives in the moderation orchestrator; this service covers the account-facing
// side of the lifecycle.
package service

import (
	"context"
	"errors"
	"log/slog"

	accountmodels "hometrust/internal/account/models"
	"hometrust/internal/artifact"
	"hometrust/internal/claim/models"
	"hometrust/internal/platform/metrics"
	id "hometrust/pkg/domain"
	dErrors "hometrust/pkg/domain-errors"
	"hometrust/pkg/platform/sentinel"
	txcontext "hometrust/pkg/platform/tx"
	"hometrust/pkg/requestcontext"
)

// ClaimStore is the claim persistence the service depends on.
type ClaimStore interface {
	Create(ctx context.Context, claim *models.Claim) error
	FindByID(ctx context.Context, claimID id.ClaimID) (*models.Claim, error)
	ListByAccount(ctx context.Context, accountID id.AccountID) ([]*models.Claim, error)
	ListByStatus(ctx context.Context, status *models.ClaimStatus) ([]*models.Claim, error)
}

// AccountStore is the slice of the account store the service needs to read
// owners and flip their verification status.
type AccountStore interface {
	FindByID(ctx context.Context, accountID id.AccountID) (*accountmodels.Account, error)
	Execute(ctx context.Context, accountID id.AccountID, validate func(*accountmodels.Account) error, mutate func(*accountmodels.Account)) (*accountmodels.Account, error)
}

// Service orchestrates claim submission.
type Service struct {
	claims    ClaimStore
	accounts  AccountStore
	artifacts artifact.Store
	runner    txcontext.Runner
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(claims ClaimStore, accounts AccountStore, artifacts artifact.Store, runner txcontext.Runner, opts ...Option) *Service {
	s := &Service{
		claims:    claims,
		accounts:  accounts,
		artifacts: artifacts,
		runner:    runner,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitInput is a claim submission. Which uploads are required depends on
// the kind: national-id and driver-license take Document plus Selfie,
// company-registration takes Certificate.
type SubmitInput struct {
	AccountID   id.AccountID
	Kind        models.ClaimKind
	Document    *artifact.Upload
	Selfie      *artifact.Upload
	Certificate *artifact.Upload
}

// Submit stores the uploaded artifacts, validates them against the kind
// limits, and creates a pending claim. The claim insert and the owner's
// verification-status flip commit in one transaction; a submission that loses
// the pending-uniqueness race fails with a conflict and leaves nothing behind.
func (s *Service) Submit(ctx context.Context, input SubmitInput) (*models.Claim, error) {
	if !input.Kind.Valid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown claim kind")
	}

	account, err := s.accounts.FindByID(ctx, input.AccountID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "account not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}
	if !account.IsActive() {
		return nil, dErrors.New(dErrors.CodeForbidden, "account is not active")
	}
	if !input.Kind.AllowedForRole(account.Role) {
		return nil, dErrors.New(dErrors.CodeForbidden, "account role is not eligible for this claim kind")
	}

	payload, err := s.storeArtifacts(ctx, input)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	claim, err := models.NewClaim(id.NewClaimID(), input.AccountID, payload, now)
	if err != nil {
		return nil, err
	}

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.claims.Create(ctx, claim); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.New(dErrors.CodeConflict, "account already has a pending claim")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create claim")
		}
		_, err := s.accounts.Execute(ctx, input.AccountID,
			func(*accountmodels.Account) error { return nil },
			func(a *accountmodels.Account) { a.ApplyVerificationPending(now) },
		)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark account verification pending")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncClaimSubmitted()
	s.logger.InfoContext(ctx, "trust claim submitted",
		"claim_id", claim.ID.String(),
		"account_id", claim.AccountID.String(),
		"kind", string(claim.Kind),
	)
	return claim, nil
}

// storeArtifacts uploads the bundle for the requested kind and assembles the
// payload. An unreachable artifact store aborts the whole submission; a claim
// must never reference artifacts that were not durably stored.
func (s *Service) storeArtifacts(ctx context.Context, input SubmitInput) (models.Payload, error) {
	switch input.Kind {
	case models.KindNationalID, models.KindDriverLicense:
		document, err := s.storeOne(ctx, "document", input.Document)
		if err != nil {
			return nil, err
		}
		selfie, err := s.storeOne(ctx, "selfie", input.Selfie)
		if err != nil {
			return nil, err
		}
		if input.Kind == models.KindNationalID {
			return models.NationalIDPayload{Document: document, Selfie: selfie}, nil
		}
		return models.DriverLicensePayload{Document: document, Selfie: selfie}, nil
	case models.KindCompanyRegistration:
		certificate, err := s.storeOne(ctx, "certificate", input.Certificate)
		if err != nil {
			return nil, err
		}
		return models.CompanyRegistrationPayload{Certificate: certificate}, nil
	default:
		return nil, dErrors.New(dErrors.CodeValidation, "unknown claim kind")
	}
}

func (s *Service) storeOne(ctx context.Context, name string, upload *artifact.Upload) (artifact.Ref, error) {
	if upload == nil || len(upload.Content) == 0 {
		return artifact.Ref{}, dErrors.New(dErrors.CodeValidation, name+" upload is required")
	}
	ref, err := s.artifacts.Store(ctx, *upload)
	if err != nil {
		return artifact.Ref{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "artifact store is unavailable")
	}
	return ref, nil
}

// Get returns a claim by ID.
func (s *Service) Get(ctx context.Context, claimID id.ClaimID) (*models.Claim, error) {
	if claimID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "claim ID required")
	}
	claim, err := s.claims.FindByID(ctx, claimID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "claim not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load claim")
	}
	return claim, nil
}

// List returns claims, optionally filtered by status.
func (s *Service) List(ctx context.Context, statusFilter string) ([]*models.Claim, error) {
	var status *models.ClaimStatus
	if statusFilter != "" {
		parsed := models.ClaimStatus(statusFilter)
		if !parsed.Valid() {
			return nil, dErrors.New(dErrors.CodeValidation, "unknown claim status filter")
		}
		status = &parsed
	}
	claims, err := s.claims.ListByStatus(ctx, status)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list claims")
	}
	return claims, nil
}

// ListByAccount returns every claim owned by the account, the account's own
// verification history.
func (s *Service) ListByAccount(ctx context.Context, accountID id.AccountID) ([]*models.Claim, error) {
	if accountID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "account ID required")
	}
	claims, err := s.claims.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list claims")
	}
	return claims, nil
}
