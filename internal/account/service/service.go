// Package service implements account registration and lookup. Moderation of
// accounts (suspend/ban/activate/delete) lives in the moderation orchestrator;
// this service only creates and reads accounts.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"hometrust/internal/account/models"
	id "hometrust/pkg/domain"
	dErrors "hometrust/pkg/domain-errors"
	"hometrust/pkg/platform/sentinel"
	"hometrust/pkg/requestcontext"
)

// Store is the account persistence the service depends on.
type Store interface {
	Create(ctx context.Context, account *models.Account) error
	FindByID(ctx context.Context, accountID id.AccountID) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	ListByStatus(ctx context.Context, status *models.Status) ([]*models.Account, error)
}

// Service orchestrates account registration and queries.
type Service struct {
	accounts        Store
	freeMailDomains map[string]struct{}
	logger          *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithFreeMailBlocklist configures the domains that disqualify a business
// email for company registrations.
func WithFreeMailBlocklist(domains []string) Option {
	return func(s *Service) {
		for _, domain := range domains {
			s.freeMailDomains[strings.ToLower(domain)] = struct{}{}
		}
	}
}

func New(accounts Store, opts ...Option) *Service {
	s := &Service{
		accounts:        accounts,
		freeMailDomains: make(map[string]struct{}),
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a new active, unverified account. Company registrations
// must use a business email domain; this is the precondition that later gates
// company-registration trust claims.
func (s *Service) Register(ctx context.Context, email string, role models.Role) (*models.Account, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if !role.Valid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown role")
	}

	account, err := models.NewAccount(id.NewAccountID(), email, role, requestcontext.Now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
		}
		return nil, err
	}

	if role == models.RoleCompany {
		if _, blocked := s.freeMailDomains[account.EmailDomain()]; blocked {
			return nil, dErrors.New(dErrors.CodeForbidden, "company accounts require a business email domain")
		}
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "email is already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create account")
	}

	s.logger.InfoContext(ctx, "account registered",
		"account_id", account.ID.String(),
		"role", string(account.Role),
	)
	return account, nil
}

// Get returns an account by ID.
func (s *Service) Get(ctx context.Context, accountID id.AccountID) (*models.Account, error) {
	if accountID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "account ID required")
	}
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "account not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}
	return account, nil
}

// List returns accounts, optionally filtered by status.
func (s *Service) List(ctx context.Context, statusFilter string) ([]*models.Account, error) {
	var status *models.Status
	if statusFilter != "" {
		parsed := models.Status(statusFilter)
		if !parsed.Valid() {
			return nil, dErrors.New(dErrors.CodeValidation, "unknown account status filter")
		}
		status = &parsed
	}
	accounts, err := s.accounts.ListByStatus(ctx, status)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list accounts")
	}
	return accounts, nil
}
