// Package service is the moderation orchestrator: the single entry point for
// admin-initiated mutations of claims, accounts, and listings. Each operation
// groups the primary state change, its cascade over owned records, and its
// audit-log writes into one transaction; the notification enqueue happens
// after commit and never rolls the decision back.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	accountmodels "hometrust/internal/account/models"
	claimmodels "hometrust/internal/claim/models"
	listingmodels "hometrust/internal/listing/models"
	"hometrust/internal/modlog"
	"hometrust/internal/notify"
	"hometrust/internal/platform/metrics"
	id "hometrust/pkg/domain"
	dErrors "hometrust/pkg/domain-errors"
	"hometrust/pkg/platform/sentinel"
	txcontext "hometrust/pkg/platform/tx"
	"hometrust/pkg/requestcontext"
)

// AccountStore is the account persistence the orchestrator depends on.
type AccountStore interface {
	FindByID(ctx context.Context, accountID id.AccountID) (*accountmodels.Account, error)
	Execute(ctx context.Context, accountID id.AccountID, validate func(*accountmodels.Account) error, mutate func(*accountmodels.Account)) (*accountmodels.Account, error)
	Delete(ctx context.Context, accountID id.AccountID) error
}

// ClaimStore is the claim persistence the orchestrator depends on.
type ClaimStore interface {
	FindByID(ctx context.Context, claimID id.ClaimID) (*claimmodels.Claim, error)
	Execute(ctx context.Context, claimID id.ClaimID, validate func(*claimmodels.Claim) error, mutate func(*claimmodels.Claim)) (*claimmodels.Claim, error)
	Delete(ctx context.Context, claimID id.ClaimID) error
	DeleteByAccount(ctx context.Context, accountID id.AccountID) error
}

// ListingStore is the listing persistence the orchestrator depends on.
type ListingStore interface {
	ListByOwner(ctx context.Context, ownerID id.AccountID) ([]*listingmodels.Listing, error)
	Execute(ctx context.Context, listingID id.ListingID, validate func(*listingmodels.Listing) error, mutate func(*listingmodels.Listing)) (*listingmodels.Listing, error)
	DeleteByOwner(ctx context.Context, ownerID id.AccountID) error
}

// Service coordinates moderation actions.
type Service struct {
	accounts AccountStore
	claims   ClaimStore
	listings ListingStore
	logbook  modlog.Store
	outbox   notify.Store
	runner   txcontext.Runner

	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) { s.tracer = tracer }
}

func New(accounts AccountStore, claims ClaimStore, listings ListingStore, logbook modlog.Store, outbox notify.Store, runner txcontext.Runner, opts ...Option) *Service {
	s := &Service{
		accounts: accounts,
		claims:   claims,
		listings: listings,
		logbook:  logbook,
		outbox:   outbox,
		runner:   runner,
		logger:   slog.Default(),
		tracer:   otel.Tracer("hometrust/moderation"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// actingAdmin returns the admin identity placed in the context by the auth
// middleware. Every moderation action is attributed to it in the log.
func (s *Service) actingAdmin(ctx context.Context) (id.AccountID, error) {
	adminID := requestcontext.AdminID(ctx)
	if adminID.IsNil() {
		return id.AccountID{}, dErrors.New(dErrors.CodeUnauthorized, "admin identity required")
	}
	return adminID, nil
}

// enqueue appends a notification to the outbox after the moderation
// transaction committed. The enqueue sits outside the atomicity boundary:
// failure here is logged and swallowed, the decision stands.
func (s *Service) enqueue(ctx context.Context, accountID id.AccountID, template notify.TemplateKind, payload map[string]string) {
	notification := notify.New(accountID, template, payload, requestcontext.Now(ctx))
	if err := s.outbox.Enqueue(ctx, notification); err != nil {
		s.logger.ErrorContext(ctx, "notification enqueue failed",
			"account_id", accountID.String(),
			"template", string(template),
			"error", err,
		)
		return
	}
	s.metrics.IncNotificationEnqueued()
}

const defaultActivityLimit = 50

// RecentActivity returns the newest moderation log entries, capped at limit.
func (s *Service) RecentActivity(ctx context.Context, limit int) ([]modlog.Entry, error) {
	if _, err := s.actingAdmin(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	entries, err := s.logbook.ListRecent(ctx, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read moderation log")
	}
	return entries, nil
}

// TargetHistory returns every moderation log entry for one target, oldest
// first.
func (s *Service) TargetHistory(ctx context.Context, targetType modlog.TargetType, targetID uuid.UUID) ([]modlog.Entry, error) {
	if _, err := s.actingAdmin(ctx); err != nil {
		return nil, err
	}
	if !targetType.Valid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown moderation target type")
	}
	entries, err := s.logbook.ListByTarget(ctx, targetType, targetID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read moderation log")
	}
	return entries, nil
}

// translate maps store sentinels and model invariant violations onto the
// caller-facing taxonomy.
func translate(err error, target string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, target+" not found")
	case errors.Is(err, sentinel.ErrStaleVersion):
		return dErrors.New(dErrors.CodeConflict, "concurrent moderation of "+target+" detected, retry")
	}
	if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
		return dErrors.New(dErrors.CodeInvalidState, dErrors.MessageOf(err))
	}
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "moderation of "+target+" failed")
}
