// Package handler exposes the admin moderation endpoints. Every route runs
// behind RequireAdmin; the acting admin's ID flows through the context into
// the moderation log.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	accountmodels "hometrust/internal/account/models"
	claimmodels "hometrust/internal/claim/models"
	listingmodels "hometrust/internal/listing/models"
	"hometrust/internal/moderation/service"
	"hometrust/internal/modlog"
	"hometrust/internal/platform/middleware"
	id "hometrust/pkg/domain"
	dErrors "hometrust/pkg/domain-errors"
	"hometrust/pkg/platform/httputil"
)

// Service is the moderation orchestrator surface the handler delegates to.
type Service interface {
	ReviewClaim(ctx context.Context, input service.ReviewInput) (*claimmodels.Claim, error)
	PurgeClaim(ctx context.Context, claimID id.ClaimID) error
	SuspendAccount(ctx context.Context, accountID id.AccountID, reason string, until *time.Time) (*accountmodels.Account, error)
	BanAccount(ctx context.Context, accountID id.AccountID, reason string) (*accountmodels.Account, error)
	ActivateAccount(ctx context.Context, accountID id.AccountID, reason string) (*accountmodels.Account, error)
	DeleteAccount(ctx context.Context, accountID id.AccountID, reason string) error
	FlagListing(ctx context.Context, listingID id.ListingID, reason string) (*listingmodels.Listing, error)
	UnflagListing(ctx context.Context, listingID id.ListingID) (*listingmodels.Listing, error)
	DeleteListing(ctx context.Context, listingID id.ListingID, reason string) (*listingmodels.Listing, error)
	VerifyListingAddress(ctx context.Context, listingID id.ListingID) (*listingmodels.Listing, error)
	RecentActivity(ctx context.Context, limit int) ([]modlog.Entry, error)
	TargetHistory(ctx context.Context, targetType modlog.TargetType, targetID uuid.UUID) ([]modlog.Entry, error)
}

// Handler handles moderation endpoints.
type Handler struct {
	moderation Service
	logger     *slog.Logger
	validator  middleware.TokenValidator
}

func New(moderation Service, logger *slog.Logger, validator middleware.TokenValidator) *Handler {
	return &Handler{moderation: moderation, logger: logger, validator: validator}
}

// Register mounts the moderation routes.
func (h *Handler) Register(r chi.Router) {
	r.Route("/moderation", func(r chi.Router) {
		r.Use(middleware.RequireAdmin(h.validator, h.logger))

		r.Post("/claims/{claimID}/review", h.handleReviewClaim)
		r.Delete("/claims/{claimID}", h.handlePurgeClaim)

		r.Post("/accounts/{accountID}/suspend", h.handleSuspendAccount)
		r.Post("/accounts/{accountID}/ban", h.handleBanAccount)
		r.Post("/accounts/{accountID}/activate", h.handleActivateAccount)
		r.Delete("/accounts/{accountID}", h.handleDeleteAccount)

		r.Post("/listings/{listingID}/flag", h.handleFlagListing)
		r.Post("/listings/{listingID}/unflag", h.handleUnflagListing)
		r.Delete("/listings/{listingID}", h.handleDeleteListing)
		r.Post("/listings/{listingID}/verify-address", h.handleVerifyAddress)

		r.Get("/log", h.handleRecentActivity)
		r.Get("/log/{targetType}/{targetID}", h.handleTargetHistory)
	})
}

func (h *Handler) handleRecentActivity(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "limit must be an integer"))
			return
		}
		limit = parsed
	}

	entries, err := h.moderation.RecentActivity(r.Context(), limit)
	if err != nil {
		h.warn(r.Context(), "moderation log read failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) handleTargetHistory(w http.ResponseWriter, r *http.Request) {
	targetID, err := uuid.Parse(chi.URLParam(r, "targetID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid target id"))
		return
	}

	entries, err := h.moderation.TargetHistory(r.Context(), modlog.TargetType(chi.URLParam(r, "targetType")), targetID)
	if err != nil {
		h.warn(r.Context(), "moderation log read failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

type reviewRequest struct {
	Decision      string `json:"decision"`
	Reason        string `json:"reason,omitempty"`
	AdminMessage  string `json:"admin_message,omitempty"`
	NameMatchHint *bool  `json:"name_match_hint,omitempty"`
}

func (h *Handler) handleReviewClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claimID, err := id.ParseClaimID(chi.URLParam(r, "claimID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	claim, err := h.moderation.ReviewClaim(ctx, service.ReviewInput{
		ClaimID:       claimID,
		Decision:      claimmodels.ClaimStatus(req.Decision),
		Reason:        req.Reason,
		AdminMessage:  req.AdminMessage,
		NameMatchHint: req.NameMatchHint,
	})
	if err != nil {
		h.warn(ctx, "claim review failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, claim)
}

func (h *Handler) handlePurgeClaim(w http.ResponseWriter, r *http.Request) {
	claimID, err := id.ParseClaimID(chi.URLParam(r, "claimID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.moderation.PurgeClaim(r.Context(), claimID); err != nil {
		h.warn(r.Context(), "claim purge failed", err)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type accountActionRequest struct {
	Reason string     `json:"reason,omitempty"`
	Until  *time.Time `json:"until,omitempty"`
}

func (h *Handler) handleSuspendAccount(w http.ResponseWriter, r *http.Request) {
	h.accountAction(w, r, func(ctx context.Context, accountID id.AccountID, req accountActionRequest) (*accountmodels.Account, error) {
		return h.moderation.SuspendAccount(ctx, accountID, req.Reason, req.Until)
	})
}

func (h *Handler) handleBanAccount(w http.ResponseWriter, r *http.Request) {
	h.accountAction(w, r, func(ctx context.Context, accountID id.AccountID, req accountActionRequest) (*accountmodels.Account, error) {
		return h.moderation.BanAccount(ctx, accountID, req.Reason)
	})
}

func (h *Handler) handleActivateAccount(w http.ResponseWriter, r *http.Request) {
	h.accountAction(w, r, func(ctx context.Context, accountID id.AccountID, req accountActionRequest) (*accountmodels.Account, error) {
		return h.moderation.ActivateAccount(ctx, accountID, req.Reason)
	})
}

func (h *Handler) accountAction(w http.ResponseWriter, r *http.Request, invoke func(context.Context, id.AccountID, accountActionRequest) (*accountmodels.Account, error)) {
	ctx := r.Context()

	accountID, err := id.ParseAccountID(chi.URLParam(r, "accountID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := decodeOptionalBody[accountActionRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	account, err := invoke(ctx, accountID, req)
	if err != nil {
		h.warn(ctx, "account moderation failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, account)
}

func (h *Handler) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accountID, err := id.ParseAccountID(chi.URLParam(r, "accountID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := decodeOptionalBody[accountActionRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.moderation.DeleteAccount(ctx, accountID, req.Reason); err != nil {
		h.warn(ctx, "account deletion failed", err)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type listingActionRequest struct {
	Reason string `json:"reason,omitempty"`
}

func (h *Handler) handleFlagListing(w http.ResponseWriter, r *http.Request) {
	h.listingAction(w, r, func(ctx context.Context, listingID id.ListingID, req listingActionRequest) (*listingmodels.Listing, error) {
		return h.moderation.FlagListing(ctx, listingID, req.Reason)
	})
}

func (h *Handler) handleUnflagListing(w http.ResponseWriter, r *http.Request) {
	h.listingAction(w, r, func(ctx context.Context, listingID id.ListingID, _ listingActionRequest) (*listingmodels.Listing, error) {
		return h.moderation.UnflagListing(ctx, listingID)
	})
}

func (h *Handler) handleVerifyAddress(w http.ResponseWriter, r *http.Request) {
	h.listingAction(w, r, func(ctx context.Context, listingID id.ListingID, _ listingActionRequest) (*listingmodels.Listing, error) {
		return h.moderation.VerifyListingAddress(ctx, listingID)
	})
}

func (h *Handler) handleDeleteListing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	listingID, err := id.ParseListingID(chi.URLParam(r, "listingID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := decodeOptionalBody[listingActionRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if _, err := h.moderation.DeleteListing(ctx, listingID, req.Reason); err != nil {
		h.warn(ctx, "listing deletion failed", err)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listingAction(w http.ResponseWriter, r *http.Request, invoke func(context.Context, id.ListingID, listingActionRequest) (*listingmodels.Listing, error)) {
	ctx := r.Context()

	listingID, err := id.ParseListingID(chi.URLParam(r, "listingID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := decodeOptionalBody[listingActionRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	listing, err := invoke(ctx, listingID, req)
	if err != nil {
		h.warn(ctx, "listing moderation failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listing)
}

// decodeOptionalBody tolerates an empty body; moderation reasons are optional
// on most actions.
func decodeOptionalBody[T any](r *http.Request) (T, error) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return req, nil
		}
		return req, dErrors.New(dErrors.CodeBadRequest, "invalid request body")
	}
	return req, nil
}

func (h *Handler) warn(ctx context.Context, msg string, err error) {
	h.logger.WarnContext(ctx, msg,
		"request_id", middleware.GetRequestID(ctx),
		"error", err.Error(),
	)
}
