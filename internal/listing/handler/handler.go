// Package handler exposes listing creation and queries.
package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"hometrust/internal/artifact"
	"hometrust/internal/listing/models"
	"hometrust/internal/listing/service"
	"hometrust/internal/platform/middleware"
	id "hometrust/pkg/domain"
	dErrors "hometrust/pkg/domain-errors"
	"hometrust/pkg/platform/httputil"
	"hometrust/pkg/requestcontext"
)

// Service is the listing service surface the handler delegates to.
type Service interface {
	Create(ctx context.Context, input service.CreateInput) (*models.Listing, error)
	Get(ctx context.Context, listingID id.ListingID) (*models.Listing, error)
	List(ctx context.Context, flaggedFilter string) ([]*models.Listing, error)
	ListByOwner(ctx context.Context, ownerID id.AccountID) ([]*models.Listing, error)
}

// Handler handles listing endpoints.
type Handler struct {
	listings  Service
	logger    *slog.Logger
	validator middleware.TokenValidator
}

func New(listings Service, logger *slog.Logger, validator middleware.TokenValidator) *Handler {
	return &Handler{listings: listings, logger: logger, validator: validator}
}

// Register mounts the listing routes. Creation belongs to the authenticated
// owner; the flagged-filter listing is an admin moderation view.
func (h *Handler) Register(r chi.Router) {
	r.Get("/listings/{listingID}", h.handleGet)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAccount(h.validator, h.logger))
		r.Post("/listings", h.handleCreate)
		r.Get("/listings/mine", h.handleListMine)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin(h.validator, h.logger))
		r.Get("/listings", h.handleList)
	})
}

type createRequest struct {
	Title       string `json:"title"`
	ProofBase64 string `json:"proof_of_address_base64,omitempty"`
	ProofMime   string `json:"proof_of_address_mime,omitempty"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID := requestcontext.AccountID(ctx)
	if ownerID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	input := service.CreateInput{OwnerID: ownerID, Title: req.Title}
	if req.ProofBase64 != "" {
		content, err := base64.StdEncoding.DecodeString(req.ProofBase64)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "proof of address must be base64 encoded"))
			return
		}
		input.ProofOfAddress = &artifact.Upload{Content: content, Mime: req.ProofMime}
	}

	listing, err := h.listings.Create(ctx, input)
	if err != nil {
		h.logger.WarnContext(ctx, "listing creation failed",
			"request_id", middleware.GetRequestID(ctx),
			"owner_id", ownerID.String(),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, listing)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	listingID, err := id.ParseListingID(chi.URLParam(r, "listingID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	listing, err := h.listings.Get(r.Context(), listingID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listing)
}

func (h *Handler) handleListMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	listings, err := h.listings.ListByOwner(ctx, requestcontext.AccountID(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if listings == nil {
		listings = []*models.Listing{}
	}
	httputil.WriteJSON(w, http.StatusOK, listings)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	listings, err := h.listings.List(r.Context(), r.URL.Query().Get("flagged"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if listings == nil {
		listings = []*models.Listing{}
	}
	httputil.WriteJSON(w, http.StatusOK, listings)
}
