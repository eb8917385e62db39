// Package handler exposes trust claim submission and admin claim queries.
// Artifact content travels base64-encoded in the JSON body; the service
// stores it externally and the claim keeps only the references.
package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"hometrust/internal/artifact"
	"hometrust/internal/claim/models"
	"hometrust/internal/claim/service"
	"hometrust/internal/platform/middleware"
	id "hometrust/pkg/domain"
	dErrors "hometrust/pkg/domain-errors"
	"hometrust/pkg/platform/httputil"
	"hometrust/pkg/requestcontext"
)

// Service is the claim service surface the handler delegates to.
type Service interface {
	Submit(ctx context.Context, input service.SubmitInput) (*models.Claim, error)
	Get(ctx context.Context, claimID id.ClaimID) (*models.Claim, error)
	List(ctx context.Context, statusFilter string) ([]*models.Claim, error)
	ListByAccount(ctx context.Context, accountID id.AccountID) ([]*models.Claim, error)
}

// Handler handles claim endpoints.
type Handler struct {
	claims    Service
	logger    *slog.Logger
	validator middleware.TokenValidator
}

func New(claims Service, logger *slog.Logger, validator middleware.TokenValidator) *Handler {
	return &Handler{claims: claims, logger: logger, validator: validator}
}

// Register mounts the claim routes. Submission belongs to the authenticated
// account; cross-account queries are admin-only.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAccount(h.validator, h.logger))
		r.Post("/claims", h.handleSubmit)
		r.Get("/claims/mine", h.handleListMine)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin(h.validator, h.logger))
		r.Get("/claims", h.handleList)
		r.Get("/claims/{claimID}", h.handleGet)
	})
}

type uploadRequest struct {
	ContentBase64 string `json:"content_base64"`
	Mime          string `json:"mime"`
}

type submitRequest struct {
	Kind        string         `json:"kind"`
	Document    *uploadRequest `json:"document,omitempty"`
	Selfie      *uploadRequest `json:"selfie,omitempty"`
	Certificate *uploadRequest `json:"certificate,omitempty"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accountID := requestcontext.AccountID(ctx)
	if accountID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	input := service.SubmitInput{
		AccountID: accountID,
		Kind:      models.ClaimKind(req.Kind),
	}
	var err error
	if input.Document, err = decodeUpload(req.Document); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if input.Selfie, err = decodeUpload(req.Selfie); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if input.Certificate, err = decodeUpload(req.Certificate); err != nil {
		httputil.WriteError(w, err)
		return
	}

	claim, err := h.claims.Submit(ctx, input)
	if err != nil {
		h.logger.WarnContext(ctx, "claim submission failed",
			"request_id", middleware.GetRequestID(ctx),
			"account_id", accountID.String(),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, claim)
}

func decodeUpload(req *uploadRequest) (*artifact.Upload, error) {
	if req == nil {
		return nil, nil
	}
	content, err := base64.StdEncoding.DecodeString(req.ContentBase64)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "artifact content must be base64 encoded")
	}
	return &artifact.Upload{Content: content, Mime: req.Mime}, nil
}

func (h *Handler) handleListMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, err := h.claims.ListByAccount(ctx, requestcontext.AccountID(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if claims == nil {
		claims = []*models.Claim{}
	}
	httputil.WriteJSON(w, http.StatusOK, claims)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	claims, err := h.claims.List(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if claims == nil {
		claims = []*models.Claim{}
	}
	httputil.WriteJSON(w, http.StatusOK, claims)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	claimID, err := id.ParseClaimID(chi.URLParam(r, "claimID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	claim, err := h.claims.Get(r.Context(), claimID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, claim)
}
