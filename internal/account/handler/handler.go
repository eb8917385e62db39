// Package handler exposes account registration and admin account queries.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"hometrust/internal/account/models"
	"hometrust/internal/platform/middleware"
	id "hometrust/pkg/domain"
	dErrors "hometrust/pkg/domain-errors"
	"hometrust/pkg/platform/httputil"
)

// Service is the account service surface the handler delegates to.
type Service interface {
	Register(ctx context.Context, email string, role models.Role) (*models.Account, error)
	Get(ctx context.Context, accountID id.AccountID) (*models.Account, error)
	List(ctx context.Context, statusFilter string) ([]*models.Account, error)
}

// Handler handles account endpoints.
type Handler struct {
	accounts  Service
	logger    *slog.Logger
	validator middleware.TokenValidator
}

func New(accounts Service, logger *slog.Logger, validator middleware.TokenValidator) *Handler {
	return &Handler{accounts: accounts, logger: logger, validator: validator}
}

// Register mounts the account routes. Registration is public; queries are
// admin-only.
func (h *Handler) Register(r chi.Router) {
	r.Post("/accounts", h.handleRegister)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin(h.validator, h.logger))
		r.Get("/accounts", h.handleList)
		r.Get("/accounts/{accountID}", h.handleGet)
	})
}

type registerRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	account, err := h.accounts.Register(ctx, req.Email, models.Role(req.Role))
	if err != nil {
		h.logger.WarnContext(ctx, "account registration failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, account)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	accountID, err := id.ParseAccountID(chi.URLParam(r, "accountID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	account, err := h.accounts.Get(r.Context(), accountID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, account)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accounts.List(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if accounts == nil {
		accounts = []*models.Account{}
	}
	httputil.WriteJSON(w, http.StatusOK, accounts)
}
