// Package http assembles the service router from the per-feature handlers.
package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	accounthandler "hometrust/internal/account/handler"
	claimhandler "hometrust/internal/claim/handler"
	listinghandler "hometrust/internal/listing/handler"
	moderationhandler "hometrust/internal/moderation/handler"
	"hometrust/internal/platform/middleware"
)

// Feature is the common shape of the per-feature handlers.
type Feature interface {
	Register(r chi.Router)
}

// NewRouter builds the full HTTP surface: platform middleware, health and
// metrics endpoints, then every feature's routes.
func NewRouter(
	logger *slog.Logger,
	accounts *accounthandler.Handler,
	claims *claimhandler.Handler,
	listings *listinghandler.Handler,
	moderation *moderationhandler.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	for _, feature := range []Feature{accounts, claims, listings, moderation} {
		feature.Register(r)
	}
	return r
}
