package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	jwttoken "hometrust/internal/jwt_token"
	id "hometrust/pkg/domain"
	"hometrust/pkg/requestcontext"
)

// TokenValidator validates bearer tokens. Satisfied by *jwttoken.Service.
type TokenValidator interface {
	ValidateToken(tokenString string) (*jwttoken.Claims, error)
}

const adminRole = "admin"

// RequireAccount authenticates any account-holder and stores the account ID in
// the request context.
func RequireAccount(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := authenticate(w, r, validator, logger)
			if !ok {
				return
			}
			accountID, err := id.ParseAccountID(claims.AccountID)
			if err != nil {
				unauthorized(w, "invalid token subject")
				return
			}
			ctx := requestcontext.WithAccountID(r.Context(), accountID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin authenticates the caller and requires the admin role. The
// acting admin's ID is stored in the context for moderation log attribution.
func RequireAdmin(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := authenticate(w, r, validator, logger)
			if !ok {
				return
			}
			if claims.Role != adminRole {
				ctx := r.Context()
				logger.WarnContext(ctx, "non-admin caller on admin endpoint",
					"request_id", GetRequestID(ctx),
					"role", claims.Role,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"forbidden","error_description":"admin role required"}`))
				return
			}
			adminID, err := id.ParseAccountID(claims.AccountID)
			if err != nil {
				unauthorized(w, "invalid token subject")
				return
			}
			ctx := requestcontext.WithAdminID(r.Context(), adminID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(w http.ResponseWriter, r *http.Request, validator TokenValidator, logger *slog.Logger) (*jwttoken.Claims, bool) {
	authHeader := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok || token == "" {
		unauthorized(w, "bearer token required")
		return nil, false
	}
	claims, err := validator.ValidateToken(token)
	if err != nil {
		ctx := r.Context()
		logger.WarnContext(ctx, "unauthorized access - invalid token",
			"error", err,
			"request_id", GetRequestID(ctx),
		)
		unauthorized(w, "invalid or expired token")
		return nil, false
	}
	return claims, true
}

func unauthorized(w http.ResponseWriter, desc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + desc + `"}`))
}
