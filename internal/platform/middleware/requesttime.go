package middleware

import (
	"net/http"
	"time"

	"hometrust/pkg/requestcontext"
)

// RequestTime captures the current time at the start of the request and stores
// it in the context. All writes within a single request then share one "now",
// keeping moderation log timestamps and record timestamps consistent.
func RequestTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
