package middleware

import (
	"context"
	"net/http"
	"time"
)

// DefaultHandlerTimeout bounds a single request. Conversation turns and
// lookups finish in well under a second; a slow request is stuck on the
// database or the broker.
const DefaultHandlerTimeout = 15 * time.Second

// Deadline enforces a per-request timeout. The request context carries the
// deadline down to the database and broker calls, and http.TimeoutHandler
// closes the response if the handler overruns anyway.
func Deadline(d time.Duration) func(http.Handler) http.Handler {
	if d <= 0 {
		d = DefaultHandlerTimeout
	}

	return func(next http.Handler) http.Handler {
		timed := http.TimeoutHandler(next, d, `{"error":{"code":"timeout","message":"Request took too long"}}`)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			timed.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
