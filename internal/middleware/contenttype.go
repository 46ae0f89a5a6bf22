package middleware

import (
	"net/http"
	"strings"
)

// RequireJSON rejects body-carrying requests that do not declare a JSON
// Content-Type. The API only speaks JSON; anything else is a client bug
// caught before a handler tries to decode it.
func RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			ct := r.Header.Get("Content-Type")
			if ct == "" {
				writeFailure(w, http.StatusBadRequest, "bad_request", "Content-Type header is required")
				return
			}
			if !strings.HasPrefix(strings.ToLower(ct), "application/json") {
				writeFailure(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "Content-Type must be application/json")
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}
