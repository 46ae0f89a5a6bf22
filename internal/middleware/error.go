package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// failure mirrors the error envelope the handlers emit, so clients see one
// shape no matter which layer rejected the request.
type failure struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeFailure(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	envelope := map[string]any{
		"error":     failure{Code: code, Message: message},
		"served_at": time.Now().UTC().Format(time.RFC3339),
	}
	_ = json.NewEncoder(w).Encode(envelope)
}

// Recovery converts handler panics into a JSON 500 so one bad request cannot
// take the process down. The panic value stays in the server log.
func Recovery(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("handler_panic",
						zap.Any("panic", rec),
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path),
						zap.Stack("stack"),
					)
					writeFailure(w, http.StatusInternalServerError, "internal", "The server hit an unexpected error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
