package middleware

import (
	"net/http"
	"strings"

	"github.com/NotJohn04/commitkeeper/internal/models"
	"github.com/NotJohn04/commitkeeper/internal/request"
	"github.com/NotJohn04/commitkeeper/internal/services/oidc"
	"go.uber.org/zap"
)

// Auth creates authentication middleware that validates JWT bearer tokens.
// The token subject is the user's identity; no account record is needed.
func Auth(verifier *oidc.Verifier, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeFailure(w, http.StatusUnauthorized, "unauthorized", "Missing Authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				writeFailure(w, http.StatusUnauthorized, "unauthorized", "Invalid Authorization header format")
				return
			}

			claims, err := verifier.Verify(r.Context(), parts[1])
			if err != nil {
				logger.Debug("token_verification_failed", zap.Error(err))
				writeFailure(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			user := &models.User{
				ID:    claims.Sub,
				Email: claims.Email,
				Name:  claims.Name,
			}

			ctx := request.WithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext extracts the user from the request context
func UserFromContext(r *http.Request) *models.User {
	return request.UserFromContext(r)
}
