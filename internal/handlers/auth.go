package handlers

import (
	"net/http"

	"github.com/NotJohn04/commitkeeper/internal/middleware"
)

// AuthHandler exposes the authenticated user's identity
type AuthHandler struct{}

// NewAuthHandler creates a new auth handler
func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

// GetMe returns the current user from the verified token
func (h *AuthHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "No authenticated user on the request")
		return
	}
	writeJSON(w, http.StatusOK, user)
}
