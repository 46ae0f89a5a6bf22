package handlers

import (
	"encoding/json"
	"net/http"
	"time"
)

// maxErrorDetail caps error messages returned to clients. Anything longer is
// almost certainly a wrapped internal error that should not leak.
const maxErrorDetail = 200

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON wraps a payload in the response envelope and sends it.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	envelope := map[string]any{
		"data":      payload,
		"served_at": time.Now().UTC().Format(time.RFC3339),
	}

	if err := json.NewEncoder(w).Encode(envelope); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// writeError sends an error envelope with a machine-readable code and a
// trimmed human-readable message.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	envelope := map[string]any{
		"error":     apiError{Code: code, Message: trimDetail(message)},
		"served_at": time.Now().UTC().Format(time.RFC3339),
	}

	if err := json.NewEncoder(w).Encode(envelope); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func trimDetail(message string) string {
	if len(message) > maxErrorDetail {
		return message[:maxErrorDetail] + "..."
	}
	return message
}
