package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/NotJohn04/commitkeeper/internal/database"
	"github.com/NotJohn04/commitkeeper/internal/dialogue"
	"github.com/NotJohn04/commitkeeper/internal/lifecycle"
	"github.com/NotJohn04/commitkeeper/internal/middleware"
	"github.com/NotJohn04/commitkeeper/internal/models"
	"github.com/NotJohn04/commitkeeper/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// CommitmentHandler handles commitment-related requests
type CommitmentHandler struct {
	dialogue *dialogue.Manager
	engine   *lifecycle.Engine
	repo     database.CommitmentRepositoryInterface
	loc      *time.Location
}

// NewCommitmentHandler creates a new commitment handler
func NewCommitmentHandler(dlg *dialogue.Manager, engine *lifecycle.Engine, repo database.CommitmentRepositoryInterface, loc *time.Location) *CommitmentHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &CommitmentHandler{dialogue: dlg, engine: engine, repo: repo, loc: loc}
}

// RegisterRoutes registers commitment routes on the given router
// The router should already have the /commitments prefix
func (h *CommitmentHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.CreateRequest).Methods("POST")
	r.HandleFunc("/reply", h.Reply).Methods("POST")
	r.HandleFunc("/today", h.ListToday).Methods("GET")
	r.HandleFunc("/pending", h.ListPending).Methods("GET")
	r.HandleFunc("/{id}", h.Get).Methods("GET")
	r.HandleFunc("/{id}/outcome", h.Outcome).Methods("POST")
}

// CreateRequestBody is a new scheduling request in free text or the
// structured pipe form
type CreateRequestBody struct {
	Text string `json:"text" validate:"required,min=1,max=2000"`
	Kind string `json:"kind" validate:"required,commitment_kind"`
}

// CreateRequest starts the confirmation dialogue for a new request
func (h *CommitmentHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "No authenticated user on the request")
		return
	}

	var body CreateRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Body is not valid JSON")
		return
	}
	body.Text = validation.SanitizeText(body.Text)
	if err := validation.Validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	outcome, err := h.dialogue.Begin(r.Context(), user.ID, models.Kind(body.Kind), body.Text)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "Failed to process request")
		return
	}

	writeJSON(w, http.StatusOK, outcome)
}

// ReplyBody is the user's answer in a confirmation exchange
type ReplyBody struct {
	Text string `json:"text" validate:"required,min=1,max=2000"`
}

// Reply feeds the user's answer to the outstanding draft
func (h *CommitmentHandler) Reply(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "No authenticated user on the request")
		return
	}

	var body ReplyBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Body is not valid JSON")
		return
	}
	body.Text = validation.SanitizeText(body.Text)
	if err := validation.Validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	outcome, err := h.dialogue.Reply(r.Context(), user.ID, body.Text)
	if err != nil {
		if errors.Is(err, lifecycle.ErrScheduledInPast) {
			writeError(w, http.StatusUnprocessableEntity, "unprocessable", "That deadline has already passed")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", "Failed to process reply")
		return
	}

	status := http.StatusOK
	if outcome.Created != nil {
		status = http.StatusCreated
	}
	writeJSON(w, status, outcome)
}

// OutcomeBody is a resolution for a pending commitment
type OutcomeBody struct {
	Status string `json:"status" validate:"required,terminal_status"`
}

// Outcome resolves a commitment to a terminal status
func (h *CommitmentHandler) Outcome(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "No authenticated user on the request")
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Commitment ID must be a UUID")
		return
	}

	var body OutcomeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Body is not valid JSON")
		return
	}
	if err := validation.Validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	// Ownership check before the status change
	existing, err := h.repo.GetByID(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "Commitment not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "Failed to load commitment")
		return
	}
	if existing.UserID != user.ID {
		writeError(w, http.StatusNotFound, "not_found", "Commitment not found")
		return
	}

	resolved, err := h.engine.Resolve(r.Context(), id, models.Status(body.Status))
	switch {
	case errors.Is(err, lifecycle.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "Commitment not found")
		return
	case errors.Is(err, lifecycle.ErrAlreadyResolved):
		writeError(w, http.StatusConflict, "conflict", "Commitment was already resolved")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal", "Failed to resolve commitment")
		return
	}

	writeJSON(w, http.StatusOK, resolved)
}

// Get returns one commitment owned by the caller
func (h *CommitmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "No authenticated user on the request")
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Commitment ID must be a UUID")
		return
	}

	c, err := h.repo.GetByID(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "Commitment not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "Failed to load commitment")
		return
	}
	if c.UserID != user.ID {
		writeError(w, http.StatusNotFound, "not_found", "Commitment not found")
		return
	}

	writeJSON(w, http.StatusOK, c)
}

// ListToday returns the caller's commitments scheduled for the current day
// in the service timezone
func (h *CommitmentHandler) ListToday(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "No authenticated user on the request")
		return
	}

	kind := r.URL.Query().Get("kind")
	if kind != "" {
		if err := validation.ValidateKind(kind); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
	}

	now := time.Now().In(h.loc)
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, h.loc)
	to := from.AddDate(0, 0, 1)

	commitments, err := h.repo.ListByUserBetween(r.Context(), user.ID, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "Failed to list commitments")
		return
	}

	if kind != "" {
		filtered := commitments[:0]
		for _, c := range commitments {
			if c.Kind == models.Kind(kind) {
				filtered = append(filtered, c)
			}
		}
		commitments = filtered
	}

	writeJSON(w, http.StatusOK, commitments)
}

// ListPending returns the caller's unresolved commitments
func (h *CommitmentHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "No authenticated user on the request")
		return
	}

	commitments, err := h.repo.ListPendingByUser(r.Context(), user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "Failed to list commitments")
		return
	}

	writeJSON(w, http.StatusOK, commitments)
}
