package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/NotJohn04/commitkeeper/internal/database"
	"github.com/NotJohn04/commitkeeper/internal/middleware"
	"github.com/NotJohn04/commitkeeper/internal/models"
	"github.com/NotJohn04/commitkeeper/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// HabitHandler handles habit definition requests
type HabitHandler struct {
	repo database.HabitRepositoryInterface
}

// NewHabitHandler creates a new habit handler
func NewHabitHandler(repo database.HabitRepositoryInterface) *HabitHandler {
	return &HabitHandler{repo: repo}
}

// RegisterRoutes registers habit routes on the given router
// The router should already have the /habits prefix
func (h *HabitHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.Create).Methods("POST")
	r.HandleFunc("", h.List).Methods("GET")
	r.HandleFunc("/{id}", h.Delete).Methods("DELETE")
}

// CreateHabitBody is a new recurring commitment definition
type CreateHabitBody struct {
	Description     string `json:"description" validate:"required,min=1,max=500"`
	Frequency       string `json:"frequency" validate:"required,habit_frequency"`
	TimeOfDay       string `json:"time_of_day" validate:"required,time_of_day"`
	DurationMinutes int    `json:"duration_minutes" validate:"omitempty,min=1,max=1440"`
}

// Create registers a new habit for the caller
func (h *HabitHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "No authenticated user on the request")
		return
	}

	var body CreateHabitBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Body is not valid JSON")
		return
	}
	body.Description = validation.SanitizeText(body.Description)
	if err := validation.Validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if body.DurationMinutes == 0 {
		body.DurationMinutes = models.DefaultDurationMinutes
	}

	habit := &models.Habit{
		ID:              uuid.New(),
		UserID:          user.ID,
		Description:     body.Description,
		Frequency:       body.Frequency,
		TimeOfDay:       body.TimeOfDay,
		DurationMinutes: body.DurationMinutes,
	}

	if err := h.repo.Create(r.Context(), habit); err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "Failed to create habit")
		return
	}

	writeJSON(w, http.StatusCreated, habit)
}

// List returns the caller's habits
func (h *HabitHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "No authenticated user on the request")
		return
	}

	habits, err := h.repo.ListByUser(r.Context(), user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "Failed to list habits")
		return
	}

	writeJSON(w, http.StatusOK, habits)
}

// Delete removes a habit owned by the caller. Commitments already
// materialized from it keep running on their own schedule.
func (h *HabitHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "No authenticated user on the request")
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Habit ID must be a UUID")
		return
	}

	habit, err := h.repo.GetByID(r.Context(), id)
	if errors.Is(err, database.ErrHabitNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "Habit not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "Failed to load habit")
		return
	}
	if habit.UserID != user.ID {
		writeError(w, http.StatusNotFound, "not_found", "Habit not found")
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrHabitNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Habit not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", "Failed to delete habit")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
