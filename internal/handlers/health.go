package handlers

import (
	"net/http"
	"time"

	"github.com/NotJohn04/commitkeeper/internal/database"
	"github.com/NotJohn04/commitkeeper/internal/scheduler"
)

// HealthHandler reports service health
type HealthHandler struct {
	db    *database.DB
	sched scheduler.Scheduler
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *database.DB, sched scheduler.Scheduler) *HealthHandler {
	return &HealthHandler{db: db, sched: sched}
}

// HealthResponse is the health check payload
type HealthResponse struct {
	Status string            `json:"status"`
	Time   time.Time         `json:"time"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health responds with the service health status.
// With ?mode=extended it also probes the database and broker.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC(),
	}

	if r.URL.Query().Get("mode") == "extended" {
		resp.Checks = make(map[string]string)
		status := http.StatusOK

		if h.db != nil {
			if err := h.db.Ping(r.Context()); err != nil {
				resp.Checks["database"] = "unhealthy"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
			} else {
				resp.Checks["database"] = "ok"
			}
		}

		if h.sched != nil {
			if err := h.sched.HealthCheck(r.Context()); err != nil {
				resp.Checks["queue"] = "unhealthy"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
			} else {
				resp.Checks["queue"] = "ok"
			}
		}

		writeJSON(w, status, resp)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
