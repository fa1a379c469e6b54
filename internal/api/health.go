package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// Pinger reports backend storage health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports readiness of the backend.
type HealthHandler struct {
	db       Pinger
	demoMode bool
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(db Pinger, demoMode bool) *HealthHandler {
	return &HealthHandler{db: db, demoMode: demoMode}
}

// RegisterHealth registers GET /healthz.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/healthz", h.Health)
}

// Health pings the database and reports whether chat runs in demo mode.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		JSON(w, http.StatusServiceUnavailable, map[string]interface{}{"status": "unavailable", "error": err.Error()})
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "demo_mode": h.demoMode})
}
