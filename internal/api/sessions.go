package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mrcorrales01-hub/my-aura-sub004/internal/domain"
	"github.com/mrcorrales01-hub/my-aura-sub004/internal/export"
	"github.com/mrcorrales01-hub/my-aura-sub004/internal/identity"
	"github.com/mrcorrales01-hub/my-aura-sub004/internal/sessions"
)

// SessionHandler serves the conversation-session collection of the authenticated user.
type SessionHandler struct {
	*Handler
}

// NewSessionHandler creates a session handler.
func NewSessionHandler(base *Handler) *SessionHandler {
	return &SessionHandler{Handler: base}
}

// RegisterRoutes registers session routes. Callers mount identity.Middleware first.
func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Delete("/", h.Delete)
		r.Get("/{sessionID}/export", h.Export)
	})
}

// List handles GET /sessions.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	limit := domain.MaxListedSessions
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, domain.MaxListedSessions)
	}

	list, err := h.repo.ListSessions(r.Context(), userID, limit)
	if err != nil {
		slog.Error("Failed to list sessions", "user_id", userID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	JSON(w, http.StatusOK, sessions.ListResponse{Sessions: list})
}

// Create handles POST /sessions.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var req sessions.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	lang, ok := NormalizeLang(req.Lang)
	if !ok {
		Error(w, http.StatusBadRequest, "lang must be a language code")
		return
	}

	sess := &domain.ConversationSession{
		ID:           uuid.NewString(),
		UserID:       userID,
		LanguageCode: lang,
		CreatedAt:    time.Now().UTC(),
	}
	if err := h.repo.CreateSession(r.Context(), sess); err != nil {
		slog.Error("Failed to create session", "user_id", userID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	slog.Info("Session created", "user_id", userID, "session_id", sess.ID, "lang", lang)
	JSON(w, http.StatusCreated, sess)
}

// Delete handles DELETE /sessions?session_id=....
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		Error(w, http.StatusBadRequest, "session_id is required")
		return
	}

	err := h.repo.DeleteSession(r.Context(), userID, sessionID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		Error(w, http.StatusNotFound, "session not found")
		return
	case errors.Is(err, domain.ErrForbidden):
		slog.Warn("Rejected delete of foreign session", "user_id", userID, "session_id", sessionID)
		Error(w, http.StatusForbidden, "session belongs to another user")
		return
	case err != nil:
		slog.Error("Failed to delete session", "user_id", userID, "session_id", sessionID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to delete session")
		return
	}

	slog.Info("Session deleted", "user_id", userID, "session_id", sessionID)
	w.WriteHeader(http.StatusNoContent)
}

// Export handles GET /sessions/{sessionID}/export and returns a plain-text transcript.
func (h *SessionHandler) Export(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	sess, err := h.repo.GetSession(r.Context(), sessionID)
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	if sess == nil {
		Error(w, http.StatusNotFound, "session not found")
		return
	}
	if !sess.OwnedBy(userID) {
		Error(w, http.StatusForbidden, "session belongs to another user")
		return
	}

	text, err := export.Transcript(r.Context(), h.repo, sessionID, time.UTC)
	if err != nil {
		slog.Error("Failed to export session", "session_id", sessionID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to export session")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="aura-`+sessionID+`.txt"`)
	_, _ = w.Write([]byte(text))
}
