package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/mrcorrales01-hub/my-aura-sub004/internal/api"
	"github.com/mrcorrales01-hub/my-aura-sub004/internal/chat"
	"github.com/mrcorrales01-hub/my-aura-sub004/internal/config"
	"github.com/mrcorrales01-hub/my-aura-sub004/internal/domain"
	"github.com/mrcorrales01-hub/my-aura-sub004/internal/identity"
	"github.com/mrcorrales01-hub/my-aura-sub004/internal/store"
	"github.com/mrcorrales01-hub/my-aura-sub004/internal/stream"
)

// defaultMaxRequestBodySize is the default maximum allowed request body size (1MB).
const defaultMaxRequestBodySize = 1 << 20 // 1MB

const defaultLang = "sv"

// RateLimiter implements a per-user rate limiter.
// The key is userID only, so clients cannot bypass throttling by rotating session IDs.
type RateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	done     chan struct{}
	once     sync.Once
}

// NewRateLimiter creates a new rate limiter and starts the background eviction goroutine.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		done:     make(chan struct{}),
	}
	go rl.evictLoop()
	return rl
}

// Allow checks if a request is allowed for the given key.
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	recent := r.fresh(r.requests[key], now)
	if len(recent) >= r.limit {
		r.requests[key] = recent
		return false
	}
	r.requests[key] = append(recent, now)
	return true
}

// Close stops the eviction goroutine.
func (r *RateLimiter) Close() {
	r.once.Do(func() { close(r.done) })
}

func (r *RateLimiter) fresh(times []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-r.window)
	var out []time.Time
	for _, t := range times {
		if t.After(cutoff) {
			out = append(out, t)
		}
	}
	return out
}

// evictLoop periodically drops idle keys so the map does not grow without bound.
func (r *RateLimiter) evictLoop() {
	ticker := time.NewTicker(r.window)
	defer ticker.Stop()
	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			r.mu.Lock()
			now := time.Now()
			for key, times := range r.requests {
				if fresh := r.fresh(times, now); len(fresh) == 0 {
					delete(r.requests, key)
				} else {
					r.requests[key] = fresh
				}
			}
			r.mu.Unlock()
		}
	}
}

// Handler serves POST /chat.
type Handler struct {
	agent       *Service
	repo        store.Repository
	rateLimiter *RateLimiter
	log         ConversationLogger
	timeout     time.Duration
	keepalive   time.Duration
	maxBody     int64
}

// NewHandler creates a chat handler. A nil conversation logger disables conversation logs.
func NewHandler(svc *Service, repo store.Repository, conversationLogger ConversationLogger, cfg *config.Config) *Handler {
	if conversationLogger == nil {
		conversationLogger = noopConversationLogger{}
	}

	rateLimitRequests := 20
	rateLimitWindow := time.Minute
	h := &Handler{
		agent:     svc,
		repo:      repo,
		log:       conversationLogger,
		timeout:   25 * time.Second,
		keepalive: 10 * time.Second,
		maxBody:   defaultMaxRequestBodySize,
	}
	if cfg != nil {
		rateLimitRequests = cfg.RateLimit.RequestsPerWindow
		rateLimitWindow = cfg.RateLimit.WindowDuration
		h.timeout = cfg.ChatTimeout
		h.keepalive = cfg.SSE.KeepaliveInterval
		h.maxBody = cfg.SSE.MaxRequestBodySize
	}
	h.rateLimiter = NewRateLimiter(rateLimitRequests, rateLimitWindow)
	return h
}

// RegisterRoutes registers chat routes. Callers mount identity.Middleware first.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.HandleChat)
}

// Close releases handler resources.
func (h *Handler) Close() {
	h.rateLimiter.Close()
	if err := h.log.Close(); err != nil {
		slog.Warn("failed to close conversation logger", "error", err)
	}
}

// HandleChat handles POST /chat: it records the user message, streams the reply as chunks
// and records the finished reply.
//
//nolint:gocyclo // Validation and streaming branches are kept inline to preserve request flow.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if !h.rateLimiter.Allow(userID) {
		api.Error(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	var req chat.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	userText, err := validateMessages(req.Messages)
	if err != nil {
		api.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	lang, ok := api.NormalizeLang(req.Lang)
	if !ok {
		lang = defaultLang
	}

	sess, status, err := h.resolveSession(r.Context(), userID, req.SessionID, lang)
	if err != nil {
		api.Error(w, status, err.Error())
		return
	}
	created := req.SessionID == ""
	reqID := chiMiddleware.GetReqID(r.Context())

	slog.Info("Chat request",
		"user_id", userID,
		"session_id", sess.ID,
		"new_session", created,
		"message_count", len(req.Messages),
		"lang", lang,
	)
	h.record(r.Context(), sess.ID, domain.RoleUser, userText)
	h.log.Log(ConversationLogEvent{
		UserID:     userID,
		SessionID:  sess.ID,
		Channel:    "chat_http",
		Direction:  "outbound",
		EventType:  "chat_user_message",
		ContentRaw: userText,
		Meta:       map[string]any{"request_id": reqID},
	})

	if h.agent.DemoMode() {
		w.Header().Set(chat.DemoModeHeader, "true")
	}
	sw, err := stream.NewWriter(w)
	if err != nil {
		api.Error(w, http.StatusInternalServerError, "streaming not supported")
		return
	}
	if created {
		if err := sw.Send(stream.Session(sess.ID)); err != nil {
			slog.Warn("failed to write session chunk", "error", err, "session_id", sess.ID)
			return
		}
	}

	reply, streamErr := h.streamReply(r.Context(), sw, req.Messages, lang)
	partial := streamErr != nil
	h.log.Log(ConversationLogEvent{
		UserID:     userID,
		SessionID:  sess.ID,
		Channel:    "chat_http",
		Direction:  "inbound",
		EventType:  "chat_assistant_message",
		ContentRaw: reply,
		Meta: map[string]any{
			"partial":      partial,
			"stream_error": errString(streamErr),
			"request_id":   reqID,
			"demo_mode":    h.agent.DemoMode(),
		},
	})

	if partial {
		if r.Context().Err() != nil {
			slog.Info("Chat client disconnected", "user_id", userID, "session_id", sess.ID)
			return
		}
		slog.Error("Chat stream failed", "error", streamErr, "user_id", userID, "session_id", sess.ID)
		msg := "the assistant is unavailable right now"
		if errors.Is(streamErr, domain.ErrTimeout) {
			msg = "the assistant took too long to answer"
		}
		if err := sw.Send(stream.Failure(msg)); err != nil {
			slog.Warn("failed to write error chunk", "error", err)
		}
		return
	}

	h.record(r.Context(), sess.ID, domain.RoleAssistant, reply)
	if err := sw.Send(stream.Done(sess.ID)); err != nil {
		slog.Warn("failed to write done chunk", "error", err)
		return
	}
	if err := sw.Close(); err != nil {
		slog.Warn("failed to write stream sentinel", "error", err)
	}
}

// streamReply forwards responder output as token chunks until the reply ends, the budget
// runs out or the client leaves. It returns the text streamed so far.
func (h *Handler) streamReply(ctx context.Context, sw *stream.Writer, history []domain.ChatMessage, lang string) (string, error) {
	ctx, cancel := context.WithTimeoutCause(ctx, h.timeout, domain.ErrTimeout)
	defer cancel()

	type piece struct {
		text string
		err  error
	}
	pieces := make(chan piece)
	go func() {
		defer close(pieces)
		for text, err := range h.agent.Reply(ctx, history, lang) {
			select {
			case pieces <- piece{text: text, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()
	defer func() {
		cancel()
		for range pieces {
		}
	}()

	keepalive := time.NewTicker(h.keepalive)
	defer keepalive.Stop()

	var reply strings.Builder
	for {
		select {
		case p, ok := <-pieces:
			if !ok {
				if ctx.Err() != nil {
					return reply.String(), context.Cause(ctx)
				}
				return reply.String(), nil
			}
			if p.err != nil {
				return reply.String(), p.err
			}
			if p.text == "" {
				continue
			}
			reply.WriteString(p.text)
			if err := sw.Send(stream.Token(p.text)); err != nil {
				return reply.String(), fmt.Errorf("write token: %w", err)
			}
		case <-keepalive.C:
			if err := sw.Ping(); err != nil {
				return reply.String(), fmt.Errorf("write keepalive: %w", err)
			}
		case <-ctx.Done():
			return reply.String(), context.Cause(ctx)
		}
	}
}

// resolveSession loads the caller's session or creates one when id is empty.
func (h *Handler) resolveSession(ctx context.Context, userID, id, lang string) (*domain.ConversationSession, int, error) {
	if id == "" {
		sess := &domain.ConversationSession{
			ID:           uuid.NewString(),
			UserID:       userID,
			LanguageCode: lang,
			CreatedAt:    time.Now().UTC(),
		}
		if err := h.repo.CreateSession(ctx, sess); err != nil {
			slog.Error("Failed to create session", "user_id", userID, "error", err)
			return nil, http.StatusInternalServerError, errors.New("failed to create session")
		}
		return sess, 0, nil
	}

	sess, err := h.repo.GetSession(ctx, id)
	switch {
	case err != nil:
		slog.Error("Failed to load session", "session_id", id, "error", err)
		return nil, http.StatusInternalServerError, errors.New("failed to load session")
	case sess == nil:
		return nil, http.StatusNotFound, errors.New("session not found")
	case !sess.OwnedBy(userID):
		return nil, http.StatusForbidden, errors.New("session belongs to another user")
	}
	return sess, 0, nil
}

func (h *Handler) record(ctx context.Context, sessionID string, role domain.Role, content string) {
	msg := &domain.StoredMessage{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.repo.AppendMessage(context.WithoutCancel(ctx), msg); err != nil {
		slog.Error("Failed to store message", "session_id", sessionID, "role", role, "error", err)
	}
}

func validateMessages(msgs []domain.ChatMessage) (string, error) {
	if len(msgs) == 0 {
		return "", errors.New("messages are required")
	}
	for _, m := range msgs {
		if !m.Role.Valid() {
			return "", fmt.Errorf("invalid role %q", m.Role)
		}
	}
	last := msgs[len(msgs)-1]
	if last.Role != domain.RoleUser || strings.TrimSpace(last.Content) == "" {
		return "", errors.New("last message must be a non-empty user message")
	}
	return last.Content, nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
