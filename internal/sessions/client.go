// Package sessions is the client for the persisted conversation-session collection of the
// authenticated caller.
package sessions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/mrcorrales01-hub/my-aura-sub004/internal/domain"
	"github.com/mrcorrales01-hub/my-aura-sub004/internal/identity"
)

// ListResponse is the JSON body of GET /sessions.
type ListResponse struct {
	Sessions []domain.ConversationSession `json:"sessions"`
}

// CreateRequest is the JSON body of POST /sessions.
type CreateRequest struct {
	Lang string `json:"lang"`
}

// Client marshals session operations to the backend. Ownership is enforced server-side;
// backend error messages are surfaced verbatim through *domain.TransportError.
type Client struct {
	baseURL  string
	client   *http.Client
	identity identity.Provider
	logger   *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.client = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// NewClient creates a session client for the backend at baseURL.
func NewClient(baseURL string, provider identity.Provider, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   http.DefaultClient,
		identity: provider,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// List returns the caller's sessions, newest first, at most domain.MaxListedSessions.
func (c *Client) List(ctx context.Context) ([]domain.ConversationSession, error) {
	q := url.Values{"limit": {strconv.Itoa(domain.MaxListedSessions)}}
	var out ListResponse
	if err := c.do(ctx, http.MethodGet, "/sessions?"+q.Encode(), nil, &out); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	list := out.Sessions
	slices.SortStableFunc(list, func(a, b domain.ConversationSession) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if len(list) > domain.MaxListedSessions {
		list = list[:domain.MaxListedSessions]
	}
	return list, nil
}

// Create starts a new session in the given language.
func (c *Client) Create(ctx context.Context, lang string) (*domain.ConversationSession, error) {
	var sess domain.ConversationSession
	if err := c.do(ctx, http.MethodPost, "/sessions", CreateRequest{Lang: lang}, &sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	c.logger.Info("Session created", "session_id", sess.ID, "lang", sess.LanguageCode)
	return &sess, nil
}

// Delete removes a session and, through the backend, its messages. Deleting a session owned
// by someone else fails with an error matching domain.ErrForbidden.
func (c *Client) Delete(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("delete session: empty session id")
	}
	q := url.Values{"session_id": {sessionID}}
	if err := c.do(ctx, http.MethodDelete, "/sessions?"+q.Encode(), nil, nil); err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	c.logger.Info("Session deleted", "session_id", sessionID)
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	token, err := identity.RequireToken(ctx, c.identity)
	if err != nil {
		return err
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &domain.TransportError{Err: err}
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("failed to close response body", "error", closeErr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.ErrorFromResponse(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.TransportError{Status: resp.StatusCode, Message: "invalid response body", Err: err}
	}
	return nil
}
