// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/mrcorrales01-hub/my-aura-sub004/internal/domain"
)

// Repository defines the persistence needed by the chat backend.
type Repository interface {
	// UpsertUser creates a user record if it does not exist.
	UpsertUser(ctx context.Context, user *domain.User) error

	// UpsertToken binds a bearer token to a user, replacing any previous binding.
	UpsertToken(ctx context.Context, token, userID string) error

	// UserIDForToken resolves a bearer token. Unknown tokens return "" and no error.
	UserIDForToken(ctx context.Context, token string) (string, error)

	// CreateSession persists a new conversation session.
	CreateSession(ctx context.Context, session *domain.ConversationSession) error

	// GetSession retrieves a session by ID. Missing sessions return nil and no error.
	GetSession(ctx context.Context, sessionID string) (*domain.ConversationSession, error)

	// ListSessions returns the user's sessions, newest first, at most limit.
	ListSessions(ctx context.Context, userID string, limit int) ([]domain.ConversationSession, error)

	// DeleteSession removes a session owned by userID together with its messages.
	// It returns domain.ErrNotFound or domain.ErrForbidden without changing anything
	// when the session is missing or owned by someone else.
	DeleteSession(ctx context.Context, userID, sessionID string) error

	// DeleteSessionsBefore removes every session created before cutoff together with its
	// messages and returns how many sessions were removed.
	DeleteSessionsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// AppendMessage stores a message and bumps the session's message count.
	AppendMessage(ctx context.Context, msg *domain.StoredMessage) error

	// ListMessages returns a session's messages ordered by creation time.
	ListMessages(ctx context.Context, sessionID string) ([]domain.StoredMessage, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
