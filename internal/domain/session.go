package domain

import (
	"time"
)

// MaxListedSessions caps how many sessions a single list call returns.
const MaxListedSessions = 50

// ConversationSession is a persisted, ordered container of exchanges owned by one user.
type ConversationSession struct {
	ID           string    `json:"id"`
	UserID       string    `json:"-"`
	LanguageCode string    `json:"language_code"`
	CreatedAt    time.Time `json:"created_at"`
	MessageCount int       `json:"message_count"`
}

// OwnedBy reports whether the session belongs to userID.
func (s *ConversationSession) OwnedBy(userID string) bool {
	return s != nil && userID != "" && s.UserID == userID
}
