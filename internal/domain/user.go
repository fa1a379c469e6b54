// Package domain contains core domain types for the Aura conversation engine.
package domain

import (
	"time"
)

// User represents an account known to the chat backend.
type User struct {
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// APIToken binds a bearer token to the user it authenticates.
type APIToken struct {
	Token     string
	UserID    string
	CreatedAt time.Time
}
