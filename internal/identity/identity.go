// Package identity provides the identity-provider capability used by the chat clients and
// the bearer-token middleware used by the reference backend.
package identity

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mrcorrales01-hub/my-aura-sub004/internal/domain"
)

const (
	// EnvToken is read by Env on every call.
	EnvToken = "AURA_TOKEN"
	// EnvUserID is read by Env on every call.
	EnvUserID = "AURA_USER_ID"
)

// Provider exposes the caller's current credentials. An empty string with a nil error
// means the value is absent, which callers treat as a recoverable precondition.
//
// Implementations must not cache on behalf of the caller: clients ask on every request so a
// token refresh is picked up by the next exchange.
type Provider interface {
	AuthToken(ctx context.Context) (string, error)
	UserID(ctx context.Context) (string, error)
}

// Static is a Provider with fixed credentials.
type Static struct {
	Token string
	User  string
}

// AuthToken returns the configured token.
func (s Static) AuthToken(context.Context) (string, error) { return s.Token, nil }

// UserID returns the configured user id.
func (s Static) UserID(context.Context) (string, error) { return s.User, nil }

// Func adapts a token lookup function, e.g. a refreshing credential store, to Provider.
type Func func(ctx context.Context) (token, userID string, err error)

// AuthToken calls f and returns the token.
func (f Func) AuthToken(ctx context.Context) (string, error) {
	token, _, err := f(ctx)
	return token, err
}

// UserID calls f and returns the user id.
func (f Func) UserID(ctx context.Context) (string, error) {
	_, userID, err := f(ctx)
	return userID, err
}

// Env is a Provider backed by environment variables, looked up on every call.
type Env struct{}

// AuthToken returns the value of AURA_TOKEN.
func (Env) AuthToken(context.Context) (string, error) {
	return strings.TrimSpace(os.Getenv(EnvToken)), nil
}

// UserID returns the value of AURA_USER_ID.
func (Env) UserID(context.Context) (string, error) {
	return strings.TrimSpace(os.Getenv(EnvUserID)), nil
}

// RequireToken resolves a token from p, mapping absence to domain.ErrUnauthenticated.
func RequireToken(ctx context.Context, p Provider) (string, error) {
	if p == nil {
		return "", domain.ErrUnauthenticated
	}
	token, err := p.AuthToken(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve auth token: %w", err)
	}
	if token == "" {
		return "", domain.ErrUnauthenticated
	}
	return token, nil
}
