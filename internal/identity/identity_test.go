package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mrcorrales01-hub/my-aura-sub004/internal/domain"
)

type mapResolver map[string]string

func (m mapResolver) UserIDForToken(_ context.Context, token string) (string, error) {
	return m[token], nil
}

func TestRequireToken(t *testing.T) {
	t.Parallel()

	if _, err := RequireToken(context.Background(), Static{}); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if _, err := RequireToken(context.Background(), nil); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated for nil provider, got %v", err)
	}
	token, err := RequireToken(context.Background(), Static{Token: "tok"})
	if err != nil || token != "tok" {
		t.Fatalf("unexpected result %q, %v", token, err)
	}
}

func TestEnvProviderReadsFreshValues(t *testing.T) {
	t.Setenv(EnvToken, "first")
	p := Env{}
	if got, _ := p.AuthToken(context.Background()); got != "first" {
		t.Fatalf("expected first, got %q", got)
	}
	t.Setenv(EnvToken, "refreshed")
	if got, _ := p.AuthToken(context.Background()); got != "refreshed" {
		t.Fatalf("expected refreshed token, got %q", got)
	}
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	var seen string
	h := Middleware(mapResolver{"good": "user-1"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"unknown token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer good", http.StatusNoContent},
		{"case insensitive scheme", "bearer good", http.StatusNoContent},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if w.Code != tt.status {
			t.Errorf("%s: expected status %d, got %d", tt.name, tt.status, w.Code)
		}
	}
	if seen != "user-1" {
		t.Fatalf("expected user-1 in context, got %q", seen)
	}
}

func TestFuncProvider(t *testing.T) {
	t.Parallel()

	boom := errors.New("keychain locked")
	p := Func(func(context.Context) (string, string, error) { return "", "", boom })
	if _, err := RequireToken(context.Background(), p); !errors.Is(err, boom) {
		t.Fatalf("expected provider error to propagate, got %v", err)
	}

	p = Func(func(context.Context) (string, string, error) { return "tok", "user-1", nil })
	if user, _ := p.UserID(context.Background()); user != "user-1" {
		t.Fatalf("unexpected user %q", user)
	}
}
