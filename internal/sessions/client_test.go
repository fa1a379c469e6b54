package sessions_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrcorrales01-hub/my-aura-sub004/internal/api"
	"github.com/mrcorrales01-hub/my-aura-sub004/internal/domain"
	"github.com/mrcorrales01-hub/my-aura-sub004/internal/identity"
	"github.com/mrcorrales01-hub/my-aura-sub004/internal/sessions"
	"github.com/mrcorrales01-hub/my-aura-sub004/internal/store"
)

type backend struct {
	srv  *httptest.Server
	repo *store.SQLiteStore
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "aura.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	ctx := context.Background()
	require.NoError(t, repo.UpsertToken(ctx, "tok-alice", "alice"))
	require.NoError(t, repo.UpsertToken(ctx, "tok-bob", "bob"))

	r := chi.NewRouter()
	r.Use(identity.Middleware(repo))
	api.NewSessionHandler(api.NewHandler(repo)).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &backend{srv: srv, repo: repo}
}

func (b *backend) client(token string) *sessions.Client {
	return sessions.NewClient(b.srv.URL, identity.Static{Token: token},
		sessions.WithHTTPClient(b.srv.Client()))
}

func TestCreateListDelete(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()
	c := b.client("tok-alice")

	first, err := c.Create(ctx, "sv")
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, "sv", first.LanguageCode)
	assert.Zero(t, first.MessageCount)

	time.Sleep(5 * time.Millisecond)
	second, err := c.Create(ctx, "en")
	require.NoError(t, err)

	list, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "newest first")
	assert.Equal(t, first.ID, list[1].ID)

	require.NoError(t, c.Delete(ctx, first.ID))
	list, err = c.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, second.ID, list[0].ID)
}

func TestListIsCapped(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range domain.MaxListedSessions + 5 {
		require.NoError(t, b.repo.CreateSession(ctx, &domain.ConversationSession{
			ID:           fmt.Sprintf("s-%02d", i),
			UserID:       "alice",
			LanguageCode: "sv",
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}))
	}

	list, err := b.client("tok-alice").List(ctx)
	require.NoError(t, err)
	require.Len(t, list, domain.MaxListedSessions)
	assert.Equal(t, fmt.Sprintf("s-%02d", domain.MaxListedSessions+4), list[0].ID)
	for i := 1; i < len(list); i++ {
		assert.False(t, list[i].CreatedAt.After(list[i-1].CreatedAt), "list must be newest first")
	}
}

func TestDeleteForeignSession(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()

	owned, err := b.client("tok-alice").Create(ctx, "sv")
	require.NoError(t, err)

	err = b.client("tok-bob").Delete(ctx, owned.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	var te *domain.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusForbidden, te.Status)
	assert.Equal(t, "session belongs to another user", te.Message)
	assert.False(t, domain.IsRetryable(err))

	list, err := b.client("tok-alice").List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1, "collection must be unchanged")
	assert.Equal(t, owned.ID, list[0].ID)
}

func TestDeleteMissingSession(t *testing.T) {
	b := newBackend(t)

	err := b.client("tok-alice").Delete(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUnauthenticatedNeverReachesBackend(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := sessions.NewClient(srv.URL, identity.Static{}, sessions.WithHTTPClient(srv.Client()))
	ctx := context.Background()

	_, err := c.List(ctx)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	_, err = c.Create(ctx, "sv")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	err = c.Delete(ctx, "s-1")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	assert.Zero(t, hits)
}

func TestRejectedToken(t *testing.T) {
	b := newBackend(t)

	_, err := b.client("forged").List(context.Background())
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestDeleteRequiresID(t *testing.T) {
	b := newBackend(t)

	err := b.client("tok-alice").Delete(context.Background(), "  ")
	assert.Error(t, err)
}
