package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/mrcorrales01-hub/my-aura-sub004/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "aura.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func createSession(t *testing.T, s *SQLiteStore, id, userID string, createdAt time.Time) {
	t.Helper()
	err := s.CreateSession(context.Background(), &domain.ConversationSession{
		ID:           id,
		UserID:       userID,
		LanguageCode: "sv",
		CreatedAt:    createdAt,
	})
	if err != nil {
		t.Fatalf("CreateSession(%s) failed: %v", id, err)
	}
}

func TestTokens(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertToken(ctx, "tok", "alice"); err != nil {
		t.Fatalf("UpsertToken failed: %v", err)
	}
	got, err := s.UserIDForToken(ctx, "tok")
	if err != nil || got != "alice" {
		t.Fatalf("expected alice, got %q (%v)", got, err)
	}
	got, err = s.UserIDForToken(ctx, "unknown")
	if err != nil || got != "" {
		t.Fatalf("expected empty user for unknown token, got %q (%v)", got, err)
	}
}

func TestListSessionsNewestFirstAndCapped(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

	for i := 0; i < domain.MaxListedSessions+5; i++ {
		createSession(t, s, fmt.Sprintf("s-%02d", i), "alice", base.Add(time.Duration(i)*time.Minute))
	}
	createSession(t, s, "bob-1", "bob", base.Add(24*time.Hour))

	list, err := s.ListSessions(context.Background(), "alice", 0)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(list) != domain.MaxListedSessions {
		t.Fatalf("expected %d sessions, got %d", domain.MaxListedSessions, len(list))
	}
	if list[0].ID != "s-54" {
		t.Fatalf("expected newest session first, got %s", list[0].ID)
	}
	for i := 1; i < len(list); i++ {
		if list[i].CreatedAt.After(list[i-1].CreatedAt) {
			t.Fatalf("sessions not ordered newest first at %d", i)
		}
		if list[i].UserID != "alice" {
			t.Fatalf("foreign session leaked into list: %+v", list[i])
		}
	}
}

func TestDeleteSessionOwnership(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()
	createSession(t, s, "s-1", "alice", time.Now())
	if err := s.AppendMessage(ctx, &domain.StoredMessage{ID: "m-1", SessionID: "s-1", Role: domain.RoleUser, Content: "hej"}); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	if err := s.DeleteSession(ctx, "mallory", "s-1"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if sess, _ := s.GetSession(ctx, "s-1"); sess == nil {
		t.Fatal("session must survive a foreign delete")
	}
	if msgs, _ := s.ListMessages(ctx, "s-1"); len(msgs) != 1 {
		t.Fatalf("messages must survive a foreign delete, got %d", len(msgs))
	}

	if err := s.DeleteSession(ctx, "alice", "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.DeleteSession(ctx, "alice", "s-1"); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	if sess, _ := s.GetSession(ctx, "s-1"); sess != nil {
		t.Fatal("session should be gone")
	}
	if msgs, _ := s.ListMessages(ctx, "s-1"); len(msgs) != 0 {
		t.Fatalf("messages should be gone, got %d", len(msgs))
	}
}

func TestAppendMessageOrderingAndCount(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()
	createSession(t, s, "s-1", "alice", time.Now())

	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	msgs := []domain.StoredMessage{
		{ID: "m-2", SessionID: "s-1", Role: domain.RoleAssistant, Content: "second", CreatedAt: at.Add(time.Second)},
		{ID: "m-1", SessionID: "s-1", Role: domain.RoleUser, Content: "first", CreatedAt: at},
	}
	for i := range msgs {
		if err := s.AppendMessage(ctx, &msgs[i]); err != nil {
			t.Fatalf("AppendMessage failed: %v", err)
		}
	}

	got, err := s.ListMessages(ctx, "s-1")
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(got) != 2 || got[0].Content != "first" || got[1].Content != "second" {
		t.Fatalf("unexpected message order: %+v", got)
	}

	sess, err := s.GetSession(ctx, "s-1")
	if err != nil || sess == nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if sess.MessageCount != 2 {
		t.Fatalf("expected message_count 2, got %d", sess.MessageCount)
	}

	err = s.AppendMessage(ctx, &domain.StoredMessage{ID: "m-x", SessionID: "nope", Role: domain.RoleUser, Content: "x"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown session, got %v", err)
	}
}

func TestDeleteSessionsBefore(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	createSession(t, s, "old", "alice", now.Add(-48*time.Hour))
	createSession(t, s, "new", "alice", now)
	if err := s.AppendMessage(ctx, &domain.StoredMessage{ID: "m-1", SessionID: "old", Role: domain.RoleUser, Content: "hej", CreatedAt: now}); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	n, err := s.DeleteSessionsBefore(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteSessionsBefore failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 session removed, got %d", n)
	}
	if sess, _ := s.GetSession(ctx, "old"); sess != nil {
		t.Error("expired session still present")
	}
	if sess, _ := s.GetSession(ctx, "new"); sess == nil {
		t.Error("fresh session was removed")
	}
	if msgs, _ := s.ListMessages(ctx, "old"); len(msgs) != 0 {
		t.Errorf("expired messages still present: %+v", msgs)
	}
}
