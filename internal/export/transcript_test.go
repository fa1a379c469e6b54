package export

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mrcorrales01-hub/my-aura-sub004/internal/domain"
)

type listerFunc func(ctx context.Context, sessionID string) ([]domain.StoredMessage, error)

func (f listerFunc) ListMessages(ctx context.Context, sessionID string) ([]domain.StoredMessage, error) {
	return f(ctx, sessionID)
}

func TestTranscript(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 3, 1, 8, 5, 0, 0, time.UTC)
	lister := listerFunc(func(_ context.Context, sessionID string) ([]domain.StoredMessage, error) {
		if sessionID != "s-1" {
			t.Fatalf("unexpected session %q", sessionID)
		}
		return []domain.StoredMessage{
			{Role: domain.RoleUser, Content: "Jag kan inte sova", CreatedAt: at},
			{Role: domain.RoleAssistant, Content: "Det låter jobbigt.\n- Andas lugnt\n", CreatedAt: at.Add(time.Minute)},
		}, nil
	})

	got, err := Transcript(context.Background(), lister, "s-1", nil)
	if err != nil {
		t.Fatalf("Transcript failed: %v", err)
	}
	want := "Session s-1 (2 messages)\n\n" +
		"[2026-03-01 08:05] You: Jag kan inte sova\n" +
		"[2026-03-01 08:06] Aura: Det låter jobbigt.\n" +
		"    - Andas lugnt\n"
	if got != want {
		t.Fatalf("unexpected transcript:\n%s\nwant:\n%s", got, want)
	}
}

func TestTranscriptPropagatesErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("db gone")
	_, err := Transcript(context.Background(), listerFunc(func(context.Context, string) ([]domain.StoredMessage, error) {
		return nil, boom
	}), "s-1", time.UTC)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}
