// Package export renders human-readable transcripts of persisted sessions.
package export

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mrcorrales01-hub/my-aura-sub004/internal/domain"
)

// TimeLayout is the timestamp format used for each turn.
const TimeLayout = "2006-01-02 15:04"

// MessageLister reads a session's messages ordered by creation time.
type MessageLister interface {
	ListMessages(ctx context.Context, sessionID string) ([]domain.StoredMessage, error)
}

// RoleLabel returns the speaker label printed for role.
func RoleLabel(role domain.Role) string {
	switch role {
	case domain.RoleUser:
		return "You"
	case domain.RoleAssistant:
		return "Aura"
	case domain.RoleSystem:
		return "System"
	}
	return string(role)
}

// Transcript loads a session's messages and renders them.
func Transcript(ctx context.Context, lister MessageLister, sessionID string, loc *time.Location) (string, error) {
	msgs, err := lister.ListMessages(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("export session %s: %w", sessionID, err)
	}
	var b strings.Builder
	if err := Write(&b, sessionID, msgs, loc); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Write renders msgs as `[timestamp] Label: text` turns. Continuation lines of a
// multi-line message are indented. A nil loc renders in UTC.
func Write(w io.Writer, sessionID string, msgs []domain.StoredMessage, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	if _, err := fmt.Fprintf(w, "Session %s (%d messages)\n\n", sessionID, len(msgs)); err != nil {
		return err
	}
	for _, m := range msgs {
		lines := strings.Split(strings.TrimRight(m.Content, "\n"), "\n")
		if _, err := fmt.Fprintf(w, "[%s] %s: %s\n", m.CreatedAt.In(loc).Format(TimeLayout), RoleLabel(m.Role), lines[0]); err != nil {
			return err
		}
		for _, line := range lines[1:] {
			if _, err := fmt.Fprintf(w, "    %s\n", line); err != nil {
				return err
			}
		}
	}
	return nil
}
