package agent

import (
	"context"
	"iter"

	"github.com/mrcorrales01-hub/my-aura-sub004/internal/domain"
)

// Responder produces the assistant's reply to a conversation as a sequence of text pieces.
// Implementations stop when ctx is done and yield at most one error, as the last item.
type Responder interface {
	Reply(ctx context.Context, history []domain.ChatMessage, lang string) iter.Seq2[string, error]
}

var (
	_ Responder = (*DemoResponder)(nil)
	_ Responder = (*OpenAIResponder)(nil)
)
