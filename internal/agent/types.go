// Package agent implements the backend side of a chat exchange: it produces the assistant
// reply and streams it to the client as chunks.
package agent

import (
	"github.com/mrcorrales01-hub/my-aura-sub004/internal/domain"
)

// Config holds OpenAI-compatible responder configuration.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
}

// DefaultConfig returns default responder configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o-mini",
	}
}

// completionRequest is the body of an OpenAI-compatible chat completion call.
type completionRequest struct {
	Model    string               `json:"model"`
	Messages []domain.ChatMessage `json:"messages"`
	Stream   bool                 `json:"stream"`
}

// completionChunk is one streamed completion delta.
type completionChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}
