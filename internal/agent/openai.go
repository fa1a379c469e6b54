package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mrcorrales01-hub/my-aura-sub004/internal/domain"
	"github.com/mrcorrales01-hub/my-aura-sub004/internal/stream"
)

var errCompletion = errors.New("completion stream returned error")

// OpenAIResponder streams replies from an OpenAI-compatible chat completion endpoint.
type OpenAIResponder struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	logger  *slog.Logger
}

// NewOpenAIResponder creates a responder for cfg.BaseURL.
func NewOpenAIResponder(cfg Config, client *http.Client, logger *slog.Logger) *OpenAIResponder {
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaults.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaults.Model
	}
	return &OpenAIResponder{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client:  client,
		logger:  logger,
	}
}

// Reply posts the history and yields each content delta.
func (o *OpenAIResponder) Reply(ctx context.Context, history []domain.ChatMessage, lang string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		body, err := json.Marshal(completionRequest{Model: o.model, Messages: history, Stream: true})
		if err != nil {
			yield("", fmt.Errorf("marshal completion request: %w", err))
			return
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			yield("", fmt.Errorf("create completion request: %w", err))
			return
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "text/event-stream")
		req.Header.Set("Authorization", "Bearer "+o.apiKey)

		o.logger.Debug("Requesting completion", "model", o.model, "message_count", len(history), "lang", lang)
		resp, err := o.client.Do(req)
		if err != nil {
			yield("", fmt.Errorf("completion request: %w", err))
			return
		}
		defer func() {
			if closeErr := resp.Body.Close(); closeErr != nil {
				o.logger.Debug("failed to close completion body", "error", closeErr)
			}
		}()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			yield("", fmt.Errorf("completion request: %w", domain.ErrorFromResponse(resp)))
			return
		}

		for payload, err := range stream.Payloads(resp.Body) {
			if err != nil {
				yield("", fmt.Errorf("completion stream: %w", err))
				return
			}

			var chunk completionChunk
			if err := json.Unmarshal(payload, &chunk); err != nil {
				o.logger.Warn("Skipping malformed completion chunk", "error", err)
				continue
			}
			if chunk.Error != nil {
				yield("", fmt.Errorf("%w: %s", errCompletion, chunk.Error.Message))
				return
			}
			for _, choice := range chunk.Choices {
				if choice.Delta.Content == "" {
					continue
				}
				if !yield(choice.Delta.Content, nil) {
					return
				}
			}
		}
	}
}
