package agent

import (
	"context"
	"iter"
	"log/slog"
	"net/http"
	"time"

	"github.com/mrcorrales01-hub/my-aura-sub004/internal/config"
	"github.com/mrcorrales01-hub/my-aura-sub004/internal/domain"
)

var systemPrompts = map[string]string{
	"sv": "Du är Aura, en varm och lugn samtalspartner för välmående. Svara kort på svenska. " +
		"Ge gärna upp till tre konkreta förslag som punktlista med \"- \" och avsluta med en öppen fråga.",
	"en": "You are Aura, a warm and calm wellbeing companion. Answer briefly in English. " +
		"Offer up to three concrete suggestions as a \"- \" bullet list and end with one open question.",
}

// Service provides chat replies through the configured responder.
type Service struct {
	responder Responder
	demo      bool
}

// NewService picks the live responder when cfg carries an API key and the demo responder
// otherwise.
func NewService(cfg config.LLMConfig, typingDelay time.Duration, client *http.Client, logger *slog.Logger) *Service {
	if cfg.DemoMode() {
		return &Service{responder: NewDemoResponder(typingDelay), demo: true}
	}
	return &Service{
		responder: NewOpenAIResponder(Config{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
		}, client, logger),
	}
}

// NewServiceWithResponder creates a service around a custom responder.
func NewServiceWithResponder(r Responder, demo bool) *Service {
	return &Service{responder: r, demo: demo}
}

// DemoMode reports whether replies are scripted.
func (s *Service) DemoMode() bool {
	return s.demo
}

// Reply streams the assistant reply to history. A language-specific system prompt is
// prepended unless history already starts with one.
func (s *Service) Reply(ctx context.Context, history []domain.ChatMessage, lang string) iter.Seq2[string, error] {
	if len(history) == 0 || history[0].Role != domain.RoleSystem {
		prompt, ok := systemPrompts[baseLang(lang)]
		if !ok {
			prompt = systemPrompts["en"]
		}
		history = append([]domain.ChatMessage{{Role: domain.RoleSystem, Content: prompt}}, history...)
	}
	return s.responder.Reply(ctx, history, lang)
}
