// Package chat implements the client side of a streamed chat exchange.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/mrcorrales01-hub/my-aura-sub004/internal/config"
	"github.com/mrcorrales01-hub/my-aura-sub004/internal/domain"
	"github.com/mrcorrales01-hub/my-aura-sub004/internal/identity"
	"github.com/mrcorrales01-hub/my-aura-sub004/internal/stream"
)

// DemoModeHeader is set by the backend when it answers with scripted text because no live
// model credentials are configured.
const DemoModeHeader = "X-Demo-Mode"

// ErrAborted is the cancellation cause recorded when Exchange.Abort is called.
var ErrAborted = errors.New("exchange aborted")

// Request is the JSON body of POST /chat.
type Request struct {
	Messages  []domain.ChatMessage `json:"messages"`
	Lang      string               `json:"lang"`
	SessionID string               `json:"session_id,omitempty"`
}

// Options carries per-exchange settings.
type Options struct {
	// SessionID continues an existing session. Empty lets the backend create one.
	SessionID string
}

// Transport owns the HTTP lifecycle of chat exchanges.
type Transport struct {
	baseURL  string
	client   *http.Client
	identity identity.Provider
	timeout  time.Duration
	logger   *slog.Logger
}

// Option configures a Transport.
type Option func(*Transport)

// WithHTTPClient overrides the HTTP client. Its own Timeout should be zero since it would
// also cut off long streams; use WithTimeout instead.
func WithHTTPClient(c *http.Client) Option {
	return func(t *Transport) { t.client = c }
}

// WithTimeout bounds each exchange from request to final chunk. Zero disables the deadline.
func WithTimeout(d time.Duration) Option {
	return func(t *Transport) { t.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Transport) { t.logger = l }
}

// NewTransport creates a chat transport for the backend at baseURL. Credentials are read
// from provider on every Send.
func NewTransport(baseURL string, provider identity.Provider, opts ...Option) *Transport {
	t := &Transport{
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{},
		identity: provider,
		timeout:  config.DefaultChatTimeout,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Exchange is one in-flight chat exchange.
type Exchange struct {
	// DemoMode is true when the backend answered with fallback text instead of a live model.
	DemoMode bool

	chunks  iter.Seq2[stream.Chunk, error]
	abort   context.CancelCauseFunc
	body    io.Closer
	started atomic.Bool
}

// Stream returns the exchange's chunk sequence. It can be ranged over once.
//
// A timeout surfaces as an error matching domain.ErrTimeout. After Abort the sequence
// ends without yielding further chunks or an error.
func (e *Exchange) Stream() iter.Seq2[stream.Chunk, error] {
	return func(yield func(stream.Chunk, error) bool) {
		e.started.Store(true)
		e.chunks(yield)
	}
}

// Abort cancels the exchange. It is safe to call from any goroutine and more than once.
func (e *Exchange) Abort() {
	e.abort(ErrAborted)
	if !e.started.Load() {
		_ = e.body.Close()
	}
}

// Send posts messages to the backend and returns the streaming exchange.
//
// Errors returned here are final: domain.ErrUnauthenticated when no token is available,
// domain.ErrTimeout when the deadline passes before the response headers arrive, and
// *domain.TransportError for non-2xx responses and network failures.
func (t *Transport) Send(ctx context.Context, messages []domain.ChatMessage, lang string, opts Options) (*Exchange, error) {
	token, err := identity.RequireToken(ctx, t.identity)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(Request{Messages: messages, Lang: lang, SessionID: opts.SessionID})
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	ctx, abort := context.WithCancelCause(ctx)
	stopTimer := context.CancelFunc(func() {})
	if t.timeout > 0 {
		ctx, stopTimer = context.WithTimeoutCause(ctx, t.timeout, domain.ErrTimeout)
	}
	release := func() {
		stopTimer()
		abort(context.Canceled)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/chat", bytes.NewReader(payload))
	if err != nil {
		release()
		return nil, fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := t.client.Do(req)
	if err != nil {
		release()
		return nil, classify(ctx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer release()
		defer func() {
			if closeErr := resp.Body.Close(); closeErr != nil {
				t.logger.Debug("failed to close error response body", "error", closeErr)
			}
		}()
		return nil, domain.ErrorFromResponse(resp)
	}

	demo := parseFlag(resp.Header.Get(DemoModeHeader))
	t.logger.Info("Chat exchange started",
		"message_count", len(messages),
		"lang", lang,
		"session_id", opts.SessionID,
		"demo_mode", demo,
	)

	return &Exchange{
		DemoMode: demo,
		chunks:   t.guard(ctx, stream.Decode(resp.Body, t.logger), release),
		abort:    abort,
		body:     resp.Body,
	}, nil
}

// guard maps decoder failures onto the error taxonomy and stops delivery once the exchange
// context is done.
func (t *Transport) guard(ctx context.Context, chunks iter.Seq2[stream.Chunk, error], release func()) iter.Seq2[stream.Chunk, error] {
	return func(yield func(stream.Chunk, error) bool) {
		defer release()
		for chunk, err := range chunks {
			if ctx.Err() != nil {
				if errors.Is(context.Cause(ctx), domain.ErrTimeout) {
					yield(stream.Chunk{}, fmt.Errorf("chat stream: %w", domain.ErrTimeout))
					return
				}
				t.logger.Debug("Chat stream cancelled", "cause", context.Cause(ctx))
				return
			}
			if err != nil {
				if errors.Is(err, domain.ErrStreamTruncated) || errors.Is(err, stream.ErrConsumed) {
					yield(stream.Chunk{}, err)
					return
				}
				yield(stream.Chunk{}, &domain.TransportError{Err: err})
				return
			}
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

// classify converts a failed round trip into the error taxonomy.
func classify(ctx context.Context, err error) error {
	cause := context.Cause(ctx)
	switch {
	case errors.Is(cause, domain.ErrTimeout):
		return fmt.Errorf("chat request: %w", domain.ErrTimeout)
	case errors.Is(cause, ErrAborted):
		return ErrAborted
	}
	return &domain.TransportError{Err: err}
}

func parseFlag(v string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	return err == nil && b
}
