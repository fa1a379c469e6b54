// Package conversation drives one conversation thread: it sends user messages, folds the
// streamed reply into the visible history and derives the follow-up plan.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/mrcorrales01-hub/my-aura-sub004/internal/actions"
	"github.com/mrcorrales01-hub/my-aura-sub004/internal/chat"
	"github.com/mrcorrales01-hub/my-aura-sub004/internal/domain"
	"github.com/mrcorrales01-hub/my-aura-sub004/internal/stream"
)

var (
	// ErrBusy is returned by Send while an exchange is in flight.
	ErrBusy = errors.New("conversation: exchange already in progress")
	// ErrEmptyMessage is returned by Send for blank input.
	ErrEmptyMessage = errors.New("conversation: empty message")
)

// RemoteError is an error chunk reported by the backend mid-stream.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return "backend stream error: " + e.Message
}

// State is the controller's position in an exchange.
type State string

const (
	StateIdle      State = "idle"
	StateSending   State = "sending"
	StateStreaming State = "streaming"
	StateSettled   State = "settled"
)

// Outcome qualifies StateSettled.
type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeError   Outcome = "error"
	OutcomeAborted Outcome = "aborted"
)

// Snapshot is the visible state after one transition. Messages is a copy.
type Snapshot struct {
	State     State
	Outcome   Outcome
	Messages  []domain.ChatMessage
	DemoMode  bool
	SessionID string
	Plan      *actions.ActionPlan
	Err       error
	Retryable bool
}

// Sender opens chat exchanges. *chat.Transport implements it.
type Sender interface {
	Send(ctx context.Context, messages []domain.ChatMessage, lang string, opts chat.Options) (*chat.Exchange, error)
}

// Controller runs exchanges for one conversation thread, one at a time.
type Controller struct {
	sender    Sender
	lang      string
	extractor *actions.Extractor
	logger    *slog.Logger

	mu          sync.Mutex
	state       State
	messages    []domain.ChatMessage
	sessionID   string
	demo        bool
	placeholder int // index of the streaming assistant message, -1 if none
	cancel      context.CancelCauseFunc
	exchange    *chat.Exchange
	aborted     bool
	turn        uint64 // bumped by every Send; a sequence only runs for its own turn
}

// Option configures a Controller.
type Option func(*Controller)

// WithSessionID resumes an existing session.
func WithSessionID(id string) Option {
	return func(c *Controller) { c.sessionID = id }
}

// WithHistory seeds the thread with earlier messages.
func WithHistory(msgs []domain.ChatMessage) Option {
	return func(c *Controller) { c.messages = slices.Clone(msgs) }
}

// WithExtractor overrides the plan extractor.
func WithExtractor(e *actions.Extractor) Option {
	return func(c *Controller) { c.extractor = e }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// NewController creates an idle controller that talks through sender in lang.
func NewController(sender Sender, lang string, opts ...Option) *Controller {
	c := &Controller{
		sender:      sender,
		lang:        lang,
		logger:      slog.Default(),
		state:       StateIdle,
		placeholder: -1,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.extractor == nil {
		c.extractor = actions.NewExtractor(lang, actions.WithLogger(c.logger))
	}
	return c
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SessionID returns the session the thread is recorded in, if the backend announced one.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Messages returns a copy of the history.
func (c *Controller) Messages() []domain.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.messages)
}

// Abort stops the in-flight exchange. The exchange settles as OutcomeAborted with whatever
// reply text had arrived. It is a no-op when idle and safe to call from any goroutine.
//
// An exchange whose sequence has not been ranged over yet is settled on the spot, and its
// sequence then yields nothing.
func (c *Controller) Abort() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateIdle || c.state == StateSettled {
		return
	}
	c.aborted = true
	if c.cancel == nil && c.state == StateSending {
		c.logger.Info("Chat exchange aborted before it started", "session_id", c.sessionID)
		c.settleLocked(OutcomeAborted)
		return
	}
	if c.cancel != nil {
		c.cancel(chat.ErrAborted)
	}
	if c.exchange != nil {
		c.exchange.Abort()
	}
}

// Send appends text as a user message and returns the exchange as a sequence of snapshots,
// one per transition and one per token. The exchange runs while the sequence is ranged over;
// breaking out of the loop aborts it. The controller stays busy until the sequence is ranged.
func (c *Controller) Send(ctx context.Context, text string) (iter.Seq[Snapshot], error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	c.state = StateSending
	c.aborted = false
	c.demo = false
	c.placeholder = -1
	c.turn++
	turn := c.turn
	c.messages = append(c.messages, domain.ChatMessage{Role: domain.RoleUser, Content: text})
	c.mu.Unlock()

	var ranged atomic.Bool
	return func(yield func(Snapshot) bool) {
		if !ranged.CompareAndSwap(false, true) {
			return
		}
		c.run(ctx, turn, yield)
	}, nil
}

func (c *Controller) run(ctx context.Context, turn uint64, yield func(Snapshot) bool) {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	c.mu.Lock()
	if c.turn != turn || c.state != StateSending {
		// Settled by Abort before anyone ranged over the sequence.
		c.mu.Unlock()
		return
	}
	c.cancel = cancel
	history := slices.Clone(c.messages)
	opts := chat.Options{SessionID: c.sessionID}
	first := c.snapshotLocked()
	c.mu.Unlock()

	if !yield(first) {
		c.settleAborted()
		return
	}

	ex, err := c.sender.Send(ctx, history, c.lang, opts)
	if err != nil {
		if c.wasAborted(ctx) {
			yield(c.settleAborted())
			return
		}
		yield(c.fail(err))
		return
	}

	c.mu.Lock()
	c.exchange = ex
	c.demo = ex.DemoMode
	if c.aborted {
		ex.Abort()
	}
	c.mu.Unlock()

	for chunk, err := range ex.Stream() {
		if err != nil {
			yield(c.fail(err))
			return
		}

		var snap Snapshot
		switch chunk.Type {
		case stream.ChunkToken:
			snap = c.appendToken(chunk.Content)
		case stream.ChunkSession:
			snap = c.setSession(chunk.SessionID)
		case stream.ChunkDone:
			c.setSession(chunk.SessionID)
			yield(c.complete())
			return
		case stream.ChunkError:
			yield(c.fail(&RemoteError{Message: chunk.Error}))
			return
		}
		if !yield(snap) {
			ex.Abort()
			c.settleAborted()
			return
		}
	}

	if c.wasAborted(ctx) {
		yield(c.settleAborted())
		return
	}
	// The stream ended on the [DONE] sentinel without a done chunk.
	yield(c.complete())
}

func (c *Controller) wasAborted(ctx context.Context) bool {
	c.mu.Lock()
	aborted := c.aborted
	c.mu.Unlock()
	return aborted || ctx.Err() != nil
}

func (c *Controller) appendToken(content string) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.placeholder < 0 {
		c.messages = append(c.messages, domain.ChatMessage{Role: domain.RoleAssistant})
		c.placeholder = len(c.messages) - 1
	}
	c.messages[c.placeholder].Content += content
	c.state = StateStreaming
	return c.snapshotLocked()
}

func (c *Controller) setSession(id string) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id != "" && id != c.sessionID {
		c.logger.Debug("Session announced", "session_id", id)
		c.sessionID = id
	}
	return c.snapshotLocked()
}

func (c *Controller) complete() Snapshot {
	c.mu.Lock()
	if c.placeholder < 0 {
		c.messages = append(c.messages, domain.ChatMessage{Role: domain.RoleAssistant})
		c.placeholder = len(c.messages) - 1
	}
	reply := c.messages[c.placeholder].Content
	userText := c.lastUserTextLocked()
	c.mu.Unlock()

	plan := c.extractor.Extract(reply, userText)

	c.mu.Lock()
	defer c.mu.Unlock()
	snap := c.settleLocked(OutcomeOK)
	snap.Plan = &plan
	c.logger.Info("Chat exchange completed",
		"session_id", c.sessionID,
		"reply_length", len(reply),
		"action_count", len(plan.Actions),
		"demo_mode", c.demo,
	)
	return snap
}

func (c *Controller) fail(err error) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	apology := domain.ChatMessage{Role: domain.RoleAssistant, Content: actions.Apology(c.lang)}
	if c.placeholder >= 0 {
		c.messages[c.placeholder] = apology
	} else {
		c.messages = append(c.messages, apology)
	}

	var remote *RemoteError
	retryable := domain.IsRetryable(err) || errors.As(err, &remote)
	c.logger.Warn("Chat exchange failed", "error", err, "retryable", retryable, "session_id", c.sessionID)

	snap := c.settleLocked(OutcomeError)
	snap.Err = fmt.Errorf("chat exchange: %w", err)
	snap.Retryable = retryable
	return snap
}

func (c *Controller) settleAborted() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger.Info("Chat exchange aborted", "session_id", c.sessionID)
	return c.settleLocked(OutcomeAborted)
}

// settleLocked records the settled snapshot and returns the controller to idle.
func (c *Controller) settleLocked(outcome Outcome) Snapshot {
	c.state = StateSettled
	snap := c.snapshotLocked()
	snap.Outcome = outcome

	c.state = StateIdle
	c.placeholder = -1
	c.cancel = nil
	c.exchange = nil
	return snap
}

func (c *Controller) lastUserTextLocked() string {
	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].Role == domain.RoleUser {
			return c.messages[i].Content
		}
	}
	return ""
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		State:     c.state,
		Messages:  slices.Clone(c.messages),
		DemoMode:  c.demo,
		SessionID: c.sessionID,
	}
}
