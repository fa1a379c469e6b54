package actions

import (
	"log/slog"
	"strings"
)

// MaxBullets caps ActionPlan.Bullets.
const MaxBullets = 3

// maxQuickReplies caps rule-derived quick replies.
const maxQuickReplies = 2

// Extractor turns a finished reply into an ActionPlan. The zero value is not usable; build one
// with NewExtractor. Extract is safe for concurrent use.
type Extractor struct {
	lang         string
	rules        []Rule
	quickReplies []QuickReplyRule
	logger       *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithRules replaces the action rule table.
func WithRules(rules []Rule) Option {
	return func(e *Extractor) { e.rules = rules }
}

// WithQuickReplies replaces the quick-reply rule table.
func WithQuickReplies(rules []QuickReplyRule) Option {
	return func(e *Extractor) { e.quickReplies = rules }
}

// WithLogger sets the logger used to report recovered rule failures.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// NewExtractor creates an extractor whose fallback texts are in lang ("sv" or anything else
// for English).
func NewExtractor(lang string, opts ...Option) *Extractor {
	e := &Extractor{
		lang:         lang,
		rules:        DefaultRules,
		quickReplies: DefaultQuickReplies,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

var english = NewExtractor("en")

// Plan extracts a plan with English fallback texts.
func Plan(reply, userText string) ActionPlan {
	return english.Extract(reply, userText)
}

// FallbackQuestion is asked when the reply has no question of its own.
func FallbackQuestion(lang string) string {
	return localized("Vad känns möjligt att börja med?", "What feels possible to start with?")(lang)
}

// Apology replaces an assistant reply that could not be completed.
func Apology(lang string) string {
	return localized(
		"Förlåt, något gick fel. Försök igen om en stund.",
		"Sorry, something went wrong. Please try again in a moment.",
	)(lang)
}

// Extract never panics: a failing rule degrades the result to the minimal plan.
func (e *Extractor) Extract(reply, userText string) (plan ActionPlan) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Action extraction failed, using minimal plan", "panic", r)
			plan = e.minimal(reply, userText)
		}
	}()

	in := Input{UserText: userText, Reply: reply, Lang: e.lang}

	found := make([]Action, 0, len(e.rules)+1)
	for _, rule := range e.rules {
		if rule.Match(userText) || rule.Match(reply) {
			found = append(found, rule.Produce(in))
		}
	}
	found = append(found, e.journal(reply, userText))

	return ActionPlan{
		Text:         reply,
		Bullets:      bullets(reply),
		Question:     e.question(reply),
		Actions:      dedup(found),
		QuickReplies: e.replies(userText),
	}
}

func (e *Extractor) minimal(reply, userText string) ActionPlan {
	return ActionPlan{
		Text:     reply,
		Bullets:  []string{},
		Question: FallbackQuestion(e.lang),
		Actions:  []Action{e.journal(reply, userText)},
	}
}

func (e *Extractor) journal(reply, userText string) Action {
	title := localized("Chattreflektion", "Chat reflection")(e.lang)
	you, aura := localized("Du", "You")(e.lang), "Aura"
	return LogJournal(title, you+": "+userText+"\n\n"+aura+": "+reply)
}

func bullets(reply string) []string {
	out := []string{}
	for line := range strings.Lines(reply) {
		line = strings.TrimSpace(line)
		var rest string
		switch {
		case strings.HasPrefix(line, "•"):
			rest = strings.TrimPrefix(line, "•")
		case strings.HasPrefix(line, "-"):
			rest = strings.TrimPrefix(line, "-")
		default:
			continue
		}
		if rest = strings.TrimSpace(rest); rest == "" {
			continue
		}
		out = append(out, rest)
		if len(out) == MaxBullets {
			break
		}
	}
	return out
}

func (e *Extractor) question(reply string) string {
	lines := strings.Split(reply, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); strings.HasSuffix(line, "?") {
			return line
		}
	}
	return FallbackQuestion(e.lang)
}

func (e *Extractor) replies(userText string) []string {
	var out []string
	for _, rule := range e.quickReplies {
		if len(out) == maxQuickReplies {
			break
		}
		if rule.Match(userText) {
			out = append(out, rule.Reply(e.lang))
		}
	}
	if len(out) == 0 {
		for _, generic := range genericQuickReplies {
			out = append(out, generic(e.lang))
		}
	}
	return out
}

// dedup keeps the first occurrence of each distinct action.
func dedup(in []Action) []Action {
	seen := make(map[Action]struct{}, len(in))
	out := in[:0]
	for _, a := range in {
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}
