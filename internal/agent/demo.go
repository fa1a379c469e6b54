package agent

import (
	"context"
	"iter"
	"strings"
	"time"

	"github.com/mrcorrales01-hub/my-aura-sub004/internal/domain"
)

var demoReplies = map[string]string{
	"sv": "Tack för att du berättar. Det låter som att det har varit tungt en tid.\n" +
		"- Ta tre lugna andetag\n" +
		"- Skriv ner en sak du känner just nu\n" +
		"Vad känns viktigast för dig just nu?",
	"en": "Thank you for sharing that. It sounds like things have been heavy for a while.\n" +
		"- Take three slow breaths\n" +
		"- Write down one thing you feel right now\n" +
		"What feels most important to you right now?",
}

// DemoResponder answers with a fixed localized reply, paced like typing. It is used when no
// model credentials are configured.
type DemoResponder struct {
	delay time.Duration
}

// NewDemoResponder creates a demo responder that waits delay between words.
func NewDemoResponder(delay time.Duration) *DemoResponder {
	return &DemoResponder{delay: delay}
}

// Reply streams the scripted reply word by word.
func (d *DemoResponder) Reply(ctx context.Context, _ []domain.ChatMessage, lang string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		text, ok := demoReplies[baseLang(lang)]
		if !ok {
			text = demoReplies["en"]
		}

		for _, word := range strings.SplitAfter(text, " ") {
			if d.delay > 0 {
				timer := time.NewTimer(d.delay)
				select {
				case <-ctx.Done():
					timer.Stop()
					yield("", context.Cause(ctx))
					return
				case <-timer.C:
				}
			} else if err := ctx.Err(); err != nil {
				yield("", context.Cause(ctx))
				return
			}
			if !yield(word, nil) {
				return
			}
		}
	}
}

// baseLang returns the primary subtag of a language tag ("sv-SE" -> "sv").
func baseLang(lang string) string {
	primary, _, _ := strings.Cut(lang, "-")
	return strings.ToLower(strings.TrimSpace(primary))
}
