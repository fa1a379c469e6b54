package actions

import (
	"regexp"
	"strings"
)

// Input is what rules see: the user's message and the assistant's reply.
type Input struct {
	UserText string
	Reply    string
	Lang     string
}

// Rule maps a predicate over the exchange text to an action. Rules are evaluated in order
// and every match contributes.
type Rule struct {
	Name    string
	Match   func(text string) bool
	Produce func(in Input) Action
}

// QuickReplyRule suggests a follow-up prompt when the user's text matches.
type QuickReplyRule struct {
	Name  string
	Match func(text string) bool
	Reply func(lang string) string
}

// keywords builds a case-insensitive whole-word matcher. A trailing "*" marks a stem that
// may be followed by more letters ("sov*" matches "sova" and "sover"). Word edges are any
// non-letter, non-digit rune; RE2's \b only knows ASCII and would split "ångest".
func keywords(words ...string) func(string) bool {
	alts := make([]string, len(words))
	for i, w := range words {
		if stem, ok := strings.CutSuffix(w, "*"); ok {
			alts[i] = regexp.QuoteMeta(stem) + `[\p{L}\p{N}]*`
		} else {
			alts[i] = regexp.QuoteMeta(w)
		}
	}
	re := regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}])(?:` + strings.Join(alts, "|") + `)(?:$|[^\p{L}\p{N}])`)
	return re.MatchString
}

var (
	sleepWords     = keywords("sov*", "sömn*", "sleep*", "insomnia")
	fatigueWords   = keywords("trött*", "utmatta*", "tired", "exhausted", "exhaustion")
	anxietyWords   = keywords("ångest*", "oro", "oron", "orolig*", "panik*", "stress*", "anxiety", "anxious", "panic*", "worried", "worry", "worries")
	planWords      = keywords("plan", "plans", "planning", "planer*", "mål", "målet", "målen", "goal*", "routine*", "rutin*")
	conflictWords  = keywords("konflikt*", "bråk*", "chefen", "min chef", "conflict*", "argument*", "boss*")
	journalWords   = keywords("dagbok*", "skriv*", "journal*", "write down")
	therapistWords = keywords("terapeut*", "psykolog*", "therapist*", "therapy", "counsel*")
	moodWords      = keywords("humör*", "mående*", "mood*")
)

func fixed(a Action) func(Input) Action {
	return func(Input) Action { return a }
}

func localized(sv, en string) func(string) string {
	return func(lang string) string {
		if isSwedish(lang) {
			return sv
		}
		return en
	}
}

func isSwedish(lang string) bool {
	return strings.HasPrefix(strings.ToLower(lang), "sv")
}

// DefaultRules is the Swedish and English keyword table. A new locale needs its keywords added
// here; the table does not generalize on its own.
var DefaultRules = []Rule{
	{
		Name:  "sleep",
		Match: sleepWords,
		Produce: func(in Input) Action {
			return StartExercise(ExerciseBreath478, localized("Andning 4-7-8", "4-7-8 breathing")(in.Lang))
		},
	},
	{
		Name:  "fatigue",
		Match: fatigueWords,
		Produce: func(in Input) Action {
			return StartExercise(ExerciseBreath478, localized("Andning 4-7-8", "4-7-8 breathing")(in.Lang))
		},
	},
	{
		Name:  "anxiety",
		Match: anxietyWords,
		Produce: func(in Input) Action {
			return StartExercise(ExerciseGround54321, localized("Jordning 5-4-3-2-1", "5-4-3-2-1 grounding")(in.Lang))
		},
	},
	{
		Name:  "plan",
		Match: planWords,
		Produce: func(in Input) Action {
			return AddPlan(localized("Ett litet steg idag", "One small step today")(in.Lang))
		},
	},
	{
		Name:    "conflict",
		Match:   conflictWords,
		Produce: fixed(OpenRoleplay("difficult_conversation")),
	},
	{
		Name:  "journal",
		Match: journalWords,
		Produce: func(in Input) Action {
			return StartExercise(ExerciseNoteOneLine, localized("En rad", "One line")(in.Lang))
		},
	},
	{
		Name:  "therapist",
		Match: therapistWords,
		Produce: func(in Input) Action {
			return Nav("/therapists", localized("Hitta en terapeut", "Find a therapist")(in.Lang))
		},
	},
	{
		Name:  "mood",
		Match: moodWords,
		Produce: func(in Input) Action {
			return Nav("/mood", localized("Logga humör", "Log mood")(in.Lang))
		},
	},
}

// DefaultQuickReplies suggest follow-ups from the user's own words.
var DefaultQuickReplies = []QuickReplyRule{
	{
		Name:  "sleep",
		Match: sleepWords,
		Reply: localized("Hjälp mig varva ner inför natten", "Help me wind down for the night"),
	},
	{
		Name:  "anxiety",
		Match: anxietyWords,
		Reply: localized("Guida mig genom en lugnande övning", "Guide me through a calming exercise"),
	},
	{
		Name:  "conflict",
		Match: conflictWords,
		Reply: localized("Hjälp mig förbereda samtalet", "Help me prepare for the conversation"),
	},
	{
		Name:  "plan",
		Match: planWords,
		Reply: localized("Gör en enkel plan för veckan", "Make a simple plan for the week"),
	},
}

var genericQuickReplies = []func(string) string{
	localized("Berätta mer", "Tell me more"),
	localized("Ge mig ett litet steg", "Give me one small step"),
}
