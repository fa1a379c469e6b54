package actions

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSleepScenario(t *testing.T) {
	reply := "Det låter jobbigt att ligga vaken.\n- Andas lugnt\nVad brukar du göra innan du lägger dig?"

	plan := NewExtractor("sv").Extract(reply, "Jag kan inte sova")

	assert.Equal(t, []string{"Andas lugnt"}, plan.Bullets)
	assert.Equal(t, "Vad brukar du göra innan du lägger dig?", plan.Question)
	assert.Equal(t, reply, plan.Text)

	assert.Contains(t, plan.Actions, StartExercise(ExerciseBreath478, "Andning 4-7-8"))
	assert.Equal(t, TypeLogJournal, plan.Actions[len(plan.Actions)-1].Type, "journal fallback comes last")
	assert.Equal(t, "Du: Jag kan inte sova\n\nAura: "+reply, plan.Actions[len(plan.Actions)-1].Content)
	assert.Contains(t, plan.QuickReplies, "Hjälp mig varva ner inför natten")
}

func TestNoBulletsNoQuestion(t *testing.T) {
	plan := Plan("That sounds heavy. Take your time.", "hello")

	assert.NotNil(t, plan.Bullets)
	assert.Empty(t, plan.Bullets)
	assert.Equal(t, "What feels possible to start with?", plan.Question)
	assert.Equal(t, []string{"Tell me more", "Give me one small step"}, plan.QuickReplies)
}

func TestSwedishFallbackQuestion(t *testing.T) {
	plan := NewExtractor("sv-SE").Extract("Ta det lugnt.", "hej")
	assert.Equal(t, "Vad känns möjligt att börja med?", plan.Question)
}

func TestBulletsCappedAndStripped(t *testing.T) {
	reply := "Try this:\n• one\n  - two  \n-\n- three\n• four\nnot - a bullet"

	plan := Plan(reply, "")

	assert.Equal(t, []string{"one", "two", "three"}, plan.Bullets)
}

func TestQuestionIsLastOne(t *testing.T) {
	reply := "Is it the evenings?\nOr mornings?\nEither way, I'm here."

	assert.Equal(t, "Or mornings?", Plan(reply, "").Question)
}

func TestPlanIsDeterministic(t *testing.T) {
	reply := "- Breathe\n- Write one line\nWhat would help tonight?"
	text := "I feel anxious and can't sleep, my boss is angry"

	first := Plan(reply, text)
	for range 5 {
		assert.Equal(t, first, Plan(reply, text))
	}
}

func TestActionsNeverEmpty(t *testing.T) {
	for _, tc := range []struct{ reply, text string }{
		{"", ""},
		{"ok", "ok"},
		{"\n\n\n", "   "},
	} {
		plan := Plan(tc.reply, tc.text)
		require.NotEmpty(t, plan.Actions)
		assert.Equal(t, TypeLogJournal, plan.Actions[len(plan.Actions)-1].Type)
	}
}

func TestDuplicateActionsCollapse(t *testing.T) {
	// The sleep and fatigue rules both produce the same breathing exercise.
	plan := Plan("Rest matters.", "I'm tired and I can't sleep")

	var n int
	for _, a := range plan.Actions {
		if a == StartExercise(ExerciseBreath478, "4-7-8 breathing") {
			n++
		}
	}
	assert.Equal(t, 1, n)
}

func TestMultipleRulesFire(t *testing.T) {
	plan := Plan("Let's make a plan.", "I can't sleep")

	assert.Contains(t, plan.Actions, StartExercise(ExerciseBreath478, "4-7-8 breathing"))
	assert.Contains(t, plan.Actions, AddPlan("One small step today"))
}

func TestRuleOrderIsPreserved(t *testing.T) {
	plan := Plan("", "my therapist says my mood is low")

	require.Len(t, plan.Actions, 3)
	assert.Equal(t, Nav("/therapists", "Find a therapist"), plan.Actions[0])
	assert.Equal(t, Nav("/mood", "Log mood"), plan.Actions[1])
}

func TestQuickRepliesCapped(t *testing.T) {
	plan := Plan("", "stress at work, conflict with my boss, and no sleep")
	assert.Len(t, plan.QuickReplies, 2)
}

func TestPanickingRuleYieldsMinimalPlan(t *testing.T) {
	boom := Rule{
		Name:    "boom",
		Match:   func(string) bool { return true },
		Produce: func(Input) Action { panic("boom") },
	}
	e := NewExtractor("en", WithRules([]Rule{boom}))

	plan := e.Extract("- a bullet\nA question?", "hi")

	assert.Empty(t, plan.Bullets)
	assert.Equal(t, "What feels possible to start with?", plan.Question)
	require.Len(t, plan.Actions, 1)
	assert.Equal(t, TypeLogJournal, plan.Actions[0].Type)
}

func TestActionJSON(t *testing.T) {
	tests := []struct {
		action Action
		want   string
	}{
		{Nav("/mood", ""), `{"to":"/mood","type":"nav"}`},
		{StartExercise(ExerciseGround54321, "Ground"), `{"id":"ground_54321","label":"Ground","type":"start_exercise"}`},
		{AddPlan("Walk"), `{"title":"Walk","type":"add_plan"}`},
		{LogJournal("t", "c"), `{"content":"c","title":"t","type":"log_journal"}`},
		{OpenRoleplay("x"), `{"id":"x","type":"open_roleplay"}`},
	}
	for _, tt := range tests {
		got, err := json.Marshal(tt.action)
		require.NoError(t, err)
		assert.JSONEq(t, tt.want, string(got))
	}
}

func TestKeywordsMatchWholeWords(t *testing.T) {
	plan := Plan("Thanks for the explanation.", "I watched a documentary about the planet and its chef")

	require.Len(t, plan.Actions, 1)
	assert.Equal(t, TypeLogJournal, plan.Actions[0].Type)
}

func TestKeywordsIgnoreWordFragments(t *testing.T) {
	for _, text := range []string{
		"Jag gillar målning",
		"an explanation of the planetarium",
		"the chef cooked dinner",
	} {
		t.Run(text, func(t *testing.T) {
			for _, rule := range DefaultRules {
				assert.False(t, rule.Match(text), "rule %s fired", rule.Name)
			}
		})
	}
}

func TestKeywordsMatchInflectedAndNonASCIIWords(t *testing.T) {
	tests := []struct {
		text string
		want Action
	}{
		{"Jag sover dåligt", StartExercise(ExerciseBreath478, "Andning 4-7-8")},
		{"Ångesten kommer på kvällen", StartExercise(ExerciseGround54321, "Jordning 5-4-3-2-1")},
		{"Jag bråkar med chefen", OpenRoleplay("difficult_conversation")},
		{"Vi planerar veckan, mål: vila", AddPlan("Ett litet steg idag")},
		{"\"Humöret\" är lågt", Nav("/mood", "Logga humör")},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			plan := NewExtractor("sv").Extract("", tt.text)
			assert.Contains(t, plan.Actions, tt.want)
		})
	}
}

func TestNilLoggerStillRecoversPanics(t *testing.T) {
	boom := Rule{
		Name:    "boom",
		Match:   func(string) bool { return true },
		Produce: func(Input) Action { panic("boom") },
	}
	e := NewExtractor("en", WithRules([]Rule{boom}), WithLogger(nil))

	var plan ActionPlan
	require.NotPanics(t, func() { plan = e.Extract("reply", "hi") })
	require.Len(t, plan.Actions, 1)
	assert.Equal(t, TypeLogJournal, plan.Actions[0].Type)
}
