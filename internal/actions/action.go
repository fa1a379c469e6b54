// Package actions derives a structured follow-up plan from a finished assistant reply.
package actions

import "encoding/json"

// Type identifies an Action variant.
type Type string

const (
	TypeNav           Type = "nav"
	TypeStartExercise Type = "start_exercise"
	TypeAddPlan       Type = "add_plan"
	TypeLogJournal    Type = "log_journal"
	TypeOpenRoleplay  Type = "open_roleplay"
)

// ExerciseID names a guided exercise.
type ExerciseID string

const (
	ExerciseBreath478   ExerciseID = "breath_478"
	ExerciseGround54321 ExerciseID = "ground_54321"
	ExerciseNoteOneLine ExerciseID = "note_1line"
)

// Action is a typed next-step suggestion. Values are comparable: two actions are duplicates
// exactly when they are ==. Build them with the variant constructors.
type Action struct {
	Type    Type
	To      string
	Label   string
	ID      string
	Title   string
	Content string
}

// Nav navigates to a route in the host application.
func Nav(to, label string) Action {
	return Action{Type: TypeNav, To: to, Label: label}
}

// StartExercise opens a guided exercise.
func StartExercise(id ExerciseID, label string) Action {
	return Action{Type: TypeStartExercise, ID: string(id), Label: label}
}

// AddPlan adds an item to the user's plan.
func AddPlan(title string) Action {
	return Action{Type: TypeAddPlan, Title: title}
}

// LogJournal stores a journal entry.
func LogJournal(title, content string) Action {
	return Action{Type: TypeLogJournal, Title: title, Content: content}
}

// OpenRoleplay opens a rehearsal scenario.
func OpenRoleplay(id string) Action {
	return Action{Type: TypeOpenRoleplay, ID: id}
}

// MarshalJSON emits only the fields that belong to the variant.
func (a Action) MarshalJSON() ([]byte, error) {
	out := map[string]string{"type": string(a.Type)}
	set := func(k, v string, optional bool) {
		if v != "" || !optional {
			out[k] = v
		}
	}
	switch a.Type {
	case TypeNav:
		set("to", a.To, false)
		set("label", a.Label, true)
	case TypeStartExercise:
		set("id", a.ID, false)
		set("label", a.Label, true)
	case TypeAddPlan:
		set("title", a.Title, false)
	case TypeLogJournal:
		set("title", a.Title, false)
		set("content", a.Content, false)
	case TypeOpenRoleplay:
		set("id", a.ID, false)
	}
	return json.Marshal(out)
}

// ActionPlan is the structured result of one exchange.
type ActionPlan struct {
	Text         string   `json:"text"`
	Bullets      []string `json:"bullets"`
	Question     string   `json:"question"`
	Actions      []Action `json:"actions"`
	QuickReplies []string `json:"quickReplies,omitempty"`
}
