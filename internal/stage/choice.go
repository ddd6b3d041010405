package stage

import "github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/session"

// ChoiceKind names a structured user action.
type ChoiceKind string

const (
	ChoiceConsent          ChoiceKind = "consent"
	ChoiceSelect           ChoiceKind = "select"
	ChoiceEdit             ChoiceKind = "edit"
	ChoiceAcceptSuggestion ChoiceKind = "accept_suggestion"
	ChoiceSave             ChoiceKind = "save"
	ChoiceRatings          ChoiceKind = "ratings"
	ChoiceDimension        ChoiceKind = "dimension"
)

// Choice is a structured user action. Only the field matching Kind is read.
type Choice struct {
	Kind    ChoiceKind     `json:"kind" validate:"required,oneof=consent select edit accept_suggestion save ratings dimension"`
	Index   int            `json:"index,omitempty"`
	Text    string         `json:"text,omitempty"`
	Ratings map[string]int `json:"ratings,omitempty"`
	Key     string         `json:"key,omitempty"`
}

func (k ChoiceKind) appliesTo(s session.Stage) bool {
	switch k {
	case ChoiceConsent:
		return s == session.StageConsent
	case ChoiceSelect:
		return s == session.StageSelectNarrative
	case ChoiceEdit, ChoiceAcceptSuggestion, ChoiceSave:
		return s == session.StageRefinePrimary || s == session.StageRefineSecondary
	case ChoiceRatings:
		return s == session.StageRateDimensions
	case ChoiceDimension:
		return s == session.StageAwaitTieBreak
	}
	return false
}
