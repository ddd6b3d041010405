package stage

import (
	"fmt"
	"strings"

	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/session"
)

// Candidate is one narrative offered for selection.
type Candidate struct {
	Index   int    `json:"index"`
	Persona string `json:"persona,omitempty"`
	Text    string `json:"text"`
}

// DimensionCard describes one rating dimension.
type DimensionCard struct {
	Key         string `json:"key"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Final is the closing view shown once the flow is done.
type Final struct {
	Title      string   `json:"title"`
	Message    string   `json:"message,omitempty"`
	Narratives []string `json:"narratives"`
	SurveyURL  string   `json:"surveyUrl,omitempty"`
}

// Display is everything a host needs to render after one call into the machine.
type Display struct {
	Stage session.Stage `json:"stage"`
	// Reply is the assistant text for this turn, outro included.
	Reply string `json:"reply,omitempty"`
	// Notice carries non-fatal problems such as a failed save.
	Notice string `json:"notice,omitempty"`

	Consent         string `json:"consent,omitempty"`
	InformedConsent string `json:"informedConsent,omitempty"`

	Candidates []Candidate `json:"candidates,omitempty"`
	Narrative  string      `json:"narrative,omitempty"`
	Suggestion string      `json:"suggestion,omitempty"`

	Dimensions []DimensionCard   `json:"dimensions,omitempty"`
	RatingUI   map[string]string `json:"ratingUi,omitempty"`
	TieOptions []DimensionCard   `json:"tieOptions,omitempty"`

	Final *Final `json:"final,omitempty"`
}

// Default closing texts.
const (
	DefaultFinalTitle   = "🎉 ¡Gracias por participar!"
	DefaultFinalMessage = "Esta es la narrativa final que elegiste o editaste:"
	surveyHeading       = "### Tu experiencia es muy valiosa para nosotros. 🙌"
	surveyInvite        = "Ayúdanos completando esta breve encuesta de retroalimentación para mejorar el chatbot."
	surveyLinkText      = "Ir a encuesta de retroalimentación"
)

// Markdown renders the closing view.
func (f *Final) Markdown() string {
	if f == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", f.Title)
	if f.Message != "" {
		fmt.Fprintf(&b, "%s\n\n", f.Message)
	}
	for _, n := range f.Narratives {
		b.WriteString(Quote(n))
		b.WriteString("\n\n")
	}
	if f.SurveyURL != "" {
		b.WriteString("---\n\n")
		b.WriteString(surveyHeading + "\n\n")
		b.WriteString(surveyInvite + "\n\n")
		fmt.Fprintf(&b, "[%s](%s)\n", surveyLinkText, f.SurveyURL)
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// SuggestionMarkdown renders an adaptation proposal.
func SuggestionMarkdown(s string) string {
	return "**Versión adaptada sugerida:**\n\n" + Quote(s)
}

// Quote renders text as a markdown block quote.
func Quote(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight("> "+l, " ")
	}
	return strings.Join(lines, "\n")
}
