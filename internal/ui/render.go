package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/session"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/stage"
)

// DisplayMarkdown renders everything a Display carries as one markdown document,
// followed by the commands that apply to its stage.
func DisplayMarkdown(d stage.Display) string {
	var parts []string
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}

	add(d.Reply)
	add(d.Consent)
	if d.InformedConsent != "" {
		add("**Consentimiento informado**\n\n" + d.InformedConsent)
	}

	for _, c := range d.Candidates {
		title := fmt.Sprintf("### Opción %d", c.Index+1)
		if c.Persona != "" {
			title += " · " + c.Persona
		}
		add(title + "\n\n" + stage.Quote(c.Text))
	}

	if d.Narrative != "" {
		add("**Tu narrativa:**\n\n" + stage.Quote(d.Narrative))
	}
	if d.Suggestion != "" && d.Reply == "" {
		add(stage.SuggestionMarkdown(d.Suggestion))
	}

	if len(d.Dimensions) > 0 {
		var b strings.Builder
		b.WriteString("**Califica cada dimensión del 1 al 5:**\n\n")
		for i, c := range d.Dimensions {
			fmt.Fprintf(&b, "%d. **%s**: %s\n", i+1, c.Title, c.Description)
		}
		add(b.String())
	}
	if len(d.TieOptions) > 0 {
		var b strings.Builder
		b.WriteString("**Hay un empate. ¿Qué dimensión quieres explorar?**\n\n")
		for i, c := range d.TieOptions {
			fmt.Fprintf(&b, "%d. **%s** (`%s`)\n", i+1, c.Title, c.Key)
		}
		add(b.String())
	}

	add(d.Final.Markdown())
	if d.Notice != "" {
		add("⚠ " + d.Notice)
	}
	if hint := Hint(d.Stage); hint != "" {
		add("_" + hint + "_")
	}
	return strings.Join(parts, "\n\n") + "\n"
}

// Hint names the commands that move the given stage forward.
func Hint(s session.Stage) string {
	switch s {
	case session.StageConsent:
		return "Escribe /aceptar para comenzar."
	case session.StageSelectNarrative:
		return "Escribe /elegir N para quedarte con una narrativa."
	case session.StageRefinePrimary, session.StageRefineSecondary:
		return "Pide cambios con un mensaje, /editar TEXTO para reescribirla, /usar para aceptar la sugerencia o /guardar."
	case session.StageRateDimensions:
		return "Escribe /calificar A B C D."
	case session.StageAwaitTieBreak:
		return "Escribe /dimension N."
	case session.StageDone:
		return "Escribe /salir para terminar."
	}
	return ""
}

// Renderer turns markdown into terminal output.
type Renderer struct {
	tr *glamour.TermRenderer
}

// NewRenderer builds a renderer wrapping at width. style is a glamour standard style
// name; empty picks one from the terminal background.
func NewRenderer(width int, style string) *Renderer {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if style == "" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStylePath(style))
	}
	tr, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return &Renderer{}
	}
	return &Renderer{tr: tr}
}

// Render falls back to the raw markdown when glamour is unavailable or fails.
func (r *Renderer) Render(md string) string {
	if r == nil || r.tr == nil {
		return md
	}
	out, err := r.tr.Render(md)
	if err != nil {
		return md
	}
	return out
}
