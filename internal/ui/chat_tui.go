package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/app"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/session"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/stage"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/types"
)

// Layout constants
const (
	DefaultViewportWidth  = 80
	DefaultViewportHeight = 18
	MinViewportHeight     = 8
	DefaultTextareaHeight = 3
	HeaderFooterHeight    = 9
)

// ChatModel is the interactive terminal host for one session.
type ChatModel struct {
	ctx  context.Context
	chat *app.ChatApp

	State   *session.State
	Display stage.Display
	Busy    bool
	Msgs    []string

	renderer  *Renderer
	style     string
	Spinner   spinner.Model
	TextInput textarea.Model
	Viewport  viewport.Model
}

// msgStep carries the outcome of one call into the machine.
type msgStep struct {
	state   *session.State
	display stage.Display
	err     error
}

// NewChatModel starts from state and its current display. style is a glamour style name;
// empty selects one automatically.
func NewChatModel(ctx context.Context, chat *app.ChatApp, state *session.State, d stage.Display, style string) ChatModel {
	ti := textarea.New()
	ti.Placeholder = "Escribe tu mensaje o /ayuda..."
	ti.Focus()
	ti.CharLimit = 0
	ti.ShowLineNumbers = false
	ti.SetHeight(DefaultTextareaHeight)
	ti.SetWidth(DefaultViewportWidth - 4)
	ti.KeyMap.InsertNewline.SetEnabled(false)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = StylePrimary

	m := ChatModel{
		ctx:       ctx,
		chat:      chat,
		State:     state,
		Display:   d,
		renderer:  NewRenderer(DefaultViewportWidth-4, style),
		style:     style,
		Spinner:   sp,
		TextInput: ti,
		Viewport:  viewport.New(DefaultViewportWidth, DefaultViewportHeight),
	}
	m.addDisplay(d)
	return m
}

func (m ChatModel) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.Spinner.Tick)
}

func runStep(ctx context.Context, chat *app.ChatApp, state *session.State, a Action) tea.Cmd {
	return func() tea.Msg {
		var (
			next *session.State
			d    stage.Display
			err  error
		)
		if a.Choice != nil {
			next, d, err = chat.Choose(ctx, state, *a.Choice)
		} else {
			next, d, err = chat.Turn(ctx, state, a.Turn)
		}
		return msgStep{state: next, display: d, err: err}
	}
}

func (m ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Viewport.Width = msg.Width
		m.Viewport.Height = msg.Height - HeaderFooterHeight
		if m.Viewport.Height < MinViewportHeight {
			m.Viewport.Height = MinViewportHeight
		}
		m.TextInput.SetWidth(msg.Width - 4)
		m.renderer = NewRenderer(msg.Width-4, m.style)
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.Busy {
			return m, nil
		}
		if msg.Type == tea.KeyEnter {
			return m.submit()
		}
		switch msg.Type {
		case tea.KeyPgUp:
			m.Viewport.HalfPageUp()
			return m, nil
		case tea.KeyPgDown:
			m.Viewport.HalfPageDown()
			return m, nil
		}

	case msgStep:
		m.Busy = false
		m.State = msg.state
		if msg.err != nil {
			m.addMsg("ERROR", FormatError(msg.err))
			// An unsaved step still happened; keep showing it.
			if !types.IsKind(msg.err, types.KindPersistence) {
				return m, nil
			}
		}
		m.Display = msg.display
		m.addDisplay(msg.display)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.TextInput, cmd = m.TextInput.Update(msg)
	cmds = append(cmds, cmd)
	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m ChatModel) submit() (tea.Model, tea.Cmd) {
	input := m.TextInput.Value()
	a, err := Parse(input, m.Display)
	if err != nil {
		m.addMsg("ERROR", FormatError(err))
		return m, nil
	}
	m.TextInput.Reset()

	switch {
	case a.Quit:
		return m, tea.Quit
	case a.Help:
		m.addMsg("NOTICE", HelpText)
		return m, nil
	}

	if a.Turn != "" {
		m.addMsg("USER", a.Turn)
	} else {
		m.addMsg("USER", strings.TrimSpace(input))
	}
	m.Busy = true
	return m, runStep(m.ctx, m.chat, m.State, a)
}

func (m *ChatModel) addDisplay(d stage.Display) {
	m.addMsg("ASSISTANT", m.renderer.Render(DisplayMarkdown(d)))
}

func (m *ChatModel) addMsg(kind, content string) {
	var line string
	switch kind {
	case "ASSISTANT":
		line = StylePrefixAssistant.Render("◈ Narrativa") + "\n" + strings.TrimRight(content, "\n")
	case "USER":
		line = StylePrefixUser.Render("› Tú") + " " + StyleText.Render(content)
	case "NOTICE":
		line = StylePrefixNotice.Render(content)
	case "ERROR":
		line = StylePrefixError.Render("✗ " + content)
	default:
		line = content
	}
	m.Msgs = append(m.Msgs, line)
	m.Viewport.SetContent(strings.Join(m.Msgs, "\n\n"))
	m.Viewport.GotoBottom()
}

func (m ChatModel) View() string {
	var s strings.Builder

	s.WriteString(StyleHeader.Render("◆ Chatbot de narrativas"))
	s.WriteString(" " + StyleSubtle.Render(fmt.Sprintf("etapa: %s · /ayuda", m.State.Stage)) + "\n")

	sepWidth := m.Viewport.Width
	if sepWidth < 40 {
		sepWidth = 40
	}
	sep := StyleSubtle.Render(strings.Repeat("─", sepWidth)) + "\n"

	s.WriteString(sep)
	s.WriteString(m.Viewport.View() + "\n")
	s.WriteString(sep)

	if m.Busy {
		s.WriteString(m.Spinner.View() + " " + StyleSubtle.Render("Pensando..."))
	} else {
		s.WriteString(StyleInputBox.Render(m.TextInput.View()))
	}
	s.WriteString("\n" + StyleSubtle.Render("Enter enviar · PgUp/PgDn desplazar · Ctrl+C salir"))
	return s.String()
}

// FormatError turns a core error into a short message for the participant.
func FormatError(err error) string {
	var e *types.Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	switch e.Kind {
	case types.KindInvalidInput:
		return e.Message
	case types.KindGeneration, types.KindExtraction, types.KindMalformedOutput:
		return "El asistente no respondió como se esperaba. Intenta de nuevo. (" + string(e.Kind) + ")"
	case types.KindPersistence:
		return "No se pudo guardar el avance de la sesión; podrás seguir aquí, pero no reanudarla desde este punto."
	}
	return "Error interno: " + e.Error()
}
