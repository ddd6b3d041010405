package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/config"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/llm"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/session"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/stage"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/tiebreak"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/store"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/types"
)

// ChatApp runs sessions through the stage machine and snapshots them after every step.
type ChatApp struct {
	machine  *stage.Machine
	sessions store.SessionStore
}

// MachineOptions maps the flow settings onto stage machine options.
func MachineOptions(flow types.FlowConfig, temperature float64) stage.Options {
	return stage.Options{
		Profile:          config.Profile(flow.Profile),
		Consent:          flow.Consent,
		CompletionPolicy: flow.CompletionPolicy,
		TieBreak:         tiebreak.Policy(flow.TieBreak),
		AnswerSource:     stage.AnswerSource(flow.AnswerSource),
		Temperature:      temperature,
		SurveyURL:        flow.SurveyURL,
	}
}

// NewChatApp builds the generator from the context's LLM settings.
func NewChatApp(ctx context.Context, appCtx *Context) (*ChatApp, error) {
	gen, err := llm.NewGenerator(ctx, appCtx.LLMCfg)
	if err != nil {
		return nil, types.ConfigurationError("create generator", string(appCtx.LLMCfg.Provider), err)
	}
	return NewChatAppWith(ctx, appCtx.Script, gen, appCtx.Stores.Sink, appCtx.Stores.DB, MachineOptions(appCtx.Cfg.Flow, appCtx.LLMCfg.Temperature))
}

// NewChatAppWith wires explicit collaborators. sessions may be nil to skip snapshots.
func NewChatAppWith(ctx context.Context, script *config.Script, gen llm.Generator, sink store.Sink, sessions store.SessionStore, opts stage.Options) (*ChatApp, error) {
	m, err := stage.New(ctx, script, gen, sink, opts)
	if err != nil {
		return nil, err
	}
	return &ChatApp{machine: m, sessions: sessions}, nil
}

// Machine exposes the underlying stage machine.
func (a *ChatApp) Machine() *stage.Machine { return a.machine }

// Start creates and begins a new session. A snapshot failure comes back as a
// PersistenceError alongside the started session.
func (a *ChatApp) Start(ctx context.Context) (*session.State, stage.Display, error) {
	state, d := a.machine.Begin(a.machine.NewSession())
	return state, d, a.snapshot(ctx, state)
}

// Load reads a session snapshot back.
func (a *ChatApp) Load(ctx context.Context, id string) (*session.State, error) {
	const op = "load session"

	if a.sessions == nil {
		return nil, types.InvalidInputError(op, "session storage is disabled")
	}
	data, err := a.sessions.LoadSession(ctx, id)
	if errors.Is(err, store.ErrSessionNotFound) {
		return nil, types.InvalidInputError(op, fmt.Sprintf("unknown session %q", id))
	}
	if err != nil {
		return nil, types.PersistenceError(op, "read snapshot", err)
	}

	var state session.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, types.PersistenceError(op, "decode snapshot", err)
	}
	if err := state.Validate(); err != nil {
		return nil, types.PersistenceError(op, "invalid snapshot", err)
	}
	return &state, nil
}

// Turn forwards a text turn. The returned state is always the one to keep.
// When the transition succeeds but its snapshot cannot be written, Turn returns
// the new state and display together with a PersistenceError.
func (a *ChatApp) Turn(ctx context.Context, state *session.State, text string) (*session.State, stage.Display, error) {
	next, d, err := a.machine.HandleTurn(ctx, state, text)
	if err != nil {
		return next, d, err
	}
	return next, d, a.snapshot(ctx, next)
}

// Choose forwards a structured choice. Snapshot failures are reported as in Turn.
func (a *ChatApp) Choose(ctx context.Context, state *session.State, choice stage.Choice) (*session.State, stage.Display, error) {
	next, d, err := a.machine.HandleChoice(ctx, state, choice)
	if err != nil {
		return next, d, err
	}
	return next, d, a.snapshot(ctx, next)
}

// View renders state.
func (a *ChatApp) View(state *session.State) stage.Display {
	return a.machine.View(state)
}

func (a *ChatApp) snapshot(ctx context.Context, state *session.State) error {
	const op = "save session"

	if a.sessions == nil {
		return nil
	}
	data, err := json.Marshal(state)
	if err != nil {
		return types.PersistenceError(op, "encode snapshot", err)
	}
	if err := a.sessions.SaveSession(ctx, state.ID, data); err != nil {
		slog.Warn("save session snapshot", "session", state.ID, "stage", state.Stage, "error", err)
		return types.PersistenceError(op, "write snapshot", err)
	}
	return nil
}
