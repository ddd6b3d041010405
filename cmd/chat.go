package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/app"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/logger"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/session"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/stage"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/ui"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/util"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/store"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/types"
)

// resumeLatest asks --resume for the most recently updated session.
const resumeLatest = "latest"

var (
	chatResume string
	chatPlain  bool
	chatStyle  string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start a narrative conversation in the terminal",
	Long: `Start a narrative conversation in the terminal.

Type messages to answer the assistant. Structured actions use slash commands
such as /elegir 1, /guardar or /calificar 5 3 5 2; /ayuda lists them all.

Every step is snapshotted, so an interrupted conversation can continue:
  narrativa chat --resume latest
  narrativa chat --resume <session-id>`,
	Annotations: map[string]string{annotationOwnsTerminal: "true"},
	RunE:        runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringVar(&chatResume, "resume", "", `resume a session by id or id prefix, or "latest"`)
	chatCmd.Flags().BoolVar(&chatPlain, "plain", false, "line-oriented mode without the full-screen UI")
	chatCmd.Flags().StringVar(&chatStyle, "style", "", "markdown style (dark, light, notty); default picks from the terminal")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(logger.WithCrashContext(cmd.Context()), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer logger.HandlePanic(ctx)

	appCtx, err := app.NewContext(ctx, *GetConfig())
	if err != nil {
		return err
	}
	defer func() { _ = appCtx.Close() }()

	chat, err := app.NewChatApp(ctx, appCtx)
	if err != nil {
		return err
	}

	state, d, err := openSession(ctx, chat, appCtx, chatResume)
	if err != nil {
		return err
	}

	if chatPlain || !ui.IsInteractive() {
		final, err := ui.RunPlain(ctx, chat, state, d, ui.PlainOptions{
			In:   cmd.InOrStdin(),
			Out:  cmd.OutOrStdout(),
			Spin: ui.IsInteractive(),
		})
		printResumeHint(cmd, final)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	model := ui.NewChatModel(ctx, chat, state, d, chatStyle)
	result, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run chat ui: %w", err)
	}
	if m, ok := result.(ui.ChatModel); ok {
		printResumeHint(cmd, m.State)
	}
	return nil
}

// openSession starts a new session or reloads one named by resume.
func openSession(ctx context.Context, chat *app.ChatApp, appCtx *app.Context, resume string) (*session.State, stage.Display, error) {
	if resume == "" {
		return chat.Start(ctx)
	}

	id := resume
	if resume == resumeLatest {
		latest, err := appCtx.Stores.DB.LatestSession(ctx)
		if errors.Is(err, store.ErrSessionNotFound) {
			return nil, stage.Display{}, types.InvalidInputError("resume session", "no saved session to resume")
		}
		if err != nil {
			return nil, stage.Display{}, types.PersistenceError("resume session", "find latest session", err)
		}
		id = latest
	} else {
		full, err := util.ResolveSessionID(ctx, appCtx.Stores.DB, resume)
		switch {
		case errors.Is(err, util.ErrNotFound), errors.Is(err, util.ErrAmbiguousID):
			return nil, stage.Display{}, types.InvalidInputError("resume session", err.Error())
		case err != nil:
			return nil, stage.Display{}, types.PersistenceError("resume session", "find session", err)
		}
		id = full
	}
	state, err := chat.Load(ctx, id)
	if err != nil {
		return nil, stage.Display{}, err
	}
	return state, chat.View(state), nil
}

func printResumeHint(cmd *cobra.Command, state *session.State) {
	if state == nil || state.Stage == session.StageDone {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "\nSesión %s guardada en la etapa %s. Continúa con: narrativa chat --resume %s\n",
		state.ID, state.Stage, state.ID)
}
