package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/app"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/session"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/stage"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/types"
)

// PlainOptions configures the line-oriented host used when stdin is not a terminal.
type PlainOptions struct {
	In  io.Reader
	Out io.Writer
	// Spin shows a spinner on Out while the assistant is working.
	Spin bool
}

// RunPlain drives a session one input line at a time and returns the last state.
// It stops on /salir, at end of input, or when ctx is cancelled.
func RunPlain(ctx context.Context, chat *app.ChatApp, state *session.State, d stage.Display, opts PlainOptions) (*session.State, error) {
	out := opts.Out
	fmt.Fprint(out, DisplayMarkdown(d))

	scanner := bufio.NewScanner(opts.In)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for {
		if err := ctx.Err(); err != nil {
			return state, err
		}
		fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return state, scanner.Err()
		}

		a, err := Parse(scanner.Text(), d)
		if err != nil {
			fmt.Fprintln(out, "✗ "+FormatError(err))
			continue
		}
		switch {
		case a.Quit:
			return state, nil
		case a.Help:
			fmt.Fprintln(out, HelpText)
			continue
		}

		var sp *Spinner
		if opts.Spin {
			sp = NewSpinner(out, "Pensando...")
			sp.Start()
		}
		var next *session.State
		var nd stage.Display
		if a.Choice != nil {
			next, nd, err = chat.Choose(ctx, state, *a.Choice)
		} else {
			next, nd, err = chat.Turn(ctx, state, a.Turn)
		}
		if sp != nil {
			sp.Stop()
		}

		state = next
		if err != nil {
			fmt.Fprintln(out, "✗ "+FormatError(err))
			if !types.IsKind(err, types.KindPersistence) {
				continue
			}
		}
		d = nd
		fmt.Fprint(out, "\n"+DisplayMarkdown(d))
	}
}
