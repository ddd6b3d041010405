package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/viper"

	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/types"
)

// errOut receives CLI error messages. Tests swap it.
var errOut io.Writer = os.Stderr

// HandleFatalError handles unrecoverable errors that should terminate the application.
func HandleFatalError(userMsg string, technicalErr error) {
	PrintError(userMsg, technicalErr)
	os.Exit(1)
}

// PrintError prints an error message without exiting. With --verbose the
// technical error is printed instead of the user message.
func PrintError(userMsg string, technicalErr error) {
	if viper.GetBool("verbose") && technicalErr != nil {
		fmt.Fprintf(errOut, "Error: %v\n", technicalErr)
		return
	}
	if hint := kindHint(technicalErr); hint != "" {
		fmt.Fprintf(errOut, "%s (%s)\n", userMsg, hint)
		return
	}
	fmt.Fprintln(errOut, userMsg)
}

// LogError records an error at debug level.
func LogError(msg string, err error) {
	if err != nil {
		slog.Debug(msg, "error", err)
		return
	}
	slog.Debug(msg)
}

func kindHint(err error) string {
	var e *types.Error
	if !errors.As(err, &e) {
		return ""
	}
	switch e.Kind {
	case types.KindConfiguration:
		return "revisa la configuración: " + e.Message
	case types.KindPersistence:
		return "almacenamiento: " + e.Message
	case types.KindGeneration:
		return "el modelo no respondió"
	}
	return string(e.Kind)
}
