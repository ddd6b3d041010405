package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/app"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/logger"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve narrative sessions over an HTTP API",
	Long: `Serve narrative sessions over a JSON HTTP API.

Endpoints:
  POST /api/sessions                start a session
  GET  /api/sessions/{id}           current view of a session
  POST /api/sessions/{id}/turn      send a message   {"text": "..."}
  POST /api/sessions/{id}/choice    send an action   {"kind": "select", "index": 0}
  GET  /api/records                 saved narratives (?kind=primary&limit=50)

Examples:
  narrativa serve
  narrativa serve --port 8080`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "API server port (default server.port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	defer logger.HandlePanic(cmd.Context())

	cfg := GetConfig()
	port := cfg.Server.Port
	if servePort > 0 {
		port = servePort
	}

	ctx := cmd.Context()
	appCtx, err := app.NewContext(ctx, *cfg)
	if err != nil {
		return err
	}
	defer func() { _ = appCtx.Close() }()

	chat, err := app.NewChatApp(ctx, appCtx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	fmt.Fprintln(out, "🚀 narrativa API starting...")
	fmt.Fprintln(out, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Fprintf(out, "📜 Script: %s (%s)\n", cfg.Script, cfg.Flow.Profile)
	fmt.Fprintf(out, "🤖 Model: %s/%s\n", appCtx.LLMCfg.Provider, appCtx.LLMCfg.Model)
	fmt.Fprintf(out, "🌐 API: http://localhost:%d\n", port)
	fmt.Fprintln(out)

	var wg sync.WaitGroup
	errChan := make(chan error, 1)

	srv := server.New(chat, appCtx.Stores.Reader, port, cfg.Server.Origins)
	srv.Start(&wg, errChan)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var runErr error
	select {
	case sig := <-sigChan:
		fmt.Fprintf(out, "\n⏹️  Received %v, shutting down...\n", sig)
	case runErr = <-errChan:
		fmt.Fprintf(out, "\n❌ Error: %v\n", runErr)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(out, "   ⚠️  Server shutdown error: %v\n", err)
	}

	wg.Wait()
	fmt.Fprintln(out, "✅ narrativa stopped")
	return runErr
}
