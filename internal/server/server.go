// Package server exposes narrative sessions over a small JSON HTTP API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/app"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/store"
)

// Server serves the session API for one ChatApp.
type Server struct {
	chat    *app.ChatApp
	records store.RecordReader
	origins map[string]struct{}
	locks   *keyedMutex
	server  *http.Server
}

// New builds a server listening on port. records may be nil, which disables GET /api/records.
func New(chat *app.ChatApp, records store.RecordReader, port int, origins []string) *Server {
	s := &Server{
		chat:    chat,
		records: records,
		origins: make(map[string]struct{}, len(origins)),
		locks:   newKeyedMutex(),
	}
	for _, o := range origins {
		s.origins[o] = struct{}{}
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.registerRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routed handler, CORS included.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Start(wg *sync.WaitGroup, errChan chan<- error) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		slog.Info("api server listening", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
