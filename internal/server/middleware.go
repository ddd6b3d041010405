package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/logger"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/types"
)

// isAllowedOrigin matches the configured allowlist; "*" admits any origin.
func (s *Server) isAllowedOrigin(origin string) bool {
	if _, ok := s.origins["*"]; ok {
		return true
	}
	_, ok := s.origins[origin]
	return ok
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			w.Header().Set("Vary", "Origin")
			if s.isAllowedOrigin(origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			}
		}

		if r.Method == "OPTIONS" {
			if origin != "" && !s.isAllowedOrigin(origin) {
				slog.Debug("rejected preflight", "origin", origin, "path", r.URL.Path)
				http.Error(w, "origin not allowed", http.StatusForbidden)
				return
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// recoverMiddleware gives each request its own crash context and turns a handler
// panic into a crash log and a 500, keeping the server up.
func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logger.WithCrashContext(r.Context())
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}
			path, err := logger.WriteCrashReport(ctx, rec)
			slog.Error("handler panic", "method", r.Method, "path", r.URL.Path, "panic", rec, "crash_log", path, "write_error", err)
			writeError(w, http.StatusInternalServerError, APIError{Kind: types.KindInvariant, Message: "internal error"}, nil)
		}()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
