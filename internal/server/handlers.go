package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/session"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/stage"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/store"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/types"
)

const (
	defaultRecordLimit = 50
	maxRecordLimit     = 500
	maxBodyBytes       = 64 << 10
)

var validate = validator.New()

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeAPIJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	state, d, err := s.chat.Start(r.Context())
	if err != nil {
		slog.Error("start session", "session", state.ID, "error", err)
		writeError(w, statusFor(err), toAPIError(err), nil)
		return
	}
	slog.Info("session started", "session", state.ID, "stage", state.Stage)
	writeAPIJSON(w, http.StatusCreated, respond(state, d))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	unlock := s.locks.Lock(id)
	defer unlock()

	state, ok := s.load(w, r, id)
	if !ok {
		return
	}
	writeAPIJSON(w, http.StatusOK, respond(state, s.chat.View(state)))
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	var req TurnRequest
	if !decode(w, r, &req) {
		return
	}

	id := r.PathValue("id")
	unlock := s.locks.Lock(id)
	defer unlock()

	state, ok := s.load(w, r, id)
	if !ok {
		return
	}
	next, d, err := s.chat.Turn(r.Context(), state, req.Text)
	if err != nil {
		s.fail(w, persisted(state, next, err), err)
		return
	}
	writeAPIJSON(w, http.StatusOK, respond(next, d))
}

func (s *Server) handleChoice(w http.ResponseWriter, r *http.Request) {
	var choice stage.Choice
	if !decode(w, r, &choice) {
		return
	}

	id := r.PathValue("id")
	unlock := s.locks.Lock(id)
	defer unlock()

	state, ok := s.load(w, r, id)
	if !ok {
		return
	}
	next, d, err := s.chat.Choose(r.Context(), state, choice)
	if err != nil {
		s.fail(w, persisted(state, next, err), err)
		return
	}
	if d.Notice != "" {
		slog.Warn("choice completed with notice", "session", id, "notice", d.Notice)
	}
	writeAPIJSON(w, http.StatusOK, respond(next, d))
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	if s.records == nil {
		writeError(w, http.StatusNotFound, APIError{Message: "no readable sink configured"}, nil)
		return
	}

	limit := defaultRecordLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil && l > 0 && l <= maxRecordLimit {
			limit = l
		}
	}
	kind := store.Kind(r.URL.Query().Get("kind"))

	records, err := s.records.Records(r.Context())
	if err != nil {
		slog.Error("list records", "error", err)
		writeError(w, http.StatusInternalServerError, APIError{Kind: types.KindPersistence, Message: err.Error()}, nil)
		return
	}

	filtered := make([]store.Record, 0, len(records))
	for _, rec := range records {
		if kind == "" || rec.Kind == kind {
			filtered = append(filtered, rec)
		}
	}
	total := len(filtered)
	if total > limit {
		filtered = filtered[total-limit:]
	}
	writeAPIJSON(w, http.StatusOK, RecordsResponse{Records: filtered, Total: total})
}

// load fetches a session snapshot, answering 404 for unknown ids.
func (s *Server) load(w http.ResponseWriter, r *http.Request, id string) (*session.State, bool) {
	state, err := s.chat.Load(r.Context(), id)
	if err == nil {
		return state, true
	}
	if types.IsKind(err, types.KindInvalidInput) {
		writeError(w, http.StatusNotFound, APIError{Kind: types.KindInvalidInput, Message: err.Error()}, nil)
		return nil, false
	}
	slog.Error("load session", "session", id, "error", err)
	writeError(w, http.StatusInternalServerError, toAPIError(err), nil)
	return nil, false
}

// fail reports err along with the unchanged session so the client can re-render it.
func (s *Server) fail(w http.ResponseWriter, state *session.State, err error) {
	apiErr := toAPIError(err)
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("session call failed", "session", state.ID, "stage", state.Stage, "error", err)
	} else {
		slog.Debug("session call rejected", "session", state.ID, "stage", state.Stage, "error", err)
	}
	resp := respond(state, s.chat.View(state))
	writeError(w, status, apiErr, &resp)
}

// persisted picks the session a client should see after err. A transition whose
// snapshot failed was not stored, so the loaded state is still the current one.
func persisted(loaded, next *session.State, err error) *session.State {
	if types.IsKind(err, types.KindPersistence) {
		return loaded
	}
	return next
}

// statusFor maps an error kind onto an HTTP status.
func statusFor(err error) int {
	var e *types.Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case types.KindInvalidInput:
		return http.StatusUnprocessableEntity
	case types.KindExtraction, types.KindMalformedOutput, types.KindGeneration:
		return http.StatusBadGateway
	case types.KindPersistence:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func toAPIError(err error) APIError {
	var e *types.Error
	if errors.As(err, &e) {
		return APIError{Kind: e.Kind, Message: e.Error(), Retryable: e.Retryable()}
	}
	return APIError{Message: err.Error()}
}

func respond(state *session.State, d stage.Display) SessionResponse {
	reply := d.Reply
	if reply == "" && d.Suggestion != "" {
		reply = stage.SuggestionMarkdown(d.Suggestion)
	}
	return SessionResponse{
		ID:        state.ID,
		Stage:     state.Stage,
		Display:   d,
		ReplyHTML: renderHTML(reply),
		FinalHTML: renderHTML(d.Final.Markdown()),
	}
}

// decode reads and validates a JSON body, answering 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, APIError{Kind: types.KindInvalidInput, Message: "invalid request body: " + err.Error()}, nil)
		return false
	}
	if err := validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, APIError{Kind: types.KindInvalidInput, Message: err.Error()}, nil)
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, apiErr APIError, sess *SessionResponse) {
	writeAPIJSON(w, status, ErrorResponse{Error: apiErr, Session: sess})
}

func writeAPIJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
