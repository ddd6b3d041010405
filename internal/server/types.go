package server

import (
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/session"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/stage"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/store"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/types"
)

// TurnRequest carries one free-text message.
type TurnRequest struct {
	Text string `json:"text" validate:"required"`
}

// SessionResponse is returned by every session endpoint.
type SessionResponse struct {
	ID        string        `json:"id"`
	Stage     session.Stage `json:"stage"`
	Display   stage.Display `json:"display"`
	ReplyHTML string        `json:"replyHtml,omitempty"`
	FinalHTML string        `json:"finalHtml,omitempty"`
}

// APIError describes a failed request.
type APIError struct {
	Kind      types.ErrorKind `json:"kind,omitempty"`
	Message   string          `json:"message"`
	Retryable bool            `json:"retryable"`
}

// ErrorResponse wraps an APIError. Session is set when the failing call left a session intact.
type ErrorResponse struct {
	Error   APIError         `json:"error"`
	Session *SessionResponse `json:"session,omitempty"`
}

// RecordsResponse lists saved narratives.
type RecordsResponse struct {
	Records []store.Record `json:"records"`
	Total   int            `json:"total"`
}
