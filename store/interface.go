// Package store persists finished narratives and session snapshots.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/types"
)

// Kind tells which narrative a record holds.
type Kind string

const (
	KindPrimary   Kind = "primary"
	KindSecondary Kind = "secondary"
)

// Record is one saved narrative. Sinks append it as a row of text and timestamp.
type Record struct {
	Text      string    `json:"text" yaml:"text"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	SessionID string    `json:"sessionId,omitempty" yaml:"sessionId,omitempty"`
	Kind      Kind      `json:"kind" yaml:"kind"`
}

// Sink is an append-only destination for records.
type Sink interface {
	// Append writes r. Implementations never rewrite earlier records.
	Append(ctx context.Context, r Record) error
}

// RecordReader lists records back, oldest first.
type RecordReader interface {
	Records(ctx context.Context) ([]Record, error)
}

// SessionStore keeps the latest JSON snapshot of each session.
type SessionStore interface {
	SaveSession(ctx context.Context, id string, snapshot []byte) error
	// LoadSession returns ErrSessionNotFound when id is unknown.
	LoadSession(ctx context.Context, id string) ([]byte, error)
}

// ErrSessionNotFound is returned by LoadSession for unknown ids.
var ErrSessionNotFound = errors.New("session not found")

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, r Record) error

func (f SinkFunc) Append(ctx context.Context, r Record) error { return f(ctx, r) }

// NamedSink labels a sink for logs and error messages.
type NamedSink struct {
	Name string
	Sink Sink
}

// MultiSink appends to every sink in order. One failing sink does not stop the others.
type MultiSink struct {
	sinks []NamedSink
}

// NewMultiSink fans out to sinks.
func NewMultiSink(sinks ...NamedSink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Len returns the number of configured sinks.
func (m *MultiSink) Len() int { return len(m.sinks) }

// Append writes r everywhere and joins the failures into one PersistenceError.
func (m *MultiSink) Append(ctx context.Context, r Record) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Sink.Append(ctx, r); err != nil {
			slog.Warn("sink append failed", "sink", s.Name, "kind", r.Kind, "session", r.SessionID, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
			continue
		}
		slog.Debug("record appended", "sink", s.Name, "kind", r.Kind, "session", r.SessionID)
	}
	if len(errs) > 0 {
		return types.PersistenceError("append record", fmt.Sprintf("%d of %d sinks failed", len(errs), len(m.sinks)), errors.Join(errs...))
	}
	return nil
}
