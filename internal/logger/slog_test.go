package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restoreDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
}

func TestSetup_TerminalAndFile(t *testing.T) {
	restoreDefault(t)
	var buf bytes.Buffer
	file := filepath.Join(t.TempDir(), "logs", "narrativa.jsonl")

	log, closeFn, err := Setup(Options{Level: "info", Terminal: &buf, File: file})
	require.NoError(t, err)

	log.Debug("hidden")
	slog.Info("stage transition", "from", "reflect", "to", "rate_dimensions")
	require.NoError(t, closeFn())

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "stage transition")
	assert.Contains(t, buf.String(), "to=rate_dimensions")

	raw, err := os.ReadFile(file)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 1)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "stage transition", rec["msg"])
	assert.Equal(t, "reflect", rec["from"])
}

func TestSetup_VerboseEnablesDebug(t *testing.T) {
	restoreDefault(t)
	var buf bytes.Buffer

	_, _, err := Setup(Options{Verbose: true, Terminal: &buf})
	require.NoError(t, err)

	slog.Debug("prompt rendered", "chars", 120)
	assert.Contains(t, buf.String(), "prompt rendered")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"DEBUG", slog.LevelDebug, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestToJournalKey(t *testing.T) {
	assert.Equal(t, "SESSION_ID", toJournalKey("session.id"))
	assert.Equal(t, "REPLY_LEN", toJournalKey("reply_len"))
}
