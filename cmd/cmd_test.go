package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/config"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/store"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/types"
)

func resetViperForTest(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestLoadConfig_Defaults(t *testing.T) {
	resetViperForTest(t)
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", "")

	require.NoError(t, loadConfig())
	cfg := GetConfig()
	assert.Equal(t, "config/guion.toml", cfg.Script)
	assert.Equal(t, "full", cfg.Flow.Profile)
	assert.True(t, cfg.Flow.Consent)
	assert.Equal(t, "substring", cfg.Flow.CompletionPolicy)
	assert.Equal(t, "explicit", cfg.Flow.TieBreak)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, 0.3, cfg.LLM.Temperature)
	assert.Equal(t, []string{"sqlite"}, cfg.Store.Sinks)
	assert.Equal(t, filepath.Join(os.Getenv("HOME"), config.ProjectDirName, "data"), cfg.Store.Path)
	assert.Equal(t, 5001, cfg.Server.Port)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	resetViperForTest(t)
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", t.TempDir())

	yamlCfg := `
flow:
  profile: simple
  tieBreak: fixed_priority
store:
  path: ./datos
  sinks: [sqlite, jsonl]
log:
  level: debug
`
	require.NoError(t, os.WriteFile(".narrativa.yaml", []byte(yamlCfg), 0644))
	t.Setenv("NARRATIVA_FLOW_ANSWERSOURCE", "transcript")

	require.NoError(t, loadConfig())
	cfg := GetConfig()
	assert.Equal(t, "simple", cfg.Flow.Profile)
	assert.Equal(t, "fixed_priority", cfg.Flow.TieBreak)
	assert.Equal(t, "transcript", cfg.Flow.AnswerSource)
	assert.Equal(t, "./datos", cfg.Store.Path)
	assert.Equal(t, filepath.Join("./datos", "narratives.jsonl"), cfg.Store.JSONLPath)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfig_Invalid(t *testing.T) {
	resetViperForTest(t)
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("NARRATIVA_FLOW_PROFILE", "enorme")

	err := loadConfig()
	assert.True(t, types.IsKind(err, types.KindConfiguration), "got %v", err)
}

func testRecords() []store.Record {
	ts := time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)
	return []store.Record{
		{Text: "Primera.", Timestamp: ts, SessionID: "s1", Kind: store.KindPrimary},
		{Text: "Segunda.", Timestamp: ts, SessionID: "s1", Kind: store.KindSecondary},
		{Text: "Otra.", Timestamp: ts, SessionID: "s2", Kind: store.KindPrimary},
	}
}

func TestFilterRecords(t *testing.T) {
	assert.Len(t, filterRecords(testRecords(), "", ""), 3)
	assert.Len(t, filterRecords(testRecords(), store.KindPrimary, ""), 2)

	got := filterRecords(testRecords(), store.KindPrimary, "s1")
	require.Len(t, got, 1)
	assert.Equal(t, "Primera.", got[0].Text)
}

func TestWriteRecords(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeRecords(&buf, testRecords(), "json"))
	var fromJSON []store.Record
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fromJSON))
	assert.Equal(t, testRecords(), fromJSON)

	buf.Reset()
	require.NoError(t, writeRecords(&buf, testRecords(), "yaml"))
	var fromYAML []store.Record
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &fromYAML))
	assert.Equal(t, testRecords(), fromYAML)

	buf.Reset()
	require.NoError(t, writeRecords(&buf, testRecords(), "table"))
	assert.Contains(t, buf.String(), "Segunda.")

	err := writeRecords(&buf, testRecords(), "xml")
	assert.True(t, types.IsKind(err, types.KindInvalidInput))
}

func TestRunValidate(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, runValidate(&buf, "../config/guion.toml", config.ProfileFull, true))
	out := buf.String()
	assert.Contains(t, out, "Guion válido")
	assert.Contains(t, out, "atencion")
	assert.Contains(t, out, "── abcd.direccion ──")

	err := runValidate(&buf, "../config/no-existe.toml", config.ProfileSimple, false)
	assert.True(t, types.IsKind(err, types.KindConfiguration), "got %v", err)
}
