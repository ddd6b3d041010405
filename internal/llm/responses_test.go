package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fakeResponseBody = `{
  "id": "resp_1",
  "object": "response",
  "created_at": 1700000000,
  "status": "completed",
  "model": "gpt-4o",
  "output": [{
    "type": "message",
    "id": "msg_1",
    "status": "completed",
    "role": "assistant",
    "content": [{"type": "output_text", "text": "  {\"output_scenario\": \"Ana respiró hondo.\"}  ", "annotations": []}]
  }]
}`

func newFakeResponsesServer(t *testing.T, captured *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/responses") {
			http.NotFound(w, r)
			return
		}
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, fakeResponseBody)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestResponsesGenerator_Generate(t *testing.T) {
	var req map[string]any
	srv := newFakeResponsesServer(t, &req)

	gen, err := NewResponsesGenerator(Config{APIKey: "sk-test", BaseURL: srv.URL + "/v1/"})
	require.NoError(t, err)

	out, err := gen.Generate(context.Background(), "Escribe algo", 0.3)
	require.NoError(t, err)
	assert.Equal(t, `{"output_scenario": "Ana respiró hondo."}`, out)

	assert.Equal(t, "gpt-4o", req["model"])
	assert.InDelta(t, 0.3, req["temperature"], 1e-9)
	assert.NotContains(t, req, "text")
}

func TestResponsesGenerator_GenerateJSON(t *testing.T) {
	var req map[string]any
	srv := newFakeResponsesServer(t, &req)

	gen, err := NewResponsesGenerator(Config{APIKey: "sk-test", BaseURL: srv.URL + "/v1/", Model: "gpt-4o-mini"})
	require.NoError(t, err)

	_, err = gen.GenerateJSON(context.Background(), "Escribe algo", 0, JSONFormat{
		Name:   "scenario",
		Schema: NullableStringsSchema([]string{"nombre"}),
	})
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", req["model"])
	text, ok := req["text"].(map[string]any)
	require.True(t, ok, "request carries a text format")
	format, ok := text["format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_schema", format["type"])
	assert.Equal(t, "scenario", format["name"])
	assert.Equal(t, true, format["strict"])
}
