package utils

import (
	"testing"
)

type scenarioReply struct {
	OutputScenario string `json:"output_scenario"`
}

func TestExtractAndParseJSON_ModelReplies(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain object",
			input: `{"output_scenario": "Ana respiró hondo."}`,
			want:  "Ana respiró hondo.",
		},
		{
			name:  "fenced",
			input: "```json\n{\"output_scenario\": \"Ana respiró hondo.\"}\n```",
			want:  "Ana respiró hondo.",
		},
		{
			name:  "fence after prose",
			input: "Aquí está tu escenario:\n```json\n{\"output_scenario\": \"Ana respiró hondo.\"}\n```\nEspero que te sirva.",
			want:  "Ana respiró hondo.",
		},
		{
			name:  "prose around object",
			input: "Claro: {\"output_scenario\": \"Ana respiró hondo.\"} ¡Listo!",
			want:  "Ana respiró hondo.",
		},
		{
			name:  "single quoted key and value",
			input: `{'output_scenario': 'Ana respiró hondo.'}`,
			want:  "Ana respiró hondo.",
		},
		{
			name:  "trailing comma",
			input: `{"output_scenario": "Ana respiró hondo.",}`,
			want:  "Ana respiró hondo.",
		},
		{
			name:  "literal newline in string",
			input: "{\"output_scenario\": \"Primero.\nDespués.\"}",
			want:  "Primero.\nDespués.",
		},
		{
			name:  "invalid escape",
			input: `{"output_scenario": "Ana \escribió"}`,
			want:  `Ana \escribió`,
		},
		{
			name:  "truncated",
			input: `{"output_scenario": "Ana respiró`,
			want:  "Ana respiró",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractAndParseJSON[scenarioReply](tt.input)
			if err != nil {
				t.Fatalf("ExtractAndParseJSON() unexpected error: %v", err)
			}
			if got.OutputScenario != tt.want {
				t.Errorf("OutputScenario = %q, want %q", got.OutputScenario, tt.want)
			}
		})
	}
}

func TestExtractAndParseJSON_Nullable(t *testing.T) {
	got, err := ExtractAndParseJSON[map[string]*string](`{"nombre": "Ana", "situacion": null}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["nombre"] == nil || *got["nombre"] != "Ana" {
		t.Errorf("nombre = %v, want Ana", got["nombre"])
	}
	if v, ok := got["situacion"]; !ok || v != nil {
		t.Errorf("situacion = %v (present %v), want explicit null", v, ok)
	}
}

func TestExtractAndParseJSON_Errors(t *testing.T) {
	for _, input := range []string{"", "   ", "no hay JSON aquí", "```\n```"} {
		if _, err := ExtractAndParseJSON[scenarioReply](input); err == nil {
			t.Errorf("ExtractAndParseJSON(%q) expected error", input)
		}
	}
}

func TestSanitizeStrings(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`{"a": "x\ty"}`, `{"a": "x\ty"}`},
		{"{\"a\": \"x\ty\"}", `{"a": "x\ty"}`},
		{`{"a": "C:\code"}`, `{"a": "C:\\code"}`},
		{`{"a": "dice \"hola\""}`, `{"a": "dice \"hola\""}`},
		{"{\"a\":\n\"b\"}", "{\"a\":\n\"b\"}"},
	}
	for _, tt := range tests {
		if got := sanitizeStrings(tt.in); got != tt.want {
			t.Errorf("sanitizeStrings(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
