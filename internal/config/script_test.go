package config

import (
	"strings"
	"testing"

	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/types"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const simpleScript = `
[consent]
intro_and_consent = "Hola, ¿aceptas participar?"

[collection]
intro = "¿Cómo te llamas?"
persona = "Eres un asistente empático."
questions = ["¿Cómo te llamas?", "¿Qué pasó?"]

[[summaries.questions]]
key = "nombre"
text = "¿Cómo te llamas?"

[[summaries.questions]]
key = "situacion"
text = "¿Qué pasó?"

[[summaries.personas]]
name = "Amiga"
text = "Eres una amiga cercana."

[example]
conversation = "Human: Ana\nAI: ¿Qué pasó?"
scenario = "  Ana vivió algo difícil.  "
`

func writeScript(t *testing.T, content string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/guion.toml", []byte(content), 0644))
	return fs
}

func TestLoadScriptFs_Simple(t *testing.T) {
	script, err := LoadScriptFs(writeScript(t, simpleScript), "/guion.toml")
	require.NoError(t, err)

	assert.Equal(t, []string{"¿Cómo te llamas?", "¿Qué pasó?"}, script.Collection.Questions)
	require.Len(t, script.Summaries.Questions, 2)
	assert.Equal(t, "nombre", script.Summaries.Questions[0].Key)
	assert.Equal(t, "situacion", script.Summaries.Questions[1].Key)
	assert.Equal(t, "Ana vivió algo difícil.", script.Example.Scenario)
	assert.False(t, script.HasReflection())

	// Completion defaults
	assert.Equal(t, DefaultMarker, script.Collection.Completion.Marker)
	assert.Equal(t, DefaultCollectionPhrase, script.Collection.Completion.Phrase)
	assert.Equal(t, DefaultExtractionTask, script.Summaries.ExtractionTask)
}

func TestLoadScriptFs_ShippedExample(t *testing.T) {
	script, err := LoadScript("../../config/guion.toml")
	require.NoError(t, err)

	require.True(t, script.HasReflection())
	assert.Len(t, script.Summaries.Personas, 3)
	assert.Equal(t, "Psicóloga", script.Summaries.Personas[0].Name)
	assert.Equal(t, DefaultReflectPhrase, script.Reflect.Completion.Phrase)
	assert.Equal(t, DefaultDimensionOutro, script.ABCD.Completion.Outro)

	for _, key := range DimensionKeys {
		dim, ok := script.ABCD.Dimension(key)
		require.True(t, ok, key)
		assert.NotEmpty(t, dim.Followups, key)
	}
	assert.Equal(t, "1 = nada, 5 = mucho", script.ABCD.UI["scale"])
}

func TestLoadScriptFs_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "empty question list",
			content: replace(simpleScript, `questions = ["¿Cómo te llamas?", "¿Qué pasó?"]`, `questions = []`),
		},
		{
			name:    "missing personas",
			content: cut(simpleScript, "[[summaries.personas]]\nname = \"Amiga\"\ntext = \"Eres una amiga cercana.\"\n"),
		},
		{
			name:    "unknown section",
			content: simpleScript + "\n[extra]\nfoo = \"bar\"\n",
		},
		{
			name:    "question key not an identifier",
			content: replace(simpleScript, `key = "situacion"`, `key = "la situación"`),
		},
		{
			name:    "duplicate question key",
			content: replace(simpleScript, `key = "situacion"`, `key = "nombre"`),
		},
		{
			name: "fifth dimension",
			content: simpleScript + `
[abcd]
persona = "p"
[abcd.atencion]
title = "A"
description = "d"
intro = "i"
followups = ["q"]
[abcd.bondad]
title = "B"
description = "d"
intro = "i"
followups = ["q"]
[abcd.claridad]
title = "C"
description = "d"
intro = "i"
followups = ["q"]
[abcd.direccion]
title = "D"
description = "d"
intro = "i"
followups = ["q"]
[abcd.energia]
title = "E"
description = "d"
intro = "i"
followups = ["q"]
`,
		},
		{
			name: "missing dimension",
			content: simpleScript + `
[abcd]
persona = "p"
[abcd.atencion]
title = "A"
description = "d"
intro = "i"
followups = ["q"]
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScriptFs(writeScript(t, tt.content), "/guion.toml")
			require.Error(t, err)
			assert.True(t, types.IsKind(err, types.KindConfiguration), "got %v", err)
		})
	}
}

func TestLoadScriptFs_MissingFile(t *testing.T) {
	_, err := LoadScriptFs(afero.NewMemMapFs(), "/nope.toml")
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindConfiguration))
}

func replace(s, old, new string) string {
	return strings.Replace(s, old, new, 1)
}

func cut(s, part string) string {
	return replace(s, part, "")
}
