package ui

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/app"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/config"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/llm"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/store"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/types"
)

func testScript() *config.Script {
	return &config.Script{
		Consent: config.ConsentSection{IntroAndConsent: "Acepta para continuar."},
		Collection: config.CollectionSection{
			Intro:      "¿Cómo te llamas?",
			Persona:    "Eres amable.",
			Questions:  []string{"¿Cómo te llamas?"},
			Completion: config.Completion{Marker: "Gracias!", Phrase: "Gracias!"},
		},
		Summaries: config.SummariesSection{
			Questions: []config.Question{{Key: "nombre", Text: "¿Cómo te llamas?"}},
			Personas:  []config.Persona{{Name: "Psicóloga", Text: "Voz."}},
		},
		Example: config.ExampleSection{Conversation: "Human: Ana", Scenario: "Ana."},
	}
}

func scriptedBackend(_ context.Context, prompt string, _ float64) (string, error) {
	switch {
	case strings.Contains(prompt, "algoritmo experto de extracción"):
		return `{"nombre": "Ana"}`, nil
	case strings.Contains(prompt, "Crea un escenario basado en las siguientes respuestas"):
		return `{"output_scenario": "Ana llegó tarde a clase."}`, nil
	}
	return "Gracias!", nil
}

func newTestApp(t *testing.T) (*app.ChatApp, *store.SQLiteStore) {
	t.Helper()
	db, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	opts := app.MachineOptions(types.FlowConfig{Profile: "simple", Consent: true}, 0.3)
	chat, err := app.NewChatAppWith(context.Background(), testScript(), llm.GeneratorFunc(scriptedBackend), db, db, opts)
	require.NoError(t, err)
	return chat, db
}
