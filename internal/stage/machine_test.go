package stage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/config"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/session"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/store"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	collectionIntro = "¡Hola! ¿Cómo te llamas y con qué pronombres te identificas?"
	reflectIntro    = "Vamos a reflexionar sobre tu narrativa."
	outro           = " A continuación verás tus narrativas."
)

func dimension(title string) config.Dimension {
	return config.Dimension{
		Title:       title,
		Description: "Descripción de " + title,
		Intro:       "Exploremos " + title + ".",
		Followups:   []string{"¿Qué notaste sobre " + title + "?"},
	}
}

func testScript() *config.Script {
	return &config.Script{
		Consent: config.ConsentSection{IntroAndConsent: "Acepta para continuar.", InformedConsent: "Datos anónimos."},
		Collection: config.CollectionSection{
			Intro:      collectionIntro,
			Persona:    "PERSONA_COLECCION",
			Questions:  []string{"¿Cómo te llamas?", "¿Qué pasó?"},
			Completion: config.Completion{Marker: "Gracias!", Phrase: "Gracias! Fin.", Outro: outro},
		},
		Summaries: config.SummariesSection{
			Questions: []config.Question{
				{Key: "nombre", Text: "¿Cómo te llamas?"},
				{Key: "situacion", Text: "¿Qué pasó?"},
			},
			Personas: []config.Persona{
				{Name: "Psicóloga", Text: "VOZ_UNO"},
				{Name: "Amiga", Text: "VOZ_DOS"},
			},
			ExtractionTask: config.DefaultExtractionTask,
		},
		Example: config.ExampleSection{Conversation: "Human: Ana\nAI: ¿Qué pasó?", Scenario: "Ana vivió algo."},
		Reflect: &config.ReflectSection{
			Intro:       reflectIntro,
			Persona:     "PERSONA_REFLEXION",
			Instruction: "Respira y escribe <Listo>.",
			Completion:  config.Completion{Marker: "Gracias!", Phrase: config.DefaultReflectPhrase},
		},
		ABCD: &config.ABCDSection{
			Persona:    "PERSONA_DIMENSION",
			UI:         map[string]string{"submit": "Enviar"},
			Completion: config.Completion{Marker: "Gracias!", Phrase: "Gracias!", Outro: config.DefaultDimensionOutro},
			Atencion:   dimension("Atención"),
			Bondad:     dimension("Bondad"),
			Claridad:   dimension("Claridad"),
			Direccion:  dimension("Dirección"),
		},
		Closing: config.ClosingSection{SurveyURL: "https://example.org/encuesta"},
	}
}

// fakeBackend answers by recognising which template a prompt came from.
type fakeBackend struct {
	mu         sync.Mutex
	chat       []string
	extraction string
	down       bool
	prompts    []string
}

func (f *fakeBackend) Generate(_ context.Context, prompt string, _ float64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.prompts = append(f.prompts, prompt)
	if f.down {
		return "", errors.New("connection refused")
	}

	switch {
	case strings.Contains(prompt, "algoritmo experto de extracción"):
		return f.extraction, nil
	case strings.Contains(prompt, "adaptar un escenario"):
		return `{"new_scenario": "versión adaptada"}`, nil
	case strings.Contains(prompt, "Un poco de contexto"):
		return `{"output_scenario": "segunda narrativa"}`, nil
	case strings.Contains(prompt, "Crea un escenario basado en las siguientes respuestas"):
		voice := strings.SplitN(prompt, "\n", 2)[0]
		return fmt.Sprintf(`{"output_scenario": "narrativa de %s"}`, voice), nil
	}

	if len(f.chat) == 0 {
		return "", errors.New("unexpected chat call")
	}
	reply := f.chat[0]
	f.chat = f.chat[1:]
	return reply, nil
}

func (f *fakeBackend) find(substr string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, p := range f.prompts {
		if strings.Contains(p, substr) {
			out = append(out, p)
		}
	}
	return out
}

func (f *fakeBackend) setDown(down bool) {
	f.mu.Lock()
	f.down = down
	f.mu.Unlock()
}

type memorySink struct {
	records []store.Record
	err     error
}

func (s *memorySink) Append(_ context.Context, r store.Record) error {
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, r)
	return nil
}

var fixedNow = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

func newMachine(t *testing.T, gen *fakeBackend, sink store.Sink, opts Options) *Machine {
	t.Helper()
	opts.Now = func() time.Time { return fixedNow }
	m, err := New(context.Background(), testScript(), gen, sink, opts)
	require.NoError(t, err)
	return m
}

func TestMachine_SimpleEndToEnd(t *testing.T) {
	ctx := context.Background()
	gen := &fakeBackend{
		chat:       []string{"Gracias, Ana. **¿Qué pasó?**", "Gracias! Fin."},
		extraction: `{"nombre": "Ana", "situacion": "Un alumno gritó en clase"}`,
	}
	sink := &memorySink{}
	m := newMachine(t, gen, sink, Options{Profile: config.ProfileSimple, Consent: true})

	s0 := m.NewSession()
	s1, d := m.Begin(s0)
	assert.Equal(t, session.StageStart, s0.Stage)
	assert.Equal(t, session.StageConsent, d.Stage)
	assert.Equal(t, "Acepta para continuar.", d.Consent)
	assert.Equal(t, "Datos anónimos.", d.InformedConsent)

	s2, d, err := m.HandleChoice(ctx, s1, Choice{Kind: ChoiceConsent})
	require.NoError(t, err)
	assert.Equal(t, session.StageCollectingPrimary, s2.Stage)
	assert.Equal(t, collectionIntro, d.Reply)

	s3, d, err := m.HandleTurn(ctx, s2, "Ana, ella")
	require.NoError(t, err)
	assert.Equal(t, session.StageCollectingPrimary, s3.Stage)
	assert.Equal(t, "Gracias, Ana. **¿Qué pasó?**", d.Reply)
	assert.Len(t, s2.Memory(session.StageCollectingPrimary), 1, "input state untouched")

	s4, d, err := m.HandleTurn(ctx, s3, "Un alumno gritó en clase")
	require.NoError(t, err)
	assert.Equal(t, session.StageSelectNarrative, s4.Stage)
	assert.Equal(t, "Gracias! Fin."+outro, d.Reply)
	require.Len(t, d.Candidates, 2)
	assert.Equal(t, Candidate{Index: 0, Persona: "Psicóloga", Text: "narrativa de VOZ_UNO"}, d.Candidates[0])
	assert.Equal(t, Candidate{Index: 1, Persona: "Amiga", Text: "narrativa de VOZ_DOS"}, d.Candidates[1])
	require.NotNil(t, s4.Answers["nombre"])
	assert.Equal(t, "Ana", *s4.Answers["nombre"])

	// The second turn saw the first exchange as history.
	turns := gen.find("PERSONA_COLECCION")
	require.Len(t, turns, 2)
	assert.Contains(t, turns[1], "AI: "+collectionIntro+"\nHuman: Ana, ella\nAI: Gracias, Ana. **¿Qué pasó?**\nHuman: Un alumno gritó en clase\nAI:")

	extraction := gen.find("algoritmo experto de extracción")
	require.Len(t, extraction, 1)
	assert.Contains(t, extraction[0], "AI: "+collectionIntro+"\nHUMAN: Ana, ella\n")

	main := gen.find("Crea un escenario basado en las siguientes respuestas")
	require.Len(t, main, 2)
	for _, p := range main {
		assert.Contains(t, p, "Pregunta: ¿Qué pasó?\nRespuesta: Un alumno gritó en clase\n")
	}

	s5, d, err := m.HandleChoice(ctx, s4, Choice{Kind: ChoiceSelect, Index: 1})
	require.NoError(t, err)
	assert.Equal(t, session.StageRefinePrimary, s5.Stage)
	assert.Equal(t, "narrativa de VOZ_DOS", d.Narrative)

	s6, d, err := m.HandleTurn(ctx, s5, "hazla más corta")
	require.NoError(t, err)
	assert.Equal(t, "versión adaptada", d.Suggestion)
	assert.Equal(t, "**Versión adaptada sugerida:**\n\n> versión adaptada", d.Reply)
	assert.Equal(t, "narrativa de VOZ_DOS", d.Narrative, "suggestion is not applied until accepted")

	s7, d, err := m.HandleChoice(ctx, s6, Choice{Kind: ChoiceAcceptSuggestion})
	require.NoError(t, err)
	assert.Equal(t, "versión adaptada", d.Narrative)
	assert.Empty(t, d.Suggestion)

	s8, d, err := m.HandleChoice(ctx, s7, Choice{Kind: ChoiceEdit, Text: "  Mi versión final.  "})
	require.NoError(t, err)
	assert.Equal(t, "Mi versión final.", d.Narrative)
	assert.Equal(t, []session.Revision{
		{Actor: session.ActorAI, Text: "narrativa de VOZ_DOS"},
		{Actor: session.ActorAI, Text: "versión adaptada"},
		{Actor: session.ActorHuman, Text: "Mi versión final."},
	}, s8.Primary.Revisions)

	s9, d, err := m.HandleChoice(ctx, s8, Choice{Kind: ChoiceSave})
	require.NoError(t, err)
	assert.Equal(t, session.StageDone, s9.Stage)
	assert.Empty(t, d.Notice)
	require.NotNil(t, d.Final)
	assert.Equal(t, []string{"Mi versión final."}, d.Final.Narratives)
	assert.Equal(t, "https://example.org/encuesta", d.Final.SurveyURL)
	assert.Equal(t, DefaultFinalTitle, d.Final.Title)

	require.Len(t, sink.records, 1)
	assert.Equal(t, store.Record{Text: "Mi versión final.", Timestamp: fixedNow, SessionID: s0.ID, Kind: store.KindPrimary}, sink.records[0])
}

func TestMachine_BackendDownLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	gen := &fakeBackend{
		chat:       []string{"Gracias! Fin."},
		extraction: `{"nombre": "Ana", "situacion": null}`,
	}
	m := newMachine(t, gen, nil, Options{Profile: config.ProfileSimple})

	s1, _ := m.Begin(m.NewSession())
	require.Equal(t, session.StageCollectingPrimary, s1.Stage)

	gen.setDown(true)
	for i := 0; i < 3; i++ {
		got, d, err := m.HandleTurn(ctx, s1, "Ana, ella")
		require.Error(t, err)
		assert.Same(t, s1, got)
		assert.True(t, types.IsRetryable(err))
		assert.True(t, types.IsKind(err, types.KindGeneration))
		assert.Equal(t, session.StageCollectingPrimary, d.Stage)
		assert.Len(t, s1.Memory(session.StageCollectingPrimary), 1)
	}

	gen.setDown(false)
	s2, d, err := m.HandleTurn(ctx, s1, "Ana, ella")
	require.NoError(t, err)
	assert.Equal(t, session.StageSelectNarrative, s2.Stage)
	assert.Len(t, d.Candidates, 2)
	assert.Nil(t, s2.Answers["situacion"])
}

func TestMachine_FailedSynthesisKeepsCollecting(t *testing.T) {
	ctx := context.Background()
	gen := &fakeBackend{
		chat:       []string{"Gracias! Fin.", "Gracias! Fin."},
		extraction: `{"nombre": "Ana"}`,
	}
	m := newMachine(t, gen, nil, Options{Profile: config.ProfileSimple})
	s1, _ := m.Begin(m.NewSession())

	got, _, err := m.HandleTurn(ctx, s1, "Ana")
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindExtraction))
	assert.Same(t, s1, got)
	assert.Nil(t, s1.Answers)
	assert.Empty(t, gen.find("Crea un escenario basado en las siguientes respuestas"))
}

func TestMachine_SelectRoundTrip(t *testing.T) {
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		gen := &fakeBackend{
			chat:       []string{"Gracias! Fin."},
			extraction: `{"nombre": "Ana", "situacion": "x"}`,
		}
		m := newMachine(t, gen, nil, Options{Profile: config.ProfileSimple})
		s, _ := m.Begin(m.NewSession())
		s, _, err := m.HandleTurn(ctx, s, "hola")
		require.NoError(t, err)

		selected, d, err := m.HandleChoice(ctx, s, Choice{Kind: ChoiceSelect, Index: i})
		require.NoError(t, err)
		assert.Equal(t, s.Candidates[i], d.Narrative)
		assert.Equal(t, s.Candidates[i], selected.Primary.Text())
		assert.Equal(t, i, selected.Primary.PersonaIndex)
	}
}

func TestMachine_InvalidInput(t *testing.T) {
	ctx := context.Background()
	gen := &fakeBackend{
		chat:       []string{"Gracias! Fin."},
		extraction: `{"nombre": "Ana", "situacion": "x"}`,
	}
	m := newMachine(t, gen, nil, Options{Profile: config.ProfileSimple})
	s, _ := m.Begin(m.NewSession())

	_, _, err := m.HandleTurn(ctx, s, "   ")
	assert.True(t, types.IsKind(err, types.KindInvalidInput))

	_, _, err = m.HandleChoice(ctx, s, Choice{Kind: ChoiceSelect, Index: 0})
	assert.True(t, types.IsKind(err, types.KindInvalidInput))

	s, _, err = m.HandleTurn(ctx, s, "hola")
	require.NoError(t, err)
	require.Equal(t, session.StageSelectNarrative, s.Stage)

	for _, c := range []Choice{
		{Kind: ChoiceSelect, Index: -1},
		{Kind: ChoiceSelect, Index: 2},
		{Kind: ChoiceSave},
		{Kind: ChoiceRatings, Ratings: map[string]int{"atencion": 1}},
		{Kind: "dance"},
	} {
		got, _, err := m.HandleChoice(ctx, s, c)
		assert.Same(t, s, got)
		assert.True(t, types.IsKind(err, types.KindInvalidInput), "%+v", c)
		assert.True(t, types.IsRetryable(err))
	}

	_, _, err = m.HandleTurn(ctx, s, "otra cosa")
	assert.True(t, types.IsKind(err, types.KindInvalidInput))

	refine, _, err := m.HandleChoice(ctx, s, Choice{Kind: ChoiceSelect, Index: 0})
	require.NoError(t, err)
	_, _, err = m.HandleChoice(ctx, refine, Choice{Kind: ChoiceAcceptSuggestion})
	assert.True(t, types.IsKind(err, types.KindInvalidInput))
	_, _, err = m.HandleChoice(ctx, refine, Choice{Kind: ChoiceEdit, Text: " "})
	assert.True(t, types.IsKind(err, types.KindInvalidInput))
}

func TestMachine_FullFlowWithTie(t *testing.T) {
	ctx := context.Background()
	gen := &fakeBackend{
		chat: []string{
			"Gracias! Fin.",
			"Cierra los ojos y escribe <Listo>.",
			"Gracias! Gracias por compartir.",
			"Gracias!",
		},
		extraction: `{"nombre": "Ana", "situacion": "Un grito"}`,
	}
	sink := &memorySink{}
	m := newMachine(t, gen, sink, Options{Profile: config.ProfileFull})

	s, d := m.Begin(m.NewSession())
	assert.Equal(t, session.StageCollectingPrimary, s.Stage)
	assert.Equal(t, collectionIntro, d.Reply)

	s, _, err := m.HandleTurn(ctx, s, "Ana, un grito")
	require.NoError(t, err)
	s, _, err = m.HandleChoice(ctx, s, Choice{Kind: ChoiceSelect, Index: 0})
	require.NoError(t, err)

	s, d, err = m.HandleChoice(ctx, s, Choice{Kind: ChoiceSave})
	require.NoError(t, err)
	assert.Equal(t, session.StageReflect, s.Stage)
	assert.Equal(t, reflectIntro, d.Reply)
	require.Len(t, sink.records, 1)

	s, d, err = m.HandleTurn(ctx, s, "Me siento tensa")
	require.NoError(t, err)
	assert.Equal(t, session.StageReflect, s.Stage)
	assert.Equal(t, "Cierra los ojos y escribe <Listo>.", d.Reply)

	s, d, err = m.HandleTurn(ctx, s, "<Listo>")
	require.NoError(t, err)
	assert.Equal(t, session.StageRateDimensions, s.Stage)
	require.Len(t, d.Dimensions, 4)
	assert.Equal(t, "atencion", d.Dimensions[0].Key)
	assert.Equal(t, "Enviar", d.RatingUI["submit"])

	s, d, err = m.HandleChoice(ctx, s, Choice{Kind: ChoiceRatings, Ratings: map[string]int{
		"atencion": 5, "bondad": 3, "claridad": 5, "direccion": 2,
	}})
	require.NoError(t, err)
	assert.Equal(t, session.StageAwaitTieBreak, s.Stage)
	require.Len(t, d.TieOptions, 2)
	assert.Equal(t, "atencion", d.TieOptions[0].Key)
	assert.Equal(t, "Claridad", d.TieOptions[1].Title)

	got, _, err := m.HandleChoice(ctx, s, Choice{Kind: ChoiceDimension, Key: "bondad"})
	assert.True(t, types.IsKind(err, types.KindInvalidInput))
	assert.Same(t, s, got)

	s, d, err = m.HandleChoice(ctx, s, Choice{Kind: ChoiceDimension, Key: "claridad"})
	require.NoError(t, err)
	assert.Equal(t, session.StageCollectingDimension, s.Stage)
	assert.Equal(t, "claridad", s.Dimension)
	assert.Equal(t, "Exploremos Claridad.", d.Reply)
	assert.Empty(t, s.Tied)

	s, d, err = m.HandleTurn(ctx, s, "No entendía nada")
	require.NoError(t, err)
	assert.Equal(t, session.StageRefineSecondary, s.Stage)
	assert.Equal(t, "segunda narrativa", d.Narrative)
	assert.Equal(t, "Gracias!"+config.DefaultDimensionOutro, d.Reply)

	second := gen.find("Un poco de contexto")
	require.Len(t, second, 1)
	assert.True(t, strings.HasPrefix(second[0], "VOZ_UNO\n"))
	assert.Contains(t, second[0], "< narrativa de VOZ_UNO >")
	reflectAt := strings.Index(second[0], "AI: "+reflectIntro)
	dimensionAt := strings.Index(second[0], "AI: Exploremos Claridad.")
	assert.True(t, reflectAt >= 0 && reflectAt < dimensionAt, "reflection transcript comes first")

	s, d, err = m.HandleChoice(ctx, s, Choice{Kind: ChoiceSave})
	require.NoError(t, err)
	assert.Equal(t, session.StageDone, s.Stage)
	assert.Equal(t, []string{"narrativa de VOZ_UNO", "segunda narrativa"}, d.Final.Narratives)

	require.Len(t, sink.records, 2)
	assert.Equal(t, store.KindPrimary, sink.records[0].Kind)
	assert.Equal(t, store.KindSecondary, sink.records[1].Kind)
	assert.Equal(t, "segunda narrativa", sink.records[1].Text)
}

func TestMachine_UniqueMaxSkipsTieBreak(t *testing.T) {
	m := newMachine(t, &fakeBackend{}, nil, Options{Profile: config.ProfileFull})
	s := m.NewSession()
	s.Stage = session.StageRateDimensions

	next, d, err := m.HandleChoice(context.Background(), s, Choice{Kind: ChoiceRatings, Ratings: map[string]int{
		"atencion": 4, "bondad": 2, "claridad": 3, "direccion": 1,
	}})
	require.NoError(t, err)
	assert.Equal(t, session.StageCollectingDimension, next.Stage)
	assert.Equal(t, "atencion", next.Dimension)
	assert.Equal(t, "Exploremos Atención.", d.Reply)
	assert.Equal(t, 4, next.Ratings["atencion"])
}

func TestMachine_FixedPriorityTieBreak(t *testing.T) {
	m := newMachine(t, &fakeBackend{}, nil, Options{Profile: config.ProfileFull, TieBreak: "fixed_priority"})
	s := m.NewSession()
	s.Stage = session.StageRateDimensions

	next, _, err := m.HandleChoice(context.Background(), s, Choice{Kind: ChoiceRatings, Ratings: map[string]int{
		"atencion": 2, "bondad": 5, "claridad": 5, "direccion": 1,
	}})
	require.NoError(t, err)
	assert.Equal(t, session.StageCollectingDimension, next.Stage)
	assert.Equal(t, "bondad", next.Dimension)
}

func TestMachine_SecondNarrativeWithoutSelectionIsFatal(t *testing.T) {
	gen := &fakeBackend{chat: []string{"Gracias!"}}
	m := newMachine(t, gen, nil, Options{Profile: config.ProfileFull})
	s := m.NewSession()
	s.Stage = session.StageCollectingDimension
	s.Dimension = "bondad"

	got, _, err := m.HandleTurn(context.Background(), s, "respuesta")
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindInvariant))
	assert.True(t, types.IsFatal(err))
	assert.Same(t, s, got)
}

func TestMachine_SaveFailureBecomesNotice(t *testing.T) {
	m := newMachine(t, &fakeBackend{}, &memorySink{err: errors.New("sheet unavailable")}, Options{Profile: config.ProfileSimple})
	s := m.NewSession()
	s.Stage = session.StageRefinePrimary
	s.Primary = &session.Narrative{Revisions: []session.Revision{{Actor: session.ActorAI, Text: "texto"}}}

	next, d, err := m.HandleChoice(context.Background(), s, Choice{Kind: ChoiceSave})
	require.NoError(t, err)
	assert.Equal(t, session.StageDone, next.Stage)
	assert.Contains(t, d.Notice, "sheet unavailable")
	assert.Equal(t, []string{"texto"}, d.Final.Narratives)
}

func TestMachine_TranscriptAnswerSource(t *testing.T) {
	gen := &fakeBackend{chat: []string{"Gracias! Fin."}}
	m := newMachine(t, gen, nil, Options{Profile: config.ProfileSimple, AnswerSource: AnswersTranscript})
	s, _ := m.Begin(m.NewSession())

	next, _, err := m.HandleTurn(context.Background(), s, "Soy Ana")
	require.NoError(t, err)
	assert.Equal(t, session.StageSelectNarrative, next.Stage)
	assert.Nil(t, next.Answers)
	assert.Empty(t, gen.find("algoritmo experto de extracción"))

	transcript := "AI: " + collectionIntro + "\nHUMAN: Soy Ana\nAI: Gracias! Fin."
	for _, p := range gen.find("Crea un escenario basado en las siguientes respuestas") {
		assert.Contains(t, p, "Respuesta: "+transcript+"\n")
	}
}

func TestMachine_ProfileMismatch(t *testing.T) {
	m := newMachine(t, &fakeBackend{}, nil, Options{Profile: config.ProfileSimple})
	s := session.New(config.ProfileFull, fixedNow)
	s.Stage = session.StageCollectingPrimary

	_, _, err := m.HandleTurn(context.Background(), s, "hola")
	assert.True(t, types.IsKind(err, types.KindInvariant))
}

func TestMachine_ViewAndBeginAreStable(t *testing.T) {
	m := newMachine(t, &fakeBackend{}, nil, Options{Profile: config.ProfileSimple, Consent: true})
	s, _ := m.Begin(m.NewSession())

	again, d := m.Begin(s)
	assert.Same(t, s, again)
	assert.Equal(t, m.View(s), d)
}

func TestNew_RejectsFullProfileWithoutReflection(t *testing.T) {
	script := testScript()
	script.Reflect = nil
	_, err := New(context.Background(), script, &fakeBackend{}, nil, Options{Profile: config.ProfileFull})
	assert.True(t, types.IsKind(err, types.KindConfiguration))

	_, err = New(context.Background(), testScript(), &fakeBackend{}, nil, Options{AnswerSource: "guess"})
	assert.True(t, types.IsKind(err, types.KindConfiguration))
}

func TestNew_CompletionPolicy(t *testing.T) {
	_, err := New(context.Background(), testScript(), &fakeBackend{}, nil, Options{CompletionPolicy: "exact"})
	assert.True(t, types.IsKind(err, types.KindConfiguration), "got %v", err)

	for _, name := range []string{"", "substring", "trailing"} {
		_, err := New(context.Background(), testScript(), &fakeBackend{}, nil, Options{CompletionPolicy: name})
		assert.NoError(t, err, name)
	}
}

func TestFinal_Markdown(t *testing.T) {
	f := &Final{Title: DefaultFinalTitle, Message: DefaultFinalMessage, Narratives: []string{"línea uno\nlínea dos"}, SurveyURL: "https://example.org/s"}
	md := f.Markdown()
	assert.True(t, strings.HasPrefix(md, "## 🎉 ¡Gracias por participar!\n\n"))
	assert.Contains(t, md, "> línea uno\n> línea dos")
	assert.Contains(t, md, "[Ir a encuesta de retroalimentación](https://example.org/s)")

	var none *Final
	assert.Empty(t, none.Markdown())
}
