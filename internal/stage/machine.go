/*
Package stage drives a session through the guided conversation.

The machine is pure with respect to session state: every call takes a state
and returns a new one, leaving its input untouched. On any failure the input
state is returned as is, so a host can retry the same call.
*/
package stage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/chain"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/completion"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/config"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/extraction"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/llm"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/logger"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/narrative"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/session"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/tiebreak"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/prompts"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/store"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/types"
)

// AnswerSource selects what fills the answer slots of the synthesis template.
type AnswerSource string

const (
	// AnswersExtracted runs the extraction engine and uses its literal answers.
	AnswersExtracted AnswerSource = "extracted"
	// AnswersTranscript broadcasts the whole collection transcript into every slot.
	AnswersTranscript AnswerSource = "transcript"
)

// Options configure one deployment of the machine.
type Options struct {
	Profile          config.Profile
	Consent          bool
	CompletionPolicy string
	TieBreak         tiebreak.Policy
	AnswerSource     AnswerSource
	Temperature      float64
	// SurveyURL overrides closing.survey_url from the script.
	SurveyURL string
	// Now is the clock; time.Now when nil.
	Now func() time.Time
}

// Machine holds the compiled templates and collaborators for one script.
type Machine struct {
	script   *config.Script
	catalog  *prompts.Catalog
	opts     Options
	sink     store.Sink
	selector *tiebreak.Selector

	extractor *extraction.Engine
	synth     *narrative.Synthesizer

	turns     map[session.Stage]*chain.Chain[string]
	dims      map[string]*chain.Chain[string]
	detectors map[session.Stage]*completion.Detector
}

// New validates script against the profile and compiles every chain.
// sink may be nil, in which case saving only advances the flow.
func New(ctx context.Context, script *config.Script, gen llm.Generator, sink store.Sink, opts Options) (*Machine, error) {
	const op = "new stage machine"

	if opts.Profile == "" {
		opts.Profile = config.ProfileSimple
	}
	if opts.AnswerSource == "" {
		opts.AnswerSource = AnswersExtracted
	}
	if opts.AnswerSource != AnswersExtracted && opts.AnswerSource != AnswersTranscript {
		return nil, types.ConfigurationError(op, fmt.Sprintf("unknown answer source %q", opts.AnswerSource), nil)
	}
	if _, err := completion.PolicyByName(opts.CompletionPolicy, ""); err != nil {
		return nil, types.ConfigurationError(op, "invalid flow options", err)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	catalog, err := prompts.Build(script, opts.Profile)
	if err != nil {
		return nil, err
	}
	selector, err := tiebreak.New(opts.TieBreak, nil)
	if err != nil {
		return nil, err
	}

	m := &Machine{
		script:    script,
		catalog:   catalog,
		opts:      opts,
		sink:      sink,
		selector:  selector,
		turns:     make(map[session.Stage]*chain.Chain[string]),
		dims:      make(map[string]*chain.Chain[string]),
		detectors: make(map[session.Stage]*completion.Detector),
	}

	if m.extractor, err = extraction.NewEngine(ctx, catalog, gen); err != nil {
		return nil, err
	}
	if m.synth, err = narrative.New(ctx, catalog, gen, opts.Temperature); err != nil {
		return nil, err
	}

	turn := func(name, tmpl string) (*chain.Chain[string], error) {
		return chain.New(ctx, name, tmpl, gen, chain.Options{Temperature: opts.Temperature}, chain.Text)
	}
	detector := func(c config.Completion) *completion.Detector {
		// The name was checked above.
		policy, _ := completion.PolicyByName(opts.CompletionPolicy, c.Phrase)
		return completion.New(policy, c)
	}

	if m.turns[session.StageCollectingPrimary], err = turn("collection", catalog.Collection); err != nil {
		return nil, err
	}
	m.detectors[session.StageCollectingPrimary] = detector(script.Collection.Completion)

	if opts.Profile == config.ProfileFull {
		if m.turns[session.StageReflect], err = turn("reflect", catalog.Reflect); err != nil {
			return nil, err
		}
		m.detectors[session.StageReflect] = detector(script.Reflect.Completion)
		for _, key := range config.DimensionKeys {
			if m.dims[key], err = turn("abcd_"+key, catalog.Dimensions[key]); err != nil {
				return nil, err
			}
		}
		m.detectors[session.StageCollectingDimension] = detector(script.ABCD.Completion)
	}

	slog.Debug("stage machine ready",
		"profile", opts.Profile,
		"consent", opts.Consent,
		"personas", len(catalog.Personas),
		"questions", len(catalog.AnswerKeys),
		"tie_break", selector.Policy(),
		"answer_source", opts.AnswerSource)
	return m, nil
}

// Catalog returns the compiled templates.
func (m *Machine) Catalog() *prompts.Catalog { return m.catalog }

// Profile returns the flow profile the machine runs.
func (m *Machine) Profile() config.Profile { return m.opts.Profile }

// NewSession returns a fresh state for this machine's profile.
func (m *Machine) NewSession() *session.State {
	return session.New(m.opts.Profile, m.opts.Now())
}

// Begin moves a fresh session to its first interactive stage.
// Any other state is returned unchanged with its current view.
func (m *Machine) Begin(state *session.State) (*session.State, Display) {
	if state.Stage != session.StageStart {
		return state, m.View(state)
	}
	next := state.Clone()
	if m.opts.Consent {
		next.Stage = session.StageConsent
	} else {
		m.enterCollection(next)
	}
	m.touch(next)
	slog.Info("session started", "session", next.ID, "stage", next.Stage, "profile", next.Profile)
	return next, m.View(next)
}

// HandleTurn processes one free-text user turn.
func (m *Machine) HandleTurn(ctx context.Context, state *session.State, text string) (*session.State, Display, error) {
	const op = "handle turn"

	logger.SetSession(ctx, state.ID, string(state.Stage))
	logger.SetLastInput(ctx, text)

	if err := m.checkProfile(state); err != nil {
		return state, m.View(state), err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return state, m.View(state), types.InvalidInputError(op, "empty message")
	}

	switch state.Stage {
	case session.StageCollectingPrimary, session.StageReflect, session.StageCollectingDimension:
		return m.chatTurn(ctx, state, text)
	case session.StageRefinePrimary, session.StageRefineSecondary:
		return m.adaptTurn(ctx, state, text)
	default:
		return state, m.View(state), m.wrongStage(op, state)
	}
}

func (m *Machine) chatTurn(ctx context.Context, state *session.State, text string) (*session.State, Display, error) {
	c, err := m.turnChain(state)
	if err != nil {
		return state, m.View(state), err
	}

	memory := state.Memory(state.Stage)
	reply, err := c.Invoke(ctx, map[string]any{
		prompts.KeyHistory: memory.History(),
		prompts.KeyInput:   text,
	})
	if err != nil {
		return state, m.View(state), err
	}

	result := m.detectors[state.Stage].Check(reply)

	next := state.Clone()
	next.Append(state.Stage,
		session.Message{Role: session.RoleHuman, Text: text},
		session.Message{Role: session.RoleAssistant, Text: reply},
	)

	if !result.Complete {
		m.touch(next)
		d := m.View(next)
		d.Reply = result.Display
		return next, d, nil
	}

	slog.Info("stage complete", "session", state.ID, "stage", state.Stage, "turns", len(next.Memory(state.Stage)))

	switch state.Stage {
	case session.StageCollectingPrimary:
		if err := m.completeCollection(ctx, next); err != nil {
			return state, m.View(state), err
		}
	case session.StageReflect:
		next.Stage = session.StageRateDimensions
	case session.StageCollectingDimension:
		if err := m.completeDimension(ctx, next); err != nil {
			return state, m.View(state), err
		}
	}

	m.touch(next)
	d := m.View(next)
	d.Reply = result.Display
	return next, d, nil
}

func (m *Machine) turnChain(state *session.State) (*chain.Chain[string], error) {
	const op = "select template"

	if state.Stage == session.StageCollectingDimension {
		c, ok := m.dims[state.Dimension]
		if !ok {
			return nil, types.InvariantError(op, fmt.Sprintf("no template for dimension %q", state.Dimension))
		}
		return c, nil
	}
	c, ok := m.turns[state.Stage]
	if !ok {
		return nil, types.InvariantError(op, fmt.Sprintf("profile %s has no template for stage %s", m.opts.Profile, state.Stage))
	}
	return c, nil
}

// completeCollection extracts answers and generates the candidates on next.
func (m *Machine) completeCollection(ctx context.Context, next *session.State) error {
	transcript := next.Memory(session.StageCollectingPrimary).Transcript()

	var vars map[string]any
	switch m.opts.AnswerSource {
	case AnswersTranscript:
		vars = extraction.Broadcast(m.catalog.AnswerKeys, transcript)
	default:
		answers, err := m.extractor.Extract(ctx, transcript)
		if err != nil {
			return err
		}
		next.Answers = answers
		vars = answers.Values()
	}

	candidates, err := m.synth.Candidates(ctx, vars)
	if err != nil {
		return err
	}
	next.Candidates = candidates
	next.Stage = session.StageSelectNarrative
	return nil
}

// completeDimension generates the second narrative from the reflection and dimension transcripts.
func (m *Machine) completeDimension(ctx context.Context, next *session.State) error {
	if next.Primary == nil {
		return types.InvariantError("second narrative", "no narrative was selected")
	}

	transcript := strings.Join([]string{
		next.Memory(session.StageReflect).Transcript(),
		next.Memory(session.StageCollectingDimension).Transcript(),
	}, "\n")

	text, err := m.synth.Second(ctx, transcript, next.Primary.PersonaIndex, next.Primary.Text())
	if err != nil {
		return err
	}
	next.Secondary = &session.Narrative{
		PersonaIndex: next.Primary.PersonaIndex,
		Revisions:    []session.Revision{{Actor: session.ActorAI, Text: text}},
	}
	next.Suggestion = ""
	next.Stage = session.StageRefineSecondary
	return nil
}

// adaptTurn treats the text as a request to rewrite the current narrative.
func (m *Machine) adaptTurn(ctx context.Context, state *session.State, text string) (*session.State, Display, error) {
	n, err := current(state)
	if err != nil {
		return state, m.View(state), err
	}

	suggestion, err := m.synth.Adapt(ctx, n.Text(), text)
	if err != nil {
		return state, m.View(state), err
	}

	next := state.Clone()
	next.Suggestion = suggestion
	next.Append(state.Stage,
		session.Message{Role: session.RoleHuman, Text: text},
		session.Message{Role: session.RoleAssistant, Text: suggestion},
	)
	m.touch(next)

	d := m.View(next)
	d.Reply = SuggestionMarkdown(suggestion)
	return next, d, nil
}

// HandleChoice applies a structured choice such as a selection or a save.
func (m *Machine) HandleChoice(ctx context.Context, state *session.State, choice Choice) (*session.State, Display, error) {
	const op = "handle choice"

	logger.SetSession(ctx, state.ID, string(state.Stage))

	if err := m.checkProfile(state); err != nil {
		return state, m.View(state), err
	}
	if !choice.Kind.appliesTo(state.Stage) {
		return state, m.View(state), types.InvalidInputError(op,
			fmt.Sprintf("choice %q does not apply to stage %s", choice.Kind, state.Stage))
	}

	next := state.Clone()
	var notice string

	switch choice.Kind {
	case ChoiceConsent:
		m.enterCollection(next)

	case ChoiceSelect:
		if choice.Index < 0 || choice.Index >= len(state.Candidates) {
			return state, m.View(state), types.InvalidInputError(op,
				fmt.Sprintf("candidate %d out of range [0, %d)", choice.Index, len(state.Candidates)))
		}
		next.Primary = &session.Narrative{
			PersonaIndex: choice.Index,
			Revisions:    []session.Revision{{Actor: session.ActorAI, Text: state.Candidates[choice.Index]}},
		}
		next.Stage = session.StageRefinePrimary

	case ChoiceEdit:
		text := strings.TrimSpace(choice.Text)
		if text == "" {
			return state, m.View(state), types.InvalidInputError(op, "edited narrative is empty")
		}
		n, err := current(next)
		if err != nil {
			return state, m.View(state), err
		}
		n.Revisions = append(n.Revisions, session.Revision{Actor: session.ActorHuman, Text: text})
		next.Suggestion = ""

	case ChoiceAcceptSuggestion:
		if state.Suggestion == "" {
			return state, m.View(state), types.InvalidInputError(op, "there is no suggestion to accept")
		}
		n, err := current(next)
		if err != nil {
			return state, m.View(state), err
		}
		n.Revisions = append(n.Revisions, session.Revision{Actor: session.ActorAI, Text: state.Suggestion})
		next.Suggestion = ""

	case ChoiceSave:
		if _, err := current(next); err != nil {
			return state, m.View(state), err
		}
		notice = m.save(ctx, next)
		next.Suggestion = ""
		if next.Stage == session.StageRefinePrimary && m.opts.Profile == config.ProfileFull {
			m.enterReflect(next)
		} else {
			next.Stage = session.StageDone
		}

	case ChoiceRatings:
		outcome, err := m.selector.Select(tiebreak.Ratings(choice.Ratings))
		if err != nil {
			return state, m.View(state), err
		}
		next.Ratings = copyRatings(choice.Ratings)
		if outcome.NeedsUserChoice() {
			next.Tied = outcome.Tied
			next.Stage = session.StageAwaitTieBreak
			slog.Info("dimension tie", "session", state.ID, "tied", outcome.Tied)
		} else {
			m.enterDimension(next, outcome.Key)
		}

	case ChoiceDimension:
		key, err := tiebreak.Resolve(state.Tied, choice.Key)
		if err != nil {
			return state, m.View(state), err
		}
		m.enterDimension(next, key)
	}

	m.touch(next)
	slog.Debug("choice applied", "session", state.ID, "choice", choice.Kind, "from", state.Stage, "to", next.Stage)

	d := m.View(next)
	d.Notice = notice
	return next, d, nil
}

// save appends the current narrative to the sink. Failures become a notice.
func (m *Machine) save(ctx context.Context, next *session.State) string {
	if m.sink == nil {
		return ""
	}
	kind := store.KindPrimary
	if next.Stage == session.StageRefineSecondary {
		kind = store.KindSecondary
	}
	rec := store.Record{
		Text:      next.Narrative().Text(),
		Timestamp: m.opts.Now(),
		SessionID: next.ID,
		Kind:      kind,
	}
	if err := m.sink.Append(ctx, rec); err != nil {
		slog.Warn("narrative not saved", "session", next.ID, "kind", kind, "error", err)
		return fmt.Sprintf("❌ No se pudo guardar la narrativa: %v", err)
	}
	slog.Info("narrative saved", "session", next.ID, "kind", kind)
	return ""
}

func (m *Machine) enterCollection(s *session.State) {
	s.Stage = session.StageCollectingPrimary
	s.Append(s.Stage, session.Message{Role: session.RoleAssistant, Text: m.script.Collection.Intro})
}

func (m *Machine) enterReflect(s *session.State) {
	s.Stage = session.StageReflect
	s.Append(s.Stage, session.Message{Role: session.RoleAssistant, Text: m.script.Reflect.Intro})
}

func (m *Machine) enterDimension(s *session.State, key string) {
	dim, _ := m.script.ABCD.Dimension(key)
	s.Dimension = key
	s.Tied = nil
	s.Stage = session.StageCollectingDimension
	s.Append(s.Stage, session.Message{Role: session.RoleAssistant, Text: dim.Intro})
}

func (m *Machine) touch(s *session.State) {
	s.UpdatedAt = m.opts.Now()
}

// checkProfile rejects states created under another flow profile.
func (m *Machine) checkProfile(state *session.State) error {
	if state.Profile != m.opts.Profile {
		return types.InvariantError("check session", fmt.Sprintf("session profile %q does not match machine profile %q", state.Profile, m.opts.Profile))
	}
	return nil
}

func current(s *session.State) (*session.Narrative, error) {
	n := s.Narrative()
	if n == nil {
		return nil, types.InvariantError("current narrative", fmt.Sprintf("stage %s has no narrative", s.Stage))
	}
	return n, nil
}

func (m *Machine) wrongStage(op string, state *session.State) error {
	return types.InvalidInputError(op, fmt.Sprintf("stage %s does not take text turns", state.Stage))
}

func copyRatings(r map[string]int) map[string]int {
	out := make(map[string]int, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// View renders state without changing it.
func (m *Machine) View(state *session.State) Display {
	d := Display{Stage: state.Stage}

	switch state.Stage {
	case session.StageConsent:
		d.Consent = m.script.Consent.IntroAndConsent
		d.InformedConsent = m.script.Consent.InformedConsent

	case session.StageCollectingPrimary, session.StageReflect, session.StageCollectingDimension:
		d.Reply = state.Memory(state.Stage).LastAssistant()

	case session.StageSelectNarrative:
		d.Candidates = make([]Candidate, len(state.Candidates))
		for i, text := range state.Candidates {
			c := Candidate{Index: i, Text: text}
			if i < len(m.catalog.Personas) {
				c.Persona = m.catalog.Personas[i].Name
			}
			d.Candidates[i] = c
		}

	case session.StageRefinePrimary, session.StageRefineSecondary:
		d.Narrative = state.Narrative().Text()
		d.Suggestion = state.Suggestion

	case session.StageRateDimensions:
		d.Dimensions = m.cards(config.DimensionKeys)
		if m.script.ABCD != nil {
			d.RatingUI = m.script.ABCD.UI
		}

	case session.StageAwaitTieBreak:
		d.TieOptions = m.cards(state.Tied)

	case session.StageDone:
		d.Final = m.final(state)
	}
	return d
}

func (m *Machine) cards(keys []string) []DimensionCard {
	if m.script.ABCD == nil {
		return nil
	}
	out := make([]DimensionCard, 0, len(keys))
	for _, k := range keys {
		dim, ok := m.script.ABCD.Dimension(k)
		if !ok {
			continue
		}
		out = append(out, DimensionCard{Key: k, Title: dim.Title, Description: dim.Description})
	}
	return out
}

func (m *Machine) final(state *session.State) *Final {
	f := &Final{
		Title:     m.script.Closing.Title,
		Message:   m.script.Closing.Message,
		SurveyURL: m.script.Closing.SurveyURL,
	}
	if f.Title == "" {
		f.Title = DefaultFinalTitle
	}
	if f.Message == "" {
		f.Message = DefaultFinalMessage
	}
	if m.opts.SurveyURL != "" {
		f.SurveyURL = m.opts.SurveyURL
	}
	for _, n := range []*session.Narrative{state.Primary, state.Secondary} {
		if text := n.Text(); text != "" {
			f.Narratives = append(f.Narratives, text)
		}
	}
	return f
}
