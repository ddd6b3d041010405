// Package narrative generates micronarratives from collected answers.
package narrative

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/chain"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/config"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/extraction"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/llm"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/utils"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/prompts"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/types"
	"golang.org/x/sync/errgroup"
)

// Output keys of the structured synthesis replies.
const (
	OutputKey     = "output_scenario"
	AdaptationKey = "new_scenario"
)

type scenarioReply struct {
	OutputScenario string `json:"output_scenario"`
}

type adaptationReply struct {
	NewScenario string `json:"new_scenario"`
}

var (
	scenarioFormat   = &llm.JSONFormat{Name: "scenario", Schema: llm.GenerateSchema[scenarioReply]()}
	adaptationFormat = &llm.JSONFormat{Name: "adaptation", Schema: llm.GenerateSchema[adaptationReply]()}
)

// Synthesizer runs the narrative templates of one catalog.
type Synthesizer struct {
	catalog *prompts.Catalog
	main    *chain.Chain[string]
	second  *chain.Chain[string]
	adapt   *chain.Chain[string]
}

// New compiles the synthesis chains.
func New(ctx context.Context, catalog *prompts.Catalog, gen llm.Generator, temperature float64) (*Synthesizer, error) {
	build := func(name, tmpl, key string, format *llm.JSONFormat) (*chain.Chain[string], error) {
		return chain.New(ctx, name, tmpl, gen, chain.Options{Temperature: temperature, Format: format}, OutputParser(key))
	}

	main, err := build("synthesis", catalog.Main, OutputKey, scenarioFormat)
	if err != nil {
		return nil, err
	}
	second, err := build("second_narrative", catalog.Second, OutputKey, scenarioFormat)
	if err != nil {
		return nil, err
	}
	adapt, err := build("adaptation", catalog.Adaptation, AdaptationKey, adaptationFormat)
	if err != nil {
		return nil, err
	}
	return &Synthesizer{catalog: catalog, main: main, second: second, adapt: adapt}, nil
}

// Candidates generates one narrative per persona, in persona order.
// answers holds one template value per answer key. One failed call fails the batch.
func (s *Synthesizer) Candidates(ctx context.Context, answers map[string]any) ([]string, error) {
	const op = "generate candidates"

	personas := s.catalog.Personas
	out := make([]string, len(personas))

	g, gctx := errgroup.WithContext(ctx)
	for i, persona := range personas {
		g.Go(func() error {
			vars := s.baseVars(answers, persona)
			text, err := s.main.Invoke(gctx, vars)
			if err != nil {
				return types.GenerationError(op, fmt.Sprintf("persona %d (%s) failed", i+1, personaLabel(persona, i)), err)
			}
			out[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		slog.Warn("candidate batch discarded", "personas", len(personas), "error", err)
		return nil, err
	}
	return out, nil
}

// Second generates the follow-up narrative. transcript is the joined reflection
// transcript broadcast into every answer slot; previous is the first narrative.
func (s *Synthesizer) Second(ctx context.Context, transcript string, personaIndex int, previous string) (string, error) {
	const op = "generate second narrative"

	if personaIndex < 0 || personaIndex >= len(s.catalog.Personas) {
		return "", types.InvariantError(op, fmt.Sprintf("no selected persona (index %d of %d)", personaIndex, len(s.catalog.Personas)))
	}

	vars := s.baseVars(extraction.Broadcast(s.catalog.AnswerKeys, transcript), s.catalog.Personas[personaIndex])
	vars[prompts.KeyContext] = previous
	return s.second.Invoke(ctx, vars)
}

// Adapt proposes a rewrite of scenario following the user's request.
func (s *Synthesizer) Adapt(ctx context.Context, scenario, request string) (string, error) {
	return s.adapt.Invoke(ctx, map[string]any{
		prompts.KeyScenario: scenario,
		prompts.KeyInput:    request,
	})
}

func (s *Synthesizer) baseVars(answers map[string]any, persona config.Persona) map[string]any {
	vars := make(map[string]any, len(answers)+3)
	for k, v := range answers {
		vars[k] = v
	}
	vars[prompts.KeyPersona] = persona.Text
	vars[prompts.KeyOneShot] = s.catalog.OneShot
	vars[prompts.KeyEndPrompt] = s.catalog.EndPrompt
	return vars
}

func personaLabel(p config.Persona, i int) string {
	if p.Name != "" {
		return p.Name
	}
	return fmt.Sprintf("#%d", i+1)
}

// OutputParser reads the single string entry key from a JSON reply.
func OutputParser(key string) chain.Parser[string] {
	return func(_ context.Context, reply string) (string, error) {
		const op = "parse narrative"

		obj, err := utils.ExtractAndParseJSON[map[string]any](reply)
		if err != nil {
			return "", types.MalformedOutputError(op, "reply is not a JSON object", err)
		}
		v, ok := obj[key].(string)
		if !ok {
			return "", types.MalformedOutputError(op, fmt.Sprintf("reply has no string %q entry", key), nil)
		}
		v = strings.TrimSpace(v)
		if v == "" {
			return "", types.MalformedOutputError(op, fmt.Sprintf("%q is empty", key), nil)
		}
		return v, nil
	}
}
