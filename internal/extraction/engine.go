// Package extraction turns a collection transcript into the structured answers map.
package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/chain"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/llm"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/utils"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/prompts"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/types"
)

// Answers maps each question key to the literal answer, nil when unknown.
type Answers map[string]*string

// Engine runs the extraction template against a transcript.
type Engine struct {
	chain *chain.Chain[Answers]
	keys  []string
}

// Extraction is deterministic, so it always runs at temperature 0.
const temperature = 0

// NewEngine compiles the extraction chain for the catalog's answer keys.
func NewEngine(ctx context.Context, catalog *prompts.Catalog, gen llm.Generator) (*Engine, error) {
	keys := append([]string(nil), catalog.AnswerKeys...)
	opts := chain.Options{
		Temperature: temperature,
		Format:      &llm.JSONFormat{Name: "answers", Schema: llm.NullableStringsSchema(keys)},
	}

	c, err := chain.New(ctx, "extraction", catalog.Extraction, gen, opts, func(_ context.Context, reply string) (Answers, error) {
		return Parse(reply, keys)
	})
	if err != nil {
		return nil, err
	}
	return &Engine{chain: c, keys: keys}, nil
}

// Extract returns the answers found in transcript. Any failure is all-or-nothing.
func (e *Engine) Extract(ctx context.Context, transcript string) (Answers, error) {
	return e.chain.Invoke(ctx, map[string]any{prompts.KeyConversationHistory: transcript})
}

// Parse validates a raw reply: a JSON object holding every key with a string or null value.
// Unknown keys are dropped.
func Parse(reply string, keys []string) (Answers, error) {
	const op = "extract answers"

	raw, err := utils.ExtractAndParseJSON[map[string]json.RawMessage](reply)
	if err != nil {
		return nil, types.ExtractionError(op, "reply is not a JSON object", err)
	}

	answers := make(Answers, len(keys))
	var missing, invalid []string
	for _, key := range keys {
		v, ok := raw[key]
		if !ok {
			missing = append(missing, key)
			continue
		}
		if string(v) == "null" {
			answers[key] = nil
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			invalid = append(invalid, key)
			continue
		}
		answers[key] = &s
	}

	if len(missing) > 0 || len(invalid) > 0 {
		sort.Strings(missing)
		sort.Strings(invalid)
		return nil, types.ExtractionError(op, fmt.Sprintf("missing keys %v, non-string values %v", missing, invalid), nil)
	}
	return answers, nil
}

// Values converts answers into template variables. Unknown answers render empty.
func (a Answers) Values() map[string]any {
	vars := make(map[string]any, len(a))
	for k, v := range a {
		if v == nil {
			vars[k] = ""
			continue
		}
		vars[k] = *v
	}
	return vars
}

// Broadcast fills every key with the same text.
func Broadcast(keys []string, text string) map[string]any {
	vars := make(map[string]any, len(keys))
	for _, k := range keys {
		vars[k] = text
	}
	return vars
}
