package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// Generator turns a fully rendered prompt into the model's reply text.
type Generator interface {
	Generate(ctx context.Context, prompt string, temperature float64) (string, error)
}

// GeneratorFunc adapts a plain function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt string, temperature float64) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string, temperature float64) (string, error) {
	return f(ctx, prompt, temperature)
}

// JSONFormat describes a strict JSON reply shape.
type JSONFormat struct {
	Name   string
	Schema map[string]any
}

// JSONGenerator is implemented by backends that can enforce a JSON schema on the reply.
type JSONGenerator interface {
	Generator
	GenerateJSON(ctx context.Context, prompt string, temperature float64, format JSONFormat) (string, error)
}

// GenerateStructured asks gen for a reply shaped like format when the backend
// supports it, and falls back to a plain Generate call otherwise.
func GenerateStructured(ctx context.Context, gen Generator, prompt string, temperature float64, format *JSONFormat) (string, error) {
	if format != nil {
		if jg, ok := gen.(JSONGenerator); ok {
			return jg.GenerateJSON(ctx, prompt, temperature, *format)
		}
	}
	return gen.Generate(ctx, prompt, temperature)
}

// ChatGenerator sends the prompt as a single user message to an Eino chat model.
type ChatGenerator struct {
	model model.BaseChatModel
}

// NewChatGenerator wraps an Eino chat model.
func NewChatGenerator(m model.BaseChatModel) *ChatGenerator {
	return &ChatGenerator{model: m}
}

func (g *ChatGenerator) Generate(ctx context.Context, prompt string, temperature float64) (string, error) {
	msg, err := g.model.Generate(ctx,
		[]*schema.Message{schema.UserMessage(prompt)},
		model.WithTemperature(float32(temperature)),
	)
	if err != nil {
		return "", fmt.Errorf("chat model generate: %w", err)
	}
	if msg == nil {
		return "", errors.New("chat model returned no message")
	}
	return strings.TrimSpace(msg.Content), nil
}

// WithTimeout bounds every call made through gen.
func WithTimeout(gen Generator, d time.Duration) Generator {
	return &timeoutGenerator{inner: gen, timeout: d}
}

type timeoutGenerator struct {
	inner   Generator
	timeout time.Duration
}

func (t *timeoutGenerator) Generate(ctx context.Context, prompt string, temperature float64) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Generate(ctx, prompt, temperature)
}

func (t *timeoutGenerator) GenerateJSON(ctx context.Context, prompt string, temperature float64, format JSONFormat) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return GenerateStructured(ctx, t.inner, prompt, temperature, &format)
}
