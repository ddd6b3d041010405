/*
Package chain runs a prompt through render, generate and parse as one Eino graph.
*/
package chain

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/llm"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/logger"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/prompts"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/types"
	"github.com/cloudwego/eino/compose"
)

// Parser turns the raw model reply into T. It returns typed errors.
type Parser[T any] func(ctx context.Context, reply string) (T, error)

// Options tune the generate node.
type Options struct {
	Temperature float64
	// Format requests strict JSON output from backends that support it.
	Format *llm.JSONFormat
}

// Chain is a reusable pipeline: vars -> rendered prompt -> reply -> T
type Chain[T any] struct {
	runnable compose.Runnable[map[string]any, T]
	name     string
}

type holderKey struct{}

// errHolder keeps the first node error so callers see it unwrapped by the graph runtime.
type errHolder struct {
	err error
}

func node[I, O any](fn func(context.Context, I) (O, error)) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in I) (O, error) {
		out, err := fn(ctx, in)
		if err != nil {
			if h, ok := ctx.Value(holderKey{}).(*errHolder); ok && h.err == nil {
				h.err = err
			}
		}
		return out, err
	})
}

// New compiles a chain for tmpl.
func New[T any](ctx context.Context, name, tmpl string, gen llm.Generator, opts Options, parse Parser[T]) (*Chain[T], error) {
	if gen == nil {
		return nil, types.InvariantError("chain "+name, "generator is nil")
	}
	if parse == nil {
		return nil, types.InvariantError("chain "+name, "parser is nil")
	}

	renderFunc := func(ctx context.Context, vars map[string]any) (string, error) {
		return prompts.Render(ctx, tmpl, vars)
	}

	generateFunc := func(ctx context.Context, prompt string) (string, error) {
		logger.SetLastPrompt(ctx, prompt)
		start := time.Now()
		reply, err := llm.GenerateStructured(ctx, gen, prompt, opts.Temperature, opts.Format)
		if err != nil {
			slog.Warn("generation failed", "chain", name, "elapsed", time.Since(start), "error", err)
			return "", types.GenerationError("chain "+name, "backend call failed", err)
		}
		slog.Debug("generation complete", "chain", name, "elapsed", time.Since(start), "reply_len", len(reply))
		return reply, nil
	}

	graph := compose.NewGraph[map[string]any, T]()

	_ = graph.AddLambdaNode("prompt", node(renderFunc))
	_ = graph.AddLambdaNode("model", node(generateFunc))
	_ = graph.AddLambdaNode("parser", node(func(ctx context.Context, reply string) (T, error) {
		return parse(ctx, reply)
	}))

	_ = graph.AddEdge(compose.START, "prompt")
	_ = graph.AddEdge("prompt", "model")
	_ = graph.AddEdge("model", "parser")
	_ = graph.AddEdge("parser", compose.END)

	runnable, err := graph.Compile(ctx, compose.WithGraphName(name))
	if err != nil {
		return nil, fmt.Errorf("compile chain %s: %w", name, err)
	}
	return &Chain[T]{runnable: runnable, name: name}, nil
}

// Invoke runs the chain. Node errors come back exactly as the node returned them.
func (c *Chain[T]) Invoke(ctx context.Context, vars map[string]any) (T, error) {
	h := &errHolder{}
	out, err := c.runnable.Invoke(context.WithValue(ctx, holderKey{}, h), vars)
	if err != nil {
		if h.err != nil {
			return out, h.err
		}
		return out, types.GenerationError("chain "+c.name, "graph run failed", err)
	}
	return out, nil
}

// Text returns the reply unchanged.
func Text(_ context.Context, reply string) (string, error) {
	return reply, nil
}
