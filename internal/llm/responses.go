package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
)

// ResponsesGenerator talks to the OpenAI Responses API. It supports strict
// JSON schema output, so structured stages never need JSON repair.
type ResponsesGenerator struct {
	client *openai.Client
	model  string
}

// NewResponsesGenerator creates a Responses API generator.
func NewResponsesGenerator(cfg Config) (*ResponsesGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := openai.NewClient(opts...)

	model := cfg.Model
	if model == "" {
		model = DefaultModelForProvider(ProviderOpenAIResponses)
	}
	return &ResponsesGenerator{client: &client, model: model}, nil
}

func (g *ResponsesGenerator) Generate(ctx context.Context, prompt string, temperature float64) (string, error) {
	return g.call(ctx, g.params(prompt, temperature))
}

// GenerateJSON requests a reply that conforms to format.Schema.
func (g *ResponsesGenerator) GenerateJSON(ctx context.Context, prompt string, temperature float64, format JSONFormat) (string, error) {
	params := g.params(prompt, temperature)
	params.Text = responses.ResponseTextConfigParam{
		Format: responses.ResponseFormatTextConfigUnionParam{
			OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
				Name:   format.Name,
				Schema: format.Schema,
				Strict: openai.Bool(true),
				Type:   "json_schema",
			},
		},
	}
	return g.call(ctx, params)
}

func (g *ResponsesGenerator) params(prompt string, temperature float64) responses.ResponseNewParams {
	return responses.ResponseNewParams{
		Model:       g.model,
		Temperature: openai.Float(temperature),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(prompt, responses.EasyInputMessageRoleUser),
			},
		},
	}
}

func (g *ResponsesGenerator) call(ctx context.Context, params responses.ResponseNewParams) (string, error) {
	resp, err := CallWithRetry(ctx, g.client, params)
	if err != nil {
		return "", fmt.Errorf("responses api: %w", err)
	}
	return strings.TrimSpace(resp.OutputText()), nil
}

var retryWaits = []time.Duration{2 * time.Second, 5 * time.Second}

// CallWithRetry retries rate-limited and server-side failures a bounded
// number of times, giving up as soon as ctx is done.
func CallWithRetry(ctx context.Context, client *openai.Client, params responses.ResponseNewParams) (*responses.Response, error) {
	for attempt := 0; ; attempt++ {
		resp, err := client.Responses.New(ctx, params)
		if err == nil {
			return resp, nil
		}
		if attempt >= len(retryWaits) || !isTransientError(err) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, errors.Join(err, ctx.Err())
		case <-time.After(retryWaits[attempt]):
		}
	}
}

func isTransientError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "internal server error")
}
