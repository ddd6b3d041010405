package llm

import "time"

// Provider constants
const (
	// DefaultProvider is the default LLM provider
	DefaultProvider = ProviderOpenAI

	// ProviderOpenAI represents the OpenAI chat completions API
	ProviderOpenAI = "openai"

	// ProviderOpenAIResponses represents the OpenAI Responses API with strict JSON schema output
	ProviderOpenAIResponses = "openai-responses"

	// ProviderOllama represents the Ollama provider
	ProviderOllama = "ollama"

	// ProviderAnthropic represents the Anthropic provider
	ProviderAnthropic = "anthropic"

	// ProviderGemini represents the Google Gemini provider
	ProviderGemini = "gemini"
)

// DefaultOllamaURL is the default URL for Ollama server
const DefaultOllamaURL = "http://localhost:11434"

const (
	// DefaultTemperature is used for every stage unless configured otherwise.
	DefaultTemperature = 0.3

	// DefaultRequestTimeout bounds a single generation call.
	DefaultRequestTimeout = 90 * time.Second

	// anthropicMaxTokens caps a single Claude reply. Narratives are short.
	anthropicMaxTokens = 2048
)

var defaultModels = map[string]string{
	ProviderOpenAI:          "gpt-4o",
	ProviderOpenAIResponses: "gpt-4o",
	ProviderOllama:          "llama3.2",
	ProviderAnthropic:       "claude-3-5-sonnet-latest",
	ProviderGemini:          "gemini-2.0-flash",
}

// DefaultModelForProvider returns the default model ID for a given provider,
// or "" when the provider is unknown.
func DefaultModelForProvider(provider string) string {
	return defaultModels[provider]
}
