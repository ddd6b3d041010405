package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/llm"
	"github.com/spf13/viper"
)

// LoadLLMConfig loads LLM configuration from Viper and Environment variables.
// It handles precedence: Explicit Viper Config > Environment Variables > Defaults.
func LoadLLMConfig() (llm.Config, error) {
	// 1. Provider
	provider := viper.GetString("llm.provider")
	if provider == "" {
		provider = llm.DefaultProvider
	}

	llmProvider, err := llm.ValidateProvider(provider)
	if err != nil {
		return llm.Config{}, fmt.Errorf("invalid provider: %w", err)
	}

	// 2. Model
	model := viper.GetString("llm.model")
	if model == "" {
		model = llm.DefaultModelForProvider(string(llmProvider))
	}

	// 3. API Key. Ollama runs without one.
	apiKey := ResolveAPIKey(llmProvider)
	if apiKey == "" && llmProvider != llm.ProviderOllama {
		return llm.Config{}, fmt.Errorf("no API key for provider %s: set llm.apiKeys.%s or %s", llmProvider, llmProvider, envVarName(llmProvider))
	}

	// 4. Base URL
	baseURL := viper.GetString("llm.baseURL")
	if baseURL == "" && llmProvider == llm.ProviderOllama {
		baseURL = llm.DefaultOllamaURL
	}

	// 5. Sampling and per-call bound
	temperature := llm.DefaultTemperature
	if viper.IsSet("llm.temperature") {
		temperature = viper.GetFloat64("llm.temperature")
	}
	timeout := llm.DefaultRequestTimeout
	if secs := viper.GetInt("llm.requestTimeoutSeconds"); secs > 0 {
		timeout = time.Duration(secs) * time.Second
	}

	return llm.Config{
		Provider:    llmProvider,
		Model:       model,
		APIKey:      apiKey,
		BaseURL:     baseURL,
		Temperature: temperature,
		Timeout:     timeout,
	}, nil
}

// ResolveAPIKey returns the best API key for the given provider using
// per-provider config keys, provider-specific env vars, then legacy config.
func ResolveAPIKey(provider llm.Provider) string {
	keyFromViper := func(path string) string {
		if viper.IsSet(path) {
			return strings.TrimSpace(viper.GetString(path))
		}
		return ""
	}

	// The Responses API shares the OpenAI key.
	if provider == llm.ProviderOpenAIResponses {
		provider = llm.ProviderOpenAI
	}

	// 1) Per-provider config key (llm.apiKeys.<provider>)
	if key := keyFromViper(fmt.Sprintf("llm.apiKeys.%s", provider)); key != "" {
		return key
	}

	// 2) OpenAI keeps the single llm.apiKey; others ignore it to avoid wrong-key usage.
	if provider == llm.ProviderOpenAI {
		if key := keyFromViper("llm.apiKey"); key != "" {
			return key
		}
	}

	// 3) Provider-specific env vars
	return providerEnvKey(provider)
}

func providerEnvKey(provider llm.Provider) string {
	switch provider {
	case llm.ProviderOpenAI:
		return strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	case llm.ProviderAnthropic:
		return strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
	case llm.ProviderGemini:
		key := strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
		if key == "" {
			key = strings.TrimSpace(os.Getenv("GOOGLE_API_KEY"))
		}
		return key
	default:
		return ""
	}
}

func envVarName(provider llm.Provider) string {
	switch provider {
	case llm.ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case llm.ProviderGemini:
		return "GEMINI_API_KEY"
	default:
		return "OPENAI_API_KEY"
	}
}
