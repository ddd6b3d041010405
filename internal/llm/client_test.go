package llm

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestValidateProvider(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		want     Provider
		wantErr  bool
	}{
		{name: "valid openai", provider: "openai", want: ProviderOpenAI},
		{name: "valid openai responses", provider: "openai-responses", want: ProviderOpenAIResponses},
		{name: "valid ollama", provider: "ollama", want: ProviderOllama},
		{name: "valid anthropic", provider: "anthropic", want: ProviderAnthropic},
		{name: "valid gemini", provider: "gemini", want: ProviderGemini},
		{name: "bedrock is not supported", provider: "bedrock", wantErr: true},
		{name: "empty provider", provider: "", wantErr: true},
		{name: "case sensitive - OPENAI fails", provider: "OPENAI", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateProvider(tt.provider)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateProvider(%q) error = %v, wantErr %v", tt.provider, err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("ValidateProvider(%q) = %v, want %v", tt.provider, got, tt.want)
			}
		})
	}
}

func TestDefaultModelForProvider(t *testing.T) {
	tests := []struct {
		provider string
		want     string
	}{
		{"openai", "gpt-4o"},
		{"openai-responses", "gpt-4o"},
		{"ollama", "llama3.2"},
		{"anthropic", "claude-3-5-sonnet-latest"},
		{"gemini", "gemini-2.0-flash"},
		{"unknown", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := DefaultModelForProvider(tt.provider); got != tt.want {
			t.Errorf("DefaultModelForProvider(%q) = %q, want %q", tt.provider, got, tt.want)
		}
	}
}

func TestNewGenerator_Validation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name:    "openai requires API key",
			cfg:     Config{Provider: ProviderOpenAI, Model: "gpt-4o"},
			wantErr: "OpenAI API key is required",
		},
		{
			name:    "responses requires API key",
			cfg:     Config{Provider: ProviderOpenAIResponses, Model: "gpt-4o"},
			wantErr: "OpenAI API key is required",
		},
		{
			name:    "anthropic requires API key",
			cfg:     Config{Provider: ProviderAnthropic, Model: "claude-3"},
			wantErr: "anthropic API key is required",
		},
		{
			name:    "gemini requires API key",
			cfg:     Config{Provider: ProviderGemini, Model: "gemini-pro"},
			wantErr: "gemini API key is required",
		},
		{
			name:    "unsupported provider",
			cfg:     Config{Provider: "unknown", Model: "model", APIKey: "key"},
			wantErr: "unsupported LLM provider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGenerator(ctx, tt.cfg)
			if err == nil {
				t.Fatalf("NewGenerator() expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("NewGenerator() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestNewGenerator_ResponsesIsTimeoutBounded(t *testing.T) {
	gen, err := NewGenerator(context.Background(), Config{
		Provider: ProviderOpenAIResponses,
		APIKey:   "sk-test",
		Timeout:  3 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewGenerator() error = %v", err)
	}
	tg, ok := gen.(*timeoutGenerator)
	if !ok {
		t.Fatalf("NewGenerator() = %T, want *timeoutGenerator", gen)
	}
	if tg.timeout != 3*time.Second {
		t.Errorf("timeout = %v, want 3s", tg.timeout)
	}
	if _, ok := tg.inner.(*ResponsesGenerator); !ok {
		t.Errorf("inner = %T, want *ResponsesGenerator", tg.inner)
	}
}
