package anyllm

import (
	"strings"
	"testing"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/ashishact/ramble/pkg/provider/llm"
)

func TestNew_Validation(t *testing.T) {
	if _, err := New("", "gpt-4o"); err == nil {
		t.Fatal("expected error for empty providerName")
	}
	if _, err := New("openai", ""); err == nil {
		t.Fatal("expected error for empty model")
	}
	if _, err := New("not-a-provider", "some-model"); err == nil {
		t.Fatal("expected error for unsupported provider")
	}
}

func TestNew_SupportedProviders(t *testing.T) {
	names := []string{
		"openai", "anthropic", "gemini", "ollama", "deepseek",
		"mistral", "groq", "llamacpp", "llamafile",
	}
	for _, name := range names {
		p, err := New(name, "some-model", anyllmlib.WithAPIKey("test-key"))
		if err != nil {
			t.Errorf("New(%q) returned error: %v", name, err)
			continue
		}
		if p.model != "some-model" {
			t.Errorf("New(%q) model = %q, want some-model", name, p.model)
		}
	}
}

func TestNew_CaseInsensitiveProviderName(t *testing.T) {
	if _, err := New("OpenAI", "gpt-4o", anyllmlib.WithAPIKey("test-key")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNamedConstructors(t *testing.T) {
	if _, err := NewOllama("llama3"); err != nil {
		t.Fatalf("NewOllama: %v", err)
	}
	if _, err := NewAnthropic("claude-sonnet-4-0", anyllmlib.WithAPIKey("test-key")); err != nil {
		t.Fatalf("NewAnthropic: %v", err)
	}
}

func TestBuildParams(t *testing.T) {
	p := &Provider{model: "llama3"}
	params := p.buildParams(llm.CompletionRequest{
		SystemPrompt: "Normalise the text.",
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: "i moved too lisbon"},
		},
		Temperature: 0.3,
		MaxTokens:   256,
	})

	if params.Model != "llama3" {
		t.Fatalf("Model = %q, want llama3", params.Model)
	}
	if len(params.Messages) != 2 {
		t.Fatalf("got %d messages, want 2 (system + user)", len(params.Messages))
	}
	if params.Messages[0].Role != anyllmlib.RoleSystem {
		t.Fatalf("first message role = %q, want system", params.Messages[0].Role)
	}
	if params.Temperature == nil || *params.Temperature != 0.3 {
		t.Fatal("Temperature not set")
	}
	if params.MaxTokens == nil || *params.MaxTokens != 256 {
		t.Fatal("MaxTokens not set")
	}
}

func TestBuildParams_ZeroValuesOmitted(t *testing.T) {
	p := &Provider{model: "llama3"}
	params := p.buildParams(llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	})
	if params.Temperature != nil {
		t.Fatal("Temperature should be nil when zero")
	}
	if params.MaxTokens != nil {
		t.Fatal("MaxTokens should be nil when zero")
	}
}

func TestCountTokens_Approximation(t *testing.T) {
	p := &Provider{model: "llama3"}
	n, err := p.CountTokens([]llm.Message{
		{Role: llm.RoleUser, Content: strings.Repeat("a", 40)}, // 10 tokens + 4 overhead
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 14 {
		t.Fatalf("count = %d, want 14", n)
	}
}

func TestModelCapabilities_Families(t *testing.T) {
	tests := []struct {
		model  string
		window int
	}{
		{"gpt-4o-mini", 128_000},
		{"claude-3-opus-latest", 200_000},
		{"claude-sonnet-4-0", 200_000},
		{"gemini-1.5-pro", 2_097_152},
		{"gemini-2.0-flash", 1_048_576},
		{"llama3", 128_000},
	}
	for _, tt := range tests {
		caps := modelCapabilities(tt.model)
		if caps.ContextWindow != tt.window {
			t.Errorf("%s: ContextWindow = %d, want %d", tt.model, caps.ContextWindow, tt.window)
		}
	}
}
