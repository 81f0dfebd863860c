package openai

import (
	"testing"

	"github.com/ashishact/ramble/pkg/provider/llm"
)

func TestNew_RequiresAPIKeyAndModel(t *testing.T) {
	if _, err := New("", "gpt-4o"); err == nil {
		t.Fatal("expected error for empty apiKey")
	}
	if _, err := New("sk-test", ""); err == nil {
		t.Fatal("expected error for empty model")
	}
	if _, err := New("sk-test", "gpt-4o"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestConvertMessage_Roles(t *testing.T) {
	sys := convertMessage(llm.Message{Role: llm.RoleSystem, Content: "You are helpful."})
	if sys.OfSystem == nil {
		t.Fatal("expected OfSystem to be set")
	}
	user := convertMessage(llm.Message{Role: llm.RoleUser, Content: "Hello!"})
	if user.OfUser == nil {
		t.Fatal("expected OfUser to be set")
	}
	asst := convertMessage(llm.Message{Role: llm.RoleAssistant, Content: "Hi there!"})
	if asst.OfAssistant == nil {
		t.Fatal("expected OfAssistant to be set")
	}
	// Unknown roles degrade to a user message rather than being dropped.
	other := convertMessage(llm.Message{Role: "tool", Content: "result"})
	if other.OfUser == nil {
		t.Fatal("expected unknown role to map to OfUser")
	}
}

func TestBuildParams(t *testing.T) {
	p := &Provider{model: "gpt-4o-mini"}
	params := p.buildParams(llm.CompletionRequest{
		SystemPrompt: "Extract facts.",
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: "Alice moved to Lisbon."},
		},
		Temperature: 0.2,
		MaxTokens:   512,
	})

	if got := len(params.Messages); got != 2 {
		t.Fatalf("got %d messages, want 2 (system + user)", got)
	}
	if params.Messages[0].OfSystem == nil {
		t.Fatal("first message should be the system prompt")
	}
	if !params.Temperature.Valid() || params.Temperature.Value != 0.2 {
		t.Fatalf("Temperature = %v, want 0.2", params.Temperature)
	}
	if !params.MaxCompletionTokens.Valid() || params.MaxCompletionTokens.Value != 512 {
		t.Fatalf("MaxCompletionTokens = %v, want 512", params.MaxCompletionTokens)
	}
}

func TestBuildParams_ZeroValuesOmitted(t *testing.T) {
	p := &Provider{model: "gpt-4o-mini"}
	params := p.buildParams(llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	})
	if params.Temperature.Valid() {
		t.Fatal("Temperature should be omitted when zero")
	}
	if params.MaxCompletionTokens.Valid() {
		t.Fatal("MaxCompletionTokens should be omitted when zero")
	}
}

func TestCountTokens_Approximation(t *testing.T) {
	p := &Provider{model: "gpt-4o"}
	n, err := p.CountTokens([]llm.Message{
		{Role: llm.RoleUser, Content: "12345678"}, // 2 tokens of content + 4 overhead
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 6 {
		t.Fatalf("count = %d, want 6", n)
	}
}

func TestModelCapabilities(t *testing.T) {
	tests := []struct {
		model     string
		window    int
		maxOutput int
	}{
		{"gpt-4o", 128_000, 16_384},
		{"gpt-4o-mini", 128_000, 16_384},
		{"gpt-4-turbo", 128_000, 4_096},
		{"gpt-4", 8_192, 4_096},
		{"gpt-3.5-turbo", 16_385, 4_096},
		{"o1-mini", 128_000, 65_536},
		{"o3-mini", 200_000, 100_000},
		{"some-unknown-model", 128_000, 4_096},
	}
	for _, tt := range tests {
		caps := modelCapabilities(tt.model)
		if caps.ContextWindow != tt.window {
			t.Errorf("%s: ContextWindow = %d, want %d", tt.model, caps.ContextWindow, tt.window)
		}
		if caps.MaxOutputTokens != tt.maxOutput {
			t.Errorf("%s: MaxOutputTokens = %d, want %d", tt.model, caps.MaxOutputTokens, tt.maxOutput)
		}
	}
}
