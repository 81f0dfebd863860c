package llm_test

import (
	"context"
	"testing"

	"github.com/ashishact/ramble/pkg/provider/llm"
	"github.com/ashishact/ramble/pkg/provider/llm/mock"
)

func TestChat_DefaultsToFastTier(t *testing.T) {
	t.Parallel()

	fast := &mock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "fast reply"}}
	smart := &mock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "smart reply"}}
	chat := llm.NewChat(fast, llm.WithIntelligent(smart))

	got, err := chat.Complete(context.Background(), []llm.Message{
		{Role: llm.RoleUser, Content: "hello"},
	}, llm.ChatOptions{})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "fast reply" {
		t.Errorf("got %q, want %q", got, "fast reply")
	}
	if len(fast.CompleteCalls) != 1 || len(smart.CompleteCalls) != 0 {
		t.Errorf("fast calls = %d, smart calls = %d; want 1, 0",
			len(fast.CompleteCalls), len(smart.CompleteCalls))
	}
}

func TestChat_RoutesIntelligentTier(t *testing.T) {
	t.Parallel()

	fast := &mock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "fast reply"}}
	smart := &mock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "smart reply"}}
	chat := llm.NewChat(fast, llm.WithIntelligent(smart))

	got, err := chat.Complete(context.Background(), []llm.Message{
		{Role: llm.RoleUser, Content: "think hard"},
	}, llm.ChatOptions{Tier: llm.TierIntelligent, MaxTokens: 256})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "smart reply" {
		t.Errorf("got %q, want %q", got, "smart reply")
	}
	if len(smart.CompleteCalls) != 1 {
		t.Fatalf("smart calls = %d, want 1", len(smart.CompleteCalls))
	}
	if smart.CompleteCalls[0].Req.MaxTokens != 256 {
		t.Errorf("MaxTokens = %d, want 256", smart.CompleteCalls[0].Req.MaxTokens)
	}
}

func TestChat_IntelligentFallsBackToFast(t *testing.T) {
	t.Parallel()

	fast := &mock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "only reply"}}
	chat := llm.NewChat(fast)

	got, err := chat.Complete(context.Background(), []llm.Message{
		{Role: llm.RoleUser, Content: "hi"},
	}, llm.ChatOptions{Tier: llm.TierIntelligent})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "only reply" {
		t.Errorf("got %q, want %q", got, "only reply")
	}
}
