// Package llm defines the provider interface for chat completion backends.
//
// The ingestion pipeline talks to language models through this single narrow
// surface: build a CompletionRequest, call Complete, read back plain text.
// Concrete backends live in subpackages (openai, anyllm) and a test double in
// mock. Tier-based model selection sits on top in Chat.
package llm

import "context"

// Role constants for Message.Role.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn in a chat conversation.
type Message struct {
	// Role is one of RoleSystem, RoleUser, RoleAssistant.
	Role string `json:"role"`

	// Content is the message text.
	Content string `json:"content"`

	// Name optionally identifies the speaker for multi-party transcripts.
	Name string `json:"name,omitempty"`
}

// CompletionRequest is a request for a chat completion.
type CompletionRequest struct {
	// Messages is the conversation history, oldest first.
	Messages []Message

	// SystemPrompt, if non-empty, is prepended as a system message.
	SystemPrompt string

	// Temperature controls sampling randomness. Zero means provider default.
	Temperature float64

	// MaxTokens caps the completion length. Zero means provider default.
	MaxTokens int
}

// Usage reports token consumption for a completion.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CompletionResponse is the result of a completed request.
type CompletionResponse struct {
	// Content is the full text of the model's reply.
	Content string

	// Usage reports token counts when the backend provides them.
	Usage Usage
}

// ModelCapabilities describes limits of the model behind a Provider.
type ModelCapabilities struct {
	// ContextWindow is the maximum total tokens (prompt + completion).
	ContextWindow int

	// MaxOutputTokens is the maximum completion length.
	MaxOutputTokens int
}

// Provider is a chat completion backend.
//
// Implementations must be safe for concurrent use.
type Provider interface {
	// Complete performs a full chat completion and returns the final response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// CountTokens estimates the token count of the given messages for this
	// provider's model. Used to keep prompts inside the context window.
	CountTokens(messages []Message) (int, error)

	// Capabilities reports the limits of the configured model.
	Capabilities() ModelCapabilities
}
