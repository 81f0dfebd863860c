package llm

import (
	"context"
	"fmt"
)

// Tier names a model class rather than a concrete model. Callers say how much
// reasoning a request needs and Chat maps that to a configured provider.
type Tier string

const (
	// TierFast selects a cheap, low-latency model. Used for routine
	// extraction and classification work.
	TierFast Tier = "fast"

	// TierIntelligent selects a stronger model for synthesis and reflection.
	TierIntelligent Tier = "intelligent"
)

// ChatOptions tunes a single Chat.Complete call.
type ChatOptions struct {
	// Tier selects the model class. Empty defaults to TierFast.
	Tier Tier

	// Temperature and MaxTokens pass through to the provider.
	Temperature float64
	MaxTokens   int
}

// Chat routes completion requests to a provider by tier.
//
// Safe for concurrent use.
type Chat struct {
	providers map[Tier]Provider
}

// NewChat creates a Chat with the given fast-tier provider.
// The fast provider also serves TierIntelligent until WithIntelligent
// is applied.
func NewChat(fast Provider, opts ...ChatOption) *Chat {
	c := &Chat{providers: map[Tier]Provider{
		TierFast:        fast,
		TierIntelligent: fast,
	}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ChatOption configures a Chat.
type ChatOption func(*Chat)

// WithIntelligent sets the provider used for TierIntelligent requests.
func WithIntelligent(p Provider) ChatOption {
	return func(c *Chat) {
		c.providers[TierIntelligent] = p
	}
}

// Provider returns the provider backing the given tier.
// An unknown tier falls back to TierFast.
func (c *Chat) Provider(tier Tier) Provider {
	if p, ok := c.providers[tier]; ok {
		return p
	}
	return c.providers[TierFast]
}

// Complete sends the messages to the provider for the requested tier and
// returns the reply text.
func (c *Chat) Complete(ctx context.Context, messages []Message, opts ChatOptions) (string, error) {
	tier := opts.Tier
	if tier == "" {
		tier = TierFast
	}
	p := c.Provider(tier)

	resp, err := p.Complete(ctx, CompletionRequest{
		Messages:    messages,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("llm: %s tier completion: %w", tier, err)
	}
	return resp.Content, nil
}

// CountTokens estimates the token count of messages against the given tier's
// provider.
func (c *Chat) CountTokens(tier Tier, messages []Message) (int, error) {
	return c.Provider(tier).CountTokens(messages)
}
