package observers

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ashishact/ramble/internal/store"
	"github.com/ashishact/ramble/pkg/provider/llm"
)

// reflectionThreshold is the number of accumulated self-referential claims
// required before the observer spends a model call.
const reflectionThreshold = 10

// reflectionMaxClaims caps how many claims go into the prompt.
const reflectionMaxClaims = 50

var selfRefRE = regexp.MustCompile(`(?i)\b(I|me|my|mine|myself|I'm|I've|I'll|I'd)\b`)

const reflectionSystemPrompt = `You are given first-person claims a speaker has made about themselves over time.
Write a short reflection (2-4 sentences) on what these claims reveal about the speaker: recurring concerns, changes of mind, self-image. Plain prose, no preamble.`

// ReflectionObserver periodically asks the intelligent model tier to reflect
// on the speaker's accumulated self-referential claims.
type ReflectionObserver struct {
	chat *llm.Chat
}

func NewReflectionObserver(chat *llm.Chat) *ReflectionObserver {
	return &ReflectionObserver{chat: chat}
}

func (o *ReflectionObserver) Name() string { return "self_reflection" }
func (o *ReflectionObserver) Kind() Kind   { return KindLLM }

func (o *ReflectionObserver) Run(ctx context.Context, in Input) (Output, error) {
	var selfRef []string
	var claimIDs []string
	for _, c := range in.AllClaims {
		if !selfRefRE.MatchString(c.Text) {
			continue
		}
		selfRef = append(selfRef, c.Text)
		claimIDs = append(claimIDs, c.ID)
	}
	if len(selfRef) < reflectionThreshold {
		return Output{}, nil
	}
	if len(selfRef) > reflectionMaxClaims {
		selfRef = selfRef[len(selfRef)-reflectionMaxClaims:]
		claimIDs = claimIDs[len(claimIDs)-reflectionMaxClaims:]
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: reflectionSystemPrompt},
		{Role: llm.RoleUser, Content: "- " + strings.Join(selfRef, "\n- ")},
	}
	summary, err := o.chat.Complete(ctx, messages, llm.ChatOptions{
		Tier:      llm.TierIntelligent,
		MaxTokens: 512,
	})
	if err != nil {
		return Output{}, fmt.Errorf("self_reflection: %w", err)
	}
	if strings.TrimSpace(summary) == "" {
		return Output{}, nil
	}

	return Output{Insights: []*store.Insight{{
		Summary:  strings.TrimSpace(summary),
		ClaimIDs: claimIDs,
	}}}, nil
}
