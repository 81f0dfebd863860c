// Package extract turns preprocessed unit text into knowledge primitives.
//
// One LLM call per unit produces propositions with stances, relations between
// named things, and raw entity mentions. The response is strict JSON; anything
// the model returns outside that contract degrades to zero primitives rather
// than failing the unit.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ashishact/ramble/pkg/provider/llm"
)

// Proposition is a single extracted statement paired with the speaker's stance.
type Proposition struct {
	Text       string  `json:"text"`
	Polarity   string  `json:"polarity"`
	Confidence float64 `json:"confidence"`
}

// Relation links two mentioned things by a typed edge.
type Relation struct {
	Type string `json:"type"`
	From string `json:"from"`
	To   string `json:"to"`
}

// Mention is a raw entity reference as it appeared in the text, unresolved.
type Mention struct {
	Text string `json:"text"`
	Type string `json:"type"`
}

// Primitives is everything one extraction call yields.
type Primitives struct {
	Propositions []Proposition `json:"propositions"`
	Relations    []Relation    `json:"relations"`
	Mentions     []Mention     `json:"mentions"`
}

// Result carries the parsed primitives plus the raw exchange for the trace
// record. Prompt and Response are archived verbatim so a replay can re-parse
// without a second model call.
type Result struct {
	Primitives Primitives
	Model      string
	Prompt     string
	Response   string
}

const systemPrompt = `You extract structured knowledge from one unit of conversational text.
Reply with a single JSON object and nothing else:
{
  "propositions": [{"text": "...", "polarity": "assert|deny|hedge|question", "confidence": 0.0}],
  "relations": [{"type": "...", "from": "...", "to": "..."}],
  "mentions": [{"text": "...", "type": "person|place|organization|thing"}]
}
Propositions are standalone declarative restatements. Mentions are entity names exactly as written.
Return empty arrays when nothing applies.`

// maxPromptTokens caps the estimated prompt size. Text beyond the cap is
// truncated from the end; conversational units are short so this rarely fires.
const maxPromptTokens = 8_000

// Extractor performs the extract_primitives LLM call.
type Extractor struct {
	chat *llm.Chat
	log  *slog.Logger
}

// New creates an Extractor on the fast model tier.
func New(chat *llm.Chat, log *slog.Logger) *Extractor {
	if log == nil {
		log = slog.Default()
	}
	return &Extractor{chat: chat, log: log}
}

// Extract issues the single extraction call for the given preprocessed text.
// A response that is not valid JSON yields zero primitives and a warning, not
// an error; transient provider failures are returned to the caller.
func (e *Extractor) Extract(ctx context.Context, text string) (*Result, error) {
	prompt := e.boundedPrompt(text)
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: prompt},
	}

	response, err := e.chat.Complete(ctx, messages, llm.ChatOptions{
		Tier:        llm.TierFast,
		Temperature: 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("extract: completion: %w", err)
	}

	result := &Result{
		Model:    string(llm.TierFast),
		Prompt:   prompt,
		Response: response,
	}

	prims, err := ParseResponse(response)
	if err != nil {
		e.log.Warn("unparseable extraction response, degrading to zero primitives", "err", err)
		return result, nil
	}
	result.Primitives = prims
	return result, nil
}

// boundedPrompt truncates text whose token estimate exceeds maxPromptTokens.
func (e *Extractor) boundedPrompt(text string) string {
	msgs := []llm.Message{{Role: llm.RoleUser, Content: text}}
	n, err := e.chat.CountTokens(llm.TierFast, msgs)
	if err != nil || n <= maxPromptTokens {
		return text
	}
	// ~4 chars per token, same approximation the providers use.
	limit := maxPromptTokens * 4
	if len(text) > limit {
		text = text[:limit]
	}
	e.log.Warn("extraction prompt truncated", "estimated_tokens", n)
	return text
}

// ParseResponse decodes a model reply into Primitives. Markdown code fences
// around the JSON are tolerated. Used both on the live path and when
// reconstructing primitives from an archived trace.
func ParseResponse(response string) (Primitives, error) {
	var prims Primitives
	body := stripFences(response)
	if err := json.Unmarshal([]byte(body), &prims); err != nil {
		return Primitives{}, fmt.Errorf("extract: parse response: %w", err)
	}
	for i, p := range prims.Propositions {
		if p.Polarity == "" {
			prims.Propositions[i].Polarity = "assert"
		}
	}
	return prims, nil
}

// stripFences removes a surrounding markdown code fence, if present.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
