package extract_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/ashishact/ramble/internal/extract"
	"github.com/ashishact/ramble/pkg/provider/llm"
	"github.com/ashishact/ramble/pkg/provider/llm/mock"
)

const goodResponse = `{
  "propositions": [
    {"text": "The meeting is on Tuesday", "polarity": "assert", "confidence": 0.9}
  ],
  "relations": [
    {"type": "works_at", "from": "Alice", "to": "Acme"}
  ],
  "mentions": [
    {"text": "Alice", "type": "person"},
    {"text": "Acme", "type": "organization"}
  ]
}`

func newExtractor(p *mock.Provider) *extract.Extractor {
	return extract.New(llm.NewChat(p), slog.Default())
}

func TestExtract_ParsesPrimitives(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{CompleteResponse: &llm.CompletionResponse{Content: goodResponse}}
	e := newExtractor(p)

	res, err := e.Extract(context.Background(), "Alice from Acme said the meeting is on Tuesday.")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got := len(res.Primitives.Propositions); got != 1 {
		t.Fatalf("propositions = %d, want 1", got)
	}
	if res.Primitives.Propositions[0].Polarity != "assert" {
		t.Errorf("polarity = %q, want assert", res.Primitives.Propositions[0].Polarity)
	}
	if got := len(res.Primitives.Mentions); got != 2 {
		t.Errorf("mentions = %d, want 2", got)
	}
	if len(p.CompleteCalls) != 1 {
		t.Errorf("LLM calls = %d, want exactly 1", len(p.CompleteCalls))
	}
	if res.Response != goodResponse {
		t.Error("raw response not archived on result")
	}
}

func TestExtract_ToleratesCodeFences(t *testing.T) {
	t.Parallel()

	fenced := "```json\n" + goodResponse + "\n```"
	p := &mock.Provider{CompleteResponse: &llm.CompletionResponse{Content: fenced}}
	e := newExtractor(p)

	res, err := e.Extract(context.Background(), "some text")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(res.Primitives.Propositions) != 1 {
		t.Errorf("propositions = %d, want 1", len(res.Primitives.Propositions))
	}
}

func TestExtract_UnparseableDegradesToZeroPrimitives(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "sorry, I cannot help with that"}}
	e := newExtractor(p)

	res, err := e.Extract(context.Background(), "some text")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(res.Primitives.Propositions) != 0 || len(res.Primitives.Mentions) != 0 {
		t.Error("expected zero primitives for unparseable response")
	}
	if res.Response == "" {
		t.Error("raw response must still be archived for the trace")
	}
}

func TestParseResponse_RoundTripsTrace(t *testing.T) {
	t.Parallel()

	prims, err := extract.ParseResponse(goodResponse)
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if len(prims.Propositions) != 1 || len(prims.Relations) != 1 || len(prims.Mentions) != 2 {
		t.Errorf("unexpected primitive counts: %+v", prims)
	}
}

func TestParseResponse_DefaultsMissingPolarity(t *testing.T) {
	t.Parallel()

	prims, err := extract.ParseResponse(`{"propositions":[{"text":"x","confidence":0.5}]}`)
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if prims.Propositions[0].Polarity != "assert" {
		t.Errorf("polarity = %q, want assert", prims.Propositions[0].Polarity)
	}
}
