package vocab

import (
	"context"
	"fmt"

	"github.com/ashishact/ramble/internal/textnorm/contextmatch"
	"github.com/ashishact/ramble/internal/textnorm/editdist"
	"github.com/ashishact/ramble/internal/textnorm/phonetic"
)

// DefaultMinConfidence is the combined-score floor below which a
// multi-candidate lookup reports no match.
const DefaultMinConfidence = 0.5

// Confidence assigned when the candidate set collapses to a single entry
// without needing context disambiguation.
const (
	singlePhoneticConfidence = 0.85
	singleEditConfidence     = 0.70
)

// MatchResult is the outcome of one vocabulary lookup.
type MatchResult struct {
	// Matched reports whether the word resolved to a vocabulary entry with
	// sufficient confidence.
	Matched bool

	// Entry is the resolved entry. Nil when Matched is false.
	Entry *Entry

	// Confidence is in [0,1]. 1.0 only for exact spelling matches.
	Confidence float64

	// MatchType records which tier decided the lookup.
	MatchType contextmatch.MatchType
}

// Matcher resolves mis-transcribed words against the vocabulary. Lookups
// are side-effect free; observation counting is the caller's decision.
//
// A lookup terminates at the first satisfied tier: exact spelling, then a
// phonetic-and-edit-distance candidate sweep, with context disambiguation
// only when several entries survive the sweep.
type Matcher struct {
	store         Store
	ranker        *contextmatch.Matcher
	minConfidence float64
}

// MatcherOption configures a Matcher.
type MatcherOption func(*Matcher)

// WithMinConfidence overrides the combined-score floor for multi-candidate
// lookups.
func WithMinConfidence(min float64) MatcherOption {
	return func(m *Matcher) { m.minConfidence = min }
}

// NewMatcher creates a Matcher over the given vocabulary store.
func NewMatcher(store Store, opts ...MatcherOption) *Matcher {
	m := &Matcher{
		store:         store,
		ranker:        contextmatch.New(),
		minConfidence: DefaultMinConfidence,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Match resolves word against the vocabulary. wordContext carries the words
// adjacent to the transcription, used only when several entries compete.
// entityType, when non-empty, restricts the search.
func (m *Matcher) Match(ctx context.Context, word string, wordContext []string, entityType string) (MatchResult, error) {
	if exact, err := m.store.GetByCanonical(ctx, word, entityType); err != nil {
		return MatchResult{}, fmt.Errorf("vocab: match %q: %w", word, err)
	} else if exact != nil {
		return MatchResult{Matched: true, Entry: exact, Confidence: 1.0, MatchType: contextmatch.MatchExact}, nil
	}
	if aliased, err := m.store.GetByAlias(ctx, word, entityType); err != nil {
		return MatchResult{}, fmt.Errorf("vocab: match %q: %w", word, err)
	} else if aliased != nil {
		return MatchResult{Matched: true, Entry: aliased, Confidence: 1.0, MatchType: contextmatch.MatchExact}, nil
	}

	candidates, phoneticHits, err := m.gatherCandidates(ctx, word, entityType)
	if err != nil {
		return MatchResult{}, fmt.Errorf("vocab: match %q: %w", word, err)
	}

	switch len(candidates) {
	case 0:
		return MatchResult{}, nil
	case 1:
		only := candidates[0]
		confidence := singleEditConfidence
		matchType := contextmatch.MatchFuzzy
		if phoneticHits[only.ID] {
			confidence = singlePhoneticConfidence
			matchType = contextmatch.MatchPhonetic
		}
		return MatchResult{Matched: true, Entry: only, Confidence: confidence, MatchType: matchType}, nil
	}

	ranked := m.ranker.Rank(word, wordContext, toCandidates(candidates))
	best := ranked[0]
	if best.CombinedScore < m.minConfidence {
		return MatchResult{Confidence: best.CombinedScore, MatchType: best.Type}, nil
	}
	entry := entryByCanonical(candidates, best.Candidate)
	return MatchResult{Matched: true, Entry: entry, Confidence: best.CombinedScore, MatchType: best.Type}, nil
}

// gatherCandidates unions the phonetic-code lookups with an edit-distance
// sweep over the full vocabulary. phoneticHits marks which entry IDs came
// in through the phonetic path.
func (m *Matcher) gatherCandidates(ctx context.Context, word, entityType string) ([]*Entry, map[string]bool, error) {
	byID := make(map[string]*Entry)
	phoneticHits := make(map[string]bool)

	enc := phonetic.Encode(word)
	for _, code := range []string{enc.Primary, enc.Secondary} {
		if code == "" {
			continue
		}
		hits, err := m.store.GetByPhoneticCode(ctx, code, entityType)
		if err != nil {
			return nil, nil, err
		}
		for _, e := range hits {
			byID[e.ID] = e
			phoneticHits[e.ID] = true
		}
	}

	all, err := m.store.All(ctx, entityType)
	if err != nil {
		return nil, nil, err
	}
	canonicals := make([]string, len(all))
	for i, e := range all {
		canonicals[i] = e.Canonical
	}
	for _, match := range editdist.FindBestMatches(word, canonicals) {
		if e := entryByCanonical(all, match.Candidate); e != nil {
			if _, seen := byID[e.ID]; !seen {
				byID[e.ID] = e
			}
		}
	}

	out := make([]*Entry, 0, len(byID))
	for _, e := range all {
		if kept, ok := byID[e.ID]; ok {
			out = append(out, kept)
		}
	}
	return out, phoneticHits, nil
}

func toCandidates(entries []*Entry) []contextmatch.Candidate {
	out := make([]contextmatch.Candidate, len(entries))
	for i, e := range entries {
		out[i] = contextmatch.Candidate{Text: e.Canonical, ContextHints: e.ContextHints}
	}
	return out
}

func entryByCanonical(entries []*Entry, canonical string) *Entry {
	for _, e := range entries {
		if e.Canonical == canonical {
			return e
		}
	}
	return nil
}
