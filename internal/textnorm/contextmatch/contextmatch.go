// Package contextmatch ranks correction candidates for a transcribed word by
// combining three independent signals: phonetic similarity (how the word
// sounds), edit similarity (how it is spelled), and context overlap (whether
// the words around it look like the words the candidate usually appears
// with).
//
// The combination is a weighted sum — phonetic evidence dominates because
// the input is speech, spelling is secondary, and context breaks ties
// between candidates that sound alike.
package contextmatch

import (
	"sort"
	"strings"

	"github.com/ashishact/ramble/internal/textnorm/editdist"
	"github.com/ashishact/ramble/internal/textnorm/phonetic"
)

// Default combination weights. They sum to 1 so CombinedScore stays in [0, 1].
const (
	defaultPhoneticWeight = 0.5
	defaultEditWeight     = 0.3
	defaultContextWeight  = 0.2
)

// hintSimilarityFloor is the minimum edit similarity for a context word to
// count as matching a candidate's context hint.
const hintSimilarityFloor = 0.8

// MatchType labels how a candidate was matched. It is assigned by a priority
// rule, not computed from the scores independently.
type MatchType string

const (
	// MatchExact — the word equals the candidate after normalisation.
	MatchExact MatchType = "exact"

	// MatchPhonetic — the phonetic score is high enough that the word is
	// almost certainly a mishearing of the candidate.
	MatchPhonetic MatchType = "phonetic"

	// MatchContext — surrounding words carried the decision between several
	// plausible candidates.
	MatchContext MatchType = "context"

	// MatchFuzzy — only spelling similarity supports the match.
	MatchFuzzy MatchType = "fuzzy"
)

// Candidate is one possible correction for a transcribed word, together
// with the words it is typically seen near (used for the context signal).
type Candidate struct {
	// Text is the candidate's canonical spelling.
	Text string

	// ContextHints are words commonly adjacent to this candidate. May be empty,
	// in which case the candidate's context score is always 0.
	ContextHints []string
}

// Match is a scored candidate produced by [Matcher.Rank].
type Match struct {
	// Candidate is the candidate's canonical spelling.
	Candidate string

	// PhoneticScore is the tiered Double Metaphone similarity (see the
	// phonetic package).
	PhoneticScore float64

	// EditScore is the Levenshtein-based similarity in [0, 1].
	EditScore float64

	// ContextScore is the fraction of context words that edit-match one of
	// the candidate's hints.
	ContextScore float64

	// CombinedScore is the weighted sum of the three scores.
	CombinedScore float64

	// Type records which signal decided the match.
	Type MatchType
}

// stopWords are excluded from context comparison — they are adjacent to
// everything and carry no disambiguation signal.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "but": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "of": {}, "for": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {},
	"i": {}, "you": {}, "he": {}, "she": {}, "it": {}, "we": {}, "they": {},
	"my": {}, "your": {}, "his": {}, "her": {}, "its": {}, "our": {}, "their": {},
	"that": {}, "this": {}, "with": {}, "as": {}, "so": {}, "not": {},
}

// Option is a functional option for configuring a [Matcher].
type Option func(*Matcher)

// WithWeights overrides the default combination weights (0.5 phonetic,
// 0.3 edit, 0.2 context). Callers should keep the sum at 1 so that
// CombinedScore remains comparable to the match-type thresholds.
func WithWeights(phoneticW, editW, contextW float64) Option {
	return func(m *Matcher) {
		m.phoneticWeight = phoneticW
		m.editWeight = editW
		m.contextWeight = contextW
	}
}

// Matcher ranks candidates for a transcribed word. It is read-only after
// construction and safe for concurrent use.
type Matcher struct {
	phoneticWeight float64
	editWeight     float64
	contextWeight  float64
}

// New returns a [Matcher] with the supplied options applied.
func New(opts ...Option) *Matcher {
	m := &Matcher{
		phoneticWeight: defaultPhoneticWeight,
		editWeight:     defaultEditWeight,
		contextWeight:  defaultContextWeight,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Rank scores every candidate against word and returns them ordered by
// descending CombinedScore. context holds the words surrounding the
// transcribed word (typically one before and one after); stop words are
// filtered out before scoring.
//
// Rank never mutates its inputs and returns an empty (non-nil) slice when
// candidates is empty.
func (m *Matcher) Rank(word string, context []string, candidates []Candidate) []Match {
	wordNorm := normalize(word)
	ctx := filterStopWords(context)

	matches := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		candNorm := normalize(c.Text)

		match := Match{
			Candidate:     c.Text,
			PhoneticScore: phonetic.Similarity(wordNorm, candNorm),
			EditScore:     editdist.Similarity(wordNorm, candNorm),
			ContextScore:  contextOverlap(ctx, c.ContextHints),
		}
		match.CombinedScore = m.phoneticWeight*match.PhoneticScore +
			m.editWeight*match.EditScore +
			m.contextWeight*match.ContextScore
		match.Type = classify(wordNorm, candNorm, match, len(candidates))

		matches = append(matches, match)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].CombinedScore > matches[j].CombinedScore
	})
	return matches
}

// classify assigns the match type by priority: exact beats phonetic beats
// context beats fuzzy. Context can only decide when there is actually a
// choice to make (more than one candidate).
func classify(wordNorm, candNorm string, match Match, candidateCount int) MatchType {
	switch {
	case wordNorm == candNorm:
		return MatchExact
	case match.PhoneticScore >= 0.8:
		return MatchPhonetic
	case match.ContextScore >= 0.5 && candidateCount > 1:
		return MatchContext
	default:
		return MatchFuzzy
	}
}

// contextOverlap returns the fraction of context words that have at least
// [hintSimilarityFloor] edit similarity to one of the hints. Returns 0 when
// either side is empty — absence of context is no evidence either way.
func contextOverlap(context, hints []string) float64 {
	if len(context) == 0 || len(hints) == 0 {
		return 0
	}

	matched := 0
	for _, cw := range context {
		for _, h := range hints {
			if editdist.Similarity(cw, h) >= hintSimilarityFloor {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(context))
}

// filterStopWords returns context without stop words, preserving order.
func filterStopWords(context []string) []string {
	out := make([]string, 0, len(context))
	for _, w := range context {
		if _, stop := stopWords[strings.ToLower(w)]; stop {
			continue
		}
		if strings.TrimSpace(w) == "" {
			continue
		}
		out = append(out, w)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
