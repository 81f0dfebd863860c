package contextmatch_test

import (
	"testing"

	"github.com/ashishact/ramble/internal/textnorm/contextmatch"
)

func TestRank_ExactMatchWinsWithFullScore(t *testing.T) {
	t.Parallel()

	m := contextmatch.New()
	matches := m.Rank("paris", nil, []contextmatch.Candidate{
		{Text: "Paris"},
		{Text: "Parma"},
	})

	if len(matches) != 2 {
		t.Fatalf("Rank returned %d matches, want 2", len(matches))
	}
	if matches[0].Candidate != "Paris" {
		t.Fatalf("best match = %q, want Paris", matches[0].Candidate)
	}
	if matches[0].Type != contextmatch.MatchExact {
		t.Errorf("best match type = %q, want exact", matches[0].Type)
	}
	if matches[0].PhoneticScore != 1.0 || matches[0].EditScore != 1.0 {
		t.Errorf("exact match scores = %+v, want phonetic and edit both 1.0", matches[0])
	}
}

func TestRank_PhoneticBeatsFuzzy(t *testing.T) {
	t.Parallel()

	m := contextmatch.New()
	matches := m.Rank("nite", nil, []contextmatch.Candidate{
		{Text: "Knight"},
		{Text: "Dawn"},
	})

	if matches[0].Candidate != "Knight" {
		t.Fatalf("best match = %q, want Knight (phonetic homophone)", matches[0].Candidate)
	}
	if matches[0].Type != contextmatch.MatchPhonetic {
		t.Errorf("best match type = %q, want phonetic", matches[0].Type)
	}
}

func TestRank_ContextBreaksTies(t *testing.T) {
	t.Parallel()

	m := contextmatch.New()
	// Both candidates are phonetically distant; surrounding words decide.
	matches := m.Rank("jon",
		[]string{"doctor", "hospital"},
		[]contextmatch.Candidate{
			{Text: "John", ContextHints: []string{"doctor", "hospital"}},
			{Text: "Joan", ContextHints: []string{"singer", "stage"}},
		})

	if matches[0].Candidate != "John" {
		t.Fatalf("best match = %q, want John (context hints matched)", matches[0].Candidate)
	}
	if matches[0].ContextScore != 1.0 {
		t.Errorf("John context score = %v, want 1.0", matches[0].ContextScore)
	}
	if matches[1].ContextScore != 0 {
		t.Errorf("Joan context score = %v, want 0", matches[1].ContextScore)
	}
}

func TestRank_ContextTypeRequiresMultipleCandidates(t *testing.T) {
	t.Parallel()

	m := contextmatch.New()
	// Single candidate with strong context overlap but weak phonetics:
	// the type must stay fuzzy because there was no choice to disambiguate.
	matches := m.Rank("zzz",
		[]string{"doctor"},
		[]contextmatch.Candidate{
			{Text: "Quartermaine", ContextHints: []string{"doctor"}},
		})

	if matches[0].Type == contextmatch.MatchContext {
		t.Errorf("single-candidate match classified as context, want fuzzy")
	}
}

func TestRank_StopWordsExcludedFromContext(t *testing.T) {
	t.Parallel()

	m := contextmatch.New()
	// "the" and "a" are stop words; only "doctor" should count, so the
	// overlap is 1/1, not 1/3.
	matches := m.Rank("jon",
		[]string{"the", "doctor", "a"},
		[]contextmatch.Candidate{
			{Text: "John", ContextHints: []string{"doctor"}},
			{Text: "Joan", ContextHints: []string{"stage"}},
		})

	if matches[0].ContextScore != 1.0 {
		t.Errorf("context score with stop words = %v, want 1.0", matches[0].ContextScore)
	}
}

func TestRank_EmptyContextScoresZero(t *testing.T) {
	t.Parallel()

	m := contextmatch.New()
	matches := m.Rank("jon", nil, []contextmatch.Candidate{
		{Text: "John", ContextHints: []string{"doctor"}},
	})
	if matches[0].ContextScore != 0 {
		t.Errorf("context score with no context = %v, want 0", matches[0].ContextScore)
	}
}

func TestRank_CombinedScoreWithinBounds(t *testing.T) {
	t.Parallel()

	m := contextmatch.New()
	matches := m.Rank("pariz",
		[]string{"visited", "france"},
		[]contextmatch.Candidate{
			{Text: "Paris", ContextHints: []string{"france"}},
			{Text: "London"},
		})
	for _, match := range matches {
		if match.CombinedScore < 0 || match.CombinedScore > 1 {
			t.Errorf("combined score %v out of [0,1] for %q", match.CombinedScore, match.Candidate)
		}
	}
}

func TestRank_CustomWeights(t *testing.T) {
	t.Parallel()

	// With all weight on context, the hint-backed candidate must win even
	// when it is the worse spelling match.
	m := contextmatch.New(contextmatch.WithWeights(0, 0, 1))
	matches := m.Rank("jon",
		[]string{"doctor"},
		[]contextmatch.Candidate{
			{Text: "Jon"},
			{Text: "Quartermaine", ContextHints: []string{"doctor"}},
		})
	if matches[0].Candidate != "Quartermaine" {
		t.Errorf("best match = %q, want Quartermaine under context-only weights", matches[0].Candidate)
	}
}

func TestRank_EmptyCandidates(t *testing.T) {
	t.Parallel()

	m := contextmatch.New()
	matches := m.Rank("word", nil, nil)
	if matches == nil {
		t.Fatal("Rank returned nil, want empty slice")
	}
	if len(matches) != 0 {
		t.Errorf("Rank returned %d matches, want 0", len(matches))
	}
}
