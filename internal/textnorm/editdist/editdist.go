// Package editdist provides case-insensitive string distance and similarity
// measures for fuzzy matching of transcribed words.
//
// Three measures are exposed, each suited to a different error shape:
//
//   - [Levenshtein] — insertions, deletions, substitutions. The general
//     workhorse for arbitrary mistranscriptions.
//   - [DamerauLevenshtein] — adds adjacent transpositions, which dominate
//     typed input ("teh" → "the").
//   - [JaroWinkler] — bounded-window matching with a common-prefix boost,
//     best for short proper nouns where the leading sounds survive
//     transcription intact.
//
// All functions are pure and safe for concurrent use.
package editdist

import (
	"sort"
	"strings"

	"github.com/antzucaro/matchr"
)

// Levenshtein returns the minimum number of single-character insertions,
// deletions, and substitutions needed to turn a into b, case-insensitively.
func Levenshtein(a, b string) int {
	return matchr.Levenshtein(strings.ToLower(a), strings.ToLower(b))
}

// DamerauLevenshtein returns the Damerau-Levenshtein distance between a and
// b, case-insensitively. It extends [Levenshtein] with adjacent-character
// transpositions counted as a single edit.
func DamerauLevenshtein(a, b string) int {
	return matchr.DamerauLevenshtein(strings.ToLower(a), strings.ToLower(b))
}

// JaroWinkler returns the Jaro-Winkler similarity of a and b in [0, 1],
// case-insensitively. Matched leading characters boost the base Jaro score
// by 0.1 each, up to four characters.
func JaroWinkler(a, b string) float64 {
	return matchr.JaroWinkler(strings.ToLower(a), strings.ToLower(b), false)
}

// Similarity converts the Levenshtein distance of a and b into a score in
// [0, 1]: 1 - distance/max(len). Two equal strings (case-insensitively)
// score exactly 1; two strings with nothing in common score 0.
func Similarity(a, b string) float64 {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la == lb {
		return 1
	}
	maxLen := max(len(la), len(lb))
	if maxLen == 0 {
		return 1
	}
	sim := 1 - float64(matchr.Levenshtein(la, lb))/float64(maxLen)
	if sim < 0 {
		return 0
	}
	return sim
}

// Threshold returns the maximum acceptable edit distance for a word of the
// given length: short words tolerate a single edit, medium words two, long
// words three. Anything looser matches unrelated words.
func Threshold(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 2
	default:
		return 3
	}
}

// Match pairs a candidate with its distance and similarity to the word that
// was matched against.
type Match struct {
	// Candidate is the matched candidate string, in its original case.
	Candidate string

	// Distance is the Levenshtein distance to the query word.
	Distance int

	// Similarity is the [Similarity] score to the query word.
	Similarity float64
}

// FindBestMatches returns the candidates whose Levenshtein distance to word
// is within [Threshold] of the word's length, ordered by ascending distance
// and, within equal distance, descending similarity. Candidates equal to
// word (case-insensitively) are included with distance 0.
func FindBestMatches(word string, candidates []string) []Match {
	limit := Threshold(len(word))

	var matches []Match
	for _, c := range candidates {
		d := Levenshtein(word, c)
		if d > limit {
			continue
		}
		matches = append(matches, Match{
			Candidate:  c,
			Distance:   d,
			Similarity: Similarity(word, c),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].Similarity > matches[j].Similarity
	})
	return matches
}
