// Package phonetic provides Double Metaphone encoding for transcription
// correction and entity matching.
//
// Double Metaphone maps a word to up to two short consonant-skeleton codes
// that capture how the word sounds rather than how it is spelled. Two words
// that share a code are plausible mishearings of one another ("Knight" and
// "Nite" encode identically), which is exactly the failure mode of
// speech-to-text output on proper nouns.
//
// The encoding is deterministic, locale-independent, and performs no I/O:
// input is reduced to ASCII letters before encoding and codes are clamped
// to four characters. The secondary code exists only when it differs from
// the primary; it captures pronunciation ambiguity (soft vs. hard
// consonants, alternate language readings).
package phonetic

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// maxCodeLength is the maximum length of an emitted phonetic code.
const maxCodeLength = 4

// Similarity tier values. A shared primary code is the strongest phonetic
// signal; matches involving a secondary code are progressively weaker.
const (
	simPrimary   = 1.0
	simCross     = 0.8
	simSecondary = 0.6
)

// Encoding holds the Double Metaphone codes for a single word.
type Encoding struct {
	// Primary is the main phonetic code, at most four characters.
	// Empty when the input contains no encodable letters.
	Primary string

	// Secondary is the alternate pronunciation code. Empty when the
	// alternate reading would equal Primary.
	Secondary string
}

// HasSecondary reports whether the word has a distinct alternate
// pronunciation code.
func (e Encoding) HasSecondary() bool { return e.Secondary != "" }

// Encode computes the Double Metaphone codes for word. Non-letter runes are
// stripped before encoding and both codes are clamped to four characters.
// Encoding an empty or letter-free string yields a zero Encoding.
func Encode(word string) Encoding {
	cleaned := stripNonLetters(word)
	if cleaned == "" {
		return Encoding{}
	}

	primary, secondary := matchr.DoubleMetaphone(cleaned)
	primary = clamp(primary)
	secondary = clamp(secondary)

	if secondary == primary {
		secondary = ""
	}
	return Encoding{Primary: primary, Secondary: secondary}
}

// Similarity compares two words by their phonetic codes and returns a tiered
// score:
//
//	1.0 — primary codes match
//	0.8 — one word's primary matches the other's secondary
//	0.6 — secondary codes match
//	0.0 — no code overlap, or either word is unencodable
func Similarity(a, b string) float64 {
	return CodeSimilarity(Encode(a), Encode(b))
}

// CodeSimilarity compares two precomputed encodings using the same tiers as
// [Similarity]. Use this on hot paths where encodings are cached (e.g., the
// vocabulary store precomputes codes on write).
func CodeSimilarity(a, b Encoding) float64 {
	if a.Primary == "" || b.Primary == "" {
		return 0
	}
	if a.Primary == b.Primary {
		return simPrimary
	}
	if (b.HasSecondary() && a.Primary == b.Secondary) ||
		(a.HasSecondary() && a.Secondary == b.Primary) {
		return simCross
	}
	if a.HasSecondary() && b.HasSecondary() && a.Secondary == b.Secondary {
		return simSecondary
	}
	return 0
}

// stripNonLetters removes every rune outside [A-Za-z]. Double Metaphone is
// defined over ASCII letters; digits, punctuation, and accents carry no
// phonetic information at this layer.
func stripNonLetters(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// clamp truncates a code to maxCodeLength characters.
func clamp(code string) string {
	if len(code) > maxCodeLength {
		return code[:maxCodeLength]
	}
	return code
}
