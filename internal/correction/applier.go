package correction

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// Applier replaces known wrong spellings in text with their taught
// corrections. It is safe for concurrent use.
type Applier struct {
	store Store
	log   *slog.Logger
}

// NewApplier creates an Applier backed by the given store.
func NewApplier(store Store, log *slog.Logger) *Applier {
	if log == nil {
		log = slog.Default()
	}
	return &Applier{store: store, log: log}
}

// Apply substitutes every stored correction into text. Matching is
// whole-word and case-insensitive; each replacement adopts the case style
// of the instance it replaces. Longer wrong texts are applied first so a
// multi-word correction is never clobbered by one of its sub-words.
//
// Usage counting is best-effort: a store failure there is logged and does
// not fail the call.
func (a *Applier) Apply(ctx context.Context, text string) (string, error) {
	corrections, err := a.store.All(ctx)
	if err != nil {
		return "", err
	}
	if len(corrections) == 0 {
		return text, nil
	}

	sort.SliceStable(corrections, func(i, j int) bool {
		return len(corrections[i].WrongText) > len(corrections[j].WrongText)
	})

	for _, c := range corrections {
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(c.WrongText) + `\b`)
		if err != nil {
			a.log.Warn("skipping unmatchable correction", "wrong", c.WrongText, "error", err)
			continue
		}
		applied := false
		text = re.ReplaceAllStringFunc(text, func(match string) string {
			applied = true
			return matchCase(match, c)
		})
		if applied {
			if err := a.store.IncrementUsage(ctx, c.WrongText); err != nil {
				a.log.Warn("correction usage count not updated", "wrong", c.WrongText, "error", err)
			}
		}
	}
	return text, nil
}

// matchCase renders the correct text in the case style of the matched
// instance. When the instance's style is mixed or unrecognizable, the
// casing the user originally taught wins.
func matchCase(match string, c *Correction) string {
	switch {
	case isAllUpper(match):
		return strings.ToUpper(c.CorrectText)
	case isAllLower(match):
		return strings.ToLower(c.CorrectText)
	case isCapitalized(match):
		return capitalize(c.CorrectText)
	case c.OriginalCase != "":
		return c.OriginalCase
	default:
		return c.CorrectText
	}
}

func isAllUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}

func isAllLower(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) && !unicode.IsLower(r) {
			return false
		}
	}
	return true
}

func isCapitalized(s string) bool {
	runes := []rune(s)
	if len(runes) == 0 || !unicode.IsUpper(runes[0]) {
		return false
	}
	return isAllLower(string(runes[1:]))
}

func capitalize(s string) string {
	runes := []rune(strings.ToLower(s))
	if len(runes) == 0 {
		return s
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
