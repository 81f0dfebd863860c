package observers

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/ashishact/ramble/internal/store"
)

// themeMinClaims is how many distinct claims must share a content word before
// it counts as a recurring theme.
const themeMinClaims = 3

var themeWordRE = regexp.MustCompile(`[A-Za-z][A-Za-z']*`)

var themeStopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "is": {},
	"are": {}, "was": {}, "were": {}, "be": {}, "been": {}, "to": {}, "of": {},
	"in": {}, "on": {}, "at": {}, "for": {}, "with": {}, "that": {}, "this": {},
	"it": {}, "not": {}, "i": {}, "my": {}, "me": {}, "we": {}, "you": {},
	"he": {}, "she": {}, "they": {}, "have": {}, "has": {}, "had": {}, "do": {},
	"does": {}, "did": {}, "will": {}, "would": {}, "about": {}, "very": {},
}

// ThemeObserver spots content words recurring across the accumulated claim
// set whenever the current unit touches them.
type ThemeObserver struct{}

func NewThemeObserver() *ThemeObserver { return &ThemeObserver{} }

func (o *ThemeObserver) Name() string { return "recurring_theme" }
func (o *ThemeObserver) Kind() Kind   { return KindNonLLM }

func (o *ThemeObserver) Run(_ context.Context, in Input) (Output, error) {
	if len(in.UnitClaims) == 0 {
		return Output{}, nil
	}

	// Count, per content word, the distinct claims mentioning it.
	claimsByWord := make(map[string][]*store.Claim)
	for _, c := range in.AllClaims {
		for _, w := range contentWords(c.Text) {
			known := claimsByWord[w]
			if len(known) > 0 && known[len(known)-1].ID == c.ID {
				continue
			}
			claimsByWord[w] = append(known, c)
		}
	}

	unitWords := make(map[string]struct{})
	for _, c := range in.UnitClaims {
		for _, w := range contentWords(c.Text) {
			unitWords[w] = struct{}{}
		}
	}

	var themes []string
	for w := range unitWords {
		if len(claimsByWord[w]) >= themeMinClaims {
			themes = append(themes, w)
		}
	}
	if len(themes) == 0 {
		return Output{}, nil
	}
	sort.Strings(themes)

	var out Output
	for _, w := range themes {
		claims := claimsByWord[w]
		ids := make([]string, 0, len(claims))
		for _, c := range claims {
			ids = append(ids, c.ID)
		}
		out.Insights = append(out.Insights, &store.Insight{
			Summary:  fmt.Sprintf("recurring theme %q across %d claims", w, len(claims)),
			ClaimIDs: ids,
		})
	}
	return out, nil
}

func contentWords(text string) []string {
	var words []string
	for _, w := range themeWordRE.FindAllString(text, -1) {
		lw := strings.ToLower(w)
		if _, stop := themeStopWords[lw]; stop || len(lw) < 3 {
			continue
		}
		words = append(words, lw)
	}
	return words
}
