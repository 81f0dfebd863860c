package observers

import (
	"context"
	"fmt"
	"strings"

	"github.com/ashishact/ramble/internal/store"
)

// ContradictionObserver flags opposing stances on equivalent propositions:
// a claim in this unit that asserts what an earlier claim denies, or vice
// versa. Proposition equivalence is normalised text equality.
type ContradictionObserver struct{}

func NewContradictionObserver() *ContradictionObserver { return &ContradictionObserver{} }

func (o *ContradictionObserver) Name() string { return "contradiction" }
func (o *ContradictionObserver) Kind() Kind   { return KindNonLLM }

func (o *ContradictionObserver) Run(_ context.Context, in Input) (Output, error) {
	var out Output
	for _, c := range in.UnitClaims {
		if !opposable(c.Polarity) {
			continue
		}
		key := normalizeClaim(c.Text)
		for _, other := range in.AllClaims {
			if other.ID == c.ID || !opposable(other.Polarity) {
				continue
			}
			if other.Polarity == c.Polarity || normalizeClaim(other.Text) != key {
				continue
			}
			out.Insights = append(out.Insights, &store.Insight{
				Summary: fmt.Sprintf("contradiction: %q is both asserted and denied",
					c.Text),
				ClaimIDs: []string{c.ID, other.ID},
			})
		}
	}
	return out, nil
}

// opposable reports whether a polarity can take part in a contradiction.
// Hedges and questions do not commit the speaker.
func opposable(polarity string) bool {
	return polarity == store.PolarityAssert || polarity == store.PolarityDeny
}

func normalizeClaim(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' || r == ' ' {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
