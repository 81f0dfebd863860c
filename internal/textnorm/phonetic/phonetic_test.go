package phonetic_test

import (
	"testing"

	"github.com/ashishact/ramble/internal/textnorm/phonetic"
)

func TestEncode_CodeLength(t *testing.T) {
	t.Parallel()

	words := []string{"a", "Smith", "Knight", "extraordinarily", "Przybylski", "catastrophe"}
	for _, w := range words {
		enc := phonetic.Encode(w)
		if len(enc.Primary) > 4 {
			t.Errorf("Encode(%q).Primary = %q, longer than 4 characters", w, enc.Primary)
		}
		if len(enc.Secondary) > 4 {
			t.Errorf("Encode(%q).Secondary = %q, longer than 4 characters", w, enc.Secondary)
		}
	}
}

func TestEncode_SecondaryNeverEqualsPrimary(t *testing.T) {
	t.Parallel()

	words := []string{"Smith", "cat", "Knight", "Schmidt", "Jose", "thought", "xylophone"}
	for _, w := range words {
		enc := phonetic.Encode(w)
		if enc.Secondary != "" && enc.Secondary == enc.Primary {
			t.Errorf("Encode(%q): secondary %q equals primary", w, enc.Secondary)
		}
	}
}

func TestEncode_Deterministic(t *testing.T) {
	t.Parallel()

	a := phonetic.Encode("Eldrinax")
	b := phonetic.Encode("Eldrinax")
	if a != b {
		t.Errorf("Encode not deterministic: %+v vs %+v", a, b)
	}
}

func TestEncode_StripsNonLetters(t *testing.T) {
	t.Parallel()

	if got, want := phonetic.Encode("Sm1th!"), phonetic.Encode("Smth"); got != want {
		t.Errorf("Encode with non-letters = %+v, want %+v", got, want)
	}
	if enc := phonetic.Encode("1234!?"); enc.Primary != "" {
		t.Errorf("Encode of letter-free input = %+v, want zero Encoding", enc)
	}
}

func TestSimilarity_HomophonesShareCode(t *testing.T) {
	t.Parallel()

	// "Knight" and "Nite" are the canonical Double Metaphone homophone pair:
	// the leading K is silent and both reduce to the same code.
	if sim := phonetic.Similarity("Knight", "Nite"); sim != 1.0 {
		t.Errorf("Similarity(Knight, Nite) = %v, want 1.0", sim)
	}
}

func TestSimilarity_IdenticalWord(t *testing.T) {
	t.Parallel()

	if sim := phonetic.Similarity("Smith", "smith"); sim != 1.0 {
		t.Errorf("Similarity(Smith, smith) = %v, want 1.0", sim)
	}
}

func TestSimilarity_Unrelated(t *testing.T) {
	t.Parallel()

	if sim := phonetic.Similarity("Smith", "Eldrinax"); sim != 0 {
		t.Errorf("Similarity(Smith, Eldrinax) = %v, want 0", sim)
	}
}

func TestSimilarity_EmptyInput(t *testing.T) {
	t.Parallel()

	if sim := phonetic.Similarity("", "Smith"); sim != 0 {
		t.Errorf("Similarity with empty word = %v, want 0", sim)
	}
}

func TestCodeSimilarity_CrossTier(t *testing.T) {
	t.Parallel()

	a := phonetic.Encoding{Primary: "XMT", Secondary: "SMT"}
	b := phonetic.Encoding{Primary: "SMT"}
	if sim := phonetic.CodeSimilarity(a, b); sim != 0.8 {
		t.Errorf("cross primary/secondary similarity = %v, want 0.8", sim)
	}

	c := phonetic.Encoding{Primary: "KMT", Secondary: "SMT"}
	d := phonetic.Encoding{Primary: "TMT", Secondary: "SMT"}
	if sim := phonetic.CodeSimilarity(c, d); sim != 0.6 {
		t.Errorf("secondary/secondary similarity = %v, want 0.6", sim)
	}
}
