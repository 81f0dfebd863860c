package correction_test

import (
	"testing"

	"github.com/ashishact/ramble/internal/correction"
)

func TestParseCorrections_Templates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		text       string
		wrong      string
		right      string
		confidence float64
	}{
		{"i meant", "i meant Paris not Pariz", "Pariz", "Paris", 0.95},
		{"should be", "Pariz should be Paris", "Pariz", "Paris", 0.90},
		{"change to", "change Pariz to Paris", "Pariz", "Paris", 0.90},
		{"correct to", "correct Pariz to Paris", "Pariz", "Paris", 0.85},
		{"is spelled", "Pariz is spelled Paris", "Pariz", "Paris", 0.85},
		{"comma not", "Paris, not Pariz", "Pariz", "Paris", 0.70},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := correction.ParseCorrections(tt.text)
			if len(res.Corrections) != 1 {
				t.Fatalf("ParseCorrections(%q) found %d corrections, want 1", tt.text, len(res.Corrections))
			}
			c := res.Corrections[0]
			if c.WrongText != tt.wrong || c.CorrectText != tt.right {
				t.Errorf("got %q -> %q, want %q -> %q", c.WrongText, c.CorrectText, tt.wrong, tt.right)
			}
			if c.Confidence != tt.confidence {
				t.Errorf("confidence = %v, want %v", c.Confidence, tt.confidence)
			}
			if res.RemainingText != "" {
				t.Errorf("RemainingText = %q, want empty", res.RemainingText)
			}
		})
	}
}

func TestParseCorrections_PreservesSurroundingText(t *testing.T) {
	t.Parallel()

	res := correction.ParseCorrections("The capital is Pariz. I meant Paris not Pariz")
	if len(res.Corrections) != 1 {
		t.Fatalf("found %d corrections, want 1", len(res.Corrections))
	}
	if got, want := res.RemainingText, "The capital is Pariz."; got != want {
		t.Errorf("RemainingText = %q, want %q", got, want)
	}
}

func TestParseCorrections_ExplicitFormWinsOverTerse(t *testing.T) {
	t.Parallel()

	// "I meant Paris, not Pariz" also matches the terse "X, not Y" form;
	// the explicit phrasing must win with its higher confidence.
	res := correction.ParseCorrections("I meant Paris, not Pariz")
	if len(res.Corrections) != 1 {
		t.Fatalf("found %d corrections, want 1", len(res.Corrections))
	}
	if got := res.Corrections[0].Confidence; got != 0.95 {
		t.Errorf("confidence = %v, want 0.95", got)
	}
	if got := res.Corrections[0].WrongText; got != "Pariz" {
		t.Errorf("WrongText = %q, want %q", got, "Pariz")
	}
}

func TestParseCorrections_PlainTextUntouched(t *testing.T) {
	t.Parallel()

	for _, text := range []string{
		"The cat sat on the mat",
		"It is not raining today",
		"She changed her mind about the trip",
	} {
		res := correction.ParseCorrections(text)
		if len(res.Corrections) != 0 {
			t.Errorf("ParseCorrections(%q) found %d corrections, want 0", text, len(res.Corrections))
		}
		if res.RemainingText != text {
			t.Errorf("RemainingText = %q, want input unchanged", res.RemainingText)
		}
	}
}

func TestMightContainCorrection(t *testing.T) {
	t.Parallel()

	if !correction.MightContainCorrection("i meant Paris not Pariz") {
		t.Error("instruction text should pass the prefilter")
	}
	if correction.MightContainCorrection("the cat sat on the mat") {
		t.Error("plain text should fail the prefilter")
	}
}
