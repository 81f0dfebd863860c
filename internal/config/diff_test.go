package config_test

import (
	"testing"

	"github.com/ashishact/ramble/internal/config"
)

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()
	old := config.DefaultConfig()
	new := config.DefaultConfig()

	d := config.Diff(old, new)
	if d.Any() {
		t.Errorf("identical configs should produce an empty diff, got %+v", d)
	}
}

func TestDiff_LogLevel(t *testing.T) {
	t.Parallel()
	old := config.DefaultConfig()
	new := config.DefaultConfig()
	new.Server.LogLevel = config.LogDebug

	d := config.Diff(old, new)
	if !d.LogLevelChanged {
		t.Fatal("LogLevelChanged should be true")
	}
	if d.NewLogLevel != config.LogDebug {
		t.Errorf("NewLogLevel = %q, want debug", d.NewLogLevel)
	}
	if d.SpanPatternsChanged || d.ThresholdsChanged {
		t.Error("only the log level should be flagged")
	}
}

func TestDiff_SpanPatterns(t *testing.T) {
	t.Parallel()
	old := config.DefaultConfig()
	new := config.DefaultConfig()
	new.Pipeline.SpanPatterns = map[string]string{"urgency": `(?i)\basap\b`}

	d := config.Diff(old, new)
	if !d.SpanPatternsChanged {
		t.Fatal("SpanPatternsChanged should be true")
	}
	if d.NewSpanPatterns["urgency"] == "" {
		t.Error("NewSpanPatterns should carry the added pattern")
	}
}

func TestDiff_SamePatternsDifferentMaps(t *testing.T) {
	t.Parallel()
	old := config.DefaultConfig()
	new := config.DefaultConfig()
	old.Pipeline.SpanPatterns = map[string]string{"a": "x"}
	new.Pipeline.SpanPatterns = map[string]string{"a": "x"}

	if d := config.Diff(old, new); d.SpanPatternsChanged {
		t.Error("equal pattern maps should not be flagged")
	}
}

func TestDiff_Thresholds(t *testing.T) {
	t.Parallel()
	old := config.DefaultConfig()
	new := config.DefaultConfig()
	new.Correction.LearnedMinScore = 0.8

	d := config.Diff(old, new)
	if !d.ThresholdsChanged {
		t.Fatal("ThresholdsChanged should be true")
	}
	if d.NewLearnedMinScore != 0.8 {
		t.Errorf("NewLearnedMinScore = %v, want 0.8", d.NewLearnedMinScore)
	}
	if d.NewMinConfidence != new.Vocabulary.MinConfidence {
		t.Errorf("NewMinConfidence = %v, want %v", d.NewMinConfidence, new.Vocabulary.MinConfidence)
	}
}
