package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	SpanPatternsChanged bool
	NewSpanPatterns     map[string]string

	ThresholdsChanged  bool
	NewLearnedMinScore float64
	NewMinConfidence   float64
}

// Any reports whether the diff contains any change at all.
func (d ConfigDiff) Any() bool {
	return d.LogLevelChanged || d.SpanPatternsChanged || d.ThresholdsChanged
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart; listener,
// storage, and provider changes require one.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if !equalPatterns(old.Pipeline.SpanPatterns, new.Pipeline.SpanPatterns) {
		d.SpanPatternsChanged = true
		d.NewSpanPatterns = new.Pipeline.SpanPatterns
	}

	if old.Correction.LearnedMinScore != new.Correction.LearnedMinScore ||
		old.Vocabulary.MinConfidence != new.Vocabulary.MinConfidence {
		d.ThresholdsChanged = true
		d.NewLearnedMinScore = new.Correction.LearnedMinScore
		d.NewMinConfidence = new.Vocabulary.MinConfidence
	}

	return d
}

func equalPatterns(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
