package pipeline

import (
	"log/slog"
	"regexp"

	"github.com/ashishact/ramble/internal/store"
)

// spanPattern tags one regex with the span kind it detects. Patterns are
// applied independently; overlapping spans of different kinds are all kept.
type spanPattern struct {
	kind string
	re   *regexp.Regexp
}

var defaultSpanPatterns = []spanPattern{
	{store.SpanSelfReference, regexp.MustCompile(`(?i)\b(I|me|my|mine|myself|I'm|I've|I'll|I'd)\b`)},
	{store.SpanHedging, regexp.MustCompile(`(?i)\b(maybe|perhaps|probably|possibly|sort of|kind of|I think|I guess|not sure|might be|could be)\b`)},
	{store.SpanTemporal, regexp.MustCompile(`(?i)\b(yesterday|today|tomorrow|tonight|this morning|this week|last week|next week|last night|last month|next month|recently|earlier|later)\b`)},
}

// SpanDetector finds tagged text spans (self-reference, hedging, temporal
// markers) in preprocessed unit text.
type SpanDetector struct {
	patterns []spanPattern
	log      *slog.Logger
}

// NewSpanDetector creates a detector with the built-in patterns. Extra
// user-supplied patterns are compiled here; one that fails to compile is
// logged and dropped rather than failing the detector.
func NewSpanDetector(log *slog.Logger, extra map[string]string) *SpanDetector {
	if log == nil {
		log = slog.Default()
	}
	d := &SpanDetector{
		patterns: append([]spanPattern(nil), defaultSpanPatterns...),
		log:      log,
	}
	for kind, expr := range extra {
		re, err := regexp.Compile(expr)
		if err != nil {
			log.Warn("invalid span pattern, skipping", "kind", kind, "err", err)
			continue
		}
		d.patterns = append(d.patterns, spanPattern{kind: kind, re: re})
	}
	return d
}

// Detect returns one Span row per pattern match, ordered by pattern then
// position. Rows carry no ids; the caller persists them.
func (d *SpanDetector) Detect(unitID, text string) []*store.Span {
	var spans []*store.Span
	for _, p := range d.patterns {
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			spans = append(spans, &store.Span{
				UnitID: unitID,
				Kind:   p.kind,
				Start:  loc[0],
				End:    loc[1],
				Text:   text[loc[0]:loc[1]],
			})
		}
	}
	return spans
}
