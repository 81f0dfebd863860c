package correction

import (
	"regexp"
	"sort"
	"strings"
)

// ParsedCorrection is one correction instruction recognized in free text.
type ParsedCorrection struct {
	// WrongText is the misspelling the user wants replaced, as it appeared.
	WrongText string

	// CorrectText is the replacement, as it appeared.
	CorrectText string

	// Confidence reflects how unambiguous the matched phrasing is. Explicit
	// forms like "I meant X not Y" score high; terse forms like "X, not Y"
	// score lower because they also occur in ordinary prose.
	Confidence float64

	start, end int
}

// ParseResult is the outcome of scanning text for correction instructions.
type ParseResult struct {
	// Corrections are the recognized instructions, in document order.
	Corrections []ParsedCorrection

	// RemainingText is the input with every correction phrase excised and
	// whitespace collapsed. Text that was purely a correction comes back
	// empty.
	RemainingText string
}

// correctionTemplate binds a phrasing pattern to its confidence. The wrong
// and correct capture-group indices differ per template because some
// phrasings name the correction first.
type correctionTemplate struct {
	re         *regexp.Regexp
	confidence float64
	wrongGroup int
	rightGroup int
}

// word matches a single spoken token, allowing apostrophes ("O'Brien").
const word = `([A-Za-z][A-Za-z']*)`

// templates are ordered by confidence. When two templates match overlapping
// spans, the earlier (more confident) one wins.
var templates = []correctionTemplate{
	{regexp.MustCompile(`(?i)\bI\s+meant\s+` + word + `,?\s+not\s+` + word), 0.95, 2, 1},
	{regexp.MustCompile(`(?i)\b` + word + `\s+should\s+be\s+` + word), 0.90, 1, 2},
	{regexp.MustCompile(`(?i)\bchange\s+` + word + `\s+to\s+` + word), 0.90, 1, 2},
	{regexp.MustCompile(`(?i)\bcorrect\s+` + word + `\s+to\s+` + word), 0.85, 1, 2},
	{regexp.MustCompile(`(?i)\b` + word + `\s+is\s+spelled\s+` + word), 0.85, 1, 2},
	{regexp.MustCompile(`(?i)\b` + word + `,\s*not\s+` + word), 0.70, 2, 1},
}

// correctionHint is a cheap prefilter: text that cannot contain any template
// keyword is skipped without running the full template set.
var correctionHint = regexp.MustCompile(`(?i)\b(meant|not|should\s+be|change|correct|spelled)\b`)

var whitespaceRun = regexp.MustCompile(`\s+`)

// danglingPunct collapses punctuation runs left behind by an excision, like
// the ", ," in "so, , right".
var danglingPunct = regexp.MustCompile(`([,.;:])\s*[,;:]+`)

// MightContainCorrection reports whether text contains any of the keywords
// the correction templates key on. It is a prefilter, not a guarantee.
func MightContainCorrection(text string) bool {
	return correctionHint.MatchString(text)
}

// ParseCorrections scans text for correction instructions. Matched phrases
// are excised from RemainingText so downstream stages never see the
// instruction itself, only the content around it.
func ParseCorrections(text string) ParseResult {
	res := ParseResult{RemainingText: text}
	if !MightContainCorrection(text) {
		return res
	}

	var found []ParsedCorrection
	for _, tmpl := range templates {
		for _, m := range tmpl.re.FindAllStringSubmatchIndex(text, -1) {
			pc := ParsedCorrection{
				WrongText:   text[m[2*tmpl.wrongGroup]:m[2*tmpl.wrongGroup+1]],
				CorrectText: text[m[2*tmpl.rightGroup]:m[2*tmpl.rightGroup+1]],
				Confidence:  tmpl.confidence,
				start:       m[0],
				end:         m[1],
			}
			if overlapsAny(found, pc) {
				continue
			}
			found = append(found, pc)
		}
	}
	if len(found) == 0 {
		return res
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].start < found[j].start })
	res.Corrections = found
	res.RemainingText = excise(text, found)
	return res
}

func overlapsAny(existing []ParsedCorrection, pc ParsedCorrection) bool {
	for _, e := range existing {
		if pc.start < e.end && e.start < pc.end {
			return true
		}
	}
	return false
}

// excise removes the matched spans and normalizes the leftover whitespace.
// spans must be sorted by start and non-overlapping.
func excise(text string, spans []ParsedCorrection) string {
	var b strings.Builder
	pos := 0
	for _, s := range spans {
		b.WriteString(text[pos:s.start])
		b.WriteByte(' ')
		pos = s.end
	}
	b.WriteString(text[pos:])

	out := whitespaceRun.ReplaceAllString(b.String(), " ")
	out = danglingPunct.ReplaceAllString(out, "$1")
	out = strings.TrimSpace(out)
	return strings.TrimLeft(out, ",.;: ")
}
