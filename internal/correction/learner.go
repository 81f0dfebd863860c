package correction

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Learner accumulates context-qualified corrections. Repeated observations
// of the same correction in a similar context reinforce one record;
// observations in a new context create a new record, so one word can carry
// different corrections in different surroundings.
type Learner struct {
	store LearnedStore
	log   *slog.Logger
}

// NewLearner creates a Learner backed by the given store.
func NewLearner(store LearnedStore, log *slog.Logger) *Learner {
	if log == nil {
		log = slog.Default()
	}
	return &Learner{store: store, log: log}
}

// LearnedMatch is a learned correction scored against a query context.
type LearnedMatch struct {
	Correction *LearnedCorrection

	// ContextScore is the overlap between the query context and the
	// record's stored context, in [0,1].
	ContextScore float64

	// Score combines context overlap, record confidence, and observation
	// count into one ranking value in [0,1].
	Score float64
}

// TextMatch locates a learned correction inside a scanned text.
type TextMatch struct {
	// Start and End are byte offsets of the matched word in the input.
	Start, End int

	// Word is the matched text as it appeared.
	Word string

	Correction *LearnedCorrection
	Score      float64
}

// reinforceSimilarity is the context overlap above which a new observation
// reinforces an existing record instead of creating a sibling.
const reinforceSimilarity = 0.8

var tokenRE = regexp.MustCompile(`[A-Za-z][A-Za-z']*`)

// Learn records that original was corrected to corrected, with the words
// seen on each side. If a record with the same correction and a
// sufficiently similar context already exists it is reinforced; otherwise a
// new record is created with an initial confidence of 0.5.
func (l *Learner) Learn(ctx context.Context, original, corrected string, left, right []string) (*LearnedCorrection, error) {
	original = strings.ToLower(original)
	left = tail(left, contextWindow)
	right = head(right, contextWindow)

	existing, err := l.store.GetByOriginal(ctx, original)
	if err != nil {
		return nil, err
	}
	for _, lc := range existing {
		if !strings.EqualFold(lc.Corrected, corrected) {
			continue
		}
		if contextSimilarity(lc.LeftContext, lc.RightContext, left, right) < reinforceSimilarity {
			continue
		}
		lc.Count++
		lc.Confidence = confidenceFor(lc.Count)
		if err := l.store.Update(ctx, lc); err != nil {
			return nil, err
		}
		return lc, nil
	}

	lc := &LearnedCorrection{
		Original:     original,
		Corrected:    corrected,
		LeftContext:  left,
		RightContext: right,
		Count:        1,
		Confidence:   0.5,
		CreatedAt:    time.Now().UTC(),
	}
	if err := l.store.Create(ctx, lc); err != nil {
		return nil, err
	}
	return lc, nil
}

// FindSimilar returns the learned corrections for word whose stored context
// overlaps the given one by at least minContextScore, scored and sorted
// best-first.
func (l *Learner) FindSimilar(ctx context.Context, word string, left, right []string, minContextScore float64) ([]LearnedMatch, error) {
	records, err := l.store.GetByOriginal(ctx, strings.ToLower(word))
	if err != nil {
		return nil, err
	}
	matches := make([]LearnedMatch, 0, len(records))
	for _, lc := range records {
		cs := contextSimilarity(lc.LeftContext, lc.RightContext, left, right)
		if cs < minContextScore {
			continue
		}
		matches = append(matches, LearnedMatch{
			Correction:   lc,
			ContextScore: cs,
			Score:        combinedScore(cs, lc),
		})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	return matches, nil
}

// FindCorrectionsForText scans text word by word and returns the best
// learned correction for each word, scored against that word's immediate
// context. Words with no learned record are skipped.
func (l *Learner) FindCorrectionsForText(ctx context.Context, text string) ([]TextMatch, error) {
	spans := tokenRE.FindAllStringIndex(text, -1)
	words := make([]string, len(spans))
	for i, s := range spans {
		words[i] = text[s[0]:s[1]]
	}

	var matches []TextMatch
	for i, s := range spans {
		records, err := l.store.GetByOriginal(ctx, strings.ToLower(words[i]))
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			continue
		}
		left := tail(words[:i], contextWindow)
		right := head(words[i+1:], contextWindow)

		var best *LearnedCorrection
		bestScore := -1.0
		for _, lc := range records {
			cs := contextSimilarity(lc.LeftContext, lc.RightContext, left, right)
			score := combinedScore(cs, lc)
			if score > bestScore {
				best, bestScore = lc, score
			}
		}
		matches = append(matches, TextMatch{
			Start:      s[0],
			End:        s[1],
			Word:       words[i],
			Correction: best,
			Score:      bestScore,
		})
	}
	return matches, nil
}

// ApplyLearned rewrites text using every learned match scoring at or above
// minScore. Replacements preserve the matched word's case style, and the
// used records get their count and LastUsedAt refreshed best-effort.
func (l *Learner) ApplyLearned(ctx context.Context, text string, minScore float64) (string, error) {
	matches, err := l.FindCorrectionsForText(ctx, text)
	if err != nil {
		return "", err
	}

	// Rewrite back to front so earlier byte offsets stay valid.
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		if m.Score < minScore {
			continue
		}
		replacement := matchCase(m.Word, &Correction{CorrectText: m.Correction.Corrected})
		text = text[:m.Start] + replacement + text[m.End:]

		m.Correction.Count++
		m.Correction.Confidence = confidenceFor(m.Correction.Count)
		m.Correction.LastUsedAt = time.Now().UTC()
		if err := l.store.Update(ctx, m.Correction); err != nil {
			l.log.Warn("learned correction usage not recorded", "id", m.Correction.ID, "error", err)
		}
	}
	return text, nil
}

func confidenceFor(count int) float64 {
	c := float64(count+1) / float64(count+2)
	if c > 1 {
		c = 1
	}
	return c
}

// combinedScore weighs context fit most, then how established the record is.
func combinedScore(contextScore float64, lc *LearnedCorrection) float64 {
	countScore := float64(lc.Count) / 5
	if countScore > 1 {
		countScore = 1
	}
	return contextScore*0.6 + lc.Confidence*0.2 + countScore*0.2
}

// contextSimilarity averages the per-side overlap between two contexts.
// Two empty sides agree perfectly; one empty side against a non-empty one
// is a disagreement.
func contextSimilarity(aLeft, aRight, bLeft, bRight []string) float64 {
	return (sideSimilarity(aLeft, bLeft) + sideSimilarity(aRight, bRight)) / 2
}

func sideSimilarity(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, w := range a {
		set[strings.ToLower(w)] = struct{}{}
	}
	overlap := 0
	seen := make(map[string]struct{}, len(b))
	for _, w := range b {
		lw := strings.ToLower(w)
		if _, dup := seen[lw]; dup {
			continue
		}
		seen[lw] = struct{}{}
		if _, ok := set[lw]; ok {
			overlap++
		}
	}
	max := len(set)
	if len(seen) > max {
		max = len(seen)
	}
	return float64(overlap) / float64(max)
}

func head(words []string, n int) []string {
	if len(words) > n {
		words = words[:n]
	}
	return append([]string{}, words...)
}

func tail(words []string, n int) []string {
	if len(words) > n {
		words = words[len(words)-n:]
	}
	return append([]string{}, words...)
}
