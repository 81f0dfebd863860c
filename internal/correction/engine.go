package correction

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// DefaultLearnedMinScore is the score a learned match needs before the
// engine will rewrite text with it.
const DefaultLearnedMinScore = 0.6

// Engine ties the parser, applier, and learner into one pass over incoming
// text: teach from explicit instructions, then fix everything already
// known. It is safe for concurrent use.
type Engine struct {
	store           Store
	applier         *Applier
	learner         *Learner
	learnedMinScore float64
	log             *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLearnedMinScore overrides the minimum score for applying learned
// corrections.
func WithLearnedMinScore(min float64) Option {
	return func(e *Engine) { e.learnedMinScore = min }
}

// NewEngine creates an Engine over the two correction stores.
func NewEngine(store Store, learned LearnedStore, log *slog.Logger, opts ...Option) *Engine {
	if log == nil {
		log = slog.Default()
	}
	e := &Engine{
		store:           store,
		applier:         NewApplier(store, log),
		learner:         NewLearner(learned, log),
		learnedMinScore: DefaultLearnedMinScore,
		log:             log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Learner exposes the engine's learner for callers that record corrections
// from other signals than explicit instructions.
func (e *Engine) Learner() *Learner { return e.learner }

// Process runs the full correction pass over text:
//
//  1. Parse out explicit correction instructions and persist them, both as
//     direct substitutions and as context-qualified learned records.
//  2. Apply every stored substitution to the remaining text.
//  3. Apply learned corrections that score at or above the engine's
//     minimum for their context.
//
// The returned string is the corrected content with instruction phrases
// removed. Parsed instructions are returned so callers can surface what was
// taught.
func (e *Engine) Process(ctx context.Context, text string) (string, []ParsedCorrection, error) {
	parsed := ParseCorrections(text)

	for _, pc := range parsed.Corrections {
		if err := e.teach(ctx, text, pc); err != nil {
			return "", nil, fmt.Errorf("correction: teach %q: %w", pc.WrongText, err)
		}
	}

	out, err := e.applier.Apply(ctx, parsed.RemainingText)
	if err != nil {
		return "", nil, fmt.Errorf("correction: apply: %w", err)
	}
	out, err = e.learner.ApplyLearned(ctx, out, e.learnedMinScore)
	if err != nil {
		return "", nil, fmt.Errorf("correction: apply learned: %w", err)
	}
	return out, parsed.Corrections, nil
}

// teach persists one parsed instruction. The learned record's context is
// the content on either side of the instruction phrase, since the phrase
// itself never reaches downstream text.
func (e *Engine) teach(ctx context.Context, text string, pc ParsedCorrection) error {
	now := time.Now().UTC()
	c := &Correction{
		WrongText:    strings.ToLower(pc.WrongText),
		CorrectText:  pc.CorrectText,
		OriginalCase: pc.CorrectText,
		CreatedAt:    now,
	}
	if err := e.store.Upsert(ctx, c); err != nil {
		return err
	}

	left, right := surroundingWords(text, pc.start, pc.end)
	if _, err := e.learner.Learn(ctx, pc.WrongText, pc.CorrectText, left, right); err != nil {
		return err
	}
	return nil
}

// surroundingWords returns the words before start and after end, up to the
// context window on each side.
func surroundingWords(text string, start, end int) (left, right []string) {
	for _, s := range tokenRE.FindAllStringIndex(text, -1) {
		switch {
		case s[1] <= start:
			left = append(left, text[s[0]:s[1]])
		case s[0] >= end:
			right = append(right, text[s[0]:s[1]])
		}
	}
	return tail(left, contextWindow), head(right, contextWindow)
}
