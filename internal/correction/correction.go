// Package correction implements ramble's self-improving transcription
// correction engine.
//
// The engine has three cooperating parts:
//
//  1. Parser ([ParseCorrections]): detects explicit correction utterances in
//     free text ("I meant Paris not Pariz"), extracts the wrong/correct
//     pair, and excises the correction phrase so only real content flows
//     downstream.
//
//  2. Applier ([Apply]): replaces known wrong spellings in new text with
//     their taught corrections, preserving the case style of each matched
//     instance and counting usage as reinforcement.
//
//  3. Learner ([Learner]): a context-aware store of corrections keyed by
//     (word, surrounding words). The same misheard word can map to
//     different corrections in different contexts; repetition reinforces a
//     record's count and confidence instead of duplicating it.
//
// A missed correction degrades transcript quality, never correctness, so
// callers are expected to log and swallow engine failures rather than
// propagate them.
package correction

import "time"

// Correction is a taught substitution: whenever WrongText appears as a
// whole word, it should be replaced. There is at most one active Correction
// per lowercase WrongText value; re-teaching with a different CorrectText
// overwrites the old record (last-write-wins).
type Correction struct {
	// WrongText is the misspelling, stored lowercase. It is the record key.
	WrongText string

	// CorrectText is the replacement spelling.
	CorrectText string

	// OriginalCase preserves the casing of CorrectText as the user taught it,
	// used when the matched instance's case style cannot be inferred.
	OriginalCase string

	// UsageCount is incremented every time this correction is applied.
	UsageCount int

	// CreatedAt is when the correction was first taught.
	CreatedAt time.Time

	// LastUsed is when the correction was last applied.
	LastUsed time.Time
}

// LearnedCorrection is a context-qualified correction. Unlike [Correction],
// multiple records may share the same Original — the surrounding words are
// part of the record's identity, not metadata. "bank" next to "river" and
// "bank" next to "account" are different records.
type LearnedCorrection struct {
	// ID is the unique record identifier, assigned by the store on create.
	ID string

	// Original is the misheard word, stored lowercase.
	Original string

	// Corrected is the replacement.
	Corrected string

	// LeftContext holds up to three words preceding Original at learn time.
	LeftContext []string

	// RightContext holds up to three words following Original at learn time.
	RightContext []string

	// Count is the number of times this exact correction-in-context has been
	// observed. Reinforcement increments it instead of creating a duplicate.
	Count int

	// Confidence grows with repetition: min(1, (count+1)/(count+2)).
	// New records start at 0.5.
	Confidence float64

	// CreatedAt is when the record was first learned.
	CreatedAt time.Time

	// LastUsedAt is when the record last matched during application.
	LastUsedAt time.Time
}

// contextWindow is the number of words captured on each side of a corrected
// token when learning or matching context.
const contextWindow = 3
