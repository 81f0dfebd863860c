// Package vocab maintains the entity vocabulary: canonical spellings with
// precomputed phonetic codes and per-variant occurrence counts, used to
// resolve mis-transcribed entity names.
//
// The vocabulary is self-correcting. Every observed spelling of an entry
// casts a vote; when a variant out-votes the current canonical spelling,
// the entry is rewritten around the winner and the old spelling is reported
// back so the source entity can keep it as an alias.
package vocab

import (
	"strings"
	"time"

	"github.com/ashishact/ramble/internal/textnorm/phonetic"
)

// Entry is one vocabulary record: the canonical spelling of an entity name
// plus everything needed to match noisy transcriptions against it without
// re-encoding on every lookup.
type Entry struct {
	// ID is the unique record identifier, assigned by the store on create.
	ID string

	// Canonical is the current preferred spelling.
	Canonical string

	// EntityType groups entries for filtered lookups ("person", "place").
	// Empty means untyped.
	EntityType string

	// EntityID links back to the knowledge-base entity this entry was
	// created from. Empty for manually added entries.
	EntityID string

	// PrimaryCode and SecondaryCode are the precomputed phonetic codes of
	// Canonical. SecondaryCode is empty when it would equal PrimaryCode.
	PrimaryCode   string
	SecondaryCode string

	// VariantCounts maps each observed spelling (lowercase) to how many
	// times it has been seen. The canonical spelling votes here too.
	VariantCounts map[string]int

	// Aliases are spellings that were once canonical or were taught as
	// alternates. They match exact lookups at full confidence.
	Aliases []string

	// ContextHints are words that commonly appear near this entry, used to
	// disambiguate when several entries sound alike.
	ContextHints []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewEntry builds an Entry for the given spelling with its phonetic codes
// precomputed and an initial vote for the canonical form.
func NewEntry(canonical, entityType, entityID string) *Entry {
	e := &Entry{
		Canonical:     canonical,
		EntityType:    entityType,
		EntityID:      entityID,
		VariantCounts: map[string]int{strings.ToLower(canonical): 1},
	}
	e.refreshCodes()
	return e
}

// refreshCodes recomputes the phonetic codes from Canonical.
func (e *Entry) refreshCodes() {
	enc := phonetic.Encode(e.Canonical)
	e.PrimaryCode = enc.Primary
	e.SecondaryCode = enc.Secondary
}

// RecordVariant counts one observation of the given spelling.
func (e *Entry) RecordVariant(variant string) {
	if e.VariantCounts == nil {
		e.VariantCounts = make(map[string]int)
	}
	e.VariantCounts[strings.ToLower(variant)]++
}

// Recanonicalize checks whether any variant has out-voted the current
// canonical spelling and, if so, rewrites the entry around the winner. It
// returns the demoted spelling and true when a rewrite happened.
//
// Ties keep the incumbent: a challenger must hold strictly more votes.
func (e *Entry) Recanonicalize() (demoted string, changed bool) {
	current := strings.ToLower(e.Canonical)
	bestVariant, bestVotes := current, e.VariantCounts[current]
	for variant, votes := range e.VariantCounts {
		if variant == current {
			continue
		}
		// Challengers need strictly more votes than the leader; equal-vote
		// challengers are ordered lexically so the outcome is stable.
		if votes > bestVotes || (votes == bestVotes && bestVariant != current && variant < bestVariant) {
			bestVariant, bestVotes = variant, votes
		}
	}
	if bestVariant == current {
		return "", false
	}
	demoted = e.Canonical
	e.Canonical = bestVariant
	e.refreshCodes()
	e.addAlias(demoted)
	return demoted, true
}

func (e *Entry) addAlias(spelling string) {
	for _, a := range e.Aliases {
		if strings.EqualFold(a, spelling) {
			return
		}
	}
	e.Aliases = append(e.Aliases, spelling)
}

// HasAlias reports whether spelling matches one of the entry's aliases
// case-insensitively.
func (e *Entry) HasAlias(spelling string) bool {
	for _, a := range e.Aliases {
		if strings.EqualFold(a, spelling) {
			return true
		}
	}
	return false
}

// MatchesCode reports whether code equals either of the entry's phonetic
// codes.
func (e *Entry) MatchesCode(code string) bool {
	if code == "" {
		return false
	}
	return e.PrimaryCode == code || e.SecondaryCode == code
}
