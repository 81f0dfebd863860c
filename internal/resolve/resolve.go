// Package resolve resolves entity mentions and derives claims.
//
// Mentions are resolved against known entities through a tiered lookup
// (exact name, alias, then the vocabulary matcher's phonetic and fuzzy sweep).
// Mentions that resolve nowhere become new entities with vocabulary entries.
// Claim derivation pairs each persisted proposition with its stance and
// attaches per-claim provenance.
package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/ashishact/ramble/internal/extract"
	"github.com/ashishact/ramble/internal/store"
	"github.com/ashishact/ramble/internal/textnorm/contextmatch"
	"github.com/ashishact/ramble/internal/vocab"
)

// Resolution method names recorded in claim provenance.
const (
	MethodExact    = "exact"
	MethodAlias    = "alias"
	MethodPhonetic = "phonetic"
	MethodFuzzy    = "fuzzy"
	MethodCreated  = "created"
)

// Mentions is the outcome of resolving one unit's entity mentions.
type Mentions struct {
	// Entities maps each mention's lowercase text to its resolved entity.
	Entities map[string]*store.Entity

	// Resolutions maps each mention's original text to the method that
	// resolved it.
	Resolutions map[string]string

	// Created counts mentions that produced a new entity.
	Created int
}

// Resolver performs mention resolution and claim derivation.
type Resolver struct {
	store       store.Store
	vocab       *vocab.Service
	matcher     *vocab.Matcher
	matcherOpts []vocab.MatcherOption
	log         *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMatcherOptions forwards options to the vocabulary matcher used for
// the phonetic and fuzzy resolution tiers.
func WithMatcherOptions(opts ...vocab.MatcherOption) Option {
	return func(r *Resolver) {
		r.matcherOpts = append(r.matcherOpts, opts...)
	}
}

// New creates a Resolver. The matcher is built over the vocabulary service's
// store so both see the same entries.
func New(st store.Store, vs *vocab.Service, log *slog.Logger, opts ...Option) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	r := &Resolver{
		store: st,
		vocab: vs,
		log:   log,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.matcher = vocab.NewMatcher(vs.Store(), r.matcherOpts...)
	return r
}

// ResolveMentions resolves every mention for the unit. Entity creation for
// unknown mentions is persisted before returning.
func (r *Resolver) ResolveMentions(ctx context.Context, unit *store.Unit, mentions []extract.Mention) (*Mentions, error) {
	if unit == nil {
		return nil, fmt.Errorf("resolve: unit must not be nil")
	}

	text := unit.PreprocessedText
	if text == "" {
		text = unit.Text
	}

	out := &Mentions{
		Entities:    make(map[string]*store.Entity, len(mentions)),
		Resolutions: make(map[string]string, len(mentions)),
	}
	for _, m := range mentions {
		key := strings.ToLower(m.Text)
		if _, done := out.Entities[key]; done {
			continue
		}
		ent, method, err := r.resolveMention(ctx, m, text)
		if err != nil {
			return nil, err
		}
		out.Entities[key] = ent
		out.Resolutions[m.Text] = method
		if method == MethodCreated {
			out.Created++
		}
	}
	return out, nil
}

// LinkRelations fills entity ids on relation endpoints whose text matched a
// resolved mention and persists the updates.
func (r *Resolver) LinkRelations(ctx context.Context, rels []*store.Relation, m *Mentions) error {
	for _, rel := range rels {
		changed := false
		if e, ok := m.Entities[strings.ToLower(rel.FromText)]; ok && e != nil && rel.FromEntityID == "" {
			rel.FromEntityID = e.ID
			changed = true
		}
		if e, ok := m.Entities[strings.ToLower(rel.ToText)]; ok && e != nil && rel.ToEntityID == "" {
			rel.ToEntityID = e.ID
			changed = true
		}
		if changed {
			if err := r.store.UpdateRelation(ctx, rel); err != nil {
				return fmt.Errorf("resolve: update relation %s: %w", rel.ID, err)
			}
		}
	}
	return nil
}

// DeriveClaims pairs each proposition with its stance and persists one Claim
// row per pair. Propositions without a stance claim an assertion at zero
// confidence.
func (r *Resolver) DeriveClaims(ctx context.Context, unitID, traceID string, props []*store.Proposition, stances []*store.Stance, m *Mentions) ([]*store.Claim, error) {
	if len(props) == 0 {
		return nil, nil
	}

	stanceByProp := make(map[string]*store.Stance, len(stances))
	for _, s := range stances {
		stanceByProp[s.PropositionID] = s
	}

	claims := make([]*store.Claim, 0, len(props))
	for _, p := range props {
		c := &store.Claim{
			UnitID:        unitID,
			PropositionID: p.ID,
			Text:          p.Text,
			Polarity:      store.PolarityAssert,
			EntityIDs:     entityIDsIn(p.Text, m),
			Provenance: store.Provenance{
				UnitID:      unitID,
				TraceID:     traceID,
				Resolutions: m.Resolutions,
			},
		}
		if s := stanceByProp[p.ID]; s != nil {
			c.StanceID = s.ID
			c.Polarity = s.Polarity
			c.Confidence = s.Confidence
		}
		claims = append(claims, c)
	}
	if err := r.store.CreateClaims(ctx, claims); err != nil {
		return nil, fmt.Errorf("resolve: create claims: %w", err)
	}
	return claims, nil
}

// resolveMention walks the lookup tiers for one mention and returns the
// entity plus the method that decided it.
func (r *Resolver) resolveMention(ctx context.Context, m extract.Mention, unitText string) (*store.Entity, string, error) {
	// Tier 1: exact name or alias on a known entity.
	ent, err := r.store.GetEntityByName(ctx, m.Text)
	if err != nil {
		return nil, "", fmt.Errorf("resolve: entity lookup %q: %w", m.Text, err)
	}
	if ent != nil {
		method := MethodExact
		if !strings.EqualFold(ent.Name, m.Text) {
			method = MethodAlias
		}
		if err := r.recordVariant(ctx, ent, m.Text); err != nil {
			r.log.Warn("variant recording failed", "mention", m.Text, "err", err)
		}
		return ent, method, nil
	}

	// Tier 2: vocabulary matcher (phonetic codes, edit distance, context).
	match, err := r.matcher.Match(ctx, m.Text, mentionContext(unitText, m.Text), m.Type)
	if err != nil {
		return nil, "", fmt.Errorf("resolve: vocab match %q: %w", m.Text, err)
	}
	if match.Matched && match.Entry.EntityID != "" {
		ent, err := r.store.GetEntity(ctx, match.Entry.EntityID)
		if err != nil {
			return nil, "", fmt.Errorf("resolve: entity %s: %w", match.Entry.EntityID, err)
		}
		if ent != nil {
			if err := r.observe(ctx, ent, match.Entry.ID, m.Text); err != nil {
				r.log.Warn("observation recording failed", "mention", m.Text, "err", err)
			}
			return ent, methodForMatch(match), nil
		}
	}

	// Tier 3: nothing known, create entity and vocabulary entry.
	ent = &store.Entity{Name: m.Text, Type: m.Type}
	if err := r.store.CreateEntity(ctx, ent); err != nil {
		return nil, "", fmt.Errorf("resolve: create entity %q: %w", m.Text, err)
	}
	if _, err := r.vocab.Add(ctx, m.Text, m.Type, ent.ID); err != nil {
		r.log.Warn("vocabulary entry creation failed", "mention", m.Text, "err", err)
	}
	return ent, MethodCreated, nil
}

// recordVariant counts an observation against the entity's vocabulary entry
// when one exists.
func (r *Resolver) recordVariant(ctx context.Context, ent *store.Entity, variant string) error {
	entry, err := r.vocab.Store().GetByCanonical(ctx, ent.Name, "")
	if err != nil || entry == nil {
		return err
	}
	return r.observe(ctx, ent, entry.ID, variant)
}

// observe records the observed spelling and back-propagates a majority-vote
// canonical rewrite to the entity's name and alias list.
func (r *Resolver) observe(ctx context.Context, ent *store.Entity, entryID, variant string) error {
	_, change, err := r.vocab.RecordObservation(ctx, entryID, variant)
	if err != nil {
		return err
	}
	if change == nil {
		return nil
	}

	ent.Name = change.Promoted
	if !hasFold(ent.Aliases, change.Demoted) {
		ent.Aliases = append(ent.Aliases, change.Demoted)
	}
	if err := r.store.UpdateEntity(ctx, ent); err != nil {
		return fmt.Errorf("resolve: rename entity %s: %w", ent.ID, err)
	}
	r.log.Info("entity canonical spelling rewritten",
		"entity", ent.ID, "promoted", change.Promoted, "demoted", change.Demoted)
	return nil
}

// methodForMatch maps a matcher tier to a provenance method name.
func methodForMatch(m vocab.MatchResult) string {
	switch m.MatchType {
	case contextmatch.MatchExact:
		return MethodExact
	case contextmatch.MatchPhonetic:
		return MethodPhonetic
	default:
		return MethodFuzzy
	}
}

// entityIDsIn returns the ids of resolved entities whose mention text or
// canonical name occurs in the claim text.
func entityIDsIn(text string, m *Mentions) []string {
	lower := strings.ToLower(text)
	var ids []string
	for mention, ent := range m.Entities {
		if ent == nil {
			continue
		}
		if strings.Contains(lower, mention) || strings.Contains(lower, strings.ToLower(ent.Name)) {
			ids = append(ids, ent.ID)
		}
	}
	return ids
}

var wordRE = regexp.MustCompile(`[A-Za-z][A-Za-z']*`)

// mentionContext returns the word before and after the mention's first
// occurrence in the unit text, for context disambiguation.
func mentionContext(text, mention string) []string {
	idx := strings.Index(strings.ToLower(text), strings.ToLower(mention))
	if idx < 0 {
		return nil
	}
	before := wordRE.FindAllString(text[:idx], -1)
	after := wordRE.FindAllString(text[idx+len(mention):], -1)

	var ctx []string
	if len(before) > 0 {
		ctx = append(ctx, before[len(before)-1])
	}
	if len(after) > 0 {
		ctx = append(ctx, after[0])
	}
	return ctx
}

func hasFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
