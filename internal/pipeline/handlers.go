package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ashishact/ramble/internal/correction"
	"github.com/ashishact/ramble/internal/extract"
	"github.com/ashishact/ramble/internal/pipeline/observers"
	"github.com/ashishact/ramble/internal/resolve"
	"github.com/ashishact/ramble/internal/store"
)

// Corrector runs the correction engine over raw unit text.
// Satisfied by *correction.Engine.
type Corrector interface {
	Process(ctx context.Context, text string) (string, []correction.ParsedCorrection, error)
}

// Extractor performs the single extraction model call.
// Satisfied by *extract.Extractor.
type Extractor interface {
	Extract(ctx context.Context, text string) (*extract.Result, error)
}

// Resolver resolves mentions and derives claims.
// Satisfied by *resolve.Resolver.
type Resolver interface {
	ResolveMentions(ctx context.Context, unit *store.Unit, mentions []extract.Mention) (*resolve.Mentions, error)
	LinkRelations(ctx context.Context, rels []*store.Relation, m *resolve.Mentions) error
	DeriveClaims(ctx context.Context, unitID, traceID string, props []*store.Proposition, stances []*store.Stance, m *resolve.Mentions) ([]*store.Claim, error)
}

// ObserverRunner fans a unit out to registered observers of a kind.
// Satisfied by *observers.Dispatcher.
type ObserverRunner interface {
	Run(ctx context.Context, unitID string, kind observers.Kind) (map[string]int, error)
}

// Handlers implements the five pipeline tasks. Each task probes for its own
// output first: if present, the result is reconstructed from storage and the
// completion event emitted without redoing expensive work. Otherwise the task
// does its work, persists every write, records the completion event durably,
// and only then emits it on the bus.
type Handlers struct {
	store     store.Store
	bus       *Bus
	corrector Corrector
	extractor Extractor
	resolver  Resolver
	observers ObserverRunner
	spans     *SpanDetector
	log       *slog.Logger
}

// NewHandlers wires the pipeline tasks.
func NewHandlers(st store.Store, bus *Bus, c Corrector, e Extractor, r Resolver, o ObserverRunner, spans *SpanDetector, log *slog.Logger) *Handlers {
	if log == nil {
		log = slog.Default()
	}
	if spans == nil {
		spans = NewSpanDetector(log, nil)
	}
	return &Handlers{
		store:     st,
		bus:       bus,
		corrector: c,
		extractor: e,
		resolver:  r,
		observers: o,
		spans:     spans,
		log:       log,
	}
}

// Ingest creates a unit and durably records unit:created before announcing it.
// This is the pipeline's entry point.
func (h *Handlers) Ingest(ctx context.Context, sessionID, speaker, text string) (*store.Unit, error) {
	unit := &store.Unit{SessionID: sessionID, Speaker: speaker, Text: text}
	if err := h.store.CreateUnit(ctx, unit); err != nil {
		return nil, fmt.Errorf("pipeline: ingest: %w", err)
	}
	payload := UnitCreatedPayload{UnitID: unit.ID, SessionID: sessionID, Speaker: speaker}
	if err := h.finish(ctx, unit.ID, EventUnitCreated, payload); err != nil {
		return nil, err
	}
	return unit, nil
}

// Run executes the named task for the unit.
func (h *Handlers) Run(ctx context.Context, task, unitID string) error {
	switch task {
	case TaskPreprocessUnit:
		return h.preprocessUnit(ctx, unitID)
	case TaskExtractPrimitives:
		return h.extractPrimitives(ctx, unitID)
	case TaskResolveAndDerive:
		return h.resolveAndDerive(ctx, unitID)
	case TaskRunNonLLMObservers:
		return h.runObservers(ctx, unitID, observers.KindNonLLM, EventObserversNonLLMCompleted)
	case TaskRunLLMObservers:
		return h.runObservers(ctx, unitID, observers.KindLLM, EventObserversLLMCompleted)
	default:
		return fmt.Errorf("pipeline: unknown task %q", task)
	}
}

// ─── preprocess_unit ─────────────────────────────────────────────────────────

func (h *Handlers) preprocessUnit(ctx context.Context, unitID string) error {
	unit, err := h.loadUnit(ctx, unitID, TaskPreprocessUnit)
	if err != nil {
		return err
	}

	// Replay: preprocessed text already persisted.
	if unit.PreprocessedText != "" {
		spans, err := h.store.SpansByUnit(ctx, unitID)
		if err != nil {
			return fmt.Errorf("pipeline: preprocess replay: %w", err)
		}
		return h.finish(ctx, unitID, EventUnitPreprocessed, UnitPreprocessedPayload{
			UnitID:        unitID,
			SessionID:     unit.SessionID,
			SpansDetected: len(spans),
		})
	}

	cp := NewCheckpointer(h.store, unitID, TaskPreprocessUnit, h.log)

	// Correction failures degrade transcription quality, not correctness;
	// they never block the pipeline.
	corrected, parsed, err := h.corrector.Process(ctx, unit.Text)
	if err != nil {
		h.log.Warn("correction engine failed, using raw text", "unit", unitID, "err", err)
		corrected = unit.Text
	}
	cp.Checkpoint(ctx, "corrections_applied", map[string]any{"count": len(parsed)})

	spans := h.spans.Detect(unitID, corrected)
	if len(spans) > 0 {
		if err := h.store.CreateSpans(ctx, spans); err != nil {
			return fmt.Errorf("pipeline: preprocess: persist spans: %w", err)
		}
	}

	unit.PreprocessedText = corrected
	if err := h.store.UpdateUnit(ctx, unit); err != nil {
		return fmt.Errorf("pipeline: preprocess: update unit: %w", err)
	}
	cp.Clear(ctx)

	return h.finish(ctx, unitID, EventUnitPreprocessed, UnitPreprocessedPayload{
		UnitID:             unitID,
		SessionID:          unit.SessionID,
		CorrectionsApplied: len(parsed),
		SpansDetected:      len(spans),
	})
}

// ─── extract_primitives ──────────────────────────────────────────────────────

func (h *Handlers) extractPrimitives(ctx context.Context, unitID string) error {
	unit, err := h.loadUnit(ctx, unitID, TaskExtractPrimitives)
	if err != nil {
		return err
	}

	props, err := h.store.PropositionsByUnit(ctx, unitID)
	if err != nil {
		return fmt.Errorf("pipeline: extract: propositions: %w", err)
	}

	// Replay: primitives already persisted, reconstruct from storage and the
	// archived trace. No second model call.
	if len(props) > 0 {
		return h.finish(ctx, unitID, EventPrimitivesExtracted, h.extractedPayload(ctx, unit, props))
	}

	// Without a model provider the unit stays at unit:preprocessed and is
	// picked up by recovery once one is configured.
	if h.extractor == nil {
		return fmt.Errorf("pipeline: extract: no model provider configured")
	}

	text := unit.PreprocessedText
	if text == "" {
		text = unit.Text
	}

	cp := NewCheckpointer(h.store, unitID, TaskExtractPrimitives, h.log)

	// A prior attempt may have archived its trace and crashed before the
	// primitives were persisted. Resume from the archive instead of paying
	// for a second model call and a duplicate trace row.
	var prims extract.Primitives
	var trace *store.ExtractionTrace
	if last := cp.Last(ctx); last != nil && last.Step == "trace_archived" {
		archived, err := h.store.TraceByUnit(ctx, unitID)
		if err != nil {
			return fmt.Errorf("pipeline: extract: resume trace: %w", err)
		}
		if archived != nil {
			parsed, err := extract.ParseResponse(archived.Response)
			if err != nil {
				h.log.Warn("archived trace unparsable, re-extracting", "unit", unitID, "err", err)
			} else {
				prims = parsed
				trace = archived
			}
		}
	}

	if trace == nil {
		result, err := h.extractor.Extract(ctx, text)
		if err != nil {
			return fmt.Errorf("pipeline: extract: %w", err)
		}
		trace = &store.ExtractionTrace{
			UnitID:   unitID,
			Model:    result.Model,
			Prompt:   result.Prompt,
			Response: result.Response,
		}
		if err := h.store.CreateTrace(ctx, trace); err != nil {
			return fmt.Errorf("pipeline: extract: persist trace: %w", err)
		}
		cp.Checkpoint(ctx, "trace_archived", map[string]any{"trace_id": trace.ID})
		prims = result.Primitives
	}
	propRows := make([]*store.Proposition, 0, len(prims.Propositions))
	for _, p := range prims.Propositions {
		propRows = append(propRows, &store.Proposition{UnitID: unitID, Text: p.Text})
	}
	if len(propRows) > 0 {
		if err := h.store.CreatePropositions(ctx, propRows); err != nil {
			return fmt.Errorf("pipeline: extract: persist propositions: %w", err)
		}
		stanceRows := make([]*store.Stance, 0, len(prims.Propositions))
		for i, p := range prims.Propositions {
			stanceRows = append(stanceRows, &store.Stance{
				UnitID:        unitID,
				PropositionID: propRows[i].ID,
				Polarity:      p.Polarity,
				Confidence:    p.Confidence,
			})
		}
		if err := h.store.CreateStances(ctx, stanceRows); err != nil {
			return fmt.Errorf("pipeline: extract: persist stances: %w", err)
		}
	}

	if len(prims.Relations) > 0 {
		relRows := make([]*store.Relation, 0, len(prims.Relations))
		for _, r := range prims.Relations {
			relRows = append(relRows, &store.Relation{
				UnitID:   unitID,
				Type:     r.Type,
				FromText: r.From,
				ToText:   r.To,
			})
		}
		if err := h.store.CreateRelations(ctx, relRows); err != nil {
			return fmt.Errorf("pipeline: extract: persist relations: %w", err)
		}
	}
	cp.Clear(ctx)

	propIDs := make([]string, 0, len(propRows))
	for _, p := range propRows {
		propIDs = append(propIDs, p.ID)
	}
	return h.finish(ctx, unitID, EventPrimitivesExtracted, PrimitivesExtractedPayload{
		UnitID:         unitID,
		SessionID:      unit.SessionID,
		TraceID:        trace.ID,
		PropositionIDs: propIDs,
		Relations:      len(prims.Relations),
		Mentions:       len(prims.Mentions),
	})
}

// extractedPayload rebuilds the completion payload for a replayed extraction.
// Mention and relation counts come from the archived trace, re-parsed rather
// than re-requested.
func (h *Handlers) extractedPayload(ctx context.Context, unit *store.Unit, props []*store.Proposition) PrimitivesExtractedPayload {
	payload := PrimitivesExtractedPayload{
		UnitID:    unit.ID,
		SessionID: unit.SessionID,
	}
	for _, p := range props {
		payload.PropositionIDs = append(payload.PropositionIDs, p.ID)
	}
	trace, err := h.store.TraceByUnit(ctx, unit.ID)
	if err != nil || trace == nil {
		return payload
	}
	payload.TraceID = trace.ID
	if prims, err := extract.ParseResponse(trace.Response); err == nil {
		payload.Relations = len(prims.Relations)
		payload.Mentions = len(prims.Mentions)
	}
	return payload
}

// ─── resolve_and_derive ──────────────────────────────────────────────────────

func (h *Handlers) resolveAndDerive(ctx context.Context, unitID string) error {
	unit, err := h.loadUnit(ctx, unitID, TaskResolveAndDerive)
	if err != nil {
		return err
	}

	claims, err := h.store.ClaimsByUnit(ctx, unitID)
	if err != nil {
		return fmt.Errorf("pipeline: resolve: claims: %w", err)
	}

	// Replay: claims already derived.
	if len(claims) > 0 {
		ids := make([]string, 0, len(claims))
		for _, c := range claims {
			ids = append(ids, c.ID)
		}
		return h.finish(ctx, unitID, EventClaimsDerived, ClaimsDerivedPayload{
			UnitID:    unitID,
			SessionID: unit.SessionID,
			ClaimIDs:  ids,
		})
	}

	trace, err := h.store.TraceByUnit(ctx, unitID)
	if err != nil {
		return fmt.Errorf("pipeline: resolve: trace: %w", err)
	}
	traceID := ""
	var mentions []extract.Mention
	if trace != nil {
		traceID = trace.ID
		// Mentions are reconstructed from the archived response; a trace
		// whose response no longer parses degrades to zero mentions.
		if prims, perr := extract.ParseResponse(trace.Response); perr == nil {
			mentions = prims.Mentions
		} else {
			h.log.Warn("archived trace unparseable, resolving without mentions", "unit", unitID, "err", perr)
		}
	}

	m, err := h.resolver.ResolveMentions(ctx, unit, mentions)
	if err != nil {
		return fmt.Errorf("pipeline: resolve: %w", err)
	}

	rels, err := h.store.RelationsByUnit(ctx, unitID)
	if err != nil {
		return fmt.Errorf("pipeline: resolve: relations: %w", err)
	}
	if err := h.resolver.LinkRelations(ctx, rels, m); err != nil {
		return fmt.Errorf("pipeline: resolve: %w", err)
	}

	props, err := h.store.PropositionsByUnit(ctx, unitID)
	if err != nil {
		return fmt.Errorf("pipeline: resolve: propositions: %w", err)
	}
	stances, err := h.store.StancesByUnit(ctx, unitID)
	if err != nil {
		return fmt.Errorf("pipeline: resolve: stances: %w", err)
	}

	derived, err := h.resolver.DeriveClaims(ctx, unitID, traceID, props, stances, m)
	if err != nil {
		return fmt.Errorf("pipeline: resolve: %w", err)
	}

	// All resolve-stage rows are committed; record the mid-stage marker so a
	// crash before claims:derived recovers by skipping the redundant derive.
	if err := h.finish(ctx, unitID, EventEntitiesResolved, EntitiesResolvedPayload{
		UnitID:          unitID,
		SessionID:       unit.SessionID,
		EntitiesCreated: m.Created,
		Resolutions:     m.Resolutions,
	}); err != nil {
		return err
	}

	ids := make([]string, 0, len(derived))
	for _, c := range derived {
		ids = append(ids, c.ID)
	}
	return h.finish(ctx, unitID, EventClaimsDerived, ClaimsDerivedPayload{
		UnitID:    unitID,
		SessionID: unit.SessionID,
		ClaimIDs:  ids,
	})
}

// ─── run_observers ───────────────────────────────────────────────────────────

func (h *Handlers) runObservers(ctx context.Context, unitID string, kind observers.Kind, eventType string) error {
	unit, err := h.loadUnit(ctx, unitID, string(kind)+" observers")
	if err != nil {
		return err
	}

	// Observer stages may legitimately produce zero outputs, so the replay
	// probe is the durable completion event itself.
	has, err := h.store.HasEvent(ctx, unitID, eventType)
	if err != nil {
		return fmt.Errorf("pipeline: observers: event probe: %w", err)
	}
	if has {
		h.bus.Emit(eventType, unitID, h.recordedPayload(ctx, unitID, eventType))
		return nil
	}

	outputs, err := h.observers.Run(ctx, unitID, kind)
	if err != nil {
		return fmt.Errorf("pipeline: observers: %w", err)
	}

	return h.finish(ctx, unitID, eventType, ObserversCompletedPayload{
		UnitID:    unitID,
		SessionID: unit.SessionID,
		Outputs:   outputs,
	})
}

// recordedPayload re-reads a durably recorded payload for a replayed emit.
func (h *Handlers) recordedPayload(ctx context.Context, unitID, eventType string) any {
	records, err := h.store.EventsForUnit(ctx, unitID)
	if err != nil {
		return nil
	}
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].Type != eventType {
			continue
		}
		var payload ObserversCompletedPayload
		if json.Unmarshal(records[i].Payload, &payload) == nil {
			return payload
		}
		return nil
	}
	return nil
}

// ─── shared ──────────────────────────────────────────────────────────────────

// loadUnit fetches the unit; a missing unit is an invariant violation, fatal
// for the task attempt but not the process.
func (h *Handlers) loadUnit(ctx context.Context, unitID, task string) (*store.Unit, error) {
	unit, err := h.store.GetUnit(ctx, unitID)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %s: load unit: %w", task, err)
	}
	if unit == nil {
		return nil, fmt.Errorf("pipeline: %s: unit %s not found", task, unitID)
	}
	return unit, nil
}

// finish records the completion event durably (once) and then emits it on the
// bus. Emission strictly follows the durable record; recovery trusts the
// record, not the bus.
func (h *Handlers) finish(ctx context.Context, unitID, eventType string, payload any) error {
	has, err := h.store.HasEvent(ctx, unitID, eventType)
	if err != nil {
		return fmt.Errorf("pipeline: %s: event probe: %w", eventType, err)
	}
	if !has {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("pipeline: %s: encode payload: %w", eventType, err)
		}
		if err := h.store.RecordEvent(ctx, &store.EventRecord{
			UnitID:  unitID,
			Type:    eventType,
			Payload: raw,
		}); err != nil {
			return fmt.Errorf("pipeline: %s: record event: %w", eventType, err)
		}
	}
	h.bus.Emit(eventType, unitID, payload)
	return nil
}
