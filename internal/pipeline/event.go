// Package pipeline drives the durable unit-processing chain.
//
// A unit of text enters as unit:created and moves strictly forward through
// preprocess, extraction, resolution, and observation. Completion events are
// recorded durably in the program store before they appear on the in-process
// bus; recovery reads the durable record, never bus history.
package pipeline

import "time"

// Pipeline event types, in chain order.
const (
	EventUnitCreated         = "unit:created"
	EventUnitPreprocessed    = "unit:preprocessed"
	EventPrimitivesExtracted = "primitives:extracted"

	// EventEntitiesResolved is a mid-stage durable marker written after all
	// resolve-stage rows commit but before EventClaimsDerived. A crash in
	// that window recovers by skipping the redundant derive step.
	EventEntitiesResolved = "entities:resolved"

	EventClaimsDerived            = "claims:derived"
	EventObserversNonLLMCompleted = "observers:nonllm:completed"
	EventObserversLLMCompleted    = "observers:llm:completed"
)

// TerminalEvent marks a fully processed unit.
const TerminalEvent = EventObserversLLMCompleted

// Task names for the pipeline handlers.
const (
	TaskPreprocessUnit     = "preprocess_unit"
	TaskExtractPrimitives  = "extract_primitives"
	TaskResolveAndDerive   = "resolve_and_derive"
	TaskRunNonLLMObservers = "run_nonllm_observers"
	TaskRunLLMObservers    = "run_llm_observers"
)

// Event is one pipeline occurrence. Immutable once emitted; CorrelationID is
// the unit id and the sole join key across a pipeline run.
type Event struct {
	Type          string    `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlationId"`
	Payload       any       `json:"payload"`
}

// UnitCreatedPayload announces a newly ingested unit.
type UnitCreatedPayload struct {
	UnitID    string `json:"unitId"`
	SessionID string `json:"sessionId"`
	Speaker   string `json:"speaker,omitempty"`
}

// UnitPreprocessedPayload reports the preprocess stage's output.
type UnitPreprocessedPayload struct {
	UnitID             string `json:"unitId"`
	SessionID          string `json:"sessionId"`
	CorrectionsApplied int    `json:"correctionsApplied"`
	SpansDetected      int    `json:"spansDetected"`
}

// PrimitivesExtractedPayload reports the extraction stage's output.
type PrimitivesExtractedPayload struct {
	UnitID         string   `json:"unitId"`
	SessionID      string   `json:"sessionId"`
	TraceID        string   `json:"traceId"`
	PropositionIDs []string `json:"propositionIds"`
	Relations      int      `json:"relations"`
	Mentions       int      `json:"mentions"`
}

// EntitiesResolvedPayload reports mention resolution, recorded mid-stage.
type EntitiesResolvedPayload struct {
	UnitID          string            `json:"unitId"`
	SessionID       string            `json:"sessionId"`
	EntitiesCreated int               `json:"entitiesCreated"`
	Resolutions     map[string]string `json:"resolutions"`
}

// ClaimsDerivedPayload reports the derive stage's output.
type ClaimsDerivedPayload struct {
	UnitID    string   `json:"unitId"`
	SessionID string   `json:"sessionId"`
	ClaimIDs  []string `json:"claimIds"`
}

// ObserversCompletedPayload reports per-observer output counts for one of the
// two observer stages.
type ObserversCompletedPayload struct {
	UnitID    string         `json:"unitId"`
	SessionID string         `json:"sessionId"`
	Outputs   map[string]int `json:"outputs"`
}
