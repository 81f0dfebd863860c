// Package store defines the program store: the persistent record of
// ingested units and everything derived from them — propositions, stances,
// relations, spans, entities, claims, extraction traces, observer insights,
// pipeline events, and task checkpoints.
//
// The pipeline's durability contract lives at this boundary: a stage's
// event record is written only after the stage's rows have been persisted,
// so "event exists" always implies "work is done".
package store

import "time"

// Unit is one ingested piece of conversational text, the unit of pipeline
// processing and the correlation key for everything derived from it.
type Unit struct {
	ID        string
	SessionID string

	// Speaker identifies who produced the text. Empty for typed input
	// without attribution.
	Speaker string

	// Text is the raw input as ingested.
	Text string

	// PreprocessedText is the corrected text after the preprocess stage.
	// Empty until that stage has run.
	PreprocessedText string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Proposition is a declarative statement extracted from a unit.
type Proposition struct {
	ID        string
	UnitID    string
	Text      string
	CreatedAt time.Time
}

// Stance is the speaker's attitude toward one proposition.
type Stance struct {
	ID            string
	UnitID        string
	PropositionID string

	// Polarity is one of "assert", "deny", "hedge", "question".
	Polarity string

	// Confidence is the extractor's confidence in the polarity, in [0,1].
	Confidence float64

	CreatedAt time.Time
}

// Stance polarities.
const (
	PolarityAssert   = "assert"
	PolarityDeny     = "deny"
	PolarityHedge    = "hedge"
	PolarityQuestion = "question"
)

// Relation connects two entity mentions extracted from the same unit. The
// entity IDs are filled in by the resolve stage; until then only the
// mention texts are set.
type Relation struct {
	ID     string
	UnitID string

	// Type names the relationship ("works_at", "married_to").
	Type string

	FromText     string
	ToText       string
	FromEntityID string
	ToEntityID   string

	CreatedAt time.Time
}

// Span marks a detected pattern inside a unit's preprocessed text.
type Span struct {
	ID     string
	UnitID string

	// Kind is one of the Span* constants.
	Kind string

	// Start and End are byte offsets into the unit's preprocessed text.
	Start int
	End   int

	// Text is the matched text, denormalized for direct display.
	Text string

	CreatedAt time.Time
}

// Span kinds detected during preprocessing.
const (
	SpanSelfReference = "self_reference"
	SpanHedging       = "hedging"
	SpanTemporal      = "temporal"
)

// Entity is a resolved person, place, or thing in the knowledge base.
type Entity struct {
	ID string

	// Name is the canonical display name.
	Name string

	// Type groups entities ("person", "place", "organization"). Empty
	// means untyped.
	Type string

	// Aliases are alternate spellings, including canonicals demoted by
	// vocabulary votes.
	Aliases []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Claim is a proposition paired with its stance, linked to the entities it
// mentions, with full provenance back to the unit and LLM trace that
// produced it.
type Claim struct {
	ID            string
	UnitID        string
	PropositionID string
	StanceID      string

	// Text restates the claim for direct consumption.
	Text string

	// Polarity and Confidence are denormalized from the stance.
	Polarity   string
	Confidence float64

	// EntityIDs are the resolved entities this claim involves.
	EntityIDs []string

	Provenance Provenance
	CreatedAt  time.Time
}

// Provenance records how a claim came to be.
type Provenance struct {
	UnitID  string `json:"unit_id"`
	TraceID string `json:"trace_id,omitempty"`

	// Resolutions maps each raw mention to how it was resolved
	// ("exact", "alias", "phonetic", "fuzzy", "created").
	Resolutions map[string]string `json:"resolutions,omitempty"`
}

// ExtractionTrace archives one LLM extraction call verbatim.
type ExtractionTrace struct {
	ID        string
	UnitID    string
	Model     string
	Prompt    string
	Response  string
	CreatedAt time.Time
}

// Insight is the persisted output of one observer run.
type Insight struct {
	ID string

	// Observer names the observer that produced this insight.
	Observer string

	// UnitID is the unit whose processing triggered the observer. Insights
	// may summarize claims across many units; this is the trigger, not a
	// scope.
	UnitID string

	// Summary is the human-readable finding.
	Summary string

	// ClaimIDs are the claims the insight is about.
	ClaimIDs []string

	CreatedAt time.Time
}

// EventRecord is the durable form of a pipeline event. Recovery reads
// these records, never the in-memory bus history.
type EventRecord struct {
	ID     string
	UnitID string

	// Type is a pipeline event type string.
	Type string

	// Payload is the event payload serialised as JSON.
	Payload []byte

	CreatedAt time.Time
}

// CheckpointRecord is an advisory mid-task progress marker, keyed by
// (unit, task). Later checkpoints for the same key overwrite earlier ones.
type CheckpointRecord struct {
	UnitID string
	Task   string
	Step   string

	// Data carries task-specific resume state.
	Data map[string]any

	UpdatedAt time.Time
}
