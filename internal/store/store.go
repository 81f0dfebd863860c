package store

import "context"

// Store is the program store interface. Single-record reads return
// (nil, nil) on a miss; list reads return an empty slice. Write failures
// surface as errors.
type Store interface {
	// Units.
	CreateUnit(ctx context.Context, u *Unit) error
	GetUnit(ctx context.Context, id string) (*Unit, error)
	UpdateUnit(ctx context.Context, u *Unit) error
	UnitsBySession(ctx context.Context, sessionID string) ([]*Unit, error)

	// Extraction primitives, written by the extract stage.
	CreatePropositions(ctx context.Context, ps []*Proposition) error
	PropositionsByUnit(ctx context.Context, unitID string) ([]*Proposition, error)
	CreateStances(ctx context.Context, ss []*Stance) error
	StancesByUnit(ctx context.Context, unitID string) ([]*Stance, error)
	CreateRelations(ctx context.Context, rs []*Relation) error
	RelationsByUnit(ctx context.Context, unitID string) ([]*Relation, error)
	UpdateRelation(ctx context.Context, r *Relation) error

	// Spans, written by the preprocess stage.
	CreateSpans(ctx context.Context, ss []*Span) error
	SpansByUnit(ctx context.Context, unitID string) ([]*Span, error)

	// Entities.
	CreateEntity(ctx context.Context, e *Entity) error
	GetEntity(ctx context.Context, id string) (*Entity, error)
	GetEntityByName(ctx context.Context, name string) (*Entity, error)
	UpdateEntity(ctx context.Context, e *Entity) error
	AllEntities(ctx context.Context) ([]*Entity, error)

	// Claims.
	CreateClaims(ctx context.Context, cs []*Claim) error
	ClaimsByUnit(ctx context.Context, unitID string) ([]*Claim, error)
	AllClaims(ctx context.Context) ([]*Claim, error)

	// Extraction traces.
	CreateTrace(ctx context.Context, t *ExtractionTrace) error
	TraceByUnit(ctx context.Context, unitID string) (*ExtractionTrace, error)

	// Observer insights.
	CreateInsight(ctx context.Context, i *Insight) error
	InsightsByObserver(ctx context.Context, observer string) ([]*Insight, error)

	// Durable pipeline events. RecordEvent appends; LastEventForUnit
	// returns the newest record for a unit; OpenUnits returns the latest
	// event of every unit whose latest event is not terminalType.
	RecordEvent(ctx context.Context, e *EventRecord) error
	EventsForUnit(ctx context.Context, unitID string) ([]*EventRecord, error)
	LastEventForUnit(ctx context.Context, unitID string) (*EventRecord, error)
	HasEvent(ctx context.Context, unitID, eventType string) (bool, error)
	OpenUnits(ctx context.Context, terminalType string) ([]*EventRecord, error)

	// Advisory checkpoints, keyed by (unit, task).
	SaveCheckpoint(ctx context.Context, c *CheckpointRecord) error
	GetCheckpoint(ctx context.Context, unitID, task string) (*CheckpointRecord, error)
	DeleteCheckpoint(ctx context.Context, unitID, task string) error
}
