// Package postgres implements the program store on PostgreSQL via pgx.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ashishact/ramble/internal/store"
)

// DB is the database interface used by [Store]. Both *pgxpool.Pool and
// *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store is a [store.Store] backed by a PostgreSQL database.
type Store struct {
	db DB
}

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// New creates a Store over the given connection or pool. Call
// [Store.Migrate] before issuing queries.
func New(db DB) *Store {
	return &Store{db: db}
}

// Migrate executes the [Schema] DDL, creating every program-store table
// that does not already exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// ── Units ─────────────────────────────────────────────────────────────────

func (s *Store) CreateUnit(ctx context.Context, u *store.Unit) error {
	if u == nil || u.Text == "" {
		return fmt.Errorf("store: create unit: missing text")
	}
	const query = `
		INSERT INTO units (session_id, speaker, text, preprocessed_text)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`
	err := s.db.QueryRow(ctx, query, u.SessionID, u.Speaker, u.Text, u.PreprocessedText).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: create unit: %w", err)
	}
	return nil
}

func (s *Store) GetUnit(ctx context.Context, id string) (*store.Unit, error) {
	const query = `
		SELECT id, session_id, speaker, text, preprocessed_text, created_at, updated_at
		FROM units WHERE id = $1`
	var u store.Unit
	err := s.db.QueryRow(ctx, query, id).Scan(
		&u.ID, &u.SessionID, &u.Speaker, &u.Text, &u.PreprocessedText, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: get unit %q: %w", id, err)
	}
	return &u, nil
}

func (s *Store) UpdateUnit(ctx context.Context, u *store.Unit) error {
	const query = `
		UPDATE units SET session_id = $2, speaker = $3, text = $4,
			preprocessed_text = $5, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`
	err := s.db.QueryRow(ctx, query, u.ID, u.SessionID, u.Speaker, u.Text, u.PreprocessedText).
		Scan(&u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("store: update unit: %q not found", u.ID)
		}
		return fmt.Errorf("store: update unit: %w", err)
	}
	return nil
}

func (s *Store) UnitsBySession(ctx context.Context, sessionID string) ([]*store.Unit, error) {
	const query = `
		SELECT id, session_id, speaker, text, preprocessed_text, created_at, updated_at
		FROM units WHERE session_id = $1 ORDER BY created_at`
	rows, err := s.db.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("store: units by session: %w", err)
	}
	defer rows.Close()

	var out []*store.Unit
	for rows.Next() {
		var u store.Unit
		if err := rows.Scan(&u.ID, &u.SessionID, &u.Speaker, &u.Text, &u.PreprocessedText, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("store: units by session scan: %w", err)
		}
		out = append(out, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: units by session: %w", err)
	}
	return out, nil
}

// ── Extraction primitives ─────────────────────────────────────────────────

func (s *Store) CreatePropositions(ctx context.Context, ps []*store.Proposition) error {
	const query = `
		INSERT INTO propositions (unit_id, text)
		VALUES ($1, $2)
		RETURNING id, created_at`
	for _, p := range ps {
		if err := s.db.QueryRow(ctx, query, p.UnitID, p.Text).Scan(&p.ID, &p.CreatedAt); err != nil {
			return fmt.Errorf("store: create proposition: %w", err)
		}
	}
	return nil
}

func (s *Store) PropositionsByUnit(ctx context.Context, unitID string) ([]*store.Proposition, error) {
	const query = `
		SELECT id, unit_id, text, created_at
		FROM propositions WHERE unit_id = $1 ORDER BY created_at, id`
	rows, err := s.db.Query(ctx, query, unitID)
	if err != nil {
		return nil, fmt.Errorf("store: propositions by unit: %w", err)
	}
	defer rows.Close()

	var out []*store.Proposition
	for rows.Next() {
		var p store.Proposition
		if err := rows.Scan(&p.ID, &p.UnitID, &p.Text, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: propositions scan: %w", err)
		}
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: propositions by unit: %w", err)
	}
	return out, nil
}

func (s *Store) CreateStances(ctx context.Context, ss []*store.Stance) error {
	const query = `
		INSERT INTO stances (unit_id, proposition_id, polarity, confidence)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`
	for _, st := range ss {
		if err := s.db.QueryRow(ctx, query, st.UnitID, st.PropositionID, st.Polarity, st.Confidence).
			Scan(&st.ID, &st.CreatedAt); err != nil {
			return fmt.Errorf("store: create stance: %w", err)
		}
	}
	return nil
}

func (s *Store) StancesByUnit(ctx context.Context, unitID string) ([]*store.Stance, error) {
	const query = `
		SELECT id, unit_id, proposition_id, polarity, confidence, created_at
		FROM stances WHERE unit_id = $1 ORDER BY created_at, id`
	rows, err := s.db.Query(ctx, query, unitID)
	if err != nil {
		return nil, fmt.Errorf("store: stances by unit: %w", err)
	}
	defer rows.Close()

	var out []*store.Stance
	for rows.Next() {
		var st store.Stance
		if err := rows.Scan(&st.ID, &st.UnitID, &st.PropositionID, &st.Polarity, &st.Confidence, &st.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: stances scan: %w", err)
		}
		out = append(out, &st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: stances by unit: %w", err)
	}
	return out, nil
}

func (s *Store) CreateRelations(ctx context.Context, rs []*store.Relation) error {
	const query = `
		INSERT INTO relations (unit_id, type, from_text, to_text, from_entity_id, to_entity_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`
	for _, r := range rs {
		if err := s.db.QueryRow(ctx, query, r.UnitID, r.Type, r.FromText, r.ToText, r.FromEntityID, r.ToEntityID).
			Scan(&r.ID, &r.CreatedAt); err != nil {
			return fmt.Errorf("store: create relation: %w", err)
		}
	}
	return nil
}

func (s *Store) RelationsByUnit(ctx context.Context, unitID string) ([]*store.Relation, error) {
	const query = `
		SELECT id, unit_id, type, from_text, to_text, from_entity_id, to_entity_id, created_at
		FROM relations WHERE unit_id = $1 ORDER BY created_at, id`
	rows, err := s.db.Query(ctx, query, unitID)
	if err != nil {
		return nil, fmt.Errorf("store: relations by unit: %w", err)
	}
	defer rows.Close()

	var out []*store.Relation
	for rows.Next() {
		var r store.Relation
		if err := rows.Scan(&r.ID, &r.UnitID, &r.Type, &r.FromText, &r.ToText, &r.FromEntityID, &r.ToEntityID, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: relations scan: %w", err)
		}
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: relations by unit: %w", err)
	}
	return out, nil
}

func (s *Store) UpdateRelation(ctx context.Context, r *store.Relation) error {
	const query = `
		UPDATE relations SET type = $2, from_text = $3, to_text = $4,
			from_entity_id = $5, to_entity_id = $6
		WHERE id = $1`
	tag, err := s.db.Exec(ctx, query, r.ID, r.Type, r.FromText, r.ToText, r.FromEntityID, r.ToEntityID)
	if err != nil {
		return fmt.Errorf("store: update relation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("store: update relation: %q not found", r.ID)
	}
	return nil
}

// ── Spans ─────────────────────────────────────────────────────────────────

func (s *Store) CreateSpans(ctx context.Context, ss []*store.Span) error {
	const query = `
		INSERT INTO spans (unit_id, kind, start_offset, end_offset, text)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`
	for _, sp := range ss {
		if err := s.db.QueryRow(ctx, query, sp.UnitID, sp.Kind, sp.Start, sp.End, sp.Text).
			Scan(&sp.ID, &sp.CreatedAt); err != nil {
			return fmt.Errorf("store: create span: %w", err)
		}
	}
	return nil
}

func (s *Store) SpansByUnit(ctx context.Context, unitID string) ([]*store.Span, error) {
	const query = `
		SELECT id, unit_id, kind, start_offset, end_offset, text, created_at
		FROM spans WHERE unit_id = $1 ORDER BY start_offset`
	rows, err := s.db.Query(ctx, query, unitID)
	if err != nil {
		return nil, fmt.Errorf("store: spans by unit: %w", err)
	}
	defer rows.Close()

	var out []*store.Span
	for rows.Next() {
		var sp store.Span
		if err := rows.Scan(&sp.ID, &sp.UnitID, &sp.Kind, &sp.Start, &sp.End, &sp.Text, &sp.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: spans scan: %w", err)
		}
		out = append(out, &sp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: spans by unit: %w", err)
	}
	return out, nil
}

// ── Entities ──────────────────────────────────────────────────────────────

func (s *Store) CreateEntity(ctx context.Context, e *store.Entity) error {
	if e == nil || e.Name == "" {
		return fmt.Errorf("store: create entity: missing name")
	}
	const query = `
		INSERT INTO entities (name, type, aliases)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`
	err := s.db.QueryRow(ctx, query, e.Name, e.Type, emptySlice(e.Aliases)).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: create entity: %w", err)
	}
	return nil
}

func (s *Store) GetEntity(ctx context.Context, id string) (*store.Entity, error) {
	const query = `SELECT id, name, type, aliases, created_at, updated_at FROM entities WHERE id = $1`
	var e store.Entity
	err := s.db.QueryRow(ctx, query, id).Scan(&e.ID, &e.Name, &e.Type, &e.Aliases, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: get entity %q: %w", id, err)
	}
	return &e, nil
}

func (s *Store) GetEntityByName(ctx context.Context, name string) (*store.Entity, error) {
	// Canonical names win over aliases when both match.
	const query = `
		SELECT id, name, type, aliases, created_at, updated_at FROM entities
		WHERE lower(name) = lower($1)
		   OR EXISTS (SELECT 1 FROM unnest(aliases) a WHERE lower(a) = lower($1))
		ORDER BY (lower(name) = lower($1)) DESC
		LIMIT 1`
	var e store.Entity
	err := s.db.QueryRow(ctx, query, name).Scan(&e.ID, &e.Name, &e.Type, &e.Aliases, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: get entity by name %q: %w", name, err)
	}
	return &e, nil
}

func (s *Store) UpdateEntity(ctx context.Context, e *store.Entity) error {
	const query = `
		UPDATE entities SET name = $2, type = $3, aliases = $4, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`
	err := s.db.QueryRow(ctx, query, e.ID, e.Name, e.Type, emptySlice(e.Aliases)).Scan(&e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("store: update entity: %q not found", e.ID)
		}
		return fmt.Errorf("store: update entity: %w", err)
	}
	return nil
}

func (s *Store) AllEntities(ctx context.Context) ([]*store.Entity, error) {
	const query = `SELECT id, name, type, aliases, created_at, updated_at FROM entities ORDER BY name`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("store: all entities: %w", err)
	}
	defer rows.Close()

	var out []*store.Entity
	for rows.Next() {
		var e store.Entity
		if err := rows.Scan(&e.ID, &e.Name, &e.Type, &e.Aliases, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("store: all entities scan: %w", err)
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: all entities: %w", err)
	}
	return out, nil
}

// ── Claims ────────────────────────────────────────────────────────────────

func (s *Store) CreateClaims(ctx context.Context, cs []*store.Claim) error {
	const query = `
		INSERT INTO claims (unit_id, proposition_id, stance_id, text, polarity, confidence, entity_ids, provenance)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`
	for _, c := range cs {
		provJSON, err := json.Marshal(c.Provenance)
		if err != nil {
			return fmt.Errorf("store: marshal provenance: %w", err)
		}
		if err := s.db.QueryRow(ctx, query,
			c.UnitID, c.PropositionID, c.StanceID, c.Text, c.Polarity, c.Confidence,
			emptySlice(c.EntityIDs), provJSON,
		).Scan(&c.ID, &c.CreatedAt); err != nil {
			return fmt.Errorf("store: create claim: %w", err)
		}
	}
	return nil
}

func (s *Store) ClaimsByUnit(ctx context.Context, unitID string) ([]*store.Claim, error) {
	const query = `
		SELECT id, unit_id, proposition_id, stance_id, text, polarity, confidence, entity_ids, provenance, created_at
		FROM claims WHERE unit_id = $1 ORDER BY created_at, id`
	rows, err := s.db.Query(ctx, query, unitID)
	if err != nil {
		return nil, fmt.Errorf("store: claims by unit: %w", err)
	}
	defer rows.Close()
	return scanClaims(rows)
}

func (s *Store) AllClaims(ctx context.Context) ([]*store.Claim, error) {
	const query = `
		SELECT id, unit_id, proposition_id, stance_id, text, polarity, confidence, entity_ids, provenance, created_at
		FROM claims ORDER BY created_at, id`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("store: all claims: %w", err)
	}
	defer rows.Close()
	return scanClaims(rows)
}

func scanClaims(rows pgx.Rows) ([]*store.Claim, error) {
	var out []*store.Claim
	for rows.Next() {
		var c store.Claim
		var provJSON []byte
		if err := rows.Scan(
			&c.ID, &c.UnitID, &c.PropositionID, &c.StanceID, &c.Text, &c.Polarity, &c.Confidence,
			&c.EntityIDs, &provJSON, &c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("store: claims scan: %w", err)
		}
		if err := json.Unmarshal(provJSON, &c.Provenance); err != nil {
			return nil, fmt.Errorf("store: unmarshal provenance: %w", err)
		}
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: claims rows: %w", err)
	}
	return out, nil
}

// ── Traces ────────────────────────────────────────────────────────────────

func (s *Store) CreateTrace(ctx context.Context, t *store.ExtractionTrace) error {
	if t == nil || t.UnitID == "" {
		return fmt.Errorf("store: create trace: missing unit id")
	}
	const query = `
		INSERT INTO extraction_traces (unit_id, model, prompt, response)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`
	err := s.db.QueryRow(ctx, query, t.UnitID, t.Model, t.Prompt, t.Response).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: create trace: %w", err)
	}
	return nil
}

func (s *Store) TraceByUnit(ctx context.Context, unitID string) (*store.ExtractionTrace, error) {
	const query = `
		SELECT id, unit_id, model, prompt, response, created_at
		FROM extraction_traces WHERE unit_id = $1
		ORDER BY created_at DESC LIMIT 1`
	var t store.ExtractionTrace
	err := s.db.QueryRow(ctx, query, unitID).Scan(&t.ID, &t.UnitID, &t.Model, &t.Prompt, &t.Response, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: trace by unit %q: %w", unitID, err)
	}
	return &t, nil
}

// ── Insights ──────────────────────────────────────────────────────────────

func (s *Store) CreateInsight(ctx context.Context, i *store.Insight) error {
	if i == nil || i.Observer == "" {
		return fmt.Errorf("store: create insight: missing observer")
	}
	const query = `
		INSERT INTO insights (observer, unit_id, summary, claim_ids)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`
	err := s.db.QueryRow(ctx, query, i.Observer, i.UnitID, i.Summary, emptySlice(i.ClaimIDs)).
		Scan(&i.ID, &i.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: create insight: %w", err)
	}
	return nil
}

func (s *Store) InsightsByObserver(ctx context.Context, observer string) ([]*store.Insight, error) {
	const query = `
		SELECT id, observer, unit_id, summary, claim_ids, created_at
		FROM insights WHERE observer = $1 ORDER BY created_at, id`
	rows, err := s.db.Query(ctx, query, observer)
	if err != nil {
		return nil, fmt.Errorf("store: insights by observer: %w", err)
	}
	defer rows.Close()

	var out []*store.Insight
	for rows.Next() {
		var i store.Insight
		if err := rows.Scan(&i.ID, &i.Observer, &i.UnitID, &i.Summary, &i.ClaimIDs, &i.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: insights scan: %w", err)
		}
		out = append(out, &i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: insights by observer: %w", err)
	}
	return out, nil
}

// ── Pipeline events ───────────────────────────────────────────────────────

func (s *Store) RecordEvent(ctx context.Context, e *store.EventRecord) error {
	if e == nil || e.UnitID == "" || e.Type == "" {
		return fmt.Errorf("store: record event: missing unit id or type")
	}
	const query = `
		INSERT INTO pipeline_events (unit_id, type, payload)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`
	payload := e.Payload
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	err := s.db.QueryRow(ctx, query, e.UnitID, e.Type, payload).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: record event: %w", err)
	}
	return nil
}

func (s *Store) EventsForUnit(ctx context.Context, unitID string) ([]*store.EventRecord, error) {
	const query = `
		SELECT id, unit_id, type, payload, created_at
		FROM pipeline_events WHERE unit_id = $1 ORDER BY seq`
	rows, err := s.db.Query(ctx, query, unitID)
	if err != nil {
		return nil, fmt.Errorf("store: events for unit: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *Store) LastEventForUnit(ctx context.Context, unitID string) (*store.EventRecord, error) {
	const query = `
		SELECT id, unit_id, type, payload, created_at
		FROM pipeline_events WHERE unit_id = $1
		ORDER BY seq DESC LIMIT 1`
	var e store.EventRecord
	err := s.db.QueryRow(ctx, query, unitID).Scan(&e.ID, &e.UnitID, &e.Type, &e.Payload, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: last event for unit %q: %w", unitID, err)
	}
	return &e, nil
}

func (s *Store) HasEvent(ctx context.Context, unitID, eventType string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM pipeline_events WHERE unit_id = $1 AND type = $2)`
	var exists bool
	if err := s.db.QueryRow(ctx, query, unitID, eventType).Scan(&exists); err != nil {
		return false, fmt.Errorf("store: has event: %w", err)
	}
	return exists, nil
}

func (s *Store) OpenUnits(ctx context.Context, terminalType string) ([]*store.EventRecord, error) {
	const query = `
		SELECT DISTINCT ON (unit_id) id, unit_id, type, payload, created_at
		FROM pipeline_events
		ORDER BY unit_id, seq DESC`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("store: open units: %w", err)
	}
	defer rows.Close()

	all, err := scanEvents(rows)
	if err != nil {
		return nil, err
	}
	var out []*store.EventRecord
	for _, e := range all {
		if e.Type != terminalType {
			out = append(out, e)
		}
	}
	return out, nil
}

func scanEvents(rows pgx.Rows) ([]*store.EventRecord, error) {
	var out []*store.EventRecord
	for rows.Next() {
		var e store.EventRecord
		if err := rows.Scan(&e.ID, &e.UnitID, &e.Type, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: events scan: %w", err)
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: events rows: %w", err)
	}
	return out, nil
}

// ── Checkpoints ───────────────────────────────────────────────────────────

func (s *Store) SaveCheckpoint(ctx context.Context, c *store.CheckpointRecord) error {
	if c == nil || c.UnitID == "" || c.Task == "" {
		return fmt.Errorf("store: save checkpoint: missing unit id or task")
	}
	dataJSON, err := json.Marshal(emptyMap(c.Data))
	if err != nil {
		return fmt.Errorf("store: marshal checkpoint data: %w", err)
	}
	const query = `
		INSERT INTO task_checkpoints (unit_id, task, step, data)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (unit_id, task) DO UPDATE SET
			step = EXCLUDED.step, data = EXCLUDED.data, updated_at = now()
		RETURNING updated_at`
	if err := s.db.QueryRow(ctx, query, c.UnitID, c.Task, c.Step, dataJSON).Scan(&c.UpdatedAt); err != nil {
		return fmt.Errorf("store: save checkpoint: %w", err)
	}
	return nil
}

func (s *Store) GetCheckpoint(ctx context.Context, unitID, task string) (*store.CheckpointRecord, error) {
	const query = `
		SELECT unit_id, task, step, data, updated_at
		FROM task_checkpoints WHERE unit_id = $1 AND task = $2`
	var c store.CheckpointRecord
	var dataJSON []byte
	err := s.db.QueryRow(ctx, query, unitID, task).Scan(&c.UnitID, &c.Task, &c.Step, &dataJSON, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: get checkpoint: %w", err)
	}
	if err := json.Unmarshal(dataJSON, &c.Data); err != nil {
		return nil, fmt.Errorf("store: unmarshal checkpoint data: %w", err)
	}
	return &c, nil
}

func (s *Store) DeleteCheckpoint(ctx context.Context, unitID, task string) error {
	const query = `DELETE FROM task_checkpoints WHERE unit_id = $1 AND task = $2`
	if _, err := s.db.Exec(ctx, query, unitID, task); err != nil {
		return fmt.Errorf("store: delete checkpoint: %w", err)
	}
	return nil
}

// emptySlice returns s if non-nil, otherwise an empty non-nil slice, so
// array columns never store NULL.
func emptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// emptyMap returns m if non-nil, otherwise an empty non-nil map, so JSONB
// columns store "{}" instead of "null".
func emptyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
