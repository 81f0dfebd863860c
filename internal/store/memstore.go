package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemStore is an in-memory Store, used in tests and for running without a
// database. It is safe for concurrent use.
type MemStore struct {
	mu sync.RWMutex

	units        map[string]*Unit
	propositions map[string]*Proposition
	stances      map[string]*Stance
	relations    map[string]*Relation
	spans        map[string]*Span
	entities     map[string]*Entity
	claims       map[string]*Claim
	traces       map[string]*ExtractionTrace
	insights     map[string]*Insight

	events      []*EventRecord
	checkpoints map[string]*CheckpointRecord

	nextID int
}

var _ Store = (*MemStore)(nil)

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		units:        make(map[string]*Unit),
		propositions: make(map[string]*Proposition),
		stances:      make(map[string]*Stance),
		relations:    make(map[string]*Relation),
		spans:        make(map[string]*Span),
		entities:     make(map[string]*Entity),
		claims:       make(map[string]*Claim),
		traces:       make(map[string]*ExtractionTrace),
		insights:     make(map[string]*Insight),
		checkpoints:  make(map[string]*CheckpointRecord),
	}
}

// id must be called with the write lock held.
func (s *MemStore) id(prefix string) string {
	s.nextID++
	return fmt.Sprintf("%s-%d", prefix, s.nextID)
}

// ── Units ─────────────────────────────────────────────────────────────────

func (s *MemStore) CreateUnit(_ context.Context, u *Unit) error {
	if u == nil || u.Text == "" {
		return fmt.Errorf("store: create unit: missing text")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = s.id("unit")
	}
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	cp := *u
	s.units[u.ID] = &cp
	return nil
}

func (s *MemStore) GetUnit(_ context.Context, id string) (*Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.units[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (s *MemStore) UpdateUnit(_ context.Context, u *Unit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.units[u.ID]; !ok {
		return fmt.Errorf("store: update unit: %q not found", u.ID)
	}
	u.UpdatedAt = time.Now().UTC()
	cp := *u
	s.units[u.ID] = &cp
	return nil
}

func (s *MemStore) UnitsBySession(_ context.Context, sessionID string) ([]*Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Unit
	for _, u := range s.units {
		if u.SessionID == sessionID {
			cp := *u
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ── Extraction primitives ─────────────────────────────────────────────────

func (s *MemStore) CreatePropositions(_ context.Context, ps []*Proposition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range ps {
		if p.ID == "" {
			p.ID = s.id("prop")
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = time.Now().UTC()
		}
		cp := *p
		s.propositions[p.ID] = &cp
	}
	return nil
}

func (s *MemStore) PropositionsByUnit(_ context.Context, unitID string) ([]*Proposition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Proposition
	for _, p := range s.propositions {
		if p.UnitID == unitID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemStore) CreateStances(_ context.Context, ss []*Stance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range ss {
		if st.ID == "" {
			st.ID = s.id("stance")
		}
		if st.CreatedAt.IsZero() {
			st.CreatedAt = time.Now().UTC()
		}
		cp := *st
		s.stances[st.ID] = &cp
	}
	return nil
}

func (s *MemStore) StancesByUnit(_ context.Context, unitID string) ([]*Stance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Stance
	for _, st := range s.stances {
		if st.UnitID == unitID {
			cp := *st
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemStore) CreateRelations(_ context.Context, rs []*Relation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rs {
		if r.ID == "" {
			r.ID = s.id("rel")
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = time.Now().UTC()
		}
		cp := *r
		s.relations[r.ID] = &cp
	}
	return nil
}

func (s *MemStore) RelationsByUnit(_ context.Context, unitID string) ([]*Relation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Relation
	for _, r := range s.relations {
		if r.UnitID == unitID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemStore) UpdateRelation(_ context.Context, r *Relation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.relations[r.ID]; !ok {
		return fmt.Errorf("store: update relation: %q not found", r.ID)
	}
	cp := *r
	s.relations[r.ID] = &cp
	return nil
}

// ── Spans ─────────────────────────────────────────────────────────────────

func (s *MemStore) CreateSpans(_ context.Context, ss []*Span) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sp := range ss {
		if sp.ID == "" {
			sp.ID = s.id("span")
		}
		if sp.CreatedAt.IsZero() {
			sp.CreatedAt = time.Now().UTC()
		}
		cp := *sp
		s.spans[sp.ID] = &cp
	}
	return nil
}

func (s *MemStore) SpansByUnit(_ context.Context, unitID string) ([]*Span, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Span
	for _, sp := range s.spans {
		if sp.UnitID == unitID {
			cp := *sp
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}

// ── Entities ──────────────────────────────────────────────────────────────

func (s *MemStore) CreateEntity(_ context.Context, e *Entity) error {
	if e == nil || e.Name == "" {
		return fmt.Errorf("store: create entity: missing name")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = s.id("ent")
	}
	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now
	s.entities[e.ID] = copyEntity(e)
	return nil
}

func (s *MemStore) GetEntity(_ context.Context, id string) (*Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[id]
	if !ok {
		return nil, nil
	}
	return copyEntity(e), nil
}

func (s *MemStore) GetEntityByName(_ context.Context, name string) (*Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entities {
		if strings.EqualFold(e.Name, name) {
			return copyEntity(e), nil
		}
	}
	for _, e := range s.entities {
		for _, alias := range e.Aliases {
			if strings.EqualFold(alias, name) {
				return copyEntity(e), nil
			}
		}
	}
	return nil, nil
}

func (s *MemStore) UpdateEntity(_ context.Context, e *Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entities[e.ID]; !ok {
		return fmt.Errorf("store: update entity: %q not found", e.ID)
	}
	e.UpdatedAt = time.Now().UTC()
	s.entities[e.ID] = copyEntity(e)
	return nil
}

func (s *MemStore) AllEntities(_ context.Context) ([]*Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Entity, 0, len(s.entities))
	for _, e := range s.entities {
		out = append(out, copyEntity(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ── Claims ────────────────────────────────────────────────────────────────

func (s *MemStore) CreateClaims(_ context.Context, cs []*Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range cs {
		if c.ID == "" {
			c.ID = s.id("claim")
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = time.Now().UTC()
		}
		s.claims[c.ID] = copyClaim(c)
	}
	return nil
}

func (s *MemStore) ClaimsByUnit(_ context.Context, unitID string) ([]*Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Claim
	for _, c := range s.claims {
		if c.UnitID == unitID {
			out = append(out, copyClaim(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemStore) AllClaims(_ context.Context) ([]*Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Claim, 0, len(s.claims))
	for _, c := range s.claims {
		out = append(out, copyClaim(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ── Traces ────────────────────────────────────────────────────────────────

func (s *MemStore) CreateTrace(_ context.Context, t *ExtractionTrace) error {
	if t == nil || t.UnitID == "" {
		return fmt.Errorf("store: create trace: missing unit id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = s.id("trace")
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	cp := *t
	s.traces[t.ID] = &cp
	return nil
}

func (s *MemStore) TraceByUnit(_ context.Context, unitID string) (*ExtractionTrace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *ExtractionTrace
	for _, t := range s.traces {
		if t.UnitID != unitID {
			continue
		}
		if latest == nil || t.CreatedAt.After(latest.CreatedAt) {
			latest = t
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

// ── Insights ──────────────────────────────────────────────────────────────

func (s *MemStore) CreateInsight(_ context.Context, i *Insight) error {
	if i == nil || i.Observer == "" {
		return fmt.Errorf("store: create insight: missing observer")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i.ID == "" {
		i.ID = s.id("insight")
	}
	if i.CreatedAt.IsZero() {
		i.CreatedAt = time.Now().UTC()
	}
	cp := *i
	cp.ClaimIDs = append([]string{}, i.ClaimIDs...)
	s.insights[i.ID] = &cp
	return nil
}

func (s *MemStore) InsightsByObserver(_ context.Context, observer string) ([]*Insight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Insight
	for _, i := range s.insights {
		if i.Observer == observer {
			cp := *i
			cp.ClaimIDs = append([]string{}, i.ClaimIDs...)
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ── Pipeline events ───────────────────────────────────────────────────────

func (s *MemStore) RecordEvent(_ context.Context, e *EventRecord) error {
	if e == nil || e.UnitID == "" || e.Type == "" {
		return fmt.Errorf("store: record event: missing unit id or type")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = s.id("evt")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	cp := *e
	cp.Payload = append([]byte{}, e.Payload...)
	s.events = append(s.events, &cp)
	return nil
}

func (s *MemStore) EventsForUnit(_ context.Context, unitID string) ([]*EventRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*EventRecord
	for _, e := range s.events {
		if e.UnitID == unitID {
			cp := *e
			cp.Payload = append([]byte{}, e.Payload...)
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemStore) LastEventForUnit(_ context.Context, unitID string) (*EventRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].UnitID == unitID {
			cp := *s.events[i]
			cp.Payload = append([]byte{}, s.events[i].Payload...)
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *MemStore) HasEvent(_ context.Context, unitID, eventType string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.events {
		if e.UnitID == unitID && e.Type == eventType {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemStore) OpenUnits(_ context.Context, terminalType string) ([]*EventRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	last := make(map[string]*EventRecord)
	order := make([]string, 0)
	for _, e := range s.events {
		if _, seen := last[e.UnitID]; !seen {
			order = append(order, e.UnitID)
		}
		last[e.UnitID] = e
	}
	var out []*EventRecord
	for _, unitID := range order {
		e := last[unitID]
		if e.Type == terminalType {
			continue
		}
		cp := *e
		cp.Payload = append([]byte{}, e.Payload...)
		out = append(out, &cp)
	}
	return out, nil
}

// ── Checkpoints ───────────────────────────────────────────────────────────

func checkpointKey(unitID, task string) string { return unitID + "\x00" + task }

func (s *MemStore) SaveCheckpoint(_ context.Context, c *CheckpointRecord) error {
	if c == nil || c.UnitID == "" || c.Task == "" {
		return fmt.Errorf("store: save checkpoint: missing unit id or task")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	cp.UpdatedAt = time.Now().UTC()
	cp.Data = copyData(c.Data)
	s.checkpoints[checkpointKey(c.UnitID, c.Task)] = &cp
	return nil
}

func (s *MemStore) GetCheckpoint(_ context.Context, unitID, task string) (*CheckpointRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.checkpoints[checkpointKey(unitID, task)]
	if !ok {
		return nil, nil
	}
	cp := *c
	cp.Data = copyData(c.Data)
	return &cp, nil
}

func (s *MemStore) DeleteCheckpoint(_ context.Context, unitID, task string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.checkpoints, checkpointKey(unitID, task))
	return nil
}

func copyEntity(e *Entity) *Entity {
	cp := *e
	cp.Aliases = append([]string{}, e.Aliases...)
	return &cp
}

func copyClaim(c *Claim) *Claim {
	cp := *c
	cp.EntityIDs = append([]string{}, c.EntityIDs...)
	if c.Provenance.Resolutions != nil {
		cp.Provenance.Resolutions = make(map[string]string, len(c.Provenance.Resolutions))
		for k, v := range c.Provenance.Resolutions {
			cp.Provenance.Resolutions[k] = v
		}
	}
	return &cp
}

func copyData(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
