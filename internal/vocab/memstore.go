package vocab

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// MemStore is an in-memory Store, used in tests and for running without a
// database. It is safe for concurrent use.
type MemStore struct {
	mu     sync.RWMutex
	byID   map[string]*Entry
	nextID int
}

var _ Store = (*MemStore)(nil)

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{byID: make(map[string]*Entry)}
}

func (s *MemStore) GetByID(_ context.Context, id string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	return copyEntry(e), nil
}

func (s *MemStore) GetByCanonical(_ context.Context, canonical, entityType string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.byID {
		if strings.EqualFold(e.Canonical, canonical) && typeMatches(e, entityType) {
			return copyEntry(e), nil
		}
	}
	return nil, nil
}

func (s *MemStore) GetByAlias(_ context.Context, alias, entityType string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.byID {
		if e.HasAlias(alias) && typeMatches(e, entityType) {
			return copyEntry(e), nil
		}
	}
	return nil, nil
}

func (s *MemStore) GetByPhoneticCode(_ context.Context, code, entityType string) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Entry
	for _, e := range s.byID {
		if e.MatchesCode(code) && typeMatches(e, entityType) {
			out = append(out, copyEntry(e))
		}
	}
	return out, nil
}

func (s *MemStore) All(_ context.Context, entityType string) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Entry, 0, len(s.byID))
	for _, e := range s.byID {
		if typeMatches(e, entityType) {
			out = append(out, copyEntry(e))
		}
	}
	return out, nil
}

func (s *MemStore) Create(_ context.Context, e *Entry) error {
	if e == nil || e.Canonical == "" {
		return fmt.Errorf("vocab: create: missing canonical spelling")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	e.ID = fmt.Sprintf("vocab-%d", s.nextID)
	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now
	s.byID[e.ID] = copyEntry(e)
	return nil
}

func (s *MemStore) Update(_ context.Context, e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[e.ID]; !ok {
		return fmt.Errorf("vocab: update: %q not found", e.ID)
	}
	e.UpdatedAt = time.Now().UTC()
	s.byID[e.ID] = copyEntry(e)
	return nil
}

func (s *MemStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, id)
	return nil
}

func typeMatches(e *Entry, entityType string) bool {
	return entityType == "" || e.EntityType == entityType
}

func copyEntry(e *Entry) *Entry {
	cp := *e
	cp.VariantCounts = make(map[string]int, len(e.VariantCounts))
	for k, v := range e.VariantCounts {
		cp.VariantCounts[k] = v
	}
	cp.Aliases = append([]string{}, e.Aliases...)
	cp.ContextHints = append([]string{}, e.ContextHints...)
	return &cp
}
