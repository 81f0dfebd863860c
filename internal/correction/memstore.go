package correction

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
	mu sync.RWMutex
	// byWrong is keyed by lowercase wrong text.
	byWrong map[string]*Correction
}

var _ Store = (*MemStore)(nil)

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{byWrong: make(map[string]*Correction)}
}

func (s *MemStore) GetByWrongText(_ context.Context, wrongText string) (*Correction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byWrong[strings.ToLower(wrongText)]
	if !ok {
		return nil, nil
	}
	return copyCorrection(c), nil
}

func (s *MemStore) All(_ context.Context) ([]*Correction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Correction, 0, len(s.byWrong))
	for _, c := range s.byWrong {
		out = append(out, copyCorrection(c))
	}
	return out, nil
}

func (s *MemStore) Upsert(_ context.Context, c *Correction) error {
	if c == nil || c.WrongText == "" {
		return fmt.Errorf("correction: upsert: missing wrong text")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := copyCorrection(c)
	stored.WrongText = strings.ToLower(c.WrongText)
	if prev, ok := s.byWrong[stored.WrongText]; ok {
		stored.UsageCount = prev.UsageCount
		stored.CreatedAt = prev.CreatedAt
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	s.byWrong[stored.WrongText] = stored
	return nil
}

func (s *MemStore) Delete(_ context.Context, wrongText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byWrong, strings.ToLower(wrongText))
	return nil
}

func (s *MemStore) IncrementUsage(_ context.Context, wrongText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.byWrong[strings.ToLower(wrongText)]; ok {
		c.UsageCount++
		c.LastUsed = time.Now().UTC()
	}
	return nil
}

func copyCorrection(c *Correction) *Correction {
	cp := *c
	return &cp
}

// MemLearnedStore is an in-memory LearnedStore. It is safe for concurrent
// use.
type MemLearnedStore struct {
	mu     sync.RWMutex
	byID   map[string]*LearnedCorrection
	nextID int
}

var _ LearnedStore = (*MemLearnedStore)(nil)

// NewMemLearnedStore creates an empty MemLearnedStore.
func NewMemLearnedStore() *MemLearnedStore {
	return &MemLearnedStore{byID: make(map[string]*LearnedCorrection)}
}

func (s *MemLearnedStore) GetByOriginal(_ context.Context, original string) ([]*LearnedCorrection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	original = strings.ToLower(original)
	var out []*LearnedCorrection
	for _, lc := range s.byID {
		if lc.Original == original {
			out = append(out, copyLearned(lc))
		}
	}
	return out, nil
}

func (s *MemLearnedStore) All(_ context.Context) ([]*LearnedCorrection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*LearnedCorrection, 0, len(s.byID))
	for _, lc := range s.byID {
		out = append(out, copyLearned(lc))
	}
	return out, nil
}

func (s *MemLearnedStore) Create(_ context.Context, lc *LearnedCorrection) error {
	if lc == nil || lc.Original == "" {
		return fmt.Errorf("correction: create learned: missing original")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	lc.ID = fmt.Sprintf("lc-%d", s.nextID)
	lc.Original = strings.ToLower(lc.Original)
	if lc.CreatedAt.IsZero() {
		lc.CreatedAt = time.Now().UTC()
	}
	s.byID[lc.ID] = copyLearned(lc)
	return nil
}

func (s *MemLearnedStore) Update(_ context.Context, lc *LearnedCorrection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[lc.ID]; !ok {
		return fmt.Errorf("correction: update learned: %q not found", lc.ID)
	}
	s.byID[lc.ID] = copyLearned(lc)
	return nil
}

func (s *MemLearnedStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, id)
	return nil
}

func copyLearned(lc *LearnedCorrection) *LearnedCorrection {
	cp := *lc
	cp.LeftContext = append([]string{}, lc.LeftContext...)
	cp.RightContext = append([]string{}, lc.RightContext...)
	return &cp
}
