package vocab

import (
	"context"
	"fmt"
	"log/slog"
)

// CanonicalChange reports that an entry's canonical spelling was rewritten
// by variant vote. The demoted spelling should be kept as an alias on the
// source entity.
type CanonicalChange struct {
	EntryID  string
	EntityID string
	Demoted  string
	Promoted string
}

// Service wraps a vocabulary store with the write-side rules: idempotent
// entry creation and observation counting with majority-vote
// recanonicalization. It is safe for concurrent use to the extent the
// underlying store is; concurrent votes for the same entry resolve
// last-write-wins.
type Service struct {
	store Store
	log   *slog.Logger
}

// NewService creates a Service over the given store.
func NewService(store Store, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, log: log}
}

// Store exposes the underlying vocabulary store for read paths.
func (s *Service) Store() Store { return s.store }

// Add ensures a vocabulary entry exists for the given spelling. An existing
// entry (matched case-insensitively within the entity type) gets one more
// vote for its spelling instead of a duplicate row.
func (s *Service) Add(ctx context.Context, canonical, entityType, entityID string) (*Entry, error) {
	existing, err := s.store.GetByCanonical(ctx, canonical, entityType)
	if err != nil {
		return nil, fmt.Errorf("vocab: add %q: %w", canonical, err)
	}
	if existing != nil {
		existing.RecordVariant(canonical)
		if err := s.store.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("vocab: add %q: %w", canonical, err)
		}
		return existing, nil
	}

	e := NewEntry(canonical, entityType, entityID)
	if err := s.store.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("vocab: add %q: %w", canonical, err)
	}
	return e, nil
}

// RecordObservation counts one sighting of variant for the given entry and
// re-runs the canonical vote. When the variant out-votes the current
// spelling the entry is rewritten around it and the change is returned for
// alias back-propagation; otherwise the change is nil.
func (s *Service) RecordObservation(ctx context.Context, entryID, variant string) (*Entry, *CanonicalChange, error) {
	e, err := s.store.GetByID(ctx, entryID)
	if err != nil {
		return nil, nil, fmt.Errorf("vocab: observe %q: %w", entryID, err)
	}
	if e == nil {
		return nil, nil, fmt.Errorf("vocab: observe: entry %q not found", entryID)
	}

	e.RecordVariant(variant)
	demoted, changed := e.Recanonicalize()
	if err := s.store.Update(ctx, e); err != nil {
		return nil, nil, fmt.Errorf("vocab: observe %q: %w", entryID, err)
	}

	if !changed {
		return e, nil, nil
	}
	s.log.Info("vocabulary entry recanonicalized",
		"entry_id", e.ID, "demoted", demoted, "promoted", e.Canonical)
	return e, &CanonicalChange{
		EntryID:  e.ID,
		EntityID: e.EntityID,
		Demoted:  demoted,
		Promoted: e.Canonical,
	}, nil
}
