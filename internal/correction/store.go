package correction

import "context"

// Store persists taught corrections, keyed by lowercase wrong text.
//
// Read methods return (nil, nil) when no record exists so callers can
// distinguish a miss from a failure.
type Store interface {
	// GetByWrongText returns the correction for the given wrong text
	// (matched case-insensitively), or (nil, nil) if none is stored.
	GetByWrongText(ctx context.Context, wrongText string) (*Correction, error)

	// All returns every stored correction.
	All(ctx context.Context) ([]*Correction, error)

	// Upsert stores a correction, replacing any existing record with the
	// same lowercase WrongText.
	Upsert(ctx context.Context, c *Correction) error

	// Delete removes the correction for the given wrong text. Deleting a
	// missing record is not an error.
	Delete(ctx context.Context, wrongText string) error

	// IncrementUsage bumps UsageCount and LastUsed for the given wrong
	// text. Incrementing a missing record is not an error.
	IncrementUsage(ctx context.Context, wrongText string) error
}

// LearnedStore persists context-qualified learned corrections. Multiple
// records may share an Original; context disambiguates them.
type LearnedStore interface {
	// GetByOriginal returns all learned corrections for the given original
	// word (matched case-insensitively). A miss returns an empty slice.
	GetByOriginal(ctx context.Context, original string) ([]*LearnedCorrection, error)

	// All returns every learned correction.
	All(ctx context.Context) ([]*LearnedCorrection, error)

	// Create inserts a new record and fills in its ID.
	Create(ctx context.Context, lc *LearnedCorrection) error

	// Update rewrites an existing record by ID.
	Update(ctx context.Context, lc *LearnedCorrection) error

	// Delete removes the record with the given ID. Deleting a missing
	// record is not an error.
	Delete(ctx context.Context, id string) error
}
