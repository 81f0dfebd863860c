package vocab

import "context"

// Store persists vocabulary entries.
//
// Single-record reads return (nil, nil) on a miss; list reads return an
// empty slice.
type Store interface {
	// GetByID returns the entry with the given ID, or (nil, nil).
	GetByID(ctx context.Context, id string) (*Entry, error)

	// GetByCanonical returns the entry whose canonical spelling matches
	// (case-insensitively), optionally restricted to an entity type.
	// An empty entityType matches any type.
	GetByCanonical(ctx context.Context, canonical, entityType string) (*Entry, error)

	// GetByAlias returns the entry carrying the given alias
	// (case-insensitively), optionally restricted to an entity type.
	GetByAlias(ctx context.Context, alias, entityType string) (*Entry, error)

	// GetByPhoneticCode returns every entry whose primary or secondary
	// code equals code, optionally restricted to an entity type.
	GetByPhoneticCode(ctx context.Context, code, entityType string) ([]*Entry, error)

	// All returns every entry, optionally restricted to an entity type.
	All(ctx context.Context, entityType string) ([]*Entry, error)

	// Create inserts a new entry and fills in its ID.
	Create(ctx context.Context, e *Entry) error

	// Update rewrites an existing entry by ID.
	Update(ctx context.Context, e *Entry) error

	// Delete removes the entry with the given ID. Deleting a missing entry
	// is not an error.
	Delete(ctx context.Context, id string) error
}
