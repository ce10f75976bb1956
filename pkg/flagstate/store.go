package flagstate

import (
	"context"
	"maps"
)

// Snapshot is everything currently persisted for one entity: a mapping from
// flag name to its explicit override. Absence of a key means "not overridden,
// fall back to the declared definition". A nil Snapshot means the entity has
// never been persisted at all, which is distinct from an empty one (persisted
// once, zero overrides remain).
type Snapshot map[string]bool

// Clone returns an independent copy of the snapshot. Cloning a nil snapshot
// returns nil, preserving the never-persisted marker.
func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return nil
	}
	return maps.Clone(s)
}

// Store is the storage backend contract consumed by State. Implementations
// must return ErrAlreadyPersisted from Create when a record already exists
// and ErrNotPersisted from Update/Replace when none does, wrapped so that
// errors.Is matches. Any other backend failure propagates unmodified; State
// performs no retries.
//
// Fetch must return an independent snapshot the caller may keep; returning
// (nil, nil) is the valid "never persisted" branch, not a failure.
type Store interface {
	// Fetch reads the persisted snapshot for the entity. Read-only.
	Fetch(ctx context.Context, entityID string) (Snapshot, error)

	// Create writes the first persisted record for the entity.
	Create(ctx context.Context, entityID string, flags Snapshot) error

	// Update merges the given keys into the existing record, leaving other
	// keys untouched.
	Update(ctx context.Context, entityID string, flags Snapshot) error

	// Replace overwrites the entire record with exactly the given mapping;
	// keys absent from flags are removed.
	Replace(ctx context.Context, entityID string, flags Snapshot) error
}
