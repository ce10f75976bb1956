package flagstate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"maps"
)

// State owns the flag state of a single entity instance: a lazily-fetched
// cache of the entity's persisted overrides plus the query and mutation
// operations that resolve against the registry and write through the store.
//
// State is not safe for concurrent use. Callers sharing one entity instance
// across goroutines must serialize access externally.
type State struct {
	entityID string
	registry *Registry
	store    Store
	log      *slog.Logger

	// snapshot is the cached persisted state; valid only while loaded is
	// true. Once populated it is the single source of truth until Reload.
	snapshot Snapshot
	loaded   bool
}

// StateOption configures a State.
type StateOption func(*State)

// WithLogger attaches a structured logger used for debug-level write logging.
func WithLogger(log *slog.Logger) StateOption {
	return func(s *State) {
		if log != nil {
			s.log = log
		}
	}
}

// NewState creates the flag state for one entity instance. The registry and
// store are injected explicitly; State never discovers collaborators at call
// time.
func NewState(entityID string, registry *Registry, store Store, opts ...StateOption) (*State, error) {
	if entityID == "" {
		return nil, errors.Join(ErrInvalidState, errors.New("entity id cannot be empty"))
	}
	if registry == nil {
		return nil, errors.Join(ErrInvalidState, errors.New("registry cannot be nil"))
	}
	if store == nil {
		return nil, errors.Join(ErrInvalidState, errors.New("store cannot be nil"))
	}

	s := &State{
		entityID: entityID,
		registry: registry,
		store:    store,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// EntityID returns the identity of the entity this state belongs to.
func (s *State) EntityID() string { return s.entityID }

// IsEnabled resolves the effective value of a flag. A persisted override on a
// plain flag is returned as-is. For rule-backed flags the override layers on
// top of the rule rather than replacing it: a persisted false suppresses the
// rule entirely, while a persisted true still evaluates the rule against the
// supplied arguments. Without an override the declared default or rule result
// is returned. This asymmetry preserves the reference behavior on purpose;
// see the package documentation before "fixing" it.
func (s *State) IsEnabled(ctx context.Context, feature string, args ...any) (bool, error) {
	def, err := s.registry.Lookup(feature)
	if err != nil {
		return false, err
	}
	snapshot, err := s.load(ctx)
	if err != nil {
		return false, err
	}

	if persisted, ok := snapshot[feature]; ok {
		if !def.IsRule() {
			return persisted, nil
		}
		if !persisted {
			return false, nil
		}
	}
	return def.Evaluate(args...), nil
}

// Set persists an explicit override for the flag as a single-flag
// create-or-merge-update.
func (s *State) Set(ctx context.Context, feature string, value bool) error {
	if _, err := s.registry.Lookup(feature); err != nil {
		return err
	}
	return s.createOrUpdate(ctx, Snapshot{feature: value})
}

// Enable is shorthand for Set(ctx, feature, true).
func (s *State) Enable(ctx context.Context, feature string) error {
	return s.Set(ctx, feature, true)
}

// Disable is shorthand for Set(ctx, feature, false).
func (s *State) Disable(ctx context.Context, feature string) error {
	return s.Set(ctx, feature, false)
}

// Persist freezes the current effective value of the flag into storage as an
// explicit override, computing it exactly as IsEnabled would.
func (s *State) Persist(ctx context.Context, feature string, args ...any) error {
	value, err := s.IsEnabled(ctx, feature, args...)
	if err != nil {
		return err
	}
	return s.createOrUpdate(ctx, Snapshot{feature: value})
}

// Reset removes the flag's override so resolution falls back to the declared
// default or rule. Removing a key cannot be expressed as a merge, so the
// remaining snapshot is written as a full replace. Resetting a flag that was
// never persisted, or an entity with no record at all, is a silent no-op with
// no store call.
func (s *State) Reset(ctx context.Context, feature string) error {
	if _, err := s.registry.Lookup(feature); err != nil {
		return err
	}
	snapshot, err := s.load(ctx)
	if err != nil {
		return err
	}
	if snapshot == nil {
		return nil
	}
	if _, ok := snapshot[feature]; !ok {
		return nil
	}

	remaining := snapshot.Clone()
	delete(remaining, feature)
	if err := s.store.Replace(ctx, s.entityID, remaining); err != nil {
		return err
	}
	s.snapshot = remaining
	s.log.DebugContext(ctx, "flag override removed",
		slog.String("entity_id", s.entityID),
		slog.String("feature", feature))
	return nil
}

// HasRecord reports whether the entity has ever been persisted.
func (s *State) HasRecord(ctx context.Context) (bool, error) {
	snapshot, err := s.load(ctx)
	if err != nil {
		return false, err
	}
	return snapshot != nil, nil
}

// IsPersisted reports whether the flag has an explicit persisted override.
func (s *State) IsPersisted(ctx context.Context, feature string) (bool, error) {
	if _, err := s.registry.Lookup(feature); err != nil {
		return false, err
	}
	snapshot, err := s.load(ctx)
	if err != nil {
		return false, err
	}
	_, ok := snapshot[feature]
	return ok, nil
}

// IsPersistedAs reports whether the flag has an explicit persisted override
// equal to value.
func (s *State) IsPersistedAs(ctx context.Context, feature string, value bool) (bool, error) {
	if _, err := s.registry.Lookup(feature); err != nil {
		return false, err
	}
	snapshot, err := s.load(ctx)
	if err != nil {
		return false, err
	}
	persisted, ok := snapshot[feature]
	return ok && persisted == value, nil
}

// Reload discards the cached snapshot; the next operation re-fetches from the
// store.
func (s *State) Reload() {
	s.snapshot = nil
	s.loaded = false
}

// load returns the cached snapshot, fetching it on first use. A nil snapshot
// with a nil error is the valid never-persisted state.
func (s *State) load(ctx context.Context) (Snapshot, error) {
	if s.loaded {
		return s.snapshot, nil
	}
	snapshot, err := s.store.Fetch(ctx, s.entityID)
	if err != nil {
		return nil, err
	}
	s.snapshot = snapshot
	s.loaded = true
	return snapshot, nil
}

// createOrUpdate is the single-flag write path: Create with the full written
// set when the entity has no record yet, Update (merge) otherwise. The cache
// is advanced to exactly what was written only after the store call succeeds,
// so a failed write never desyncs the cache.
func (s *State) createOrUpdate(ctx context.Context, flags Snapshot) error {
	snapshot, err := s.load(ctx)
	if err != nil {
		return err
	}

	if snapshot == nil {
		if err := s.store.Create(ctx, s.entityID, flags); err != nil {
			return err
		}
		s.snapshot = flags.Clone()
		s.log.DebugContext(ctx, "flag record created",
			slog.String("entity_id", s.entityID),
			slog.Int("flags", len(flags)))
		return nil
	}

	if err := s.store.Update(ctx, s.entityID, flags); err != nil {
		return err
	}
	merged := snapshot.Clone()
	maps.Copy(merged, flags)
	s.snapshot = merged
	s.log.DebugContext(ctx, "flag record updated",
		slog.String("entity_id", s.entityID),
		slog.Int("flags", len(flags)))
	return nil
}
