package flagstate

import (
	"context"
	"log/slog"
)

// txIntent is one accumulated mutation: either an explicit value or a
// tombstone marking the key for removal.
type txIntent struct {
	value  bool
	remove bool
}

// Tx accumulates mutation intents against a State without touching the store.
// Later intents for the same flag overwrite earlier ones, so the accumulator
// is a deterministic map merge rather than a replay log. A Tx is only valid
// inside the Transaction callback that created it.
type Tx struct {
	state   *State
	intents map[string]txIntent
}

// Transaction runs fn with a transaction scoped to this state. Every
// mutation recorded on the Tx is applied as exactly one store write when fn
// returns nil: the existing snapshot (if any) is merged with the intents
// (intents win on conflict) and written via Create for a never-persisted
// entity or Replace otherwise. Replace rather than merge-update, because a
// reset recorded in the transaction must be able to remove keys. If fn
// returns an error the transaction is discarded and nothing is written.
func (s *State) Transaction(ctx context.Context, fn func(tx *Tx) error) error {
	tx := &Tx{
		state:   s,
		intents: make(map[string]txIntent),
	}
	if err := fn(tx); err != nil {
		return err
	}
	return s.commit(ctx, tx.intents)
}

// Set records an override intent for the flag.
func (tx *Tx) Set(feature string, value bool) error {
	if _, err := tx.state.registry.Lookup(feature); err != nil {
		return err
	}
	tx.intents[feature] = txIntent{value: value}
	return nil
}

// Enable is shorthand for Set(feature, true).
func (tx *Tx) Enable(feature string) error {
	return tx.Set(feature, true)
}

// Disable is shorthand for Set(feature, false).
func (tx *Tx) Disable(feature string) error {
	return tx.Set(feature, false)
}

// Persist records the flag's current effective value as an override intent.
// The value is resolved against the state's snapshot, not against intents
// recorded earlier in this transaction; only the commit applies intents.
func (tx *Tx) Persist(ctx context.Context, feature string, args ...any) error {
	value, err := tx.state.IsEnabled(ctx, feature, args...)
	if err != nil {
		return err
	}
	tx.intents[feature] = txIntent{value: value}
	return nil
}

// Reset records a tombstone so the flag is absent from the committed
// snapshot, even if an earlier intent in the same transaction set it.
func (tx *Tx) Reset(feature string) error {
	if _, err := tx.state.registry.Lookup(feature); err != nil {
		return err
	}
	tx.intents[feature] = txIntent{remove: true}
	return nil
}

// commit applies the accumulated intents as one store write and advances the
// cache to the committed snapshot. An empty transaction, or one whose resets
// target a never-persisted entity with nothing else to write, makes no store
// call at all.
func (s *State) commit(ctx context.Context, intents map[string]txIntent) error {
	if len(intents) == 0 {
		return nil
	}
	snapshot, err := s.load(ctx)
	if err != nil {
		return err
	}

	merged := snapshot.Clone()
	if merged == nil {
		merged = Snapshot{}
	}
	for feature, intent := range intents {
		if intent.remove {
			delete(merged, feature)
		} else {
			merged[feature] = intent.value
		}
	}

	if snapshot == nil {
		if len(merged) == 0 {
			return nil
		}
		if err := s.store.Create(ctx, s.entityID, merged); err != nil {
			return err
		}
	} else {
		if err := s.store.Replace(ctx, s.entityID, merged); err != nil {
			return err
		}
	}
	s.snapshot = merged
	s.loaded = true
	s.log.DebugContext(ctx, "flag transaction committed",
		slog.String("entity_id", s.entityID),
		slog.Int("intents", len(intents)))
	return nil
}
