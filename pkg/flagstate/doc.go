// Package flagstate provides a per-entity feature-flag state engine with
// pluggable storage backends.
//
// An application declares named boolean flags for an entity type, each with a
// fixed default or a computation rule. At runtime every entity instance gets
// a State that resolves each flag's effective value from the declaration and
// any explicit overrides persisted for that entity, and that can mutate those
// overrides through a four-operation storage contract.
//
// # Architecture
//
// The package is built around four core concepts:
//
// 1. Registry - Immutable per-entity-type mapping from flag name to Definition
// 2. Store - The storage backend contract (Fetch, Create, Update, Replace)
// 3. State - Per-entity-instance cache and mutation operations
// 4. Tx - A batched-write accumulator committed as a single store call
//
// State lazily fetches the entity's persisted snapshot on first use and from
// then on treats the cache as the single source of truth: after every
// successful write the cache is advanced to exactly what was written, with no
// re-fetch round-trip. A failed write leaves the cache untouched. Reload
// discards the cache so the next operation fetches fresh.
//
// Write dispatch follows the entity's persistence status. The first write for
// a never-persisted entity goes through Create; later single-flag writes go
// through Update, which merges keys into the record; writes that must remove
// keys (Reset, transaction commits) go through Replace, which overwrites the
// whole record.
//
// # Usage
//
//	import "github.com/dmitrymomot/flagkit/pkg/flagstate"
//
//	registry, err := flagstate.NewRegistry(
//		flagstate.Bool("beta", false),
//		flagstate.Computed("colorway", func(args ...any) bool {
//			return len(args) > 0 && args[0] == "dark"
//		}),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	store := flagstate.NewMemoryStore()
//	state, err := flagstate.NewState("user-42", registry, store)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	if err := state.Enable(ctx, "beta"); err != nil {
//		// Handle error
//	}
//	enabled, err := state.IsEnabled(ctx, "beta")
//
// # Transactions
//
// A transaction batches several mutations into exactly one store write:
//
//	err := state.Transaction(ctx, func(tx *flagstate.Tx) error {
//		tx.Set("beta", true)
//		tx.Disable("new-ui")
//		tx.Reset("colorway")
//		return nil
//	})
//
// Within a transaction the last intent per flag wins. A reset intent removes
// the key from the committed snapshot even when an earlier intent in the same
// transaction set it. Returning an error from the callback discards the
// transaction without writing.
//
// # Override semantics for rule-backed flags
//
// A persisted override on a plain flag simply wins. On a rule-backed flag the
// override is a layer on top of the rule, not a replacement: a persisted
// false suppresses rule evaluation entirely, while a persisted true still
// runs the rule against the caller's arguments. Persistence enables the
// possibility; argument-dependent rules still apply. This asymmetry is
// preserved deliberately from the reference behavior and is admittedly a
// design smell; callers who want "override always wins" should declare the
// flag with a fixed default instead.
//
// # Error Handling
//
// The package defines specific errors for different failure scenarios:
//
//	enabled, err := state.IsEnabled(ctx, "typo")
//	if errors.Is(err, flagstate.ErrUnknownFeature) {
//		// Flag was never declared
//	}
//
// ErrUnknownFeature marks a programmer error, not a runtime condition: the
// caller referenced a flag never declared for the entity type. Store
// conflicts surface as ErrAlreadyPersisted and ErrNotPersisted; any other
// backend failure propagates unmodified and the cache stays untouched.
//
// # Concurrency
//
// State is single-threaded by design: it holds no locks and callers sharing
// an entity instance across goroutines must serialize externally. Store
// implementations are expected to be safe for concurrent use across distinct
// entities; MemoryStore uses a read-write lock.
package flagstate
