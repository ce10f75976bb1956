// Package pgstore implements the flagstate.Store contract on top of
// PostgreSQL.
//
// Each entity's overrides live in one row of a JSONB-backed table. Merge
// updates use the jsonb concatenation operator (||) so a single-flag write
// cannot clobber unrelated keys; replaces overwrite the whole document,
// which is how key removal is expressed. Create conflicts caused by a
// concurrent first write surface as flagstate.ErrAlreadyPersisted via the
// table's primary key constraint.
//
// # Usage
//
//	pool, err := pgstore.Connect(ctx, cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	store, err := pgstore.New(pool)
//	if err != nil {
//		log.Fatal(err)
//	}
//	state, err := flagstate.NewState(entityID, registry, store)
//
// NewFromEnv composes environment configuration loading with Connect for the
// common case. The Schema constant holds the DDL for the backing table;
// applying it (directly or through the application's migration tooling) is
// the caller's responsibility.
package pgstore
