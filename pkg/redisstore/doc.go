// Package redisstore implements the flagstate.Store contract on top of
// Redis.
//
// Each entity's overrides are stored as one JSON document under a prefixed
// key. Create uses SET NX so a concurrent first write for the same entity
// surfaces as flagstate.ErrAlreadyPersisted; Replace uses SET XX so replacing
// a missing record surfaces as flagstate.ErrNotPersisted. Merge updates run
// inside an optimistic WATCH transaction with a bounded number of retries.
//
// A JSON document is used rather than a Redis hash on purpose: Redis removes
// empty hashes, which would collapse the "persisted with zero overrides"
// state into "never persisted". The empty document keeps the two apart.
//
// # Usage
//
//	client, err := redisstore.Connect(ctx, cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	store, err := redisstore.New(client)
//	if err != nil {
//		log.Fatal(err)
//	}
//	state, err := flagstate.NewState(entityID, registry, store)
//
// NewFromEnv composes environment configuration loading with Connect for the
// common case.
package redisstore
