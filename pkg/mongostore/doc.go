// Package mongostore implements the flagstate.Store contract on top of
// MongoDB.
//
// Each entity's overrides live in one document keyed by _id. Merge updates
// use dotted $set paths ("flags.beta") so a single-flag write leaves
// unrelated keys untouched; replaces $set the whole flags subdocument, which
// drops keys absent from the new mapping. Create conflicts caused by a
// concurrent first write surface as flagstate.ErrAlreadyPersisted via the
// _id uniqueness constraint.
//
// # Usage
//
//	client, err := mongostore.Connect(ctx, cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	coll := client.Database("flagkit").Collection("flag_records")
//	store, err := mongostore.New(coll)
//	if err != nil {
//		log.Fatal(err)
//	}
//	state, err := flagstate.NewState(entityID, registry, store)
//
// NewFromEnv composes environment configuration loading with Connect for the
// common case.
package mongostore
