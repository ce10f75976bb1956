package mongostore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/dmitrymomot/flagkit/pkg/config"
	"github.com/dmitrymomot/flagkit/pkg/flagstate"
)

// record is the document stored per entity.
type record struct {
	EntityID  string          `bson:"_id"`
	Flags     map[string]bool `bson:"flags"`
	CreatedAt time.Time       `bson:"created_at"`
	UpdatedAt time.Time       `bson:"updated_at"`
}

// Store persists per-entity flag snapshots in a MongoDB collection, one
// document per entity keyed by _id. Merge updates use dotted $set paths so
// unrelated keys stay untouched; replaces swap the whole document.
type Store struct {
	coll *mongo.Collection
	log  *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger attaches a structured logger used for debug-level write logging.
func WithLogger(log *slog.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// New creates a Store on top of an existing collection.
func New(coll *mongo.Collection, opts ...Option) (*Store, error) {
	if coll == nil {
		return nil, ErrNilCollection
	}
	s := &Store{
		coll: coll,
		log:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NewFromEnv connects to MongoDB using environment-based configuration and
// returns a Store over the configured database and collection.
func NewFromEnv(ctx context.Context, opts ...Option) (*Store, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}
	client, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return New(client.Database(cfg.Database).Collection(cfg.Collection), opts...)
}

var _ flagstate.Store = (*Store)(nil)

// Fetch reads the entity's document. A missing document is the valid
// never-persisted state, not an error.
func (s *Store) Fetch(ctx context.Context, entityID string) (flagstate.Snapshot, error) {
	var rec record
	err := s.coll.FindOne(ctx, bson.M{"_id": entityID}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	snapshot := flagstate.Snapshot{}
	for name, value := range rec.Flags {
		snapshot[name] = value
	}
	return snapshot, nil
}

// Create inserts the entity's first document. A duplicate key error surfaces
// as flagstate.ErrAlreadyPersisted.
func (s *Store) Create(ctx context.Context, entityID string, flags flagstate.Snapshot) error {
	now := time.Now()
	_, err := s.coll.InsertOne(ctx, record{
		EntityID:  entityID,
		Flags:     snapshotFlags(flags),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.Join(flagstate.ErrAlreadyPersisted, err)
		}
		return err
	}
	s.log.DebugContext(ctx, "flag record created", slog.String("entity_id", entityID))
	return nil
}

// Update merges the given keys into the existing document via dotted $set
// paths.
func (s *Store) Update(ctx context.Context, entityID string, flags flagstate.Snapshot) error {
	set := bson.M{"updated_at": time.Now()}
	for name, value := range flags {
		set["flags."+name] = value
	}

	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": entityID}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errors.Join(flagstate.ErrNotPersisted, fmt.Errorf("entity %q", entityID))
	}
	s.log.DebugContext(ctx, "flag record updated", slog.String("entity_id", entityID))
	return nil
}

// Replace overwrites the flags subdocument with exactly the given mapping.
// Setting the whole subdocument drops keys absent from flags while keeping
// the document's created_at intact.
func (s *Store) Replace(ctx context.Context, entityID string, flags flagstate.Snapshot) error {
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": entityID}, bson.M{"$set": bson.M{
		"flags":      snapshotFlags(flags),
		"updated_at": time.Now(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errors.Join(flagstate.ErrNotPersisted, fmt.Errorf("entity %q", entityID))
	}
	s.log.DebugContext(ctx, "flag record replaced", slog.String("entity_id", entityID))
	return nil
}

// snapshotFlags converts a snapshot into the stored representation, mapping
// nil to an empty document so the persisted-with-zero-overrides state
// round-trips.
func snapshotFlags(flags flagstate.Snapshot) map[string]bool {
	if flags == nil {
		return map[string]bool{}
	}
	return flags
}
