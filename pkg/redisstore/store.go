package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/flagkit/pkg/config"
	"github.com/dmitrymomot/flagkit/pkg/flagstate"
)

const defaultKeyPrefix = "flags:"

// maxUpdateRetries bounds WATCH retries on a contended merge update.
const maxUpdateRetries = 3

// Store persists per-entity flag snapshots in Redis, one JSON document per
// entity. A document is used instead of a hash so an entity that was
// persisted and later reset to zero overrides keeps an empty document and
// stays distinguishable from one never persisted at all, which an empty
// (auto-removed) hash could not express.
type Store struct {
	client redis.UniversalClient
	prefix string
	log    *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithKeyPrefix overrides the default "flags:" key prefix.
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithLogger attaches a structured logger used for debug-level write logging.
func WithLogger(log *slog.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// New creates a Store on top of an existing Redis client.
func New(client redis.UniversalClient, opts ...Option) (*Store, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	s := &Store{
		client: client,
		prefix: defaultKeyPrefix,
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NewFromEnv connects to Redis using environment-based configuration and
// returns a Store on top of the resulting client.
func NewFromEnv(ctx context.Context, opts ...Option) (*Store, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}
	client, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return New(client, opts...)
}

var _ flagstate.Store = (*Store)(nil)

func (s *Store) key(entityID string) string {
	return s.prefix + entityID
}

// Fetch reads the entity's document. A missing key is the valid
// never-persisted state, not an error.
func (s *Store) Fetch(ctx context.Context, entityID string) (flagstate.Snapshot, error) {
	raw, err := s.client.Get(ctx, s.key(entityID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	snapshot := flagstate.Snapshot{}
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// Create writes the entity's first document. SET NX makes the first-writer
// race explicit: the loser gets flagstate.ErrAlreadyPersisted.
func (s *Store) Create(ctx context.Context, entityID string, flags flagstate.Snapshot) error {
	raw, err := marshalSnapshot(flags)
	if err != nil {
		return err
	}

	ok, err := s.client.SetNX(ctx, s.key(entityID), raw, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return errors.Join(flagstate.ErrAlreadyPersisted, fmt.Errorf("entity %q", entityID))
	}
	s.log.DebugContext(ctx, "flag record created", slog.String("entity_id", entityID))
	return nil
}

// Update merges the given keys into the existing document using an optimistic
// WATCH transaction, retried a bounded number of times under contention.
func (s *Store) Update(ctx context.Context, entityID string, flags flagstate.Snapshot) error {
	key := s.key(entityID)

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return errors.Join(flagstate.ErrNotPersisted, fmt.Errorf("entity %q", entityID))
		}
		if err != nil {
			return err
		}

		snapshot := flagstate.Snapshot{}
		if err := json.Unmarshal(raw, &snapshot); err != nil {
			return err
		}
		maps.Copy(snapshot, flags)

		merged, err := json.Marshal(snapshot)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, merged, 0)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxUpdateRetries; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err == nil {
			s.log.DebugContext(ctx, "flag record updated", slog.String("entity_id", entityID))
		}
		return err
	}
	return errors.Join(ErrConcurrentUpdate, fmt.Errorf("entity %q", entityID))
}

// Replace overwrites the entity's document with exactly the given mapping.
// SET XX guards against replacing a record that does not exist.
func (s *Store) Replace(ctx context.Context, entityID string, flags flagstate.Snapshot) error {
	raw, err := marshalSnapshot(flags)
	if err != nil {
		return err
	}

	ok, err := s.client.SetXX(ctx, s.key(entityID), raw, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return errors.Join(flagstate.ErrNotPersisted, fmt.Errorf("entity %q", entityID))
	}
	s.log.DebugContext(ctx, "flag record replaced", slog.String("entity_id", entityID))
	return nil
}

// marshalSnapshot encodes a snapshot as a JSON object. A nil snapshot encodes
// as the empty object rather than JSON null.
func marshalSnapshot(flags flagstate.Snapshot) ([]byte, error) {
	if flags == nil {
		flags = flagstate.Snapshot{}
	}
	return json.Marshal(flags)
}
