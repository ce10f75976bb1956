package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/flagkit/pkg/config"
	"github.com/dmitrymomot/flagkit/pkg/flagstate"
)

// Schema is the DDL for the table the store reads and writes. Applying it is
// the application's responsibility; the store never manages schema itself.
const Schema = `CREATE TABLE IF NOT EXISTS flag_overrides (
	entity_id  TEXT PRIMARY KEY,
	flags      JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

const defaultTable = "flag_overrides"

var tableNameRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// DB is the subset of pgxpool.Pool the store needs. pgx.Tx satisfies it too,
// so a store can run inside an enclosing database transaction.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists per-entity flag snapshots in a PostgreSQL JSONB column.
// Merge updates use the jsonb concatenation operator so unrelated keys stay
// untouched; replaces overwrite the whole document.
type Store struct {
	db    DB
	table string
	log   *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithTable overrides the default flag_overrides table name.
func WithTable(name string) Option {
	return func(s *Store) { s.table = name }
}

// WithLogger attaches a structured logger used for debug-level query logging.
func WithLogger(log *slog.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// New creates a Store on top of an existing connection pool or transaction.
func New(db DB, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, ErrNilPool
	}
	s := &Store{
		db:    db,
		table: defaultTable,
		log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if !tableNameRe.MatchString(s.table) {
		return nil, errors.Join(ErrInvalidTableName, fmt.Errorf("table %q", s.table))
	}
	return s, nil
}

// NewFromEnv connects to PostgreSQL using environment-based configuration and
// returns a Store on top of the resulting pool.
func NewFromEnv(ctx context.Context, opts ...Option) (*Store, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}
	pool, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return New(pool, opts...)
}

var _ flagstate.Store = (*Store)(nil)

// Fetch reads the entity's persisted snapshot. A missing row is the valid
// never-persisted state, not an error.
func (s *Store) Fetch(ctx context.Context, entityID string) (flagstate.Snapshot, error) {
	query := fmt.Sprintf(`SELECT flags FROM %s WHERE entity_id = $1`, s.table)

	var raw []byte
	err := s.db.QueryRow(ctx, query, entityID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
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

// Create inserts the first row for the entity. A unique-constraint violation
// surfaces as flagstate.ErrAlreadyPersisted.
func (s *Store) Create(ctx context.Context, entityID string, flags flagstate.Snapshot) error {
	raw, err := marshalSnapshot(flags)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`INSERT INTO %s (entity_id, flags) VALUES ($1, $2)`, s.table)
	if _, err := s.db.Exec(ctx, query, entityID, raw); err != nil {
		if isDuplicateKeyError(err) {
			return errors.Join(flagstate.ErrAlreadyPersisted, err)
		}
		return err
	}
	s.log.DebugContext(ctx, "flag record created", slog.String("entity_id", entityID))
	return nil
}

// Update merges the given keys into the existing row via jsonb concatenation.
func (s *Store) Update(ctx context.Context, entityID string, flags flagstate.Snapshot) error {
	raw, err := marshalSnapshot(flags)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`UPDATE %s SET flags = flags || $2::jsonb, updated_at = now() WHERE entity_id = $1`, s.table)
	tag, err := s.db.Exec(ctx, query, entityID, raw)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errors.Join(flagstate.ErrNotPersisted, fmt.Errorf("entity %q", entityID))
	}
	s.log.DebugContext(ctx, "flag record updated", slog.String("entity_id", entityID))
	return nil
}

// Replace overwrites the entity's row with exactly the given mapping.
func (s *Store) Replace(ctx context.Context, entityID string, flags flagstate.Snapshot) error {
	raw, err := marshalSnapshot(flags)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`UPDATE %s SET flags = $2::jsonb, updated_at = now() WHERE entity_id = $1`, s.table)
	tag, err := s.db.Exec(ctx, query, entityID, raw)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errors.Join(flagstate.ErrNotPersisted, fmt.Errorf("entity %q", entityID))
	}
	s.log.DebugContext(ctx, "flag record replaced", slog.String("entity_id", entityID))
	return nil
}

// marshalSnapshot encodes a snapshot as a JSON object. A nil snapshot encodes
// as the empty object rather than JSON null so jsonb operators behave.
func marshalSnapshot(flags flagstate.Snapshot) ([]byte, error) {
	if flags == nil {
		flags = flagstate.Snapshot{}
	}
	return json.Marshal(flags)
}

// isDuplicateKeyError detects PostgreSQL unique constraint violations (SQLSTATE 23505).
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
