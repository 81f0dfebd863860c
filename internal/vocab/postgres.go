package vocab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema is the SQL DDL for the vocabulary table. Execute it via
// [PostgresStore.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS vocabulary (
    id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
    canonical      TEXT NOT NULL,
    entity_type    TEXT NOT NULL DEFAULT '',
    entity_id      TEXT NOT NULL DEFAULT '',
    primary_code   TEXT NOT NULL DEFAULT '',
    secondary_code TEXT NOT NULL DEFAULT '',
    variant_counts JSONB NOT NULL DEFAULT '{}',
    aliases        TEXT[] NOT NULL DEFAULT '{}',
    context_hints  TEXT[] NOT NULL DEFAULT '{}',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_vocabulary_canonical ON vocabulary(lower(canonical), entity_type);
CREATE INDEX IF NOT EXISTS idx_vocabulary_primary_code ON vocabulary(primary_code);
CREATE INDEX IF NOT EXISTS idx_vocabulary_secondary_code ON vocabulary(secondary_code);
CREATE INDEX IF NOT EXISTS idx_vocabulary_entity ON vocabulary(entity_id);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by a PostgreSQL database. Variant
// counts are serialised as JSONB.
type PostgresStore struct {
	db DB
}

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new [PostgresStore] over the given connection
// or pool. Call [PostgresStore.Migrate] before issuing queries.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate executes the [Schema] DDL, creating the vocabulary table and its
// indexes if they do not already exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("vocab: migrate: %w", err)
	}
	return nil
}

const entryColumns = `id, canonical, entity_type, entity_id, primary_code, secondary_code,
       variant_counts, aliases, context_hints, created_at, updated_at`

func (s *PostgresStore) GetByID(ctx context.Context, id string) (*Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM vocabulary WHERE id = $1`
	e, err := scanEntry(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("vocab: get %q: %w", id, err)
	}
	return e, nil
}

func (s *PostgresStore) GetByCanonical(ctx context.Context, canonical, entityType string) (*Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM vocabulary WHERE lower(canonical) = lower($1)`
	args := []any{canonical}
	if entityType != "" {
		query += ` AND entity_type = $2`
		args = append(args, entityType)
	}
	query += ` LIMIT 1`

	e, err := scanEntry(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("vocab: get by canonical %q: %w", canonical, err)
	}
	return e, nil
}

func (s *PostgresStore) GetByAlias(ctx context.Context, alias, entityType string) (*Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM vocabulary
		WHERE EXISTS (SELECT 1 FROM unnest(aliases) a WHERE lower(a) = lower($1))`
	args := []any{alias}
	if entityType != "" {
		query += ` AND entity_type = $2`
		args = append(args, entityType)
	}
	query += ` LIMIT 1`

	e, err := scanEntry(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("vocab: get by alias %q: %w", alias, err)
	}
	return e, nil
}

func (s *PostgresStore) GetByPhoneticCode(ctx context.Context, code, entityType string) ([]*Entry, error) {
	if code == "" {
		return nil, nil
	}
	query := `SELECT ` + entryColumns + ` FROM vocabulary WHERE (primary_code = $1 OR secondary_code = $1)`
	args := []any{code}
	if entityType != "" {
		query += ` AND entity_type = $2`
		args = append(args, entityType)
	}
	query += ` ORDER BY canonical`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("vocab: get by code %q: %w", code, err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (s *PostgresStore) All(ctx context.Context, entityType string) ([]*Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM vocabulary`
	var args []any
	if entityType != "" {
		query += ` WHERE entity_type = $1`
		args = append(args, entityType)
	}
	query += ` ORDER BY canonical`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("vocab: all: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (s *PostgresStore) Create(ctx context.Context, e *Entry) error {
	if e == nil || e.Canonical == "" {
		return fmt.Errorf("vocab: create: missing canonical spelling")
	}
	countsJSON, err := json.Marshal(emptyCounts(e.VariantCounts))
	if err != nil {
		return fmt.Errorf("vocab: marshal variant_counts: %w", err)
	}

	const query = `
		INSERT INTO vocabulary (canonical, entity_type, entity_id, primary_code, secondary_code, variant_counts, aliases, context_hints)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	err = s.db.QueryRow(ctx, query,
		e.Canonical, e.EntityType, e.EntityID, e.PrimaryCode, e.SecondaryCode,
		countsJSON, emptySlice(e.Aliases), emptySlice(e.ContextHints),
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("vocab: entry for %q already exists", e.Canonical)
		}
		return fmt.Errorf("vocab: create: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, e *Entry) error {
	countsJSON, err := json.Marshal(emptyCounts(e.VariantCounts))
	if err != nil {
		return fmt.Errorf("vocab: marshal variant_counts: %w", err)
	}

	const query = `
		UPDATE vocabulary SET
			canonical = $2, entity_type = $3, entity_id = $4,
			primary_code = $5, secondary_code = $6,
			variant_counts = $7, aliases = $8, context_hints = $9, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	err = s.db.QueryRow(ctx, query,
		e.ID, e.Canonical, e.EntityType, e.EntityID, e.PrimaryCode, e.SecondaryCode,
		countsJSON, emptySlice(e.Aliases), emptySlice(e.ContextHints),
	).Scan(&e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("vocab: update: %q not found", e.ID)
		}
		return fmt.Errorf("vocab: update: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM vocabulary WHERE id = $1`
	if _, err := s.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("vocab: delete %q: %w", id, err)
	}
	return nil
}

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	var countsJSON []byte
	if err := row.Scan(
		&e.ID, &e.Canonical, &e.EntityType, &e.EntityID, &e.PrimaryCode, &e.SecondaryCode,
		&countsJSON, &e.Aliases, &e.ContextHints, &e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(countsJSON, &e.VariantCounts); err != nil {
		return nil, fmt.Errorf("unmarshal variant_counts: %w", err)
	}
	return &e, nil
}

func scanEntries(rows pgx.Rows) ([]*Entry, error) {
	var out []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("vocab: scan: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vocab: rows: %w", err)
	}
	return out, nil
}

// emptyCounts returns m if non-nil, otherwise an empty non-nil map, so the
// JSONB column stores "{}" instead of "null".
func emptyCounts(m map[string]int) map[string]int {
	if m == nil {
		return map[string]int{}
	}
	return m
}

// emptySlice returns s if non-nil, otherwise an empty non-nil slice, so the
// array column never stores NULL.
func emptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// isDuplicateKeyError checks whether a PostgreSQL error is a
// unique-violation (SQLSTATE 23505).
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
