package correction

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema is the SQL DDL for the correction tables. Execute it via
// [PostgresStore.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS corrections (
    wrong_text    TEXT PRIMARY KEY,
    correct_text  TEXT NOT NULL,
    original_case TEXT NOT NULL DEFAULT '',
    usage_count   INTEGER NOT NULL DEFAULT 0,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
    last_used     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS learned_corrections (
    id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
    original      TEXT NOT NULL,
    corrected     TEXT NOT NULL,
    left_context  TEXT[] NOT NULL DEFAULT '{}',
    right_context TEXT[] NOT NULL DEFAULT '{}',
    count         INTEGER NOT NULL DEFAULT 1,
    confidence    DOUBLE PRECISION NOT NULL DEFAULT 0.5,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
    last_used_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_learned_corrections_original ON learned_corrections(original);
`

// DB is the database interface used by the postgres stores in this package.
// Both *pgxpool.Pool and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by a PostgreSQL database.
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

// Migrate executes the [Schema] DDL, creating the correction tables if they
// do not already exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("correction: migrate: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByWrongText(ctx context.Context, wrongText string) (*Correction, error) {
	const query = `
		SELECT wrong_text, correct_text, original_case, usage_count, created_at, last_used
		FROM corrections
		WHERE wrong_text = $1`

	var c Correction
	err := s.db.QueryRow(ctx, query, strings.ToLower(wrongText)).Scan(
		&c.WrongText, &c.CorrectText, &c.OriginalCase, &c.UsageCount, &c.CreatedAt, &c.LastUsed,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("correction: get %q: %w", wrongText, err)
	}
	return &c, nil
}

func (s *PostgresStore) All(ctx context.Context) ([]*Correction, error) {
	const query = `
		SELECT wrong_text, correct_text, original_case, usage_count, created_at, last_used
		FROM corrections
		ORDER BY wrong_text`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("correction: all: %w", err)
	}
	defer rows.Close()

	var out []*Correction
	for rows.Next() {
		var c Correction
		if err := rows.Scan(&c.WrongText, &c.CorrectText, &c.OriginalCase, &c.UsageCount, &c.CreatedAt, &c.LastUsed); err != nil {
			return nil, fmt.Errorf("correction: all scan: %w", err)
		}
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("correction: all: %w", err)
	}
	return out, nil
}

// Upsert stores a correction. Re-teaching an existing wrong text replaces
// the replacement but keeps the accumulated usage count.
func (s *PostgresStore) Upsert(ctx context.Context, c *Correction) error {
	if c == nil || c.WrongText == "" {
		return fmt.Errorf("correction: upsert: missing wrong text")
	}
	const query = `
		INSERT INTO corrections (wrong_text, correct_text, original_case)
		VALUES ($1, $2, $3)
		ON CONFLICT (wrong_text) DO UPDATE SET
			correct_text = EXCLUDED.correct_text,
			original_case = EXCLUDED.original_case
		RETURNING usage_count, created_at, last_used`

	err := s.db.QueryRow(ctx, query,
		strings.ToLower(c.WrongText), c.CorrectText, c.OriginalCase,
	).Scan(&c.UsageCount, &c.CreatedAt, &c.LastUsed)
	if err != nil {
		return fmt.Errorf("correction: upsert %q: %w", c.WrongText, err)
	}
	c.WrongText = strings.ToLower(c.WrongText)
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, wrongText string) error {
	const query = `DELETE FROM corrections WHERE wrong_text = $1`
	if _, err := s.db.Exec(ctx, query, strings.ToLower(wrongText)); err != nil {
		return fmt.Errorf("correction: delete %q: %w", wrongText, err)
	}
	return nil
}

func (s *PostgresStore) IncrementUsage(ctx context.Context, wrongText string) error {
	const query = `
		UPDATE corrections
		SET usage_count = usage_count + 1, last_used = now()
		WHERE wrong_text = $1`
	if _, err := s.db.Exec(ctx, query, strings.ToLower(wrongText)); err != nil {
		return fmt.Errorf("correction: increment usage %q: %w", wrongText, err)
	}
	return nil
}

// PostgresLearnedStore is a [LearnedStore] backed by a PostgreSQL database.
// It shares the [Schema] with [PostgresStore].
type PostgresLearnedStore struct {
	db DB
}

// Compile-time interface check.
var _ LearnedStore = (*PostgresLearnedStore)(nil)

// NewPostgresLearnedStore creates a new [PostgresLearnedStore] over the
// given connection or pool.
func NewPostgresLearnedStore(db DB) *PostgresLearnedStore {
	return &PostgresLearnedStore{db: db}
}

func (s *PostgresLearnedStore) GetByOriginal(ctx context.Context, original string) ([]*LearnedCorrection, error) {
	const query = `
		SELECT id, original, corrected, left_context, right_context,
		       count, confidence, created_at, last_used_at
		FROM learned_corrections
		WHERE original = $1
		ORDER BY count DESC, created_at`

	rows, err := s.db.Query(ctx, query, strings.ToLower(original))
	if err != nil {
		return nil, fmt.Errorf("correction: learned by original %q: %w", original, err)
	}
	defer rows.Close()
	return scanLearned(rows)
}

func (s *PostgresLearnedStore) All(ctx context.Context) ([]*LearnedCorrection, error) {
	const query = `
		SELECT id, original, corrected, left_context, right_context,
		       count, confidence, created_at, last_used_at
		FROM learned_corrections
		ORDER BY original, created_at`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("correction: learned all: %w", err)
	}
	defer rows.Close()
	return scanLearned(rows)
}

func (s *PostgresLearnedStore) Create(ctx context.Context, lc *LearnedCorrection) error {
	if lc == nil || lc.Original == "" {
		return fmt.Errorf("correction: create learned: missing original")
	}
	const query = `
		INSERT INTO learned_corrections (original, corrected, left_context, right_context, count, confidence)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, last_used_at`

	err := s.db.QueryRow(ctx, query,
		strings.ToLower(lc.Original), lc.Corrected,
		emptySlice(lc.LeftContext), emptySlice(lc.RightContext),
		lc.Count, lc.Confidence,
	).Scan(&lc.ID, &lc.CreatedAt, &lc.LastUsedAt)
	if err != nil {
		return fmt.Errorf("correction: create learned: %w", err)
	}
	lc.Original = strings.ToLower(lc.Original)
	return nil
}

func (s *PostgresLearnedStore) Update(ctx context.Context, lc *LearnedCorrection) error {
	const query = `
		UPDATE learned_corrections SET
			corrected = $2, left_context = $3, right_context = $4,
			count = $5, confidence = $6, last_used_at = now()
		WHERE id = $1
		RETURNING last_used_at`

	err := s.db.QueryRow(ctx, query,
		lc.ID, lc.Corrected,
		emptySlice(lc.LeftContext), emptySlice(lc.RightContext),
		lc.Count, lc.Confidence,
	).Scan(&lc.LastUsedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("correction: update learned: %q not found", lc.ID)
		}
		return fmt.Errorf("correction: update learned: %w", err)
	}
	return nil
}

func (s *PostgresLearnedStore) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM learned_corrections WHERE id = $1`
	if _, err := s.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("correction: delete learned %q: %w", id, err)
	}
	return nil
}

func scanLearned(rows pgx.Rows) ([]*LearnedCorrection, error) {
	var out []*LearnedCorrection
	for rows.Next() {
		var lc LearnedCorrection
		if err := rows.Scan(
			&lc.ID, &lc.Original, &lc.Corrected, &lc.LeftContext, &lc.RightContext,
			&lc.Count, &lc.Confidence, &lc.CreatedAt, &lc.LastUsedAt,
		); err != nil {
			return nil, fmt.Errorf("correction: learned scan: %w", err)
		}
		out = append(out, &lc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("correction: learned rows: %w", err)
	}
	return out, nil
}

// emptySlice returns s if non-nil, otherwise an empty non-nil slice, so the
// array column never stores NULL.
func emptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
