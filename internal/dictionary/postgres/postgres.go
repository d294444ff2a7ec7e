// Package postgres provides a PostgreSQL-backed dictionary store.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/davfehr/typestream/internal/dictionary"
)

// Schema is the SQL DDL for the dictionary tables. Execute it via
// [Store.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS protected_words (
    word       TEXT PRIMARY KEY,
    display    TEXT NOT NULL,
    category   TEXT NOT NULL DEFAULT 'custom',
    added_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS compound_corrections (
    misheard   TEXT PRIMARY KEY,
    correct    TEXT NOT NULL,
    added_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// DB is the database interface used by [Store]. Both *pgxpool.Pool and
// *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store is a [dictionary.Store] backed by PostgreSQL. Words are keyed by
// their lowercase form; the display column keeps the canonical casing.
type Store struct {
	db    DB
	close func()
}

var _ dictionary.Store = (*Store)(nil)

// New creates a Store over an existing connection or pool. The caller is
// responsible for calling [Store.Migrate] before issuing queries, and for
// closing the connection.
func New(db DB) *Store {
	return &Store{db: db}
}

// Connect opens a pgx pool for dsn and returns a migrated Store that owns
// the pool.
func Connect(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("dictionary/postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("dictionary/postgres: ping: %w", err)
	}
	s := &Store{db: pool, close: pool.Close}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Migrate executes the [Schema] DDL, creating the tables if they do not
// already exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("dictionary/postgres: migrate: %w", err)
	}
	return nil
}

func (s *Store) Words(ctx context.Context) ([]dictionary.Word, error) {
	const query = `SELECT display, category FROM protected_words ORDER BY category, word`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("dictionary/postgres: list words: %w", err)
	}
	defer rows.Close()

	var words []dictionary.Word
	for rows.Next() {
		var w dictionary.Word
		if err := rows.Scan(&w.Text, &w.Category); err != nil {
			return nil, fmt.Errorf("dictionary/postgres: scan word: %w", err)
		}
		words = append(words, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dictionary/postgres: list words: %w", err)
	}
	return words, nil
}

func (s *Store) Compounds(ctx context.Context) ([]dictionary.Compound, error) {
	const query = `SELECT misheard, correct FROM compound_corrections ORDER BY misheard`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("dictionary/postgres: list compounds: %w", err)
	}
	defer rows.Close()

	var compounds []dictionary.Compound
	for rows.Next() {
		var c dictionary.Compound
		if err := rows.Scan(&c.Misheard, &c.Correct); err != nil {
			return nil, fmt.Errorf("dictionary/postgres: scan compound: %w", err)
		}
		compounds = append(compounds, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dictionary/postgres: list compounds: %w", err)
	}
	return compounds, nil
}

// AddWord inserts a protected word, reporting false when the word (matched
// case-insensitively) already exists.
func (s *Store) AddWord(ctx context.Context, w dictionary.Word) (bool, error) {
	category := w.Category
	if category == "" {
		category = "custom"
	}
	const query = `INSERT INTO protected_words (word, display, category) VALUES (lower($1), $1, $2)`
	_, err := s.db.Exec(ctx, query, w.Text, category)
	if err != nil {
		if isDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("dictionary/postgres: add word %q: %w", w.Text, err)
	}
	return true, nil
}

func (s *Store) RemoveWord(ctx context.Context, word string) (bool, error) {
	const query = `DELETE FROM protected_words WHERE word = lower($1)`
	tag, err := s.db.Exec(ctx, query, word)
	if err != nil {
		return false, fmt.Errorf("dictionary/postgres: remove word %q: %w", word, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) AddCompound(ctx context.Context, c dictionary.Compound) (bool, error) {
	const query = `INSERT INTO compound_corrections (misheard, correct) VALUES (lower($1), $2)`
	_, err := s.db.Exec(ctx, query, c.Misheard, c.Correct)
	if err != nil {
		if isDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("dictionary/postgres: add compound %q: %w", c.Misheard, err)
	}
	return true, nil
}

func (s *Store) RemoveCompound(ctx context.Context, misheard string) (bool, error) {
	const query = `DELETE FROM compound_corrections WHERE misheard = lower($1)`
	tag, err := s.db.Exec(ctx, query, misheard)
	if err != nil {
		return false, fmt.Errorf("dictionary/postgres: remove compound %q: %w", misheard, err)
	}
	return tag.RowsAffected() > 0, nil
}

// Close releases the pool when the Store owns it.
func (s *Store) Close() error {
	if s.close != nil {
		s.close()
	}
	return nil
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
