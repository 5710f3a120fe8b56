// Package postgres stores typo tables and lexicons in PostgreSQL.
package postgres

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/lidroute/internal/lexstore"
	"github.com/MrWong99/lidroute/internal/validation"
)

// Schema is the SQL DDL for the lexicon tables. Execute it via
// [Store.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS lexicon_typos (
    lang        TEXT        NOT NULL,
    misspelling TEXT        NOT NULL,
    canonical   TEXT        NOT NULL,
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (lang, misspelling)
);
CREATE TABLE IF NOT EXISTS lexicon_words (
    lang       TEXT        NOT NULL,
    word       TEXT        NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (lang, word)
);
`

// DB is the database interface used by [Store]. Both *pgxpool.Pool and
// *pgx.Conn satisfy it.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
}

// Store is a [lexstore.Source] backed by PostgreSQL.
type Store struct {
	db    DB
	close func()
}

// Compile-time interface check.
var _ lexstore.Source = (*Store)(nil)

// NewStore returns a Store over db. The caller owns db.
func NewStore(db DB) *Store {
	return &Store{db: db, close: func() {}}
}

// Open connects a pool to dsn and verifies the connection. Release it with
// [Store.Close].
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("lexstore postgres: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("lexstore postgres: ping: %w", err)
	}
	return &Store{db: pool, close: pool.Close}, nil
}

// Close releases the pool opened by [Open]. It is a no-op for stores built
// with [NewStore].
func (s *Store) Close() {
	s.close()
}

// Name implements [lexstore.Source].
func (s *Store) Name() string {
	return "postgres"
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("lexstore postgres: ping: %w", err)
	}
	return nil
}

// Migrate executes [Schema].
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("lexstore postgres: migrate: %w", err)
	}
	return nil
}

// Load implements [lexstore.Source].
func (s *Store) Load(ctx context.Context) (map[string]validation.Overlay, error) {
	out := make(map[string]validation.Overlay)

	const typoQuery = `
		SELECT lang, misspelling, canonical
		FROM lexicon_typos
		ORDER BY lang, misspelling`
	rows, err := s.db.Query(ctx, typoQuery)
	if err != nil {
		return nil, fmt.Errorf("lexstore postgres: load typos: %w", err)
	}
	err = scanEach(rows, func(r pgx.Rows) error {
		var lang, miss, canon string
		if err := r.Scan(&lang, &miss, &canon); err != nil {
			return err
		}
		ov := out[lang]
		if ov.Typos == nil {
			ov.Typos = make(map[string]string)
		}
		ov.Typos[miss] = canon
		out[lang] = ov
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("lexstore postgres: scan typos: %w", err)
	}

	const wordQuery = `
		SELECT lang, word
		FROM lexicon_words
		ORDER BY lang, word`
	rows, err = s.db.Query(ctx, wordQuery)
	if err != nil {
		return nil, fmt.Errorf("lexstore postgres: load words: %w", err)
	}
	err = scanEach(rows, func(r pgx.Rows) error {
		var lang, word string
		if err := r.Scan(&lang, &word); err != nil {
			return err
		}
		ov := out[lang]
		ov.Words = append(ov.Words, word)
		out[lang] = ov
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("lexstore postgres: scan words: %w", err)
	}
	return out, nil
}

// scanEach calls fn for every row and closes rows.
func scanEach(rows pgx.Rows, fn func(pgx.Rows) error) error {
	defer rows.Close()
	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Seed upserts overlays into the lexicon tables. Existing misspellings get
// their canonical form replaced; existing words are left alone.
func (s *Store) Seed(ctx context.Context, overlays map[string]validation.Overlay) error {
	const typoUpsert = `
		INSERT INTO lexicon_typos (lang, misspelling, canonical)
		SELECT $1, m, c FROM unnest($2::text[], $3::text[]) AS t(m, c)
		ON CONFLICT (lang, misspelling) DO UPDATE SET
			canonical = EXCLUDED.canonical,
			updated_at = now()`
	const wordInsert = `
		INSERT INTO lexicon_words (lang, word)
		SELECT $1, w FROM unnest($2::text[]) AS t(w)
		ON CONFLICT (lang, word) DO NOTHING`

	for _, lang := range slices.Sorted(maps.Keys(overlays)) {
		ov := overlays[lang]
		if len(ov.Typos) > 0 {
			keys := slices.Sorted(maps.Keys(ov.Typos))
			vals := make([]string, len(keys))
			for i, k := range keys {
				vals[i] = ov.Typos[k]
			}
			if _, err := s.db.Exec(ctx, typoUpsert, lang, keys, vals); err != nil {
				return fmt.Errorf("lexstore postgres: seed typos %q: %w", lang, err)
			}
		}
		if len(ov.Words) > 0 {
			words := slices.Compact(slices.Sorted(slices.Values(ov.Words)))
			if _, err := s.db.Exec(ctx, wordInsert, lang, words); err != nil {
				return fmt.Errorf("lexstore postgres: seed words %q: %w", lang, err)
			}
		}
	}
	return nil
}
