// Package store persists the live daily puzzle and its clue variants in
// SQLite, plus an append-only log of which car each day picked.
//
// The cache holds at most one puzzle: a single row keyed id=1. Reading it
// for a different day, or finding it undecodable, clears it so the caller
// rebuilds from scratch. Variants are stored per index and may be absent
// independently of the main row.
package store

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hazyhaar/cardle/carset"
	"github.com/hazyhaar/cardle/dbopen"
	"github.com/hazyhaar/cardle/idgen"
)

// Schema is applied by the caller at open time (dbopen.WithSchema).
const Schema = `
CREATE TABLE IF NOT EXISTS puzzle_cache (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	day_number INTEGER NOT NULL,
	record TEXT NOT NULL,
	image BLOB NOT NULL,
	created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS puzzle_variants (
	day_number INTEGER NOT NULL,
	idx INTEGER NOT NULL,
	png BLOB NOT NULL,
	PRIMARY KEY (day_number, idx)
);

CREATE TABLE IF NOT EXISTS selection_log (
	id TEXT PRIMARY KEY,
	day_number INTEGER NOT NULL,
	make TEXT NOT NULL,
	model TEXT NOT NULL,
	image_url TEXT NOT NULL,
	attempts INTEGER NOT NULL,
	created_at TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_selection_log_day ON selection_log(day_number);
`

// Entry is one cached puzzle: the chosen car, its normalized photo, and
// the clue variants generated for it (possibly fewer than the game needs,
// in which case the caller regenerates them).
type Entry struct {
	Day      int
	Record   carset.Record
	Image    []byte
	Variants [][]byte
}

// Selection is one row of the append-only pick log.
type Selection struct {
	ID        string `json:"id"`
	Day       int    `json:"day_number"`
	Make      string `json:"make"`
	Model     string `json:"model"`
	ImageURL  string `json:"image_url"`
	Attempts  int    `json:"attempts"`
	CreatedAt string `json:"created_at"`
}

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Load returns the cached puzzle for day, or (nil, nil) when the cache has
// nothing usable. A row for a different day is stale; a row that does not
// decode is corrupt. Both are cleared on the way out so the next Save
// starts clean.
func (s *Store) Load(ctx context.Context, day int) (*Entry, error) {
	var (
		gotDay  int
		recJSON string
		img     []byte
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT day_number, record, image FROM puzzle_cache WHERE id = 1`,
	).Scan(&gotDay, &recJSON, &img)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: load cache: %w", err)
	}

	if gotDay != day {
		s.clear(ctx)
		return nil, nil
	}

	rec, legacyImg, err := decodeRecord(recJSON)
	if err != nil {
		s.clear(ctx)
		return nil, nil
	}
	if len(img) == 0 && len(legacyImg) > 0 {
		img = legacyImg
	}
	if len(img) == 0 {
		s.clear(ctx)
		return nil, nil
	}

	// Variant rows that cannot be read are served as absent; the caller
	// regenerates them from the image.
	variants, err := s.loadVariants(ctx, day)
	if err != nil {
		variants = nil
	}
	return &Entry{Day: day, Record: rec, Image: img, Variants: variants}, nil
}

// Save replaces the cache with the puzzle for day, atomically with its
// variants.
func (s *Store) Save(ctx context.Context, e *Entry) error {
	recJSON, err := json.Marshal(e.Record)
	if err != nil {
		return fmt.Errorf("store: marshal record: %w", err)
	}
	return dbopen.RunTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM puzzle_cache`); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM puzzle_variants`); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO puzzle_cache (id, day_number, record, image) VALUES (1, ?, ?, ?)`,
			e.Day, string(recJSON), e.Image); err != nil {
			return err
		}
		for i, png := range e.Variants {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO puzzle_variants (day_number, idx, png) VALUES (?, ?, ?)`,
				e.Day, i, png); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveVariants rewrites only the variant rows for day, keeping the main
// cache row. Used when the cached puzzle is valid but its variants were
// generated for a different guess count (or are missing).
func (s *Store) SaveVariants(ctx context.Context, day int, variants [][]byte) error {
	return dbopen.RunTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM puzzle_variants`); err != nil {
			return err
		}
		for i, png := range variants {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO puzzle_variants (day_number, idx, png) VALUES (?, ?, ?)`,
				day, i, png); err != nil {
				return err
			}
		}
		return nil
	})
}

// Purge drops the cached puzzle and its variants. The selection log is
// kept.
func (s *Store) Purge(ctx context.Context) error {
	return dbopen.RunTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM puzzle_cache`); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM puzzle_variants`)
		return err
	})
}

// LogSelection appends one pick to the selection log. attempts counts how
// many pool candidates were tried before one yielded a usable photo.
func (s *Store) LogSelection(ctx context.Context, day int, rec carset.Record, imageURL string, attempts int) error {
	id := idgen.Prefixed("sel_", idgen.Default)()
	_, err := dbopen.Exec(ctx, s.db,
		`INSERT INTO selection_log (id, day_number, make, model, image_url, attempts)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, day, rec.Make, rec.Model, imageURL, attempts)
	if err != nil {
		return fmt.Errorf("store: log selection: %w", err)
	}
	return nil
}

// RecentSelections returns the latest picks, newest first.
func (s *Store) RecentSelections(ctx context.Context, limit int) ([]Selection, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, day_number, make, model, image_url, attempts, created_at
		 FROM selection_log ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list selections: %w", err)
	}
	defer rows.Close()

	var out []Selection
	for rows.Next() {
		var sel Selection
		if err := rows.Scan(&sel.ID, &sel.Day, &sel.Make, &sel.Model,
			&sel.ImageURL, &sel.Attempts, &sel.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan selection: %w", err)
		}
		out = append(out, sel)
	}
	return out, rows.Err()
}

func (s *Store) loadVariants(ctx context.Context, day int) ([][]byte, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT png FROM puzzle_variants WHERE day_number = ? ORDER BY idx`, day)
	if err != nil {
		return nil, fmt.Errorf("store: load variants: %w", err)
	}
	defer rows.Close()

	var out [][]byte
	for rows.Next() {
		var png []byte
		if err := rows.Scan(&png); err != nil {
			return nil, fmt.Errorf("store: scan variant: %w", err)
		}
		out = append(out, png)
	}
	return out, rows.Err()
}

// clear wipes the cache best-effort; Load already decided the content is
// unusable, so a failed delete only means the next read repeats the walk.
func (s *Store) clear(ctx context.Context) {
	_, _ = dbopen.Exec(ctx, s.db, `DELETE FROM puzzle_cache`)
	_, _ = dbopen.Exec(ctx, s.db, `DELETE FROM puzzle_variants`)
}

// decodeRecord accepts the current record encoding (a JSON object) and the
// legacy one: a two-element array of [record, base64 image bytes] written
// before variants moved to their own table.
func decodeRecord(s string) (carset.Record, []byte, error) {
	var rec carset.Record
	trimmed := firstNonSpace(s)
	if trimmed == '[' {
		var pair []json.RawMessage
		if err := json.Unmarshal([]byte(s), &pair); err != nil {
			return rec, nil, fmt.Errorf("store: legacy pair: %w", err)
		}
		if len(pair) != 2 {
			return rec, nil, fmt.Errorf("store: legacy pair has %d elements", len(pair))
		}
		if err := json.Unmarshal(pair[0], &rec); err != nil {
			return rec, nil, fmt.Errorf("store: legacy record: %w", err)
		}
		var b64 string
		if err := json.Unmarshal(pair[1], &b64); err != nil {
			return rec, nil, fmt.Errorf("store: legacy image: %w", err)
		}
		img, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return rec, nil, fmt.Errorf("store: legacy image b64: %w", err)
		}
		return rec, img, nil
	}

	if err := json.Unmarshal([]byte(s), &rec); err != nil {
		return rec, nil, fmt.Errorf("store: record: %w", err)
	}
	return rec, nil, nil
}

func firstNonSpace(s string) byte {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			return s[i]
		}
	}
	return 0
}
