package stub

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/newsguard/internal/model"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS scans (
	id               TEXT PRIMARY KEY,
	user_id          TEXT NOT NULL,
	text             TEXT NOT NULL,
	label            TEXT NOT NULL,
	confidence       REAL NOT NULL,
	fake_probability REAL,
	summary          TEXT,
	created_at       INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS scans_user_created_idx ON scans(user_id, created_at DESC);
`

// Store is the stub backend's scan log, kept in SQLite
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// OpenStore opens (or creates) the scan log at path. Use ":memory:" for tests.
func OpenStore(path string) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One connection: keeps ":memory:" databases shared and serializes writes
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 10000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert records one scan and returns it as a history entry.
// The row is committed before Insert returns.
func (s *Store) Insert(ctx context.Context, userID, text string, result model.PredictionResult) (model.HistoryEntry, error) {
	entry := model.HistoryEntry{
		ID:              uuid.NewString(),
		Text:            text,
		Label:           result.Label,
		Confidence:      result.Confidence,
		FakeProbability: result.FakeProbability,
		Summary:         result.Summary,
		CreatedAt:       s.now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scans (id, user_id, text, label, confidence, fake_probability, summary, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, userID, entry.Text, string(entry.Label), entry.Confidence,
		nullFloat(entry.FakeProbability), nullString(entry.Summary), entry.CreatedAt.UnixNano(),
	)
	if err != nil {
		return model.HistoryEntry{}, fmt.Errorf("insert scan: %w", err)
	}

	return entry, nil
}

// History returns up to limit scans for userID, newest first
func (s *Store) History(ctx context.Context, userID string, limit int) ([]model.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text, label, confidence, fake_probability, summary, created_at
		 FROM scans WHERE user_id = ?
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := []model.HistoryEntry{}
	for rows.Next() {
		var (
			e        model.HistoryEntry
			label    string
			fakeProb sql.NullFloat64
			summary  sql.NullString
			created  int64
		)
		if err := rows.Scan(&e.ID, &e.Text, &label, &e.Confidence, &fakeProb, &summary, &created); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		e.Label = model.Label(label)
		if fakeProb.Valid {
			e.FakeProbability = model.Float64Ptr(fakeProb.Float64)
		}
		if summary.Valid {
			e.Summary = model.StringPtr(summary.String)
		}
		e.CreatedAt = time.Unix(0, created).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}

	return entries, nil
}

// Count returns the total number of recorded scans
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scans`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count scans: %w", err)
	}
	return n, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
