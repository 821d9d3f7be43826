// Package learning persists routing interactions so routing quality can be
// inspected and pattern tables tuned against real usage.
package learning

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Interaction is a single routed query and its outcome.
type Interaction struct {
	ID         string    `json:"id"`
	Query      string    `json:"query"`
	Intent     string    `json:"intent"`
	Confidence float64   `json:"confidence"`
	Reasoning  string    `json:"reasoning"`
	Tool       string    `json:"tool,omitempty"`
	Response   string    `json:"response,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// IntentStats aggregates interactions for one intent category.
type IntentStats struct {
	Intent        string  `json:"intent"`
	Count         int     `json:"count"`
	AvgConfidence float64 `json:"avg_confidence"`
}

// Store abstracts interaction persistence.
type Store interface {
	Record(in *Interaction) error
	Recent(limit int) ([]Interaction, error)
	Search(query string, limit int) ([]Interaction, error)
	Stats() ([]IntentStats, error)
	Close() error
}

// NullStore is a no-op implementation used when learning is disabled.
type NullStore struct{}

func (NullStore) Record(*Interaction) error                   { return nil }
func (NullStore) Recent(int) ([]Interaction, error)           { return nil, nil }
func (NullStore) Search(string, int) ([]Interaction, error)   { return nil, nil }
func (NullStore) Stats() ([]IntentStats, error)               { return nil, nil }
func (NullStore) Close() error                                { return nil }

const createInteractionsSQL = `
CREATE TABLE IF NOT EXISTS interactions (
    id         TEXT PRIMARY KEY,
    query      TEXT NOT NULL,
    intent     TEXT NOT NULL,
    confidence REAL NOT NULL,
    reasoning  TEXT DEFAULT '',
    tool       TEXT DEFAULT '',
    response   TEXT DEFAULT '',
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_interactions_created_at ON interactions(created_at);
CREATE INDEX IF NOT EXISTS idx_interactions_intent ON interactions(intent);
`

// SQLiteStore implements Store backed by SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// Open creates (or opens) the interaction database under dataDir.
func Open(dataDir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	path := filepath.Join(dataDir, "interactions.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// modernc sqlite is not safe for concurrent writers on one connection pool
	// beyond what SQLite itself serializes; a single connection avoids
	// SQLITE_BUSY under the server's concurrent requests.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createInteractionsSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create interactions table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Record(in *Interaction) error {
	if in.ID == "" {
		in.ID = uuid.New().String()[:8]
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now()
	}

	_, err := s.db.Exec(`
		INSERT INTO interactions (id, query, intent, confidence, reasoning, tool, response, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.Query, in.Intent, in.Confidence, in.Reasoning, in.Tool, in.Response,
		in.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert interaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Recent(limit int) ([]Interaction, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
		SELECT id, query, intent, confidence, reasoning, tool, response, created_at
		FROM interactions
		ORDER BY created_at DESC
		LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	defer rows.Close()

	return scanInteractions(rows)
}

func (s *SQLiteStore) Search(query string, limit int) ([]Interaction, error) {
	if limit <= 0 {
		limit = 20
	}

	// Keyword search over query text and intent, LIKE is enough here.
	pattern := "%" + query + "%"
	rows, err := s.db.Query(`
		SELECT id, query, intent, confidence, reasoning, tool, response, created_at
		FROM interactions
		WHERE query LIKE ? OR intent LIKE ?
		ORDER BY created_at DESC
		LIMIT ?`,
		pattern, pattern, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("search interactions: %w", err)
	}
	defer rows.Close()

	return scanInteractions(rows)
}

func (s *SQLiteStore) Stats() ([]IntentStats, error) {
	rows, err := s.db.Query(`
		SELECT intent, COUNT(*), AVG(confidence)
		FROM interactions
		GROUP BY intent
		ORDER BY COUNT(*) DESC`)
	if err != nil {
		return nil, fmt.Errorf("interaction stats: %w", err)
	}
	defer rows.Close()

	var stats []IntentStats
	for rows.Next() {
		var st IntentStats
		if err := rows.Scan(&st.Intent, &st.Count, &st.AvgConfidence); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanInteractions(rows *sql.Rows) ([]Interaction, error) {
	var out []Interaction
	for rows.Next() {
		var in Interaction
		var createdAt string
		if err := rows.Scan(&in.ID, &in.Query, &in.Intent, &in.Confidence,
			&in.Reasoning, &in.Tool, &in.Response, &createdAt); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		in.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, in)
	}
	return out, rows.Err()
}
