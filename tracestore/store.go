// Package tracestore persists per-query retrieval and generation traces in
// SQLite, keyed by a short random identifier, for dashboard inspection.
package tracestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/canopya/canopya/rag"
)

// ErrNotFound is returned when no trace exists for a query ID.
var ErrNotFound = errors.New("query trace not found")

// Config configures the trace store.
type Config struct {
	// Path to the SQLite database file (default: data/rag_queries.db).
	Path string `yaml:"path,omitempty"`

	// Retention is how long traces are kept; Cleanup deletes older rows
	// (default: 168h, one week).
	Retention time.Duration `yaml:"retention,omitempty"`
}

// SetDefaults applies default values.
func (c *Config) SetDefaults() {
	if c.Path == "" {
		c.Path = "data/rag_queries.db"
	}
	if c.Retention == 0 {
		c.Retention = 7 * 24 * time.Hour
	}
}

// Record is a stored query trace. Documents keep the full retrieval detail;
// Summary listings omit them.
type Record struct {
	QueryID   string         `json:"query_id"`
	Query     string         `json:"query"`
	Response  string         `json:"response"`
	Intent    string         `json:"intent"`
	UserID    string         `json:"user_id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	NumDocs   int            `json:"num_docs"`
	AvgScore  float64        `json:"avg_score"`
	Documents []rag.Document `json:"documents"`
}

// Summary is a trace without its document payload, for listings.
type Summary struct {
	QueryID   string    `json:"query_id"`
	Query     string    `json:"query"`
	Timestamp time.Time `json:"timestamp"`
	NumDocs   int       `json:"num_docs"`
	AvgScore  float64   `json:"avg_score"`
}

const schema = `
CREATE TABLE IF NOT EXISTS query_traces (
	query_id   TEXT PRIMARY KEY,
	query      TEXT NOT NULL,
	response   TEXT NOT NULL,
	intent     TEXT NOT NULL,
	user_id    TEXT,
	timestamp  DATETIME NOT NULL,
	num_docs   INTEGER NOT NULL,
	avg_score  REAL NOT NULL,
	documents  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_query_traces_timestamp ON query_traces(timestamp);
`

// Store is a SQLite-backed trace store.
type Store struct {
	db  *sql.DB
	cfg Config
}

// New opens (and migrates) the trace database.
func New(cfg Config) (*Store, error) {
	cfg.SetDefaults()

	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate trace database: %w", err)
	}
	return &Store{db: db, cfg: cfg}, nil
}

// newQueryID returns a short random identifier.
func newQueryID() string {
	return uuid.NewString()[:8]
}

// Record implements rag.Recorder: persists a trace and returns its ID.
func (s *Store) Record(ctx context.Context, trace rag.Trace) (string, error) {
	return s.Save(ctx, Record{
		Query:     trace.Query,
		Response:  trace.Answer,
		Intent:    trace.Intent,
		UserID:    trace.UserID,
		NumDocs:   trace.NumDocs,
		AvgScore:  trace.AvgScore,
		Documents: trace.Documents,
	})
}

// Save persists a trace, assigning a query ID and timestamp when unset.
func (s *Store) Save(ctx context.Context, rec Record) (string, error) {
	if rec.QueryID == "" {
		rec.QueryID = newQueryID()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	if rec.Intent == "" {
		rec.Intent = "rag"
	}

	docs, err := json.Marshal(rec.Documents)
	if err != nil {
		return "", fmt.Errorf("failed to encode documents: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO query_traces (query_id, query, response, intent, user_id, timestamp, num_docs, avg_score, documents)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.QueryID, rec.Query, rec.Response, rec.Intent, rec.UserID,
		rec.Timestamp, rec.NumDocs, rec.AvgScore, string(docs))
	if err != nil {
		return "", fmt.Errorf("failed to save query trace: %w", err)
	}
	return rec.QueryID, nil
}

// Get returns the full trace for a query ID, or ErrNotFound.
func (s *Store) Get(ctx context.Context, queryID string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT query_id, query, response, intent, user_id, timestamp, num_docs, avg_score, documents
		 FROM query_traces WHERE query_id = ?`, queryID)

	var rec Record
	var userID sql.NullString
	var docs string
	err := row.Scan(&rec.QueryID, &rec.Query, &rec.Response, &rec.Intent,
		&userID, &rec.Timestamp, &rec.NumDocs, &rec.AvgScore, &docs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load query trace: %w", err)
	}

	rec.UserID = userID.String
	if err := json.Unmarshal([]byte(docs), &rec.Documents); err != nil {
		return nil, fmt.Errorf("failed to decode documents: %w", err)
	}
	return &rec, nil
}

// ListRecent returns summaries of the newest traces, most recent first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT query_id, query, timestamp, num_docs, avg_score
		 FROM query_traces ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list query traces: %w", err)
	}
	defer rows.Close()

	var summaries []Summary
	for rows.Next() {
		var sum Summary
		if err := rows.Scan(&sum.QueryID, &sum.Query, &sum.Timestamp, &sum.NumDocs, &sum.AvgScore); err != nil {
			return nil, fmt.Errorf("failed to scan query trace: %w", err)
		}
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// Cleanup deletes traces older than the retention window and returns the
// number of rows removed.
func (s *Store) Cleanup(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-s.cfg.Retention)
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM query_traces WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up query traces: %w", err)
	}
	return result.RowsAffected()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ensure Store implements rag.Recorder.
var _ rag.Recorder = (*Store)(nil)
