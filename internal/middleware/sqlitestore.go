package middleware

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ensembleai/ensemble/pkg/models"
)

// SQLiteStore is a Store backed by a SQLite database, so cache hits
// survive process restarts.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// Verify SQLiteStore implements Store at compile time.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) a SQLite-backed cache store at
// the given path. Parent directories are created if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for concurrent reads
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS response_cache (
		fingerprint TEXT PRIMARY KEY,
		response    TEXT NOT NULL,
		created_at  TEXT NOT NULL
	)`
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStore{db: conn, dbPath: dbPath}, nil
}

// Get returns the cached response for a fingerprint.
func (s *SQLiteStore) Get(ctx context.Context, key string) (*models.Response, bool, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		"SELECT response FROM response_cache WHERE fingerprint = ?", key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query cache: %w", err)
	}

	var resp models.Response
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		return nil, false, fmt.Errorf("decode cached response: %w", err)
	}
	return &resp, true, nil
}

// Put stores a response under a fingerprint, replacing any prior entry.
func (s *SQLiteStore) Put(ctx context.Context, key string, resp *models.Response) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO response_cache (fingerprint, response, created_at) VALUES (?, ?, ?)",
		key, string(payload), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("store response: %w", err)
	}
	return nil
}

// Path returns the path to the database file.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
