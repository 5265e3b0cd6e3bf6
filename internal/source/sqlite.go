package source

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteSource reads candidate words from a SQLite database. Useful when the
// word pool is curated by another tool rather than a flat file.
type SQLiteSource struct {
	db *sql.DB
}

// NewSQLiteSource opens or creates a SQLite database at dbPath and initializes
// the answers table. Parent directories are created if they do not exist.
func NewSQLiteSource(dbPath string) (*SQLiteSource, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	schema := `
	CREATE TABLE IF NOT EXISTS answers (
		word TEXT PRIMARY KEY,
		description TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteSource{db: db}, nil
}

// ListAnswers returns all words in insertion order.
func (s *SQLiteSource) ListAnswers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT word FROM answers ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("%w: query answers: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var word string
		if err := rows.Scan(&word); err != nil {
			return nil, fmt.Errorf("%w: scan answer: %v", ErrUnavailable, err)
		}
		out = append(out, word)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate answers: %v", ErrUnavailable, err)
	}
	return out, nil
}

// AddAnswer inserts a word, ignoring duplicates.
func (s *SQLiteSource) AddAnswer(ctx context.Context, word, description string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO answers (word, description) VALUES (?, ?)`,
		word, description,
	)
	return err
}

// Close closes the database.
func (s *SQLiteSource) Close() error {
	return s.db.Close()
}
