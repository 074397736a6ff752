// Package stats keeps a SQLite log of successful uploads backing /stats.
package stats

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Upload is one successfully relayed file.
type Upload struct {
	UserID   int64
	ChatID   int64
	FileName string
	Size     int64
	Kind     string
	Backend  string
	URL      string
}

// Summary aggregates one user's upload history.
type Summary struct {
	Count      int64
	TotalBytes int64
	LastAt     time.Time
}

// Store persists the upload log in SQLite.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewStore(dbPath string, logger *slog.Logger) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection: SQLite serializes writers anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &Store{db: db, logger: logger}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	return store, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS uploads (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id     INTEGER NOT NULL,
		chat_id     INTEGER NOT NULL,
		file_name   TEXT NOT NULL,
		size_bytes  INTEGER NOT NULL,
		kind        TEXT,
		backend     TEXT,
		url         TEXT,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_uploads_user ON uploads(user_id, created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record appends one upload to the log.
func (s *Store) Record(ctx context.Context, u Upload) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO uploads (user_id, chat_id, file_name, size_bytes, kind, backend, url)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.UserID, u.ChatID, u.FileName, u.Size, u.Kind, u.Backend, u.URL,
	)
	return err
}

// UserSummary returns aggregate counts for one user. A user with no uploads
// gets a zero summary, not an error.
func (s *Store) UserSummary(ctx context.Context, userID int64) (Summary, error) {
	var sum Summary
	var last sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(size_bytes), 0), MAX(created_at)
		 FROM uploads WHERE user_id = ?`, userID,
	).Scan(&sum.Count, &sum.TotalBytes, &last)
	if err != nil {
		return Summary{}, err
	}
	if last.Valid {
		if t, err := time.Parse("2006-01-02 15:04:05", last.String); err == nil {
			sum.LastAt = t
		}
	}
	return sum, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
