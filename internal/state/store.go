// Package state persists classification history in SQLite so repeated
// webhook triggers for the same message are detectable and auditable.
package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Entry is a recorded classification outcome for one message.
type Entry struct {
	ID          int       `json:"id"`
	MessageID   string    `json:"message_id"`
	ThreadID    string    `json:"thread_id"`
	Sender      string    `json:"sender"`
	Subject     string    `json:"subject"`
	Intent      string    `json:"intent"`
	Confidence  float64   `json:"confidence"`
	Labels      []string  `json:"labels"`
	Status      string    `json:"status"` // "classified", "failed", "skipped"
	ErrorMsg    string    `json:"error_message,omitempty"`
	ProcessedAt time.Time `json:"processed_at"`
}

// Stats summarizes the history table.
type Stats struct {
	Total      int `json:"total"`
	Classified int `json:"classified"`
	Failed     int `json:"failed"`
	Skipped    int `json:"skipped"`
}

// Store is a SQLite-backed classification history store.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (and if necessary creates) the history database.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// WAL mode for better concurrent access
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=30000"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS classifications (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		message_id TEXT UNIQUE NOT NULL,
		thread_id TEXT,
		sender TEXT,
		subject TEXT,
		intent TEXT,
		confidence REAL DEFAULT 0,
		labels TEXT,
		status TEXT NOT NULL,
		error_message TEXT,
		processed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_classifications_message_id ON classifications(message_id);
	CREATE INDEX IF NOT EXISTS idx_classifications_processed_at ON classifications(processed_at);
	CREATE INDEX IF NOT EXISTS idx_classifications_status ON classifications(status);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// IsProcessed checks whether a message already has a history row.
func (s *Store) IsProcessed(messageID string) (bool, error) {
	var count int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM classifications WHERE message_id = ?", messageID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check message state: %w", err)
	}
	return count > 0, nil
}

// Record inserts or replaces the history row for a message.
func (s *Store) Record(entry *Entry) error {
	labels, err := json.Marshal(entry.Labels)
	if err != nil {
		return fmt.Errorf("failed to encode labels: %w", err)
	}

	processedAt := entry.ProcessedAt
	if processedAt.IsZero() {
		processedAt = time.Now().UTC()
	}

	query := `
	INSERT INTO classifications
		(message_id, thread_id, sender, subject, intent, confidence, labels, status, error_message, processed_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(message_id) DO UPDATE SET
		intent = excluded.intent,
		confidence = excluded.confidence,
		labels = excluded.labels,
		status = excluded.status,
		error_message = excluded.error_message,
		processed_at = excluded.processed_at
	`

	_, err = s.db.Exec(query,
		entry.MessageID, entry.ThreadID, entry.Sender, entry.Subject,
		entry.Intent, entry.Confidence, string(labels), entry.Status,
		entry.ErrorMsg, processedAt)
	if err != nil {
		return fmt.Errorf("failed to record classification: %w", err)
	}
	return nil
}

// GetByMessageID retrieves the history row for a message, or nil when
// the message has not been classified.
func (s *Store) GetByMessageID(messageID string) (*Entry, error) {
	row := s.db.QueryRow(`
		SELECT id, message_id, thread_id, sender, subject, intent, confidence, labels, status, error_message, processed_at
		FROM classifications WHERE message_id = ?`, messageID)

	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get classification: %w", err)
	}
	return entry, nil
}

// Recent returns up to limit history rows, newest first.
func (s *Store) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(`
		SELECT id, message_id, thread_id, sender, subject, intent, confidence, labels, status, error_message, processed_at
		FROM classifications ORDER BY processed_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list classifications: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan classification: %w", err)
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

// GetStats returns aggregate counts by status.
func (s *Store) GetStats() (*Stats, error) {
	stats := &Stats{}
	rows, err := s.db.Query("SELECT status, COUNT(*) FROM classifications GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan stats: %w", err)
		}
		stats.Total += count
		switch status {
		case "classified":
			stats.Classified = count
		case "failed":
			stats.Failed = count
		case "skipped":
			stats.Skipped = count
		}
	}
	return stats, rows.Err()
}

// IsHealthy verifies the database connection.
func (s *Store) IsHealthy() error {
	return s.db.Ping()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	entry := &Entry{}
	var labels sql.NullString
	var threadID, sender, subject, intent, errorMsg sql.NullString

	err := row.Scan(&entry.ID, &entry.MessageID, &threadID, &sender, &subject,
		&intent, &entry.Confidence, &labels, &entry.Status, &errorMsg, &entry.ProcessedAt)
	if err != nil {
		return nil, err
	}

	entry.ThreadID = threadID.String
	entry.Sender = sender.String
	entry.Subject = subject.String
	entry.Intent = intent.String
	entry.ErrorMsg = errorMsg.String

	if labels.Valid && labels.String != "" {
		if err := json.Unmarshal([]byte(labels.String), &entry.Labels); err != nil {
			return nil, fmt.Errorf("failed to decode labels: %w", err)
		}
	}

	return entry, nil
}
