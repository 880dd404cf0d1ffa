// Package store persists favorites in a SQLite database (~/.muxbar/state.db).
// Thread-safe within one process; WAL mode plus a busy timeout keeps
// concurrent muxbar processes from corrupting each other.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/leoustc/muxbar/internal/platform"
)

// DBFileName is the state database file under the data directory.
const DBFileName = "state.db"

// Store wraps the SQLite database holding favorite session names.
type Store struct {
	db *sql.DB
}

// DefaultPath returns the state database path (~/.muxbar/state.db).
func DefaultPath() string {
	return filepath.Join(platform.DataDir(), DBFileName)
}

// Open creates or opens the database at dbPath with WAL mode and a busy
// timeout, then runs migrations.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("store: mkdir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}

	// WAL mode: allows concurrent readers while writing
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: wal mode: %w", err)
	}

	// Busy timeout: wait up to 5s if another process holds a lock
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: busy timeout: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close checkpoints WAL and closes the database.
func (s *Store) Close() error {
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

func (s *Store) migrate() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin migrate: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS favorites (
			session_name TEXT PRIMARY KEY,
			created_at   INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("store: create favorites: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit migrate: %w", err)
	}
	return nil
}

// Add marks a session name as favorite. Idempotent.
func (s *Store) Add(sessionName string) error {
	_, err := s.db.Exec(
		"INSERT OR IGNORE INTO favorites (session_name, created_at) VALUES (?, ?)",
		sessionName, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("store: add favorite %s: %w", sessionName, err)
	}
	return nil
}

// Remove unmarks a session name. Removing a non-favorite is a no-op.
func (s *Store) Remove(sessionName string) error {
	_, err := s.db.Exec("DELETE FROM favorites WHERE session_name = ?", sessionName)
	if err != nil {
		return fmt.Errorf("store: remove favorite %s: %w", sessionName, err)
	}
	return nil
}

// Toggle flips the favorite state and returns the new state.
func (s *Store) Toggle(sessionName string) (bool, error) {
	fav, err := s.IsFavorite(sessionName)
	if err != nil {
		return false, err
	}
	if fav {
		return false, s.Remove(sessionName)
	}
	return true, s.Add(sessionName)
}

// IsFavorite reports whether a session name is favorited.
func (s *Store) IsFavorite(sessionName string) (bool, error) {
	var n int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM favorites WHERE session_name = ?", sessionName,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("store: query favorite %s: %w", sessionName, err)
	}
	return n > 0, nil
}

// List returns all favorite session names, oldest first.
func (s *Store) List() ([]string, error) {
	rows, err := s.db.Query("SELECT session_name FROM favorites ORDER BY created_at, session_name")
	if err != nil {
		return nil, fmt.Errorf("store: list favorites: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("store: scan favorite: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Prune removes favorites whose sessions no longer exist. Returns how many
// were removed.
func (s *Store) Prune(liveSessions []string) (int, error) {
	live := make(map[string]bool, len(liveSessions))
	for _, name := range liveSessions {
		live[name] = true
	}

	names, err := s.List()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, name := range names {
		if live[name] {
			continue
		}
		if err := s.Remove(name); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
