// Package store persists tracker state in an embedded SQLite database.
//
// The database runs in embedded mode with WAL for concurrency support:
// the daemon writes snapshots while CLI commands read them. Two tables
// carry the state:
//   - projects: the set of tracked roots, restored on startup
//   - snapshots: the last published analysis snapshot per root, as JSON
//
// Snapshots are a cache, not the source of truth. A missing or corrupt
// snapshot only costs a re-analysis.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/repomap/repomap/internal/project"
)

// DefaultFileName is the database file name under the state directory.
const DefaultFileName = "repomap.db"

// Store wraps the SQLite connection.
type Store struct {
	conn *sql.DB
	path string
}

// Open creates a store at the specified path, creating the parent
// directory and schema as needed. The caller must Close when done.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(4)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{conn: conn, path: path}

	// WAL mode keeps CLI reads concurrent with daemon writes.
	if _, err := s.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := s.conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := s.initSchema(context.Background()); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// Close checkpoints the WAL and closes the connection.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	if _, err := s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	s.conn = nil
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// initSchema creates the tables if they don't exist. Idempotent.
func (s *Store) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS projects (
		root TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		added_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS snapshots (
		root TEXT PRIMARY KEY,
		info TEXT NOT NULL,  -- JSON-encoded snapshot
		analyzed_at TEXT NOT NULL,
		FOREIGN KEY (root) REFERENCES projects(root) ON DELETE CASCADE
	);
	`
	if _, err := s.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// LoadProjects returns the saved project roots in insertion order.
func (s *Store) LoadProjects() ([]string, error) {
	rows, err := s.conn.Query("SELECT root FROM projects ORDER BY added_at ASC, root ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	var roots []string
	for rows.Next() {
		var root string
		if err := rows.Scan(&root); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		roots = append(roots, root)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}
	return roots, nil
}

// SaveProjects replaces the saved project set. Snapshots for removed
// projects are dropped alongside.
func (s *Store) SaveProjects(paths []string) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Format(time.RFC3339)

	// Keep added_at for roots that survive the replacement.
	existing := make(map[string]bool, len(paths))
	for _, p := range paths {
		existing[p] = true
	}
	rows, err := tx.Query("SELECT root FROM projects")
	if err != nil {
		return fmt.Errorf("failed to query projects: %w", err)
	}
	var stale []string
	for rows.Next() {
		var root string
		if err := rows.Scan(&root); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan project: %w", err)
		}
		if !existing[root] {
			stale = append(stale, root)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating projects: %w", err)
	}

	for _, root := range stale {
		if _, err := tx.Exec("DELETE FROM snapshots WHERE root = ?", root); err != nil {
			return fmt.Errorf("failed to delete snapshot for %s: %w", root, err)
		}
		if _, err := tx.Exec("DELETE FROM projects WHERE root = ?", root); err != nil {
			return fmt.Errorf("failed to delete project %s: %w", root, err)
		}
	}
	for _, root := range paths {
		_, err := tx.Exec(`
			INSERT INTO projects (root, name, added_at) VALUES (?, ?, ?)
			ON CONFLICT(root) DO NOTHING`,
			root, filepath.Base(root), now)
		if err != nil {
			return fmt.Errorf("failed to insert project %s: %w", root, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// SaveSnapshot upserts the last analysis snapshot for a project.
func (s *Store) SaveSnapshot(info *project.Info) error {
	return s.SaveSnapshotContext(context.Background(), info)
}

// SaveSnapshotContext upserts a snapshot with context support.
func (s *Store) SaveSnapshotContext(ctx context.Context, info *project.Info) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	query := `
	INSERT INTO snapshots (root, info, analyzed_at) VALUES (?, ?, ?)
	ON CONFLICT(root) DO UPDATE SET
		info = excluded.info,
		analyzed_at = excluded.analyzed_at
	`
	_, err = s.conn.ExecContext(ctx, query,
		info.Root, string(data), info.LastAnalyzed.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot for %s: %w", info.Root, err)
	}
	return nil
}

// LoadSnapshot returns the saved snapshot for a root, or (nil, nil)
// when none exists.
func (s *Store) LoadSnapshot(root string) (*project.Info, error) {
	return s.LoadSnapshotContext(context.Background(), root)
}

// LoadSnapshotContext loads a snapshot with context support.
func (s *Store) LoadSnapshotContext(ctx context.Context, root string) (*project.Info, error) {
	var data string
	err := s.conn.QueryRowContext(ctx,
		"SELECT info FROM snapshots WHERE root = ?", root).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot for %s: %w", root, err)
	}

	var info project.Info
	if err := json.Unmarshal([]byte(data), &info); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot for %s: %w", root, err)
	}
	return &info, nil
}

// DeleteSnapshot removes the saved snapshot for a root. Idempotent.
func (s *Store) DeleteSnapshot(root string) error {
	if _, err := s.conn.Exec("DELETE FROM snapshots WHERE root = ?", root); err != nil {
		return fmt.Errorf("failed to delete snapshot for %s: %w", root, err)
	}
	return nil
}

// ProjectCount returns the number of saved projects.
func (s *Store) ProjectCount() (int, error) {
	var count int
	if err := s.conn.QueryRow("SELECT COUNT(*) FROM projects").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count projects: %w", err)
	}
	return count, nil
}
