package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a version commit targets a stale parent.
var ErrConflict = errors.New("commit conflict: parent is not the current head")

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	if err := migrate(db); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			paper_path TEXT NOT NULL,
			work_dir TEXT NOT NULL,
			max_iterations INTEGER NOT NULL,
			current_iteration INTEGER NOT NULL DEFAULT 0,
			next_pass INTEGER NOT NULL DEFAULT 0,
			baseline_score REAL,
			outcome TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS versions (
			run_id TEXT NOT NULL,
			id INTEGER NOT NULL,
			parent_id INTEGER,
			created_by TEXT NOT NULL,
			compiles INTEGER NOT NULL DEFAULT 0,
			body TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			PRIMARY KEY (run_id, id)
		);`,
		`CREATE TABLE IF NOT EXISTS issues (
			run_id TEXT NOT NULL,
			id TEXT NOT NULL,
			content_hash TEXT NOT NULL,
			severity TEXT NOT NULL,
			category TEXT NOT NULL,
			location TEXT NOT NULL,
			description TEXT NOT NULL,
			status TEXT NOT NULL,
			first_seen_iteration INTEGER NOT NULL,
			resolved_in_version INTEGER,
			PRIMARY KEY (run_id, id)
		);`,
		`CREATE TABLE IF NOT EXISTS pass_records (
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			iteration INTEGER NOT NULL,
			pass_name TEXT NOT NULL,
			issues_addressed TEXT NOT NULL,
			patch_json TEXT,
			version_before INTEGER NOT NULL,
			version_after INTEGER NOT NULL,
			compiled INTEGER NOT NULL,
			note TEXT,
			created_at DATETIME NOT NULL,
			PRIMARY KEY (run_id, seq)
		);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to migrate db: %w", err)
		}
	}
	return nil
}
