package store

import (
	"database/sql"
	"fmt"
	"time"
)

type VersionRow struct {
	RunID     string
	ID        int
	ParentID  sql.NullInt64
	CreatedBy string
	Compiles  bool
	Body      string
	CreatedAt time.Time
}

// InsertRootVersion writes version 0. It may only be called once per run.
func (s *Store) InsertRootVersion(runID, body string) error {
	_, err := s.db.Exec(`
		INSERT INTO versions (run_id, id, parent_id, created_by, compiles, body, created_at)
		VALUES (?, 0, NULL, 'initial', 0, ?, ?)
	`, runID, body, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to insert root version: %w", err)
	}
	return nil
}

// CommitVersion appends a new version whose parent must be the current
// head. The head check and the insert run in one transaction so two
// concurrent commits against the same lineage cannot both succeed.
func (s *Store) CommitVersion(runID string, parentID int, body, createdBy string) (VersionRow, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return VersionRow{}, fmt.Errorf("failed to begin commit: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var head int
	if err := tx.QueryRow(`SELECT COALESCE(MAX(id), -1) FROM versions WHERE run_id = ?`, runID).Scan(&head); err != nil {
		return VersionRow{}, fmt.Errorf("failed to read head version: %w", err)
	}
	if head < 0 {
		return VersionRow{}, fmt.Errorf("run %s has no root version: %w", runID, ErrNotFound)
	}
	if parentID != head {
		return VersionRow{}, fmt.Errorf("parent %d, head %d: %w", parentID, head, ErrConflict)
	}

	row := VersionRow{
		RunID:     runID,
		ID:        head + 1,
		ParentID:  sql.NullInt64{Int64: int64(parentID), Valid: true},
		CreatedBy: createdBy,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
	_, err = tx.Exec(`
		INSERT INTO versions (run_id, id, parent_id, created_by, compiles, body, created_at)
		VALUES (?, ?, ?, ?, 0, ?, ?)
	`, row.RunID, row.ID, row.ParentID, row.CreatedBy, row.Body, row.CreatedAt)
	if err != nil {
		return VersionRow{}, fmt.Errorf("failed to insert version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return VersionRow{}, fmt.Errorf("failed to commit version: %w", err)
	}
	return row, nil
}

func (s *Store) GetVersion(runID string, id int) (VersionRow, error) {
	row := s.db.QueryRow(`
		SELECT run_id, id, parent_id, created_by, compiles, body, created_at
		FROM versions
		WHERE run_id = ? AND id = ?
	`, runID, id)
	var v VersionRow
	if err := row.Scan(&v.RunID, &v.ID, &v.ParentID, &v.CreatedBy, &v.Compiles, &v.Body, &v.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return VersionRow{}, ErrNotFound
		}
		return VersionRow{}, fmt.Errorf("failed to read version: %w", err)
	}
	return v, nil
}

func (s *Store) HeadVersion(runID string) (VersionRow, error) {
	row := s.db.QueryRow(`SELECT COALESCE(MAX(id), -1) FROM versions WHERE run_id = ?`, runID)
	var head int
	if err := row.Scan(&head); err != nil {
		return VersionRow{}, fmt.Errorf("failed to read head version: %w", err)
	}
	if head < 0 {
		return VersionRow{}, ErrNotFound
	}
	return s.GetVersion(runID, head)
}

// MarkCompiles records a successful compilation gate run for a version.
func (s *Store) MarkCompiles(runID string, id int) error {
	res, err := s.db.Exec(`UPDATE versions SET compiles = 1 WHERE run_id = ? AND id = ?`, runID, id)
	if err != nil {
		return fmt.Errorf("failed to mark version compiled: %w", err)
	}
	return requireRow(res)
}

func (s *Store) CountVersions(runID string) (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM versions WHERE run_id = ?`, runID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count versions: %w", err)
	}
	return n, nil
}
