package store

import (
	"database/sql"
	"fmt"
	"time"
)

// PassRecordRow is the audit trail entry for one pass execution. For a
// pass that committed nothing, PatchJSON is NULL and VersionAfter equals
// VersionBefore.
type PassRecordRow struct {
	RunID           string
	Seq             int
	Iteration       int
	PassName        string
	IssuesAddressed string // JSON array of issue ids
	PatchJSON       sql.NullString
	VersionBefore   int
	VersionAfter    int
	Compiled        bool
	Note            sql.NullString
	CreatedAt       time.Time
}

func (s *Store) AppendPassRecord(row PassRecordRow) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin pass record append: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var seq int
	if err := tx.QueryRow(`SELECT COALESCE(MAX(seq), -1) + 1 FROM pass_records WHERE run_id = ?`, row.RunID).Scan(&seq); err != nil {
		return 0, fmt.Errorf("failed to read pass record seq: %w", err)
	}
	_, err = tx.Exec(`
		INSERT INTO pass_records (run_id, seq, iteration, pass_name, issues_addressed, patch_json, version_before, version_after, compiled, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, row.RunID, seq, row.Iteration, row.PassName, row.IssuesAddressed, row.PatchJSON, row.VersionBefore, row.VersionAfter, row.Compiled, row.Note, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to append pass record: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit pass record: %w", err)
	}
	return seq, nil
}

func (s *Store) ListPassRecords(runID string) ([]PassRecordRow, error) {
	rows, err := s.db.Query(`
		SELECT run_id, seq, iteration, pass_name, issues_addressed, patch_json, version_before, version_after, compiled, note, created_at
		FROM pass_records
		WHERE run_id = ?
		ORDER BY seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pass records: %w", err)
	}
	defer rows.Close()

	var out []PassRecordRow
	for rows.Next() {
		var pr PassRecordRow
		if err := rows.Scan(
			&pr.RunID,
			&pr.Seq,
			&pr.Iteration,
			&pr.PassName,
			&pr.IssuesAddressed,
			&pr.PatchJSON,
			&pr.VersionBefore,
			&pr.VersionAfter,
			&pr.Compiled,
			&pr.Note,
			&pr.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan pass record: %w", err)
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}
