package store

import (
	"database/sql"
	"fmt"
)

type IssueRow struct {
	RunID              string
	ID                 string
	ContentHash        string
	Severity           string
	Category           string
	Location           string
	Description        string
	Status             string
	FirstSeenIteration int
	ResolvedInVersion  sql.NullInt64
}

func (s *Store) InsertIssue(row IssueRow) error {
	if row.ID == "" {
		return fmt.Errorf("issue id is required")
	}
	_, err := s.db.Exec(`
		INSERT INTO issues (run_id, id, content_hash, severity, category, location, description, status, first_seen_iteration, resolved_in_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
	`, row.RunID, row.ID, row.ContentHash, row.Severity, row.Category, row.Location, row.Description, row.Status, row.FirstSeenIteration)
	if err != nil {
		return fmt.Errorf("failed to insert issue: %w", err)
	}
	return nil
}

func (s *Store) GetIssue(runID, id string) (IssueRow, error) {
	row := s.db.QueryRow(`
		SELECT run_id, id, content_hash, severity, category, location, description, status, first_seen_iteration, resolved_in_version
		FROM issues
		WHERE run_id = ? AND id = ?
	`, runID, id)
	var ir IssueRow
	if err := scanIssue(row.Scan, &ir); err != nil {
		if err == sql.ErrNoRows {
			return IssueRow{}, ErrNotFound
		}
		return IssueRow{}, fmt.Errorf("failed to read issue: %w", err)
	}
	return ir, nil
}

func (s *Store) ListIssues(runID string) ([]IssueRow, error) {
	rows, err := s.db.Query(`
		SELECT run_id, id, content_hash, severity, category, location, description, status, first_seen_iteration, resolved_in_version
		FROM issues
		WHERE run_id = ?
		ORDER BY first_seen_iteration, severity, id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list issues: %w", err)
	}
	defer rows.Close()

	var out []IssueRow
	for rows.Next() {
		var ir IssueRow
		if err := scanIssue(rows.Scan, &ir); err != nil {
			return nil, fmt.Errorf("failed to scan issue: %w", err)
		}
		out = append(out, ir)
	}
	return out, rows.Err()
}

func (s *Store) UpdateIssueStatus(runID, id, status string, resolvedInVersion sql.NullInt64) error {
	res, err := s.db.Exec(`
		UPDATE issues SET status = ?, resolved_in_version = ?
		WHERE run_id = ? AND id = ?
	`, status, resolvedInVersion, runID, id)
	if err != nil {
		return fmt.Errorf("failed to update issue status: %w", err)
	}
	return requireRow(res)
}

func scanIssue(scan func(...any) error, ir *IssueRow) error {
	return scan(
		&ir.RunID,
		&ir.ID,
		&ir.ContentHash,
		&ir.Severity,
		&ir.Category,
		&ir.Location,
		&ir.Description,
		&ir.Status,
		&ir.FirstSeenIteration,
		&ir.ResolvedInVersion,
	)
}
