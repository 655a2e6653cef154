package store

import (
	"database/sql"
	"fmt"
	"time"
)

type RunState struct {
	ID               string
	PaperPath        string
	WorkDir          string
	MaxIterations    int
	CurrentIteration int
	// NextPass is the index (0-4) of the next pass to execute in the
	// current iteration. 0 after an iteration boundary.
	NextPass      int
	BaselineScore sql.NullFloat64
	Outcome       sql.NullString
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (s *Store) CreateRun(id, paperPath, workDir string, maxIterations int) error {
	if id == "" {
		return fmt.Errorf("run id is required")
	}
	now := time.Now().UTC()
	_, err := s.db.Exec(`
		INSERT INTO runs (id, paper_path, work_dir, max_iterations, current_iteration, next_pass, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, 0, ?, ?)
	`, id, paperPath, workDir, maxIterations, now, now)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

func (s *Store) GetRun(id string) (RunState, error) {
	row := s.db.QueryRow(`
		SELECT id, paper_path, work_dir, max_iterations, current_iteration, next_pass, baseline_score, outcome, created_at, updated_at
		FROM runs
		WHERE id = ?
	`, id)
	var rs RunState
	if err := row.Scan(
		&rs.ID,
		&rs.PaperPath,
		&rs.WorkDir,
		&rs.MaxIterations,
		&rs.CurrentIteration,
		&rs.NextPass,
		&rs.BaselineScore,
		&rs.Outcome,
		&rs.CreatedAt,
		&rs.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return RunState{}, ErrNotFound
		}
		return RunState{}, fmt.Errorf("failed to read run: %w", err)
	}
	return rs, nil
}

// LatestRun returns the most recently created run in this store. A run
// directory normally holds exactly one.
func (s *Store) LatestRun() (RunState, error) {
	row := s.db.QueryRow(`SELECT id FROM runs ORDER BY created_at DESC LIMIT 1`)
	var id string
	if err := row.Scan(&id); err != nil {
		if err == sql.ErrNoRows {
			return RunState{}, ErrNotFound
		}
		return RunState{}, fmt.Errorf("failed to read latest run: %w", err)
	}
	return s.GetRun(id)
}

func (s *Store) SaveProgress(id string, iteration, nextPass int) error {
	res, err := s.db.Exec(`
		UPDATE runs SET current_iteration = ?, next_pass = ?, updated_at = ?
		WHERE id = ?
	`, iteration, nextPass, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to save run progress: %w", err)
	}
	return requireRow(res)
}

func (s *Store) SetBaselineScore(id string, score float64) error {
	res, err := s.db.Exec(`
		UPDATE runs SET baseline_score = ?, updated_at = ?
		WHERE id = ?
	`, score, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set baseline score: %w", err)
	}
	return requireRow(res)
}

func (s *Store) SetOutcome(id string, outcome string) error {
	res, err := s.db.Exec(`
		UPDATE runs SET outcome = ?, updated_at = ?
		WHERE id = ?
	`, outcome, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set run outcome: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
