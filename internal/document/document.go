// Package document holds the linear history of immutable paper versions
// for one run. Versions live in sqlite and are mirrored as snapshot
// files in the run directory so a run can be audited without the tool.
package document

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/brianndofor/texrev/internal/store"
)

// Version is an immutable snapshot. Parent is -1 only for version 0.
// Compiles is set only after a successful compilation gate run against
// this exact text.
type Version struct {
	ID        int
	Parent    int
	CreatedBy string
	Compiles  bool
	Text      string
}

type Store struct {
	store *store.Store
	runID string
	dir   string
}

func New(st *store.Store, runID, runDir string) *Store {
	return &Store{store: st, runID: runID, dir: runDir}
}

// Init writes version 0, the unmodified input.
func (s *Store) Init(text string) (Version, error) {
	if err := s.store.InsertRootVersion(s.runID, text); err != nil {
		return Version{}, err
	}
	v := Version{ID: 0, Parent: -1, CreatedBy: "initial", Text: text}
	if err := s.snapshot(v); err != nil {
		return Version{}, err
	}
	return v, nil
}

// Commit appends a new version. The snapshot file is written before the
// version is returned so a crash after commit never loses it.
// store.ErrConflict is returned when parentID is not the current head.
func (s *Store) Commit(parentID int, text, createdBy string) (Version, error) {
	row, err := s.store.CommitVersion(s.runID, parentID, text, createdBy)
	if err != nil {
		return Version{}, err
	}
	v := fromRow(row)
	if err := s.snapshot(v); err != nil {
		return Version{}, err
	}
	return v, nil
}

func (s *Store) Get(id int) (Version, error) {
	row, err := s.store.GetVersion(s.runID, id)
	if err != nil {
		return Version{}, err
	}
	return fromRow(row), nil
}

func (s *Store) Head() (Version, error) {
	row, err := s.store.HeadVersion(s.runID)
	if err != nil {
		return Version{}, err
	}
	return fromRow(row), nil
}

func (s *Store) MarkCompiles(id int) error {
	return s.store.MarkCompiles(s.runID, id)
}

// Lineage walks parent links from id back to the root and returns the
// chain oldest-first. Every version reaches version 0 in finitely many
// steps because ids strictly decrease along parent links.
func (s *Store) Lineage(id int) ([]Version, error) {
	var chain []Version
	for {
		v, err := s.Get(id)
		if err != nil {
			return nil, err
		}
		chain = append(chain, v)
		if v.Parent < 0 {
			break
		}
		if v.Parent >= v.ID {
			return nil, fmt.Errorf("version %d has non-decreasing parent %d", v.ID, v.Parent)
		}
		id = v.Parent
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

func (s *Store) snapshot(v Version) error {
	dir := filepath.Join(s.dir, "versions")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create versions dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("v%04d.tex", v.ID))
	if err := os.WriteFile(path, []byte(v.Text), 0o644); err != nil {
		return fmt.Errorf("failed to write version snapshot: %w", err)
	}
	return nil
}

func fromRow(row store.VersionRow) Version {
	parent := -1
	if row.ParentID.Valid {
		parent = int(row.ParentID.Int64)
	}
	return Version{
		ID:        row.ID,
		Parent:    parent,
		CreatedBy: row.CreatedBy,
		Compiles:  row.Compiles,
		Text:      row.Body,
	}
}
