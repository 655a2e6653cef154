// Package ledger tracks issue lifecycle across iterations. Identity is
// content-derived so re-detection of the same finding never duplicates
// an issue, and survives process restarts.
package ledger

import (
	"database/sql"
	"fmt"
	"sort"

	"github.com/brianndofor/texrev/internal/critic"
	"github.com/brianndofor/texrev/internal/store"
)

const (
	StatusOpen       = "open"
	StatusInProgress = "in_progress"
	StatusResolved   = "resolved"
	StatusWontfix    = "wontfix"
)

const (
	SeverityCritical  = "P0"
	SeverityImportant = "P1"
	SeverityNice      = "P2"
)

type Issue struct {
	ID                 string
	ContentHash        string
	Severity           string
	Category           string
	Location           string
	Description        string
	Status             string
	FirstSeenIteration int
	ResolvedInVersion  int // -1 while unresolved
}

type Ledger struct {
	store *store.Store
	runID string
}

func New(st *store.Store, runID string) *Ledger {
	return &Ledger{store: st, runID: runID}
}

// Ingest records new critic findings. Findings whose identity matches an
// open or in_progress issue are dropped as duplicates. A finding whose
// identity matches a resolved (or wontfix) issue is a regression and gets
// a fresh derived id, keeping the audit trail append-only.
func (l *Ledger) Ingest(findings []critic.Finding, iteration int) ([]Issue, error) {
	existing, err := l.All()
	if err != nil {
		return nil, err
	}
	active := make(map[string]bool)
	settledCount := make(map[string]int)
	for _, issue := range existing {
		switch issue.Status {
		case StatusOpen, StatusInProgress:
			active[issue.ContentHash] = true
		case StatusResolved, StatusWontfix:
			settledCount[issue.ContentHash]++
		}
	}

	var ingested []Issue
	for _, finding := range findings {
		hash := Identity(finding)
		if active[hash] {
			continue
		}
		id := hash
		if n := settledCount[hash]; n > 0 {
			id = fmt.Sprintf("%s-r%d", hash, n)
		}
		issue := Issue{
			ID:                 id,
			ContentHash:        hash,
			Severity:           normalizeSeverity(finding.Severity),
			Category:           finding.Category,
			Location:           finding.Location,
			Description:        finding.Description,
			Status:             StatusOpen,
			FirstSeenIteration: iteration,
			ResolvedInVersion:  -1,
		}
		if err := l.store.InsertIssue(toRow(l.runID, issue)); err != nil {
			return nil, err
		}
		active[hash] = true
		ingested = append(ingested, issue)
	}
	return ingested, nil
}

func (l *Ledger) Get(id string) (Issue, error) {
	row, err := l.store.GetIssue(l.runID, id)
	if err != nil {
		return Issue{}, err
	}
	return fromRow(row), nil
}

func (l *Ledger) All() ([]Issue, error) {
	rows, err := l.store.ListIssues(l.runID)
	if err != nil {
		return nil, err
	}
	issues := make([]Issue, 0, len(rows))
	for _, row := range rows {
		issues = append(issues, fromRow(row))
	}
	return issues, nil
}

// OpenByCategory returns open issues in one category, most severe first,
// ties broken by id for determinism.
func (l *Ledger) OpenByCategory(category string) ([]Issue, error) {
	all, err := l.All()
	if err != nil {
		return nil, err
	}
	var out []Issue
	for _, issue := range all {
		if issue.Status == StatusOpen && issue.Category == category {
			out = append(out, issue)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Severity != out[j].Severity {
			return out[i].Severity < out[j].Severity
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// OpenCount counts open or in_progress issues at the given severities.
func (l *Ledger) OpenCount(severities ...string) (int, error) {
	all, err := l.All()
	if err != nil {
		return 0, err
	}
	want := make(map[string]bool, len(severities))
	for _, s := range severities {
		want[s] = true
	}
	n := 0
	for _, issue := range all {
		if issue.Status != StatusOpen && issue.Status != StatusInProgress {
			continue
		}
		if len(severities) == 0 || want[issue.Severity] {
			n++
		}
	}
	return n, nil
}

func (l *Ledger) MarkInProgress(id string) error {
	return l.transition(id, StatusInProgress, -1, StatusOpen)
}

func (l *Ledger) MarkResolved(id string, versionID int) error {
	return l.transition(id, StatusResolved, versionID, StatusInProgress)
}

// Reopen reverts a failed patch attempt. This is the only non-monotonic
// transition.
func (l *Ledger) Reopen(id string) error {
	return l.transition(id, StatusOpen, -1, StatusInProgress)
}

func (l *Ledger) MarkWontfix(id string) error {
	return l.transition(id, StatusWontfix, -1, StatusOpen, StatusInProgress)
}

func (l *Ledger) transition(id, to string, versionID int, allowedFrom ...string) error {
	issue, err := l.Get(id)
	if err != nil {
		return err
	}
	ok := false
	for _, from := range allowedFrom {
		if issue.Status == from {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("issue %s: invalid transition %s -> %s", id, issue.Status, to)
	}
	var resolved sql.NullInt64
	if versionID >= 0 {
		resolved = sql.NullInt64{Int64: int64(versionID), Valid: true}
	}
	return l.store.UpdateIssueStatus(l.runID, id, to, resolved)
}

// Stats summarizes the ledger for status output: counts by status and,
// for the given iteration, new findings by severity.
type Stats struct {
	Total      int
	Open       int
	InProgress int
	Resolved   int
	Wontfix    int
	NewP0      int
	NewP1      int
	NewP2      int
}

func (l *Ledger) Statistics(iteration int) (Stats, error) {
	all, err := l.All()
	if err != nil {
		return Stats{}, err
	}
	var st Stats
	for _, issue := range all {
		st.Total++
		switch issue.Status {
		case StatusOpen:
			st.Open++
		case StatusInProgress:
			st.InProgress++
		case StatusResolved:
			st.Resolved++
		case StatusWontfix:
			st.Wontfix++
		}
		if issue.FirstSeenIteration == iteration {
			switch issue.Severity {
			case SeverityCritical:
				st.NewP0++
			case SeverityImportant:
				st.NewP1++
			case SeverityNice:
				st.NewP2++
			}
		}
	}
	return st, nil
}

func normalizeSeverity(s string) string {
	switch s {
	case SeverityCritical, SeverityImportant, SeverityNice:
		return s
	default:
		return SeverityNice
	}
}

func toRow(runID string, issue Issue) store.IssueRow {
	var resolved sql.NullInt64
	if issue.ResolvedInVersion >= 0 {
		resolved = sql.NullInt64{Int64: int64(issue.ResolvedInVersion), Valid: true}
	}
	return store.IssueRow{
		RunID:              runID,
		ID:                 issue.ID,
		ContentHash:        issue.ContentHash,
		Severity:           issue.Severity,
		Category:           issue.Category,
		Location:           issue.Location,
		Description:        issue.Description,
		Status:             issue.Status,
		FirstSeenIteration: issue.FirstSeenIteration,
		ResolvedInVersion:  resolved,
	}
}

func fromRow(row store.IssueRow) Issue {
	resolved := -1
	if row.ResolvedInVersion.Valid {
		resolved = int(row.ResolvedInVersion.Int64)
	}
	return Issue{
		ID:                 row.ID,
		ContentHash:        row.ContentHash,
		Severity:           row.Severity,
		Category:           row.Category,
		Location:           row.Location,
		Description:        row.Description,
		Status:             row.Status,
		FirstSeenIteration: row.FirstSeenIteration,
		ResolvedInVersion:  resolved,
	}
}
