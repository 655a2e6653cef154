package store

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "texrev.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestRunRoundTrip(t *testing.T) {
	st := newTestStore(t)
	if err := st.CreateRun("run-1", "paper.tex", "/tmp/work", 5); err != nil {
		t.Fatalf("create run: %v", err)
	}

	rs, err := st.GetRun("run-1")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if rs.PaperPath != "paper.tex" || rs.MaxIterations != 5 || rs.CurrentIteration != 0 || rs.NextPass != 0 {
		t.Fatalf("unexpected run state: %+v", rs)
	}

	if err := st.SaveProgress("run-1", 2, 3); err != nil {
		t.Fatalf("save progress: %v", err)
	}
	if err := st.SetBaselineScore("run-1", 6.5); err != nil {
		t.Fatalf("set baseline: %v", err)
	}
	if err := st.SetOutcome("run-1", "converged"); err != nil {
		t.Fatalf("set outcome: %v", err)
	}

	rs, err = st.GetRun("run-1")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if rs.CurrentIteration != 2 || rs.NextPass != 3 {
		t.Fatalf("progress not saved: %+v", rs)
	}
	if !rs.BaselineScore.Valid || rs.BaselineScore.Float64 != 6.5 {
		t.Fatalf("baseline not saved: %+v", rs.BaselineScore)
	}
	if !rs.Outcome.Valid || rs.Outcome.String != "converged" {
		t.Fatalf("outcome not saved: %+v", rs.Outcome)
	}
}

func TestGetRunNotFound(t *testing.T) {
	st := newTestStore(t)
	if _, err := st.GetRun("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := st.SaveProgress("missing", 1, 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on update, got %v", err)
	}
}

func TestCommitVersionConflict(t *testing.T) {
	st := newTestStore(t)
	if err := st.CreateRun("run-1", "paper.tex", "/tmp/work", 5); err != nil {
		t.Fatalf("create run: %v", err)
	}
	if err := st.InsertRootVersion("run-1", "v0 body"); err != nil {
		t.Fatalf("insert root: %v", err)
	}

	v1, err := st.CommitVersion("run-1", 0, "v1 body", "iter1/structure")
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if v1.ID != 1 {
		t.Fatalf("expected version id 1, got %d", v1.ID)
	}

	// A second commit against the same parent loses the race.
	if _, err := st.CommitVersion("run-1", 0, "v1b body", "iter1/coherence"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	head, err := st.HeadVersion("run-1")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if head.ID != 1 || head.Body != "v1 body" {
		t.Fatalf("unexpected head: %+v", head)
	}

	n, err := st.CountVersions("run-1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 versions, got %d", n)
	}
}

func TestVersionsAreScopedByRun(t *testing.T) {
	st := newTestStore(t)
	for _, id := range []string{"run-a", "run-b"} {
		if err := st.CreateRun(id, "paper.tex", "/tmp/work", 5); err != nil {
			t.Fatalf("create run %s: %v", id, err)
		}
		if err := st.InsertRootVersion(id, "root of "+id); err != nil {
			t.Fatalf("insert root %s: %v", id, err)
		}
	}
	if _, err := st.CommitVersion("run-a", 0, "a1", "iter1/structure"); err != nil {
		t.Fatalf("commit run-a: %v", err)
	}

	head, err := st.HeadVersion("run-b")
	if err != nil {
		t.Fatalf("head run-b: %v", err)
	}
	if head.ID != 0 || head.Body != "root of run-b" {
		t.Fatalf("run-b head leaked: %+v", head)
	}
}

func TestIssueRoundTrip(t *testing.T) {
	st := newTestStore(t)
	if err := st.CreateRun("run-1", "paper.tex", "/tmp/work", 5); err != nil {
		t.Fatalf("create run: %v", err)
	}

	row := IssueRow{
		RunID:              "run-1",
		ID:                 "iss-abc123def456",
		ContentHash:        "abc123def456",
		Severity:           "P0",
		Category:           "structure",
		Location:           "section 2",
		Description:        "missing transition",
		Status:             "open",
		FirstSeenIteration: 1,
	}
	if err := st.InsertIssue(row); err != nil {
		t.Fatalf("insert issue: %v", err)
	}

	got, err := st.GetIssue("run-1", row.ID)
	if err != nil {
		t.Fatalf("get issue: %v", err)
	}
	if got.Severity != "P0" || got.Status != "open" || got.ResolvedInVersion.Valid {
		t.Fatalf("unexpected issue row: %+v", got)
	}

	if err := st.UpdateIssueStatus("run-1", row.ID, "resolved", sql.NullInt64{Int64: 3, Valid: true}); err != nil {
		t.Fatalf("update status: %v", err)
	}
	got, err = st.GetIssue("run-1", row.ID)
	if err != nil {
		t.Fatalf("get issue: %v", err)
	}
	if got.Status != "resolved" || !got.ResolvedInVersion.Valid || got.ResolvedInVersion.Int64 != 3 {
		t.Fatalf("status not updated: %+v", got)
	}

	if _, err := st.GetIssue("run-1", "iss-nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAppendPassRecordSequencing(t *testing.T) {
	st := newTestStore(t)
	if err := st.CreateRun("run-1", "paper.tex", "/tmp/work", 5); err != nil {
		t.Fatalf("create run: %v", err)
	}

	for i := 0; i < 3; i++ {
		seq, err := st.AppendPassRecord(PassRecordRow{
			RunID:           "run-1",
			Iteration:       1,
			PassName:        "structure",
			IssuesAddressed: "[]",
			VersionBefore:   i,
			VersionAfter:    i,
		})
		if err != nil {
			t.Fatalf("append record %d: %v", i, err)
		}
		if seq != i {
			t.Fatalf("expected seq %d, got %d", i, seq)
		}
	}

	records, err := st.ListPassRecords("run-1")
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for i, r := range records {
		if r.Seq != i {
			t.Fatalf("records out of order: %+v", records)
		}
	}
}
