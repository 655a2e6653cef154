package document

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/brianndofor/texrev/internal/store"
)

func newDocStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "texrev.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	if err := st.CreateRun("run-1", "paper.tex", dir, 5); err != nil {
		t.Fatalf("create run: %v", err)
	}
	return New(st, "run-1", dir), dir
}

func TestInitCommitAndSnapshotFiles(t *testing.T) {
	docs, dir := newDocStore(t)
	v0, err := docs.Init("original")
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if v0.ID != 0 || v0.Parent != -1 || v0.CreatedBy != "initial" {
		t.Fatalf("unexpected root version: %+v", v0)
	}

	v1, err := docs.Commit(0, "revised", "iter1/structure")
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if v1.ID != 1 || v1.Parent != 0 {
		t.Fatalf("unexpected version: %+v", v1)
	}

	for _, name := range []string{"v0000.tex", "v0001.tex"} {
		if _, err := os.Stat(filepath.Join(dir, "versions", name)); err != nil {
			t.Fatalf("missing snapshot %s: %v", name, err)
		}
	}
}

func TestCommitStaleParentConflicts(t *testing.T) {
	docs, _ := newDocStore(t)
	if _, err := docs.Init("original"); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := docs.Commit(0, "a", "iter1/structure"); err != nil {
		t.Fatalf("commit: %v", err)
	}
	_, err := docs.Commit(0, "b", "iter1/coherence")
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestGetMissingVersion(t *testing.T) {
	docs, _ := newDocStore(t)
	if _, err := docs.Init("original"); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := docs.Get(7); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLineageReachesRoot(t *testing.T) {
	docs, _ := newDocStore(t)
	if _, err := docs.Init("v0"); err != nil {
		t.Fatalf("init: %v", err)
	}
	for i := 0; i < 3; i++ {
		head, err := docs.Head()
		if err != nil {
			t.Fatalf("head: %v", err)
		}
		if _, err := docs.Commit(head.ID, head.Text+"+", "iter1/polish"); err != nil {
			t.Fatalf("commit %d: %v", i, err)
		}
	}
	chain, err := docs.Lineage(3)
	if err != nil {
		t.Fatalf("lineage: %v", err)
	}
	if len(chain) != 4 {
		t.Fatalf("expected 4 versions in lineage, got %d", len(chain))
	}
	if chain[0].ID != 0 || chain[3].ID != 3 {
		t.Fatalf("lineage out of order: %+v", chain)
	}
	for i := 1; i < len(chain); i++ {
		if chain[i].Parent != chain[i-1].ID {
			t.Fatalf("broken parent link at %d: %+v", i, chain[i])
		}
	}
}

func TestMarkCompiles(t *testing.T) {
	docs, _ := newDocStore(t)
	if _, err := docs.Init("v0"); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := docs.MarkCompiles(0); err != nil {
		t.Fatalf("mark compiles: %v", err)
	}
	v, err := docs.Get(0)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !v.Compiles {
		t.Fatalf("expected compiles flag set")
	}
}
