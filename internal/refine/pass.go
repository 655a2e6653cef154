package refine

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/brianndofor/texrev/internal/critic"
	"github.com/brianndofor/texrev/internal/document"
	"github.com/brianndofor/texrev/internal/editor"
	"github.com/brianndofor/texrev/internal/latex"
	"github.com/brianndofor/texrev/internal/ledger"
	"github.com/brianndofor/texrev/internal/patch"
	"github.com/brianndofor/texrev/internal/store"
)

// PassOutcome says how a single pass ended.
type PassOutcome string

const (
	// PassCommitted means a patch survived the compile gate and became
	// the new head version.
	PassCommitted PassOutcome = "committed"
	// PassClean means the pass had nothing to address.
	PassClean PassOutcome = "clean"
	// PassAbandoned means the pass gave up after its retry and reopened
	// its batch. The run continues with the next pass.
	PassAbandoned PassOutcome = "abandoned"
)

type PassResult struct {
	Outcome      PassOutcome
	VersionAfter int
	Note         string
}

// Runner executes a single pass against the current head version. It
// never mutates the document except through a gated commit.
type Runner struct {
	Docs   *document.Store
	Ledger *ledger.Ledger
	Critic critic.Adapter
	Editor editor.Adapter
	Gate   *latex.Gate
	Store  *store.Store
	RunID  string

	MaxBatch       int
	AdapterRetries int
	AdapterTimeout time.Duration
	Log            *slog.Logger
}

// RunPass critiques the head document for the pass category, batches
// the open issues, and tries to land one gated patch. Adapter outages
// and rejected patches abandon the pass, never the run.
func (r *Runner) RunPass(ctx context.Context, iteration int, def PassDef) (PassResult, error) {
	head, err := r.Docs.Head()
	if err != nil {
		return PassResult{}, fmt.Errorf("failed to load head version: %w", err)
	}

	findings, err := r.critique(ctx, head.Text, def)
	if err != nil {
		r.Log.Warn("critic unavailable, abandoning pass", "pass", def.Name, "error", err)
		return r.finish(iteration, def, head.ID, head.ID, nil, patch.Patch{}, false,
			PassResult{Outcome: PassAbandoned, VersionAfter: head.ID, Note: "critic unavailable: " + err.Error()})
	}
	if _, err := r.Ledger.Ingest(findings, iteration); err != nil {
		return PassResult{}, fmt.Errorf("failed to ingest findings: %w", err)
	}

	open, err := r.Ledger.OpenByCategory(def.Category)
	if err != nil {
		return PassResult{}, fmt.Errorf("failed to list open issues: %w", err)
	}
	batch := selectBatch(open, def.SeverityFloor, r.MaxBatch)
	if len(batch) == 0 {
		return r.finish(iteration, def, head.ID, head.ID, nil, patch.Patch{}, false,
			PassResult{Outcome: PassClean, VersionAfter: head.ID})
	}

	for _, issue := range batch {
		if err := r.Ledger.MarkInProgress(issue.ID); err != nil {
			return PassResult{}, fmt.Errorf("failed to mark issue %s in progress: %w", issue.ID, err)
		}
	}

	diagnostics := ""
	var lastPatch patch.Patch
	for attempt := 0; attempt < 2; attempt++ {
		p, err := r.propose(ctx, batch, head.Text, diagnostics)
		if err != nil {
			r.Log.Warn("editor unavailable, abandoning pass", "pass", def.Name, "error", err)
			return r.abandon(iteration, def, head.ID, batch, lastPatch, "editor unavailable: "+err.Error())
		}
		if p.IsZero() {
			return r.abandon(iteration, def, head.ID, batch, p, "editor proposed no changes")
		}
		lastPatch = p

		candidate, err := patch.Apply(head.Text, p)
		if err != nil {
			if errors.Is(err, patch.ErrPrecondition) || errors.Is(err, patch.ErrOverlap) {
				// Stale or conflicting edit. Feed it back like a
				// compile failure and let the editor try once more.
				diagnostics = "patch rejected: " + err.Error()
				r.Log.Info("patch rejected", "pass", def.Name, "attempt", attempt, "error", err)
				continue
			}
			return PassResult{}, fmt.Errorf("failed to apply patch: %w", err)
		}

		gated, err := r.Gate.Check(ctx, candidate)
		if err != nil {
			return PassResult{}, fmt.Errorf("compile gate failed to run: %w", err)
		}
		if !gated.OK {
			diagnostics = gated.Diagnostics
			r.Log.Info("candidate failed to compile", "pass", def.Name, "attempt", attempt)
			continue
		}

		// A conflict here means something else committed to this lineage
		// mid-pass. The sequential model makes that an invariant
		// violation, so it aborts instead of abandoning.
		v, err := r.Docs.Commit(head.ID, candidate, fmt.Sprintf("iter%d/%s", iteration, def.Name))
		if err != nil {
			return PassResult{}, fmt.Errorf("failed to commit version: %w", err)
		}
		if err := r.Docs.MarkCompiles(v.ID); err != nil {
			return PassResult{}, fmt.Errorf("failed to mark version compiled: %w", err)
		}
		for _, issue := range batch {
			if err := r.Ledger.MarkResolved(issue.ID, v.ID); err != nil {
				return PassResult{}, fmt.Errorf("failed to resolve issue %s: %w", issue.ID, err)
			}
		}
		return r.finish(iteration, def, head.ID, v.ID, batch, p, true,
			PassResult{Outcome: PassCommitted, VersionAfter: v.ID})
	}

	return r.abandon(iteration, def, head.ID, batch, lastPatch, "abandoned after retry: "+diagnostics)
}

// abandon reopens the batch and records the failed pass.
func (r *Runner) abandon(iteration int, def PassDef, headID int, batch []ledger.Issue, p patch.Patch, note string) (PassResult, error) {
	for _, issue := range batch {
		if err := r.Ledger.Reopen(issue.ID); err != nil {
			return PassResult{}, fmt.Errorf("failed to reopen issue %s: %w", issue.ID, err)
		}
	}
	return r.finish(iteration, def, headID, headID, batch, p, false,
		PassResult{Outcome: PassAbandoned, VersionAfter: headID, Note: note})
}

func (r *Runner) finish(iteration int, def PassDef, before, after int, batch []ledger.Issue, p patch.Patch, compiled bool, result PassResult) (PassResult, error) {
	ids := make([]string, 0, len(batch))
	for _, issue := range batch {
		ids = append(ids, issue.ID)
	}
	addressed, err := json.Marshal(ids)
	if err != nil {
		return PassResult{}, fmt.Errorf("failed to encode issue ids: %w", err)
	}

	var patchJSON sql.NullString
	if !p.IsZero() {
		raw, err := json.Marshal(p)
		if err != nil {
			return PassResult{}, fmt.Errorf("failed to encode patch: %w", err)
		}
		patchJSON = sql.NullString{String: string(raw), Valid: true}
	}
	var note sql.NullString
	if result.Note != "" {
		note = sql.NullString{String: result.Note, Valid: true}
	}

	_, err = r.Store.AppendPassRecord(store.PassRecordRow{
		RunID:           r.RunID,
		Iteration:       iteration,
		PassName:        def.Name,
		IssuesAddressed: string(addressed),
		PatchJSON:       patchJSON,
		VersionBefore:   before,
		VersionAfter:    after,
		Compiled:        compiled,
		Note:            note,
	})
	if err != nil {
		return PassResult{}, fmt.Errorf("failed to record pass: %w", err)
	}
	return result, nil
}

func (r *Runner) critique(ctx context.Context, text string, def PassDef) ([]critic.Finding, error) {
	var findings []critic.Finding
	err := r.withRetry(ctx, func(callCtx context.Context) error {
		var err error
		findings, err = r.Critic.Critique(callCtx, text, def.Category, def.Focus)
		return err
	})
	return findings, err
}

func (r *Runner) propose(ctx context.Context, batch []ledger.Issue, text, diagnostics string) (patch.Patch, error) {
	var p patch.Patch
	err := r.withRetry(ctx, func(callCtx context.Context) error {
		var err error
		p, err = r.Editor.ProposePatch(callCtx, batch, text, diagnostics)
		return err
	})
	return p, err
}

// withRetry runs fn with a per-call timeout and a short backoff between
// attempts. The parent context aborts the whole sequence.
func (r *Runner) withRetry(ctx context.Context, fn func(context.Context) error) error {
	attempts := r.AdapterRetries + 1
	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(i) * 500 * time.Millisecond):
			}
		}
		callCtx := ctx
		var cancel context.CancelFunc
		if r.AdapterTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, r.AdapterTimeout)
		}
		err := fn(callCtx)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			return nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return lastErr
}

// selectBatch keeps issues at or above the severity floor and caps the
// batch. OpenByCategory already orders critical issues first.
func selectBatch(open []ledger.Issue, floor string, max int) []ledger.Issue {
	var batch []ledger.Issue
	for _, issue := range open {
		if issue.Severity > floor {
			continue
		}
		batch = append(batch, issue)
		if max > 0 && len(batch) == max {
			break
		}
	}
	return batch
}
