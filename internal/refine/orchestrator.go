package refine

import (
	"context"
	"errors"
	"fmt"
)

// ErrInitialDocument means the input document failed to compile before
// any revision happened. This is the one fatal condition: there is no
// trustworthy baseline to revise against.
var ErrInitialDocument = errors.New("initial document does not compile")

// Outcome is the terminal state of a run.
type Outcome string

const (
	OutcomeConverged     Outcome = "converged"
	OutcomeStagnated     Outcome = "stagnated"
	OutcomeMaxIterations Outcome = "max_iterations"
)

// Orchestrator drives a run: one grading iteration to seed the ledger,
// then up to MaxIterations iterations of the five fixed passes.
type Orchestrator struct {
	Runner        *Runner
	MaxIterations int
}

// Run executes (or resumes) the run until a stop condition holds. The
// context is only checked between passes, so a cancelled run always
// leaves a consistent head version and ledger behind.
func (o *Orchestrator) Run(ctx context.Context) (Outcome, error) {
	rs, err := o.Runner.Store.GetRun(o.Runner.RunID)
	if err != nil {
		return "", fmt.Errorf("failed to load run: %w", err)
	}

	if rs.CurrentIteration == 0 {
		if err := o.grade(ctx); err != nil {
			return "", err
		}
		if err := o.Runner.Store.SaveProgress(o.Runner.RunID, 1, 0); err != nil {
			return "", fmt.Errorf("failed to save progress: %w", err)
		}
		rs.CurrentIteration, rs.NextPass = 1, 0
	}

	for k := rs.CurrentIteration; k <= o.MaxIterations; k++ {
		start := 0
		if k == rs.CurrentIteration {
			start = rs.NextPass
		}
		for i := start; i < len(Passes); i++ {
			if err := ctx.Err(); err != nil {
				return "", err
			}
			result, err := o.Runner.RunPass(ctx, k, Passes[i])
			if err != nil {
				return "", fmt.Errorf("pass %s failed: %w", Passes[i].Name, err)
			}
			o.Runner.Log.Info("pass finished",
				"iteration", k, "pass", Passes[i].Name,
				"outcome", string(result.Outcome), "version", result.VersionAfter)

			next, nextPass := k, i+1
			if nextPass == len(Passes) {
				next, nextPass = k+1, 0
			}
			if err := o.Runner.Store.SaveProgress(o.Runner.RunID, next, nextPass); err != nil {
				return "", fmt.Errorf("failed to save progress: %w", err)
			}
		}

		outcome, done, err := o.checkStop(k)
		if err != nil {
			return "", err
		}
		if done {
			if err := o.Runner.Store.SetOutcome(o.Runner.RunID, string(outcome)); err != nil {
				return "", fmt.Errorf("failed to record outcome: %w", err)
			}
			return outcome, nil
		}
	}

	// Unreachable: the max-iterations check fires on the last iteration.
	return OutcomeMaxIterations, nil
}

// grade is iteration 0: the initial document must compile, then the
// critic grades it once to seed the ledger and the baseline score. No
// patches are proposed here.
func (o *Orchestrator) grade(ctx context.Context) error {
	r := o.Runner
	head, err := r.Docs.Head()
	if err != nil {
		return fmt.Errorf("failed to load initial version: %w", err)
	}

	gated, err := r.Gate.Check(ctx, head.Text)
	if err != nil {
		return fmt.Errorf("compile gate failed to run: %w", err)
	}
	if !gated.OK {
		return fmt.Errorf("%w: %s", ErrInitialDocument, gated.Diagnostics)
	}
	if err := r.Docs.MarkCompiles(head.ID); err != nil {
		return fmt.Errorf("failed to mark initial version compiled: %w", err)
	}

	var report struct {
		score    float64
		hasScore bool
	}
	err = r.withRetry(ctx, func(callCtx context.Context) error {
		rep, err := r.Critic.Grade(callCtx, []byte(head.Text))
		if err != nil {
			return err
		}
		report.score, report.hasScore = rep.Score, true
		if _, err := r.Ledger.Ingest(rep.Findings, 0); err != nil {
			return fmt.Errorf("failed to ingest grading findings: %w", err)
		}
		return nil
	})
	if err != nil {
		// A dead critic at grading time is not fatal. The per-pass
		// critiques will populate the ledger instead.
		r.Log.Warn("grading skipped, critic unavailable", "error", err)
		return nil
	}
	if report.hasScore {
		if err := r.Store.SetBaselineScore(r.RunID, report.score); err != nil {
			return fmt.Errorf("failed to save baseline score: %w", err)
		}
	}
	return nil
}

// checkStop evaluates the stop conditions after iteration k, in order:
// converged (no open critical or important issues), stagnated (nothing
// committed this iteration), max iterations reached.
func (o *Orchestrator) checkStop(k int) (Outcome, bool, error) {
	r := o.Runner

	open, err := r.Ledger.OpenCount("P0", "P1")
	if err != nil {
		return "", false, fmt.Errorf("failed to count open issues: %w", err)
	}
	if open == 0 {
		return OutcomeConverged, true, nil
	}

	committed, err := o.committedInIteration(k)
	if err != nil {
		return "", false, err
	}
	if committed == 0 {
		return OutcomeStagnated, true, nil
	}

	if k >= o.MaxIterations {
		return OutcomeMaxIterations, true, nil
	}
	return "", false, nil
}

// committedInIteration recounts from the pass records so a resumed run
// sees commits made before the interruption.
func (o *Orchestrator) committedInIteration(k int) (int, error) {
	records, err := o.Runner.Store.ListPassRecords(o.Runner.RunID)
	if err != nil {
		return 0, fmt.Errorf("failed to list pass records: %w", err)
	}
	n := 0
	for _, rec := range records {
		if rec.Iteration == k && rec.VersionAfter != rec.VersionBefore {
			n++
		}
	}
	return n, nil
}
