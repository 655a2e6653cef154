package cli

import (
	"errors"
	"fmt"

	"github.com/brianndofor/texrev/internal/refine"
	"github.com/brianndofor/texrev/internal/store"
	"github.com/spf13/cobra"
)

func NewResumeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resume [run-id]",
		Short: "Continue an interrupted run from its last saved pass",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd.Context())
			if err != nil {
				return err
			}
			rs, err := loadRun(app, args)
			if err != nil {
				return err
			}
			if rs.Outcome.Valid {
				return fmt.Errorf("run %s already finished: %s", rs.ID, rs.Outcome.String)
			}

			runner, err := app.newRunner(rs.ID, rs.WorkDir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "resuming run %s at iteration %d, pass %d\n",
				rs.ID, rs.CurrentIteration, rs.NextPass)
			orch := &refine.Orchestrator{Runner: runner, MaxIterations: rs.MaxIterations}
			outcome, err := orch.Run(cmd.Context())
			if err != nil {
				return err
			}
			return printRunSummary(cmd, app, rs.ID, outcome)
		},
	}
	return cmd
}

// loadRun resolves an explicit run id, or falls back to the latest run.
func loadRun(app *App, args []string) (store.RunState, error) {
	if len(args) == 1 {
		rs, err := app.Store.GetRun(args[0])
		if errors.Is(err, store.ErrNotFound) {
			return store.RunState{}, fmt.Errorf("no run with id %s", args[0])
		}
		return rs, err
	}
	rs, err := app.Store.LatestRun()
	if errors.Is(err, store.ErrNotFound) {
		return store.RunState{}, fmt.Errorf("no runs recorded yet")
	}
	return rs, err
}
