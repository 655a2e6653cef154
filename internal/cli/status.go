package cli

import (
	"errors"
	"fmt"

	"github.com/brianndofor/texrev/internal/ledger"
	"github.com/brianndofor/texrev/internal/refine"
	"github.com/brianndofor/texrev/internal/store"
	"github.com/spf13/cobra"
)

func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status [run-id]",
		Short: "Show run progress and ledger statistics",
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

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run: %s\n", rs.ID)
			fmt.Fprintf(out, "document: %s\n", rs.PaperPath)
			state := "in progress"
			if rs.Outcome.Valid {
				state = rs.Outcome.String
			}
			fmt.Fprintf(out, "state: %s\n", state)
			fmt.Fprintf(out, "iteration: %d/%d", rs.CurrentIteration, rs.MaxIterations)
			if !rs.Outcome.Valid && rs.CurrentIteration > 0 && rs.NextPass < len(refine.Passes) {
				fmt.Fprintf(out, " (next pass: %s)", refine.Passes[rs.NextPass].Name)
			}
			fmt.Fprintln(out)
			if rs.BaselineScore.Valid {
				fmt.Fprintf(out, "baseline score: %.1f\n", rs.BaselineScore.Float64)
			}

			head, err := app.Store.HeadVersion(rs.ID)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
			if err == nil {
				fmt.Fprintf(out, "head version: v%d (%s, compiles: %v)\n", head.ID, head.CreatedBy, head.Compiles)
			}

			stats, err := ledger.New(app.Store, rs.ID).Statistics(rs.CurrentIteration)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "issues: %d total, %d open, %d in progress, %d resolved, %d wontfix\n",
				stats.Total, stats.Open, stats.InProgress, stats.Resolved, stats.Wontfix)
			fmt.Fprintf(out, "new this iteration: %d P0, %d P1, %d P2\n", stats.NewP0, stats.NewP1, stats.NewP2)
			return nil
		},
	}
	return cmd
}
