package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/brianndofor/texrev/internal/refine"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func NewRunCmd() *cobra.Command {
	var maxIterations int
	var workDir string

	cmd := &cobra.Command{
		Use:   "run <paper.tex>",
		Short: "Start a revision run on a LaTeX document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd.Context())
			if err != nil {
				return err
			}

			paperPath, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			body, err := os.ReadFile(paperPath)
			if err != nil {
				return fmt.Errorf("failed to read document: %w", err)
			}

			if maxIterations == 0 {
				maxIterations = app.Config.Run.MaxIterations
			}
			if workDir == "" {
				workDir = filepath.Join(filepath.Dir(paperPath), ".texrev")
			}
			if err := os.MkdirAll(workDir, 0o755); err != nil {
				return fmt.Errorf("failed to create work dir: %w", err)
			}

			runID := uuid.NewString()
			if err := app.Store.CreateRun(runID, paperPath, workDir, maxIterations); err != nil {
				return err
			}
			runner, err := app.newRunner(runID, workDir)
			if err != nil {
				return err
			}
			if _, err := runner.Docs.Init(string(body)); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "run %s started on %s\n", runID, paperPath)
			orch := &refine.Orchestrator{Runner: runner, MaxIterations: maxIterations}
			outcome, err := orch.Run(cmd.Context())
			if err != nil {
				if errors.Is(err, refine.ErrInitialDocument) {
					return fmt.Errorf("cannot revise: %w", err)
				}
				return err
			}
			return printRunSummary(cmd, app, runID, outcome)
		},
	}

	cmd.Flags().IntVar(&maxIterations, "max-iterations", 0, "Iteration cap (default from config)")
	cmd.Flags().StringVar(&workDir, "workdir", "", "Directory for version snapshots")
	return cmd
}

func printRunSummary(cmd *cobra.Command, app *App, runID string, outcome refine.Outcome) error {
	rs, err := app.Store.GetRun(runID)
	if err != nil {
		return err
	}
	head, err := app.Store.HeadVersion(runID)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "outcome: %s\n", outcome)
	fmt.Fprintf(cmd.OutOrStdout(), "head version: v%d (%s)\n", head.ID, head.CreatedBy)
	if rs.BaselineScore.Valid {
		fmt.Fprintf(cmd.OutOrStdout(), "baseline score: %.1f\n", rs.BaselineScore.Float64)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "revised document: %s\n",
		filepath.Join(rs.WorkDir, "versions", fmt.Sprintf("v%04d.tex", head.ID)))
	return nil
}
