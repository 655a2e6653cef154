package cli

import (
	"fmt"

	"github.com/brianndofor/texrev/internal/ledger"
	"github.com/spf13/cobra"
)

func NewIssuesCmd() *cobra.Command {
	var runID string
	var status string
	var useTUI bool

	cmd := &cobra.Command{
		Use:   "issues",
		Short: "Browse the issue ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd.Context())
			if err != nil {
				return err
			}
			var runArgs []string
			if runID != "" {
				runArgs = []string{runID}
			}
			rs, err := loadRun(app, runArgs)
			if err != nil {
				return err
			}

			led := ledger.New(app.Store, rs.ID)
			issues, err := led.All()
			if err != nil {
				return err
			}
			if status != "" {
				issues = filterIssues(issues, status)
			}

			if useTUI {
				if !app.Config.TUI.Enabled {
					return fmt.Errorf("tui browser is disabled in config")
				}
				result, err := runIssuesTUI(issues)
				if err != nil {
					return err
				}
				if result.Action == issueActionWontfix {
					if err := led.MarkWontfix(result.Issue.ID); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "marked %s wontfix\n", result.Issue.ID)
				}
				return nil
			}

			if len(issues) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No issues recorded.")
				return nil
			}
			for _, issue := range issues {
				fmt.Fprintf(cmd.OutOrStdout(), "%-16s [%s/%s] %-12s iter %d  %s (%s)\n",
					issue.ID, issue.Severity, issue.Category, issue.Status,
					issue.FirstSeenIteration, issue.Description, issue.Location)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Run id (default: latest run)")
	cmd.Flags().StringVar(&status, "status", "", "Filter: open|in_progress|resolved|wontfix")
	cmd.Flags().BoolVar(&useTUI, "tui", false, "Interactive browser")
	return cmd
}

func filterIssues(issues []ledger.Issue, status string) []ledger.Issue {
	var out []ledger.Issue
	for _, issue := range issues {
		if issue.Status == status {
			out = append(out, issue)
		}
	}
	return out
}
