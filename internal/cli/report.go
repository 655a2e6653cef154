package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/brianndofor/texrev/internal/ledger"
	"github.com/brianndofor/texrev/internal/store"
	"github.com/spf13/cobra"
)

func NewReportCmd() *cobra.Command {
	var runID string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write a markdown revision report for a run",
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

			records, err := app.Store.ListPassRecords(rs.ID)
			if err != nil {
				return err
			}
			issues, err := ledger.New(app.Store, rs.ID).All()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "# Revision Report")
			fmt.Fprintln(out)
			fmt.Fprintf(out, "- Run: `%s`\n", rs.ID)
			fmt.Fprintf(out, "- Document: `%s`\n", rs.PaperPath)
			if rs.BaselineScore.Valid {
				fmt.Fprintf(out, "- Baseline score: %.1f\n", rs.BaselineScore.Float64)
			}
			if rs.Outcome.Valid {
				fmt.Fprintf(out, "- Outcome: %s\n", rs.Outcome.String)
			} else {
				fmt.Fprintln(out, "- Outcome: in progress")
			}
			fmt.Fprintln(out)

			fmt.Fprintln(out, "## Passes")
			fmt.Fprintln(out)
			fmt.Fprintln(out, "| Iteration | Pass | Issues addressed | Version | Compiled | Note |")
			fmt.Fprintln(out, "|---|---|---|---|---|---|")
			for _, rec := range records {
				fmt.Fprintf(out, "| %d | %s | %s | %s | %v | %s |\n",
					rec.Iteration, rec.PassName, renderAddressed(rec),
					renderVersionChange(rec), rec.Compiled, rec.Note.String)
			}
			fmt.Fprintln(out)

			fmt.Fprintln(out, "## Ledger")
			fmt.Fprintln(out)
			if len(issues) == 0 {
				fmt.Fprintln(out, "No issues recorded.")
				return nil
			}
			fmt.Fprintln(out, "| Issue | Severity | Category | Status | First seen | Resolved in |")
			fmt.Fprintln(out, "|---|---|---|---|---|---|")
			for _, issue := range issues {
				resolved := "-"
				if issue.ResolvedInVersion >= 0 {
					resolved = fmt.Sprintf("v%d", issue.ResolvedInVersion)
				}
				fmt.Fprintf(out, "| %s | %s | %s | %s | iter %d | %s |\n",
					issue.ID, issue.Severity, issue.Category, issue.Status,
					issue.FirstSeenIteration, resolved)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Run id (default: latest run)")
	return cmd
}

func renderAddressed(rec store.PassRecordRow) string {
	var ids []string
	if err := json.Unmarshal([]byte(rec.IssuesAddressed), &ids); err != nil || len(ids) == 0 {
		return "-"
	}
	return strings.Join(ids, ", ")
}

func renderVersionChange(rec store.PassRecordRow) string {
	if rec.VersionAfter == rec.VersionBefore {
		return fmt.Sprintf("v%d", rec.VersionBefore)
	}
	return fmt.Sprintf("v%d -> v%d", rec.VersionBefore, rec.VersionAfter)
}
