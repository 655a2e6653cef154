package cli

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/brianndofor/texrev/internal/prompt"
	"github.com/spf13/cobra"
)

func NewDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check dependencies and configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "texrev doctor")

			if _, err := exec.LookPath(app.Config.Compiler.Command); err != nil {
				return fmt.Errorf("compiler not found: %s", app.Config.Compiler.Command)
			}
			fmt.Fprintf(out, "- compiler (%s): ok\n", app.Config.Compiler.Command)

			if _, err := exec.LookPath(app.Config.Critic.Command); err != nil {
				return fmt.Errorf("critic provider not found: %s", app.Config.Critic.Command)
			}
			fmt.Fprintf(out, "- critic (%s): ok\n", app.Config.Critic.Command)

			if app.Editor == nil {
				return fmt.Errorf("editor not configured: set OPENAI_API_KEY or editor.api_key")
			}
			fmt.Fprintln(out, "- editor: ok")

			for _, name := range []string{prompt.GradeSchema, prompt.FindingsSchema, prompt.PatchSchema} {
				path := prompt.SchemaPath(name)
				if _, err := os.Stat(path); err != nil {
					return fmt.Errorf("schema missing: %s", path)
				}
			}
			fmt.Fprintln(out, "- schemas: ok")

			for _, name := range []string{prompt.Grading, prompt.Critique, prompt.EditorSystem, prompt.EditorUser} {
				if _, err := prompt.Load(name); err != nil {
					return fmt.Errorf("prompt missing: %s", name)
				}
			}
			fmt.Fprintln(out, "- prompts: ok")

			fmt.Fprintln(out, "doctor checks passed")
			return nil
		},
	}
	return cmd
}
