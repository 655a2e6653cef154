package cli

import (
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	var configPath string
	var verbose bool

	root := &cobra.Command{
		Use:           "texrev",
		Short:         "Iterative LaTeX paper revision",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			app, err := initApp(configPath, verbose)
			if err != nil {
				return err
			}
			cmd.SetContext(withApp(cmd.Context(), app))
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Override config path")
	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "Log pass progress")

	root.AddCommand(NewDoctorCmd())
	root.AddCommand(NewRunCmd())
	root.AddCommand(NewResumeCmd())
	root.AddCommand(NewStatusCmd())
	root.AddCommand(NewIssuesCmd())
	root.AddCommand(NewReportCmd())
	root.AddCommand(NewConfigCmd())

	return root
}
