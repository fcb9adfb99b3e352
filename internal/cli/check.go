package cli

import (
	"github.com/spf13/cobra"

	"github.com/pipsight/pipsight/pkg/errors"
)

// checkCommand creates the "check" command.
func (c *CLI) checkCommand() *cobra.Command {
	var (
		versionSpec string
		projectPath string
	)

	cmd := &cobra.Command{
		Use:   "check <package>",
		Short: "Check whether adding a package conflicts with declared constraints",
		Long:  "Check analyzes the project's declared dependencies, adds the candidate package, and reports every package for which no single released version satisfies all collected constraints.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if err := errors.ValidatePythonPackageName(name); err != nil {
				return err
			}

			info, err := c.newAnalyzer().Analyze(projectPath)
			if err != nil {
				return err
			}

			manager, closer, err := c.newManager(cmd.Context())
			if err != nil {
				return err
			}
			defer closer()

			report, err := manager.CheckCompatibility(cmd.Context(), info.Dependencies, name, versionSpec)
			if err != nil {
				return err
			}

			if c.jsonOut {
				return printJSON(report)
			}

			if len(report.Conflicts) == 0 {
				printSuccess("%s%s is compatible with the project's constraints", name, versionSpec)
				return nil
			}
			for _, conflict := range report.Conflicts {
				printError("%s: %s", conflict.Package, conflict.Reason)
				for _, constraint := range conflict.Constraints {
					if constraint == "" {
						constraint = "(unconstrained)"
					}
					printDetail("%s", constraint)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&versionSpec, "spec", "s", "", "version specifier for the candidate, e.g. '>=0.27'")
	cmd.Flags().StringVarP(&projectPath, "project", "p", "", "project directory (default: current directory)")
	return cmd
}
