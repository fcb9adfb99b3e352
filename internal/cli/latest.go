package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pipsight/pipsight/pkg/errors"
)

// latestCommand creates the "latest" command.
func (c *CLI) latestCommand() *cobra.Command {
	var allowPrerelease bool

	cmd := &cobra.Command{
		Use:   "latest <package>",
		Short: "Show the latest available version of a package on PyPI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if err := errors.ValidatePythonPackageName(name); err != nil {
				return err
			}

			manager, closer, err := c.newManager(cmd.Context())
			if err != nil {
				return err
			}
			defer closer()

			latest, err := manager.GetLatestVersion(cmd.Context(), name, allowPrerelease)
			if err != nil {
				return err
			}

			if c.jsonOut {
				return printJSON(latest)
			}

			line := styleTitle.Render(latest.Name) + " " + styleHighlight.Render(latest.Version)
			if latest.IsPrerelease {
				line += " " + styleWarning.Render("prerelease")
			}
			fmt.Println(line)
			return nil
		},
	}

	cmd.Flags().BoolVar(&allowPrerelease, "pre", false, "include prerelease versions")
	return cmd
}
