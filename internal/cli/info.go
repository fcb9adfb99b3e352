package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pipsight/pipsight/pkg/errors"
	"github.com/pipsight/pipsight/pkg/pkgmgr"
)

// infoCommand creates the "info" command.
func (c *CLI) infoCommand() *cobra.Command {
	var versionSpec string

	cmd := &cobra.Command{
		Use:   "info <package>",
		Short: "Show metadata for a package (local environment first, then PyPI)",
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

			info, err := manager.GetPackageInfo(cmd.Context(), name, versionSpec)
			if err != nil {
				return err
			}

			if c.jsonOut {
				return printJSON(struct {
					*pkgmgr.PackageInfo
					InstallHint string `json:"install_hint"`
				}{info, pkgmgr.InstallHint(name, versionSpec)})
			}

			printPackageInfo(info)
			printNewline()
			printDetail("install: %s", pkgmgr.InstallHint(name, versionSpec))
			return nil
		},
	}

	cmd.Flags().StringVarP(&versionSpec, "spec", "s", "", "version specifier, e.g. '>=2.0,<3'")
	return cmd
}

func printPackageInfo(info *pkgmgr.PackageInfo) {
	fmt.Println(styleTitle.Render(info.Name) + " " + styleHighlight.Render(info.Version))
	if info.Description != "" {
		fmt.Println(styleValue.Render(info.Description))
	}
	printNewline()

	printKeyValue("author", info.Author)
	printKeyValue("license", info.License)
	printKeyValue("homepage", renderLink(info.Homepage))
	printKeyValue("repository", renderLink(info.Repository))
	printKeyValue("python", info.PythonRequires)
	if info.LastUpdated != nil {
		printKeyValue("updated", info.LastUpdated.Format(time.RFC3339))
	}
	if len(info.Keywords) > 0 {
		printKeyValue("keywords", fmt.Sprintf("%v", info.Keywords))
	}

	if len(info.Dependencies) > 0 {
		printNewline()
		fmt.Println(styleDim.Render("dependencies:"))
		for _, d := range info.Dependencies {
			printDependency(d)
		}
	}
}

func renderLink(u string) string {
	if u == "" {
		return ""
	}
	return styleLink.Render(u)
}
