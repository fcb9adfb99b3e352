package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pipsight/pipsight/pkg/manifest"
)

// analyzeCommand creates the "analyze" command.
func (c *CLI) analyzeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze [path]",
		Short: "Scan a Python project for dependency manifests",
		Long:  "Analyze scans a project directory for requirements.txt, pyproject.toml, Pipfile, and setup.py, and prints the declared dependencies.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) > 0 {
				dir = args[0]
			}

			info, err := c.newAnalyzer().Analyze(dir)
			if err != nil {
				return err
			}

			if c.jsonOut {
				return printJSON(info)
			}

			fmt.Println(styleTitle.Render(info.ProjectPath))
			if len(info.DependencyFiles) == 0 {
				printInfo("No dependency manifests found")
				return nil
			}
			for _, f := range info.DependencyFiles {
				printFile(f)
			}
			printNewline()

			for _, d := range info.Dependencies {
				printDependency(d)
			}
			printNewline()
			printDetail("%d dependencies across %d files", len(info.Dependencies), len(info.DependencyFiles))
			return nil
		},
	}
}

func printDependency(d manifest.Dependency) {
	if d.IsParseError() {
		printError("%s: %s", d.SourceFile, d.VersionSpec)
		return
	}

	line := "  " + styleHighlight.Render(d.Name)
	if d.VersionSpec != "" {
		line += " " + styleValue.Render(d.VersionSpec)
	}
	if len(d.Extras) > 0 {
		line += " " + styleDim.Render(fmt.Sprintf("%v", d.Extras))
	}
	if d.IsDev {
		line += " " + styleDev.Render("dev")
	}
	fmt.Println(line)
}
