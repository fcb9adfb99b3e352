package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// searchCommand creates the "search" command.
func (c *CLI) searchCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search PyPI by keywords or approximate name",
		Long:  "Search scrapes the PyPI search page (there is no public JSON search API) and enriches each hit via the JSON API. When nothing matches, the query is retried as an exact package name.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := args[0]
			for _, a := range args[1:] {
				query += " " + a
			}

			manager, closer, err := c.newManager(cmd.Context())
			if err != nil {
				return err
			}
			defer closer()

			results, err := manager.SearchPackages(cmd.Context(), query, limit)
			if err != nil {
				return err
			}

			if c.jsonOut {
				return printJSON(results)
			}

			if len(results) == 0 {
				printInfo("No packages found for %q", query)
				return nil
			}
			for _, r := range results {
				line := styleHighlight.Render(r.Name)
				if r.Version != "" {
					line += " " + styleDim.Render(r.Version)
				}
				fmt.Println(line)
				if r.Description != "" {
					printDetail("%s", r.Description)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum number of results")
	return cmd
}
