package cli

import (
	"github.com/spf13/cobra"
)

// exportCommand creates the export command, which writes the graph from the
// current store without contacting the registry.
func (c *CLI) exportCommand() *cobra.Command {
	var top int

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the dependency graph from the local store",
		Example: `  pypigraph export
  pypigraph export -o pypi.svg
  pypigraph export -o deps.txt -f dot`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			st, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			spin := newSpinner(ctx, cmd.ErrOrStderr(), "Building graph...")
			spin.Start()
			g, err := c.exportGraph(ctx, st)
			spin.Stop()
			if err != nil {
				return err
			}

			printSuccess(out, "Graph written")
			printFile(out, c.cfg.Export.Path)
			printGraphStats(out, g)
			printTopDependents(out, g, top)
			return nil
		},
	}

	cmd.Flags().StringP("output", "o", "", "graph output path (default: pypi.gexf)")
	cmd.Flags().StringP("format", "f", "", "graph format: gexf, json, dot or svg (default: from --output)")
	cmd.Flags().IntVar(&top, "top", 5, "list the N most depended-upon packages (0 disables)")
	return cmd
}
