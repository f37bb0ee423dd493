package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	perrors "github.com/michael-lorenzo/pypi-dependency-graph/pkg/errors"
	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/mirror"
)

type syncOpts struct {
	noExport bool
	dryRun   bool
	progress bool
	top      int
}

// syncCommand creates the sync command: one reconciliation pass followed by
// a graph export.
func (c *CLI) syncCommand() *cobra.Command {
	var opts syncOpts

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the local store with PyPI and export the graph",
		Long: `Reconcile the local store with PyPI and export the dependency graph.

A pass lists every project on the index, compares each serial with the
store, fetches metadata for new and changed packages, removes packages that
left the index, and writes the graph derived from the stored requirements.`,
		Example: `  # Full pass, graph written to pypi.gexf
  pypigraph sync

  # Show what would change without fetching anything,
  # listing every affected package
  pypigraph sync --dry-run -v

  # Eight concurrent fetches, JSON graph
  pypigraph sync --workers 8 -o graph.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSync(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringP("output", "o", "", "graph output path (default: pypi.gexf)")
	f.StringP("format", "f", "", "graph format: gexf, json, dot or svg (default: from --output)")
	f.Int("workers", 0, "concurrent metadata fetches")
	f.String("index-url", "", "PyPI-compatible index base URL")
	f.String("python", "", "Python version markers are evaluated against")
	f.BoolVar(&opts.noExport, "no-export", false, "skip the graph export")
	f.BoolVar(&opts.dryRun, "dry-run", false, "print the plan without fetching or writing")
	f.BoolVar(&opts.progress, "progress", false, "show live progress bars")
	f.IntVar(&opts.top, "top", 5, "list the N most depended-upon packages (0 disables)")

	return cmd
}

func (c *CLI) runSync(cmd *cobra.Command, opts syncOpts) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	sess, err := c.openSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	pass := func(ctx context.Context, progress func(string, int, int)) (*mirror.Result, error) {
		return c.reconciler(sess, opts.dryRun, progress).Run(ctx)
	}

	var res *mirror.Result
	if opts.progress && !opts.dryRun {
		res, err = runWithProgress(ctx, cmd.ErrOrStderr(), pass)
	} else {
		res, err = pass(ctx, nil)
	}
	if err != nil {
		return passError(err)
	}

	if opts.dryRun {
		printPlan(out, res.Plan, c.verbose)
		printNextStep(out, "Apply it with", "pypigraph sync")
		return nil
	}
	printResult(out, res)

	if opts.noExport {
		return nil
	}
	prog := newProgress(c.Logger)
	g, err := c.exportGraph(ctx, sess.store)
	if err != nil {
		return err
	}
	prog.done("Exported graph")
	printSuccess(out, "Graph written")
	printFile(out, c.cfg.Export.Path)
	printGraphStats(out, g)
	printTopDependents(out, g, opts.top)
	return nil
}

// passError maps reconciler failures to coded errors.
func passError(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, mirror.ErrSnapshot):
		return perrors.Wrap(perrors.ErrCodeSnapshotFailed, err, "list registry")
	case errors.Is(err, mirror.ErrStoreWrite):
		return perrors.Wrap(perrors.ErrCodeStoreWriteFailed, err, "write store")
	}
	return perrors.Wrap(perrors.ErrCodeInternal, err, "sync")
}
