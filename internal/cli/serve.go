package cli

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/michael-lorenzo/pypi-dependency-graph/internal/server"
	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/mirror"
	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/observability"
)

// serveCommand creates the serve command: a read-only HTTP API over the
// store, optionally running passes on a schedule.
func (c *CLI) serveCommand() *cobra.Command {
	var enableSync bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local store over HTTP",
		Long: `Serve the local store over HTTP.

Endpoints:
  GET  /healthz
  GET  /metrics
  GET  /api/v1/stats
  GET  /api/v1/packages/{name}
  GET  /api/v1/packages/{name}/dependencies
  POST /api/v1/sync   (with --sync or --sync-interval)

With --sync-interval the server runs a pass on that schedule and re-exports
the graph after each successful one. Passes never overlap.`,
		Example: `  pypigraph serve --addr :9000
  pypigraph serve --sync-interval 1h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			hooks := observability.NewPrometheusHooks(reg)
			observability.SetMirrorHooks(hooks)
			observability.SetHTTPHooks(hooks)
			observability.SetCacheHooks(hooks)
			defer observability.Reset()

			sess, err := c.openSession(ctx)
			if err != nil {
				return err
			}
			defer sess.Close()

			opts := []server.Option{server.WithGatherer(reg), server.WithLogger(c.Logger)}

			interval := c.cfg.Server.SyncInterval
			if enableSync || interval > 0 {
				after := func(ctx context.Context, _ *mirror.Result) error {
					_, err := c.exportGraph(ctx, sess.store)
					return err
				}
				syncer := server.NewSyncer(c.reconciler(sess, false, nil), after, c.Logger)
				// Runs before sess.Close so no pass is writing when the store closes.
				defer syncer.Shutdown()
				opts = append(opts, server.WithSyncer(syncer))
				if interval > 0 {
					c.Logger.Info("periodic sync enabled", "interval", interval)
					go syncer.RunPeriodic(ctx, interval)
				}
			}

			return server.New(sess.store, opts...).ListenAndServe(ctx, c.cfg.Server.Addr)
		},
	}

	f := cmd.Flags()
	f.String("addr", "", "listen address (default: :8080)")
	f.Duration("sync-interval", 0, "run a pass this often (0 disables)")
	f.BoolVar(&enableSync, "sync", false, "allow passes through POST /api/v1/sync")
	f.StringP("output", "o", "", "graph output path after each pass")
	f.StringP("format", "f", "", "graph format: gexf, json, dot or svg")
	f.Int("workers", 0, "concurrent metadata fetches")
	return cmd
}
