// Package cli implements the pypigraph command-line interface.
//
// # Commands
//
//   - sync: reconcile the store with PyPI, then export the graph
//   - export: write the graph from the current store
//   - show: print one stored package
//   - serve: HTTP API over the store, optionally syncing on a schedule
//   - cache: manage the metadata response cache
//   - config: print or initialize the configuration file
//
// # Configuration
//
// Settings come from defaults, a TOML file, PYPIGRAPH_* environment
// variables and flags, in that order of precedence. See internal/config.
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging.
package cli

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/michael-lorenzo/pypi-dependency-graph/internal/config"
	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/buildinfo"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	viper   *viper.Viper
	cfgFile string
	verbose bool
	cfg     config.Config
}

// New creates a CLI logging to w at level.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		viper:  viper.New(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "pypigraph",
		Short: "pypigraph mirrors PyPI metadata and exports its dependency graph",
		Long: `pypigraph keeps a local mirror of the metadata of every package on PyPI,
refreshes it incrementally using the registry's serial numbers, and exports the
dependency graph derived from each package's requires_dist.`,
		Version:           buildinfo.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.loadConfig,
	}
	root.SetVersionTemplate(buildinfo.Template())

	pf := root.PersistentFlags()
	pf.StringVarP(&c.cfgFile, "config", "c", "", "config file (default: ./pypigraph.toml, then ~/.config/pypigraph/config.toml)")
	pf.BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	pf.String("store", "", "store driver: sqlite, mongo or memory")
	pf.String("db", "", "sqlite database path")
	pf.String("cache", "", "metadata cache backend: file, memory, redis or none")

	root.AddCommand(c.syncCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.showCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// flagKeys maps flag names to the config keys they override. Several
// commands share a flag name, so binding happens for the executing command
// only.
var flagKeys = map[string]string{
	"store":         "store.driver",
	"db":            "store.path",
	"cache":         "cache.backend",
	"index-url":     "registry.base_url",
	"workers":       "registry.workers",
	"python":        "registry.python_version",
	"output":        "export.path",
	"format":        "export.format",
	"addr":          "server.addr",
	"sync-interval": "server.sync_interval",
}

func (c *CLI) loadConfig(cmd *cobra.Command, _ []string) error {
	for flag, key := range flagKeys {
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := c.viper.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}

	cfg, err := config.Load(c.viper, c.cfgFile)
	if err != nil {
		return err
	}
	c.cfg = cfg

	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = log.InfoLevel
	}
	if c.verbose {
		level = log.DebugLevel
	}
	c.SetLogLevel(level)
	return nil
}
