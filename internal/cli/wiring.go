package cli

import (
	"context"
	"fmt"

	"github.com/michael-lorenzo/pypi-dependency-graph/internal/config"
	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/cache"
	perrors "github.com/michael-lorenzo/pypi-dependency-graph/pkg/errors"
	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/graph"
	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/integrations/pypi"
	graphio "github.com/michael-lorenzo/pypi-dependency-graph/pkg/io"
	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/mirror"
	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/store"
	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/store/memory"
	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/store/mongo"
	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/store/sqlite"
)

// openStore opens the configured store backend.
func (c *CLI) openStore(ctx context.Context) (store.Store, error) {
	cfg := c.cfg.Store
	var (
		st  store.Store
		err error
	)
	switch cfg.Driver {
	case config.DriverSQLite:
		st, err = sqlite.Open(ctx, cfg.Path, c.Logger)
	case config.DriverMongo:
		st, err = mongo.Open(ctx, mongo.Config{URI: cfg.MongoURI, Database: cfg.MongoDatabase}, c.Logger)
	case config.DriverMemory:
		c.Logger.Warn("using the memory store, nothing will be persisted")
		st = memory.New()
	default:
		err = fmt.Errorf("unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, perrors.Wrap(perrors.ErrCodeStoreOpenFailed, err, "open %s store", cfg.Driver)
	}
	c.Logger.Debug("opened store", "driver", cfg.Driver)
	return st, nil
}

// openCache opens the configured metadata cache backend.
func (c *CLI) openCache(ctx context.Context) (cache.Cache, error) {
	cfg := c.cfg.Cache
	switch cfg.Backend {
	case config.CacheFile:
		return cache.NewFileCache(cfg.Dir)
	case config.CacheMemory:
		return cache.NewMemoryCache(), nil
	case config.CacheRedis:
		return cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   "pypigraph:",
		})
	case config.CacheNone:
		return cache.NewNullCache(), nil
	}
	return nil, perrors.New(perrors.ErrCodeInvalidConfig, "unknown cache backend %q", cfg.Backend)
}

// newRegistry creates the PyPI client on top of backend.
func (c *CLI) newRegistry(backend cache.Cache) *pypi.Client {
	client := pypi.NewClient(backend, c.cfg.Cache.TTL)
	client.SetBaseURL(c.cfg.Registry.BaseURL)
	return client
}

// mirrorSession holds what a reconciliation needs for the life of a command.
type mirrorSession struct {
	store    store.Store
	cache    cache.Cache
	registry *pypi.Client
}

func (c *CLI) openSession(ctx context.Context) (*mirrorSession, error) {
	st, err := c.openStore(ctx)
	if err != nil {
		return nil, err
	}
	backend, err := c.openCache(ctx)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("open cache: %w", err)
	}
	return &mirrorSession{store: st, cache: backend, registry: c.newRegistry(backend)}, nil
}

func (s *mirrorSession) Close() error {
	_ = s.cache.Close()
	return s.store.Close()
}

// reconciler builds a reconciler from the loaded configuration.
func (c *CLI) reconciler(s *mirrorSession, dryRun bool, progress func(string, int, int)) *mirror.Reconciler {
	return mirror.NewReconciler(s.registry, s.store, mirror.Options{
		Workers:  c.cfg.Registry.Workers,
		DryRun:   dryRun,
		Env:      c.cfg.Environment(),
		Logger:   c.Logger,
		Progress: progress,
	})
}

// exportGraph builds the graph from st and writes it to the configured path.
func (c *CLI) exportGraph(ctx context.Context, st store.Store) (*graph.Graph, error) {
	format, err := c.cfg.ExportFormat()
	if err != nil {
		return nil, perrors.Wrap(perrors.ErrCodeInvalidFormat, err, "resolve export format")
	}

	g, err := mirror.BuildGraph(ctx, st)
	if err != nil {
		return nil, perrors.Wrap(perrors.ErrCodeExportFailed, err, "build graph")
	}
	if err := graphio.Export(g, c.cfg.Export.Path, format); err != nil {
		return nil, perrors.Wrap(perrors.ErrCodeExportFailed, err, "write %s", c.cfg.Export.Path)
	}
	c.Logger.Debug("exported graph", "path", c.cfg.Export.Path, "format", format,
		"nodes", g.NodeCount(), "edges", g.EdgeCount())
	return g, nil
}
