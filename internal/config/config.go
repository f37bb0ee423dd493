// Package config loads pypigraph settings from defaults, a TOML file,
// PYPIGRAPH_* environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/deps/python"
	perrors "github.com/michael-lorenzo/pypi-dependency-graph/pkg/errors"
	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/integrations/pypi"
	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/io"
	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/mirror"
	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/store/mongo"
	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/store/sqlite"
)

const (
	appName = "pypigraph"

	// EnvPrefix prefixes every environment override: store.path is read
	// from PYPIGRAPH_STORE_PATH.
	EnvPrefix = "PYPIGRAPH"

	// FileName is the config file looked up in the working directory.
	FileName = "pypigraph.toml"
)

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

// Cache backends.
const (
	CacheFile   = "file"
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// Log levels accepted by [LogConfig].
var LogLevels = []string{"debug", "info", "warn", "error"}

// Config holds every pypigraph setting.
type Config struct {
	Registry RegistryConfig `mapstructure:"registry"`
	Store    StoreConfig    `mapstructure:"store"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Export   ExportConfig   `mapstructure:"export"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
}

// RegistryConfig points the mirror at a package index.
type RegistryConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	Workers       int    `mapstructure:"workers"`
	PythonVersion string `mapstructure:"python_version"` // marker environment, e.g. "3.12"
}

// StoreConfig selects and locates the local store.
type StoreConfig struct {
	Driver        string `mapstructure:"driver"` // sqlite, mongo or memory
	Path          string `mapstructure:"path"`
	MongoURI      string `mapstructure:"mongo_uri"`
	MongoDatabase string `mapstructure:"mongo_database"`
}

// CacheConfig configures the metadata response cache.
type CacheConfig struct {
	Backend       string        `mapstructure:"backend"` // file, memory, redis or none
	Dir           string        `mapstructure:"dir"`
	TTL           time.Duration `mapstructure:"ttl"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
}

// ExportConfig controls where the graph is written after a pass.
type ExportConfig struct {
	Path   string `mapstructure:"path"`
	Format string `mapstructure:"format"` // empty: inferred from Path
}

// ServerConfig configures "pypigraph serve".
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	SyncInterval time.Duration `mapstructure:"sync_interval"` // 0 disables periodic passes
}

// LogConfig sets the log level. --verbose forces debug.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() Config {
	return Config{
		Registry: RegistryConfig{
			BaseURL:       pypi.DefaultBaseURL,
			Workers:       mirror.DefaultWorkers,
			PythonVersion: python.DefaultPythonVersion,
		},
		Store: StoreConfig{
			Driver:        DriverSQLite,
			Path:          sqlite.DefaultPath,
			MongoURI:      "mongodb://localhost:27017",
			MongoDatabase: mongo.DefaultDatabase,
		},
		Cache: CacheConfig{
			Backend:   CacheFile,
			Dir:       DefaultCacheDir(),
			TTL:       7 * 24 * time.Hour,
			RedisAddr: "localhost:6379",
		},
		Export: ExportConfig{
			Path: io.DefaultPath,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DefaultCacheDir follows the XDG convention (~/.cache/pypigraph).
func DefaultCacheDir() string {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), appName)
	}
	return filepath.Join(home, ".cache", appName)
}

// UserConfigPath is the per-user config file (~/.config/pypigraph/config.toml).
func UserConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, appName, "config.toml")
}

// SetDefaults registers every key with its default so environment
// variables are honoured for all of them.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("registry.base_url", d.Registry.BaseURL)
	v.SetDefault("registry.workers", d.Registry.Workers)
	v.SetDefault("registry.python_version", d.Registry.PythonVersion)
	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("store.mongo_uri", d.Store.MongoURI)
	v.SetDefault("store.mongo_database", d.Store.MongoDatabase)
	v.SetDefault("cache.backend", d.Cache.Backend)
	v.SetDefault("cache.dir", d.Cache.Dir)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.redis_addr", d.Cache.RedisAddr)
	v.SetDefault("cache.redis_password", d.Cache.RedisPassword)
	v.SetDefault("cache.redis_db", d.Cache.RedisDB)
	v.SetDefault("export.path", d.Export.Path)
	v.SetDefault("export.format", d.Export.Format)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.sync_interval", d.Server.SyncInterval)
	v.SetDefault("log.level", d.Log.Level)
}

// Load reads configuration into a Config. An explicit file must exist;
// otherwise ./pypigraph.toml and then the user config file are tried, and
// having neither is fine. Flags must be bound to v before calling Load.
func Load(v *viper.Viper, file string) (Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file == "" {
		file = findConfigFile()
	}
	if file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, perrors.Wrap(perrors.ErrCodeInvalidConfig, err, "read %s", file)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, perrors.Wrap(perrors.ErrCodeInvalidConfig, err, "decode configuration")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func findConfigFile() string {
	for _, path := range []string{FileName, UserConfigPath()} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Validate rejects settings no component can act on.
func (c Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, perrors.New(perrors.ErrCodeInvalidConfig, format, args...))
	}

	if err := perrors.ValidateURL(c.Registry.BaseURL); err != nil {
		invalid("registry.base_url: %s", perrors.UserMessage(err))
	}
	if c.Registry.Workers < 1 {
		invalid("registry.workers must be at least 1, got %d", c.Registry.Workers)
	}
	if _, err := python.ParseVersion(c.Registry.PythonVersion); err != nil {
		invalid("registry.python_version: %v", err)
	}

	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.Path == "" {
			invalid("store.path is required for the sqlite driver")
		}
	case DriverMongo:
		if c.Store.MongoURI == "" {
			invalid("store.mongo_uri is required for the mongo driver")
		}
	case DriverMemory:
	default:
		invalid("unknown store.driver %q (want sqlite, mongo or memory)", c.Store.Driver)
	}

	switch c.Cache.Backend {
	case CacheFile:
		if c.Cache.Dir == "" {
			invalid("cache.dir is required for the file cache")
		}
	case CacheMemory, CacheNone:
	case CacheRedis:
		if c.Cache.RedisAddr == "" {
			invalid("cache.redis_addr is required for the redis cache")
		}
	default:
		invalid("unknown cache.backend %q (want file, memory, redis or none)", c.Cache.Backend)
	}
	if c.Cache.TTL < 0 {
		invalid("cache.ttl must not be negative")
	}

	if _, err := c.ExportFormat(); err != nil {
		invalid("export: %v", err)
	}
	if c.Server.SyncInterval < 0 {
		invalid("server.sync_interval must not be negative")
	}
	if !slices.Contains(LogLevels, c.Log.Level) {
		invalid("unknown log.level %q", c.Log.Level)
	}

	return errors.Join(errs...)
}

// ExportFormat resolves the export format: the explicit setting if any,
// otherwise the extension of the export path.
func (c Config) ExportFormat() (io.Format, error) {
	if c.Export.Format != "" {
		return io.ParseFormat(c.Export.Format)
	}
	if c.Export.Path == "" {
		return "", fmt.Errorf("export.path is empty")
	}
	return io.FormatFromPath(c.Export.Path)
}

// Environment returns the marker environment for the configured Python.
func (c Config) Environment() python.Environment {
	return python.NewEnvironment(c.Registry.PythonVersion)
}
