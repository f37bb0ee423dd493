package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// fileConfig is the on-disk shape of Config. Durations are written as Go
// duration strings ("168h0m0s"), which viper decodes back.
type fileConfig struct {
	Registry struct {
		BaseURL       string `toml:"base_url"`
		Workers       int    `toml:"workers"`
		PythonVersion string `toml:"python_version"`
	} `toml:"registry"`
	Store struct {
		Driver        string `toml:"driver"`
		Path          string `toml:"path"`
		MongoURI      string `toml:"mongo_uri"`
		MongoDatabase string `toml:"mongo_database"`
	} `toml:"store"`
	Cache struct {
		Backend       string `toml:"backend"`
		Dir           string `toml:"dir"`
		TTL           string `toml:"ttl"`
		RedisAddr     string `toml:"redis_addr"`
		RedisPassword string `toml:"redis_password,omitempty"`
		RedisDB       int    `toml:"redis_db"`
	} `toml:"cache"`
	Export struct {
		Path   string `toml:"path"`
		Format string `toml:"format"`
	} `toml:"export"`
	Server struct {
		Addr         string `toml:"addr"`
		SyncInterval string `toml:"sync_interval"`
	} `toml:"server"`
	Log struct {
		Level string `toml:"level"`
	} `toml:"log"`
}

func toFile(c Config) fileConfig {
	var f fileConfig
	f.Registry.BaseURL = c.Registry.BaseURL
	f.Registry.Workers = c.Registry.Workers
	f.Registry.PythonVersion = c.Registry.PythonVersion
	f.Store.Driver = c.Store.Driver
	f.Store.Path = c.Store.Path
	f.Store.MongoURI = c.Store.MongoURI
	f.Store.MongoDatabase = c.Store.MongoDatabase
	f.Cache.Backend = c.Cache.Backend
	f.Cache.Dir = c.Cache.Dir
	f.Cache.TTL = c.Cache.TTL.String()
	f.Cache.RedisAddr = c.Cache.RedisAddr
	f.Cache.RedisPassword = c.Cache.RedisPassword
	f.Cache.RedisDB = c.Cache.RedisDB
	f.Export.Path = c.Export.Path
	f.Export.Format = c.Export.Format
	f.Server.Addr = c.Server.Addr
	f.Server.SyncInterval = c.Server.SyncInterval.String()
	f.Log.Level = c.Log.Level
	return f
}

// Encode writes c as TOML. The redis password is masked.
func Encode(w io.Writer, c Config) error {
	if c.Cache.RedisPassword != "" {
		c.Cache.RedisPassword = "********"
	}
	if err := toml.NewEncoder(w).Encode(toFile(c)); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}

// ErrExists is returned by [WriteDefault] when the file is already present.
var ErrExists = errors.New("config file already exists")

// WriteDefault writes the default configuration to path, creating parent
// directories. It refuses to overwrite an existing file unless force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrExists, path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	fmt.Fprintln(f, "# pypigraph configuration. Every key can be overridden with")
	fmt.Fprintln(f, "# PYPIGRAPH_<SECTION>_<KEY>, e.g. PYPIGRAPH_STORE_PATH.")
	fmt.Fprintln(f)
	if err := toml.NewEncoder(f).Encode(toFile(Defaults())); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return f.Close()
}
