// Package config loads the tablescan YAML configuration.
//
// The file may reference environment variables as ${VAR}. Top-level
// settings can also be overridden with TABLESCAN_* variables after the
// file is parsed; per-database entries come from the file only.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"go.yaml.in/yaml/v3"

	"github.com/koustreak/tablescan/internal/database"
	"github.com/koustreak/tablescan/internal/discovery"
	"github.com/koustreak/tablescan/internal/filestore"
	"github.com/koustreak/tablescan/internal/logger"
)

// Config is the root of the configuration file.
type Config struct {
	Log       LogConfig        `yaml:"log"`
	Server    ServerConfig     `yaml:"server"`
	Scan      ScanConfig       `yaml:"scan"`
	Export    ExportConfig     `yaml:"export"`
	Databases []DatabaseConfig `yaml:"databases"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"TABLESCAN_LOG_LEVEL"`
	Format string `yaml:"format" env:"TABLESCAN_LOG_FORMAT"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" env:"TABLESCAN_SERVER_ADDR"`
}

// ScanConfig tunes every scan. ProbeRate is probes per second; zero
// disables throttling.
type ScanConfig struct {
	PageSize  int     `yaml:"page_size" env:"TABLESCAN_PAGE_SIZE"`
	ProbeRate float64 `yaml:"probe_rate" env:"TABLESCAN_PROBE_RATE"`
}

// ExportConfig points at the object store that receives inventory
// snapshots.
type ExportConfig struct {
	Enabled   bool   `yaml:"enabled" env:"TABLESCAN_EXPORT_ENABLED"`
	Endpoint  string `yaml:"endpoint" env:"TABLESCAN_EXPORT_ENDPOINT"`
	AccessKey string `yaml:"access_key" env:"TABLESCAN_EXPORT_ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"TABLESCAN_EXPORT_SECRET_KEY"`
	UseSSL    bool   `yaml:"use_ssl" env:"TABLESCAN_EXPORT_USE_SSL"`
	Region    string `yaml:"region" env:"TABLESCAN_EXPORT_REGION"`
	Bucket    string `yaml:"bucket" env:"TABLESCAN_EXPORT_BUCKET"`
	Prefix    string `yaml:"prefix" env:"TABLESCAN_EXPORT_PREFIX"`
}

// DatabaseConfig is one scannable database.
type DatabaseConfig struct {
	Name           string        `yaml:"name"`
	Engine         string        `yaml:"engine"`
	DSN            string        `yaml:"dsn"`
	Strategy       string        `yaml:"strategy"`
	ExcludeSchemas []string      `yaml:"exclude_schemas"`
	MaxConns       int32         `yaml:"max_conns"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

var engines = map[string]bool{
	string(database.EnginePostgres):  true,
	string(database.EngineMySQL):     true,
	string(database.EngineSQLServer): true,
	string(database.EngineSQLite):    true,
}

// Load reads, expands, overrides and validates the file at path.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse is Load without the file read.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return finish(&cfg)
}

// ForDatabases builds a configuration without a file: the given databases
// plus TABLESCAN_* overrides and defaults.
func ForDatabases(dbs ...DatabaseConfig) (*Config, error) {
	return finish(&Config{Databases: dbs})
}

func finish(cfg *Config) (*Config, error) {
	if err := cleanenv.UpdateEnv(cfg); err != nil {
		return nil, fmt.Errorf("apply environment: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Scan.PageSize == 0 {
		c.Scan.PageSize = discovery.DefaultPageSize
	}
	if c.Export.Prefix == "" {
		c.Export.Prefix = "inventories"
	}
}

func (c *Config) validate() error {
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}
	if c.Scan.PageSize < 0 {
		return errors.New("scan.page_size must not be negative")
	}
	if c.Scan.ProbeRate < 0 {
		return errors.New("scan.probe_rate must not be negative")
	}
	if c.Export.Enabled {
		if c.Export.Endpoint == "" {
			return errors.New("export.endpoint is required when export is enabled")
		}
		if c.Export.Bucket == "" {
			return errors.New("export.bucket is required when export is enabled")
		}
	}

	if len(c.Databases) == 0 {
		return errors.New("at least one database is required")
	}
	seen := make(map[string]bool, len(c.Databases))
	for i, db := range c.Databases {
		if db.Name == "" {
			return fmt.Errorf("databases[%d].name is required", i)
		}
		if seen[db.Name] {
			return fmt.Errorf("database %s is defined twice", db.Name)
		}
		seen[db.Name] = true

		if !engines[db.Engine] {
			return fmt.Errorf("database %s: unknown engine %q", db.Name, db.Engine)
		}
		if db.DSN == "" {
			return fmt.Errorf("database %s: dsn is required", db.Name)
		}
		if db.Strategy != "" {
			if _, err := discovery.ParseStrategy(db.Strategy); err != nil {
				return fmt.Errorf("database %s: %w", db.Name, err)
			}
		}
		if db.MaxConns < 0 {
			return fmt.Errorf("database %s: max_conns must not be negative", db.Name)
		}
	}
	return nil
}

// Database returns the entry called name.
func (c *Config) Database(name string) (DatabaseConfig, bool) {
	for _, db := range c.Databases {
		if db.Name == name {
			return db, true
		}
	}
	return DatabaseConfig{}, false
}

// Logger builds the logger described by the log section.
func (c *Config) Logger() *logger.Logger {
	cfg := logger.DefaultConfig()
	cfg.Level = c.Log.Level
	cfg.Format = c.Log.Format
	return logger.New(cfg)
}

// Pool returns the connection settings for the database, starting from
// database.DefaultConfig.
func (d DatabaseConfig) Pool() *database.Config {
	cfg := database.DefaultConfig(database.Engine(d.Engine), d.DSN)
	if d.MaxConns > 0 {
		cfg.MaxConns = d.MaxConns
	}
	if d.ConnectTimeout > 0 {
		cfg.ConnectTimeout = d.ConnectTimeout
	}
	return cfg
}

// Options returns the describer options for the database. The strategy
// was checked by validate.
func (d DatabaseConfig) Options() []discovery.Option {
	var opts []discovery.Option
	if d.Strategy != "" {
		s, _ := discovery.ParseStrategy(d.Strategy)
		opts = append(opts, discovery.WithStrategy(s))
	}
	if len(d.ExcludeSchemas) > 0 {
		opts = append(opts, discovery.WithExcludedSchemas(d.ExcludeSchemas...))
	}
	return opts
}

// Store returns the object store settings for exports.
func (e ExportConfig) Store() *filestore.Config {
	cfg := filestore.DefaultConfig(e.Endpoint, e.AccessKey, e.SecretKey)
	cfg.UseSSL = e.UseSSL
	cfg.Region = e.Region
	cfg.DefaultBucket = e.Bucket
	return cfg
}
