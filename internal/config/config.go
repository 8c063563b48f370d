// Package config loads the arbor CLI configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Source kinds select the Fetcher adapter.
const (
	SourceFile = "file"
	SourceLoam = "loam"
	SourceHTTP = "http"
)

// Config is the on-disk configuration of the arbor CLI.
type Config struct {
	Source   string       `yaml:"source"`
	Dir      string       `yaml:"dir"`
	BaseURL  string       `yaml:"base_url"`
	Prefixes PrefixConfig `yaml:"prefixes"`
	Index    []string     `yaml:"indexed_fields"`
	Cache    CacheConfig  `yaml:"cache"`
	Redis    RedisConfig  `yaml:"redis"`
	HTTP     HTTPConfig   `yaml:"http"`
	Log      LogConfig    `yaml:"log"`
	Commits  string       `yaml:"commits"`
	Watch    bool         `yaml:"watch"`
}

type PrefixConfig struct {
	Layout     string `yaml:"layout_schema"`
	DataSchema string `yaml:"data_schema"`
	Data       string `yaml:"data_path"`
}

// CacheConfig bounds the schema cache. Zero MaxEntries is unbounded.
type CacheConfig struct {
	MaxEntries int `yaml:"max_entries"`
}

// RedisConfig enables the Redis schema cache and data pool when Addr is set.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

type HTTPConfig struct {
	Addr    string `yaml:"addr"`
	Metrics bool   `yaml:"metrics"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Source: SourceFile,
		Dir:    ".",
		Prefixes: PrefixConfig{
			Layout:     "schema/ui/",
			DataSchema: "schema/data/",
			Data:       "mock-data/",
		},
		Index:   []string{"id", "datasource"},
		Redis:   RedisConfig{Prefix: "arbor:"},
		HTTP:    HTTPConfig{Addr: ":8080", Metrics: true},
		Log:     LogConfig{Level: "info", Format: "text"},
		Commits: ".arbor/commits",
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every inconsistent setting at once.
func (c Config) Validate() error {
	var errs []error
	switch c.Source {
	case SourceFile, SourceLoam:
		if c.Dir == "" {
			errs = append(errs, fmt.Errorf("source %q needs dir", c.Source))
		}
	case SourceHTTP:
		if c.BaseURL == "" {
			errs = append(errs, errors.New("source \"http\" needs base_url"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown source %q", c.Source))
	}
	if c.Cache.MaxEntries < 0 {
		errs = append(errs, errors.New("cache.max_entries must not be negative"))
	}
	if c.Redis.TTL < 0 {
		errs = append(errs, errors.New("redis.ttl must not be negative"))
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}
