// Package config loads rssgen settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/pevans/rssgen/feedcache"
	"github.com/pevans/rssgen/feedfilter"
	"github.com/pevans/rssgen/scraper"
	"github.com/pevans/rssgen/sources"
)

// Defaults.
const (
	DefaultAddr            = ":8080"
	DefaultLogLevel        = "info"
	DefaultFetchTimeout    = 10 * time.Second
	DefaultUserAgent       = "rssgen/1.0 (+html-to-rss)"
	DefaultCacheType       = feedcache.TypeFile
	DefaultCacheDSN        = ".cache"
	DefaultSourcesDB       = "sources.db"
	DefaultShutdownTimeout = 10 * time.Second
)

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	// APIKey guards the write endpoints. Empty disables them.
	APIKey          string        `yaml:"api_key"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// FetchConfig configures page and feed downloads.
type FetchConfig struct {
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`
}

// CacheConfig selects the rendered-feed cache backend.
type CacheConfig struct {
	Type string `yaml:"type"`
	DSN  string `yaml:"dsn"`
}

// SourceConfig is a source seeded into the registry on startup.
type SourceConfig struct {
	Slug    string             `yaml:"slug"`
	Kind    string             `yaml:"kind"`
	Name    string             `yaml:"name"`
	URL     string             `yaml:"url"`
	Scraper *scraper.Config    `yaml:"scraper"`
	Filter  *feedfilter.Config `yaml:"filter"`
}

// NewSource converts the entry to a registry source.
func (s SourceConfig) NewSource() sources.NewSource {
	now := time.Now()
	return sources.NewSource{
		Slug:          s.Slug,
		Kind:          s.Kind,
		Name:          s.Name,
		URL:           s.URL,
		ScraperConfig: s.Scraper,
		FilterConfig:  s.Filter,
		EnabledAt:     &now,
	}
}

// Config is the complete rssgen configuration.
type Config struct {
	Server    ServerConfig   `yaml:"server"`
	Log       LogConfig      `yaml:"log"`
	Fetch     FetchConfig    `yaml:"fetch"`
	Cache     CacheConfig    `yaml:"cache"`
	SourcesDB string         `yaml:"sources_db"`
	Sources   []SourceConfig `yaml:"sources"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            DefaultAddr,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Log: LogConfig{Level: DefaultLogLevel},
		Fetch: FetchConfig{
			UserAgent: DefaultUserAgent,
			Timeout:   DefaultFetchTimeout,
		},
		Cache: CacheConfig{
			Type: DefaultCacheType,
			DSN:  DefaultCacheDSN,
		},
		SourcesDB: DefaultSourcesDB,
	}
}

// Load returns the defaults overlaid with the file at path, if path is not
// empty, and then with RSSGEN_* environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the settings that cannot be defaulted.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server address is required")
	}

	switch c.Cache.Type {
	case feedcache.TypeFile, feedcache.TypeSQLite, feedcache.TypeRedis:
	default:
		return fmt.Errorf("unknown cache type %q", c.Cache.Type)
	}

	seen := map[string]bool{}
	for i, s := range c.Sources {
		if s.Slug == "" {
			return fmt.Errorf("source %d: slug is required", i)
		}
		if seen[s.Slug] {
			return fmt.Errorf("source %d: duplicate slug %q", i, s.Slug)
		}
		seen[s.Slug] = true
	}

	return nil
}
