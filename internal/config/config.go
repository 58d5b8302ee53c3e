// Package config loads the botwatch configuration: a TOML base file, an
// optional environment overlay, and BOTWATCH_* environment overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/botwatch/internal/enrich"
	"github.com/JaimeStill/botwatch/internal/fetch"
	"github.com/JaimeStill/botwatch/pkg/database"
	"github.com/JaimeStill/botwatch/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvBotwatchEnv             = "BOTWATCH_ENV"
	EnvBotwatchConfig          = "BOTWATCH_CONFIG"
	EnvBotwatchShutdownTimeout = "BOTWATCH_SHUTDOWN_TIMEOUT"
	EnvBotwatchVersion         = "BOTWATCH_VERSION"
)

var databaseEnv = &database.Env{
	Host:            "BOTWATCH_DB_HOST",
	Port:            "BOTWATCH_DB_PORT",
	Name:            "BOTWATCH_DB_NAME",
	User:            "BOTWATCH_DB_USER",
	Password:        "BOTWATCH_DB_PASSWORD",
	SSLMode:         "BOTWATCH_DB_SSL_MODE",
	MaxOpenConns:    "BOTWATCH_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "BOTWATCH_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "BOTWATCH_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "BOTWATCH_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	ContainerName:    "BOTWATCH_STORAGE_CONTAINER_NAME",
	ConnectionString: "BOTWATCH_STORAGE_CONNECTION_STRING",
	ServiceURL:       "BOTWATCH_STORAGE_SERVICE_URL",
	MaxListSize:      "BOTWATCH_STORAGE_MAX_LIST_SIZE",
}

var fetchEnv = &fetch.Env{
	Timeout:    "BOTWATCH_FETCH_TIMEOUT",
	MaxRetries: "BOTWATCH_FETCH_MAX_RETRIES",
	UserAgent:  "BOTWATCH_FETCH_USER_AGENT",
	AppID:      "BOTWATCH_FETCH_APP_ID",
	Cookie:     "BOTWATCH_FETCH_COOKIE",
	CSRFToken:  "BOTWATCH_FETCH_CSRF_TOKEN",
	WWWClaim:   "BOTWATCH_FETCH_WWW_CLAIM",
}

var enrichEnv = &enrich.Env{
	ProfileURL:   "BOTWATCH_ENRICH_PROFILE_URL",
	Workers:      "BOTWATCH_ENRICH_WORKERS",
	RequestDelay: "BOTWATCH_ENRICH_REQUEST_DELAY",
	Timeout:      "BOTWATCH_ENRICH_TIMEOUT",
	MaxRetries:   "BOTWATCH_ENRICH_MAX_RETRIES",
}

// Config is the root configuration for botwatch.
// Database settings are only finalized when pipeline.record is enabled and
// storage settings only when pipeline.archive is enabled.
type Config struct {
	Pipeline        PipelineConfig  `toml:"pipeline"`
	Fetch           fetch.Config    `toml:"fetch"`
	Enrich          enrich.Config   `toml:"enrich"`
	Ranker          RankerConfig    `toml:"ranker"`
	Server          ServerConfig    `toml:"server"`
	Database        database.Config `toml:"database"`
	Storage         storage.Config  `toml:"storage"`
	API             APIConfig       `toml:"api"`
	ShutdownTimeout string          `toml:"shutdown_timeout"`
	Version         string          `toml:"version"`
}

// Env returns the BOTWATCH_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvBotwatchEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. The base file is config.toml in the working
// directory unless BOTWATCH_CONFIG names another. If no base file exists,
// defaults and environment variables provide all configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	base := basePath()
	if _, err := os.Stat(base); err == nil {
		loaded, err := load(base)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else if os.Getenv(EnvBotwatchConfig) != "" {
		return nil, fmt.Errorf("config %s: %w", base, err)
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Pipeline.Merge(&overlay.Pipeline)
	c.Fetch.Merge(&overlay.Fetch)
	c.Enrich.Merge(&overlay.Enrich)
	c.Ranker.Merge(&overlay.Ranker)
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.API.Merge(&overlay.API)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Pipeline.Finalize(); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	if err := c.Fetch.Finalize(fetchEnv); err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	if err := c.Enrich.Finalize(enrichEnv); err != nil {
		return fmt.Errorf("enrich: %w", err)
	}
	if err := c.Ranker.Finalize(); err != nil {
		return fmt.Errorf("ranker: %w", err)
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if c.Pipeline.Record {
		if err := c.Database.Finalize(databaseEnv); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	if c.Pipeline.Archive {
		if err := c.Storage.Finalize(storageEnv); err != nil {
			return fmt.Errorf("storage: %w", err)
		}
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvBotwatchShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvBotwatchVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func basePath() string {
	if p := os.Getenv(EnvBotwatchConfig); p != "" {
		return p
	}
	return BaseConfigFile
}

func overlayPath() string {
	if env := os.Getenv(EnvBotwatchEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
