package enrich

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// UsernamePlaceholder is replaced by the escaped username in ProfileURL.
const UsernamePlaceholder = "{username}"

// Config holds profile-info request settings.
type Config struct {
	ProfileURL   string `toml:"profile_url"`
	Workers      int    `toml:"workers"`
	RequestDelay string `toml:"request_delay"`
	Timeout      string `toml:"timeout"`
	MaxRetries   int    `toml:"max_retries"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	ProfileURL   string
	Workers      string
	RequestDelay string
	Timeout      string
	MaxRetries   string
}

// RequestDelayDuration returns RequestDelay as a time.Duration.
func (c *Config) RequestDelayDuration() time.Duration {
	d, _ := time.ParseDuration(c.RequestDelay)
	return d
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.ProfileURL != "" {
		c.ProfileURL = overlay.ProfileURL
	}
	if overlay.Workers != 0 {
		c.Workers = overlay.Workers
	}
	if overlay.RequestDelay != "" {
		c.RequestDelay = overlay.RequestDelay
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.MaxRetries != 0 {
		c.MaxRetries = overlay.MaxRetries
	}
}

func (c *Config) loadDefaults() {
	if c.ProfileURL == "" {
		c.ProfileURL = "https://www.instagram.com/api/v1/users/web_profile_info/?username=" + UsernamePlaceholder
	}
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.RequestDelay == "" {
		c.RequestDelay = "200ms"
	}
	if c.Timeout == "" {
		c.Timeout = "10s"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.ProfileURL != "" {
		if v := os.Getenv(env.ProfileURL); v != "" {
			c.ProfileURL = v
		}
	}
	if env.Workers != "" {
		if v := os.Getenv(env.Workers); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				c.Workers = n
			}
		}
	}
	if env.RequestDelay != "" {
		if v := os.Getenv(env.RequestDelay); v != "" {
			c.RequestDelay = v
		}
	}
	if env.Timeout != "" {
		if v := os.Getenv(env.Timeout); v != "" {
			c.Timeout = v
		}
	}
	if env.MaxRetries != "" {
		if v := os.Getenv(env.MaxRetries); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.MaxRetries = n
			}
		}
	}
}

func (c *Config) validate() error {
	if !strings.Contains(c.ProfileURL, UsernamePlaceholder) {
		return fmt.Errorf("profile_url must contain %s", UsernamePlaceholder)
	}
	if d, err := time.ParseDuration(c.RequestDelay); err != nil || d < 0 {
		return fmt.Errorf("invalid request_delay: %q", c.RequestDelay)
	}
	if d, err := time.ParseDuration(c.Timeout); err != nil || d <= 0 {
		return fmt.Errorf("invalid timeout: %q", c.Timeout)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative")
	}
	return nil
}
