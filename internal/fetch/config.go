package fetch

import (
	"fmt"
	"maps"
	"net/http"
	"os"
	"strconv"
	"time"
)

// Config holds the upstream request settings. Session values (cookie,
// CSRF token, www-claim) are secrets and are expected to arrive through the
// environment rather than a committed config file.
type Config struct {
	Timeout    string            `toml:"timeout"`
	MaxRetries int               `toml:"max_retries"`
	UserAgent  string            `toml:"user_agent"`
	AppID      string            `toml:"app_id"`
	Cookie     string            `toml:"cookie"`
	CSRFToken  string            `toml:"csrf_token"`
	WWWClaim   string            `toml:"www_claim"`
	Headers    map[string]string `toml:"headers"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Timeout    string
	MaxRetries string
	UserAgent  string
	AppID      string
	Cookie     string
	CSRFToken  string
	WWWClaim   string
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// Header builds the request headers sent with every upstream call.
// Named fields take precedence over entries in Headers.
func (c *Config) Header() http.Header {
	h := make(http.Header, len(c.Headers)+6)
	for k, v := range c.Headers {
		h.Set(k, v)
	}

	named := map[string]string{
		"User-Agent":       c.UserAgent,
		"X-IG-App-ID":      c.AppID,
		"Cookie":           c.Cookie,
		"X-CSRFToken":      c.CSRFToken,
		"X-IG-WWW-Claim":   c.WWWClaim,
		"X-Requested-With": "XMLHttpRequest",
	}
	for k, v := range named {
		if v != "" {
			h.Set(k, v)
		}
	}

	if h.Get("Accept") == "" {
		h.Set("Accept", "*/*")
	}
	return h
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay. Header maps are merged key by key.
func (c *Config) Merge(overlay *Config) {
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.MaxRetries != 0 {
		c.MaxRetries = overlay.MaxRetries
	}
	if overlay.UserAgent != "" {
		c.UserAgent = overlay.UserAgent
	}
	if overlay.AppID != "" {
		c.AppID = overlay.AppID
	}
	if overlay.Cookie != "" {
		c.Cookie = overlay.Cookie
	}
	if overlay.CSRFToken != "" {
		c.CSRFToken = overlay.CSRFToken
	}
	if overlay.WWWClaim != "" {
		c.WWWClaim = overlay.WWWClaim
	}
	if len(overlay.Headers) > 0 {
		if c.Headers == nil {
			c.Headers = make(map[string]string, len(overlay.Headers))
		}
		maps.Copy(c.Headers, overlay.Headers)
	}
}

func (c *Config) loadDefaults() {
	if c.Timeout == "" {
		c.Timeout = "10s"
	}
	if c.UserAgent == "" {
		c.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/140.0.0.0 Safari/537.36"
	}
}

func (c *Config) loadEnv(env *Env) {
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
	if env.UserAgent != "" {
		if v := os.Getenv(env.UserAgent); v != "" {
			c.UserAgent = v
		}
	}
	if env.AppID != "" {
		if v := os.Getenv(env.AppID); v != "" {
			c.AppID = v
		}
	}
	if env.Cookie != "" {
		if v := os.Getenv(env.Cookie); v != "" {
			c.Cookie = v
		}
	}
	if env.CSRFToken != "" {
		if v := os.Getenv(env.CSRFToken); v != "" {
			c.CSRFToken = v
		}
	}
	if env.WWWClaim != "" {
		if v := os.Getenv(env.WWWClaim); v != "" {
			c.WWWClaim = v
		}
	}
}

func (c *Config) validate() error {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative")
	}
	return nil
}
