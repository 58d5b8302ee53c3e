// Package enrich augments a raw roster with profile signals from the
// upstream profile-info endpoint.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/JaimeStill/botwatch/internal/profiles"
	"github.com/JaimeStill/botwatch/pkg/httpclient"
)

const maxProfileSize = 4 << 20

// Client enriches rosters by requesting each user's profile info.
type Client struct {
	http       *http.Client
	header     http.Header
	profileURL string
	workers    int
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// New creates an enrichment client. header carries the session headers
// shared with the likers fetch.
func New(cfg *Config, header http.Header, logger *slog.Logger, opts ...httpclient.Option) *Client {
	logger = logger.With("system", "enrich")

	base := []httpclient.Option{
		httpclient.WithTimeout(cfg.TimeoutDuration()),
		httpclient.WithMaxRetries(cfg.MaxRetries),
		httpclient.WithLogger(logger),
	}

	limit := rate.Inf
	if d := cfg.RequestDelayDuration(); d > 0 {
		limit = rate.Every(d)
	}

	return &Client{
		http:       httpclient.New(append(base, opts...)...),
		header:     header.Clone(),
		profileURL: cfg.ProfileURL,
		workers:    max(cfg.Workers, 1),
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logger,
	}
}

// Enrich reads the roster document at src and writes the enriched roster to
// dst. A user whose lookup fails keeps its raw fields and carries the reason
// in complement_error. When the roster cannot be read, every lookup fails,
// or the context ends, nothing is written.
func (c *Client) Enrich(ctx context.Context, src, dst string) error {
	roster, err := profiles.ReadRoster(src)
	if err != nil {
		return fmt.Errorf("read roster: %w", err)
	}

	enriched := make([]profiles.Profile, len(roster.Users))
	var failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)

	for i, u := range roster.Users {
		g.Go(func() error {
			p, err := c.Profile(gctx, u)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed.Add(1)
				c.logger.DebugContext(gctx, "profile lookup failed", "username", u.Username, "error", err)
				p = u.Clone()
				p.ComplementError = err.Error()
			}
			enriched[i] = p
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("enrich %s: %w", roster.PostID, err)
	}

	n := int(failed.Load())
	if n > 0 && n == len(enriched) {
		return fmt.Errorf("%w: %d lookups failed", ErrNothingEnriched, n)
	}

	now := time.Now().UTC()
	out := &profiles.Roster{
		Timestamp:           roster.Timestamp,
		PostID:              roster.PostID,
		TotalUsers:          len(enriched),
		EnrichmentTimestamp: &now,
		OriginalFile:        src,
		Users:               enriched,
	}

	if err := profiles.WriteRoster(dst, out); err != nil {
		return fmt.Errorf("write enriched roster: %w", err)
	}

	c.logger.InfoContext(
		ctx, "roster enriched",
		"post_id", roster.PostID,
		"users", len(enriched),
		"failed", n,
	)

	return nil
}

// Profile looks up one user and returns a new profile with the enriched
// signals applied. p itself is not modified.
func (c *Client) Profile(ctx context.Context, p profiles.Profile) (profiles.Profile, error) {
	if p.Username == "" {
		return profiles.Profile{}, ErrNoUsername
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return profiles.Profile{}, err
	}

	target := strings.ReplaceAll(c.profileURL, UsernamePlaceholder, url.QueryEscape(p.Username))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return profiles.Profile{}, fmt.Errorf("build request: %w", err)
	}
	req.Header = c.header.Clone()

	resp, err := c.http.Do(req)
	if err != nil {
		return profiles.Profile{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return profiles.Profile{}, fmt.Errorf("%w: %s", ErrUpstreamStatus, resp.Status)
	}

	var info profileInfo
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxProfileSize)).Decode(&info); err != nil {
		return profiles.Profile{}, fmt.Errorf("decode profile: %w", err)
	}
	if info.Data.User == nil {
		return profiles.Profile{}, ErrProfileUnavailable
	}

	return apply(p, info.Data.User), nil
}
