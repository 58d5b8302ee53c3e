// Package fetch retrieves the likers of a post from the upstream API.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/botwatch/internal/profiles"
	"github.com/JaimeStill/botwatch/pkg/httpclient"
)

const maxPayloadSize = 64 << 20

// Client performs authenticated GET requests against likers endpoints.
type Client struct {
	http   *http.Client
	header http.Header
	logger *slog.Logger
}

// New creates a fetch client from cfg. Additional options are applied after
// the ones derived from cfg.
func New(cfg *Config, logger *slog.Logger, opts ...httpclient.Option) *Client {
	logger = logger.With("system", "fetch")

	base := []httpclient.Option{
		httpclient.WithTimeout(cfg.TimeoutDuration()),
		httpclient.WithMaxRetries(cfg.MaxRetries),
		httpclient.WithLogger(logger),
	}

	return &Client{
		http:   httpclient.New(append(base, opts...)...),
		header: cfg.Header(),
		logger: logger,
	}
}

// Fetch returns the likers listed at postURL. The upstream may answer with a
// bare array or an object carrying a users array; any other JSON shape is an
// empty roster. Non-2xx responses are returned as ErrUpstreamStatus.
func (c *Client) Fetch(ctx context.Context, postURL string) ([]profiles.Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, postURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header = c.header.Clone()

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", postURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: %s", ErrUpstreamStatus, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadSize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	users, err := Decode(body)
	if err != nil {
		return nil, err
	}

	c.logger.DebugContext(ctx, "likers payload decoded", "url", postURL, "users", len(users))
	return users, nil
}

// Decode extracts the roster from a likers payload.
func Decode(body []byte) ([]profiles.Profile, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, nil
	}

	switch body[0] {
	case '[':
		var users []profiles.Profile
		if err := json.Unmarshal(body, &users); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
		}
		return users, nil
	case '{':
		var envelope struct {
			Users json.RawMessage `json:"users"`
		}
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
		}

		var users []profiles.Profile
		if err := json.Unmarshal(envelope.Users, &users); err != nil {
			return nil, nil
		}
		return users, nil
	default:
		if !json.Valid(body) {
			return nil, ErrMalformedPayload
		}
		return nil, nil
	}
}
