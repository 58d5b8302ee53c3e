// Package httpclient builds outbound HTTP clients with retry and backoff
// behavior for calls to upstream services.
package httpclient

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
)

// LeveledSlog adapts a slog.Logger to retryablehttp's LeveledLogger.
// Errors are logged at WARN because a failed attempt is usually retried.
type LeveledSlog struct {
	inner *slog.Logger
}

func (l LeveledSlog) Error(msg string, keysAndValues ...any) {
	l.inner.Warn(msg, keysAndValues...)
}

func (l LeveledSlog) Warn(msg string, keysAndValues ...any) {
	l.inner.Warn(msg, keysAndValues...)
}

func (l LeveledSlog) Info(msg string, keysAndValues ...any) {
	l.inner.Info(msg, keysAndValues...)
}

func (l LeveledSlog) Debug(msg string, keysAndValues ...any) {
	l.inner.Debug(msg, keysAndValues...)
}

// Option configures the underlying retryable client.
type Option func(*retryablehttp.Client)

// WithMaxRetries sets the maximum number of retries.
func WithMaxRetries(maxRetries int) Option {
	return func(client *retryablehttp.Client) {
		client.RetryMax = maxRetries
	}
}

// WithRetryWaitMin sets the minimum wait time between retries.
func WithRetryWaitMin(waitMin time.Duration) Option {
	return func(client *retryablehttp.Client) {
		client.RetryWaitMin = waitMin
	}
}

// WithRetryWaitMax sets the maximum wait time between retries.
func WithRetryWaitMax(waitMax time.Duration) Option {
	return func(client *retryablehttp.Client) {
		client.RetryWaitMax = waitMax
	}
}

// WithTimeout bounds each individual attempt.
func WithTimeout(timeout time.Duration) Option {
	return func(client *retryablehttp.Client) {
		client.HTTPClient.Timeout = timeout
	}
}

// WithLogger routes retry logging through logger.
func WithLogger(logger *slog.Logger) Option {
	return func(client *retryablehttp.Client) {
		client.Logger = retryablehttp.LeveledLogger(LeveledSlog{inner: logger})
	}
}

// New returns a standard http.Client backed by retryablehttp. It retries
// connection errors and 5xx responses (except 501) up to three times with
// exponential backoff and never retries 429, leaving rate limits to the caller.
func New(options ...Option) *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient.Transport = cleanhttp.DefaultPooledTransport()
	retryClient.HTTPClient.Timeout = 30 * time.Second
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.Logger = retryablehttp.LeveledLogger(LeveledSlog{inner: slog.Default().With("system", "httpclient")})
	retryClient.CheckRetry = DefaultRetryPolicy

	for _, option := range options {
		option(retryClient)
	}

	return retryClient.StandardClient()
}

// DefaultRetryPolicy wraps retryablehttp.DefaultRetryPolicy and treats
// 429 Too Many Requests as non-retryable.
func DefaultRetryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if err == nil && resp.StatusCode == http.StatusTooManyRequests {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}
