// Package source holds the provider adapters that fetch daily OHLCV history.
//
// Every adapter owns its rate limiter and HTTP client. Failures are reported
// as *models.SourceError so callers can classify them with errors.Is.
package source

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/guttosm/finfetch/internal/domain/models"
	"github.com/guttosm/finfetch/internal/ratelimit"
)

// Adapter fetches the daily price history of one symbol from one provider.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, symbol models.Symbol, start, end time.Time) (models.RawSeries, error)
}

// Provider names.
const (
	Yahoo        = "yahoo"
	Polygon      = "polygon"
	AlphaVantage = "alphavantage"
)

// RetryPolicy bounds the exponential backoff applied to retryable failures.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialInterval: 500 * time.Millisecond, MaxInterval: 10 * time.Second}
}

// Option customizes an adapter at construction time.
type Option func(*client)

// WithLimiter injects the limiter instead of building one from the config.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(c *client) { c.limiter = l }
}

// WithRetry overrides the retry policy.
func WithRetry(p RetryPolicy) Option {
	return func(c *client) { c.retry = p }
}

// WithHTTPClient replaces the underlying *http.Client (transport, proxies, tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) { c.httpClient = hc }
}

// WithClock replaces the clock used for the provider horizon check.
func WithClock(now func() time.Time) Option {
	return func(c *client) { c.now = now }
}

// New builds the adapter registered under cfg.Name.
func New(cfg models.SourceConfig, opts ...Option) (Adapter, error) {
	switch cfg.Name {
	case Yahoo:
		return NewYahoo(cfg, opts...), nil
	case Polygon:
		return NewPolygon(cfg, opts...), nil
	case AlphaVantage:
		return NewAlphaVantage(cfg, opts...), nil
	default:
		return nil, fmt.Errorf("unknown source %q", cfg.Name)
	}
}
