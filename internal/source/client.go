package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/guttosm/finfetch/internal/domain/models"
	"github.com/guttosm/finfetch/internal/logger"
	"github.com/guttosm/finfetch/internal/ratelimit"
)

const defaultTimeout = 30 * time.Second

// client is the transport shared by all adapters: resty for HTTP, an owned
// limiter gate before every attempt, a per-attempt deadline and bounded
// exponential backoff for retryable failures.
type client struct {
	name       string
	http       *resty.Client
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	timeout    time.Duration
	retry      RetryPolicy
	now        func() time.Time
	log        zerolog.Logger
}

func newClient(cfg models.SourceConfig, defaultBaseURL string, opts ...Option) *client {
	c := &client{
		name:    cfg.Name,
		timeout: cfg.Timeout,
		retry:   DefaultRetryPolicy(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.limiter == nil {
		c.limiter = ratelimit.New(cfg.RateLimit, cfg.RateInterval)
	}
	if c.retry.MaxAttempts < 1 {
		c.retry.MaxAttempts = 1
	}

	if c.httpClient != nil {
		c.http = resty.NewWithClient(c.httpClient)
	} else {
		c.http = resty.New()
	}
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	c.http.SetBaseURL(base)
	c.http.SetHeader("Accept", "application/json")
	c.http.SetHeader("User-Agent", "finfetch/1.0")

	c.log = logger.Component("source").With().Str("source", c.name).Logger()
	return c
}

// validate rejects requests that must not reach the network.
func (c *client) validate(symbol models.Symbol, start, end time.Time) error {
	if symbol == "" {
		return c.fail(symbol, models.ErrInvalidSymbol, 0, false, errors.New("empty symbol"))
	}
	if start.IsZero() || end.IsZero() {
		return c.fail(symbol, models.ErrInvalidDateRange, 0, false, errors.New("start and end are required"))
	}
	if start.After(end) {
		return c.fail(symbol, models.ErrInvalidDateRange, 0, false,
			fmt.Errorf("start %s after end %s", start.Format(models.DateLayout), end.Format(models.DateLayout)))
	}
	if models.TruncateDate(start).After(models.TruncateDate(c.now())) {
		return c.fail(symbol, models.ErrInvalidDateRange, 0, false,
			fmt.Errorf("start %s is beyond the provider horizon", start.Format(models.DateLayout)))
	}
	return nil
}

// execute runs call with rate limiting, a per-attempt deadline and retries.
// A cancelled parent context is returned as is.
func (c *client) execute(ctx context.Context, symbol models.Symbol, call func(ctx context.Context) error) error {
	attempt := 0
	op := func() error {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return backoff.Permanent(c.fail(symbol, models.ErrRateLimitExceeded, 0, false, err))
		}

		actx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		err := call(actx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, models.ErrSourceTimeout) {
			err = c.fail(symbol, models.ErrSourceTimeout, 0, false, fmt.Errorf("no response within %s", c.timeout))
		}
		if !models.IsRetryable(err) || attempt >= c.retry.MaxAttempts {
			return backoff.Permanent(err)
		}
		c.log.Warn().Str("symbol", symbol.String()).Int("attempt", attempt).Err(err).Msg("retrying fetch")
		return err
	}

	b := backoff.NewExponentialBackOff()
	if c.retry.InitialInterval > 0 {
		b.InitialInterval = c.retry.InitialInterval
	}
	if c.retry.MaxInterval > 0 {
		b.MaxInterval = c.retry.MaxInterval
	}
	b.MaxElapsedTime = 0

	return backoff.Retry(op, backoff.WithContext(b, ctx))
}

// get issues a GET and maps transport and status failures.
func (c *client) get(ctx context.Context, symbol models.Symbol, path string, query map[string]string) (*resty.Response, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(query).
		Get(path)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, c.fail(symbol, models.ErrSourceTimeout, 0, false, err)
		}
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, c.fail(symbol, models.ErrSourceUnavailable, 0, true, err)
	}
	if err := c.statusError(symbol, resp); err != nil {
		return resp, err
	}
	return resp, nil
}

func (c *client) statusError(symbol models.Symbol, resp *resty.Response) error {
	code := resp.StatusCode()
	switch {
	case code < 400:
		return nil
	case code == http.StatusTooManyRequests:
		return c.fail(symbol, models.ErrRateLimitExceeded, code, true, nil)
	case code == http.StatusNotFound:
		return c.fail(symbol, models.ErrInvalidSymbol, code, false, nil)
	case code >= 500:
		return c.fail(symbol, models.ErrSourceUnavailable, code, true, nil)
	default:
		return c.fail(symbol, models.ErrSourceUnavailable, code, false, errors.New(truncate(resp.String(), 200)))
	}
}

func (c *client) fail(symbol models.Symbol, kind error, status int, transient bool, cause error) *models.SourceError {
	return &models.SourceError{
		Source:     c.name,
		Symbol:     symbol,
		Kind:       kind,
		StatusCode: status,
		Transient:  transient,
		Err:        cause,
	}
}

// series assembles a RawSeries for the requested window.
func (c *client) series(symbol models.Symbol, start, end time.Time, points []models.PricePoint) models.RawSeries {
	if points == nil {
		points = []models.PricePoint{}
	}
	return models.RawSeries{
		Symbol: symbol,
		Source: c.name,
		Start:  models.TruncateDate(start),
		End:    models.TruncateDate(end),
		Points: points,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
