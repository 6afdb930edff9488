// Package collector runs one collection wave: every (symbol, source) pair is
// fetched concurrently and each pair's outcome is recorded on its own.
package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/guttosm/finfetch/internal/domain/models"
	"github.com/guttosm/finfetch/internal/logger"
	"github.com/guttosm/finfetch/internal/source"
)

// SourceResult is the outcome of one (symbol, source) fetch.
type SourceResult struct {
	Source  string
	Series  models.RawSeries
	Err     error
	Elapsed time.Duration
}

// OK reports whether the fetch succeeded.
func (r SourceResult) OK() bool { return r.Err == nil }

// Results maps each requested symbol to its per-source outcomes, in the
// order the sources were given.
type Results map[models.Symbol][]SourceResult

// Collector fans fetches out over adapters.
type Collector struct {
	maxConcurrency int
	log            zerolog.Logger
}

// New creates a Collector.
//
// Parameters:
//   - maxConcurrency (int): cap on in-flight fetches across all adapters; 0 leaves it to the adapters' own rate limiters.
//
// Returns:
//   - *Collector: ready to Collect.
func New(maxConcurrency int) *Collector {
	if maxConcurrency < 0 {
		maxConcurrency = 0
	}
	return &Collector{maxConcurrency: maxConcurrency, log: logger.Component("collector")}
}

// Collect fetches [start, end] for every symbol from every source.
//
// Symbols are normalized and deduplicated first. No sources fails with
// ErrNoSourcesConfigured; no symbols returns an empty result without any
// adapter call. A failing pair never aborts the others. When ctx is
// cancelled, pairs that completed are returned along with ctx.Err().
func (c *Collector) Collect(ctx context.Context, symbols []string, start, end time.Time, sources []source.Adapter) (Results, error) {
	if len(sources) == 0 {
		return nil, models.ErrNoSourcesConfigured
	}
	syms := models.DedupeSymbols(symbols)
	if len(syms) == 0 {
		return Results{}, nil
	}

	type slot struct {
		res  SourceResult
		done bool
	}
	slots := make([][]slot, len(syms))
	for i := range slots {
		slots[i] = make([]slot, len(sources))
	}

	total := len(syms) * len(sources)
	c.log.Info().
		Int("symbols", len(syms)).
		Int("sources", len(sources)).
		Int("max_concurrency", c.maxConcurrency).
		Str("start", start.Format(models.DateLayout)).
		Str("end", end.Format(models.DateLayout)).
		Msg("collection start")
	began := time.Now()

	var g errgroup.Group
	if c.maxConcurrency > 0 {
		g.SetLimit(c.maxConcurrency)
	}

dispatch:
	for i, sym := range syms {
		for j, src := range sources {
			if ctx.Err() != nil {
				break dispatch
			}
			g.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}
				t0 := time.Now()
				rs, err := src.Fetch(ctx, sym, start, end)
				elapsed := time.Since(t0)
				if err != nil && ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
					return nil // abandoned
				}
				slots[i][j] = slot{res: SourceResult{Source: src.Name(), Series: rs, Err: err, Elapsed: elapsed}, done: true}
				if err != nil {
					c.log.Warn().Str("symbol", sym.String()).Str("source", src.Name()).
						Str("kind", models.ErrorKind(err)).Dur("elapsed", elapsed).Err(err).Msg("fetch failed")
					return nil
				}
				c.log.Debug().Str("symbol", sym.String()).Str("source", src.Name()).
					Int("points", len(rs.Points)).Dur("elapsed", elapsed).Msg("fetch done")
				return nil
			})
		}
	}
	_ = g.Wait()

	out := make(Results, len(syms))
	completed, failed := 0, 0
	for i, sym := range syms {
		list := make([]SourceResult, 0, len(sources))
		for _, s := range slots[i] {
			if !s.done {
				continue
			}
			completed++
			if s.res.Err != nil {
				failed++
			}
			list = append(list, s.res)
		}
		out[sym] = list
	}

	ev := c.log.Info()
	if ctx.Err() != nil {
		ev = c.log.Warn().Str("reason", ctx.Err().Error())
	}
	ev.Int("pairs", total).Int("completed", completed).Int("failed", failed).
		Dur("elapsed", time.Since(began)).Msg("collection done")

	if err := ctx.Err(); err != nil {
		return out, fmt.Errorf("collection interrupted after %d/%d pairs: %w", completed, total, err)
	}
	return out, nil
}
