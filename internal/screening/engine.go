// Package screening computes risk and return metrics over canonical price
// series and ranks symbols by a batch-relative opportunity score.
package screening

import (
	"context"
	"math"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/guttosm/finfetch/internal/domain/models"
	"github.com/guttosm/finfetch/internal/logger"
)

// Opportunity score weights.
const (
	weightSharpe   = 0.4
	weightReturn   = 0.3
	weightRecovery = 0.3
)

// Params tunes the engine.
type Params struct {
	RiskFreeRate        float64 // annual, as a fraction
	LookbackYears       int     // default window when none is given
	Week52LookbackWeeks int
	MinDataPoints       int
	Benchmark           models.Symbol // alpha/beta reference; empty disables
}

// DefaultParams returns the stock screening defaults.
func DefaultParams() Params {
	return Params{
		RiskFreeRate:        0.03,
		LookbackYears:       5,
		Week52LookbackWeeks: 52,
		MinDataPoints:       1000,
		Benchmark:           "SPY",
	}
}

// Engine computes ScreeningResults. It holds no mutable state.
type Engine struct {
	params Params
	log    zerolog.Logger
}

// New creates an Engine. Non-positive lookbacks fall back to defaults and
// MinDataPoints is at least 2, the smallest series with a return.
func New(p Params) *Engine {
	d := DefaultParams()
	if p.LookbackYears <= 0 {
		p.LookbackYears = d.LookbackYears
	}
	if p.Week52LookbackWeeks <= 0 {
		p.Week52LookbackWeeks = d.Week52LookbackWeeks
	}
	if p.MinDataPoints < 2 {
		p.MinDataPoints = 2
	}
	return &Engine{params: p, log: logger.Component("screening")}
}

// Params returns the effective parameters.
func (e *Engine) Params() Params { return e.params }

// Compute derives the metric set for one series without a benchmark.
func (e *Engine) Compute(cs models.CanonicalSeries) models.ScreeningResult {
	return e.ComputeAgainst(cs, models.CanonicalSeries{})
}

// ComputeAgainst derives the metric set for one series.
//
// Behavior:
//   - Series shorter than MinDataPoints are marked insufficient and carry no
//     metrics. DataQuality is still reported for non-empty series.
//   - Returns are simple daily returns.
//   - Alpha and Beta use the daily returns of cs and bench on shared dates and
//     need more than 10 of them. An empty bench leaves Beta nil and sets Alpha
//     to the annualized return minus the risk-free rate.
//
// Parameters:
//   - cs: the canonical series to screen.
//   - bench: the benchmark series; may be empty.
//
// Returns:
//   - models.ScreeningResult: metrics that could not be computed are nil.
func (e *Engine) ComputeAgainst(cs, bench models.CanonicalSeries) models.ScreeningResult {
	r := models.ScreeningResult{Symbol: cs.Symbol, DataPoints: cs.Len(), Sources: cs.Sources}
	if cs.Len() > 0 {
		r.FirstDate = cs.Points[0].Date
		r.LastDate = cs.Points[cs.Len()-1].Date
		r.DataQuality = models.Float(cs.Quality)
	}
	if cs.Len() < e.params.MinDataPoints {
		r.Insufficient = true
		return r
	}

	closes := cs.Closes()
	first, last := closes[0], closes[len(closes)-1]
	returns := simpleReturns(closes)

	r.CurrentPrice = models.Float(last)
	r.TotalReturn = models.Float(percentFrom(last, first))
	if v, ok := annualizedReturn(first, last, elapsedYears(r.FirstDate, r.LastDate)); ok {
		r.AnnualizedReturn = models.Float(v)
	}
	if v, ok := sharpe(returns, e.params.RiskFreeRate); ok {
		r.SharpeRatio = models.Float(v)
	}
	if v, ok := volatility(returns); ok {
		r.Volatility = models.Float(v)
	}
	if v, ok := maxDrawdown(closes); ok {
		r.MaxDrawdown = models.Float(v)
	}
	if hi, lo, ok := extremes(cs.Points, e.params.Week52LookbackWeeks); ok {
		r.High52w = models.Float(hi)
		r.Low52w = models.Float(lo)
		r.PercentFromHigh = models.Float(percentFrom(last, hi))
		r.PercentFromLow = models.Float(percentFrom(last, lo))
	}

	if bench.Len() == 0 {
		if r.AnnualizedReturn != nil {
			r.Alpha = models.Float(*r.AnnualizedReturn - e.params.RiskFreeRate*100)
		}
	} else {
		x, y := alignedReturns(cs.Points, bench.Points)
		if b, ok := beta(x, y); ok {
			r.Beta = models.Float(b)
			r.Alpha = models.Float(jensenAlpha(x, y, b, e.params.RiskFreeRate))
		}
	}

	if v, ok := sma(closes, 20); ok {
		r.SMA20 = models.Float(v)
	}
	if v, ok := sma(closes, 50); ok {
		r.SMA50 = models.Float(v)
	}
	if v, ok := rsi(closes, rsiPeriod); ok {
		r.RSI14 = models.Float(v)
	}
	if v, ok := volumeRatio(cs.Points); ok {
		r.VolumeRatio = models.Float(v)
	}
	return r
}

// Screen is ScreenAgainst without a benchmark.
func (e *Engine) Screen(ctx context.Context, series []models.CanonicalSeries, rank bool) ([]models.ScreeningResult, error) {
	return e.ScreenAgainst(ctx, series, models.CanonicalSeries{}, rank)
}

// ScreenAgainst computes every series against bench in parallel, scores the
// batch and orders it: by opportunity score when rank is set, otherwise by
// symbol.
func (e *Engine) ScreenAgainst(ctx context.Context, series []models.CanonicalSeries, bench models.CanonicalSeries, rank bool) ([]models.ScreeningResult, error) {
	results := make([]models.ScreeningResult, len(series))
	g, gctx := errgroup.WithContext(ctx)
	for i, cs := range series {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = e.ComputeAgainst(cs, bench)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	Score(results)
	Order(results, rank)

	insufficient := 0
	for _, r := range results {
		if r.Insufficient {
			insufficient++
		}
	}
	e.log.Info().Int("symbols", len(results)).Int("insufficient", insufficient).Bool("ranked", rank).
		Int("benchmark_points", bench.Len()).Msg("screening done")
	return results, nil
}

// Score sets OpportunityScore on every result that has a Sharpe ratio, an
// annualized return and a percent from high. Each component is min-max
// normalized across those results; a dimension with no spread counts 0.5.
// Recovery potential is the inverse of percent from high, so symbols further
// below their high score higher on it.
func Score(results []models.ScreeningResult) {
	var idx []int
	for i, r := range results {
		r.OpportunityScore = nil
		results[i] = r
		if r.SharpeRatio != nil && r.AnnualizedReturn != nil && r.PercentFromHigh != nil {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return
	}

	sharpeN := normalize(idx, func(i int) float64 { return *results[i].SharpeRatio })
	returnN := normalize(idx, func(i int) float64 { return *results[i].AnnualizedReturn })
	recoveryN := normalize(idx, func(i int) float64 { return -*results[i].PercentFromHigh })
	for k, i := range idx {
		s := weightSharpe*sharpeN[k] + weightReturn*returnN[k] + weightRecovery*recoveryN[k]
		results[i].OpportunityScore = models.Float(s)
	}
}

func normalize(idx []int, value func(int) float64) []float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	vals := make([]float64, len(idx))
	for k, i := range idx {
		v := value(i)
		vals[k] = v
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	out := make([]float64, len(idx))
	for k, v := range vals {
		if hi == lo {
			out[k] = 0.5
			continue
		}
		out[k] = (v - lo) / (hi - lo)
	}
	return out
}

// Order sorts results by symbol, or by opportunity score descending when
// rank is set. Unscored results follow scored ones; ties go by symbol.
func Order(results []models.ScreeningResult, rank bool) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if rank {
			switch {
			case a.OpportunityScore != nil && b.OpportunityScore == nil:
				return true
			case a.OpportunityScore == nil && b.OpportunityScore != nil:
				return false
			case a.OpportunityScore != nil && *a.OpportunityScore != *b.OpportunityScore:
				return *a.OpportunityScore > *b.OpportunityScore
			}
		}
		return a.Symbol < b.Symbol
	})
}
