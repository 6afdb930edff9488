// Package aggregation folds per-source raw series into one canonical series
// per symbol.
package aggregation

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/guttosm/finfetch/internal/collector"
	"github.com/guttosm/finfetch/internal/domain/models"
	"github.com/guttosm/finfetch/internal/logger"
)

// closeTolerance is the relative difference under which two closes agree.
const closeTolerance = 1e-9

// Aggregator merges RawSeries using a fixed source priority.
type Aggregator struct {
	priority map[string]int
	log      zerolog.Logger
}

// New builds an Aggregator from source names in priority order, highest
// first. Sources not listed rank after every listed one, by name.
func New(priorities []string) *Aggregator {
	p := make(map[string]int, len(priorities))
	for i, name := range priorities {
		if _, ok := p[name]; !ok {
			p[name] = i
		}
	}
	return &Aggregator{priority: p, log: logger.Component("aggregation")}
}

func (a *Aggregator) rank(source string) int {
	if r, ok := a.priority[source]; ok {
		return r
	}
	return math.MaxInt
}

// ordered returns the series sorted by (priority, source name), so the
// result never depends on the order fetches completed in.
func (a *Aggregator) ordered(series []models.RawSeries) []models.RawSeries {
	out := make([]models.RawSeries, len(series))
	copy(out, series)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := a.rank(out[i].Source), a.rank(out[j].Source)
		if ri != rj {
			return ri < rj
		}
		return out[i].Source < out[j].Source
	})
	return out
}

// clean drops invalid points, points outside the requested range and repeated
// dates, keeping the first occurrence. It returns the kept points by date,
// the number of invalid or out of range points and the number of repeats.
func clean(rs models.RawSeries) (kept map[time.Time]models.PricePoint, invalid, repeated int) {
	start, end := models.TruncateDate(rs.Start), models.TruncateDate(rs.End)
	kept = make(map[time.Time]models.PricePoint, len(rs.Points))
	for _, p := range rs.Points {
		if !p.Valid() {
			invalid++
			continue
		}
		d := models.TruncateDate(p.Date)
		if (!rs.Start.IsZero() && d.Before(start)) || (!rs.End.IsZero() && d.After(end)) {
			invalid++
			continue
		}
		if _, dup := kept[d]; dup {
			repeated++
			continue
		}
		p.Date = d
		kept[d] = p
	}
	return kept, invalid, repeated
}

// quality averages completeness and consistency over raw points.
func quality(raw, invalid, repeated int) float64 {
	if raw == 0 {
		return 0
	}
	completeness := 1 - float64(invalid)/float64(raw)
	consistency := 1 - float64(repeated)/float64(raw)
	return (completeness + consistency) / 2
}

func sameClose(a, b float64) bool {
	return math.Abs(a-b) <= closeTolerance*math.Max(math.Abs(a), math.Abs(b))
}

// Aggregate merges every RawSeries for symbol into one CanonicalSeries.
//
// For each date the highest-priority source wins; missing VWAP and
// transaction counts are taken from the next source reporting that date.
// All-empty input yields an empty series. Input that carried points but
// produced no valid one fails with ErrAggregation.
func (a *Aggregator) Aggregate(symbol models.Symbol, series []models.RawSeries) (models.CanonicalSeries, error) {
	out := models.CanonicalSeries{Symbol: symbol, Points: []models.PricePoint{}}

	merged := make(map[time.Time]models.PricePoint)
	winner := make(map[time.Time]string)
	raw, invalid, repeated := 0, 0, 0
	for _, rs := range a.ordered(series) {
		raw += len(rs.Points)
		kept, inv, rep := clean(rs)
		invalid += inv
		repeated += rep
		out.Dropped += inv + rep
		for d, p := range kept {
			cur, ok := merged[d]
			if !ok {
				merged[d] = p
				winner[d] = rs.Source
				continue
			}
			if !sameClose(cur.Close, p.Close) {
				out.Conflicts++
			}
			if cur.VWAP == nil && p.VWAP != nil {
				cur.VWAP = p.VWAP
			}
			if cur.Transactions == nil && p.Transactions != nil {
				cur.Transactions = p.Transactions
			}
			merged[d] = cur
		}
	}

	out.Quality = quality(raw, invalid, repeated)
	if raw > 0 && len(merged) == 0 {
		return out, fmt.Errorf("%w: %s: no valid points in %d raw points", models.ErrAggregation, symbol, raw)
	}

	out.Points = make([]models.PricePoint, 0, len(merged))
	for _, p := range merged {
		out.Points = append(out.Points, p)
	}
	sort.Slice(out.Points, func(i, j int) bool { return out.Points[i].Date.Before(out.Points[j].Date) })

	contributed := make(map[string]struct{})
	for _, src := range winner {
		contributed[src] = struct{}{}
	}
	for src := range contributed {
		out.Sources = append(out.Sources, src)
	}
	sort.Slice(out.Sources, func(i, j int) bool {
		ri, rj := a.rank(out.Sources[i]), a.rank(out.Sources[j])
		if ri != rj {
			return ri < rj
		}
		return out.Sources[i] < out.Sources[j]
	})

	if out.Conflicts > 0 || out.Dropped > 0 {
		a.log.Debug().Str("symbol", symbol.String()).Int("points", len(out.Points)).
			Int("conflicts", out.Conflicts).Int("dropped", out.Dropped).Msg("series merged")
	}
	return out, nil
}

// AggregateAll folds a collection wave. Failed fetches are skipped. Every
// symbol gets a series, empty when aggregation failed, and failures are
// returned per symbol. Series are ordered by symbol.
func (a *Aggregator) AggregateAll(results collector.Results) ([]models.CanonicalSeries, map[models.Symbol]error) {
	syms := make([]models.Symbol, 0, len(results))
	for s := range results {
		syms = append(syms, s)
	}
	sort.Slice(syms, func(i, j int) bool { return syms[i] < syms[j] })

	out := make([]models.CanonicalSeries, 0, len(syms))
	errs := make(map[models.Symbol]error)
	for _, sym := range syms {
		var series []models.RawSeries
		for _, r := range results[sym] {
			if r.OK() {
				series = append(series, r.Series)
			}
		}
		cs, err := a.Aggregate(sym, series)
		if err != nil {
			a.log.Warn().Str("symbol", sym.String()).Err(err).Msg("aggregation failed")
			errs[sym] = err
			cs = models.CanonicalSeries{Symbol: sym, Points: []models.PricePoint{}}
		}
		out = append(out, cs)
	}
	return out, errs
}
