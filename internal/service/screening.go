package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/guttosm/finfetch/internal/aggregation"
	"github.com/guttosm/finfetch/internal/calendar"
	"github.com/guttosm/finfetch/internal/collector"
	"github.com/guttosm/finfetch/internal/domain/models"
	"github.com/guttosm/finfetch/internal/logger"
	"github.com/guttosm/finfetch/internal/screening"
	"github.com/guttosm/finfetch/internal/storage"
)

// ErrPersistenceDisabled is returned for run history operations when no
// repository is configured.
var ErrPersistenceDisabled = errors.New("persistence is disabled")

// ScreenRequest describes one screening run.
type ScreenRequest struct {
	Symbols []string
	Start   *time.Time
	End     *time.Time
	Days    int      // calendar-day lookback when Start is nil
	Rank    bool     // order by opportunity score
	Sources []string // subset of registered sources; empty means all
	Persist bool
}

// SourceOutcome reports how one source did for one symbol.
type SourceOutcome struct {
	Source  string        `json:"source"`
	OK      bool          `json:"ok"`
	Points  int           `json:"points"`
	Kind    string        `json:"kind,omitempty"`
	Error   string        `json:"error,omitempty"`
	Elapsed time.Duration `json:"elapsed_ns"`
}

// SymbolOutcome collects the per-source outcomes and aggregation stats for
// one symbol.
type SymbolOutcome struct {
	Symbol           models.Symbol   `json:"symbol"`
	Sources          []SourceOutcome `json:"sources"`
	Conflicts        int             `json:"conflicts"`
	Dropped          int             `json:"dropped"`
	AggregationError string          `json:"aggregation_error,omitempty"`
}

// Report is the outcome of a screening run.
type Report struct {
	RunID           uuid.UUID
	Window          calendar.Window
	Sources         []string
	Ranked          bool
	Partial         bool          // collection was interrupted
	Benchmark       models.Symbol // empty when disabled
	BenchmarkPoints int           // zero when the benchmark could not be collected
	Results         []models.ScreeningResult
	Outcomes        []SymbolOutcome
}

// ScreeningService runs the collect, aggregate, screen pipeline.
type ScreeningService interface {
	Screen(ctx context.Context, req ScreenRequest) (*Report, error)
	Sources() []collector.SourceInfo
	GetRun(ctx context.Context, id uuid.UUID) (*models.ScreeningRun, error)
	ListRuns(ctx context.Context, limit int) ([]models.RunSummary, error)
}

type screeningService struct {
	registry  *collector.Registry
	collector *collector.Collector
	engine    *screening.Engine
	repo      storage.ScreeningRepository
	now       func() time.Time
	log       zerolog.Logger
}

// NewScreeningService wires the pipeline. repo may be nil, which disables
// persistence and run history.
func NewScreeningService(reg *collector.Registry, coll *collector.Collector, engine *screening.Engine, repo storage.ScreeningRepository) ScreeningService {
	return &screeningService{
		registry:  reg,
		collector: coll,
		engine:    engine,
		repo:      repo,
		now:       time.Now,
		log:       logger.Component("service"),
	}
}

func (s *screeningService) Sources() []collector.SourceInfo {
	return s.registry.Infos()
}

// Screen resolves the window, collects every (symbol, source) pair,
// aggregates per symbol, computes metrics and optionally persists the run.
//
// Behavior:
//   - The engine's benchmark symbol is collected in the same wave. Unless it
//     was requested too, it is left out of the results and outcomes.
//   - A benchmark that cannot be collected is logged and screening goes on
//     without it.
//   - When ctx is cancelled during collection the report is still built from
//     the pairs that completed, marked Partial, and returned with the error.
//
// Returns:
//   - *Report: the run; nil only when a precondition failed.
//   - error: ErrPersistenceDisabled, models.ErrNoSourcesConfigured, a
//     date range error, the collection error or a persistence error.
func (s *screeningService) Screen(ctx context.Context, req ScreenRequest) (*Report, error) {
	if req.Persist && s.repo == nil {
		return nil, ErrPersistenceDisabled
	}
	sources, err := s.registry.Select(req.Sources)
	if err != nil {
		return nil, err
	}
	window, err := calendar.ResolveWindow(s.now(), req.Start, req.End, req.Days, s.engine.Params().LookbackYears)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(sources))
	for i, a := range sources {
		names[i] = a.Name()
	}
	rep := &Report{Window: window, Sources: names, Ranked: req.Rank, Results: []models.ScreeningResult{}}

	bench := s.engine.Params().Benchmark
	symbols, extra := withBenchmark(req.Symbols, bench)
	rep.Benchmark = bench

	collected, collectErr := s.collector.Collect(ctx, symbols, window.Start, window.End, sources)
	if collectErr != nil && collected == nil {
		return nil, collectErr
	}
	rep.Partial = collectErr != nil

	series, aggErrs := aggregation.New(s.registry.Priorities()).AggregateAll(collected)
	var benchSeries models.CanonicalSeries
	for _, cs := range series {
		if bench != "" && cs.Symbol == bench {
			benchSeries = cs
		}
	}
	if extra {
		series = withoutSymbol(series, bench)
		delete(collected, bench)
		delete(aggErrs, bench)
	}
	rep.BenchmarkPoints = benchSeries.Len()
	if bench != "" && len(series) > 0 && benchSeries.Len() == 0 {
		s.log.Warn().Str("benchmark", bench.String()).Msg("benchmark unavailable, alpha falls back to excess return")
	}

	results, err := s.engine.ScreenAgainst(context.WithoutCancel(ctx), series, benchSeries, req.Rank)
	if err != nil {
		return nil, err
	}
	rep.Results = results
	rep.Outcomes = outcomes(collected, series, aggErrs)

	if collectErr != nil {
		return rep, collectErr
	}

	if req.Persist {
		run := &models.ScreeningRun{
			WindowStart: window.Start,
			WindowEnd:   window.End,
			Symbols:     symbolsOf(series),
			Sources:     names,
			Ranked:      req.Rank,
			Results:     results,
		}
		if err := s.repo.SaveRun(ctx, run); err != nil {
			return rep, fmt.Errorf("persist run: %w", err)
		}
		rep.RunID = run.ID
	}

	s.log.Info().
		Str("window", window.String()).
		Int("symbols", len(results)).
		Strs("sources", names).
		Str("run_id", runIDString(rep.RunID)).
		Msg("screening run complete")
	return rep, nil
}

func (s *screeningService) GetRun(ctx context.Context, id uuid.UUID) (*models.ScreeningRun, error) {
	if s.repo == nil {
		return nil, ErrPersistenceDisabled
	}
	return s.repo.GetRun(ctx, id)
}

func (s *screeningService) ListRuns(ctx context.Context, limit int) ([]models.RunSummary, error) {
	if s.repo == nil {
		return nil, ErrPersistenceDisabled
	}
	return s.repo.ListRuns(ctx, limit)
}

func outcomes(collected collector.Results, series []models.CanonicalSeries, aggErrs map[models.Symbol]error) []SymbolOutcome {
	bySymbol := make(map[models.Symbol]models.CanonicalSeries, len(series))
	for _, cs := range series {
		bySymbol[cs.Symbol] = cs
	}
	out := make([]SymbolOutcome, 0, len(collected))
	for sym, results := range collected {
		o := SymbolOutcome{Symbol: sym, Sources: make([]SourceOutcome, 0, len(results))}
		for _, r := range results {
			so := SourceOutcome{Source: r.Source, OK: r.OK(), Elapsed: r.Elapsed}
			if r.OK() {
				so.Points = len(r.Series.Points)
			} else {
				so.Kind = models.ErrorKind(r.Err)
				so.Error = r.Err.Error()
			}
			o.Sources = append(o.Sources, so)
		}
		if cs, ok := bySymbol[sym]; ok {
			o.Conflicts, o.Dropped = cs.Conflicts, cs.Dropped
		}
		if err := aggErrs[sym]; err != nil {
			o.AggregationError = err.Error()
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// withBenchmark appends bench to the requested symbols unless it is already
// among them or nothing was requested. extra reports whether it was added.
func withBenchmark(requested []string, bench models.Symbol) (symbols []string, extra bool) {
	syms := models.DedupeSymbols(requested)
	if bench == "" || len(syms) == 0 {
		return requested, false
	}
	for _, s := range syms {
		if s == bench {
			return requested, false
		}
	}
	symbols = append(make([]string, 0, len(requested)+1), requested...)
	return append(symbols, bench.String()), true
}

func withoutSymbol(series []models.CanonicalSeries, sym models.Symbol) []models.CanonicalSeries {
	out := series[:0:0]
	for _, cs := range series {
		if cs.Symbol != sym {
			out = append(out, cs)
		}
	}
	return out
}

func symbolsOf(series []models.CanonicalSeries) []string {
	out := make([]string, len(series))
	for i, cs := range series {
		out[i] = cs.Symbol.String()
	}
	return out
}

func runIDString(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}
