// Package scheduler runs screening on a cron schedule (daemon mode).
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/guttosm/finfetch/internal/domain/models"
	"github.com/guttosm/finfetch/internal/logger"
	"github.com/guttosm/finfetch/internal/service"
)

// Options configures the scheduled job.
type Options struct {
	Spec    string   // six-field cron expression, seconds first
	Symbols []string // symbols screened on every tick
	Rank    bool
	Persist bool
	Timeout time.Duration // per-run deadline, 0 means none
}

// Scheduler triggers a screening run on every tick of its cron spec.
// Overlapping ticks are skipped while a run is still in progress.
type Scheduler struct {
	cron    *cron.Cron
	entry   cron.EntryID
	svc     service.ScreeningService
	opts    Options
	ctx     context.Context
	log     zerolog.Logger
	onRun   func(*service.Report, error)
	started bool
}

// New validates opts and registers the screening job.
//
// Parameters:
//   - ctx (context.Context): bounds every run.
//   - svc (service.ScreeningService): the screening use case to run.
//   - opts (Options): cron spec, symbols and ranking.
//
// Returns:
//   - *Scheduler: not yet started.
//   - error: when the spec does not parse or no symbol is configured.
func New(ctx context.Context, svc service.ScreeningService, opts Options) (*Scheduler, error) {
	if len(models.DedupeSymbols(opts.Symbols)) == 0 {
		return nil, errors.New("scheduler: no symbols configured")
	}
	log := logger.Component("scheduler")
	cl := cronLogger{l: log}
	s := &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		svc:  svc,
		opts: opts,
		ctx:  ctx,
		log:  log,
	}
	id, err := s.cron.AddFunc(opts.Spec, func() { _, _ = s.RunNow() })
	if err != nil {
		return nil, fmt.Errorf("register screening job %q: %w", opts.Spec, err)
	}
	s.entry = id
	return s, nil
}

// OnRun installs a callback invoked after every run with its outcome.
// Must be called before Start.
func (s *Scheduler) OnRun(fn func(*service.Report, error)) { s.onRun = fn }

// Start starts the cron scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.started = true
	s.log.Info().Str("spec", s.opts.Spec).Time("next", s.Next()).Msg("scheduler started")
}

// Stop stops the scheduler and waits up to ctx for a running job to finish.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.log.Info().Msg("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

// Next returns the next activation time after now.
func (s *Scheduler) Next() time.Time {
	e := s.cron.Entry(s.entry)
	if s.started && !e.Next.IsZero() {
		return e.Next
	}
	if e.Schedule == nil {
		return time.Time{}
	}
	return e.Schedule.Next(time.Now())
}

// RunNow executes one screening run synchronously.
func (s *Scheduler) RunNow() (*service.Report, error) {
	ctx := s.ctx
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	rep, err := s.svc.Screen(ctx, service.ScreenRequest{
		Symbols: s.opts.Symbols,
		Rank:    s.opts.Rank,
		Persist: s.opts.Persist,
	})
	ev := s.log.Info()
	if err != nil {
		ev = s.log.Error().Err(err)
	}
	if rep != nil {
		ev = ev.Str("window", rep.Window.String()).Int("results", len(rep.Results)).Bool("partial", rep.Partial)
		if top := topPick(rep.Results); top != "" {
			ev = ev.Str("top", top)
		}
	}
	ev.Dur("elapsed", time.Since(start)).Msg("scheduled screening finished")

	if s.onRun != nil {
		s.onRun(rep, err)
	}
	return rep, err
}

func topPick(results []models.ScreeningResult) string {
	if len(results) == 0 || results[0].OpportunityScore == nil {
		return ""
	}
	return results[0].Symbol.String()
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct{ l zerolog.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug().Fields(keysAndValues).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
