package main

//
//  @title           finfetch API
//  @version         1.0
//  @description     Multi-source equity history collection and screening service.
//  @termsOfService  https://github.com/guttosm/finfetch
//  @contact.name    API Support
//  @contact.url     https://github.com/guttosm/finfetch
//  @contact.email   support@example.com
//  @license.name    MIT
//  @license.url     https://opensource.org/licenses/MIT
//  @host            localhost:8080
//  @BasePath        /
//  @schemes         http
//
//  @tag.name        screening
//  @tag.description Collect, merge and screen daily price history
//
//  @tag.name        runs
//  @tag.description Persisted screening runs
//
//  @tag.name        health
//  @tag.description Liveness and readiness checks

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/guttosm/finfetch/config"
	_ "github.com/guttosm/finfetch/docs" // swagger docs
	"github.com/guttosm/finfetch/internal/app"
	"github.com/guttosm/finfetch/internal/domain/models"
	"github.com/guttosm/finfetch/internal/logger"
	"github.com/guttosm/finfetch/internal/report"
	"github.com/guttosm/finfetch/internal/scheduler"
	"github.com/guttosm/finfetch/internal/service"
)

// startServer initializes and starts the HTTP server in a separate goroutine.
//
// Parameters:
//   - router (http.Handler): The HTTP router (Gin Engine) configured with all routes.
//   - port (string): The port where the server will listen for incoming requests.
//
// Returns:
//   - *http.Server: The initialized HTTP server instance.
func startServer(router http.Handler, port string, writeTimeout time.Duration) *http.Server {
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      writeTimeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.L().Info().Str("port", port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatal().Err(err).Msg("server failed to start")
		}
	}()

	return server
}

// gracefulShutdown gracefully terminates the HTTP server and cleans up resources
// when an OS interrupt signal (SIGINT, SIGTERM) is received.
//
// Parameters:
//   - ctx (context.Context): A context with timeout for graceful shutdown.
//   - server (*http.Server): The HTTP server instance to shut down.
//   - cleanup (func()): Cleanup callback to release resources (e.g., DB connections).
func gracefulShutdown(ctx context.Context, server *http.Server, cleanup func()) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	<-quit
	logger.L().Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.L().Error().Err(err).Msg("server forced to shutdown")
	}

	cleanup()
	logger.L().Info().Msg("server exited gracefully")
}

// screenOptions are the CLI flags of screen mode.
type screenOptions struct {
	symbols string
	start   string
	end     string
	days    int
	rank    bool
	format  string
	sources string
	persist bool
}

// request validates the flags and builds the service request.
func (o screenOptions) request() (service.ScreenRequest, report.Format, error) {
	req := service.ScreenRequest{
		Symbols: splitFlag(o.symbols),
		Sources: splitFlag(o.sources),
		Days:    o.days,
		Rank:    o.rank,
		Persist: o.persist,
	}
	if len(models.DedupeSymbols(req.Symbols)) == 0 {
		return req, "", errors.New("--symbols is required")
	}
	if o.days < 0 {
		return req, "", errors.New("--days must be positive")
	}
	for _, d := range []struct {
		flag string
		raw  string
		dst  **time.Time
	}{{"--start", o.start, &req.Start}, {"--end", o.end, &req.End}} {
		if d.raw == "" {
			continue
		}
		t, err := time.Parse(models.DateLayout, d.raw)
		if err != nil {
			return req, "", fmt.Errorf("%s: expected YYYY-MM-DD: %w", d.flag, err)
		}
		*d.dst = &t
	}
	format, err := report.ParseFormat(o.format)
	if err != nil {
		return req, "", err
	}
	return req, format, nil
}

// runScreen executes one screening run and writes the results to w. When the
// run is interrupted the partial results are still written and the error is
// returned.
func runScreen(ctx context.Context, svc service.ScreeningService, req service.ScreenRequest, format report.Format, w io.Writer) error {
	rep, err := svc.Screen(ctx, req)
	if rep == nil {
		return err
	}
	logOutcomes(rep)
	if werr := report.Write(w, format, rep.Results); werr != nil {
		return errors.Join(err, fmt.Errorf("write report: %w", werr))
	}
	if rep.RunID != uuid.Nil {
		logger.L().Info().Str("run_id", rep.RunID.String()).Msg("run persisted")
	}
	return err
}

func logOutcomes(rep *service.Report) {
	log := logger.Component("cli")
	for _, o := range rep.Outcomes {
		for _, s := range o.Sources {
			if !s.OK {
				log.Warn().Str("symbol", o.Symbol.String()).Str("source", s.Source).Str("kind", s.Kind).Msg(s.Error)
			}
		}
		if o.AggregationError != "" {
			log.Warn().Str("symbol", o.Symbol.String()).Msg(o.AggregationError)
		}
	}
	if rep.Partial {
		log.Warn().Msg("collection was interrupted, results are partial")
	}
}

func splitFlag(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// main is the entry point of the finfetch application.
//
// Modes (selected via --mode flag):
//   - screen: Runs one screening pass and prints the results (default).
//   - api:    Starts the REST API.
//   - daemon: Starts the REST API plus the cron-scheduled screening job.
func main() {
	ctx := context.Background()

	// Load configuration from environment or .env file
	config.LoadConfig()
	cfg := config.AppConfig

	mode := flag.String("mode", "screen", "Mode: screen, api or daemon")
	var opts screenOptions
	flag.StringVar(&opts.symbols, "symbols", "", "Comma separated tickers (daemon: overrides SCHEDULE_SYMBOLS)")
	flag.StringVar(&opts.start, "start", "", "Start date YYYY-MM-DD")
	flag.StringVar(&opts.end, "end", "", "End date YYYY-MM-DD (default: last trading day)")
	flag.IntVar(&opts.days, "days", 0, "Calendar-day lookback when --start is omitted (default: SCREEN_LOOKBACK_YEARS)")
	flag.BoolVar(&opts.rank, "rank", false, "Order by opportunity score")
	flag.StringVar(&opts.format, "format", "table", "Output format: table, csv or json")
	flag.StringVar(&opts.sources, "sources", "", "Comma separated provider subset (default: all enabled)")
	flag.BoolVar(&opts.persist, "persist", false, "Store the run in Postgres")
	out := flag.String("out", "", "Write results to this file instead of stdout")
	port := flag.String("port", cfg.Server.Port, "Port for api and daemon modes")
	runNow := flag.Bool("run-now", false, "Daemon: run the screening job once at startup")
	files := flag.String("files", cfg.Files.Dir, "Directory of <SYMBOL>.csv history files to use as a source")
	flag.Parse()

	config.AppConfig.Files.Dir = *files
	cfg = config.AppConfig

	switch *mode {
	case "screen":
		// stdout carries the report
		logger.InitWithWriter(os.Stderr)

		req, format, err := opts.request()
		if err != nil {
			logger.L().Fatal().Err(err).Msg("invalid arguments")
		}
		a, err := app.Build(cfg)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("app init error")
		}

		var w io.Writer = os.Stdout
		if *out != "" {
			f, err := os.Create(*out)
			if err != nil {
				a.Close()
				logger.L().Fatal().Err(err).Msg("cannot create output file")
			}
			defer func() { _ = f.Close() }()
			w = f
		}

		sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		err = runScreen(sigCtx, a.Service, req, format, w)
		stop()
		a.Close()
		if err != nil {
			logger.L().Error().Err(err).Msg("screening failed")
			os.Exit(1)
		}

	case "api":
		logger.Init()
		logger.L().Info().Msg("starting API server")

		router, cleanup, err := app.InitializeApp()
		if err != nil {
			logger.L().Fatal().Err(err).Msg("app init error")
		}

		server := startServer(router, *port, cfg.Server.RequestTimeout)
		gracefulShutdown(ctx, server, cleanup)

	case "daemon":
		logger.Init()
		logger.L().Info().Msg("starting daemon")

		a, err := app.Build(cfg)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("app init error")
		}
		symbols := cfg.Schedule.Symbols
		if s := splitFlag(opts.symbols); len(s) > 0 {
			symbols = s
		}
		runCtx, cancelRuns := context.WithCancel(ctx)
		sched, err := scheduler.New(runCtx, a.Service, scheduler.Options{
			Spec:    cfg.Schedule.Cron,
			Symbols: symbols,
			Rank:    cfg.Schedule.Rank,
			Persist: cfg.Postgres.Enabled,
			Timeout: cfg.Server.RequestTimeout,
		})
		if err != nil {
			cancelRuns()
			a.Close()
			logger.L().Fatal().Err(err).Msg("scheduler init error")
		}
		sched.Start()
		if *runNow {
			go func() { _, _ = sched.RunNow() }()
		}

		server := startServer(app.NewRouter(a, cfg), *port, cfg.Server.RequestTimeout)
		gracefulShutdown(ctx, server, func() {
			cancelRuns()
			stopCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			if err := sched.Stop(stopCtx); err != nil {
				logger.L().Warn().Err(err).Msg("scheduler did not stop in time")
			}
			a.Close()
		})

	default:
		logger.L().Fatal().Str("mode", *mode).Msg("unknown mode")
	}
}
