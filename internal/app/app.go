package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/guttosm/finfetch/config"
	"github.com/guttosm/finfetch/internal/api"
	"github.com/guttosm/finfetch/internal/collector"
	"github.com/guttosm/finfetch/internal/domain/models"
	"github.com/guttosm/finfetch/internal/logger"
	"github.com/guttosm/finfetch/internal/screening"
	"github.com/guttosm/finfetch/internal/service"
	"github.com/guttosm/finfetch/internal/storage"
)

// App bundles the screening service with the resources it owns.
type App struct {
	Service service.ScreeningService
	Cached  bool

	db  *sql.DB
	rdb *redis.Client
}

// Build wires every layer from cfg.
//
// Behavior:
//   - Connects PostgreSQL and applies migrations, when POSTGRES_ENABLED.
//   - Connects the Redis series cache, when REDIS_ENABLED.
//   - Creates one source adapter per enabled provider.
//   - Builds the collector, screening engine and service.
//
// Parameters:
//   - cfg (config.Config): application configuration.
//
// Returns:
//   - *App: the wired application; callers must Close it.
//   - error: the first initialization failure, after releasing what was opened.
func Build(cfg config.Config) (*App, error) {
	log := logger.Component("app")
	a := &App{}

	var repo storage.ScreeningRepository
	if cfg.Postgres.Enabled {
		db, err := postgresOpener(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres: %w", err)
		}
		a.db = db
		if err := migrator(db); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to migrate postgres: %w", err)
		}
		repo = storage.NewScreeningRepository(db)
	}

	var cmd redis.Cmdable
	if cfg.Redis.Enabled {
		rdb, err := redisOpener(cfg)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		a.rdb, cmd, a.Cached = rdb, rdb, true
	}

	reg, err := BuildRegistry(cfg, cmd)
	if err != nil {
		a.Close()
		return nil, err
	}

	engine := screening.New(screening.Params{
		RiskFreeRate:        cfg.Screen.RiskFreeRate,
		LookbackYears:       cfg.Screen.LookbackYears,
		Week52LookbackWeeks: cfg.Screen.Week52LookbackWeeks,
		MinDataPoints:       cfg.Screen.MinDataPoints,
		Benchmark:           models.Symbol(cfg.Screen.Benchmark),
	})
	a.Service = service.NewScreeningService(reg, collector.New(cfg.Collector.MaxConcurrency), engine, repo)

	log.Info().
		Strs("sources", reg.Priorities()).
		Bool("persistence", repo != nil).
		Bool("cache", a.Cached).
		Int("max_concurrency", cfg.Collector.MaxConcurrency).
		Msg("application wired")
	return a, nil
}

// Checks returns the readiness checks of the resources in use.
func (a *App) Checks() map[string]api.Check {
	checks := map[string]api.Check{}
	if a.db != nil {
		checks["postgres"] = a.db.PingContext
	}
	if a.rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return a.rdb.Ping(ctx).Err() }
	}
	return checks
}

// Close releases database and cache connections.
func (a *App) Close() {
	if a.db != nil {
		_ = a.db.Close()
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
}

// NewRouter mounts the HTTP API and readiness checks for a.
func NewRouter(a *App, cfg config.Config) *gin.Engine {
	handler := api.NewHandler(a.Service, a.Cached)
	router := api.NewRouter(handler, api.RouterConfig{
		RequestTimeout: cfg.Server.RequestTimeout,
		RateLimit:      cfg.Server.RateLimit,
		RateWindow:     cfg.Server.RateWindow,
	})
	api.NewHealthHandler(a.Checks()).Register(router)
	return router
}

// InitializeApp sets up all application dependencies and returns
// a fully configured Gin router, a cleanup function for graceful shutdown,
// and any error encountered during initialization.
//
// Returns:
//   - *gin.Engine: the configured Gin HTTP router.
//   - func(): cleanup function to be executed on shutdown.
//   - error: any initialization error that occurred.
func InitializeApp() (*gin.Engine, func(), error) {
	cfg := config.AppConfig

	a, err := Build(cfg)
	if err != nil {
		return nil, nil, err
	}
	return NewRouter(a, cfg), a.Close, nil
}
