package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/guttosm/finfetch/config"
	"github.com/guttosm/finfetch/internal/storage"

	_ "github.com/lib/pq" // PostgreSQL driver for database/sql
)

// sqlOpener is an indirection for unit testing; defaults to sql.Open
var sqlOpener = sql.Open

// InitPostgres opens a PostgreSQL pool from cfg.Postgres and pings it.
//
// Behavior:
//   - Uses cfg.Postgres.URL as the DSN when set, otherwise assembles it from the individual fields.
//   - Opens the pool with the "postgres" driver and pings it with a short timeout.
//   - Closes the pool again when the ping fails.
//
// Parameters:
//   - cfg (config.Config): application configuration.
//
// Returns:
//   - *sql.DB: a pool safe for concurrent use.
//   - error: when the pool cannot be opened or reached.
//
// Example usage:
//
//	db, err := app.InitPostgres(config.AppConfig)
//	if err != nil {
//	    log.Fatalf("❌ failed to connect: %v", err)
//	}
//	defer db.Close()
func InitPostgres(cfg config.Config) (*sql.DB, error) {
	dsn := cfg.Postgres.URL
	if dsn == "" {
		dsn = fmt.Sprintf(
			"postgres://%s:%s@%s:%d/%s?sslmode=%s",
			cfg.Postgres.User,
			cfg.Postgres.Password,
			cfg.Postgres.Host,
			cfg.Postgres.Port,
			cfg.Postgres.DBName,
			cfg.Postgres.SSLMode,
		)
	}

	db, err := sqlOpener("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return db, nil
}

// postgresOpener and migrator are indirections used by Build; overridden in
// tests to avoid real connections.
var (
	postgresOpener = InitPostgres
	migrator       = storage.Migrate
)
