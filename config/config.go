package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/guttosm/finfetch/internal/domain/models"
	"github.com/guttosm/finfetch/internal/source"
)

// Config holds the full application configuration loaded from environment
// variables or a .env file.
//
// Example ENV:
//
//	SERVER_PORT=8080
//	YAHOO_RATE_LIMIT=60
//	POLYGON_ENABLED=true
//	POLYGON_API_KEY=...
//	REDIS_ENABLED=true
//	SCREEN_MIN_DATA_POINTS=1000
//	SCREEN_BENCHMARK=SPY
type Config struct {
	Server    ServerConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Providers map[string]ProviderConfig // keyed by source name
	Files     FileSourceConfig
	Retry     RetryConfig
	Collector CollectorConfig
	Screen    ScreenConfig
	Schedule  ScheduleConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           string
	RateLimit      int // requests per RateWindow per client IP
	RateWindow     time.Duration
	RequestTimeout time.Duration
}

// PostgresConfig defines connection details for PostgreSQL.
// Persistence of screening runs is only active when Enabled.
type PostgresConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	URL      string
}

// RedisConfig configures the raw series cache.
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	TTL      time.Duration
}

// Addr returns host:port.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// ProviderConfig is one market data provider's settings.
type ProviderConfig struct {
	Enabled      bool
	APIKey       string
	BaseURL      string
	RateLimit    int
	RateInterval time.Duration
	Timeout      time.Duration
	Priority     int
}

// FileSourceConfig enables the local history file adapter when Dir is set.
type FileSourceConfig struct {
	Dir      string
	Priority int
}

// RetryConfig bounds adapter retries.
type RetryConfig struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// CollectorConfig tunes the fetch fan-out.
type CollectorConfig struct {
	MaxConcurrency int // 0 means unbounded
}

// ScreenConfig holds screening parameters.
type ScreenConfig struct {
	RiskFreeRate        float64
	LookbackYears       int
	Week52LookbackWeeks int
	MinDataPoints       int
	Benchmark           string // alpha/beta reference symbol; empty disables
}

// ScheduleConfig drives daemon mode.
type ScheduleConfig struct {
	Cron    string
	Symbols []string
	Rank    bool
}

// providers lists the known sources and their defaults.
var providers = []struct {
	name      string
	enabled   bool
	rateLimit int
	priority  int
	needsKey  bool
}{
	{source.Yahoo, true, 60, 1, false},
	{source.Polygon, false, 5, 2, true},
	{source.AlphaVantage, false, 5, 3, true},
}

// AppConfig is the globally accessible configuration instance.
//
// It is populated once via LoadConfig() and used throughout the application.
var AppConfig Config

// LoadConfig initializes the global AppConfig by reading from .env file
// or directly from environment variables.
//
// Precedence (from lowest to highest):
//  1. Defaults set in this function.
//  2. Values from .env file (if present).
//  3. Environment variables.
//
// Fatal exit:
//   - If required variables are missing or invalid, validateConfig() will
//     terminate the app with a descriptive log message.
func LoadConfig() {
	setDefaults()

	// Optionally read from .env if present (common in local dev)
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig() // ignore error if no .env

	viper.AutomaticEnv()

	AppConfig = Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			RateLimit:      viper.GetInt("HTTP_RATE_LIMIT"),
			RateWindow:     viper.GetDuration("HTTP_RATE_WINDOW"),
			RequestTimeout: viper.GetDuration("HTTP_REQUEST_TIMEOUT"),
		},
		Postgres: PostgresConfig{
			Enabled:  viper.GetBool("POSTGRES_ENABLED"),
			Host:     viper.GetString("POSTGRES_HOST"),
			Port:     viper.GetInt("POSTGRES_PORT"),
			User:     viper.GetString("POSTGRES_USER"),
			Password: viper.GetString("POSTGRES_PASSWORD"),
			DBName:   viper.GetString("POSTGRES_DB"),
			SSLMode:  viper.GetString("POSTGRES_SSLMODE"),
		},
		Redis: RedisConfig{
			Enabled:  viper.GetBool("REDIS_ENABLED"),
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetInt("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
			TTL:      viper.GetDuration("CACHE_TTL"),
		},
		Providers: make(map[string]ProviderConfig, len(providers)),
		Files: FileSourceConfig{
			Dir:      viper.GetString("FILE_SOURCE_DIR"),
			Priority: viper.GetInt("FILE_SOURCE_PRIORITY"),
		},
		Retry: RetryConfig{
			MaxAttempts:     viper.GetInt("RETRY_MAX_ATTEMPTS"),
			InitialInterval: viper.GetDuration("RETRY_INITIAL_INTERVAL"),
			MaxInterval:     viper.GetDuration("RETRY_MAX_INTERVAL"),
		},
		Collector: CollectorConfig{
			MaxConcurrency: viper.GetInt("COLLECTOR_MAX_CONCURRENCY"),
		},
		Screen: ScreenConfig{
			RiskFreeRate:        viper.GetFloat64("SCREEN_RISK_FREE_RATE"),
			LookbackYears:       viper.GetInt("SCREEN_LOOKBACK_YEARS"),
			Week52LookbackWeeks: viper.GetInt("SCREEN_WEEK52_LOOKBACK_WEEKS"),
			MinDataPoints:       viper.GetInt("SCREEN_MIN_DATA_POINTS"),
			Benchmark:           strings.ToUpper(strings.TrimSpace(viper.GetString("SCREEN_BENCHMARK"))),
		},
		Schedule: ScheduleConfig{
			Cron:    viper.GetString("SCHEDULE_CRON"),
			Symbols: splitList(viper.GetString("SCHEDULE_SYMBOLS")),
			Rank:    viper.GetBool("SCHEDULE_RANK"),
		},
	}

	for _, p := range providers {
		prefix := strings.ToUpper(p.name) + "_"
		AppConfig.Providers[p.name] = ProviderConfig{
			Enabled:      viper.GetBool(prefix + "ENABLED"),
			APIKey:       viper.GetString(prefix + "API_KEY"),
			BaseURL:      viper.GetString(prefix + "BASE_URL"),
			RateLimit:    viper.GetInt(prefix + "RATE_LIMIT"),
			RateInterval: viper.GetDuration(prefix + "RATE_INTERVAL"),
			Timeout:      viper.GetDuration(prefix + "TIMEOUT"),
			Priority:     viper.GetInt(prefix + "PRIORITY"),
		}
	}

	// Construct Postgres DSN (used by database/sql)
	AppConfig.Postgres.URL = fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		AppConfig.Postgres.User,
		AppConfig.Postgres.Password,
		AppConfig.Postgres.Host,
		AppConfig.Postgres.Port,
		AppConfig.Postgres.DBName,
		AppConfig.Postgres.SSLMode,
	)

	validateConfig()
}

func setDefaults() {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("HTTP_RATE_LIMIT", 60)
	viper.SetDefault("HTTP_RATE_WINDOW", time.Minute)
	viper.SetDefault("HTTP_REQUEST_TIMEOUT", 2*time.Minute)

	viper.SetDefault("POSTGRES_ENABLED", false)
	viper.SetDefault("POSTGRES_HOST", "localhost")
	viper.SetDefault("POSTGRES_PORT", 5432)
	viper.SetDefault("POSTGRES_USER", "postgres")
	viper.SetDefault("POSTGRES_PASSWORD", "postgres")
	viper.SetDefault("POSTGRES_DB", "finfetch")
	viper.SetDefault("POSTGRES_SSLMODE", "disable")

	viper.SetDefault("REDIS_ENABLED", false)
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", 6379)
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("CACHE_TTL", 6*time.Hour)

	for _, p := range providers {
		prefix := strings.ToUpper(p.name) + "_"
		viper.SetDefault(prefix+"ENABLED", p.enabled)
		viper.SetDefault(prefix+"API_KEY", "")
		viper.SetDefault(prefix+"BASE_URL", "")
		viper.SetDefault(prefix+"RATE_LIMIT", p.rateLimit)
		viper.SetDefault(prefix+"RATE_INTERVAL", time.Minute)
		viper.SetDefault(prefix+"TIMEOUT", 30*time.Second)
		viper.SetDefault(prefix+"PRIORITY", p.priority)
	}

	viper.SetDefault("FILE_SOURCE_DIR", "")
	viper.SetDefault("FILE_SOURCE_PRIORITY", 4)

	viper.SetDefault("RETRY_MAX_ATTEMPTS", 3)
	viper.SetDefault("RETRY_INITIAL_INTERVAL", 500*time.Millisecond)
	viper.SetDefault("RETRY_MAX_INTERVAL", 10*time.Second)

	viper.SetDefault("COLLECTOR_MAX_CONCURRENCY", 8)

	viper.SetDefault("SCREEN_RISK_FREE_RATE", 0.03)
	viper.SetDefault("SCREEN_LOOKBACK_YEARS", 5)
	viper.SetDefault("SCREEN_WEEK52_LOOKBACK_WEEKS", 52)
	viper.SetDefault("SCREEN_MIN_DATA_POINTS", 1000)
	viper.SetDefault("SCREEN_BENCHMARK", "SPY")

	viper.SetDefault("SCHEDULE_CRON", "0 30 18 * * 1-5")
	viper.SetDefault("SCHEDULE_SYMBOLS", "")
	viper.SetDefault("SCHEDULE_RANK", true)
}

// SourceConfigs returns the per-provider settings keyed by source name.
func (c Config) SourceConfigs() map[string]models.SourceConfig {
	out := make(map[string]models.SourceConfig, len(c.Providers))
	for name, p := range c.Providers {
		out[name] = models.SourceConfig{
			Name:         name,
			Enabled:      p.Enabled,
			APIKey:       p.APIKey,
			BaseURL:      p.BaseURL,
			RateLimit:    p.RateLimit,
			RateInterval: p.RateInterval,
			Timeout:      p.Timeout,
			Priority:     p.Priority,
		}
	}
	return out
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// problems lists every missing or invalid setting in AppConfig.
func problems() []string {
	var out []string

	if AppConfig.Server.Port == "" {
		out = append(out, "SERVER_PORT is required")
	}
	if AppConfig.Postgres.Enabled {
		pg := AppConfig.Postgres
		for key, missing := range map[string]bool{
			"POSTGRES_HOST":     pg.Host == "",
			"POSTGRES_PORT":     pg.Port == 0,
			"POSTGRES_USER":     pg.User == "",
			"POSTGRES_PASSWORD": pg.Password == "",
			"POSTGRES_DB":       pg.DBName == "",
		} {
			if missing {
				out = append(out, key+" is required when POSTGRES_ENABLED")
			}
		}
	}
	if AppConfig.Redis.Enabled && (AppConfig.Redis.Host == "" || AppConfig.Redis.Port == 0) {
		out = append(out, "REDIS_HOST and REDIS_PORT are required when REDIS_ENABLED")
	}

	enabled := 0
	if AppConfig.Files.Dir != "" {
		enabled++
	}
	for _, p := range providers {
		pc, ok := AppConfig.Providers[p.name]
		if !ok || !pc.Enabled {
			continue
		}
		enabled++
		prefix := strings.ToUpper(p.name) + "_"
		if p.needsKey && pc.APIKey == "" {
			out = append(out, prefix+"API_KEY is required when "+prefix+"ENABLED")
		}
		if pc.RateLimit < 0 {
			out = append(out, prefix+"RATE_LIMIT must be >= 0")
		}
	}
	if enabled == 0 {
		out = append(out, "at least one provider must be enabled")
	}

	if AppConfig.Retry.MaxAttempts < 1 {
		out = append(out, "RETRY_MAX_ATTEMPTS must be >= 1")
	}
	if AppConfig.Collector.MaxConcurrency < 0 {
		out = append(out, "COLLECTOR_MAX_CONCURRENCY must be >= 0")
	}
	s := AppConfig.Screen
	if s.RiskFreeRate < 0 || s.RiskFreeRate > 1 {
		out = append(out, "SCREEN_RISK_FREE_RATE must be within [0, 1]")
	}
	if s.LookbackYears < 1 {
		out = append(out, "SCREEN_LOOKBACK_YEARS must be >= 1")
	}
	if s.Week52LookbackWeeks < 1 {
		out = append(out, "SCREEN_WEEK52_LOOKBACK_WEEKS must be >= 1")
	}
	if s.MinDataPoints < 2 {
		out = append(out, "SCREEN_MIN_DATA_POINTS must be >= 2")
	}
	return out
}

// validateConfig terminates the application with log.Fatalf when any
// setting is missing or invalid.
func validateConfig() {
	if p := problems(); len(p) > 0 {
		log.Fatalf("invalid configuration: %s\n", strings.Join(p, "; "))
	}
}
