package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	pq "github.com/lib/pq"

	"github.com/guttosm/finfetch/internal/domain/models"
)

// ErrRunNotFound is returned when no run matches the requested id.
var ErrRunNotFound = errors.New("screening run not found")

// ScreeningRepository defines contract for DB operations.
type ScreeningRepository interface {
	SaveRun(ctx context.Context, run *models.ScreeningRun) error
	GetRun(ctx context.Context, id uuid.UUID) (*models.ScreeningRun, error)
	ListRuns(ctx context.Context, limit int) ([]models.RunSummary, error)
}

type screeningRepository struct {
	db *sql.DB
}

// NewScreeningRepository creates a new instance of ScreeningRepository.
//
// Parameters:
//   - db: an open *sql.DB with the goose migrations applied.
//
// Returns:
//   - ScreeningRepository: a PostgreSQL-backed implementation.
func NewScreeningRepository(db *sql.DB) ScreeningRepository {
	return &screeningRepository{db: db}
}

var resultColumns = []string{
	"run_id",
	"position",
	"symbol",
	"data_points",
	"insufficient_data",
	"first_date",
	"last_date",
	"annualized_return",
	"sharpe_ratio",
	"percent_from_high",
	"volatility",
	"max_drawdown",
	"opportunity_score",
	"total_return",
	"current_price",
	"high_52w",
	"low_52w",
	"percent_from_low",
	"alpha",
	"beta",
	"rsi_14",
	"sma_20",
	"sma_50",
	"volume_ratio",
	"data_quality",
	"sources",
}

// helper to map zero-value dates and nil metrics to NULL
func toNullDate(d time.Time) interface{} {
	if d.IsZero() {
		return nil
	}
	return d
}

func toNullFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

// SaveRun inserts the run row and bulk-loads its results in one transaction.
// A nil ID is assigned a new UUID; a zero CreatedAt is set to now.
func (r *screeningRepository) SaveRun(ctx context.Context, run *models.ScreeningRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO screening_runs (id, created_at, window_start, window_end, symbols, sources, ranked)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		run.ID, run.CreatedAt, run.WindowStart, run.WindowEnd,
		pq.Array(nonNil(run.Symbols)), pq.Array(nonNil(run.Sources)), run.Ranked,
	); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert run: %w", err)
	}

	if len(run.Results) == 0 {
		return tx.Commit()
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("screening_results", resultColumns...))
	if err != nil {
		_ = tx.Rollback()
		return err
	}

	for i, res := range run.Results {
		if _, err := stmt.ExecContext(ctx,
			run.ID.String(),
			i,
			res.Symbol.String(),
			res.DataPoints,
			res.Insufficient,
			toNullDate(res.FirstDate),
			toNullDate(res.LastDate),
			toNullFloat(res.AnnualizedReturn),
			toNullFloat(res.SharpeRatio),
			toNullFloat(res.PercentFromHigh),
			toNullFloat(res.Volatility),
			toNullFloat(res.MaxDrawdown),
			toNullFloat(res.OpportunityScore),
			toNullFloat(res.TotalReturn),
			toNullFloat(res.CurrentPrice),
			toNullFloat(res.High52w),
			toNullFloat(res.Low52w),
			toNullFloat(res.PercentFromLow),
			toNullFloat(res.Alpha),
			toNullFloat(res.Beta),
			toNullFloat(res.RSI14),
			toNullFloat(res.SMA20),
			toNullFloat(res.SMA50),
			toNullFloat(res.VolumeRatio),
			toNullFloat(res.DataQuality),
			pq.Array(nonNil(res.Sources)),
		); err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			return fmt.Errorf("copy %s: %w", res.Symbol, err)
		}
	}

	if _, err := stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		_ = tx.Rollback()
		return err
	}
	if err := stmt.Close(); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

// GetRun loads a run and its results in stored order.
func (r *screeningRepository) GetRun(ctx context.Context, id uuid.UUID) (*models.ScreeningRun, error) {
	run := models.ScreeningRun{ID: id}
	err := r.db.QueryRowContext(ctx, `
		SELECT created_at, window_start, window_end, symbols, sources, ranked
		FROM screening_runs WHERE id = $1`, id,
	).Scan(&run.CreatedAt, &run.WindowStart, &run.WindowEnd, pq.Array(&run.Symbols), pq.Array(&run.Sources), &run.Ranked)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT symbol, data_points, insufficient_data, first_date, last_date,
			annualized_return, sharpe_ratio, percent_from_high, volatility, max_drawdown,
			opportunity_score, total_return, current_price, high_52w, low_52w, percent_from_low,
			alpha, beta, rsi_14, sma_20, sma_50, volume_ratio, data_quality, sources
		FROM screening_results WHERE run_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			res         models.ScreeningResult
			sym         string
			first, last sql.NullTime
			m           [18]sql.NullFloat64
		)
		if err := rows.Scan(&sym, &res.DataPoints, &res.Insufficient, &first, &last,
			&m[0], &m[1], &m[2], &m[3], &m[4], &m[5], &m[6], &m[7], &m[8], &m[9], &m[10],
			&m[11], &m[12], &m[13], &m[14], &m[15], &m[16], &m[17],
			pq.Array(&res.Sources)); err != nil {
			return nil, err
		}
		res.Symbol = models.Symbol(sym)
		if first.Valid {
			res.FirstDate = first.Time
		}
		if last.Valid {
			res.LastDate = last.Time
		}
		dst := []**float64{&res.AnnualizedReturn, &res.SharpeRatio, &res.PercentFromHigh, &res.Volatility,
			&res.MaxDrawdown, &res.OpportunityScore, &res.TotalReturn, &res.CurrentPrice,
			&res.High52w, &res.Low52w, &res.PercentFromLow,
			&res.Alpha, &res.Beta, &res.RSI14, &res.SMA20, &res.SMA50, &res.VolumeRatio, &res.DataQuality}
		for i, v := range m {
			if v.Valid {
				*dst[i] = models.Float(v.Float64)
			}
		}
		run.Results = append(run.Results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns the most recent runs first. limit <= 0 means 20.
func (r *screeningRepository) ListRuns(ctx context.Context, limit int) ([]models.RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT r.id, r.created_at, r.window_start, r.window_end, r.symbols, r.ranked,
			(SELECT COUNT(*) FROM screening_results s WHERE s.run_id = r.id) AS result_count
		FROM screening_runs r
		ORDER BY r.created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := []models.RunSummary{}
	for rows.Next() {
		var s models.RunSummary
		if err := rows.Scan(&s.ID, &s.CreatedAt, &s.WindowStart, &s.WindowEnd, pq.Array(&s.Symbols), &s.Ranked, &s.ResultCount); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
