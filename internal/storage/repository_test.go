package storage

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"github.com/guttosm/finfetch/internal/domain/models"
)

type dummyErr struct{}

func (dummyErr) Error() string { return "dummy" }

func newMockRepo(t *testing.T) (*screeningRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	repo := &screeningRepository{db: db}
	cleanup := func() { _ = db.Close() }
	return repo, mock, cleanup
}

var (
	winStart = time.Date(2020, 3, 10, 0, 0, 0, 0, time.UTC)
	winEnd   = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	created  = time.Date(2025, 3, 10, 18, 30, 0, 0, time.UTC)
)

const insertRun = "INSERT INTO screening_runs (id, created_at, window_start, window_end, symbols, sources, ranked)"

func sampleRun() *models.ScreeningRun {
	return &models.ScreeningRun{
		CreatedAt:   created,
		WindowStart: winStart,
		WindowEnd:   winEnd,
		Symbols:     []string{"AAPL", "NEW"},
		Sources:     []string{"yahoo"},
		Ranked:      true,
		Results: []models.ScreeningResult{
			{Symbol: "AAPL", DataPoints: 1258, FirstDate: winStart, LastDate: winEnd, SharpeRatio: models.Float(1.1), Beta: models.Float(0.9), Sources: []string{"yahoo"}},
			{Symbol: "NEW", DataPoints: 3, Insufficient: true},
		},
	}
}

func TestSaveRun_SQLMock(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(insertRun)).
		WithArgs(sqlmock.AnyArg(), created, winStart, winEnd, sqlmock.AnyArg(), sqlmock.AnyArg(), true).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// pq.CopyIn cannot be matched precisely; expect the prepared COPY, one
	// exec per row and the final flush.
	prep := mock.ExpectPrepare(".*")
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(".*").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	run := sampleRun()
	if err := repo.SaveRun(context.Background(), run); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if run.ID == uuid.Nil {
		t.Fatalf("expected a generated run id")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSaveRun_NoResultsSkipsCopy(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(insertRun)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	run := &models.ScreeningRun{WindowStart: winStart, WindowEnd: winEnd}
	if err := repo.SaveRun(context.Background(), run); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if run.CreatedAt.IsZero() {
		t.Fatalf("expected CreatedAt to be set")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSaveRun_Errors(t *testing.T) {
	cases := []struct {
		name  string
		setup func(mock sqlmock.Sqlmock)
	}{
		{"begin", func(mock sqlmock.Sqlmock) {
			mock.ExpectBegin().WillReturnError(dummyErr{})
		}},
		{"insert run", func(mock sqlmock.Sqlmock) {
			mock.ExpectBegin()
			mock.ExpectExec(regexp.QuoteMeta(insertRun)).WillReturnError(dummyErr{})
			mock.ExpectRollback()
		}},
		{"row exec", func(mock sqlmock.Sqlmock) {
			mock.ExpectBegin()
			mock.ExpectExec(regexp.QuoteMeta(insertRun)).WillReturnResult(sqlmock.NewResult(0, 1))
			mock.ExpectPrepare(".*").ExpectExec().WillReturnError(dummyErr{})
			mock.ExpectRollback()
		}},
		{"final exec", func(mock sqlmock.Sqlmock) {
			mock.ExpectBegin()
			mock.ExpectExec(regexp.QuoteMeta(insertRun)).WillReturnResult(sqlmock.NewResult(0, 1))
			prep := mock.ExpectPrepare(".*")
			prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
			prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
			mock.ExpectExec(".*").WillReturnError(dummyErr{})
			mock.ExpectRollback()
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo, mock, done := newMockRepo(t)
			defer done()
			tc.setup(mock)
			if err := repo.SaveRun(context.Background(), sampleRun()); err == nil {
				t.Fatalf("expected error")
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("unmet expectations: %v", err)
			}
		})
	}
}

func TestGetRun_SQLMock(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("FROM screening_runs WHERE id = $1")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "window_start", "window_end", "symbols", "sources", "ranked"}).
			AddRow(created, winStart, winEnd, "{AAPL,NEW}", "{yahoo}", true))
	cols := []string{"symbol", "data_points", "insufficient_data", "first_date", "last_date",
		"annualized_return", "sharpe_ratio", "percent_from_high", "volatility", "max_drawdown",
		"opportunity_score", "total_return", "current_price", "high_52w", "low_52w", "percent_from_low",
		"alpha", "beta", "rsi_14", "sma_20", "sma_50", "volume_ratio", "data_quality", "sources"}
	mock.ExpectQuery(regexp.QuoteMeta("FROM screening_results WHERE run_id = $1 ORDER BY position")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("AAPL", int64(1258), false, winStart, winEnd, 14.87, 1.1, -5.3, 0.25, -33.0, 0.8, 100.0, 200.0, 210.0, 150.0, 33.3,
				2.5, 1.2, 55.0, 195.0, 180.0, 1.4, 0.98, "{yahoo}").
			AddRow("NEW", int64(3), true, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil,
				nil, nil, nil, nil, nil, nil, 0.5, "{}"))

	run, err := repo.GetRun(context.Background(), id)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.ID != id || !run.Ranked || len(run.Symbols) != 2 || run.Sources[0] != "yahoo" {
		t.Fatalf("unexpected run %+v", run)
	}
	if len(run.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(run.Results))
	}
	a, n := run.Results[0], run.Results[1]
	if a.Symbol != "AAPL" || a.SharpeRatio == nil || *a.SharpeRatio != 1.1 || a.PercentFromLow == nil || a.Sources[0] != "yahoo" {
		t.Fatalf("unexpected first result %+v", a)
	}
	if a.Beta == nil || *a.Beta != 1.2 || a.RSI14 == nil || *a.RSI14 != 55 || a.DataQuality == nil || *a.DataQuality != 0.98 {
		t.Fatalf("extended metrics not scanned: %+v", a)
	}
	if !n.Insufficient || n.SharpeRatio != nil || n.Alpha != nil || !n.FirstDate.IsZero() {
		t.Fatalf("unexpected insufficient result %+v", n)
	}
	if n.DataQuality == nil || *n.DataQuality != 0.5 {
		t.Fatalf("unexpected insufficient result %+v", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetRun_NotFound(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("FROM screening_runs WHERE id = $1")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "window_start", "window_end", "symbols", "sources", "ranked"}))

	if _, err := repo.GetRun(context.Background(), id); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestListRuns_SQLMock(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()
	id := uuid.New()

	cases := []struct {
		name      string
		limit     int
		wantLimit int
	}{
		{"default limit", 0, 20},
		{"explicit limit", 5, 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mock.ExpectQuery(regexp.QuoteMeta("FROM screening_runs r")).
				WithArgs(tc.wantLimit).
				WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "window_start", "window_end", "symbols", "ranked", "result_count"}).
					AddRow(id.String(), created, winStart, winEnd, "{AAPL}", false, int64(1)))
			runs, err := repo.ListRuns(context.Background(), tc.limit)
			if err != nil {
				t.Fatalf("ListRuns: %v", err)
			}
			if len(runs) != 1 || runs[0].ID != id || runs[0].ResultCount != 1 || runs[0].Symbols[0] != "AAPL" {
				t.Fatalf("unexpected runs %+v", runs)
			}
		})
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestNewScreeningRepository_Construct(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer func() { _ = db.Close() }()
	if NewScreeningRepository(db) == nil {
		t.Fatalf("expected non-nil repository")
	}
}
