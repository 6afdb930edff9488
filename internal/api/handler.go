package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/guttosm/finfetch/internal/domain/dto"
	"github.com/guttosm/finfetch/internal/domain/models"
	"github.com/guttosm/finfetch/internal/middleware"
	"github.com/guttosm/finfetch/internal/report"
	"github.com/guttosm/finfetch/internal/service"
	"github.com/guttosm/finfetch/internal/storage"
)

// Handler exposes the screening service over HTTP.
//
// Responsibilities:
//   - Validate incoming query parameters
//   - Call the screening service with the request context
//   - Translate reports and runs into response DTOs
type Handler struct {
	svc    service.ScreeningService
	cached bool
}

// NewHandler constructs a new Handler instance.
//
// Parameters:
//   - svc (service.ScreeningService): the screening use case the endpoints delegate to.
//   - cached (bool): whether sources sit behind the Redis cache, for display only.
//
// Returns:
//   - *Handler: A handler ready to be registered with the router.
func NewHandler(svc service.ScreeningService, cached bool) *Handler {
	return &Handler{svc: svc, cached: cached}
}

// Screen handles GET /api/v1/screen.
//
// Query Parameters:
//   - symbols (string, required): comma separated tickers.
//   - start, end (string, optional): YYYY-MM-DD window bounds.
//   - days (int, optional): calendar-day lookback when start is omitted.
//   - rank, persist (bool, optional), sources (string, optional), format (json or csv).
//
// Responses:
//   - 200 OK: ScreenResponse as JSON, or the CSV report when format=csv.
//   - 400 Bad Request: invalid parameters, date range or source subset.
//   - 503 Service Unavailable: persist requested without a database.
//   - 504 Gateway Timeout: collection ran out of time.
//   - 500 Internal Server Error: any other failure.
//
// Screen godoc
// @Summary      Screen symbols
// @Description  Collects daily history from the configured providers, merges it and computes screening metrics per symbol
// @Tags         screening
// @Produce      json
// @Produce      text/csv
// @Param        symbols  query     string  true   "Comma separated tickers" example(AAPL,MSFT)
// @Param        start    query     string  false  "Start date YYYY-MM-DD"
// @Param        end      query     string  false  "End date YYYY-MM-DD (defaults to last trading day)"
// @Param        days     query     int     false  "Calendar-day lookback when start is omitted"
// @Param        rank     query     bool    false  "Order by opportunity score"
// @Param        sources  query     string  false  "Comma separated provider subset" example(yahoo,polygon)
// @Param        persist  query     bool    false  "Store the run"
// @Param        format   query     string  false  "json or csv" Enums(json, csv)
// @Success      200      {object}  dto.ScreenResponse
// @Failure      400      {object}  dto.ErrorResponse
// @Failure      504      {object}  dto.ErrorResponse
// @Failure      500      {object}  dto.ErrorResponse
// @Router       /api/v1/screen [get]
func (h *Handler) Screen(c *gin.Context) {
	symbols := splitQuery(c.Query("symbols"))
	if len(models.DedupeSymbols(symbols)) == 0 {
		middleware.AbortWithError(c, http.StatusBadRequest, "symbols is required", models.ErrInvalidSymbol)
		return
	}

	req := service.ScreenRequest{Symbols: symbols, Sources: splitQuery(c.Query("sources"))}
	var err error
	if req.Start, err = parseDate(c.Query("start")); err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, "invalid start, expected YYYY-MM-DD", err)
		return
	}
	if req.End, err = parseDate(c.Query("end")); err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, "invalid end, expected YYYY-MM-DD", err)
		return
	}
	if s := c.Query("days"); s != "" {
		if req.Days, err = strconv.Atoi(s); err != nil || req.Days <= 0 {
			middleware.AbortWithError(c, http.StatusBadRequest, "days must be a positive integer", err)
			return
		}
	}
	if req.Rank, err = parseBool(c.Query("rank")); err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, "invalid rank", err)
		return
	}
	if req.Persist, err = parseBool(c.Query("persist")); err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, "invalid persist", err)
		return
	}
	format, err := report.ParseFormat(c.DefaultQuery("format", "json"))
	if err != nil || format == report.FormatTable {
		middleware.AbortWithError(c, http.StatusBadRequest, "format must be json or csv", err)
		return
	}

	rep, err := h.svc.Screen(c.Request.Context(), req)
	if err != nil {
		status, msg := screenStatus(err)
		middleware.AbortWithError(c, status, msg, err)
		return
	}

	if format == report.FormatCSV {
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Header("Content-Disposition", `attachment; filename="screening.csv"`)
		c.Status(http.StatusOK)
		if err := report.WriteCSV(c.Writer, rep.Results); err != nil {
			_ = c.Error(err)
		}
		return
	}
	c.JSON(http.StatusOK, toScreenResponse(rep))
}

// ListRuns handles GET /api/v1/runs.
//
// Query Parameters:
//   - limit (int, optional): maximum runs to return (1..500), default 20.
//
// Responses:
//   - 200 OK: RunSummaryResponse list, newest first.
//   - 400 Bad Request: limit is not an integer in 1..500.
//   - 503 Service Unavailable: persistence is disabled.
//
// ListRuns godoc
// @Summary      List screening runs
// @Description  Returns the most recent persisted runs
// @Tags         runs
// @Produce      json
// @Param        limit  query     int  false  "Maximum runs to return (default 20)"
// @Success      200    {array}   dto.RunSummaryResponse
// @Failure      400    {object}  dto.ErrorResponse
// @Failure      503    {object}  dto.ErrorResponse
// @Router       /api/v1/runs [get]
func (h *Handler) ListRuns(c *gin.Context) {
	limit := 0
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > 500 {
			middleware.AbortWithError(c, http.StatusBadRequest, "limit must be between 1 and 500", err)
			return
		}
		limit = n
	}
	runs, err := h.svc.ListRuns(c.Request.Context(), limit)
	if err != nil {
		status, msg := runStatus(err)
		middleware.AbortWithError(c, status, msg, err)
		return
	}
	out := make([]dto.RunSummaryResponse, 0, len(runs))
	for _, r := range runs {
		out = append(out, toRunSummary(r))
	}
	c.JSON(http.StatusOK, out)
}

// GetRun handles GET /api/v1/runs/{id}.
//
// Responses:
//   - 200 OK: RunResponse with results in stored order.
//   - 400 Bad Request: id is not a UUID.
//   - 404 Not Found: no run with that id.
//   - 503 Service Unavailable: persistence is disabled.
//
// GetRun godoc
// @Summary      Get a screening run
// @Tags         runs
// @Produce      json
// @Param        id   path      string  true  "Run id (uuid)"
// @Success      200  {object}  dto.RunResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/v1/runs/{id} [get]
func (h *Handler) GetRun(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, "invalid run id", err)
		return
	}
	run, err := h.svc.GetRun(c.Request.Context(), id)
	if err != nil {
		status, msg := runStatus(err)
		middleware.AbortWithError(c, status, msg, err)
		return
	}
	resp := dto.RunResponse{
		RunSummaryResponse: toRunSummary(models.RunSummary{
			ID: run.ID, CreatedAt: run.CreatedAt, WindowStart: run.WindowStart, WindowEnd: run.WindowEnd,
			Symbols: run.Symbols, Ranked: run.Ranked, ResultCount: len(run.Results),
		}),
		Sources: run.Sources,
		Results: toResults(run.Results),
	}
	c.JSON(http.StatusOK, resp)
}

// Sources handles GET /api/v1/sources.
//
// Responses:
//   - 200 OK: SourceResponse list in conflict priority order.
//
// Sources godoc
// @Summary      List providers
// @Description  Registered market data providers in conflict priority order
// @Tags         screening
// @Produce      json
// @Success      200  {array}  dto.SourceResponse
// @Router       /api/v1/sources [get]
func (h *Handler) Sources(c *gin.Context) {
	infos := h.svc.Sources()
	out := make([]dto.SourceResponse, 0, len(infos))
	for _, i := range infos {
		out = append(out, dto.SourceResponse{Name: i.Name, Priority: i.Priority, Cached: h.cached})
	}
	c.JSON(http.StatusOK, out)
}

func screenStatus(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrInvalidDateRange),
		errors.Is(err, models.ErrNoSourcesConfigured),
		errors.Is(err, models.ErrInvalidSymbol):
		return http.StatusBadRequest, "invalid screening request"
	case errors.Is(err, service.ErrPersistenceDisabled):
		return http.StatusServiceUnavailable, "persistence is disabled"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "screening timed out"
	default:
		return http.StatusInternalServerError, "screening failed"
	}
}

func runStatus(err error) (int, string) {
	switch {
	case errors.Is(err, storage.ErrRunNotFound):
		return http.StatusNotFound, "run not found"
	case errors.Is(err, service.ErrPersistenceDisabled):
		return http.StatusServiceUnavailable, "persistence is disabled"
	default:
		return http.StatusInternalServerError, "failed to load runs"
	}
}

func splitQuery(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseBool(s string) (bool, error) {
	if s == "" {
		return false, nil
	}
	return strconv.ParseBool(s)
}

func dateString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(models.DateLayout)
}

func toResults(in []models.ScreeningResult) []dto.ScreeningResultResponse {
	out := make([]dto.ScreeningResultResponse, 0, len(in))
	for _, r := range in {
		out = append(out, dto.ScreeningResultResponse{
			Symbol:           r.Symbol.String(),
			AnnualizedReturn: r.AnnualizedReturn,
			SharpeRatio:      r.SharpeRatio,
			PercentFromHigh:  r.PercentFromHigh,
			Volatility:       r.Volatility,
			MaxDrawdown:      r.MaxDrawdown,
			OpportunityScore: r.OpportunityScore,
			TotalReturn:      r.TotalReturn,
			CurrentPrice:     r.CurrentPrice,
			High52w:          r.High52w,
			Low52w:           r.Low52w,
			PercentFromLow:   r.PercentFromLow,
			Alpha:            r.Alpha,
			Beta:             r.Beta,
			RSI14:            r.RSI14,
			SMA20:            r.SMA20,
			SMA50:            r.SMA50,
			VolumeRatio:      r.VolumeRatio,
			DataQuality:      r.DataQuality,
			DataPoints:       r.DataPoints,
			InsufficientData: r.Insufficient,
			FirstDate:        dateString(r.FirstDate),
			LastDate:         dateString(r.LastDate),
			Sources:          r.Sources,
		})
	}
	return out
}

func toScreenResponse(rep *service.Report) dto.ScreenResponse {
	resp := dto.ScreenResponse{
		WindowStart: dateString(rep.Window.Start),
		WindowEnd:   dateString(rep.Window.End),
		Sources:     rep.Sources,
		Benchmark:   rep.Benchmark.String(),
		Ranked:      rep.Ranked,
		Partial:     rep.Partial,
		Results:     toResults(rep.Results),
		Outcomes:    make([]dto.SymbolOutcomeResponse, 0, len(rep.Outcomes)),
	}
	if rep.RunID != uuid.Nil {
		resp.RunID = rep.RunID.String()
	}
	for _, o := range rep.Outcomes {
		so := dto.SymbolOutcomeResponse{
			Symbol:           o.Symbol.String(),
			Conflicts:        o.Conflicts,
			Dropped:          o.Dropped,
			AggregationError: o.AggregationError,
			Sources:          make([]dto.SourceOutcomeResponse, 0, len(o.Sources)),
		}
		for _, s := range o.Sources {
			so.Sources = append(so.Sources, dto.SourceOutcomeResponse{
				Source: s.Source, OK: s.OK, Points: s.Points, Kind: s.Kind, Error: s.Error,
				ElapsedMS: s.Elapsed.Milliseconds(),
			})
		}
		resp.Outcomes = append(resp.Outcomes, so)
	}
	return resp
}

func toRunSummary(r models.RunSummary) dto.RunSummaryResponse {
	return dto.RunSummaryResponse{
		ID:          r.ID.String(),
		CreatedAt:   r.CreatedAt.UTC().Format(time.RFC3339),
		WindowStart: dateString(r.WindowStart),
		WindowEnd:   dateString(r.WindowEnd),
		Symbols:     r.Symbols,
		Ranked:      r.Ranked,
		ResultCount: r.ResultCount,
	}
}
