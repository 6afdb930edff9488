package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/guttosm/finfetch/internal/calendar"
	"github.com/guttosm/finfetch/internal/domain/models"
)

const (
	alphaVantageBaseURL = "https://www.alphavantage.co"
	// compact responses hold the latest 100 bars
	alphaVantageCompactBars = 100
)

// AlphaVantageAdapter reads TIME_SERIES_DAILY from Alpha Vantage.
type AlphaVantageAdapter struct {
	c      *client
	apiKey string
}

var _ Adapter = (*AlphaVantageAdapter)(nil)

// NewAlphaVantage creates an Alpha Vantage adapter.
func NewAlphaVantage(cfg models.SourceConfig, opts ...Option) *AlphaVantageAdapter {
	if cfg.Name == "" {
		cfg.Name = AlphaVantage
	}
	return &AlphaVantageAdapter{c: newClient(cfg, alphaVantageBaseURL, opts...), apiKey: cfg.APIKey}
}

func (a *AlphaVantageAdapter) Name() string { return a.c.name }

type alphaVantageDaily struct {
	ErrorMessage string                     `json:"Error Message"`
	Note         string                     `json:"Note"`
	Information  string                     `json:"Information"`
	Series       map[string]alphaVantageBar `json:"Time Series (Daily)"`
}

type alphaVantageBar struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

// Fetch returns daily bars in [start, end]. Alpha Vantage has no range
// parameter, so the response is filtered locally.
func (a *AlphaVantageAdapter) Fetch(ctx context.Context, symbol models.Symbol, start, end time.Time) (models.RawSeries, error) {
	if err := a.c.validate(symbol, start, end); err != nil {
		return models.RawSeries{}, err
	}
	from := models.TruncateDate(start)
	to := models.TruncateDate(end)

	outputSize := "compact"
	if calendar.TradingDaysBetween(from, models.TruncateDate(a.c.now())) > alphaVantageCompactBars {
		outputSize = "full"
	}

	var points []models.PricePoint
	err := a.c.execute(ctx, symbol, func(ctx context.Context) error {
		resp, err := a.c.get(ctx, symbol, "/query", map[string]string{
			"function":   "TIME_SERIES_DAILY",
			"symbol":     symbol.String(),
			"outputsize": outputSize,
			"apikey":     a.apiKey,
		})
		if err != nil {
			return err
		}
		points, err = a.parse(symbol, resp.Body(), from, to)
		return err
	})
	if err != nil {
		return models.RawSeries{}, err
	}
	return a.c.series(symbol, start, end, points), nil
}

func (a *AlphaVantageAdapter) parse(symbol models.Symbol, body []byte, from, to time.Time) ([]models.PricePoint, error) {
	var daily alphaVantageDaily
	if err := json.Unmarshal(body, &daily); err != nil {
		return nil, a.c.fail(symbol, models.ErrSourceUnavailable, 0, false, fmt.Errorf("decode daily: %w", err))
	}
	switch {
	case daily.ErrorMessage != "":
		return nil, a.c.fail(symbol, models.ErrInvalidSymbol, 0, false, errors.New(daily.ErrorMessage))
	case daily.Note != "":
		return nil, a.c.fail(symbol, models.ErrRateLimitExceeded, 0, true, errors.New(daily.Note))
	case daily.Information != "" && daily.Series == nil:
		return nil, a.c.fail(symbol, models.ErrRateLimitExceeded, 0, true, errors.New(daily.Information))
	}

	points := make([]models.PricePoint, 0, len(daily.Series))
	for ds, bar := range daily.Series {
		day, err := time.Parse(models.DateLayout, ds)
		if err != nil {
			return nil, a.c.fail(symbol, models.ErrSourceUnavailable, 0, false, fmt.Errorf("parse date %q: %w", ds, err))
		}
		if day.Before(from) || day.After(to) {
			continue
		}
		p, err := bar.point(day)
		if err != nil {
			return nil, a.c.fail(symbol, models.ErrSourceUnavailable, 0, false, fmt.Errorf("%s: %w", ds, err))
		}
		points = append(points, p)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return points, nil
}

func (b alphaVantageBar) point(day time.Time) (models.PricePoint, error) {
	fields := []struct {
		name string
		raw  string
	}{{"open", b.Open}, {"high", b.High}, {"low", b.Low}, {"close", b.Close}, {"volume", b.Volume}}
	vals := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f.raw, 64)
		if err != nil {
			return models.PricePoint{}, fmt.Errorf("parse %s %q: %w", f.name, f.raw, err)
		}
		vals[i] = v
	}
	return models.PricePoint{Date: day, Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3], Volume: vals[4]}, nil
}
