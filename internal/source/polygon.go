package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/guttosm/finfetch/internal/domain/models"
)

const polygonBaseURL = "https://api.polygon.io"

// PolygonAdapter reads daily aggregates from Polygon.io. Bars carry VWAP
// and transaction counts in addition to OHLCV.
type PolygonAdapter struct {
	c      *client
	apiKey string
}

var _ Adapter = (*PolygonAdapter)(nil)

// NewPolygon creates a Polygon adapter.
func NewPolygon(cfg models.SourceConfig, opts ...Option) *PolygonAdapter {
	if cfg.Name == "" {
		cfg.Name = Polygon
	}
	return &PolygonAdapter{c: newClient(cfg, polygonBaseURL, opts...), apiKey: cfg.APIKey}
}

func (p *PolygonAdapter) Name() string { return p.c.name }

type polygonAggs struct {
	Status       string `json:"status"`
	Error        string `json:"error"`
	Message      string `json:"message"`
	ResultsCount int    `json:"resultsCount"`
	Results      []struct {
		O  float64  `json:"o"`
		H  float64  `json:"h"`
		L  float64  `json:"l"`
		C  float64  `json:"c"`
		V  float64  `json:"v"`
		VW *float64 `json:"vw"`
		N  *int64   `json:"n"`
		T  int64    `json:"t"`
	} `json:"results"`
}

// Fetch returns adjusted daily aggregates in [start, end].
func (p *PolygonAdapter) Fetch(ctx context.Context, symbol models.Symbol, start, end time.Time) (models.RawSeries, error) {
	if err := p.c.validate(symbol, start, end); err != nil {
		return models.RawSeries{}, err
	}
	from := models.TruncateDate(start)
	to := models.TruncateDate(end)

	var points []models.PricePoint
	err := p.c.execute(ctx, symbol, func(ctx context.Context) error {
		path := fmt.Sprintf("/v2/aggs/ticker/%s/range/1/day/%s/%s",
			url.PathEscape(symbol.String()), from.Format(models.DateLayout), to.Format(models.DateLayout))
		resp, err := p.c.get(ctx, symbol, path, map[string]string{
			"adjusted": "true",
			"sort":     "asc",
			"limit":    "50000",
			"apiKey":   p.apiKey,
		})
		if err != nil {
			return err
		}
		points, err = p.parse(symbol, resp.Body(), from, to)
		return err
	})
	if err != nil {
		return models.RawSeries{}, err
	}
	return p.c.series(symbol, start, end, points), nil
}

func (p *PolygonAdapter) parse(symbol models.Symbol, body []byte, from, to time.Time) ([]models.PricePoint, error) {
	var aggs polygonAggs
	if err := json.Unmarshal(body, &aggs); err != nil {
		return nil, p.c.fail(symbol, models.ErrSourceUnavailable, 0, false, fmt.Errorf("decode aggs: %w", err))
	}
	switch strings.ToUpper(aggs.Status) {
	case "NOT_FOUND":
		return nil, p.c.fail(symbol, models.ErrInvalidSymbol, 0, false, errors.New(firstNonEmpty(aggs.Message, aggs.Error, "ticker not found")))
	case "ERROR":
		return nil, p.c.fail(symbol, models.ErrSourceUnavailable, 0, false, errors.New(firstNonEmpty(aggs.Error, aggs.Message, "provider error")))
	}

	points := make([]models.PricePoint, 0, len(aggs.Results))
	for _, r := range aggs.Results {
		day := models.TruncateDate(time.UnixMilli(r.T).UTC())
		if day.Before(from) || day.After(to) {
			continue
		}
		points = append(points, models.PricePoint{
			Date:         day,
			Open:         r.O,
			High:         r.H,
			Low:          r.L,
			Close:        r.C,
			Volume:       r.V,
			VWAP:         r.VW,
			Transactions: r.N,
		})
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return points, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
