package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/guttosm/finfetch/internal/domain/models"
)

const yahooBaseURL = "https://query1.finance.yahoo.com"

// YahooAdapter reads daily bars from the public Yahoo Finance chart API.
// No API key is required.
type YahooAdapter struct {
	c *client
}

var _ Adapter = (*YahooAdapter)(nil)

// NewYahoo creates a Yahoo adapter.
func NewYahoo(cfg models.SourceConfig, opts ...Option) *YahooAdapter {
	if cfg.Name == "" {
		cfg.Name = Yahoo
	}
	return &YahooAdapter{c: newClient(cfg, yahooBaseURL, opts...)}
}

func (y *YahooAdapter) Name() string { return y.c.name }

// yahooChart is the subset of the chart API response we read.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				GMTOffset int64 `json:"gmtoffset"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Fetch returns daily bars in [start, end].
func (y *YahooAdapter) Fetch(ctx context.Context, symbol models.Symbol, start, end time.Time) (models.RawSeries, error) {
	if err := y.c.validate(symbol, start, end); err != nil {
		return models.RawSeries{}, err
	}
	from := models.TruncateDate(start)
	to := models.TruncateDate(end)

	var points []models.PricePoint
	err := y.c.execute(ctx, symbol, func(ctx context.Context) error {
		path := "/v8/finance/chart/" + url.PathEscape(symbol.String())
		resp, err := y.c.get(ctx, symbol, path, map[string]string{
			"period1":  strconv.FormatInt(from.Unix(), 10),
			"period2":  strconv.FormatInt(to.AddDate(0, 0, 1).Unix(), 10),
			"interval": "1d",
			"events":   "history",
		})
		if err != nil {
			// Yahoo reports unknown tickers as 404 with a chart error body.
			if resp != nil && errors.Is(err, models.ErrInvalidSymbol) {
				if chartErr := y.chartError(symbol, resp.Body()); chartErr != nil {
					return chartErr
				}
			}
			return err
		}
		points, err = y.parse(symbol, resp.Body(), from, to)
		return err
	})
	if err != nil {
		return models.RawSeries{}, err
	}
	return y.c.series(symbol, start, end, points), nil
}

func (y *YahooAdapter) chartError(symbol models.Symbol, body []byte) error {
	var chart yahooChart
	if json.Unmarshal(body, &chart) != nil || chart.Chart.Error == nil {
		return nil
	}
	return y.c.fail(symbol, models.ErrInvalidSymbol, 0, false, errors.New(chart.Chart.Error.Description))
}

func (y *YahooAdapter) parse(symbol models.Symbol, body []byte, from, to time.Time) ([]models.PricePoint, error) {
	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, y.c.fail(symbol, models.ErrSourceUnavailable, 0, false, fmt.Errorf("decode chart: %w", err))
	}
	if e := chart.Chart.Error; e != nil {
		if strings.EqualFold(e.Code, "Not Found") {
			return nil, y.c.fail(symbol, models.ErrInvalidSymbol, 0, false, errors.New(e.Description))
		}
		return nil, y.c.fail(symbol, models.ErrSourceUnavailable, 0, false, fmt.Errorf("%s: %s", e.Code, e.Description))
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, nil
	}

	res := chart.Chart.Result[0]
	q := res.Indicators.Quote[0]
	points := make([]models.PricePoint, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		c := at(q.Close, i)
		if c == nil {
			continue // null bar (halt or holiday row)
		}
		day := models.TruncateDate(time.Unix(ts+res.Meta.GMTOffset, 0).UTC())
		if day.Before(from) || day.After(to) {
			continue
		}
		p := models.PricePoint{Date: day, Close: *c}
		if v := at(q.Open, i); v != nil {
			p.Open = *v
		}
		if v := at(q.High, i); v != nil {
			p.High = *v
		}
		if v := at(q.Low, i); v != nil {
			p.Low = *v
		}
		if v := at(q.Volume, i); v != nil {
			p.Volume = *v
		}
		points = append(points, p)
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return points, nil
}

func at(xs []*float64, i int) *float64 {
	if i < 0 || i >= len(xs) {
		return nil
	}
	return xs[i]
}
