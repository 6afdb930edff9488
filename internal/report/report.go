// Package report renders screening results as CSV, JSON or an aligned table,
// and reads the CSV form back.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"github.com/guttosm/finfetch/internal/domain/models"
)

// Format is an output encoding.
type Format string

const (
	FormatTable Format = "table"
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
)

// ParseFormat accepts table, csv or json, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatCSV, FormatJSON:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unknown format %q (want table, csv or json)", s)
	}
}

// Headers is the CSV column order. Every column between symbol and
// data_points is an optional metric.
var Headers = []string{
	"symbol",
	"annualized_return",
	"sharpe_ratio",
	"percent_from_high",
	"volatility",
	"max_drawdown",
	"opportunity_score",
	"alpha",
	"beta",
	"rsi_14",
	"sma_20",
	"sma_50",
	"volume_ratio",
	"data_quality",
	"data_points",
	"insufficient_data",
}

const (
	colDataPoints   = 14
	colInsufficient = 15
)

// Write renders results in the given format.
func Write(w io.Writer, f Format, results []models.ScreeningResult) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, results)
	case FormatJSON:
		return WriteJSON(w, results)
	case FormatTable, "":
		return WriteTable(w, results)
	default:
		return fmt.Errorf("unknown format %q", f)
	}
}

// metricFields lists the metric columns of r in Headers order.
func metricFields(r *models.ScreeningResult) []**float64 {
	return []**float64{
		&r.AnnualizedReturn, &r.SharpeRatio, &r.PercentFromHigh, &r.Volatility, &r.MaxDrawdown, &r.OpportunityScore,
		&r.Alpha, &r.Beta, &r.RSI14, &r.SMA20, &r.SMA50, &r.VolumeRatio, &r.DataQuality,
	}
}

// exact prints the shortest decimal that parses back to v. Nil is empty.
func exact(v *float64) string {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return ""
	}
	return decimal.NewFromFloat(*v).String()
}

func fixed(v *float64) string {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return "n/a"
	}
	return decimal.NewFromFloat(*v).StringFixed(2)
}

// WriteCSV writes a header row followed by one row per result.
// Metrics that are not computable are empty cells.
func WriteCSV(w io.Writer, results []models.ScreeningResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Headers); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range results {
		row := make([]string, 0, len(Headers))
		row = append(row, r.Symbol.String())
		for _, m := range metricFields(&r) {
			row = append(row, exact(*m))
		}
		row = append(row, strconv.Itoa(r.DataPoints), strconv.FormatBool(r.Insufficient))
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write %s: %w", r.Symbol, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ParseCSV reads what WriteCSV wrote. The header must match exactly.
func ParseCSV(r io.Reader) ([]models.ScreeningResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) != len(Headers) {
		return nil, fmt.Errorf("invalid header length: expected %d, got %d", len(Headers), len(header))
	}
	for i, h := range header {
		if strings.TrimSpace(h) != Headers[i] {
			return nil, fmt.Errorf("invalid header at col %d: expected %q, got %q", i+1, Headers[i], h)
		}
	}

	var out []models.ScreeningResult
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line after %d: %w", line, err)
		}
		line++
		if len(rec) != len(Headers) {
			return nil, fmt.Errorf("invalid column count on line %d: expected %d got %d", line, len(Headers), len(rec))
		}
		res, err := recordToResult(rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, res)
	}
	return out, nil
}

func recordToResult(rec []string) (models.ScreeningResult, error) {
	sym, err := models.NormalizeSymbol(rec[0])
	if err != nil {
		return models.ScreeningResult{}, err
	}
	r := models.ScreeningResult{Symbol: sym}
	for i, dst := range metricFields(&r) {
		cell := strings.TrimSpace(rec[i+1])
		if cell == "" {
			continue
		}
		d, err := decimal.NewFromString(cell)
		if err != nil {
			return r, fmt.Errorf("invalid %s %q: %w", Headers[i+1], cell, err)
		}
		f, _ := d.Float64()
		*dst = models.Float(f)
	}
	if r.DataPoints, err = strconv.Atoi(strings.TrimSpace(rec[colDataPoints])); err != nil {
		return r, fmt.Errorf("invalid data_points %q: %w", rec[colDataPoints], err)
	}
	if r.Insufficient, err = strconv.ParseBool(strings.TrimSpace(rec[colInsufficient])); err != nil {
		return r, fmt.Errorf("invalid insufficient_data %q: %w", rec[colInsufficient], err)
	}
	return r, nil
}

// tableColumns are the table headers and the metrics shown under them.
var tableColumns = []struct {
	header string
	value  func(models.ScreeningResult) *float64
}{
	{"ANN RETURN %", func(r models.ScreeningResult) *float64 { return r.AnnualizedReturn }},
	{"SHARPE", func(r models.ScreeningResult) *float64 { return r.SharpeRatio }},
	{"FROM HIGH %", func(r models.ScreeningResult) *float64 { return r.PercentFromHigh }},
	{"VOLATILITY %", func(r models.ScreeningResult) *float64 { return r.Volatility }},
	{"MAX DD %", func(r models.ScreeningResult) *float64 { return r.MaxDrawdown }},
	{"ALPHA %", func(r models.ScreeningResult) *float64 { return r.Alpha }},
	{"BETA", func(r models.ScreeningResult) *float64 { return r.Beta }},
	{"RSI", func(r models.ScreeningResult) *float64 { return r.RSI14 }},
	{"SCORE", func(r models.ScreeningResult) *float64 { return r.OpportunityScore }},
}

// WriteTable renders an aligned, human readable table with two decimals.
// The first failed write is returned.
func WriteTable(w io.Writer, results []models.ScreeningResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	headers := []string{"SYMBOL"}
	for _, c := range tableColumns {
		headers = append(headers, c.header)
	}
	headers = append(headers, "POINTS")
	if _, err := fmt.Fprintln(tw, strings.Join(headers, "\t")+"\t"); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range results {
		cells := []string{r.Symbol.String()}
		for _, c := range tableColumns {
			cells = append(cells, fixed(c.value(r)))
		}
		points := strconv.Itoa(r.DataPoints)
		if r.Insufficient {
			points += "*"
		}
		cells = append(cells, points)
		if _, err := fmt.Fprintln(tw, strings.Join(cells, "\t")+"\t"); err != nil {
			return fmt.Errorf("write %s: %w", r.Symbol, err)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, r := range results {
		if r.Insufficient {
			_, err := fmt.Fprintln(w, "* insufficient data, metrics not computed")
			return err
		}
	}
	return nil
}

// WriteJSON writes results as an indented JSON array.
func WriteJSON(w io.Writer, results []models.ScreeningResult) error {
	if results == nil {
		results = []models.ScreeningResult{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
