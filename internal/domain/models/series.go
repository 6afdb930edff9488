package models

import "time"

// DateLayout is the ISO-8601 calendar date layout used across the service.
const DateLayout = "2006-01-02"

// PricePoint is one daily OHLCV bar.
//
// VWAP and Transactions are optional: only some providers report them.
type PricePoint struct {
	Date         time.Time `json:"date"`
	Open         float64   `json:"open"`
	High         float64   `json:"high"`
	Low          float64   `json:"low"`
	Close        float64   `json:"close"`
	Volume       float64   `json:"volume"`
	VWAP         *float64  `json:"vwap,omitempty"`
	Transactions *int64    `json:"transactions,omitempty"`
}

// Valid reports whether the bar satisfies the basic OHLCV invariants.
func (p PricePoint) Valid() bool {
	if p.Date.IsZero() || p.Close <= 0 {
		return false
	}
	if p.High < p.Low || p.Open < 0 || p.Low < 0 || p.Volume < 0 {
		return false
	}
	return true
}

// RawSeries is one adapter's response for one (symbol, date range) request,
// ordered by date ascending.
type RawSeries struct {
	Symbol Symbol       `json:"symbol"`
	Source string       `json:"source"`
	Start  time.Time    `json:"start"`
	End    time.Time    `json:"end"`
	Points []PricePoint `json:"points"`
}

// CanonicalSeries is the reconciled, date-unique history for one symbol.
type CanonicalSeries struct {
	Symbol    Symbol
	Points    []PricePoint
	Sources   []string // sources that contributed at least one point
	Conflicts int      // dates where sources disagreed on close
	Dropped   int      // points removed by cleaning
	// Quality is the mean of completeness (share of raw points that were
	// valid and in range) and consistency (share that were not repeated
	// dates within one source). Zero when no raw points arrived.
	Quality float64
}

// Len returns the number of points.
func (c CanonicalSeries) Len() int { return len(c.Points) }

// Closes returns the close prices in date order.
func (c CanonicalSeries) Closes() []float64 {
	out := make([]float64, len(c.Points))
	for i, p := range c.Points {
		out[i] = p.Close
	}
	return out
}

// TruncateDate strips the clock part of t and moves it to UTC.
func TruncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
