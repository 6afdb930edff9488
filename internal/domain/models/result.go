package models

import "time"

// ScreeningResult holds the metric set for one symbol.
//
// Metric pointers are nil when the value is not computable, which is always
// the case when Insufficient is set.
type ScreeningResult struct {
	Symbol       Symbol    `json:"symbol"`
	DataPoints   int       `json:"data_points"`
	Insufficient bool      `json:"insufficient_data"`
	FirstDate    time.Time `json:"first_date,omitempty"`
	LastDate     time.Time `json:"last_date,omitempty"`
	Sources      []string  `json:"sources,omitempty"`

	AnnualizedReturn *float64 `json:"annualized_return"`
	SharpeRatio      *float64 `json:"sharpe_ratio"`
	PercentFromHigh  *float64 `json:"percent_from_high"`
	Volatility       *float64 `json:"volatility"`
	MaxDrawdown      *float64 `json:"max_drawdown"`
	OpportunityScore *float64 `json:"opportunity_score"`

	TotalReturn    *float64 `json:"total_return,omitempty"`
	CurrentPrice   *float64 `json:"current_price,omitempty"`
	High52w        *float64 `json:"high_52w,omitempty"`
	Low52w         *float64 `json:"low_52w,omitempty"`
	PercentFromLow *float64 `json:"percent_from_low,omitempty"`

	// Alpha and Beta are measured against the benchmark series. Without one,
	// Alpha is the annualized return in excess of the risk-free rate.
	Alpha       *float64 `json:"alpha,omitempty"`
	Beta        *float64 `json:"beta,omitempty"`
	RSI14       *float64 `json:"rsi_14,omitempty"`
	SMA20       *float64 `json:"sma_20,omitempty"`
	SMA50       *float64 `json:"sma_50,omitempty"`
	VolumeRatio *float64 `json:"volume_ratio,omitempty"`

	// DataQuality describes the merged input (0..1), see CanonicalSeries.Quality.
	DataQuality *float64 `json:"data_quality,omitempty"`
}

// SourceConfig is the per-provider runtime configuration.
type SourceConfig struct {
	Name         string
	Enabled      bool
	APIKey       string
	BaseURL      string
	RateLimit    int           // requests per RateInterval
	RateInterval time.Duration // window for RateLimit
	Timeout      time.Duration // per-attempt deadline
	Priority     int           // lower wins conflicts
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }
