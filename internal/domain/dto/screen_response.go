package dto

// ScreeningResultResponse is one row of a screening run as exposed by the API.
// Metrics are null when they could not be computed.
type ScreeningResultResponse struct {
	Symbol           string   `json:"symbol" example:"AAPL"`
	AnnualizedReturn *float64 `json:"annualized_return" example:"14.87"`
	SharpeRatio      *float64 `json:"sharpe_ratio" example:"0.91"`
	PercentFromHigh  *float64 `json:"percent_from_high" example:"-5.3"`
	Volatility       *float64 `json:"volatility" example:"27.18"`
	MaxDrawdown      *float64 `json:"max_drawdown" example:"-33.4"`
	OpportunityScore *float64 `json:"opportunity_score" example:"0.72"`
	TotalReturn      *float64 `json:"total_return,omitempty"`
	CurrentPrice     *float64 `json:"current_price,omitempty"`
	High52w          *float64 `json:"high_52w,omitempty"`
	Low52w           *float64 `json:"low_52w,omitempty"`
	PercentFromLow   *float64 `json:"percent_from_low,omitempty"`
	Alpha            *float64 `json:"alpha,omitempty" example:"3.1"`
	Beta             *float64 `json:"beta,omitempty" example:"1.12"`
	RSI14            *float64 `json:"rsi_14,omitempty" example:"61.5"`
	SMA20            *float64 `json:"sma_20,omitempty"`
	SMA50            *float64 `json:"sma_50,omitempty"`
	VolumeRatio      *float64 `json:"volume_ratio,omitempty"`
	DataQuality      *float64 `json:"data_quality,omitempty" example:"0.98"`
	DataPoints       int      `json:"data_points" example:"1258"`
	InsufficientData bool     `json:"insufficient_data"`
	FirstDate        string   `json:"first_date,omitempty" example:"2020-03-10"`
	LastDate         string   `json:"last_date,omitempty" example:"2025-03-10"`
	Sources          []string `json:"sources,omitempty"`
}

// SourceOutcomeResponse reports one source's fetch for one symbol.
type SourceOutcomeResponse struct {
	Source    string `json:"source" example:"yahoo"`
	OK        bool   `json:"ok"`
	Points    int    `json:"points"`
	Kind      string `json:"kind,omitempty" example:"source_unavailable"`
	Error     string `json:"error,omitempty"`
	ElapsedMS int64  `json:"elapsed_ms"`
}

// SymbolOutcomeResponse groups source outcomes for one symbol.
type SymbolOutcomeResponse struct {
	Symbol           string                  `json:"symbol"`
	Sources          []SourceOutcomeResponse `json:"sources"`
	Conflicts        int                     `json:"conflicts"`
	Dropped          int                     `json:"dropped"`
	AggregationError string                  `json:"aggregation_error,omitempty"`
}

// ScreenResponse is returned by GET /api/v1/screen.
type ScreenResponse struct {
	RunID       string                    `json:"run_id,omitempty"`
	WindowStart string                    `json:"window_start" example:"2020-03-10"`
	WindowEnd   string                    `json:"window_end" example:"2025-03-10"`
	Sources     []string                  `json:"sources"`
	Benchmark   string                    `json:"benchmark,omitempty" example:"SPY"`
	Ranked      bool                      `json:"ranked"`
	Partial     bool                      `json:"partial"`
	Results     []ScreeningResultResponse `json:"results"`
	Outcomes    []SymbolOutcomeResponse   `json:"outcomes"`
}

// RunSummaryResponse is one entry of GET /api/v1/runs.
type RunSummaryResponse struct {
	ID          string   `json:"id"`
	CreatedAt   string   `json:"created_at" example:"2025-03-10T18:30:00Z"`
	WindowStart string   `json:"window_start"`
	WindowEnd   string   `json:"window_end"`
	Symbols     []string `json:"symbols"`
	Ranked      bool     `json:"ranked"`
	ResultCount int      `json:"result_count"`
}

// RunResponse is returned by GET /api/v1/runs/{id}.
type RunResponse struct {
	RunSummaryResponse
	Sources []string                  `json:"sources"`
	Results []ScreeningResultResponse `json:"results"`
}

// SourceResponse describes a registered provider.
type SourceResponse struct {
	Name     string `json:"name" example:"yahoo"`
	Priority int    `json:"priority" example:"1"`
	Cached   bool   `json:"cached"`
}
