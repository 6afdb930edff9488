package screening

import (
	"math"
	"time"

	"github.com/guttosm/finfetch/internal/domain/models"
)

const (
	tradingDaysPerYear = 252
	daysPerYear        = 365.25

	// alpha and beta need more aligned returns than this
	minAlignedReturns = 10

	rsiPeriod = 14
)

// simpleReturns returns c[i]/c[i-1] - 1 for consecutive closes.
func simpleReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		out = append(out, closes[i]/closes[i-1]-1)
	}
	return out
}

// alignedReturns pairs the daily returns of a and b on the dates both series
// report a return for, in date order.
func alignedReturns(a, b []models.PricePoint) (x, y []float64) {
	byDate := make(map[time.Time]float64, len(b))
	for i := 1; i < len(b); i++ {
		byDate[b[i].Date] = b[i].Close/b[i-1].Close - 1
	}
	for i := 1; i < len(a); i++ {
		if r, ok := byDate[a[i].Date]; ok {
			x = append(x, a[i].Close/a[i-1].Close-1)
			y = append(y, r)
		}
	}
	return x, y
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stdev is the sample standard deviation. It needs two values.
func stdev(xs []float64) float64 {
	if len(xs) < 2 {
		return math.NaN()
	}
	m := mean(xs)
	ss := 0.0
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

// elapsedYears is the calendar distance between first and last in years.
func elapsedYears(first, last time.Time) float64 {
	return last.Sub(first).Hours() / 24 / daysPerYear
}

// annualizedReturn is the compound annual growth rate in percent.
func annualizedReturn(firstClose, lastClose, years float64) (float64, bool) {
	if firstClose <= 0 || years <= 0 {
		return 0, false
	}
	return (math.Pow(lastClose/firstClose, 1/years) - 1) * 100, true
}

// sharpe annualizes mean excess daily return over daily volatility.
func sharpe(returns []float64, riskFreeRate float64) (float64, bool) {
	sd := stdev(returns)
	if math.IsNaN(sd) || sd == 0 {
		return 0, false
	}
	rfDaily := riskFreeRate / tradingDaysPerYear
	return (mean(returns) - rfDaily) / sd * math.Sqrt(tradingDaysPerYear), true
}

// volatility is the annualized standard deviation of daily returns in percent.
func volatility(returns []float64) (float64, bool) {
	sd := stdev(returns)
	if math.IsNaN(sd) {
		return 0, false
	}
	return sd * math.Sqrt(tradingDaysPerYear) * 100, true
}

// covariance is the sample covariance of equally long x and y.
func covariance(x, y []float64) float64 {
	mx, my := mean(x), mean(y)
	s := 0.0
	for i := range x {
		s += (x[i] - mx) * (y[i] - my)
	}
	return s / float64(len(x)-1)
}

// beta is Cov(stock, benchmark) / Var(benchmark) over aligned returns.
func beta(stock, bench []float64) (float64, bool) {
	if len(stock) <= minAlignedReturns || len(stock) != len(bench) {
		return 0, false
	}
	sd := stdev(bench)
	if math.IsNaN(sd) || sd == 0 {
		return 0, false
	}
	return covariance(stock, bench) / (sd * sd), true
}

// jensenAlpha is the annualized excess return over what beta predicts from
// the benchmark, in percent.
func jensenAlpha(stock, bench []float64, b, riskFreeRate float64) float64 {
	rs := mean(stock) * tradingDaysPerYear
	rb := mean(bench) * tradingDaysPerYear
	return ((rs - riskFreeRate) - b*(rb-riskFreeRate)) * 100
}

// sma is the mean of the last n closes.
func sma(closes []float64, n int) (float64, bool) {
	if n <= 0 || len(closes) < n {
		return 0, false
	}
	return mean(closes[len(closes)-n:]), true
}

// rsi is the relative strength index over the last period close changes,
// using simple averages of gains and losses. No movement at all reads 50.
func rsi(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) <= period {
		return 0, false
	}
	var gain, loss float64
	for i := len(closes) - period; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	switch {
	case gain == 0 && loss == 0:
		return 50, true
	case loss == 0:
		return 100, true
	}
	return 100 - 100/(1+gain/loss), true
}

// volumeRatio is the last volume over the mean volume of the series.
func volumeRatio(points []models.PricePoint) (float64, bool) {
	if len(points) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, p := range points {
		sum += p.Volume
	}
	avg := sum / float64(len(points))
	if avg <= 0 {
		return 0, false
	}
	return points[len(points)-1].Volume / avg, true
}

// maxDrawdown is the deepest peak-to-trough decline of the close series in
// percent, zero or negative.
func maxDrawdown(closes []float64) (float64, bool) {
	if len(closes) == 0 {
		return 0, false
	}
	peak := closes[0]
	worst := 0.0
	for _, c := range closes {
		if c > peak {
			peak = c
		}
		if dd := (c - peak) / peak * 100; dd < worst {
			worst = dd
		}
	}
	return worst, true
}

// extremes returns the highest high and lowest low of the points dated within
// weeks calendar weeks before the last point. A missing high or low (zero)
// falls back to the close.
func extremes(points []models.PricePoint, weeks int) (high, low float64, ok bool) {
	if len(points) == 0 {
		return 0, 0, false
	}
	cutoff := points[len(points)-1].Date.AddDate(0, 0, -7*weeks)
	high, low = math.Inf(-1), math.Inf(1)
	for i := len(points) - 1; i >= 0 && !points[i].Date.Before(cutoff); i-- {
		p := points[i]
		h := p.High
		if h <= 0 {
			h = p.Close
		}
		high = math.Max(high, h)
		l := p.Low
		if l <= 0 {
			l = p.Close
		}
		low = math.Min(low, l)
	}
	return high, low, high > 0 && low > 0
}

// percentFrom is ((price / ref) - 1) * 100.
func percentFrom(price, ref float64) float64 {
	return (price/ref - 1) * 100
}
