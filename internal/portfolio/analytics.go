package portfolio

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/rickgao/price-relay/internal/model"
)

const (
	// TradingDays annualizes daily statistics.
	TradingDays = 252
	// RiskFreeRate is the annual risk-free rate used for the Sharpe ratio.
	RiskFreeRate = 0.01
	// VaRConfidence is the lower-tail quantile used for value at risk.
	VaRConfidence = 0.05
)

// ValuePoint is the total portfolio value on one day.
type ValuePoint struct {
	Date  time.Time
	Value float64
}

// Position is the closing history for one symbol and the quantity held.
type Position struct {
	Symbol   string
	Quantity float64
	Closes   []model.DailyClose
}

// MergeValues sums close × quantity across positions per day. A day a
// position has no close contributes zero for that position. The result is
// sorted by date.
func MergeValues(positions []Position) []ValuePoint {
	totals := make(map[time.Time]float64)
	for _, p := range positions {
		for _, c := range p.Closes {
			day := c.Date.UTC()
			totals[day] += c.Close * p.Quantity
		}
	}

	series := make([]ValuePoint, 0, len(totals))
	for day, v := range totals {
		series = append(series, ValuePoint{Date: day, Value: v})
	}
	sort.Slice(series, func(i, j int) bool {
		return series[i].Date.Before(series[j].Date)
	})
	return series
}

// DailyReturns returns the day-over-day fractional change of the series.
// Changes from a zero value are undefined and skipped.
func DailyReturns(series []ValuePoint) []float64 {
	if len(series) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(series)-1)
	for i := 1; i < len(series); i++ {
		r := (series[i].Value - series[i-1].Value) / series[i-1].Value
		if math.IsNaN(r) || math.IsInf(r, 0) {
			continue
		}
		returns = append(returns, r)
	}
	return returns
}

// SharpeRatio is the annualized ratio of mean to sample standard deviation
// of daily excess returns, rounded to two decimals. It is 0 when fewer than
// two returns exist or the returns have no variance.
func SharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	daily := RiskFreeRate / TradingDays
	excess := make([]float64, len(returns))
	for i, r := range returns {
		excess[i] = r - daily
	}
	sd := stddev(excess)
	if sd == 0 {
		return 0
	}
	return round2(mean(excess) / sd * math.Sqrt(TradingDays))
}

// ValueAtRisk is the VaRConfidence quantile of daily returns in percent,
// rounded to two decimals.
func ValueAtRisk(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	return round2(quantile(returns, VaRConfidence) * 100)
}

// MaxDrawdown is the most negative (value − running max) / running max over
// the series in percent, rounded to two decimals. Zero when the series never
// falls below a prior peak.
func MaxDrawdown(series []ValuePoint) float64 {
	var peak, worst float64
	for i, p := range series {
		if i == 0 || p.Value > peak {
			peak = p.Value
		}
		if peak <= 0 {
			continue
		}
		if dd := (p.Value - peak) / peak; dd < worst {
			worst = dd
		}
	}
	return round2(worst * 100)
}

// FormatPercent renders v with a trailing "%", keeping one decimal place
// for whole numbers ("2.0%").
func FormatPercent(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if v == math.Trunc(v) {
		s = strconv.FormatFloat(v, 'f', 1, 64)
	}
	return s + "%"
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stddev is the sample standard deviation (n-1 denominator).
func stddev(xs []float64) float64 {
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

// quantile uses linear interpolation between closest ranks.
func quantile(xs []float64, q float64) float64 {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)

	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

func round2(v float64) float64 {
	r := math.Round(v*100) / 100
	if r == 0 {
		return 0 // drop negative zero
	}
	return r
}
