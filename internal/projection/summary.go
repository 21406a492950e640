package projection

import (
	"math"

	"github.com/shopspring/decimal"
)

// Summary holds the headline numbers shown next to the chart, in whole
// currency units
type Summary struct {
	TotalSavings     int64 `json:"total_savings"`
	FirstYearSavings int64 `json:"first_year_savings"`
	MonthlySavings   int64 `json:"monthly_savings"`
	HorizonYears     int   `json:"horizon_years"`
}

// Summarize rounds the series into display figures.
//
// TotalSavings covers horizonYears billed years: it reads
// CumulativeSavings[horizonYears-1], one year short of the last series index
// horizonYears, so a 25 year horizon totals years 0..24. FirstYearSavings comes from the year 0
// annual figures rather than the cumulative series, so it stays valid
// whatever horizon is asked for.
func Summarize(s Series, horizonYears int) Summary {
	if len(s.AnnualUtility) == 0 {
		return Summary{}
	}

	if horizonYears < 1 {
		horizonYears = 1
	}
	if horizonYears > len(s.CumulativeSavings) {
		horizonYears = len(s.CumulativeSavings)
	}

	return Summary{
		TotalSavings:     Round(s.CumulativeSavings[horizonYears-1]),
		FirstYearSavings: Round(s.AnnualUtility[0] - s.AnnualSolar[0]),
		MonthlySavings:   Round(s.MonthlyUtility[0] - s.MonthlySolar[0]),
		HorizonYears:     horizonYears,
	}
}

// Round rounds v to the nearest whole unit, ties away from zero
func Round(v float64) int64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v >= math.MaxInt64:
		return math.MaxInt64
	case v <= math.MinInt64:
		return math.MinInt64
	}
	return decimal.NewFromFloat(v).Round(0).IntPart()
}

// RoundCents rounds v to two decimals, ties away from zero. Used only for
// presentation; the series itself is never rounded.
func RoundCents(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
