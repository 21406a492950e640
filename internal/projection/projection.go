// Package projection compares a utility bill that escalates every year against
// a flat monthly solar rate over a multi-year horizon.
package projection

import (
	"math"
)

const (
	// DefaultHorizonYears is the horizon used by shareable chart links
	DefaultHorizonYears = 25

	// MaxHorizonYears bounds the series length accepted by Validate
	MaxHorizonYears = 100

	// MaxAnnualIncreasePct bounds the escalation accepted by Validate
	MaxAnnualIncreasePct = 100.0

	monthsPerYear = 12
)

// Input holds the four scalars a comparison is computed from.
// Rates are percentages, e.g. 4.0 for 4%.
type Input struct {
	CurrentMonthlyBill float64 `json:"current_monthly_bill"`
	FlatRate           float64 `json:"flat_rate"`
	AnnualIncreasePct  float64 `json:"annual_increase_pct"`
	HorizonYears       int     `json:"horizon_years"`
}

// Series is the year-by-year projection. Every slice is indexed by year
// 0..HorizonYears inclusive.
type Series struct {
	MonthlyUtility    []float64 `json:"monthly_utility"`
	MonthlySolar      []float64 `json:"monthly_solar"`
	AnnualUtility     []float64 `json:"annual_utility"`
	AnnualSolar       []float64 `json:"annual_solar"`
	CumulativeUtility []float64 `json:"cumulative_utility"`
	CumulativeSolar   []float64 `json:"cumulative_solar"`
	CumulativeSavings []float64 `json:"cumulative_savings"`
}

// Project computes the series for in. It never rounds and never fails:
// any finite input produces output, including zero or negative escalation.
// A negative horizon is treated as zero.
//
//	MonthlyUtility[y] = bill * (1 + pct/100)^y
//	CumulativeSavings[y] = CumulativeUtility[y] - CumulativeSolar[y]
func Project(in Input) Series {
	years := in.HorizonYears
	if years < 0 {
		years = 0
	}
	n := years + 1

	s := Series{
		MonthlyUtility:    make([]float64, n),
		MonthlySolar:      make([]float64, n),
		AnnualUtility:     make([]float64, n),
		AnnualSolar:       make([]float64, n),
		CumulativeUtility: make([]float64, n),
		CumulativeSolar:   make([]float64, n),
		CumulativeSavings: make([]float64, n),
	}

	multiplier := 1 + in.AnnualIncreasePct/100

	for y := 0; y < n; y++ {
		s.MonthlyUtility[y] = in.CurrentMonthlyBill * math.Pow(multiplier, float64(y))
		s.MonthlySolar[y] = in.FlatRate
		s.AnnualUtility[y] = s.MonthlyUtility[y] * monthsPerYear
		s.AnnualSolar[y] = s.MonthlySolar[y] * monthsPerYear

		if y == 0 {
			s.CumulativeUtility[y] = s.AnnualUtility[y]
			s.CumulativeSolar[y] = s.AnnualSolar[y]
		} else {
			s.CumulativeUtility[y] = s.CumulativeUtility[y-1] + s.AnnualUtility[y]
			s.CumulativeSolar[y] = s.CumulativeSolar[y-1] + s.AnnualSolar[y]
		}
		s.CumulativeSavings[y] = s.CumulativeUtility[y] - s.CumulativeSolar[y]
	}

	return s
}

// Years returns the horizon the series was projected over
func (s Series) Years() int {
	return len(s.MonthlyUtility) - 1
}

// SavingsThrough returns the unrounded cumulative savings through year y,
// clamped to the series bounds
func (s Series) SavingsThrough(y int) float64 {
	if len(s.CumulativeSavings) == 0 {
		return 0
	}
	if y < 0 {
		y = 0
	}
	if y >= len(s.CumulativeSavings) {
		y = len(s.CumulativeSavings) - 1
	}
	return s.CumulativeSavings[y]
}

// Compare validates in, then projects and summarizes it
func Compare(in Input) (Series, Summary, error) {
	if err := in.Validate(); err != nil {
		return Series{}, Summary{}, err
	}
	s := Project(in)
	return s, Summarize(s, in.HorizonYears), nil
}

// FlatRateFromDiscount returns the whole-dollar flat rate offered at
// discountPct below the current bill
func FlatRateFromDiscount(bill, discountPct float64) float64 {
	return float64(Round(bill * (1 - discountPct/100)))
}
