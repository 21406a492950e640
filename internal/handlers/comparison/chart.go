package comparison

import (
	"fmt"

	"solarman/internal/projection"
)

const (
	utilityColor = "#EF4444"
	solarColor   = "#1C64F2"
)

// BuildChartData turns a series into a Chart.js line chart of monthly cost.
// Utility values are rounded to cents for display; the series itself is
// left untouched.
func BuildChartData(s projection.Series) map[string]interface{} {
	n := len(s.MonthlyUtility)
	labels := make([]string, n)
	utility := make([]float64, n)
	solar := make([]float64, n)
	for y := 0; y < n; y++ {
		labels[y] = fmt.Sprintf("Year %d", y)
		utility[y] = projection.RoundCents(s.MonthlyUtility[y])
		solar[y] = projection.RoundCents(s.MonthlySolar[y])
	}

	return map[string]interface{}{
		"labels": labels,
		"datasets": []map[string]interface{}{
			{
				"label":           "Utility Bills",
				"data":            utility,
				"borderColor":     utilityColor,
				"backgroundColor": "rgba(239, 68, 68, 0.1)",
				"borderWidth":     2,
				"tension":         0.1,
				"fill":            false,
			},
			{
				"label":           "SolarMan Fixed Rate",
				"data":            solar,
				"borderColor":     solarColor,
				"backgroundColor": "rgba(28, 100, 242, 0.1)",
				"borderWidth":     2,
				"tension":         0.1,
				"fill":            false,
			},
		},
		"yAxisTitle": "Monthly Cost ($)",
		"xAxisTitle": "Years",
	}
}
