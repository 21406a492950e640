package comparison

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"solarman/internal/config"
	apphttp "solarman/internal/http"
	"solarman/internal/models"
	"solarman/internal/projection"
	"solarman/internal/templates"
)

var (
	settings config.ComparisonConfig
	renderer *templates.Renderer
)

// Initialize sets up the comparison package with required dependencies
func Initialize(c config.ComparisonConfig, r *templates.Renderer) {
	settings = c
	renderer = r
}

// RegisterRoutes registers the calculator, chart and projection API routes
func RegisterRoutes(r chi.Router) {
	r.Get("/compare", handleComparePartial)
	r.Get("/chart", handleChart)
	r.Get("/chart/data", handleChartData)
	r.Get("/api/projection", handleProjectionAPI)
}

// chartDefaults is the comparison the chart page shows without parameters
func chartDefaults() projection.Input {
	return projection.Input{
		CurrentMonthlyBill: settings.ChartBill,
		FlatRate:           settings.ChartRate,
		AnnualIncreasePct:  settings.ChartIncrease,
		HorizonYears:       settings.HorizonYears,
	}
}

// BuildView computes the calculator section for a monthly bill. The flat
// rate is the bill less the configured discount. An unknown provider is
// replaced by the first configured one.
func BuildView(bill float64, provider string) (models.ComparisonView, error) {
	if !knownProvider(provider) {
		provider = settings.Providers[0]
	}

	in := projection.Input{
		CurrentMonthlyBill: bill,
		FlatRate:           projection.FlatRateFromDiscount(bill, settings.DiscountPercent),
		AnnualIncreasePct:  settings.ChartIncrease,
		HorizonYears:       settings.HorizonYears,
	}
	_, summary, err := projection.Compare(in)
	if err != nil {
		return models.ComparisonView{}, err
	}

	return models.ComparisonView{
		CurrentBill:       in.CurrentMonthlyBill,
		FlatRate:          in.FlatRate,
		DiscountPct:       settings.DiscountPercent,
		AnnualIncreasePct: in.AnnualIncreasePct,
		HorizonYears:      in.HorizonYears,
		Provider:          provider,
		Providers:         settings.Providers,
		TotalSavings:      summary.TotalSavings,
		FirstYearSavings:  summary.FirstYearSavings,
		MonthlySavings:    summary.MonthlySavings,
		ChartDataURL:      "/chart/data?" + queryFor(in).Encode(),
		ChartPageURL:      "/chart?" + queryFor(in).Encode(),
	}, nil
}

// DefaultView is the calculator as first shown on the home page
func DefaultView() models.ComparisonView {
	view, err := BuildView(settings.DefaultBill, "")
	if err != nil {
		// config validation keeps the defaults computable
		slog.Error("default comparison failed", "error", err)
	}
	return view
}

func knownProvider(name string) bool {
	for _, p := range settings.Providers {
		if p == name {
			return true
		}
	}
	return false
}

func queryFor(in projection.Input) url.Values {
	q := url.Values{}
	q.Set("bill", strconv.FormatFloat(in.CurrentMonthlyBill, 'f', -1, 64))
	q.Set("rate", strconv.FormatFloat(in.FlatRate, 'f', -1, 64))
	q.Set("increase", strconv.FormatFloat(in.AnnualIncreasePct, 'f', -1, 64))
	q.Set("years", strconv.Itoa(in.HorizonYears))
	return q
}

func handleComparePartial(w http.ResponseWriter, r *http.Request) {
	defaults := chartDefaults()
	defaults.CurrentMonthlyBill = settings.DefaultBill

	in, errs := apphttp.ParseProjectionQuery(r.URL.Query(), defaults)
	if len(errs) > 0 {
		slog.Debug("compare: falling back to defaults", "errors", errs)
	}

	view, err := BuildView(in.CurrentMonthlyBill, r.URL.Query().Get("provider"))
	if err != nil {
		// a bill too small to leave a positive flat rate
		view = DefaultView()
	}

	apphttp.RenderPartial(w, renderer, "comparison-results", map[string]interface{}{
		"Comparison": view,
	})
}

func handleChart(w http.ResponseWriter, r *http.Request) {
	in, errs := apphttp.ParseProjectionQuery(r.URL.Query(), chartDefaults())

	_, summary, err := projection.Compare(in)
	if err != nil {
		slog.Error("chart projection failed", "input", in, "error", err)
		apphttp.ErrorResponse(w, "Could not compute projection", http.StatusInternalServerError)
		return
	}

	view := models.ChartView{
		CurrentBill:       in.CurrentMonthlyBill,
		FlatRate:          in.FlatRate,
		AnnualIncreasePct: in.AnnualIncreasePct,
		HorizonYears:      in.HorizonYears,
		TotalSavings:      summary.TotalSavings,
		FirstYearSavings:  summary.FirstYearSavings,
		DataURL:           "/chart/data?" + queryFor(in).Encode(),
	}
	if len(errs) > 0 {
		view.Notice = "Some values were not valid and have been reset to their defaults."
	}

	apphttp.RenderTemplate(w, renderer, "base", map[string]interface{}{
		"Title":     strconv.Itoa(in.HorizonYears) + "-Year Energy Cost Comparison",
		"ActiveTab": "chart",
		"Chart":     view,
		"Errors":    errs,
	})
}

func handleChartData(w http.ResponseWriter, r *http.Request) {
	in, _ := apphttp.ParseProjectionQuery(r.URL.Query(), chartDefaults())

	series, _, err := projection.Compare(in)
	if err != nil {
		apphttp.WriteJSON(w, http.StatusBadRequest, apphttp.Response{Message: err.Error()})
		return
	}

	apphttp.WriteJSON(w, http.StatusOK, BuildChartData(series))
}

// projectionResponse is the body of GET /api/projection
type projectionResponse struct {
	Success bool               `json:"success"`
	Input   projection.Input   `json:"input"`
	Series  projection.Series  `json:"series"`
	Summary projection.Summary `json:"summary"`
}

func handleProjectionAPI(w http.ResponseWriter, r *http.Request) {
	in, errs := apphttp.ParseProjectionQuery(r.URL.Query(), chartDefaults())
	if len(errs) > 0 {
		apphttp.WriteJSON(w, http.StatusBadRequest, apphttp.Response{
			Message: "Invalid projection input",
			Errors:  errs,
		})
		return
	}

	series, summary, err := projection.Compare(in)
	if err != nil {
		resp := apphttp.Response{Message: "Invalid projection input"}
		var inputErr *projection.InputError
		if errors.As(err, &inputErr) {
			resp.Errors = []models.FieldError{{Field: inputErr.Field, Message: inputErr.Reason}}
		}
		apphttp.WriteJSON(w, http.StatusBadRequest, resp)
		return
	}

	apphttp.WriteJSON(w, http.StatusOK, projectionResponse{
		Success: true,
		Input:   in,
		Series:  series,
		Summary: summary,
	})
}
