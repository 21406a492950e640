// Package site serves the marketing pages.
package site

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"solarman/internal/config"
	"solarman/internal/handlers/comparison"
	apphttp "solarman/internal/http"
	"solarman/internal/models"
	"solarman/internal/templates"
)

var (
	settings config.ComparisonConfig
	renderer *templates.Renderer
)

// Initialize sets up the site package with required dependencies
func Initialize(c config.ComparisonConfig, r *templates.Renderer) {
	settings = c
	renderer = r
}

// RegisterRoutes registers the page routes
func RegisterRoutes(r chi.Router) {
	r.Get("/", handleHome)
	r.Get("/consultation", handleConsultation)
}

func handleHome(w http.ResponseWriter, r *http.Request) {
	apphttp.RenderTemplate(w, renderer, "base", map[string]interface{}{
		"Title":      "No Cash, No Credit. Just Sunlight.",
		"ActiveTab":  "home",
		"PromoCode":  settings.PromoCode,
		"Steps":      models.HowItWorksSteps(),
		"Comparison": comparison.DefaultView(),
		"Referral":   models.ReferralBenefits(),
	})
}

func handleConsultation(w http.ResponseWriter, r *http.Request) {
	apphttp.RenderTemplate(w, renderer, "base", map[string]interface{}{
		"Title":     "Request a Solar Appointment",
		"ActiveTab": "consultation",
	})
}
