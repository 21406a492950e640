// Package http holds helpers shared by the route handlers.
package http

import (
	"encoding/json"
	"html"
	"log/slog"
	"math"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"solarman/internal/models"
	"solarman/internal/projection"
	"solarman/internal/services/ratelimit"
	"solarman/internal/templates"
)

// Response is the JSON envelope returned by the submission endpoints
type Response struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Errors  []models.FieldError `json:"errors,omitempty"`
}

// RenderTemplate renders a full page template with data
func RenderTemplate(w http.ResponseWriter, renderer *templates.Renderer, templateName string, data map[string]interface{}) {
	if renderer != nil {
		renderer.Render(w, templateName, data)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	title, _ := data["Title"].(string)
	w.Write([]byte("<html><body><h1>" + html.EscapeString(title) + "</h1><p>Templates not loaded. Check configuration.</p></body></html>"))
}

// RenderPartial renders a partial template with data
func RenderPartial(w http.ResponseWriter, renderer *templates.Renderer, partialName string, data map[string]interface{}) {
	if renderer != nil {
		renderer.RenderPartial(w, partialName, data)
		return
	}
	WriteJSON(w, http.StatusOK, data)
}

// WriteJSON encodes v with the given status
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

// ErrorResponse sends a plain text error response
func ErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	slog.Warn("request failed", "message", message, "status", statusCode)
	http.Error(w, message, statusCode)
}

// IsHTMX reports whether the request was issued by htmx
func IsHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// ClientIP returns the request's client address without the port. chi's
// RealIP middleware has already applied proxy headers to RemoteAddr.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimit rejects clients over the limiter's budget with 429. Limiter
// failures let the request through.
func RateLimit(limiter ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)

			ok, err := limiter.Allow(r.Context(), ip)
			if err != nil {
				slog.Error("rate limiter unavailable", "client", ip, "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				slog.Info("rate limit exceeded", "client", ip, "path", r.URL.Path)
				WriteJSON(w, http.StatusTooManyRequests, Response{
					Success: false,
					Message: "Too many requests, please try again later",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ParseProjectionQuery reads bill, rate, increase and years from q. Missing
// parameters take the value in defaults; unparsable or out-of-range ones
// also fall back and are reported in the returned field errors. Bill and
// rate are whole dollars and any fraction is dropped.
func ParseProjectionQuery(q url.Values, defaults projection.Input) (projection.Input, []models.FieldError) {
	in := defaults
	var errs []models.FieldError

	if v, ok, msg := wholeDollars(q.Get("bill")); msg != "" {
		errs = append(errs, models.FieldError{Field: "bill", Message: msg})
	} else if ok {
		in.CurrentMonthlyBill = v
	}

	if v, ok, msg := wholeDollars(q.Get("rate")); msg != "" {
		errs = append(errs, models.FieldError{Field: "rate", Message: msg})
	} else if ok {
		in.FlatRate = v
	}

	if s := strings.TrimSpace(q.Get("increase")); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		switch {
		case err != nil || math.IsNaN(v) || math.IsInf(v, 0):
			errs = append(errs, models.FieldError{Field: "increase", Message: "Annual increase must be a number"})
		case v <= -100 || v > projection.MaxAnnualIncreasePct:
			errs = append(errs, models.FieldError{Field: "increase", Message: "Annual increase must be greater than -100% and at most 100%"})
		default:
			in.AnnualIncreasePct = v
		}
	}

	if s := strings.TrimSpace(q.Get("years")); s != "" {
		v, err := strconv.Atoi(s)
		switch {
		case err != nil:
			errs = append(errs, models.FieldError{Field: "years", Message: "Years must be a whole number"})
		case v < 1 || v > projection.MaxHorizonYears:
			errs = append(errs, models.FieldError{Field: "years", Message: "Years must be between 1 and 100"})
		default:
			in.HorizonYears = v
		}
	}

	return in, errs
}

// wholeDollars parses a positive dollar amount and truncates it. ok is false
// for an empty value; msg is set when the value is present but unusable.
func wholeDollars(s string) (v float64, ok bool, msg string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false, ""
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false, "Must be a number"
	}
	f = math.Trunc(f)
	if f <= 0 {
		return 0, false, "Must be at least $1"
	}
	return f, true, ""
}
