package contact

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	apphttp "solarman/internal/http"
	"solarman/internal/models"
	"solarman/internal/services/ratelimit"
	"solarman/internal/services/submissions"
	"solarman/internal/templates"
)

const maxBodyBytes = 64 << 10

var (
	store    submissions.Store
	limiter  ratelimit.Limiter
	renderer *templates.Renderer

	now = time.Now
)

// Initialize sets up the contact package with required dependencies. A nil
// limiter leaves the endpoints unthrottled.
func Initialize(s submissions.Store, l ratelimit.Limiter, r *templates.Renderer) {
	store = s
	limiter = l
	renderer = r
}

// RegisterRoutes registers the submission endpoints
func RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		if limiter != nil {
			r.Use(apphttp.RateLimit(limiter))
		}
		r.Post("/api/contact", handleContact)
		r.Post("/api/consultation", handleConsultation)
	})
}

func handleContact(w http.ResponseWriter, r *http.Request) {
	var c models.Contact
	if err := decode(w, r, &c, func(f formValues) {
		c.Name = f.get("name")
		c.Email = f.get("email")
		c.Phone = f.get("phone")
		c.Message = f.get("message")
	}); err != nil {
		slog.Info("contact: unreadable body", "error", err)
		respond(w, r, http.StatusBadRequest, apphttp.Response{Message: "Invalid request body"})
		return
	}

	if err := c.Validate(); err != nil {
		validationFailed(w, r, err)
		return
	}

	c.ID, c.CreatedAt = models.Stamp(now())
	if err := store.Save(r.Context(), &c); err != nil {
		slog.Error("saving contact", "id", c.ID, "error", err)
		respond(w, r, http.StatusInternalServerError, apphttp.Response{Message: "Internal server error"})
		return
	}

	slog.Info("contact received", "id", c.ID)
	respond(w, r, http.StatusOK, apphttp.Response{
		Success: true,
		Message: "Contact form submission successful",
	})
}

func handleConsultation(w http.ResponseWriter, r *http.Request) {
	var c models.Consultation
	if err := decode(w, r, &c, func(f formValues) {
		c.FirstName = f.get("firstName")
		c.LastName = f.get("lastName")
		c.Email = f.get("email")
		c.Phone = f.get("phone")
		c.Address = f.get("address")
		c.City = f.get("city")
		c.State = f.get("state")
		c.ZipCode = f.get("zipCode")
		c.AgreeToTerms = f.checked("agreeToTerms")
	}); err != nil {
		slog.Info("consultation: unreadable body", "error", err)
		respond(w, r, http.StatusBadRequest, apphttp.Response{Message: "Invalid request body"})
		return
	}

	if err := c.Validate(); err != nil {
		validationFailed(w, r, err)
		return
	}

	c.ID, c.CreatedAt = models.Stamp(now())
	if err := store.Save(r.Context(), &c); err != nil {
		slog.Error("saving consultation", "id", c.ID, "error", err)
		respond(w, r, http.StatusInternalServerError, apphttp.Response{Message: "Internal server error"})
		return
	}

	slog.Info("consultation requested", "id", c.ID, "state", c.State)
	respond(w, r, http.StatusOK, apphttp.Response{
		Success: true,
		Message: "Consultation request submitted. We'll contact you shortly to schedule your free consultation.",
	})
}

type formValues struct {
	r *http.Request
}

func (f formValues) get(key string) string {
	return f.r.PostForm.Get(key)
}

func (f formValues) checked(key string) bool {
	switch strings.ToLower(f.r.PostForm.Get(key)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

// decode fills v from a JSON body, or calls fromForm for form posts
func decode(w http.ResponseWriter, r *http.Request, v interface{}, fromForm func(formValues)) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		return json.NewDecoder(r.Body).Decode(v)
	}

	if err := r.ParseForm(); err != nil {
		return err
	}
	fromForm(formValues{r: r})
	return nil
}

func validationFailed(w http.ResponseWriter, r *http.Request, err error) {
	var verrs models.ValidationErrors
	if !errors.As(err, &verrs) {
		slog.Error("unexpected validation error", "error", err)
		respond(w, r, http.StatusInternalServerError, apphttp.Response{Message: "Internal server error"})
		return
	}
	respond(w, r, http.StatusBadRequest, apphttp.Response{
		Message: "Validation failed",
		Errors:  verrs,
	})
}

// respond writes JSON, or for htmx requests an HTML result card. htmx only
// swaps 2xx responses, so the card is always sent with 200 and carries the
// real status in its data.
func respond(w http.ResponseWriter, r *http.Request, status int, resp apphttp.Response) {
	if apphttp.IsHTMX(r) && renderer != nil {
		apphttp.RenderPartial(w, renderer, "form-result", map[string]interface{}{
			"Status":   status,
			"Response": resp,
		})
		return
	}
	apphttp.WriteJSON(w, status, resp)
}
