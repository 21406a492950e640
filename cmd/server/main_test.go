package main

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"solarman/internal/config"
	"solarman/internal/services/ratelimit"
	"solarman/internal/testutil"
)

const adminPassword = "correct-horse"

// setupTestServer creates a test server with an in-memory submission store
func setupTestServer(t *testing.T, tweak ...func(*config.Config)) *testutil.TestServer {
	t.Helper()

	cfg := testutil.TestConfig(t)
	cfg.Admin.Password = adminPassword
	for _, fn := range tweak {
		fn(cfg)
	}

	if err := SetupDependencies(cfg); err != nil {
		t.Fatalf("Failed to setup dependencies: %v", err)
	}
	t.Cleanup(Teardown)

	return testutil.NewTestServer(t, SetupRouter())
}

func validContact() map[string]interface{} {
	return map[string]interface{}{
		"name":    "Jane Doe",
		"email":   "jane@example.com",
		"phone":   "5551234567",
		"message": "Please call me about solar.",
	}
}

func TestHealthEndpoint(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.GET("/api/health")
	testutil.AssertResponse(t, resp).
		StatusOK().
		ContentTypeJSON().
		ContainsAll(`"status":"ok"`, `"storage":"memory"`).
		Matches(`"version":\{"version":"[^"]+"`)
}

func TestHomePage(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.GET("/")
	testutil.AssertResponse(t, resp).
		StatusOK().
		ContentTypeHTML().
		ContainsAll(
			"Sunman Energy",
			"#Summer2025",
			`id="step-1"`,
			`id="step-4"`,
			`id="comparison-results"`,
			`id="contact-form"`,
			"$29,370",
			"$102",
		).
		HasElement("savings-chart")
}

func TestComparePartial(t *testing.T) {
	ts := setupTestServer(t)

	t.Run("custom bill", func(t *testing.T) {
		resp := ts.GETWithQuery("/compare", map[string]string{"bill": "300", "provider": "Duke Energy"})
		testutil.AssertResponse(t, resp).
			StatusOK().
			ContentTypeHTML().
			ContainsAll(`id="flat-rate"`, "$255", "$73,425", "$45").
			NotContains("<html")
	})

	t.Run("invalid bill falls back to default", func(t *testing.T) {
		resp := ts.GETWithQuery("/compare", map[string]string{"bill": "abc"})
		testutil.AssertResponse(t, resp).
			StatusOK().
			Contains("$29,370")
	})

	t.Run("bill too small for a positive rate", func(t *testing.T) {
		resp := ts.GETWithQuery("/compare", map[string]string{"bill": "0"})
		testutil.AssertResponse(t, resp).
			StatusOK().
			Contains("$29,370")
	})
}

func TestChartPage(t *testing.T) {
	ts := setupTestServer(t)

	t.Run("defaults", func(t *testing.T) {
		resp := ts.GET("/chart")
		testutil.AssertResponse(t, resp).
			StatusOK().
			ContentTypeHTML().
			ContainsAll("25-Year Energy Cost Comparison", "$73,425", "$540", "data-chart-url=").
			NotContains(`id="chart-notice"`)
	})

	t.Run("custom values", func(t *testing.T) {
		resp := ts.GETWithQuery("/chart", map[string]string{
			"bill": "150", "rate": "120", "increase": "3", "years": "20",
		})
		testutil.AssertResponse(t, resp).
			StatusOK().
			Contains("20-Year Energy Cost Comparison").
			NotContains(`id="chart-notice"`)
	})

	t.Run("invalid values show a notice", func(t *testing.T) {
		resp := ts.GETWithQuery("/chart", map[string]string{"bill": "-5", "years": "zero"})
		testutil.AssertResponse(t, resp).
			StatusOK().
			ContainsAll(`id="chart-notice"`, "$73,425")
	})
}

func TestChartData(t *testing.T) {
	ts := setupTestServer(t)

	var data struct {
		Labels   []string `json:"labels"`
		Datasets []struct {
			Label string    `json:"label"`
			Data  []float64 `json:"data"`
		} `json:"datasets"`
	}
	resp := ts.GET("/chart/data")
	testutil.AssertResponse(t, resp).
		StatusOK().
		ContentTypeJSON().
		DecodeJSON(&data)

	if len(data.Labels) != 26 || data.Labels[0] != "Year 0" || data.Labels[25] != "Year 25" {
		t.Errorf("unexpected labels: %v", data.Labels)
	}
	if len(data.Datasets) != 2 {
		t.Fatalf("expected 2 datasets, got %d", len(data.Datasets))
	}
	if data.Datasets[0].Label != "Utility Bills" || data.Datasets[1].Label != "SolarMan Fixed Rate" {
		t.Errorf("unexpected dataset labels: %q, %q", data.Datasets[0].Label, data.Datasets[1].Label)
	}
	if got := data.Datasets[0].Data[25]; got != 799.75 {
		t.Errorf("utility bill in year 25 = %v, want 799.75", got)
	}
	if got := data.Datasets[1].Data[25]; got != 255 {
		t.Errorf("solar rate in year 25 = %v, want 255", got)
	}
}

func TestProjectionAPI(t *testing.T) {
	ts := setupTestServer(t)

	t.Run("valid", func(t *testing.T) {
		var body struct {
			Success bool `json:"success"`
			Summary struct {
				TotalSavings     int64 `json:"total_savings"`
				FirstYearSavings int64 `json:"first_year_savings"`
				MonthlySavings   int64 `json:"monthly_savings"`
			} `json:"summary"`
			Series struct {
				CumulativeSavings []float64 `json:"cumulative_savings"`
			} `json:"series"`
		}
		resp := ts.GETWithQuery("/api/projection", map[string]string{
			"bill": "120", "rate": "102", "increase": "4", "years": "25",
		})
		testutil.AssertResponse(t, resp).
			StatusOK().
			ContentTypeJSON().
			DecodeJSON(&body)

		if !body.Success {
			t.Error("expected success")
		}
		if body.Summary.TotalSavings != 29370 {
			t.Errorf("total savings = %d, want 29370", body.Summary.TotalSavings)
		}
		if body.Summary.FirstYearSavings != 216 || body.Summary.MonthlySavings != 18 {
			t.Errorf("first year / monthly = %d / %d, want 216 / 18",
				body.Summary.FirstYearSavings, body.Summary.MonthlySavings)
		}
		if len(body.Series.CumulativeSavings) != 26 {
			t.Errorf("series length = %d, want 26", len(body.Series.CumulativeSavings))
		}
	})

	t.Run("invalid", func(t *testing.T) {
		resp := ts.GETWithQuery("/api/projection", map[string]string{"bill": "-1", "increase": "x"})
		testutil.AssertResponse(t, resp).
			Status(http.StatusBadRequest).
			ContentTypeJSON().
			ContainsAll(`"success":false`, "Invalid projection input", `"field":"bill"`, `"field":"increase"`)
	})

	t.Run("horizon too long", func(t *testing.T) {
		resp := ts.GETWithQuery("/api/projection", map[string]string{"years": "500"})
		testutil.AssertResponse(t, resp).
			Status(http.StatusBadRequest).
			Contains(`"field":"years"`)
	})
}

func TestConsultationPage(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.GET("/consultation")
	testutil.AssertResponse(t, resp).
		StatusOK().
		ContentTypeHTML().
		ContainsAll(`id="consultation-form"`, `hx-post="/api/consultation"`, `name="zipCode"`, `name="agreeToTerms"`)
}

func TestContactSubmission(t *testing.T) {
	ts := setupTestServer(t)

	t.Run("json", func(t *testing.T) {
		resp := ts.POSTJSON("/api/contact", validContact())
		testutil.AssertResponse(t, resp).
			StatusOK().
			ContentTypeJSON().
			ContainsAll(`"success":true`, "Contact form submission successful")
	})

	t.Run("form", func(t *testing.T) {
		form := url.Values{}
		for k, v := range validContact() {
			form.Set(k, v.(string))
		}
		resp := ts.POSTForm("/api/contact", form, nil)
		testutil.AssertResponse(t, resp).
			StatusOK().
			Contains(`"success":true`)
	})

	t.Run("htmx validation error", func(t *testing.T) {
		form := url.Values{"name": {"J"}, "email": {"nope"}}
		resp := ts.POSTForm("/api/contact", form, map[string]string{"HX-Request": "true"})
		testutil.AssertResponse(t, resp).
			StatusOK().
			ContentTypeHTML().
			HasClass("form-result").
			ContainsAll("Validation failed", `data-field="name"`, `data-field="email"`, `data-field="message"`)
	})

	t.Run("json validation error", func(t *testing.T) {
		resp := ts.POSTJSON("/api/contact", map[string]string{"name": "Jane"})
		testutil.AssertResponse(t, resp).
			Status(http.StatusBadRequest).
			ContainsAll(`"success":false`, "Validation failed", `"field":"email"`).
			NotContains(`"field":"name"`)
	})

	t.Run("malformed json", func(t *testing.T) {
		resp := ts.POST("/api/contact", "application/json", strings.NewReader("{"))
		testutil.AssertResponse(t, resp).
			Status(http.StatusBadRequest).
			Contains("Invalid request body")
	})

	list, err := store.List(context.Background(), "contact")
	if err != nil {
		t.Fatalf("listing contacts: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("stored contacts = %d, want 2", len(list))
	}
}

func TestConsultationSubmission(t *testing.T) {
	ts := setupTestServer(t)

	body := map[string]interface{}{
		"firstName":    "Jane",
		"lastName":     "Doe",
		"email":        "jane@example.com",
		"phone":        "5551234567",
		"address":      "1 Main St",
		"city":         "Charlotte",
		"state":        "NC",
		"zipCode":      "28202",
		"agreeToTerms": true,
	}
	resp := ts.POSTJSON("/api/consultation", body)
	testutil.AssertResponse(t, resp).
		StatusOK().
		ContainsAll(`"success":true`, "free consultation")

	body["agreeToTerms"] = false
	resp = ts.POSTJSON("/api/consultation", body)
	testutil.AssertResponse(t, resp).
		Status(http.StatusBadRequest).
		Contains(`"field":"agreeToTerms"`)
}

func TestContactRateLimit(t *testing.T) {
	ts := setupTestServer(t, func(c *config.Config) {
		c.RateLimit.Requests = 2
	})

	for i := 0; i < 2; i++ {
		resp := ts.POSTJSON("/api/contact", validContact())
		testutil.AssertResponse(t, resp).StatusOK()
	}

	resp := ts.POSTJSON("/api/contact", validContact())
	testutil.AssertResponse(t, resp).
		Status(http.StatusTooManyRequests).
		Contains("Too many requests")

	// page routes are not throttled
	testutil.AssertResponse(t, ts.GET("/api/health")).StatusOK()
}

func TestAdminExport(t *testing.T) {
	ts := setupTestServer(t)
	testutil.AssertResponse(t, ts.POSTJSON("/api/contact", validContact())).StatusOK()

	t.Run("requires credentials", func(t *testing.T) {
		resp := ts.GET("/admin/export")
		testutil.AssertResponse(t, resp).
			Status(http.StatusUnauthorized).
			Header("WWW-Authenticate", `Basic realm="solarman admin"`)
	})

	t.Run("zip archive", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, ts.BaseURL+"/admin/export", nil)
		if err != nil {
			t.Fatal(err)
		}
		req.SetBasicAuth("admin", adminPassword)
		resp := ts.Do(req)
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		if ct := resp.Header.Get("Content-Type"); ct != "application/zip" {
			t.Errorf("content type = %q", ct)
		}
		if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "solarman_export_") {
			t.Errorf("content disposition = %q", cd)
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			t.Fatal(err)
		}
		zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			t.Fatalf("reading zip: %v", err)
		}
		names := map[string]bool{}
		var contactJSON bool
		for _, f := range zr.File {
			names[f.Name] = true
			if strings.HasPrefix(f.Name, "contact/") && strings.HasSuffix(f.Name, ".json") {
				contactJSON = true
			}
		}
		if !names["contacts.csv"] || !names["consultations.csv"] {
			t.Errorf("missing csv files in %v", names)
		}
		if !contactJSON {
			t.Errorf("missing contact record in %v", names)
		}
	})
}

func TestAdminExportDisabledWithoutPassword(t *testing.T) {
	ts := setupTestServer(t, func(c *config.Config) {
		c.Admin.Password = ""
	})

	resp := ts.GET("/admin/export")
	testutil.AssertResponse(t, resp).Status(http.StatusNotFound)
}

func TestStaticFiles(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.GET("/static/js/savings-chart.js")
	testutil.AssertResponse(t, resp).
		StatusOK().
		Contains("data-chart-url")

	resp = ts.GET("/static/missing.js")
	testutil.AssertResponse(t, resp).Status(http.StatusNotFound)
}

func TestNewLimiterFallsBackWithoutRedis(t *testing.T) {
	l := newLimiter(config.RateLimitConfig{Requests: 1, RedisAddr: "127.0.0.1:1"})
	mem, ok := l.(*ratelimit.Memory)
	if !ok {
		t.Fatalf("expected in-process limiter, got %T", l)
	}
	mem.Stop()
}
