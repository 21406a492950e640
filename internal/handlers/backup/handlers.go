package backup

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"solarman/internal/config"
	apphttp "solarman/internal/http"
	"solarman/internal/models"
	"solarman/internal/services/submissions"
	"solarman/internal/version"
)

const chartJSURL = "https://cdn.jsdelivr.net/npm/chart.js@4.4.1/dist/chart.umd.min.js"

var (
	cfg   *config.Config
	store submissions.Store

	httpClient = &http.Client{Timeout: 15 * time.Second}
)

// Initialize sets up the backup package with required dependencies
func Initialize(c *config.Config, s submissions.Store) {
	cfg = c
	store = s
}

// RegisterRoutes registers health, vendored asset and admin routes. The
// export is only mounted when an admin password is configured.
func RegisterRoutes(r chi.Router) {
	r.Get("/api/health", HandleHealth)
	r.Get("/vendor/chart.js", HandleChartJS)

	if cfg.Admin.Password == "" {
		slog.Info("admin export disabled: no admin password configured")
		return
	}
	r.Group(func(r chi.Router) {
		r.Use(middleware.BasicAuth("solarman admin", map[string]string{
			cfg.Admin.Username: cfg.Admin.Password,
		}))
		r.Get("/admin/export", HandleExport)
	})
}

func HandleHealth(w http.ResponseWriter, r *http.Request) {
	apphttp.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": version.Get(),
		"storage": cfg.Storage.Backend,
	})
}

// HandleExport sends every stored submission as a ZIP archive: one JSON
// document per record plus a CSV per kind. Records are written decrypted.
func HandleExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	count, err := WriteExport(r.Context(), store, &buf)
	if err != nil {
		slog.Error("creating export", "error", err)
		apphttp.ErrorResponse(w, "Error creating export", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("solarman_export_%s.zip", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Warn("sending export", "error", err)
		return
	}
	slog.Info("export downloaded", "records", count)
}

// WriteExport writes the archive for all records in s to w and returns how
// many records it holds
func WriteExport(ctx context.Context, s submissions.Store, w io.Writer) (int, error) {
	envs, err := s.List(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("listing submissions: %w", err)
	}

	zw := zip.NewWriter(w)

	var contacts, consultations [][]string
	for _, env := range envs {
		f, err := zw.Create(filepath.ToSlash(filepath.Join(env.Kind, env.ID+".json")))
		if err != nil {
			return 0, err
		}
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, env.Payload, "", "  "); err != nil {
			return 0, fmt.Errorf("formatting %s: %w", env.ID, err)
		}
		if _, err := f.Write(pretty.Bytes()); err != nil {
			return 0, err
		}

		switch env.Kind {
		case models.KindContact:
			var c models.Contact
			if err := env.Decode(&c); err != nil {
				return 0, fmt.Errorf("decoding contact %s: %w", env.ID, err)
			}
			contacts = append(contacts, []string{
				c.ID, c.CreatedAt.Format(time.RFC3339), c.Name, c.Email, c.Phone, c.Message,
			})
		case models.KindConsultation:
			var c models.Consultation
			if err := env.Decode(&c); err != nil {
				return 0, fmt.Errorf("decoding consultation %s: %w", env.ID, err)
			}
			consultations = append(consultations, []string{
				c.ID, c.CreatedAt.Format(time.RFC3339), c.FirstName, c.LastName, c.Email, c.Phone,
				c.Address, c.City, c.State, c.ZipCode, strconv.FormatBool(c.AgreeToTerms),
			})
		}
	}

	if err := writeCSV(zw, "contacts.csv",
		[]string{"id", "created_at", "name", "email", "phone", "message"}, contacts); err != nil {
		return 0, err
	}
	if err := writeCSV(zw, "consultations.csv",
		[]string{"id", "created_at", "first_name", "last_name", "email", "phone", "address", "city", "state", "zip_code", "agree_to_terms"},
		consultations); err != nil {
		return 0, err
	}

	if err := zw.Close(); err != nil {
		return 0, err
	}
	return len(envs), nil
}

func writeCSV(zw *zip.Writer, name string, header []string, rows [][]string) error {
	f, err := zw.Create(name)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(f)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		safe := make([]string, len(row))
		for i, cell := range row {
			safe[i] = csvSafe(cell)
		}
		if err := cw.Write(safe); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

// csvSafe keeps spreadsheets from evaluating a submitted value as a formula
func csvSafe(cell string) string {
	if cell != "" && strings.ContainsRune("=+-@\t\r", rune(cell[0])) {
		return "'" + cell
	}
	return cell
}

// HandleChartJS serves Chart.js from the data directory cache, fetching it
// from the CDN on first use
func HandleChartJS(w http.ResponseWriter, r *http.Request) {
	cachePath := filepath.Join(cfg.Storage.DataDirectory, "cache", "chart.umd.min.js")

	if data, err := os.ReadFile(cachePath); err == nil {
		serveJS(w, data)
		return
	}

	slog.Info("fetching chart.js from CDN", "url", chartJSURL)
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, chartJSURL, nil)
	if err != nil {
		apphttp.ErrorResponse(w, "Failed to fetch chart.js", http.StatusInternalServerError)
		return
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		apphttp.ErrorResponse(w, "Failed to fetch chart.js: "+err.Error(), http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		apphttp.ErrorResponse(w, "CDN returned status: "+resp.Status, http.StatusBadGateway)
		return
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		apphttp.ErrorResponse(w, "Failed to read chart.js response", http.StatusBadGateway)
		return
	}

	if err := os.MkdirAll(filepath.Dir(cachePath), 0o750); err != nil {
		slog.Warn("could not create cache directory", "error", err)
	} else if err := os.WriteFile(cachePath, data, 0o644); err != nil {
		slog.Warn("could not cache chart.js", "error", err)
	}

	serveJS(w, data)
}

func serveJS(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "application/javascript")
	w.Header().Set("Cache-Control", "public, max-age=31536000")
	w.Write(data)
}
