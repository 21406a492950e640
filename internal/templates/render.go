package templates

import (
	"bufio"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

var (
	lineNumberRe   = regexp.MustCompile(`:(\d+):`)
	templateCallRe = regexp.MustCompile(`\{\{-?\s*template\s+"([^"]+)"`)
)

// Renderer handles template rendering
type Renderer struct {
	mu        sync.RWMutex
	templates *template.Template
	debug     bool
	baseDir   string
}

// New creates a new template renderer
func New(templateDir string, debug bool) (*Renderer, error) {
	r := &Renderer{
		debug:   debug,
		baseDir: templateDir,
	}

	if err := r.loadTemplates(); err != nil {
		return nil, err
	}

	return r, nil
}

// FuncMap returns the functions available to every template
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"formatMoney":   FormatMoney,
		"formatCents":   FormatCents,
		"formatNumber":  formatNumber,
		"formatPercent": formatPercent,
		"formatDate":    formatDate,
		"add":           add,
		"seq":           seq,
		"dict":          dict,
		"json":          jsonMarshal,
		"lower":         strings.ToLower,
		"colorClass":    colorClass,
		"now":           time.Now,
	}
}

// loadTemplates parses all templates with strict validation
func (r *Renderer) loadTemplates() error {
	tmpl := template.New("").Funcs(FuncMap())

	var templateFiles []string
	for _, subdir := range []string{"layouts", "pages", "partials"} {
		subPattern := filepath.Join(r.baseDir, subdir, "*.html")
		matches, err := filepath.Glob(subPattern)
		if err != nil {
			return fmt.Errorf("error globbing %s: %w", subPattern, err)
		}
		templateFiles = append(templateFiles, matches...)
	}

	if len(templateFiles) == 0 {
		return fmt.Errorf("no template files found in %s", r.baseDir)
	}

	// Parse each file on its own so errors point at the right file
	var parseErrors []string
	for _, file := range templateFiles {
		content, err := os.ReadFile(file)
		if err != nil {
			parseErrors = append(parseErrors, fmt.Sprintf("%s: failed to read: %v", file, err))
			continue
		}

		if _, err := tmpl.New(filepath.Base(file)).Parse(string(content)); err != nil {
			parseErrors = append(parseErrors, formatTemplateError(file, string(content), err))
		}
	}

	if len(parseErrors) > 0 {
		for _, e := range parseErrors {
			slog.Error("template parse error", "detail", e)
		}
		return fmt.Errorf("template parsing failed with %d error(s)", len(parseErrors))
	}

	if err := validateTemplateReferences(tmpl, templateFiles); err != nil {
		return err
	}

	r.mu.Lock()
	r.templates = tmpl
	r.mu.Unlock()

	slog.Debug("templates loaded", "files", len(templateFiles), "dir", r.baseDir)
	return nil
}

// formatTemplateError formats a template error with file context
func formatTemplateError(file, content string, err error) string {
	var sb strings.Builder
	errStr := err.Error()
	lineNum := extractLineNumber(errStr)

	fmt.Fprintf(&sb, "%s: %s", file, errStr)
	if lineNum == 0 {
		return sb.String()
	}

	lines := strings.Split(content, "\n")
	start := max(lineNum-3, 0)
	end := min(lineNum+2, len(lines))
	for i := start; i < end; i++ {
		marker := "   "
		if i+1 == lineNum {
			marker = ">>>"
		}
		fmt.Fprintf(&sb, "\n  %s %4d | %s", marker, i+1, lines[i])
	}
	return sb.String()
}

// extractLineNumber pulls the line out of "template: x:LINE: ..." errors
func extractLineNumber(errStr string) int {
	matches := lineNumberRe.FindStringSubmatch(errStr)
	if len(matches) < 2 {
		return 0
	}
	var lineNum int
	fmt.Sscanf(matches[1], "%d", &lineNum)
	return lineNum
}

// validateTemplateReferences checks that all {{template "name"}} calls reference defined templates
func validateTemplateReferences(tmpl *template.Template, files []string) error {
	defined := make(map[string]bool)
	for _, t := range tmpl.Templates() {
		if t.Name() != "" {
			defined[t.Name()] = true
		}
	}

	var refErrors []string
	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			continue
		}

		scanner := bufio.NewScanner(strings.NewReader(string(content)))
		lineNum := 0
		for scanner.Scan() {
			lineNum++
			line := scanner.Text()
			for _, match := range templateCallRe.FindAllStringSubmatch(line, -1) {
				if !defined[match[1]] {
					refErrors = append(refErrors, fmt.Sprintf("%s:%d: undefined template %q", file, lineNum, match[1]))
				}
			}
		}
	}

	if len(refErrors) > 0 {
		for _, e := range refErrors {
			slog.Error("undefined template reference", "detail", e)
		}
		return fmt.Errorf("found %d undefined template reference(s)", len(refErrors))
	}
	return nil
}

// Reload reloads templates (useful for development)
func (r *Renderer) Reload() error {
	return r.loadTemplates()
}

func (r *Renderer) current() *template.Template {
	// Debug mode re-reads templates on each request
	if r.debug {
		if err := r.loadTemplates(); err != nil {
			slog.Error("reloading templates", "error", err)
		}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.templates
}

// Render renders a full page with the base layout
func (r *Renderer) Render(w http.ResponseWriter, name string, data interface{}) error {
	return r.execute(w, name, data)
}

// RenderPartial renders a partial template (no base layout)
func (r *Renderer) RenderPartial(w http.ResponseWriter, name string, data interface{}) error {
	return r.execute(w, name, data)
}

func (r *Renderer) execute(w http.ResponseWriter, name string, data interface{}) error {
	// Render into a buffer so a failing template never sends half a page
	var buf strings.Builder
	if err := r.current().ExecuteTemplate(&buf, name, data); err != nil {
		slog.Error("rendering template", "template", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err := io.WriteString(w, buf.String())
	return err
}

// RenderToString renders a template to a string
func (r *Renderer) RenderToString(name string, data interface{}) (string, error) {
	var buf strings.Builder
	if err := r.current().ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Template functions

func toDecimal(v interface{}) decimal.Decimal {
	switch val := v.(type) {
	case int:
		return decimal.NewFromInt(int64(val))
	case int64:
		return decimal.NewFromInt(val)
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return decimal.Zero
		}
		return decimal.NewFromFloat(val)
	case decimal.Decimal:
		return val
	default:
		return decimal.Zero
	}
}

// groupThousands inserts commas into the integer part of a plain number
func groupThousands(s string) string {
	intPart, frac, hasFrac := strings.Cut(s, ".")
	var result strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			result.WriteRune(',')
		}
		result.WriteRune(c)
	}
	if hasFrac {
		result.WriteByte('.')
		result.WriteString(frac)
	}
	return result.String()
}

func money(v interface{}, places int32) string {
	d := toDecimal(v).Round(places)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	return sign + "$" + groupThousands(d.StringFixed(places))
}

// FormatMoney renders whole dollars: 73425 -> "$73,425"
func FormatMoney(v interface{}) string {
	return money(v, 0)
}

// FormatCents renders dollars and cents: 799.749 -> "$799.75"
func FormatCents(v interface{}) string {
	return money(v, 2)
}

func formatNumber(v interface{}) string {
	d := toDecimal(v).Round(0)
	if d.IsNegative() {
		return "-" + groupThousands(d.Neg().String())
	}
	return groupThousands(d.String())
}

// formatPercent trims trailing zeros: 4 -> "4%", 2.5 -> "2.5%"
func formatPercent(v interface{}) string {
	return toDecimal(v).Round(2).String() + "%"
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan 2, 2006 3:04 PM")
}

func add(a, b int) int {
	return a + b
}

// seq generates a sequence of integers
func seq(start, end int) []int {
	if end < start {
		return nil
	}
	result := make([]int, end-start+1)
	for i := range result {
		result[i] = start + i
	}
	return result
}

// dict creates a map from key-value pairs
func dict(values ...interface{}) map[string]interface{} {
	if len(values)%2 != 0 {
		return nil
	}
	result := make(map[string]interface{}, len(values)/2)
	for i := 0; i < len(values); i += 2 {
		key, ok := values[i].(string)
		if !ok {
			continue
		}
		result[key] = values[i+1]
	}
	return result
}

func jsonMarshal(v interface{}) template.JS {
	b, err := json.Marshal(v)
	if err != nil {
		return template.JS("null")
	}
	return template.JS(b)
}

func colorClass(v interface{}) string {
	switch toDecimal(v).Sign() {
	case 1:
		return "text-green-600"
	case -1:
		return "text-red-600"
	default:
		return "text-gray-600"
	}
}
