package templates

import (
	"errors"
	"math"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in   interface{}
		want string
	}{
		{int64(73425), "$73,425"},
		{int64(540), "$540"},
		{int64(-600), "-$600"},
		{1234567.5, "$1,234,568"},
		{0, "$0"},
		{math.NaN(), "$0"},
	}
	for _, tt := range tests {
		if got := FormatMoney(tt.in); got != tt.want {
			t.Errorf("formatMoney(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatCents(t *testing.T) {
	tests := []struct {
		in   interface{}
		want string
	}{
		{799.749, "$799.75"},
		{300.0, "$300.00"},
		{-2.345, "-$2.35"},
		{1000.1, "$1,000.10"},
	}
	for _, tt := range tests {
		if got := FormatCents(tt.in); got != tt.want {
			t.Errorf("formatCents(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatNumberAndPercent(t *testing.T) {
	if got := formatNumber(int64(1234567)); got != "1,234,567" {
		t.Errorf("formatNumber = %q", got)
	}
	if got := formatNumber(-1000); got != "-1,000" {
		t.Errorf("formatNumber negative = %q", got)
	}
	if got := formatPercent(4.0); got != "4%" {
		t.Errorf("formatPercent(4) = %q", got)
	}
	if got := formatPercent(2.5); got != "2.5%" {
		t.Errorf("formatPercent(2.5) = %q", got)
	}
}

func TestJSONMarshal(t *testing.T) {
	got := string(jsonMarshal(map[string]any{"labels": []string{"Year 0"}}))
	if got != `{"labels":["Year 0"]}` {
		t.Errorf("json = %s", got)
	}
	if got := string(jsonMarshal(math.Inf(1))); got != "null" {
		t.Errorf("unencodable value = %s, want null", got)
	}
}

func TestSeqAndDict(t *testing.T) {
	if got := seq(1, 3); len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Errorf("seq(1,3) = %v", got)
	}
	if seq(3, 1) != nil {
		t.Error("seq with end < start should be nil")
	}
	d := dict("a", 1, "b", "two")
	if d["a"] != 1 || d["b"] != "two" {
		t.Errorf("dict = %v", d)
	}
	if dict("odd") != nil {
		t.Error("dict with odd args should be nil")
	}
}

func writeTemplates(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestRendererRender(t *testing.T) {
	dir := writeTemplates(t, map[string]string{
		"layouts/base.html":    `{{define "base"}}<main>{{template "savings" .}}</main>{{end}}`,
		"partials/savings.html": `{{define "savings"}}<p>{{formatMoney .Total}}</p>{{end}}`,
	})

	r, err := New(dir, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rec := httptest.NewRecorder()
	if err := r.Render(rec, "base", map[string]interface{}{"Total": int64(29370)}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got := rec.Body.String(); got != "<main><p>$29,370</p></main>" {
		t.Errorf("body = %q", got)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestRendererExecutionErrorSendsNoPartialPage(t *testing.T) {
	dir := writeTemplates(t, map[string]string{
		"pages/broken.html": `{{define "broken"}}<p>start</p>{{template "missing-at-runtime" .}}{{end}}{{define "missing-at-runtime"}}{{.Nope.Deeper}}{{end}}`,
	})
	r, err := New(dir, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rec := httptest.NewRecorder()
	if err := r.Render(rec, "broken", map[string]string{}); err == nil {
		t.Fatal("expected execution error")
	}
	if rec.Code != 500 {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "<p>start</p>") {
		t.Error("partial output leaked before the error")
	}
}

func TestNewRejectsUndefinedReference(t *testing.T) {
	dir := writeTemplates(t, map[string]string{
		"layouts/base.html": `{{define "base"}}{{template "nowhere" .}}{{end}}`,
	})
	if _, err := New(dir, false); err == nil {
		t.Error("expected error for undefined template reference")
	}
}

func TestNewRejectsParseError(t *testing.T) {
	dir := writeTemplates(t, map[string]string{
		"pages/bad.html": "line one\n{{define \"bad\"}}{{if}}{{end}}",
	})
	_, err := New(dir, false)
	if err == nil {
		t.Fatal("expected parse error")
	}
}

func TestNewEmptyDir(t *testing.T) {
	if _, err := New(t.TempDir(), false); err == nil {
		t.Error("expected error for a directory without templates")
	}
}

func TestFormatTemplateError(t *testing.T) {
	content := "a\nb\nc\nd"
	msg := formatTemplateError("x.html", content, errors.New(`template: x.html:3: unexpected`))
	if !strings.Contains(msg, ">>>    3 | c") {
		t.Errorf("missing context marker:\n%s", msg)
	}
	if extractLineNumber("no line here") != 0 {
		t.Error("extractLineNumber should return 0 without a match")
	}
}
