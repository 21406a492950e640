// Package testutil provides testing utilities for the solarman server.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"solarman/internal/config"
)

// TestServer wraps httptest.Server with convenience methods
type TestServer struct {
	Server  *httptest.Server
	BaseURL string
	t       *testing.T
}

// ProjectRoot returns the root directory of the project.
// It works by finding the go.mod file.
func ProjectRoot() string {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		panic("could not get caller info")
	}

	dir := filepath.Dir(filename)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			panic("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// TestConfig returns a config using the real templates, an in-memory store
// and a fresh data directory. The rate limit is high enough that ordinary
// tests never hit it.
func TestConfig(t *testing.T) *config.Config {
	t.Helper()

	root := ProjectRoot()
	cfg := config.DefaultConfig()
	cfg.Server.ListenAddr = ":0"
	cfg.Server.TemplatesDirectory = filepath.Join(root, "web", "templates")
	cfg.Server.StaticDirectory = filepath.Join(root, "web", "static")
	cfg.Storage.DataDirectory = t.TempDir()
	cfg.Storage.Backend = "memory"
	cfg.RateLimit.Requests = 1000
	cfg.RateLimit.Window = time.Minute
	return cfg
}

// NewTestServer starts an httptest server for router and closes it when
// the test ends
func NewTestServer(t *testing.T, router http.Handler) *TestServer {
	t.Helper()

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &TestServer{
		Server:  server,
		BaseURL: server.URL,
		t:       t,
	}
}

// GET performs a GET request to the given path
func (ts *TestServer) GET(path string) *http.Response {
	ts.t.Helper()

	resp, err := http.Get(ts.BaseURL + path)
	if err != nil {
		ts.t.Fatalf("GET %s failed: %v", path, err)
	}
	return resp
}

// GETWithQuery performs a GET request with query parameters
func (ts *TestServer) GETWithQuery(path string, query map[string]string) *http.Response {
	ts.t.Helper()

	q := url.Values{}
	for k, v := range query {
		q.Set(k, v)
	}
	target := ts.BaseURL + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	resp, err := http.Get(target)
	if err != nil {
		ts.t.Fatalf("GET %s failed: %v", path, err)
	}
	return resp
}

// POST performs a POST request to the given path
func (ts *TestServer) POST(path string, contentType string, body io.Reader) *http.Response {
	ts.t.Helper()

	resp, err := http.Post(ts.BaseURL+path, contentType, body)
	if err != nil {
		ts.t.Fatalf("POST %s failed: %v", path, err)
	}
	return resp
}

// POSTJSON encodes v and posts it as application/json
func (ts *TestServer) POSTJSON(path string, v interface{}) *http.Response {
	ts.t.Helper()

	body, err := json.Marshal(v)
	if err != nil {
		ts.t.Fatalf("encoding request body: %v", err)
	}
	return ts.POST(path, "application/json", bytes.NewReader(body))
}

// POSTForm posts url-encoded form values. Extra headers, such as
// HX-Request, are applied to the request.
func (ts *TestServer) POSTForm(path string, form url.Values, headers map[string]string) *http.Response {
	ts.t.Helper()

	req, err := http.NewRequest(http.MethodPost, ts.BaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		ts.t.Fatalf("building POST %s: %v", path, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return ts.Do(req)
}

// Do sends a prepared request
func (ts *TestServer) Do(req *http.Request) *http.Response {
	ts.t.Helper()

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		ts.t.Fatalf("%s %s failed: %v", req.Method, req.URL.Path, err)
	}
	return resp
}
