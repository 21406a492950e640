package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type endpoint struct {
	path        string
	method      string
	contentType string
	contains    []string
}

var endpoints = []endpoint{
	// Pages
	{path: "/", method: "GET", contentType: "text/html", contains: []string{"Sunman Energy", "comparison-results"}},
	{path: "/chart", method: "GET", contentType: "text/html", contains: []string{"Energy Cost Comparison"}},
	{path: "/consultation", method: "GET", contentType: "text/html", contains: []string{"consultation-form"}},

	// Partials and chart data
	{path: "/compare?bill=150", method: "GET", contentType: "text/html", contains: []string{"flat-rate"}},
	{path: "/chart/data", method: "GET", contentType: "application/json", contains: []string{"Utility Bills"}},

	// Assets
	{path: "/static/js/savings-chart.js", method: "GET", contentType: "javascript", contains: nil},

	// API
	{path: "/api/projection?bill=300&rate=255&increase=4&years=25", method: "GET", contentType: "application/json", contains: []string{`"total_savings":73425`}},
	{path: "/api/health", method: "GET", contentType: "application/json", contains: []string{`"status":"ok"`}},
}

type result struct {
	endpoint endpoint
	status   int
	duration time.Duration
	err      error
}

func newValidateCmd() *cobra.Command {
	var (
		baseURL string
		verbose bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check that a running server answers every public endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := &http.Client{Timeout: timeout}
			out := cmd.OutOrStdout()
			baseURL = strings.TrimRight(baseURL, "/")

			fmt.Fprintf(out, "Validating server at %s\n", baseURL)
			fmt.Fprintf(out, "Testing %d endpoints...\n\n", len(endpoints))

			var passed, failed int
			for _, ep := range endpoints {
				r := validateEndpoint(client, baseURL, ep)

				switch {
				case r.err != nil:
					failed++
					fmt.Fprintf(out, "%s %s %s\n", badStyle.Render("FAIL"), ep.method, ep.path)
					fmt.Fprintf(out, "     Error: %v\n", r.err)
				case r.status != http.StatusOK:
					failed++
					fmt.Fprintf(out, "%s %s %s\n", badStyle.Render("FAIL"), ep.method, ep.path)
					fmt.Fprintf(out, "     Status: %d (expected 200)\n", r.status)
				default:
					passed++
					if verbose {
						fmt.Fprintf(out, "%s %s %s (%v)\n", goodStyle.Render("PASS"), ep.method, ep.path, r.duration.Round(time.Millisecond))
					}
				}
			}

			fmt.Fprintf(out, "\n========================================\n")
			fmt.Fprintf(out, "Results: %d passed, %d failed\n", passed, failed)

			if failed > 0 {
				return fmt.Errorf("%d endpoint(s) failed validation", failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the server to validate")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")
	return cmd
}

func validateEndpoint(client *http.Client, baseURL string, ep endpoint) result {
	start := time.Now()

	req, err := http.NewRequest(ep.method, baseURL+ep.path, nil)
	if err != nil {
		return result{endpoint: ep, err: fmt.Errorf("failed to create request: %w", err)}
	}

	resp, err := client.Do(req)
	if err != nil {
		return result{endpoint: ep, err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return result{endpoint: ep, err: fmt.Errorf("failed to read body: %w", err)}
	}

	r := result{
		endpoint: ep,
		status:   resp.StatusCode,
		duration: time.Since(start),
	}
	if r.status != http.StatusOK {
		return r
	}

	ct := resp.Header.Get("Content-Type")
	if !strings.Contains(ct, ep.contentType) {
		r.err = fmt.Errorf("wrong content type: got %q, expected %q", ct, ep.contentType)
		return r
	}

	if ep.contentType == "application/json" {
		var js interface{}
		if err := json.Unmarshal(body, &js); err != nil {
			r.err = fmt.Errorf("invalid JSON: %w", err)
			return r
		}
	}

	for _, s := range ep.contains {
		if !strings.Contains(string(body), s) {
			r.err = fmt.Errorf("response missing expected content: %q", s)
			return r
		}
	}

	return r
}
