// Command apitest runs smoke checks against a running Lunar Birthday API.
//
// Usage:
//
//	go run ./cmd/apitest -url http://localhost:8080 -key $API_KEY
//
// Without -key only the public lunar routes are checked. With -key a
// throwaway birthday is created, listed and deleted again.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// =============================================================================
// Response Types - Match the actual API response structure
// =============================================================================

type APIResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *ErrorInfo      `json:"error,omitempty"`
}

type ErrorInfo struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	FirstYear int    `json:"first_year"`
	LastYear  int    `json:"last_year"`
}

type RangeResponse struct {
	FirstYear int `json:"first_year"`
	LastYear  int `json:"last_year"`
	Years     []struct {
		Year      int    `json:"year"`
		NewYear   string `json:"new_year"`
		LeapMonth int    `json:"leap_month"`
	} `json:"years"`
}

type ConvertResponse struct {
	Gregorian string `json:"gregorian"`
}

type ProjectResponse struct {
	Dates []string `json:"dates"`
}

type CreateResponse struct {
	Birthdays []struct {
		Birthday struct {
			ID int64 `json:"id"`
		} `json:"birthday"`
	} `json:"birthdays"`
	RemindersAdded int `json:"reminders_added"`
}

// =============================================================================
// Test Runner
// =============================================================================

type TestRunner struct {
	baseURL      string
	apiKey       string
	client       *http.Client
	out          io.Writer
	successCount int
	errorCount   int
	errors       []string
}

func NewTestRunner(baseURL, apiKey string, out io.Writer) *TestRunner {
	return &TestRunner{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		out: out,
	}
}

func (tr *TestRunner) Run() {
	fmt.Fprintln(tr.out, "==============================================")
	fmt.Fprintln(tr.out, "Lunar Birthday API Smoke Test")
	fmt.Fprintln(tr.out, "==============================================")
	fmt.Fprintf(tr.out, "Base URL: %s\n", tr.baseURL)

	tr.testHealth()
	tr.testRange()
	tr.testConvert()
	tr.testConvertErrors()
	tr.testProject()
	if tr.apiKey != "" {
		tr.testBirthdayRoundTrip()
	}

	tr.printSummary()
}

// =============================================================================
// Test Groups
// =============================================================================

func (tr *TestRunner) testHealth() {
	tr.printSection("Health Check")

	var health HealthResponse
	if _, err := tr.do(http.MethodGet, "/health", nil, &health); err != nil {
		tr.recordError("Health", err.Error())
		return
	}

	if health.Status == "healthy" {
		tr.recordSuccess(fmt.Sprintf("Health check passed (table %d-%d)", health.FirstYear, health.LastYear))
	} else {
		tr.recordError("Health", fmt.Sprintf("Unexpected status: %s", health.Status))
	}
}

func (tr *TestRunner) testRange() {
	tr.printSection("Supported Range")

	var data RangeResponse
	if _, err := tr.do(http.MethodGet, "/api/v1/lunar/range", nil, &data); err != nil {
		tr.recordError("Range", err.Error())
		return
	}

	if want := data.LastYear - data.FirstYear + 1; len(data.Years) != want {
		tr.recordError("Range", fmt.Sprintf("Expected %d years, got %d", want, len(data.Years)))
		return
	}
	leap := 0
	for _, y := range data.Years {
		if y.LeapMonth != 0 {
			leap++
		}
	}
	tr.recordSuccess(fmt.Sprintf("%d years, %d with a leap month", len(data.Years), leap))
}

func (tr *TestRunner) testConvert() {
	tr.printSection("Conversions")

	testCases := []struct {
		year, month, day int
		leap             bool
		want             string
		description      string
	}{
		{2024, 1, 1, false, "2024-02-10", "New Year 2024"},
		{2024, 4, 1, true, "2024-06-07", "First day of leap month 4"},
		{2024, 5, 1, false, "2024-07-06", "Month after the leap month"},
		{2024, 8, 15, false, "2024-10-17", "Mid-autumn 2024"},
		{2024, 12, 29, false, "2025-02-26", "Last month crosses the Gregorian year"},
		{2025, 1, 1, false, "2025-01-29", "New Year 2025"},
	}

	for _, tc := range testCases {
		var data ConvertResponse
		if _, err := tr.do(http.MethodGet, convertPath(tc.year, tc.month, tc.day, tc.leap), nil, &data); err != nil {
			tr.recordError(tc.description, err.Error())
			continue
		}
		if data.Gregorian == tc.want {
			tr.recordSuccess(fmt.Sprintf("%s: %s", tc.description, data.Gregorian))
		} else {
			tr.recordError(tc.description, fmt.Sprintf("Expected %s, got %s", tc.want, data.Gregorian))
		}
	}
}

func (tr *TestRunner) testConvertErrors() {
	tr.printSection("Rejected Dates")

	testCases := []struct {
		year, month, day int
		leap             bool
		code             string
	}{
		{1900, 1, 1, false, "UNSUPPORTED_YEAR"},
		{2026, 4, 1, true, "INVALID_LEAP_MONTH"},
		{2024, 13, 1, false, "INVALID_MONTH"},
		{2024, 1, 31, false, "INVALID_DAY"},
	}

	for _, tc := range testCases {
		status, err := tr.do(http.MethodGet, convertPath(tc.year, tc.month, tc.day, tc.leap), nil, nil)
		var apiErr *apiError
		switch {
		case !errors.As(err, &apiErr):
			tr.recordError(tc.code, fmt.Sprintf("Expected API error, got %v", err))
		case status != http.StatusUnprocessableEntity || apiErr.Code != tc.code:
			tr.recordError(tc.code, fmt.Sprintf("Got HTTP %d %s", status, apiErr.Code))
		default:
			tr.recordSuccess(fmt.Sprintf("%s: %s", tc.code, apiErr.Message))
		}
	}
}

func (tr *TestRunner) testProject() {
	tr.printSection("Projection")

	var data ProjectResponse
	path := "/api/v1/lunar/project?month=4&day=15&leap=true&from=2024"
	if _, err := tr.do(http.MethodGet, path, nil, &data); err != nil {
		tr.recordError("Project", err.Error())
		return
	}
	if len(data.Dates) > 0 && data.Dates[0] == "2024-06-21" {
		tr.recordSuccess(fmt.Sprintf("Leap 4/15 from 2024: %v", data.Dates))
	} else {
		tr.recordError("Project", fmt.Sprintf("Unexpected dates %v", data.Dates))
	}
}

func (tr *TestRunner) testBirthdayRoundTrip() {
	tr.printSection("Birthday Round Trip")

	body := map[string]any{
		"birthdays": []map[string]any{{
			"name":           fmt.Sprintf("Smoke Test %d", time.Now().Unix()),
			"lunar_birthday": map[string]any{"month": 8, "day": 15},
		}},
	}
	var created CreateResponse
	if _, err := tr.do(http.MethodPost, "/api/v1/birthdays", body, &created); err != nil {
		tr.recordError("Create", err.Error())
		return
	}
	if len(created.Birthdays) != 1 || created.RemindersAdded == 0 {
		tr.recordError("Create", "No reminders scheduled")
		return
	}
	id := created.Birthdays[0].Birthday.ID
	tr.recordSuccess(fmt.Sprintf("Created birthday %d with %d reminders", id, created.RemindersAdded))

	var list struct {
		Count int `json:"count"`
	}
	if _, err := tr.do(http.MethodGet, fmt.Sprintf("/api/v1/reminders?birthday_id=%d", id), nil, &list); err != nil {
		tr.recordError("List", err.Error())
	} else if list.Count != created.RemindersAdded {
		tr.recordError("List", fmt.Sprintf("Expected %d reminders, got %d", created.RemindersAdded, list.Count))
	} else {
		tr.recordSuccess(fmt.Sprintf("Listed %d reminders", list.Count))
	}

	if _, err := tr.do(http.MethodDelete, fmt.Sprintf("/api/v1/birthdays/%d", id), nil, nil); err != nil {
		tr.recordError("Delete", err.Error())
		return
	}
	tr.recordSuccess("Deleted smoke test birthday")
}

// =============================================================================
// Helpers
// =============================================================================

type apiError struct {
	ErrorInfo
}

func (e *apiError) Error() string {
	return fmt.Sprintf("API error %s: %s", e.Code, e.Message)
}

func convertPath(year, month, day int, leap bool) string {
	q := url.Values{}
	q.Set("year", fmt.Sprint(year))
	q.Set("month", fmt.Sprint(month))
	q.Set("day", fmt.Sprint(day))
	q.Set("leap", fmt.Sprint(leap))
	return "/api/v1/lunar/convert?" + q.Encode()
}

// do sends a request and decodes the data field into target. A response
// with success=false is returned as *apiError.
func (tr *TestRunner) do(method, path string, body, target any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, tr.baseURL+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if tr.apiKey != "" {
		req.Header.Set("X-API-Key", tr.apiKey)
	}

	resp, err := tr.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var apiResp APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return resp.StatusCode, fmt.Errorf("HTTP %d: decode error: %w", resp.StatusCode, err)
	}

	if !apiResp.Success {
		e := &apiError{}
		if apiResp.Error != nil {
			e.ErrorInfo = *apiResp.Error
		}
		return resp.StatusCode, e
	}

	if target != nil {
		if err := json.Unmarshal(apiResp.Data, target); err != nil {
			return resp.StatusCode, fmt.Errorf("decode data: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func (tr *TestRunner) printSection(name string) {
	fmt.Fprintln(tr.out)
	fmt.Fprintf(tr.out, "--- %s ---\n", name)
}

func (tr *TestRunner) recordSuccess(msg string) {
	tr.successCount++
	fmt.Fprintf(tr.out, "  ✓ %s\n", msg)
}

func (tr *TestRunner) recordError(context, msg string) {
	tr.errorCount++
	errStr := fmt.Sprintf("%s: %s", context, msg)
	tr.errors = append(tr.errors, errStr)
	fmt.Fprintf(tr.out, "  ✗ %s\n", errStr)
}

func (tr *TestRunner) printSummary() {
	fmt.Fprintln(tr.out)
	fmt.Fprintln(tr.out, "==============================================")
	fmt.Fprintf(tr.out, "  Passed: %d\n", tr.successCount)
	fmt.Fprintf(tr.out, "  Failed: %d\n", tr.errorCount)

	if tr.errorCount > 0 {
		fmt.Fprintln(tr.out, "Failures:")
		for _, err := range tr.errors {
			fmt.Fprintf(tr.out, "  • %s\n", err)
		}
		fmt.Fprintf(tr.out, "Tests completed with %d failure(s)\n", tr.errorCount)
		return
	}
	fmt.Fprintln(tr.out, "All tests passed! ✓")
}

// =============================================================================
// Main
// =============================================================================

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Base URL of the API")
	apiKey := flag.String("key", os.Getenv("API_KEY"), "API key for birthday routes")
	flag.Parse()

	// Check if server is reachable
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(*baseURL + "/health")
	if err != nil {
		fmt.Printf("Error: Cannot connect to %s\n", *baseURL)
		fmt.Println("Make sure the API server is running.")
		os.Exit(1)
	}
	resp.Body.Close()

	runner := NewTestRunner(*baseURL, *apiKey, os.Stdout)
	runner.Run()

	// Exit with error code if tests failed
	if runner.errorCount > 0 {
		os.Exit(1)
	}
}
