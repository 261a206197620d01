package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/kalambet/pursuit/internal/analytics"
	"github.com/kalambet/pursuit/internal/dashboard"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
	Auth   string
}

type testServer struct {
	server   *httptest.Server
	requests []recordedRequest
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Body:   body.String(),
			Auth:   r.Header.Get("Authorization"),
		})

		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}

		w.WriteHeader(404)
		w.Write([]byte(`{"error":{"message":"not found","type":"not_found"}}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *apiClient {
	return &apiClient{
		baseURL:    ts.server.URL,
		token:      "test-token",
		httpClient: ts.server.Client(),
	}
}

// install points every command at ts for the duration of the test.
func (ts *testServer) install(t *testing.T) {
	t.Helper()
	old := newAPIClient
	newAPIClient = func() (*apiClient, error) { return ts.client(), nil }
	t.Cleanup(func() { newAPIClient = old })
}

func (ts *testServer) lastBody(t *testing.T) map[string]any {
	t.Helper()
	if len(ts.requests) == 0 {
		t.Fatal("no requests recorded")
	}
	var body map[string]any
	if err := json.Unmarshal([]byte(ts.requests[len(ts.requests)-1].Body), &body); err != nil {
		t.Fatalf("body parse error: %v", err)
	}
	return body
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	defer rootCmd.SetArgs(nil)
	rootCmd.SetArgs(append(args, "--no-color"))
	return rootCmd.Execute()
}

var ctx = context.Background()

func TestClient_SendsBearerToken(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /dashboard/stats": `{"today":"2026-02-05"}`,
	})

	resp, err := ts.client().get(ctx, "/dashboard/stats")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var stats dashboard.Stats
	if err := decodeJSON(resp, &stats); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if stats.Today != (civil.Date{Year: 2026, Month: 2, Day: 5}) {
		t.Errorf("today = %s", stats.Today)
	}
	if ts.requests[0].Auth != "Bearer test-token" {
		t.Errorf("auth = %q, want Bearer test-token", ts.requests[0].Auth)
	}
}

func TestDecodeJSON_ErrorEnvelope(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, err := ts.client().get(ctx, "/applications/missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err = decodeJSON(resp, &struct{}{})
	if err == nil {
		t.Fatal("expected error for 404")
	}
	if !strings.Contains(err.Error(), "404") || !strings.Contains(err.Error(), "not found") {
		t.Errorf("error = %q", err.Error())
	}
}

func TestClient_ServerDown(t *testing.T) {
	ts := newTestServer(t, nil)
	c := ts.client()
	ts.server.Close()

	_, err := c.get(ctx, "/health")
	if err == nil {
		t.Fatal("expected error for stopped server")
	}
	if !strings.Contains(err.Error(), "not reachable") {
		t.Errorf("error = %q, want it to mention 'not reachable'", err.Error())
	}
}

func TestAppsCreate(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /applications": `{"id":"app-1","job_id":"job-9","status":"applied"}`,
	})
	ts.install(t)

	if err := execute(t, "apps", "create", "job-9", "--status", "applied", "--interview-count", "2"); err != nil {
		t.Fatalf("execute: %v", err)
	}

	body := ts.lastBody(t)
	if body["job_id"] != "job-9" || body["status"] != "applied" {
		t.Errorf("body = %v", body)
	}
	if body["interview_count"] != float64(2) {
		t.Errorf("interview_count = %v (%T), want 2", body["interview_count"], body["interview_count"])
	}
	if _, ok := body["notes"]; ok {
		t.Error("unset flag was sent")
	}
}

func TestAppsUpdate_RequiresAField(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.install(t)

	err := execute(t, "apps", "update", "app-1")
	if err == nil || !strings.Contains(err.Error(), "nothing to update") {
		t.Fatalf("err = %v", err)
	}
	if len(ts.requests) != 0 {
		t.Errorf("sent %d requests, want 0", len(ts.requests))
	}
}

func TestDealflowContact(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /dealflow/df-1/contact": `{"id":"df-1","startup_id":"st-1","startup_name":"Fernleaf","status":"contacted","emails_sent":1}`,
	})
	ts.install(t)

	if err := execute(t, "dealflow", "contact", "df-1", "email"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if body := ts.lastBody(t); body["contact_type"] != "email" {
		t.Errorf("body = %v", body)
	}
}

func TestScrapeFirms(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /scrape/jobs": `{"task_id":"t-1","status":"queued","queries":["jobs at Accel venture capital hiring"]}`,
	})
	ts.install(t)

	if err := execute(t, "scrape", "firms", "Accel", "--results", "20"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	body := ts.lastBody(t)
	firms, _ := body["firms"].([]any)
	if len(firms) != 1 || firms[0] != "Accel" {
		t.Errorf("firms = %v", body["firms"])
	}
	if body["num_results"] != float64(20) {
		t.Errorf("num_results = %v", body["num_results"])
	}
}

func TestScrapeSectors_NeedsInput(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.install(t)

	if err := execute(t, "scrape", "sectors"); err == nil {
		t.Fatal("expected error with no sectors and no stage")
	}
}

func TestGoalsSet(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"PUT /goals": `{"category":"dealflow","target":8}`,
	})
	ts.install(t)

	if err := execute(t, "goals", "set", "dealflow", "8"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	body := ts.lastBody(t)
	if body["category"] != "dealflow" || body["target"] != float64(8) {
		t.Errorf("body = %v", body)
	}

	if err := execute(t, "goals", "set", "jobs", "lots"); err == nil {
		t.Error("expected error for a non-numeric target")
	}
}

func TestJobsList_Query(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /jobs": `[{"id":"job-1","title":"Analyst","company":"Northwind","source":"exa"}]`,
	})
	ts.install(t)

	if err := execute(t, "jobs", "list", "--company", "North Wind", "--search", "platform"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	got := ts.requests[0].Path
	for _, want := range []string{"company=North+Wind", "search=platform", "active=true"} {
		if !strings.Contains(got, want) {
			t.Errorf("path = %q, missing %q", got, want)
		}
	}
}

func TestStartupsList_SearchAll(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /startups": `[{"id":"st-1","name":"Quantaloop","source":"exa","tags":[],"discovered_date":"2026-02-01T00:00:00Z","is_active":false}]`,
	})
	ts.install(t)

	if err := execute(t, "startups", "list", "--search", "quanta", "--all"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	got := ts.requests[0].Path
	if !strings.Contains(got, "search=quanta") || strings.Contains(got, "active=") {
		t.Errorf("path = %q", got)
	}
}

func TestJobsUpdate_Deactivate(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"PATCH /jobs/job-1": `{"id":"job-1","is_active":false}`,
	})
	ts.install(t)

	if err := execute(t, "jobs", "update", "job-1", "--is-active=false", "--salary", "$150k"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if ts.requests[0].Method != http.MethodPatch {
		t.Errorf("method = %s, want PATCH", ts.requests[0].Method)
	}
	body := ts.lastBody(t)
	if body["is_active"] != false || body["salary"] != "$150k" || len(body) != 2 {
		t.Errorf("body = %v", body)
	}
}

func TestStartupsUpdate_RequiresAField(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.install(t)

	if err := execute(t, "startups", "update", "st-1"); err == nil {
		t.Fatal("expected error without field flags")
	}
	if len(ts.requests) != 0 {
		t.Errorf("sent %d requests, want none", len(ts.requests))
	}
}

func TestStartupsDelete(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"DELETE /startups/st-1": `{"status":"deleted"}`,
	})
	ts.install(t)

	if err := execute(t, "startups", "delete", "st-1"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if r := ts.requests[0]; r.Method != http.MethodDelete || r.Path != "/startups/st-1" {
		t.Errorf("request = %s %s", r.Method, r.Path)
	}
}

func TestJobsStats(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /jobs/stats": `{"total":3,"active":2,"recent":1,"by_source":{"exa":3},"top_companies":[{"company":"Redwood","count":2}]}`,
	})
	ts.install(t)

	if err := execute(t, "jobs", "stats"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got := ts.requests[0].Path; got != "/jobs/stats" {
		t.Errorf("path = %q", got)
	}
}

func TestChangedFields(t *testing.T) {
	cmd := &cobra.Command{Use: "x"}
	cmd.Flags().String("next-follow-up-date", "", "")
	cmd.Flags().String("notes", "", "")
	cmd.Flags().Int("interview-count", 0, "")
	cmd.Flags().Bool("is-active", true, "")
	if err := cmd.Flags().Parse([]string{"--next-follow-up-date", "2026-02-10", "--interview-count", "0", "--is-active=false"}); err != nil {
		t.Fatalf("parse: %v", err)
	}

	body := changedFields(cmd.Flags(), "next-follow-up-date", "notes", "interview-count", "is-active", "missing")
	if len(body) != 3 {
		t.Fatalf("body = %v, want 3 fields", body)
	}
	if body["is_active"] != false {
		t.Errorf("is_active = %v, want false", body["is_active"])
	}
	if body["next_follow_up_date"] != "2026-02-10" {
		t.Errorf("next_follow_up_date = %v", body["next_follow_up_date"])
	}
	if body["interview_count"] != 0 {
		t.Errorf("interview_count = %v, want explicit 0", body["interview_count"])
	}
}

func TestListQuery(t *testing.T) {
	if got := listQuery("status", "", "limit", ""); got != "" {
		t.Errorf("empty = %q", got)
	}
	if got := listQuery("status", "applied", "limit", "10"); got != "?limit=10&status=applied" {
		t.Errorf("got %q", got)
	}
}

func TestCandidateFromPDF(t *testing.T) {
	text := "\n  Investment Associate  \nNorthwind Capital\nWe are hiring."
	req := candidateFromPDF("/tmp/postings/associate.pdf", text)

	if req.Title != "Investment Associate" {
		t.Errorf("title = %q", req.Title)
	}
	if req.URL != "file:///tmp/postings/associate.pdf" {
		t.Errorf("url = %q", req.URL)
	}
	if req.Kind != "jobs" || req.Source != "pdf" {
		t.Errorf("kind/source = %q/%q", req.Kind, req.Source)
	}

	if req := candidateFromPDF("/tmp/blank.pdf", "   \n"); req.Title != "blank" {
		t.Errorf("fallback title = %q", req.Title)
	}
}

func TestTidyLines(t *testing.T) {
	got := tidyLines("  Head   of Platform \n\n\t\nRemote  ok\n")
	if got != "Head of Platform\nRemote ok" {
		t.Errorf("got %q", got)
	}
}

func TestProgressBar(t *testing.T) {
	tests := []struct {
		p    float64
		want string
	}{
		{0, "░░░░"},
		{0.5, "██░░"},
		{1, "████"},
		{1.7, "████"},
		{-1, "░░░░"},
	}
	for _, tt := range tests {
		if got := progressBar(tt.p, 4); got != tt.want {
			t.Errorf("progressBar(%v) = %q, want %q", tt.p, got, tt.want)
		}
	}
}

func TestRenderDashboard_NoColor(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()
	noColor = true

	s := dashboard.Stats{
		Today: civil.Date{Year: 2026, Month: 2, Day: 5},
		Jobs: dashboard.JobsStats{
			Applications: analytics.ApplicationStats{Total: 4, ResponseRate: 0.5},
			WeeklyGoal:   analytics.WeeklyProgress{Current: 10, Target: 10, Progress: 1},
			Streak:       3,
		},
		Dealflow: dashboard.DealflowStats{Streak: 1},
		Combined: dashboard.CombinedStats{Streak: 3, TotalActivityLast7Days: 12},
	}

	out := renderDashboard(s)
	for _, want := range []string{"Job search", "50.0%", "10/10 done", "3 days", "1 day", "12 actions"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\033[") {
		t.Error("output contains ANSI codes with --no-color")
	}

	want := "jobs 10/10 (streak 3) · dealflow 0/0 (streak 1) · combined streak 3"
	if got := summaryLine(s); got != want {
		t.Errorf("summary = %q, want %q", got, want)
	}
}

func TestRenderTable_NoColor(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()
	noColor = true

	out := renderTable(
		[]string{"ID", "NAME", "STAGE"},
		[][]string{{"st-1", "Quantaloop", "Seed"}, {"st-2", "Élan Labs", ""}},
	)
	for _, want := range []string{"ID", "NAME", "STAGE", "st-1", "Quantaloop", "Seed", "Élan Labs", "╭", "╯"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\033[") {
		t.Error("table contains ANSI codes with --no-color")
	}

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	// top border, header, header rule, two rows, bottom border
	if len(lines) != 6 {
		t.Errorf("table has %d lines, want 6:\n%s", len(lines), out)
	}
	width := lipgloss.Width(lines[0])
	for i, l := range lines {
		if lipgloss.Width(l) != width {
			t.Errorf("line %d is %d cells wide, want %d:\n%s", i, lipgloss.Width(l), width, out)
		}
	}
}
