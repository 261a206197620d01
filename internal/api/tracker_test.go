package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/kalambet/pursuit/internal/analytics"
	"github.com/kalambet/pursuit/internal/dashboard"
	"github.com/kalambet/pursuit/internal/storage"
)

func TestApplications_Lifecycle(t *testing.T) {
	h, deps := setupHandler(t)
	job := seedPosting(t, deps.Store, "Investment Analyst", "Blue Harbor", "https://blueharbor.com/jobs/1")

	// Warm the dashboard cache so the create below must invalidate it.
	before := decode[dashboard.Stats](t, do(t, h, http.MethodGet, "/dashboard/stats", ""))
	if before.Jobs.Streak != 0 {
		t.Fatalf("streak before = %d", before.Jobs.Streak)
	}

	rr := do(t, h, http.MethodPost, "/applications", fmt.Sprintf(`{"job_id":%q,"status":"applied"}`, job.ID))
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d; body = %s", rr.Code, rr.Body.String())
	}
	app := decode[storage.Application](t, rr)
	if app.AppliedDate.String() != "2026-02-05" {
		t.Errorf("AppliedDate = %s, want today", app.AppliedDate)
	}

	after := decode[dashboard.Stats](t, do(t, h, http.MethodGet, "/dashboard/stats", ""))
	if after.Jobs.Streak != 1 || after.Jobs.WeeklyGoal.Current != 1 {
		t.Errorf("after create: streak %d, weekly current %d; want 1/1", after.Jobs.Streak, after.Jobs.WeeklyGoal.Current)
	}

	rr = do(t, h, http.MethodGet, "/applications/"+app.ID, "")
	got := decode[storage.Application](t, rr)
	if got.Company != "Blue Harbor" || got.JobTitle != "Investment Analyst" {
		t.Errorf("joined fields = %q / %q", got.Company, got.JobTitle)
	}

	rr = do(t, h, http.MethodPatch, "/applications/"+app.ID, `{"status":"interviewing","interview_count":2}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("patch status = %d; body = %s", rr.Code, rr.Body.String())
	}
	if got := decode[storage.Application](t, rr); got.Status != analytics.StatusInterviewing || got.InterviewCount != 2 {
		t.Errorf("patched = %s/%d", got.Status, got.InterviewCount)
	}

	list := decode[[]storage.Application](t, do(t, h, http.MethodGet, "/applications?status=interviewing", ""))
	if len(list) != 1 {
		t.Errorf("filtered list = %d, want 1", len(list))
	}
	list = decode[[]storage.Application](t, do(t, h, http.MethodGet, "/applications?status=offer", ""))
	if len(list) != 0 {
		t.Errorf("offer list = %d, want 0", len(list))
	}

	stats := decode[analytics.ApplicationStats](t, do(t, h, http.MethodGet, "/applications/stats", ""))
	if stats.Total != 1 || stats.ResponseRate != 1 || stats.InterviewRate != 1 {
		t.Errorf("stats = %+v", stats)
	}

	if rr := do(t, h, http.MethodDelete, "/applications/"+app.ID, ""); rr.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rr.Code)
	}
	expectError(t, do(t, h, http.MethodGet, "/applications/"+app.ID, ""), http.StatusNotFound, "not_found")
}

func TestApplications_Errors(t *testing.T) {
	h, deps := setupHandler(t)
	job := seedPosting(t, deps.Store, "Analyst", "Fund", "https://fund.com/a")

	tests := []struct {
		name     string
		method   string
		url      string
		body     string
		wantCode int
		wantType string
	}{
		{"missing job", http.MethodPost, "/applications", `{"job_id":"nope"}`, http.StatusNotFound, "not_found"},
		{"bad status", http.MethodPost, "/applications", fmt.Sprintf(`{"job_id":%q,"status":"ghosted"}`, job.ID), http.StatusBadRequest, "invalid_request_error"},
		{"bad date", http.MethodPost, "/applications", fmt.Sprintf(`{"job_id":%q,"applied_date":"05/02/2026"}`, job.ID), http.StatusBadRequest, "invalid_request_error"},
		{"negative interviews", http.MethodPost, "/applications", fmt.Sprintf(`{"job_id":%q,"interview_count":-1}`, job.ID), http.StatusBadRequest, "invalid_request_error"},
		{"bad list filter", http.MethodGet, "/applications?status=ghosted", "", http.StatusBadRequest, "invalid_request_error"},
		{"patch missing", http.MethodPatch, "/applications/nope", `{"notes":"x"}`, http.StatusNotFound, "not_found"},
		{"delete missing", http.MethodDelete, "/applications/nope", "", http.StatusNotFound, "not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectError(t, do(t, h, tt.method, tt.url, tt.body), tt.wantCode, tt.wantType)
		})
	}
}

func TestDealflow_ContactsAndStats(t *testing.T) {
	h, deps := setupHandler(t)
	st := seedStartup(t, deps.Store, "Quantaloop", "https://quantaloop.io")

	rr := do(t, h, http.MethodPost, "/dealflow", fmt.Sprintf(`{"startup_id":%q}`, st.ID))
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d; body = %s", rr.Code, rr.Body.String())
	}
	entry := decode[storage.DealflowEntry](t, rr)
	if entry.Status != analytics.StageSourced {
		t.Errorf("default status = %q, want sourced", entry.Status)
	}

	rr = do(t, h, http.MethodPost, "/dealflow/"+entry.ID+"/contact", `{"contact_type":"email"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("contact status = %d; body = %s", rr.Code, rr.Body.String())
	}
	rr = do(t, h, http.MethodPost, "/dealflow/"+entry.ID+"/contact", `{"contact_type":"meeting"}`)
	got := decode[storage.DealflowEntry](t, rr)
	if got.EmailsSent != 1 || got.MeetingsHeld != 1 {
		t.Errorf("counters = %d/%d, want 1/1", got.EmailsSent, got.MeetingsHeld)
	}
	if got.Status != analytics.StageSourced {
		t.Errorf("contact changed status to %q", got.Status)
	}
	if got.FirstContactDate.String() != "2026-02-05" {
		t.Errorf("FirstContactDate = %s", got.FirstContactDate)
	}

	expectError(t, do(t, h, http.MethodPost, "/dealflow/"+entry.ID+"/contact", `{"contact_type":"call"}`), http.StatusBadRequest, "invalid_request_error")
	expectError(t, do(t, h, http.MethodPost, "/dealflow/nope/contact", `{"contact_type":"email"}`), http.StatusNotFound, "not_found")

	rr = do(t, h, http.MethodPatch, "/dealflow/"+entry.ID, `{"status":"meeting","intro_made_to":"Partner A"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("patch status = %d; body = %s", rr.Code, rr.Body.String())
	}

	stats := decode[analytics.DealflowStats](t, do(t, h, http.MethodGet, "/dealflow/stats", ""))
	if stats.Total != 1 || stats.Pipeline[analytics.StageMeeting] != 1 {
		t.Errorf("pipeline = %+v", stats.Pipeline)
	}
	if stats.NetworkGrowth.TotalEmailsSent != 1 || stats.NetworkGrowth.IntrosMade != 1 {
		t.Errorf("network = %+v", stats.NetworkGrowth)
	}
	if stats.ConversionRates.SourcedToContacted != 1 || stats.ConversionRates.ContactedToMeeting != 1 {
		t.Errorf("rates = %+v", stats.ConversionRates)
	}

	dash := decode[dashboard.Stats](t, do(t, h, http.MethodGet, "/dashboard/stats", ""))
	// create + two contacts, all today
	if dash.Dealflow.WeeklyGoal.Current != 3 || dash.Dealflow.Streak != 1 {
		t.Errorf("dealflow goal current %d streak %d, want 3/1", dash.Dealflow.WeeklyGoal.Current, dash.Dealflow.Streak)
	}

	list := decode[[]storage.DealflowEntry](t, do(t, h, http.MethodGet, "/dealflow?startup_id="+st.ID, ""))
	if len(list) != 1 || list[0].StartupName != "Quantaloop" {
		t.Errorf("list = %+v", list)
	}

	if rr := do(t, h, http.MethodDelete, "/dealflow/"+entry.ID, ""); rr.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rr.Code)
	}
	expectError(t, do(t, h, http.MethodGet, "/dealflow/"+entry.ID, ""), http.StatusNotFound, "not_found")
}

func TestDealflow_CreateErrors(t *testing.T) {
	h, _ := setupHandler(t)
	expectError(t, do(t, h, http.MethodPost, "/dealflow", `{}`), http.StatusBadRequest, "invalid_request_error")
	expectError(t, do(t, h, http.MethodPost, "/dealflow", `{"startup_id":"missing"}`), http.StatusNotFound, "not_found")
	expectError(t, do(t, h, http.MethodGet, "/dealflow?status=funded", ""), http.StatusBadRequest, "invalid_request_error")
}

func TestGoals(t *testing.T) {
	h, _ := setupHandler(t)

	goals := decode[GoalsResponse](t, do(t, h, http.MethodGet, "/goals", ""))
	if goals.Jobs.Target != 10 || goals.Dealflow.Target != 5 {
		t.Errorf("default goals = %d/%d", goals.Jobs.Target, goals.Dealflow.Target)
	}
	if goals.Jobs.WeekStart.String() != "2026-02-02" {
		t.Errorf("WeekStart = %s, want Monday 2026-02-02", goals.Jobs.WeekStart)
	}

	rr := do(t, h, http.MethodPut, "/goals", `{"category":"jobs","target":12}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("put status = %d; body = %s", rr.Code, rr.Body.String())
	}

	goals = decode[GoalsResponse](t, do(t, h, http.MethodGet, "/goals", ""))
	if goals.Jobs.Target != 12 {
		t.Errorf("jobs target = %d, want 12", goals.Jobs.Target)
	}

	expectError(t, do(t, h, http.MethodPut, "/goals", `{"category":"jobs","target":-1}`), http.StatusBadRequest, "invalid_request_error")
	expectError(t, do(t, h, http.MethodPut, "/goals", `{"category":"fitness","target":3}`), http.StatusBadRequest, "invalid_request_error")
}
