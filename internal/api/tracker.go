package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/pursuit/internal/analytics"
	"github.com/kalambet/pursuit/internal/storage"
	"github.com/kalambet/pursuit/internal/tracker"
)

func handleListApplications(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f := storage.ApplicationFilter{
			Limit:  parseIntParam(r, "limit", 50, 500),
			Offset: parseIntParam(r, "offset", 0, 0),
		}
		if s := r.URL.Query().Get("status"); s != "" {
			st, err := analytics.ParseApplicationStatus(s)
			if err != nil {
				writeError(w, err, "list applications")
				return
			}
			f.Status = st
		}

		apps, err := deps.Store.ListApplications(f)
		if err != nil {
			writeError(w, err, "list applications")
			return
		}
		if apps == nil {
			apps = []storage.Application{}
		}
		writeJSON(w, http.StatusOK, apps)
	}
}

func handleCreateApplication(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in tracker.ApplicationInput
		if !decodeBody(w, r, &in) {
			return
		}
		app, err := deps.Tracker.CreateApplication(in)
		if err != nil {
			writeError(w, err, "create application")
			return
		}
		writeJSON(w, http.StatusCreated, app)
	}
}

func handleGetApplication(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		app, err := deps.Store.GetApplication(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err, "get application")
			return
		}
		writeJSON(w, http.StatusOK, app)
	}
}

func handleUpdateApplication(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch tracker.ApplicationPatch
		if !decodeBody(w, r, &patch) {
			return
		}
		app, err := deps.Tracker.UpdateApplication(chi.URLParam(r, "id"), patch)
		if err != nil {
			writeError(w, err, "update application")
			return
		}
		writeJSON(w, http.StatusOK, app)
	}
}

func handleDeleteApplication(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Tracker.DeleteApplication(chi.URLParam(r, "id")); err != nil {
			writeError(w, err, "delete application")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func handleApplicationStats(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := deps.Dashboard.Stats()
		if err != nil {
			writeError(w, err, "compute application stats")
			return
		}
		writeJSON(w, http.StatusOK, stats.Jobs.Applications)
	}
}

func handleListDealflow(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f := storage.DealflowFilter{
			StartupID: r.URL.Query().Get("startup_id"),
			Limit:     parseIntParam(r, "limit", 50, 500),
			Offset:    parseIntParam(r, "offset", 0, 0),
		}
		if s := r.URL.Query().Get("status"); s != "" {
			st, err := analytics.ParseDealflowStatus(s)
			if err != nil {
				writeError(w, err, "list dealflow")
				return
			}
			f.Status = st
		}

		entries, err := deps.Store.ListDealflowEntries(f)
		if err != nil {
			writeError(w, err, "list dealflow")
			return
		}
		if entries == nil {
			entries = []storage.DealflowEntry{}
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

func handleCreateDealflow(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in tracker.DealflowInput
		if !decodeBody(w, r, &in) {
			return
		}
		e, err := deps.Tracker.CreateDealflowEntry(in)
		if err != nil {
			writeError(w, err, "create dealflow entry")
			return
		}
		writeJSON(w, http.StatusCreated, e)
	}
}

func handleGetDealflow(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, err := deps.Store.GetDealflowEntry(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err, "get dealflow entry")
			return
		}
		writeJSON(w, http.StatusOK, e)
	}
}

func handleUpdateDealflow(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch tracker.DealflowPatch
		if !decodeBody(w, r, &patch) {
			return
		}
		e, err := deps.Tracker.UpdateDealflowEntry(chi.URLParam(r, "id"), patch)
		if err != nil {
			writeError(w, err, "update dealflow entry")
			return
		}
		writeJSON(w, http.StatusOK, e)
	}
}

func handleDeleteDealflow(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Tracker.DeleteDealflowEntry(chi.URLParam(r, "id")); err != nil {
			writeError(w, err, "delete dealflow entry")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

// ContactRequest is the body of POST /dealflow/{id}/contact.
type ContactRequest struct {
	ContactType string `json:"contact_type"`
}

func handleLogContact(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ContactRequest
		if !decodeBody(w, r, &req) {
			return
		}
		e, err := deps.Tracker.LogContact(chi.URLParam(r, "id"), req.ContactType)
		if err != nil {
			writeError(w, err, "log contact")
			return
		}
		writeJSON(w, http.StatusOK, e)
	}
}

func handleDealflowStats(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := deps.Dashboard.Stats()
		if err != nil {
			writeError(w, err, "compute dealflow stats")
			return
		}
		writeJSON(w, http.StatusOK, stats.Dealflow.Pipeline)
	}
}

// GoalsResponse is the body of GET /goals.
type GoalsResponse struct {
	Jobs     analytics.WeeklyProgress `json:"jobs"`
	Dealflow analytics.WeeklyProgress `json:"dealflow"`
}

func handleGetGoals(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := deps.Dashboard.Stats()
		if err != nil {
			writeError(w, err, "compute goals")
			return
		}
		writeJSON(w, http.StatusOK, GoalsResponse{Jobs: stats.Jobs.WeeklyGoal, Dealflow: stats.Dealflow.WeeklyGoal})
	}
}

// GoalRequest is the body of PUT /goals.
type GoalRequest struct {
	Category string `json:"category"`
	Target   int    `json:"target"`
}

func handleSetGoal(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req GoalRequest
		if !decodeBody(w, r, &req) {
			return
		}
		g, err := deps.Tracker.SetWeeklyGoal(req.Category, req.Target)
		if err != nil {
			writeError(w, err, "set goal")
			return
		}
		writeJSON(w, http.StatusOK, g)
	}
}

func handleDashboardStats(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := deps.Dashboard.Stats()
		if err != nil {
			writeError(w, err, "compute dashboard stats")
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}
