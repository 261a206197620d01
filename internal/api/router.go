// Package api serves the pursuit HTTP API and MCP tools on top of the
// tracker, dashboard and ingest services.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/pursuit/internal/dashboard"
	"github.com/kalambet/pursuit/internal/ingest"
	"github.com/kalambet/pursuit/internal/storage"
	"github.com/kalambet/pursuit/internal/tracker"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Deps holds everything the HTTP handlers read from or write to.
type Deps struct {
	Store     *storage.Store
	Tracker   *tracker.Service
	Dashboard *dashboard.Service
	Ingester  *ingest.Ingester
	Token     string
	// ScrapeEnabled gates the enqueue endpoints; logs stay readable.
	ScrapeEnabled bool
}

// NewHandler returns the full API. /health is open; every other route
// requires the bearer token.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger)

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Get("/dashboard/stats", handleDashboardStats(deps))

		r.Route("/applications", func(r chi.Router) {
			r.Get("/", handleListApplications(deps))
			r.Post("/", handleCreateApplication(deps))
			r.Get("/stats", handleApplicationStats(deps))
			r.Get("/{id}", handleGetApplication(deps))
			r.Patch("/{id}", handleUpdateApplication(deps))
			r.Delete("/{id}", handleDeleteApplication(deps))
		})

		r.Route("/dealflow", func(r chi.Router) {
			r.Get("/", handleListDealflow(deps))
			r.Post("/", handleCreateDealflow(deps))
			r.Get("/stats", handleDealflowStats(deps))
			r.Get("/{id}", handleGetDealflow(deps))
			r.Patch("/{id}", handleUpdateDealflow(deps))
			r.Delete("/{id}", handleDeleteDealflow(deps))
			r.Post("/{id}/contact", handleLogContact(deps))
		})

		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", handleListJobs(deps))
			r.Get("/stats", handleJobStats(deps))
			r.Get("/{id}", handleGetJob(deps))
			r.Patch("/{id}", handleUpdateJob(deps))
			r.Delete("/{id}", handleDeleteJob(deps))
		})

		r.Route("/startups", func(r chi.Router) {
			r.Get("/", handleListStartups(deps))
			r.Get("/{id}", handleGetStartup(deps))
			r.Patch("/{id}", handleUpdateStartup(deps))
			r.Delete("/{id}", handleDeleteStartup(deps))
		})

		r.Post("/candidates/check", handleCheckCandidate(deps))
		r.Post("/candidates", handleAddCandidate(deps))

		r.Get("/goals", handleGetGoals(deps))
		r.Put("/goals", handleSetGoal(deps))

		r.Post("/scrape/jobs", handleScrapeJobs(deps))
		r.Post("/scrape/startups", handleScrapeStartups(deps))
		r.Get("/scrape/logs", handleScrapeLogs(deps))
		r.Get("/scrape/tasks/{id}", handleGetTask(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
