package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/pursuit/internal/ingest"
)

// ScrapeRequest is the body of POST /scrape/jobs and /scrape/startups. The
// search fields expand into queries; Queries are used verbatim.
type ScrapeRequest struct {
	Queries      []string `json:"queries,omitempty"`
	NumResults   int      `json:"num_results,omitempty"`
	LookbackDays int      `json:"lookback_days,omitempty"`
	Label        string   `json:"label,omitempty"`

	// jobs
	Firms []string `json:"firms,omitempty"`
	Role  string   `json:"role,omitempty"`

	// startups
	Accelerator string   `json:"accelerator,omitempty"`
	Batch       string   `json:"batch,omitempty"`
	Sectors     []string `json:"sectors,omitempty"`
	Stage       string   `json:"stage,omitempty"`
}

// ScrapeResponse acknowledges a queued scrape.
type ScrapeResponse struct {
	TaskID  string   `json:"task_id"`
	Status  string   `json:"status"`
	Queries []string `json:"queries"`
}

func handleScrapeJobs(deps Deps) http.HandlerFunc {
	return handleScrape(deps, ingest.KindJobs, func(req ScrapeRequest) []string {
		if len(req.Firms) == 0 && req.Role == "" && len(req.Queries) > 0 {
			return nil
		}
		return ingest.JobSearch{Firms: req.Firms, Role: req.Role}.Queries()
	})
}

func handleScrapeStartups(deps Deps) http.HandlerFunc {
	return handleScrape(deps, ingest.KindStartups, func(req ScrapeRequest) []string {
		return ingest.StartupSearch{
			Accelerator: req.Accelerator,
			Batch:       req.Batch,
			Sectors:     req.Sectors,
			Stage:       req.Stage,
		}.Queries()
	})
}

func handleScrape(deps Deps, kind ingest.Kind, expand func(ScrapeRequest) []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !deps.ScrapeEnabled {
			httpError(w, http.StatusServiceUnavailable, "api_error", "scraping is disabled (scrape.enabled=false)")
			return
		}
		var req ScrapeRequest
		if !decodeBody(w, r, &req) {
			return
		}

		queries := append(append([]string{}, req.Queries...), expand(req)...)
		task, err := ingest.Enqueue(deps.Store, kind, ingest.ScrapePayload{
			Queries:      queries,
			NumResults:   req.NumResults,
			LookbackDays: req.LookbackDays,
			Label:        req.Label,
		})
		if err != nil {
			writeError(w, err, "enqueue scrape")
			return
		}
		writeJSON(w, http.StatusAccepted, ScrapeResponse{TaskID: task.ID, Status: "queued", Queries: queries})
	}
}

func handleScrapeLogs(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logs, err := deps.Store.ListScrapeLogs(parseIntParam(r, "limit", 20, 200))
		if err != nil {
			writeError(w, err, "list scrape logs")
			return
		}
		writeJSON(w, http.StatusOK, logs)
	}
}

// TaskResponse reports the state of a queued scrape.
type TaskResponse struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Status    string `json:"status"`
	Attempts  int    `json:"attempts"`
	LastError string `json:"last_error,omitempty"`
}

func handleGetTask(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		task, err := deps.Store.GetTask(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err, "get task")
			return
		}
		writeJSON(w, http.StatusOK, TaskResponse{
			ID:        task.ID,
			Type:      task.Type,
			Status:    task.Status,
			Attempts:  task.Attempts,
			LastError: task.LastError,
		})
	}
}
