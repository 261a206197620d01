package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/pursuit/internal/analytics"
	"github.com/kalambet/pursuit/internal/dedup"
	"github.com/kalambet/pursuit/internal/ingest"
	"github.com/kalambet/pursuit/internal/storage"
)

const recentPostingDays = 7

func handleListJobs(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		postings, err := deps.Store.ListPostings(storage.PostingFilter{
			Company:    q.Get("company"),
			Source:     q.Get("source"),
			Search:     q.Get("search"),
			ActiveOnly: q.Get("active") == "true",
			Limit:      parseIntParam(r, "limit", 50, 500),
			Offset:     parseIntParam(r, "offset", 0, 0),
		})
		if err != nil {
			writeError(w, err, "list jobs")
			return
		}
		if postings == nil {
			postings = []storage.Posting{}
		}
		writeJSON(w, http.StatusOK, postings)
	}
}

func handleGetJob(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := deps.Store.GetPosting(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err, "get job")
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// handleJobStats reports posting counts. Postings scraped in the last
// recentPostingDays count as recent.
func handleJobStats(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		since := time.Now().UTC().AddDate(0, 0, -recentPostingDays)
		stats, err := deps.Store.PostingStats(since)
		if err != nil {
			writeError(w, err, "compute job stats")
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func handleUpdateJob(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch storage.PostingPatch
		if !decodeBody(w, r, &patch) {
			return
		}
		p, err := deps.Store.UpdatePosting(chi.URLParam(r, "id"), patch)
		if err != nil {
			writeError(w, err, "update job")
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// handleDeleteJob also drops the applications made to the posting, so the
// dashboard cache is invalidated.
func handleDeleteJob(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Store.DeletePosting(chi.URLParam(r, "id")); err != nil {
			writeError(w, err, "delete job")
			return
		}
		deps.Dashboard.Invalidate()
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func handleListStartups(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		startups, err := deps.Store.ListStartups(storage.StartupFilter{
			Industry:     q.Get("industry"),
			FundingStage: q.Get("funding_stage"),
			Source:       q.Get("source"),
			Search:       q.Get("search"),
			ActiveOnly:   q.Get("active") == "true",
			Limit:        parseIntParam(r, "limit", 50, 500),
			Offset:       parseIntParam(r, "offset", 0, 0),
		})
		if err != nil {
			writeError(w, err, "list startups")
			return
		}
		if startups == nil {
			startups = []storage.Startup{}
		}
		writeJSON(w, http.StatusOK, startups)
	}
}

func handleGetStartup(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := deps.Store.GetStartup(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err, "get startup")
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

func handleUpdateStartup(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch storage.StartupPatch
		if !decodeBody(w, r, &patch) {
			return
		}
		st, err := deps.Store.UpdateStartup(chi.URLParam(r, "id"), patch)
		if err != nil {
			writeError(w, err, "update startup")
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

func handleDeleteStartup(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Store.DeleteStartup(chi.URLParam(r, "id")); err != nil {
			writeError(w, err, "delete startup")
			return
		}
		deps.Dashboard.Invalidate()
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

// CandidateRequest is a manually submitted posting or startup. For startups
// Title is the company name and URL its website.
type CandidateRequest struct {
	Kind         string   `json:"kind"`
	Title        string   `json:"title"`
	Company      string   `json:"company,omitempty"`
	URL          string   `json:"url,omitempty"`
	Source       string   `json:"source,omitempty"`
	Description  string   `json:"description,omitempty"`
	Location     string   `json:"location,omitempty"`
	FundingStage string   `json:"funding_stage,omitempty"`
	Industry     string   `json:"industry,omitempty"`
	Tags         []string `json:"tags,omitempty"`
}

func (c CandidateRequest) candidate() dedup.Candidate {
	return dedup.Candidate{Title: c.Title, Company: c.Company, URL: c.URL, Source: c.Source}
}

func (c CandidateRequest) validate(needURL bool) (ingest.Kind, error) {
	kind, err := ingest.ParseKind(c.Kind)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(c.Title) == "" && strings.TrimSpace(c.URL) == "" {
		return "", &analytics.ValidationError{Field: "title", Reason: "title or url is required"}
	}
	if needURL && kind == ingest.KindJobs && strings.TrimSpace(c.URL) == "" {
		return "", &analytics.ValidationError{Field: "url", Reason: "is required for job postings"}
	}
	if needURL && strings.TrimSpace(c.Title) == "" {
		return "", &analytics.ValidationError{Field: "title", Reason: "is required"}
	}
	return kind, nil
}

func handleCheckCandidate(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CandidateRequest
		if !decodeBody(w, r, &req) {
			return
		}
		kind, err := req.validate(false)
		if err != nil {
			writeError(w, err, "check candidate")
			return
		}
		d, err := deps.Ingester.Check(kind, req.candidate())
		if err != nil {
			writeError(w, err, "check candidate")
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

// handleAddCandidate runs the candidate through the same dedup-then-insert
// path as scraped records. A duplicate answers 200 with the decision; an
// insert answers 201.
func handleAddCandidate(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CandidateRequest
		if !decodeBody(w, r, &req) {
			return
		}
		kind, err := req.validate(true)
		if err != nil {
			writeError(w, err, "add candidate")
			return
		}

		source := req.Source
		if source == "" {
			source = "manual"
		}
		tags := req.Tags
		if tags == nil {
			tags = []string{"manual"}
		}
		now := time.Now().UTC()

		var res ingest.Result
		switch kind {
		case ingest.KindStartups:
			res, err = deps.Ingester.IngestStartups([]storage.Startup{{
				Name:           strings.TrimSpace(req.Title),
				Website:        req.URL,
				Description:    req.Description,
				FundingStage:   req.FundingStage,
				Industry:       req.Industry,
				Tags:           tags,
				Source:         source,
				SourceURL:      req.URL,
				DiscoveredDate: now,
				IsActive:       true,
			}})
		default:
			res, err = deps.Ingester.IngestPostings([]storage.Posting{{
				Title:       strings.TrimSpace(req.Title),
				Company:     strings.TrimSpace(req.Company),
				Location:    req.Location,
				Description: req.Description,
				Source:      source,
				SourceURL:   req.URL,
				ScrapedAt:   now,
				IsActive:    true,
				Tags:        tags,
			}})
		}
		if err != nil {
			writeError(w, err, "add candidate")
			return
		}

		out := res.Outcomes[0]
		code := http.StatusCreated
		if out.Decision.Duplicate {
			code = http.StatusOK
		}
		writeJSON(w, code, out)
	}
}
