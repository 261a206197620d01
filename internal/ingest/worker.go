package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kalambet/pursuit/internal/analytics"
	"github.com/kalambet/pursuit/internal/exa"
	"github.com/kalambet/pursuit/internal/storage"
)

// Task types handled by Worker.
const (
	TaskScrapeJobs     = "scrape_jobs"
	TaskScrapeStartups = "scrape_startups"
)

const (
	defaultJobsLookbackDays     = 30
	defaultStartupsLookbackDays = 90
	defaultNumResults           = 50
	defaultConcurrency          = 4
)

// TaskStore abstracts the task queue and scrape log operations.
type TaskStore interface {
	ClaimNextTask(types []string) (*storage.Task, error)
	CompleteTask(id string) error
	FailTask(id string, errMsg string) error
	SaveScrapeLog(l storage.ScrapeLog) (storage.ScrapeLog, error)
}

// TaskEnqueuer is the write side of the task queue.
type TaskEnqueuer interface {
	EnqueueTask(task storage.Task) (storage.Task, error)
}

// Searcher runs one Exa query.
type Searcher interface {
	Search(ctx context.Context, req exa.SearchRequest) ([]exa.Result, error)
}

// ScrapePayload is the JSON payload of a scrape task.
type ScrapePayload struct {
	Queries      []string `json:"queries"`
	NumResults   int      `json:"num_results,omitempty"`
	LookbackDays int      `json:"lookback_days,omitempty"`
	// Label names the run in scrape logs, e.g. "exa_firms".
	Label string `json:"label,omitempty"`
}

// Enqueue validates p and queues a scrape task of the given kind.
func Enqueue(q TaskEnqueuer, kind Kind, p ScrapePayload) (storage.Task, error) {
	taskType, err := taskTypeFor(kind)
	if err != nil {
		return storage.Task{}, err
	}
	queries := make([]string, 0, len(p.Queries))
	for _, query := range p.Queries {
		if query = strings.TrimSpace(query); query != "" {
			queries = append(queries, query)
		}
	}
	if len(queries) == 0 {
		return storage.Task{}, &analytics.ValidationError{Field: "queries", Reason: "at least one query is required"}
	}
	if p.NumResults < 0 || p.NumResults > exa.MaxResults {
		return storage.Task{}, &analytics.ValidationError{Field: "num_results", Reason: fmt.Sprintf("must be between 0 and %d", exa.MaxResults)}
	}
	p.Queries = queries

	raw, err := json.Marshal(p)
	if err != nil {
		return storage.Task{}, fmt.Errorf("encoding payload: %w", err)
	}
	return q.EnqueueTask(storage.Task{Type: taskType, PayloadJSON: string(raw)})
}

func taskTypeFor(kind Kind) (string, error) {
	switch kind {
	case KindJobs:
		return TaskScrapeJobs, nil
	case KindStartups:
		return TaskScrapeStartups, nil
	}
	return "", &analytics.ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown kind %q", kind)}
}

// WorkerConfig tunes the scrape worker. Zero values fall back to defaults.
type WorkerConfig struct {
	PollInterval time.Duration
	Concurrency  int
	NumResults   int
	LookbackDays int // jobs only; startups look back 90 days
}

// Worker processes scrape tasks from the SQLite task queue.
type Worker struct {
	store    TaskStore
	searcher Searcher
	ingester *Ingester
	cfg      WorkerConfig
	now      func() time.Time
	logger   *slog.Logger
}

func NewWorker(store TaskStore, searcher Searcher, ingester *Ingester, cfg WorkerConfig) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.NumResults <= 0 {
		cfg.NumResults = defaultNumResults
	}
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = defaultJobsLookbackDays
	}
	return &Worker{
		store:    store,
		searcher: searcher,
		ingester: ingester,
		cfg:      cfg,
		now:      time.Now,
		logger:   slog.Default(),
	}
}

// Run polls for tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		done, err := w.RunOnce(ctx)
		if err != nil {
			w.logger.Error("worker iteration failed", "error", err)
		}
		if done {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.cfg.PollInterval):
		}
	}
}

// RunOnce claims and processes a single scrape task.
// Returns true if a task was processed (regardless of success/failure).
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	task, err := w.store.ClaimNextTask([]string{TaskScrapeJobs, TaskScrapeStartups})
	if err != nil {
		return false, fmt.Errorf("claiming task: %w", err)
	}
	if task == nil {
		return false, nil
	}

	if err := w.processTask(ctx, task); err != nil {
		w.logger.Warn("task failed", "task_id", task.ID, "type", task.Type, "error", err)
		if failErr := w.store.FailTask(task.ID, err.Error()); failErr != nil {
			w.logger.Error("failed to mark task as failed", "task_id", task.ID, "error", failErr)
		}
		return true, nil
	}

	if err := w.store.CompleteTask(task.ID); err != nil {
		return true, fmt.Errorf("completing task %s: %w", task.ID, err)
	}
	return true, nil
}

func (w *Worker) processTask(ctx context.Context, task *storage.Task) error {
	var p ScrapePayload
	if err := json.Unmarshal([]byte(task.PayloadJSON), &p); err != nil {
		return fmt.Errorf("parsing payload: %w", err)
	}
	kind := KindJobs
	if task.Type == TaskScrapeStartups {
		kind = KindStartups
	}

	started := w.now().UTC()
	log := storage.ScrapeLog{
		Source:    scrapeSource(kind, p.Label),
		Query:     strings.Join(p.Queries, "; "),
		Status:    "started",
		StartedAt: started,
	}
	log, err := w.store.SaveScrapeLog(log)
	if err != nil {
		return fmt.Errorf("opening scrape log: %w", err)
	}

	res, runErr := w.scrape(ctx, kind, p)
	log.Found, log.New, log.Skipped = res.Found, res.New, res.Skipped
	log.DurationMS = w.now().UTC().Sub(started).Milliseconds()
	log.Status = "completed"
	if runErr != nil {
		log.Status = "failed"
		log.Error = runErr.Error()
	}
	if _, err := w.store.SaveScrapeLog(log); err != nil {
		w.logger.Error("failed to close scrape log", "log_id", log.ID, "error", err)
	}
	return runErr
}

func (w *Worker) scrape(ctx context.Context, kind Kind, p ScrapePayload) (Result, error) {
	if len(p.Queries) == 0 {
		return Result{}, errors.New("payload has no queries")
	}
	batches, err := w.search(ctx, kind, p)
	if err != nil {
		return Result{}, err
	}

	now := w.now()
	switch kind {
	case KindStartups:
		var startups []storage.Startup
		for _, batch := range batches {
			for _, r := range batch {
				startups = append(startups, StartupFromResult(r, now))
			}
		}
		return w.ingester.IngestStartups(startups)
	default:
		var postings []storage.Posting
		for _, batch := range batches {
			for _, r := range batch {
				postings = append(postings, PostingFromResult(r, now))
			}
		}
		return w.ingester.IngestPostings(postings)
	}
}

// search runs every query concurrently and returns results in query order.
func (w *Worker) search(ctx context.Context, kind Kind, p ScrapePayload) ([][]exa.Result, error) {
	numResults := p.NumResults
	if numResults <= 0 {
		numResults = w.cfg.NumResults
	}
	lookback := p.LookbackDays
	if lookback <= 0 {
		lookback = w.cfg.LookbackDays
		if kind == KindStartups {
			lookback = defaultStartupsLookbackDays
		}
	}
	since := w.now().UTC().AddDate(0, 0, -lookback).Format("2006-01-02T15:04:05.000Z")

	batches := make([][]exa.Result, len(p.Queries))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.Concurrency)
	for i, query := range p.Queries {
		g.Go(func() error {
			results, err := w.searcher.Search(gCtx, exa.SearchRequest{
				Query:              query,
				NumResults:         numResults,
				StartPublishedDate: since,
				Contents:           exa.Contents{Text: true, Highlights: true},
			})
			if err != nil {
				return fmt.Errorf("searching %q: %w", query, err)
			}
			w.logger.Debug("exa search done", "query", query, "results", len(results))
			batches[i] = results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return batches, nil
}

func scrapeSource(kind Kind, label string) string {
	if label != "" {
		return label
	}
	return "exa_" + string(kind)
}
