package ingest

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/kalambet/pursuit/internal/dedup"
	"github.com/kalambet/pursuit/internal/storage"
)

// RecordStore is the slice of storage the Ingester reads and writes.
type RecordStore interface {
	DedupRecordsForPostings() ([]dedup.Record, error)
	DedupRecordsForStartups() ([]dedup.Record, error)
	SavePosting(p storage.Posting) (storage.Posting, error)
	SaveStartup(st storage.Startup) (storage.Startup, error)
}

// Outcome is the decision for one submitted record. ID is the stored ID
// when the record was inserted and empty when it was skipped.
type Outcome struct {
	Candidate dedup.Candidate `json:"candidate"`
	Decision  dedup.Decision  `json:"decision"`
	ID        string          `json:"id,omitempty"`
}

// Result summarizes one ingest batch.
type Result struct {
	Found    int       `json:"found"`
	New      int       `json:"new"`
	Skipped  int       `json:"skipped"`
	Outcomes []Outcome `json:"outcomes"`
}

// Ingester is the single writer of scraped postings and startups. Loading
// the existing records, checking a batch, and inserting it happen under one
// lock, so two concurrent batches never both insert the same record.
type Ingester struct {
	store    RecordStore
	detector *dedup.Detector
	logger   *slog.Logger

	mu       sync.Mutex
	onChange []func()
}

func NewIngester(store RecordStore, detector *dedup.Detector) *Ingester {
	return &Ingester{
		store:    store,
		detector: detector,
		logger:   slog.Default(),
	}
}

// OnChange registers fn to run after a batch inserts at least one record.
// Callbacks run in registration order.
func (in *Ingester) OnChange(fn func()) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.onChange = append(in.onChange, fn)
}

// Check reports whether c would be skipped, without writing anything.
func (in *Ingester) Check(kind Kind, c dedup.Candidate) (dedup.Decision, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	existing, err := in.records(kind)
	if err != nil {
		return dedup.Decision{}, err
	}
	return in.detector.Check(c, existing), nil
}

// IngestPostings stores every posting that is not a duplicate of a stored
// posting or of an earlier posting in the same batch.
func (in *Ingester) IngestPostings(postings []storage.Posting) (Result, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	existing, err := in.records(KindJobs)
	if err != nil {
		return Result{}, err
	}

	res := Result{Found: len(postings), Outcomes: make([]Outcome, 0, len(postings))}
	for _, p := range postings {
		c := PostingCandidate(p)
		d := in.detector.Check(c, existing)
		out := Outcome{Candidate: c, Decision: d}
		if d.Duplicate {
			res.Skipped++
			res.Outcomes = append(res.Outcomes, out)
			continue
		}

		saved, err := in.store.SavePosting(p)
		if errors.Is(err, storage.ErrDuplicate) {
			// Same source URL under a normalization the detector does not apply.
			in.logger.Debug("posting rejected by store", "url", p.SourceURL)
			out.Decision = dedup.Decision{Duplicate: true, Confidence: 1, Match: dedup.MatchExactURL}
			res.Skipped++
			res.Outcomes = append(res.Outcomes, out)
			continue
		}
		if err != nil {
			in.notify(res.New)
			return res, fmt.Errorf("saving posting %q: %w", p.Title, err)
		}
		out.ID = saved.ID
		res.New++
		res.Outcomes = append(res.Outcomes, out)
		existing = append(existing, dedup.Record{
			ID: saved.ID, Title: saved.Title, Company: saved.Company, URL: saved.SourceURL, SeenAt: saved.ScrapedAt,
		})
	}

	in.logger.Info("postings ingested", "found", res.Found, "new", res.New, "skipped", res.Skipped)
	in.notify(res.New)
	return res, nil
}

// IngestStartups is IngestPostings for startups. Both the website and the
// source URL take part in the exact URL stage.
func (in *Ingester) IngestStartups(startups []storage.Startup) (Result, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	existing, err := in.records(KindStartups)
	if err != nil {
		return Result{}, err
	}

	res := Result{Found: len(startups), Outcomes: make([]Outcome, 0, len(startups))}
	for _, st := range startups {
		d := in.checkStartup(st, existing)
		out := Outcome{Candidate: StartupCandidate(st), Decision: d}
		if d.Duplicate {
			res.Skipped++
			res.Outcomes = append(res.Outcomes, out)
			continue
		}

		saved, err := in.store.SaveStartup(st)
		if err != nil {
			in.notify(res.New)
			return res, fmt.Errorf("saving startup %q: %w", st.Name, err)
		}
		out.ID = saved.ID
		res.New++
		res.Outcomes = append(res.Outcomes, out)
		for _, u := range []string{saved.Website, saved.SourceURL} {
			if u != "" {
				existing = append(existing, dedup.Record{ID: saved.ID, Title: saved.Name, URL: u, SeenAt: saved.DiscoveredDate})
			}
		}
	}

	in.logger.Info("startups ingested", "found", res.Found, "new", res.New, "skipped", res.Skipped)
	in.notify(res.New)
	return res, nil
}

// checkStartup runs the detector with the website first and retries the
// exact stage with the source URL when it differs.
func (in *Ingester) checkStartup(st storage.Startup, existing []dedup.Record) dedup.Decision {
	c := StartupCandidate(st)
	d := in.detector.Check(c, existing)
	if d.Duplicate || st.SourceURL == "" || st.SourceURL == c.URL {
		return d
	}
	c.URL = st.SourceURL
	if alt := in.detector.Check(c, existing); alt.Duplicate {
		return alt
	}
	return d
}

func (in *Ingester) records(kind Kind) ([]dedup.Record, error) {
	var (
		recs []dedup.Record
		err  error
	)
	switch kind {
	case KindJobs:
		recs, err = in.store.DedupRecordsForPostings()
	case KindStartups:
		recs, err = in.store.DedupRecordsForStartups()
	default:
		return nil, fmt.Errorf("unknown kind %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("loading %s for dedup: %w", kind, err)
	}
	return recs, nil
}

func (in *Ingester) notify(inserted int) {
	if inserted == 0 {
		return
	}
	for _, fn := range in.onChange {
		fn()
	}
}

// PostingCandidate is the detector's view of a posting.
func PostingCandidate(p storage.Posting) dedup.Candidate {
	return dedup.Candidate{Title: p.Title, Company: p.Company, URL: p.SourceURL, Source: p.Source}
}

// StartupCandidate is the detector's view of a startup. The website wins
// over the source URL when both are set.
func StartupCandidate(st storage.Startup) dedup.Candidate {
	u := st.Website
	if u == "" {
		u = st.SourceURL
	}
	return dedup.Candidate{Title: st.Name, URL: u, Source: st.Source}
}
