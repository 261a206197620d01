package ingest

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kalambet/pursuit/internal/dedup"
	"github.com/kalambet/pursuit/internal/storage"
)

func openTestStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestIngester(t *testing.T) (*Ingester, *storage.Store) {
	t.Helper()
	store := openTestStore(t)
	return NewIngester(store, dedup.NewDetector(dedup.DefaultConfig())), store
}

func posting(title, company, url string) storage.Posting {
	return storage.Posting{Title: title, Company: company, SourceURL: url, Source: "exa", IsActive: true}
}

func TestIngestPostings_SkipsDuplicates(t *testing.T) {
	in, store := newTestIngester(t)

	if _, err := store.SavePosting(posting("Investment Analyst", "Blue Harbor", "https://blueharbor.com/jobs/1")); err != nil {
		t.Fatalf("SavePosting: %v", err)
	}

	res, err := in.IngestPostings([]storage.Posting{
		posting("Investment Analyst", "Blue Harbor", "https://BlueHarbor.com/jobs/1/?utm=x"),
		posting("Investment Analyst ", "Blue Harbour", "https://other-board.com/listing/77"),
		posting("Platform Manager", "Redwood Ventures", "https://redwood.vc/careers/pm"),
		posting("Platform Manager", "Redwood Ventures", "https://redwood.vc/careers/pm"),
	})
	if err != nil {
		t.Fatalf("IngestPostings: %v", err)
	}
	if res.Found != 4 || res.New != 1 || res.Skipped != 3 {
		t.Fatalf("counts = found %d new %d skipped %d, want 4/1/3", res.Found, res.New, res.Skipped)
	}

	wantMatch := []dedup.MatchKind{dedup.MatchExactURL, dedup.MatchFuzzy, dedup.MatchNone, dedup.MatchExactURL}
	for i, out := range res.Outcomes {
		if out.Decision.Match != wantMatch[i] {
			t.Errorf("outcome %d match = %q, want %q", i, out.Decision.Match, wantMatch[i])
		}
	}
	if res.Outcomes[2].ID == "" {
		t.Error("inserted outcome has no ID")
	}
	if res.Outcomes[3].Decision.MatchedID != res.Outcomes[2].ID {
		t.Errorf("in-batch duplicate matched %q, want %q", res.Outcomes[3].Decision.MatchedID, res.Outcomes[2].ID)
	}

	all, err := store.ListPostings(storage.PostingFilter{})
	if err != nil {
		t.Fatalf("ListPostings: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("stored %d postings, want 2", len(all))
	}
}

func TestIngestPostings_NotifiesOnlyOnInsert(t *testing.T) {
	in, _ := newTestIngester(t)
	calls := 0
	in.OnChange(func() { calls++ })

	p := posting("Analyst", "Fund", "https://fund.com/a")
	if _, err := in.IngestPostings([]storage.Posting{p}); err != nil {
		t.Fatalf("IngestPostings: %v", err)
	}
	if _, err := in.IngestPostings([]storage.Posting{p}); err != nil {
		t.Fatalf("IngestPostings: %v", err)
	}
	if calls != 1 {
		t.Errorf("onChange called %d times, want 1", calls)
	}
}

func TestOnChange_RunsEveryCallback(t *testing.T) {
	in, _ := newTestIngester(t)
	var order []string
	in.OnChange(func() { order = append(order, "dashboard") })
	in.OnChange(func() { order = append(order, "audit") })

	if _, err := in.IngestStartups([]storage.Startup{{Name: "Fernwood Robotics", Website: "https://fernwood.dev"}}); err != nil {
		t.Fatalf("IngestStartups: %v", err)
	}
	if len(order) != 2 || order[0] != "dashboard" || order[1] != "audit" {
		t.Errorf("callbacks ran as %v, want [dashboard audit]", order)
	}
}

func TestIngestStartups_MatchesEitherURL(t *testing.T) {
	in, store := newTestIngester(t)

	if _, err := store.SaveStartup(storage.Startup{
		Name: "Quantaloop", Website: "https://quantaloop.io", SourceURL: "https://news.example.com/quantaloop-raises",
	}); err != nil {
		t.Fatalf("SaveStartup: %v", err)
	}

	res, err := in.IngestStartups([]storage.Startup{
		{Name: "Totally Different", Website: "https://news.example.com/quantaloop-raises/"},
		{Name: "Another Name", Website: "https://new-site.dev", SourceURL: "https://quantaloop.io"},
		{Name: "Fernwood Robotics", Website: "https://fernwood.dev"},
	})
	if err != nil {
		t.Fatalf("IngestStartups: %v", err)
	}
	if res.New != 1 || res.Skipped != 2 {
		t.Fatalf("new %d skipped %d, want 1/2", res.New, res.Skipped)
	}
	if !res.Outcomes[1].Decision.Duplicate {
		t.Error("startup known by source URL was not flagged")
	}
}

func TestCheck_DoesNotWrite(t *testing.T) {
	in, store := newTestIngester(t)
	if _, err := store.SavePosting(posting("Venture Fellow", "Seedcamp", "https://seedcamp.com/fellow")); err != nil {
		t.Fatalf("SavePosting: %v", err)
	}

	d, err := in.Check(KindJobs, dedup.Candidate{Title: "Venture Fellow", Company: "Seedcamp", URL: "https://elsewhere.com/x"})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !d.Duplicate || d.Match != dedup.MatchFuzzy {
		t.Errorf("decision = %+v, want fuzzy duplicate", d)
	}

	d, err = in.Check(KindJobs, dedup.Candidate{Title: "Chief of Staff", Company: "Lightspeed"})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if d.Duplicate {
		t.Errorf("decision = %+v, want not duplicate", d)
	}

	all, _ := store.ListPostings(storage.PostingFilter{})
	if len(all) != 1 {
		t.Errorf("Check wrote records: %d postings", len(all))
	}
}

func TestCheck_UnknownKind(t *testing.T) {
	in, _ := newTestIngester(t)
	if _, err := in.Check(Kind("funds"), dedup.Candidate{Title: "x"}); err == nil {
		t.Error("expected error for unknown kind")
	}
}

type failingStore struct {
	RecordStore
}

func (failingStore) DedupRecordsForPostings() ([]dedup.Record, error) { return nil, nil }

func (failingStore) SavePosting(storage.Posting) (storage.Posting, error) {
	return storage.Posting{}, errors.New("disk full")
}

func TestIngestPostings_StoreError(t *testing.T) {
	in := NewIngester(failingStore{}, dedup.NewDetector(dedup.DefaultConfig()))
	if _, err := in.IngestPostings([]storage.Posting{posting("a", "b", "https://c.com")}); err == nil {
		t.Fatal("expected error")
	}
}

func TestIngestPostings_ConcurrentBatches(t *testing.T) {
	in, store := newTestIngester(t)

	batch := []storage.Posting{
		posting("Associate", "Index Ventures", "https://indexventures.com/jobs/associate"),
		posting("Principal", "Balderton", "https://balderton.com/jobs/principal"),
	}

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			copied := append([]storage.Posting(nil), batch...)
			for i := range copied {
				copied[i].ScrapedAt = time.Now().UTC()
			}
			if _, err := in.IngestPostings(copied); err != nil {
				t.Errorf("IngestPostings: %v", err)
			}
		}()
	}
	wg.Wait()

	all, err := store.ListPostings(storage.PostingFilter{})
	if err != nil {
		t.Fatalf("ListPostings: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("stored %d postings, want 2", len(all))
	}
}
