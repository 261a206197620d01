package dashboard

import (
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"

	"github.com/kalambet/pursuit/internal/analytics"
	"github.com/kalambet/pursuit/internal/storage"
)

// --- Mock source ---

type mockSource struct {
	mu    sync.Mutex
	snap  storage.Snapshot
	calls int
}

func (m *mockSource) Snapshot() (storage.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.snap, nil
}

// --- Mock clock ---

type mockClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func date(t *testing.T, s string) civil.Date {
	t.Helper()
	d, err := civil.ParseDate(s)
	if err != nil {
		t.Fatalf("ParseDate(%q): %v", s, err)
	}
	return d
}

var defaults = DefaultGoals{Jobs: 10, Dealflow: 5}

// --- Tests ---

func TestCompute_Empty(t *testing.T) {
	st := Compute(storage.Snapshot{}, defaults, date(t, "2026-02-05"))

	if st.Jobs.Applications.Total != 0 || st.Jobs.Streak != 0 || st.Combined.Streak != 0 {
		t.Errorf("expected zero stats, got %+v", st)
	}
	if st.Jobs.WeeklyGoal.Target != 10 || st.Dealflow.WeeklyGoal.Target != 5 {
		t.Errorf("default targets not applied: %+v / %+v", st.Jobs.WeeklyGoal, st.Dealflow.WeeklyGoal)
	}
	if st.Jobs.WeeklyGoal.WeekStart != date(t, "2026-02-02") {
		t.Errorf("WeekStart = %s, want 2026-02-02", st.Jobs.WeeklyGoal.WeekStart)
	}
}

func TestCompute_Sections(t *testing.T) {
	today := date(t, "2026-02-08")
	snap := storage.Snapshot{
		Applications: []storage.Application{
			{ID: "a1", Status: analytics.StatusApplied, NextFollowUpDate: date(t, "2026-02-10")},
			{ID: "a2", Status: analytics.StatusInterviewing, InterviewCount: 1},
			{ID: "a3", Status: analytics.StatusSaved, NextFollowUpDate: date(t, "2026-03-01")},
		},
		Dealflow: []storage.DealflowEntry{
			{ID: "d1", Status: analytics.StageContacted, EmailsSent: 2},
			{ID: "d2", Status: analytics.StageSourced},
			{ID: "d3", Status: analytics.StageSourced},
		},
		Events: []analytics.ActivityEvent{
			{Category: analytics.CategoryJobs, Date: date(t, "2026-02-03")},
			{Category: analytics.CategoryJobs, Date: date(t, "2026-02-03")},
			{Category: analytics.CategoryJobs, Date: date(t, "2026-02-05")},
			{Category: analytics.CategoryDealflow, Date: date(t, "2026-02-07")},
			{Category: analytics.CategoryJobs, Date: date(t, "2026-02-08")},
		},
		Goals: map[analytics.Category]analytics.WeeklyGoal{
			analytics.CategoryJobs: {Category: analytics.CategoryJobs, Target: 3},
		},
	}

	st := Compute(snap, defaults, today)

	if st.Jobs.WeeklyGoal.Current != 4 || st.Jobs.WeeklyGoal.Progress != 1 {
		t.Errorf("jobs goal = %+v", st.Jobs.WeeklyGoal)
	}
	if st.Dealflow.WeeklyGoal.Target != 5 || st.Dealflow.WeeklyGoal.Progress != 0.2 {
		t.Errorf("dealflow goal = %+v", st.Dealflow.WeeklyGoal)
	}
	if st.Jobs.Applications.ResponseRate != 0.333 {
		t.Errorf("ResponseRate = %v, want 0.333", st.Jobs.Applications.ResponseRate)
	}
	if st.Dealflow.Pipeline.ConversionRates.SourcedToContacted != 0.333 {
		t.Errorf("SourcedToContacted = %v, want 0.333", st.Dealflow.Pipeline.ConversionRates.SourcedToContacted)
	}
	if st.Jobs.UpcomingFollowUps != 1 {
		t.Errorf("UpcomingFollowUps = %d, want 1", st.Jobs.UpcomingFollowUps)
	}
	if st.Jobs.Streak != 1 || st.Dealflow.Streak != 1 || st.Combined.Streak != 2 {
		t.Errorf("streaks = %d/%d/%d, want 1/1/2", st.Jobs.Streak, st.Dealflow.Streak, st.Combined.Streak)
	}
	if st.Combined.TotalActivityLast7Days != 5 {
		t.Errorf("TotalActivityLast7Days = %d, want 5", st.Combined.TotalActivityLast7Days)
	}
}

func TestStats_CachesUntilTTL(t *testing.T) {
	src := &mockSource{}
	clock := &mockClock{now: time.Date(2026, 2, 5, 10, 0, 0, 0, time.Local)}
	svc := NewServiceWithClock(src, defaults, clock, time.Minute)

	for i := 0; i < 3; i++ {
		if _, err := svc.Stats(); err != nil {
			t.Fatalf("Stats: %v", err)
		}
	}
	if src.calls != 1 {
		t.Errorf("expected 1 snapshot read, got %d", src.calls)
	}

	clock.Advance(2 * time.Minute)
	if _, err := svc.Stats(); err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if src.calls != 2 {
		t.Errorf("expected refresh after TTL, got %d reads", src.calls)
	}
}

func TestStats_InvalidateForcesReload(t *testing.T) {
	src := &mockSource{}
	clock := &mockClock{now: time.Date(2026, 2, 5, 10, 0, 0, 0, time.Local)}
	svc := NewServiceWithClock(src, defaults, clock, time.Hour)

	if _, err := svc.Stats(); err != nil {
		t.Fatalf("Stats: %v", err)
	}
	src.mu.Lock()
	src.snap.Events = []analytics.ActivityEvent{{Category: analytics.CategoryJobs, Date: date(t, "2026-02-05")}}
	src.mu.Unlock()
	svc.Invalidate()

	st, err := svc.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Jobs.Streak != 1 {
		t.Errorf("stale stats after Invalidate: streak %d", st.Jobs.Streak)
	}
}

func TestStats_ReturnsIndependentCopies(t *testing.T) {
	src := &mockSource{}
	clock := &mockClock{now: time.Date(2026, 2, 5, 10, 0, 0, 0, time.Local)}
	svc := NewServiceWithClock(src, defaults, clock, time.Hour)

	st, err := svc.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	st.Jobs.Applications.ByStatus[analytics.StatusOffer] = 99

	again, err := svc.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if again.Jobs.Applications.ByStatus[analytics.StatusOffer] != 0 {
		t.Error("cached stats were mutated through a returned copy")
	}
}
