// Package dashboard assembles the gamification stats shown by the API, the
// CLI and the MCP server from a consistent storage snapshot.
package dashboard

import (
	"fmt"
	"maps"
	"sync"
	"time"

	"cloud.google.com/go/civil"

	"github.com/kalambet/pursuit/internal/analytics"
	"github.com/kalambet/pursuit/internal/storage"
)

// recentDays is the window of the "activity last 7 days" counters.
const recentDays = 7

// SnapshotSource is implemented by storage.Store.
type SnapshotSource interface {
	Snapshot() (storage.Snapshot, error)
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// DefaultGoals are the weekly targets used for categories with no stored goal.
type DefaultGoals struct {
	Jobs     int
	Dealflow int
}

func (d DefaultGoals) target(c analytics.Category) int {
	if c == analytics.CategoryDealflow {
		return d.Dealflow
	}
	return d.Jobs
}

// Stats is the full dashboard payload. Rates and progress are rounded to
// three decimals.
type Stats struct {
	Today    civil.Date    `json:"today"`
	Jobs     JobsStats     `json:"jobs"`
	Dealflow DealflowStats `json:"dealflow"`
	Combined CombinedStats `json:"combined"`
}

type JobsStats struct {
	Applications      analytics.ApplicationStats `json:"applications"`
	ActivityLast7Days int                        `json:"activity_last_7_days"`
	UpcomingFollowUps int                        `json:"upcoming_follow_ups"`
	WeeklyGoal        analytics.WeeklyProgress   `json:"weekly_goal"`
	Streak            int                        `json:"streak"`
}

type DealflowStats struct {
	Pipeline          analytics.DealflowStats  `json:"pipeline"`
	ActivityLast7Days int                      `json:"activity_last_7_days"`
	WeeklyGoal        analytics.WeeklyProgress `json:"weekly_goal"`
	Streak            int                      `json:"streak"`
}

type CombinedStats struct {
	TotalActivityLast7Days int `json:"total_activity_last_7_days"`
	Streak                 int `json:"streak"`
}

// Service computes Stats with a short-lived cache that writers invalidate.
type Service struct {
	source   SnapshotSource
	defaults DefaultGoals
	clock    Clock
	ttl      time.Duration

	mu       sync.RWMutex
	cached   *Stats
	cachedAt time.Time
}

// NewService creates a Service with a 30-second cache TTL.
func NewService(source SnapshotSource, defaults DefaultGoals) *Service {
	return NewServiceWithClock(source, defaults, realClock{}, 30*time.Second)
}

// NewServiceWithClock creates a Service with a custom clock (for testing).
func NewServiceWithClock(source SnapshotSource, defaults DefaultGoals, clock Clock, ttl time.Duration) *Service {
	return &Service{
		source:   source,
		defaults: defaults,
		clock:    clock,
		ttl:      ttl,
	}
}

// Stats returns the dashboard for today, from cache when still fresh.
func (s *Service) Stats() (Stats, error) {
	now := s.clock.Now()
	today := civil.DateOf(now)

	s.mu.RLock()
	if s.fresh(now, today) {
		st := cloneStats(s.cached)
		s.mu.RUnlock()
		return st, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fresh(now, today) {
		return cloneStats(s.cached), nil
	}

	snap, err := s.source.Snapshot()
	if err != nil {
		return Stats{}, fmt.Errorf("loading snapshot: %w", err)
	}
	st := Compute(snap, s.defaults, today)
	s.cached = &st
	s.cachedAt = now
	return cloneStats(&st), nil
}

func (s *Service) fresh(now time.Time, today civil.Date) bool {
	return s.cached != nil && s.cached.Today == today && now.Before(s.cachedAt.Add(s.ttl))
}

// Invalidate drops the cached stats. Wired to tracker and ingest writes.
func (s *Service) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached = nil
}

// effectiveGoals fills categories without a stored goal with the
// configured default target.
func effectiveGoals(stored map[analytics.Category]analytics.WeeklyGoal, defaults DefaultGoals) map[analytics.Category]analytics.WeeklyGoal {
	out := make(map[analytics.Category]analytics.WeeklyGoal, len(analytics.Categories))
	for _, c := range analytics.Categories {
		g, ok := stored[c]
		if !ok {
			g = analytics.WeeklyGoal{Category: c, Target: defaults.target(c)}
		}
		out[c] = g
	}
	return out
}

// Compute derives Stats from snap as of today. It does no I/O.
func Compute(snap storage.Snapshot, defaults DefaultGoals, today civil.Date) Stats {
	goals := effectiveGoals(snap.Goals, defaults)
	streaks := analytics.ComputeStreaks(snap.Events, today)

	apps := make([]analytics.Application, 0, len(snap.Applications))
	followUps := 0
	horizon := today.AddDays(recentDays)
	for _, a := range snap.Applications {
		apps = append(apps, a.Analytics())
		d := a.NextFollowUpDate
		if !d.IsZero() && !d.Before(today) && !d.After(horizon) {
			followUps++
		}
	}
	entries := make([]analytics.DealflowEntry, 0, len(snap.Dealflow))
	for _, e := range snap.Dealflow {
		entries = append(entries, e.Analytics())
	}

	jobsRecent := analytics.CountSince(snap.Events, analytics.CategoryJobs, today, recentDays)
	dealflowRecent := analytics.CountSince(snap.Events, analytics.CategoryDealflow, today, recentDays)

	return Stats{
		Today: today,
		Jobs: JobsStats{
			Applications:      roundApplications(analytics.AggregateApplications(apps)),
			ActivityLast7Days: jobsRecent,
			UpcomingFollowUps: followUps,
			WeeklyGoal:        roundProgress(analytics.ComputeWeeklyProgress(snap.Events, goals[analytics.CategoryJobs], today)),
			Streak:            streaks.Jobs,
		},
		Dealflow: DealflowStats{
			Pipeline:          roundDealflow(analytics.AggregateDealflow(entries)),
			ActivityLast7Days: dealflowRecent,
			WeeklyGoal:        roundProgress(analytics.ComputeWeeklyProgress(snap.Events, goals[analytics.CategoryDealflow], today)),
			Streak:            streaks.Dealflow,
		},
		Combined: CombinedStats{
			TotalActivityLast7Days: jobsRecent + dealflowRecent,
			Streak:                 streaks.Combined,
		},
	}
}

func roundApplications(s analytics.ApplicationStats) analytics.ApplicationStats {
	s.ResponseRate = analytics.Round3(s.ResponseRate)
	s.InterviewRate = analytics.Round3(s.InterviewRate)
	s.OfferRate = analytics.Round3(s.OfferRate)
	return s
}

func roundDealflow(s analytics.DealflowStats) analytics.DealflowStats {
	r := &s.ConversionRates
	r.SourcedToContacted = analytics.Round3(r.SourcedToContacted)
	r.ContactedToMeeting = analytics.Round3(r.ContactedToMeeting)
	r.MeetingToShared = analytics.Round3(r.MeetingToShared)
	r.SharedToProgressing = analytics.Round3(r.SharedToProgressing)
	return s
}

func roundProgress(p analytics.WeeklyProgress) analytics.WeeklyProgress {
	p.Progress = analytics.Round3(p.Progress)
	return p
}

func cloneStats(s *Stats) Stats {
	out := *s
	out.Jobs.Applications.ByStatus = maps.Clone(s.Jobs.Applications.ByStatus)
	out.Dealflow.Pipeline.Pipeline = maps.Clone(s.Dealflow.Pipeline.Pipeline)
	out.Dealflow.Pipeline.Outcomes = maps.Clone(s.Dealflow.Pipeline.Outcomes)
	return out
}
