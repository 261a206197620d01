package analytics

import (
	"time"

	"cloud.google.com/go/civil"
)

// Streaks holds the current consecutive-day streak per category and for both
// categories combined.
type Streaks struct {
	Jobs     int `json:"jobs"`
	Dealflow int `json:"dealflow"`
	Combined int `json:"combined"`
}

// ComputeStreak counts consecutive active days ending today, or ending
// yesterday when today has no activity yet. Duplicates and ordering in dates
// do not matter. Days after today are ignored.
func ComputeStreak(dates []civil.Date, today civil.Date) int {
	active := make(map[civil.Date]struct{}, len(dates))
	for _, d := range dates {
		if d.After(today) {
			continue
		}
		active[d] = struct{}{}
	}
	return streakFrom(active, today)
}

func streakFrom(active map[civil.Date]struct{}, today civil.Date) int {
	day := today
	if _, ok := active[day]; !ok {
		day = day.AddDays(-1)
	}
	n := 0
	for {
		if _, ok := active[day]; !ok {
			return n
		}
		n++
		day = day.AddDays(-1)
	}
}

// ComputeStreaks applies ComputeStreak per category and to the union of
// every category's days.
func ComputeStreaks(events []ActivityEvent, today civil.Date) Streaks {
	var jobs, dealflow []civil.Date
	all := make([]civil.Date, 0, len(events))
	for _, e := range events {
		switch e.Category {
		case CategoryJobs:
			jobs = append(jobs, e.Date)
		case CategoryDealflow:
			dealflow = append(dealflow, e.Date)
		default:
			continue
		}
		all = append(all, e.Date)
	}
	return Streaks{
		Jobs:     ComputeStreak(jobs, today),
		Dealflow: ComputeStreak(dealflow, today),
		Combined: ComputeStreak(all, today),
	}
}

// WeekStart returns the Monday on or before d.
func WeekStart(d civil.Date) civil.Date {
	wd := d.In(time.UTC).Weekday()
	offset := (int(wd) + 6) % 7 // Monday=0 ... Sunday=6
	return d.AddDays(-offset)
}

// CountSince counts events of category dated within the last days days,
// inclusive of both today and today-days.
func CountSince(events []ActivityEvent, category Category, today civil.Date, days int) int {
	from := today.AddDays(-days)
	n := 0
	for _, e := range events {
		if e.Category != category {
			continue
		}
		if e.Date.Before(from) || e.Date.After(today) {
			continue
		}
		n++
	}
	return n
}
