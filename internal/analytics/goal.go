package analytics

import (
	"math"

	"cloud.google.com/go/civil"
)

// WeeklyProgress is the state of one weekly goal.
type WeeklyProgress struct {
	Current   int        `json:"current"`
	Target    int        `json:"target"`
	Progress  float64    `json:"progress"`
	WeekStart civil.Date `json:"week_start"`
}

// ComputeWeeklyProgress counts the events of the goal's category inside the
// goal's week. A zero goal.WeekStart selects the week containing today.
// Progress is capped at 1 and is 0 for a zero target.
func ComputeWeeklyProgress(events []ActivityEvent, goal WeeklyGoal, today civil.Date) WeeklyProgress {
	start := goal.WeekStart
	if start.IsZero() {
		start = WeekStart(today)
	}
	end := start.AddDays(7)

	current := 0
	for _, e := range events {
		if e.Category != goal.Category {
			continue
		}
		if e.Date.Before(start) || !e.Date.Before(end) {
			continue
		}
		current++
	}

	wp := WeeklyProgress{Current: current, Target: goal.Target, WeekStart: start}
	if goal.Target > 0 {
		wp.Progress = math.Min(float64(current)/float64(goal.Target), 1)
	}
	return wp
}

// Round3 rounds a ratio to three decimals for display.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
