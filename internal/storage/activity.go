package storage

import (
	"database/sql"
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"github.com/kalambet/pursuit/internal/analytics"
)

// AppendActivity adds one event to the activity log. Events are never
// updated or deleted.
func (s *Store) AppendActivity(e analytics.ActivityEvent) error {
	return appendActivity(s.db, e)
}

func appendActivity(q querier, e analytics.ActivityEvent) error {
	_, err := q.Exec(`INSERT INTO activity_events (category, event_date, source_id, created_at) VALUES (?, ?, ?, ?)`,
		string(e.Category), e.Date.String(), e.SourceID, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("appending activity: %w", err)
	}
	return nil
}

// ActivityEvents returns the full log in insertion order.
func (s *Store) ActivityEvents() ([]analytics.ActivityEvent, error) {
	return activityEvents(s.db)
}

func activityEvents(q querier) ([]analytics.ActivityEvent, error) {
	rows, err := q.Query(`SELECT category, event_date, source_id FROM activity_events ORDER BY seq ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []analytics.ActivityEvent{}
	for rows.Next() {
		var e analytics.ActivityEvent
		var category, date string
		if err := rows.Scan(&category, &date, &e.SourceID); err != nil {
			return nil, err
		}
		e.Category = analytics.Category(category)
		if e.Date, err = civil.ParseDate(date); err != nil {
			return nil, fmt.Errorf("parsing event_date: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// SetWeeklyGoal stores the active goal for the goal's category, replacing
// the previous one.
func (s *Store) SetWeeklyGoal(g analytics.WeeklyGoal) error {
	_, err := s.db.Exec(`
		INSERT INTO weekly_goals (category, target, week_start, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(category) DO UPDATE SET target = excluded.target, week_start = excluded.week_start, updated_at = excluded.updated_at`,
		string(g.Category), g.Target, nullDate(g.WeekStart), formatTime(time.Now()),
	)
	return err
}

// WeeklyGoals returns the stored goals keyed by category. Categories without
// a stored goal are absent.
func (s *Store) WeeklyGoals() (map[analytics.Category]analytics.WeeklyGoal, error) {
	return weeklyGoals(s.db)
}

func weeklyGoals(q querier) (map[analytics.Category]analytics.WeeklyGoal, error) {
	rows, err := q.Query(`SELECT category, target, week_start FROM weekly_goals`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	goals := make(map[analytics.Category]analytics.WeeklyGoal)
	for rows.Next() {
		var g analytics.WeeklyGoal
		var category string
		var weekStart sql.NullString
		if err := rows.Scan(&category, &g.Target, &weekStart); err != nil {
			return nil, err
		}
		g.Category = analytics.Category(category)
		if g.WeekStart, err = parseNullDate("week_start", weekStart); err != nil {
			return nil, err
		}
		goals[g.Category] = g
	}
	return goals, rows.Err()
}
