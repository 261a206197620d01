package storage

import (
	"fmt"

	"github.com/google/uuid"
)

// SaveScrapeLog inserts or replaces a scrape log row, so a run can be logged
// as started and later rewritten as completed or failed.
func (s *Store) SaveScrapeLog(l ScrapeLog) (ScrapeLog, error) {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	_, err := s.db.Exec(`
		INSERT INTO scrape_logs (id, source, query, status, found, new_count, skipped, error, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET status = excluded.status, found = excluded.found, new_count = excluded.new_count,
			skipped = excluded.skipped, error = excluded.error, duration_ms = excluded.duration_ms`,
		l.ID, l.Source, l.Query, l.Status, l.Found, l.New, l.Skipped, l.Error, formatTime(l.StartedAt), l.DurationMS,
	)
	if err != nil {
		return ScrapeLog{}, fmt.Errorf("saving scrape log: %w", err)
	}
	return l, nil
}

// ListScrapeLogs returns the most recent runs first.
func (s *Store) ListScrapeLogs(limit int) ([]ScrapeLog, error) {
	query, args := page(`SELECT id, source, query, status, found, new_count, skipped, error, started_at, duration_ms
		FROM scrape_logs ORDER BY started_at DESC, id ASC`, nil, limit, 0)
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []ScrapeLog{}
	for rows.Next() {
		var l ScrapeLog
		var startedAt string
		if err := rows.Scan(&l.ID, &l.Source, &l.Query, &l.Status, &l.Found, &l.New, &l.Skipped, &l.Error, &startedAt, &l.DurationMS); err != nil {
			return nil, err
		}
		if l.StartedAt, err = parseTime("started_at", startedAt); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
