package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/pursuit/internal/dedup"
)

const topCompanies = 10

const postingColumns = `id, title, company, location, job_type, seniority, description, salary,
	source, source_url, source_job_id, posted_date, scraped_at, is_active, tags`

// SavePosting inserts a posting and returns it with its ID and scrape time
// filled in. A posting whose source URL is already stored yields ErrDuplicate.
func (s *Store) SavePosting(p Posting) (Posting, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.ScrapedAt.IsZero() {
		p.ScrapedAt = time.Now().UTC()
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	_, err := s.db.Exec(`
		INSERT INTO job_postings (`+postingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Title, p.Company, p.Location, p.JobType, p.Seniority, p.Description, p.Salary,
		p.Source, p.SourceURL, p.SourceJobID, nullDate(p.PostedDate), formatTime(p.ScrapedAt),
		boolInt(p.IsActive), encodeTags(p.Tags),
	)
	if isUniqueViolation(err) {
		return Posting{}, fmt.Errorf("posting %s: %w", p.SourceURL, ErrDuplicate)
	}
	if err != nil {
		return Posting{}, fmt.Errorf("saving posting: %w", err)
	}
	return p, nil
}

func (s *Store) GetPosting(id string) (Posting, error) {
	p, err := scanPosting(s.db.QueryRow(`SELECT `+postingColumns+` FROM job_postings WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return Posting{}, ErrNotFound
	}
	return p, err
}

// ListPostings returns postings newest first.
func (s *Store) ListPostings(f PostingFilter) ([]Posting, error) {
	query := `SELECT ` + postingColumns + ` FROM job_postings WHERE 1=1`
	var args []any
	if f.Company != "" {
		query += ` AND company LIKE ?`
		args = append(args, "%"+f.Company+"%")
	}
	if f.Source != "" {
		query += ` AND source = ?`
		args = append(args, f.Source)
	}
	if f.Search != "" {
		query, args = likeAny(query, args, f.Search, "title", "company", "description")
	}
	if f.ActiveOnly {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY scraped_at DESC, id ASC`
	query, args = page(query, args, f.Limit, f.Offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []Posting{}
	for rows.Next() {
		p, err := scanPosting(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, p)
	}
	return results, rows.Err()
}

// UpdatePosting applies patch to a posting and returns the stored result.
func (s *Store) UpdatePosting(id string, patch PostingPatch) (Posting, error) {
	if err := requireText("title", patch.Title); err != nil {
		return Posting{}, err
	}
	if err := requireText("company", patch.Company); err != nil {
		return Posting{}, err
	}
	var a assignments
	a.setString("title", trimmed(patch.Title))
	a.setString("company", trimmed(patch.Company))
	a.setString("location", patch.Location)
	a.setString("job_type", patch.JobType)
	a.setString("seniority", patch.Seniority)
	a.setString("description", patch.Description)
	a.setString("salary", patch.Salary)
	a.setTags(patch.Tags)
	a.setBool("is_active", patch.IsActive)
	if err := a.update(s.db, "job_postings", id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Posting{}, err
		}
		return Posting{}, fmt.Errorf("updating posting: %w", err)
	}
	return s.GetPosting(id)
}

// DeletePosting removes a posting together with the applications made to
// it. Activity those applications generated stays in the log.
func (s *Store) DeletePosting(id string) error {
	return s.inTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM applications WHERE job_id = ?`, id); err != nil {
			return fmt.Errorf("deleting applications of posting: %w", err)
		}
		res, err := tx.Exec(`DELETE FROM job_postings WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("deleting posting: %w", err)
		}
		return checkAffected(res)
	})
}

// PostingStats counts stored postings. Postings scraped at or after since
// count as recent.
func (s *Store) PostingStats(since time.Time) (PostingStats, error) {
	stats := PostingStats{BySource: map[string]int{}, TopCompanies: []CompanyCount{}}
	err := s.db.QueryRow(`
		SELECT COUNT(*),
			COALESCE(SUM(is_active), 0),
			COALESCE(SUM(CASE WHEN scraped_at >= ? THEN 1 ELSE 0 END), 0)
		FROM job_postings`, formatTime(since),
	).Scan(&stats.Total, &stats.Active, &stats.Recent)
	if err != nil {
		return PostingStats{}, fmt.Errorf("counting postings: %w", err)
	}

	rows, err := s.db.Query(`SELECT source, COUNT(*) FROM job_postings GROUP BY source`)
	if err != nil {
		return PostingStats{}, fmt.Errorf("counting postings by source: %w", err)
	}
	for rows.Next() {
		var source string
		var n int
		if err := rows.Scan(&source, &n); err != nil {
			rows.Close()
			return PostingStats{}, err
		}
		stats.BySource[source] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return PostingStats{}, err
	}

	rows, err = s.db.Query(`
		SELECT company, COUNT(*) AS n FROM job_postings
		WHERE is_active = 1
		GROUP BY company
		ORDER BY n DESC, company ASC
		LIMIT ?`, topCompanies)
	if err != nil {
		return PostingStats{}, fmt.Errorf("ranking companies: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c CompanyCount
		if err := rows.Scan(&c.Company, &c.Count); err != nil {
			return PostingStats{}, err
		}
		stats.TopCompanies = append(stats.TopCompanies, c)
	}
	return stats, rows.Err()
}

// DedupRecordsForPostings returns every stored posting in the shape the
// duplicate detector compares against.
func (s *Store) DedupRecordsForPostings() ([]dedup.Record, error) {
	rows, err := s.db.Query(`SELECT id, title, company, source_url, scraped_at FROM job_postings ORDER BY scraped_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []dedup.Record
	for rows.Next() {
		var r dedup.Record
		var seenAt string
		if err := rows.Scan(&r.ID, &r.Title, &r.Company, &r.URL, &seenAt); err != nil {
			return nil, err
		}
		if r.SeenAt, err = parseTime("scraped_at", seenAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func scanPosting(row rowScanner) (Posting, error) {
	var (
		p          Posting
		postedDate sql.NullString
		scrapedAt  string
		isActive   int
		tags       string
	)
	err := row.Scan(&p.ID, &p.Title, &p.Company, &p.Location, &p.JobType, &p.Seniority, &p.Description, &p.Salary,
		&p.Source, &p.SourceURL, &p.SourceJobID, &postedDate, &scrapedAt, &isActive, &tags)
	if err != nil {
		return Posting{}, err
	}
	if p.PostedDate, err = parseNullDate("posted_date", postedDate); err != nil {
		return Posting{}, err
	}
	if p.ScrapedAt, err = parseTime("scraped_at", scrapedAt); err != nil {
		return Posting{}, err
	}
	p.IsActive = isActive == 1
	p.Tags = decodeTags(tags)
	return p, nil
}
