package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/pursuit/internal/dedup"
)

const startupColumns = `id, name, website, description, funding_stage, industry, tags,
	source, source_url, source_id, discovered_date, is_active`

func (s *Store) SaveStartup(st Startup) (Startup, error) {
	if st.ID == "" {
		st.ID = uuid.New().String()
	}
	if st.DiscoveredDate.IsZero() {
		st.DiscoveredDate = time.Now().UTC()
	}
	if st.Tags == nil {
		st.Tags = []string{}
	}
	_, err := s.db.Exec(`
		INSERT INTO startups (`+startupColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		st.ID, st.Name, st.Website, st.Description, st.FundingStage, st.Industry, encodeTags(st.Tags),
		st.Source, st.SourceURL, st.SourceID, formatTime(st.DiscoveredDate), boolInt(st.IsActive),
	)
	if err != nil {
		return Startup{}, fmt.Errorf("saving startup: %w", err)
	}
	return st, nil
}

func (s *Store) GetStartup(id string) (Startup, error) {
	st, err := scanStartup(s.db.QueryRow(`SELECT `+startupColumns+` FROM startups WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return Startup{}, ErrNotFound
	}
	return st, err
}

func (s *Store) ListStartups(f StartupFilter) ([]Startup, error) {
	query := `SELECT ` + startupColumns + ` FROM startups WHERE 1=1`
	var args []any
	if f.Industry != "" {
		query += ` AND industry LIKE ?`
		args = append(args, "%"+f.Industry+"%")
	}
	if f.FundingStage != "" {
		query += ` AND funding_stage = ?`
		args = append(args, f.FundingStage)
	}
	if f.Source != "" {
		query += ` AND source = ?`
		args = append(args, f.Source)
	}
	if f.Search != "" {
		query, args = likeAny(query, args, f.Search, "name", "description")
	}
	if f.ActiveOnly {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY discovered_date DESC, id ASC`
	query, args = page(query, args, f.Limit, f.Offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []Startup{}
	for rows.Next() {
		st, err := scanStartup(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, st)
	}
	return results, rows.Err()
}

func (s *Store) UpdateStartup(id string, patch StartupPatch) (Startup, error) {
	if err := requireText("name", patch.Name); err != nil {
		return Startup{}, err
	}
	var a assignments
	a.setString("name", trimmed(patch.Name))
	a.setString("website", patch.Website)
	a.setString("description", patch.Description)
	a.setString("funding_stage", patch.FundingStage)
	a.setString("industry", patch.Industry)
	a.setTags(patch.Tags)
	a.setBool("is_active", patch.IsActive)
	if err := a.update(s.db, "startups", id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Startup{}, err
		}
		return Startup{}, fmt.Errorf("updating startup: %w", err)
	}
	return s.GetStartup(id)
}

// DeleteStartup removes a startup and its dealflow entries.
func (s *Store) DeleteStartup(id string) error {
	return s.inTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM dealflow_entries WHERE startup_id = ?`, id); err != nil {
			return fmt.Errorf("deleting dealflow entries of startup: %w", err)
		}
		res, err := tx.Exec(`DELETE FROM startups WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("deleting startup: %w", err)
		}
		return checkAffected(res)
	})
}

// DedupRecordsForStartups returns stored startups for the duplicate
// detector. A startup known under both a website and a distinct source URL
// yields one record per URL, sharing the same ID.
func (s *Store) DedupRecordsForStartups() ([]dedup.Record, error) {
	rows, err := s.db.Query(`SELECT id, name, website, source_url, discovered_date FROM startups ORDER BY discovered_date ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []dedup.Record
	for rows.Next() {
		var id, name, website, sourceURL, seenAt string
		if err := rows.Scan(&id, &name, &website, &sourceURL, &seenAt); err != nil {
			return nil, err
		}
		t, err := parseTime("discovered_date", seenAt)
		if err != nil {
			return nil, err
		}
		url := website
		if url == "" {
			url = sourceURL
		}
		records = append(records, dedup.Record{ID: id, Title: name, URL: url, SeenAt: t})
		if website != "" && sourceURL != "" && dedup.NormalizeURL(sourceURL) != dedup.NormalizeURL(website) {
			records = append(records, dedup.Record{ID: id, Title: name, URL: sourceURL, SeenAt: t})
		}
	}
	return records, rows.Err()
}

func scanStartup(row rowScanner) (Startup, error) {
	var (
		st         Startup
		tags       string
		discovered string
		isActive   int
	)
	err := row.Scan(&st.ID, &st.Name, &st.Website, &st.Description, &st.FundingStage, &st.Industry, &tags,
		&st.Source, &st.SourceURL, &st.SourceID, &discovered, &isActive)
	if err != nil {
		return Startup{}, err
	}
	if st.DiscoveredDate, err = parseTime("discovered_date", discovered); err != nil {
		return Startup{}, err
	}
	st.Tags = decodeTags(tags)
	st.IsActive = isActive == 1
	return st, nil
}
