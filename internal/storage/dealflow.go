package storage

import (
	"database/sql"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/kalambet/pursuit/internal/analytics"
)

const dealflowSelect = `SELECT d.id, d.startup_id, COALESCE(s.name, ''), d.status, d.first_contact_date, d.last_contact_date,
	d.emails_sent, d.meetings_held, d.notes, d.research_summary, d.outcome, d.outcome_reason, d.intro_made_to,
	d.intro_date, d.created_at, d.updated_at
	FROM dealflow_entries d LEFT JOIN startups s ON s.id = d.startup_id`

// CreateDealflowEntry inserts an entry for an existing startup and, when
// event is non-nil, appends it to the activity log in the same transaction.
func (s *Store) CreateDealflowEntry(e DealflowEntry, event *analytics.ActivityEvent) (DealflowEntry, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	now := formatTime(time.Now())

	err := s.inTx(func(tx *sql.Tx) error {
		if err := requireRow(tx, `SELECT 1 FROM startups WHERE id = ?`, e.StartupID); err != nil {
			return fmt.Errorf("startup %s: %w", e.StartupID, err)
		}
		_, err := tx.Exec(`
			INSERT INTO dealflow_entries (id, startup_id, status, first_contact_date, last_contact_date, emails_sent,
				meetings_held, notes, research_summary, outcome, outcome_reason, intro_made_to, intro_date, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.StartupID, string(e.Status), nullDate(e.FirstContactDate), nullDate(e.LastContactDate),
			e.EmailsSent, e.MeetingsHeld, e.Notes, e.ResearchSummary, e.Outcome, e.OutcomeReason, e.IntroMadeTo,
			nullDate(e.IntroDate), now, now,
		)
		if err != nil {
			return fmt.Errorf("inserting dealflow entry: %w", err)
		}
		return appendEvent(tx, event, e.ID)
	})
	if err != nil {
		return DealflowEntry{}, err
	}
	return s.GetDealflowEntry(e.ID)
}

func (s *Store) GetDealflowEntry(id string) (DealflowEntry, error) {
	e, err := scanDealflowEntry(s.db.QueryRow(dealflowSelect+` WHERE d.id = ?`, id))
	if err == sql.ErrNoRows {
		return DealflowEntry{}, ErrNotFound
	}
	return e, err
}

func (s *Store) ListDealflowEntries(f DealflowFilter) ([]DealflowEntry, error) {
	return listDealflowEntries(s.db, f)
}

func (s *Store) AllDealflowEntries() ([]DealflowEntry, error) {
	return listDealflowEntries(s.db, DealflowFilter{})
}

func listDealflowEntries(q querier, f DealflowFilter) ([]DealflowEntry, error) {
	query := dealflowSelect + ` WHERE 1=1`
	var args []any
	if f.Status != "" {
		query += ` AND d.status = ?`
		args = append(args, string(f.Status))
	}
	if f.StartupID != "" {
		query += ` AND d.startup_id = ?`
		args = append(args, f.StartupID)
	}
	query += ` ORDER BY d.updated_at DESC, d.id ASC`
	query, args = page(query, args, f.Limit, f.Offset)

	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []DealflowEntry{}
	for rows.Next() {
		e, err := scanDealflowEntry(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, e)
	}
	return results, rows.Err()
}

// UpdateDealflowEntry overwrites the mutable fields of e.
func (s *Store) UpdateDealflowEntry(e DealflowEntry) (DealflowEntry, error) {
	res, err := s.db.Exec(`
		UPDATE dealflow_entries SET status = ?, first_contact_date = ?, last_contact_date = ?, emails_sent = ?,
			meetings_held = ?, notes = ?, research_summary = ?, outcome = ?, outcome_reason = ?, intro_made_to = ?,
			intro_date = ?, updated_at = ?
		WHERE id = ?`,
		string(e.Status), nullDate(e.FirstContactDate), nullDate(e.LastContactDate), e.EmailsSent,
		e.MeetingsHeld, e.Notes, e.ResearchSummary, e.Outcome, e.OutcomeReason, e.IntroMadeTo,
		nullDate(e.IntroDate), formatTime(time.Now()), e.ID,
	)
	if err != nil {
		return DealflowEntry{}, fmt.Errorf("updating dealflow entry: %w", err)
	}
	if err := checkAffected(res); err != nil {
		return DealflowEntry{}, err
	}
	return s.GetDealflowEntry(e.ID)
}

// LogContact increments the email or meeting counter of an entry, stamps
// its contact dates with day and appends a dealflow activity event, all in
// one transaction.
func (s *Store) LogContact(id string, kind ContactKind, day civil.Date) (DealflowEntry, error) {
	var counter string
	switch kind {
	case ContactEmail:
		counter = "emails_sent"
	case ContactMeeting:
		counter = "meetings_held"
	default:
		return DealflowEntry{}, fmt.Errorf("unknown contact kind %q", kind)
	}

	err := s.inTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			UPDATE dealflow_entries SET `+counter+` = `+counter+` + 1,
				first_contact_date = COALESCE(first_contact_date, ?), last_contact_date = ?, updated_at = ?
			WHERE id = ?`,
			day.String(), day.String(), formatTime(time.Now()), id,
		)
		if err != nil {
			return fmt.Errorf("logging contact: %w", err)
		}
		if err := checkAffected(res); err != nil {
			return err
		}
		return appendActivity(tx, analytics.ActivityEvent{Category: analytics.CategoryDealflow, Date: day, SourceID: id})
	})
	if err != nil {
		return DealflowEntry{}, err
	}
	return s.GetDealflowEntry(id)
}

func (s *Store) DeleteDealflowEntry(id string) error {
	res, err := s.db.Exec(`DELETE FROM dealflow_entries WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

func scanDealflowEntry(row rowScanner) (DealflowEntry, error) {
	var (
		e                         DealflowEntry
		status                    string
		firstContact, lastContact sql.NullString
		introDate                 sql.NullString
		createdAt, updatedAt      string
	)
	err := row.Scan(&e.ID, &e.StartupID, &e.StartupName, &status, &firstContact, &lastContact,
		&e.EmailsSent, &e.MeetingsHeld, &e.Notes, &e.ResearchSummary, &e.Outcome, &e.OutcomeReason, &e.IntroMadeTo,
		&introDate, &createdAt, &updatedAt)
	if err != nil {
		return DealflowEntry{}, err
	}
	e.Status = analytics.DealflowStatus(status)
	if e.FirstContactDate, err = parseNullDate("first_contact_date", firstContact); err != nil {
		return DealflowEntry{}, err
	}
	if e.LastContactDate, err = parseNullDate("last_contact_date", lastContact); err != nil {
		return DealflowEntry{}, err
	}
	if e.IntroDate, err = parseNullDate("intro_date", introDate); err != nil {
		return DealflowEntry{}, err
	}
	if e.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return DealflowEntry{}, err
	}
	if e.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return DealflowEntry{}, err
	}
	return e, nil
}
