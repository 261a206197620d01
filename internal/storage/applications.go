package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/pursuit/internal/analytics"
)

const applicationSelect = `SELECT a.id, a.job_id, COALESCE(p.title, ''), COALESCE(p.company, ''), a.status,
	a.applied_date, a.notes, a.resume_version, a.cover_letter_path, a.last_contact_date, a.next_follow_up_date,
	a.interview_count, a.interview_notes, a.created_at, a.updated_at
	FROM applications a LEFT JOIN job_postings p ON p.id = a.job_id`

// CreateApplication inserts an application for an existing posting. When
// event is non-nil it is appended to the activity log in the same
// transaction, with SourceID defaulting to the new application's ID.
func (s *Store) CreateApplication(app Application, event *analytics.ActivityEvent) (Application, error) {
	if app.ID == "" {
		app.ID = uuid.New().String()
	}
	now := time.Now().UTC().Truncate(time.Second)
	app.CreatedAt, app.UpdatedAt = now, now

	err := s.inTx(func(tx *sql.Tx) error {
		if err := requireRow(tx, `SELECT 1 FROM job_postings WHERE id = ?`, app.JobID); err != nil {
			return fmt.Errorf("job posting %s: %w", app.JobID, err)
		}
		_, err := tx.Exec(`
			INSERT INTO applications (id, job_id, status, applied_date, notes, resume_version, cover_letter_path,
				last_contact_date, next_follow_up_date, interview_count, interview_notes, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			app.ID, app.JobID, string(app.Status), nullDate(app.AppliedDate), app.Notes, app.ResumeVersion,
			app.CoverLetterPath, nullDate(app.LastContactDate), nullDate(app.NextFollowUpDate),
			app.InterviewCount, app.InterviewNotes, formatTime(now), formatTime(now),
		)
		if err != nil {
			return fmt.Errorf("inserting application: %w", err)
		}
		return appendEvent(tx, event, app.ID)
	})
	if err != nil {
		return Application{}, err
	}
	return s.GetApplication(app.ID)
}

func (s *Store) GetApplication(id string) (Application, error) {
	a, err := scanApplication(s.db.QueryRow(applicationSelect+` WHERE a.id = ?`, id))
	if err == sql.ErrNoRows {
		return Application{}, ErrNotFound
	}
	return a, err
}

// ListApplications returns applications most recently updated first.
func (s *Store) ListApplications(f ApplicationFilter) ([]Application, error) {
	return listApplications(s.db, f)
}

// AllApplications returns every application.
func (s *Store) AllApplications() ([]Application, error) {
	return listApplications(s.db, ApplicationFilter{})
}

func listApplications(q querier, f ApplicationFilter) ([]Application, error) {
	query := applicationSelect + ` WHERE 1=1`
	var args []any
	if f.Status != "" {
		query += ` AND a.status = ?`
		args = append(args, string(f.Status))
	}
	query += ` ORDER BY a.updated_at DESC, a.id ASC`
	query, args = page(query, args, f.Limit, f.Offset)

	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []Application{}
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, a)
	}
	return results, rows.Err()
}

// UpdateApplication overwrites the mutable fields of app. When event is
// non-nil it is appended to the activity log in the same transaction.
func (s *Store) UpdateApplication(app Application, event *analytics.ActivityEvent) (Application, error) {
	err := s.inTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			UPDATE applications SET status = ?, applied_date = ?, notes = ?, resume_version = ?, cover_letter_path = ?,
				last_contact_date = ?, next_follow_up_date = ?, interview_count = ?, interview_notes = ?, updated_at = ?
			WHERE id = ?`,
			string(app.Status), nullDate(app.AppliedDate), app.Notes, app.ResumeVersion, app.CoverLetterPath,
			nullDate(app.LastContactDate), nullDate(app.NextFollowUpDate), app.InterviewCount, app.InterviewNotes,
			formatTime(time.Now()), app.ID,
		)
		if err != nil {
			return fmt.Errorf("updating application: %w", err)
		}
		if err := checkAffected(res); err != nil {
			return err
		}
		return appendEvent(tx, event, app.ID)
	})
	if err != nil {
		return Application{}, err
	}
	return s.GetApplication(app.ID)
}

// DeleteApplication removes an application. Activity it generated stays in
// the log.
func (s *Store) DeleteApplication(id string) error {
	res, err := s.db.Exec(`DELETE FROM applications WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

func scanApplication(row rowScanner) (Application, error) {
	var (
		a                                  Application
		status                             string
		applied, lastContact, nextFollowUp sql.NullString
		createdAt, updatedAt               string
	)
	err := row.Scan(&a.ID, &a.JobID, &a.JobTitle, &a.Company, &status,
		&applied, &a.Notes, &a.ResumeVersion, &a.CoverLetterPath, &lastContact, &nextFollowUp,
		&a.InterviewCount, &a.InterviewNotes, &createdAt, &updatedAt)
	if err != nil {
		return Application{}, err
	}
	a.Status = analytics.ApplicationStatus(status)
	if a.AppliedDate, err = parseNullDate("applied_date", applied); err != nil {
		return Application{}, err
	}
	if a.LastContactDate, err = parseNullDate("last_contact_date", lastContact); err != nil {
		return Application{}, err
	}
	if a.NextFollowUpDate, err = parseNullDate("next_follow_up_date", nextFollowUp); err != nil {
		return Application{}, err
	}
	if a.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return Application{}, err
	}
	if a.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return Application{}, err
	}
	return a, nil
}

// requireRow returns ErrNotFound when query selects nothing.
func requireRow(q querier, query string, args ...any) error {
	var one int
	err := q.QueryRow(query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	return err
}

func appendEvent(q querier, event *analytics.ActivityEvent, sourceID string) error {
	if event == nil {
		return nil
	}
	e := *event
	if e.SourceID == "" {
		e.SourceID = sourceID
	}
	return appendActivity(q, e)
}
