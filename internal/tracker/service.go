// Package tracker applies validation and the activity-counting rules to
// writes of applications, dealflow entries and weekly goals.
package tracker

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/civil"

	"github.com/kalambet/pursuit/internal/analytics"
	"github.com/kalambet/pursuit/internal/storage"
)

// Store defines the storage operations the Service needs.
// Implemented by storage.Store.
type Store interface {
	CreateApplication(app storage.Application, event *analytics.ActivityEvent) (storage.Application, error)
	GetApplication(id string) (storage.Application, error)
	UpdateApplication(app storage.Application, event *analytics.ActivityEvent) (storage.Application, error)
	DeleteApplication(id string) error

	CreateDealflowEntry(e storage.DealflowEntry, event *analytics.ActivityEvent) (storage.DealflowEntry, error)
	GetDealflowEntry(id string) (storage.DealflowEntry, error)
	UpdateDealflowEntry(e storage.DealflowEntry) (storage.DealflowEntry, error)
	LogContact(id string, kind storage.ContactKind, day civil.Date) (storage.DealflowEntry, error)
	DeleteDealflowEntry(id string) error

	SetWeeklyGoal(g analytics.WeeklyGoal) error
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Service is the single write path for tracked records.
type Service struct {
	store  Store
	clock  Clock
	logger *slog.Logger

	mu       sync.Mutex
	onChange []func()
}

func NewService(store Store) *Service {
	return NewServiceWithClock(store, realClock{})
}

// NewServiceWithClock creates a Service with a custom clock (for testing).
func NewServiceWithClock(store Store, clock Clock) *Service {
	return &Service{
		store:  store,
		clock:  clock,
		logger: slog.Default(),
	}
}

// OnChange registers fn to run after every successful write.
func (s *Service) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

func (s *Service) changed() {
	s.mu.Lock()
	fns := append([]func(){}, s.onChange...)
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Today is the current calendar date in the local time zone.
func (s *Service) Today() civil.Date {
	return civil.DateOf(s.clock.Now())
}

// --- Applications ---

// ApplicationInput carries the fields accepted when creating an application.
// Dates are YYYY-MM-DD strings; empty means unset.
type ApplicationInput struct {
	JobID            string `json:"job_id"`
	Status           string `json:"status,omitempty"`
	AppliedDate      string `json:"applied_date,omitempty"`
	Notes            string `json:"notes,omitempty"`
	ResumeVersion    string `json:"resume_version,omitempty"`
	CoverLetterPath  string `json:"cover_letter_path,omitempty"`
	NextFollowUpDate string `json:"next_follow_up_date,omitempty"`
	InterviewCount   int    `json:"interview_count,omitempty"`
	InterviewNotes   string `json:"interview_notes,omitempty"`
}

// ApplicationPatch carries a partial update. Nil fields are left as they
// are; an empty date string clears the date.
type ApplicationPatch struct {
	Status           *string `json:"status,omitempty"`
	AppliedDate      *string `json:"applied_date,omitempty"`
	Notes            *string `json:"notes,omitempty"`
	ResumeVersion    *string `json:"resume_version,omitempty"`
	CoverLetterPath  *string `json:"cover_letter_path,omitempty"`
	LastContactDate  *string `json:"last_contact_date,omitempty"`
	NextFollowUpDate *string `json:"next_follow_up_date,omitempty"`
	InterviewCount   *int    `json:"interview_count,omitempty"`
	InterviewNotes   *string `json:"interview_notes,omitempty"`
}

// CreateApplication validates in and stores a new application. Anything
// past "saved" counts as a jobs activity on its applied date, which
// defaults to today.
func (s *Service) CreateApplication(in ApplicationInput) (storage.Application, error) {
	if strings.TrimSpace(in.JobID) == "" {
		return storage.Application{}, &analytics.ValidationError{Field: "job_id", Reason: "is required"}
	}
	app := storage.Application{
		JobID:           strings.TrimSpace(in.JobID),
		Status:          analytics.StatusSaved,
		Notes:           in.Notes,
		ResumeVersion:   in.ResumeVersion,
		CoverLetterPath: in.CoverLetterPath,
		InterviewCount:  in.InterviewCount,
		InterviewNotes:  in.InterviewNotes,
	}
	if in.Status != "" {
		st, err := analytics.ParseApplicationStatus(in.Status)
		if err != nil {
			return storage.Application{}, err
		}
		app.Status = st
	}
	var err error
	if app.AppliedDate, err = optionalDate("applied_date", in.AppliedDate); err != nil {
		return storage.Application{}, err
	}
	if app.NextFollowUpDate, err = optionalDate("next_follow_up_date", in.NextFollowUpDate); err != nil {
		return storage.Application{}, err
	}
	if err := app.Analytics().Validate(); err != nil {
		return storage.Application{}, err
	}

	var event *analytics.ActivityEvent
	if app.Status != analytics.StatusSaved {
		event = s.appliedEvent(&app)
	}

	created, err := s.store.CreateApplication(app, event)
	if err != nil {
		return storage.Application{}, fmt.Errorf("creating application: %w", err)
	}
	s.logger.Debug("application created", "id", created.ID, "status", created.Status, "activity", event != nil)
	s.changed()
	return created, nil
}

// UpdateApplication applies patch to an application. Moving out of "saved"
// counts as a jobs activity.
func (s *Service) UpdateApplication(id string, patch ApplicationPatch) (storage.Application, error) {
	app, err := s.store.GetApplication(id)
	if err != nil {
		return storage.Application{}, fmt.Errorf("loading application %s: %w", id, err)
	}
	prev := app.Status

	if patch.Status != nil {
		st, err := analytics.ParseApplicationStatus(*patch.Status)
		if err != nil {
			return storage.Application{}, err
		}
		app.Status = st
	}
	if patch.AppliedDate != nil {
		if app.AppliedDate, err = optionalDate("applied_date", *patch.AppliedDate); err != nil {
			return storage.Application{}, err
		}
	}
	if patch.LastContactDate != nil {
		if app.LastContactDate, err = optionalDate("last_contact_date", *patch.LastContactDate); err != nil {
			return storage.Application{}, err
		}
	}
	if patch.NextFollowUpDate != nil {
		if app.NextFollowUpDate, err = optionalDate("next_follow_up_date", *patch.NextFollowUpDate); err != nil {
			return storage.Application{}, err
		}
	}
	setString(&app.Notes, patch.Notes)
	setString(&app.ResumeVersion, patch.ResumeVersion)
	setString(&app.CoverLetterPath, patch.CoverLetterPath)
	setString(&app.InterviewNotes, patch.InterviewNotes)
	if patch.InterviewCount != nil {
		app.InterviewCount = *patch.InterviewCount
	}
	if err := app.Analytics().Validate(); err != nil {
		return storage.Application{}, err
	}

	var event *analytics.ActivityEvent
	if prev == analytics.StatusSaved && app.Status != analytics.StatusSaved {
		event = s.appliedEvent(&app)
	}

	updated, err := s.store.UpdateApplication(app, event)
	if err != nil {
		return storage.Application{}, fmt.Errorf("updating application %s: %w", id, err)
	}
	s.changed()
	return updated, nil
}

func (s *Service) DeleteApplication(id string) error {
	if err := s.store.DeleteApplication(id); err != nil {
		return fmt.Errorf("deleting application %s: %w", id, err)
	}
	s.changed()
	return nil
}

// appliedEvent stamps a missing applied date with today and returns the
// jobs event dated on it.
func (s *Service) appliedEvent(app *storage.Application) *analytics.ActivityEvent {
	if app.AppliedDate.IsZero() {
		app.AppliedDate = s.Today()
	}
	return &analytics.ActivityEvent{Category: analytics.CategoryJobs, Date: app.AppliedDate, SourceID: app.ID}
}

// --- Dealflow ---

type DealflowInput struct {
	StartupID       string `json:"startup_id"`
	Status          string `json:"status,omitempty"`
	Notes           string `json:"notes,omitempty"`
	ResearchSummary string `json:"research_summary,omitempty"`
	IntroMadeTo     string `json:"intro_made_to,omitempty"`
	IntroDate       string `json:"intro_date,omitempty"`
}

type DealflowPatch struct {
	Status          *string `json:"status,omitempty"`
	EmailsSent      *int    `json:"emails_sent,omitempty"`
	MeetingsHeld    *int    `json:"meetings_held,omitempty"`
	Notes           *string `json:"notes,omitempty"`
	ResearchSummary *string `json:"research_summary,omitempty"`
	Outcome         *string `json:"outcome,omitempty"`
	OutcomeReason   *string `json:"outcome_reason,omitempty"`
	IntroMadeTo     *string `json:"intro_made_to,omitempty"`
	IntroDate       *string `json:"intro_date,omitempty"`
}

// CreateDealflowEntry stores a new pipeline entry. Every new entry counts as
// a dealflow activity today.
func (s *Service) CreateDealflowEntry(in DealflowInput) (storage.DealflowEntry, error) {
	if strings.TrimSpace(in.StartupID) == "" {
		return storage.DealflowEntry{}, &analytics.ValidationError{Field: "startup_id", Reason: "is required"}
	}
	e := storage.DealflowEntry{
		StartupID:       strings.TrimSpace(in.StartupID),
		Status:          analytics.StageSourced,
		Notes:           in.Notes,
		ResearchSummary: in.ResearchSummary,
		IntroMadeTo:     in.IntroMadeTo,
	}
	if in.Status != "" {
		st, err := analytics.ParseDealflowStatus(in.Status)
		if err != nil {
			return storage.DealflowEntry{}, err
		}
		e.Status = st
	}
	var err error
	if e.IntroDate, err = optionalDate("intro_date", in.IntroDate); err != nil {
		return storage.DealflowEntry{}, err
	}

	event := &analytics.ActivityEvent{Category: analytics.CategoryDealflow, Date: s.Today()}
	created, err := s.store.CreateDealflowEntry(e, event)
	if err != nil {
		return storage.DealflowEntry{}, fmt.Errorf("creating dealflow entry: %w", err)
	}
	s.logger.Debug("dealflow entry created", "id", created.ID, "status", created.Status)
	s.changed()
	return created, nil
}

func (s *Service) UpdateDealflowEntry(id string, patch DealflowPatch) (storage.DealflowEntry, error) {
	e, err := s.store.GetDealflowEntry(id)
	if err != nil {
		return storage.DealflowEntry{}, fmt.Errorf("loading dealflow entry %s: %w", id, err)
	}

	if patch.Status != nil {
		st, err := analytics.ParseDealflowStatus(*patch.Status)
		if err != nil {
			return storage.DealflowEntry{}, err
		}
		e.Status = st
	}
	if patch.EmailsSent != nil {
		e.EmailsSent = *patch.EmailsSent
	}
	if patch.MeetingsHeld != nil {
		e.MeetingsHeld = *patch.MeetingsHeld
	}
	if patch.IntroDate != nil {
		if e.IntroDate, err = optionalDate("intro_date", *patch.IntroDate); err != nil {
			return storage.DealflowEntry{}, err
		}
	}
	setString(&e.Notes, patch.Notes)
	setString(&e.ResearchSummary, patch.ResearchSummary)
	setString(&e.Outcome, patch.Outcome)
	setString(&e.OutcomeReason, patch.OutcomeReason)
	setString(&e.IntroMadeTo, patch.IntroMadeTo)
	if err := e.Analytics().Validate(); err != nil {
		return storage.DealflowEntry{}, err
	}

	updated, err := s.store.UpdateDealflowEntry(e)
	if err != nil {
		return storage.DealflowEntry{}, fmt.Errorf("updating dealflow entry %s: %w", id, err)
	}
	s.changed()
	return updated, nil
}

// LogContact records an email or meeting with a startup today.
func (s *Service) LogContact(id, kind string) (storage.DealflowEntry, error) {
	k := storage.ContactKind(strings.ToLower(strings.TrimSpace(kind)))
	if k != storage.ContactEmail && k != storage.ContactMeeting {
		return storage.DealflowEntry{}, &analytics.ValidationError{Field: "contact_type", Reason: fmt.Sprintf("must be email or meeting, got %q", kind)}
	}
	e, err := s.store.LogContact(id, k, s.Today())
	if err != nil {
		return storage.DealflowEntry{}, fmt.Errorf("logging contact for %s: %w", id, err)
	}
	s.logger.Debug("contact logged", "id", id, "kind", k)
	s.changed()
	return e, nil
}

func (s *Service) DeleteDealflowEntry(id string) error {
	if err := s.store.DeleteDealflowEntry(id); err != nil {
		return fmt.Errorf("deleting dealflow entry %s: %w", id, err)
	}
	s.changed()
	return nil
}

// --- Goals ---

// SetWeeklyGoal replaces the weekly target of a category.
func (s *Service) SetWeeklyGoal(category string, target int) (analytics.WeeklyGoal, error) {
	c, err := analytics.ParseCategory(category)
	if err != nil {
		return analytics.WeeklyGoal{}, err
	}
	g := analytics.WeeklyGoal{Category: c, Target: target}
	if err := g.Validate(); err != nil {
		return analytics.WeeklyGoal{}, err
	}
	if err := s.store.SetWeeklyGoal(g); err != nil {
		return analytics.WeeklyGoal{}, fmt.Errorf("saving goal: %w", err)
	}
	s.changed()
	return g, nil
}

func optionalDate(field, v string) (civil.Date, error) {
	if strings.TrimSpace(v) == "" {
		return civil.Date{}, nil
	}
	d, err := analytics.ParseDate(v)
	if err != nil {
		return civil.Date{}, &analytics.ValidationError{Field: field, Reason: fmt.Sprintf("%q is not a YYYY-MM-DD date", v)}
	}
	return d, nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
