package storage

import (
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/kalambet/pursuit/internal/analytics"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert collides with a unique source URL.
var ErrDuplicate = errors.New("duplicate record")

// Posting is a scraped or manually added job posting.
type Posting struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Company     string     `json:"company"`
	Location    string     `json:"location,omitempty"`
	JobType     string     `json:"job_type,omitempty"`
	Seniority   string     `json:"seniority,omitempty"`
	Description string     `json:"description,omitempty"`
	Salary      string     `json:"salary,omitempty"`
	Source      string     `json:"source"`
	SourceURL   string     `json:"source_url"`
	SourceJobID string     `json:"source_job_id,omitempty"`
	PostedDate  civil.Date `json:"posted_date,omitzero"`
	ScrapedAt   time.Time  `json:"scraped_at"`
	IsActive    bool       `json:"is_active"`
	Tags        []string   `json:"tags"`
}

// Startup is a company discovered for the dealflow pipeline.
type Startup struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Website        string    `json:"website,omitempty"`
	Description    string    `json:"description,omitempty"`
	FundingStage   string    `json:"funding_stage,omitempty"`
	Industry       string    `json:"industry,omitempty"`
	Tags           []string  `json:"tags"`
	Source         string    `json:"source"`
	SourceURL      string    `json:"source_url,omitempty"`
	SourceID       string    `json:"source_id,omitempty"`
	DiscoveredDate time.Time `json:"discovered_date"`
	IsActive       bool      `json:"is_active"`
}

// Application tracks a job application. JobTitle and Company are read from
// the joined posting and ignored on write.
type Application struct {
	ID               string                      `json:"id"`
	JobID            string                      `json:"job_id"`
	JobTitle         string                      `json:"job_title,omitempty"`
	Company          string                      `json:"company,omitempty"`
	Status           analytics.ApplicationStatus `json:"status"`
	AppliedDate      civil.Date                  `json:"applied_date,omitzero"`
	Notes            string                      `json:"notes,omitempty"`
	ResumeVersion    string                      `json:"resume_version,omitempty"`
	CoverLetterPath  string                      `json:"cover_letter_path,omitempty"`
	LastContactDate  civil.Date                  `json:"last_contact_date,omitzero"`
	NextFollowUpDate civil.Date                  `json:"next_follow_up_date,omitzero"`
	InterviewCount   int                         `json:"interview_count"`
	InterviewNotes   string                      `json:"interview_notes,omitempty"`
	CreatedAt        time.Time                   `json:"created_at"`
	UpdatedAt        time.Time                   `json:"updated_at"`
}

// Analytics returns the fields the analytics engine reads.
func (a Application) Analytics() analytics.Application {
	return analytics.Application{ID: a.ID, JobID: a.JobID, Status: a.Status, InterviewCount: a.InterviewCount}
}

// DealflowEntry tracks outreach to one startup. StartupName is read from
// the joined startup and ignored on write.
type DealflowEntry struct {
	ID               string                   `json:"id"`
	StartupID        string                   `json:"startup_id"`
	StartupName      string                   `json:"startup_name,omitempty"`
	Status           analytics.DealflowStatus `json:"status"`
	FirstContactDate civil.Date               `json:"first_contact_date,omitzero"`
	LastContactDate  civil.Date               `json:"last_contact_date,omitzero"`
	EmailsSent       int                      `json:"emails_sent"`
	MeetingsHeld     int                      `json:"meetings_held"`
	Notes            string                   `json:"notes,omitempty"`
	ResearchSummary  string                   `json:"research_summary,omitempty"`
	Outcome          string                   `json:"outcome,omitempty"`
	OutcomeReason    string                   `json:"outcome_reason,omitempty"`
	IntroMadeTo      string                   `json:"intro_made_to,omitempty"`
	IntroDate        civil.Date               `json:"intro_date,omitzero"`
	CreatedAt        time.Time                `json:"created_at"`
	UpdatedAt        time.Time                `json:"updated_at"`
}

func (e DealflowEntry) Analytics() analytics.DealflowEntry {
	return analytics.DealflowEntry{
		ID:           e.ID,
		StartupID:    e.StartupID,
		Status:       e.Status,
		EmailsSent:   e.EmailsSent,
		MeetingsHeld: e.MeetingsHeld,
		IntroMadeTo:  e.IntroMadeTo,
		Outcome:      e.Outcome,
	}
}

// ContactKind selects the dealflow counter LogContact increments.
type ContactKind string

const (
	ContactEmail   ContactKind = "email"
	ContactMeeting ContactKind = "meeting"
)

// ScrapeLog records one scrape run.
type ScrapeLog struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	Query      string    `json:"query,omitempty"`
	Status     string    `json:"status"` // "started", "completed", "failed"
	Found      int       `json:"found"`
	New        int       `json:"new"`
	Skipped    int       `json:"skipped"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
}

// Task is a unit of background work in the tasks queue.
type Task struct {
	ID          string
	Type        string
	PayloadJSON string
	Status      string // "pending", "running", "completed", "failed"
	Attempts    int
	MaxAttempts int
	RunAfter    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastError   string
}

// PostingFilter narrows ListPostings. Zero fields do not filter. Search
// matches the title, company or description.
type PostingFilter struct {
	Company    string
	Source     string
	Search     string
	ActiveOnly bool
	Limit      int
	Offset     int
}

// StartupFilter narrows ListStartups. Search matches the name or
// description.
type StartupFilter struct {
	Industry     string
	FundingStage string
	Source       string
	Search       string
	ActiveOnly   bool
	Limit        int
	Offset       int
}

// PostingPatch is a partial update of a posting. Nil fields are left as
// they are. The source URL is the posting's dedup identity and cannot be
// patched.
type PostingPatch struct {
	Title       *string   `json:"title,omitempty"`
	Company     *string   `json:"company,omitempty"`
	Location    *string   `json:"location,omitempty"`
	JobType     *string   `json:"job_type,omitempty"`
	Seniority   *string   `json:"seniority,omitempty"`
	Description *string   `json:"description,omitempty"`
	Salary      *string   `json:"salary,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
	IsActive    *bool     `json:"is_active,omitempty"`
}

// StartupPatch is a partial update of a startup.
type StartupPatch struct {
	Name         *string   `json:"name,omitempty"`
	Website      *string   `json:"website,omitempty"`
	Description  *string   `json:"description,omitempty"`
	FundingStage *string   `json:"funding_stage,omitempty"`
	Industry     *string   `json:"industry,omitempty"`
	Tags         *[]string `json:"tags,omitempty"`
	IsActive     *bool     `json:"is_active,omitempty"`
}

// requireText rejects a patch that would blank a required field.
func requireText(field string, v *string) error {
	if v != nil && strings.TrimSpace(*v) == "" {
		return &analytics.ValidationError{Field: field, Reason: "cannot be empty"}
	}
	return nil
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	return &t
}

// CompanyCount is one row of the top companies ranking.
type CompanyCount struct {
	Company string `json:"company"`
	Count   int    `json:"count"`
}

// PostingStats summarizes the stored postings. Recent counts postings
// scraped at or after the cutoff passed to PostingStats. TopCompanies
// ranks companies by their active postings.
type PostingStats struct {
	Total        int            `json:"total"`
	Active       int            `json:"active"`
	Recent       int            `json:"recent"`
	BySource     map[string]int `json:"by_source"`
	TopCompanies []CompanyCount `json:"top_companies"`
}

type ApplicationFilter struct {
	Status analytics.ApplicationStatus
	Limit  int
	Offset int
}

type DealflowFilter struct {
	Status    analytics.DealflowStatus
	StartupID string
	Limit     int
	Offset    int
}

// Snapshot is a consistent view of everything the dashboard derives from.
type Snapshot struct {
	Applications []Application
	Dealflow     []DealflowEntry
	Events       []analytics.ActivityEvent
	Goals        map[analytics.Category]analytics.WeeklyGoal
}
