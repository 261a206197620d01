package analytics

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// Category tags an activity event with the stream it counts toward.
type Category string

const (
	CategoryJobs     Category = "jobs"
	CategoryDealflow Category = "dealflow"
)

// Categories lists every category in display order.
var Categories = []Category{CategoryJobs, CategoryDealflow}

// ParseCategory validates a category name.
func ParseCategory(s string) (Category, error) {
	switch c := Category(strings.ToLower(strings.TrimSpace(s))); c {
	case CategoryJobs, CategoryDealflow:
		return c, nil
	}
	return "", invalid("category", "unknown category %q", s)
}

// ParseDate parses a YYYY-MM-DD calendar date. No time zone is attached.
func ParseDate(s string) (civil.Date, error) {
	d, err := civil.ParseDate(strings.TrimSpace(s))
	if err != nil {
		return civil.Date{}, invalid("date", "%q is not a YYYY-MM-DD date", s)
	}
	return d, nil
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) civil.Date {
	return civil.DateOf(t)
}

// ActivityEvent is one entry of the append-only activity log.
type ActivityEvent struct {
	Category Category   `json:"category"`
	Date     civil.Date `json:"date,omitzero"`
	SourceID string     `json:"source_id"`
}

// WeeklyGoal is the active target for one category. WeekStart is supplied by
// the caller; a zero WeekStart means "the week containing today".
type WeeklyGoal struct {
	Category  Category   `json:"category"`
	Target    int        `json:"target"`
	WeekStart civil.Date `json:"week_start,omitzero"`
}

func (g WeeklyGoal) Validate() error {
	if _, err := ParseCategory(string(g.Category)); err != nil {
		return err
	}
	if g.Target < 0 {
		return invalid("target", "must be non-negative, got %d", g.Target)
	}
	if !g.WeekStart.IsZero() && !g.WeekStart.IsValid() {
		return invalid("week_start", "%s is not a valid date", g.WeekStart)
	}
	return nil
}

// ApplicationStatus is the lifecycle state of a job application.
type ApplicationStatus string

const (
	StatusSaved        ApplicationStatus = "saved"
	StatusApplied      ApplicationStatus = "applied"
	StatusInterviewing ApplicationStatus = "interviewing"
	StatusRejected     ApplicationStatus = "rejected"
	StatusOffer        ApplicationStatus = "offer"
	StatusAccepted     ApplicationStatus = "accepted"
)

// ApplicationStatuses lists every application status in declaration order.
var ApplicationStatuses = []ApplicationStatus{
	StatusSaved, StatusApplied, StatusInterviewing, StatusRejected, StatusOffer, StatusAccepted,
}

func ParseApplicationStatus(s string) (ApplicationStatus, error) {
	st := ApplicationStatus(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range ApplicationStatuses {
		if st == known {
			return st, nil
		}
	}
	return "", invalid("status", "unknown application status %q", s)
}

// responded reports whether the status alone means the employer replied.
func (s ApplicationStatus) responded() bool {
	switch s {
	case StatusInterviewing, StatusRejected, StatusOffer, StatusAccepted:
		return true
	}
	return false
}

func (s ApplicationStatus) offered() bool {
	return s == StatusOffer || s == StatusAccepted
}

// DealflowStatus is a stage of the dealflow pipeline. Stages are totally
// ordered; see Rank.
type DealflowStatus string

const (
	StageSourced     DealflowStatus = "sourced"
	StageResearching DealflowStatus = "researching"
	StageContacted   DealflowStatus = "contacted"
	StageMeeting     DealflowStatus = "meeting"
	StageShared      DealflowStatus = "shared"
	StageProgressing DealflowStatus = "progressing"
	StageClosed      DealflowStatus = "closed"
)

// DealflowStages lists the pipeline in stage order.
var DealflowStages = []DealflowStatus{
	StageSourced, StageResearching, StageContacted, StageMeeting, StageShared, StageProgressing, StageClosed,
}

func ParseDealflowStatus(s string) (DealflowStatus, error) {
	st := DealflowStatus(strings.ToLower(strings.TrimSpace(s)))
	if st.Rank() < 0 {
		return "", invalid("status", "unknown dealflow status %q", s)
	}
	return st, nil
}

// Rank is the position of s in the pipeline, or -1 for an unknown stage.
func (s DealflowStatus) Rank() int {
	for i, st := range DealflowStages {
		if s == st {
			return i
		}
	}
	return -1
}

// AtOrPast reports whether s has reached stage other.
func (s DealflowStatus) AtOrPast(other DealflowStatus) bool {
	r := s.Rank()
	return r >= 0 && r >= other.Rank()
}

// Application is the analytics view of a tracked job application.
type Application struct {
	ID             string            `json:"id"`
	JobID          string            `json:"job_id"`
	Status         ApplicationStatus `json:"status"`
	InterviewCount int               `json:"interview_count"`
}

func (a Application) Validate() error {
	if _, err := ParseApplicationStatus(string(a.Status)); err != nil {
		return err
	}
	if a.InterviewCount < 0 {
		return invalid("interview_count", "must be non-negative, got %d", a.InterviewCount)
	}
	return nil
}

// DealflowEntry is the analytics view of a tracked startup in the pipeline.
type DealflowEntry struct {
	ID           string         `json:"id"`
	StartupID    string         `json:"startup_id"`
	Status       DealflowStatus `json:"status"`
	EmailsSent   int            `json:"emails_sent"`
	MeetingsHeld int            `json:"meetings_held"`
	IntroMadeTo  string         `json:"intro_made_to,omitempty"`
	Outcome      string         `json:"outcome,omitempty"`
}

func (e DealflowEntry) Validate() error {
	if _, err := ParseDealflowStatus(string(e.Status)); err != nil {
		return err
	}
	if e.EmailsSent < 0 {
		return invalid("emails_sent", "must be non-negative, got %d", e.EmailsSent)
	}
	if e.MeetingsHeld < 0 {
		return invalid("meetings_held", "must be non-negative, got %d", e.MeetingsHeld)
	}
	return nil
}
