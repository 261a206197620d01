package dedup

import (
	"fmt"
	"strings"
	"time"
)

// Config tunes the fuzzy stage of the detector.
type Config struct {
	// Threshold is the similarity a fuzzy match must exceed to count as a
	// duplicate.
	Threshold float64
}

func DefaultConfig() Config {
	return Config{Threshold: 0.85}
}

func (c Config) Validate() error {
	if c.Threshold <= 0 || c.Threshold > 1 {
		return fmt.Errorf("dedup threshold must be in (0, 1], got %v", c.Threshold)
	}
	return nil
}

// Candidate is a scraped record that has not been stored yet.
type Candidate struct {
	Title   string `json:"title"`
	Company string `json:"company"`
	URL     string `json:"url"`
	Source  string `json:"source,omitempty"`
}

// Record is a stored posting or startup as seen by the detector.
type Record struct {
	ID      string
	Title   string
	Company string
	URL     string
	SeenAt  time.Time
}

// MatchKind names the stage that produced a duplicate decision.
type MatchKind string

const (
	MatchNone     MatchKind = ""
	MatchExactURL MatchKind = "exact_url"
	MatchFuzzy    MatchKind = "fuzzy"
)

// Decision is the outcome of Check. Confidence carries the best fuzzy score
// even when it stays below the threshold.
type Decision struct {
	Duplicate  bool      `json:"duplicate"`
	MatchedID  string    `json:"matched_id,omitempty"`
	Confidence float64   `json:"confidence"`
	Match      MatchKind `json:"match,omitempty"`
}

// Detector decides whether a candidate is already present in a set of
// records. It holds no state besides its config; callers serialize the
// check-then-insert sequence themselves.
type Detector struct {
	cfg Config
}

func NewDetector(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

// Check runs the exact URL stage and, when that finds nothing, the fuzzy
// title stage against existing.
func (d *Detector) Check(c Candidate, existing []Record) Decision {
	if u := NormalizeURL(c.URL); u != "" {
		for _, r := range existing {
			if NormalizeURL(r.URL) == u {
				return Decision{Duplicate: true, MatchedID: r.ID, Confidence: 1, Match: MatchExactURL}
			}
		}
	}

	text := subjectText(c.Title, c.Company)
	if text == "" {
		return Decision{}
	}

	var (
		best    float64
		bestRec *Record
	)
	for i := range existing {
		r := &existing[i]
		score := similarity(text, subjectText(r.Title, r.Company))
		switch {
		case bestRec == nil || score > best:
			best, bestRec = score, r
		case score == best && r.SeenAt.After(bestRec.SeenAt):
			bestRec = r
		}
	}

	if bestRec == nil || best <= d.cfg.Threshold {
		return Decision{Confidence: best}
	}
	return Decision{Duplicate: true, MatchedID: bestRec.ID, Confidence: best, Match: MatchFuzzy}
}

func subjectText(title, company string) string {
	return NormalizeText(strings.TrimSpace(title) + " " + strings.TrimSpace(company))
}
