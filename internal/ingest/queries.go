package ingest

import (
	"fmt"
	"strings"

	"github.com/kalambet/pursuit/internal/analytics"
)

// Kind selects which record type a scrape or candidate targets.
type Kind string

const (
	KindJobs     Kind = "jobs"
	KindStartups Kind = "startups"
)

// ParseKind accepts the plural forms and the singular aliases "job" and
// "startup".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "jobs", "job":
		return KindJobs, nil
	case "startups", "startup":
		return KindStartups, nil
	}
	return "", &analytics.ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown kind %q", s)}
}

// JobSearch describes a job scrape. Firms and Role each expand to their own
// queries; Query is used verbatim.
type JobSearch struct {
	Query string   `json:"query,omitempty"`
	Firms []string `json:"firms,omitempty"`
	Role  string   `json:"role,omitempty"`
}

// Queries expands the search into Exa queries. An empty search falls back
// to a generic venture capital hiring query.
func (s JobSearch) Queries() []string {
	var out []string
	if q := strings.TrimSpace(s.Query); q != "" {
		out = append(out, q)
	}
	for _, firm := range s.Firms {
		if firm = strings.TrimSpace(firm); firm != "" {
			out = append(out, fmt.Sprintf("jobs at %s venture capital hiring", firm))
		}
	}
	if role := strings.TrimSpace(s.Role); role != "" {
		out = append(out, fmt.Sprintf("%s venture capital jobs hiring", role))
	}
	if len(out) == 0 {
		out = append(out, "venture capital jobs hiring")
	}
	return out
}

// StartupSearch describes a startup scrape.
type StartupSearch struct {
	Query       string   `json:"query,omitempty"`
	Accelerator string   `json:"accelerator,omitempty"`
	Batch       string   `json:"batch,omitempty"`
	Sectors     []string `json:"sectors,omitempty"`
	Stage       string   `json:"stage,omitempty"`
}

func (s StartupSearch) Queries() []string {
	var out []string
	if q := strings.TrimSpace(s.Query); q != "" {
		out = append(out, q)
	}
	stage := strings.TrimSpace(s.Stage)
	if acc := strings.TrimSpace(s.Accelerator); acc != "" {
		out = append(out, strings.Join(strings.Fields(acc+" "+s.Batch+" batch startups companies"), " "))
	}
	for _, sector := range s.Sectors {
		if sector = strings.TrimSpace(sector); sector == "" {
			continue
		}
		if stage != "" {
			out = append(out, fmt.Sprintf("%s startups %s stage 2024 2025 funding", sector, stage))
		} else {
			out = append(out, fmt.Sprintf("%s startups 2024 2025 funding", sector))
		}
	}
	if len(out) == 0 && stage != "" {
		out = append(out, fmt.Sprintf("%s stage startups fundraising 2024 2025", stage))
	}
	return out
}
