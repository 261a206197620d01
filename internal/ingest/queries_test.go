package ingest

import (
	"errors"
	"reflect"
	"testing"

	"github.com/kalambet/pursuit/internal/analytics"
)

func TestJobSearchQueries(t *testing.T) {
	tests := []struct {
		name   string
		search JobSearch
		want   []string
	}{
		{"empty", JobSearch{}, []string{"venture capital jobs hiring"}},
		{"free query", JobSearch{Query: "platform associate"}, []string{"platform associate"}},
		{
			"firms",
			JobSearch{Firms: []string{"Sequoia", " ", "Accel"}},
			[]string{"jobs at Sequoia venture capital hiring", "jobs at Accel venture capital hiring"},
		},
		{"role", JobSearch{Role: "analyst"}, []string{"analyst venture capital jobs hiring"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.search.Queries(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Queries() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStartupSearchQueries(t *testing.T) {
	tests := []struct {
		name   string
		search StartupSearch
		want   []string
	}{
		{"empty", StartupSearch{}, nil},
		{"accelerator", StartupSearch{Accelerator: "Y Combinator", Batch: "W25"}, []string{"Y Combinator W25 batch startups companies"}},
		{"accelerator without batch", StartupSearch{Accelerator: "Techstars"}, []string{"Techstars batch startups companies"}},
		{
			"sectors with stage",
			StartupSearch{Sectors: []string{"fintech", "climate"}, Stage: "seed"},
			[]string{"fintech startups seed stage 2024 2025 funding", "climate startups seed stage 2024 2025 funding"},
		},
		{"stage only", StartupSearch{Stage: "series-a"}, []string{"series-a stage startups fundraising 2024 2025"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.search.Queries(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Queries() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{"jobs": KindJobs, "Job": KindJobs, "startups": KindStartups, "startup": KindStartups} {
		got, err := ParseKind(in)
		if err != nil || got != want {
			t.Errorf("ParseKind(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseKind("funds"); !errors.Is(err, analytics.ErrValidation) {
		t.Errorf("ParseKind(funds) error = %v, want ErrValidation", err)
	}
}
