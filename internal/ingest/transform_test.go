package ingest

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"cloud.google.com/go/civil"

	"github.com/kalambet/pursuit/internal/exa"
)

var scrapeTime = time.Date(2026, 2, 5, 12, 0, 0, 0, time.UTC)

func TestCompanyFromResult(t *testing.T) {
	tests := []struct {
		name  string
		url   string
		title string
		want  string
	}{
		{"host label", "https://www.blue-harbor.com/careers/123", "Analyst", "Blue Harbor"},
		{"ai suffix", "https://acme.ai/jobs", "Associate", "Acme"},
		{"underscore host", "https://north_star.vc/jobs", "Associate", "North Star"},
		{"short host falls back to title", "https://ab.com/x", "Investment Associate at Foundry Group", "Foundry Group"},
		{"at sign", "", "Platform Lead @ Sequoia", "Sequoia"},
		{"unknown", "", "Venture Fellow", unknownCompany},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := companyFromResult(tt.url, tt.title); got != tt.want {
				t.Errorf("companyFromResult(%q, %q) = %q, want %q", tt.url, tt.title, got, tt.want)
			}
		})
	}
}

func TestCompanyFromHost_NonASCII(t *testing.T) {
	got := companyFromHost("https://www.élan-labs.com/jobs", ".com")
	if got != "Élan Labs" {
		t.Errorf("companyFromHost = %q, want %q", got, "Élan Labs")
	}
	if !utf8.ValidString(got) {
		t.Errorf("companyFromHost returned invalid UTF-8: %q", got)
	}
}

func TestStartupName(t *testing.T) {
	if got := startupName("https://www.quantaloop.io/", "Quantaloop | Home"); got != "Quantaloop" {
		t.Errorf("host name = %q, want Quantaloop", got)
	}
	if got := startupName("https://x.co", "About - Quantaloop | Home"); got != "Quantaloop" {
		t.Errorf("title fallback = %q, want Quantaloop", got)
	}
}

func TestPostingFromResult(t *testing.T) {
	r := exa.Result{
		ID:            "exa-1",
		URL:           "https://www.blue-harbor.com/jobs/42",
		Title:         "Investment Analyst",
		PublishedDate: "2026-01-28T09:30:00.000Z",
		Text:          "<p>We are based in Boston, MA.</p><script>var x = 1;</script>",
		Highlights:    []string{"<b>Join</b> our team", "Located in Boston, MA"},
	}
	p := PostingFromResult(r, scrapeTime)

	if p.Company != "Blue Harbor" {
		t.Errorf("Company = %q", p.Company)
	}
	if p.Description != "Join our team\n\nLocated in Boston, MA" {
		t.Errorf("Description = %q", p.Description)
	}
	if p.Location != "Boston, MA" {
		t.Errorf("Location = %q, want Boston, MA", p.Location)
	}
	if want := (civil.Date{Year: 2026, Month: 1, Day: 28}); p.PostedDate != want {
		t.Errorf("PostedDate = %v, want %v", p.PostedDate, want)
	}
	if p.Source != "exa" || p.SourceURL != r.URL || p.SourceJobID != "exa-1" {
		t.Errorf("source fields = %q %q %q", p.Source, p.SourceURL, p.SourceJobID)
	}
	if strings.Join(p.Tags, ",") != "exa,ai-search" {
		t.Errorf("Tags = %v", p.Tags)
	}
	if !p.IsActive || !p.ScrapedAt.Equal(scrapeTime) {
		t.Errorf("IsActive=%v ScrapedAt=%v", p.IsActive, p.ScrapedAt)
	}
}

func TestPostingFromResult_DescriptionFallsBackToText(t *testing.T) {
	long := strings.Repeat("a", maxDescriptionChars+50)
	p := PostingFromResult(exa.Result{URL: "https://fund.com/j", Title: "", Text: long}, scrapeTime)
	if len([]rune(p.Description)) != maxDescriptionChars {
		t.Errorf("description length = %d, want %d", len(p.Description), maxDescriptionChars)
	}
	if p.Title != "Untitled Position" {
		t.Errorf("Title = %q", p.Title)
	}
	if !p.PostedDate.IsZero() {
		t.Errorf("PostedDate = %v, want zero", p.PostedDate)
	}
}

func TestBuildDescription_CapsHighlights(t *testing.T) {
	got := buildDescription("", []string{"1", "2", "3", "4", "5", "6", "7"})
	if got != "1\n\n2\n\n3\n\n4\n\n5" {
		t.Errorf("buildDescription = %q", got)
	}
}

func TestStartupFromResult(t *testing.T) {
	r := exa.Result{
		ID:         "exa-9",
		URL:        "https://quantaloop.io",
		Title:      "Quantaloop",
		Highlights: []string{"Quantaloop builds fintech infrastructure", "The company raised a Series A last month"},
	}
	st := StartupFromResult(r, scrapeTime)
	if st.Name != "Quantaloop" {
		t.Errorf("Name = %q", st.Name)
	}
	if st.Industry != "fintech" {
		t.Errorf("Industry = %q, want fintech", st.Industry)
	}
	if st.FundingStage != "series-a" {
		t.Errorf("FundingStage = %q, want series-a", st.FundingStage)
	}
	if st.Website != r.URL || st.SourceID != "exa-9" {
		t.Errorf("Website=%q SourceID=%q", st.Website, st.SourceID)
	}
	if strings.Join(st.Tags, ",") != "exa,dealflow" {
		t.Errorf("Tags = %v", st.Tags)
	}
}

func TestExtractFundingStage(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"closed a pre-seed round", "pre-seed"},
		{"announced its seed round", "seed"},
		{"Series B led by Accel", "series-b"},
		{"no funding news", ""},
	}
	for _, tt := range tests {
		if got := extractFundingStage(tt.text, nil); got != tt.want {
			t.Errorf("extractFundingStage(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  plain text ", "plain text"},
		{"<div><h1>Title</h1><p>Body &amp; more</p></div>", "Title Body & more"},
		{"<style>p{}</style>visible", "visible"},
	}
	for _, tt := range tests {
		if got := plainText(tt.in); got != tt.want {
			t.Errorf("plainText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
