package ingest

import (
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"cloud.google.com/go/civil"
	"golang.org/x/net/html"

	"github.com/kalambet/pursuit/internal/exa"
	"github.com/kalambet/pursuit/internal/storage"
)

const (
	maxDescriptionChars = 2000
	maxHighlights       = 5
	maxFieldChars       = 255
	unknownCompany      = "Unknown Company"
)

// PostingFromResult turns an Exa hit into a job posting draft.
func PostingFromResult(r exa.Result, now time.Time) storage.Posting {
	title := strings.TrimSpace(r.Title)
	if title == "" {
		title = "Untitled Position"
	}
	text := plainText(r.Text)
	highlights := plainTexts(r.Highlights)
	return storage.Posting{
		Title:       truncate(title, maxFieldChars),
		Company:     truncate(companyFromResult(r.URL, title), maxFieldChars),
		Location:    extractLocation(text, highlights),
		Description: buildDescription(text, highlights),
		Source:      "exa",
		SourceURL:   r.URL,
		SourceJobID: r.ID,
		PostedDate:  parsePublished(r.PublishedDate),
		ScrapedAt:   now.UTC(),
		IsActive:    true,
		Tags:        []string{"exa", "ai-search"},
	}
}

// StartupFromResult turns an Exa hit into a startup draft.
func StartupFromResult(r exa.Result, now time.Time) storage.Startup {
	title := strings.TrimSpace(r.Title)
	if title == "" {
		title = "Untitled Company"
	}
	text := plainText(r.Text)
	highlights := plainTexts(r.Highlights)
	return storage.Startup{
		Name:           truncate(startupName(r.URL, title), maxFieldChars),
		Website:        r.URL,
		Description:    buildDescription(text, highlights),
		FundingStage:   extractFundingStage(text, highlights),
		Industry:       extractIndustry(text, highlights),
		Tags:           []string{"exa", "dealflow"},
		Source:         "exa",
		SourceURL:      r.URL,
		SourceID:       r.ID,
		DiscoveredDate: now.UTC(),
		IsActive:       true,
	}
}

// companyFromHost derives a display name from the first label of a URL
// host, e.g. "https://www.blue-harbor.com/jobs" gives "Blue Harbor".
func companyFromHost(rawURL string, stripSuffixes ...string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	host = strings.ReplaceAll(host, "www.", "")
	for _, s := range stripSuffixes {
		host = strings.ReplaceAll(host, s, "")
	}
	label, _, _ := strings.Cut(host, ".")
	label = strings.NewReplacer("-", " ", "_", " ").Replace(label)
	name := titleCase(label)
	if len(name) <= 2 {
		return ""
	}
	return name
}

func companyFromResult(rawURL, title string) string {
	if c := companyFromHost(rawURL, ".com", ".ai"); c != "" {
		return c
	}
	for _, sep := range []string{" at ", " @ "} {
		if i := strings.LastIndex(title, sep); i >= 0 {
			if c := strings.TrimSpace(title[i+len(sep):]); c != "" {
				return c
			}
		}
	}
	return unknownCompany
}

var titlePrefix = regexp.MustCompile(`(?i)^(about|company|startup)\s*[-:]\s*`)

func startupName(rawURL, title string) string {
	if c := companyFromHost(rawURL, ".com", ".ai", ".io"); c != "" {
		return c
	}
	t := titlePrefix.ReplaceAllString(title, "")
	t, _, _ = strings.Cut(t, "|")
	t, _, _ = strings.Cut(t, "-")
	return strings.TrimSpace(t)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

// buildDescription prefers the top highlights and falls back to the start
// of the page text.
func buildDescription(text string, highlights []string) string {
	if len(highlights) > 0 {
		if len(highlights) > maxHighlights {
			highlights = highlights[:maxHighlights]
		}
		return strings.Join(highlights, "\n\n")
	}
	return truncate(text, maxDescriptionChars)
}

var locationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:located in|based in|office in|location:)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*,\s*[A-Z]{2})`),
	regexp.MustCompile(`([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*,\s*[A-Z]{2})\b`),
	regexp.MustCompile(`(?i)\b(San Francisco|New York|Los Angeles|Boston|Austin|Seattle|London|Berlin|Remote)\b`),
}

func extractLocation(text string, highlights []string) string {
	search := searchText(text, highlights, 0)
	for _, re := range locationPatterns {
		if m := re.FindStringSubmatch(search); m != nil {
			return m[1]
		}
	}
	return ""
}

var industries = []string{
	"fintech", "finance", "financial", "banking",
	"ai", "artificial intelligence", "machine learning", "ml",
	"biotech", "healthcare", "health tech", "medical",
	"edtech", "education", "learning",
	"saas", "software", "enterprise",
	"e-commerce", "retail", "marketplace",
	"crypto", "blockchain", "web3",
	"climate tech", "cleantech", "sustainability",
}

var industryPatterns = func() []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(industries))
	for i, ind := range industries {
		out[i] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(ind) + `\b`)
	}
	return out
}()

func extractIndustry(text string, highlights []string) string {
	search := searchText(text, highlights, 3)
	for i, re := range industryPatterns {
		if re.MatchString(search) {
			return industries[i]
		}
	}
	return ""
}

// Checked in order; pre-seed before seed so "pre-seed round" is not read
// as seed.
var fundingStages = []struct {
	stage string
	re    *regexp.Regexp
}{
	{"pre-seed", regexp.MustCompile(`(?i)\bpre-seed\b`)},
	{"seed", regexp.MustCompile(`(?i)\bseed\s+(round|funding|stage)\b`)},
	{"series-a", regexp.MustCompile(`(?i)\bseries\s+a\b`)},
	{"series-b", regexp.MustCompile(`(?i)\bseries\s+b\b`)},
	{"series-c", regexp.MustCompile(`(?i)\bseries\s+c\b`)},
}

func extractFundingStage(text string, highlights []string) string {
	search := searchText(text, highlights, 3)
	for _, fs := range fundingStages {
		if fs.re.MatchString(search) {
			return fs.stage
		}
	}
	return ""
}

// searchText joins up to limit highlights (all when limit is 0), or falls
// back to the first 1000 characters of text.
func searchText(text string, highlights []string, limit int) string {
	if len(highlights) > 0 {
		if limit > 0 && len(highlights) > limit {
			highlights = highlights[:limit]
		}
		return strings.Join(highlights, " ")
	}
	return truncate(text, 1000)
}

func parsePublished(s string) civil.Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return civil.Date{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return civil.DateOf(t)
		}
	}
	return civil.Date{}
}

// plainText strips markup from s, keeping text nodes separated by spaces.
// Input without tags comes back trimmed but otherwise unchanged.
func plainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}
	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.StartTagToken:
			if name, _ := z.TagName(); isHiddenTag(string(name)) {
				skip++
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); isHiddenTag(string(name)) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
				b.WriteByte(' ')
			}
		}
	}
}

func isHiddenTag(name string) bool {
	return name == "script" || name == "style"
}

func plainTexts(ss []string) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		if t := plainText(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
