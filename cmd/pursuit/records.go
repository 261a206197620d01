package main

import (
	"fmt"
	"net/url"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/pursuit/internal/api"
	"github.com/kalambet/pursuit/internal/ingest"
	"github.com/kalambet/pursuit/internal/storage"
)

// --- jobs ---

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Browse stored job postings",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List job postings, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		company, _ := cmd.Flags().GetString("company")
		source, _ := cmd.Flags().GetString("source")
		search, _ := cmd.Flags().GetString("search")
		limit, _ := cmd.Flags().GetInt("limit")

		var postings []storage.Posting
		query := listQuery("company", company, "source", source, "search", search, "active", activeParam(cmd), "limit", fmt.Sprint(limit))
		if err := fetch(cmd, "/jobs"+query, &postings); err != nil {
			return err
		}
		if len(postings) == 0 {
			printStep("No postings found")
			return nil
		}

		rows := make([][]string, 0, len(postings))
		for _, p := range postings {
			rows = append(rows, []string{p.ID, p.Company, p.Title, p.Location, p.Source})
		}
		printTable([]string{"ID", "COMPANY", "TITLE", "LOCATION", "SOURCE"}, rows)
		return nil
	},
}

// activeParam limits listings to active records unless --all is set.
func activeParam(cmd *cobra.Command) string {
	if all, _ := cmd.Flags().GetBool("all"); all {
		return ""
	}
	return "true"
}

var jobsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show posting counts by source and company",
	RunE: func(cmd *cobra.Command, args []string) error {
		var stats storage.PostingStats
		if err := fetch(cmd, "/jobs/stats", &stats); err != nil {
			return err
		}
		printStatus("Total postings", "%d", stats.Total)
		printStatus("Active postings", "%d", stats.Active)
		printStatus("Scraped in the last 7 days", "%d", stats.Recent)

		if len(stats.BySource) > 0 {
			sources := make([]string, 0, len(stats.BySource))
			for src := range stats.BySource {
				sources = append(sources, src)
			}
			sort.Strings(sources)
			rows := make([][]string, 0, len(sources))
			for _, src := range sources {
				rows = append(rows, []string{src, strconv.Itoa(stats.BySource[src])})
			}
			printTable([]string{"SOURCE", "POSTINGS"}, rows)
		}
		if len(stats.TopCompanies) > 0 {
			rows := make([][]string, 0, len(stats.TopCompanies))
			for _, c := range stats.TopCompanies {
				rows = append(rows, []string{c.Company, strconv.Itoa(c.Count)})
			}
			printTable([]string{"COMPANY", "ACTIVE"}, rows)
		}
		return nil
	},
}

var postingFields = []string{"title", "company", "location", "job-type", "seniority", "description", "salary", "is-active"}

var jobsUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Edit a posting or mark it inactive",
	Long: `Edit fields of a stored posting. Mark a filled or expired posting
inactive so "jobs list" hides it.

Examples:
  pursuit jobs update 5f0c... --is-active=false
  pursuit jobs update 5f0c... --salary "$140k-$160k" --location Remote`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return patchRecord(cmd, "/jobs/"+url.PathEscape(args[0]), postingFields, "posting "+args[0])
	},
}

var jobsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a posting and its applications",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return deleteRecord(cmd, "/jobs/"+url.PathEscape(args[0]), "posting "+args[0])
	},
}

// patchRecord sends the changed field flags as a PATCH body.
func patchRecord(cmd *cobra.Command, path string, fields []string, what string) error {
	body := changedFields(cmd.Flags(), fields...)
	if len(body) == 0 {
		return fmt.Errorf("nothing to update; pass at least one field flag")
	}
	client, err := newAPIClient()
	if err != nil {
		return err
	}
	resp, err := client.patch(cmd.Context(), path, body)
	if err != nil {
		return err
	}
	if err := decodeJSON(resp, nil); err != nil {
		return err
	}
	printSuccess("Updated %s", what)
	return nil
}

var jobsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one posting as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return showJSON(cmd, "/jobs/"+url.PathEscape(args[0]), &storage.Posting{})
	},
}

var jobsImportPDFCmd = &cobra.Command{
	Use:   "import-pdf <file>",
	Short: "Add a posting saved as PDF",
	Long: `Extract the text of a job posting saved as PDF and add it as a posting.
The posting goes through duplicate detection like scraped postings do.

Examples:
  pursuit jobs import-pdf ./analyst.pdf --company "Northwind Capital"
  pursuit jobs import-pdf ./platform.pdf --url https://jobs.example.vc/42 --title "Platform Lead"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		title, _ := cmd.Flags().GetString("title")
		company, _ := cmd.Flags().GetString("company")
		link, _ := cmd.Flags().GetString("url")
		location, _ := cmd.Flags().GetString("location")

		text, err := extractPDFText(path)
		if err != nil {
			return err
		}
		req := candidateFromPDF(path, text)
		if title != "" {
			req.Title = title
		}
		if company != "" {
			req.Company = company
		}
		if link != "" {
			req.URL = link
		}
		if location != "" {
			req.Location = location
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/candidates", req)
		if err != nil {
			return err
		}
		var out ingest.Outcome
		if err := decodeJSON(resp, &out); err != nil {
			return err
		}
		if out.Decision.Duplicate {
			printWarning("Already tracked as %s (%s match, confidence %.2f)", out.Decision.MatchedID, out.Decision.Match, out.Decision.Confidence)
			return nil
		}
		printSuccess("Imported %q as posting %s", req.Title, out.ID)
		return nil
	},
}

// candidateFromPDF builds a posting from extracted text. The first line is
// taken as the title and the file's absolute path stands in for the URL.
func candidateFromPDF(path, text string) api.CandidateRequest {
	req := api.CandidateRequest{
		Kind:        string(ingest.KindJobs),
		Source:      "pdf",
		Description: text,
		Tags:        []string{"pdf"},
	}
	for line := range strings.Lines(text) {
		if line = strings.TrimSpace(line); line != "" {
			req.Title = truncateRunes(line, 120)
			break
		}
	}
	if req.Title == "" {
		req.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	req.URL = (&url.URL{Scheme: "file", Path: abs}).String()
	return req
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func init() {
	jobsListCmd.Flags().String("company", "", "filter by company (substring)")
	jobsListCmd.Flags().String("source", "", "filter by source")
	jobsListCmd.Flags().String("search", "", "match title, company or description")
	jobsListCmd.Flags().Bool("all", false, "include inactive postings")
	jobsListCmd.Flags().Int("limit", 50, "maximum number of postings to list")

	jobsImportPDFCmd.Flags().String("title", "", "posting title (default: first line of the PDF)")
	jobsImportPDFCmd.Flags().String("company", "", "hiring company")
	jobsImportPDFCmd.Flags().String("url", "", "original posting URL (default: file URL of the PDF)")
	jobsImportPDFCmd.Flags().String("location", "", "job location")

	jobsUpdateCmd.Flags().String("title", "", "posting title")
	jobsUpdateCmd.Flags().String("company", "", "hiring company")
	jobsUpdateCmd.Flags().String("location", "", "job location")
	jobsUpdateCmd.Flags().String("job-type", "", "e.g. full-time")
	jobsUpdateCmd.Flags().String("seniority", "", "seniority level")
	jobsUpdateCmd.Flags().String("description", "", "posting description")
	jobsUpdateCmd.Flags().String("salary", "", "salary range")
	jobsUpdateCmd.Flags().Bool("is-active", true, "whether the posting is still open")

	jobsCmd.AddCommand(jobsListCmd, jobsShowCmd, jobsStatsCmd, jobsUpdateCmd, jobsDeleteCmd, jobsImportPDFCmd)
}

// --- startups ---

var startupsCmd = &cobra.Command{
	Use:   "startups",
	Short: "Browse discovered startups",
}

var startupsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List startups, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		industry, _ := cmd.Flags().GetString("industry")
		stage, _ := cmd.Flags().GetString("stage")
		search, _ := cmd.Flags().GetString("search")
		limit, _ := cmd.Flags().GetInt("limit")

		var startups []storage.Startup
		query := listQuery("industry", industry, "funding_stage", stage, "search", search, "active", activeParam(cmd), "limit", fmt.Sprint(limit))
		if err := fetch(cmd, "/startups"+query, &startups); err != nil {
			return err
		}
		if len(startups) == 0 {
			printStep("No startups found")
			return nil
		}

		rows := make([][]string, 0, len(startups))
		for _, st := range startups {
			rows = append(rows, []string{st.ID, st.Name, st.Industry, st.FundingStage, st.Website})
		}
		printTable([]string{"ID", "NAME", "INDUSTRY", "STAGE", "WEBSITE"}, rows)
		return nil
	},
}

var startupsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one startup as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return showJSON(cmd, "/startups/"+url.PathEscape(args[0]), &storage.Startup{})
	},
}

var startupFields = []string{"name", "website", "description", "funding-stage", "industry", "is-active"}

var startupsUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Edit a startup or mark it inactive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return patchRecord(cmd, "/startups/"+url.PathEscape(args[0]), startupFields, "startup "+args[0])
	},
}

var startupsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a startup and its pipeline entries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return deleteRecord(cmd, "/startups/"+url.PathEscape(args[0]), "startup "+args[0])
	},
}

func init() {
	startupsListCmd.Flags().String("industry", "", "filter by industry")
	startupsListCmd.Flags().String("stage", "", "filter by funding stage")
	startupsListCmd.Flags().String("search", "", "match name or description")
	startupsListCmd.Flags().Bool("all", false, "include inactive startups")
	startupsListCmd.Flags().Int("limit", 50, "maximum number of startups to list")

	startupsUpdateCmd.Flags().String("name", "", "company name")
	startupsUpdateCmd.Flags().String("website", "", "company website")
	startupsUpdateCmd.Flags().String("description", "", "what the company does")
	startupsUpdateCmd.Flags().String("funding-stage", "", "e.g. seed or series-a")
	startupsUpdateCmd.Flags().String("industry", "", "industry or sector")
	startupsUpdateCmd.Flags().Bool("is-active", true, "whether to keep tracking the startup")

	startupsCmd.AddCommand(startupsListCmd, startupsShowCmd, startupsUpdateCmd, startupsDeleteCmd)
}

// --- scrape ---

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Queue searches for new postings and startups",
	Long: `Queue searches for new postings and startups. Searches run in the
background on the server; check progress with "pursuit scrape logs".

Examples:
  pursuit scrape jobs "climate vc associate"
  pursuit scrape firms Accel Index "General Catalyst"
  pursuit scrape role "platform lead"
  pursuit scrape accelerator "Y Combinator" --batch W25
  pursuit scrape sectors fintech healthtech --stage seed`,
}

func enqueueScrape(cmd *cobra.Command, path string, req api.ScrapeRequest) error {
	req.NumResults, _ = cmd.Flags().GetInt("results")
	req.LookbackDays, _ = cmd.Flags().GetInt("lookback")

	client, err := newAPIClient()
	if err != nil {
		return err
	}
	resp, err := client.post(cmd.Context(), path, req)
	if err != nil {
		return err
	}
	var out api.ScrapeResponse
	if err := decodeJSON(resp, &out); err != nil {
		return err
	}
	printSuccess("Queued task %s", out.TaskID)
	for _, q := range out.Queries {
		printStep("%s", q)
	}
	return nil
}

var scrapeJobsCmd = &cobra.Command{
	Use:   "jobs [query...]",
	Short: "Search for venture capital job postings",
	RunE: func(cmd *cobra.Command, args []string) error {
		return enqueueScrape(cmd, "/scrape/jobs", api.ScrapeRequest{Queries: args})
	},
}

var scrapeFirmsCmd = &cobra.Command{
	Use:   "firms <firm...>",
	Short: "Search for open roles at specific firms",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return enqueueScrape(cmd, "/scrape/jobs", api.ScrapeRequest{Firms: args})
	},
}

var scrapeRoleCmd = &cobra.Command{
	Use:   "role <role>",
	Short: "Search for a role across venture capital firms",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return enqueueScrape(cmd, "/scrape/jobs", api.ScrapeRequest{Role: args[0]})
	},
}

var scrapeAcceleratorCmd = &cobra.Command{
	Use:   "accelerator <name>",
	Short: "Search for startups from an accelerator batch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		batch, _ := cmd.Flags().GetString("batch")
		return enqueueScrape(cmd, "/scrape/startups", api.ScrapeRequest{Accelerator: args[0], Batch: batch})
	},
}

var scrapeSectorsCmd = &cobra.Command{
	Use:   "sectors [sector...]",
	Short: "Search for startups by sector and stage",
	RunE: func(cmd *cobra.Command, args []string) error {
		stage, _ := cmd.Flags().GetString("stage")
		if len(args) == 0 && stage == "" {
			return fmt.Errorf("pass at least one sector or --stage")
		}
		return enqueueScrape(cmd, "/scrape/startups", api.ScrapeRequest{Sectors: args, Stage: stage})
	},
}

var scrapeLogsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show recent scrape runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		var logs []storage.ScrapeLog
		if err := fetch(cmd, fmt.Sprintf("/scrape/logs?limit=%d", limit), &logs); err != nil {
			return err
		}
		if len(logs) == 0 {
			printStep("No scrape runs yet")
			return nil
		}

		rows := make([][]string, 0, len(logs))
		for _, l := range logs {
			rows = append(rows, []string{
				l.StartedAt.Local().Format("2006-01-02 15:04"), l.Source, l.Status,
				strconv.Itoa(l.Found), strconv.Itoa(l.New), strconv.Itoa(l.Skipped), l.Error,
			})
		}
		printTable([]string{"STARTED", "SOURCE", "STATUS", "FOUND", "NEW", "SKIPPED", "ERROR"}, rows)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{scrapeJobsCmd, scrapeFirmsCmd, scrapeRoleCmd, scrapeAcceleratorCmd, scrapeSectorsCmd} {
		c.Flags().Int("results", 0, "results per query (default from scrape.default_results)")
		c.Flags().Int("lookback", 0, "only results published in the last N days")
	}
	scrapeAcceleratorCmd.Flags().String("batch", "", "batch name, e.g. W25")
	scrapeSectorsCmd.Flags().String("stage", "", "funding stage, e.g. seed")
	scrapeLogsCmd.Flags().Int("limit", 20, "number of runs to show")

	scrapeCmd.AddCommand(scrapeJobsCmd, scrapeFirmsCmd, scrapeRoleCmd, scrapeAcceleratorCmd, scrapeSectorsCmd, scrapeLogsCmd)
}
