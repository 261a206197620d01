package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/kalambet/pursuit/internal/analytics"
	"github.com/kalambet/pursuit/internal/api"
	"github.com/kalambet/pursuit/internal/config"
	"github.com/kalambet/pursuit/internal/dashboard"
	"github.com/kalambet/pursuit/internal/storage"
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// changedFields collects the flags the user actually set into a JSON patch
// body, keyed by field name (flag names with dashes turned into
// underscores).
func changedFields(flags *pflag.FlagSet, names ...string) map[string]any {
	body := map[string]any{}
	for _, name := range names {
		f := flags.Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		key := strings.ReplaceAll(name, "-", "_")
		switch f.Value.Type() {
		case "int":
			body[key], _ = flags.GetInt(name)
		case "bool":
			body[key], _ = flags.GetBool(name)
		default:
			body[key] = f.Value.String()
		}
	}
	return body
}

func listQuery(pairs ...string) string {
	q := url.Values{}
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] != "" {
			q.Set(pairs[i], pairs[i+1])
		}
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// --- dashboard ---

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show streaks, weekly goals and conversion stats",
}

func fetchStats(cmd *cobra.Command) (dashboard.Stats, error) {
	var stats dashboard.Stats
	client, err := newAPIClient()
	if err != nil {
		return stats, err
	}
	resp, err := client.get(cmd.Context(), "/dashboard/stats")
	if err != nil {
		return stats, err
	}
	err = decodeJSON(resp, &stats)
	return stats, err
}

var dashboardStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the full dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		stats, err := fetchStats(cmd)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(stats)
		}
		fmt.Println(renderDashboard(stats))
		return nil
	},
}

var dashboardSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print a one-line summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := fetchStats(cmd)
		if err != nil {
			return err
		}
		fmt.Println(summaryLine(stats))
		return nil
	},
}

func init() {
	dashboardStatsCmd.Flags().Bool("json", false, "print raw JSON")
	dashboardCmd.AddCommand(dashboardStatsCmd, dashboardSummaryCmd)
}

// --- apps ---

var appsCmd = &cobra.Command{
	Use:     "apps",
	Aliases: []string{"applications"},
	Short:   "Track job applications",
}

var appFields = []string{
	"status", "applied-date", "notes", "resume-version", "cover-letter-path",
	"last-contact-date", "next-follow-up-date", "interview-count", "interview-notes",
}

func addAppFlags(cmd *cobra.Command, withLastContact bool) {
	cmd.Flags().String("status", "", "saved, applied, interviewing, rejected, offer or accepted")
	cmd.Flags().String("applied-date", "", "date applied (YYYY-MM-DD)")
	cmd.Flags().String("notes", "", "free-form notes")
	cmd.Flags().String("resume-version", "", "resume version sent")
	cmd.Flags().String("cover-letter-path", "", "path to the cover letter")
	cmd.Flags().String("next-follow-up-date", "", "next follow-up (YYYY-MM-DD)")
	cmd.Flags().Int("interview-count", 0, "number of interviews so far")
	cmd.Flags().String("interview-notes", "", "interview notes")
	if withLastContact {
		cmd.Flags().String("last-contact-date", "", "last contact (YYYY-MM-DD)")
	}
}

var appsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List applications",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/applications"+listQuery("status", status, "limit", fmt.Sprint(limit)))
		if err != nil {
			return err
		}
		var apps []storage.Application
		if err := decodeJSON(resp, &apps); err != nil {
			return err
		}
		if len(apps) == 0 {
			printStep("No applications yet")
			return nil
		}

		rows := make([][]string, 0, len(apps))
		for _, a := range apps {
			rows = append(rows, []string{
				a.ID, string(a.Status), dateOrDash(a.AppliedDate.String(), a.AppliedDate.IsZero()), a.Company, a.JobTitle,
				dateOrDash(a.NextFollowUpDate.String(), a.NextFollowUpDate.IsZero()),
			})
		}
		printTable([]string{"ID", "STATUS", "APPLIED", "COMPANY", "TITLE", "FOLLOW-UP"}, rows)
		return nil
	},
}

func dateOrDash(s string, zero bool) string {
	if zero {
		return "-"
	}
	return s
}

var appsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one application as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return showJSON(cmd, "/applications/"+url.PathEscape(args[0]), &storage.Application{})
	},
}

var appsCreateCmd = &cobra.Command{
	Use:   "create <job-id>",
	Short: "Start tracking an application for a stored posting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body := changedFields(cmd.Flags(), appFields...)
		body["job_id"] = args[0]

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/applications", body)
		if err != nil {
			return err
		}
		var app storage.Application
		if err := decodeJSON(resp, &app); err != nil {
			return err
		}
		printSuccess("Tracking application %s (%s)", app.ID, app.Status)
		return nil
	},
}

var appsUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update fields of an application",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body := changedFields(cmd.Flags(), appFields...)
		if len(body) == 0 {
			return fmt.Errorf("nothing to update; pass at least one field flag")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.patch(cmd.Context(), "/applications/"+url.PathEscape(args[0]), body)
		if err != nil {
			return err
		}
		var app storage.Application
		if err := decodeJSON(resp, &app); err != nil {
			return err
		}
		printSuccess("Updated application %s (%s)", app.ID, app.Status)
		return nil
	},
}

var appsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Stop tracking an application",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return deleteRecord(cmd, "/applications/"+url.PathEscape(args[0]), "application "+args[0])
	},
}

var appsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show application counts and rates",
	RunE: func(cmd *cobra.Command, args []string) error {
		var stats analytics.ApplicationStats
		if err := fetch(cmd, "/applications/stats", &stats); err != nil {
			return err
		}
		printStatus("Total", "%d", stats.Total)
		for _, st := range analytics.ApplicationStatuses {
			printStatus(string(st), "%d", stats.ByStatus[st])
		}
		printStatus("Response rate", "%s", percent(stats.ResponseRate))
		printStatus("Interview rate", "%s", percent(stats.InterviewRate))
		printStatus("Offer rate", "%s", percent(stats.OfferRate))
		return nil
	},
}

func init() {
	appsListCmd.Flags().String("status", "", "filter by status")
	appsListCmd.Flags().Int("limit", 50, "maximum number of applications to list")
	addAppFlags(appsCreateCmd, false)
	addAppFlags(appsUpdateCmd, true)
	appsCmd.AddCommand(appsListCmd, appsShowCmd, appsCreateCmd, appsUpdateCmd, appsDeleteCmd, appsStatsCmd)
}

// --- dealflow ---

var dealflowCmd = &cobra.Command{
	Use:   "dealflow",
	Short: "Track outreach to startups",
}

var dealflowFields = []string{
	"status", "emails-sent", "meetings-held", "notes", "research-summary",
	"outcome", "outcome-reason", "intro-made-to", "intro-date",
}

var dealflowListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pipeline entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		var entries []storage.DealflowEntry
		if err := fetch(cmd, "/dealflow"+listQuery("status", status, "limit", fmt.Sprint(limit)), &entries); err != nil {
			return err
		}
		if len(entries) == 0 {
			printStep("Pipeline is empty")
			return nil
		}

		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, []string{
				e.ID, string(e.Status), e.StartupName, strconv.Itoa(e.EmailsSent), strconv.Itoa(e.MeetingsHeld),
				dateOrDash(e.LastContactDate.String(), e.LastContactDate.IsZero()),
			})
		}
		printTable([]string{"ID", "STATUS", "STARTUP", "EMAILS", "MEETINGS", "LAST CONTACT"}, rows)
		return nil
	},
}

var dealflowShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one pipeline entry as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return showJSON(cmd, "/dealflow/"+url.PathEscape(args[0]), &storage.DealflowEntry{})
	},
}

var dealflowCreateCmd = &cobra.Command{
	Use:   "create <startup-id>",
	Short: "Add a stored startup to the pipeline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body := changedFields(cmd.Flags(), "status", "notes", "research-summary", "intro-made-to", "intro-date")
		body["startup_id"] = args[0]

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/dealflow", body)
		if err != nil {
			return err
		}
		var e storage.DealflowEntry
		if err := decodeJSON(resp, &e); err != nil {
			return err
		}
		printSuccess("Added %s to the pipeline as %s (%s)", contactLabel(e), e.ID, e.Status)
		return nil
	},
}

var dealflowUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update fields of a pipeline entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body := changedFields(cmd.Flags(), dealflowFields...)
		if len(body) == 0 {
			return fmt.Errorf("nothing to update; pass at least one field flag")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.patch(cmd.Context(), "/dealflow/"+url.PathEscape(args[0]), body)
		if err != nil {
			return err
		}
		var e storage.DealflowEntry
		if err := decodeJSON(resp, &e); err != nil {
			return err
		}
		printSuccess("Updated %s (%s)", contactLabel(e), e.Status)
		return nil
	},
}

var dealflowContactCmd = &cobra.Command{
	Use:   "contact <id> <email|meeting>",
	Short: "Log an email or meeting with a startup today",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/dealflow/"+url.PathEscape(args[0])+"/contact", api.ContactRequest{ContactType: args[1]})
		if err != nil {
			return err
		}
		var e storage.DealflowEntry
		if err := decodeJSON(resp, &e); err != nil {
			return err
		}
		printSuccess("Logged %s with %s: %d emails, %d meetings", args[1], contactLabel(e), e.EmailsSent, e.MeetingsHeld)
		return nil
	},
}

func contactLabel(e storage.DealflowEntry) string {
	if e.StartupName != "" {
		return e.StartupName
	}
	return e.StartupID
}

var dealflowDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove an entry from the pipeline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return deleteRecord(cmd, "/dealflow/"+url.PathEscape(args[0]), "dealflow entry "+args[0])
	},
}

var dealflowStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show pipeline counts and conversion rates",
	RunE: func(cmd *cobra.Command, args []string) error {
		var stats analytics.DealflowStats
		if err := fetch(cmd, "/dealflow/stats", &stats); err != nil {
			return err
		}
		printStatus("Total", "%d", stats.Total)
		for _, st := range analytics.DealflowStages {
			printStatus(string(st), "%d", stats.Pipeline[st])
		}
		r := stats.ConversionRates
		printStatus("Sourced→contacted", "%s", percent(r.SourcedToContacted))
		printStatus("Contacted→meeting", "%s", percent(r.ContactedToMeeting))
		printStatus("Meeting→shared", "%s", percent(r.MeetingToShared))
		printStatus("Shared→progressing", "%s", percent(r.SharedToProgressing))
		g := stats.NetworkGrowth
		printStatus("Outreach", "%d emails, %d meetings, %d intros", g.TotalEmailsSent, g.TotalMeetingsHeld, g.IntrosMade)
		return nil
	},
}

func init() {
	dealflowListCmd.Flags().String("status", "", "filter by stage")
	dealflowListCmd.Flags().Int("limit", 50, "maximum number of entries to list")

	dealflowCreateCmd.Flags().String("status", "", "initial stage (default sourced)")
	dealflowCreateCmd.Flags().String("notes", "", "free-form notes")
	dealflowCreateCmd.Flags().String("research-summary", "", "research summary")
	dealflowCreateCmd.Flags().String("intro-made-to", "", "who the startup was introduced to")
	dealflowCreateCmd.Flags().String("intro-date", "", "intro date (YYYY-MM-DD)")

	dealflowUpdateCmd.Flags().String("status", "", "pipeline stage")
	dealflowUpdateCmd.Flags().Int("emails-sent", 0, "emails sent so far")
	dealflowUpdateCmd.Flags().Int("meetings-held", 0, "meetings held so far")
	dealflowUpdateCmd.Flags().String("notes", "", "free-form notes")
	dealflowUpdateCmd.Flags().String("research-summary", "", "research summary")
	dealflowUpdateCmd.Flags().String("outcome", "", "outcome once closed")
	dealflowUpdateCmd.Flags().String("outcome-reason", "", "reason for the outcome")
	dealflowUpdateCmd.Flags().String("intro-made-to", "", "who the startup was introduced to")
	dealflowUpdateCmd.Flags().String("intro-date", "", "intro date (YYYY-MM-DD)")

	dealflowCmd.AddCommand(dealflowListCmd, dealflowShowCmd, dealflowCreateCmd, dealflowUpdateCmd, dealflowContactCmd, dealflowDeleteCmd, dealflowStatsCmd)
}

// --- goals ---

var goalsCmd = &cobra.Command{
	Use:   "goals",
	Short: "Show or set weekly goals",
}

var goalsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show this week's progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		var goals api.GoalsResponse
		if err := fetch(cmd, "/goals", &goals); err != nil {
			return err
		}
		fmt.Printf("Week of %s\n", goals.Jobs.WeekStart)
		fmt.Printf("  %-9s %s\n", "jobs", goalLine(goals.Jobs))
		fmt.Printf("  %-9s %s\n", "dealflow", goalLine(goals.Dealflow))
		return nil
	},
}

var goalsSetCmd = &cobra.Command{
	Use:   "set <jobs|dealflow> <target>",
	Short: "Set the weekly target for a category",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var target int
		if _, err := fmt.Sscan(args[1], &target); err != nil {
			return fmt.Errorf("target must be a number, got %q", args[1])
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.put(cmd.Context(), "/goals", api.GoalRequest{Category: args[0], Target: target})
		if err != nil {
			return err
		}
		var g analytics.WeeklyGoal
		if err := decodeJSON(resp, &g); err != nil {
			return err
		}
		printSuccess("Weekly %s goal set to %d", g.Category, g.Target)
		return nil
	},
}

func init() {
	goalsCmd.AddCommand(goalsShowCmd, goalsSetCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Printf("  %s = %s\n", render(labelStyle, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long:  "Set a configuration value. Valid keys: " + strings.Join(config.ValidKeys(), ", "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Reset a configuration value to its default",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(args[0]); err != nil {
			return err
		}
		printSuccess("Unset %s", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd, configUnsetCmd)
}

// --- shared ---

func fetch(cmd *cobra.Command, path string, v any) error {
	client, err := newAPIClient()
	if err != nil {
		return err
	}
	resp, err := client.get(cmd.Context(), path)
	if err != nil {
		return err
	}
	return decodeJSON(resp, v)
}

func showJSON(cmd *cobra.Command, path string, v any) error {
	if err := fetch(cmd, path, v); err != nil {
		return err
	}
	return printJSON(v)
}

func deleteRecord(cmd *cobra.Command, path, what string) error {
	client, err := newAPIClient()
	if err != nil {
		return err
	}
	resp, err := client.delete(cmd.Context(), path)
	if err != nil {
		return err
	}
	if err := decodeJSON(resp, nil); err != nil {
		return err
	}
	printSuccess("Deleted %s", what)
	return nil
}
