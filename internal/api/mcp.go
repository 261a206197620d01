package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/pursuit/internal/dashboard"
	"github.com/kalambet/pursuit/internal/dedup"
	"github.com/kalambet/pursuit/internal/ingest"
	"github.com/kalambet/pursuit/internal/tracker"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Dashboard *dashboard.Service
	Ingester  *ingest.Ingester
	Tracker   *tracker.Service
}

// NewMCPServer creates an MCP server with the pursuit tools and the
// dashboard resource registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"pursuit",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("pursuit tracks a job search and a startup dealflow pipeline: streaks, weekly goals, conversion funnels."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("dashboard_stats",
			mcp.WithDescription("Return streaks, weekly goal progress and conversion stats for jobs and dealflow."),
		),
		mcpDashboardStats(deps),
	)

	s.AddTool(
		mcp.NewTool("check_duplicate",
			mcp.WithDescription("Check whether a job posting or startup is already tracked. Nothing is stored."),
			mcp.WithString("kind", mcp.Description("jobs or startups"), mcp.Required()),
			mcp.WithString("title", mcp.Description("Job title, or startup name")),
			mcp.WithString("company", mcp.Description("Company name (jobs only)")),
			mcp.WithString("url", mcp.Description("Posting URL or startup website")),
		),
		mcpCheckDuplicate(deps),
	)

	s.AddTool(
		mcp.NewTool("log_contact",
			mcp.WithDescription("Record an email or meeting with a startup in the dealflow pipeline today."),
			mcp.WithString("dealflow_id", mcp.Description("Dealflow entry ID"), mcp.Required()),
			mcp.WithString("contact_type", mcp.Description("email or meeting"), mcp.Required()),
		),
		mcpLogContact(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"pursuit://dashboard",
			"Dashboard",
			mcp.WithResourceDescription("Current dashboard stats as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceDashboard(deps),
	)

	return s
}

func mcpDashboardStats(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stats, err := deps.Dashboard.Stats()
		if err != nil {
			return mcpError(fmt.Sprintf("failed to compute stats: %v", err)), nil
		}
		b, err := json.Marshal(stats)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal stats: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpCheckDuplicate(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		rawKind, err := req.RequireString("kind")
		if err != nil {
			return mcpError("kind is required"), nil
		}
		kind, err := ingest.ParseKind(rawKind)
		if err != nil {
			return mcpError(err.Error()), nil
		}

		c := dedup.Candidate{
			Title:   req.GetString("title", ""),
			Company: req.GetString("company", ""),
			URL:     req.GetString("url", ""),
			Source:  "mcp",
		}
		if c.Title == "" && c.URL == "" {
			return mcpError("title or url is required"), nil
		}

		d, err := deps.Ingester.Check(kind, c)
		if err != nil {
			return mcpError(fmt.Sprintf("check failed: %v", err)), nil
		}
		b, err := json.Marshal(d)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal decision: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpLogContact(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("dealflow_id")
		if err != nil {
			return mcpError("dealflow_id is required"), nil
		}
		kind, err := req.RequireString("contact_type")
		if err != nil {
			return mcpError("contact_type is required"), nil
		}

		e, err := deps.Tracker.LogContact(id, kind)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to log contact: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Logged %s with %s: %d emails, %d meetings", kind, contactName(e.StartupName, e.StartupID), e.EmailsSent, e.MeetingsHeld)), nil
	}
}

func contactName(name, id string) string {
	if name != "" {
		return name
	}
	return id
}

func mcpResourceDashboard(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		stats, err := deps.Dashboard.Stats()
		if err != nil {
			return nil, fmt.Errorf("failed to compute stats: %w", err)
		}

		b, err := json.Marshal(stats)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal stats: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
