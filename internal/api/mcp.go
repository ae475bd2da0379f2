package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/reportlocator/internal/locator"
)

const recentLookupsURI = "lookups://recent"

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Locator Locator
	History History // optional; if nil the lookups resource is not registered
	Version string
}

// NewMCPServer creates an MCP server exposing report lookup as tools.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s := server.NewMCPServer(
		"reportlocator",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("reportlocator finds a case report by case number across every database of the cluster."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("find_report",
			mcp.WithDescription("Find the case report with the given case number. Returns the database it was found in and the full record."),
			mcp.WithString("case_number", mcp.Description("Exact case number to look up"), mcp.Required()),
		),
		mcpFindReport(deps),
	)

	s.AddTool(
		mcp.NewTool("list_databases",
			mcp.WithDescription("List the databases that are searched for case reports."),
		),
		mcpListDatabases(deps),
	)

	if deps.History != nil {
		s.AddResource(
			mcp.NewResource(
				recentLookupsURI,
				"Recent Lookups",
				mcp.WithResourceDescription("Last 10 report lookups and their outcome"),
				mcp.WithMIMEType("application/json"),
			),
			mcpResourceRecentLookups(deps),
		)
	}

	return s
}

func mcpFindReport(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		caseNumber, err := req.RequireString("case_number")
		if err != nil {
			return mcpError(msgCaseNumberRequired), nil
		}

		res, err := deps.Locator.Locate(ctx, caseNumber)
		switch {
		case errors.Is(err, locator.ErrInvalidArgument):
			return mcpError(msgCaseNumberRequired), nil
		case errors.Is(err, locator.ErrNotFound):
			return mcpError(msgReportNotFound), nil
		case err != nil:
			slog.Error("mcp find_report", "case_number", caseNumber, "error", err)
			return mcpError(msgInternal), nil
		}

		b, err := json.Marshal(res)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal report: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpListDatabases(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbs, err := deps.Locator.Catalog(ctx)
		if err != nil {
			slog.Error("mcp list_databases", "error", err)
			return mcpError(msgInternal), nil
		}
		if dbs == nil {
			dbs = []string{}
		}
		b, err := json.Marshal(dbs)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal databases: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceRecentLookups(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		lookups, err := deps.History.RecentLookups(ctx, 10)
		if err != nil {
			return nil, fmt.Errorf("failed to get recent lookups: %w", err)
		}

		type lookupSummary struct {
			CaseNumber string `json:"case_number"`
			Outcome    string `json:"outcome"`
			Database   string `json:"database,omitempty"`
			At         string `json:"at"`
		}
		summaries := make([]lookupSummary, len(lookups))
		for i, l := range lookups {
			summaries[i] = lookupSummary{
				CaseNumber: l.CaseNumber,
				Outcome:    l.Outcome,
				Database:   l.Database,
				At:         l.CreatedAt.Format(time.RFC3339),
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal lookups: %w", err)
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
