package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/freddie-manatal/sentry-sensei-mcp/internal/credentials"
	"github.com/freddie-manatal/sentry-sensei-mcp/internal/format"
	"github.com/freddie-manatal/sentry-sensei-mcp/internal/protocol"
	"github.com/freddie-manatal/sentry-sensei-mcp/internal/sentry"
)

func sentryOrganizationsTool() mcp.Tool {
	return mcp.NewTool(ToolSentryOrganizations,
		mcp.WithDescription("List Sentry organizations visible to the configured token."),
		mcp.WithTitleAnnotation("Get Sentry Organizations"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
	)
}

func sentryProjectsTool() mcp.Tool {
	return mcp.NewTool(ToolSentryProjects,
		mcp.WithDescription("List projects in a Sentry organization."),
		mcp.WithString("organizationSlug",
			mcp.Description("Organization slug. Defaults to the configured organization."),
		),
		mcp.WithTitleAnnotation("Get Sentry Projects"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
	)
}

func sentryIssuesTool() mcp.Tool {
	return mcp.NewTool(ToolSentryIssues,
		mcp.WithDescription("Search Sentry issues with project, environment, date, and text filters. Defaults to unresolved issues from the previous calendar week."),
		mcp.WithString("organizationSlug",
			mcp.Description("Organization slug. Defaults to the configured organization."),
		),
		mcp.WithArray("project",
			mcp.Description("Project id(s) to filter by. Accepts a single id or an array."),
		),
		mcp.WithArray("environment",
			mcp.Description("Environment name(s) to filter by."),
		),
		mcp.WithString("query",
			mcp.Description("Raw search query. Replaces the constructed query entirely, including the is:unresolved default."),
		),
		mcp.WithString("errorMessage",
			mcp.Description("Free-text message filter added to the constructed query."),
		),
		mcp.WithString("excludeErrorType",
			mcp.Description("Error type to exclude from results."),
		),
		mcp.WithString("issueId",
			mcp.Description("Restrict the search to one issue id."),
		),
		mcp.WithString("dateFrom",
			mcp.Description("Start bound, YYYY-MM-DD or YYYY-MM-DDTHH:MM:SS (UTC)."),
		),
		mcp.WithString("dateTo",
			mcp.Description("End bound, YYYY-MM-DD or YYYY-MM-DDTHH:MM:SS (UTC)."),
		),
		mcp.WithNumber("relativeDays",
			mcp.Description("Last N days: start of day N days ago through end of today. Overrides dateFrom/dateTo."),
		),
		mcp.WithString("statsPeriod",
			mcp.Description("Named relative period like 24h or 14d. Takes precedence over explicit dates."),
		),
		mcp.WithString("sortBy",
			mcp.Description("Sort key: date, new, freq, priority, or user."),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum issues to return."),
		),
		mcp.WithString("cursor",
			mcp.Description("Pagination cursor from a previous page."),
		),
		mcp.WithTitleAnnotation("Get Sentry Issues"),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func sentryIssueDetailsTool() mcp.Tool {
	return mcp.NewTool(ToolSentryIssueDetails,
		mcp.WithDescription("Fetch one Sentry issue with optional tag summary and latest-event stack trace."),
		mcp.WithString("issueId",
			mcp.Required(),
			mcp.Description("Numeric issue id."),
		),
		mcp.WithString("organizationSlug",
			mcp.Description("Organization slug. Defaults to the configured organization."),
		),
		mcp.WithString("environment",
			mcp.Description("Scope the tag summary to one environment."),
		),
		mcp.WithBoolean("includeTags",
			mcp.Description("Include the tag summary. Defaults to true."),
		),
		mcp.WithBoolean("includeStackTrace",
			mcp.Description("Include the latest-event stack trace. Defaults to true."),
		),
		mcp.WithBoolean("deepDetails",
			mcp.Description("Widen truncation caps for a larger, more complete response."),
		),
		mcp.WithTitleAnnotation("Get Sentry Issue Details"),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

type sentryIssuesArgs struct {
	OrganizationSlug string     `json:"organizationSlug"`
	Project          StringList `json:"project"`
	Environment      StringList `json:"environment"`
	Query            *string    `json:"query"`
	ErrorMessage     string     `json:"errorMessage"`
	ExcludeErrorType string     `json:"excludeErrorType"`
	IssueID          string     `json:"issueId"`
	DateFrom         string     `json:"dateFrom"`
	DateTo           string     `json:"dateTo"`
	RelativeDays     int        `json:"relativeDays"`
	StatsPeriod      string     `json:"statsPeriod"`
	SortBy           string     `json:"sortBy"`
	Limit            int        `json:"limit"`
	Cursor           string     `json:"cursor"`
}

type sentryIssueDetailsArgs struct {
	IssueID           string `json:"issueId"`
	OrganizationSlug  string `json:"organizationSlug"`
	Environment       string `json:"environment"`
	IncludeTags       *bool  `json:"includeTags"`
	IncludeStackTrace *bool  `json:"includeStackTrace"`
	DeepDetails       bool   `json:"deepDetails"`
}

func (r *Registry) handleSentryOrganizations(ctx context.Context, creds credentials.Credentials, _ json.RawMessage) (*mcp.CallToolResult, error) {
	client, err := r.newSentry(creds.Sentry)
	if err != nil {
		return nil, err
	}
	orgs, err := client.GetOrganizations(ctx)
	if err != nil {
		return nil, err
	}
	return textWithJSON(fmt.Sprintf("Found %d organizations", len(orgs)), orgs)
}

func (r *Registry) handleSentryProjects(ctx context.Context, creds credentials.Credentials, raw json.RawMessage) (*mcp.CallToolResult, error) {
	var args struct {
		OrganizationSlug string `json:"organizationSlug"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	client, err := r.newSentry(creds.Sentry)
	if err != nil {
		return nil, err
	}
	projects, err := client.GetProjects(ctx, args.OrganizationSlug)
	if err != nil {
		return nil, err
	}
	return textWithJSON(fmt.Sprintf("Found %d projects", len(projects)), projects)
}

func (r *Registry) handleSentryIssues(ctx context.Context, creds credentials.Credentials, raw json.RawMessage) (*mcp.CallToolResult, error) {
	var args sentryIssuesArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	opts := sentry.IssuesOptions{
		Query:            args.Query,
		ErrorMessage:     args.ErrorMessage,
		ExcludeErrorType: args.ExcludeErrorType,
		IssueID:          args.IssueID,
		Project:          args.Project,
		Environment:      args.Environment,
		SortBy:           args.SortBy,
		Limit:            args.Limit,
		Cursor:           args.Cursor,
		StatsPeriod:      args.StatsPeriod,
	}

	switch {
	case args.RelativeDays > 0:
		now := r.now().UTC()
		opts.DateFrom = dayStart(now.AddDate(0, 0, -args.RelativeDays))
		opts.DateTo = dayEnd(now)
	default:
		if args.DateFrom != "" {
			from, err := parseDateBound(args.DateFrom, false)
			if err != nil {
				return nil, err
			}
			opts.DateFrom = from
		}
		if args.DateTo != "" {
			to, err := parseDateBound(args.DateTo, true)
			if err != nil {
				return nil, err
			}
			opts.DateTo = to
		}
	}

	client, err := r.newSentry(creds.Sentry)
	if err != nil {
		return nil, err
	}
	issues, err := client.GetIssues(ctx, args.OrganizationSlug, opts)
	if err != nil {
		return nil, err
	}
	return textWithJSON(fmt.Sprintf("Found %d issues", len(issues)), format.FormatIssues(issues))
}

func (r *Registry) handleSentryIssueDetails(ctx context.Context, creds credentials.Credentials, raw json.RawMessage) (*mcp.CallToolResult, error) {
	var args sentryIssueDetailsArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.IssueID == "" {
		return nil, protocol.NewInvalidParams("issueId is required")
	}
	includeTags := args.IncludeTags == nil || *args.IncludeTags
	includeTrace := args.IncludeStackTrace == nil || *args.IncludeStackTrace

	client, err := r.newSentry(creds.Sentry)
	if err != nil {
		return nil, err
	}

	issue, err := client.GetIssueDetails(ctx, args.OrganizationSlug, args.IssueID)
	if err != nil {
		return nil, err
	}

	// enrichments are independent and best-effort: a failure is logged and
	// the matching section is left out
	var (
		tags  []sentry.IssueTag
		event *sentry.Event
	)
	g, gctx := errgroup.WithContext(ctx)
	if includeTags {
		g.Go(func() error {
			fetched, err := client.GetIssueTags(gctx, args.OrganizationSlug, args.IssueID, args.Environment)
			if err != nil {
				r.logger.Warn("tags fetch failed, continuing without tag summary",
					zap.String("issue", args.IssueID), zap.Error(err))
				return nil
			}
			tags = fetched
			return nil
		})
	}
	if includeTrace {
		g.Go(func() error {
			fetched, err := client.GetLatestEventForIssue(gctx, args.OrganizationSlug, args.IssueID)
			if err != nil {
				r.logger.Warn("latest event fetch failed, continuing without stack trace",
					zap.String("issue", args.IssueID), zap.Error(err))
				return nil
			}
			event = fetched
			return nil
		})
	}
	_ = g.Wait()

	formatted := format.FormatIssueDetails(*issue, tags, event, args.DeepDetails)
	return textWithJSON(format.IssueToMarkdown(formatted), formatted)
}

// textWithJSON renders the standard tool result shape: a human-readable
// summary line or markdown block followed by the formatted JSON.
func textWithJSON(summary string, payload any) (*mcp.CallToolResult, error) {
	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(summary + "\n\n" + string(encoded)), nil
}
