package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/freddie-manatal/sentry-sensei-mcp/internal/credentials"
	"github.com/freddie-manatal/sentry-sensei-mcp/internal/format"
	"github.com/freddie-manatal/sentry-sensei-mcp/internal/jira"
	"github.com/freddie-manatal/sentry-sensei-mcp/internal/protocol"
)

func jiraTicketDetailsTool() mcp.Tool {
	return mcp.NewTool(ToolJiraTicketDetails,
		mcp.WithDescription("Fetch a JIRA ticket with status, assignee, description, recent comments, and whitelisted custom fields."),
		mcp.WithString("ticketKey",
			mcp.Required(),
			mcp.Description("Ticket key, e.g. PROJ-123."),
		),
		mcp.WithBoolean("deepDetails",
			mcp.Description("Widen truncation caps and keep more comments."),
		),
		mcp.WithTitleAnnotation("Get JIRA Ticket Details"),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func jiraEditTicketTool() mcp.Tool {
	return mcp.NewTool(ToolJiraEditTicket,
		mcp.WithDescription("Edit a JIRA ticket: summary, description, labels, custom fields, or add a comment. Plain text with -/• bullet lines is converted to rich-text automatically."),
		mcp.WithString("ticketKey",
			mcp.Required(),
			mcp.Description("Ticket key, e.g. PROJ-123."),
		),
		mcp.WithString("summary",
			mcp.Description("New summary."),
		),
		mcp.WithString("description",
			mcp.Description("New description as plain text."),
		),
		mcp.WithString("comment",
			mcp.Description("Comment to add, as plain text."),
		),
		mcp.WithArray("labels",
			mcp.Description("Replacement label set."),
		),
		mcp.WithObject("fields",
			mcp.Description("Custom field values keyed by field id, e.g. customfield_10001."),
		),
		mcp.WithTitleAnnotation("Edit JIRA Ticket"),
		mcp.WithDestructiveHintAnnotation(true),
	)
}

type jiraTicketDetailsArgs struct {
	TicketKey   string `json:"ticketKey"`
	DeepDetails bool   `json:"deepDetails"`
}

type jiraEditTicketArgs struct {
	TicketKey   string         `json:"ticketKey"`
	Summary     string         `json:"summary"`
	Description string         `json:"description"`
	Comment     string         `json:"comment"`
	Labels      []string       `json:"labels"`
	Fields      map[string]any `json:"fields"`
}

func (r *Registry) handleJiraTicketDetails(ctx context.Context, creds credentials.Credentials, raw json.RawMessage) (*mcp.CallToolResult, error) {
	var args jiraTicketDetailsArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.TicketKey == "" {
		return nil, protocol.NewInvalidParams("ticketKey is required")
	}

	client, err := r.newJira(creds.Jira)
	if err != nil {
		return nil, err
	}
	details, err := client.GetTicketDetails(ctx, args.TicketKey)
	if err != nil {
		return nil, err
	}

	formatted := format.FormatTicket(details, args.DeepDetails)
	return textWithJSON(format.TicketToMarkdown(formatted), formatted)
}

func (r *Registry) handleJiraEditTicket(ctx context.Context, creds credentials.Credentials, raw json.RawMessage) (*mcp.CallToolResult, error) {
	var args jiraEditTicketArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.TicketKey == "" {
		return nil, protocol.NewInvalidParams("ticketKey is required")
	}

	client, err := r.newJira(creds.Jira)
	if err != nil {
		return nil, err
	}
	edit := jira.EditRequest{
		Summary:     args.Summary,
		Description: args.Description,
		Comment:     args.Comment,
		Labels:      args.Labels,
		Fields:      args.Fields,
	}
	if err := client.EditTicket(ctx, args.TicketKey, edit); err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(fmt.Sprintf("Updated %s", args.TicketKey)), nil
}
