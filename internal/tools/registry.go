// Package tools is the tool catalog: one enum-keyed table of schema plus
// handler per tool, resolved once at startup. The dispatcher only ever sees
// the ToolSet surface.
package tools

import (
	"sort"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/freddie-manatal/sentry-sensei-mcp/internal/config"
	"github.com/freddie-manatal/sentry-sensei-mcp/internal/credentials"
	"github.com/freddie-manatal/sentry-sensei-mcp/internal/jira"
	"github.com/freddie-manatal/sentry-sensei-mcp/internal/protocol"
	"github.com/freddie-manatal/sentry-sensei-mcp/internal/sentry"
)

// Tool names, stable across releases. Clients key on these.
const (
	ToolSentryOrganizations = "get_sentry_organizations"
	ToolSentryProjects      = "get_sentry_projects"
	ToolSentryIssues        = "get_sentry_issues"
	ToolSentryIssueDetails  = "get_sentry_issue_details"
	ToolJiraTicketDetails   = "get_jira_ticket_details"
	ToolJiraEditTicket      = "edit_jira_ticket"
	ToolCurrentDatetime     = "get_current_datetime"
)

// Definition pairs a tool's advertised schema with its handler.
type Definition struct {
	Tool    mcp.Tool
	Handler protocol.ToolFunc
}

// Registry implements protocol.ToolSet over the static definition table.
type Registry struct {
	defs   map[string]Definition
	logger *zap.Logger
	now    func() time.Time

	newSentry func(credentials.Sentry) (*sentry.Client, error)
	newJira   func(credentials.Jira) (*jira.Client, error)
}

// Option adjusts registry construction, mainly for tests.
type Option func(*Registry)

// WithClock fixes the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithSentryFactory swaps the Sentry client constructor.
func WithSentryFactory(f func(credentials.Sentry) (*sentry.Client, error)) Option {
	return func(r *Registry) { r.newSentry = f }
}

// WithJiraFactory swaps the JIRA client constructor.
func WithJiraFactory(f func(credentials.Jira) (*jira.Client, error)) Option {
	return func(r *Registry) { r.newJira = f }
}

// New builds the catalog, honoring the configured disabled set.
func New(cfg config.Config, logger *zap.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		defs:   make(map[string]Definition),
		logger: logger,
		now:    time.Now,
	}
	r.newSentry = func(creds credentials.Sentry) (*sentry.Client, error) {
		return sentry.NewClient(creds, sentry.WithClock(func() time.Time { return r.now() }))
	}
	r.newJira = func(creds credentials.Jira) (*jira.Client, error) {
		return jira.NewClient(creds, jira.WithLogger(r.logger))
	}
	for _, opt := range opts {
		opt(r)
	}

	for _, def := range r.definitions() {
		if cfg.ToolDisabled(def.Tool.Name) {
			logger.Info("tool disabled by config", zap.String("tool", def.Tool.Name))
			continue
		}
		r.defs[def.Tool.Name] = def
	}
	return r
}

// Lookup returns the handler for a registered tool.
func (r *Registry) Lookup(name string) (protocol.ToolFunc, bool) {
	def, ok := r.defs[name]
	if !ok {
		return nil, false
	}
	return def.Handler, true
}

// Descriptors returns the advertised catalog sorted by name.
func (r *Registry) Descriptors() []map[string]any {
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]map[string]any, 0, len(names))
	for _, name := range names {
		out = append(out, toolDescriptor(r.defs[name].Tool))
	}
	return out
}

func toolDescriptor(tool mcp.Tool) map[string]any {
	descriptor := map[string]any{
		"name": tool.Name,
	}
	if tool.Description != "" {
		descriptor["description"] = tool.Description
	}
	if tool.InputSchema.Type != "" || len(tool.InputSchema.Properties) > 0 || len(tool.InputSchema.Required) > 0 {
		descriptor["inputSchema"] = tool.InputSchema
	}
	descriptor["annotations"] = normalizeAnnotations(tool)
	return descriptor
}

// normalizeAnnotations fills every hint explicitly so clients never have to
// guess a default.
func normalizeAnnotations(tool mcp.Tool) map[string]any {
	annotations := make(map[string]any, 5)
	existing := tool.Annotations

	if existing.Title != "" {
		annotations["title"] = existing.Title
	}
	annotations["readOnlyHint"] = boolHint(existing.ReadOnlyHint)
	annotations["destructiveHint"] = boolHint(existing.DestructiveHint)
	annotations["idempotentHint"] = boolHint(existing.IdempotentHint)
	annotations["openWorldHint"] = boolHint(existing.OpenWorldHint)
	return annotations
}

func boolHint(hint *bool) bool {
	if hint == nil {
		return false
	}
	return *hint
}

func (r *Registry) definitions() []Definition {
	return []Definition{
		{Tool: sentryOrganizationsTool(), Handler: r.handleSentryOrganizations},
		{Tool: sentryProjectsTool(), Handler: r.handleSentryProjects},
		{Tool: sentryIssuesTool(), Handler: r.handleSentryIssues},
		{Tool: sentryIssueDetailsTool(), Handler: r.handleSentryIssueDetails},
		{Tool: jiraTicketDetailsTool(), Handler: r.handleJiraTicketDetails},
		{Tool: jiraEditTicketTool(), Handler: r.handleJiraEditTicket},
		{Tool: currentDatetimeTool(), Handler: r.handleCurrentDatetime},
	}
}
