package format

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/freddie-manatal/sentry-sensei-mcp/internal/jira"
)

// customFieldWhitelist is the fixed set of custom fields surfaced in ticket
// output, keyed by resolved display name.
var customFieldWhitelist = map[string]struct{}{
	"Sprint":       {},
	"Story Points": {},
	"Epic Link":    {},
	"Team":         {},
	"Severity":     {},
	"Environment":  {},
}

// jiraCreatedFormat is how JIRA serializes timestamps.
const jiraCreatedFormat = "2006-01-02T15:04:05.000-0700"

// FormattedComment is one bounded comment for display, oldest first in the
// enclosing slice.
type FormattedComment struct {
	Author string `json:"author"`
	Date   string `json:"date"`
	Time   string `json:"time,omitempty"`
	Body   string `json:"body"`
}

// FormattedTicket is the bounded projection of a ticket.
type FormattedTicket struct {
	Key         string `json:"key"`
	Summary     string `json:"summary"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty"`
	Priority    string `json:"priority,omitempty"`
	IssueType   string `json:"issueType,omitempty"`
	Resolution  string `json:"resolution,omitempty"`
	Assignee    string `json:"assignee,omitempty"`
	Reporter    string `json:"reporter,omitempty"`
	Created     string `json:"created,omitempty"`
	Updated     string `json:"updated,omitempty"`
	DueDate     string `json:"dueDate,omitempty"`
	TimeSpent   string `json:"timeSpent,omitempty"`

	Labels   []string           `json:"labels,omitempty"`
	Comments []FormattedComment `json:"comments,omitempty"`

	// CustomFields is keyed by display name, whitelisted fields only.
	CustomFields map[string]string `json:"customFields,omitempty"`
}

// FormatTicket builds the bounded projection. details.Fields may be nil;
// custom fields are then omitted rather than guessed from raw ids.
func FormatTicket(details *jira.TicketDetails, deep bool) FormattedTicket {
	caps := CapsFor(deep)
	ticket := details.Ticket
	fields := ticket.Fields

	ft := FormattedTicket{
		Key:         ticket.Key,
		Summary:     fields.Summary,
		Description: truncate(jira.ExtractText(fields.Description), caps.DescriptionChars),
		Created:     fields.Created,
		Updated:     fields.Updated,
		DueDate:     fields.DueDate,
		Labels:      fields.Labels,
		TimeSpent:   formatTimeSpent(fields.TimeSpent),
	}
	if fields.Status != nil {
		ft.Status = fields.Status.Name
	}
	if fields.Priority != nil {
		ft.Priority = fields.Priority.Name
	}
	if fields.IssueType != nil {
		ft.IssueType = fields.IssueType.Name
	}
	if fields.Resolution != nil {
		ft.Resolution = fields.Resolution.Name
	}
	if fields.Assignee != nil {
		ft.Assignee = fields.Assignee.DisplayName
	}
	if fields.Reporter != nil {
		ft.Reporter = fields.Reporter.DisplayName
	}
	if fields.Comment != nil {
		ft.Comments = formatComments(fields.Comment.Comments, caps)
	}
	ft.CustomFields = formatCustomFields(fields.Extra, details.Fields)
	return ft
}

// formatComments keeps the last kept comments and reverses them back to
// chronological-ascending order for display.
func formatComments(comments []jira.Comment, caps Caps) []FormattedComment {
	if len(comments) > caps.CommentsKept {
		comments = comments[len(comments)-caps.CommentsKept:]
	}
	out := make([]FormattedComment, 0, len(comments))
	for _, c := range comments {
		date, clock := splitCreated(c.Created)
		out = append(out, FormattedComment{
			Author: c.Author.DisplayName,
			Date:   date,
			Time:   clock,
			Body:   truncate(jira.ExtractText(c.Body), caps.CommentChars),
		})
	}
	return out
}

func splitCreated(created string) (string, string) {
	t, err := time.Parse(jiraCreatedFormat, created)
	if err != nil {
		return created, ""
	}
	return t.Format("2006-01-02"), t.Format("15:04")
}

// formatTimeSpent renders seconds as "Hh Mm", or "Mm" under an hour.
func formatTimeSpent(seconds int) string {
	if seconds <= 0 {
		return ""
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	if hours == 0 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

// formatCustomFields resolves field ids to display names through the field
// metadata and keeps whitelisted names only. Without metadata nothing is
// surfaced.
func formatCustomFields(extra map[string]any, meta map[string]jira.FieldMeta) map[string]string {
	if len(extra) == 0 || meta == nil {
		return nil
	}
	var out map[string]string
	for id, value := range extra {
		fieldMeta, ok := meta[id]
		if !ok || value == nil {
			continue
		}
		if _, wanted := customFieldWhitelist[fieldMeta.Name]; !wanted {
			continue
		}
		rendered := renderFieldValue(value, fieldMeta.Schema)
		if rendered == "" {
			continue
		}
		if out == nil {
			out = map[string]string{}
		}
		out[fieldMeta.Name] = rendered
	}
	return out
}

// renderFieldValue formats a raw field value according to its declared
// schema type.
func renderFieldValue(value any, schema *jira.FieldSchema) string {
	schemaType := ""
	if schema != nil {
		schemaType = schema.Type
	}
	switch schemaType {
	case "user":
		return objectName(value, "displayName")
	case "array":
		items, ok := value.([]any)
		if !ok {
			return stringify(value)
		}
		parts := make([]string, 0, len(items))
		for _, item := range items {
			if s := renderArrayItem(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case "option", "priority", "status":
		if s := objectName(value, "value"); s != "" {
			return s
		}
		return objectName(value, "name")
	default:
		return stringify(value)
	}
}

// renderArrayItem handles sprint-like objects carrying {name, state}.
func renderArrayItem(item any) string {
	obj, ok := item.(map[string]any)
	if !ok {
		return stringify(item)
	}
	name, _ := obj["name"].(string)
	if name == "" {
		if v, ok := obj["value"].(string); ok {
			return v
		}
		return stringify(item)
	}
	if state, ok := obj["state"].(string); ok && state != "" {
		return fmt.Sprintf("%s (%s)", name, state)
	}
	return name
}

func objectName(value any, key string) string {
	obj, ok := value.(map[string]any)
	if !ok {
		return stringify(value)
	}
	if s, ok := obj[key].(string); ok {
		return s
	}
	return ""
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	case bool:
		return fmt.Sprintf("%t", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// TicketToMarkdown renders the human-facing ticket summary with a fixed line
// order.
func TicketToMarkdown(ft FormattedTicket) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s: %s\n\n", ft.Key, ft.Summary)

	writeLine := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&sb, "- **%s**: %s\n", label, value)
		}
	}
	writeLine("Status", ft.Status)
	writeLine("Priority", ft.Priority)
	writeLine("Type", ft.IssueType)
	writeLine("Resolution", ft.Resolution)
	writeLine("Assignee", ft.Assignee)
	writeLine("Reporter", ft.Reporter)
	writeLine("Created", ft.Created)
	writeLine("Updated", ft.Updated)
	writeLine("Due date", ft.DueDate)
	writeLine("Time spent", ft.TimeSpent)
	if len(ft.Labels) > 0 {
		writeLine("Labels", strings.Join(ft.Labels, ", "))
	}

	if len(ft.CustomFields) > 0 {
		sb.WriteString("\n### Fields\n")
		for _, name := range sortedKeys(ft.CustomFields) {
			fmt.Fprintf(&sb, "- **%s**: %s\n", name, ft.CustomFields[name])
		}
	}

	if ft.Description != "" {
		sb.WriteString("\n### Description\n")
		sb.WriteString(ft.Description)
		sb.WriteString("\n")
	}

	if len(ft.Comments) > 0 {
		sb.WriteString("\n### Comments\n")
		for _, c := range ft.Comments {
			when := c.Date
			if c.Time != "" {
				when += " " + c.Time
			}
			fmt.Fprintf(&sb, "- **%s** (%s): %s\n", c.Author, when, c.Body)
		}
	}

	return strings.TrimRight(sb.String(), "\n")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
