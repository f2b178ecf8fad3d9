// Package jira wraps the JIRA Cloud REST API v3: Basic-auth client,
// field-metadata discovery with per-client memoization, and the Atlassian
// Document Format conversion both directions.
package jira

// User is a JIRA account reference.
type User struct {
	AccountID    string `json:"accountId,omitempty"`
	DisplayName  string `json:"displayName,omitempty"`
	EmailAddress string `json:"emailAddress,omitempty"`
}

// NamedValue covers the many JIRA fields that are {name: ...} objects
// (status, priority, issue type, resolution).
type NamedValue struct {
	Name string `json:"name"`
}

// Comment is one issue comment. Body is a raw ADF document.
type Comment struct {
	ID      string         `json:"id"`
	Author  User           `json:"author"`
	Body    map[string]any `json:"body"`
	Created string         `json:"created"`
	Updated string         `json:"updated,omitempty"`
}

// CommentPage is the paged comment container inside issue fields.
type CommentPage struct {
	Comments []Comment `json:"comments"`
	Total    int       `json:"total"`
}

// TicketFields is the fields block of an issue. Description is raw ADF;
// Extra catches custom fields for schema-driven formatting.
type TicketFields struct {
	Summary     string         `json:"summary"`
	Description map[string]any `json:"description,omitempty"`
	Status      *NamedValue    `json:"status,omitempty"`
	Priority    *NamedValue    `json:"priority,omitempty"`
	IssueType   *NamedValue    `json:"issuetype,omitempty"`
	Resolution  *NamedValue    `json:"resolution,omitempty"`
	Assignee    *User          `json:"assignee,omitempty"`
	Reporter    *User          `json:"reporter,omitempty"`
	Created     string         `json:"created,omitempty"`
	Updated     string         `json:"updated,omitempty"`
	DueDate     string         `json:"duedate,omitempty"`
	Labels      []string       `json:"labels,omitempty"`
	TimeSpent   int            `json:"timespent,omitempty"`
	Comment     *CommentPage   `json:"comment,omitempty"`

	// Extra holds every field not named above, keyed by field id
	// (customfield_NNNNN and the rest).
	Extra map[string]any `json:"-"`
}

// Ticket is one JIRA issue.
type Ticket struct {
	ID     string       `json:"id"`
	Key    string       `json:"key"`
	Self   string       `json:"self,omitempty"`
	Fields TicketFields `json:"fields"`
}

// FieldSchema describes a field's value shape from the field metadata
// endpoints.
type FieldSchema struct {
	Type   string `json:"type"`
	Items  string `json:"items,omitempty"`
	Custom string `json:"custom,omitempty"`
}

// FieldMeta is one entry from GET /rest/api/3/field or an editmeta response.
type FieldMeta struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	Custom bool         `json:"custom"`
	Schema *FieldSchema `json:"schema,omitempty"`
}

// TicketDetails pairs a ticket with whatever field metadata was available.
// Fields may be nil when metadata lookup failed; formatting degrades to raw
// field ids.
type TicketDetails struct {
	Ticket *Ticket
	Fields map[string]FieldMeta
}

// EditRequest is the input to EditTicket. Description and Comment are plain
// text and get converted to ADF; Fields maps custom field ids to values,
// with strings for rich-text fields converted the same way.
type EditRequest struct {
	Summary     string
	Description string
	Comment     string
	Labels      []string
	Fields      map[string]any
}
