// Package sentry wraps the Sentry REST API: one stateless client per
// request, bearer-token auth, bounded timeouts, and the issue search query
// construction rules.
package sentry

// Organization is a Sentry organization summary.
type Organization struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// Project is a Sentry project summary.
type Project struct {
	ID       string `json:"id"`
	Slug     string `json:"slug"`
	Name     string `json:"name"`
	Platform string `json:"platform,omitempty"`
}

// ProjectRef is the project block embedded in an issue.
type ProjectRef struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// Annotation carries an external-tracker link attached to an issue. Sentry
// emits these for linked JIRA tickets.
type Annotation struct {
	DisplayName string `json:"displayName"`
	URL         string `json:"url"`
}

// Assignee is the assignedTo block of an issue.
type Assignee struct {
	Type  string `json:"type,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Issue is a Sentry issue as returned by the issues endpoints. Counts come
// back as strings from the API.
type Issue struct {
	ID        string         `json:"id"`
	ShortID   string         `json:"shortId"`
	Title     string         `json:"title"`
	Culprit   string         `json:"culprit"`
	Level     string         `json:"level"`
	Status    string         `json:"status"`
	Substatus string         `json:"substatus,omitempty"`
	Permalink string         `json:"permalink,omitempty"`
	FirstSeen string         `json:"firstSeen"`
	LastSeen  string         `json:"lastSeen"`
	Count     string         `json:"count"`
	UserCount int            `json:"userCount"`
	Project   ProjectRef     `json:"project"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Platform  string         `json:"platform,omitempty"`
	Type      string         `json:"type,omitempty"`

	Annotations []Annotation `json:"annotations,omitempty"`
	AssignedTo  *Assignee    `json:"assignedTo,omitempty"`

	FirstRelease *Release `json:"firstRelease,omitempty"`
	LastRelease  *Release `json:"lastRelease,omitempty"`

	Stats map[string][][2]float64 `json:"stats,omitempty"`
}

// Release is the release block embedded in issue details.
type Release struct {
	Version string `json:"version"`
}

// TagValue is one value bucket under an issue tag.
type TagValue struct {
	Value     string `json:"value"`
	Count     int    `json:"count"`
	FirstSeen string `json:"firstSeen,omitempty"`
	LastSeen  string `json:"lastSeen,omitempty"`
}

// IssueTag is the per-key tag aggregation for an issue.
type IssueTag struct {
	Key         string     `json:"key"`
	TopValues   []TagValue `json:"topValues"`
	TotalValues int        `json:"totalValues"`
}

// StackFrame is one frame of an event stack trace. Sentry orders frames
// innermost-last.
type StackFrame struct {
	Filename string `json:"filename"`
	Function string `json:"function"`
	LineNo   int    `json:"lineNo"`
}

// Stacktrace is the frames container inside an exception value.
type Stacktrace struct {
	Frames []StackFrame `json:"frames"`
}

// ExceptionValue is one exception within an event entry.
type ExceptionValue struct {
	Type       string      `json:"type"`
	Value      string      `json:"value"`
	Stacktrace *Stacktrace `json:"stacktrace,omitempty"`
}

// EntryData is the payload of an event entry.
type EntryData struct {
	Values []ExceptionValue `json:"values,omitempty"`
	Frames []StackFrame     `json:"frames,omitempty"`
}

// Entry is one typed section of an event.
type Entry struct {
	Type string    `json:"type"`
	Data EntryData `json:"data"`
}

// Event is the latest-event payload for an issue, reduced to the fields the
// formatters read.
type Event struct {
	EventID     string     `json:"eventID"`
	DateCreated string     `json:"dateCreated,omitempty"`
	Entries     []Entry    `json:"entries,omitempty"`
	Tags        []EventKV  `json:"tags,omitempty"`
	User        *EventUser `json:"user,omitempty"`
}

// EventUser is the user block of an event.
type EventUser struct {
	ID       string `json:"id,omitempty"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

// EventKV is a key/value tag on an event.
type EventKV struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}
