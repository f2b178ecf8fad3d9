package sentry

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DateFormat is how start/end bounds are serialized to the API.
const DateFormat = "2006-01-02T15:04:05"

// IssuesOptions are the discrete filters for the issue search endpoint.
type IssuesOptions struct {
	// Query, when non-nil, fully replaces the constructed search string,
	// including the is:unresolved default. An explicit empty string is a
	// valid override.
	Query *string

	ErrorMessage     string
	ExcludeErrorType string
	IssueID          string

	Project     []string
	Environment []string
	Collapse    []string
	Expand      []string

	SortBy string
	Limit  int
	Cursor string

	// StatsPeriod (relative, e.g. "7d") suppresses DateFrom/DateTo.
	StatsPeriod string
	DateFrom    time.Time
	DateTo      time.Time
}

// BuildSearchQuery assembles the search string from the discrete filters.
func BuildSearchQuery(opts IssuesOptions) string {
	if opts.Query != nil {
		return *opts.Query
	}
	parts := []string{"is:unresolved"}
	if opts.ErrorMessage != "" {
		parts = append(parts, fmt.Sprintf("message:%q", opts.ErrorMessage))
	}
	if opts.ExcludeErrorType != "" {
		parts = append(parts, fmt.Sprintf("!error.type:%q", opts.ExcludeErrorType))
	}
	if opts.IssueID != "" {
		parts = append(parts, "issue:"+opts.IssueID)
	}
	return strings.Join(parts, " ")
}

// PreviousCalendarWeek returns the immediately preceding Monday 00:00:00
// through Sunday 23:59:59, both UTC. This is the date default when neither
// statsPeriod nor explicit bounds are supplied.
func PreviousCalendarWeek(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	// days since this week's Monday (Monday=0 ... Sunday=6)
	sinceMonday := (int(now.Weekday()) + 6) % 7
	thisMonday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).
		AddDate(0, 0, -sinceMonday)
	start := thisMonday.AddDate(0, 0, -7)
	end := thisMonday.AddDate(0, 0, -1)
	end = time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, 0, time.UTC)
	return start, end
}

// buildIssuesParams serializes the options. Multi-valued filters repeat the
// parameter; they are never comma-joined.
func buildIssuesParams(opts IssuesOptions, now time.Time) url.Values {
	params := url.Values{}
	params.Set("query", BuildSearchQuery(opts))

	for _, p := range opts.Project {
		params.Add("project", p)
	}
	for _, e := range opts.Environment {
		params.Add("environment", e)
	}
	for _, c := range opts.Collapse {
		params.Add("collapse", c)
	}
	for _, e := range opts.Expand {
		params.Add("expand", e)
	}

	if opts.SortBy != "" {
		params.Set("sort", opts.SortBy)
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Cursor != "" {
		params.Set("cursor", opts.Cursor)
	}

	switch {
	case opts.StatsPeriod != "":
		params.Set("statsPeriod", opts.StatsPeriod)
	case !opts.DateFrom.IsZero() || !opts.DateTo.IsZero():
		if !opts.DateFrom.IsZero() {
			params.Set("start", opts.DateFrom.UTC().Format(DateFormat))
		}
		if !opts.DateTo.IsZero() {
			params.Set("end", opts.DateTo.UTC().Format(DateFormat))
		}
	default:
		start, end := PreviousCalendarWeek(now)
		params.Set("start", start.Format(DateFormat))
		params.Set("end", end.Format(DateFormat))
	}

	return params
}
