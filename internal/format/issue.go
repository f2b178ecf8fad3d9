package format

import (
	"fmt"
	"math"
	"path"
	"strings"

	"github.com/freddie-manatal/sentry-sensei-mcp/internal/sentry"
)

// knownTagKeys maps upstream tag keys to their canonical short names. Keys
// outside this map are dropped from summaries.
var knownTagKeys = map[string]string{
	"browser.name":  "browser",
	"os.name":       "os",
	"device.family": "device",
	"release":       "release",
	"environment":   "environment",
}

// TagValueSummary is one value bucket with its share of the tag's total.
type TagValueSummary struct {
	Value   string  `json:"value"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// ExceptionInfo is the leading exception of the latest event.
type ExceptionInfo struct {
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
}

// JiraLink is one external-tracker reference attached to an issue.
type JiraLink struct {
	Key string `json:"key,omitempty"`
	URL string `json:"url,omitempty"`
}

// FormattedIssue is the bounded projection of an issue used in tool results.
type FormattedIssue struct {
	ID        string `json:"id"`
	ShortID   string `json:"shortId,omitempty"`
	Title     string `json:"title"`
	Culprit   string `json:"culprit,omitempty"`
	Level     string `json:"level,omitempty"`
	Status    string `json:"status,omitempty"`
	Substatus string `json:"substatus,omitempty"`
	Permalink string `json:"permalink,omitempty"`
	FirstSeen string `json:"firstSeen,omitempty"`
	LastSeen  string `json:"lastSeen,omitempty"`
	Count     string `json:"count,omitempty"`
	UserCount int    `json:"userCount,omitempty"`
	Project   string `json:"project,omitempty"`
	Platform  string `json:"platform,omitempty"`
	Type      string `json:"type,omitempty"`
	Assignee  string `json:"assignee,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`

	JiraLinks []JiraLink `json:"jiraLinks,omitempty"`

	// deep mode only
	User         string                  `json:"user,omitempty"`
	FirstRelease string                  `json:"firstRelease,omitempty"`
	LastRelease  string                  `json:"lastRelease,omitempty"`
	Stats        map[string][][2]float64 `json:"stats,omitempty"`

	Exception   *ExceptionInfo               `json:"exception,omitempty"`
	StackTrace  string                       `json:"stackTrace,omitempty"`
	TagsSummary map[string][]TagValueSummary `json:"tagsSummary,omitempty"`
}

// FormatIssue builds the compact list-mode projection. Untitled issues get a
// placeholder so the title field is never empty.
func FormatIssue(issue sentry.Issue) FormattedIssue {
	title := issue.Title
	if title == "" {
		title = "<no title>"
	}
	fi := FormattedIssue{
		ID:        issue.ID,
		ShortID:   issue.ShortID,
		Title:     title,
		Culprit:   issue.Culprit,
		Level:     issue.Level,
		Status:    issue.Status,
		Substatus: issue.Substatus,
		Permalink: issue.Permalink,
		FirstSeen: issue.FirstSeen,
		LastSeen:  issue.LastSeen,
		Count:     issue.Count,
		UserCount: issue.UserCount,
		Project:   issue.Project.Slug,
		Platform:  issue.Platform,
		Type:      issue.Type,
		JiraLinks: jiraLinks(issue.Annotations),
	}
	if issue.AssignedTo != nil {
		fi.Assignee = issue.AssignedTo.Name
	}
	return fi
}

// FormatIssues maps a search result page.
func FormatIssues(issues []sentry.Issue) []FormattedIssue {
	out := make([]FormattedIssue, 0, len(issues))
	for _, issue := range issues {
		out = append(out, FormatIssue(issue))
	}
	return out
}

// FormatIssueDetails builds the detail projection. tags and event are
// optional enrichments: a nil slice or event simply leaves the matching
// sections out.
func FormatIssueDetails(issue sentry.Issue, tags []sentry.IssueTag, event *sentry.Event, deep bool) FormattedIssue {
	caps := CapsFor(deep)

	fi := FormatIssue(issue)
	fi.Metadata = issue.Metadata
	fi.TagsSummary = SummarizeTags(tags, caps.TagValues)
	if event != nil {
		fi.Exception = leadingException(event)
		fi.StackTrace = StackTraceText(event, caps.StackFrames)
	}
	if deep {
		fi.Stats = issue.Stats
		if issue.FirstRelease != nil {
			fi.FirstRelease = issue.FirstRelease.Version
		}
		if issue.LastRelease != nil {
			fi.LastRelease = issue.LastRelease.Version
		}
		if event != nil {
			fi.User = eventUserText(event.User)
		}
	}
	return fi
}

// eventUserText renders the event user as "username (email)" with whatever
// identity fields are present.
func eventUserText(user *sentry.EventUser) string {
	if user == nil {
		return ""
	}
	name := user.Username
	if name == "" {
		name = user.ID
	}
	switch {
	case name != "" && user.Email != "":
		return fmt.Sprintf("%s (%s)", name, user.Email)
	case name != "":
		return name
	default:
		return user.Email
	}
}

// jiraLinks extracts external-tracker links from issue annotations as
// key/url pairs.
func jiraLinks(annotations []sentry.Annotation) []JiraLink {
	var links []JiraLink
	for _, a := range annotations {
		if a.DisplayName == "" && a.URL == "" {
			continue
		}
		links = append(links, JiraLink{Key: a.DisplayName, URL: a.URL})
	}
	return links
}

// SummarizeTags keeps the known tag keys only, limits each to maxValues
// buckets, and computes each bucket's share of totalValues rounded to one
// decimal. A nil result means there was nothing summarizable.
func SummarizeTags(tags []sentry.IssueTag, maxValues int) map[string][]TagValueSummary {
	var summary map[string][]TagValueSummary
	for _, tag := range tags {
		name, known := knownTagKeys[tag.Key]
		if !known || tag.TotalValues <= 0 {
			continue
		}
		values := tag.TopValues
		if len(values) > maxValues {
			values = values[:maxValues]
		}
		buckets := make([]TagValueSummary, 0, len(values))
		for _, v := range values {
			buckets = append(buckets, TagValueSummary{
				Value:   v.Value,
				Count:   v.Count,
				Percent: percentOf(v.Count, tag.TotalValues),
			})
		}
		if len(buckets) == 0 {
			continue
		}
		if summary == nil {
			summary = map[string][]TagValueSummary{}
		}
		summary[name] = buckets
	}
	return summary
}

func percentOf(count, total int) float64 {
	return math.Round(float64(count)/float64(total)*1000) / 10
}

// leadingException picks the first exception value of the latest event.
func leadingException(event *sentry.Event) *ExceptionInfo {
	for _, entry := range event.Entries {
		if entry.Type != "exception" {
			continue
		}
		for _, v := range entry.Data.Values {
			return &ExceptionInfo{Type: v.Type, Value: v.Value}
		}
	}
	return nil
}

// StackTraceText renders the latest event's stack trace, throwing frame
// first, one "<basename>:<line> in <function>" line per frame, bounded by
// maxFrames.
func StackTraceText(event *sentry.Event, maxFrames int) string {
	frames := eventFrames(event)
	if len(frames) == 0 {
		return ""
	}

	// upstream order is innermost-last
	reversed := make([]sentry.StackFrame, len(frames))
	for i, frame := range frames {
		reversed[len(frames)-1-i] = frame
	}
	if len(reversed) > maxFrames {
		reversed = reversed[:maxFrames]
	}

	lines := make([]string, 0, len(reversed))
	for _, frame := range reversed {
		fn := frame.Function
		if fn == "" {
			fn = "?"
		}
		lines = append(lines, fmt.Sprintf("%s:%d in %s", path.Base(frame.Filename), frame.LineNo, fn))
	}
	return strings.Join(lines, "\n")
}

// eventFrames locates the first entry of type exception or stacktrace and
// returns its frames in upstream order.
func eventFrames(event *sentry.Event) []sentry.StackFrame {
	for _, entry := range event.Entries {
		switch entry.Type {
		case "exception":
			for _, v := range entry.Data.Values {
				if v.Stacktrace != nil && len(v.Stacktrace.Frames) > 0 {
					return v.Stacktrace.Frames
				}
			}
		case "stacktrace":
			if len(entry.Data.Frames) > 0 {
				return entry.Data.Frames
			}
		}
	}
	return nil
}

// IssueToMarkdown renders the primary human-facing summary. Line order is
// fixed; optional sections appear only when populated.
func IssueToMarkdown(fi FormattedIssue) string {
	var sb strings.Builder

	title := fi.Title
	if fi.ShortID != "" {
		title = fmt.Sprintf("%s: %s", fi.ShortID, fi.Title)
	}
	fmt.Fprintf(&sb, "## %s\n\n", title)

	writeLine := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&sb, "- **%s**: %s\n", label, value)
		}
	}

	writeLine("ID", fi.ID)
	writeLine("Status", fi.Status)
	writeLine("Substatus", fi.Substatus)
	writeLine("Level", fi.Level)
	writeLine("Culprit", fi.Culprit)
	writeLine("First seen", fi.FirstSeen)
	writeLine("Last seen", fi.LastSeen)
	writeLine("Events", fi.Count)
	if fi.UserCount > 0 {
		writeLine("Users affected", fmt.Sprintf("%d", fi.UserCount))
	}
	writeLine("Project", fi.Project)
	writeLine("Platform", fi.Platform)
	writeLine("Type", fi.Type)
	writeLine("Assignee", fi.Assignee)
	writeLine("User", fi.User)
	writeLine("First release", fi.FirstRelease)
	writeLine("Last release", fi.LastRelease)
	writeLine("Permalink", fi.Permalink)

	if len(fi.JiraLinks) > 0 {
		sb.WriteString("\n### JIRA links\n")
		for _, link := range fi.JiraLinks {
			switch {
			case link.Key != "" && link.URL != "":
				fmt.Fprintf(&sb, "- %s (%s)\n", link.Key, link.URL)
			case link.Key != "":
				fmt.Fprintf(&sb, "- %s\n", link.Key)
			default:
				fmt.Fprintf(&sb, "- %s\n", link.URL)
			}
		}
	}

	if fi.Exception != nil {
		sb.WriteString("\n### Exception\n")
		if fi.Exception.Value != "" {
			fmt.Fprintf(&sb, "%s: %s\n", fi.Exception.Type, fi.Exception.Value)
		} else {
			fmt.Fprintf(&sb, "%s\n", fi.Exception.Type)
		}
	}

	if fi.StackTrace != "" {
		sb.WriteString("\n### Stack trace\n```\n")
		sb.WriteString(fi.StackTrace)
		sb.WriteString("\n```\n")
	}

	if len(fi.TagsSummary) > 0 {
		sb.WriteString("\n### Tag summary\n")
		for _, name := range tagOrder {
			buckets, ok := fi.TagsSummary[name]
			if !ok {
				continue
			}
			parts := make([]string, 0, len(buckets))
			for _, b := range buckets {
				parts = append(parts, fmt.Sprintf("%s %.1f%% (%d)", b.Value, b.Percent, b.Count))
			}
			fmt.Fprintf(&sb, "- **%s**: %s\n", name, strings.Join(parts, ", "))
		}
	}

	return strings.TrimRight(sb.String(), "\n")
}

// tagOrder fixes markdown ordering of the canonical tag names.
var tagOrder = []string{"browser", "os", "device", "release", "environment"}
