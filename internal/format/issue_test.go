package format

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freddie-manatal/sentry-sensei-mcp/internal/sentry"
)

func sampleIssue() sentry.Issue {
	return sentry.Issue{
		ID:        "5001",
		ShortID:   "APP-1X",
		Title:     "TypeError: cannot read null",
		Culprit:   "checkout/cart.js",
		Level:     "error",
		Status:    "unresolved",
		FirstSeen: "2024-05-01T10:00:00Z",
		LastSeen:  "2024-05-07T18:30:00Z",
		Count:     "412",
		UserCount: 37,
		Project:   sentry.ProjectRef{Slug: "storefront"},
		Annotations: []sentry.Annotation{
			{DisplayName: "SHOP-42", URL: "https://acme.atlassian.net/browse/SHOP-42"},
		},
	}
}

func TestFormatIssue_UntitledPlaceholder(t *testing.T) {
	fi := FormatIssue(sentry.Issue{ID: "1"})
	assert.Equal(t, "<no title>", fi.Title)

	md := IssueToMarkdown(fi)
	assert.Contains(t, md, "## <no title>")
}

func TestFormatIssue_JiraLinkPairs(t *testing.T) {
	fi := FormatIssue(sampleIssue())
	require.Len(t, fi.JiraLinks, 1)
	assert.Equal(t, "SHOP-42", fi.JiraLinks[0].Key)
	assert.Equal(t, "https://acme.atlassian.net/browse/SHOP-42", fi.JiraLinks[0].URL)

	encoded, err := json.Marshal(fi)
	require.NoError(t, err)
	assert.Contains(t, string(encoded), `"jiraLinks":[{"key":"SHOP-42","url":"https://acme.atlassian.net/browse/SHOP-42"}]`)
}

func TestSummarizeTags(t *testing.T) {
	tags := []sentry.IssueTag{
		{
			Key:         "browser.name",
			TotalValues: 200,
			TopValues: []sentry.TagValue{
				{Value: "Chrome", Count: 50},
				{Value: "Firefox", Count: 30},
				{Value: "Safari", Count: 20},
				{Value: "Edge", Count: 10},
			},
		},
		{
			Key:         "url", // unmapped, dropped entirely
			TotalValues: 100,
			TopValues:   []sentry.TagValue{{Value: "/cart", Count: 100}},
		},
	}

	summary := SummarizeTags(tags, 3)
	require.Len(t, summary, 1)
	require.Contains(t, summary, "browser")
	assert.NotContains(t, summary, "url")

	buckets := summary["browser"]
	require.Len(t, buckets, 3, "limited to top values")
	assert.Equal(t, 25.0, buckets[0].Percent)
	assert.Equal(t, 15.0, buckets[1].Percent)
}

func TestSummarizeTags_RoundsToOneDecimal(t *testing.T) {
	summary := SummarizeTags([]sentry.IssueTag{
		{Key: "os.name", TotalValues: 3, TopValues: []sentry.TagValue{{Value: "linux", Count: 1}}},
	}, 3)
	require.Contains(t, summary, "os")
	assert.Equal(t, 33.3, summary["os"][0].Percent)
}

func TestStackTraceText(t *testing.T) {
	event := &sentry.Event{
		Entries: []sentry.Entry{
			{Type: "breadcrumbs"},
			{
				Type: "exception",
				Data: sentry.EntryData{
					Values: []sentry.ExceptionValue{{
						Type:  "TypeError",
						Value: "cannot read null",
						Stacktrace: &sentry.Stacktrace{Frames: []sentry.StackFrame{
							{Filename: "app/main.js", Function: "bootstrap", LineNo: 10},
							{Filename: "app/checkout/cart.js", Function: "addItem", LineNo: 55},
						}},
					}},
				},
			},
		},
	}

	got := StackTraceText(event, 10)
	// throwing frame first: upstream order is innermost-last
	assert.Equal(t, "cart.js:55 in addItem\nmain.js:10 in bootstrap", got)
}

func TestStackTraceText_FrameCap(t *testing.T) {
	frames := make([]sentry.StackFrame, 30)
	for i := range frames {
		frames[i] = sentry.StackFrame{Filename: "f.go", Function: "fn", LineNo: i}
	}
	event := &sentry.Event{
		Entries: []sentry.Entry{
			{Type: "stacktrace", Data: sentry.EntryData{Frames: frames}},
		},
	}

	standard := StackTraceText(event, StandardCaps.StackFrames)
	deep := StackTraceText(event, DeepCaps.StackFrames)
	assert.Len(t, splitLines(standard), 10)
	assert.Len(t, splitLines(deep), 20)
	// first line is the last upstream frame
	assert.Contains(t, splitLines(standard)[0], "f.go:29")
}

func splitLines(s string) []string {
	return strings.Split(s, "\n")
}

func TestFormatIssueDetails_Degradation(t *testing.T) {
	// nil tags and nil event (failed enrichment fetches) leave the optional
	// sections out instead of erroring
	fi := FormatIssueDetails(sampleIssue(), nil, nil, false)
	assert.Nil(t, fi.TagsSummary)
	assert.Nil(t, fi.Exception)
	assert.Empty(t, fi.StackTrace)

	encoded, err := json.Marshal(fi)
	require.NoError(t, err)
	assert.NotContains(t, string(encoded), "tagsSummary")
}

func TestFormatIssueDetails_DeepProjections(t *testing.T) {
	issue := sampleIssue()
	issue.FirstRelease = &sentry.Release{Version: "1.4.0"}
	issue.LastRelease = &sentry.Release{Version: "1.6.2"}
	issue.Stats = map[string][][2]float64{"24h": {{1715000000, 3}}}
	event := &sentry.Event{User: &sentry.EventUser{Username: "jdoe", Email: "jdoe@example.com"}}

	deep := FormatIssueDetails(issue, nil, event, true)
	assert.Equal(t, "1.4.0", deep.FirstRelease)
	assert.Equal(t, "1.6.2", deep.LastRelease)
	assert.Equal(t, "jdoe (jdoe@example.com)", deep.User)
	assert.Contains(t, deep.Stats, "24h")

	md := IssueToMarkdown(deep)
	assert.Contains(t, md, "- **User**: jdoe (jdoe@example.com)")
	assert.Contains(t, md, "- **First release**: 1.4.0")

	standard := FormatIssueDetails(issue, nil, event, false)
	assert.Empty(t, standard.FirstRelease)
	assert.Empty(t, standard.User)
	assert.Nil(t, standard.Stats)
}

func TestFormatIssueDetails_Deterministic(t *testing.T) {
	issue := sampleIssue()
	tags := []sentry.IssueTag{
		{Key: "environment", TotalValues: 10, TopValues: []sentry.TagValue{{Value: "prod", Count: 9}}},
	}

	first, err := json.Marshal(FormatIssueDetails(issue, tags, nil, true))
	require.NoError(t, err)
	second, err := json.Marshal(FormatIssueDetails(issue, tags, nil, true))
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestIssueToMarkdown(t *testing.T) {
	fi := FormatIssueDetails(sampleIssue(), nil, nil, false)
	md := IssueToMarkdown(fi)

	assert.Contains(t, md, "## APP-1X: TypeError: cannot read null")
	assert.Contains(t, md, "- **Status**: unresolved")
	assert.Contains(t, md, "- **Users affected**: 37")
	assert.Contains(t, md, "### JIRA links")
	assert.Contains(t, md, "SHOP-42 (https://acme.atlassian.net/browse/SHOP-42)")
	assert.NotContains(t, md, "### Stack trace")
	assert.NotContains(t, md, "### Tag summary")

	// markdown is a pure function of the formatted issue
	assert.Equal(t, md, IssueToMarkdown(fi))
}
