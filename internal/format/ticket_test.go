package format

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freddie-manatal/sentry-sensei-mcp/internal/jira"
)

func textDoc(text string) map[string]any {
	return map[string]any{
		"type":    "doc",
		"version": 1,
		"content": []any{
			map[string]any{
				"type":    "paragraph",
				"content": []any{map[string]any{"type": "text", "text": text}},
			},
		},
	}
}

func sampleDetails(description string, comments []jira.Comment) *jira.TicketDetails {
	return &jira.TicketDetails{
		Ticket: &jira.Ticket{
			Key: "SHOP-42",
			Fields: jira.TicketFields{
				Summary:     "Checkout fails on retry",
				Description: textDoc(description),
				Status:      &jira.NamedValue{Name: "In Progress"},
				Priority:    &jira.NamedValue{Name: "High"},
				Assignee:    &jira.User{DisplayName: "Sam Chen"},
				TimeSpent:   3900,
				Comment:     &jira.CommentPage{Comments: comments, Total: len(comments)},
			},
		},
	}
}

func TestFormatTicket_DescriptionTruncation(t *testing.T) {
	long := strings.Repeat("x", 2000)

	standard := FormatTicket(sampleDetails(long, nil), false)
	deep := FormatTicket(sampleDetails(long, nil), true)

	assert.LessOrEqual(t, len(standard.Description), StandardCaps.DescriptionChars)
	assert.LessOrEqual(t, len(deep.Description), DeepCaps.DescriptionChars)
	assert.Greater(t, len(deep.Description), len(standard.Description),
		"deep mode keeps strictly more of the same input")
	assert.True(t, strings.HasSuffix(standard.Description, "..."))
}

func TestFormatTicket_ShortDescriptionUntouched(t *testing.T) {
	ft := FormatTicket(sampleDetails("short enough", nil), false)
	assert.Equal(t, "short enough", ft.Description)
}

func TestFormatTicket_CommentWindow(t *testing.T) {
	comments := make([]jira.Comment, 8)
	for i := range comments {
		comments[i] = jira.Comment{
			Author:  jira.User{DisplayName: fmt.Sprintf("user%d", i)},
			Body:    textDoc(fmt.Sprintf("comment %d", i)),
			Created: fmt.Sprintf("2024-05-0%dT10:30:00.000+0000", i+1),
		}
	}

	ft := FormatTicket(sampleDetails("d", comments), false)
	require.Len(t, ft.Comments, StandardCaps.CommentsKept)

	// last K comments, displayed oldest first
	assert.Equal(t, "user3", ft.Comments[0].Author)
	assert.Equal(t, "user7", ft.Comments[len(ft.Comments)-1].Author)
	assert.Equal(t, "2024-05-04", ft.Comments[0].Date)
	assert.Equal(t, "10:30", ft.Comments[0].Time)
	assert.Equal(t, "comment 3", ft.Comments[0].Body)
}

func TestFormatTicket_CommentBodyTruncation(t *testing.T) {
	comments := []jira.Comment{{
		Author:  jira.User{DisplayName: "sam"},
		Body:    textDoc(strings.Repeat("y", 1000)),
		Created: "2024-05-01T09:00:00.000+0000",
	}}
	ft := FormatTicket(sampleDetails("d", comments), false)
	require.Len(t, ft.Comments, 1)
	assert.LessOrEqual(t, len(ft.Comments[0].Body), StandardCaps.CommentChars)
}

func TestFormatTicket_TimeSpent(t *testing.T) {
	ft := FormatTicket(sampleDetails("d", nil), false)
	assert.Equal(t, "1h 5m", ft.TimeSpent)

	details := sampleDetails("d", nil)
	details.Ticket.Fields.TimeSpent = 1800
	assert.Equal(t, "30m", FormatTicket(details, false).TimeSpent)

	details.Ticket.Fields.TimeSpent = 0
	assert.Empty(t, FormatTicket(details, false).TimeSpent)
}

func TestFormatTicket_CustomFieldWhitelist(t *testing.T) {
	details := sampleDetails("d", nil)
	details.Ticket.Fields.Extra = map[string]any{
		"customfield_10001": []any{map[string]any{"name": "Sprint 4", "state": "active"}},
		"customfield_10002": float64(8),
		"customfield_10003": "internal scratchpad",
	}
	details.Fields = map[string]jira.FieldMeta{
		"customfield_10001": {ID: "customfield_10001", Name: "Sprint", Custom: true, Schema: &jira.FieldSchema{Type: "array"}},
		"customfield_10002": {ID: "customfield_10002", Name: "Story Points", Custom: true, Schema: &jira.FieldSchema{Type: "number"}},
		"customfield_10003": {ID: "customfield_10003", Name: "Scratchpad", Custom: true, Schema: &jira.FieldSchema{Type: "string"}},
	}

	ft := FormatTicket(details, false)
	require.Len(t, ft.CustomFields, 2)
	assert.Equal(t, "Sprint 4 (active)", ft.CustomFields["Sprint"])
	assert.Equal(t, "8", ft.CustomFields["Story Points"])
	assert.NotContains(t, ft.CustomFields, "Scratchpad")
}

func TestFormatTicket_NoFieldMetadata(t *testing.T) {
	details := sampleDetails("d", nil)
	details.Ticket.Fields.Extra = map[string]any{"customfield_10001": "whatever"}
	details.Fields = nil

	ft := FormatTicket(details, false)
	assert.Nil(t, ft.CustomFields)
	assert.Equal(t, "SHOP-42", ft.Key)
}

func TestRenderFieldValue(t *testing.T) {
	tests := []struct {
		name   string
		value  any
		schema *jira.FieldSchema
		want   string
	}{
		{"user", map[string]any{"displayName": "Sam"}, &jira.FieldSchema{Type: "user"}, "Sam"},
		{"option", map[string]any{"value": "Blocked"}, &jira.FieldSchema{Type: "option"}, "Blocked"},
		{"priority name fallback", map[string]any{"name": "High"}, &jira.FieldSchema{Type: "priority"}, "High"},
		{"string array", []any{"a", "b"}, &jira.FieldSchema{Type: "array"}, "a, b"},
		{"number", float64(3.5), nil, "3.5"},
		{"integer", float64(4), nil, "4"},
		{"bool", true, nil, "true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, renderFieldValue(tt.value, tt.schema))
		})
	}
}

func TestTicketToMarkdown(t *testing.T) {
	ft := FormatTicket(sampleDetails("the description", nil), false)
	md := TicketToMarkdown(ft)

	assert.Contains(t, md, "## SHOP-42: Checkout fails on retry")
	assert.Contains(t, md, "- **Status**: In Progress")
	assert.Contains(t, md, "- **Assignee**: Sam Chen")
	assert.Contains(t, md, "### Description\nthe description")
	assert.NotContains(t, md, "### Comments")
}
