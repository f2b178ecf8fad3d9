package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freddie-manatal/sentry-sensei-mcp/internal/config"
	"github.com/freddie-manatal/sentry-sensei-mcp/internal/credentials"
	"github.com/freddie-manatal/sentry-sensei-mcp/internal/protocol"
	"github.com/freddie-manatal/sentry-sensei-mcp/internal/sentry"
)

func sentryCreds(host string) credentials.Credentials {
	return credentials.Credentials{Sentry: credentials.Sentry{Host: host, Organization: "acme", Token: "tok"}}
}

func TestRegistry_CatalogSortedAndComplete(t *testing.T) {
	r := New(config.Config{}, nil)
	descriptors := r.Descriptors()
	require.Len(t, descriptors, 7)

	var names []string
	for _, d := range descriptors {
		names = append(names, d["name"].(string))
	}
	assert.Equal(t, []string{
		ToolJiraEditTicket,
		ToolCurrentDatetime,
		ToolJiraTicketDetails,
		ToolSentryIssueDetails,
		ToolSentryIssues,
		ToolSentryOrganizations,
		ToolSentryProjects,
	}, names)

	// every descriptor advertises explicit annotation hints
	for _, d := range descriptors {
		annotations, ok := d["annotations"].(map[string]any)
		require.True(t, ok, "%s missing annotations", d["name"])
		assert.Contains(t, annotations, "readOnlyHint")
		assert.Contains(t, annotations, "destructiveHint")
	}
}

func TestRegistry_DisabledToolHidden(t *testing.T) {
	cfg := config.Config{Tools: config.ToolsConfig{Disabled: []string{ToolJiraEditTicket}}}
	r := New(cfg, nil)

	_, ok := r.Lookup(ToolJiraEditTicket)
	assert.False(t, ok)
	for _, d := range r.Descriptors() {
		assert.NotEqual(t, ToolJiraEditTicket, d["name"])
	}

	_, ok = r.Lookup(ToolSentryIssues)
	assert.True(t, ok)
}

func TestEditTicketTool_MarkedDestructive(t *testing.T) {
	r := New(config.Config{}, nil)
	for _, d := range r.Descriptors() {
		if d["name"] != ToolJiraEditTicket {
			continue
		}
		annotations := d["annotations"].(map[string]any)
		assert.Equal(t, true, annotations["destructiveHint"])
		return
	}
	t.Fatal("edit tool not found in catalog")
}

func TestHandleSentryIssues_FoundCountAndArray(t *testing.T) {
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		_ = json.NewEncoder(w).Encode([]sentry.Issue{
			{ID: "1", Title: "first"},
			{ID: "2", Title: "second"},
			{ID: "3", Title: "third"},
		})
	}))
	defer srv.Close()

	r := New(config.Config{}, nil)
	handler, ok := r.Lookup(ToolSentryIssues)
	require.True(t, ok)

	result, err := handler(context.Background(), sentryCreds(srv.URL), json.RawMessage(`{"project":"123","limit":5}`))
	require.NoError(t, err)

	text := resultText(t, result)
	assert.Contains(t, text, "Found 3 issues")

	// the scalar project value is accepted and sent as one repeated param
	assert.Equal(t, []string{"123"}, gotQuery["project"])
	assert.Equal(t, "5", gotQuery.Get("limit"))

	// trailing JSON array holds exactly the formatted issues
	start := strings.Index(text, "[")
	require.GreaterOrEqual(t, start, 0)
	var formatted []map[string]any
	require.NoError(t, json.Unmarshal([]byte(text[start:]), &formatted))
	assert.Len(t, formatted, 3)
	assert.Equal(t, "first", formatted[0]["title"])
}

func TestHandleSentryIssues_RelativeDays(t *testing.T) {
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		_ = json.NewEncoder(w).Encode([]sentry.Issue{})
	}))
	defer srv.Close()

	now := time.Date(2024, 5, 15, 13, 45, 12, 0, time.UTC)
	r := New(config.Config{}, nil, WithClock(func() time.Time { return now }))
	handler, _ := r.Lookup(ToolSentryIssues)

	_, err := handler(context.Background(), sentryCreds(srv.URL), json.RawMessage(`{"relativeDays":7}`))
	require.NoError(t, err)

	assert.Equal(t, "2024-05-08T00:00:00", gotQuery.Get("start"))
	assert.Equal(t, "2024-05-15T23:59:59", gotQuery.Get("end"))
}

func TestHandleSentryIssues_InvalidDate(t *testing.T) {
	r := New(config.Config{}, nil)
	handler, _ := r.Lookup(ToolSentryIssues)

	_, err := handler(context.Background(), sentryCreds("https://example.invalid"), json.RawMessage(`{"dateFrom":"May 1st"}`))
	require.Error(t, err)
	pe, ok := protocol.AsProtocolError(err)
	require.True(t, ok)
	assert.Equal(t, protocol.CodeInvalidParams, pe.Code)
}

func TestHandleSentryIssueDetails_RequiresIssueID(t *testing.T) {
	r := New(config.Config{}, nil)
	handler, _ := r.Lookup(ToolSentryIssueDetails)

	_, err := handler(context.Background(), sentryCreds("https://example.invalid"), json.RawMessage(`{}`))
	require.Error(t, err)
	pe, ok := protocol.AsProtocolError(err)
	require.True(t, ok)
	assert.Contains(t, pe.Message, "issueId")
}

// Failed enrichment fetches degrade to a partial result instead of failing
// the call.
func TestHandleSentryIssueDetails_Degradation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/0/organizations/acme/issues/5001/":
			_ = json.NewEncoder(w).Encode(sentry.Issue{ID: "5001", Title: "boom"})
		default:
			// tags and latest-event fetches fail
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	r := New(config.Config{}, nil)
	handler, _ := r.Lookup(ToolSentryIssueDetails)

	result, err := handler(context.Background(), sentryCreds(srv.URL), json.RawMessage(`{"issueId":"5001"}`))
	require.NoError(t, err)

	text := resultText(t, result)
	assert.Contains(t, text, "boom")
	assert.NotContains(t, text, "tagsSummary")
}

func TestHandleCurrentDatetime(t *testing.T) {
	now := time.Date(2024, 5, 15, 13, 45, 12, 0, time.UTC)
	r := New(config.Config{}, nil, WithClock(func() time.Time { return now }))
	handler, _ := r.Lookup(ToolCurrentDatetime)

	tests := []struct {
		args string
		want string
	}{
		{`{}`, "2024-05-15T13:45:12Z"},
		{`{"format":"date"}`, "2024-05-15"},
		{`{"format":"time"}`, "13:45:12"},
		{`{"format":"unix"}`, "1715780712"},
	}
	for _, tt := range tests {
		result, err := handler(context.Background(), credentials.Credentials{}, json.RawMessage(tt.args))
		require.NoError(t, err)
		assert.Equal(t, tt.want, resultText(t, result))
	}

	_, err := handler(context.Background(), credentials.Credentials{}, json.RawMessage(`{"format":"roman"}`))
	require.Error(t, err)

	_, err = handler(context.Background(), credentials.Credentials{}, json.RawMessage(`{"timezone":"Mars/Olympus"}`))
	require.Error(t, err)
}

func TestStringList(t *testing.T) {
	tests := []struct {
		in   string
		want StringList
	}{
		{`["a","b"]`, StringList{"a", "b"}},
		{`"solo"`, StringList{"solo"}},
		{`123`, StringList{"123"}},
	}
	for _, tt := range tests {
		var got StringList
		require.NoError(t, json.Unmarshal([]byte(tt.in), &got), "input %s", tt.in)
		assert.Equal(t, tt.want, got)
	}

	var got StringList
	assert.Error(t, json.Unmarshal([]byte(`{"x":1}`), &got))
}

func resultText(t *testing.T, result any) string {
	t.Helper()
	encoded, err := json.Marshal(result)
	require.NoError(t, err)
	var parsed struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	require.NoError(t, json.Unmarshal(encoded, &parsed))
	require.NotEmpty(t, parsed.Content)
	return parsed.Content[0].Text
}
