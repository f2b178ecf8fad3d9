package jira

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/freddie-manatal/sentry-sensei-mcp/internal/credentials"
	"github.com/freddie-manatal/sentry-sensei-mcp/internal/protocol"
	"github.com/freddie-manatal/sentry-sensei-mcp/internal/upstream"
)

const (
	serviceName = "JIRA"

	// requestTimeout bounds every JIRA call.
	requestTimeout = 15 * time.Second
)

// Client is a per-request JIRA API wrapper. Field metadata is memoized for
// the client's lifetime, which for the HTTP transport means one MCP request.
type Client struct {
	baseURL    string
	authHeader string
	httpClient upstream.Doer
	logger     *zap.Logger

	fieldsOnce sync.Once
	fields     map[string]FieldMeta
	fieldsErr  error
}

// Option adjusts client construction, mainly for tests.
type Option func(*Client)

// WithHTTPClient swaps the HTTP client.
func WithHTTPClient(doer upstream.Doer) Option {
	return func(c *Client) { c.httpClient = doer }
}

// WithLogger attaches a logger for degradation warnings.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient validates the credentials a JIRA call needs. Validation is lazy,
// at first use, so unrelated tools work without JIRA configured.
func NewClient(creds credentials.Jira, opts ...Option) (*Client, error) {
	if creds.Domain == "" {
		return nil, protocol.MissingCredential("JIRA domain", credentials.HeaderAtlassianDomain, "ATLASSIAN_DOMAIN")
	}
	if creds.Token == "" {
		return nil, protocol.MissingCredential("JIRA API token", credentials.HeaderJiraToken, "JIRA_TOKEN")
	}
	if creds.Email == "" {
		return nil, protocol.MissingCredential("JIRA account email", credentials.HeaderJiraEmail, "JIRA_EMAIL")
	}
	basic := base64.StdEncoding.EncodeToString([]byte(creds.Email + ":" + creds.Token))
	c := &Client{
		baseURL:    normalizeDomain(creds.Domain),
		authHeader: "Basic " + basic,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// normalizeDomain accepts "acme", "acme.atlassian.net", or a full URL.
func normalizeDomain(domain string) string {
	domain = strings.TrimSpace(domain)
	if !strings.HasPrefix(domain, "http://") && !strings.HasPrefix(domain, "https://") {
		if !strings.Contains(domain, ".") {
			domain += ".atlassian.net"
		}
		domain = "https://" + domain
	}
	return strings.TrimSuffix(domain, "/")
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	headers := http.Header{}
	headers.Set("Authorization", c.authHeader)
	return upstream.FetchJSON(ctx, c.httpClient, upstream.Request{
		Method:  method,
		URL:     endpoint,
		Headers: headers,
		Body:    body,
		Timeout: requestTimeout,
		Service: serviceName,
	}, out)
}

// GetIssueFields fetches the global field catalog keyed by field id. The
// result is memoized; concurrent callers share one fetch.
func (c *Client) GetIssueFields(ctx context.Context) (map[string]FieldMeta, error) {
	c.fieldsOnce.Do(func() {
		var list []FieldMeta
		if err := c.do(ctx, http.MethodGet, "/rest/api/3/field", nil, nil, &list); err != nil {
			c.fieldsErr = err
			return
		}
		fields := make(map[string]FieldMeta, len(list))
		for _, meta := range list {
			fields[meta.ID] = meta
		}
		c.fields = fields
	})
	return c.fields, c.fieldsErr
}

// GetIssueFieldsForTicket fetches the editable field metadata for one
// ticket via editmeta.
func (c *Client) GetIssueFieldsForTicket(ctx context.Context, key string) (map[string]FieldMeta, error) {
	var resp struct {
		Fields map[string]FieldMeta `json:"fields"`
	}
	path := fmt.Sprintf("/rest/api/3/issue/%s/editmeta", url.PathEscape(key))
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	// editmeta keys the map but leaves ID empty in the values
	for id, meta := range resp.Fields {
		if meta.ID == "" {
			meta.ID = id
			resp.Fields[id] = meta
		}
	}
	return resp.Fields, nil
}

// GetTicketDetails fetches the ticket and the field catalog concurrently.
// A metadata failure degrades: the ticket still comes back, Fields is nil,
// and the failure is logged.
func (c *Client) GetTicketDetails(ctx context.Context, key string) (*TicketDetails, error) {
	if key == "" {
		return nil, protocol.NewInvalidParams("ticketKey is required")
	}

	var (
		ticket Ticket
		fields map[string]FieldMeta
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		path := fmt.Sprintf("/rest/api/3/issue/%s", url.PathEscape(key))
		return c.do(gctx, http.MethodGet, path, nil, nil, &ticket)
	})
	g.Go(func() error {
		meta, err := c.GetIssueFields(gctx)
		if err != nil {
			c.logger.Warn("field metadata unavailable, formatting with raw field ids",
				zap.String("ticket", key), zap.Error(err))
			return nil
		}
		fields = meta
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &TicketDetails{Ticket: &ticket, Fields: fields}, nil
}

// richTextFieldTypes are the custom field types whose values the API only
// accepts as rich-text documents.
var richTextFieldTypes = map[string]struct{}{
	"com.atlassian.jira.plugin.system.customfieldtypes:textarea": {},
}

// richTextFieldIDs returns the field ids among candidates whose editmeta
// schema is a rich-text type. A metadata failure degrades: values are sent
// as given and the failure is logged.
func (c *Client) richTextFieldIDs(ctx context.Context, key string, candidates map[string]any) map[string]struct{} {
	hasString := false
	for _, value := range candidates {
		if _, ok := value.(string); ok {
			hasString = true
			break
		}
	}
	if !hasString {
		return nil
	}

	meta, err := c.GetIssueFieldsForTicket(ctx, key)
	if err != nil {
		c.logger.Warn("editmeta unavailable, sending custom field values as given",
			zap.String("ticket", key), zap.Error(err))
		return nil
	}
	rich := map[string]struct{}{}
	for id := range candidates {
		m, ok := meta[id]
		if !ok || m.Schema == nil {
			continue
		}
		if _, isRich := richTextFieldTypes[m.Schema.Custom]; isRich {
			rich[id] = struct{}{}
		}
	}
	return rich
}

// EditTicket applies the edit. Plain-text description, comment, and string
// values destined for rich-text custom fields are converted to document
// form; everything else passes through as given.
func (c *Client) EditTicket(ctx context.Context, key string, edit EditRequest) error {
	if key == "" {
		return protocol.NewInvalidParams("ticketKey is required")
	}

	fields := map[string]any{}
	if edit.Summary != "" {
		fields["summary"] = edit.Summary
	}
	if edit.Description != "" {
		fields["description"] = BuildDocument(edit.Description)
	}
	if edit.Labels != nil {
		fields["labels"] = edit.Labels
	}
	rich := c.richTextFieldIDs(ctx, key, edit.Fields)
	for id, value := range edit.Fields {
		if text, ok := value.(string); ok {
			if _, isRich := rich[id]; isRich {
				fields[id] = BuildDocument(text)
				continue
			}
		}
		fields[id] = value
	}

	payload := map[string]any{}
	if len(fields) > 0 {
		payload["fields"] = fields
	}
	if edit.Comment != "" {
		payload["update"] = map[string]any{
			"comment": []any{
				map[string]any{"add": map[string]any{"body": BuildDocument(edit.Comment)}},
			},
		}
	}
	if len(payload) == 0 {
		return protocol.NewInvalidParams("nothing to edit: provide summary, description, comment, labels, or fields")
	}

	path := fmt.Sprintf("/rest/api/3/issue/%s", url.PathEscape(key))
	return c.do(ctx, http.MethodPut, path, nil, payload, nil)
}
