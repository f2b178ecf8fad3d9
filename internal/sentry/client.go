package sentry

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/freddie-manatal/sentry-sensei-mcp/internal/credentials"
	"github.com/freddie-manatal/sentry-sensei-mcp/internal/protocol"
	"github.com/freddie-manatal/sentry-sensei-mcp/internal/upstream"
)

const (
	serviceName = "Sentry"
	defaultHost = "sentry.io"

	// requestTimeout bounds every Sentry call.
	requestTimeout = 30 * time.Second
)

// Client is a per-request Sentry API wrapper. It holds no cross-request
// state.
type Client struct {
	baseURL      string
	organization string
	token        string
	httpClient   upstream.Doer
	now          func() time.Time
}

// Option adjusts client construction, mainly for tests.
type Option func(*Client)

// WithHTTPClient swaps the HTTP client.
func WithHTTPClient(doer upstream.Doer) Option {
	return func(c *Client) { c.httpClient = doer }
}

// WithClock fixes the time source for date defaulting.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient validates the credentials a Sentry call needs. The token check
// happens here, lazily per request, so tools/list never requires auth.
func NewClient(creds credentials.Sentry, opts ...Option) (*Client, error) {
	if creds.Token == "" {
		return nil, protocol.MissingCredential("Sentry API token", credentials.HeaderSentryToken, "SENTRY_TOKEN")
	}
	c := &Client{
		baseURL:      normalizeHost(creds.Host),
		organization: creds.Organization,
		token:        creds.Token,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// normalizeHost accepts a bare hostname or a full URL and yields the API
// root.
func normalizeHost(host string) string {
	host = strings.TrimSpace(host)
	if host == "" {
		host = defaultHost
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}
	return strings.TrimSuffix(host, "/") + "/api/0"
}

// resolveOrganization picks the explicit slug or falls back to the
// credential default.
func (c *Client) resolveOrganization(slug string) (string, error) {
	if slug != "" {
		return slug, nil
	}
	if c.organization != "" {
		return c.organization, nil
	}
	return "", protocol.MissingCredential("Sentry organization slug", credentials.HeaderSentryOrganization, "SENTRY_ORGANIZATION")
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+c.token)
	return upstream.FetchJSON(ctx, c.httpClient, upstream.Request{
		Method:  http.MethodGet,
		URL:     endpoint,
		Headers: headers,
		Timeout: requestTimeout,
		Service: serviceName,
	}, out)
}

// GetOrganizations lists organizations visible to the token.
func (c *Client) GetOrganizations(ctx context.Context) ([]Organization, error) {
	var orgs []Organization
	if err := c.get(ctx, "/organizations/", nil, &orgs); err != nil {
		return nil, err
	}
	return orgs, nil
}

// GetProjects lists projects in an organization.
func (c *Client) GetProjects(ctx context.Context, organizationSlug string) ([]Project, error) {
	org, err := c.resolveOrganization(organizationSlug)
	if err != nil {
		return nil, err
	}
	var projects []Project
	if err := c.get(ctx, fmt.Sprintf("/organizations/%s/projects/", url.PathEscape(org)), nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// GetIssues searches issues with the constructed query and date rules.
func (c *Client) GetIssues(ctx context.Context, organizationSlug string, opts IssuesOptions) ([]Issue, error) {
	org, err := c.resolveOrganization(organizationSlug)
	if err != nil {
		return nil, err
	}
	params := buildIssuesParams(opts, c.now())
	var issues []Issue
	if err := c.get(ctx, fmt.Sprintf("/organizations/%s/issues/", url.PathEscape(org)), params, &issues); err != nil {
		return nil, err
	}
	return issues, nil
}

// GetIssueDetails fetches a single issue.
func (c *Client) GetIssueDetails(ctx context.Context, organizationSlug, issueID string) (*Issue, error) {
	org, err := c.resolveOrganization(organizationSlug)
	if err != nil {
		return nil, err
	}
	var issue Issue
	if err := c.get(ctx, fmt.Sprintf("/organizations/%s/issues/%s/", url.PathEscape(org), url.PathEscape(issueID)), nil, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// GetLatestEventForIssue fetches the newest event, which carries the stack
// trace.
func (c *Client) GetLatestEventForIssue(ctx context.Context, organizationSlug, issueID string) (*Event, error) {
	org, err := c.resolveOrganization(organizationSlug)
	if err != nil {
		return nil, err
	}
	var event Event
	if err := c.get(ctx, fmt.Sprintf("/organizations/%s/issues/%s/events/latest/", url.PathEscape(org), url.PathEscape(issueID)), nil, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// GetIssueTags fetches the tag aggregation for an issue, optionally scoped
// to one environment.
func (c *Client) GetIssueTags(ctx context.Context, organizationSlug, issueID, environment string) ([]IssueTag, error) {
	org, err := c.resolveOrganization(organizationSlug)
	if err != nil {
		return nil, err
	}
	params := url.Values{}
	if environment != "" {
		params.Set("environment", environment)
	}
	var tags []IssueTag
	if err := c.get(ctx, fmt.Sprintf("/organizations/%s/issues/%s/tags/", url.PathEscape(org), url.PathEscape(issueID)), params, &tags); err != nil {
		return nil, err
	}
	return tags, nil
}
