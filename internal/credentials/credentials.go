// Package credentials resolves per-request upstream credentials.
//
// Precedence per field, first non-empty wins: request header, then the
// startup config (which already folds in environment variables). Resolution
// never fails; missing fields surface later, when a tool actually needs the
// service, so tools/list works with zero credentials present.
package credentials

import (
	"net/http"
	"strings"

	"github.com/freddie-manatal/sentry-sensei-mcp/internal/config"
)

// Header names accepted on every request. Lookup is case-insensitive via
// http.Header.
const (
	HeaderSentryHost         = "X-Sentry-Host"
	HeaderSentryOrganization = "X-Sentry-Organization"
	HeaderSentryToken        = "X-Sentry-Token"
	HeaderAtlassianDomain    = "X-Atlassian-Domain"
	HeaderJiraToken          = "X-Jira-Token"
	HeaderJiraEmail          = "X-Jira-Email"
)

// Sentry holds the error-tracking service credentials for one request.
type Sentry struct {
	Host         string
	Organization string
	Token        string
}

// Jira holds the issue-tracker credentials for one request.
type Jira struct {
	Domain string
	Token  string
	Email  string
}

// Credentials is the per-request credential set. Partial values are valid;
// a request may only need one service.
type Credentials struct {
	Sentry Sentry
	Jira   Jira
}

// Resolver builds Credentials from request headers layered over config
// defaults.
type Resolver struct {
	defaults config.Config
}

// NewResolver captures the startup config as the fallback layer.
func NewResolver(cfg config.Config) *Resolver {
	return &Resolver{defaults: cfg}
}

// Resolve merges headers over defaults. A nil header set (stdio transport)
// yields the defaults unchanged.
func (r *Resolver) Resolve(headers http.Header) Credentials {
	creds := Credentials{
		Sentry: Sentry{
			Host:         r.defaults.Sentry.Host,
			Organization: r.defaults.Sentry.Organization,
			Token:        r.defaults.Sentry.Token,
		},
		Jira: Jira{
			Domain: r.defaults.Jira.Domain,
			Token:  r.defaults.Jira.Token,
			Email:  r.defaults.Jira.Email,
		},
	}
	if headers == nil {
		return creds
	}
	override(&creds.Sentry.Host, headers, HeaderSentryHost)
	override(&creds.Sentry.Organization, headers, HeaderSentryOrganization)
	override(&creds.Sentry.Token, headers, HeaderSentryToken)
	override(&creds.Jira.Domain, headers, HeaderAtlassianDomain)
	override(&creds.Jira.Token, headers, HeaderJiraToken)
	override(&creds.Jira.Email, headers, HeaderJiraEmail)
	return creds
}

func override(dst *string, headers http.Header, name string) {
	if v := strings.TrimSpace(headers.Get(name)); v != "" {
		*dst = v
	}
}

// CredentialHeaders is the exact set the CORS policy must allow.
func CredentialHeaders() []string {
	return []string{
		HeaderSentryHost,
		HeaderSentryOrganization,
		HeaderSentryToken,
		HeaderAtlassianDomain,
		HeaderJiraToken,
		HeaderJiraEmail,
	}
}
