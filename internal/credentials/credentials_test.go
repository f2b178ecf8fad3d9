package credentials

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/freddie-manatal/sentry-sensei-mcp/internal/config"
)

func defaultsConfig() config.Config {
	return config.Config{
		Sentry: config.SentryConfig{Host: "sentry.io", Organization: "acme", Token: "env-sentry"},
		Jira:   config.JiraConfig{Domain: "acme.atlassian.net", Token: "env-jira", Email: "ops@acme.dev"},
	}
}

func TestResolve_NilHeadersYieldDefaults(t *testing.T) {
	r := NewResolver(defaultsConfig())
	creds := r.Resolve(nil)

	assert.Equal(t, "env-sentry", creds.Sentry.Token)
	assert.Equal(t, "acme", creds.Sentry.Organization)
	assert.Equal(t, "env-jira", creds.Jira.Token)
	assert.Equal(t, "ops@acme.dev", creds.Jira.Email)
}

func TestResolve_HeadersWinOverDefaults(t *testing.T) {
	r := NewResolver(defaultsConfig())
	headers := http.Header{}
	headers.Set(HeaderSentryToken, "header-sentry")
	headers.Set(HeaderSentryOrganization, "other-org")
	headers.Set(HeaderJiraToken, "header-jira")

	creds := r.Resolve(headers)
	assert.Equal(t, "header-sentry", creds.Sentry.Token)
	assert.Equal(t, "other-org", creds.Sentry.Organization)
	assert.Equal(t, "sentry.io", creds.Sentry.Host, "unset header falls back")
	assert.Equal(t, "header-jira", creds.Jira.Token)
	assert.Equal(t, "ops@acme.dev", creds.Jira.Email, "unset header falls back")
}

func TestResolve_BlankHeaderDoesNotOverride(t *testing.T) {
	r := NewResolver(defaultsConfig())
	headers := http.Header{}
	headers.Set(HeaderSentryToken, "   ")

	creds := r.Resolve(headers)
	assert.Equal(t, "env-sentry", creds.Sentry.Token)
}

func TestResolve_HeaderLookupIsCaseInsensitive(t *testing.T) {
	r := NewResolver(config.Config{})
	headers := http.Header{}
	headers.Set("x-sentry-token", "lower")

	creds := r.Resolve(headers)
	assert.Equal(t, "lower", creds.Sentry.Token)
}

func TestResolve_EmptyEverywhereIsValid(t *testing.T) {
	// resolution never fails; missing credentials surface at client
	// construction, not here
	r := NewResolver(config.Config{})
	creds := r.Resolve(http.Header{})
	assert.Empty(t, creds.Sentry.Token)
	assert.Empty(t, creds.Jira.Domain)
}

func TestCredentialHeaders_CoversAll(t *testing.T) {
	assert.ElementsMatch(t, []string{
		HeaderSentryHost, HeaderSentryOrganization, HeaderSentryToken,
		HeaderAtlassianDomain, HeaderJiraToken, HeaderJiraEmail,
	}, CredentialHeaders())
}
