package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchJSON_DecodesSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Write([]byte(`{"name":"ok"}`))
	}))
	defer srv.Close()

	var out struct {
		Name string `json:"name"`
	}
	err := FetchJSON(context.Background(), nil, Request{
		Method:  http.MethodGet,
		URL:     srv.URL,
		Service: "Test",
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Name)
}

func TestFetchJSON_SendsJSONBody(t *testing.T) {
	var gotContentType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		buf := make([]byte, 256)
		n, _ := r.Body.Read(buf)
		gotBody = buf[:n]
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	err := FetchJSON(context.Background(), nil, Request{
		Method:  http.MethodPut,
		URL:     srv.URL,
		Body:    map[string]string{"k": "v"},
		Service: "Test",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "application/json", gotContentType)
	assert.JSONEq(t, `{"k":"v"}`, string(gotBody))
}

func TestFetchJSON_ErrorTaxonomy(t *testing.T) {
	tests := []struct {
		status       int
		wantCategory Category
		wantInMsg    string
	}{
		{401, CategoryAuth, "authentication failed"},
		{403, CategoryAuth, "authentication failed"},
		{404, CategoryNotFound, "resource not found"},
		{429, CategoryRateLimited, "rate limit exceeded"},
		{500, CategoryServerError, "server error"},
		{400, CategoryBadRequest, "request failed"},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tt.status == 429 {
				w.Header().Set("Retry-After", "30")
			}
			http.Error(w, "detail", tt.status)
		}))

		err := FetchJSON(context.Background(), nil, Request{
			Method:  http.MethodGet,
			URL:     srv.URL,
			Service: "Svc",
		}, nil)
		srv.Close()

		require.Error(t, err, "status %d", tt.status)
		ue, ok := IsUpstream(err)
		require.True(t, ok)
		assert.Equal(t, tt.wantCategory, ue.Category)
		assert.Equal(t, tt.status, ue.StatusCode)
		assert.Contains(t, err.Error(), tt.wantInMsg)
		if tt.status == 429 {
			assert.Contains(t, err.Error(), "retry after 30")
		}
	}
}

func TestFetchJSON_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	err := FetchJSON(context.Background(), nil, Request{
		Method:  http.MethodGet,
		URL:     srv.URL,
		Timeout: 50 * time.Millisecond,
		Service: "Slow",
	}, nil)

	require.Error(t, err)
	assert.True(t, IsTimeout(err))
	assert.Contains(t, err.Error(), "Slow request timed out after 50ms")
}

func TestFetchJSON_NilOutSkipsDecode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json at all`))
	}))
	defer srv.Close()

	err := FetchJSON(context.Background(), nil, Request{Method: http.MethodGet, URL: srv.URL, Service: "Test"}, nil)
	assert.NoError(t, err)
}
