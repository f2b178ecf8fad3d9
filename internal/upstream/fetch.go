package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxErrorBody bounds how much of an upstream error body is kept in the
// error message.
const maxErrorBody = 512

// Request describes one upstream HTTP call.
type Request struct {
	Method  string
	URL     string
	Headers http.Header
	Body    any
	Timeout time.Duration
	// Service names the upstream in errors ("Sentry", "JIRA").
	Service string
}

// Doer is the minimal http.Client surface, swappable in tests.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// FetchJSON performs the request with its timeout enforced through the
// context, decodes a 2xx JSON response into out (out may be nil for
// status-only calls), and converts failures into the package taxonomy.
func FetchJSON(ctx context.Context, client Doer, req Request, out any) error {
	if client == nil {
		client = http.DefaultClient
	}
	if req.Timeout <= 0 {
		req.Timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	var bodyReader io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return fmt.Errorf("encode %s request body: %w", req.Service, err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bodyReader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", req.Service, err)
	}
	for key, values := range req.Headers {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return &TimeoutError{Service: req.Service, Limit: req.Timeout}
		}
		return fmt.Errorf("%s request failed: %w", req.Service, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &Error{
			Service:    req.Service,
			StatusCode: resp.StatusCode,
			Category:   Classify(resp.StatusCode),
			Body:       string(bytes.TrimSpace(excerpt)),
			RetryAfter: resp.Header.Get("Retry-After"),
		}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.Service, err)
	}
	return nil
}
