// Package upstream holds the shared HTTP plumbing for both upstream REST
// APIs: a timeout-bounded JSON fetch helper and the error taxonomy the
// dispatcher and handlers use to classify failures.
package upstream

import (
	"errors"
	"fmt"
	"time"
)

// Category classifies a non-2xx upstream response.
type Category string

const (
	CategoryAuth        Category = "authentication"
	CategoryNotFound    Category = "not_found"
	CategoryRateLimited Category = "rate_limited"
	CategoryServerError Category = "server_error"
	CategoryBadRequest  Category = "bad_request"
)

// Error is a non-2xx response from an upstream service. The status code and
// a body excerpt are preserved so callers can build a precise message, and
// the category is discoverable via errors.As.
type Error struct {
	Service    string
	StatusCode int
	Category   Category
	Body       string
	RetryAfter string
}

func (e *Error) Error() string {
	switch e.Category {
	case CategoryAuth:
		return fmt.Sprintf("%s authentication failed (HTTP %d): check your API token", e.Service, e.StatusCode)
	case CategoryNotFound:
		detail := e.Body
		if detail == "" {
			detail = "no further detail"
		}
		return fmt.Sprintf("%s resource not found (HTTP 404): %s", e.Service, detail)
	case CategoryRateLimited:
		msg := fmt.Sprintf("%s rate limit exceeded (HTTP 429)", e.Service)
		if e.RetryAfter != "" {
			msg += ", retry after " + e.RetryAfter
		}
		return msg
	case CategoryServerError:
		return fmt.Sprintf("%s server error (HTTP %d)", e.Service, e.StatusCode)
	default:
		return fmt.Sprintf("%s request failed (HTTP %d): %s", e.Service, e.StatusCode, e.Body)
	}
}

// Classify maps an HTTP status code to a category.
func Classify(status int) Category {
	switch {
	case status == 401 || status == 403:
		return CategoryAuth
	case status == 404:
		return CategoryNotFound
	case status == 429:
		return CategoryRateLimited
	case status >= 500:
		return CategoryServerError
	default:
		return CategoryBadRequest
	}
}

// TimeoutError marks a request that exceeded its deadline. Its message
// always contains "timed out" so it is distinguishable from other network
// failures even after flattening to a string.
type TimeoutError struct {
	Service string
	Limit   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s request timed out after %s", e.Service, e.Limit)
}

// IsTimeout reports whether err is (or wraps) a TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// IsUpstream extracts an *Error from err if present.
func IsUpstream(err error) (*Error, bool) {
	var ue *Error
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}
