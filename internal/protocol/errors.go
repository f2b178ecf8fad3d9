package protocol

import (
	"errors"
	"fmt"
	"net/http"
)

// JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Error is a protocol-level failure: a caller mistake surfaced verbatim in
// the JSON-RPC error envelope with its own HTTP status.
type Error struct {
	Code    int
	Message string
	Status  int
}

func (e *Error) Error() string { return e.Message }

// NewInvalidParams builds a -32602 error (HTTP 400).
func NewInvalidParams(format string, args ...any) *Error {
	return &Error{
		Code:    CodeInvalidParams,
		Message: fmt.Sprintf(format, args...),
		Status:  http.StatusBadRequest,
	}
}

// NewMethodNotFound builds a -32601 error (HTTP 404).
func NewMethodNotFound(msg string) *Error {
	return &Error{Code: CodeMethodNotFound, Message: msg, Status: http.StatusNotFound}
}

// MissingCredential names exactly what would satisfy the missing field, so
// the caller can fix the request without reading the docs.
func MissingCredential(what, header, envVar string) *Error {
	return NewInvalidParams("%s is required: pass the %s header or set %s", what, header, envVar)
}

// AsProtocolError extracts an *Error from err if present.
func AsProtocolError(err error) (*Error, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
