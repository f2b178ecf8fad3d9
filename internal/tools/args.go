package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/freddie-manatal/sentry-sensei-mcp/internal/protocol"
)

// decodeArgs binds tool arguments strictly. Unknown or mistyped fields are
// argument errors, reported as invalid params rather than internal failures,
// so a misspelled filter fails loudly instead of being silently dropped.
func decodeArgs(raw json.RawMessage, out any) error {
	if len(raw) == 0 {
		raw = json.RawMessage(`{}`)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return protocol.NewInvalidParams("invalid arguments: %v", err)
	}
	return nil
}

// StringList accepts either a JSON array of strings or a single scalar, so
// callers can pass "123" where ["123"] is meant.
type StringList []string

func (s *StringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*s = list
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = StringList{single}
		return nil
	}
	var number json.Number
	if err := json.Unmarshal(data, &number); err == nil {
		*s = StringList{number.String()}
		return nil
	}
	return fmt.Errorf("expected string, number, or array of strings")
}

// parseDateBound reads a "YYYY-MM-DD" or "YYYY-MM-DDTHH:MM:SS" bound.
// Date-only values snap to the start or end of that day.
func parseDateBound(value string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse("2006-01-02T15:04:05", value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, protocol.NewInvalidParams("invalid date %q: use YYYY-MM-DD or YYYY-MM-DDTHH:MM:SS", value)
	}
	if endOfDay {
		return dayEnd(t), nil
	}
	return dayStart(t), nil
}

func dayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func dayEnd(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, time.UTC)
}
