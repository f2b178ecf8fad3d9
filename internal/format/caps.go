// Package format holds the pure response-shaping functions: raw upstream
// payloads in, bounded summaries and markdown out. Formatters only ever read
// the raw upstream shape, so formatting the same input twice is
// deterministic.
package format

import "strings"

// Caps is the truncation policy for one detail mode. The caps differ between
// standard and deep mode; both sets live here as tunable policy.
type Caps struct {
	DescriptionChars int
	CommentChars     int
	CommentsKept     int
	TagValues        int
	StackFrames      int
}

// StandardCaps is the default bounded-output policy.
var StandardCaps = Caps{
	DescriptionChars: 500,
	CommentChars:     200,
	CommentsKept:     5,
	TagValues:        3,
	StackFrames:      10,
}

// DeepCaps widens every bound for deep-details calls.
var DeepCaps = Caps{
	DescriptionChars: 1000,
	CommentChars:     300,
	CommentsKept:     15,
	TagValues:        10,
	StackFrames:      20,
}

// CapsFor selects the policy for a call.
func CapsFor(deep bool) Caps {
	if deep {
		return DeepCaps
	}
	return StandardCaps
}

// truncate bounds s to max characters, marker included, so the result never
// exceeds the cap. Counts runes so multi-byte text is never split.
func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	const marker = "..."
	cut := max - len(marker)
	if cut < 0 {
		cut = 0
	}
	return strings.TrimSpace(string(runes[:cut])) + marker
}
