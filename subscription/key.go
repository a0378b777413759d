// Package subscription bridges broker events to chat rooms.
//
// One Subscriber is created per (backend, domain) pair. It parses chat
// commands into subscribe, unsubscribe and list operations on its Registry
// and fans out rendered notifications for broker deliveries to the rooms
// subscribed to the affected key.
package subscription

import (
	"strings"
)

// Key identity of a subscribable entity. String is the canonical encoding,
// used in links and list replies.
type Key interface {
	comparable
	String() string
}

// TailTokens split line on "/" and return the last n tokens in reverse order,
// trimmed. Query and fragment of an url are dropped first. The line must hold
// at least min tokens and no newline.
func TailTokens(line string, min, n int) ([]string, error) {
	if strings.ContainsAny(line, "\r\n") {
		return nil, &ParseError{Line: line, Reason: "multi-line input"}
	}
	if min < n {
		min = n
	}

	path := line
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	parts := strings.Split(strings.TrimSpace(path), "/")
	if len(parts) < min {
		return nil, &ParseError{Line: line, Reason: "not enough path segments"}
	}

	tokens := make([]string, 0, n)
	for i := len(parts) - 1; i >= len(parts)-n; i-- {
		tok := strings.TrimSpace(parts[i])
		if tok == "" {
			return nil, &ParseError{Line: line, Reason: "empty path segment"}
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}
