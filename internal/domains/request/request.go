// Package request notifies about request state changes and comments.
package request

import (
	"encoding/json"
	"fmt"
	"html"
	"strconv"

	"github.com/golangid/obsbot/chat"
	"github.com/golangid/obsbot/subscription"
	"github.com/golangid/obsbot/validator"
)

const (
	KeyRequestChange      = "obs.request.change"
	KeyRequestStateChange = "obs.request.state_change"
	KeyRequestDelete      = "obs.request.delete"
	KeyRequestComment     = "obs.request.comment"

	ChangeByAdmin   = "changed by admin"
	ChangeState     = "changed"
	ChangeDeleted   = "deleted"
	ChangeCommented = "commented"
)

// states rendered emphasized
var failedStates = map[string]bool{"declined": true, "revoked": true, "superseded": true}

// Key request number
type Key struct {
	Number uint64
}

// String implement subscription.Key
func (k Key) String() string {
	return strconv.FormatUint(k.Number, 10)
}

// Event request payload, comment events carry commenter and comment_body
type Event struct {
	Number      uint64          `json:"number" validate:"required"`
	State       string          `json:"state"`
	Author      string          `json:"author,omitempty"`
	Comment     string          `json:"comment,omitempty"`
	Description string          `json:"description,omitempty"`
	Actions     json.RawMessage `json:"actions,omitempty"`
	When        string          `json:"when,omitempty"`
	Who         string          `json:"who,omitempty"`
	OldState    string          `json:"oldstate,omitempty"`
	Commenter   string          `json:"commenter,omitempty"`
	CommentBody string          `json:"comment_body,omitempty"`
}

// Domain of requests
type Domain struct{}

var _ subscription.Domain[Key, Event] = Domain{}

func (Domain) Noun() string        { return "request" }
func (Domain) ShowSegment() bool   { return true }
func (Domain) Placeholder() string { return "NUMBER" }

func (Domain) Routes() []subscription.Route {
	return []subscription.Route{
		{Suffix: KeyRequestChange, Change: ChangeByAdmin},
		{Suffix: KeyRequestStateChange, Change: ChangeState},
		{Suffix: KeyRequestDelete, Change: ChangeDeleted},
		{Suffix: KeyRequestComment, Change: ChangeCommented},
	}
}

// ParseKey take the request number from the last path segment
func (Domain) ParseKey(line string) (Key, error) {
	tokens, err := subscription.TailTokens(line, 3, 1)
	if err != nil {
		return Key{}, err
	}
	number, err := strconv.ParseUint(tokens[0], 10, 64)
	if err != nil || number == 0 {
		return Key{}, &subscription.ParseError{Line: line, Reason: "request number is not a positive integer"}
	}
	return Key{Number: number}, nil
}

func (Domain) DecodeEvent(body []byte) (Event, error) {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return event, err
	}
	return event, validator.Validate(event)
}

func (Domain) EventKey(event Event) Key {
	return Key{Number: event.Number}
}

func (Domain) Render(event Event, change, link string) subscription.Notification {
	ref := fmt.Sprintf("<a href=\"%s\">Request %d</a>", html.EscapeString(link), event.Number)

	if change == ChangeCommented {
		by, htmlBy := "", ""
		if commenter := firstNonEmpty(event.Commenter, event.Who, event.Author); commenter != "" {
			by = " by " + commenter
			htmlBy = " by <strong>" + html.EscapeString(commenter) + "</strong>"
		}
		body := firstNonEmpty(event.CommentBody, event.Comment)
		return subscription.Notification{
			Plain: fmt.Sprintf("Request %d was %s%s: %s", event.Number, change, by, body),
			HTML:  fmt.Sprintf("%s was %s%s: %s", ref, change, htmlBy, html.EscapeString(body)),
		}
	}

	var comment, htmlComment string
	if event.Comment != "" {
		comment = " (" + event.Comment + ")"
		htmlComment = " (" + html.EscapeString(event.Comment) + ")"
	}
	state := html.EscapeString(event.State)
	if failedStates[event.State] {
		state = "<u>" + state + "</u>"
	}

	return subscription.Notification{
		Plain: fmt.Sprintf("Request %d was %s: %s%s", event.Number, change, event.State, comment),
		HTML:  fmt.Sprintf("%s was %s: <strong>%s</strong>%s", ref, change, state, htmlComment),
	}
}

func (Domain) Help() []chat.HelpEntry {
	return []chat.HelpEntry{
		{Command: "OBS_REQUEST_URL", Description: "Subscribe to a request. Get notification if request status changes."},
		{Command: "unsub OBS_REQUEST_URL", Description: "Unsubscribe from a request. Get no more notifications."},
		{Command: "list requests", Description: "List all requests currently subscribed to."},
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
