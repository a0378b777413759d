// Package openqa notifies about finished openQA test jobs.
package openqa

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
	KeyJobDone = "openqa.job.done"

	ChangeDone = "done"

	// BuildPrefix host prefix of the openQA frontend
	BuildPrefix = "openqa"

	resultPassed = "passed"
)

// Key test job id
type Key struct {
	ID uint64
}

// String implement subscription.Key
func (k Key) String() string {
	return strconv.FormatUint(k.ID, 10)
}

// Event job.done payload
type Event struct {
	ID       uint64 `json:"id" validate:"required"`
	TestName string `json:"TEST"`
	Result   string `json:"result" validate:"required"`
	Reason   string `json:"reason,omitempty"`
}

// Domain of openQA tests
type Domain struct{}

var _ subscription.Domain[Key, Event] = Domain{}

func (Domain) Noun() string { return "tests" }

// ShowSegment openQA links are /tests/{id}
func (Domain) ShowSegment() bool   { return false }
func (Domain) Placeholder() string { return "ID" }

func (Domain) Routes() []subscription.Route {
	return []subscription.Route{
		{Suffix: KeyJobDone, Change: ChangeDone},
	}
}

// ParseKey take the job id from the last path segment, query and anchor are ignored
func (Domain) ParseKey(line string) (Key, error) {
	tokens, err := subscription.TailTokens(line, 3, 1)
	if err != nil {
		return Key{}, err
	}
	n, err := strconv.ParseUint(tokens[0], 10, 64)
	if err != nil || n == 0 {
		return Key{}, &subscription.ParseError{Line: line, Reason: "test id is not a positive integer"}
	}
	return Key{ID: n}, nil
}

func (Domain) DecodeEvent(body []byte) (Event, error) {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return event, err
	}
	return event, validator.Validate(event)
}

func (Domain) EventKey(event Event) Key {
	return Key{ID: event.ID}
}

func (Domain) Render(event Event, _ string, link string) subscription.Notification {
	var reason, htmlReason string
	if event.Reason != "" {
		reason = fmt.Sprintf(" (reason: %s)", event.Reason)
		htmlReason = fmt.Sprintf(" (reason: %s)", html.EscapeString(event.Reason))
	}

	result := html.EscapeString(event.Result)
	if event.Result != resultPassed {
		result = "<u>" + result + "</u>"
	}

	return subscription.Notification{
		Plain: fmt.Sprintf("Test %s: %s (%d)%s", event.Result, event.TestName, event.ID, reason),
		HTML: fmt.Sprintf("<strong>Test %s:</strong> Test %s (<a href=\"%s\">%d</a>)%s",
			result, html.EscapeString(event.TestName), html.EscapeString(link), event.ID, htmlReason),
	}
}

func (Domain) Help() []chat.HelpEntry {
	return []chat.HelpEntry{
		{Command: "OPENQA_TEST_URL", Description: "Subscribe to a test. Get notification if test-status changes."},
		{Command: "unsub OPENQA_TEST_URL", Description: "Unsubscribe from a test. Get no more notifications."},
		{Command: "list tests", Description: "List all tests currently subscribed to."},
	}
}
