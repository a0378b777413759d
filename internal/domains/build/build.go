// Package build notifies about package build results.
package build

import (
	"encoding/json"
	"fmt"
	"html"

	"github.com/golangid/obsbot/chat"
	"github.com/golangid/obsbot/subscription"
	"github.com/golangid/obsbot/validator"
)

const (
	KeyBuildSuccess = "obs.package.build_success"
	KeyBuildFail    = "obs.package.build_fail"

	ChangeSucceeded = "succeeded"
	ChangeFailed    = "failed"
)

// Key of a package
type Key struct {
	Project string
	Package string
}

// String implement subscription.Key
func (k Key) String() string {
	return k.Project + "/" + k.Package
}

// Event build_success / build_fail payload
type Event struct {
	Arch       string `json:"arch"`
	Repository string `json:"repository"`
	Package    string `json:"package" validate:"required"`
	Project    string `json:"project" validate:"required"`
	Reason     string `json:"reason,omitempty"`
	Release    string `json:"release,omitempty"`
	ReadyTime  string `json:"readytime,omitempty"`
	SrcMD5     string `json:"srcmd5,omitempty"`
	Rev        string `json:"rev,omitempty"`
	BCnt       string `json:"bcnt,omitempty"`
	StartTime  string `json:"starttime,omitempty"`
	EndTime    string `json:"endtime,omitempty"`
	WorkerID   string `json:"workerid,omitempty"`
	VersRel    string `json:"versrel,omitempty"`
	HostArch   string `json:"hostarch,omitempty"`
}

// Domain of packages
type Domain struct{}

var _ subscription.Domain[Key, Event] = Domain{}

func (Domain) Noun() string        { return "package" }
func (Domain) ShowSegment() bool   { return true }
func (Domain) Placeholder() string { return "PROJECT/PACKAGE" }

func (Domain) Routes() []subscription.Route {
	return []subscription.Route{
		{Suffix: KeyBuildSuccess, Change: ChangeSucceeded},
		{Suffix: KeyBuildFail, Change: ChangeFailed},
	}
}

// ParseKey take the last two path segments as project and package
func (Domain) ParseKey(line string) (Key, error) {
	tokens, err := subscription.TailTokens(line, 3, 2)
	if err != nil {
		return Key{}, err
	}
	return Key{Project: tokens[1], Package: tokens[0]}, nil
}

func (Domain) DecodeEvent(body []byte) (Event, error) {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return event, err
	}
	return event, validator.Validate(event)
}

func (Domain) EventKey(event Event) Key {
	return Key{Project: event.Project, Package: event.Package}
}

func (Domain) Render(event Event, change, link string) subscription.Notification {
	var reason, htmlReason string
	if event.Reason != "" {
		reason = " - " + event.Reason
		htmlReason = " - " + html.EscapeString(event.Reason)
	}

	status := html.EscapeString(change)
	if change != ChangeSucceeded {
		status = "<u>" + status + "</u>"
	}

	return subscription.Notification{
		Plain: fmt.Sprintf("Build %s: %s/%s (%s / %s)%s",
			change, event.Project, event.Package, event.Arch, event.Repository, reason),
		HTML: fmt.Sprintf("<strong>Build %s</strong>: <a href=\"%s\">%s/%s</a> (%s / %s)%s",
			status, html.EscapeString(link),
			html.EscapeString(event.Project), html.EscapeString(event.Package),
			html.EscapeString(event.Arch), html.EscapeString(event.Repository), htmlReason),
	}
}

func (Domain) Help() []chat.HelpEntry {
	return []chat.HelpEntry{
		{Command: "OBS_PACKAGE_URL", Description: "Subscribe to a package. Get notification if build status changes."},
		{Command: "unsub OBS_PACKAGE_URL", Description: "Unsubscribe from a package. Get no more notifications."},
		{Command: "list packages", Description: "List all packages currently subscribed to."},
	}
}
