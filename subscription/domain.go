package subscription

import (
	"strings"

	"github.com/golangid/obsbot/chat"
)

// Route maps a routing key suffix to the change it announces
type Route struct {
	Suffix string
	Change string
}

// Notification rendered event
type Notification struct {
	Plain string
	HTML  string
}

// Domain is one kind of subscribable entity with its key codec, event schema and rendering
type Domain[K Key, E any] interface {
	// Noun is the url path segment of the entity, e.g. "package"
	Noun() string
	// ShowSegment tells whether entity links carry a /show segment before the key
	ShowSegment() bool
	// Placeholder of the key in usage hints, e.g. "PROJECT/PACKAGE"
	Placeholder() string
	// Routes ordered routing key suffixes, first match wins
	Routes() []Route
	// ParseKey decode a key from a single chat line
	ParseKey(line string) (K, error)
	// DecodeEvent decode a delivery body
	DecodeEvent(body []byte) (E, error)
	EventKey(event E) K
	Render(event E, change, link string) Notification
	// Help command forms without prefix
	Help() []chat.HelpEntry
}

// Classify routing key by substring match against routes in order
func Classify(routes []Route, routingKey string) (change string, ok bool) {
	for _, r := range routes {
		if strings.Contains(routingKey, r.Suffix) {
			return r.Change, true
		}
	}
	return "", false
}

// RoutingKeys suffixes of routes, in order
func RoutingKeys(routes []Route) []string {
	keys := make([]string, len(routes))
	for i, r := range routes {
		keys[i] = r.Suffix
	}
	return keys
}
