// Package backend describes the build service instances the bot can bridge.
package backend

import (
	"fmt"
	"sort"
	"strings"
)

// Details of one build service instance sharing a chat account and a broker
type Details struct {
	// Domain of the instance, e.g. opensuse.org
	Domain string
	// Login used for the broker connection as user:password
	Login string
	// BuildPrefix is the host prefix of the web frontend
	BuildPrefix string
	// RabbitPrefix is the host prefix of the broker
	RabbitPrefix string
	// RabbitScope prefixes every routing key published by this instance
	RabbitScope string
}

var known = map[string]Details{
	"opensuse.org": {
		Domain:       "opensuse.org",
		Login:        "opensuse:opensuse",
		BuildPrefix:  "build",
		RabbitPrefix: "rabbit",
		RabbitScope:  "opensuse",
	},
	"suse.de": {
		Domain:       "suse.de",
		Login:        "suse:suse",
		BuildPrefix:  "build",
		RabbitPrefix: "rabbit",
		RabbitScope:  "suse",
	},
}

// Lookup known backend by domain
func Lookup(domain string) (Details, bool) {
	d, ok := known[domain]
	return d, ok
}

// Supported list all known backend domains, sorted
func Supported() []string {
	domains := make([]string, 0, len(known))
	for d := range known {
		domains = append(domains, d)
	}
	sort.Strings(domains)
	return domains
}

// BrokerURL amqps url of the instance broker
func (d Details) BrokerURL() string {
	return fmt.Sprintf("amqps://%s@%s.%s/%%2f", d.Login, d.RabbitPrefix, d.Domain)
}

// WithBuildPrefix copy of d with another web frontend prefix, e.g. openqa
func (d Details) WithBuildPrefix(prefix string) Details {
	d.BuildPrefix = prefix
	return d
}

// BaseURL of an entity kind: https://{buildprefix}.{domain}/{noun}[/show]
func (d Details) BaseURL(noun string, show bool) string {
	base := fmt.Sprintf("https://%s.%s/%s", d.BuildPrefix, d.Domain, strings.Trim(noun, "/"))
	if show {
		base += "/show"
	}
	return base
}

// Scoped routing key binding pattern for this instance
func (d Details) Scoped(routingKey string) string {
	return d.RabbitScope + "." + routingKey
}
