package subscription

import (
	"strings"

	"github.com/golangid/obsbot/chat"
)

// CommandKind classification of a chat line
type CommandKind int

const (
	// NotForMe the line is not addressed to this domain
	NotForMe CommandKind = iota
	// ListRequest "list <plural>"
	ListRequest
	// Candidate the line holds a url of this domain, subscribe or unsubscribe
	Candidate
)

// Command parsed line
type Command struct {
	Kind CommandKind
	// Args is the line without command prefix, input of key decoding
	Args        string
	Unsubscribe bool
}

// Grammar of one domain on one backend
type Grammar struct {
	Prefix      string
	ListNoun    string
	URLFragment string
}

// Parse classify a single line
func (g Grammar) Parse(line string) Command {
	rest, ok := chat.ExtractCommand(line, g.Prefix)
	if !ok || rest == "" {
		return Command{Kind: NotForMe}
	}

	fields := strings.Fields(rest)
	if len(fields) >= 2 && fields[0] == "list" && fields[1] == g.ListNoun {
		return Command{Kind: ListRequest, Args: rest}
	}

	if !strings.Contains(rest, g.URLFragment) {
		return Command{Kind: NotForMe}
	}

	return Command{Kind: Candidate, Args: rest, Unsubscribe: fields[0] == "unsub"}
}
