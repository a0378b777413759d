package subscription

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/gertd/go-pluralize"
	"go.uber.org/zap/zapcore"

	"github.com/golangid/obsbot/backend"
	"github.com/golangid/obsbot/candihelper"
	"github.com/golangid/obsbot/chat"
	"github.com/golangid/obsbot/logger"
)

const apologyMessage = "Sorry, something went wrong on my side. Please try again later."

var plurals = pluralize.NewClient()

// Binding is told about every successful subscription. Lazy bindings start
// consuming on the first call, eager ones ignore it.
type Binding interface {
	Activate(ctx context.Context) error
}

// Subscriber serve one domain of one backend: chat commands, default seeding and event dispatch
type Subscriber[K Key, E any] struct {
	details  backend.Details
	domain   Domain[K, E]
	prefix   string
	grammar  Grammar
	registry *Registry[K]
	sender   chat.Sender
	binding  Binding
	scope    string
}

// NewSubscriber constructor
func NewSubscriber[K Key, E any](details backend.Details, domain Domain[K, E], prefix string, sender chat.Sender) *Subscriber[K, E] {
	listNoun := plurals.Plural(domain.Noun())
	return &Subscriber[K, E]{
		details: details,
		domain:  domain,
		prefix:  prefix,
		grammar: Grammar{
			Prefix:      prefix,
			ListNoun:    listNoun,
			URLFragment: details.Domain + "/" + domain.Noun() + "/",
		},
		registry: NewRegistry[K](domain.Noun(), details.Domain),
		sender:   sender,
		scope:    details.Domain + "/" + listNoun,
	}
}

// SetBinding attach broker binding notified on subscribe
func (s *Subscriber[K, E]) SetBinding(b Binding) {
	s.binding = b
}

// Registry of this subscriber
func (s *Subscriber[K, E]) Registry() *Registry[K] {
	return s.registry
}

// Scope "<backend>/<plural>" used in logs
func (s *Subscriber[K, E]) Scope() string {
	return s.scope
}

// Grammar used for chat lines
func (s *Subscriber[K, E]) Grammar() Grammar {
	return s.grammar
}

// RoutingKeys bound for this domain
func (s *Subscriber[K, E]) RoutingKeys() []string {
	return RoutingKeys(s.domain.Routes())
}

// BaseURL of entity links
func (s *Subscriber[K, E]) BaseURL() string {
	return s.details.BaseURL(s.domain.Noun(), s.domain.ShowSegment())
}

// Link to the entity page of key
func (s *Subscriber[K, E]) Link(key K) string {
	return s.BaseURL() + "/" + key.String()
}

// Help implement chat.HelpProvider
func (s *Subscriber[K, E]) Help() []chat.HelpEntry {
	return chat.PrependPrefix(s.prefix, s.domain.Help())
}

// HandleMessage implement chat.Handler, every line of the message is one command
func (s *Subscriber[K, E]) HandleMessage(ctx context.Context, msg chat.Message) chat.HandleResult {
	for _, line := range candihelper.SplitLines(msg.Body) {
		cmd := s.grammar.Parse(line)
		switch cmd.Kind {
		case ListRequest:
			s.replyList(ctx, msg.Room)

		case Candidate:
			s.reply(ctx, msg.Room, s.apply(ctx, cmd, msg.Room))
		}
	}
	return chat.ContinueHandling
}

func (s *Subscriber[K, E]) apply(ctx context.Context, cmd Command, room chat.RoomID) string {
	key, err := s.domain.ParseKey(cmd.Args)
	if err != nil {
		logger.Log(zapcore.DebugLevel, err.Error(), "command", s.scope)
		return fmt.Sprintf("Sorry, I could not parse that. Usage: %s/%s", s.BaseURL(), s.domain.Placeholder())
	}

	var reply string
	if cmd.Unsubscribe {
		reply, err = s.registry.Unsubscribe(key, room)
	} else {
		reply, _, err = s.registry.Subscribe(key, room)
	}
	if err != nil {
		logger.Log(zapcore.ErrorLevel, err.Error(), "registry", s.scope)
		return apologyMessage
	}

	logger.Log(zapcore.InfoLevel, fmt.Sprintf("%s (room %s)", reply, room), "command", s.scope)
	if !cmd.Unsubscribe {
		s.activate(ctx)
	}
	return reply
}

func (s *Subscriber[K, E]) activate(ctx context.Context) {
	if s.binding == nil {
		return
	}
	if err := s.binding.Activate(ctx); err != nil {
		logger.Log(zapcore.ErrorLevel, err.Error(), "binding", s.scope)
	}
}

func (s *Subscriber[K, E]) reply(ctx context.Context, room chat.RoomID, text string) {
	if err := s.sender.SendText(ctx, room, text); err != nil {
		logger.Log(zapcore.ErrorLevel, fmt.Sprintf("reply to %s: %v", room, err), "command", s.scope)
	}
}

func (s *Subscriber[K, E]) replyList(ctx context.Context, room chat.RoomID) {
	keys, err := s.registry.List(room)
	if err != nil {
		logger.Log(zapcore.ErrorLevel, err.Error(), "registry", s.scope)
		s.reply(ctx, room, apologyMessage)
		return
	}

	plain, rich := s.renderList(keys)
	if err := s.sender.SendHTML(ctx, room, plain, rich); err != nil {
		logger.Log(zapcore.ErrorLevel, fmt.Sprintf("list reply to %s: %v", room, err), "command", s.scope)
	}
}

func (s *Subscriber[K, E]) renderList(keys []K) (plain, rich string) {
	noun := s.grammar.ListNoun
	if len(keys) == 0 {
		text := fmt.Sprintf("This room is not subscribed to any %s on %s", noun, s.details.Domain)
		return text, html.EscapeString(text)
	}

	var p, h strings.Builder
	fmt.Fprintf(&p, "Subscribed %s on %s:", noun, s.details.Domain)
	fmt.Fprintf(&h, "<strong>Subscribed %s on %s:</strong>\n<ul>", noun, html.EscapeString(s.details.Domain))
	for _, key := range keys {
		link := s.Link(key)
		fmt.Fprintf(&p, "\n%s", link)
		fmt.Fprintf(&h, "\n<li><a href=\"%s\">%s</a></li>", html.EscapeString(link), html.EscapeString(key.String()))
	}
	h.WriteString("\n</ul>")
	return p.String(), h.String()
}

// SeedDefaults subscribe room to every url in block without replying, returns
// the number of memberships that did not exist yet
func (s *Subscriber[K, E]) SeedDefaults(ctx context.Context, room chat.RoomID, block string) int {
	var seeded, subscribed int
	for _, line := range candihelper.SplitLines(block) {
		cmd := s.grammar.Parse(line)
		if cmd.Kind != Candidate || cmd.Unsubscribe {
			continue
		}

		key, err := s.domain.ParseKey(cmd.Args)
		if err != nil {
			logger.Log(zapcore.WarnLevel, "default subscription: "+err.Error(), "defaults", s.scope)
			continue
		}
		reply, added, err := s.registry.Subscribe(key, room)
		if err != nil {
			logger.Log(zapcore.ErrorLevel, "default subscription: "+err.Error(), "defaults", s.scope)
			continue
		}
		logger.Log(zapcore.InfoLevel, fmt.Sprintf("%s (room %s)", reply, room), "defaults", s.scope)
		subscribed++
		if added {
			seeded++
		}
	}

	if subscribed > 0 {
		s.activate(ctx)
	}
	return seeded
}
