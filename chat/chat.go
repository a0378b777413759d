// Package chat is the boundary between the bot and the chat platform.
//
// Handlers never own the chat client. They receive a Sender capability
// which may be shared freely between handlers and broker consumers.
package chat

import (
	"context"
	"strings"
	"sync"
)

// RoomID identify a chat room, no structure assumed
type RoomID string

// String implement stringer
func (r RoomID) String() string { return string(r) }

// Message incoming text message
type Message struct {
	ID     string
	Room   RoomID
	Sender string
	Body   string
}

// Sender capability to post into rooms
type Sender interface {
	SendText(ctx context.Context, room RoomID, text string) error
	SendHTML(ctx context.Context, room RoomID, plain, html string) error
	SendNotice(ctx context.Context, room RoomID, text string) error
}

// RoomLeaver capability to leave rooms
type RoomLeaver interface {
	LeaveRoom(ctx context.Context, room RoomID) error
}

// HandleResult tell the router whether later handlers see the message
type HandleResult int

const (
	// ContinueHandling pass the message to the next handler
	ContinueHandling HandleResult = iota
	// StopHandling the message is consumed
	StopHandling
)

// Handler of incoming messages
type Handler interface {
	HandleMessage(ctx context.Context, msg Message) HandleResult
}

// HandlerFunc adapter
type HandlerFunc func(ctx context.Context, msg Message) HandleResult

// HandleMessage implement Handler
func (f HandlerFunc) HandleMessage(ctx context.Context, msg Message) HandleResult {
	return f(ctx, msg)
}

// Router pass each message through handlers in registration order
type Router struct {
	mu       sync.RWMutex
	handlers []Handler
}

// Add handler at the end of the chain
func (r *Router) Add(handlers ...Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = append(r.handlers, handlers...)
}

// Dispatch message, safe for concurrent use
func (r *Router) Dispatch(ctx context.Context, msg Message) {
	r.mu.RLock()
	handlers := make([]Handler, len(r.handlers))
	copy(handlers, r.handlers)
	r.mu.RUnlock()

	for _, h := range handlers {
		if h.HandleMessage(ctx, msg) == StopHandling {
			return
		}
	}
}

// ExtractCommand strip prefix from body, ok is false when body is not addressed to the bot
func ExtractCommand(body, prefix string) (command string, ok bool) {
	body = strings.TrimSpace(body)
	if !strings.HasPrefix(body, prefix) {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(body, prefix)), true
}
