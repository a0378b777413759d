package chat

import (
	"context"

	"github.com/golangid/obsbot/logger"
)

// LeaveHandler serve "leave" and "shutdown"
type LeaveHandler struct {
	prefix   string
	sender   Sender
	leaver   RoomLeaver
	shutdown func()
}

// NewLeaveHandler constructor, shutdown is called on the shutdown command
func NewLeaveHandler(prefix string, sender Sender, leaver RoomLeaver, shutdown func()) *LeaveHandler {
	return &LeaveHandler{prefix: prefix, sender: sender, leaver: leaver, shutdown: shutdown}
}

// Help implement HelpProvider
func (h *LeaveHandler) Help() []HelpEntry {
	return PrependPrefix(h.prefix, []HelpEntry{
		{Command: "leave", Description: "Leave the current room"},
		{Command: "shutdown", Description: "Shutdown the bot completely"},
	})
}

// HandleMessage implement Handler
func (h *LeaveHandler) HandleMessage(ctx context.Context, msg Message) HandleResult {
	command, ok := ExtractCommand(msg.Body, h.prefix)
	if !ok {
		return ContinueHandling
	}

	switch command {
	case "leave":
		logger.LogIfError(h.sender.SendNotice(ctx, msg.Room, "Bye!"))
		if err := h.leaver.LeaveRoom(ctx, msg.Room); err != nil {
			logger.LogEf("leave: %s: %v", msg.Room, err)
		}
		return StopHandling

	case "shutdown":
		logger.LogIfError(h.sender.SendNotice(ctx, msg.Room, "Bye!"))
		logger.LogIf("shutdown requested from %s by %s", msg.Room, msg.Sender)
		if h.shutdown != nil {
			h.shutdown()
		}
		return StopHandling
	}

	return ContinueHandling
}
