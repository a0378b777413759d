package chat

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/golangid/obsbot/logger"
)

// HelpEntry one command form and its description
type HelpEntry struct {
	Command     string
	Description string
}

// HelpProvider is implemented by handlers listed in help
type HelpProvider interface {
	Help() []HelpEntry
}

// PrependPrefix return entries with the command prefix in front of every command
func PrependPrefix(prefix string, entries []HelpEntry) []HelpEntry {
	res := make([]HelpEntry, len(entries))
	for i, e := range entries {
		res[i] = HelpEntry{Command: prefix + e.Command, Description: e.Description}
	}
	return res
}

const helpGreeting = "Hi, I'm a friendly robot and provide these options:"

// HelpHandler answer "help" with the commands of every provider
type HelpHandler struct {
	prefix    string
	sender    Sender
	providers []HelpProvider
}

// NewHelpHandler constructor
func NewHelpHandler(prefix string, sender Sender, providers ...HelpProvider) *HelpHandler {
	return &HelpHandler{prefix: prefix, sender: sender, providers: providers}
}

// AddProvider append provider
func (h *HelpHandler) AddProvider(p HelpProvider) {
	h.providers = append(h.providers, p)
}

// Entries all help lines in display order, a command shared by several
// providers (e.g. one per backend) is listed once
func (h *HelpHandler) Entries() []HelpEntry {
	items := []HelpEntry{{Command: h.prefix + "help", Description: "Print this help"}}
	seen := map[string]struct{}{items[0].Command: {}}
	for _, p := range h.providers {
		for _, e := range p.Help() {
			if _, ok := seen[e.Command]; ok {
				continue
			}
			seen[e.Command] = struct{}{}
			items = append(items, e)
		}
	}
	return items
}

// Render plain and HTML help
func (h *HelpHandler) Render() (plain, formatted string) {
	items := h.Entries()

	var plainMsg strings.Builder
	plainMsg.WriteString(helpGreeting)
	for _, item := range items {
		fmt.Fprintf(&plainMsg, "\n%-35s - %s", item.Command, item.Description)
	}

	var htmlMsg strings.Builder
	htmlMsg.WriteString("<h3>" + helpGreeting + "</h3>\n<table>")
	for _, item := range items {
		fmt.Fprintf(&htmlMsg, "\n<tr> <td>%s</td> <td>%s</td></tr>", html.EscapeString(item.Command), html.EscapeString(item.Description))
	}
	htmlMsg.WriteString("\n</table>")

	return plainMsg.String(), htmlMsg.String()
}

// HandleMessage implement Handler
func (h *HelpHandler) HandleMessage(ctx context.Context, msg Message) HandleResult {
	command, ok := ExtractCommand(msg.Body, h.prefix)
	if !ok || command != "help" {
		return ContinueHandling
	}

	plain, formatted := h.Render()
	if err := h.sender.SendHTML(ctx, msg.Room, plain, formatted); err != nil {
		logger.LogEf("help: reply to %s: %v", msg.Room, err)
	}
	return StopHandling
}
