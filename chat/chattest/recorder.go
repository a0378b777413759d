// Package chattest provides an in-memory chat.Sender for tests.
package chattest

import (
	"context"
	"sync"

	"github.com/golangid/obsbot/chat"
)

// Kind of recorded message
type Kind string

const (
	KindText   Kind = "text"
	KindHTML   Kind = "html"
	KindNotice Kind = "notice"
)

// Sent message
type Sent struct {
	Kind  Kind
	Room  chat.RoomID
	Plain string
	HTML  string
}

// Recorder records every message and left room. FailRooms makes sends to those rooms fail.
type Recorder struct {
	mu        sync.Mutex
	sent      []Sent
	left      []chat.RoomID
	FailRooms map[chat.RoomID]error
}

// New recorder
func New() *Recorder {
	return &Recorder{FailRooms: map[chat.RoomID]error{}}
}

func (r *Recorder) record(s Sent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.FailRooms[s.Room]; err != nil {
		return err
	}
	r.sent = append(r.sent, s)
	return nil
}

// SendText implement chat.Sender
func (r *Recorder) SendText(_ context.Context, room chat.RoomID, text string) error {
	return r.record(Sent{Kind: KindText, Room: room, Plain: text})
}

// SendHTML implement chat.Sender
func (r *Recorder) SendHTML(_ context.Context, room chat.RoomID, plain, html string) error {
	return r.record(Sent{Kind: KindHTML, Room: room, Plain: plain, HTML: html})
}

// SendNotice implement chat.Sender
func (r *Recorder) SendNotice(_ context.Context, room chat.RoomID, text string) error {
	return r.record(Sent{Kind: KindNotice, Room: room, Plain: text})
}

// LeaveRoom implement chat.RoomLeaver
func (r *Recorder) LeaveRoom(_ context.Context, room chat.RoomID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.left = append(r.left, room)
	return nil
}

// Sent copy of all recorded messages
func (r *Recorder) Sent() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := make([]Sent, len(r.sent))
	copy(res, r.sent)
	return res
}

// SentTo recorded messages of one room
func (r *Recorder) SentTo(room chat.RoomID) []Sent {
	var res []Sent
	for _, s := range r.Sent() {
		if s.Room == room {
			res = append(res, s)
		}
	}
	return res
}

// Left rooms
func (r *Recorder) Left() []chat.RoomID {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := make([]chat.RoomID, len(r.left))
	copy(res, r.left)
	return res
}

// Reset drop recorded messages
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
	r.left = nil
}
