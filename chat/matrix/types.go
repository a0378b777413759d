package matrix

// Event types and message kinds used by the bot
const (
	EventTypeMessage = "m.room.message"
	EventTypeMember  = "m.room.member"

	MsgTypeText   = "m.text"
	MsgTypeNotice = "m.notice"

	FormatHTML = "org.matrix.custom.html"
)

// LoginRequest body of POST /login with password auth
type LoginRequest struct {
	Type                     string         `json:"type"`
	Identifier               UserIdentifier `json:"identifier"`
	Password                 string         `json:"password"`
	InitialDeviceDisplayName string         `json:"initial_device_display_name,omitempty"`
}

// UserIdentifier of a login request
type UserIdentifier struct {
	Type string `json:"type"`
	User string `json:"user"`
}

// LoginResponse of POST /login
type LoginResponse struct {
	UserID      string `json:"user_id"`
	AccessToken string `json:"access_token"`
	DeviceID    string `json:"device_id"`
}

// MessageContent of an m.room.message event
type MessageContent struct {
	MsgType       string `json:"msgtype"`
	Body          string `json:"body"`
	Format        string `json:"format,omitempty"`
	FormattedBody string `json:"formatted_body,omitempty"`
}

// SendResponse of PUT /rooms/{roomId}/send
type SendResponse struct {
	EventID string `json:"event_id"`
}

// Event room event as delivered by /sync
type Event struct {
	EventID        string         `json:"event_id"`
	Type           string         `json:"type"`
	Sender         string         `json:"sender"`
	OriginServerTS int64          `json:"origin_server_ts"`
	Content        map[string]any `json:"content"`
	StateKey       *string        `json:"state_key,omitempty"`
}

// ContentString string field of the content, empty when missing
func (e Event) ContentString(key string) string {
	s, _ := e.Content[key].(string)
	return s
}

// SyncResponse of GET /sync
type SyncResponse struct {
	NextBatch string       `json:"next_batch"`
	Rooms     RoomsSection `json:"rooms"`
}

// RoomsSection rooms part of a sync response
type RoomsSection struct {
	Join   map[string]JoinedRoom  `json:"join"`
	Invite map[string]InvitedRoom `json:"invite"`
	Leave  map[string]LeftRoom    `json:"leave"`
}

// JoinedRoom sync data of a joined room
type JoinedRoom struct {
	Timeline TimelineSection `json:"timeline"`
}

// InvitedRoom sync data of a room the bot is invited to
type InvitedRoom struct {
	InviteState StateSection `json:"invite_state"`
}

// LeftRoom sync data of a room the bot left
type LeftRoom struct {
	Timeline TimelineSection `json:"timeline"`
}

// TimelineSection timeline events
type TimelineSection struct {
	Events    []Event `json:"events"`
	PrevBatch string  `json:"prev_batch"`
	Limited   bool    `json:"limited"`
}

// StateSection state events
type StateSection struct {
	Events []Event `json:"events"`
}
