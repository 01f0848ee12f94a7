package models

type EventType string

const (
	EventRooms   EventType = "rooms"
	EventHistory EventType = "history"
	EventMessage EventType = "message"
	EventTyping  EventType = "typing"
	EventNotice  EventType = "notice"
)

// Event is a server to client websocket frame.
type Event struct {
	Type     EventType  `json:"type"`
	RoomID   string     `json:"room_id,omitempty"`
	Rooms    []*Room    `json:"rooms,omitempty"`
	Messages []*Message `json:"messages,omitempty"`
	Message  *Message   `json:"message,omitempty"`
	Names    []string   `json:"names,omitempty"`
	Text     string     `json:"text,omitempty"`
	Notice   *Notice    `json:"notice,omitempty"`
}

type CommandType string

const (
	CommandSelectRoom CommandType = "select_room"
	CommandDraft      CommandType = "draft"
	CommandSend       CommandType = "send"
)

// Command is a client to server websocket frame.
type Command struct {
	Type   CommandType `json:"type"`
	RoomID string      `json:"room_id,omitempty"`
	Text   string      `json:"text,omitempty"`
}
