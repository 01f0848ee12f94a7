package models

import "time"

type Message struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	User      *Profile  `json:"user,omitempty"`
	IsSelf    bool      `json:"is_self,omitempty"`
}

type SendMessageRequest struct {
	Content string `json:"content"`
}

// TypingFlag marks a user composing a message in a room.
type TypingFlag struct {
	RoomID    string    `json:"room_id"`
	UserID    string    `json:"user_id"`
	IsTyping  bool      `json:"is_typing"`
	UpdatedAt time.Time `json:"updated_at"`
}

type TypingRequest struct {
	Text string `json:"text"`
}

type TypingState struct {
	RoomID string   `json:"room_id"`
	Names  []string `json:"names"`
	Text   string   `json:"text"`
}
