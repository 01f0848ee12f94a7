package models

import "time"

type Room struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

type Membership struct {
	RoomID   string    `json:"room_id"`
	UserID   string    `json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
}

type CreateRoomRequest struct {
	Name string `json:"name"`
}

type InviteRequest struct {
	Email string `json:"email"`
}

type ShareLink struct {
	RoomID string  `json:"room_id"`
	URL    string  `json:"url"`
	Notice *Notice `json:"notice,omitempty"`
}

// JoinResult is what the join flow hands back to the page: where to go next
// and what to tell the user.
type JoinResult struct {
	Redirect string  `json:"redirect"`
	Joined   bool    `json:"joined"`
	Room     *Room   `json:"room,omitempty"`
	Notice   *Notice `json:"notice,omitempty"`
}
