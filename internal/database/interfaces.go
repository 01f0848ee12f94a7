package database

import (
	"context"
	"errors"
	"time"

	"roomchat/internal/models"
)

// ErrDuplicate is returned when a write hits a unique key that already exists.
var ErrDuplicate = errors.New("database: duplicate key")

// Lookups return (value, found, error): a missing row is found=false with a
// nil error, never a backend-specific code.

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, bool, error)
	GetUserByID(ctx context.Context, id string) (*models.User, bool, error)
}

type RoomRepository interface {
	// CreateRoomWithOwner stores the room and the creator's membership
	// atomically.
	CreateRoomWithOwner(ctx context.Context, room *models.Room) (*models.Membership, error)
	GetRoomByID(ctx context.Context, id string) (*models.Room, bool, error)
	ListUserRooms(ctx context.Context, userID string) ([]*models.Room, error)
}

type MembershipRepository interface {
	AddMembership(ctx context.Context, roomID, userID string) (*models.Membership, error)
	GetMembership(ctx context.Context, roomID, userID string) (*models.Membership, bool, error)
}

type MessageRepository interface {
	CreateMessage(ctx context.Context, msg *models.Message) error
	// ListMessages returns the room's messages joined with their authors,
	// oldest first.
	ListMessages(ctx context.Context, roomID string) ([]*models.Message, error)
}

type TypingRepository interface {
	// UpsertTyping reports whether the row was inserted rather than updated.
	UpsertTyping(ctx context.Context, flag *models.TypingFlag) (bool, error)
	// ListTypingUsers returns users with is_typing set in the room and
	// updated after since.
	ListTypingUsers(ctx context.Context, roomID string, since time.Time) ([]*models.User, error)
}

type Database interface {
	UserRepository
	RoomRepository
	MembershipRepository
	MessageRepository
	TypingRepository
	Ping(ctx context.Context) error
	Close() error
}
