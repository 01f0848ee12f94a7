package database

import (
	"context"

	"roomchat/internal/models"
	"roomchat/internal/realtime"
	"roomchat/pkg/logger"
)

const (
	TableRooms       = "rooms"
	TableRoomMembers = "room_members"
	TableMessages    = "messages"
	TableTypingUsers = "typing_users"
)

// WithChanges wraps db so that every committed write is published on pub as a
// row change. Publishing is best effort: a failure is logged and never undoes
// or fails the write.
func WithChanges(db Database, pub realtime.Publisher) Database {
	return &changeFeed{Database: db, pub: pub}
}

type changeFeed struct {
	Database
	pub realtime.Publisher
}

func (c *changeFeed) emit(ctx context.Context, table string, event realtime.Event, columns map[string]string, row any) {
	change, err := realtime.NewChange(table, event, columns, row)
	if err != nil {
		logger.Error("Error building %s change: %v", table, err)
		return
	}
	if err := c.pub.Publish(context.WithoutCancel(ctx), change); err != nil {
		logger.Error("Error publishing %s %s change: %v", event, table, err)
	}
}

func memberColumns(m *models.Membership) map[string]string {
	return map[string]string{"room_id": m.RoomID, "user_id": m.UserID}
}

func (c *changeFeed) CreateRoomWithOwner(ctx context.Context, room *models.Room) (*models.Membership, error) {
	member, err := c.Database.CreateRoomWithOwner(ctx, room)
	if err != nil {
		return nil, err
	}
	c.emit(ctx, TableRooms, realtime.EventInsert, map[string]string{"id": room.ID, "created_by": room.CreatedBy}, room)
	c.emit(ctx, TableRoomMembers, realtime.EventInsert, memberColumns(member), member)
	return member, nil
}

func (c *changeFeed) AddMembership(ctx context.Context, roomID, userID string) (*models.Membership, error) {
	member, err := c.Database.AddMembership(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	c.emit(ctx, TableRoomMembers, realtime.EventInsert, memberColumns(member), member)
	return member, nil
}

func (c *changeFeed) CreateMessage(ctx context.Context, msg *models.Message) error {
	if err := c.Database.CreateMessage(ctx, msg); err != nil {
		return err
	}
	row := *msg
	row.User = nil
	row.IsSelf = false
	c.emit(ctx, TableMessages, realtime.EventInsert, map[string]string{
		"id":      msg.ID,
		"room_id": msg.RoomID,
		"user_id": msg.UserID,
	}, row)
	return nil
}

func (c *changeFeed) UpsertTyping(ctx context.Context, flag *models.TypingFlag) (bool, error) {
	inserted, err := c.Database.UpsertTyping(ctx, flag)
	if err != nil {
		return false, err
	}
	event := realtime.EventUpdate
	if inserted {
		event = realtime.EventInsert
	}
	c.emit(ctx, TableTypingUsers, event, map[string]string{"room_id": flag.RoomID, "user_id": flag.UserID}, flag)
	return inserted, nil
}
