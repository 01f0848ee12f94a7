package services

import (
	"context"
	"testing"
	"time"

	"roomchat/internal/database"
	"roomchat/internal/models"

	"github.com/stretchr/testify/require"
)

type fixture struct {
	db       *database.MemoryDB
	rooms    *RoomService
	messages *MessageService
	typing   *TypingService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := database.NewMemoryDB()
	rooms := NewRoomService(db, "https://chat.example.com/")
	return &fixture{
		db:       db,
		rooms:    rooms,
		messages: NewMessageService(db, rooms),
		typing:   NewTypingService(db, rooms, 10*time.Second),
	}
}

func (f *fixture) user(t *testing.T, id, email, name string) *models.User {
	t.Helper()
	now := time.Now().UTC()
	u := &models.User{ID: id, Email: email, FullName: name, PasswordHash: "x", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, f.db.CreateUser(context.Background(), u))
	return u
}

func (f *fixture) room(t *testing.T, id, name, owner string) *models.Room {
	t.Helper()
	r := &models.Room{ID: id, Name: name, CreatedBy: owner, CreatedAt: time.Now().UTC()}
	_, err := f.db.CreateRoomWithOwner(context.Background(), r)
	require.NoError(t, err)
	return r
}
