package database

import (
	"context"
	"testing"
	"time"

	"roomchat/internal/models"
	"roomchat/internal/realtime"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func next(t *testing.T, s *realtime.Subscription) realtime.Change {
	t.Helper()
	select {
	case c, ok := <-s.C:
		require.True(t, ok)
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change")
	}
	return realtime.Change{}
}

func TestWithChangesPublishesWrites(t *testing.T) {
	ctx := context.Background()
	hub := realtime.NewHub(16)
	t.Cleanup(func() { _ = hub.Close() })

	mem := NewMemoryDB()
	seedUser(t, mem, "u1", "a@example.com", "Alice")
	seedUser(t, mem, "u2", "b@example.com", "Bob")
	db := WithChanges(mem, hub)

	members, err := hub.Subscribe(ctx, realtime.Spec{Event: realtime.EventAll, Table: TableRoomMembers, Filter: "user_id=eq.u2"})
	require.NoError(t, err)
	messages, err := hub.Subscribe(ctx, realtime.Spec{Event: realtime.EventInsert, Table: TableMessages, Filter: "room_id=eq.r1"})
	require.NoError(t, err)
	typing, err := hub.Subscribe(ctx, realtime.Spec{Event: realtime.EventAll, Table: TableTypingUsers, Filter: "room_id=eq.r1"})
	require.NoError(t, err)

	_, err = db.CreateRoomWithOwner(ctx, &models.Room{ID: "r1", Name: "general", CreatedBy: "u1", CreatedAt: time.Now().UTC()})
	require.NoError(t, err)
	_, err = db.AddMembership(ctx, "r1", "u2")
	require.NoError(t, err)

	c := next(t, members)
	assert.Equal(t, realtime.EventInsert, c.Event)
	var m models.Membership
	require.NoError(t, c.Decode(&m))
	assert.Equal(t, "r1", m.RoomID)
	assert.Equal(t, "u2", m.UserID)

	msg := &models.Message{ID: "m1", RoomID: "r1", UserID: "u1", Content: "hello", CreatedAt: time.Now().UTC(), User: &models.Profile{ID: "u1"}}
	require.NoError(t, db.CreateMessage(ctx, msg))
	c = next(t, messages)
	var got models.Message
	require.NoError(t, c.Decode(&got))
	assert.Equal(t, "hello", got.Content)
	assert.Nil(t, got.User)

	_, err = db.UpsertTyping(ctx, &models.TypingFlag{RoomID: "r1", UserID: "u2", IsTyping: true, UpdatedAt: time.Now().UTC()})
	require.NoError(t, err)
	_, err = db.UpsertTyping(ctx, &models.TypingFlag{RoomID: "r1", UserID: "u2", IsTyping: false, UpdatedAt: time.Now().UTC()})
	require.NoError(t, err)
	assert.Equal(t, realtime.EventInsert, next(t, typing).Event)
	assert.Equal(t, realtime.EventUpdate, next(t, typing).Event)
}

func TestWithChangesSkipsFailedWrites(t *testing.T) {
	ctx := context.Background()
	hub := realtime.NewHub(16)
	t.Cleanup(func() { _ = hub.Close() })

	mem := NewMemoryDB()
	db := WithChanges(mem, hub)

	sub, err := hub.Subscribe(ctx, realtime.Spec{Table: TableMessages})
	require.NoError(t, err)

	err = db.CreateMessage(ctx, &models.Message{ID: "m1", RoomID: "missing", UserID: "u1", Content: "x"})
	require.Error(t, err)

	select {
	case c := <-sub.C:
		t.Fatalf("unexpected change: %+v", c)
	case <-time.After(50 * time.Millisecond):
	}
}
