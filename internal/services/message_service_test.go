package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMessageCreatesExactlyOne(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.user(t, "u1", "alice@example.com", "Alice")
	f.room(t, "r1", "general", "u1")

	msg, err := f.messages.SendMessage(ctx, "r1", "u1", "  hello  ")
	require.NoError(t, err)
	assert.Equal(t, "r1", msg.RoomID)
	assert.Equal(t, "u1", msg.UserID)
	assert.Equal(t, "  hello  ", msg.Content)
	assert.True(t, msg.IsSelf)
	require.NotNil(t, msg.User)
	assert.Equal(t, "Alice", msg.User.FullName)

	msgs, err := f.messages.LoadMessages(ctx, "r1", "u1")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, msg.ID, msgs[0].ID)
}

func TestSendMessageRejectsBlankAndNonMembers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.user(t, "u1", "alice@example.com", "Alice")
	f.user(t, "u2", "bob@example.com", "Bob")
	f.room(t, "r1", "general", "u1")

	_, err := f.messages.SendMessage(ctx, "r1", "u1", " \n\t ")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = f.messages.SendMessage(ctx, "r1", "u2", "hi")
	assert.ErrorIs(t, err, ErrNotMember)

	_, err = f.messages.SendMessage(ctx, "r1", "", "hi")
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	msgs, err := f.messages.LoadMessages(ctx, "r1", "u1")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestLoadMessagesOrderedAndMarked(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.user(t, "u1", "alice@example.com", "Alice")
	f.user(t, "u2", "bob@example.com", "Bob")
	f.room(t, "r1", "general", "u1")
	_, _, err := f.rooms.JoinRoom(ctx, "u2", "r1")
	require.NoError(t, err)

	for i, sender := range []string{"u1", "u2", "u1", "u2"} {
		_, err := f.messages.SendMessage(ctx, "r1", sender, string(rune('a'+i)))
		require.NoError(t, err)
	}

	msgs, err := f.messages.LoadMessages(ctx, "r1", "u2")
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	for i, m := range msgs {
		assert.Equal(t, string(rune('a'+i)), m.Content)
		assert.Equal(t, m.UserID == "u2", m.IsSelf)
		require.NotNil(t, m.User)
		if i > 0 {
			assert.False(t, m.CreatedAt.Before(msgs[i-1].CreatedAt))
		}
	}

	_, err = f.messages.LoadMessages(ctx, "missing", "u1")
	assert.ErrorIs(t, err, ErrRoomNotFound)

	f.user(t, "u3", "carol@example.com", "Carol")
	_, err = f.messages.LoadMessages(ctx, "r1", "u3")
	assert.ErrorIs(t, err, ErrNotMember)
}
