package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlankDraftNeverMarksTyping(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.user(t, "u1", "alice@example.com", "Alice")
	f.room(t, "r1", "general", "u1")

	require.NoError(t, f.typing.SetTyping(ctx, "r1", "u1", "   "))
	users, err := f.typing.TypingUsers(ctx, "r1", "someone-else")
	require.NoError(t, err)
	assert.Empty(t, users)

	require.NoError(t, f.typing.SetTyping(ctx, "r1", "u1", "hel"))
	users, err = f.typing.TypingUsers(ctx, "r1", "someone-else")
	require.NoError(t, err)
	require.Len(t, users, 1)

	require.NoError(t, f.typing.Clear(ctx, "r1", "u1"))
	users, err = f.typing.TypingUsers(ctx, "r1", "someone-else")
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestTypingExcludesViewerAndOtherRooms(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.user(t, "u1", "alice@example.com", "Alice")
	f.user(t, "u2", "bob@example.com", "Bob")
	f.room(t, "r1", "general", "u1")
	f.room(t, "r2", "random", "u2")
	_, _, err := f.rooms.JoinRoom(ctx, "u2", "r1")
	require.NoError(t, err)

	require.NoError(t, f.typing.SetTyping(ctx, "r1", "u1", "hi"))
	require.NoError(t, f.typing.SetTyping(ctx, "r1", "u2", "hey"))
	require.NoError(t, f.typing.SetTyping(ctx, "r2", "u2", "elsewhere"))

	state, err := f.typing.TypingState(ctx, "r1", "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Bob"}, state.Names)
	assert.Equal(t, "Bob is typing...", state.Text)

	_, err = f.typing.TypingState(ctx, "r2", "u1")
	assert.ErrorIs(t, err, ErrNotMember)

	state, err = f.typing.TypingState(ctx, "r2", "u2")
	require.NoError(t, err)
	assert.Empty(t, state.Names)
	assert.Equal(t, "", state.Text)
}

func TestTypingRequiresMembership(t *testing.T) {
	f := newFixture(t)
	f.user(t, "u1", "alice@example.com", "Alice")
	f.user(t, "u2", "bob@example.com", "Bob")
	f.room(t, "r1", "general", "u1")

	err := f.typing.SetTyping(context.Background(), "r1", "u2", "sneaky")
	assert.ErrorIs(t, err, ErrNotMember)
}

func TestTypingFlagsExpire(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.user(t, "u1", "alice@example.com", "Alice")
	f.room(t, "r1", "general", "u1")

	now := time.Now()
	f.typing.now = func() time.Time { return now }
	require.NoError(t, f.typing.SetTyping(ctx, "r1", "u1", "hi"))

	now = now.Add(11 * time.Second)
	users, err := f.typing.TypingUsers(ctx, "r1", "viewer")
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestIndicatorText(t *testing.T) {
	assert.Equal(t, "", IndicatorText(nil))
	assert.Equal(t, "Ann is typing...", IndicatorText([]string{"Ann"}))
	assert.Equal(t, "Ann and Bo are typing...", IndicatorText([]string{"Ann", "Bo"}))
	assert.Equal(t, "Ann and 2 others are typing...", IndicatorText([]string{"Ann", "Bo", "Cy"}))
}

func TestClearNeedsRoomButNotMembership(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.user(t, "u1", "alice@example.com", "Alice")
	f.user(t, "u2", "bob@example.com", "Bob")
	f.room(t, "r1", "general", "u1")

	require.NoError(t, f.typing.Clear(ctx, "r1", "u2"))
	assert.ErrorIs(t, f.typing.Clear(ctx, "missing", "u1"), ErrRoomNotFound)
	assert.ErrorIs(t, f.typing.Clear(ctx, "r1", ""), ErrNotAuthenticated)
}
