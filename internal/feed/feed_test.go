package feed

import (
	"context"
	"testing"
	"time"

	"roomchat/internal/database"
	"roomchat/internal/models"
	"roomchat/internal/realtime"
	"roomchat/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	hub      *realtime.Hub
	mem      *database.MemoryDB
	db       database.Database
	rooms    *services.RoomService
	messages *services.MessageService
	typing   *services.TypingService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	return newEnvWithBuffer(t, 32)
}

func newEnvWithBuffer(t *testing.T, buffer int) *env {
	t.Helper()
	hub := realtime.NewHub(buffer)
	t.Cleanup(func() { _ = hub.Close() })

	mem := database.NewMemoryDB()
	db := database.WithChanges(mem, hub)
	rooms := services.NewRoomService(db, "http://localhost:8080")
	e := &env{
		hub:      hub,
		mem:      mem,
		db:       db,
		rooms:    rooms,
		messages: services.NewMessageService(db, rooms),
		typing:   services.NewTypingService(db, rooms, 10*time.Second),
	}

	ctx := context.Background()
	now := time.Now().UTC()
	for _, u := range []models.User{
		{ID: "u1", Email: "alice@example.com", FullName: "Alice"},
		{ID: "u2", Email: "bob@example.com", FullName: "Bob"},
		{ID: "u3", Email: "carol@example.com", FullName: "Carol"},
	} {
		u.CreatedAt, u.UpdatedAt = now, now
		require.NoError(t, mem.CreateUser(ctx, &u))
	}
	for _, r := range []models.Room{
		{ID: "r1", Name: "general", CreatedBy: "u1", CreatedAt: now},
		{ID: "r2", Name: "random", CreatedBy: "u1", CreatedAt: now.Add(time.Second)},
	} {
		_, err := mem.CreateRoomWithOwner(ctx, &r)
		require.NoError(t, err)
	}
	_, err := mem.AddMembership(ctx, "r1", "u2")
	require.NoError(t, err)
	return e
}

func collector() (Emitter, chan *models.Event) {
	ch := make(chan *models.Event, 64)
	return func(e *models.Event) { ch <- e }, ch
}

func nextEvent(t *testing.T, ch <-chan *models.Event) *models.Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return nil
}

func noEvent(t *testing.T, ch <-chan *models.Event) {
	t.Helper()
	select {
	case e := <-ch:
		t.Fatalf("unexpected %s event: %+v", e.Type, e)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestFeedLoadsHistoryThenAppendsLive(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	_, err := e.messages.SendMessage(ctx, "r1", "u1", "first")
	require.NoError(t, err)

	emit, events := collector()
	f := NewFeed(e.hub, e.messages, "u2", emit)
	t.Cleanup(f.Close)

	require.NoError(t, f.Select(ctx, "r1"))
	ev := nextEvent(t, events)
	assert.Equal(t, models.EventHistory, ev.Type)
	require.Len(t, ev.Messages, 1)
	assert.Equal(t, "first", ev.Messages[0].Content)
	assert.False(t, ev.Messages[0].IsSelf)

	_, err = e.messages.SendMessage(ctx, "r1", "u2", "second")
	require.NoError(t, err)
	ev = nextEvent(t, events)
	assert.Equal(t, models.EventMessage, ev.Type)
	assert.Equal(t, "second", ev.Message.Content)
	assert.True(t, ev.Message.IsSelf)
	require.NotNil(t, ev.Message.User)
	assert.Equal(t, "Bob", ev.Message.User.FullName)

	list := f.Messages()
	require.Len(t, list, 2)
	assert.Equal(t, "first", list[0].Content)
	assert.Equal(t, "second", list[1].Content)
}

func TestFeedIgnoresDuplicateInserts(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	sent, err := e.messages.SendMessage(ctx, "r1", "u1", "hello")
	require.NoError(t, err)

	emit, events := collector()
	f := NewFeed(e.hub, e.messages, "u1", emit)
	t.Cleanup(f.Close)
	require.NoError(t, f.Select(ctx, "r1"))
	nextEvent(t, events)

	row := *sent
	row.User = nil
	c, err := realtime.NewChange(database.TableMessages, realtime.EventInsert, map[string]string{"room_id": "r1"}, row)
	require.NoError(t, err)
	require.NoError(t, e.hub.Publish(ctx, c))

	noEvent(t, events)
	assert.Len(t, f.Messages(), 1)
}

// racingBus inserts a message right after the subscription opens and before
// the history load runs.
type racingBus struct {
	realtime.Subscriber
	afterSubscribe func()
}

func (b *racingBus) Subscribe(ctx context.Context, spec realtime.Spec) (*realtime.Subscription, error) {
	sub, err := b.Subscriber.Subscribe(ctx, spec)
	if err == nil && b.afterSubscribe != nil {
		b.afterSubscribe()
	}
	return sub, err
}

func TestFeedInsertBetweenSubscribeAndLoadAppearsOnce(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	bus := &racingBus{Subscriber: e.hub, afterSubscribe: func() {
		_, err := e.messages.SendMessage(ctx, "r1", "u1", "racing")
		require.NoError(t, err)
	}}

	emit, events := collector()
	f := NewFeed(bus, e.messages, "u2", emit)
	t.Cleanup(f.Close)
	require.NoError(t, f.Select(ctx, "r1"))

	ev := nextEvent(t, events)
	assert.Equal(t, models.EventHistory, ev.Type)
	require.Len(t, ev.Messages, 1)
	assert.Equal(t, "racing", ev.Messages[0].Content)

	noEvent(t, events)
	assert.Len(t, f.Messages(), 1)
}

func TestFeedRoomSwitchTearsDownPreviousSubscription(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	emit, events := collector()
	f := NewFeed(e.hub, e.messages, "u1", emit)
	t.Cleanup(f.Close)

	require.NoError(t, f.Select(ctx, "r1"))
	nextEvent(t, events)
	require.NoError(t, f.Select(ctx, "r2"))
	ev := nextEvent(t, events)
	assert.Equal(t, "r2", ev.RoomID)
	assert.Equal(t, 1, e.hub.Count())

	_, err := e.messages.SendMessage(ctx, "r1", "u2", "old room")
	require.NoError(t, err)
	noEvent(t, events)

	_, err = e.messages.SendMessage(ctx, "r2", "u1", "new room")
	require.NoError(t, err)
	ev = nextEvent(t, events)
	assert.Equal(t, "new room", ev.Message.Content)
	assert.Equal(t, "r2", f.RoomID())

	f.Close()
	assert.Equal(t, 0, e.hub.Count())
	assert.Empty(t, f.Messages())
}

func TestFeedSelectRequiresMembership(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	emit, events := collector()
	f := NewFeed(e.hub, e.messages, "u3", emit)
	t.Cleanup(f.Close)

	err := f.Select(ctx, "r1")
	assert.ErrorIs(t, err, services.ErrNotMember)
	assert.Equal(t, "", f.RoomID())
	assert.Equal(t, 0, e.hub.Count())
	noEvent(t, events)
}

func TestFeedReportsSubscriptionDroppedByBus(t *testing.T) {
	ctx := context.Background()
	e := newEnvWithBuffer(t, 1)

	// Live messages block in the emitter until release is closed, so the
	// consumer falls behind and the hub drops it.
	release := make(chan struct{})
	emit := func(ev *models.Event) {
		if ev.Type == models.EventMessage {
			<-release
		}
	}
	lost := make(chan struct{})
	f := NewFeed(e.hub, e.messages, "u2", emit)
	f.OnLost(func() { close(lost) })
	t.Cleanup(f.Close)
	require.NoError(t, f.Select(ctx, "r1"))

	for _, text := range []string{"one", "two", "three"} {
		_, err := e.messages.SendMessage(ctx, "r1", "u1", text)
		require.NoError(t, err)
	}
	require.Eventually(t, func() bool { return e.hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
	close(release)

	select {
	case <-lost:
	case <-time.After(2 * time.Second):
		t.Fatal("dropped subscription was not reported")
	}
}

func TestFeedCloseIsNotReportedAsLost(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	emit, events := collector()
	lost := make(chan struct{}, 1)
	f := NewFeed(e.hub, e.messages, "u1", emit)
	f.OnLost(func() { lost <- struct{}{} })
	require.NoError(t, f.Select(ctx, "r1"))
	nextEvent(t, events)

	f.Close()
	select {
	case <-lost:
		t.Fatal("Close reported the subscription as lost")
	case <-time.After(100 * time.Millisecond):
	}
}
