package feed

import (
	"context"
	"slices"
	"time"

	"roomchat/internal/database"
	"roomchat/internal/models"
	"roomchat/internal/realtime"
	"roomchat/internal/services"
	"roomchat/pkg/logger"
)

// TypingWatcher pushes the "who is typing" line for the viewer's open room.
// It refetches on every typing_users change in the room and once per TTL so
// stale flags fade out without a new write.
type TypingWatcher struct {
	bus      realtime.Subscriber
	typing   *services.TypingService
	viewerID string
	interval time.Duration
	emit     Emitter

	lost LostFunc
	w    *watcher
}

func NewTypingWatcher(bus realtime.Subscriber, typing *services.TypingService, viewerID string, interval time.Duration, emit Emitter) *TypingWatcher {
	return &TypingWatcher{
		bus:      bus,
		typing:   typing,
		viewerID: viewerID,
		interval: interval,
		emit:     emit,
	}
}

func (t *TypingWatcher) Select(ctx context.Context, roomID string) error {
	t.Close()

	w, err := subscribe(ctx, t.bus, realtime.Spec{
		Event:  realtime.EventAll,
		Schema: realtime.SchemaPublic,
		Table:  database.TableTypingUsers,
		Filter: "room_id=eq." + roomID,
	}, t.lost)
	if err != nil {
		return err
	}
	t.w = w

	var last []string
	first := true
	w.refreshOn(t.interval, func(ctx context.Context) {
		state, err := t.typing.TypingState(ctx, roomID, t.viewerID)
		if err != nil {
			if ctx.Err() == nil {
				logger.Error("Error loading typing users for room %s: %v", roomID, err)
			}
			return
		}
		if !first && slices.Equal(last, state.Names) {
			return
		}
		first = false
		last = state.Names
		t.emit(&models.Event{Type: models.EventTyping, RoomID: roomID, Names: state.Names, Text: state.Text})
	})
	return nil
}

func (t *TypingWatcher) OnLost(fn LostFunc) { t.lost = fn }

func (t *TypingWatcher) Close() {
	if t.w != nil {
		t.w.stop()
		t.w = nil
	}
}
